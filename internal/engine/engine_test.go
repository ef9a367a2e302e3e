package engine

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docsearch-io/docsearch/internal/builder"
	"github.com/docsearch-io/docsearch/internal/index"
	"github.com/docsearch-io/docsearch/internal/source"
)

type sliceSource struct {
	docs []source.RawDocument
}

func (s *sliceSource) Documents(ctx context.Context) ([]source.RawDocument, error) {
	return s.docs, nil
}

func buildEngine(t *testing.T, contents ...string) *Engine {
	t.Helper()
	docs := make([]source.RawDocument, 0, len(contents))
	for i, content := range contents {
		docs = append(docs, source.RawDocument{
			Title:   string(rune('a'+i)) + ".txt",
			Path:    "data/" + string(rune('a'+i)) + ".txt",
			Content: content,
		})
	}
	snap, err := builder.New(1).Build(context.Background(), &sliceSource{docs: docs})
	require.NoError(t, err)
	return New(snap)
}

func docIDs(results []Result) []int {
	ids := make([]int, 0, len(results))
	for _, r := range results {
		ids = append(ids, r.DocID)
	}
	return ids
}

func TestClassify(t *testing.T) {
	assert.Equal(t, QueryBoolean, Classify("cat sat"))
	assert.Equal(t, QueryPhrase, Classify(`"cat sat"`))
	assert.Equal(t, QueryPhrase, Classify(`  "cat sat"  `))
	assert.Equal(t, QueryBoolean, Classify(`"`))
	assert.Equal(t, QueryBoolean, Classify(`"unterminated`))
}

func TestBooleanSearch(t *testing.T) {
	eng := buildEngine(t,
		"alpha beta",  // doc 1
		"alpha gamma", // doc 2
	)

	results, kind := eng.Search("alpha beta")
	assert.Equal(t, QueryBoolean, kind)
	assert.Equal(t, []int{1}, docIDs(results), "AND semantics: only documents with every term")

	results, _ = eng.Search("alpha")
	assert.Equal(t, []int{1, 2}, docIDs(results))
}

func TestBooleanSearchUnknownTerm(t *testing.T) {
	eng := buildEngine(t, "alpha beta")

	results, _ := eng.Search("alpha zebra")
	assert.Empty(t, results, "a term absent from the index empties the intersection")

	results, _ = eng.Search("zebra")
	assert.Empty(t, results)
}

func TestSearchEmptyQuery(t *testing.T) {
	eng := buildEngine(t, "alpha beta")

	results, _ := eng.Search("")
	assert.Empty(t, results)

	results, _ = eng.Search("the and of")
	assert.Empty(t, results, "queries that normalize to nothing yield no results")
}

func TestPhraseSearch(t *testing.T) {
	eng := buildEngine(t,
		"fox jumps high", // doc 1: fox@1 jump@2
		"fox the jumps",  // doc 2: fox@1 jump@3, stop-word gap
		"jumps fox",      // doc 3: wrong order
	)

	results, kind := eng.Search(`"fox jumps"`)
	assert.Equal(t, QueryPhrase, kind)
	assert.Equal(t, []int{1}, docIDs(results),
		"a removed stop word breaks adjacency and reversed order never matches")
}

func TestPhraseSearchUnknownTerm(t *testing.T) {
	eng := buildEngine(t, "fox jumps high")

	results, _ := eng.Search(`"fox zebra"`)
	assert.Empty(t, results)
}

// Adjacency is checked pairwise against the previous term's full posting,
// not a narrowed position chain. "nova comet comet nova" therefore matches
// the phrase "nova comet nova" even though that exact sequence never occurs:
// nova@1→comet@2 and comet@3→nova@4 each pass independently. This mirrors
// the retrieval algorithm as specified; it is not a bug to fix here.
func TestPhraseSearchRepeatedTermChain(t *testing.T) {
	eng := buildEngine(t, "nova comet comet nova")

	results, _ := eng.Search(`"nova comet nova"`)
	assert.Equal(t, []int{1}, docIDs(results))
}

func TestEndToEnd(t *testing.T) {
	eng := buildEngine(t,
		"the cat sat", // doc 1
		"the cat ran", // doc 2
	)

	results, _ := eng.Search("cat")
	require.Equal(t, []int{1, 2}, docIDs(results), "equal scores fall back to ascending doc ID")
	require.Len(t, results, 2)
	assert.Positive(t, results[0].Score)
	assert.InDelta(t, results[0].Score, results[1].Score, 1e-12, "same df, tf, and length give equal scores")
	assert.Equal(t, "a.txt", results[0].Title)
	assert.Equal(t, "data/a.txt", results[0].Path)

	results, _ = eng.Search(`"cat sat"`)
	assert.Equal(t, []int{1}, docIDs(results))
}

func TestScoreValue(t *testing.T) {
	eng := buildEngine(t, "the cat sat on a mat")

	results, _ := eng.Search("cat")
	require.Len(t, results, 1)

	// One occurrence among three surviving tokens, one document of one:
	// tf = 1/3, idf = ln(1 + 1/1).
	want := (1.0 / 3.0) * math.Log(2)
	assert.InDelta(t, want, results[0].Score, 1e-12)
}

func TestRareTermOutscoresCommonTerm(t *testing.T) {
	eng := buildEngine(t,
		"rare common",
		"common pad",
		"common pads",
	)

	rare, _ := eng.Search("rare")
	common, _ := eng.Search("common")
	require.NotEmpty(t, rare)
	require.NotEmpty(t, common)

	// Both terms occur once in doc 1 with the same length; only df differs,
	// and idf = ln(1 + N/df) must favor the rarer term.
	assert.Equal(t, 1, rare[0].DocID)
	assert.Greater(t, rare[0].Score, common[0].Score)
}

// Scaling a document's term count and length by the same factor leaves its
// tf ratio unchanged, so its rank against other documents must not move.
func TestRankScaleInvariance(t *testing.T) {
	base := func(bCount, bLen int) *index.Snapshot {
		snap := index.NewSnapshot()
		snap.Docs[1] = index.Document{ID: 1, Title: "a", Path: "a", ContentLength: 10}
		snap.Docs[2] = index.Document{ID: 2, Title: "b", Path: "b", ContentLength: bLen}
		positions := make([]int, bCount)
		for i := range positions {
			positions[i] = i*2 + 1
		}
		snap.Inverted["x"] = index.PostingList{
			{DocID: 1, Positions: []int{1}},
			{DocID: 2, Positions: positions},
		}
		snap.Vocab.Insert("x")
		return snap
	}

	plain := New(base(2, 10))
	scaled := New(base(4, 20))

	plainResults, _ := plain.Search("x")
	scaledResults, _ := scaled.Search("x")

	require.Equal(t, []int{2, 1}, docIDs(plainResults), "higher tf ranks first")
	assert.Equal(t, docIDs(plainResults), docIDs(scaledResults))
}

func TestSuggest(t *testing.T) {
	eng := buildEngine(t, "cat catalog catastrophe dog")

	assert.Equal(t, []string{"cat", "catalog", "catastrophe"}, eng.Suggest("cat", 10))
	assert.Equal(t, []string{"cat", "catalog"}, eng.Suggest("cat", 2), "limit bounds suggestions")
	assert.Equal(t, []string{"cat", "catalog", "catastrophe"}, eng.Suggest("CAT", 10),
		"prefix is normalized before lookup")
	assert.Empty(t, eng.Suggest("zeb", 10))
	assert.Empty(t, eng.Suggest("", 10))
	assert.Empty(t, eng.Suggest("the", 10), "a prefix that normalizes away yields nothing")
}

func TestSuggestTermsAreIndexed(t *testing.T) {
	eng := buildEngine(t, "cat catalog", "catalog dogs")

	for _, term := range eng.Suggest("cat", 10) {
		_, ok := eng.Snapshot().Postings(term)
		assert.True(t, ok, "every suggestion is an indexed term: %s", term)
	}
}

func TestDocumentLookup(t *testing.T) {
	eng := buildEngine(t, "the cat sat")

	doc, ok := eng.Document(1)
	require.True(t, ok)
	assert.Equal(t, "a.txt", doc.Title)
	assert.Equal(t, 2, doc.ContentLength)

	_, ok = eng.Document(99)
	assert.False(t, ok)
}

func TestSwapReplacesSnapshotAtomically(t *testing.T) {
	eng := buildEngine(t, "alpha beta")

	results, _ := eng.Search("alpha")
	require.Len(t, results, 1)

	replacement, err := builder.New(1).Build(context.Background(), &sliceSource{docs: []source.RawDocument{
		{Title: "n.txt", Path: "n", Content: "gamma delta"},
	}})
	require.NoError(t, err)
	eng.Swap(replacement)

	results, _ = eng.Search("alpha")
	assert.Empty(t, results, "old corpus is gone after swap")
	results, _ = eng.Search("gamma")
	assert.Equal(t, []int{1}, docIDs(results))
}
