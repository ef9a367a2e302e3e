// Package index defines the positional inverted index, the document table,
// and the immutable Snapshot unit that bundles them with the autocomplete
// trie. A Snapshot is produced once by a build (or a load) and is never
// mutated afterwards; serving code replaces whole snapshots atomically.
package index

import (
	"sort"

	"github.com/docsearch-io/docsearch/internal/trie"
)

// Posting records one document's occurrences of one term. Positions are
// 1-based over the document's raw token stream and strictly increasing.
type Posting struct {
	DocID     int   `json:"doc_id"`
	Positions []int `json:"positions"`
}

// PostingList holds a term's postings in document insertion order.
type PostingList []Posting

// Find returns the posting for docID, if present.
func (pl PostingList) Find(docID int) (Posting, bool) {
	for _, p := range pl {
		if p.DocID == docID {
			return p, true
		}
	}
	return Posting{}, false
}

// DocIDs returns the set of document IDs present in the list.
func (pl PostingList) DocIDs() map[int]struct{} {
	ids := make(map[int]struct{}, len(pl))
	for _, p := range pl {
		ids[p.DocID] = struct{}{}
	}
	return ids
}

// TermEntry pairs a term with its postings for serialization.
type TermEntry struct {
	Term     string      `json:"term"`
	Postings PostingList `json:"postings"`
}

// Document is one indexed text unit. ContentLength is the number of
// surviving normalized tokens and is the term-frequency denominator.
type Document struct {
	ID            int    `json:"doc_id"`
	Title         string `json:"title"`
	Path          string `json:"path"`
	ContentLength int    `json:"content_length"`
}

// Snapshot is the co-owned triple built in one pass: inverted index,
// document table, and autocomplete trie.
type Snapshot struct {
	Inverted map[string]PostingList
	Docs     map[int]Document
	Vocab    *trie.Trie
}

// NewSnapshot returns an empty snapshot ready to be populated by a build.
func NewSnapshot() *Snapshot {
	return &Snapshot{
		Inverted: make(map[string]PostingList),
		Docs:     make(map[int]Document),
		Vocab:    trie.New(),
	}
}

// Postings returns the posting list for term, if the term is indexed.
func (s *Snapshot) Postings(term string) (PostingList, bool) {
	pl, ok := s.Inverted[term]
	return pl, ok
}

// Document returns the document table entry for docID, if present.
func (s *Snapshot) Document(docID int) (Document, bool) {
	doc, ok := s.Docs[docID]
	return doc, ok
}

// DocCount returns the number of indexed documents.
func (s *Snapshot) DocCount() int {
	return len(s.Docs)
}

// TermCount returns the number of distinct indexed terms.
func (s *Snapshot) TermCount() int {
	return len(s.Inverted)
}

// TermEntries returns the inverted index as a slice sorted by term, for
// deterministic serialization.
func (s *Snapshot) TermEntries() []TermEntry {
	entries := make([]TermEntry, 0, len(s.Inverted))
	for term, postings := range s.Inverted {
		entries = append(entries, TermEntry{Term: term, Postings: postings})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Term < entries[j].Term
	})
	return entries
}

// Documents returns the document table as a slice sorted by ID.
func (s *Snapshot) Documents() []Document {
	docs := make([]Document, 0, len(s.Docs))
	for _, doc := range s.Docs {
		docs = append(docs, doc)
	}
	sort.Slice(docs, func(i, j int) bool {
		return docs[i].ID < docs[j].ID
	})
	return docs
}
