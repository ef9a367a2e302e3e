// Package trie implements the prefix tree used for term autocompletion.
package trie

import "sort"

// DefaultLimit bounds prefix completions when the caller does not supply
// an explicit limit.
const DefaultLimit = 10

type node struct {
	children map[rune]*node
	terminal bool
	term     string
}

func newNode() *node {
	return &node{children: make(map[rune]*node)}
}

// Trie is a character-keyed prefix tree over normalized terms. Each term is
// stored once; repeated insertion is a no-op.
type Trie struct {
	root *node
	size int
}

func New() *Trie {
	return &Trie{root: newNode()}
}

// Insert adds term to the trie, creating one node per character.
func (t *Trie) Insert(term string) {
	n := t.root
	for _, r := range term {
		child, ok := n.children[r]
		if !ok {
			child = newNode()
			n.children[r] = child
		}
		n = child
	}
	if !n.terminal {
		n.terminal = true
		n.term = term
		t.size++
	}
}

// Contains reports whether term was inserted into the trie.
func (t *Trie) Contains(term string) bool {
	n := t.root
	for _, r := range term {
		child, ok := n.children[r]
		if !ok {
			return false
		}
		n = child
	}
	return n.terminal
}

// Len returns the number of distinct terms stored.
func (t *Trie) Len() int {
	return t.size
}

// PrefixSearch returns up to limit complete terms starting with prefix, in
// depth-first order with children visited in ascending character order.
// An unknown prefix yields an empty result; an empty prefix walks the whole
// vocabulary lexicographically. A limit <= 0 falls back to DefaultLimit.
func (t *Trie) PrefixSearch(prefix string, limit int) []string {
	if limit <= 0 {
		limit = DefaultLimit
	}
	n := t.root
	for _, r := range prefix {
		child, ok := n.children[r]
		if !ok {
			return []string{}
		}
		n = child
	}
	results := make([]string, 0, limit)
	collect(n, limit, &results)
	return results
}

// Terms returns every stored term in lexicographic order.
func (t *Trie) Terms() []string {
	results := make([]string, 0, t.size)
	collect(t.root, t.size, &results)
	return results
}

func collect(n *node, limit int, results *[]string) {
	if len(*results) >= limit {
		return
	}
	if n.terminal {
		*results = append(*results, n.term)
	}
	chars := make([]rune, 0, len(n.children))
	for r := range n.children {
		chars = append(chars, r)
	}
	sort.Slice(chars, func(i, j int) bool { return chars[i] < chars[j] })
	for _, r := range chars {
		collect(n.children[r], limit, results)
	}
}
