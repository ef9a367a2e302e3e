// Package analyzer turns raw document text into normalized index terms.
// It lower-cases input, splits on non-word boundaries, removes stop-words,
// and applies a suffix-stripping stemmer. Positions are assigned over the
// raw token stream before stop-word removal, so a removed stop-word leaves
// a gap in the numbering. Phrase adjacency relies on that numbering and it
// must not change.
package analyzer

import (
	"strings"
	"unicode"
)

var stopWords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {},
	"be": {}, "by": {}, "for": {}, "from": {}, "has": {}, "he": {},
	"in": {}, "is": {}, "it": {}, "its": {}, "of": {}, "on": {},
	"or": {}, "that": {}, "the": {}, "to": {}, "was": {}, "were": {},
	"will": {}, "with": {}, "this": {}, "but": {}, "they": {},
	"have": {}, "had": {}, "what": {}, "when": {}, "where": {},
	"who": {}, "which": {}, "their": {}, "if": {}, "each": {},
	"do": {}, "not": {}, "no": {}, "so": {}, "can": {},
	"i": {}, "me": {}, "my": {}, "we": {}, "our": {}, "you": {},
	"your": {}, "she": {}, "her": {}, "his": {}, "him": {},
	"them": {}, "there": {}, "then": {}, "than": {}, "been": {},
	"into": {}, "over": {}, "under": {}, "about": {}, "all": {},
}

// Analyze returns the ordered sequence of normalized terms for text.
// Duplicate terms are preserved in encounter order.
func Analyze(text string) []string {
	words := tokenize(text)
	terms := make([]string, 0, len(words))
	for _, word := range words {
		if _, isStop := stopWords[word]; isStop {
			continue
		}
		stemmed := stem(word)
		if stemmed == "" {
			continue
		}
		terms = append(terms, stemmed)
	}
	return terms
}

// AnalyzeWithPositions maps each normalized term to the ordered 1-based
// positions of its occurrences. Positions count every raw token, including
// stop-words that are subsequently dropped.
func AnalyzeWithPositions(text string) map[string][]int {
	words := tokenize(text)
	positions := make(map[string][]int)
	for i, word := range words {
		if _, isStop := stopWords[word]; isStop {
			continue
		}
		stemmed := stem(word)
		if stemmed == "" {
			continue
		}
		positions[stemmed] = append(positions[stemmed], i+1)
	}
	return positions
}

// tokenize lower-cases text and splits it into maximal runs of word
// characters (letters, digits, underscore).
func tokenize(text string) []string {
	text = strings.ToLower(text)
	return strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_'
	})
}

// stem applies a simple suffix-stripping stemmer to the given word.
func stem(word string) string {
	suffixes := []struct {
		suffix      string
		replacement string
		minLen      int
	}{
		{"ational", "ate", 2},
		{"tional", "tion", 2},
		{"encies", "ence", 2},
		{"ances", "ance", 2},
		{"ments", "ment", 2},
		{"izing", "ize", 2},
		{"ating", "ate", 2},
		{"iness", "y", 2},
		{"ously", "ous", 2},
		{"ively", "ive", 2},
		{"eness", "ene", 2},
		{"tion", "t", 3},
		{"sion", "s", 3},
		{"ying", "y", 2},
		{"ling", "l", 3},
		{"ies", "y", 2},
		{"ing", "", 3},
		{"ers", "er", 2},
		{"est", "", 3},
		{"ful", "", 3},
		{"ous", "", 3},
		{"ess", "", 3},
		{"ble", "", 3},
		{"ed", "", 3},
		{"er", "", 3},
		{"ly", "", 3},
		{"es", "", 3},
		{"ss", "ss", 2},
		{"s", "", 3},
	}
	for _, rule := range suffixes {
		if strings.HasSuffix(word, rule.suffix) {
			stemmed := word[:len(word)-len(rule.suffix)] + rule.replacement
			if len(stemmed) >= rule.minLen {
				return stemmed
			}
		}
	}
	return word
}
