// Package corpus provides document acquisition and tokenization for the
// retrieval engine: letters-only token extraction with stopword filtering and
// optional snowball stemming, HTML tag stripping, and corpus sources that can
// enumerate a document collection and reload single documents on demand.
package corpus

import (
	"strings"
	"unicode"

	"github.com/kljensen/snowball"

	"github.com/qquiche/ir/internal/vector"
)

var stopWords = map[string]struct{}{
	"a": {}, "about": {}, "above": {}, "after": {}, "again": {}, "all": {},
	"an": {}, "and": {}, "any": {}, "are": {}, "as": {}, "at": {},
	"be": {}, "because": {}, "been": {}, "before": {}, "being": {},
	"below": {}, "between": {}, "both": {}, "but": {}, "by": {},
	"can": {}, "did": {}, "do": {}, "does": {}, "doing": {}, "down": {},
	"during": {}, "each": {}, "few": {}, "for": {}, "from": {},
	"further": {}, "had": {}, "has": {}, "have": {}, "having": {},
	"he": {}, "her": {}, "here": {}, "hers": {}, "him": {}, "his": {},
	"how": {}, "i": {}, "if": {}, "in": {}, "into": {}, "is": {},
	"it": {}, "its": {}, "just": {}, "me": {}, "more": {}, "most": {},
	"my": {}, "no": {}, "nor": {}, "not": {}, "now": {}, "of": {},
	"off": {}, "on": {}, "once": {}, "only": {}, "or": {}, "other": {},
	"our": {}, "ours": {}, "out": {}, "over": {}, "own": {}, "same": {},
	"she": {}, "so": {}, "some": {}, "such": {}, "than": {}, "that": {},
	"the": {}, "their": {}, "theirs": {}, "them": {}, "then": {},
	"there": {}, "these": {}, "they": {}, "this": {}, "those": {},
	"through": {}, "to": {}, "too": {}, "under": {}, "until": {},
	"up": {}, "very": {}, "was": {}, "we": {}, "were": {}, "what": {},
	"when": {}, "where": {}, "which": {}, "while": {}, "who": {},
	"whom": {}, "why": {}, "will": {}, "with": {}, "you": {},
	"your": {}, "yours": {},
}

// DocType selects how raw document bytes are turned into text.
type DocType int

const (
	// TypeText treats documents as plain text.
	TypeText DocType = iota
	// TypeHTML strips markup before tokenization.
	TypeHTML
)

// Config holds the tokenization settings shared by the bag-of-words and
// positional pipelines. The two pipelines must agree on everything except
// stopword retention, which the positional pipeline controls per call.
type Config struct {
	DocType DocType
	Stem    bool
}

// Terms tokenizes text with stopwords removed. Tokens are lowercased,
// letters-only, and stemmed when cfg.Stem is set.
func Terms(text string, cfg Config) []string {
	return tokenize(text, cfg, false)
}

// PositionalTerms tokenizes text with stopwords retained, so that token
// positions reflect true distances in the original text. The letters-only
// filter and stemming configuration match Terms.
func PositionalTerms(text string, cfg Config) []string {
	return tokenize(text, cfg, true)
}

// TermVector returns the term-frequency vector of text under cfg: each
// surviving token mapped to its raw occurrence count.
func TermVector(text string, cfg Config) vector.TermVector {
	v := vector.New()
	for _, tok := range Terms(text, cfg) {
		v.Increment(tok, 1)
	}
	return v
}

// OrderedUniqueTerms returns the unique tokens of text in first-occurrence
// order, used to capture query term order for proximity scoring.
func OrderedUniqueTerms(text string, cfg Config) []string {
	seen := make(map[string]struct{})
	order := make([]string, 0)
	for _, tok := range Terms(text, cfg) {
		if _, ok := seen[tok]; ok {
			continue
		}
		seen[tok] = struct{}{}
		order = append(order, tok)
	}
	return order
}

func tokenize(text string, cfg Config, retainStopwords bool) []string {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r)
	})
	tokens := make([]string, 0, len(words))
	for _, word := range words {
		if !retainStopwords {
			if _, isStop := stopWords[word]; isStop {
				continue
			}
		}
		if cfg.Stem {
			stemmed, err := snowball.Stem(word, "english", false)
			if err == nil && stemmed != "" {
				word = stemmed
			}
		}
		tokens = append(tokens, word)
	}
	return tokens
}
