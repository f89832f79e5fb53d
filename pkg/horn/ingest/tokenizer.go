package ingest

import (
	"strings"
	"unicode"
)

// Tokenizer handles text tokenization and normalization for retrieval.
type Tokenizer struct {
	stopwords map[string]struct{}
	lexicon   map[string]string // Optional: variant -> canonical
}

// NewTokenizer creates a new tokenizer with the given stopword list.
func NewTokenizer(stopwords []string) *Tokenizer {
	stops := make(map[string]struct{}, len(stopwords))
	for _, w := range stopwords {
		stops[strings.ToLower(w)] = struct{}{}
	}
	return &Tokenizer{stopwords: stops}
}

// WithLexicon installs a synonym map applied per token, so question
// vocabulary meets predicate vocabulary ("dad" → "father"). Returns the
// tokenizer for chaining.
func (t *Tokenizer) WithLexicon(lex map[string]string) *Tokenizer {
	norm := make(map[string]string, len(lex))
	for variant, canonical := range lex {
		norm[strings.ToLower(variant)] = strings.ToLower(canonical)
	}
	t.lexicon = norm
	return t
}

// Tokenize splits text into lowercase tokens, keeping underscores so
// predicate names survive intact, then drops stopwords and single-char
// tokens. Lexicon normalization is applied per token when configured.
func (t *Tokenizer) Tokenize(text string) []string {
	var tokens []string
	var current strings.Builder

	flush := func() {
		if current.Len() == 0 {
			return
		}
		if word := t.processToken(current.String()); word != "" {
			tokens = append(tokens, word)
		}
		current.Reset()
	}

	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsNumber(r) || r == '_' {
			current.WriteRune(unicode.ToLower(r))
		} else {
			flush()
		}
	}
	flush()

	return tokens
}

// processToken applies length filtering, lexicon normalization, and
// stopword filtering.
func (t *Tokenizer) processToken(token string) string {
	word := strings.Trim(token, "_")
	if len(word) <= 1 {
		return ""
	}
	if t.lexicon != nil {
		if canonical, ok := t.lexicon[word]; ok {
			word = canonical
		}
	}
	if _, stop := t.stopwords[word]; stop {
		return ""
	}
	return word
}
