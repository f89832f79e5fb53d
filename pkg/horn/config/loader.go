package config

import (
	"fmt"

	"github.com/cognicore/horn/pkg/horn/ingest"
)

// Loader loads the tokenizer-facing configuration files
type Loader struct {
	StoplistPath string
	LexiconPath  string
}

// Components holds loaded configuration components shared by the CLIs
// and the facade.
type Components struct {
	Tokenizer *ingest.Tokenizer
	Templates map[string]string
}

// Load reads the referenced files and returns initialized components.
// Empty paths fall back to empty defaults.
func (l *Loader) Load() (*Components, error) {
	comp := &Components{}

	var terms []string
	if l.StoplistPath != "" {
		stoplist, err := LoadStoplist(l.StoplistPath)
		if err != nil {
			return nil, fmt.Errorf("load stoplist: %w", err)
		}
		terms = stoplist.Terms
	}
	comp.Tokenizer = ingest.NewTokenizer(terms)

	if l.LexiconPath != "" {
		lex, err := LoadLexicon(l.LexiconPath)
		if err != nil {
			return nil, fmt.Errorf("load lexicon: %w", err)
		}
		comp.Tokenizer.WithLexicon(lex.Synonyms)
		comp.Templates = lex.Templates
	}

	return comp, nil
}
