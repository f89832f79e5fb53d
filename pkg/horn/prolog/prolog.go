package prolog

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/cognicore/horn/pkg/horn/logic"
)

// StatementKind distinguishes the two clause forms a program may contain.
type StatementKind int

const (
	KindFact StatementKind = iota
	KindRule
)

// Statement is one parsed clause. Exactly one of Fact or Rule is set,
// according to Kind. Text holds the canonical rendering (post variable
// normalization, no trailing period), which doubles as the dedup identity
// when statements are stored in a corpus.
type Statement struct {
	Kind StatementKind
	Fact logic.Fact
	Rule logic.Rule
	Text string
}

// ParseError describes a statement that could not be parsed. Line is
// 1-based and refers to where the statement started; it is zero when the
// statement was parsed standalone rather than from program text.
type ParseError struct {
	Line int
	Text string
	Msg  string
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("prolog: line %d: %s: %q", e.Line, e.Msg, e.Text)
	}
	return fmt.Sprintf("prolog: %s: %q", e.Msg, e.Text)
}

// ParseFact parses a single term like "father(john, mary)" or a bare
// zero-argument predicate like "sunny". Uppercase and underscore-led
// arguments are normalized to the engine's ?-sigil variable convention.
func ParseFact(s string) (logic.Fact, error) {
	text := strings.TrimSuffix(strings.TrimSpace(s), ".")
	if text == "" {
		return logic.Fact{}, &ParseError{Text: s, Msg: "empty statement"}
	}

	open := strings.IndexByte(text, '(')
	if open < 0 {
		if !isWord(text) {
			return logic.Fact{}, &ParseError{Text: text, Msg: "malformed predicate"}
		}
		return logic.NewFact(text)
	}

	predicate := strings.TrimSpace(text[:open])
	if !isWord(predicate) {
		return logic.Fact{}, &ParseError{Text: text, Msg: "malformed predicate"}
	}
	if !strings.HasSuffix(text, ")") {
		return logic.Fact{}, &ParseError{Text: text, Msg: "missing closing parenthesis"}
	}

	inner := text[open+1 : len(text)-1]
	if strings.TrimSpace(inner) == "" {
		return logic.NewFact(predicate)
	}

	parts, err := splitTopLevel(inner)
	if err != nil {
		return logic.Fact{}, &ParseError{Text: text, Msg: err.Error()}
	}

	args := make([]string, 0, len(parts))
	for _, p := range parts {
		if p == "" {
			return logic.Fact{}, &ParseError{Text: text, Msg: "empty argument"}
		}
		args = append(args, normalizeTerm(p))
	}
	return logic.NewFact(predicate, args...)
}

// ParseStatement parses one clause with an optional trailing period. A
// clause containing ":-" yields a rule, anything else a fact.
func ParseStatement(s string) (Statement, error) {
	text := strings.TrimSuffix(strings.TrimSpace(s), ".")
	if text == "" {
		return Statement{}, &ParseError{Text: s, Msg: "empty statement"}
	}

	if !strings.Contains(text, ":-") {
		f, err := ParseFact(text)
		if err != nil {
			return Statement{}, err
		}
		return Statement{Kind: KindFact, Fact: f, Text: f.String()}, nil
	}

	parts := strings.Split(text, ":-")
	if len(parts) != 2 {
		return Statement{}, &ParseError{Text: text, Msg: "multiple \":-\" separators"}
	}

	conclusion, err := ParseFact(parts[0])
	if err != nil {
		return Statement{}, err
	}

	premiseTexts, err := splitTopLevel(parts[1])
	if err != nil {
		return Statement{}, &ParseError{Text: text, Msg: err.Error()}
	}

	premises := make([]logic.Fact, 0, len(premiseTexts))
	for _, pt := range premiseTexts {
		// Disequality and underscore-led premises are dropped rather than
		// failing the clause; the engine cannot evaluate them and
		// generated knowledge bases occasionally contain them.
		if strings.Contains(pt, `\=`) || strings.HasPrefix(pt, "_") {
			continue
		}
		premise, err := ParseFact(pt)
		if err != nil {
			return Statement{}, err
		}
		premises = append(premises, premise)
	}
	if len(premises) == 0 {
		return Statement{}, &ParseError{Text: text, Msg: "rule has no evaluable premises"}
	}

	r, err := logic.NewRule(conclusion, premises...)
	if err != nil {
		return Statement{}, &ParseError{Text: text, Msg: err.Error()}
	}
	return Statement{Kind: KindRule, Rule: r, Text: r.String()}, nil
}

// splitTopLevel splits on commas outside parentheses and trims each part.
func splitTopLevel(s string) ([]string, error) {
	var parts []string
	var current strings.Builder
	depth := 0

	for _, r := range s {
		switch {
		case r == '(':
			depth++
			current.WriteRune(r)
		case r == ')':
			depth--
			if depth < 0 {
				return nil, fmt.Errorf("unbalanced parentheses")
			}
			current.WriteRune(r)
		case r == ',' && depth == 0:
			parts = append(parts, strings.TrimSpace(current.String()))
			current.Reset()
		default:
			current.WriteRune(r)
		}
	}
	if depth != 0 {
		return nil, fmt.Errorf("unbalanced parentheses")
	}
	if trimmed := strings.TrimSpace(current.String()); trimmed != "" {
		parts = append(parts, trimmed)
	}
	return parts, nil
}

// normalizeTerm maps Prolog variable spelling to the ?-sigil convention:
// "X" → "?X", "_Rest" → "?_Rest". Sigiled terms pass through, anything
// else is a constant.
func normalizeTerm(term string) string {
	first, _ := utf8.DecodeRuneInString(term)
	switch {
	case first == '?':
		return term
	case first == '_' || unicode.IsUpper(first):
		return "?" + term
	default:
		return term
	}
}

func isWord(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' {
			return false
		}
	}
	return true
}
