package corpus

import (
	"fmt"
	"strings"

	"github.com/cognicore/horn/pkg/horn/logic"
	"github.com/cognicore/horn/pkg/horn/prolog"
)

// Describer renders statements as natural-language sentences for
// indexing, so question vocabulary can meet statement vocabulary.
// Per-predicate templates override the generic forms; "{0}", "{1}", ...
// are replaced with the statement's arguments.
type Describer struct {
	Templates map[string]string
}

// NewDescriber creates a describer with optional per-predicate templates.
func NewDescriber(templates map[string]string) *Describer {
	return &Describer{Templates: templates}
}

// Describe renders one statement. Facts become simple sentences
// ("john is the father of mary"); rules render the conclusion "when" the
// premises ("X is the grandparent of Z when X is the parent of Y and Y
// is the parent of Z").
func (d *Describer) Describe(st prolog.Statement) string {
	if st.Kind == prolog.KindRule {
		return d.describeRule(st.Rule)
	}
	return d.describeFact(st.Fact)
}

func (d *Describer) describeFact(f logic.Fact) string {
	args := make([]string, f.Arity())
	for i := range args {
		args[i] = humanizeTerm(f.Arg(i))
	}

	if tmpl, ok := d.Templates[f.Predicate()]; ok {
		return expandTemplate(tmpl, args)
	}

	pred := strings.ReplaceAll(f.Predicate(), "_", " ")
	switch len(args) {
	case 0:
		return pred
	case 1:
		return fmt.Sprintf("%s is a %s", args[0], pred)
	case 2:
		return fmt.Sprintf("%s is the %s of %s", args[0], pred, args[1])
	default:
		return pred + " " + strings.Join(args, " ")
	}
}

func (d *Describer) describeRule(r logic.Rule) string {
	parts := make([]string, 0, len(r.Premises()))
	for _, p := range r.Premises() {
		parts = append(parts, d.describeFact(p))
	}
	return fmt.Sprintf("%s when %s", d.describeFact(r.Conclusion()), strings.Join(parts, " and "))
}

// humanizeTerm strips the variable sigil so rule descriptions read as
// prose ("?X" → "X").
func humanizeTerm(term string) string {
	return strings.TrimPrefix(term, "?")
}

func expandTemplate(tmpl string, args []string) string {
	out := tmpl
	for i, arg := range args {
		out = strings.ReplaceAll(out, fmt.Sprintf("{%d}", i), arg)
	}
	return out
}
