package logic

import (
	"errors"
	"fmt"
	"strings"
)

// Construction-time errors. Proof failures are never errors.
var (
	ErrEmptyPredicate = errors.New("logic: predicate is empty")
	ErrNoPremises     = errors.New("logic: rule has no premises")
)

// IsVariable reports whether a term is a variable (leading '?' sigil)
func IsVariable(term string) bool {
	return strings.HasPrefix(term, "?")
}

// Fact is a predicate applied to an ordered list of arguments.
// Arguments starting with '?' are variables, everything else is a constant.
// Facts are immutable once constructed.
type Fact struct {
	predicate string
	args      []string
}

// NewFact builds a fact, rejecting empty or whitespace-only predicates
func NewFact(predicate string, args ...string) (Fact, error) {
	if strings.TrimSpace(predicate) == "" {
		return Fact{}, ErrEmptyPredicate
	}
	f := Fact{predicate: predicate}
	if len(args) > 0 {
		f.args = make([]string, len(args))
		copy(f.args, args)
	}
	return f, nil
}

// MustFact is NewFact that panics on error, for literals in tests and examples
func MustFact(predicate string, args ...string) Fact {
	f, err := NewFact(predicate, args...)
	if err != nil {
		panic(err)
	}
	return f
}

// Predicate returns the predicate name
func (f Fact) Predicate() string { return f.predicate }

// Arity returns the number of arguments
func (f Fact) Arity() int { return len(f.args) }

// Arg returns the i-th argument
func (f Fact) Arg(i int) string { return f.args[i] }

// Args returns a copy of the argument list
func (f Fact) Args() []string {
	out := make([]string, len(f.args))
	copy(out, f.args)
	return out
}

// Variables returns the distinct variable arguments in first-appearance order
func (f Fact) Variables() []string {
	var out []string
	seen := make(map[string]bool)
	for _, arg := range f.args {
		if IsVariable(arg) && !seen[arg] {
			seen[arg] = true
			out = append(out, arg)
		}
	}
	return out
}

// Equal reports structural equality: predicate, arity, pairwise arguments.
// Facts have no identity beyond their structure.
func (f Fact) Equal(other Fact) bool {
	if f.predicate != other.predicate || len(f.args) != len(other.args) {
		return false
	}
	for i, arg := range f.args {
		if arg != other.args[i] {
			return false
		}
	}
	return true
}

// Substitute returns a copy of the fact with every argument resolved
// through the bindings to its current value
func (f Fact) Substitute(b Bindings) Fact {
	if len(f.args) == 0 || len(b) == 0 {
		return f
	}
	args := make([]string, len(f.args))
	for i, arg := range f.args {
		args[i] = b.Resolve(arg)
	}
	return Fact{predicate: f.predicate, args: args}
}

func (f Fact) String() string {
	if len(f.args) == 0 {
		return f.predicate
	}
	return fmt.Sprintf("%s(%s)", f.predicate, strings.Join(f.args, ", "))
}

// Rule is an implication: the conclusion holds when every premise holds.
// Immutable once constructed. Conclusion variables that no premise can bind
// are legal and simply stay unbound on success.
type Rule struct {
	conclusion Fact
	premises   []Fact
}

// NewRule builds a rule, rejecting an empty premise list and malformed facts
func NewRule(conclusion Fact, premises ...Fact) (Rule, error) {
	if conclusion.predicate == "" {
		return Rule{}, ErrEmptyPredicate
	}
	if len(premises) == 0 {
		return Rule{}, ErrNoPremises
	}
	for _, p := range premises {
		if p.predicate == "" {
			return Rule{}, ErrEmptyPredicate
		}
	}
	r := Rule{conclusion: conclusion, premises: make([]Fact, len(premises))}
	copy(r.premises, premises)
	return r, nil
}

// MustRule is NewRule that panics on error
func MustRule(conclusion Fact, premises ...Fact) Rule {
	r, err := NewRule(conclusion, premises...)
	if err != nil {
		panic(err)
	}
	return r
}

// Conclusion returns the rule head
func (r Rule) Conclusion() Fact { return r.conclusion }

// Premises returns a copy of the premise list
func (r Rule) Premises() []Fact {
	out := make([]Fact, len(r.premises))
	copy(out, r.premises)
	return out
}

func (r Rule) String() string {
	if len(r.premises) == 0 {
		return r.conclusion.String()
	}
	parts := make([]string, len(r.premises))
	for i, p := range r.premises {
		parts[i] = p.String()
	}
	return fmt.Sprintf("%s :- %s", r.conclusion, strings.Join(parts, ", "))
}

// Bindings maps variable names to values. A value is either a constant or
// another variable name, so chains like ?X -> ?Y -> tom are expected.
// Binding sets are extended copy-on-write: Unify clones before writing, so
// sibling search branches never observe each other's bindings.
type Bindings map[string]string

// Resolve follows the binding chain from term to its fixed point.
// Constants and unbound variables resolve to themselves.
func (b Bindings) Resolve(term string) string {
	value := term
	seen := map[string]bool{term: true}
	for {
		next, ok := b[value]
		if !ok || next == value || seen[next] {
			return value
		}
		seen[next] = true
		value = next
	}
}

// Clone returns an independent copy; cloning nil yields an empty set
func (b Bindings) Clone() Bindings {
	out := make(Bindings, len(b)+1)
	for k, v := range b {
		out[k] = v
	}
	return out
}

// Equal reports whether two binding sets hold exactly the same entries
func (b Bindings) Equal(other Bindings) bool {
	if len(b) != len(other) {
		return false
	}
	for k, v := range b {
		ov, ok := other[k]
		if !ok || ov != v {
			return false
		}
	}
	return true
}
