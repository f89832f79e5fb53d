package chain

import (
	"fmt"
	"io"
	"strings"

	"github.com/cognicore/horn/pkg/horn/kb"
	"github.com/cognicore/horn/pkg/horn/logic"
)

// DefaultMaxDepth bounds the proof recursion when Options.MaxDepth is unset
const DefaultMaxDepth = 50

// Options configures a Chainer
type Options struct {
	// MaxDepth is the hard recursion ceiling; zero or negative selects
	// DefaultMaxDepth. Exhausting it is a plain proof failure, not an error.
	MaxDepth int

	// Trace receives the human-readable search narration when non-nil.
	// Line order and indentation are contractual: consumers parse them.
	Trace io.Writer
}

// Chainer proves goals against a knowledge base by backward chaining:
// direct fact match plus recursive rule expansion, with cycle detection
// and depth limiting. The search is synchronous and CPU-bound; finish
// populating the knowledge base before proving.
type Chainer struct {
	base     *kb.KnowledgeBase
	maxDepth int
	trace    io.Writer

	// fresh-name counter for rule applications, owned per instance so
	// parallel chainers never share state
	renamer logic.Renamer
}

// New wraps a knowledge base in a backward chainer
func New(base *kb.KnowledgeBase, opts Options) *Chainer {
	maxDepth := opts.MaxDepth
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	return &Chainer{base: base, maxDepth: maxDepth, trace: opts.Trace}
}

// Prove reports whether at least one binding set satisfies the goal
func (c *Chainer) Prove(goal logic.Fact) bool {
	raw := c.chainToGoal(goal, nil, 0, make(map[string]bool))
	ok := len(raw) > 0
	c.emitResult(ok)
	return ok
}

// ProveWithBindings returns every distinct solution for the goal, each
// restricted to the goal's own variables with binding chains resolved
func (c *Chainer) ProveWithBindings(goal logic.Fact) []logic.Bindings {
	raw := c.chainToGoal(goal, nil, 0, make(map[string]bool))
	c.emitResult(len(raw) > 0)
	return ExtractQueryBindings(goal, raw)
}

// chainToGoal is the recursive search. bindings is never mutated; visited
// holds the resolved signatures on the active proof path and is restored
// before returning, so sibling branches can prove the same sub-goal again.
func (c *Chainer) chainToGoal(goal logic.Fact, bindings logic.Bindings, depth int, visited map[string]bool) []logic.Bindings {
	resolved := goal.Substitute(bindings)
	c.emit(depth, "Goal: %s", resolved)

	if depth > c.maxDepth {
		c.emit(depth+1, "✗ Max depth reached: %s", resolved)
		return nil
	}

	sig := signature(resolved)
	if visited[sig] {
		c.emit(depth+1, "✗ Cycle detected: %s", resolved)
		return nil
	}
	visited[sig] = true
	defer delete(visited, sig)

	var results []logic.Bindings

	for _, fact := range c.base.FactsFor(goal.Predicate()) {
		if ext, ok := logic.Unify(goal, fact, bindings); ok {
			c.emit(depth+1, "✓ Matched fact: %s", fact)
			results = append(results, ext)
		}
	}

	for _, rule := range c.base.RulesFor(goal.Predicate()) {
		renamed := c.renamer.Rename(rule)
		ext, ok := logic.Unify(goal, renamed.Conclusion(), bindings)
		if !ok {
			continue
		}
		// The narration shows the rule as stored; renamed variables stay internal
		c.emit(depth+1, "Trying rule: %s", rule)

		solutions := c.provePremises(renamed.Premises(), ext, depth+1, visited)
		if len(solutions) > 0 {
			c.emit(depth+1, "✓ Rule succeeded: %s", rule)
			results = append(results, solutions...)
		}
	}

	return results
}

// provePremises proves a conjunction in order, threading every binding set
// produced by premise i into premise i+1. Each premise may have several
// solutions, so this is a depth-first cross-product, not a single pipeline.
func (c *Chainer) provePremises(premises []logic.Fact, bindings logic.Bindings, depth int, visited map[string]bool) []logic.Bindings {
	if len(premises) == 0 {
		return []logic.Bindings{bindings}
	}

	first := c.chainToGoal(premises[0], bindings, depth, visited)
	if len(first) == 0 {
		return nil
	}

	var all []logic.Bindings
	for _, b := range first {
		all = append(all, c.provePremises(premises[1:], b, depth, visited)...)
	}
	return all
}

func (c *Chainer) emit(depth int, format string, args ...interface{}) {
	if c.trace == nil {
		return
	}
	fmt.Fprintf(c.trace, "%s%s\n", strings.Repeat("  ", depth), fmt.Sprintf(format, args...))
}

func (c *Chainer) emitResult(ok bool) {
	if c.trace == nil {
		return
	}
	if ok {
		fmt.Fprintln(c.trace, "Result: True")
	} else {
		fmt.Fprintln(c.trace, "Result: False")
	}
}

// signature keys a resolved goal for cycle detection
func signature(resolved logic.Fact) string {
	var b strings.Builder
	b.WriteString(resolved.Predicate())
	for i := 0; i < resolved.Arity(); i++ {
		b.WriteByte(0x1f)
		b.WriteString(resolved.Arg(i))
	}
	return b.String()
}
