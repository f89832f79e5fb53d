package kb

import (
	"strings"

	"github.com/cognicore/horn/pkg/horn/logic"
)

// KnowledgeBase holds the facts and rules for one reasoning session.
// Mutation is append-only; build it fully before starting a proof search.
// Iteration order is insertion order, which is observable: it decides which
// solution is found first and the exact order of trace lines.
type KnowledgeBase struct {
	facts []logic.Fact
	rules []logic.Rule

	// predicate -> candidates in insertion order, so the chainer never
	// scans the whole base per goal
	factsByPred map[string][]logic.Fact
	rulesByPred map[string][]logic.Rule
}

// New creates an empty knowledge base
func New() *KnowledgeBase {
	return &KnowledgeBase{
		factsByPred: make(map[string][]logic.Fact),
		rulesByPred: make(map[string][]logic.Rule),
	}
}

// AddFact appends a fact. The only validation is structural
// well-formedness: a fact with an empty predicate is rejected.
func (k *KnowledgeBase) AddFact(f logic.Fact) error {
	if f.Predicate() == "" {
		return logic.ErrEmptyPredicate
	}
	k.facts = append(k.facts, f)
	k.factsByPred[f.Predicate()] = append(k.factsByPred[f.Predicate()], f)
	return nil
}

// AddRule appends a rule, indexed by its conclusion predicate
func (k *KnowledgeBase) AddRule(r logic.Rule) error {
	pred := r.Conclusion().Predicate()
	if pred == "" {
		return logic.ErrEmptyPredicate
	}
	if len(r.Premises()) == 0 {
		return logic.ErrNoPremises
	}
	k.rules = append(k.rules, r)
	k.rulesByPred[pred] = append(k.rulesByPred[pred], r)
	return nil
}

// FactsFor returns the facts under a predicate in insertion order
func (k *KnowledgeBase) FactsFor(predicate string) []logic.Fact {
	return k.factsByPred[predicate]
}

// RulesFor returns the rules whose conclusion uses a predicate, in
// insertion order
func (k *KnowledgeBase) RulesFor(predicate string) []logic.Rule {
	return k.rulesByPred[predicate]
}

// Facts returns every fact in insertion order
func (k *KnowledgeBase) Facts() []logic.Fact { return k.facts }

// Rules returns every rule in insertion order
func (k *KnowledgeBase) Rules() []logic.Rule { return k.rules }

// FactCount returns the number of facts
func (k *KnowledgeBase) FactCount() int { return len(k.facts) }

// RuleCount returns the number of rules
func (k *KnowledgeBase) RuleCount() int { return len(k.rules) }

// Predicates returns the distinct predicate names of facts and rule
// conclusions, in first-appearance order
func (k *KnowledgeBase) Predicates() []string {
	var out []string
	seen := make(map[string]bool)
	for _, f := range k.facts {
		if !seen[f.Predicate()] {
			seen[f.Predicate()] = true
			out = append(out, f.Predicate())
		}
	}
	for _, r := range k.rules {
		pred := r.Conclusion().Predicate()
		if !seen[pred] {
			seen[pred] = true
			out = append(out, pred)
		}
	}
	return out
}

func (k *KnowledgeBase) String() string {
	var b strings.Builder
	b.WriteString("Facts:\n")
	for _, f := range k.facts {
		b.WriteString("  ")
		b.WriteString(f.String())
		b.WriteString("\n")
	}
	b.WriteString("Rules:\n")
	for _, r := range k.rules {
		b.WriteString("  ")
		b.WriteString(r.String())
		b.WriteString("\n")
	}
	return b.String()
}
