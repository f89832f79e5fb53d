package chain

import (
	"sort"
	"strings"

	"github.com/cognicore/horn/pkg/horn/logic"
)

// ExtractQueryBindings cleans raw search solutions for a caller: only
// variables that appear literally in the goal survive (rule-local renamed
// variables are dropped), each kept entry is resolved through its full
// chain, and structurally equal results collapse to the first occurrence.
// A chain ending in an unbound variable keeps that variable's name as the
// value (an open binding). A provable goal with nothing to report yields
// the empty binding map, which still counts as one solution.
func ExtractQueryBindings(goal logic.Fact, raw []logic.Bindings) []logic.Bindings {
	queryVars := goal.Variables()

	var out []logic.Bindings
	seen := make(map[string]bool)
	for _, b := range raw {
		clean := make(logic.Bindings, len(queryVars))
		for _, v := range queryVars {
			if _, ok := b[v]; ok {
				clean[v] = b.Resolve(v)
			}
		}
		key := canonical(clean)
		if !seen[key] {
			seen[key] = true
			out = append(out, clean)
		}
	}
	return out
}

func canonical(b logic.Bindings) string {
	if len(b) == 0 {
		return ""
	}
	keys := make([]string, 0, len(b))
	for k := range b {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	for _, k := range keys {
		sb.WriteString(k)
		sb.WriteByte('=')
		sb.WriteString(b[k])
		sb.WriteByte(0x1f)
	}
	return sb.String()
}
