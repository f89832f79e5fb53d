package logic

// Unify matches a goal fact against a candidate under the current bindings.
// On success it returns an extended copy of the bindings; the input set is
// never mutated, so callers can keep it for alternative branches. A false
// result is an ordinary non-match, not an error.
func Unify(goal, candidate Fact, b Bindings) (Bindings, bool) {
	if goal.predicate != candidate.predicate {
		return nil, false
	}
	if len(goal.args) != len(candidate.args) {
		return nil, false
	}

	ext := b.Clone()
	for i := range goal.args {
		ga := ext.Resolve(goal.args[i])
		ca := ext.Resolve(candidate.args[i])

		switch {
		case IsVariable(ga) && IsVariable(ca):
			// Two open variables: point the goal side at the candidate side.
			// Direction is arbitrary but must stay fixed for reproducibility.
			if ga != ca {
				ext[ga] = ca
			}
		case IsVariable(ga):
			ext[ga] = ca
		case IsVariable(ca):
			ext[ca] = ga
		default:
			if ga != ca {
				return nil, false
			}
		}
	}
	return ext, true
}
