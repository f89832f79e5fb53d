package logic

import "strconv"

// Renamer rewrites rule variables with fresh names before each rule
// application, so recursive or sibling uses of the same rule can never
// collide on a variable. The counter is owned by whoever embeds the
// Renamer (normally one chainer instance), not shared process state.
// The zero value is ready to use.
type Renamer struct {
	counter uint64
}

// Rename returns a copy of the rule with every variable in the conclusion
// and premises given a fresh _N suffix (?X becomes ?X_17)
func (rn *Renamer) Rename(r Rule) Rule {
	rn.counter++
	suffix := "_" + strconv.FormatUint(rn.counter, 10)

	renaming := make(map[string]string)
	collect := func(f Fact) {
		for _, arg := range f.args {
			if IsVariable(arg) {
				renaming[arg] = arg + suffix
			}
		}
	}
	collect(r.conclusion)
	for _, p := range r.premises {
		collect(p)
	}
	if len(renaming) == 0 {
		return r
	}

	rebuild := func(f Fact) Fact {
		args := make([]string, len(f.args))
		for i, arg := range f.args {
			if fresh, ok := renaming[arg]; ok {
				args[i] = fresh
			} else {
				args[i] = arg
			}
		}
		return Fact{predicate: f.predicate, args: args}
	}

	out := Rule{conclusion: rebuild(r.conclusion), premises: make([]Fact, len(r.premises))}
	for i, p := range r.premises {
		out.premises[i] = rebuild(p)
	}
	return out
}
