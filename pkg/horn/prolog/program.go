package prolog

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/cognicore/horn/pkg/horn/kb"
	"github.com/cognicore/horn/pkg/horn/logic"
)

// Program is an ordered collection of parsed statements.
type Program struct {
	Statements []Statement
}

// ParseProgram parses full program text. Comments begin at "%" and run to
// end of line. Statements may span lines and end at "."; end of input
// also terminates the final statement, so a missing last period is
// tolerated.
func ParseProgram(src string) (*Program, error) {
	prog := &Program{}
	var current strings.Builder
	startLine := 0

	scanner := bufio.NewScanner(strings.NewReader(src))
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if i := strings.IndexByte(line, '%'); i >= 0 {
			line = line[:i]
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if current.Len() == 0 {
			startLine = lineNo
		} else {
			current.WriteByte(' ')
		}
		current.WriteString(line)

		if strings.HasSuffix(line, ".") {
			if err := prog.append(current.String(), startLine); err != nil {
				return nil, err
			}
			current.Reset()
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("prolog: read program: %w", err)
	}
	if current.Len() > 0 {
		if err := prog.append(current.String(), startLine); err != nil {
			return nil, err
		}
	}
	return prog, nil
}

func (p *Program) append(text string, line int) error {
	st, err := ParseStatement(text)
	if err != nil {
		var pe *ParseError
		if errors.As(err, &pe) {
			pe.Line = line
		}
		return err
	}
	p.Statements = append(p.Statements, st)
	return nil
}

// Facts returns the fact statements in program order.
func (p *Program) Facts() []logic.Fact {
	var facts []logic.Fact
	for _, st := range p.Statements {
		if st.Kind == KindFact {
			facts = append(facts, st.Fact)
		}
	}
	return facts
}

// Rules returns the rule statements in program order.
func (p *Program) Rules() []logic.Rule {
	var rules []logic.Rule
	for _, st := range p.Statements {
		if st.Kind == KindRule {
			rules = append(rules, st.Rule)
		}
	}
	return rules
}

// Load adds every statement to the knowledge base in program order.
func (p *Program) Load(k *kb.KnowledgeBase) error {
	for _, st := range p.Statements {
		var err error
		switch st.Kind {
		case KindFact:
			err = k.AddFact(st.Fact)
		case KindRule:
			err = k.AddRule(st.Rule)
		}
		if err != nil {
			return fmt.Errorf("prolog: load %q: %w", st.Text, err)
		}
	}
	return nil
}
