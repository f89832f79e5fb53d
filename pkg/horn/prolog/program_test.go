package prolog

import (
	"errors"
	"strings"
	"testing"

	"github.com/cognicore/horn/pkg/horn/kb"
)

const parkKB = `
% Park staff knowledge base.
park_worker(mordecai).
park_worker(rigby).
boss(benson).

reports_to(mordecai, benson).
reports_to(rigby, benson).

in_charge_of(Boss, Worker) :-
    reports_to(Worker, Boss).

coworkers(X, Y) :-
    reports_to(X, B),
    reports_to(Y, B),
    X \= Y.
`

func TestParseProgram(t *testing.T) {
	prog, err := ParseProgram(parkKB)
	if err != nil {
		t.Fatalf("ParseProgram failed: %v", err)
	}

	if got := len(prog.Facts()); got != 5 {
		t.Errorf("Expected 5 facts, got %d", got)
	}
	if got := len(prog.Rules()); got != 2 {
		t.Errorf("Expected 2 rules, got %d", got)
	}

	// Multi-line rule reassembled and normalized.
	rules := prog.Rules()
	if rules[0].String() != "in_charge_of(?Boss, ?Worker) :- reports_to(?Worker, ?Boss)" {
		t.Errorf("Unexpected rule: %s", rules[0])
	}
	// The disequality premise of coworkers/2 is dropped.
	if got := len(rules[1].Premises()); got != 2 {
		t.Errorf("Expected 2 premises after dropping the disequality, got %d", got)
	}
}

func TestParseProgramPreservesOrder(t *testing.T) {
	prog, err := ParseProgram("b(one).\na(two).\nb(three).")
	if err != nil {
		t.Fatalf("ParseProgram failed: %v", err)
	}
	var got []string
	for _, st := range prog.Statements {
		got = append(got, st.Text)
	}
	want := []string{"b(one)", "a(two)", "b(three)"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Expected statement order %v, got %v", want, got)
		}
	}
}

func TestParseProgramInlineComments(t *testing.T) {
	prog, err := ParseProgram("father(john, mary). % the only fact\n")
	if err != nil {
		t.Fatalf("ParseProgram failed: %v", err)
	}
	if len(prog.Statements) != 1 {
		t.Fatalf("Expected 1 statement, got %d", len(prog.Statements))
	}
}

func TestParseProgramMissingFinalPeriod(t *testing.T) {
	prog, err := ParseProgram("father(john, mary).\nfather(john, tom)")
	if err != nil {
		t.Fatalf("ParseProgram failed: %v", err)
	}
	if len(prog.Statements) != 2 {
		t.Errorf("Expected the unterminated final statement to parse, got %d statements", len(prog.Statements))
	}
}

func TestParseProgramReportsLine(t *testing.T) {
	src := "father(john, mary).\n\n% comment\nbroken(one, two\n"
	_, err := ParseProgram(src)
	if err == nil {
		t.Fatal("Expected a parse error")
	}
	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("Expected *ParseError, got %T", err)
	}
	if pe.Line != 4 {
		t.Errorf("Expected the error to point at line 4, got %d", pe.Line)
	}
	if !strings.Contains(pe.Text, "broken") {
		t.Errorf("Expected the offending statement in the error, got %q", pe.Text)
	}
}

func TestProgramLoad(t *testing.T) {
	prog, err := ParseProgram(parkKB)
	if err != nil {
		t.Fatalf("ParseProgram failed: %v", err)
	}

	k := kb.New()
	if err := prog.Load(k); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if k.FactCount() != 5 || k.RuleCount() != 2 {
		t.Errorf("Expected 5 facts and 2 rules in the KB, got %d and %d", k.FactCount(), k.RuleCount())
	}
	if got := len(k.FactsFor("park_worker")); got != 2 {
		t.Errorf("Expected 2 park_worker facts, got %d", got)
	}
}

func TestParseProgramEmpty(t *testing.T) {
	prog, err := ParseProgram("% nothing but comments\n\n   \n")
	if err != nil {
		t.Fatalf("ParseProgram failed: %v", err)
	}
	if len(prog.Statements) != 0 {
		t.Errorf("Expected no statements, got %d", len(prog.Statements))
	}
}
