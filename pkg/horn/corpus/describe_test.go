package corpus

import (
	"testing"

	"github.com/cognicore/horn/pkg/horn/prolog"
)

func describe(t *testing.T, d *Describer, statement string) string {
	t.Helper()
	st, err := prolog.ParseStatement(statement)
	if err != nil {
		t.Fatalf("ParseStatement(%q) failed: %v", statement, err)
	}
	return d.Describe(st)
}

func TestDescribeBinaryFact(t *testing.T) {
	d := NewDescriber(nil)

	got := describe(t, d, "father(john, mary).")
	if got != "john is the father of mary" {
		t.Errorf("Unexpected description: %q", got)
	}
}

func TestDescribeUnaryFact(t *testing.T) {
	d := NewDescriber(nil)

	got := describe(t, d, "park_worker(mordecai).")
	if got != "mordecai is a park worker" {
		t.Errorf("Unexpected description: %q", got)
	}
}

func TestDescribeZeroArityFact(t *testing.T) {
	d := NewDescriber(nil)

	if got := describe(t, d, "sunny."); got != "sunny" {
		t.Errorf("Unexpected description: %q", got)
	}
}

func TestDescribeTemplateOverride(t *testing.T) {
	d := NewDescriber(map[string]string{
		"reports_to": "{0} reports to {1}",
	})

	got := describe(t, d, "reports_to(mordecai, benson).")
	if got != "mordecai reports to benson" {
		t.Errorf("Unexpected description: %q", got)
	}
}

func TestDescribeRule(t *testing.T) {
	d := NewDescriber(nil)

	got := describe(t, d, "grandparent(X, Z) :- parent(X, Y), parent(Y, Z).")
	want := "X is the grandparent of Z when X is the parent of Y and Y is the parent of Z"
	if got != want {
		t.Errorf("Unexpected description:\ngot  %q\nwant %q", got, want)
	}
}

func TestDescribeRuleUsesTemplatesPerPart(t *testing.T) {
	d := NewDescriber(map[string]string{
		"reports_to": "{0} reports to {1}",
	})

	got := describe(t, d, "in_charge_of(Boss, Worker) :- reports_to(Worker, Boss).")
	want := "Boss is the in charge of of Worker when Worker reports to Boss"
	if got != want {
		t.Errorf("Unexpected description:\ngot  %q\nwant %q", got, want)
	}
}
