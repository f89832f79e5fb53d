package logic

import "testing"

func TestUnifyReflexive(t *testing.T) {
	facts := []Fact{
		MustFact("father", "john", "mary"),
		MustFact("parent", "?X", "?Y"),
		MustFact("raining"),
	}
	for _, f := range facts {
		got, ok := Unify(f, f, nil)
		if !ok {
			t.Errorf("Unify(%s, %s) should succeed", f, f)
			continue
		}
		if len(got) != 0 {
			t.Errorf("Self-unification of %s should add no bindings, got %v", f, got)
		}
	}
}

func TestUnifyGroundMismatch(t *testing.T) {
	cases := []struct {
		goal, candidate Fact
	}{
		{MustFact("father", "john", "mary"), MustFact("father", "john", "tom")},
		{MustFact("father", "john"), MustFact("father", "john", "tom")},
		{MustFact("father", "john", "mary"), MustFact("mother", "john", "mary")},
		{MustFact("raining"), MustFact("sunny")},
	}
	for _, c := range cases {
		if _, ok := Unify(c.goal, c.candidate, nil); ok {
			t.Errorf("Unify(%s, %s) should fail", c.goal, c.candidate)
		}
	}
}

func TestUnifyBindsVariables(t *testing.T) {
	goal := MustFact("father", "?X", "mary")
	candidate := MustFact("father", "john", "mary")

	b, ok := Unify(goal, candidate, nil)
	if !ok {
		t.Fatal("Expected unification to succeed")
	}
	if b["?X"] != "john" {
		t.Errorf("Expected ?X bound to john, got %v", b)
	}
}

func TestUnifyCandidateVariable(t *testing.T) {
	// Variables on the candidate side bind too (rule conclusions hold them)
	goal := MustFact("parent", "john", "mary")
	candidate := MustFact("parent", "?X", "?Y")

	b, ok := Unify(goal, candidate, nil)
	if !ok {
		t.Fatal("Expected unification to succeed")
	}
	if b["?X"] != "john" || b["?Y"] != "mary" {
		t.Errorf("Expected {?X: john, ?Y: mary}, got %v", b)
	}
}

func TestUnifyVariableToVariable(t *testing.T) {
	goal := MustFact("parent", "?A", "tom")
	candidate := MustFact("parent", "?B", "tom")

	b, ok := Unify(goal, candidate, nil)
	if !ok {
		t.Fatal("Expected unification to succeed")
	}
	// Goal-side variable points at the candidate side
	if b["?A"] != "?B" {
		t.Errorf("Expected ?A -> ?B, got %v", b)
	}
}

func TestUnifyRespectsExistingBindings(t *testing.T) {
	goal := MustFact("father", "?X", "?Y")
	candidate := MustFact("father", "john", "tom")

	if _, ok := Unify(goal, candidate, Bindings{"?X": "harold"}); ok {
		t.Error("Unification should fail when an existing binding conflicts")
	}

	b, ok := Unify(goal, candidate, Bindings{"?X": "john"})
	if !ok {
		t.Fatal("Expected unification to succeed with a consistent binding")
	}
	if b["?Y"] != "tom" {
		t.Errorf("Expected ?Y bound to tom, got %v", b)
	}
}

func TestUnifyFollowsChains(t *testing.T) {
	goal := MustFact("eats", "?X", "meat")
	candidate := MustFact("eats", "dog", "meat")
	in := Bindings{"?X": "?Y"}

	b, ok := Unify(goal, candidate, in)
	if !ok {
		t.Fatal("Expected unification to succeed")
	}
	// ?X resolves to ?Y, so the new binding lands on the chain's end
	if b["?Y"] != "dog" {
		t.Errorf("Expected ?Y bound to dog through the chain, got %v", b)
	}
}

func TestUnifyDoesNotMutateInput(t *testing.T) {
	in := Bindings{"?A": "tom"}
	goal := MustFact("father", "?X", "?A")
	candidate := MustFact("father", "john", "tom")

	b, ok := Unify(goal, candidate, in)
	if !ok {
		t.Fatal("Expected unification to succeed")
	}
	if len(in) != 1 || in["?A"] != "tom" {
		t.Errorf("Input bindings were mutated: %v", in)
	}
	if b["?X"] != "john" {
		t.Errorf("Extended set missing new binding: %v", b)
	}
}
