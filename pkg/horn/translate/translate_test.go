package translate

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/cognicore/horn/pkg/horn/internalerr"
	"github.com/cognicore/horn/pkg/horn/prolog"
)

// scriptedChat replays canned replies and records the prevError passed on
// each call.
type scriptedChat struct {
	queries   []string
	programs  []string
	transport error

	queryFeedback   []string
	programFeedback []string
}

func (s *scriptedChat) TranslateQuestion(ctx context.Context, question string, predicates []string, prevError string) (string, error) {
	if s.transport != nil {
		return "", s.transport
	}
	s.queryFeedback = append(s.queryFeedback, prevError)
	i := len(s.queryFeedback) - 1
	if i >= len(s.queries) {
		i = len(s.queries) - 1
	}
	return s.queries[i], nil
}

func (s *scriptedChat) ExtractProgram(ctx context.Context, text, prevError string) (string, error) {
	if s.transport != nil {
		return "", s.transport
	}
	s.programFeedback = append(s.programFeedback, prevError)
	i := len(s.programFeedback) - 1
	if i >= len(s.programs) {
		i = len(s.programs) - 1
	}
	return s.programs[i], nil
}

func TestQuestionParsesFirstReply(t *testing.T) {
	chat := &scriptedChat{queries: []string{"grandparent(john, Who)"}}
	tr := &Translator{Chat: chat}

	goal, err := tr.Question(context.Background(), "Whose grandparent is john?", []string{"grandparent(X, Y)"})
	if err != nil {
		t.Fatalf("Question: %v", err)
	}
	if goal.String() != "grandparent(john, ?Who)" {
		t.Errorf("unexpected goal %q", goal.String())
	}
	if len(chat.queryFeedback) != 1 || chat.queryFeedback[0] != "" {
		t.Errorf("expected one call with no feedback, got %v", chat.queryFeedback)
	}
}

func TestQuestionFeedsParseErrorBack(t *testing.T) {
	chat := &scriptedChat{queries: []string{"grandparent(john", "grandparent(john, Who)"}}
	tr := &Translator{Chat: chat}

	goal, err := tr.Question(context.Background(), "Whose grandparent is john?", nil)
	if err != nil {
		t.Fatalf("Question: %v", err)
	}
	if goal.String() != "grandparent(john, ?Who)" {
		t.Errorf("unexpected goal %q", goal.String())
	}
	if len(chat.queryFeedback) != 2 {
		t.Fatalf("expected 2 attempts, got %d", len(chat.queryFeedback))
	}
	if !strings.Contains(chat.queryFeedback[1], "closing parenthesis") {
		t.Errorf("expected the parse error fed back, got %q", chat.queryFeedback[1])
	}
}

func TestQuestionExhaustsRefinements(t *testing.T) {
	chat := &scriptedChat{queries: []string{"not a ( query"}}
	tr := &Translator{Chat: chat, MaxRefinements: 1}

	_, err := tr.Question(context.Background(), "broken", nil)
	if err == nil {
		t.Fatal("expected error after exhausting refinements")
	}
	if len(chat.queryFeedback) != 2 {
		t.Errorf("expected 2 attempts, got %d", len(chat.queryFeedback))
	}
	var pe *prolog.ParseError
	if !errors.As(err, &pe) {
		t.Errorf("expected the last parse error in the chain, got %v", err)
	}
}

func TestQuestionTransportErrorNotRetried(t *testing.T) {
	boom := errors.New("connection refused")
	chat := &scriptedChat{transport: boom}
	tr := &Translator{Chat: chat}

	_, err := tr.Question(context.Background(), "q", nil)
	if !errors.Is(err, boom) {
		t.Errorf("expected the transport error, got %v", err)
	}
}

func TestQuestionNilChat(t *testing.T) {
	tr := &Translator{}
	_, err := tr.Question(context.Background(), "q", nil)
	if !errors.Is(err, internalerr.ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestProgramFeedsVetErrorBack(t *testing.T) {
	chat := &scriptedChat{programs: []string{
		"father(john, mary",
		"father(john, mary).\nparent(X, Y) :- father(X, Y).",
	}}
	tr := &Translator{Chat: chat}

	prog, err := tr.Program(context.Background(), "John is Mary's father.")
	if err != nil {
		t.Fatalf("Program: %v", err)
	}
	if len(prog.Statements) != 2 {
		t.Fatalf("expected 2 statements, got %d", len(prog.Statements))
	}
	if len(chat.programFeedback) != 2 {
		t.Fatalf("expected 2 attempts, got %d", len(chat.programFeedback))
	}
	if !strings.HasPrefix(chat.programFeedback[1], "vet: ") {
		t.Errorf("expected the vet error fed back, got %q", chat.programFeedback[1])
	}
}

func TestProgramFeedsParseErrorBack(t *testing.T) {
	// Valid ISO Prolog the statement parser cannot express.
	chat := &scriptedChat{programs: []string{
		`happy(X) :- \+ sad(X).`,
		"father(john, mary).",
	}}
	tr := &Translator{Chat: chat}

	prog, err := tr.Program(context.Background(), "text")
	if err != nil {
		t.Fatalf("Program: %v", err)
	}
	if len(prog.Statements) != 1 {
		t.Fatalf("expected 1 statement, got %d", len(prog.Statements))
	}
	if len(chat.programFeedback) != 2 {
		t.Fatalf("expected 2 attempts, got %d", len(chat.programFeedback))
	}
	if !strings.Contains(chat.programFeedback[1], "malformed predicate") {
		t.Errorf("expected the parse error fed back, got %q", chat.programFeedback[1])
	}
}

func TestProgramExhaustsRefinements(t *testing.T) {
	chat := &scriptedChat{programs: []string{"father(john, mary"}}
	tr := &Translator{Chat: chat}

	_, err := tr.Program(context.Background(), "text")
	if err == nil {
		t.Fatal("expected error after exhausting refinements")
	}
	// Default budget: one try plus two refinements.
	if len(chat.programFeedback) != 3 {
		t.Errorf("expected 3 attempts, got %d", len(chat.programFeedback))
	}
}
