package translate

import (
	"context"
	"fmt"

	"github.com/cognicore/horn/internal/vet"
	"github.com/cognicore/horn/pkg/horn/internalerr"
	"github.com/cognicore/horn/pkg/horn/logic"
	"github.com/cognicore/horn/pkg/horn/prolog"
)

// DefaultMaxRefinements bounds how many times a failed attempt is fed
// back to the model for revision.
const DefaultMaxRefinements = 2

// ChatClient is the slice of the LLM client translation needs.
type ChatClient interface {
	TranslateQuestion(ctx context.Context, question string, predicates []string, prevError string) (string, error)
	ExtractProgram(ctx context.Context, text, prevError string) (string, error)
}

// Translator converts natural language into goal facts and programs,
// feeding parse errors back to the model until they parse or the
// refinement budget runs out.
type Translator struct {
	Chat           ChatClient
	MaxRefinements int
}

// Question asks the model for a Prolog query answering the question and
// parses it into a goal fact.
func (t *Translator) Question(ctx context.Context, question string, predicates []string) (logic.Fact, error) {
	if t.Chat == nil {
		return logic.Fact{}, fmt.Errorf("translate: %w: nil chat client", internalerr.ErrInvalidConfig)
	}

	var lastErr error
	prev := ""
	attempts := t.maxRefinements() + 1
	for i := 0; i < attempts; i++ {
		raw, err := t.Chat.TranslateQuestion(ctx, question, predicates, prev)
		if err != nil {
			return logic.Fact{}, err
		}
		fact, err := prolog.ParseFact(raw)
		if err == nil {
			return fact, nil
		}
		lastErr = err
		prev = err.Error()
	}
	return logic.Fact{}, fmt.Errorf("translate: no valid query after %d attempts: %w", attempts, lastErr)
}

// Program extracts a whole Prolog program from prose, vets it with the
// embedded interpreter, and parses it.
func (t *Translator) Program(ctx context.Context, text string) (*prolog.Program, error) {
	if t.Chat == nil {
		return nil, fmt.Errorf("translate: %w: nil chat client", internalerr.ErrInvalidConfig)
	}

	var lastErr error
	prev := ""
	attempts := t.maxRefinements() + 1
	for i := 0; i < attempts; i++ {
		src, err := t.Chat.ExtractProgram(ctx, text, prev)
		if err != nil {
			return nil, err
		}
		if err := vet.Program(src); err != nil {
			lastErr = err
			prev = err.Error()
			continue
		}
		prog, err := prolog.ParseProgram(src)
		if err != nil {
			lastErr = err
			prev = err.Error()
			continue
		}
		return prog, nil
	}
	return nil, fmt.Errorf("translate: no valid program after %d attempts: %w", attempts, lastErr)
}

func (t *Translator) maxRefinements() int {
	if t.MaxRefinements > 0 {
		return t.MaxRefinements
	}
	return DefaultMaxRefinements
}
