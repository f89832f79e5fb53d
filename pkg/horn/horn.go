package horn

import (
	"bytes"
	"context"
	"crypto/rand"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/cognicore/horn/pkg/horn/chain"
	"github.com/cognicore/horn/pkg/horn/corpus"
	"github.com/cognicore/horn/pkg/horn/ingest"
	"github.com/cognicore/horn/pkg/horn/internalerr"
	"github.com/cognicore/horn/pkg/horn/kb"
	"github.com/cognicore/horn/pkg/horn/logic"
	"github.com/cognicore/horn/pkg/horn/prolog"
	"github.com/cognicore/horn/pkg/horn/translate"
)

// Defaults for the ask loop when Options leaves them zero.
const (
	DefaultRelevanceThreshold = 0.7
	DefaultMaxIterations      = 3
)

// ChatClient is the LLM surface the ask loop consumes.
type ChatClient interface {
	translate.ChatClient
	JudgeRelevance(ctx context.Context, question string, statements []string) (float64, error)
	RefineSearch(ctx context.Context, question string, previous []string) (string, error)
	Answer(ctx context.Context, question, goal string, provable bool, bindings []string, trace string) (string, error)
}

// Horn is the reasoning engine facade
type Horn struct {
	store     corpus.Store
	tokenizer *ingest.Tokenizer
	chat      ChatClient
	describer *corpus.Describer

	topK      int
	threshold float64
	maxIter   int
	maxDepth  int
	expand    int
}

// Options configures a Horn instance
type Options struct {
	Corpus    corpus.Store
	Tokenizer *ingest.Tokenizer
	Chat      ChatClient
	Describer *corpus.Describer

	TopK               int
	RelevanceThreshold float64
	MaxIterations      int
	MaxDepth           int
	ExpandNeighbors    int
}

// New creates a Horn instance with the given dependencies
func New(opts Options) *Horn {
	if opts.TopK <= 0 {
		opts.TopK = corpus.DefaultRetrieveLimit
	}
	if opts.RelevanceThreshold <= 0 {
		opts.RelevanceThreshold = DefaultRelevanceThreshold
	}
	if opts.MaxIterations <= 0 {
		opts.MaxIterations = DefaultMaxIterations
	}
	if opts.Tokenizer == nil {
		opts.Tokenizer = ingest.NewTokenizer(nil)
	}
	return &Horn{
		store:     opts.Corpus,
		tokenizer: opts.Tokenizer,
		chat:      opts.Chat,
		describer: opts.Describer,
		topK:      opts.TopK,
		threshold: opts.RelevanceThreshold,
		maxIter:   opts.MaxIterations,
		maxDepth:  opts.MaxDepth,
		expand:    opts.ExpandNeighbors,
	}
}

// Close cleanly shuts down the Horn instance
func (h *Horn) Close() error {
	if h.store == nil {
		return nil
	}
	return h.store.Close()
}

// AskRequest is one natural language question for the engine.
type AskRequest struct {
	Question string
	Trace    bool
}

// AskResult carries everything one ask produced: the goal the question
// became, the proof outcome, and the session metadata around it.
type AskResult struct {
	SessionID   string
	Question    string
	Goal        string
	Provable    bool
	Bindings    []map[string]string
	Trace       string
	Answer      string
	Iterations  int
	EntriesUsed int
	Elapsed     time.Duration
}

// Ask retrieves supporting statements for the question, translates it to
// a goal, proves the goal by backward chaining over a session knowledge
// base, and formats an answer. Without a chat client the question must
// already be a Prolog query and the answer is templated.
func (h *Horn) Ask(ctx context.Context, req AskRequest) (AskResult, error) {
	start := time.Now()

	if h.store == nil {
		return AskResult{}, fmt.Errorf("horn: %w: no corpus store", internalerr.ErrInvalidInput)
	}
	question := strings.TrimSpace(req.Question)
	if question == "" {
		return AskResult{}, fmt.Errorf("horn: %w: empty question", internalerr.ErrInvalidInput)
	}

	result := AskResult{
		SessionID: newSessionID(),
		Question:  question,
	}

	// Retrieve supporting statements.
	retriever := &corpus.Retriever{
		Store:           h.store,
		Tokenizer:       h.tokenizer,
		ExpandNeighbors: h.expand,
	}
	entries, err := retriever.Retrieve(ctx, question, h.topK)
	if err != nil {
		return AskResult{}, fmt.Errorf("horn: retrieve: %w", err)
	}

	// Judge relevance and refine the search while it stays low. Chat
	// failures here are soft: the proof can still run on what we have.
	iterations := 0
	if h.chat != nil {
		score, jerr := h.chat.JudgeRelevance(ctx, question, statementTexts(entries))
		for jerr == nil && score < h.threshold && iterations < h.maxIter {
			iterations++
			refined, rerr := h.chat.RefineSearch(ctx, question, statementTexts(entries))
			if rerr != nil || strings.TrimSpace(refined) == "" {
				break
			}
			more, rerr := retriever.Retrieve(ctx, refined, h.topK)
			if rerr != nil {
				break
			}
			var added int
			entries, added = mergeByStatement(entries, more)
			if added == 0 {
				break
			}
			score, jerr = h.chat.JudgeRelevance(ctx, question, statementTexts(entries))
		}
	}
	result.Iterations = iterations

	// Build the session knowledge base, tolerating damaged corpus rows.
	base := kb.New()
	loaded := 0
	for _, e := range entries {
		st, perr := prolog.ParseStatement(e.Statement)
		if perr != nil {
			continue
		}
		switch st.Kind {
		case prolog.KindFact:
			if base.AddFact(st.Fact) == nil {
				loaded++
			}
		case prolog.KindRule:
			if base.AddRule(st.Rule) == nil {
				loaded++
			}
		}
	}
	result.EntriesUsed = loaded

	// Translate the question into a goal fact.
	var goal logic.Fact
	if h.chat != nil {
		translator := &translate.Translator{Chat: h.chat}
		goal, err = translator.Question(ctx, question, predicateShapes(base))
		if err != nil {
			return AskResult{}, fmt.Errorf("horn: translate: %w", err)
		}
	} else {
		goal, err = prolog.ParseFact(question)
		if err != nil {
			return AskResult{}, fmt.Errorf("horn: parse question: %w", err)
		}
	}
	result.Goal = goal.String()

	// Prove.
	var traceBuf bytes.Buffer
	copts := chain.Options{MaxDepth: h.maxDepth}
	if req.Trace {
		copts.Trace = &traceBuf
	}
	chainer := chain.New(base, copts)
	solutions := chainer.ProveWithBindings(goal)

	result.Provable = len(solutions) > 0
	result.Trace = traceBuf.String()
	result.Bindings = make([]map[string]string, 0, len(solutions))
	for _, sol := range solutions {
		result.Bindings = append(result.Bindings, map[string]string(sol))
	}

	// Format the answer.
	if h.chat != nil {
		answer, aerr := h.chat.Answer(ctx, question, result.Goal, result.Provable, formatBindings(solutions), result.Trace)
		if aerr != nil {
			result.Answer = h.templateAnswer(goal, result.Provable, solutions)
		} else {
			result.Answer = answer
		}
	} else {
		result.Answer = h.templateAnswer(goal, result.Provable, solutions)
	}

	result.Elapsed = time.Since(start)
	return result, nil
}

// templateAnswer renders the deterministic offline answer.
func (h *Horn) templateAnswer(goal logic.Fact, provable bool, solutions []logic.Bindings) string {
	subject := goal.String()
	if h.describer != nil {
		subject = h.describer.Describe(prolog.Statement{Kind: prolog.KindFact, Fact: goal})
	}
	if !provable {
		return "No. Could not prove " + subject + "."
	}
	bound := formatBindings(solutions)
	switch len(bound) {
	case 0:
		return "Yes. " + subject + "."
	case 1:
		return "Yes. 1 solution: " + bound[0] + "."
	default:
		return fmt.Sprintf("Yes. %d solutions: %s.", len(bound), strings.Join(bound, "; "))
	}
}

func newSessionID() string {
	return ulid.MustNew(ulid.Now(), ulid.Monotonic(rand.Reader, 0)).String()
}

func statementTexts(entries []corpus.Entry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Statement)
	}
	return out
}

// mergeByStatement appends entries from more whose statement text is not
// already present, reporting how many were added.
func mergeByStatement(existing, more []corpus.Entry) ([]corpus.Entry, int) {
	seen := make(map[string]struct{}, len(existing))
	for _, e := range existing {
		seen[e.Statement] = struct{}{}
	}
	added := 0
	for _, e := range more {
		if _, ok := seen[e.Statement]; ok {
			continue
		}
		seen[e.Statement] = struct{}{}
		existing = append(existing, e)
		added++
	}
	return existing, added
}

// predicateShapes renders the session base's distinct predicates as
// schema lines for the translation prompt, e.g. "father(X, Y)".
func predicateShapes(base *kb.KnowledgeBase) []string {
	arity := make(map[string]int)
	for _, f := range base.Facts() {
		if _, ok := arity[f.Predicate()]; !ok {
			arity[f.Predicate()] = f.Arity()
		}
	}
	for _, r := range base.Rules() {
		c := r.Conclusion()
		if _, ok := arity[c.Predicate()]; !ok {
			arity[c.Predicate()] = c.Arity()
		}
	}

	preds := base.Predicates()
	out := make([]string, 0, len(preds))
	for _, p := range preds {
		out = append(out, predicateShape(p, arity[p]))
	}
	return out
}

func predicateShape(pred string, arity int) string {
	if arity == 0 {
		return pred
	}
	letters := []string{"X", "Y", "Z", "A", "B", "C"}
	vars := make([]string, arity)
	for i := range vars {
		if i < len(letters) {
			vars[i] = letters[i]
		} else {
			vars[i] = fmt.Sprintf("V%d", i+1)
		}
	}
	return pred + "(" + strings.Join(vars, ", ") + ")"
}

// formatBindings renders each non-empty solution as "?X = a, ?Y = b",
// variables in sorted order.
func formatBindings(solutions []logic.Bindings) []string {
	out := make([]string, 0, len(solutions))
	for _, sol := range solutions {
		if len(sol) == 0 {
			continue
		}
		keys := make([]string, 0, len(sol))
		for k := range sol {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, fmt.Sprintf("%s = %s", k, sol[k]))
		}
		out = append(out, strings.Join(parts, ", "))
	}
	return out
}
