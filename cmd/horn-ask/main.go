package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/cognicore/horn/internal/llm"
	"github.com/cognicore/horn/pkg/horn"
	"github.com/cognicore/horn/pkg/horn/config"
	"github.com/cognicore/horn/pkg/horn/corpus"
	"github.com/cognicore/horn/pkg/horn/corpus/sqlite"
)

func main() {
	var (
		configPath = flag.String("config", "", "Path to reasoner config YAML (required)")
		question   = flag.String("question", "", "Question to ask (required)")
		trace      = flag.Bool("trace", false, "Include the proof search trace")
	)
	flag.Parse()

	if *configPath == "" {
		log.Fatal("--config required")
	}
	if *question == "" {
		log.Fatal("--question required")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx := context.Background()
	engine, cleanup, err := buildReasoner(ctx, cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer cleanup()

	result, err := engine.Ask(ctx, horn.AskRequest{
		Question: *question,
		Trace:    *trace || cfg.Engine.Trace,
	})
	if err != nil {
		log.Fatalf("ask: %v", err)
	}

	printResult(os.Stdout, result)
	log.Printf("Session %s answered in %s (%d refinement iterations, %d statements)",
		result.SessionID, result.Elapsed.Round(time.Millisecond), result.Iterations, result.EntriesUsed)
}

func buildReasoner(ctx context.Context, cfg config.Config) (*horn.Horn, func(), error) {
	loader := config.Loader{
		StoplistPath: cfg.Tokenizer.Stoplist,
		LexiconPath:  cfg.Tokenizer.Lexicon,
	}
	components, err := loader.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	store, err := sqlite.OpenSQLite(ctx, cfg.Corpus.DBPath)
	if err != nil {
		return nil, nil, fmt.Errorf("open store: %w", err)
	}

	opts := horn.Options{
		Corpus:             store,
		Tokenizer:          components.Tokenizer,
		Describer:          corpus.NewDescriber(components.Templates),
		TopK:               cfg.Retrieval.TopK,
		RelevanceThreshold: cfg.Retrieval.RelevanceThreshold,
		MaxIterations:      cfg.Retrieval.MaxIterations,
		MaxDepth:           cfg.Engine.MaxDepth,
		ExpandNeighbors:    cfg.Retrieval.ExpandNeighbors,
	}
	if cfg.LLM.BaseURL != "" && cfg.LLM.Model != "" {
		opts.Chat = &llm.Client{
			BaseURL: cfg.LLM.BaseURL,
			Model:   cfg.LLM.Model,
			APIKey:  cfg.LLM.APIKey,
		}
	}

	engine := horn.New(opts)
	cleanup := func() {
		engine.Close()
	}
	return engine, cleanup, nil
}

func printResult(w io.Writer, result horn.AskResult) {
	fmt.Fprintf(w, "Question: %s\n", result.Question)
	fmt.Fprintf(w, "Goal:     %s\n", result.Goal)
	if result.Provable {
		fmt.Fprintln(w, "Result:   True")
	} else {
		fmt.Fprintln(w, "Result:   False")
	}

	if hasBindings(result.Bindings) {
		fmt.Fprintln(w, "Bindings:")
		for _, sol := range result.Bindings {
			if len(sol) == 0 {
				continue
			}
			fmt.Fprintf(w, "  %s\n", formatBinding(sol))
		}
	}

	if result.Trace != "" {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Trace:")
		fmt.Fprint(w, result.Trace)
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Answer:")
	fmt.Fprintln(w, result.Answer)
}

func hasBindings(solutions []map[string]string) bool {
	for _, sol := range solutions {
		if len(sol) > 0 {
			return true
		}
	}
	return false
}

func formatBinding(sol map[string]string) string {
	keys := make([]string, 0, len(sol))
	for k := range sol {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s = %s", k, sol[k]))
	}
	return strings.Join(parts, ", ")
}
