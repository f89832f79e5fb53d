package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"sort"
	"strings"

	"github.com/cognicore/horn/pkg/horn/chain"
	"github.com/cognicore/horn/pkg/horn/kb"
	"github.com/cognicore/horn/pkg/horn/logic"
	"github.com/cognicore/horn/pkg/horn/prolog"
)

// fileList collects a repeatable flag.
type fileList []string

func (f *fileList) String() string { return strings.Join(*f, ",") }

func (f *fileList) Set(value string) error {
	*f = append(*f, value)
	return nil
}

func main() {
	var kbPaths fileList
	flag.Var(&kbPaths, "kb", "Knowledge base file, repeatable (required)")
	var (
		query        = flag.String("query", "", "One-shot query (non-interactive mode)")
		showBindings = flag.Bool("bindings", false, "Print variable bindings for every solution")
		trace        = flag.Bool("trace", false, "Print the proof search trace")
		maxDepth     = flag.Int("max-depth", chain.DefaultMaxDepth, "Maximum proof recursion depth")
	)
	flag.Parse()

	if len(kbPaths) == 0 {
		log.Fatal("--kb required")
	}

	base, err := loadKnowledge(kbPaths)
	if err != nil {
		log.Fatal(err)
	}

	// One-shot query mode
	if *query != "" {
		if err := runQuery(os.Stdout, base, *query, *showBindings, *trace, *maxDepth); err != nil {
			log.Fatal(err)
		}
		return
	}

	// Interactive mode
	fmt.Println("===========================================")
	fmt.Println("  Horn Prover")
	fmt.Printf("  %d facts, %d rules loaded\n", base.FactCount(), base.RuleCount())
	fmt.Println("===========================================")
	fmt.Println()
	fmt.Println("Type a query like grandparent(john, ?X) (Ctrl+D to exit):")
	fmt.Println()

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if err := runQuery(os.Stdout, base, line, *showBindings, *trace, *maxDepth); err != nil {
			fmt.Println("Error:", err)
		}
	}

	fmt.Println("\nGoodbye!")
}

// loadKnowledge parses every program file into one knowledge base.
func loadKnowledge(paths []string) (*kb.KnowledgeBase, error) {
	base := kb.New()
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		prog, err := prolog.ParseProgram(string(data))
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
		if err := prog.Load(base); err != nil {
			return nil, fmt.Errorf("load %s: %w", path, err)
		}
	}
	return base, nil
}

func runQuery(w io.Writer, base *kb.KnowledgeBase, query string, showBindings, trace bool, maxDepth int) error {
	goal, err := prolog.ParseFact(query)
	if err != nil {
		return err
	}

	opts := chain.Options{MaxDepth: maxDepth}
	if trace {
		opts.Trace = w
	}
	chainer := chain.New(base, opts)

	if !showBindings {
		if chainer.Prove(goal) {
			fmt.Fprintln(w, "True")
		} else {
			fmt.Fprintln(w, "False")
		}
		return nil
	}

	solutions := chainer.ProveWithBindings(goal)
	if len(solutions) == 0 {
		fmt.Fprintln(w, "False")
		return nil
	}

	fmt.Fprintln(w, "True")
	for _, sol := range solutions {
		if len(sol) == 0 {
			continue
		}
		fmt.Fprintf(w, "  %s\n", formatSolution(sol))
	}
	return nil
}

func formatSolution(sol logic.Bindings) string {
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
