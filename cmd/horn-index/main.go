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

	"github.com/cognicore/horn/pkg/horn/config"
	"github.com/cognicore/horn/pkg/horn/corpus"
	"github.com/cognicore/horn/pkg/horn/corpus/sqlite"
	"github.com/cognicore/horn/pkg/horn/ingest"
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
	flag.Var(&kbPaths, "kb", "Knowledge base file to index, repeatable")
	var (
		dbPath       = flag.String("db", "", "Database path (required)")
		source       = flag.String("source", "local", "Source label stored with indexed statements")
		stoplistPath = flag.String("stoplist", "", "Stoplist file (optional)")
		lexiconPath  = flag.String("lexicon", "", "Lexicon file (optional)")
		showStats    = flag.Bool("stats", false, "Print corpus statistics")
		exportPath   = flag.String("export", "", "Write the corpus back out as a Prolog program")
	)
	flag.Parse()

	if *dbPath == "" {
		log.Fatal("--db required")
	}
	if len(kbPaths) == 0 && !*showStats && *exportPath == "" {
		log.Fatal("nothing to do: provide --kb, --stats, or --export")
	}

	ctx := context.Background()

	// Load tokenizer configuration
	loader := config.Loader{
		StoplistPath: *stoplistPath,
		LexiconPath:  *lexiconPath,
	}
	components, err := loader.Load()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}
	describer := corpus.NewDescriber(components.Templates)

	// Open database
	store, err := sqlite.OpenSQLite(ctx, *dbPath)
	if err != nil {
		log.Fatal("Failed to open database:", err)
	}
	defer store.Close()

	// Index program files
	if len(kbPaths) > 0 {
		total := 0
		for _, path := range kbPaths {
			n, err := indexProgram(ctx, store, describer, components.Tokenizer, path, *source)
			if err != nil {
				log.Fatalf("Failed to index %s: %v", path, err)
			}
			log.Printf("Indexed %d statements from %s", n, path)
			total += n
		}

		// Token DF and pair counts feed retrieval expansion; rebuild them
		// once after the bulk load rather than per statement.
		if err := corpus.RebuildStats(ctx, store); err != nil {
			log.Fatal("Failed to rebuild token stats:", err)
		}
		log.Printf("✓ Indexing complete: %d statements processed", total)
	}

	if *showStats {
		if err := printStats(ctx, os.Stdout, store); err != nil {
			log.Fatal("Failed to read stats:", err)
		}
	}

	if *exportPath != "" {
		f, err := os.Create(*exportPath)
		if err != nil {
			log.Fatal("Failed to create export file:", err)
		}
		if err := corpus.ExportProgram(ctx, f, store); err != nil {
			f.Close()
			log.Fatal("Failed to export corpus:", err)
		}
		if err := f.Close(); err != nil {
			log.Fatal("Failed to close export file:", err)
		}
		log.Printf("✓ Exported corpus to %s", *exportPath)
	}
}

// indexProgram parses one program file and upserts every statement with
// its description and retrieval tokens.
func indexProgram(ctx context.Context, store corpus.Store, describer *corpus.Describer, tokenizer *ingest.Tokenizer, path, source string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	prog, err := prolog.ParseProgram(string(data))
	if err != nil {
		return 0, err
	}

	for _, st := range prog.Statements {
		entry := entryFor(st, describer, tokenizer, source)
		if _, err := store.UpsertEntry(ctx, entry); err != nil {
			return 0, fmt.Errorf("upsert %q: %w", entry.Statement, err)
		}
	}
	return len(prog.Statements), nil
}

// entryFor converts a parsed statement into a corpus entry: the canonical
// statement text keyed by kind and predicate, described and tokenized for
// retrieval.
func entryFor(st prolog.Statement, describer *corpus.Describer, tokenizer *ingest.Tokenizer, source string) corpus.Entry {
	kind := corpus.KindFact
	predicate := st.Fact.Predicate()
	if st.Kind == prolog.KindRule {
		kind = corpus.KindRule
		predicate = st.Rule.Conclusion().Predicate()
	}

	description := describer.Describe(st)
	return corpus.Entry{
		Statement:   st.Text,
		Kind:        kind,
		Predicate:   predicate,
		Description: description,
		Source:      source,
		Tokens:      tokenizer.Tokenize(description),
	}
}

func printStats(ctx context.Context, w io.Writer, store corpus.Store) error {
	stats, err := store.Stats(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "Entries: %d (%d facts, %d rules)\n", stats.Entries, stats.Facts, stats.Rules)
	fmt.Fprintf(w, "Tokens:  %d\n", stats.Tokens)

	if len(stats.Predicates) == 0 {
		return nil
	}
	names := make([]string, 0, len(stats.Predicates))
	for name := range stats.Predicates {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Fprintln(w, "Predicates:")
	for _, name := range names {
		fmt.Fprintf(w, "  %s: %d\n", name, stats.Predicates[name])
	}
	return nil
}
