package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/cognicore/horn/internal/llm"
	"github.com/cognicore/horn/pkg/horn/config"
	"github.com/cognicore/horn/pkg/horn/corpus"
	"github.com/cognicore/horn/pkg/horn/corpus/sqlite"
	"github.com/cognicore/horn/pkg/horn/ingest"
	"github.com/cognicore/horn/pkg/horn/prolog"
	"github.com/cognicore/horn/pkg/horn/translate"
)

// maxPageChars caps the text sent to the extraction model per page.
const maxPageChars = 8000

var httpClient = &http.Client{Timeout: 20 * time.Second}

// urlList collects a repeatable flag.
type urlList []string

func (u *urlList) String() string { return strings.Join(*u, ",") }

func (u *urlList) Set(value string) error {
	*u = append(*u, value)
	return nil
}

func main() {
	var urls urlList
	flag.Var(&urls, "url", "Page URL to harvest, repeatable (required)")
	var (
		dbPath     = flag.String("db", "", "Database path (required unless --dry-run)")
		configPath = flag.String("config", "", "Path to reasoner config YAML (required)")
		dryRun     = flag.Bool("dry-run", false, "Print extracted programs without writing to the database")
	)
	flag.Parse()

	if len(urls) == 0 {
		log.Fatal("--url required")
	}
	if *configPath == "" {
		log.Fatal("--config required")
	}
	if !*dryRun && *dbPath == "" {
		log.Fatal("--db required")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if cfg.LLM.BaseURL == "" || cfg.LLM.Model == "" {
		log.Fatal("llm base_url and model required in config")
	}

	ctx := context.Background()

	translator := &translate.Translator{Chat: &llm.Client{
		BaseURL: cfg.LLM.BaseURL,
		Model:   cfg.LLM.Model,
		APIKey:  cfg.LLM.APIKey,
	}}

	loader := config.Loader{
		StoplistPath: cfg.Tokenizer.Stoplist,
		LexiconPath:  cfg.Tokenizer.Lexicon,
	}
	components, err := loader.Load()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}
	describer := corpus.NewDescriber(components.Templates)

	var store corpus.Store
	if !*dryRun {
		store, err = sqlite.OpenSQLite(ctx, *dbPath)
		if err != nil {
			log.Fatal("Failed to open database:", err)
		}
		defer store.Close()
	}

	pages := 0
	total := 0
	for _, url := range urls {
		text, err := fetchPageText(url)
		if err != nil {
			log.Printf("Failed to fetch %s: %v", url, err)
			continue
		}

		prog, err := translator.Program(ctx, text)
		if err != nil {
			log.Printf("Failed to extract program from %s: %v", url, err)
			continue
		}
		if len(prog.Statements) == 0 {
			log.Printf("No statements extracted from %s", url)
			continue
		}

		if *dryRun {
			fmt.Printf("%% %s\n", url)
			for _, st := range prog.Statements {
				fmt.Printf("%s.\n", st.Text)
			}
			fmt.Println()
			pages++
			total += len(prog.Statements)
			continue
		}

		n := 0
		for _, entry := range harvestEntries(prog, describer, components.Tokenizer, url) {
			if _, err := store.UpsertEntry(ctx, entry); err != nil {
				log.Printf("Failed to store %q from %s: %v", entry.Statement, url, err)
				continue
			}
			n++
		}
		log.Printf("Indexed %d statements from %s", n, url)
		pages++
		total += n
	}

	if !*dryRun && total > 0 {
		if err := corpus.RebuildStats(ctx, store); err != nil {
			log.Fatal("Failed to rebuild token stats:", err)
		}
	}

	log.Printf("✓ Harvest complete: %d statements from %d pages", total, pages)
}

// fetchPageText downloads a page and reduces it to plain text, capped at
// maxPageChars for the extraction prompt.
func fetchPageText(url string) (string, error) {
	resp, err := httpClient.Get(url)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("HTTP %d", resp.StatusCode)
	}

	text, err := pageText(resp.Body)
	if err != nil {
		return "", err
	}
	return truncateRunes(text, maxPageChars), nil
}

// pageText extracts the visible text from an HTML document, skipping
// script, style, and noscript subtrees, with whitespace collapsed.
func pageText(r io.Reader) (string, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return "", err
	}

	var buf strings.Builder
	var extractText func(*html.Node)
	extractText = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript":
				return
			}
		}
		if n.Type == html.TextNode {
			buf.WriteString(n.Data)
			buf.WriteByte(' ')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extractText(c)
		}
	}
	extractText(doc)

	return strings.Join(strings.Fields(buf.String()), " "), nil
}

func truncateRunes(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}

// harvestEntries converts an extracted program into corpus entries with
// the page URL as their source.
func harvestEntries(prog *prolog.Program, describer *corpus.Describer, tokenizer *ingest.Tokenizer, url string) []corpus.Entry {
	entries := make([]corpus.Entry, 0, len(prog.Statements))
	for _, st := range prog.Statements {
		kind := corpus.KindFact
		predicate := st.Fact.Predicate()
		if st.Kind == prolog.KindRule {
			kind = corpus.KindRule
			predicate = st.Rule.Conclusion().Predicate()
		}

		description := describer.Describe(st)
		entries = append(entries, corpus.Entry{
			Statement:   st.Text,
			Kind:        kind,
			Predicate:   predicate,
			Description: description,
			Source:      url,
			Tokens:      tokenizer.Tokenize(description),
		})
	}
	return entries
}
