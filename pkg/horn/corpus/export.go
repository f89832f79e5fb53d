package corpus

import (
	"bufio"
	"context"
	"fmt"
	"io"
)

// ExportStore is the slice of the store exporting depends on.
type ExportStore interface {
	AllEntries(ctx context.Context) ([]Entry, error)
}

// ExportProgram writes the whole corpus back out as a Prolog program,
// one statement per line with description comments, facts before rules.
// The output loads back through the program parser unchanged.
func ExportProgram(ctx context.Context, w io.Writer, s ExportStore) error {
	entries, err := s.AllEntries(ctx)
	if err != nil {
		return err
	}

	var facts, rules []Entry
	for _, e := range entries {
		if e.Kind == KindRule {
			rules = append(rules, e)
		} else {
			facts = append(facts, e)
		}
	}

	bw := bufio.NewWriter(w)
	writeGroup(bw, "Facts", facts)
	if len(facts) > 0 && len(rules) > 0 {
		fmt.Fprintln(bw)
	}
	writeGroup(bw, "Rules", rules)
	return bw.Flush()
}

func writeGroup(w io.Writer, header string, entries []Entry) {
	if len(entries) == 0 {
		return
	}
	fmt.Fprintf(w, "%% %s\n", header)
	for _, e := range entries {
		if e.Description != "" {
			fmt.Fprintf(w, "%% %s\n", e.Description)
		}
		fmt.Fprintf(w, "%s.\n", e.Statement)
	}
}

// StatsStore is the slice of the store stat rebuilding depends on.
type StatsStore interface {
	AllEntries(ctx context.Context) ([]Entry, error)
	ResetStats(ctx context.Context) error
	IncPair(ctx context.Context, t1, t2 string) error
	UpsertTokenDF(ctx context.Context, token string, df int64) error
}

// RebuildStats recomputes token document frequencies and pair
// co-occurrence counts from the stored entries. Call after bulk
// indexing; incremental upserts do not maintain these counts.
func RebuildStats(ctx context.Context, s StatsStore) error {
	entries, err := s.AllEntries(ctx)
	if err != nil {
		return err
	}
	if err := s.ResetStats(ctx); err != nil {
		return err
	}

	df := make(map[string]int64)
	for _, e := range entries {
		toks := uniqueTokens(e.Tokens)
		for i, t := range toks {
			df[t]++
			for _, other := range toks[i+1:] {
				if err := s.IncPair(ctx, t, other); err != nil {
					return err
				}
			}
		}
	}
	for token, n := range df {
		if err := s.UpsertTokenDF(ctx, token, n); err != nil {
			return err
		}
	}
	return nil
}

func uniqueTokens(in []string) []string {
	set := make(map[string]struct{}, len(in))
	var out []string
	for _, t := range in {
		if t == "" {
			continue
		}
		if _, ok := set[t]; ok {
			continue
		}
		set[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
