package memstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cognicore/horn/pkg/horn/corpus"
	"github.com/cognicore/horn/pkg/horn/internalerr"
)

func TestUpsert_AssignsIncreasingIDs(t *testing.T) {
	ctx := context.Background()
	s := New()

	id1, err := s.UpsertEntry(ctx, corpus.Entry{Statement: "father(john, mary)", Kind: corpus.KindFact})
	if err != nil {
		t.Fatalf("UpsertEntry: %v", err)
	}
	id2, err := s.UpsertEntry(ctx, corpus.Entry{Statement: "father(john, tom)", Kind: corpus.KindFact})
	if err != nil {
		t.Fatalf("UpsertEntry: %v", err)
	}
	if id2 <= id1 {
		t.Errorf("expected increasing IDs, got %d then %d", id1, id2)
	}
}

func TestUpsert_DeduplicatesByStatement(t *testing.T) {
	ctx := context.Background()
	s := New()

	first := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	id1, err := s.UpsertEntry(ctx, corpus.Entry{
		Statement: "father(john, mary)", Kind: corpus.KindFact, Source: "a.pl", AddedAt: first,
	})
	if err != nil {
		t.Fatalf("UpsertEntry: %v", err)
	}

	id2, err := s.UpsertEntry(ctx, corpus.Entry{
		Statement: "father(john, mary)", Kind: corpus.KindFact, Source: "b.pl",
		AddedAt: first.Add(24 * time.Hour),
	})
	if err != nil {
		t.Fatalf("UpsertEntry: %v", err)
	}
	if id1 != id2 {
		t.Errorf("expected the same ID for a duplicate statement, got %d and %d", id1, id2)
	}

	got, err := s.GetEntry(ctx, id1)
	if err != nil {
		t.Fatalf("GetEntry: %v", err)
	}
	if got.Source != "b.pl" {
		t.Errorf("expected updated source, got %q", got.Source)
	}
	if !got.AddedAt.Equal(first) {
		t.Errorf("expected the first AddedAt to be kept, got %v", got.AddedAt)
	}
}

func TestUpsert_RejectsEmptyStatement(t *testing.T) {
	ctx := context.Background()
	s := New()

	_, err := s.UpsertEntry(ctx, corpus.Entry{Statement: "  "})
	if !errors.Is(err, internalerr.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}

func TestGetEntry_NotFound(t *testing.T) {
	ctx := context.Background()
	s := New()

	_, err := s.GetEntry(ctx, 99)
	if !errors.Is(err, internalerr.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestGetEntry_CopiesTokens(t *testing.T) {
	ctx := context.Background()
	s := New()

	id, err := s.UpsertEntry(ctx, corpus.Entry{
		Statement: "father(john, mary)", Kind: corpus.KindFact,
		Tokens: []string{"john", "father", "mary"},
	})
	if err != nil {
		t.Fatalf("UpsertEntry: %v", err)
	}

	got, _ := s.GetEntry(ctx, id)
	got.Tokens[0] = "mutated"

	again, _ := s.GetEntry(ctx, id)
	if again.Tokens[0] != "john" {
		t.Error("expected stored tokens to be isolated from caller mutation")
	}
}

func TestGetEntriesByTokens_RanksByOverlap(t *testing.T) {
	ctx := context.Background()
	s := New()

	seed := []corpus.Entry{
		{Statement: "park_worker(rigby)", Kind: corpus.KindFact, Tokens: []string{"rigby", "park", "worker"}},
		{Statement: "father(john, mary)", Kind: corpus.KindFact, Tokens: []string{"john", "father", "mary"}},
		{Statement: "mother(susan, mary)", Kind: corpus.KindFact, Tokens: []string{"susan", "mother", "mary"}},
	}
	for _, e := range seed {
		if _, err := s.UpsertEntry(ctx, e); err != nil {
			t.Fatalf("UpsertEntry: %v", err)
		}
	}

	got, err := s.GetEntriesByTokens(ctx, []string{"john", "father", "mary"}, 10)
	if err != nil {
		t.Fatalf("GetEntriesByTokens: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(got))
	}
	if got[0].Statement != "father(john, mary)" {
		t.Errorf("expected the highest-overlap entry first, got %q", got[0].Statement)
	}
	if got[1].Statement != "mother(susan, mary)" {
		t.Errorf("expected the single-overlap entry second, got %q", got[1].Statement)
	}
}

func TestGetEntriesByTokens_HonorsLimit(t *testing.T) {
	ctx := context.Background()
	s := New()

	for _, stmt := range []string{"a(john)", "b(john)", "c(john)"} {
		if _, err := s.UpsertEntry(ctx, corpus.Entry{
			Statement: stmt, Kind: corpus.KindFact, Tokens: []string{"john"},
		}); err != nil {
			t.Fatalf("UpsertEntry: %v", err)
		}
	}

	got, err := s.GetEntriesByTokens(ctx, []string{"john"}, 2)
	if err != nil {
		t.Fatalf("GetEntriesByTokens: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("expected 2 entries, got %d", len(got))
	}
}

func TestAllEntries_InsertionOrder(t *testing.T) {
	ctx := context.Background()
	s := New()

	statements := []string{"a(x)", "b(y)", "c(z)"}
	for _, stmt := range statements {
		if _, err := s.UpsertEntry(ctx, corpus.Entry{Statement: stmt, Kind: corpus.KindFact}); err != nil {
			t.Fatalf("UpsertEntry: %v", err)
		}
	}

	all, err := s.AllEntries(ctx)
	if err != nil {
		t.Fatalf("AllEntries: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(all))
	}
	for i, stmt := range statements {
		if all[i].Statement != stmt {
			t.Errorf("expected %q at position %d, got %q", stmt, i, all[i].Statement)
		}
	}
}

func TestDeleteBySource(t *testing.T) {
	ctx := context.Background()
	s := New()

	for _, e := range []corpus.Entry{
		{Statement: "a(x)", Kind: corpus.KindFact, Source: "one.pl"},
		{Statement: "b(y)", Kind: corpus.KindFact, Source: "one.pl"},
		{Statement: "c(z)", Kind: corpus.KindFact, Source: "two.pl"},
	} {
		if _, err := s.UpsertEntry(ctx, e); err != nil {
			t.Fatalf("UpsertEntry: %v", err)
		}
	}

	n, err := s.DeleteBySource(ctx, "one.pl")
	if err != nil {
		t.Fatalf("DeleteBySource: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 deletions, got %d", n)
	}

	all, _ := s.AllEntries(ctx)
	if len(all) != 1 || all[0].Statement != "c(z)" {
		t.Errorf("expected only c(z) to remain, got %v", all)
	}

	// Deleted statements can be re-added under a fresh ID.
	if _, err := s.UpsertEntry(ctx, corpus.Entry{Statement: "a(x)", Kind: corpus.KindFact}); err != nil {
		t.Errorf("expected re-add after delete to succeed: %v", err)
	}
}

func TestTokenDF_SetGetDelete(t *testing.T) {
	ctx := context.Background()
	s := New()

	if err := s.UpsertTokenDF(ctx, "father", 3); err != nil {
		t.Fatalf("UpsertTokenDF: %v", err)
	}
	df, err := s.GetTokenDF(ctx, "father")
	if err != nil {
		t.Fatalf("GetTokenDF: %v", err)
	}
	if df != 3 {
		t.Errorf("expected df 3, got %d", df)
	}

	// Unknown tokens report zero without error.
	df, err = s.GetTokenDF(ctx, "unknown")
	if err != nil {
		t.Fatalf("GetTokenDF: %v", err)
	}
	if df != 0 {
		t.Errorf("expected df 0 for unknown token, got %d", df)
	}

	if err := s.UpsertTokenDF(ctx, "father", 0); err != nil {
		t.Fatalf("UpsertTokenDF: %v", err)
	}
	df, _ = s.GetTokenDF(ctx, "father")
	if df != 0 {
		t.Errorf("expected zero df to clear the token, got %d", df)
	}
}

func TestIncPair_SymmetricAndSelfSkip(t *testing.T) {
	ctx := context.Background()
	s := New()

	if err := s.IncPair(ctx, "john", "father"); err != nil {
		t.Fatalf("IncPair: %v", err)
	}
	if err := s.IncPair(ctx, "father", "john"); err != nil {
		t.Fatalf("IncPair: %v", err)
	}
	if err := s.IncPair(ctx, "john", "john"); err != nil {
		t.Fatalf("IncPair self: %v", err)
	}
	if err := s.IncPair(ctx, "john", ""); err != nil {
		t.Fatalf("IncPair empty: %v", err)
	}

	neighbors, err := s.TopNeighbors(ctx, "john", 5)
	if err != nil {
		t.Fatalf("TopNeighbors: %v", err)
	}
	if len(neighbors) != 1 {
		t.Fatalf("expected 1 neighbor, got %d: %v", len(neighbors), neighbors)
	}
	if neighbors[0].Token != "father" || neighbors[0].PMI != 2 {
		t.Errorf("expected father with count 2, got %v", neighbors[0])
	}
}

func TestTopNeighbors_OrderAndLimit(t *testing.T) {
	ctx := context.Background()
	s := New()

	for i := 0; i < 3; i++ {
		if err := s.IncPair(ctx, "john", "father"); err != nil {
			t.Fatalf("IncPair: %v", err)
		}
	}
	if err := s.IncPair(ctx, "john", "mary"); err != nil {
		t.Fatalf("IncPair: %v", err)
	}
	if err := s.IncPair(ctx, "john", "alice"); err != nil {
		t.Fatalf("IncPair: %v", err)
	}

	neighbors, err := s.TopNeighbors(ctx, "john", 5)
	if err != nil {
		t.Fatalf("TopNeighbors: %v", err)
	}
	if len(neighbors) != 3 {
		t.Fatalf("expected 3 neighbors, got %d", len(neighbors))
	}
	if neighbors[0].Token != "father" {
		t.Errorf("expected father first, got %q", neighbors[0].Token)
	}
	// Equal counts fall back to token order.
	if neighbors[1].Token != "alice" || neighbors[2].Token != "mary" {
		t.Errorf("expected alice then mary on the tie, got %v", neighbors)
	}

	capped, err := s.TopNeighbors(ctx, "john", 1)
	if err != nil {
		t.Fatalf("TopNeighbors: %v", err)
	}
	if len(capped) != 1 || capped[0].Token != "father" {
		t.Errorf("expected only father with k=1, got %v", capped)
	}
}

func TestResetStats_ClearsCounts(t *testing.T) {
	ctx := context.Background()
	s := New()

	if err := s.UpsertTokenDF(ctx, "father", 2); err != nil {
		t.Fatalf("UpsertTokenDF: %v", err)
	}
	if err := s.IncPair(ctx, "john", "father"); err != nil {
		t.Fatalf("IncPair: %v", err)
	}
	if _, err := s.UpsertEntry(ctx, corpus.Entry{Statement: "father(john, mary)", Kind: corpus.KindFact}); err != nil {
		t.Fatalf("UpsertEntry: %v", err)
	}

	if err := s.ResetStats(ctx); err != nil {
		t.Fatalf("ResetStats: %v", err)
	}

	df, _ := s.GetTokenDF(ctx, "father")
	if df != 0 {
		t.Errorf("expected df cleared, got %d", df)
	}
	neighbors, _ := s.TopNeighbors(ctx, "john", 5)
	if len(neighbors) != 0 {
		t.Errorf("expected no neighbors after reset, got %v", neighbors)
	}

	// Entries survive a stats reset.
	all, _ := s.AllEntries(ctx)
	if len(all) != 1 {
		t.Errorf("expected the entry to survive the reset, got %d", len(all))
	}
}

func TestStats_Counts(t *testing.T) {
	ctx := context.Background()
	s := New()

	for _, e := range []corpus.Entry{
		{Statement: "father(john, mary)", Kind: corpus.KindFact, Predicate: "father"},
		{Statement: "father(john, tom)", Kind: corpus.KindFact, Predicate: "father"},
		{Statement: "parent(?X, ?Y) :- father(?X, ?Y)", Kind: corpus.KindRule, Predicate: "parent"},
	} {
		if _, err := s.UpsertEntry(ctx, e); err != nil {
			t.Fatalf("UpsertEntry: %v", err)
		}
	}
	if err := s.UpsertTokenDF(ctx, "father", 2); err != nil {
		t.Fatalf("UpsertTokenDF: %v", err)
	}

	stats, err := s.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.Entries != 3 || stats.Facts != 2 || stats.Rules != 1 || stats.Tokens != 1 {
		t.Errorf("unexpected stats: %+v", stats)
	}
	if stats.Predicates["father"] != 2 || stats.Predicates["parent"] != 1 {
		t.Errorf("unexpected predicate counts: %v", stats.Predicates)
	}
}
