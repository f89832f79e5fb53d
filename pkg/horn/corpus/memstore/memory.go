package memstore

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cognicore/horn/pkg/horn/corpus"
	"github.com/cognicore/horn/pkg/horn/internalerr"
)

// Store is an in-memory implementation of corpus.Store for tests and
// offline examples.
type Store struct {
	mu         sync.RWMutex
	nextID     int64
	entries    map[int64]corpus.Entry
	byText     map[string]int64
	tokenDF    map[string]int64
	pairCounts map[string]int64
}

// New creates a new in-memory store.
func New() *Store {
	return &Store{
		nextID:     1,
		entries:    make(map[int64]corpus.Entry),
		byText:     make(map[string]int64),
		tokenDF:    make(map[string]int64),
		pairCounts: make(map[string]int64),
	}
}

// Close implements corpus.Store.
func (s *Store) Close() error { return nil }

// UpsertEntry inserts or updates an entry, keyed by statement text.
func (s *Store) UpsertEntry(ctx context.Context, e corpus.Entry) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if strings.TrimSpace(e.Statement) == "" {
		return 0, fmt.Errorf("%w: empty statement", internalerr.ErrInvalidInput)
	}

	if existingID, ok := s.byText[e.Statement]; ok {
		e.ID = existingID
		e.AddedAt = s.entries[existingID].AddedAt
	} else {
		e.ID = s.nextID
		s.nextID++
		if e.AddedAt.IsZero() {
			e.AddedAt = time.Now()
		}
		s.byText[e.Statement] = e.ID
	}

	s.entries[e.ID] = copyEntry(e)
	return e.ID, nil
}

// GetEntry returns an entry by ID.
func (s *Store) GetEntry(ctx context.Context, id int64) (corpus.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if e, ok := s.entries[id]; ok {
		return copyEntry(e), nil
	}
	return corpus.Entry{}, fmt.Errorf("entry %d: %w", id, internalerr.ErrNotFound)
}

// GetEntriesByTokens returns entries whose tokens overlap the given
// tokens, most overlap first.
func (s *Store) GetEntriesByTokens(ctx context.Context, tokens []string, limit int) ([]corpus.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = corpus.DefaultRetrieveLimit
	}

	tokenSet := make(map[string]struct{}, len(tokens))
	for _, tok := range tokens {
		if tok == "" {
			continue
		}
		tokenSet[tok] = struct{}{}
	}
	if len(tokenSet) == 0 {
		return nil, nil
	}

	type scored struct {
		entry corpus.Entry
		hits  int
	}

	var results []scored
	for _, e := range s.entries {
		hits := overlap(e.Tokens, tokenSet)
		if hits > 0 {
			results = append(results, scored{entry: copyEntry(e), hits: hits})
		}
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].hits != results[j].hits {
			return results[i].hits > results[j].hits
		}
		return results[i].entry.ID < results[j].entry.ID
	})

	if len(results) > limit {
		results = results[:limit]
	}

	out := make([]corpus.Entry, len(results))
	for i, res := range results {
		out[i] = res.entry
	}
	return out, nil
}

// AllEntries returns every entry in insertion order.
func (s *Store) AllEntries(ctx context.Context) ([]corpus.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]corpus.Entry, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, copyEntry(e))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// DeleteBySource removes every entry with the given source.
func (s *Store) DeleteBySource(ctx context.Context, source string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var deleted int64
	for id, e := range s.entries {
		if e.Source == source {
			delete(s.entries, id)
			delete(s.byText, e.Statement)
			deleted++
		}
	}
	return deleted, nil
}

// UpsertTokenDF sets the description frequency for a token.
func (s *Store) UpsertTokenDF(ctx context.Context, token string, df int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if token == "" {
		return nil
	}
	if df <= 0 {
		delete(s.tokenDF, token)
		return nil
	}
	s.tokenDF[token] = df
	return nil
}

// GetTokenDF returns the description frequency for a token.
func (s *Store) GetTokenDF(ctx context.Context, token string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tokenDF[token], nil
}

// IncPair increments the co-occurrence count for a pair.
func (s *Store) IncPair(ctx context.Context, t1, t2 string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := pairKey(t1, t2)
	if key == "" {
		return nil
	}
	s.pairCounts[key]++
	return nil
}

// TopNeighbors returns top pairs by raw co-occurrence count.
func (s *Store) TopNeighbors(ctx context.Context, token string, k int) ([]corpus.Neighbor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if k <= 0 {
		k = 10
	}

	type neighborCount struct {
		token string
		count int64
	}

	var candidates []neighborCount
	for key, count := range s.pairCounts {
		tokens := strings.Split(key, "|")
		if len(tokens) != 2 {
			continue
		}
		if tokens[0] == token {
			candidates = append(candidates, neighborCount{token: tokens[1], count: count})
		} else if tokens[1] == token {
			candidates = append(candidates, neighborCount{token: tokens[0], count: count})
		}
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].count != candidates[j].count {
			return candidates[i].count > candidates[j].count
		}
		return candidates[i].token < candidates[j].token
	})
	if len(candidates) > k {
		candidates = candidates[:k]
	}

	neighbors := make([]corpus.Neighbor, len(candidates))
	for i, cand := range candidates {
		neighbors[i] = corpus.Neighbor{
			Token: cand.token,
			PMI:   float64(cand.count),
		}
	}
	return neighbors, nil
}

// ResetStats clears token frequencies and pair counts.
func (s *Store) ResetStats(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokenDF = make(map[string]int64)
	s.pairCounts = make(map[string]int64)
	return nil
}

// Stats reports totals and per-kind and per-predicate counts.
func (s *Store) Stats(ctx context.Context) (corpus.Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := corpus.Stats{
		Entries:    int64(len(s.entries)),
		Tokens:     int64(len(s.tokenDF)),
		Predicates: make(map[string]int64),
	}
	for _, e := range s.entries {
		switch e.Kind {
		case corpus.KindRule:
			st.Rules++
		default:
			st.Facts++
		}
		st.Predicates[e.Predicate]++
	}
	return st, nil
}

func overlap(tokens []string, set map[string]struct{}) int {
	seen := make(map[string]struct{}, len(tokens))
	hits := 0
	for _, tok := range tokens {
		if _, dup := seen[tok]; dup {
			continue
		}
		seen[tok] = struct{}{}
		if _, ok := set[tok]; ok {
			hits++
		}
	}
	return hits
}

func copyEntry(e corpus.Entry) corpus.Entry {
	tokens := make([]string, len(e.Tokens))
	copy(tokens, e.Tokens)
	e.Tokens = tokens
	return e
}

func pairKey(a, b string) string {
	if a == "" || b == "" {
		return ""
	}
	if a == b {
		return ""
	}
	if a > b {
		a, b = b, a
	}
	return a + "|" + b
}
