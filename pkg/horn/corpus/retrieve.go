package corpus

import (
	"context"

	"github.com/cognicore/horn/pkg/horn/ingest"
)

// DefaultRetrieveLimit caps retrieval when the caller passes no limit.
const DefaultRetrieveLimit = 15

// RetrieveStore is the slice of the store retrieval depends on.
type RetrieveStore interface {
	GetEntriesByTokens(ctx context.Context, tokens []string, limit int) ([]Entry, error)
	TopNeighbors(ctx context.Context, token string, k int) ([]Neighbor, error)
}

// Retriever fetches candidate statements for a question. Question tokens
// are matched against description tokens directly, then expanded through
// each token's top PMI neighbors for recall.
type Retriever struct {
	Store           RetrieveStore
	Tokenizer       *ingest.Tokenizer
	ExpandNeighbors int // neighbors per token; 0 disables expansion
}

// Retrieve returns up to limit entries ranked by token overlap, direct
// matches before expansion-only matches.
func (r *Retriever) Retrieve(ctx context.Context, question string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = DefaultRetrieveLimit
	}

	tokens := r.Tokenizer.Tokenize(question)
	if len(tokens) == 0 {
		return nil, nil
	}

	direct, err := r.Store.GetEntriesByTokens(ctx, tokens, limit)
	if err != nil {
		return nil, err
	}

	if r.ExpandNeighbors <= 0 {
		return direct, nil
	}

	expanded, err := r.expandTokens(ctx, tokens)
	if err != nil {
		return nil, err
	}
	if len(expanded) == len(tokens) {
		return direct, nil
	}

	wider, err := r.Store.GetEntriesByTokens(ctx, expanded, limit)
	if err != nil {
		return nil, err
	}

	return mergeEntries(direct, wider, limit), nil
}

// expandTokens appends each token's top PMI neighbors, skipping
// duplicates. The original tokens keep their leading positions.
func (r *Retriever) expandTokens(ctx context.Context, tokens []string) ([]string, error) {
	seen := make(map[string]struct{}, len(tokens))
	expanded := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if _, ok := seen[tok]; ok {
			continue
		}
		seen[tok] = struct{}{}
		expanded = append(expanded, tok)
	}

	for _, tok := range tokens {
		neighbors, err := r.Store.TopNeighbors(ctx, tok, r.ExpandNeighbors)
		if err != nil {
			return nil, err
		}
		for _, n := range neighbors {
			if _, ok := seen[n.Token]; ok {
				continue
			}
			seen[n.Token] = struct{}{}
			expanded = append(expanded, n.Token)
		}
	}
	return expanded, nil
}

func mergeEntries(first, second []Entry, limit int) []Entry {
	seen := make(map[int64]struct{}, len(first))
	merged := make([]Entry, 0, len(first))
	for _, e := range first {
		if _, ok := seen[e.ID]; ok {
			continue
		}
		seen[e.ID] = struct{}{}
		merged = append(merged, e)
	}
	for _, e := range second {
		if _, ok := seen[e.ID]; ok {
			continue
		}
		seen[e.ID] = struct{}{}
		merged = append(merged, e)
	}
	if len(merged) > limit {
		merged = merged[:limit]
	}
	return merged
}
