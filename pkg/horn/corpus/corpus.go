package corpus

import (
	"context"
	"time"
)

// Entry kinds.
const (
	KindFact = "fact"
	KindRule = "rule"
)

// Entry is one stored Prolog statement with its natural-language
// description and origin. Statement holds the canonical rendering and is
// the dedup identity across re-indexing runs.
type Entry struct {
	ID          int64
	Statement   string
	Kind        string // "fact" or "rule"
	Predicate   string // fact predicate, or rule conclusion predicate
	Description string
	Source      string
	Tokens      []string // description tokens, the retrieval index
	AddedAt     time.Time
}

// Store is the main interface for persisting and querying the statement
// corpus and the token statistics retrieval runs on.
type Store interface {
	Close() error

	// Entries
	UpsertEntry(ctx context.Context, e Entry) (int64, error)
	GetEntry(ctx context.Context, id int64) (Entry, error)
	GetEntriesByTokens(ctx context.Context, tokens []string, limit int) ([]Entry, error)
	AllEntries(ctx context.Context) ([]Entry, error)
	DeleteBySource(ctx context.Context, source string) (int64, error)

	// Tokens & Counts
	UpsertTokenDF(ctx context.Context, token string, df int64) error
	GetTokenDF(ctx context.Context, token string) (int64, error)
	IncPair(ctx context.Context, t1, t2 string) error
	TopNeighbors(ctx context.Context, token string, k int) ([]Neighbor, error)
	ResetStats(ctx context.Context) error

	Stats(ctx context.Context) (Stats, error)
}

// Neighbor represents a token's PMI neighbor
type Neighbor struct {
	Token string
	PMI   float64
}

// Stats summarizes corpus contents.
type Stats struct {
	Entries    int64
	Facts      int64
	Rules      int64
	Tokens     int64
	Predicates map[string]int64
}
