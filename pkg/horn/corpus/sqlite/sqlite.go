package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/cognicore/horn/pkg/horn/corpus"
	"github.com/cognicore/horn/pkg/horn/internalerr"
	"github.com/cognicore/horn/pkg/horn/pmi"
)

// sqliteStore implements the corpus.Store interface using SQLite
type sqliteStore struct {
	db     *sql.DB
	pmiCfg pmi.Config
	calc   *pmi.Calculator
}

// OpenSQLite opens a SQLite-backed corpus with WAL mode enabled.
// An optional pmi.Config can be passed to control neighbor scoring;
// if omitted, pmi.DefaultConfig() is used.
func OpenSQLite(ctx context.Context, path string, cfg ...pmi.Config) (corpus.Store, error) {
	c := pmi.DefaultConfig()
	if len(cfg) > 0 {
		c = cfg[0]
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, err
	}

	// Enable foreign keys
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, err
	}

	// Initialize schema
	if err := initSchema(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	return &sqliteStore{
		db:     db,
		pmiCfg: c,
		calc:   pmi.NewCalculatorFromConfig(c),
	}, nil
}

// Close closes the database connection
func (s *sqliteStore) Close() error {
	return s.db.Close()
}

// initSchema creates tables if they don't exist
func initSchema(ctx context.Context, db *sql.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS entries (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	statement TEXT UNIQUE NOT NULL,
	kind TEXT NOT NULL,
	predicate TEXT NOT NULL,
	description TEXT,
	source TEXT,
	added_at TEXT
);

CREATE INDEX IF NOT EXISTS idx_entries_predicate ON entries(predicate);
CREATE INDEX IF NOT EXISTS idx_entries_source ON entries(source);

CREATE TABLE IF NOT EXISTS entry_tokens (
	entry_id INTEGER NOT NULL,
	token TEXT NOT NULL,
	UNIQUE(entry_id, token),
	FOREIGN KEY(entry_id) REFERENCES entries(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_entry_tokens_token ON entry_tokens(token);

CREATE TABLE IF NOT EXISTS token_df (
	token TEXT PRIMARY KEY,
	df INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS token_pairs (
	t1 TEXT NOT NULL,
	t2 TEXT NOT NULL,
	count INTEGER NOT NULL,
	PRIMARY KEY(t1, t2)
);
`

	_, err := db.ExecContext(ctx, schema)
	return err
}

// UpsertEntry inserts or updates an entry, keyed by statement text.
// The first-seen added_at timestamp is kept on conflict.
func (s *sqliteStore) UpsertEntry(ctx context.Context, e corpus.Entry) (int64, error) {
	if strings.TrimSpace(e.Statement) == "" {
		return 0, fmt.Errorf("%w: empty statement", internalerr.ErrInvalidInput)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	addedAt := e.AddedAt
	if addedAt.IsZero() {
		addedAt = time.Now()
	}

	const stmt = `
INSERT INTO entries (statement, kind, predicate, description, source, added_at)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT(statement) DO UPDATE SET
	kind=excluded.kind,
	predicate=excluded.predicate,
	description=excluded.description,
	source=excluded.source
RETURNING id;
`

	var entryID int64
	err = tx.QueryRowContext(
		ctx,
		stmt,
		e.Statement,
		e.Kind,
		e.Predicate,
		e.Description,
		e.Source,
		addedAt.UTC().Format(time.RFC3339),
	).Scan(&entryID)
	if err != nil {
		return 0, err
	}

	if err := replaceEntryTokens(ctx, tx, entryID, uniqueStrings(e.Tokens)); err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return entryID, nil
}

func replaceEntryTokens(ctx context.Context, tx *sql.Tx, entryID int64, tokens []string) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM entry_tokens WHERE entry_id=?`, entryID); err != nil {
		return err
	}
	if len(tokens) == 0 {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO entry_tokens (entry_id, token) VALUES (?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, tok := range tokens {
		if tok == "" {
			continue
		}
		if _, err := stmt.ExecContext(ctx, entryID, tok); err != nil {
			return err
		}
	}
	return nil
}

// GetEntry retrieves an entry by ID
func (s *sqliteStore) GetEntry(ctx context.Context, id int64) (corpus.Entry, error) {
	return s.loadEntry(ctx, id)
}

// GetEntriesByTokens retrieves entries whose description tokens overlap
// the given tokens, most overlap first.
func (s *sqliteStore) GetEntriesByTokens(ctx context.Context, tokens []string, limit int) ([]corpus.Entry, error) {
	unique := uniqueStrings(tokens)
	if len(unique) == 0 {
		return nil, nil
	}
	if limit <= 0 {
		limit = corpus.DefaultRetrieveLimit
	}

	placeholders := strings.Repeat("?,", len(unique))
	placeholders = strings.TrimSuffix(placeholders, ",")

	args := make([]interface{}, 0, len(unique)+1)
	for _, tok := range unique {
		args = append(args, tok)
	}
	args = append(args, limit)

	query := fmt.Sprintf(`
SELECT e.id
FROM entries e
JOIN entry_tokens et ON e.id = et.entry_id
WHERE et.token IN (%s)
GROUP BY e.id
ORDER BY COUNT(DISTINCT et.token) DESC, e.id ASC
LIMIT ?;
`, placeholders)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	results := make([]corpus.Entry, 0, len(ids))
	for _, id := range ids {
		entry, err := s.loadEntry(ctx, id)
		if err != nil {
			return nil, err
		}
		results = append(results, entry)
	}
	return results, nil
}

// AllEntries returns every entry in insertion order.
func (s *sqliteStore) AllEntries(ctx context.Context) ([]corpus.Entry, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM entries ORDER BY id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	results := make([]corpus.Entry, 0, len(ids))
	for _, id := range ids {
		entry, err := s.loadEntry(ctx, id)
		if err != nil {
			return nil, err
		}
		results = append(results, entry)
	}
	return results, nil
}

// DeleteBySource removes every entry harvested or indexed from a source.
func (s *sqliteStore) DeleteBySource(ctx context.Context, source string) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM entries WHERE source=?`, source)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// UpsertTokenDF updates the description frequency for a token
func (s *sqliteStore) UpsertTokenDF(ctx context.Context, token string, df int64) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO token_df (token, df) VALUES (?, ?)
ON CONFLICT(token) DO UPDATE SET df=excluded.df;
`, token, df)
	return err
}

// GetTokenDF retrieves the description frequency for a token
func (s *sqliteStore) GetTokenDF(ctx context.Context, token string) (int64, error) {
	var df int64
	err := s.db.QueryRowContext(ctx, `SELECT df FROM token_df WHERE token=?`, token).Scan(&df)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	return df, err
}

// IncPair increments the co-occurrence count for a token pair
func (s *sqliteStore) IncPair(ctx context.Context, t1, t2 string) error {
	if t1 == t2 {
		return nil
	}
	if t1 > t2 {
		t1, t2 = t2, t1
	}
	_, err := s.db.ExecContext(ctx, `
INSERT INTO token_pairs (t1, t2, count) VALUES (?, ?, 1)
ON CONFLICT(t1, t2) DO UPDATE SET count=count+1;
`, t1, t2)
	return err
}

// TopNeighbors returns the top K neighbors ranked by PMI score for a token.
func (s *sqliteStore) TopNeighbors(ctx context.Context, token string, k int) ([]corpus.Neighbor, error) {
	if k <= 0 {
		k = 10
	}

	total, err := s.totalEntries(ctx)
	if err != nil || total == 0 {
		return nil, err
	}

	dfToken, err := s.GetTokenDF(ctx, token)
	if err != nil || dfToken == 0 {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
SELECT
	CASE WHEN t1 = ? THEN t2 ELSE t1 END AS neighbor,
	count
FROM token_pairs
WHERE t1 = ? OR t2 = ?;
`, token, token, token)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	type raw struct {
		token string
		count int64
	}
	var pairs []raw
	for rows.Next() {
		var r raw
		if err := rows.Scan(&r.token, &r.count); err != nil {
			return nil, err
		}
		pairs = append(pairs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var neighbors []corpus.Neighbor
	for _, r := range pairs {
		dfOther, err := s.GetTokenDF(ctx, r.token)
		if err != nil {
			return nil, err
		}
		if dfOther < s.pmiCfg.MinDF {
			continue // PMI over-rewards low-frequency terms
		}
		score := s.calc.Score(r.count, dfToken, dfOther, total, s.pmiCfg.UseNPMI)
		neighbors = append(neighbors, corpus.Neighbor{Token: r.token, PMI: score})
	}

	sort.Slice(neighbors, func(i, j int) bool {
		if neighbors[i].PMI != neighbors[j].PMI {
			return neighbors[i].PMI > neighbors[j].PMI
		}
		return neighbors[i].Token < neighbors[j].Token
	})
	if len(neighbors) > k {
		neighbors = neighbors[:k]
	}
	return neighbors, nil
}

// ResetStats clears token frequencies and pair counts ahead of a rebuild.
func (s *sqliteStore) ResetStats(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM token_df`); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM token_pairs`); err != nil {
		return err
	}
	return tx.Commit()
}

// Stats reports totals and per-kind and per-predicate counts.
func (s *sqliteStore) Stats(ctx context.Context) (corpus.Stats, error) {
	var st corpus.Stats

	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM entries`).Scan(&st.Entries); err != nil {
		return st, err
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM entries WHERE kind=?`, corpus.KindFact).Scan(&st.Facts); err != nil {
		return st, err
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM entries WHERE kind=?`, corpus.KindRule).Scan(&st.Rules); err != nil {
		return st, err
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM token_df`).Scan(&st.Tokens); err != nil {
		return st, err
	}

	rows, err := s.db.QueryContext(ctx, `SELECT predicate, COUNT(*) FROM entries GROUP BY predicate`)
	if err != nil {
		return st, err
	}
	defer rows.Close()

	st.Predicates = make(map[string]int64)
	for rows.Next() {
		var pred string
		var n int64
		if err := rows.Scan(&pred, &n); err != nil {
			return st, err
		}
		st.Predicates[pred] = n
	}
	return st, rows.Err()
}

func (s *sqliteStore) loadEntry(ctx context.Context, id int64) (corpus.Entry, error) {
	var (
		entry corpus.Entry
		added string
	)
	err := s.db.QueryRowContext(ctx, `
SELECT id, statement, kind, predicate, description, source, added_at
FROM entries
WHERE id = ?;
`, id).Scan(&entry.ID, &entry.Statement, &entry.Kind, &entry.Predicate, &entry.Description, &entry.Source, &added)
	if err == sql.ErrNoRows {
		return corpus.Entry{}, fmt.Errorf("entry %d: %w", id, internalerr.ErrNotFound)
	}
	if err != nil {
		return corpus.Entry{}, err
	}

	if added != "" {
		if parsed, perr := time.Parse(time.RFC3339, added); perr == nil {
			entry.AddedAt = parsed
		}
	}

	entry.Tokens, err = s.loadStringColumn(ctx, `SELECT token FROM entry_tokens WHERE entry_id=?`, id)
	if err != nil {
		return corpus.Entry{}, err
	}

	return entry, nil
}

func (s *sqliteStore) loadStringColumn(ctx context.Context, query string, args ...interface{}) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []string
	for rows.Next() {
		var val string
		if err := rows.Scan(&val); err != nil {
			return nil, err
		}
		result = append(result, val)
	}
	return result, rows.Err()
}

func (s *sqliteStore) totalEntries(ctx context.Context) (int64, error) {
	var total int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM entries`).Scan(&total)
	return total, err
}

func uniqueStrings(in []string) []string {
	set := make(map[string]struct{}, len(in))
	var out []string
	for _, v := range in {
		if v == "" {
			continue
		}
		if _, ok := set[v]; ok {
			continue
		}
		set[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
