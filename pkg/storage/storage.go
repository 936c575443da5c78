package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/sw33tLie/opcheck/pkg/results"
)

const DefaultDBTimeout = 5 * time.Second

var (
	ErrNotFound    = errors.New("lookup not found")
	ErrAmbiguousID = errors.New("lookup id prefix matches more than one lookup")
)

type DB struct {
	sql *sql.DB
}

func Open(path string, timeout time.Duration) (*DB, error) {
	if timeout <= 0 {
		timeout = DefaultDBTimeout
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_time_format=sqlite", path, timeout.Milliseconds())
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}
	// Ensure schema exists for convenience.
	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS lookups (
  id          TEXT PRIMARY KEY,
  created_at  DATETIME NOT NULL,
  total       INTEGER NOT NULL,
  resolved    INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_lookups_time ON lookups(created_at);
CREATE TABLE IF NOT EXISTS lookup_results (
  lookup_id   TEXT NOT NULL REFERENCES lookups(id) ON DELETE CASCADE,
  position    INTEGER NOT NULL,
  raw         TEXT NOT NULL,
  normalized  TEXT NOT NULL,
  operator    TEXT,
  PRIMARY KEY (lookup_id, position)
);
CREATE INDEX IF NOT EXISTS idx_results_operator ON lookup_results(operator);
CREATE TABLE IF NOT EXISTS lookup_entries (
  lookup_id   TEXT NOT NULL REFERENCES lookups(id) ON DELETE CASCADE,
  position    INTEGER NOT NULL,
  number      TEXT NOT NULL,
  name        TEXT NOT NULL,
  PRIMARY KEY (lookup_id, position)
);
    `); err != nil {
		db.Close()
		return nil, err
	}
	return &DB{sql: db}, nil
}

func (d *DB) Close() error {
	if d == nil || d.sql == nil {
		return nil
	}
	return d.sql.Close()
}

// SaveLookup stores set as a new lookup and returns its id. Numbers without
// a resolved operator are stored with a NULL operator; the entries the
// lookup returned are kept verbatim so the set reloads unchanged.
func (d *DB) SaveLookup(ctx context.Context, set *results.Set) (id string, err error) {
	id = uuid.NewString()
	now := time.Now().UTC()

	tx, err := d.sql.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return "", err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	rows := set.Rows()
	resolved := 0
	for _, r := range rows {
		if r.Operator != results.UnknownOperator {
			resolved++
		}
	}

	if _, err = tx.ExecContext(ctx, `INSERT INTO lookups(id, created_at, total, resolved) VALUES(?,?,?,?)`, id, now, len(rows), resolved); err != nil {
		return "", err
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO lookup_results(lookup_id, position, raw, normalized, operator) VALUES(?,?,?,?,?)`)
	if err != nil {
		return "", err
	}
	defer stmt.Close()

	for i, r := range rows {
		op := r.Operator
		if op == results.UnknownOperator {
			op = ""
		}
		if _, err = stmt.ExecContext(ctx, id, i, r.Raw, r.Normalized, nullIfEmpty(op)); err != nil {
			return "", err
		}
	}

	entryStmt, err := tx.PrepareContext(ctx, `INSERT INTO lookup_entries(lookup_id, position, number, name) VALUES(?,?,?,?)`)
	if err != nil {
		return "", err
	}
	defer entryStmt.Close()

	for i, e := range set.Entries() {
		if _, err = entryStmt.ExecContext(ctx, id, i, e.Number, e.Name); err != nil {
			return "", err
		}
	}

	if err = tx.Commit(); err != nil {
		return "", err
	}
	return id, nil
}

// ListLookups returns the most recent N lookups, newest first.
func (d *DB) ListLookups(ctx context.Context, limit int) ([]Lookup, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := d.sql.QueryContext(ctx, "SELECT id, created_at, total, resolved FROM lookups ORDER BY created_at DESC LIMIT ?", limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Lookup
	for rows.Next() {
		var l Lookup
		if err := rows.Scan(&l.ID, &l.CreatedAt, &l.Total, &l.Resolved); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// LoadLookup rebuilds the result set of a stored lookup. idPrefix may be any
// unambiguous prefix of the lookup id.
func (d *DB) LoadLookup(ctx context.Context, idPrefix string) (Lookup, *results.Set, error) {
	var l Lookup
	if idPrefix == "" {
		return l, nil, ErrNotFound
	}

	rows, err := d.sql.QueryContext(ctx, "SELECT id, created_at, total, resolved FROM lookups WHERE substr(id, 1, length(?)) = ? LIMIT 2", idPrefix, idPrefix)
	if err != nil {
		return l, nil, err
	}
	var matches []Lookup
	for rows.Next() {
		var m Lookup
		if err := rows.Scan(&m.ID, &m.CreatedAt, &m.Total, &m.Resolved); err != nil {
			rows.Close()
			return l, nil, err
		}
		matches = append(matches, m)
	}
	if err := rows.Close(); err != nil {
		return l, nil, err
	}
	switch len(matches) {
	case 0:
		return l, nil, ErrNotFound
	case 1:
		l = matches[0]
	default:
		return l, nil, ErrAmbiguousID
	}

	resRows, err := d.sql.QueryContext(ctx, "SELECT raw, normalized, operator FROM lookup_results WHERE lookup_id = ? ORDER BY position", l.ID)
	if err != nil {
		return l, nil, err
	}
	defer resRows.Close()

	var (
		tokens   []string
		resolved []Entry
	)
	for resRows.Next() {
		var raw, normalized string
		var op sql.NullString
		if err := resRows.Scan(&raw, &normalized, &op); err != nil {
			return l, nil, err
		}
		tokens = append(tokens, raw)
		if op.Valid {
			resolved = append(resolved, Entry{Number: normalized, Name: op.String})
		}
	}
	if err := resRows.Err(); err != nil {
		return l, nil, err
	}

	entries, err := d.loadEntries(ctx, l.ID)
	if err != nil {
		return l, nil, err
	}
	// Lookups saved before entries were stored only have resolved operators.
	if entries == nil {
		entries = resolved
	}
	return l, results.NewSet(tokens, entries), nil
}

func (d *DB) loadEntries(ctx context.Context, lookupID string) ([]Entry, error) {
	rows, err := d.sql.QueryContext(ctx, "SELECT number, name FROM lookup_entries WHERE lookup_id = ? ORDER BY position", lookupID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.Number, &e.Name); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// GetStats counts stored numbers per operator across every saved lookup.
func (d *DB) GetStats(ctx context.Context) ([]OperatorStats, error) {
	query := `
		SELECT
			COALESCE(operator, ?),
			COUNT(*),
			COUNT(DISTINCT lookup_id)
		FROM
			lookup_results
		GROUP BY
			1
		ORDER BY
			2 DESC, 1;
	`
	rows, err := d.sql.QueryContext(ctx, query, results.UnknownOperator)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stats []OperatorStats
	for rows.Next() {
		var s OperatorStats
		if err := rows.Scan(&s.Operator, &s.NumberCount, &s.LookupCount); err != nil {
			return nil, err
		}
		stats = append(stats, s)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return stats, nil
}

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
