package pubgarden

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a requested entry or build does not exist.
var ErrNotFound = errors.New("pubgarden: not found")

// Store wraps a SQLite database holding the latest build: its entries and its
// route table. The server reads from here instead of rebuilding per request.
type Store struct {
	db *sql.DB
}

// NewStore opens (or creates) the SQLite database at path, ensures the data
// directory exists, and creates the schema.
func NewStore(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// WAL lets the server read while a watch rebuild writes.
	if _, err := db.Exec(`
		PRAGMA journal_mode=WAL;
		PRAGMA busy_timeout=5000;
		PRAGMA synchronous=NORMAL;
	`); err != nil {
		db.Close()
		return nil, err
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(4)
	s := &Store{db: db}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) ensureSchema() error {
	_, err := s.db.Exec(`
CREATE TABLE IF NOT EXISTS builds (
    id TEXT PRIMARY KEY,
    mode TEXT NOT NULL,
    started_at TEXT NOT NULL,
    route_count INTEGER NOT NULL,
    diagnostics TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS entries (
    collection TEXT NOT NULL,
    id TEXT NOT NULL,
    title TEXT NOT NULL,
    source_path TEXT NOT NULL,
    fields TEXT NOT NULL,
    refs TEXT NOT NULL,
    body TEXT NOT NULL,
    synthetic INTEGER NOT NULL DEFAULT 0,
    PRIMARY KEY (collection, id)
);
CREATE TABLE IF NOT EXISTS routes (
    position INTEGER PRIMARY KEY,
    path TEXT NOT NULL,
    name TEXT NOT NULL,
    page TEXT NOT NULL,
    collection TEXT NOT NULL,
    entry_id TEXT NOT NULL,
    meta TEXT NOT NULL
);
`)
	return err
}

// SaveBuild replaces the stored entries and routes with those of res in one
// transaction, so readers never see half a build.
func (s *Store) SaveBuild(ctx context.Context, res *BuildResult) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, stmt := range []string{`DELETE FROM entries`, `DELETE FROM routes`} {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}

	for _, name := range sortedKeys(res.Collections) {
		for _, e := range res.Collections[name].Entries() {
			fields, err := json.Marshal(e.Fields)
			if err != nil {
				return fmt.Errorf("pubgarden: encode fields of %s %q: %w", name, e.ID, err)
			}
			refs, err := json.Marshal(e.Refs)
			if err != nil {
				return err
			}
			synthetic := 0
			if e.Synthetic {
				synthetic = 1
			}
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO entries (collection, id, title, source_path, fields, refs, body, synthetic) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
				name, e.ID, e.Title, e.SourcePath, string(fields), string(refs), e.Body, synthetic); err != nil {
				return err
			}
		}
	}

	for i, r := range res.Routes.Routes {
		meta, err := json.Marshal(r.Meta)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO routes (position, path, name, page, collection, entry_id, meta) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			i, r.Path, r.Name, r.Page, r.Collection, r.EntryID, string(meta)); err != nil {
			return err
		}
	}

	diags, err := json.Marshal(res.Diagnostics)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO builds (id, mode, started_at, route_count, diagnostics) VALUES (?, ?, ?, ?, ?)`,
		res.ID, string(res.Mode), res.StartedAt.UTC().Format(time.RFC3339Nano), res.Routes.Len(), string(diags)); err != nil {
		return err
	}
	return tx.Commit()
}

// BuildInfo summarizes a stored build.
type BuildInfo struct {
	ID         string
	Mode       Mode
	StartedAt  time.Time
	RouteCount int
}

// LatestBuild returns the most recently started build.
func (s *Store) LatestBuild(ctx context.Context) (BuildInfo, error) {
	var info BuildInfo
	var mode, started string
	err := s.db.QueryRowContext(ctx, `SELECT id, mode, started_at, route_count FROM builds ORDER BY started_at DESC LIMIT 1`).
		Scan(&info.ID, &mode, &started, &info.RouteCount)
	if errors.Is(err, sql.ErrNoRows) {
		return BuildInfo{}, ErrNotFound
	}
	if err != nil {
		return BuildInfo{}, err
	}
	info.Mode = Mode(mode)
	info.StartedAt, _ = time.Parse(time.RFC3339Nano, started)
	return info, nil
}

// LoadRoutes reads the stored route table in its generated order.
func (s *Store) LoadRoutes(ctx context.Context) (*RouteTable, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT path, name, page, collection, entry_id, meta FROM routes ORDER BY position`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var routes []Route
	for rows.Next() {
		var r Route
		var meta string
		if err := rows.Scan(&r.Path, &r.Name, &r.Page, &r.Collection, &r.EntryID, &meta); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(meta), &r.Meta); err != nil {
			return nil, err
		}
		routes = append(routes, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return NewRouteTable(routes), nil
}

// GetEntry returns a single entry.
func (s *Store) GetEntry(ctx context.Context, collection, id string) (Entry, error) {
	row := s.db.QueryRowContext(ctx, `SELECT collection, id, title, source_path, fields, refs, body, synthetic FROM entries WHERE collection = ? AND id = ?`, collection, id)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, ErrNotFound
	}
	return e, err
}

// ListEntries returns the entries of a collection ordered by id.
func (s *Store) ListEntries(ctx context.Context, collection string) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT collection, id, title, source_path, fields, refs, body, synthetic FROM entries WHERE collection = ? ORDER BY id`, collection)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (Entry, error) {
	var e Entry
	var fields, refs string
	var synthetic int
	if err := row.Scan(&e.Collection, &e.ID, &e.Title, &e.SourcePath, &fields, &refs, &e.Body, &synthetic); err != nil {
		return Entry{}, err
	}
	if err := json.Unmarshal([]byte(fields), &e.Fields); err != nil {
		return Entry{}, fmt.Errorf("pubgarden: decode fields of %s %q: %w", e.Collection, e.ID, err)
	}
	if err := json.Unmarshal([]byte(refs), &e.Refs); err != nil {
		return Entry{}, err
	}
	e.Synthetic = synthetic == 1
	return e, nil
}
