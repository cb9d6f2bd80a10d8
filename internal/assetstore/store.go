// Package assetstore persists image payloads under caller-chosen identifiers
// and keeps small pieces of local editor state.
package assetstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/starford/dysedit/internal/apperr"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS assets (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL DEFAULT '',
	mime       TEXT NOT NULL DEFAULT '',
	data       BLOB NOT NULL,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS kv (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

const durabilityKey = "durability"

// Payload is an image's original bytes with its name and media type.
type Payload struct {
	Name string
	MIME string
	Data []byte
}

// Store is the SQLite-backed binary asset store.
type Store struct {
	conn   *sql.DB
	memory bool
}

// Open opens (or creates) the store at dsn and applies the schema.
func Open(dsn string) (*Store, error) {
	memory := dsn == ":memory:" || strings.Contains(dsn, "mode=memory")
	conn, err := sql.Open("sqlite3", withParams(dsn, "_journal_mode=WAL&_busy_timeout=5000"))
	if err != nil {
		return nil, fmt.Errorf("assetstore: open db: %w", err)
	}
	if memory {
		conn.SetMaxOpenConns(1)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("assetstore: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("assetstore: apply schema: %w", err)
	}
	return &Store{conn: conn, memory: memory}, nil
}

// withParams appends connection parameters to dsn, which may already carry
// a query string.
func withParams(dsn, params string) string {
	if strings.Contains(dsn, "?") {
		return dsn + "&" + params
	}
	return dsn + "?" + params
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.conn.Close()
}

// Persist stores p under id, overwriting any previous payload.
func (s *Store) Persist(ctx context.Context, id string, p Payload) error {
	if p.MIME == "" {
		p.MIME = DetectMIME(p.Data, p.Name)
	}
	_, err := s.conn.ExecContext(ctx, `
		INSERT INTO assets (id, name, mime, data, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			mime = excluded.mime,
			data = excluded.data
	`, id, p.Name, p.MIME, p.Data, time.Now().UTC())
	if err != nil {
		return &apperr.StorageError{Op: apperr.OpWrite, ID: id, Err: err}
	}
	return nil
}

// Load returns the payload stored under id.
func (s *Store) Load(ctx context.Context, id string) (Payload, error) {
	var p Payload
	err := s.conn.QueryRowContext(ctx, `SELECT name, mime, data FROM assets WHERE id = ?`, id).
		Scan(&p.Name, &p.MIME, &p.Data)
	if errors.Is(err, sql.ErrNoRows) {
		return Payload{}, fmt.Errorf("assetstore: %s: %w", id, apperr.ErrNotFound)
	}
	if err != nil {
		return Payload{}, &apperr.StorageError{Op: apperr.OpRead, ID: id, Err: err}
	}
	return p, nil
}

// Resolve loads the payload under id and issues a fresh display handle for
// it in table.
func (s *Store) Resolve(ctx context.Context, id string, table *HandleTable) (string, error) {
	p, err := s.Load(ctx, id)
	if err != nil {
		return "", err
	}
	return table.Issue(p), nil
}

// Remove deletes id. Missing keys are not an error.
func (s *Store) Remove(ctx context.Context, id string) error {
	if _, err := s.conn.ExecContext(ctx, `DELETE FROM assets WHERE id = ?`, id); err != nil {
		return &apperr.StorageError{Op: apperr.OpWrite, ID: id, Err: err}
	}
	return nil
}

// IDs lists every stored identifier.
func (s *Store) IDs(ctx context.Context) ([]string, error) {
	rows, err := s.conn.QueryContext(ctx, `SELECT id FROM assets ORDER BY created_at`)
	if err != nil {
		return nil, &apperr.StorageError{Op: apperr.OpRead, Err: err}
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// Prune removes every asset whose identifier is not in keep and returns how
// many were removed.
func (s *Store) Prune(ctx context.Context, keep map[string]struct{}) (int, error) {
	ids, err := s.IDs(ctx)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, id := range ids {
		if _, ok := keep[id]; ok {
			continue
		}
		if err := s.Remove(ctx, id); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

// RequestDurability asks for the store to survive storage pressure. It
// reports whether the request was granted; in-memory stores never are.
func (s *Store) RequestDurability(ctx context.Context) bool {
	if s.memory {
		return false
	}
	var granted bool
	if err := s.Get(ctx, durabilityKey, &granted); err == nil && granted {
		return true
	}
	return s.Put(ctx, durabilityKey, true) == nil
}

// Get decodes the JSON value stored under key into v.
func (s *Store) Get(ctx context.Context, key string, v any) error {
	var raw string
	err := s.conn.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("assetstore: key %s: %w", key, apperr.ErrNotFound)
	}
	if err != nil {
		return &apperr.StorageError{Op: apperr.OpRead, ID: key, Err: err}
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return fmt.Errorf("assetstore: decode %s: %w", key, err)
	}
	return nil
}

// Put stores v as JSON under key.
func (s *Store) Put(ctx context.Context, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("assetstore: encode %s: %w", key, err)
	}
	_, err = s.conn.ExecContext(ctx, `
		INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, key, string(raw), time.Now().UTC())
	if err != nil {
		return &apperr.StorageError{Op: apperr.OpWrite, ID: key, Err: err}
	}
	return nil
}
