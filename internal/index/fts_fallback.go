//go:build !sqlite_fts5

package index

import (
	"database/sql"
	"fmt"
	"strings"
)

// Without FTS5 the plain-text body in the documents table is searched with
// LIKE.
func initFTS(_ *sql.DB) error { return nil }

func ftsUpsert(_ *sql.Tx, _, _, _ string) error { return nil }

func ftsDelete(_ *sql.Tx, _ string) {}

// Search returns documents whose title or body contains every word of
// query. Title hits come first.
func (db *DB) Search(query string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	terms := searchTerms(query)
	if len(terms) == 0 {
		return nil, nil
	}

	where := make([]string, 0, len(terms))
	args := make([]any, 0, 2*len(terms)+2)
	for _, t := range terms {
		where = append(where, `(title LIKE ? OR body LIKE ?)`)
		like := "%" + t + "%"
		args = append(args, like, like)
	}
	args = append(args, "%"+terms[0]+"%", limit)

	rows, err := db.conn.Query(`
		SELECT path, name, title, substr(body, 1, 200)
		FROM documents
		WHERE `+strings.Join(where, " AND ")+`
		ORDER BY (title LIKE ?) DESC, updated_at DESC
		LIMIT ?
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("index: search: %w", err)
	}
	return scanResults(rows)
}
