package index

import (
	"database/sql"
	"fmt"
	"strings"
	"unicode"
)

const defaultSearchLimit = 20

// searchTerms splits a free-text query into words. Punctuation separates
// words so that input like "don't" or "c++" never reaches the query parser.
func searchTerms(query string) []string {
	return strings.FieldsFunc(query, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func scanResults(rows *sql.Rows) ([]SearchResult, error) {
	defer rows.Close()

	var out []SearchResult
	for rows.Next() {
		var r SearchResult
		if err := rows.Scan(&r.Path, &r.Name, &r.Title, &r.Snippet); err != nil {
			return nil, fmt.Errorf("index: scan result: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
