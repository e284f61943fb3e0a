package domain

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	pg_query "github.com/pganalyze/pg_query_go/v6"
)

var (
	ErrEmptyQuery     = errors.New("empty query")
	ErrNotAllowed     = errors.New("only SELECT queries can be replayed")
	ErrMultiStatement = errors.New("multiple statements are not allowed")
	ErrParseFailed    = errors.New("failed to parse SQL")
)

// WorkloadFilter decides which recorded workload queries may be replayed
// through EXPLAIN during a what-if simulation, using PostgreSQL's own parser.
// Only single SELECT statements pass.
type WorkloadFilter struct{}

func NewWorkloadFilter() *WorkloadFilter {
	return &WorkloadFilter{}
}

// Validate parses the SQL and rejects anything that isn't a single SELECT statement.
func (f *WorkloadFilter) Validate(sql string) error {
	trimmed := strings.TrimSpace(sql)
	if trimmed == "" {
		return ErrEmptyQuery
	}

	tree, err := pg_query.Parse(trimmed)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrParseFailed, err)
	}

	if len(tree.Stmts) == 0 {
		return ErrEmptyQuery
	}

	if len(tree.Stmts) > 1 {
		return ErrMultiStatement
	}

	stmt := tree.Stmts[0].Stmt
	if stmt == nil {
		return ErrEmptyQuery
	}

	switch stmt.Node.(type) {
	case *pg_query.Node_SelectStmt:
		return nil
	default:
		return ErrNotAllowed
	}
}

// Fingerprint returns a stable identifier for a query shape. Queries that fail
// to parse fall back to a trimmed prefix of their text.
func (f *WorkloadFilter) Fingerprint(sql string) string {
	fp, err := pg_query.Fingerprint(sql)
	if err != nil {
		return truncateUTF8(strings.Join(strings.Fields(sql), " "), fingerprintFallbackLen)
	}
	return fp
}

const fingerprintFallbackLen = 64

// truncateUTF8 cuts s to at most n bytes without splitting a rune.
func truncateUTF8(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
