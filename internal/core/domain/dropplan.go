package domain

import (
	"fmt"
	"strings"

	pg_query "github.com/pganalyze/pg_query_go/v6"
	"github.com/pingcap/tidb/parser"
	"github.com/pingcap/tidb/parser/ast"
	_ "github.com/pingcap/tidb/parser/test_driver"
)

// BuildDropStatement renders a single DROP INDEX statement for the dialect.
// PostgreSQL indexes are schema-scoped objects; MySQL indexes are dropped
// through their table.
func BuildDropStatement(index, table, schema string, d Dialect) string {
	switch d {
	case DialectMySQL:
		target := d.QuoteIdent(table)
		if schema != "" {
			target = d.QuoteIdent(schema) + "." + target
		}
		return fmt.Sprintf("DROP INDEX %s ON %s;", d.QuoteIdent(index), target)
	default:
		name := d.QuoteIdent(index)
		if schema != "" {
			name = d.QuoteIdent(schema) + "." + name
		}
		return fmt.Sprintf("DROP INDEX IF EXISTS %s;", name)
	}
}

// BuildDropPlan renders one statement per index, in the given order, under a
// review header. The output is plain text and is never executed here.
func BuildDropPlan(indexes []string, table, schema string, d Dialect) string {
	var b strings.Builder
	target := table
	if schema != "" {
		target = schema + "." + table
	}
	fmt.Fprintf(&b, "-- Drop plan for %s (%s): %d index(es). Review before applying.\n", target, d, len(indexes))
	for _, idx := range indexes {
		b.WriteString(BuildDropStatement(idx, table, schema, d))
		b.WriteByte('\n')
	}
	return b.String()
}

// ParseDropStatement parses a DROP INDEX statement with the dialect's own
// parser and returns the index identifier as written.
func ParseDropStatement(sql string, d Dialect) (string, error) {
	switch d {
	case DialectPostgres:
		return parsePostgresDrop(sql)
	case DialectMySQL:
		return parseMySQLDrop(sql)
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedDialect, d)
	}
}

func parsePostgresDrop(sql string) (string, error) {
	tree, err := pg_query.Parse(sql)
	if err != nil {
		return "", fmt.Errorf("parsing drop statement: %w", err)
	}
	if len(tree.Stmts) != 1 {
		return "", ErrNotDropStatement
	}

	drop := tree.Stmts[0].GetStmt().GetDropStmt()
	if drop == nil || drop.GetRemoveType() != pg_query.ObjectType_OBJECT_INDEX || len(drop.GetObjects()) != 1 {
		return "", ErrNotDropStatement
	}

	items := drop.GetObjects()[0].GetList().GetItems()
	if len(items) == 0 {
		return "", ErrNotDropStatement
	}
	return items[len(items)-1].GetString_().GetSval(), nil
}

func parseMySQLDrop(sql string) (string, error) {
	stmts, _, err := parser.New().Parse(sql, "", "")
	if err != nil {
		return "", fmt.Errorf("parsing drop statement: %w", err)
	}
	if len(stmts) != 1 {
		return "", ErrNotDropStatement
	}

	drop, ok := stmts[0].(*ast.DropIndexStmt)
	if !ok {
		return "", ErrNotDropStatement
	}
	return drop.IndexName, nil
}
