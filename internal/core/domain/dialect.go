package domain

import (
	"fmt"
	"strings"
)

// Dialect identifies the SQL engine a table lives in.
type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectMySQL    Dialect = "mysql"
)

// mysqlPrimaryName is the reserved name InnoDB gives the clustered primary index.
const mysqlPrimaryName = "PRIMARY"

// postgresPrimaryToken is the suffix PostgreSQL uses for implicit primary key constraints.
const postgresPrimaryToken = "_pkey"

// ParseDialect maps user input ("postgres", "postgresql", "pg", "mysql", "mariadb") to a Dialect.
func ParseDialect(s string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "postgres", "postgresql", "pg":
		return DialectPostgres, nil
	case "mysql", "mariadb":
		return DialectMySQL, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedDialect, s)
	}
}

// NamesIndexesByColumn reports whether unnamed single-column indexes take the
// column's name, so that suggestions keyed by column also identify an index.
func (d Dialect) NamesIndexesByColumn() bool {
	return d == DialectMySQL
}

// QuoteIdent quotes an identifier for the dialect, doubling any embedded quote character.
func (d Dialect) QuoteIdent(name string) string {
	q := d.quoteChar()
	return q + strings.ReplaceAll(name, q, q+q) + q
}

func (d Dialect) quoteChar() string {
	if d == DialectMySQL {
		return "`"
	}
	return `"`
}

// IsPrimaryIndex reports whether g is the table's identity index.
// MySQL matches the reserved PRIMARY name exactly; PostgreSQL matches the
// _pkey token anywhere in the name or trusts the catalog primary flag.
func IsPrimaryIndex(g IndexGroup, d Dialect) bool {
	switch d {
	case DialectMySQL:
		return g.Name == mysqlPrimaryName
	default:
		return g.Primary || strings.Contains(strings.ToLower(g.Name), postgresPrimaryToken)
	}
}
