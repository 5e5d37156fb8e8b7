package schema

import (
	"strings"

	"github.com/jmoiron/sqlx"
)

// Query assembles a SELECT from a fixed base and optional predicates. Predicates are written
// with ? placeholders and rebound to $n on Build, so callers never splice values into SQL.
// Identifiers that vary by deployment must come from a LogicalSchema.
type Query struct {
	base    string
	args    []interface{}
	where   []string
	suffix  []string
	trailer []interface{}
}

// NewQuery starts a query from a base statement without a WHERE clause.
func NewQuery(base string, args ...interface{}) *Query {
	return &Query{base: strings.TrimSpace(base), args: args}
}

// Where adds a predicate joined with AND.
func (q *Query) Where(clause string, args ...interface{}) *Query {
	q.where = append(q.where, clause)
	q.args = append(q.args, args...)
	return q
}

// WhereIf adds the predicate only when cond holds.
func (q *Query) WhereIf(cond bool, clause string, args ...interface{}) *Query {
	if !cond {
		return q
	}
	return q.Where(clause, args...)
}

// Suffix appends GROUP BY, ORDER BY or LIMIT fragments after the predicates.
func (q *Query) Suffix(fragment string, args ...interface{}) *Query {
	q.suffix = append(q.suffix, fragment)
	q.trailer = append(q.trailer, args...)
	return q
}

// Build renders the statement for Postgres and returns it with its arguments.
func (q *Query) Build() (string, []interface{}) {
	var b strings.Builder
	b.WriteString(q.base)
	if len(q.where) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(q.where, " AND "))
	}
	for _, fragment := range q.suffix {
		b.WriteString(" ")
		b.WriteString(fragment)
	}
	args := make([]interface{}, 0, len(q.args)+len(q.trailer))
	args = append(args, q.args...)
	args = append(args, q.trailer...)
	return sqlx.Rebind(sqlx.DOLLAR, b.String()), args
}
