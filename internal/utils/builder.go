package querybuilder

import (
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
)

// QueryBuilder assembles SQL with "?" placeholders. Build returns the query
// rebound to the dollar placeholders lib/pq expects.
type QueryBuilder interface {
	Select(cols ...string) QueryBuilder
	From(table string) QueryBuilder
	Into(table string) QueryBuilder
	Where(clause string, args ...interface{}) QueryBuilder

	Or(clause string, args ...interface{}) QueryBuilder
	And(clause string, args ...interface{}) QueryBuilder

	// AndGroup ANDs the conditions fn adds, parenthesized, onto the query
	AndGroup(fn func(qb QueryBuilder)) QueryBuilder

	OrderBy(col string, asc bool) QueryBuilder
	Limit(n int) QueryBuilder

	Insert(cols ...string) QueryBuilder
	Values(values ...interface{}) QueryBuilder
	Delete(table string) QueryBuilder

	// OnConflict without SetExclude renders DO NOTHING
	OnConflict(cols ...string) QueryBuilder
	SetExclude(cols ...string) QueryBuilder

	Build() (string, []interface{})

	conditionList() []condition
}

type queryBuilder struct {
	schema      string
	table       string
	cols        []string
	conditions  []condition
	values      [][]interface{}
	orderBy     []string
	limit       int
	isDelete    bool
	onConflict  []string
	excludeCols []string
}

func NewQueryBuilder(schema string) QueryBuilder {
	return &queryBuilder{
		schema: schema,
	}
}

func (q *queryBuilder) conditionList() []condition {
	return q.conditions
}

func (q *queryBuilder) Select(cols ...string) QueryBuilder {
	q.cols = append(q.cols, cols...)
	return q
}

func (q *queryBuilder) From(table string) QueryBuilder {
	q.table = table
	return q
}

func (q *queryBuilder) Into(table string) QueryBuilder {
	q.table = table
	return q
}

func (q *queryBuilder) Insert(cols ...string) QueryBuilder {
	q.cols = cols
	return q
}

// Values appends one row. Call it once per row for multi-row inserts.
func (q *queryBuilder) Values(values ...interface{}) QueryBuilder {
	q.values = append(q.values, values)
	return q
}

func (q *queryBuilder) Delete(table string) QueryBuilder {
	q.table = table
	q.isDelete = true
	return q
}

func (q *queryBuilder) OnConflict(cols ...string) QueryBuilder {
	q.onConflict = cols
	return q
}

// SetExclude overwrites cols with the incoming row's values on conflict.
func (q *queryBuilder) SetExclude(cols ...string) QueryBuilder {
	q.excludeCols = cols
	return q
}

func (q *queryBuilder) Where(clause string, args ...interface{}) QueryBuilder {
	return q.And(clause, args...)
}

func (q *queryBuilder) And(clause string, args ...interface{}) QueryBuilder {
	q.conditions = append(q.conditions, condition{conj: conjAnd, clause: clause, args: args})
	return q
}

func (q *queryBuilder) Or(clause string, args ...interface{}) QueryBuilder {
	q.conditions = append(q.conditions, condition{conj: conjOr, clause: clause, args: args})
	return q
}

func (q *queryBuilder) AndGroup(fn func(qb QueryBuilder)) QueryBuilder {
	sub := NewQueryBuilder(q.schema)
	fn(sub)
	q.conditions = append(q.conditions, condition{conj: conjAnd, group: sub.conditionList(), grouped: true})
	return q
}

func (q *queryBuilder) OrderBy(col string, asc bool) QueryBuilder {
	dir := "ASC"
	if !asc {
		dir = "DESC"
	}
	q.orderBy = append(q.orderBy, fmt.Sprintf("%s %s", col, dir))
	return q
}

func (q *queryBuilder) Limit(n int) QueryBuilder {
	q.limit = n
	return q
}

// Build renders the statement. Inserts win over deletes, deletes over selects.
// An insert whose rows do not match its columns renders as "".
func (q *queryBuilder) Build() (string, []interface{}) {
	var (
		query string
		args  []interface{}
	)
	switch {
	case len(q.values) > 0:
		query, args = q.buildInsert()
	case q.isDelete:
		query, args = q.buildDelete()
	default:
		query, args = q.buildSelect()
	}
	if query == "" {
		return "", nil
	}
	return sqlx.Rebind(sqlx.DOLLAR, query), args
}

func (q *queryBuilder) qualified() string {
	if q.schema == "" {
		return q.table
	}
	return fmt.Sprintf("%s.%s", q.schema, q.table)
}

func (q *queryBuilder) where(query string, args []interface{}) (string, []interface{}) {
	if len(q.conditions) == 0 {
		return query, args
	}
	where, whereArgs := render(q.conditions)
	if where == "" {
		return query, args
	}
	return query + " WHERE " + where, append(args, whereArgs...)
}

func (q *queryBuilder) buildSelect() (string, []interface{}) {
	query := fmt.Sprintf("SELECT %s FROM %s", strings.Join(q.cols, ", "), q.qualified())
	query, args := q.where(query, nil)

	if len(q.orderBy) > 0 {
		query += fmt.Sprintf(" ORDER BY %s", strings.Join(q.orderBy, ", "))
	}
	if q.limit > 0 {
		query += " LIMIT ?"
		args = append(args, q.limit)
	}
	return query, args
}

func (q *queryBuilder) buildInsert() (string, []interface{}) {
	numOfParam := len(q.cols)
	if numOfParam == 0 {
		return "", nil
	}

	tuples := make([]string, len(q.values))
	args := make([]interface{}, 0, len(q.values)*numOfParam)
	placeholders := "(" + strings.TrimSuffix(strings.Repeat("?, ", numOfParam), ", ") + ")"
	for i, row := range q.values {
		if len(row) != numOfParam {
			return "", nil
		}
		args = append(args, row...)
		tuples[i] = placeholders
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES %s", q.qualified(), strings.Join(q.cols, ", "), strings.Join(tuples, ", "))
	if len(q.onConflict) == 0 {
		return query, args
	}

	query += fmt.Sprintf(" ON CONFLICT (%s)", strings.Join(q.onConflict, ", "))
	if len(q.excludeCols) == 0 {
		return query + " DO NOTHING", args
	}
	sets := make([]string, len(q.excludeCols))
	for i, col := range q.excludeCols {
		sets[i] = fmt.Sprintf("%s = EXCLUDED.%s", col, col)
	}
	return query + " DO UPDATE SET " + strings.Join(sets, ", "), args
}

// buildDelete refuses to render an unconditional delete.
func (q *queryBuilder) buildDelete() (string, []interface{}) {
	if where, _ := render(q.conditions); where == "" {
		return "", nil
	}
	return q.where(fmt.Sprintf("DELETE FROM %s", q.qualified()), nil)
}
