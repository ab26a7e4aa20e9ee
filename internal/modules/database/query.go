// Package database provides the SQLite storage module used for persisted
// updater state.
// This file contains SQL statement builders.
package database

import (
	"fmt"
	"strings"
)

// SelectQuery builds a SELECT statement with positional placeholders.
type SelectQuery struct {
	table      string
	columns    []string
	conditions []string
	args       []interface{}
	orderBy    []string
	limit      int
}

// Select starts a SELECT on table. With no columns it selects every column.
func Select(table string, columns ...string) *SelectQuery {
	if len(columns) == 0 {
		columns = []string{"*"}
	}
	return &SelectQuery{table: table, columns: columns}
}

// Where adds a condition; conditions are joined with AND.
func (q *SelectQuery) Where(condition string, args ...interface{}) *SelectQuery {
	q.conditions = append(q.conditions, condition)
	q.args = append(q.args, args...)
	return q
}

// OrderBy appends a sort column.
func (q *SelectQuery) OrderBy(column string, desc bool) *SelectQuery {
	direction := "ASC"
	if desc {
		direction = "DESC"
	}
	q.orderBy = append(q.orderBy, column+" "+direction)
	return q
}

// Limit caps the number of rows. Zero means no limit.
func (q *SelectQuery) Limit(n int) *SelectQuery {
	q.limit = n
	return q
}

// Build returns the statement and its arguments.
func (q *SelectQuery) Build() (string, []interface{}) {
	query := fmt.Sprintf("SELECT %s FROM %s", strings.Join(q.columns, ", "), q.table)
	if len(q.conditions) > 0 {
		query += " WHERE " + strings.Join(q.conditions, " AND ")
	}
	if len(q.orderBy) > 0 {
		query += " ORDER BY " + strings.Join(q.orderBy, ", ")
	}
	if q.limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", q.limit)
	}
	return query, q.args
}

// UpsertQuery builds an INSERT that updates the existing row when the key
// column conflicts.
type UpsertQuery struct {
	table   string
	key     string
	columns []string
	values  []interface{}
}

// Upsert starts an upsert on table keyed by the unique column key.
func Upsert(table, key string) *UpsertQuery {
	return &UpsertQuery{table: table, key: key}
}

// Set adds a column value. The key column must be set too.
func (q *UpsertQuery) Set(column string, value interface{}) *UpsertQuery {
	q.columns = append(q.columns, column)
	q.values = append(q.values, value)
	return q
}

// Build returns the statement and its arguments. Every column other than
// the key is overwritten on conflict.
func (q *UpsertQuery) Build() (string, []interface{}) {
	placeholders := make([]string, len(q.columns))
	var updates []string
	for i, column := range q.columns {
		placeholders[i] = "?"
		if column != q.key {
			updates = append(updates, fmt.Sprintf("%s = excluded.%s", column, column))
		}
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) ON CONFLICT(%s)",
		q.table, strings.Join(q.columns, ", "), strings.Join(placeholders, ", "), q.key)
	if len(updates) == 0 {
		query += " DO NOTHING"
	} else {
		query += " DO UPDATE SET " + strings.Join(updates, ", ")
	}
	return query, q.values
}
