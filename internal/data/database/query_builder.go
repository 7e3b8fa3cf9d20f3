// Package database builds parameterised list queries with sanitised identifiers.
package database

import (
	"reflect"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
)

type ConditionType string

const (
	Equal              ConditionType = "="
	NotEqual           ConditionType = "!="
	GreaterThan        ConditionType = ">"
	LessThan           ConditionType = "<"
	LessThanOrEqual    ConditionType = "<="
	GreaterThanOrEqual ConditionType = ">="
	In                 ConditionType = "IN"
	IsNull             ConditionType = "IS NULL"
	IsNotNull          ConditionType = "IS NOT NULL"
)

// unset marks a limit or offset that was never given.
const unset = -1

type Condition struct {
	Field string
	Type  ConditionType
	Value any
}

// WhereCond builds a condition on field. Value is ignored for IsNull and
// IsNotNull; for In it must be a slice, and an empty slice drops the condition.
func WhereCond(field string, condType ConditionType, value any) Condition {
	return Condition{Field: field, Type: condType, Value: value}
}

// OrderTerm is one ORDER BY column. Direction other than ASC/DESC is dropped.
type OrderTerm struct {
	Column    string
	Direction string
}

type ListQueryOptions struct {
	Table      string
	Columns    []string
	CountOnly  bool
	Conditions []Condition
	Order      []OrderTerm
	Limit      int
	Offset     int
}

type ListQueryOption func(*ListQueryOptions)

func NewListQueryOptions(table string, opts ...ListQueryOption) *ListQueryOptions {
	o := &ListQueryOptions{Table: table, Limit: unset, Offset: unset}
	for _, apply := range opts {
		apply(o)
	}
	return o
}

func WithColumns(cols ...string) ListQueryOption {
	return func(o *ListQueryOptions) { o.Columns = cols }
}

func WithCondition(cond Condition) ListQueryOption {
	return func(o *ListQueryOptions) { o.Conditions = append(o.Conditions, cond) }
}

// WithOrderBy appends an ordering column; repeat for tie-breakers.
func WithOrderBy(column, direction string) ListQueryOption {
	return func(o *ListQueryOptions) {
		o.Order = append(o.Order, OrderTerm{Column: column, Direction: direction})
	}
}

// WithLimit sets LIMIT. Zero is a valid limit; negatives are ignored.
func WithLimit(limit int) ListQueryOption {
	return func(o *ListQueryOptions) {
		if limit >= 0 {
			o.Limit = limit
		}
	}
}

// WithOffset sets OFFSET. Negatives are ignored.
func WithOffset(offset int) ListQueryOption {
	return func(o *ListQueryOptions) {
		if offset >= 0 {
			o.Offset = offset
		}
	}
}

// WithCountOnly selects COUNT(*) and drops ordering and pagination.
func WithCountOnly() ListQueryOption {
	return func(o *ListQueryOptions) { o.CountOnly = true }
}

// ident quotes a possibly qualified identifier such as "ce_activity.status".
func ident(name string) string {
	return pgx.Identifier(strings.Split(name, ".")).Sanitize()
}

// queryWriter accumulates SQL text and numbers placeholders as args are bound.
type queryWriter struct {
	sql  strings.Builder
	args []any
}

func (w *queryWriter) bind(v any) string {
	w.args = append(w.args, v)
	return "$" + strconv.Itoa(len(w.args))
}

// predicate renders one condition, or "" when it contributes nothing.
func (w *queryWriter) predicate(c Condition) string {
	if c.Field == "" {
		return ""
	}
	col := ident(c.Field)
	switch c.Type {
	case IsNull, IsNotNull:
		return col + " " + string(c.Type)
	case In:
		rv := reflect.ValueOf(c.Value)
		if rv.Kind() != reflect.Slice || rv.Len() == 0 {
			return ""
		}
		marks := make([]string, rv.Len())
		for i := range marks {
			marks[i] = w.bind(rv.Index(i).Interface())
		}
		return col + " IN (" + strings.Join(marks, ", ") + ")"
	case Equal, NotEqual, GreaterThan, LessThan, LessThanOrEqual, GreaterThanOrEqual:
		return col + " " + string(c.Type) + " " + w.bind(c.Value)
	default:
		return ""
	}
}

func selectList(o *ListQueryOptions) string {
	switch {
	case o.CountOnly:
		return "COUNT(*)"
	case len(o.Columns) == 0:
		return "*"
	}
	cols := make([]string, len(o.Columns))
	for i, c := range o.Columns {
		cols[i] = ident(c)
	}
	return strings.Join(cols, ", ")
}

func orderList(order []OrderTerm) string {
	terms := make([]string, 0, len(order))
	for _, t := range order {
		if t.Column == "" {
			continue
		}
		term := ident(t.Column)
		if dir := strings.ToUpper(t.Direction); dir == "ASC" || dir == "DESC" {
			term += " " + dir
		}
		terms = append(terms, term)
	}
	return strings.Join(terms, ", ")
}

// BuildListQuery renders options into SQL and positional args.
//
//	query, args := BuildListQuery(NewListQueryOptions("ce_activity",
//		WithColumns("id", "status"),
//		WithCondition(WhereCond("entity_id", Equal, projectID)),
//		WithOrderBy("executed_at", "DESC"),
//		WithOrderBy("id", "DESC"),
//		WithLimit(50),
//	))
func BuildListQuery(o *ListQueryOptions) (string, []any) {
	if o == nil {
		return "", nil
	}

	w := &queryWriter{args: []any{}}
	w.sql.WriteString("SELECT " + selectList(o) + " FROM " + ident(o.Table))

	var preds []string
	for _, c := range o.Conditions {
		if p := w.predicate(c); p != "" {
			preds = append(preds, p)
		}
	}
	if len(preds) > 0 {
		w.sql.WriteString(" WHERE " + strings.Join(preds, " AND "))
	}
	if o.CountOnly {
		return w.sql.String(), w.args
	}

	if order := orderList(o.Order); order != "" {
		w.sql.WriteString(" ORDER BY " + order)
	}
	if o.Limit != unset {
		w.sql.WriteString(" LIMIT " + w.bind(o.Limit))
	}
	if o.Offset != unset {
		w.sql.WriteString(" OFFSET " + w.bind(o.Offset))
	}
	return w.sql.String(), w.args
}
