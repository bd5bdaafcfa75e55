// Package option provides composable query options for the generic store.
package option

import (
	"fmt"

	"gorm.io/gorm"
)

// QueryOption mutates a gorm statement before execution.
type QueryOption interface {
	Apply(*gorm.DB) *gorm.DB
}

// Operator names a comparison for ApplyOperator conditions.
type Operator string

const (
	EQ  Operator = "="
	GT  Operator = ">"
	GTE Operator = ">="
	LT  Operator = "<"
	LTE Operator = "<="
)

// Condition is a single field comparison.
type Condition struct {
	Field    string
	Operator Operator
	Value    any
}

type conditionOption struct {
	cond Condition
}

func (o conditionOption) Apply(db *gorm.DB) *gorm.DB {
	return db.Where(fmt.Sprintf("%s %s ?", o.cond.Field, o.cond.Operator), o.cond.Value)
}

// ApplyOperator adds a field comparison to the query.
func ApplyOperator(cond Condition) QueryOption {
	return conditionOption{cond: cond}
}

type orderOption struct {
	expr string
}

func (o orderOption) Apply(db *gorm.DB) *gorm.DB {
	return db.Order(o.expr)
}

// WithOrder orders results by the given expression, e.g. "created_at DESC".
func WithOrder(expr string) QueryOption {
	return orderOption{expr: expr}
}

type limitOption struct {
	limit int
}

func (o limitOption) Apply(db *gorm.DB) *gorm.DB {
	return db.Limit(o.limit)
}

// WithLimit caps the number of returned rows.
func WithLimit(limit int) QueryOption {
	return limitOption{limit: limit}
}
