// Package filter is a small query algebra shared by every repository
// backend: field equality, membership in a set, and conjunction. Fields
// are addressed by their JSON names so each backend can translate an
// expression deterministically instead of reflecting over entity types.
package filter

import (
	"bytes"
	"encoding/json"
)

// Expr is a node in a filter expression tree.
type Expr interface {
	isExpr()
}

// EqExpr matches documents whose field equals the given value.
type EqExpr struct {
	Field string
	Value any
}

// InExpr matches documents whose field equals any of the given values.
type InExpr struct {
	Field  string
	Values []any
}

// AndExpr matches documents satisfying every sub-expression.
type AndExpr struct {
	Exprs []Expr
}

func (EqExpr) isExpr()  {}
func (InExpr) isExpr()  {}
func (AndExpr) isExpr() {}

// Eq builds an equality expression on a JSON field name.
func Eq(field string, value any) EqExpr {
	return EqExpr{Field: field, Value: value}
}

// In builds a set-membership expression on a JSON field name.
func In(field string, values ...any) InExpr {
	return InExpr{Field: field, Values: values}
}

// And combines expressions into a conjunction.
func And(exprs ...Expr) AndExpr {
	return AndExpr{Exprs: exprs}
}

// Matches evaluates an expression against a document decoded into a
// generic JSON map. Used by the in-memory backend and by tests.
func Matches(e Expr, doc map[string]any) bool {
	switch x := e.(type) {
	case EqExpr:
		return jsonEqual(doc[x.Field], x.Value)
	case InExpr:
		for _, v := range x.Values {
			if jsonEqual(doc[x.Field], v) {
				return true
			}
		}
		return false
	case AndExpr:
		for _, sub := range x.Exprs {
			if !Matches(sub, doc) {
				return false
			}
		}
		return true
	}
	return false
}

// jsonEqual compares two values by their JSON encoding, which normalizes
// the int64-vs-float64 mismatch between decoded documents and caller
// supplied filter values.
func jsonEqual(a, b any) bool {
	ab, err := json.Marshal(a)
	if err != nil {
		return false
	}
	bb, err := json.Marshal(b)
	if err != nil {
		return false
	}
	return bytes.Equal(ab, bb)
}
