package frame

import (
	"fmt"

	"github.com/paveg/tdsframe/internal/errors"
	"github.com/paveg/tdsframe/internal/expr"
	"github.com/paveg/tdsframe/internal/types"
	"github.com/paveg/tdsframe/internal/validation"
)

// Aggregate names the output column of an aggregation. The aggregation's operand
// is evaluated per row of the group.
type Aggregate struct {
	Name string
	Expr expr.Expr
}

// GroupBy reduces the rows of each key group to one row.
type GroupBy struct {
	unary
	keys       []string
	aggregates []Aggregate
}

func (g *GroupBy) Op() Op                  { return OpGroupBy }
func (g *GroupBy) Keys() []string          { return append([]string(nil), g.keys...) }
func (g *GroupBy) Aggregates() []Aggregate { return append([]Aggregate(nil), g.aggregates...) }

// NewGroupBy creates a grouping of child. The output columns are the keys followed
// by the aggregates, each in the given order.
func NewGroupBy(child Frame, keys []string, aggregates []Aggregate) (*GroupBy, error) {
	op := OpGroupBy.String()
	schema := child.Schema()
	if len(keys) == 0 {
		return nil, errors.NewValidationError(op,
			"At-least one grouping column must be provided when using group_by function")
	}
	if err := validation.ValidateColumns(schema, op, "group by", keys...); err != nil {
		return nil, err
	}

	names := append([]string(nil), keys...)
	aggNames := make([]string, len(aggregates))
	for i, a := range aggregates {
		aggNames[i] = a.Name
	}
	names = append(names, aggNames...)
	if validation.HasDuplicates(names) {
		return nil, errors.NewValidationErrorf(op,
			"Found duplicate column names in grouping columns and aggregation columns. "+
				"Grouping columns - %s, Aggregation columns - %s", types.QuotedList(keys), types.QuotedList(aggNames))
	}

	row := NewRow(child)
	out := make([]types.Column, 0, len(names))
	for _, k := range keys {
		c, _ := schema.Lookup(k)
		out = append(out, c)
	}
	for i, a := range aggregates {
		if a.Name == "" {
			return nil, errors.NewTypeErrorf(op,
				"AggregateSpecification at index %d (0-indexed) incompatible. Column name should be a non-empty string", i)
		}
		if err := checkExpr(a.Expr, row); err != nil {
			return nil, &errors.FrameError{
				Kind:   err.Kind,
				Op:     op,
				Column: err.Column,
				Message: fmt.Sprintf(
					"AggregateSpecification at index %d (0-indexed) incompatible. Error occurred while evaluating. Message: %s",
					i, err.Message),
				Cause: err,
			}
		}
		if _, ok := a.Expr.(*expr.AggregationExpr); !ok {
			return nil, errors.NewTypeErrorf(op,
				"AggregateSpecification at index %d (0-indexed) incompatible. Expression should be an aggregate function. Got: %s",
				i, a.Expr.String())
		}
		out = append(out, types.NewColumn(a.Name, a.Expr.ResultType()))
	}

	return &GroupBy{
		unary:      unary{node{schema: types.MustSchema(out...)}, child},
		keys:       append([]string(nil), keys...),
		aggregates: append([]Aggregate(nil), aggregates...),
	}, nil
}
