package expr

import (
	"fmt"

	"github.com/paveg/tdsframe/internal/errors"
	"github.com/paveg/tdsframe/internal/types"
)

// Aggregate builds an aggregation over a per-row expression. Sum, min and max keep
// the operand type, avg, std_dev and variance produce Float, the counts produce
// Integer and join produces String.
func Aggregate(aggType AggregationType, column Expr) Expr {
	return aggregate(aggType, column, "")
}

// JoinStrings concatenates the String values of a group with separator.
func JoinStrings(column Expr, separator string) Expr {
	return aggregate(AggJoinStrings, column, separator)
}

func aggregate(aggType AggregationType, column Expr, separator string) Expr {
	if inv, ok := invalidOf(column); ok {
		return inv
	}
	if nested, ok := findNested(column); ok {
		return Invalid(errors.NewValidationErrorf(aggType.String(),
			"Aggregate function %s cannot be applied over %s, aggregations and windows do not nest",
			aggType, nested.String()))
	}

	t := column.ResultType()
	desc := fmt.Sprintf("%s parameter", aggType)
	var result types.PrimitiveType
	switch aggType {
	case AggSum:
		if !t.IsNumeric() {
			return paramError(aggType.String(), desc, "a number expression", column)
		}
		result = t
	case AggMin, AggMax:
		if t == types.Boolean {
			return paramError(aggType.String(), desc, "a number, string or date expression", column)
		}
		result = t
	case AggAvg, AggStdDev, AggVariance:
		if !t.IsNumeric() {
			return paramError(aggType.String(), desc, "a number expression", column)
		}
		result = types.Float
	case AggCount, AggCountDistinct:
		result = types.Integer
	case AggJoinStrings:
		if t != types.String {
			return paramError(aggType.String(), desc, "a string expression", column)
		}
		result = types.String
	default:
		return Invalid(errors.NewValidationErrorf("aggregate", "Unknown aggregation type: %d", int(aggType)))
	}
	return &AggregationExpr{column: column, aggType: aggType, separator: separator, typ: result}
}

// Sum creates a sum aggregation expression
func Sum(column Expr) Expr { return Aggregate(AggSum, column) }

// Count creates a count aggregation expression
func Count(column Expr) Expr { return Aggregate(AggCount, column) }

// CountDistinct counts distinct values
func CountDistinct(column Expr) Expr { return Aggregate(AggCountDistinct, column) }

// Avg creates a mean aggregation expression
func Avg(column Expr) Expr { return Aggregate(AggAvg, column) }

// Min creates a min aggregation expression
func Min(column Expr) Expr { return Aggregate(AggMin, column) }

// Max creates a max aggregation expression
func Max(column Expr) Expr { return Aggregate(AggMax, column) }

// StdDev creates a sample standard deviation aggregation expression
func StdDev(column Expr) Expr { return Aggregate(AggStdDev, column) }

// Variance creates a sample variance aggregation expression
func Variance(column Expr) Expr { return Aggregate(AggVariance, column) }

// findNested returns the first aggregation or window node inside e.
func findNested(e Expr) (Expr, bool) {
	var found Expr
	Walk(e, func(n Expr) bool {
		if found != nil {
			return false
		}
		switch n.(type) {
		case *AggregationExpr, *WindowExpr:
			found = n
			return false
		}
		return true
	})
	return found, found != nil
}
