package tdsframe

import (
	"time"

	"github.com/paveg/tdsframe/internal/errors"
	"github.com/paveg/tdsframe/internal/expr"
	"github.com/paveg/tdsframe/internal/frame"
	"github.com/shopspring/decimal"
)

// Row is the row variable of a filter, extend, group-by or join lambda.
type Row struct {
	r frame.Row
}

// Col references column name of the row. Unknown names surface as a validation
// error of the consuming operation.
func (r Row) Col(name string) Expression {
	return Expression{e: r.r.Col(name)}
}

// Expression is a typed expression over the columns of a row. Invalid
// constructions are reported by the frame operation consuming the expression.
type Expression struct {
	e expr.Expr
}

// String returns a debug form of the expression.
func (e Expression) String() string { return e.e.String() }

// Lit creates a literal. Accepted values are bool, integers, floats, string,
// decimal.Decimal and time.Time (a DateTime).
func Lit(value interface{}) Expression { return Expression{e: expr.Lit(value)} }

// LitDate creates a StrictDate literal.
func LitDate(t time.Time) Expression { return Expression{e: expr.LitDate(t)} }

// LitDecimal creates a Decimal literal.
func LitDecimal(d decimal.Decimal) Expression { return Expression{e: expr.LitDecimal(d)} }

// Null creates an empty value of type t.
func Null(t Type) Expression { return Expression{e: expr.LitNull(t)} }

// Today is the current date.
func Today() Expression { return Expression{e: expr.Today()} }

// Now is the current date and time.
func Now() Expression { return Expression{e: expr.Now()} }

// If selects then where condition holds and otherwise elsewhere.
func If(condition, then, otherwise Expression) Expression {
	return Expression{e: expr.IfElse(condition.e, then.e, otherwise.e)}
}

func binary(fn func(a, b expr.Expr) expr.Expr, a, b Expression) Expression {
	return Expression{e: fn(a.e, b.e)}
}

func unary(fn func(e expr.Expr) expr.Expr, e Expression) Expression {
	return Expression{e: fn(e.e)}
}

// Comparison

func (e Expression) Eq(other Expression) Expression { return binary(expr.Eq, e, other) }
func (e Expression) Ne(other Expression) Expression { return binary(expr.Ne, e, other) }
func (e Expression) Lt(other Expression) Expression { return binary(expr.Lt, e, other) }
func (e Expression) Le(other Expression) Expression { return binary(expr.Le, e, other) }
func (e Expression) Gt(other Expression) Expression { return binary(expr.Gt, e, other) }
func (e Expression) Ge(other Expression) Expression { return binary(expr.Ge, e, other) }

// Arithmetic. Add concatenates two strings.

func (e Expression) Add(other Expression) Expression { return binary(expr.Add, e, other) }
func (e Expression) Sub(other Expression) Expression { return binary(expr.Sub, e, other) }
func (e Expression) Mul(other Expression) Expression { return binary(expr.Mul, e, other) }
func (e Expression) Div(other Expression) Expression { return binary(expr.Div, e, other) }
func (e Expression) Mod(other Expression) Expression { return binary(expr.Mod, e, other) }
func (e Expression) Pow(other Expression) Expression { return binary(expr.Power, e, other) }
func (e Expression) Neg() Expression                 { return unary(expr.Neg, e) }
func (e Expression) Abs() Expression                 { return unary(expr.Abs, e) }
func (e Expression) Round() Expression               { return unary(expr.Round, e) }

// Logic

func (e Expression) And(other Expression) Expression { return binary(expr.And, e, other) }
func (e Expression) Or(other Expression) Expression  { return binary(expr.Or, e, other) }
func (e Expression) Not() Expression                 { return unary(expr.Not, e) }
func (e Expression) IsNull() Expression              { return unary(expr.IsNull, e) }
func (e Expression) IsNotNull() Expression           { return unary(expr.IsNotNull, e) }

// Strings

func (e Expression) Length() Expression   { return unary(expr.Length, e) }
func (e Expression) Upper() Expression    { return unary(expr.Upper, e) }
func (e Expression) Lower() Expression    { return unary(expr.Lower, e) }
func (e Expression) Trim() Expression     { return unary(expr.Trim, e) }
func (e Expression) ToString() Expression { return unary(expr.ToString, e) }

// StartsWith tests for a literal prefix.
func (e Expression) StartsWith(prefix string) Expression {
	return binary(expr.StartsWith, e, Lit(prefix))
}

// EndsWith tests for a literal suffix.
func (e Expression) EndsWith(suffix string) Expression {
	return binary(expr.EndsWith, e, Lit(suffix))
}

// Contains tests for a literal substring.
func (e Expression) Contains(other string) Expression {
	return binary(expr.Contains, e, Lit(other))
}

// Dates

func (e Expression) Year() Expression  { return unary(expr.Year, e) }
func (e Expression) Month() Expression { return unary(expr.Month, e) }

// DateDiff counts the units between e and other. unit is e.g. "DAYS".
func (e Expression) DateDiff(other Expression, unit string) Expression {
	u, ok := expr.ParseDurationUnit(unit)
	if !ok {
		return Expression{e: expr.Invalid(errors.NewValidationErrorf("date_diff", "Unknown duration unit: %s", unit))}
	}
	return Expression{e: expr.DateDiff(e.e, other.e, u)}
}

// Aggregations, valid only in GroupBy.

func (e Expression) Sum() Expression           { return unary(expr.Sum, e) }
func (e Expression) Count() Expression         { return unary(expr.Count, e) }
func (e Expression) CountDistinct() Expression { return unary(expr.CountDistinct, e) }
func (e Expression) Avg() Expression           { return unary(expr.Avg, e) }
func (e Expression) Min() Expression           { return unary(expr.Min, e) }
func (e Expression) Max() Expression           { return unary(expr.Max, e) }
func (e Expression) StdDev() Expression        { return unary(expr.StdDev, e) }
func (e Expression) Variance() Expression      { return unary(expr.Variance, e) }

// JoinStrings concatenates the values of a group with separator.
func (e Expression) JoinStrings(separator string) Expression {
	return Expression{e: expr.JoinStrings(e.e, separator)}
}
