// Package expr provides the typed expression representation used by frame operations
package expr

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/paveg/tdsframe/internal/errors"
	"github.com/paveg/tdsframe/internal/types"
	"github.com/shopspring/decimal"
)

// ExprType represents the type of expression
type ExprType int

const (
	ExprColumn ExprType = iota
	ExprLiteral
	ExprBinary
	ExprUnary
	ExprFunction
	ExprAggregation
	ExprCase
	ExprWindow
	ExprInvalid
)

// Expr represents a typed, immutable expression node
type Expr interface {
	Type() ExprType
	ResultType() types.PrimitiveType
	String() string
}

// Scope identifies the row variable a column reference is bound to.
type Scope int

const (
	// ScopeRow is the single row of filter, extend and group-by lambdas.
	ScopeRow Scope = iota
	// ScopeLeft is the left row of a join condition.
	ScopeLeft
	// ScopeRight is the right row of a join condition.
	ScopeRight
)

func (s Scope) String() string {
	switch s {
	case ScopeLeft:
		return "left"
	case ScopeRight:
		return "right"
	default:
		return "row"
	}
}

// ColumnExpr represents a column reference
type ColumnExpr struct {
	scope Scope
	name  string
	typ   types.PrimitiveType
}

func (c *ColumnExpr) Type() ExprType {
	return ExprColumn
}

func (c *ColumnExpr) ResultType() types.PrimitiveType {
	return c.typ
}

func (c *ColumnExpr) String() string {
	return fmt.Sprintf("col(%s.%s)", c.scope, c.name)
}

func (c *ColumnExpr) Name() string {
	return c.name
}

func (c *ColumnExpr) Scope() Scope {
	return c.scope
}

// LiteralExpr represents a literal value. Values are normalized to bool, int64,
// float64, string, decimal.Decimal, time.Time or nil.
type LiteralExpr struct {
	value interface{}
	typ   types.PrimitiveType
}

func (l *LiteralExpr) Type() ExprType {
	return ExprLiteral
}

func (l *LiteralExpr) ResultType() types.PrimitiveType {
	return l.typ
}

func (l *LiteralExpr) String() string {
	switch v := l.value.(type) {
	case nil:
		return fmt.Sprintf("lit(null:%s)", l.typ)
	case float64:
		// integral floats keep a fraction so they do not read as integers
		text := strconv.FormatFloat(v, 'g', -1, 64)
		if !strings.ContainsAny(text, ".eEnN") {
			text += ".0"
		}
		return "lit(" + text + ")"
	case string:
		return fmt.Sprintf("lit(%q)", v)
	case time.Time:
		if l.typ == types.StrictDate {
			return fmt.Sprintf("lit(%s)", v.Format(DateLayout))
		}
		return fmt.Sprintf("lit(%s)", v.Format(DateTimeLayout))
	case decimal.Decimal:
		return fmt.Sprintf("lit(%sD)", v.String())
	default:
		return fmt.Sprintf("lit(%v)", v)
	}
}

func (l *LiteralExpr) Value() interface{} {
	return l.value
}

// IsNull reports whether the literal is a typed null.
func (l *LiteralExpr) IsNull() bool {
	return l.value == nil
}

// Layouts used to render temporal literals.
const (
	DateLayout     = "2006-01-02"
	DateTimeLayout = "2006-01-02T15:04:05"
)

// BinaryOp represents binary operations
type BinaryOp int

const (
	OpAdd BinaryOp = iota
	OpSub
	OpMul
	OpDiv
	OpMod
	OpConcat
	OpEq
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe
	OpAnd
	OpOr
	OpXor
)

var binaryOpSymbols = map[BinaryOp]string{
	OpAdd:    "+",
	OpSub:    "-",
	OpMul:    "*",
	OpDiv:    "/",
	OpMod:    "%",
	OpConcat: "+",
	OpEq:     "==",
	OpNe:     "!=",
	OpLt:     "<",
	OpLe:     "<=",
	OpGt:     ">",
	OpGe:     ">=",
	OpAnd:    "&&",
	OpOr:     "||",
	OpXor:    "^",
}

func (op BinaryOp) String() string {
	return binaryOpSymbols[op]
}

// IsComparison reports whether op compares its operands.
func (op BinaryOp) IsComparison() bool {
	return op >= OpEq && op <= OpGe
}

// IsArithmetic reports whether op is a numeric operator.
func (op BinaryOp) IsArithmetic() bool {
	return op >= OpAdd && op <= OpMod
}

// Flip returns the comparator obtained by swapping the operands.
func (op BinaryOp) Flip() BinaryOp {
	switch op {
	case OpLt:
		return OpGt
	case OpLe:
		return OpGe
	case OpGt:
		return OpLt
	case OpGe:
		return OpLe
	default:
		return op
	}
}

// BinaryExpr represents a binary operation
type BinaryExpr struct {
	left  Expr
	op    BinaryOp
	right Expr
	typ   types.PrimitiveType
}

func (b *BinaryExpr) Type() ExprType {
	return ExprBinary
}

func (b *BinaryExpr) ResultType() types.PrimitiveType {
	return b.typ
}

func (b *BinaryExpr) String() string {
	return fmt.Sprintf("(%s %s %s)", b.left.String(), b.op, b.right.String())
}

func (b *BinaryExpr) Left() Expr {
	return b.left
}

func (b *BinaryExpr) Op() BinaryOp {
	return b.op
}

func (b *BinaryExpr) Right() Expr {
	return b.right
}

// UnaryOp represents unary operations
type UnaryOp int

const (
	UnaryNeg UnaryOp = iota
	UnaryNot
	UnaryIsNull
	UnaryIsNotNull
)

// UnaryExpr represents a unary operation
type UnaryExpr struct {
	op      UnaryOp
	operand Expr
	typ     types.PrimitiveType
}

func (u *UnaryExpr) Type() ExprType {
	return ExprUnary
}

func (u *UnaryExpr) ResultType() types.PrimitiveType {
	return u.typ
}

func (u *UnaryExpr) String() string {
	switch u.op {
	case UnaryNeg:
		return fmt.Sprintf("(-%s)", u.operand.String())
	case UnaryNot:
		return fmt.Sprintf("(!%s)", u.operand.String())
	case UnaryIsNull:
		return fmt.Sprintf("is_null(%s)", u.operand.String())
	default:
		return fmt.Sprintf("is_not_null(%s)", u.operand.String())
	}
}

func (u *UnaryExpr) Op() UnaryOp {
	return u.op
}

func (u *UnaryExpr) Operand() Expr {
	return u.operand
}

// FunctionExpr represents a function call expression
type FunctionExpr struct {
	name FuncName
	args []Expr
	typ  types.PrimitiveType
}

func (f *FunctionExpr) Type() ExprType {
	return ExprFunction
}

func (f *FunctionExpr) ResultType() types.PrimitiveType {
	return f.typ
}

func (f *FunctionExpr) String() string {
	argStrs := make([]string, len(f.args))
	for i, arg := range f.args {
		argStrs[i] = arg.String()
	}
	return fmt.Sprintf("%s(%s)", f.name, strings.Join(argStrs, ", "))
}

func (f *FunctionExpr) Name() FuncName {
	return f.name
}

func (f *FunctionExpr) Args() []Expr {
	return f.args
}

// AggregationType represents the type of aggregation function
type AggregationType int

const (
	AggSum AggregationType = iota
	AggCount
	AggCountDistinct
	AggAvg
	AggMin
	AggMax
	AggStdDev
	AggVariance
	AggJoinStrings
)

// Aggregation function name constants
const (
	AggNameSum           = "sum"
	AggNameCount         = "count"
	AggNameCountDistinct = "count_distinct"
	AggNameAvg           = "avg"
	AggNameMin           = "min"
	AggNameMax           = "max"
	AggNameStdDev        = "std_dev"
	AggNameVariance      = "variance"
	AggNameJoinStrings   = "join"
)

var aggNames = map[AggregationType]string{
	AggSum:           AggNameSum,
	AggCount:         AggNameCount,
	AggCountDistinct: AggNameCountDistinct,
	AggAvg:           AggNameAvg,
	AggMin:           AggNameMin,
	AggMax:           AggNameMax,
	AggStdDev:        AggNameStdDev,
	AggVariance:      AggNameVariance,
	AggJoinStrings:   AggNameJoinStrings,
}

func (a AggregationType) String() string {
	return aggNames[a]
}

// ParseAggregationType resolves an aggregation name such as "sum" or "count".
func ParseAggregationType(name string) (AggregationType, bool) {
	lower := strings.ToLower(name)
	for t, n := range aggNames {
		if n == lower {
			return t, true
		}
	}
	switch lower {
	case "mean", "average":
		return AggAvg, true
	case "std", "stddev":
		return AggStdDev, true
	case "var":
		return AggVariance, true
	}
	return 0, false
}

// AggregationExpr represents an aggregation function over a per-row expression
type AggregationExpr struct {
	column    Expr
	aggType   AggregationType
	separator string
	typ       types.PrimitiveType
}

func (a *AggregationExpr) Type() ExprType {
	return ExprAggregation
}

func (a *AggregationExpr) ResultType() types.PrimitiveType {
	return a.typ
}

func (a *AggregationExpr) String() string {
	if a.aggType == AggJoinStrings {
		return fmt.Sprintf("%s(%s, %q)", a.aggType, a.column.String(), a.separator)
	}
	return fmt.Sprintf("%s(%s)", a.aggType, a.column.String())
}

func (a *AggregationExpr) Column() Expr {
	return a.column
}

func (a *AggregationExpr) AggType() AggregationType {
	return a.aggType
}

// Separator is the delimiter of a join aggregation.
func (a *AggregationExpr) Separator() string {
	return a.separator
}

// CaseWhen represents a condition and value pair in CASE expression
type CaseWhen struct {
	condition Expr
	value     Expr
}

// When pairs a Boolean condition with the value it selects.
func When(condition, value Expr) CaseWhen {
	return CaseWhen{condition: condition, value: value}
}

func (w CaseWhen) Condition() Expr { return w.condition }
func (w CaseWhen) Value() Expr     { return w.value }

// CaseExpr represents a CASE expression with multiple WHEN clauses
type CaseExpr struct {
	whens     []CaseWhen
	elseValue Expr
	typ       types.PrimitiveType
}

func (c *CaseExpr) Type() ExprType {
	return ExprCase
}

func (c *CaseExpr) ResultType() types.PrimitiveType {
	return c.typ
}

func (c *CaseExpr) String() string {
	result := "case"
	for _, when := range c.whens {
		result += fmt.Sprintf(" when %s then %s", when.condition.String(), when.value.String())
	}
	if c.elseValue != nil {
		result += fmt.Sprintf(" else %s", c.elseValue.String())
	}
	result += " end"
	return result
}

func (c *CaseExpr) Whens() []CaseWhen {
	return c.whens
}

func (c *CaseExpr) ElseValue() Expr {
	return c.elseValue
}

// InvalidExpr represents a rejected construction. It carries the error that the
// consuming frame operation reports.
type InvalidExpr struct {
	err *errors.FrameError
}

func (i *InvalidExpr) Type() ExprType {
	return ExprInvalid
}

func (i *InvalidExpr) ResultType() types.PrimitiveType {
	return types.Boolean
}

func (i *InvalidExpr) String() string {
	return fmt.Sprintf("invalid(%s)", i.err.Error())
}

func (i *InvalidExpr) Message() string {
	return i.err.Error()
}

func (i *InvalidExpr) Err() *errors.FrameError {
	return i.err
}

// Invalid wraps err into an invalid expression
func Invalid(err *errors.FrameError) *InvalidExpr {
	return &InvalidExpr{err: err}
}
