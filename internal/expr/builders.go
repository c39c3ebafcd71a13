package expr

import (
	"fmt"
	"time"

	"github.com/paveg/tdsframe/internal/errors"
	"github.com/paveg/tdsframe/internal/types"
	"github.com/shopspring/decimal"
)

// Col creates a column reference of a known type. Frames hand out column
// references through their row scopes, which resolve the type from the schema.
func Col(scope Scope, name string, typ types.PrimitiveType) *ColumnExpr {
	return &ColumnExpr{scope: scope, name: name, typ: typ}
}

// Lit creates a literal expression, inferring its type from the Go value.
// Unsupported values yield an invalid expression.
func Lit(value interface{}) Expr {
	switch v := value.(type) {
	case bool:
		return &LiteralExpr{value: v, typ: types.Boolean}
	case int:
		return &LiteralExpr{value: int64(v), typ: types.Integer}
	case int32:
		return &LiteralExpr{value: int64(v), typ: types.Integer}
	case int64:
		return &LiteralExpr{value: v, typ: types.Integer}
	case float32:
		return &LiteralExpr{value: float64(v), typ: types.Float}
	case float64:
		return &LiteralExpr{value: v, typ: types.Float}
	case string:
		return &LiteralExpr{value: v, typ: types.String}
	case decimal.Decimal:
		return &LiteralExpr{value: v, typ: types.Decimal}
	case time.Time:
		return &LiteralExpr{value: v, typ: types.DateTime}
	case Expr:
		return v
	default:
		return Invalid(errors.NewTypeErrorf("literal",
			"Cannot convert value - %v of type %T to literal expression", value, value))
	}
}

// LitDecimal creates a Decimal literal.
func LitDecimal(d decimal.Decimal) *LiteralExpr {
	return &LiteralExpr{value: d, typ: types.Decimal}
}

// LitDate creates a StrictDate literal from the calendar date of t.
func LitDate(t time.Time) *LiteralExpr {
	y, m, d := t.Date()
	return &LiteralExpr{value: time.Date(y, m, d, 0, 0, 0, 0, time.UTC), typ: types.StrictDate}
}

// LitDateTime creates a DateTime literal.
func LitDateTime(t time.Time) *LiteralExpr {
	return &LiteralExpr{value: t, typ: types.DateTime}
}

// LitNull creates a null literal of the given type.
func LitNull(typ types.PrimitiveType) *LiteralExpr {
	return &LiteralExpr{value: nil, typ: typ}
}

// invalidOf returns the first invalid operand.
func invalidOf(exprs ...Expr) (*InvalidExpr, bool) {
	for _, e := range exprs {
		if inv, ok := e.(*InvalidExpr); ok {
			return inv, true
		}
	}
	return nil, false
}

// describe renders an operand for parameter error messages.
func describe(e Expr) string {
	if l, ok := e.(*LiteralExpr); ok {
		return fmt.Sprintf("%v of type: %s literal", l.value, l.typ)
	}
	return fmt.Sprintf("%s of type: %s expression", e.String(), e.ResultType())
}

func paramError(op, desc, expected string, got Expr) *InvalidExpr {
	return Invalid(errors.NewTypeErrorf(op, "%s should be %s. Got value %s", desc, expected, describe(got)))
}

var arithmeticDescs = map[BinaryOp]string{
	OpAdd: "Add (+) parameter",
	OpSub: "Subtract (-) parameter",
	OpMul: "Multiply (*) parameter",
	OpDiv: "Divide (/) parameter",
	OpMod: "Modulo (%) parameter",
}

// arithmeticType computes the result type of a numeric operator.
func arithmeticType(op BinaryOp, a, b types.PrimitiveType) types.PrimitiveType {
	if a == types.Integer && b == types.Integer {
		if op == OpDiv {
			return types.Float
		}
		return types.Integer
	}
	j, _ := types.Join(a, b)
	return j
}

func arithmetic(op BinaryOp, left, right Expr) Expr {
	if inv, ok := invalidOf(left, right); ok {
		return inv
	}
	desc := arithmeticDescs[op]
	if !left.ResultType().IsNumeric() {
		return paramError(op.name(), desc, "a number expression", left)
	}
	if !right.ResultType().IsNumeric() {
		return paramError(op.name(), desc, "a number expression", right)
	}
	return &BinaryExpr{left: left, op: op, right: right, typ: arithmeticType(op, left.ResultType(), right.ResultType())}
}

func (op BinaryOp) name() string {
	switch op {
	case OpAdd, OpConcat:
		return "add"
	case OpSub:
		return "subtract"
	case OpMul:
		return "multiply"
	case OpDiv:
		return "divide"
	case OpMod:
		return "mod"
	case OpAnd:
		return "and"
	case OpOr:
		return "or"
	case OpXor:
		return "xor"
	default:
		return "compare"
	}
}

// Add creates an addition expression. Two String operands concatenate.
func Add(left, right Expr) Expr {
	if inv, ok := invalidOf(left, right); ok {
		return inv
	}
	if left.ResultType() == types.String {
		if right.ResultType() != types.String {
			return paramError("add", "Add (+) parameter", "a str or a string expression", right)
		}
		return &BinaryExpr{left: left, op: OpConcat, right: right, typ: types.String}
	}
	return arithmetic(OpAdd, left, right)
}

// Sub creates a subtraction expression
func Sub(left, right Expr) Expr {
	return arithmetic(OpSub, left, right)
}

// Mul creates a multiplication expression
func Mul(left, right Expr) Expr {
	return arithmetic(OpMul, left, right)
}

// Div creates a division expression
func Div(left, right Expr) Expr {
	return arithmetic(OpDiv, left, right)
}

// Mod creates an integer modulo expression
func Mod(left, right Expr) Expr {
	if inv, ok := invalidOf(left, right); ok {
		return inv
	}
	if left.ResultType() != types.Integer {
		return paramError("mod", arithmeticDescs[OpMod], "a int or an integer expression", left)
	}
	if right.ResultType() != types.Integer {
		return paramError("mod", arithmeticDescs[OpMod], "a int or an integer expression", right)
	}
	return &BinaryExpr{left: left, op: OpMod, right: right, typ: types.Integer}
}

func comparison(op BinaryOp, left, right Expr) Expr {
	if inv, ok := invalidOf(left, right); ok {
		return inv
	}
	lt, rt := left.ResultType(), right.ResultType()
	desc := fmt.Sprintf("Comparison (%s) parameter", op)
	ordered := op != OpEq && op != OpNe
	if ordered && lt == types.Boolean {
		return paramError("compare", desc, "a number, string or date expression", left)
	}
	if !types.Comparable(lt, rt) {
		return paramError("compare", desc, fmt.Sprintf("comparable with %s", lt), right)
	}
	return &BinaryExpr{left: left, op: op, right: right, typ: types.Boolean}
}

// Eq creates an equality expression
func Eq(left, right Expr) Expr { return comparison(OpEq, left, right) }

// Ne creates a not-equal expression
func Ne(left, right Expr) Expr { return comparison(OpNe, left, right) }

// Lt creates a less-than expression
func Lt(left, right Expr) Expr { return comparison(OpLt, left, right) }

// Le creates a less-than-or-equal expression
func Le(left, right Expr) Expr { return comparison(OpLe, left, right) }

// Gt creates a greater-than expression
func Gt(left, right Expr) Expr { return comparison(OpGt, left, right) }

// Ge creates a greater-than-or-equal expression
func Ge(left, right Expr) Expr { return comparison(OpGe, left, right) }

func logical(op BinaryOp, left, right Expr) Expr {
	if inv, ok := invalidOf(left, right); ok {
		return inv
	}
	desc := fmt.Sprintf("Boolean %s parameter", op.name())
	if left.ResultType() != types.Boolean {
		return paramError(op.name(), desc, "a bool or a boolean expression", left)
	}
	if right.ResultType() != types.Boolean {
		return paramError(op.name(), desc, "a bool or a boolean expression", right)
	}
	return &BinaryExpr{left: left, op: op, right: right, typ: types.Boolean}
}

// And creates a logical AND expression
func And(left, right Expr) Expr { return logical(OpAnd, left, right) }

// Or creates a logical OR expression
func Or(left, right Expr) Expr { return logical(OpOr, left, right) }

// Xor creates a logical exclusive-or expression
func Xor(left, right Expr) Expr { return logical(OpXor, left, right) }

// AllOf folds conditions with AND, left to right.
func AllOf(first Expr, rest ...Expr) Expr {
	result := first
	for _, e := range rest {
		result = And(result, e)
	}
	return result
}

// Not creates a logical negation
func Not(operand Expr) Expr {
	if inv, ok := invalidOf(operand); ok {
		return inv
	}
	if operand.ResultType() != types.Boolean {
		return paramError("not", "Boolean not parameter", "a bool or a boolean expression", operand)
	}
	return &UnaryExpr{op: UnaryNot, operand: operand, typ: types.Boolean}
}

// Neg creates a numeric negation
func Neg(operand Expr) Expr {
	if inv, ok := invalidOf(operand); ok {
		return inv
	}
	if !operand.ResultType().IsNumeric() {
		return paramError("negate", "Negation (-) parameter", "a number expression", operand)
	}
	return &UnaryExpr{op: UnaryNeg, operand: operand, typ: operand.ResultType()}
}

// IsNull tests an operand for emptiness
func IsNull(operand Expr) Expr {
	if inv, ok := invalidOf(operand); ok {
		return inv
	}
	return &UnaryExpr{op: UnaryIsNull, operand: operand, typ: types.Boolean}
}

// IsNotNull tests an operand for presence
func IsNotNull(operand Expr) Expr {
	if inv, ok := invalidOf(operand); ok {
		return inv
	}
	return &UnaryExpr{op: UnaryIsNotNull, operand: operand, typ: types.Boolean}
}

// Case creates a searched CASE expression. Every condition must be Boolean and
// all values (including the else value, when given) must share a supertype.
func Case(whens []CaseWhen, elseValue Expr) Expr {
	if len(whens) == 0 {
		return Invalid(errors.NewValidationError("case", "Case expression needs at least one when clause"))
	}
	operands := make([]Expr, 0, 2*len(whens)+1)
	for _, w := range whens {
		operands = append(operands, w.condition, w.value)
	}
	if elseValue != nil {
		operands = append(operands, elseValue)
	}
	if inv, ok := invalidOf(operands...); ok {
		return inv
	}

	typ := whens[0].value.ResultType()
	for _, w := range whens {
		if w.condition.ResultType() != types.Boolean {
			return paramError("case", "Case condition", "a boolean expression", w.condition)
		}
		j, ok := types.Join(typ, w.value.ResultType())
		if !ok {
			return paramError("case", "Case value", fmt.Sprintf("compatible with %s", typ), w.value)
		}
		typ = j
	}
	if elseValue != nil {
		j, ok := types.Join(typ, elseValue.ResultType())
		if !ok {
			return paramError("case", "Case else value", fmt.Sprintf("compatible with %s", typ), elseValue)
		}
		typ = j
	}

	copied := make([]CaseWhen, len(whens))
	copy(copied, whens)
	return &CaseExpr{whens: copied, elseValue: elseValue, typ: typ}
}

// IfElse is a single-branch CASE expression.
func IfElse(condition, then, otherwise Expr) Expr {
	return Case([]CaseWhen{When(condition, then)}, otherwise)
}
