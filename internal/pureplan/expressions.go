package pureplan

import (
	"strconv"
	"strings"
	"time"

	"github.com/paveg/tdsframe/internal/common"
	"github.com/paveg/tdsframe/internal/errors"
	"github.com/paveg/tdsframe/internal/expr"
	"github.com/paveg/tdsframe/internal/types"
	"github.com/shopspring/decimal"
)

// scope renders a column reference against the lambda variables in view.
type scope func(c *expr.ColumnExpr) string

func rowScope(c *expr.ColumnExpr) string {
	return "$r." + common.EscapeColumnName(c.Name())
}

func joinScope(c *expr.ColumnExpr) string {
	if c.Scope() == expr.ScopeLeft {
		return "$l." + common.EscapeColumnName(c.Name())
	}
	return "$r." + common.EscapeColumnName(c.Name())
}

// lambda renders {param | body}, dropping one pair of enclosing parentheses.
func lambda(param, body string) string {
	return "{" + param + " | " + common.StripOuterParens(body) + "}"
}

// call renders the functional call params[0]->fn(params[1:]).
func call(fn string, params ...string) string {
	if len(params) == 0 {
		return fn + "()"
	}
	rest := make([]string, len(params)-1)
	for i, p := range params[1:] {
		rest[i] = common.StripOuterParens(p)
	}
	return params[0] + "->" + fn + "(" + strings.Join(rest, ", ") + ")"
}

// nonNullable reports whether e is known to produce exactly one value, so that
// it can be passed where multiplicity one is required without toOne.
func nonNullable(e expr.Expr) bool {
	switch e := e.(type) {
	case *expr.LiteralExpr:
		return !e.IsNull()
	case *expr.BinaryExpr:
		switch e.Op() {
		case expr.OpLt, expr.OpLe, expr.OpGt, expr.OpGe:
			return false
		}
		return true
	case *expr.UnaryExpr:
		return true
	case *expr.FunctionExpr:
		switch e.Name() {
		case expr.FnStartsWith, expr.FnEndsWith, expr.FnContains:
			return false
		}
		return true
	default:
		return false
	}
}

// Functions that take their operand with multiplicity one.
var oneCalls = map[expr.FuncName]string{
	expr.FnLength:            "length",
	expr.FnUpper:             "toUpper",
	expr.FnLower:             "toLower",
	expr.FnTrim:              "trim",
	expr.FnLTrim:             "ltrim",
	expr.FnRTrim:             "rtrim",
	expr.FnParseInteger:      "parseInteger",
	expr.FnParseFloat:        "parseFloat",
	expr.FnParseBoolean:      "parseBoolean",
	expr.FnParseDateTime:     "parseDate",
	expr.FnToString:          "toString",
	expr.FnAbs:               "abs",
	expr.FnCeil:              "ceiling",
	expr.FnFloor:             "floor",
	expr.FnRound:             "round",
	expr.FnSqrt:              "sqrt",
	expr.FnExp:               "exp",
	expr.FnLog:               "log",
	expr.FnPower:             "pow",
	expr.FnYear:              "year",
	expr.FnQuarter:           "quarter",
	expr.FnMonth:             "month",
	expr.FnWeekOfYear:        "weekOfYear",
	expr.FnDayOfYear:         "dayOfYear",
	expr.FnDayOfMonth:        "dayOfMonth",
	expr.FnDayOfWeek:         "dayOfWeekNumber",
	expr.FnHour:              "hour",
	expr.FnMinute:            "minute",
	expr.FnSecond:            "second",
	expr.FnEpochValue:        "toEpochValue",
	expr.FnFirstDayOfYear:    "firstDayOfYear",
	expr.FnFirstDayOfQuarter: "firstDayOfQuarter",
	expr.FnFirstDayOfMonth:   "firstDayOfMonth",
	expr.FnFirstDayOfWeek:    "firstDayOfWeek",
}

// Functions that accept an empty operand.
var anyCalls = map[expr.FuncName]string{
	expr.FnStartsWith: "startsWith",
	expr.FnEndsWith:   "endsWith",
	expr.FnContains:   "contains",
	expr.FnIndexOf:    "indexOf",
}

type lowering struct {
	op    string
	scope scope
}

func newLowering(op string, s scope) *lowering {
	return &lowering{op: op, scope: s}
}

func (l *lowering) lower(e expr.Expr) (string, error) {
	switch e := e.(type) {
	case *expr.ColumnExpr:
		return l.scope(e), nil
	case *expr.LiteralExpr:
		return literal(e), nil
	case *expr.BinaryExpr:
		return l.lowerBinary(e)
	case *expr.UnaryExpr:
		return l.lowerUnary(e)
	case *expr.FunctionExpr:
		return l.lowerFunction(e)
	case *expr.CaseExpr:
		return l.lowerCase(e)
	case *expr.AggregationExpr:
		return "", errors.NewUnsupportedError(l.op, "Aggregate "+e.String()+" can only be used in group by")
	case *expr.WindowExpr:
		return "", errors.NewUnsupportedError(l.op,
			"Window function "+e.String()+" must be the whole value of an extended column")
	case *expr.InvalidExpr:
		return "", e.Err()
	case nil:
		return "", errors.NewValidationError(l.op, "Expression must not be nil")
	default:
		return "", errors.NewUnsupportedError(l.op, "Cannot generate Pure for expression "+e.String())
	}
}

// lowerOne renders e for a position that needs exactly one value.
func (l *lowering) lowerOne(e expr.Expr) (string, error) {
	text, err := l.lower(e)
	if err != nil {
		return "", err
	}
	if nonNullable(e) {
		return text, nil
	}
	return "toOne(" + common.StripOuterParens(text) + ")", nil
}

func (l *lowering) lowerOnes(es ...expr.Expr) ([]string, error) {
	out := make([]string, len(es))
	for i, e := range es {
		text, err := l.lowerOne(e)
		if err != nil {
			return nil, err
		}
		out[i] = text
	}
	return out, nil
}

func literal(e *expr.LiteralExpr) string {
	switch v := e.Value().(type) {
	case nil:
		return "[]"
	case bool:
		return strconv.FormatBool(v)
	case int64:
		return common.FormatInt(v)
	case float64:
		return common.FormatFloat(v)
	case decimal.Decimal:
		return v.String() + "D"
	case time.Time:
		if e.ResultType() == types.StrictDate {
			return "%" + common.FormatDate(v)
		}
		return "%" + common.FormatDateTime(v)
	case string:
		return common.QuotePureString(v)
	default:
		return "[]"
	}
}

func (l *lowering) lowerBinary(e *expr.BinaryExpr) (string, error) {
	op := e.Op()
	if op.IsComparison() {
		operands, err := l.lowerAll(e.Left(), e.Right())
		if err != nil {
			return "", err
		}
		return "(" + operands[0] + " " + op.String() + " " + operands[1] + ")", nil
	}

	operands, err := l.lowerOnes(e.Left(), e.Right())
	if err != nil {
		return "", err
	}
	switch op {
	case expr.OpMod:
		return call("mod", operands...), nil
	case expr.OpXor:
		return "xor(" + operands[0] + ", " + operands[1] + ")", nil
	}
	return "(" + operands[0] + " " + op.String() + " " + operands[1] + ")", nil
}

func (l *lowering) lowerAll(es ...expr.Expr) ([]string, error) {
	out := make([]string, len(es))
	for i, e := range es {
		text, err := l.lower(e)
		if err != nil {
			return nil, err
		}
		out[i] = text
	}
	return out, nil
}

func (l *lowering) lowerUnary(e *expr.UnaryExpr) (string, error) {
	switch e.Op() {
	case expr.UnaryIsNull, expr.UnaryIsNotNull:
		operand, err := l.lower(e.Operand())
		if err != nil {
			return "", err
		}
		if e.Op() == expr.UnaryIsNull {
			return call("isEmpty", operand), nil
		}
		return call("isNotEmpty", operand), nil
	}

	operand, err := l.lowerOne(e.Operand())
	if err != nil {
		return "", err
	}
	if e.Op() == expr.UnaryNeg {
		return call("minus", operand), nil
	}
	return call("not", operand), nil
}

func (l *lowering) lowerFunction(e *expr.FunctionExpr) (string, error) {
	name := e.Name()
	switch name {
	case expr.FnToday:
		return call("today"), nil
	case expr.FnNow:
		return call("now"), nil
	case expr.FnDateDiff:
		return l.lowerDateDiff(e)
	case expr.FnDatePart:
		operand, err := l.lowerOne(e.Args()[0])
		if err != nil {
			return "", err
		}
		return call("cast", call("datePart", operand), "@StrictDate"), nil
	}

	if fn, ok := oneCalls[name]; ok {
		args, err := l.lowerOnes(e.Args()...)
		if err != nil {
			return "", err
		}
		return call(fn, args...), nil
	}
	if fn, ok := anyCalls[name]; ok {
		args, err := l.lowerAll(e.Args()...)
		if err != nil {
			return "", err
		}
		return call(fn, args...), nil
	}
	return "", errors.NewUnsupportedError(l.op, "Cannot generate Pure for function "+string(name))
}

func (l *lowering) lowerDateDiff(e *expr.FunctionExpr) (string, error) {
	args := e.Args()
	operands, err := l.lowerAll(args[0], args[1])
	if err != nil {
		return "", err
	}
	unit := expr.UnitDays
	if lit, ok := args[2].(*expr.LiteralExpr); ok {
		if s, ok := lit.Value().(string); ok {
			unit = expr.DurationUnit(s)
		}
	}
	return call("dateDiff", operands[0], operands[1], "DurationUnit."+string(unit)), nil
}

// lowerCase nests one if per branch: if(c1, | v1, | if(c2, | v2, | else)).
func (l *lowering) lowerCase(e *expr.CaseExpr) (string, error) {
	otherwise := "[]"
	if e.ElseValue() != nil {
		text, err := l.lower(e.ElseValue())
		if err != nil {
			return "", err
		}
		otherwise = common.StripOuterParens(text)
	}
	whens := e.Whens()
	for i := len(whens) - 1; i >= 0; i-- {
		parts, err := l.lowerAll(whens[i].Condition(), whens[i].Value())
		if err != nil {
			return "", err
		}
		otherwise = "if(" + common.StripOuterParens(parts[0]) + ", | " + common.StripOuterParens(parts[1]) + ", | " + otherwise + ")"
	}
	return otherwise, nil
}
