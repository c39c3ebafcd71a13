package sqlplan

import (
	"time"

	"github.com/paveg/tdsframe/internal/common"
	"github.com/paveg/tdsframe/internal/errors"
	"github.com/paveg/tdsframe/internal/expr"
	"github.com/paveg/tdsframe/internal/sqlast"
	"github.com/paveg/tdsframe/internal/types"
	"github.com/shopspring/decimal"
)

// resolver maps a column reference onto the SQL expression it reads.
type resolver func(c *expr.ColumnExpr) (sqlast.Expression, error)

// rowResolver inlines the SELECT item a row-scoped reference names.
func rowResolver(q *sqlast.QuerySpec, op string) resolver {
	return func(c *expr.ColumnExpr) (sqlast.Expression, error) {
		return itemExpr(q, op, c.Name())
	}
}

// joinResolver reads join condition references from the aliased sides.
func joinResolver(leftAlias, rightAlias string) resolver {
	return func(c *expr.ColumnExpr) (sqlast.Expression, error) {
		alias := leftAlias
		if c.Scope() == expr.ScopeRight {
			alias = rightAlias
		}
		return sqlast.Column(alias, common.QuoteIdentifier(c.Name())), nil
	}
}

type lowering struct {
	op      string
	resolve resolver
}

func newLowering(op string, resolve resolver) *lowering {
	return &lowering{op: op, resolve: resolve}
}

var comparisonOps = map[expr.BinaryOp]sqlast.ComparisonOp{
	expr.OpEq: sqlast.Equal,
	expr.OpNe: sqlast.NotEqual,
	expr.OpLt: sqlast.LessThan,
	expr.OpLe: sqlast.LessOrEqual,
	expr.OpGt: sqlast.GreaterThan,
	expr.OpGe: sqlast.GreaterOrEqual,
}

var arithmeticOps = map[expr.BinaryOp]sqlast.ArithmeticOp{
	expr.OpAdd: sqlast.Add,
	expr.OpSub: sqlast.Subtract,
	expr.OpMul: sqlast.Multiply,
	expr.OpDiv: sqlast.Divide,
	expr.OpMod: sqlast.Modulus,
}

// Scalar functions rendered as a plain call of one argument.
var unaryCalls = map[expr.FuncName]string{
	expr.FnLength: "CHAR_LENGTH",
	expr.FnUpper:  "UPPER",
	expr.FnLower:  "LOWER",
	expr.FnLTrim:  "LTRIM",
	expr.FnRTrim:  "RTRIM",
	expr.FnTrim:   "BTRIM",
	expr.FnAbs:    "ABS",
	expr.FnCeil:   "CEIL",
	expr.FnFloor:  "FLOOR",
	expr.FnRound:  "ROUND",
	expr.FnSqrt:   "SQRT",
	expr.FnExp:    "EXP",
	expr.FnLog:    "LN",
}

var casts = map[expr.FuncName]string{
	expr.FnParseInteger:  "INTEGER",
	expr.FnParseFloat:    "DOUBLE PRECISION",
	expr.FnParseBoolean:  "BOOLEAN",
	expr.FnParseDateTime: "TIMESTAMP WITH TIME ZONE",
	expr.FnToString:      "VARCHAR",
	expr.FnDatePart:      "DATE",
}

// Date part accessors, lowered to DATE_PART('<part>', x).
var dateParts = map[expr.FuncName]string{
	expr.FnYear:       "year",
	expr.FnQuarter:    "quarter",
	expr.FnMonth:      "month",
	expr.FnWeekOfYear: "week",
	expr.FnDayOfYear:  "doy",
	expr.FnDayOfMonth: "day",
	expr.FnDayOfWeek:  "dow",
	expr.FnHour:       "hour",
	expr.FnMinute:     "minute",
	expr.FnSecond:     "second",
	expr.FnEpochValue: "epoch",
}

// Truncations, lowered to DATE_TRUNC('<unit>', x).
var dateTruncs = map[expr.FuncName]string{
	expr.FnFirstDayOfYear:    "year",
	expr.FnFirstDayOfQuarter: "quarter",
	expr.FnFirstDayOfMonth:   "month",
	expr.FnFirstDayOfWeek:    "week",
}

var aggregateCalls = map[expr.AggregationType]string{
	expr.AggSum:           "SUM",
	expr.AggCount:         "COUNT",
	expr.AggCountDistinct: "COUNT",
	expr.AggAvg:           "AVG",
	expr.AggMin:           "MIN",
	expr.AggMax:           "MAX",
	expr.AggStdDev:        "STDDEV_SAMP",
	expr.AggVariance:      "VAR_SAMP",
	expr.AggJoinStrings:   "STRING_AGG",
}

func (l *lowering) lower(e expr.Expr) (sqlast.Expression, error) {
	switch e := e.(type) {
	case *expr.ColumnExpr:
		return l.resolve(e)
	case *expr.LiteralExpr:
		return literal(e), nil
	case *expr.BinaryExpr:
		return l.lowerBinary(e)
	case *expr.UnaryExpr:
		return l.lowerUnary(e)
	case *expr.FunctionExpr:
		return l.lowerFunction(e)
	case *expr.AggregationExpr:
		return l.lowerAggregation(e)
	case *expr.CaseExpr:
		return l.lowerCase(e)
	case *expr.WindowExpr:
		return l.lowerWindow(e)
	case *expr.InvalidExpr:
		return nil, e.Err()
	case nil:
		return nil, errors.NewValidationError(l.op, "Expression must not be nil")
	default:
		return nil, errors.NewUnsupportedError(l.op, "Cannot generate SQL for expression "+e.String())
	}
}

func (l *lowering) lowerAll(es ...expr.Expr) ([]sqlast.Expression, error) {
	out := make([]sqlast.Expression, len(es))
	for i, e := range es {
		lowered, err := l.lower(e)
		if err != nil {
			return nil, err
		}
		out[i] = lowered
	}
	return out, nil
}

func literal(e *expr.LiteralExpr) sqlast.Expression {
	switch v := e.Value().(type) {
	case nil:
		return &sqlast.NullLiteral{}
	case bool:
		return &sqlast.BooleanLiteral{Value: v}
	case int64:
		return &sqlast.IntegerLiteral{Value: v}
	case float64:
		return &sqlast.DoubleLiteral{Value: v}
	case decimal.Decimal:
		return &sqlast.DecimalLiteral{Value: v}
	case time.Time:
		if e.ResultType() == types.StrictDate {
			return &sqlast.Cast{Value: &sqlast.StringLiteral{Value: common.FormatDate(v)}, Type: "DATE"}
		}
		return &sqlast.Cast{Value: &sqlast.StringLiteral{Value: common.FormatDateTime(v)}, Type: "TIMESTAMP"}
	case string:
		return &sqlast.StringLiteral{Value: v}
	default:
		return &sqlast.NullLiteral{}
	}
}

func isLiteral(e expr.Expr) bool {
	_, ok := e.(*expr.LiteralExpr)
	return ok
}

func (l *lowering) lowerBinary(e *expr.BinaryExpr) (sqlast.Expression, error) {
	left, right, op := e.Left(), e.Right(), e.Op()
	if op.IsComparison() && isLiteral(left) && !isLiteral(right) {
		left, right, op = right, left, op.Flip()
	}
	operands, err := l.lowerAll(left, right)
	if err != nil {
		return nil, err
	}
	lhs, rhs := operands[0], operands[1]

	if cmp, ok := comparisonOps[op]; ok {
		return &sqlast.Comparison{Op: cmp, Left: lhs, Right: rhs}, nil
	}
	if arith, ok := arithmeticOps[op]; ok {
		return &sqlast.Arithmetic{Op: arith, Left: lhs, Right: rhs}, nil
	}
	switch op {
	case expr.OpConcat:
		return &sqlast.Call{Name: "CONCAT", Args: []sqlast.Expression{lhs, rhs}}, nil
	case expr.OpAnd:
		return &sqlast.Logical{Op: sqlast.And, Left: lhs, Right: rhs}, nil
	case expr.OpOr:
		return &sqlast.Logical{Op: sqlast.Or, Left: lhs, Right: rhs}, nil
	case expr.OpXor:
		return &sqlast.Comparison{Op: sqlast.NotEqual, Left: lhs, Right: rhs}, nil
	}
	return nil, errors.NewUnsupportedError(l.op, "Cannot generate SQL for operator "+op.String())
}

func (l *lowering) lowerUnary(e *expr.UnaryExpr) (sqlast.Expression, error) {
	operand, err := l.lower(e.Operand())
	if err != nil {
		return nil, err
	}
	switch e.Op() {
	case expr.UnaryNeg:
		return &sqlast.Negative{Value: operand}, nil
	case expr.UnaryNot:
		return &sqlast.Not{Value: operand}, nil
	case expr.UnaryIsNull:
		return &sqlast.IsNull{Value: operand}, nil
	default:
		return &sqlast.IsNotNull{Value: operand}, nil
	}
}

func (l *lowering) lowerFunction(e *expr.FunctionExpr) (sqlast.Expression, error) {
	name := e.Name()
	switch name {
	case expr.FnToday:
		return &sqlast.CurrentTime{Kind: sqlast.CurrentDate}, nil
	case expr.FnNow:
		return &sqlast.CurrentTime{Kind: sqlast.CurrentTimestamp}, nil
	case expr.FnDateDiff:
		return l.lowerDateDiff(e)
	}

	args, err := l.lowerAll(e.Args()...)
	if err != nil {
		return nil, err
	}
	if fn, ok := unaryCalls[name]; ok {
		return &sqlast.Call{Name: fn, Args: args}, nil
	}
	if typ, ok := casts[name]; ok {
		return &sqlast.Cast{Value: args[0], Type: typ}, nil
	}
	if part, ok := dateParts[name]; ok {
		return &sqlast.Call{Name: "DATE_PART", Args: []sqlast.Expression{&sqlast.StringLiteral{Value: part}, args[0]}}, nil
	}
	if unit, ok := dateTruncs[name]; ok {
		return &sqlast.Call{Name: "DATE_TRUNC", Args: []sqlast.Expression{&sqlast.StringLiteral{Value: unit}, args[0]}}, nil
	}

	switch name {
	case expr.FnStartsWith, expr.FnEndsWith, expr.FnContains:
		return l.lowerMatch(name, args[0], e.Args()[1])
	case expr.FnIndexOf:
		return &sqlast.Call{Name: "STRPOS", Args: args}, nil
	case expr.FnPower:
		return &sqlast.Call{Name: "POWER", Args: args}, nil
	}
	return nil, errors.NewUnsupportedError(l.op, "Cannot generate SQL for function "+string(name))
}

// lowerMatch renders a literal prefix, suffix or infix match as LIKE.
func (l *lowering) lowerMatch(name expr.FuncName, value sqlast.Expression, pattern expr.Expr) (sqlast.Expression, error) {
	lit, ok := pattern.(*expr.LiteralExpr)
	if !ok {
		return nil, errors.NewTypeErrorf(l.op, "%s requires a literal pattern. Got: %s", name, pattern)
	}
	text, _ := lit.Value().(string)
	escaped := common.EscapeLikePattern(text)
	switch name {
	case expr.FnStartsWith:
		escaped += "%"
	case expr.FnEndsWith:
		escaped = "%" + escaped
	default:
		escaped = "%" + escaped + "%"
	}
	return &sqlast.Like{Value: value, Pattern: &sqlast.StringLiteral{Value: escaped}}, nil
}

func (l *lowering) lowerDateDiff(e *expr.FunctionExpr) (sqlast.Expression, error) {
	args := e.Args()
	operands, err := l.lowerAll(args[0], args[1])
	if err != nil {
		return nil, err
	}
	unit := expr.UnitDays
	if lit, ok := args[2].(*expr.LiteralExpr); ok {
		if s, ok := lit.Value().(string); ok {
			unit = expr.DurationUnit(s)
		}
	}
	return &sqlast.Call{
		Name: "DATE_DIFF",
		Args: []sqlast.Expression{&sqlast.StringLiteral{Value: unit.SQLPart()}, operands[0], operands[1]},
	}, nil
}

func (l *lowering) lowerAggregation(e *expr.AggregationExpr) (sqlast.Expression, error) {
	operand, err := l.lower(e.Column())
	if err != nil {
		return nil, err
	}
	call := &sqlast.Call{
		Name:     aggregateCalls[e.AggType()],
		Args:     []sqlast.Expression{operand},
		Distinct: e.AggType() == expr.AggCountDistinct,
	}
	if e.AggType() == expr.AggJoinStrings {
		call.Args = append(call.Args, &sqlast.StringLiteral{Value: e.Separator()})
	}
	return call, nil
}

func (l *lowering) lowerCase(e *expr.CaseExpr) (sqlast.Expression, error) {
	out := &sqlast.Case{Whens: make([]sqlast.When, len(e.Whens()))}
	for i, w := range e.Whens() {
		operands, err := l.lowerAll(w.Condition(), w.Value())
		if err != nil {
			return nil, err
		}
		out.Whens[i] = sqlast.When{Condition: operands[0], Result: operands[1]}
	}
	if e.ElseValue() != nil {
		elseValue, err := l.lower(e.ElseValue())
		if err != nil {
			return nil, err
		}
		out.Else = elseValue
	}
	return out, nil
}

func (l *lowering) lowerWindow(e *expr.WindowExpr) (sqlast.Expression, error) {
	column, err := l.lower(e.Column())
	if err != nil {
		return nil, err
	}
	fn := "LAG"
	if e.Function() == expr.WindowLead {
		fn = "LEAD"
	}
	out := &sqlast.Windowed{
		Func: &sqlast.Call{Name: fn, Args: []sqlast.Expression{column, &sqlast.IntegerLiteral{Value: int64(e.Offset())}}},
	}
	for _, p := range e.Window().Partitions() {
		ref, err := l.resolve(expr.Col(e.Column().Scope(), p, types.String))
		if err != nil {
			return nil, err
		}
		out.PartitionBy = append(out.PartitionBy, ref)
	}
	for _, o := range e.Window().Orders() {
		ref, err := l.resolve(expr.Col(e.Column().Scope(), o.Column(), types.String))
		if err != nil {
			return nil, err
		}
		out.OrderBy = append(out.OrderBy, sqlast.SortItem{Key: ref, Descending: !o.Ascending()})
	}
	return out, nil
}
