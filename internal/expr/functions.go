package expr

import (
	"strings"

	"github.com/paveg/tdsframe/internal/errors"
	"github.com/paveg/tdsframe/internal/types"
)

// FuncName identifies a scalar function.
type FuncName string

// String functions
const (
	FnLength        FuncName = "length"
	FnUpper         FuncName = "upper"
	FnLower         FuncName = "lower"
	FnLTrim         FuncName = "ltrim"
	FnRTrim         FuncName = "rtrim"
	FnTrim          FuncName = "trim"
	FnStartsWith    FuncName = "startswith"
	FnEndsWith      FuncName = "endswith"
	FnContains      FuncName = "contains"
	FnIndexOf       FuncName = "index_of"
	FnParseInteger  FuncName = "parse_integer"
	FnParseFloat    FuncName = "parse_float"
	FnParseBoolean  FuncName = "parse_boolean"
	FnParseDateTime FuncName = "parse_datetime"
	FnToString      FuncName = "to_string"
)

// Numeric functions
const (
	FnAbs   FuncName = "abs"
	FnCeil  FuncName = "ceil"
	FnFloor FuncName = "floor"
	FnRound FuncName = "round"
	FnSqrt  FuncName = "sqrt"
	FnExp   FuncName = "exp"
	FnLog   FuncName = "log"
	FnPower FuncName = "power"
)

// Date functions
const (
	FnYear              FuncName = "year"
	FnQuarter           FuncName = "quarter"
	FnMonth             FuncName = "month"
	FnWeekOfYear        FuncName = "week_of_year"
	FnDayOfYear         FuncName = "day_of_year"
	FnDayOfMonth        FuncName = "day"
	FnDayOfWeek         FuncName = "day_of_week"
	FnHour              FuncName = "hour"
	FnMinute            FuncName = "minute"
	FnSecond            FuncName = "second"
	FnEpochValue        FuncName = "epoch_value"
	FnFirstDayOfYear    FuncName = "first_day_of_year"
	FnFirstDayOfQuarter FuncName = "first_day_of_quarter"
	FnFirstDayOfMonth   FuncName = "first_day_of_month"
	FnFirstDayOfWeek    FuncName = "first_day_of_week"
	FnDatePart          FuncName = "date_part"
	FnDateDiff          FuncName = "date_diff"
	FnToday             FuncName = "today"
	FnNow               FuncName = "now"
)

func isString(t types.PrimitiveType) bool   { return t == types.String }
func isNumeric(t types.PrimitiveType) bool  { return t.IsNumeric() }
func isTemporal(t types.PrimitiveType) bool { return t.IsTemporal() }

func fixed(t types.PrimitiveType) func(types.PrimitiveType) types.PrimitiveType {
	return func(types.PrimitiveType) types.PrimitiveType { return t }
}

func same(t types.PrimitiveType) types.PrimitiveType { return t }

type unarySignature struct {
	domain   func(types.PrimitiveType) bool
	expected string
	result   func(types.PrimitiveType) types.PrimitiveType
}

var (
	stringFn   = func(r types.PrimitiveType) unarySignature { return unarySignature{isString, "a string expression", fixed(r)} }
	numericFn  = func(r types.PrimitiveType) unarySignature { return unarySignature{isNumeric, "a number expression", fixed(r)} }
	temporalFn = func(r types.PrimitiveType) unarySignature { return unarySignature{isTemporal, "a date expression", fixed(r)} }
)

var unarySignatures = map[FuncName]unarySignature{
	FnLength:        stringFn(types.Integer),
	FnUpper:         stringFn(types.String),
	FnLower:         stringFn(types.String),
	FnLTrim:         stringFn(types.String),
	FnRTrim:         stringFn(types.String),
	FnTrim:          stringFn(types.String),
	FnParseInteger:  stringFn(types.Integer),
	FnParseFloat:    stringFn(types.Float),
	FnParseBoolean:  stringFn(types.Boolean),
	FnParseDateTime: stringFn(types.DateTime),

	FnAbs:   {isNumeric, "a number expression", same},
	FnCeil:  numericFn(types.Integer),
	FnFloor: numericFn(types.Integer),
	FnRound: numericFn(types.Integer),
	FnSqrt:  numericFn(types.Float),
	FnExp:   numericFn(types.Float),
	FnLog:   numericFn(types.Float),

	FnYear:              temporalFn(types.Integer),
	FnQuarter:           temporalFn(types.Integer),
	FnMonth:             temporalFn(types.Integer),
	FnWeekOfYear:        temporalFn(types.Integer),
	FnDayOfYear:         temporalFn(types.Integer),
	FnDayOfMonth:        temporalFn(types.Integer),
	FnDayOfWeek:         temporalFn(types.Integer),
	FnHour:              temporalFn(types.Integer),
	FnMinute:            temporalFn(types.Integer),
	FnSecond:            temporalFn(types.Integer),
	FnEpochValue:        temporalFn(types.Integer),
	FnFirstDayOfYear:    temporalFn(types.StrictDate),
	FnFirstDayOfQuarter: temporalFn(types.StrictDate),
	FnFirstDayOfMonth:   temporalFn(types.StrictDate),
	FnFirstDayOfWeek:    temporalFn(types.StrictDate),
	FnDatePart:          temporalFn(types.StrictDate),
}

// Call1 applies a single-argument function from the signature table.
func Call1(name FuncName, operand Expr) Expr {
	if inv, ok := invalidOf(operand); ok {
		return inv
	}
	sig, ok := unarySignatures[name]
	if !ok {
		return Invalid(errors.NewValidationErrorf(string(name), "Unknown function: %s", name))
	}
	if !sig.domain(operand.ResultType()) {
		return paramError(string(name), string(name)+" parameter", sig.expected, operand)
	}
	return &FunctionExpr{name: name, args: []Expr{operand}, typ: sig.result(operand.ResultType())}
}

func Length(e Expr) Expr        { return Call1(FnLength, e) }
func Upper(e Expr) Expr         { return Call1(FnUpper, e) }
func Lower(e Expr) Expr         { return Call1(FnLower, e) }
func LTrim(e Expr) Expr         { return Call1(FnLTrim, e) }
func RTrim(e Expr) Expr         { return Call1(FnRTrim, e) }
func Trim(e Expr) Expr          { return Call1(FnTrim, e) }
func ParseInteger(e Expr) Expr  { return Call1(FnParseInteger, e) }
func ParseFloat(e Expr) Expr    { return Call1(FnParseFloat, e) }
func ParseBoolean(e Expr) Expr  { return Call1(FnParseBoolean, e) }
func ParseDateTime(e Expr) Expr { return Call1(FnParseDateTime, e) }

func Abs(e Expr) Expr   { return Call1(FnAbs, e) }
func Ceil(e Expr) Expr  { return Call1(FnCeil, e) }
func Floor(e Expr) Expr { return Call1(FnFloor, e) }
func Round(e Expr) Expr { return Call1(FnRound, e) }
func Sqrt(e Expr) Expr  { return Call1(FnSqrt, e) }
func Exp(e Expr) Expr   { return Call1(FnExp, e) }
func Log(e Expr) Expr   { return Call1(FnLog, e) }

func Year(e Expr) Expr              { return Call1(FnYear, e) }
func Quarter(e Expr) Expr           { return Call1(FnQuarter, e) }
func Month(e Expr) Expr             { return Call1(FnMonth, e) }
func WeekOfYear(e Expr) Expr        { return Call1(FnWeekOfYear, e) }
func DayOfYear(e Expr) Expr         { return Call1(FnDayOfYear, e) }
func DayOfMonth(e Expr) Expr        { return Call1(FnDayOfMonth, e) }
func DayOfWeek(e Expr) Expr         { return Call1(FnDayOfWeek, e) }
func Hour(e Expr) Expr              { return Call1(FnHour, e) }
func Minute(e Expr) Expr            { return Call1(FnMinute, e) }
func Second(e Expr) Expr            { return Call1(FnSecond, e) }
func EpochValue(e Expr) Expr        { return Call1(FnEpochValue, e) }
func FirstDayOfYear(e Expr) Expr    { return Call1(FnFirstDayOfYear, e) }
func FirstDayOfQuarter(e Expr) Expr { return Call1(FnFirstDayOfQuarter, e) }
func FirstDayOfMonth(e Expr) Expr   { return Call1(FnFirstDayOfMonth, e) }
func FirstDayOfWeek(e Expr) Expr    { return Call1(FnFirstDayOfWeek, e) }
func DatePart(e Expr) Expr          { return Call1(FnDatePart, e) }

// ToString renders any operand as text.
func ToString(e Expr) Expr {
	if inv, ok := invalidOf(e); ok {
		return inv
	}
	return &FunctionExpr{name: FnToString, args: []Expr{e}, typ: types.String}
}

// matchDescs name the pattern argument of each match function in error messages.
var matchDescs = map[FuncName]string{
	FnStartsWith: "startswith prefix parameter",
	FnEndsWith:   "endswith suffix parameter",
	FnContains:   "contains/in other parameter",
}

func match(name FuncName, e, pattern Expr) Expr {
	if inv, ok := invalidOf(e, pattern); ok {
		return inv
	}
	if e.ResultType() != types.String {
		return paramError(string(name), string(name)+" parameter", "a string expression", e)
	}
	lit, ok := pattern.(*LiteralExpr)
	if !ok || lit.typ != types.String || lit.IsNull() {
		return Invalid(errors.NewTypeErrorf(string(name), "%s should be a str. Got value %s",
			matchDescs[name], describe(pattern)))
	}
	return &FunctionExpr{name: name, args: []Expr{e, pattern}, typ: types.Boolean}
}

// StartsWith tests for a literal prefix. The pattern must be a String literal.
func StartsWith(e, prefix Expr) Expr { return match(FnStartsWith, e, prefix) }

// EndsWith tests for a literal suffix.
func EndsWith(e, suffix Expr) Expr { return match(FnEndsWith, e, suffix) }

// Contains tests for a literal substring.
func Contains(e, other Expr) Expr { return match(FnContains, e, other) }

// IndexOf returns the position of needle in e.
func IndexOf(e, needle Expr) Expr {
	if inv, ok := invalidOf(e, needle); ok {
		return inv
	}
	if e.ResultType() != types.String {
		return paramError(string(FnIndexOf), "index_of parameter", "a string expression", e)
	}
	if needle.ResultType() != types.String {
		return paramError(string(FnIndexOf), "index_of other parameter", "a str or a string expression", needle)
	}
	return &FunctionExpr{name: FnIndexOf, args: []Expr{e, needle}, typ: types.Integer}
}

// Power raises base to exponent.
func Power(base, exponent Expr) Expr {
	if inv, ok := invalidOf(base, exponent); ok {
		return inv
	}
	if !base.ResultType().IsNumeric() {
		return paramError(string(FnPower), "power parameter", "a number expression", base)
	}
	if !exponent.ResultType().IsNumeric() {
		return paramError(string(FnPower), "power parameter", "a number expression", exponent)
	}
	return &FunctionExpr{name: FnPower, args: []Expr{base, exponent}, typ: types.Number}
}

// DurationUnit is the unit of a date difference.
type DurationUnit string

const (
	UnitYears   DurationUnit = "YEARS"
	UnitMonths  DurationUnit = "MONTHS"
	UnitWeeks   DurationUnit = "WEEKS"
	UnitDays    DurationUnit = "DAYS"
	UnitHours   DurationUnit = "HOURS"
	UnitMinutes DurationUnit = "MINUTES"
	UnitSeconds DurationUnit = "SECONDS"
)

var durationUnits = []DurationUnit{UnitYears, UnitMonths, UnitWeeks, UnitDays, UnitHours, UnitMinutes, UnitSeconds}

// ParseDurationUnit resolves a unit name case-insensitively; singular forms are accepted.
func ParseDurationUnit(name string) (DurationUnit, bool) {
	upper := strings.ToUpper(name)
	for _, u := range durationUnits {
		if string(u) == upper || string(u) == upper+"S" {
			return u, true
		}
	}
	return "", false
}

// SQLPart is the date part keyword of the unit, e.g. "day".
func (u DurationUnit) SQLPart() string {
	return strings.ToLower(strings.TrimSuffix(string(u), "S"))
}

// DateDiff counts the units between from and to.
func DateDiff(from, to Expr, unit DurationUnit) Expr {
	if inv, ok := invalidOf(from, to); ok {
		return inv
	}
	if !from.ResultType().IsTemporal() {
		return paramError(string(FnDateDiff), "date_diff parameter", "a date expression", from)
	}
	if !to.ResultType().IsTemporal() {
		return paramError(string(FnDateDiff), "date_diff other parameter", "a date expression", to)
	}
	return &FunctionExpr{
		name: FnDateDiff,
		args: []Expr{from, to, &LiteralExpr{value: string(unit), typ: types.String}},
		typ:  types.Integer,
	}
}

// Today is the current date.
func Today() Expr {
	return &FunctionExpr{name: FnToday, typ: types.StrictDate}
}

// Now is the current timestamp.
func Now() Expr {
	return &FunctionExpr{name: FnNow, typ: types.DateTime}
}
