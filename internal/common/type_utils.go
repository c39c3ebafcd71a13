package common

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// TypeConverter converts loosely typed values, such as those decoded from YAML
// documents, into the literal value types of the expression layer.
type TypeConverter struct{}

// NewTypeConverter creates a new TypeConverter instance.
func NewTypeConverter() *TypeConverter {
	return &TypeConverter{}
}

// ToInt64 converts integral values to int64. Floats are accepted only when they
// have no fractional part.
func (tc *TypeConverter) ToInt64(value interface{}) (int64, error) {
	switch v := value.(type) {
	case int:
		return int64(v), nil
	case int8:
		return int64(v), nil
	case int16:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case int64:
		return v, nil
	case uint:
		if uint64(v) > math.MaxInt64 {
			return 0, fmt.Errorf("uint value %d overflows int64 range", v)
		}
		return int64(v), nil
	case uint32:
		return int64(v), nil
	case uint64:
		if v > math.MaxInt64 {
			return 0, fmt.Errorf("uint64 value %d overflows int64 range", v)
		}
		return int64(v), nil
	case float64:
		if v != math.Trunc(v) || v > math.MaxInt64 || v < math.MinInt64 {
			return 0, fmt.Errorf("float64 value %v is not an integer", v)
		}
		return int64(v), nil
	case string:
		return strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	default:
		return 0, fmt.Errorf("cannot convert %T to int64", value)
	}
}

// ToFloat64 converts numeric values to float64.
func (tc *TypeConverter) ToFloat64(value interface{}) (float64, error) {
	switch v := value.(type) {
	case int:
		return float64(v), nil
	case int32:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case uint64:
		return float64(v), nil
	case float32:
		return float64(v), nil
	case float64:
		return v, nil
	case string:
		return strconv.ParseFloat(strings.TrimSpace(v), 64)
	default:
		return 0, fmt.Errorf("cannot convert %T to float64", value)
	}
}

// ToInts converts a scalar or a list of integral values.
func (tc *TypeConverter) ToInts(value interface{}) ([]int, error) {
	items, ok := value.([]interface{})
	if !ok {
		items = []interface{}{value}
	}
	out := make([]int, len(items))
	for i, item := range items {
		n, err := tc.ToInt64(item)
		if err != nil {
			return nil, err
		}
		out[i] = int(n)
	}
	return out, nil
}

// FormatFloat renders a float the way both target languages read it back: a
// decimal point is always present, and exponent notation is used only for very
// small or very large magnitudes.
func FormatFloat(f float64) string {
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return strconv.FormatFloat(f, 'g', -1, 64)
	}
	abs := math.Abs(f)
	if abs != 0 && (abs < 1e-4 || abs >= 1e16) {
		return strconv.FormatFloat(f, 'e', -1, 64)
	}
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.ContainsAny(s, ".") {
		s += ".0"
	}
	return s
}

// FormatInt renders an integer literal.
func FormatInt(n int64) string {
	return strconv.FormatInt(n, 10)
}

// Layouts of temporal literals. Sub-second precision is rendered in microseconds
// and only when present.
const (
	DateLayout           = "2006-01-02"
	DateTimeLayout       = "2006-01-02T15:04:05"
	DateTimeMicrosLayout = "2006-01-02T15:04:05.000000"
)

// FormatDate renders the calendar date of t.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// FormatDateTime renders t without a zone offset.
func FormatDateTime(t time.Time) string {
	if t.Nanosecond() != 0 {
		return t.Format(DateTimeMicrosLayout)
	}
	return t.Format(DateTimeLayout)
}

// Default converter instance for convenience.
var defaultConverter = NewTypeConverter()

// ToInt64 converts a value using the default converter.
func ToInt64(value interface{}) (int64, error) {
	return defaultConverter.ToInt64(value)
}

// ToFloat64 converts a value using the default converter.
func ToFloat64(value interface{}) (float64, error) {
	return defaultConverter.ToFloat64(value)
}

// ToInts converts a value using the default converter.
func ToInts(value interface{}) ([]int, error) {
	return defaultConverter.ToInts(value)
}
