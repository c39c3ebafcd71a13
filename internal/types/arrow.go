package types

import (
	"github.com/apache/arrow-go/v18/arrow"
)

// decimal128 with the widest precision; Legend decimals carry no declared scale.
var decimalArrowType = &arrow.Decimal128Type{Precision: 38, Scale: 9}

// ArrowType maps a primitive type onto the arrow type a result reader would
// materialize it as. Number and Date have no narrower arrow type and fall back to
// float64 and timestamp respectively.
func (t PrimitiveType) ArrowType() arrow.DataType {
	switch t {
	case Boolean:
		return arrow.FixedWidthTypes.Boolean
	case Integer:
		return arrow.PrimitiveTypes.Int64
	case Float, Number:
		return arrow.PrimitiveTypes.Float64
	case Decimal:
		return decimalArrowType
	case String:
		return arrow.BinaryTypes.String
	case StrictDate:
		return arrow.FixedWidthTypes.Date32
	case DateTime, Date:
		return arrow.FixedWidthTypes.Timestamp_us
	default:
		return arrow.Null
	}
}

// ToArrowSchema converts a schema into an arrow schema. All fields are nullable,
// since every Legend primitive column may hold an empty value.
func ToArrowSchema(s Schema) *arrow.Schema {
	fields := make([]arrow.Field, s.Len())
	for i, c := range s.columns {
		fields[i] = arrow.Field{Name: c.Name, Type: c.Type.ArrowType(), Nullable: true}
	}
	return arrow.NewSchema(fields, nil)
}
