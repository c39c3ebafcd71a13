// Package types defines the primitive type lattice, column descriptors and
// schemas shared by the expression and frame representations.
package types

import (
	"fmt"
	"strings"
)

// PrimitiveType is the closed set of column and expression types.
type PrimitiveType int

const (
	Boolean PrimitiveType = iota
	Integer
	Float
	Number
	Decimal
	String
	StrictDate
	DateTime
	Date
)

var primitiveNames = map[PrimitiveType]string{
	Boolean:    "Boolean",
	Integer:    "Integer",
	Float:      "Float",
	Number:     "Number",
	Decimal:    "Decimal",
	String:     "String",
	StrictDate: "StrictDate",
	DateTime:   "DateTime",
	Date:       "Date",
}

// String returns the type name used in error messages and schema documents.
func (t PrimitiveType) String() string {
	if name, ok := primitiveNames[t]; ok {
		return name
	}
	return fmt.Sprintf("unknown_type(%d)", int(t))
}

// ParsePrimitiveType resolves a type name case-insensitively.
func ParsePrimitiveType(name string) (PrimitiveType, error) {
	for t, n := range primitiveNames {
		if strings.EqualFold(n, name) {
			return t, nil
		}
	}
	return 0, fmt.Errorf("unknown primitive type: %q", name)
}

// IsNumeric reports whether t is Number or one of its subtypes.
func (t PrimitiveType) IsNumeric() bool {
	switch t {
	case Integer, Float, Decimal, Number:
		return true
	default:
		return false
	}
}

// IsTemporal reports whether t is Date or one of its subtypes.
func (t PrimitiveType) IsTemporal() bool {
	switch t {
	case StrictDate, DateTime, Date:
		return true
	default:
		return false
	}
}

// IsSubtypeOf reports t <= other in the lattice. Every type is a subtype of itself.
func (t PrimitiveType) IsSubtypeOf(other PrimitiveType) bool {
	if t == other {
		return true
	}
	switch other {
	case Number:
		return t == Integer || t == Float || t == Decimal
	case Date:
		return t == StrictDate || t == DateTime
	default:
		return false
	}
}

// Join returns the least upper bound of a and b. The second result is false when
// the two types have no common supertype.
func Join(a, b PrimitiveType) (PrimitiveType, bool) {
	switch {
	case a == b:
		return a, true
	case a.IsNumeric() && b.IsNumeric():
		return Number, true
	case a.IsTemporal() && b.IsTemporal():
		return Date, true
	default:
		return 0, false
	}
}

// Comparable reports whether values of a and b can be compared for equality or order.
func Comparable(a, b PrimitiveType) bool {
	_, ok := Join(a, b)
	return ok
}
