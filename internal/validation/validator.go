// Package validation provides the reusable checks frame constructors run before a
// derived frame is built: column existence, duplicate names, list sizes and row
// count bounds.
package validation

import (
	"fmt"

	"github.com/paveg/tdsframe/internal/errors"
	"github.com/paveg/tdsframe/internal/types"
	"golang.org/x/exp/slices"
)

// Validator interface for input validation
type Validator interface {
	Validate() error
}

// ColumnProvider interface for types that provide column information.
// types.Schema implements it.
type ColumnProvider interface {
	Has(name string) bool
	Names() []string
}

// ColumnValidator validates column existence
type ColumnValidator struct {
	schema   ColumnProvider
	columns  []string
	op       string
	listName string
}

// NewColumnValidator creates a validator checking that every name in columns
// exists in schema. listName names the argument in the error, e.g. "restrict".
func NewColumnValidator(schema ColumnProvider, op, listName string, columns ...string) *ColumnValidator {
	return &ColumnValidator{
		schema:   schema,
		columns:  columns,
		op:       op,
		listName: listName,
	}
}

// Validate returns an error for the first missing column
func (v *ColumnValidator) Validate() error {
	for _, column := range v.columns {
		if !v.schema.Has(column) {
			return errors.NewColumnNotFoundError(v.op, v.listName, column, types.QuotedList(v.schema.Names()))
		}
	}
	return nil
}

// DuplicateValidator rejects a list holding the same name twice
type DuplicateValidator struct {
	names   []string
	op      string
	message func(names []string) string
}

// NewDuplicateValidator creates a validator whose error text is produced by message.
func NewDuplicateValidator(op string, names []string, message func(names []string) string) *DuplicateValidator {
	return &DuplicateValidator{names: names, op: op, message: message}
}

// Validate checks the list for duplicates
func (v *DuplicateValidator) Validate() error {
	if HasDuplicates(v.names) {
		return errors.NewValidationError(v.op, v.message(v.names))
	}
	return nil
}

// LengthValidator validates list size consistency
type LengthValidator struct {
	expected int
	actual   int
	op       string
	message  string
}

// NewLengthValidator creates a validator for length consistency
func NewLengthValidator(expected, actual int, op, message string) *LengthValidator {
	return &LengthValidator{
		expected: expected,
		actual:   actual,
		op:       op,
		message:  message,
	}
}

// Validate checks if lengths match
func (v *LengthValidator) Validate() error {
	if v.expected != v.actual {
		return errors.NewValidationError(v.op, v.message)
	}
	return nil
}

// NonNegativeValidator validates row count arguments
type NonNegativeValidator struct {
	value   int
	op      string
	message string
}

// NewNonNegativeValidator creates a validator rejecting negative values
func NewNonNegativeValidator(value int, op, message string) *NonNegativeValidator {
	return &NonNegativeValidator{value: value, op: op, message: message}
}

// Validate checks that the value is not negative
func (v *NonNegativeValidator) Validate() error {
	if v.value < 0 {
		return errors.NewValidationError(v.op, v.message)
	}
	return nil
}

// CompoundValidator combines multiple validators
type CompoundValidator struct {
	validators []Validator
}

// NewCompoundValidator creates a validator that checks multiple conditions
func NewCompoundValidator(validators ...Validator) *CompoundValidator {
	return &CompoundValidator{
		validators: validators,
	}
}

// Validate runs all validators and returns the first error encountered
func (v *CompoundValidator) Validate() error {
	for _, validator := range v.validators {
		if err := validator.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Convenience validation functions

// ValidateColumns is a convenience function for column validation
func ValidateColumns(schema ColumnProvider, op, listName string, columns ...string) error {
	return NewColumnValidator(schema, op, listName, columns...).Validate()
}

// ValidateLength is a convenience function for length validation
func ValidateLength(expected, actual int, op, message string) error {
	return NewLengthValidator(expected, actual, op, message).Validate()
}

// ValidateNonNegative is a convenience function for row count validation
func ValidateNonNegative(value int, op, message string) error {
	return NewNonNegativeValidator(value, op, message).Validate()
}

// ValidateUnique rejects duplicates in names with a message of the form
// "<subject> has duplicates: ['a', 'a']".
func ValidateUnique(op, subject string, names []string) error {
	return NewDuplicateValidator(op, names, func(names []string) string {
		return fmt.Sprintf("%s has duplicates: %s", subject, types.QuotedList(names))
	}).Validate()
}

// HasDuplicates reports whether names holds the same value twice.
func HasDuplicates(names []string) bool {
	sorted := slices.Clone(names)
	slices.Sort(sorted)
	return len(slices.Compact(sorted)) != len(names)
}

// Intersect returns the names of a that also appear in b, in the order of a.
func Intersect(a, b []string) []string {
	var out []string
	for _, n := range a {
		if slices.Contains(b, n) {
			out = append(out, n)
		}
	}
	return out
}
