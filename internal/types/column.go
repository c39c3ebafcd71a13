package types

import (
	"fmt"
	"strings"
)

// Column is a named, typed column descriptor. Equality is structural.
type Column struct {
	Name string
	Type PrimitiveType
}

// NewColumn creates a column descriptor.
func NewColumn(name string, t PrimitiveType) Column {
	return Column{Name: name, Type: t}
}

// Convenience constructors, one per primitive type.
func BooleanColumn(name string) Column    { return NewColumn(name, Boolean) }
func IntegerColumn(name string) Column    { return NewColumn(name, Integer) }
func FloatColumn(name string) Column      { return NewColumn(name, Float) }
func NumberColumn(name string) Column     { return NewColumn(name, Number) }
func DecimalColumn(name string) Column    { return NewColumn(name, Decimal) }
func StringColumn(name string) Column     { return NewColumn(name, String) }
func StrictDateColumn(name string) Column { return NewColumn(name, StrictDate) }
func DateTimeColumn(name string) Column   { return NewColumn(name, DateTime) }
func DateColumn(name string) Column       { return NewColumn(name, Date) }

// String renders the column the way error messages quote it.
func (c Column) String() string {
	return fmt.Sprintf("TdsColumn(Name: %s, Type: %s)", c.Name, c.Type)
}

// Schema is an ordered sequence of columns with unique names.
type Schema struct {
	columns []Column
	index   map[string]int
}

// NewSchema builds a schema, rejecting empty or duplicate names.
func NewSchema(columns ...Column) (Schema, error) {
	s := Schema{
		columns: make([]Column, len(columns)),
		index:   make(map[string]int, len(columns)),
	}
	for i, c := range columns {
		if c.Name == "" {
			return Schema{}, fmt.Errorf("column at index %d has an empty name", i)
		}
		if _, dup := s.index[c.Name]; dup {
			return Schema{}, fmt.Errorf("duplicate column name '%s' in schema %s", c.Name, QuotedList(Names(columns)))
		}
		s.columns[i] = c
		s.index[c.Name] = i
	}
	return s, nil
}

// MustSchema is NewSchema for statically known column lists.
func MustSchema(columns ...Column) Schema {
	s, err := NewSchema(columns...)
	if err != nil {
		panic(err)
	}
	return s
}

// Len returns the number of columns.
func (s Schema) Len() int { return len(s.columns) }

// Columns returns a copy of the ordered column list.
func (s Schema) Columns() []Column {
	out := make([]Column, len(s.columns))
	copy(out, s.columns)
	return out
}

// At returns the column at position i.
func (s Schema) At(i int) Column { return s.columns[i] }

// Names returns the ordered column names.
func (s Schema) Names() []string { return Names(s.columns) }

// Lookup finds a column by name.
func (s Schema) Lookup(name string) (Column, bool) {
	i, ok := s.index[name]
	if !ok {
		return Column{}, false
	}
	return s.columns[i], true
}

// Has reports whether the schema contains a column named name.
func (s Schema) Has(name string) bool {
	_, ok := s.index[name]
	return ok
}

// IndexOf returns the position of name, or -1.
func (s Schema) IndexOf(name string) int {
	if i, ok := s.index[name]; ok {
		return i
	}
	return -1
}

// Equal reports position-wise name and type equality.
func (s Schema) Equal(other Schema) bool {
	if len(s.columns) != len(other.columns) {
		return false
	}
	for i := range s.columns {
		if s.columns[i] != other.columns[i] {
			return false
		}
	}
	return true
}

// String lists the columns, e.g. [TdsColumn(Name: a, Type: Integer)].
func (s Schema) String() string {
	parts := make([]string, len(s.columns))
	for i, c := range s.columns {
		parts[i] = c.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// Names extracts the names of a column list.
func Names(columns []Column) []string {
	out := make([]string, len(columns))
	for i, c := range columns {
		out[i] = c.Name
	}
	return out
}

// QuotedList renders names as ['a', 'b'] for error messages.
func QuotedList(names []string) string {
	parts := make([]string, len(names))
	for i, n := range names {
		parts[i] = "'" + n + "'"
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
