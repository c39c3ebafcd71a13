package frame

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/paveg/tdsframe/internal/errors"
	"github.com/paveg/tdsframe/internal/types"
	"github.com/paveg/tdsframe/internal/validation"
	"golang.org/x/exp/slices"
)

// ShiftOptions are the arguments of a shift. Axis, Freq and FillValue exist so
// that callers passing them get a precise rejection.
type ShiftOptions struct {
	// Periods holds the signed shift periods. A single period is the scalar form
	// unless List is set.
	Periods []int
	// List marks the list form, which names outputs ${column}${suffix}_${period}.
	List bool
	// Suffix is inserted between column name and period in the list form.
	Suffix string
	// GroupBy partitions the window by these keys. Empty means one partition.
	GroupBy []string
	// Columns restricts the shifted columns. Empty means every non-key column.
	Columns []string

	Axis      interface{}
	Freq      interface{}
	FillValue interface{}
}

// ShiftColumn is one generated output column.
type ShiftColumn struct {
	Name   string
	Source string
	Period int
	Type   types.PrimitiveType
}

// Shift reads values from neighbouring rows of the same partition. Positive
// periods lag, negative periods lead and zero copies the value.
type Shift struct {
	unary
	periods   []int
	list      bool
	suffix    string
	partition []string
	columns   []ShiftColumn
}

func (s *Shift) Op() Op                 { return OpShift }
func (s *Shift) Periods() []int         { return append([]int(nil), s.periods...) }
func (s *Shift) ListForm() bool         { return s.list }
func (s *Shift) Suffix() string         { return s.suffix }
func (s *Shift) Partition() []string    { return append([]string(nil), s.partition...) }
func (s *Shift) Columns() []ShiftColumn { return append([]ShiftColumn(nil), s.columns...) }

// Grouped reports whether the window is partitioned by group keys.
func (s *Shift) Grouped() bool { return len(s.partition) > 0 }

// pyRepr renders an argument value the way the shift messages quote it.
func pyRepr(v interface{}) string {
	switch x := v.(type) {
	case string:
		return "'" + strings.ReplaceAll(x, "'", "\\'") + "'"
	case []int:
		parts := make([]string, len(x))
		for i, p := range x {
			parts[i] = strconv.Itoa(p)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case bool:
		if x {
			return "True"
		}
		return "False"
	default:
		return fmt.Sprintf("%v", x)
	}
}

func validAxis(axis interface{}) bool {
	switch a := axis.(type) {
	case nil:
		return true
	case int:
		return a == 0
	case string:
		return a == "index"
	}
	return false
}

// NewShift creates a shift of child.
func NewShift(child Frame, opts ShiftOptions) (*Shift, error) {
	op := OpShift.String()
	schema := child.Schema()

	if !validAxis(opts.Axis) {
		return nil, errors.NewUnsupportedError(op,
			"The 'axis' argument of the shift function must be 0 or 'index', but got: axis="+pyRepr(opts.Axis))
	}
	if opts.Freq != nil {
		return nil, errors.NewUnsupportedError(op,
			"The 'freq' argument of the shift function is not supported, but got: freq="+pyRepr(opts.Freq))
	}
	if opts.Suffix != "" && !opts.List {
		return nil, errors.NewValidationError(op,
			"Cannot specify the 'suffix' argument of the shift function if the 'periods' argument is an int.")
	}
	if opts.FillValue != nil {
		return nil, errors.NewUnsupportedError(op,
			"The 'fill_value' argument of the shift function is not supported, but got: fill_value="+pyRepr(opts.FillValue))
	}
	if len(opts.Periods) == 0 {
		return nil, errors.NewValidationError(op, "The 'periods' argument of the shift function cannot be empty")
	}
	if !opts.List && len(opts.Periods) != 1 {
		return nil, errors.NewValidationErrorf(op,
			"The 'periods' argument of the shift function must be a single int unless the list form is used, but got: periods=%s",
			pyRepr(opts.Periods))
	}
	if opts.List {
		sorted := slices.Clone(opts.Periods)
		slices.Sort(sorted)
		if len(slices.Compact(sorted)) != len(opts.Periods) {
			return nil, errors.NewValidationError(op,
				"The 'periods' argument of the shift function cannot contain duplicate values, but got: periods="+pyRepr(opts.Periods))
		}
	}

	if err := validation.ValidateColumns(schema, op, "group by", opts.GroupBy...); err != nil {
		return nil, err
	}
	if err := validation.ValidateColumns(schema, op, "shift", opts.Columns...); err != nil {
		return nil, err
	}
	for _, c := range opts.Columns {
		if slices.Contains(opts.GroupBy, c) {
			return nil, errors.NewValidationErrorf(op,
				"Column - '%s' is a grouping column and cannot be shifted. Grouping columns: %s",
				c, types.QuotedList(opts.GroupBy))
		}
	}

	var targets []types.Column
	if len(opts.Columns) > 0 {
		for _, name := range opts.Columns {
			c, _ := schema.Lookup(name)
			targets = append(targets, c)
		}
	} else {
		for _, c := range schema.Columns() {
			if !slices.Contains(opts.GroupBy, c.Name) {
				targets = append(targets, c)
			}
		}
	}
	if len(targets) == 0 {
		return nil, errors.NewValidationError(op, "Shift needs at least one column that is not a grouping column")
	}

	var columns []ShiftColumn
	for _, p := range opts.Periods {
		for _, c := range targets {
			name := c.Name
			if opts.List {
				name = fmt.Sprintf("%s%s_%d", c.Name, opts.Suffix, p)
			}
			columns = append(columns, ShiftColumn{Name: name, Source: c.Name, Period: p, Type: c.Type})
		}
	}
	out := make([]types.Column, len(columns))
	for i, c := range columns {
		out[i] = types.NewColumn(c.Name, c.Type)
	}
	s, err := types.NewSchema(out...)
	if err != nil {
		return nil, errors.NewValidationErrorf(op, "Shift output columns collide: %s", err.Error())
	}

	return &Shift{
		unary:     unary{node{schema: s}, child},
		periods:   append([]int(nil), opts.Periods...),
		list:      opts.List,
		suffix:    opts.Suffix,
		partition: append([]string(nil), opts.GroupBy...),
		columns:   columns,
	}, nil
}
