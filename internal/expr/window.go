package expr

import (
	"fmt"
	"strings"

	"github.com/paveg/tdsframe/internal/errors"
	"github.com/paveg/tdsframe/internal/types"
)

// WindowSpec represents a window specification for window functions
type WindowSpec struct {
	partitionBy []string
	orderBy     []OrderByExpr
}

// OrderByExpr represents a column ordering specification
type OrderByExpr struct {
	column    string
	ascending bool
}

func (o OrderByExpr) Column() string  { return o.column }
func (o OrderByExpr) Ascending() bool { return o.ascending }

// NewWindow creates a new window specification
func NewWindow() *WindowSpec {
	return &WindowSpec{}
}

// PartitionBy returns a copy of the window partitioned by columns
func (w *WindowSpec) PartitionBy(columns ...string) *WindowSpec {
	next := w.clone()
	next.partitionBy = append([]string(nil), columns...)
	return next
}

// OrderBy returns a copy of the window with an ordering specification appended
func (w *WindowSpec) OrderBy(column string, ascending bool) *WindowSpec {
	next := w.clone()
	next.orderBy = append(next.orderBy, OrderByExpr{column: column, ascending: ascending})
	return next
}

func (w *WindowSpec) clone() *WindowSpec {
	return &WindowSpec{
		partitionBy: append([]string(nil), w.partitionBy...),
		orderBy:     append([]OrderByExpr(nil), w.orderBy...),
	}
}

func (w *WindowSpec) Partitions() []string {
	return append([]string(nil), w.partitionBy...)
}

func (w *WindowSpec) Orders() []OrderByExpr {
	return append([]OrderByExpr(nil), w.orderBy...)
}

// Columns lists the partition columns followed by the order columns.
func (w *WindowSpec) Columns() []string {
	names := w.Partitions()
	for _, o := range w.orderBy {
		names = append(names, o.column)
	}
	return names
}

// String returns the string representation of the window spec
func (w *WindowSpec) String() string {
	var parts []string

	if len(w.partitionBy) > 0 {
		parts = append(parts, "PARTITION BY "+strings.Join(w.partitionBy, ", "))
	}

	if len(w.orderBy) > 0 {
		var orderClauses []string
		for _, order := range w.orderBy {
			direction := "ASC"
			if !order.ascending {
				direction = "DESC"
			}
			orderClauses = append(orderClauses, order.column+" "+direction)
		}
		parts = append(parts, "ORDER BY "+strings.Join(orderClauses, ", "))
	}

	return "OVER (" + strings.Join(parts, " ") + ")"
}

// WindowFunc identifies an offset window function.
type WindowFunc int

const (
	WindowLag WindowFunc = iota
	WindowLead
)

func (f WindowFunc) String() string {
	if f == WindowLead {
		return "lead"
	}
	return "lag"
}

// WindowExpr reads a column from another row of the same window partition
type WindowExpr struct {
	function WindowFunc
	column   *ColumnExpr
	offset   int
	window   *WindowSpec
}

// Type returns the expression type
func (w *WindowExpr) Type() ExprType {
	return ExprWindow
}

// ResultType is the type of the column read.
func (w *WindowExpr) ResultType() types.PrimitiveType {
	return w.column.typ
}

// String returns the string representation
func (w *WindowExpr) String() string {
	return fmt.Sprintf("%s(%s, %d) %s", w.function, w.column.String(), w.offset, w.window.String())
}

func (w *WindowExpr) Function() WindowFunc { return w.function }
func (w *WindowExpr) Column() *ColumnExpr  { return w.column }
func (w *WindowExpr) Offset() int          { return w.offset }
func (w *WindowExpr) Window() *WindowSpec  { return w.window }

func offsetWindow(fn WindowFunc, column *ColumnExpr, offset int, window *WindowSpec) Expr {
	if offset < 1 {
		return Invalid(errors.NewValidationErrorf(fn.String(),
			"Offset of %s window function must be positive. Got: %d", fn, offset))
	}
	if window == nil {
		window = NewWindow()
	}
	return &WindowExpr{function: fn, column: column, offset: offset, window: window}
}

// Lag reads column from offset rows earlier in the window
func Lag(column *ColumnExpr, offset int, window *WindowSpec) Expr {
	return offsetWindow(WindowLag, column, offset, window)
}

// Lead reads column from offset rows later in the window
func Lead(column *ColumnExpr, offset int, window *WindowSpec) Expr {
	return offsetWindow(WindowLead, column, offset, window)
}

// Shifted maps a signed shift period onto a window read: positive periods lag,
// negative periods lead and zero returns the column itself.
func Shifted(column *ColumnExpr, period int, window *WindowSpec) Expr {
	switch {
	case period > 0:
		return Lag(column, period, window)
	case period < 0:
		return Lead(column, -period, window)
	default:
		return column
	}
}
