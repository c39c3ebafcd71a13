package frame

import (
	"github.com/paveg/tdsframe/internal/errors"
	"github.com/paveg/tdsframe/internal/expr"
	"github.com/paveg/tdsframe/internal/types"
)

// Row is the virtual row a predicate or computed column reads from. Col returns a
// reference typed after the frame's schema.
type Row struct {
	scope  expr.Scope
	schema types.Schema
}

// NewRow returns the single-row scope over f.
func NewRow(f Frame) Row {
	return Row{scope: expr.ScopeRow, schema: f.Schema()}
}

// LeftRow returns the left scope of a join condition.
func LeftRow(f Frame) Row {
	return Row{scope: expr.ScopeLeft, schema: f.Schema()}
}

// RightRow returns the right scope of a join condition.
func RightRow(f Frame) Row {
	return Row{scope: expr.ScopeRight, schema: f.Schema()}
}

func (r Row) Scope() expr.Scope    { return r.scope }
func (r Row) Schema() types.Schema { return r.schema }

// Col references the named column. An unknown name yields an invalid expression
// that fails the enclosing frame construction.
func (r Row) Col(name string) expr.Expr {
	c, ok := r.schema.Lookup(name)
	if !ok {
		return expr.Invalid(unknownColumn(name, r.schema))
	}
	return expr.Col(r.scope, name, c.Type)
}

func unknownColumn(name string, schema types.Schema) *errors.FrameError {
	err := errors.NewValidationErrorf("column",
		"Column - '%s' doesn't exist in the current frame. Current frame columns: %s",
		name, types.QuotedList(schema.Names()))
	err.Column = name
	return err
}

// checkExpr surfaces the deepest invalid node of e and verifies that every column
// reference resolves, with the same type, in the row of its scope. Window partition
// and order columns must exist in the row of the column the window reads.
func checkExpr(e expr.Expr, rows ...Row) *errors.FrameError {
	if e == nil {
		return errors.NewValidationError("expression", "Expression must not be nil")
	}
	if err := expr.Validate(e); err != nil {
		return err
	}
	for _, ref := range expr.ColumnRefs(e) {
		row, ok := rowFor(ref.Scope(), rows)
		if !ok {
			return errors.NewValidationErrorf("column",
				"Column - '%s' references the %s scope which is not available here", ref.Name(), ref.Scope())
		}
		c, found := row.schema.Lookup(ref.Name())
		if !found {
			return unknownColumn(ref.Name(), row.schema)
		}
		if c.Type != ref.ResultType() {
			return errors.NewTypeErrorf("column",
				"Column - '%s' is referenced as %s but has type %s in the current frame",
				ref.Name(), ref.ResultType(), c.Type)
		}
	}
	for _, w := range expr.Windows(e) {
		row, _ := rowFor(w.Column().Scope(), rows)
		for _, name := range w.Window().Columns() {
			if !row.schema.Has(name) {
				return unknownColumn(name, row.schema)
			}
		}
	}
	return nil
}

func rowFor(scope expr.Scope, rows []Row) (Row, bool) {
	for _, r := range rows {
		if r.scope == scope {
			return r, true
		}
	}
	return Row{}, false
}
