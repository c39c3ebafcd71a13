package frame

import (
	"fmt"
	"strings"

	"github.com/paveg/tdsframe/internal/errors"
	"github.com/paveg/tdsframe/internal/expr"
	"github.com/paveg/tdsframe/internal/types"
	"github.com/paveg/tdsframe/internal/validation"
)

// Restrict keeps the named columns, in the given order.
type Restrict struct {
	unary
	columns []string
}

// NewRestrict creates a projection of child onto columns.
func NewRestrict(child Frame, columns []string) (*Restrict, error) {
	op := OpRestrict.String()
	schema := child.Schema()
	if err := validation.ValidateColumns(schema, op, "restrict", columns...); err != nil {
		return nil, err
	}
	if err := validation.ValidateUnique(op, "Restrict columns list", columns); err != nil {
		return nil, err
	}
	out := make([]types.Column, len(columns))
	for i, name := range columns {
		out[i], _ = schema.Lookup(name)
	}
	return &Restrict{unary: unary{node{schema: types.MustSchema(out...)}, child}, columns: append([]string(nil), columns...)}, nil
}

func (r *Restrict) Op() Op            { return OpRestrict }
func (r *Restrict) Columns() []string { return append([]string(nil), r.columns...) }

// RenamePair renames From to To.
type RenamePair struct {
	From string
	To   string
}

// Rename changes column names and keeps column order.
type Rename struct {
	unary
	pairs []RenamePair
}

// NewRename creates a rename of child. Sources must exist and be distinct, targets
// must be distinct and must not collide with the columns left unchanged.
func NewRename(child Frame, pairs []RenamePair) (*Rename, error) {
	op := OpRename.String()
	schema := child.Schema()
	from := make([]string, len(pairs))
	to := make([]string, len(pairs))
	for i, p := range pairs {
		from[i], to[i] = p.From, p.To
	}
	if err := validation.ValidateColumns(schema, op, "rename", from...); err != nil {
		return nil, err
	}
	if validation.HasDuplicates(from) {
		return nil, errors.NewValidationErrorf(op,
			"column_names list shouldn't have duplicates when renaming columns.\ncolumn_names list - (Count: %d) - %s\n",
			len(from), types.QuotedList(from))
	}
	for i, name := range to {
		if name == "" {
			return nil, errors.NewValidationErrorf(op, "Renamed column name at index %d (0-indexed) is empty", i)
		}
	}
	if validation.HasDuplicates(to) {
		return nil, errors.NewValidationErrorf(op,
			"renamed_column_names_list list shouldn't have duplicates when renaming columns.\nrenamed_column_names_list - (Count: %d) - %s\n",
			len(to), types.QuotedList(to))
	}

	renamed := make(map[string]string, len(pairs))
	for _, p := range pairs {
		renamed[p.From] = p.To
	}
	out := schema.Columns()
	for _, c := range out {
		if _, changed := renamed[c.Name]; changed {
			continue
		}
		for _, target := range to {
			if c.Name == target {
				return nil, errors.NewValidationErrorf(op,
					"Renamed column name - '%s' collides with an existing column. Current frame columns: %s",
					target, types.QuotedList(schema.Names()))
			}
		}
	}
	for i, c := range out {
		if n, ok := renamed[c.Name]; ok {
			out[i].Name = n
		}
	}
	return &Rename{unary: unary{node{schema: types.MustSchema(out...)}, child}, pairs: append([]RenamePair(nil), pairs...)}, nil
}

func (r *Rename) Op() Op              { return OpRename }
func (r *Rename) Pairs() []RenamePair { return append([]RenamePair(nil), r.pairs...) }

// Direction is a sort direction.
type Direction int

const (
	Ascending Direction = iota
	Descending
)

func (d Direction) String() string {
	if d == Descending {
		return "DESC"
	}
	return "ASC"
}

// ParseDirection accepts ASC or DESC in any case.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToUpper(s) {
	case "ASC":
		return Ascending, nil
	case "DESC":
		return Descending, nil
	}
	return 0, errors.NewValidationError(OpSort.String(),
		"Sort direction can be ASC/DESC (case insensitive). Passed unknown value: "+s)
}

// SortKey orders by one column.
type SortKey struct {
	Column    string
	Direction Direction
}

// Sort orders rows by its keys, earlier keys first.
type Sort struct {
	unary
	keys []SortKey
}

// NewSort creates an ordering of child.
func NewSort(child Frame, keys []SortKey) (*Sort, error) {
	op := OpSort.String()
	names := make([]string, len(keys))
	for i, k := range keys {
		names[i] = k.Column
	}
	if len(keys) == 0 {
		return nil, errors.NewValidationError(op, "Sort columns list should not be empty")
	}
	if err := validation.ValidateColumns(child.Schema(), op, "sort", names...); err != nil {
		return nil, err
	}
	return &Sort{unary: unary{node{schema: child.Schema()}, child}, keys: append([]SortKey(nil), keys...)}, nil
}

// NewSortByNames creates an ordering from parallel column and direction lists.
// An empty directions list sorts every column ascending.
func NewSortByNames(child Frame, columns, directions []string) (*Sort, error) {
	op := OpSort.String()
	if err := validation.ValidateColumns(child.Schema(), op, "sort", columns...); err != nil {
		return nil, err
	}
	if len(directions) > 0 && len(directions) != len(columns) {
		return nil, errors.NewValidationErrorf(op,
			"Sort directions (ASC/DESC) provided need to be in sync with columns or left empty to choose defaults. "+
				"Passed column list: %s, directions: %s", types.QuotedList(columns), types.QuotedList(directions))
	}
	keys := make([]SortKey, len(columns))
	for i, c := range columns {
		keys[i] = SortKey{Column: c}
		if len(directions) > 0 {
			d, err := ParseDirection(directions[i])
			if err != nil {
				return nil, err
			}
			keys[i].Direction = d
		}
	}
	return NewSort(child, keys)
}

func (s *Sort) Op() Op          { return OpSort }
func (s *Sort) Keys() []SortKey { return append([]SortKey(nil), s.keys...) }

// Limit keeps the first n rows.
type Limit struct {
	unary
	n int
}

// NewLimit creates a row limit.
func NewLimit(child Frame, n int) (*Limit, error) {
	if err := validation.ValidateNonNegative(n, OpLimit.String(),
		"Row count argument of head/take/limit function cannot be negative"); err != nil {
		return nil, err
	}
	return &Limit{unary: unary{node{schema: child.Schema()}, child}, n: n}, nil
}

func (l *Limit) Op() Op { return OpLimit }
func (l *Limit) N() int { return l.n }

// Drop skips the first n rows.
type Drop struct {
	unary
	n int
}

// NewDrop creates a row offset.
func NewDrop(child Frame, n int) (*Drop, error) {
	if err := validation.ValidateNonNegative(n, OpDrop.String(),
		"Row count argument of drop function cannot be negative"); err != nil {
		return nil, err
	}
	return &Drop{unary: unary{node{schema: child.Schema()}, child}, n: n}, nil
}

func (d *Drop) Op() Op { return OpDrop }
func (d *Drop) N() int { return d.n }

// Slice keeps rows [start, end).
type Slice struct {
	unary
	start int
	end   int
}

// NewSlice creates a row window.
func NewSlice(child Frame, start, end int) (*Slice, error) {
	op := OpSlice.String()
	bounds := validation.NewCompoundValidator(
		validation.NewNonNegativeValidator(start, op,
			fmt.Sprintf("Start row argument of slice function cannot be negative. Start row: %d", start)),
		// end-start-1 goes negative exactly when end <= start
		validation.NewNonNegativeValidator(end-start-1, op, fmt.Sprintf(
			"End row argument of slice function cannot be less than or equal to start row argument. "+
				"Start row: %d, End row: %d", start, end)),
	)
	if err := bounds.Validate(); err != nil {
		return nil, err
	}
	return &Slice{unary: unary{node{schema: child.Schema()}, child}, start: start, end: end}, nil
}

func (s *Slice) Op() Op     { return OpSlice }
func (s *Slice) Start() int { return s.start }
func (s *Slice) End() int   { return s.end }

// Distinct removes duplicate rows.
type Distinct struct {
	unary
}

// NewDistinct creates a duplicate-removing frame.
func NewDistinct(child Frame) *Distinct {
	return &Distinct{unary: unary{node{schema: child.Schema()}, child}}
}

func (d *Distinct) Op() Op { return OpDistinct }

// Concatenate appends the rows of right to those of left.
type Concatenate struct {
	node
	left  Frame
	right Frame
}

// NewConcatenate creates a union of two frames with matching schemas.
func NewConcatenate(left, right Frame) (*Concatenate, error) {
	op := OpConcatenate.String()
	ls, rs := left.Schema(), right.Schema()
	if ls.Len() != rs.Len() {
		return nil, errors.NewValidationErrorf(op,
			"Cannot concatenate two Tds Frames with different column counts. \n"+
				"Frame 1 cols - (Count: %d) - %s \nFrame 2 cols - (Count: %d) - %s \n",
			ls.Len(), ls, rs.Len(), rs)
	}
	for i := 0; i < ls.Len(); i++ {
		if ls.At(i) != rs.At(i) {
			return nil, errors.NewValidationErrorf(op,
				"Column name/type mismatch when concatenating Tds Frames at index %d. "+
					"Frame 1 column - %s, Frame 2 column - %s", i, ls.At(i), rs.At(i))
		}
	}
	return &Concatenate{node: node{schema: ls}, left: left, right: right}, nil
}

func (c *Concatenate) Op() Op            { return OpConcatenate }
func (c *Concatenate) Left() Frame       { return c.left }
func (c *Concatenate) Right() Frame      { return c.right }
func (c *Concatenate) Children() []Frame { return []Frame{c.left, c.right} }

// Filter keeps the rows the predicate holds for.
type Filter struct {
	unary
	predicate expr.Expr
}

// NewFilter creates a row filter. The predicate must be Boolean and may only
// reference columns of child through the row scope.
func NewFilter(child Frame, predicate expr.Expr) (*Filter, error) {
	if err := checkExpr(predicate, NewRow(child)); err != nil {
		return nil, withOp(err, OpFilter)
	}
	if predicate.ResultType() != types.Boolean {
		return nil, errors.NewTypeErrorf(OpFilter.String(),
			"Filter function incompatible. Returns non boolean - %s", predicate.ResultType())
	}
	if expr.ContainsAggregate(predicate) {
		return nil, errors.NewValidationError(OpFilter.String(),
			"Filter function incompatible. Aggregate functions can only be used in group by")
	}
	if expr.ContainsWindow(predicate) {
		return nil, errors.NewValidationError(OpFilter.String(),
			"Filter function incompatible. Window functions can only be used in extend")
	}
	return &Filter{unary: unary{node{schema: child.Schema()}, child}, predicate: predicate}, nil
}

// FilterFunc is NewFilter with the predicate built from the child's row.
func FilterFunc(child Frame, fn func(Row) expr.Expr) (*Filter, error) {
	return NewFilter(child, fn(NewRow(child)))
}

func (f *Filter) Op() Op               { return OpFilter }
func (f *Filter) Predicate() expr.Expr { return f.predicate }

// ExtendColumn is a computed column.
type ExtendColumn struct {
	Name string
	Expr expr.Expr
}

// Extend appends computed columns.
type Extend struct {
	unary
	columns []ExtendColumn
}

// NewExtend creates computed columns over child. Each expression only sees the
// columns of child.
func NewExtend(child Frame, columns []ExtendColumn) (*Extend, error) {
	op := OpExtend.String()
	schema := child.Schema()
	row := NewRow(child)
	names := make([]string, len(columns))
	for i, c := range columns {
		if c.Name == "" {
			return nil, errors.NewTypeErrorf(op,
				"Error at extend column name at index %d (0-indexed). Column name should be a non-empty string", i)
		}
		if err := checkExpr(c.Expr, row); err != nil {
			return nil, &errors.FrameError{
				Kind: err.Kind,
				Op:   op,
				Message: fmt.Sprintf(
					"Extend function at index %d (0-indexed) incompatible. Error occurred while evaluating. Message: %s",
					i, err.Message),
				Cause: err,
			}
		}
		if expr.ContainsAggregate(c.Expr) {
			return nil, errors.NewValidationErrorf(op,
				"Extend function at index %d (0-indexed) incompatible. Aggregate functions can only be used in group by", i)
		}
		names[i] = c.Name
	}
	if validation.HasDuplicates(names) {
		return nil, errors.NewValidationErrorf(op, "Extend column names list has duplicates: %s", types.QuotedList(names))
	}
	out := schema.Columns()
	for _, c := range columns {
		if schema.Has(c.Name) {
			return nil, errors.NewValidationErrorf(op, "Extend column name - '%s' already exists in base frame", c.Name)
		}
		out = append(out, types.NewColumn(c.Name, c.Expr.ResultType()))
	}
	return &Extend{unary: unary{node{schema: types.MustSchema(out...)}, child}, columns: append([]ExtendColumn(nil), columns...)}, nil
}

// NewExtendLists is NewExtend over parallel name and expression lists.
func NewExtendLists(child Frame, names []string, exprs []expr.Expr) (*Extend, error) {
	if err := validation.ValidateLength(len(names), len(exprs), OpExtend.String(), fmt.Sprintf(
		"For extend function, function list and column names list arguments should be of same size. "+
			"Passed param sizes -  Functions: %d, Column names: %d", len(exprs), len(names))); err != nil {
		return nil, err
	}
	columns := make([]ExtendColumn, len(names))
	for i := range names {
		columns[i] = ExtendColumn{Name: names[i], Expr: exprs[i]}
	}
	return NewExtend(child, columns)
}

func (e *Extend) Op() Op                  { return OpExtend }
func (e *Extend) Columns() []ExtendColumn { return append([]ExtendColumn(nil), e.columns...) }

func withOp(err *errors.FrameError, op Op) *errors.FrameError {
	if err.Op == "column" || err.Op == "expression" || err.Op == "" {
		cp := *err
		cp.Op = op.String()
		return &cp
	}
	return err
}
