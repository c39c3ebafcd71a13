package frame

import (
	"fmt"
	"strings"

	"github.com/paveg/tdsframe/internal/errors"
	"github.com/paveg/tdsframe/internal/expr"
	"github.com/paveg/tdsframe/internal/types"
	"github.com/paveg/tdsframe/internal/validation"
	"golang.org/x/exp/slices"
)

// GeneratedRightSuffix is appended to a right-side join key that shares its name
// with the left-side key it is equated with.
const GeneratedRightSuffix = "_gen_r"

// JoinKind is the join type.
type JoinKind int

const (
	JoinInner JoinKind = iota
	JoinLeftOuter
	JoinRightOuter
)

func (k JoinKind) String() string {
	switch k {
	case JoinLeftOuter:
		return "LEFT_OUTER"
	case JoinRightOuter:
		return "RIGHT_OUTER"
	default:
		return "INNER"
	}
}

// ParseJoinKind accepts INNER, LEFT_OUTER and RIGHT_OUTER in any case, with or
// without the underscore.
func ParseJoinKind(s string) (JoinKind, error) {
	switch strings.ToLower(s) {
	case "inner":
		return JoinInner, nil
	case "left_outer", "leftouter":
		return JoinLeftOuter, nil
	case "right_outer", "rightouter":
		return JoinRightOuter, nil
	}
	return 0, errors.NewValidationErrorf(OpJoin.String(),
		"Unknown join type - %s. Supported types are - INNER, LEFT_OUTER, RIGHT_OUTER", s)
}

// JoinKey equates a left column with a right column.
type JoinKey struct {
	Left  string
	Right string
}

// Join combines the rows of two frames matching a condition. A join built from
// key columns keeps its keys; such joins merge equally named keys into one
// output column.
type Join struct {
	node
	left      Frame
	right     Frame
	kind      JoinKind
	condition expr.Expr
	keys      []JoinKey
	shared    []string
}

func (j *Join) Op() Op               { return OpJoin }
func (j *Join) Left() Frame          { return j.left }
func (j *Join) Right() Frame         { return j.right }
func (j *Join) Children() []Frame    { return []Frame{j.left, j.right} }
func (j *Join) Kind() JoinKind       { return j.kind }
func (j *Join) Condition() expr.Expr { return j.condition }
func (j *Join) Keys() []JoinKey      { return append([]JoinKey(nil), j.keys...) }

// ByColumns reports whether the join was built from key columns.
func (j *Join) ByColumns() bool { return len(j.keys) > 0 }

// SharedKeys returns the sorted names of keys equated with an equally named key.
func (j *Join) SharedKeys() []string { return append([]string(nil), j.shared...) }

// RightRenames lists the renames that make the right frame's shared keys distinct,
// in key order.
func (j *Join) RightRenames() []RenamePair {
	var out []RenamePair
	for _, k := range j.keys {
		if k.Left == k.Right {
			out = append(out, RenamePair{From: k.Right, To: k.Right + GeneratedRightSuffix})
		}
	}
	return out
}

// NewJoinByColumns joins left and right on pairwise equal key columns.
func NewJoinByColumns(left, right Frame, leftColumns, rightColumns []string, kind JoinKind) (*Join, error) {
	op := "join_by_columns"
	ls, rs := left.Schema(), right.Schema()

	for _, c := range leftColumns {
		if !ls.Has(c) {
			err := errors.NewValidationErrorf(op,
				"Column - '%s' in join columns list doesn't exist in the left frame being joined. "+
					"Current left frame columns: %s", c, types.QuotedList(ls.Names()))
			err.Column = c
			return nil, err
		}
	}
	for _, c := range rightColumns {
		if !rs.Has(c) {
			err := errors.NewValidationErrorf(op,
				"Column - '%s' in join columns list doesn't exist in the right frame being joined. "+
					"Current right frame columns: %s", c, types.QuotedList(rs.Names()))
			err.Column = c
			return nil, err
		}
	}
	if err := validation.ValidateLength(len(leftColumns), len(rightColumns), op, fmt.Sprintf(
		"For join_by_columns function, column lists should be of same size. "+
			"Passed column list sizes -  Left: %d, Right: %d", len(leftColumns), len(rightColumns))); err != nil {
		return nil, err
	}
	if len(leftColumns) == 0 {
		return nil, errors.NewValidationError(op, "For join_by_columns function, column lists should not be empty")
	}

	keys := make([]JoinKey, len(leftColumns))
	var common []string
	for i := range leftColumns {
		lc, _ := ls.Lookup(leftColumns[i])
		rc, _ := rs.Lookup(rightColumns[i])
		if lc.Type != rc.Type {
			return nil, errors.NewValidationErrorf(op,
				"Trying to join on columns with different types -  Left Col: %s, Right Col: %s", lc, rc)
		}
		keys[i] = JoinKey{Left: lc.Name, Right: rc.Name}
		if lc.Name == rc.Name {
			common = append(common, lc.Name)
		}
	}

	var final []string
	for _, n := range ls.Names() {
		if !slices.Contains(common, n) {
			final = append(final, n)
		}
	}
	for _, n := range rs.Names() {
		if !slices.Contains(common, n) {
			final = append(final, n)
		}
	}
	final = append(final, common...)
	if validation.HasDuplicates(final) {
		return nil, errors.NewValidationErrorf(op,
			"Found duplicate columns in joined frames (which are not join keys). "+
				"Columns -  Left Frame: %s, Right Frame: %s, Common Join Keys: %s",
			types.QuotedList(ls.Names()), types.QuotedList(rs.Names()), types.QuotedList(common))
	}

	lrow, rrow := LeftRow(left), RightRow(right)
	conds := make([]expr.Expr, len(keys))
	for i, k := range keys {
		conds[i] = expr.Eq(lrow.Col(k.Left), rrow.Col(k.Right))
	}
	condition := expr.AllOf(conds[0], conds[1:]...)

	shared := slices.Clone(common)
	slices.Sort(shared)
	var out []types.Column
	for _, c := range ls.Columns() {
		if !slices.Contains(shared, c.Name) {
			out = append(out, c)
		}
	}
	for _, c := range ls.Columns() {
		if slices.Contains(shared, c.Name) {
			out = append(out, c)
		}
	}
	for _, c := range rs.Columns() {
		if !slices.Contains(shared, c.Name) {
			out = append(out, c)
		}
	}

	return &Join{
		node:      node{schema: types.MustSchema(out...)},
		left:      left,
		right:     right,
		kind:      kind,
		condition: condition,
		keys:      keys,
		shared:    shared,
	}, nil
}

// NewJoin joins left and right on a Boolean condition over the left and right row
// scopes. The output is the left columns followed by the right columns. When the
// frames share column names the condition must be a conjunction of left = right
// column equalities, which is then treated as a join on those key columns.
func NewJoin(left, right Frame, condition expr.Expr, kind JoinKind) (*Join, error) {
	op := OpJoin.String()
	if err := checkExpr(condition, LeftRow(left), RightRow(right)); err != nil {
		return nil, &errors.FrameError{
			Kind:    err.Kind,
			Op:      op,
			Column:  err.Column,
			Message: "Join condition function incompatible. Error occurred while evaluating. Message: " + err.Message,
			Cause:   err,
		}
	}
	if condition.ResultType() != types.Boolean {
		return nil, errors.NewTypeErrorf(op,
			"Join condition function incompatible. Returns non boolean - %s", condition.ResultType())
	}
	if expr.ContainsAggregate(condition) {
		return nil, errors.NewValidationError(op,
			"Join condition function incompatible. Aggregate functions cannot be used in a join condition")
	}
	if expr.ContainsWindow(condition) {
		return nil, errors.NewValidationError(op,
			"Join condition function incompatible. Window functions cannot be used in a join condition")
	}

	ls, rs := left.Schema(), right.Schema()
	if overlap := validation.Intersect(ls.Names(), rs.Names()); len(overlap) > 0 {
		if keys, ok := equalityKeys(condition); ok {
			lcols := make([]string, len(keys))
			rcols := make([]string, len(keys))
			for i, k := range keys {
				lcols[i], rcols[i] = k.Left, k.Right
			}
			return NewJoinByColumns(left, right, lcols, rcols, kind)
		}
		return nil, errors.NewValidationErrorf(op,
			"Found duplicate columns in joined frames. Use rename function to ensure there are no duplicate columns "+
				"in joined frames. Columns - Left Frame: %s, Right Frame: %s",
			types.QuotedList(ls.Names()), types.QuotedList(rs.Names()))
	}

	out := append(ls.Columns(), rs.Columns()...)
	return &Join{
		node:      node{schema: types.MustSchema(out...)},
		left:      left,
		right:     right,
		kind:      kind,
		condition: condition,
	}, nil
}

// JoinFunc is NewJoin with the condition built from the left and right rows.
func JoinFunc(left, right Frame, fn func(l, r Row) expr.Expr, kind JoinKind) (*Join, error) {
	return NewJoin(left, right, fn(LeftRow(left), RightRow(right)), kind)
}

// equalityKeys decomposes a conjunction of left-column = right-column comparisons.
func equalityKeys(e expr.Expr) ([]JoinKey, bool) {
	b, ok := e.(*expr.BinaryExpr)
	if !ok {
		return nil, false
	}
	switch b.Op() {
	case expr.OpAnd:
		lk, lok := equalityKeys(b.Left())
		rk, rok := equalityKeys(b.Right())
		if !lok || !rok {
			return nil, false
		}
		return append(lk, rk...), true
	case expr.OpEq:
		l, lok := b.Left().(*expr.ColumnExpr)
		r, rok := b.Right().(*expr.ColumnExpr)
		if !lok || !rok {
			return nil, false
		}
		if l.Scope() == expr.ScopeRight && r.Scope() == expr.ScopeLeft {
			l, r = r, l
		}
		if l.Scope() != expr.ScopeLeft || r.Scope() != expr.ScopeRight {
			return nil, false
		}
		return []JoinKey{{Left: l.Name(), Right: r.Name()}}, true
	}
	return nil, false
}
