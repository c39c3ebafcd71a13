package expr

import (
	"github.com/paveg/tdsframe/internal/errors"
)

// Children returns the direct operands of e.
func Children(e Expr) []Expr {
	switch n := e.(type) {
	case *BinaryExpr:
		return []Expr{n.left, n.right}
	case *UnaryExpr:
		return []Expr{n.operand}
	case *FunctionExpr:
		return n.args
	case *AggregationExpr:
		return []Expr{n.column}
	case *CaseExpr:
		out := make([]Expr, 0, 2*len(n.whens)+1)
		for _, w := range n.whens {
			out = append(out, w.condition, w.value)
		}
		if n.elseValue != nil {
			out = append(out, n.elseValue)
		}
		return out
	case *WindowExpr:
		return []Expr{n.column}
	default:
		return nil
	}
}

// Walk visits e depth-first in pre-order. Returning false from visit skips the
// children of the visited node.
func Walk(e Expr, visit func(Expr) bool) {
	if e == nil || !visit(e) {
		return
	}
	for _, c := range Children(e) {
		Walk(c, visit)
	}
}

// Validate returns the error of the first invalid node, or nil.
func Validate(e Expr) *errors.FrameError {
	var err *errors.FrameError
	Walk(e, func(n Expr) bool {
		if err != nil {
			return false
		}
		if inv, ok := n.(*InvalidExpr); ok {
			err = inv.err
			return false
		}
		return true
	})
	return err
}

// ColumnRefs lists the column references in e in visiting order, duplicates included.
func ColumnRefs(e Expr) []*ColumnExpr {
	var refs []*ColumnExpr
	Walk(e, func(n Expr) bool {
		if c, ok := n.(*ColumnExpr); ok {
			refs = append(refs, c)
		}
		return true
	})
	return refs
}

// ContainsAggregate reports whether e has an aggregation node.
func ContainsAggregate(e Expr) bool {
	found := false
	Walk(e, func(n Expr) bool {
		if _, ok := n.(*AggregationExpr); ok {
			found = true
		}
		return !found
	})
	return found
}

// Windows lists the window reads in e in visiting order.
func Windows(e Expr) []*WindowExpr {
	var out []*WindowExpr
	Walk(e, func(n Expr) bool {
		if w, ok := n.(*WindowExpr); ok {
			out = append(out, w)
		}
		return true
	})
	return out
}

// ContainsWindow reports whether e has a window read.
func ContainsWindow(e Expr) bool {
	return len(Windows(e)) > 0
}

// ColumnNames lists every column name e reads: column references followed by
// the partition and order columns of its windows.
func ColumnNames(e Expr) []string {
	var names []string
	for _, ref := range ColumnRefs(e) {
		names = append(names, ref.Name())
	}
	for _, w := range Windows(e) {
		names = append(names, w.Window().Columns()...)
	}
	return names
}
