// Package frame provides the immutable frame representation: input frames and one
// derived frame per transformation. Every constructor validates its arguments
// against the child schemas and computes the derived schema eagerly, so a Frame
// value that exists is always well formed.
package frame

import (
	"github.com/paveg/tdsframe/internal/types"
)

// Op identifies a frame variant.
type Op int

const (
	OpTableSpec Op = iota
	OpServiceCall
	OpCsvInline
	OpRestrict
	OpRename
	OpSort
	OpLimit
	OpDrop
	OpSlice
	OpDistinct
	OpConcatenate
	OpFilter
	OpExtend
	OpJoin
	OpGroupBy
	OpShift
)

var opNames = map[Op]string{
	OpTableSpec:   "table_spec",
	OpServiceCall: "service_call",
	OpCsvInline:   "csv_inline",
	OpRestrict:    "restrict",
	OpRename:      "rename",
	OpSort:        "sort",
	OpLimit:       "limit",
	OpDrop:        "drop",
	OpSlice:       "slice",
	OpDistinct:    "distinct",
	OpConcatenate: "concatenate",
	OpFilter:      "filter",
	OpExtend:      "extend",
	OpJoin:        "join",
	OpGroupBy:     "group_by",
	OpShift:       "shift",
}

func (o Op) String() string {
	return opNames[o]
}

// Frame is an immutable node of a relational pipeline. The set of implementations
// is closed; planners dispatch on the concrete type.
type Frame interface {
	// Op returns the variant tag
	Op() Op
	// Schema returns the derived output columns
	Schema() types.Schema
	// Children returns the input frames, empty for input frames
	Children() []Frame

	frame()
}

type node struct {
	schema types.Schema
}

func (n *node) Schema() types.Schema { return n.schema }
func (n *node) frame()               {}

// unary is embedded by every frame with exactly one child.
type unary struct {
	node
	child Frame
}

func (u *unary) Child() Frame      { return u.child }
func (u *unary) Children() []Frame { return []Frame{u.child} }

// Walk visits f and its descendants depth-first in pre-order. Shared sub-frames are
// visited once per reference.
func Walk(f Frame, visit func(Frame) bool) {
	if !visit(f) {
		return
	}
	for _, c := range f.Children() {
		Walk(c, visit)
	}
}

// Depth returns the length of the longest path from f to an input frame.
func Depth(f Frame) int {
	d := 0
	for _, c := range f.Children() {
		if cd := Depth(c) + 1; cd > d {
			d = cd
		}
	}
	return d
}
