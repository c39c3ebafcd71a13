// Package explain describes frame pipelines as plan trees. Each node carries its
// output schema and a structural fingerprint, so two independently built frames
// describing the same pipeline share fingerprints.
package explain

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	xxhash "github.com/cespare/xxhash/v2"
	"github.com/paveg/tdsframe/internal/frame"
	"github.com/paveg/tdsframe/internal/types"
)

// ColumnInfo is one output column of a plan node.
type ColumnInfo struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// PlanNode represents a single frame of a pipeline.
type PlanNode struct {
	Op          string       `json:"op"`
	Description string       `json:"description,omitempty"`
	Schema      []ColumnInfo `json:"schema"`
	Fingerprint string       `json:"fingerprint"`
	Children    []PlanNode   `json:"children,omitempty"`
}

// Plan is the plan tree of a frame together with summary counts.
type Plan struct {
	Root      PlanNode `json:"root"`
	NodeCount int      `json:"node_count"`
	Depth     int      `json:"depth"`
}

// Build describes f.
func Build(f frame.Frame) Plan {
	fp := NewFingerprinter()
	return Plan{
		Root:      fp.node(f),
		NodeCount: countNodes(f),
		Depth:     frame.Depth(f),
	}
}

func countNodes(f frame.Frame) int {
	n := 0
	frame.Walk(f, func(frame.Frame) bool {
		n++
		return true
	})
	return n
}

// ToJSON converts the plan to indented JSON.
func (p *Plan) ToJSON() ([]byte, error) {
	return json.MarshalIndent(p, "", "  ")
}

// FromJSON reads a plan written by ToJSON.
func (p *Plan) FromJSON(data []byte) error {
	return json.Unmarshal(data, p)
}

// String returns the JSON form of the plan.
func (p *Plan) String() string {
	data, err := p.ToJSON()
	if err != nil {
		return "Plan{error: " + err.Error() + "}"
	}
	return string(data)
}

// Fingerprinter computes structural fingerprints, remembering the fingerprint of
// every frame it has seen. It is not safe for concurrent use.
type Fingerprinter struct {
	seen map[frame.Frame]uint64
}

// NewFingerprinter returns an empty Fingerprinter.
func NewFingerprinter() *Fingerprinter {
	return &Fingerprinter{seen: make(map[frame.Frame]uint64)}
}

// Fingerprint hashes the op, parameters and schema of f and the fingerprints of
// its children.
func (fp *Fingerprinter) Fingerprint(f frame.Frame) uint64 {
	if sum, ok := fp.seen[f]; ok {
		return sum
	}
	d := xxhash.New()
	_, _ = d.WriteString(f.Op().String())
	_, _ = d.WriteString("\x00")
	_, _ = d.WriteString(identity(f))
	_, _ = d.WriteString("\x00")
	_, _ = d.WriteString(f.Schema().String())
	for _, c := range f.Children() {
		_, _ = d.WriteString("\x00" + strconv.FormatUint(fp.Fingerprint(c), 16))
	}
	sum := d.Sum64()
	fp.seen[f] = sum
	return sum
}

// Fingerprint is the structural fingerprint of f.
func Fingerprint(f frame.Frame) uint64 {
	return NewFingerprinter().Fingerprint(f)
}

// FormatFingerprint renders a fingerprint as 16 hex digits.
func FormatFingerprint(sum uint64) string {
	return fmt.Sprintf("%016x", sum)
}

func (fp *Fingerprinter) node(f frame.Frame) PlanNode {
	n := PlanNode{
		Op:          f.Op().String(),
		Description: Describe(f),
		Schema:      columns(f.Schema()),
		Fingerprint: FormatFingerprint(fp.Fingerprint(f)),
	}
	for _, c := range f.Children() {
		n.Children = append(n.Children, fp.node(c))
	}
	return n
}

func columns(s types.Schema) []ColumnInfo {
	out := make([]ColumnInfo, s.Len())
	for i, c := range s.Columns() {
		out[i] = ColumnInfo{Name: c.Name, Type: c.Type.String()}
	}
	return out
}

// identity is Describe with every parameter in full, so frames that render
// differently never share a fingerprint.
func identity(f frame.Frame) string {
	if c, ok := f.(*frame.CsvInline); ok {
		return c.CSV()
	}
	return Describe(f)
}

// Describe renders the parameters of f on one line.
func Describe(f frame.Frame) string {
	switch f := f.(type) {
	case *frame.TableSpec:
		return f.QualifiedName()
	case *frame.ServiceCall:
		params := f.Coordinates().Params()
		parts := make([]string, 0, len(params)+1)
		parts = append(parts, "pattern="+f.Pattern())
		for _, p := range params {
			parts = append(parts, p.Name+"="+p.Value)
		}
		if f.Accessor() != "" {
			parts = append(parts, "accessor="+f.Accessor())
		}
		return strings.Join(parts, " ")
	case *frame.CsvInline:
		return fmt.Sprintf("%d csv lines", len(strings.Split(strings.TrimSpace(f.CSV()), "\n")))
	case *frame.Restrict:
		return types.QuotedList(f.Columns())
	case *frame.Rename:
		pairs := f.Pairs()
		parts := make([]string, len(pairs))
		for i, p := range pairs {
			parts[i] = p.From + " -> " + p.To
		}
		return strings.Join(parts, ", ")
	case *frame.Sort:
		keys := f.Keys()
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = k.Column + " " + k.Direction.String()
		}
		return strings.Join(parts, ", ")
	case *frame.Limit:
		return strconv.Itoa(f.N())
	case *frame.Drop:
		return strconv.Itoa(f.N())
	case *frame.Slice:
		return fmt.Sprintf("%d:%d", f.Start(), f.End())
	case *frame.Filter:
		return f.Predicate().String()
	case *frame.Extend:
		cols := f.Columns()
		parts := make([]string, len(cols))
		for i, c := range cols {
			parts[i] = c.Name + " = " + c.Expr.String()
		}
		return strings.Join(parts, ", ")
	case *frame.Join:
		if f.ByColumns() {
			keys := f.Keys()
			parts := make([]string, len(keys))
			for i, k := range keys {
				parts[i] = k.Left + " = " + k.Right
			}
			return f.Kind().String() + " on " + strings.Join(parts, ", ")
		}
		return f.Kind().String() + " on " + f.Condition().String()
	case *frame.GroupBy:
		aggs := f.Aggregates()
		parts := make([]string, len(aggs))
		for i, a := range aggs {
			parts[i] = a.Name + " = " + a.Expr.String()
		}
		return "by " + types.QuotedList(f.Keys()) + ": " + strings.Join(parts, ", ")
	case *frame.Shift:
		periods := f.Periods()
		parts := make([]string, len(periods))
		for i, p := range periods {
			parts[i] = strconv.Itoa(p)
		}
		out := "periods [" + strings.Join(parts, ", ") + "]"
		if f.Grouped() {
			out += " partition " + types.QuotedList(f.Partition())
		}
		return out
	default:
		return ""
	}
}
