// Package pureplan lowers frame IR into Pure function-chain text.
//
// Each frame step appends one or more ->call(...) segments to the text of its
// child. In pretty mode every segment starts on its own line, indented two
// spaces per nesting level; nested frames such as the right side of a join are
// rendered two levels deeper than the chain they appear in.
package pureplan

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	xxhash "github.com/cespare/xxhash/v2"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/paveg/tdsframe/internal/common"
	"github.com/paveg/tdsframe/internal/errors"
	"github.com/paveg/tdsframe/internal/explain"
	"github.com/paveg/tdsframe/internal/expr"
	"github.com/paveg/tdsframe/internal/frame"
	"go.uber.org/zap"
)

// InternalColumnSuffix marks the helper columns a shift introduces before they
// are projected back to their visible names.
const InternalColumnSuffix = "__INTERNAL_PYLEGEND_COLUMN__"

// PartitionColumn is the constant column an ungrouped shift partitions on.
const PartitionColumn = "__INTERNAL_PYLEGEND_COLUMN__"

// DefaultMemoSize is the memo capacity used when Options.MemoSize is zero.
const DefaultMemoSize = 128

// Options configure Pure generation.
type Options struct {
	// Pretty breaks the chain into one call per line.
	Pretty bool
	// MemoSize bounds the number of rendered sub-frames remembered during one
	// Generate call. Zero selects DefaultMemoSize.
	MemoSize int
	// Logger receives a debug entry per frame step. Nil disables logging.
	Logger *zap.Logger
}

// layout is the indentation state of the chain being rendered.
type layout struct {
	pretty bool
	indent int
}

// sep starts a new line n levels deeper than the current chain. Compact output
// joins segments without a separator.
func (l layout) sep(n int) string {
	if !l.pretty {
		return ""
	}
	return "\n" + strings.Repeat("  ", l.indent+n)
}

// gap is sep with a single space in compact output, used between arguments.
func (l layout) gap(n int) string {
	if !l.pretty {
		return " "
	}
	return l.sep(n)
}

func (l layout) push(n int) layout {
	l.indent += n
	return l
}

// Planner lowers frames into Pure text.
type Planner struct {
	pretty   bool
	memoSize int
	logger   *zap.Logger
}

// NewPlanner creates a planner from opts.
func NewPlanner(opts Options) *Planner {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	size := opts.MemoSize
	if size <= 0 {
		size = DefaultMemoSize
	}
	return &Planner{pretty: opts.Pretty, memoSize: size, logger: logger}
}

// Generate lowers f with a planner built from opts.
func Generate(ctx context.Context, f frame.Frame, opts Options) (string, error) {
	return NewPlanner(opts).Generate(ctx, f)
}

// Generate lowers f into Pure text.
func (p *Planner) Generate(ctx context.Context, f frame.Frame) (string, error) {
	memo, err := lru.New[uint64, string](p.memoSize)
	if err != nil {
		return "", err
	}
	r := &run{
		planner:      p,
		ctx:          ctx,
		memo:         memo,
		fingerprints: explain.NewFingerprinter(),
	}
	return r.lower(f, layout{pretty: p.pretty}, 0)
}

// run is the state of one Generate call.
type run struct {
	planner      *Planner
	ctx          context.Context
	memo         *lru.Cache[uint64, string]
	fingerprints *explain.Fingerprinter
}

// memoKey identifies the rendering of f. Compact text does not depend on the
// indent, so only pretty renderings are keyed by it.
func (r *run) memoKey(f frame.Frame, l layout) uint64 {
	indent := 0
	if l.pretty {
		indent = l.indent
	}
	return xxhash.Sum64String(strconv.FormatUint(r.fingerprints.Fingerprint(f), 16) + "/" + strconv.Itoa(indent))
}

func (r *run) lower(f frame.Frame, l layout, depth int) (string, error) {
	if err := r.ctx.Err(); err != nil {
		return "", errors.NewCancelledError(f.Op().String(), err)
	}
	key := r.memoKey(f, l)
	if text, ok := r.memo.Get(key); ok {
		r.planner.logger.Debug("reusing rendered frame", zap.String("op", f.Op().String()), zap.Int("depth", depth))
		return text, nil
	}
	r.planner.logger.Debug("lowering frame", zap.String("op", f.Op().String()), zap.Int("depth", depth))

	text, err := r.lowerFrame(f, l, depth)
	if err != nil {
		return "", err
	}
	r.memo.Add(key, text)
	return text, nil
}

func (r *run) lowerFrame(f frame.Frame, l layout, depth int) (string, error) {
	switch f := f.(type) {
	case *frame.TableSpec:
		return "#Table(" + f.QualifiedName() + ")#", nil
	case *frame.ServiceCall:
		if f.Accessor() == "" {
			return "", errors.NewUnsupportedError(f.Op().String(),
				"Pure generation needs the accessor of service "+f.Pattern()+". Build the service call with an accessor")
		}
		return "#>{" + f.Accessor() + "}#", nil
	case *frame.CsvInline:
		return "#TDS\n" + f.CSV() + "#", nil
	case *frame.Join:
		return r.lowerJoin(f, l, depth)
	case *frame.Concatenate:
		return r.lowerConcatenate(f, l, depth)
	}

	unary, ok := f.(interface{ Child() frame.Frame })
	if !ok {
		return "", errors.NewUnsupportedError(f.Op().String(), "Cannot generate Pure for frame operation "+f.Op().String())
	}
	base, err := r.lower(unary.Child(), l, depth+1)
	if err != nil {
		return "", err
	}

	var step string
	switch f := f.(type) {
	case *frame.Restrict:
		step = "->select(" + columnList(f.Columns()) + ")"
	case *frame.Rename:
		pairs := f.Pairs()
		calls := make([]string, len(pairs))
		for i, p := range pairs {
			calls[i] = rename(p)
		}
		step = strings.Join(calls, l.sep(1))
	case *frame.Sort:
		step = "->sort(" + sortList(f.Keys()) + ")"
	case *frame.Limit:
		step = "->limit(" + strconv.Itoa(f.N()) + ")"
	case *frame.Drop:
		step = "->drop(" + strconv.Itoa(f.N()) + ")"
	case *frame.Slice:
		step = fmt.Sprintf("->slice(%d, %d)", f.Start(), f.End())
	case *frame.Distinct:
		step = "->distinct()"
	case *frame.Filter:
		predicate, err := newLowering(f.Op().String(), rowScope).lower(f.Predicate())
		if err != nil {
			return "", err
		}
		step = "->filter(" + lambda("r", predicate) + ")"
	case *frame.Extend:
		step, err = lowerExtend(f, l)
	case *frame.GroupBy:
		step, err = lowerGroupBy(f, l)
	case *frame.Shift:
		step = lowerShift(f, l)
	default:
		err = errors.NewUnsupportedError(f.Op().String(), "Cannot generate Pure for frame operation "+f.Op().String())
	}
	if err != nil {
		return "", err
	}
	return base + l.sep(1) + step, nil
}

func columnList(names []string) string {
	escaped := make([]string, len(names))
	for i, n := range names {
		escaped[i] = common.EscapeColumnName(n)
	}
	return "~[" + strings.Join(escaped, ", ") + "]"
}

func rename(p frame.RenamePair) string {
	return "->rename(~" + common.EscapeColumnName(p.From) + ", ~" + common.EscapeColumnName(p.To) + ")"
}

func sortInfo(column string, ascending bool) string {
	fn := "descending"
	if ascending {
		fn = "ascending"
	}
	return fn + "(~" + common.EscapeColumnName(column) + ")"
}

func sortList(keys []frame.SortKey) string {
	infos := make([]string, len(keys))
	for i, k := range keys {
		infos[i] = sortInfo(k.Column, k.Direction == frame.Ascending)
	}
	return "[" + strings.Join(infos, ", ") + "]"
}

func (r *run) lowerConcatenate(f *frame.Concatenate, l layout, depth int) (string, error) {
	base, err := r.lower(f.Left(), l, depth+1)
	if err != nil {
		return "", err
	}
	other, err := r.lower(f.Right(), l.push(2), depth+1)
	if err != nil {
		return "", err
	}
	return base + l.sep(1) + "->concatenate(" + l.sep(2) + other + l.sep(1) + ")", nil
}

func joinKind(k frame.JoinKind) string {
	switch k {
	case frame.JoinLeftOuter:
		return "LEFT"
	case frame.JoinRightOuter:
		return "RIGHT"
	default:
		return "INNER"
	}
}

// lowerJoin renders both sides and the join condition. Shared key columns of the
// right side are renamed apart first, and the merged schema is selected after the
// join so that the result carries no generated names.
func (r *run) lowerJoin(f *frame.Join, l layout, depth int) (string, error) {
	base, err := r.lower(f.Left(), l, depth+1)
	if err != nil {
		return "", err
	}
	inner := l.push(2)
	other, err := r.lower(f.Right(), inner, depth+1)
	if err != nil {
		return "", err
	}

	var condition string
	renames := f.RightRenames()
	if f.ByColumns() {
		renamed := make(map[string]string, len(renames))
		for _, p := range renames {
			other += inner.sep(1) + rename(p)
			renamed[p.From] = p.To
		}
		keys := f.Keys()
		parts := make([]string, len(keys))
		for i, k := range keys {
			right := k.Right
			if to, ok := renamed[right]; ok {
				right = to
			}
			parts[i] = "($l." + common.EscapeColumnName(k.Left) + " == $r." + common.EscapeColumnName(right) + ")"
		}
		condition = strings.Join(parts, " && ")
	} else {
		condition, err = newLowering(f.Op().String(), joinScope).lower(f.Condition())
		if err != nil {
			return "", err
		}
	}

	out := base + l.sep(1) + "->join(" + l.sep(2) + other + "," + l.gap(2) +
		"JoinKind." + joinKind(f.Kind()) + "," + l.gap(2) +
		lambda("l, r", condition) + l.sep(1) + ")"
	if len(renames) > 0 {
		out += l.sep(1) + "->select(" + columnList(f.Schema().Names()) + ")"
	}
	return out, nil
}

func lowerExtend(f *frame.Extend, l layout) (string, error) {
	op := f.Op().String()
	columns := f.Columns()
	lw := newLowering(op, rowScope)

	windowed := false
	for _, c := range columns {
		if _, ok := c.Expr.(*expr.WindowExpr); ok {
			windowed = true
		}
	}

	rendered := make([]string, len(columns))
	for i, c := range columns {
		name := common.EscapeColumnName(c.Name)
		if w, ok := c.Expr.(*expr.WindowExpr); ok {
			rendered[i] = "->extend(" + over(w.Window().Partitions(), w.Window().Orders()) + ", ~" + name + ":" +
				lambda("p,w,r", windowRead(w.Function(), w.Offset(), w.Column().Name())) + ")"
			continue
		}
		body, err := lw.lower(c.Expr)
		if err != nil {
			return "", err
		}
		rendered[i] = name + ":" + lambda("r", body)
		if windowed {
			rendered[i] = "->extend(~" + rendered[i] + ")"
		}
	}

	switch {
	case windowed:
		return strings.Join(rendered, l.sep(1)), nil
	case len(rendered) == 1:
		return "->extend(~" + rendered[0] + ")", nil
	default:
		return "->extend(~[" + l.sep(2) + strings.Join(rendered, ","+l.gap(2)) + l.sep(1) + "])", nil
	}
}

// over renders a window clause, e.g. over(~[a], [ascending(~b)]).
func over(partitions []string, orders []expr.OrderByExpr) string {
	partition := "[]"
	if len(partitions) > 0 {
		partition = columnList(partitions)
	}
	infos := make([]string, len(orders))
	for i, o := range orders {
		infos[i] = sortInfo(o.Column(), o.Ascending())
	}
	return "over(" + partition + ", [" + strings.Join(infos, ", ") + "])"
}

// windowRead reads column from the row offset rows away within the partition.
func windowRead(fn expr.WindowFunc, offset int, column string) string {
	return "$p->" + fn.String() + "($r, " + strconv.Itoa(offset) + ")." + common.EscapeColumnName(column)
}

func lowerGroupBy(f *frame.GroupBy, l layout) (string, error) {
	lw := newLowering(f.Op().String(), rowScope)
	aggregates := f.Aggregates()
	rendered := make([]string, len(aggregates))
	for i, a := range aggregates {
		agg, ok := a.Expr.(*expr.AggregationExpr)
		if !ok {
			return "", errors.NewUnsupportedError(f.Op().String(), "Cannot generate Pure for aggregate "+a.Expr.String())
		}
		mapped, err := lw.lower(agg.Column())
		if err != nil {
			return "", err
		}
		rendered[i] = common.EscapeColumnName(a.Name) + ":" + lambda("r", mapped) + ":" + lambda("c", reduce(agg))
	}
	return "->groupBy(" + l.sep(2) + columnList(f.Keys()) + "," + l.gap(2) +
		"~[" + strings.Join(rendered, ", ") + "]" + l.sep(1) + ")", nil
}

var reducers = map[expr.AggregationType]string{
	expr.AggSum:      "sum",
	expr.AggCount:    "count",
	expr.AggAvg:      "average",
	expr.AggMin:      "min",
	expr.AggMax:      "max",
	expr.AggStdDev:   "stdDevSample",
	expr.AggVariance: "varianceSample",
}

// reduce renders the reduction applied to the collection $c of mapped values.
func reduce(agg *expr.AggregationExpr) string {
	switch agg.AggType() {
	case expr.AggCountDistinct:
		return call("count", call("distinct", "$c"))
	case expr.AggJoinStrings:
		return call("joinStrings", "$c", common.QuotePureString(agg.Separator()))
	default:
		return call(reducers[agg.AggType()], "$c")
	}
}

// lowerShift emits one window extend per output column into a helper column and
// projects the helper columns back to the output names. An ungrouped shift first
// extends the constant PartitionColumn and partitions on it; the projection drops
// it again.
func lowerShift(f *frame.Shift, l layout) string {
	columns := f.Columns()
	extends := make([]string, 0, len(columns)+1)
	projections := make([]string, len(columns))
	window := over(f.Partition(), nil)
	if !f.Grouped() {
		extends = append(extends, "->extend(~"+PartitionColumn+":"+lambda("r", "0")+")")
		window = over([]string{PartitionColumn}, nil)
	}
	for i, c := range columns {
		internal := common.EscapeColumnName(c.Name + InternalColumnSuffix)
		var read string
		switch {
		case c.Period > 0:
			read = windowRead(expr.WindowLag, c.Period, c.Source)
		case c.Period < 0:
			read = windowRead(expr.WindowLead, -c.Period, c.Source)
		default:
			read = "$r." + common.EscapeColumnName(c.Source)
		}
		extends = append(extends, "->extend("+window+", ~"+internal+":"+lambda("p,w,r", read)+")")
		projections[i] = common.EscapeColumnName(c.Name) + ":p|$p." + internal
	}
	return strings.Join(extends, l.sep(1)) + l.sep(1) + "->project(~[" + strings.Join(projections, ", ") + "])"
}
