// Package tdsframe builds tabular data frames as an immutable plan and renders
// them as SQL or Pure text for a Legend engine. Frames are never evaluated here.
// This package is the sole public API for the library.
//
// Every operation validates its arguments against the schema of the frame it
// applies to. The first failure is kept and returned by Err and by the planning
// methods, so chains can be written without intermediate checks:
//
//	people := tdsframe.Table("test_schema.person",
//		tdsframe.NewColumn("First Name", tdsframe.String),
//		tdsframe.NewColumn("Age", tdsframe.Integer))
//	adults := people.
//		Filter(func(r tdsframe.Row) tdsframe.Expression { return r.Col("Age").Ge(tdsframe.Lit(18)) }).
//		Restrict("First Name").
//		Limit(10)
//	sql, err := adults.ToSQL(ctx)
package tdsframe

import (
	"context"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/kr/pretty"
	"github.com/paveg/tdsframe/internal/config"
	"github.com/paveg/tdsframe/internal/errors"
	"github.com/paveg/tdsframe/internal/explain"
	"github.com/paveg/tdsframe/internal/frame"
	"github.com/paveg/tdsframe/internal/pipeline"
	"github.com/paveg/tdsframe/internal/pureplan"
	"github.com/paveg/tdsframe/internal/sqlplan"
	"github.com/paveg/tdsframe/internal/types"
	"go.uber.org/zap"
)

// Column describes one column of a frame.
type Column = types.Column

// Schema is the ordered column list of a frame.
type Schema = types.Schema

// Type is a Legend primitive type.
type Type = types.PrimitiveType

// Primitive types.
const (
	Boolean    = types.Boolean
	Integer    = types.Integer
	Float      = types.Float
	Number     = types.Number
	Decimal    = types.Decimal
	String     = types.String
	StrictDate = types.StrictDate
	DateTime   = types.DateTime
	Date       = types.Date
)

// NewColumn creates a column descriptor.
func NewColumn(name string, t Type) Column { return types.NewColumn(name, t) }

// ParseType resolves a type name such as "Integer", case-insensitively.
func ParseType(name string) (Type, error) { return types.ParsePrimitiveType(name) }

// Error is the error type of every validation and planning failure.
type Error = errors.FrameError

// Sentinels matching any Error of their kind through errors.Is.
var (
	ErrValidation  = errors.ErrValidation
	ErrType        = errors.ErrType
	ErrUnsupported = errors.ErrUnsupported
	ErrCancelled   = errors.ErrCancelled
)

// JoinKind selects inner or outer join semantics.
type JoinKind = frame.JoinKind

// Join kinds.
const (
	InnerJoin      = frame.JoinInner
	LeftOuterJoin  = frame.JoinLeftOuter
	RightOuterJoin = frame.JoinRightOuter
)

// ParseJoinKind accepts INNER, LEFT_OUTER and RIGHT_OUTER case-insensitively.
func ParseJoinKind(s string) (JoinKind, error) { return frame.ParseJoinKind(s) }

// SortKey orders by one column.
type SortKey = frame.SortKey

// Asc sorts column ascending.
func Asc(column string) SortKey { return SortKey{Column: column, Direction: frame.Ascending} }

// Desc sorts column descending.
func Desc(column string) SortKey { return SortKey{Column: column, Direction: frame.Descending} }

// ShiftOptions configures Shift.
type ShiftOptions = frame.ShiftOptions

// Service addressing.
type (
	ProjectCoordinates = frame.ProjectCoordinates
	VersionedProject   = frame.VersionedProject
	PersonalWorkspace  = frame.PersonalWorkspace
	GroupWorkspace     = frame.GroupWorkspace
	ServiceOption      = frame.ServiceOption
	SchemaFetcher      = frame.SchemaFetcher
	SchemaFetcherFunc  = frame.SchemaFetcherFunc
)

// WithAccessor sets the Pure accessor of a service, e.g. "model::PersonService".
func WithAccessor(accessor string) ServiceOption { return frame.WithAccessor(accessor) }

// Plan is the explained form of a frame.
type Plan = explain.Plan

// Frame is an immutable step of a frame pipeline. Methods return a new Frame;
// once a step fails every later step carries the same error.
type Frame struct {
	f   frame.Frame
	err error
}

func wrap(f frame.Frame, err error) *Frame {
	if err != nil {
		return &Frame{err: err}
	}
	return &Frame{f: f}
}

// then applies op unless the frame already failed.
func (f *Frame) then(op func(frame.Frame) (frame.Frame, error)) *Frame {
	if f.err != nil {
		return f
	}
	return wrap(op(f.f))
}

// Table reads a database table. path is dotted, e.g. "schema.table".
func Table(path string, columns ...Column) *Frame {
	return wrap(nilSafe(frame.NewTableSpec(strings.Split(path, "."), columns)))
}

// FromCSV reads literal CSV text. Without columns the schema is inferred from the
// header and values.
func FromCSV(csv string, columns ...Column) *Frame {
	if len(columns) == 0 {
		columns = nil
	}
	return wrap(nilSafe(frame.NewCsvInline(csv, columns)))
}

// FromService reads a service with a known schema.
func FromService(pattern string, coordinates ProjectCoordinates, columns []Column, opts ...ServiceOption) *Frame {
	return wrap(nilSafe(frame.NewServiceCall(pattern, coordinates, columns, opts...)))
}

// ResolveService reads a service whose schema is answered by fetcher.
func ResolveService(ctx context.Context, pattern string, coordinates ProjectCoordinates,
	fetcher SchemaFetcher, opts ...ServiceOption) *Frame {
	return wrap(nilSafe(sqlplan.ResolveService(ctx, pattern, coordinates, fetcher, sqlplan.Options{}, opts...)))
}

// FromPipeline builds the frame a YAML pipeline document describes. fetcher may be
// nil when every service source declares its columns.
func FromPipeline(ctx context.Context, document []byte, fetcher SchemaFetcher, logger *zap.Logger) *Frame {
	doc, err := pipeline.Parse(document)
	if err != nil {
		return &Frame{err: err}
	}
	b := &pipeline.Builder{Fetcher: fetcher, Logger: logger}
	return wrap(b.Build(ctx, doc))
}

// nilSafe erases typed nil pointers so a failed constructor yields a nil Frame.
func nilSafe[T frame.Frame](f T, err error) (frame.Frame, error) {
	if err != nil {
		return nil, err
	}
	return f, nil
}

// Err returns the first error of the chain.
func (f *Frame) Err() error { return f.err }

// Schema returns the output columns, or an empty schema after a failure.
func (f *Frame) Schema() Schema {
	if f.err != nil {
		return Schema{}
	}
	return f.f.Schema()
}

// Columns returns the output column names.
func (f *Frame) Columns() []string { return f.Schema().Names() }

// Restrict projects onto columns, in the given order.
func (f *Frame) Restrict(columns ...string) *Frame {
	return f.then(func(c frame.Frame) (frame.Frame, error) { return nilSafe(frame.NewRestrict(c, columns)) })
}

// Rename renames column from to to.
func (f *Frame) Rename(from, to string) *Frame {
	return f.then(func(c frame.Frame) (frame.Frame, error) {
		return nilSafe(frame.NewRename(c, []frame.RenamePair{{From: from, To: to}}))
	})
}

// Sort orders rows by keys.
func (f *Frame) Sort(keys ...SortKey) *Frame {
	return f.then(func(c frame.Frame) (frame.Frame, error) { return nilSafe(frame.NewSort(c, keys)) })
}

// Limit keeps the first n rows.
func (f *Frame) Limit(n int) *Frame {
	return f.then(func(c frame.Frame) (frame.Frame, error) { return nilSafe(frame.NewLimit(c, n)) })
}

// Drop skips the first n rows.
func (f *Frame) Drop(n int) *Frame {
	return f.then(func(c frame.Frame) (frame.Frame, error) { return nilSafe(frame.NewDrop(c, n)) })
}

// Slice keeps rows start through end-1.
func (f *Frame) Slice(start, end int) *Frame {
	return f.then(func(c frame.Frame) (frame.Frame, error) { return nilSafe(frame.NewSlice(c, start, end)) })
}

// Distinct removes duplicate rows.
func (f *Frame) Distinct() *Frame {
	return f.then(func(c frame.Frame) (frame.Frame, error) { return frame.NewDistinct(c), nil })
}

// Concatenate appends the rows of other, which must have the same schema.
func (f *Frame) Concatenate(other *Frame) *Frame {
	if other.err != nil && f.err == nil {
		return other
	}
	return f.then(func(c frame.Frame) (frame.Frame, error) { return nilSafe(frame.NewConcatenate(c, other.f)) })
}

// Filter keeps the rows predicate holds for.
func (f *Frame) Filter(predicate func(Row) Expression) *Frame {
	return f.then(func(c frame.Frame) (frame.Frame, error) {
		return nilSafe(frame.NewFilter(c, predicate(Row{frame.NewRow(c)}).e))
	})
}

// ExtendColumn is one computed column of Extend.
type ExtendColumn struct {
	Name string
	Expr func(Row) Expression
}

// Extend appends a computed column.
func (f *Frame) Extend(name string, fn func(Row) Expression) *Frame {
	return f.ExtendColumns(ExtendColumn{Name: name, Expr: fn})
}

// ExtendColumns appends computed columns. Each expression only sees the columns
// of f, not its siblings.
func (f *Frame) ExtendColumns(columns ...ExtendColumn) *Frame {
	return f.then(func(c frame.Frame) (frame.Frame, error) {
		row := Row{frame.NewRow(c)}
		cols := make([]frame.ExtendColumn, len(columns))
		for i, col := range columns {
			cols[i] = frame.ExtendColumn{Name: col.Name, Expr: col.Expr(row).e}
		}
		return nilSafe(frame.NewExtend(c, cols))
	})
}

// Join combines f with other where condition holds. Columns sharing a name on
// both sides are only allowed in a conjunction of equalities between them.
func (f *Frame) Join(other *Frame, condition func(left, right Row) Expression, kind JoinKind) *Frame {
	if other.err != nil && f.err == nil {
		return other
	}
	return f.then(func(c frame.Frame) (frame.Frame, error) {
		cond := condition(Row{frame.LeftRow(c)}, Row{frame.RightRow(other.f)})
		return nilSafe(frame.NewJoin(c, other.f, cond.e, kind))
	})
}

// JoinByColumns combines f with other on equal key columns.
func (f *Frame) JoinByColumns(other *Frame, leftColumns, rightColumns []string, kind JoinKind) *Frame {
	if other.err != nil && f.err == nil {
		return other
	}
	return f.then(func(c frame.Frame) (frame.Frame, error) {
		return nilSafe(frame.NewJoinByColumns(c, other.f, leftColumns, rightColumns, kind))
	})
}

// Aggregate is one output column of GroupBy. Expr must be an aggregation such as
// r.Col("x").Sum().
type Aggregate struct {
	Name string
	Expr func(Row) Expression
}

// GroupBy groups by keys and computes aggregates per group.
func (f *Frame) GroupBy(keys []string, aggregates ...Aggregate) *Frame {
	return f.then(func(c frame.Frame) (frame.Frame, error) {
		row := Row{frame.NewRow(c)}
		aggs := make([]frame.Aggregate, len(aggregates))
		for i, a := range aggregates {
			aggs[i] = frame.Aggregate{Name: a.Name, Expr: a.Expr(row).e}
		}
		return nilSafe(frame.NewGroupBy(c, keys, aggs))
	})
}

// Shift reads values of neighbouring rows.
func (f *Frame) Shift(opts ShiftOptions) *Frame {
	return f.then(func(c frame.Frame) (frame.Frame, error) { return nilSafe(frame.NewShift(c, opts)) })
}

// Config holds planner settings.
type Config = config.Config

// NewConfig returns the default planner settings.
func NewConfig() Config { return config.NewConfig() }

// PlanOption configures ToSQL and ToPure.
type PlanOption func(*planSettings)

type planSettings struct {
	cfg    config.Config
	logger *zap.Logger
}

// WithConfig plans with cfg instead of the defaults of config.NewConfig.
func WithConfig(cfg Config) PlanOption {
	return func(s *planSettings) { s.cfg = cfg.WithDefaults() }
}

// WithPretty selects multi-line or single-line output.
func WithPretty(pretty bool) PlanOption {
	return func(s *planSettings) { s.cfg.Pretty = pretty }
}

// WithLogger receives a debug entry per planned frame.
func WithLogger(logger *zap.Logger) PlanOption {
	return func(s *planSettings) { s.logger = logger }
}

func (f *Frame) settings(opts []PlanOption) (*planSettings, error) {
	if f.err != nil {
		return nil, f.err
	}
	s := &planSettings{cfg: config.NewConfig()}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.cfg.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// ToSQL renders f as SQL.
func (f *Frame) ToSQL(ctx context.Context, opts ...PlanOption) (string, error) {
	s, err := f.settings(opts)
	if err != nil {
		return "", err
	}
	return sqlplan.Generate(ctx, f.f, s.cfg.SQLOptions(s.logger))
}

// ToPure renders f as a Pure function chain.
func (f *Frame) ToPure(ctx context.Context, opts ...PlanOption) (string, error) {
	s, err := f.settings(opts)
	if err != nil {
		return "", err
	}
	return pureplan.Generate(ctx, f.f, s.cfg.PureOptions(s.logger))
}

// Explain describes the frame pipeline as a plan tree.
func (f *Frame) Explain() (Plan, error) {
	if f.err != nil {
		return Plan{}, f.err
	}
	return explain.Build(f.f), nil
}

// ArrowSchema returns the output schema as an arrow schema.
func (f *Frame) ArrowSchema() (*arrow.Schema, error) {
	if f.err != nil {
		return nil, f.err
	}
	return types.ToArrowSchema(f.f.Schema()), nil
}

// Dump renders the frame IR with every field, for debugging.
func (f *Frame) Dump() string {
	if f.err != nil {
		return pretty.Sprint(f.err)
	}
	return pretty.Sprint(f.f)
}
