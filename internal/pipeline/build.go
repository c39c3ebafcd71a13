package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/paveg/tdsframe/internal/common"
	"github.com/paveg/tdsframe/internal/expr"
	"github.com/paveg/tdsframe/internal/frame"
	"github.com/paveg/tdsframe/internal/sqlplan"
	"github.com/paveg/tdsframe/internal/types"
	"go.uber.org/zap"
)

// Builder turns documents into frames.
type Builder struct {
	// Fetcher answers the schema of service sources declared without columns.
	Fetcher frame.SchemaFetcher
	// Logger receives a debug entry per built step. Nil disables logging.
	Logger *zap.Logger
}

// Build constructs the frame doc describes with a Builder without a fetcher.
func Build(ctx context.Context, doc *Document) (frame.Frame, error) {
	return (&Builder{}).Build(ctx, doc)
}

// Build constructs the frame doc describes. Errors are prefixed with the
// document path of the failing source or step.
func (b *Builder) Build(ctx context.Context, doc *Document) (frame.Frame, error) {
	if b.Logger == nil {
		b.Logger = zap.NewNop()
	}
	return b.build(ctx, doc, "")
}

func (b *Builder) build(ctx context.Context, doc *Document, path string) (frame.Frame, error) {
	f, err := b.source(ctx, &doc.Source)
	if err != nil {
		return nil, fmt.Errorf("%ssource: %w", path, err)
	}
	for i := range doc.Steps {
		stepPath := fmt.Sprintf("%ssteps[%d]", path, i)
		f, err = b.step(ctx, f, &doc.Steps[i], stepPath)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", stepPath, err)
		}
		b.Logger.Debug("built step", zap.String("path", stepPath), zap.String("op", f.Op().String()))
	}
	return f, nil
}

func columns(specs []ColumnSpec) ([]types.Column, error) {
	if specs == nil {
		return nil, nil
	}
	out := make([]types.Column, len(specs))
	for i, c := range specs {
		t, err := types.ParsePrimitiveType(c.Type)
		if err != nil {
			return nil, fmt.Errorf("column '%s': %w", c.Name, err)
		}
		out[i] = types.NewColumn(c.Name, t)
	}
	return out, nil
}

func (b *Builder) source(ctx context.Context, s *Source) (frame.Frame, error) {
	cols, err := columns(s.Columns)
	if err != nil {
		return nil, err
	}
	switch {
	case s.Table != "":
		return frame.NewTableSpec(strings.Split(s.Table, "."), cols)
	case s.CSV != "":
		return frame.NewCsvInline(s.CSV, cols)
	case s.Service != nil:
		return b.service(ctx, s.Service, cols)
	}
	return nil, fmt.Errorf("one of table, csv or service is required")
}

func (s *Service) coordinates() (frame.ProjectCoordinates, error) {
	switch {
	case s.Coordinates != "":
		parts := strings.Split(s.Coordinates, ":")
		if len(parts) != 3 {
			return nil, fmt.Errorf("coordinates must be group:artifact:version, got %q", s.Coordinates)
		}
		return frame.VersionedProject{GroupID: parts[0], ArtifactID: parts[1], Version: parts[2]}, nil
	case s.GroupWorkspace != "":
		return frame.GroupWorkspace{ProjectID: s.Project, Workspace: s.GroupWorkspace}, nil
	default:
		return frame.PersonalWorkspace{ProjectID: s.Project, Workspace: s.Workspace}, nil
	}
}

func (b *Builder) service(ctx context.Context, s *Service, cols []types.Column) (frame.Frame, error) {
	coords, err := s.coordinates()
	if err != nil {
		return nil, err
	}
	var opts []frame.ServiceOption
	if s.Accessor != "" {
		opts = append(opts, frame.WithAccessor(s.Accessor))
	}
	if len(cols) > 0 {
		return frame.NewServiceCall(s.Pattern, coords, cols, opts...)
	}
	if b.Fetcher == nil {
		return nil, fmt.Errorf("service %s declares no columns and no schema fetcher is configured", s.Pattern)
	}
	return sqlplan.ResolveService(ctx, s.Pattern, coords, b.Fetcher, sqlplan.Options{Logger: b.Logger}, opts...)
}

func (b *Builder) step(ctx context.Context, f frame.Frame, s *Step, path string) (frame.Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	switch {
	case s.Restrict != nil:
		return frame.NewRestrict(f, s.Restrict)
	case s.Rename != nil:
		pairs := make([]frame.RenamePair, len(s.Rename))
		for i, r := range s.Rename {
			pairs[i] = frame.RenamePair{From: r.From, To: r.To}
		}
		return frame.NewRename(f, pairs)
	case s.Sort != nil:
		names := make([]string, len(s.Sort))
		directions := make([]string, len(s.Sort))
		for i, k := range s.Sort {
			names[i] = k.Column
			directions[i] = k.Direction
			if directions[i] == "" {
				directions[i] = "ASC"
			}
		}
		return frame.NewSortByNames(f, names, directions)
	case s.Limit != nil:
		return frame.NewLimit(f, *s.Limit)
	case s.Drop != nil:
		return frame.NewDrop(f, *s.Drop)
	case s.Slice != nil:
		bounds, err := common.ToInts(s.Slice)
		if err != nil || len(bounds) != 2 {
			return nil, fmt.Errorf("slice takes [start, end], got %v", s.Slice)
		}
		return frame.NewSlice(f, bounds[0], bounds[1])
	case s.Distinct:
		return frame.NewDistinct(f), nil
	case s.Filter != nil:
		predicate, err := newResolver(frame.NewRow(f)).resolve(s.Filter.node)
		if err != nil {
			return nil, fmt.Errorf("filter: %w", err)
		}
		return frame.NewFilter(f, predicate)
	case s.Extend != nil:
		r := newResolver(frame.NewRow(f))
		cols := make([]frame.ExtendColumn, len(s.Extend))
		for i, c := range s.Extend {
			e, err := r.resolve(c.Expr.node)
			if err != nil {
				return nil, fmt.Errorf("extend[%d]: %w", i, err)
			}
			cols[i] = frame.ExtendColumn{Name: c.Name, Expr: e}
		}
		return frame.NewExtend(f, cols)
	case s.Join != nil:
		return b.join(ctx, f, s.Join, path)
	case s.Concatenate != nil:
		other, err := b.build(ctx, s.Concatenate, path+".concatenate.")
		if err != nil {
			return nil, err
		}
		return frame.NewConcatenate(f, other)
	case s.GroupBy != nil:
		r := newResolver(frame.NewRow(f))
		aggs := make([]frame.Aggregate, len(s.GroupBy.Aggregates))
		for i, a := range s.GroupBy.Aggregates {
			e, err := r.resolve(a.Expr.node)
			if err != nil {
				return nil, fmt.Errorf("group_by.aggregates[%d]: %w", i, err)
			}
			aggs[i] = frame.Aggregate{Name: a.Name, Expr: e}
		}
		return frame.NewGroupBy(f, s.GroupBy.Keys, aggs)
	case s.Shift != nil:
		periods, err := common.ToInts(s.Shift.Periods)
		if err != nil {
			return nil, fmt.Errorf("shift periods: %w", err)
		}
		_, list := s.Shift.Periods.([]interface{})
		return frame.NewShift(f, frame.ShiftOptions{
			Periods: periods,
			List:    list,
			Suffix:  s.Shift.Suffix,
			GroupBy: s.Shift.GroupBy,
			Columns: s.Shift.Columns,
		})
	}
	return nil, fmt.Errorf("step names no operation")
}

func (b *Builder) join(ctx context.Context, left frame.Frame, j *JoinSpec, path string) (frame.Frame, error) {
	right, err := b.build(ctx, &j.Right, path+".join.right.")
	if err != nil {
		return nil, err
	}
	kind := frame.JoinInner
	if j.Kind != "" {
		if kind, err = frame.ParseJoinKind(j.Kind); err != nil {
			return nil, err
		}
	}

	switch {
	case j.Condition != nil:
		condition, err := newResolver(frame.LeftRow(left), frame.RightRow(right)).resolve(j.Condition.node)
		if err != nil {
			return nil, fmt.Errorf("join condition: %w", err)
		}
		return frame.NewJoin(left, right, condition, kind)
	case j.On != nil:
		return frame.NewJoinByColumns(left, right, j.On, j.On, kind)
	default:
		return frame.NewJoinByColumns(left, right, j.LeftOn, j.RightOn, kind)
	}
}

// resolver maps expression nodes onto the expression IR, reading columns from
// the row scopes in view.
type resolver struct {
	rows map[string]frame.Row
}

func newResolver(rows ...frame.Row) *resolver {
	r := &resolver{rows: make(map[string]frame.Row, len(rows))}
	for _, row := range rows {
		switch row.Scope() {
		case expr.ScopeLeft:
			r.rows["left"] = row
		case expr.ScopeRight:
			r.rows["right"] = row
		default:
			r.rows["col"] = row
		}
	}
	return r
}
