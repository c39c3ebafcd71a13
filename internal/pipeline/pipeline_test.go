package pipeline_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/paveg/tdsframe/internal/errors"
	"github.com/paveg/tdsframe/internal/explain"
	"github.com/paveg/tdsframe/internal/expr"
	"github.com/paveg/tdsframe/internal/frame"
	"github.com/paveg/tdsframe/internal/pipeline"
	"github.com/paveg/tdsframe/internal/testutil"
	"github.com/paveg/tdsframe/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
)

const tableSource = `
source:
  table: test_schema.test_table
  columns:
    - {name: col1, type: Integer}
    - {name: col2, type: String}
`

func build(t *testing.T, doc string) frame.Frame {
	t.Helper()
	parsed, err := pipeline.Parse([]byte(doc))
	require.NoError(t, err)
	f, err := pipeline.Build(context.Background(), parsed)
	require.NoError(t, err)
	return f
}

// assertSameFrame compares two frames by structure.
func assertSameFrame(t *testing.T, expected, actual frame.Frame) {
	t.Helper()
	assert.Equal(t, explain.Build(expected), explain.Build(actual))
}

func TestParseValidation(t *testing.T) {
	t.Run("every problem reported", func(t *testing.T) {
		_, err := pipeline.Parse([]byte(`
source:
  table: test_schema.test_table
  csv: "a\n1"
steps:
  - {}
  - limit: 1
    drop: 2
`))
		errs := multierr.Errors(err)
		require.Len(t, errs, 3)
		assert.EqualError(t, errs[0], "source: only one of table, csv or service may be set")
		assert.EqualError(t, errs[1], "steps[0]: step names no operation")
		assert.EqualError(t, errs[2], "steps[1]: step names several operations [limit drop]")
	})

	t.Run("table needs columns", func(t *testing.T) {
		_, err := pipeline.Parse([]byte("source: {table: s.t}"))
		assert.EqualError(t, err, "source: table sources need columns")
	})

	t.Run("service coordinates", func(t *testing.T) {
		_, err := pipeline.Parse([]byte("source: {service: {pattern: /p, project: P}}"))
		assert.EqualError(t, err, "source.service: exactly one of workspace or group_workspace is required")
	})

	t.Run("unknown field", func(t *testing.T) {
		_, err := pipeline.Parse([]byte(tableSource + "steps:\n  - limt: 1\n"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "parsing pipeline")
	})

	t.Run("empty document", func(t *testing.T) {
		_, err := pipeline.Parse(nil)
		assert.EqualError(t, err, "parsing pipeline: empty document")
	})
}

func TestBuildRowOperations(t *testing.T) {
	f := build(t, tableSource+`
steps:
  - filter: {gt: [{col: col1}, {lit: 1}]}
  - sort: [col1, {column: col2, direction: desc}]
  - rename: [{from: col2, to: name}]
  - restrict: [name, col1]
  - slice: [1, 3]
  - distinct: true
`)

	base := testutil.SimpleFrame(t)
	filtered, err := frame.FilterFunc(base, func(r frame.Row) expr.Expr {
		return expr.Gt(r.Col("col1"), expr.Lit(1))
	})
	require.NoError(t, err)
	sorted, err := frame.NewSort(filtered, []frame.SortKey{
		{Column: "col1"},
		{Column: "col2", Direction: frame.Descending},
	})
	require.NoError(t, err)
	renamed, err := frame.NewRename(sorted, []frame.RenamePair{{From: "col2", To: "name"}})
	require.NoError(t, err)
	restricted, err := frame.NewRestrict(renamed, []string{"name", "col1"})
	require.NoError(t, err)
	sliced, err := frame.NewSlice(restricted, 1, 3)
	require.NoError(t, err)

	assertSameFrame(t, frame.NewDistinct(sliced), f)
}

func TestBuildExpressions(t *testing.T) {
	tests := []struct {
		name     string
		expr     string
		expected string
	}{
		{"arithmetic", `{add: [{col: col1}, {mul: [{lit: 2}, {lit: 1.5}]}]}`, "(col(row.col1) + (lit(2) * lit(1.5)))"},
		{"conjunction of three", `{and: [{gt: [{col: col1}, {lit: 1}]}, {lt: [{col: col1}, {lit: 5}]}, {ne: [{col: col2}, {lit: x}]}]}`,
			`(((col(row.col1) > lit(1)) && (col(row.col1) < lit(5))) && (col(row.col2) != lit("x")))`},
		{"unary function", `{upper: {col: col2}}`, "upper(col(row.col2))"},
		{"match", `{startswith: [{col: col2}, {lit: a}]}`, `startswith(col(row.col2), lit("a"))`},
		{"date literal", `{date: 2024-01-31}`, "lit(2024-01-31)"},
		{"typed null", `{null: String}`, "lit(null:String)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := build(t, tableSource+"steps:\n  - extend: [{name: out, expr: "+tt.expr+"}]\n")
			ext, ok := f.(*frame.Extend)
			require.True(t, ok)
			assert.Equal(t, tt.expected, ext.Columns()[0].Expr.String())
		})
	}
}

func TestBuildGroupByAndShift(t *testing.T) {
	t.Run("group by", func(t *testing.T) {
		f := build(t, tableSource+`
steps:
  - group_by:
      keys: [col2]
      aggregates:
        - {name: total, expr: {sum: {col: col1}}}
        - {name: names, expr: {join_strings: [{col: col2}, ","]}}
`)
		g, ok := f.(*frame.GroupBy)
		require.True(t, ok)
		assert.Equal(t, []string{"col2", "total", "names"}, g.Schema().Names())
		agg, ok := g.Aggregates()[1].Expr.(*expr.AggregationExpr)
		require.True(t, ok)
		assert.Equal(t, ",", agg.Separator())
	})

	t.Run("scalar shift", func(t *testing.T) {
		f := build(t, tableSource+"steps:\n  - shift: {periods: 1, group_by: [col2]}\n")
		s, ok := f.(*frame.Shift)
		require.True(t, ok)
		assert.False(t, s.ListForm())
		assert.Equal(t, []string{"col1"}, s.Schema().Names())
	})

	t.Run("list shift", func(t *testing.T) {
		f := build(t, tableSource+"steps:\n  - shift: {periods: [1, -1], columns: [col1], suffix: _s}\n")
		assert.Equal(t, []string{"col1_s_1", "col1_s_-1"}, f.Schema().Names())
	})
}

func TestBuildJoin(t *testing.T) {
	left, right := testutil.JoinFrames(t)
	rightDoc := `
        source:
          table: test_schema.test_table2
          columns:
            - {name: col1, type: Integer}
            - {name: col2, type: String}
            - {name: col4, type: String}
`
	leftDoc := `
source:
  table: test_schema.test_table1
  columns:
    - {name: col1, type: Integer}
    - {name: col2, type: String}
    - {name: col3, type: String}
`

	t.Run("on shared keys", func(t *testing.T) {
		f := build(t, leftDoc+`
steps:
  - join:
      kind: left_outer
      on: [col1, col2]
      right:`+rightDoc)
		expected, err := frame.NewJoinByColumns(left, right, []string{"col1", "col2"}, []string{"col1", "col2"}, frame.JoinLeftOuter)
		require.NoError(t, err)
		assertSameFrame(t, expected, f)
	})

	t.Run("condition", func(t *testing.T) {
		f := build(t, leftDoc+`
steps:
  - join:
      condition: {and: [{eq: [{left: col1}, {right: col1}]}, {eq: [{left: col2}, {right: col2}]}]}
      right:`+rightDoc)
		j, ok := f.(*frame.Join)
		require.True(t, ok)
		assert.True(t, j.ByColumns())
		assert.Equal(t, []string{"col3", "col1", "col2", "col4"}, j.Schema().Names())
	})

	t.Run("concatenate", func(t *testing.T) {
		f := build(t, tableSource+`
steps:
  - concatenate:`+indent(tableSource)+`
`)
		_, ok := f.(*frame.Concatenate)
		assert.True(t, ok)
	})
}

// indent nests doc under a step key.
func indent(doc string) string {
	return strings.ReplaceAll(strings.TrimRight(doc, "\n"), "\n", "\n      ")
}

func TestBuildSources(t *testing.T) {
	t.Run("inline csv inferred", func(t *testing.T) {
		f := build(t, "source:\n  csv: \"a,b\\n1,x\\n2,y\"\n")
		assert.True(t, f.Schema().Equal(types.MustSchema(types.IntegerColumn("a"), types.StringColumn("b"))))
	})

	t.Run("service with fetcher", func(t *testing.T) {
		doc, err := pipeline.Parse([]byte(`
source:
  service:
    pattern: /people
    coordinates: org.finos:people:1.0.0
    accessor: model::People
`))
		require.NoError(t, err)
		var probed string
		b := &pipeline.Builder{Fetcher: frame.SchemaFetcherFunc(func(_ context.Context, sql string) ([]types.Column, error) {
			probed = sql
			return []types.Column{types.StringColumn("name")}, nil
		})}
		f, err := b.Build(context.Background(), doc)
		require.NoError(t, err)
		assert.Contains(t, probed, "coordinates => 'org.finos:people:1.0.0'")
		svc, ok := f.(*frame.ServiceCall)
		require.True(t, ok)
		assert.Equal(t, "model::People", svc.Accessor())
		assert.Equal(t, []string{"name"}, svc.Schema().Names())
	})

	t.Run("service without fetcher", func(t *testing.T) {
		doc, err := pipeline.Parse([]byte("source: {service: {pattern: /p, project: P, workspace: w}}"))
		require.NoError(t, err)
		_, err = pipeline.Build(context.Background(), doc)
		assert.EqualError(t, err, "source: service /p declares no columns and no schema fetcher is configured")
	})
}

func TestBuildErrors(t *testing.T) {
	t.Run("unknown column keeps the frame error", func(t *testing.T) {
		doc, err := pipeline.Parse([]byte(tableSource + "steps:\n  - limit: 2\n  - restrict: [col9]\n"))
		require.NoError(t, err)
		_, err = pipeline.Build(context.Background(), doc)
		fe := testutil.RequireKind(t, err, errors.KindValidation)
		assert.Equal(t, "restrict", fe.Op)
		assert.Contains(t, err.Error(), "steps[1]: Column - 'col9' in restrict columns list doesn't exist")
	})

	t.Run("unknown function", func(t *testing.T) {
		doc, err := pipeline.Parse([]byte(tableSource + "steps:\n  - extend: [{name: x, expr: {shout: {col: col2}}}]\n"))
		require.NoError(t, err)
		_, err = pipeline.Build(context.Background(), doc)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Unknown function: shout")
	})

	t.Run("join references outside a join", func(t *testing.T) {
		doc, err := pipeline.Parse([]byte(tableSource + "steps:\n  - filter: {eq: [{left: col1}, {lit: 1}]}\n"))
		require.NoError(t, err)
		_, err = pipeline.Build(context.Background(), doc)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "left references are not available here")
	})

	t.Run("cancelled", func(t *testing.T) {
		doc, err := pipeline.Parse([]byte(tableSource + "steps:\n  - limit: 2\n"))
		require.NoError(t, err)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err = pipeline.Build(ctx, doc)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pipeline.yaml")
	require.NoError(t, os.WriteFile(path, []byte(tableSource+"steps:\n  - limit: 3\n"), 0o600))

	doc, err := pipeline.LoadFile(path)
	require.NoError(t, err)
	require.Len(t, doc.Steps, 1)
	assert.Equal(t, 3, *doc.Steps[0].Limit)
}
