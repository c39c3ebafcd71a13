package tdsframe_test

import (
	"context"
	"errors"
	"testing"

	"github.com/paveg/tdsframe"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

const baseSQL = `SELECT "root".col1 AS "col1", "root".col2 AS "col2" FROM test_schema.test_table AS "root"`

func testTable() *tdsframe.Frame {
	return tdsframe.Table("test_schema.test_table",
		tdsframe.NewColumn("col1", tdsframe.Integer),
		tdsframe.NewColumn("col2", tdsframe.String))
}

func col1AboveOne(r tdsframe.Row) tdsframe.Expression {
	return r.Col("col1").Gt(tdsframe.Lit(1))
}

func TestToSQL(t *testing.T) {
	ctx := context.Background()

	sql, err := testTable().Filter(col1AboveOne).ToSQL(ctx, tdsframe.WithPretty(false))
	require.NoError(t, err)
	assert.Equal(t, baseSQL+` WHERE ("root".col1 > 1)`, sql)

	sql, err = testTable().Limit(5).ToSQL(ctx, tdsframe.WithPretty(false))
	require.NoError(t, err)
	assert.Equal(t, baseSQL+" LIMIT 5", sql)
}

func TestToPure(t *testing.T) {
	pure, err := testTable().
		Filter(col1AboveOne).
		Sort(tdsframe.Desc("col2"), tdsframe.Asc("col1")).
		ToPure(context.Background(), tdsframe.WithPretty(false))
	require.NoError(t, err)
	assert.Equal(t,
		"#Table(test_schema.test_table)#->filter({r | $r.col1 > 1})->sort([descending(~col2), ascending(~col1)])",
		pure)
}

func TestStickyError(t *testing.T) {
	f := testTable().Restrict("col9").Limit(2).Distinct()

	err := f.Err()
	require.Error(t, err)
	assert.True(t, errors.Is(err, tdsframe.ErrValidation))
	assert.Contains(t, err.Error(), "Column - 'col9' in restrict columns list doesn't exist")
	assert.Empty(t, f.Columns())

	_, planErr := f.ToSQL(context.Background())
	assert.Equal(t, err, planErr)
	_, planErr = f.Explain()
	assert.Equal(t, err, planErr)
}

func TestErrorFromOtherFrame(t *testing.T) {
	bad := testTable().Limit(-1)
	f := testTable().Concatenate(bad)
	assert.Equal(t, bad.Err(), f.Err())
}

func TestExtendAndGroupBy(t *testing.T) {
	f := testTable().
		Extend("doubled", func(r tdsframe.Row) tdsframe.Expression { return r.Col("col1").Mul(tdsframe.Lit(2)) }).
		GroupBy([]string{"col2"},
			tdsframe.Aggregate{Name: "total", Expr: func(r tdsframe.Row) tdsframe.Expression { return r.Col("doubled").Sum() }})
	require.NoError(t, f.Err())
	assert.Equal(t, []string{"col2", "total"}, f.Columns())

	bad := testTable().Extend("x", func(r tdsframe.Row) tdsframe.Expression { return r.Col("col1").Sum() })
	assert.True(t, errors.Is(bad.Err(), tdsframe.ErrValidation))
}

func TestJoin(t *testing.T) {
	left := tdsframe.Table("test_schema.test_table1",
		tdsframe.NewColumn("col1", tdsframe.Integer), tdsframe.NewColumn("col3", tdsframe.String))
	right := tdsframe.Table("test_schema.test_table2",
		tdsframe.NewColumn("col5", tdsframe.Integer), tdsframe.NewColumn("col4", tdsframe.String))

	joined := left.Join(right, func(l, r tdsframe.Row) tdsframe.Expression {
		return l.Col("col1").Eq(r.Col("col5"))
	}, tdsframe.LeftOuterJoin)
	require.NoError(t, joined.Err())
	assert.Equal(t, []string{"col1", "col3", "col5", "col4"}, joined.Columns())

	byColumns := left.JoinByColumns(right, []string{"col1"}, []string{"col5"}, tdsframe.InnerJoin)
	require.NoError(t, byColumns.Err())
	assert.Equal(t, []string{"col1", "col3", "col5", "col4"}, byColumns.Columns())
}

func TestArrowSchema(t *testing.T) {
	schema, err := testTable().ArrowSchema()
	require.NoError(t, err)
	require.Equal(t, 2, schema.NumFields())
	assert.Equal(t, "col1", schema.Field(0).Name)
	assert.True(t, schema.Field(1).Nullable)
}

func TestExplain(t *testing.T) {
	plan, err := testTable().Filter(col1AboveOne).Limit(3).Explain()
	require.NoError(t, err)
	assert.Equal(t, 3, plan.NodeCount)
	assert.Equal(t, "limit", plan.Root.Op)
}

func TestFromCSV(t *testing.T) {
	f := tdsframe.FromCSV("a,b\n1,x")
	require.NoError(t, f.Err())
	assert.Equal(t, tdsframe.Integer, f.Schema().Columns()[0].Type)
}

func TestResolveService(t *testing.T) {
	fetcher := tdsframe.SchemaFetcherFunc(func(_ context.Context, sql string) ([]tdsframe.Column, error) {
		return []tdsframe.Column{tdsframe.NewColumn("name", tdsframe.String)}, nil
	})
	f := tdsframe.ResolveService(context.Background(), "/people",
		tdsframe.VersionedProject{GroupID: "g", ArtifactID: "a", Version: "1"}, fetcher,
		tdsframe.WithAccessor("model::People"))
	require.NoError(t, f.Err())
	assert.Equal(t, []string{"name"}, f.Columns())

	pure, err := f.ToPure(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "#>{model::People}#", pure)
}

func TestFromPipeline(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	f := tdsframe.FromPipeline(context.Background(), []byte(`
source:
  table: test_schema.test_table
  columns:
    - {name: col1, type: Integer}
    - {name: col2, type: String}
steps:
  - filter: {gt: [{col: col1}, {lit: 1}]}
`), nil, zap.New(core))
	require.NoError(t, f.Err())
	assert.Equal(t, 1, logs.FilterMessage("built step").Len())

	sql, err := f.ToSQL(context.Background(), tdsframe.WithPretty(false))
	require.NoError(t, err)
	assert.Equal(t, baseSQL+` WHERE ("root".col1 > 1)`, sql)
}

func TestPlanOptionsAreValidated(t *testing.T) {
	cfg := tdsframe.NewConfig()
	cfg.Dialect = "oracle"
	_, err := testTable().ToSQL(context.Background(), tdsframe.WithConfig(cfg))
	assert.EqualError(t, err, `Dialect must be one of legend, got "oracle"`)

	cfg = tdsframe.NewConfig()
	cfg.Pretty = false
	sql, err := testTable().ToSQL(context.Background(), tdsframe.WithConfig(cfg))
	require.NoError(t, err)
	assert.Equal(t, baseSQL, sql)
}
