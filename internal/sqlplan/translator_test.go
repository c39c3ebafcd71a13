package sqlplan_test

import (
	"context"
	"testing"

	"github.com/paveg/tdsframe/internal/errors"
	"github.com/paveg/tdsframe/internal/expr"
	"github.com/paveg/tdsframe/internal/frame"
	"github.com/paveg/tdsframe/internal/sqlplan"
	"github.com/paveg/tdsframe/internal/testutil"
	"github.com/paveg/tdsframe/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

const baseSQL = `SELECT "root".col1 AS "col1", "root".col2 AS "col2" FROM test_schema.test_table AS "root"`

func compactSQL(t *testing.T, f frame.Frame, err error) string {
	t.Helper()
	require.NoError(t, err)
	sql, err := sqlplan.Generate(context.Background(), f, sqlplan.Options{})
	require.NoError(t, err)
	return sql
}

func prettySQL(t *testing.T, f frame.Frame) string {
	t.Helper()
	sql, err := sqlplan.Generate(context.Background(), f, sqlplan.Options{Pretty: true})
	require.NoError(t, err)
	return sql
}

func col1GreaterThan(n int) func(frame.Row) expr.Expr {
	return func(r frame.Row) expr.Expr { return expr.Gt(r.Col("col1"), expr.Lit(n)) }
}

func TestRestrictPreservesInputSQL(t *testing.T) {
	f, err := frame.NewRestrict(testutil.SimpleFrame(t), []string{"col1"})
	require.NoError(t, err)

	testutil.AssertSQL(t, `
		SELECT
		    "root".col1 AS "col1"
		FROM
		    test_schema.test_table AS "root"`, prettySQL(t, f))
}

func TestRowOperations(t *testing.T) {
	base := testutil.SimpleFrame(t)

	t.Run("table", func(t *testing.T) {
		assert.Equal(t, baseSQL, compactSQL(t, base, nil))
	})

	t.Run("restrict reorders", func(t *testing.T) {
		f, err := frame.NewRestrict(base, []string{"col2", "col1"})
		assert.Equal(t,
			`SELECT "root".col2 AS "col2", "root".col1 AS "col1" FROM test_schema.test_table AS "root"`,
			compactSQL(t, f, err))
	})

	t.Run("rename", func(t *testing.T) {
		f, err := frame.NewRename(base, []frame.RenamePair{{From: "col1", To: "a"}})
		assert.Equal(t,
			`SELECT "root".col1 AS "a", "root".col2 AS "col2" FROM test_schema.test_table AS "root"`,
			compactSQL(t, f, err))
	})

	t.Run("sort", func(t *testing.T) {
		f, err := frame.NewSort(base, []frame.SortKey{{Column: "col2", Direction: frame.Descending}, {Column: "col1"}})
		assert.Equal(t, baseSQL+` ORDER BY "root".col2 DESC, "root".col1`, compactSQL(t, f, err))
	})

	t.Run("limit", func(t *testing.T) {
		f, err := frame.NewLimit(base, 5)
		assert.Equal(t, baseSQL+" LIMIT 5", compactSQL(t, f, err))
	})

	t.Run("slice", func(t *testing.T) {
		f, err := frame.NewSlice(base, 2, 5)
		assert.Equal(t, baseSQL+" LIMIT 3 OFFSET 2", compactSQL(t, f, err))
	})

	t.Run("drop", func(t *testing.T) {
		f, err := frame.NewDrop(base, 2)
		assert.Equal(t, baseSQL+" OFFSET 2", compactSQL(t, f, err))
	})

	t.Run("filter", func(t *testing.T) {
		f, err := frame.FilterFunc(base, col1GreaterThan(1))
		assert.Equal(t, baseSQL+` WHERE ("root".col1 > 1)`, compactSQL(t, f, err))
	})

	t.Run("distinct", func(t *testing.T) {
		f := frame.NewDistinct(base)
		assert.Equal(t,
			`SELECT DISTINCT "root".col1 AS "col1", "root".col2 AS "col2" FROM test_schema.test_table AS "root"`,
			compactSQL(t, f, nil))
	})
}

func TestSliceMatchesDropThenLimit(t *testing.T) {
	base := testutil.SimpleFrame(t)
	sliced, err := frame.NewSlice(base, 2, 5)
	require.NoError(t, err)
	dropped, err := frame.NewDrop(base, 2)
	require.NoError(t, err)
	limited, err := frame.NewLimit(dropped, 3)
	require.NoError(t, err)

	assert.Equal(t, compactSQL(t, sliced, nil), compactSQL(t, limited, nil))

	head, err := frame.NewLimit(base, 3)
	require.NoError(t, err)
	first, err := frame.NewSlice(base, 0, 3)
	require.NoError(t, err)
	assert.Equal(t, baseSQL+" LIMIT 3", compactSQL(t, head, nil))
	assert.Equal(t, baseSQL+" LIMIT 3 OFFSET 0", compactSQL(t, first, nil))
}

func TestWrapping(t *testing.T) {
	base := testutil.SimpleFrame(t)
	limited, err := frame.NewLimit(base, 5)
	require.NoError(t, err)
	wrappedLimit := `FROM ( ` + baseSQL + ` LIMIT 5 ) AS "root"`
	outerColumns := `"root"."col1" AS "col1", "root"."col2" AS "col2"`

	t.Run("distinct over limit", func(t *testing.T) {
		sql := compactSQL(t, frame.NewDistinct(limited), nil)
		assert.Equal(t, `SELECT DISTINCT `+outerColumns+` `+wrappedLimit, sql)
		assert.Contains(t, sql, "LIMIT 5")
		assert.Contains(t, sql, "SELECT DISTINCT")
	})

	t.Run("sort over limit", func(t *testing.T) {
		f, err := frame.NewSort(limited, []frame.SortKey{{Column: "col1"}})
		assert.Equal(t, `SELECT `+outerColumns+` `+wrappedLimit+` ORDER BY "root"."col1"`, compactSQL(t, f, err))
	})

	t.Run("drop over limit", func(t *testing.T) {
		f, err := frame.NewDrop(limited, 2)
		assert.Equal(t, `SELECT `+outerColumns+` `+wrappedLimit+` OFFSET 2`, compactSQL(t, f, err))
	})

	t.Run("limit over limit", func(t *testing.T) {
		f, err := frame.NewLimit(limited, 2)
		assert.Equal(t, `SELECT `+outerColumns+` `+wrappedLimit+` LIMIT 2`, compactSQL(t, f, err))
	})

	t.Run("filter over limit", func(t *testing.T) {
		f, err := frame.FilterFunc(limited, col1GreaterThan(1))
		assert.Equal(t, `SELECT `+outerColumns+` `+wrappedLimit+` WHERE ("root"."col1" > 1)`, compactSQL(t, f, err))
	})

	t.Run("restrict over distinct", func(t *testing.T) {
		f, err := frame.NewRestrict(frame.NewDistinct(base), []string{"col1"})
		assert.Equal(t,
			`SELECT "root"."col1" AS "col1" FROM ( SELECT DISTINCT "root".col1 AS "col1", "root".col2 AS "col2" `+
				`FROM test_schema.test_table AS "root" ) AS "root"`,
			compactSQL(t, f, err))
	})

	t.Run("filter over sort stays in place", func(t *testing.T) {
		sorted, err := frame.NewSort(base, []frame.SortKey{{Column: "col1"}})
		require.NoError(t, err)
		f, err := frame.FilterFunc(sorted, col1GreaterThan(1))
		assert.Equal(t, baseSQL+` WHERE ("root".col1 > 1) ORDER BY "root".col1`, compactSQL(t, f, err))
	})

	t.Run("filter over distinct stays in place", func(t *testing.T) {
		f, err := frame.FilterFunc(frame.NewDistinct(base), col1GreaterThan(1))
		assert.Equal(t,
			`SELECT DISTINCT "root".col1 AS "col1", "root".col2 AS "col2" FROM test_schema.test_table AS "root" `+
				`WHERE ("root".col1 > 1)`,
			compactSQL(t, f, err))
	})

	t.Run("rename keeps limit", func(t *testing.T) {
		f, err := frame.NewRename(limited, []frame.RenamePair{{From: "col2", To: "b"}})
		assert.Equal(t,
			`SELECT "root".col1 AS "col1", "root".col2 AS "b" FROM test_schema.test_table AS "root" LIMIT 5`,
			compactSQL(t, f, err))
	})
}

func TestFilter(t *testing.T) {
	base := testutil.SimpleFrame(t)

	t.Run("literal on the left is swapped", func(t *testing.T) {
		f, err := frame.FilterFunc(base, func(r frame.Row) expr.Expr { return expr.Lt(expr.Lit(1), r.Col("col1")) })
		assert.Equal(t, baseSQL+` WHERE ("root".col1 > 1)`, compactSQL(t, f, err))
	})

	t.Run("filters are conjoined", func(t *testing.T) {
		first, err := frame.FilterFunc(base, col1GreaterThan(1))
		require.NoError(t, err)
		f, err := frame.FilterFunc(first, func(r frame.Row) expr.Expr { return expr.Eq(r.Col("col2"), expr.Lit("a")) })
		assert.Equal(t, baseSQL+` WHERE (("root".col1 > 1) AND ("root".col2 = 'a'))`, compactSQL(t, f, err))
	})

	t.Run("computed columns are inlined", func(t *testing.T) {
		extended, err := frame.NewExtend(base, []frame.ExtendColumn{
			{Name: "col3", Expr: expr.Add(expr.Col(expr.ScopeRow, "col1", types.Integer), expr.Lit(1))},
		})
		require.NoError(t, err)
		f, err := frame.FilterFunc(extended, func(r frame.Row) expr.Expr { return expr.Gt(r.Col("col3"), expr.Lit(2)) })
		assert.Equal(t,
			`SELECT "root".col1 AS "col1", "root".col2 AS "col2", ("root".col1 + 1) AS "col3" `+
				`FROM test_schema.test_table AS "root" WHERE (("root".col1 + 1) > 2)`,
			compactSQL(t, f, err))
	})
}

func TestWindowColumnsAreReadFromSubQuery(t *testing.T) {
	base := testutil.SimpleFrame(t)
	byCol2 := expr.NewWindow().PartitionBy("col2")
	extended, err := frame.NewExtend(base, []frame.ExtendColumn{
		{Name: "prev", Expr: expr.Lag(expr.Col(expr.ScopeRow, "col1", types.Integer), 1, byCol2)},
	})
	require.NoError(t, err)

	lag := `LAG("root".col1, 1) OVER (PARTITION BY "root".col2)`
	windowSQL := `SELECT "root".col1 AS "col1", "root".col2 AS "col2", ` + lag + ` AS "prev" FROM test_schema.test_table AS "root"`
	wrapped := `FROM ( ` + windowSQL + ` ) AS "root"`
	outerColumns := `"root"."col1" AS "col1", "root"."col2" AS "col2", "root"."prev" AS "prev"`
	prev := expr.Col(expr.ScopeRow, "prev", types.Integer)

	filtered := func() (frame.Frame, error) {
		return frame.NewFilter(extended, expr.Gt(prev, expr.Lit(1)))
	}
	grouped := func() (frame.Frame, error) {
		return frame.NewGroupBy(extended, []string{"prev"}, []frame.Aggregate{
			{Name: "count", Expr: expr.Count(expr.Col(expr.ScopeRow, "col1", types.Integer))},
		})
	}
	windowed := func() (frame.Frame, error) {
		return frame.NewExtend(extended, []frame.ExtendColumn{{Name: "next", Expr: expr.Lag(prev, 1, byCol2)}})
	}
	plain := func() (frame.Frame, error) {
		return frame.NewExtend(extended, []frame.ExtendColumn{{Name: "x", Expr: expr.Add(prev, expr.Lit(1))}})
	}

	tests := []struct {
		name     string
		build    func() (frame.Frame, error)
		expected string
	}{
		{"filter", filtered, `SELECT ` + outerColumns + ` ` + wrapped + ` WHERE ("root"."prev" > 1)`},
		{"group by", grouped,
			`SELECT "root"."prev" AS "prev", COUNT("root"."col1") AS "count" ` + wrapped + ` GROUP BY "root"."prev"`},
		{"window over window", windowed,
			`SELECT ` + outerColumns + `, LAG("root"."prev", 1) OVER (PARTITION BY "root"."col2") AS "next" ` + wrapped},
		{"plain extend inlines", plain,
			`SELECT "root".col1 AS "col1", "root".col2 AS "col2", ` + lag + ` AS "prev", (` + lag + ` + 1) AS "x" ` +
				`FROM test_schema.test_table AS "root"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := tt.build()
			assert.Equal(t, tt.expected, compactSQL(t, f, err))
		})
	}
}

func groupByCount(t *testing.T) frame.Frame {
	t.Helper()
	base := testutil.SimpleFrame(t)
	row := frame.NewRow(base)
	f, err := frame.NewGroupBy(base, []string{"col2"}, []frame.Aggregate{
		{Name: "count", Expr: expr.Count(row.Col("col1"))},
	})
	require.NoError(t, err)
	return f
}

func TestGroupBy(t *testing.T) {
	grouped := groupByCount(t)
	groupedSQL := `SELECT "root".col2 AS "col2", COUNT("root".col1) AS "count" ` +
		`FROM test_schema.test_table AS "root" GROUP BY "root".col2`
	assert.Equal(t, groupedSQL, compactSQL(t, grouped, nil))

	f, err := frame.FilterFunc(grouped, func(r frame.Row) expr.Expr { return expr.Gt(r.Col("count"), expr.Lit(1)) })
	assert.Equal(t,
		`SELECT "root"."col2" AS "col2", "root"."count" AS "count" FROM ( `+groupedSQL+` ) AS "root" `+
			`WHERE ("root"."count" > 1)`,
		compactSQL(t, f, err))

	testutil.AssertGolden(t, "group_by_pretty", prettySQL(t, grouped))
}

func TestConcatenate(t *testing.T) {
	base := testutil.SimpleFrame(t)
	f, err := frame.NewConcatenate(base, base)
	assert.Equal(t,
		`SELECT "root"."col1" AS "col1", "root"."col2" AS "col2" FROM ( `+baseSQL+` UNION ALL `+baseSQL+` ) AS "root"`,
		compactSQL(t, f, err))

	limited, err := frame.NewLimit(base, 1)
	require.NoError(t, err)
	f, err = frame.NewConcatenate(limited, base)
	assert.Equal(t,
		`SELECT "root"."col1" AS "col1", "root"."col2" AS "col2" FROM ( `+
			`SELECT "root"."col1" AS "col1", "root"."col2" AS "col2" FROM ( `+baseSQL+` LIMIT 1 ) AS "root" `+
			`UNION ALL `+baseSQL+` ) AS "root"`,
		compactSQL(t, f, err))
}

func TestJoinByColumns(t *testing.T) {
	left, right := testutil.JoinFrames(t)
	f, err := frame.NewJoinByColumns(left, right, []string{"col2", "col1"}, []string{"col2", "col1"}, frame.JoinInner)
	require.NoError(t, err)

	assert.Equal(t,
		`SELECT "root"."col3" AS "col3", "root"."col1" AS "col1", "root"."col2" AS "col2", "root"."col4" AS "col4" `+
			`FROM ( SELECT "left"."col3" AS "col3", "left"."col1" AS "col1", "left"."col2" AS "col2", "right"."col4" AS "col4" `+
			`FROM ( SELECT "root".col1 AS "col1", "root".col2 AS "col2", "root".col3 AS "col3" `+
			`FROM test_schema.test_table1 AS "root" ) AS "left" `+
			`INNER JOIN ( SELECT "root".col1 AS "col1", "root".col2 AS "col2", "root".col4 AS "col4" `+
			`FROM test_schema.test_table2 AS "root" ) AS "right" `+
			`ON (("left"."col2" = "right"."col2") AND ("left"."col1" = "right"."col1")) ) AS "root"`,
		compactSQL(t, f, nil))
	testutil.AssertGolden(t, "join_by_columns_pretty", prettySQL(t, f))

	rightOuter, err := frame.NewJoinByColumns(left, right, []string{"col1"}, []string{"col1"}, frame.JoinRightOuter)
	require.Error(t, err, "col2 is shared without being a key")
	assert.Nil(t, rightOuter)

	rightOuter, err = frame.NewJoinByColumns(left, right, []string{"col2", "col1"}, []string{"col2", "col1"}, frame.JoinRightOuter)
	sql := compactSQL(t, rightOuter, err)
	assert.Contains(t, sql, `"right"."col1" AS "col1", "right"."col2" AS "col2"`)
	assert.Contains(t, sql, "RIGHT OUTER JOIN")
}

func TestJoinCondition(t *testing.T) {
	left := testutil.SimpleTable(t, "t1", types.IntegerColumn("a"), types.StringColumn("b"))
	right := testutil.SimpleTable(t, "t2", types.IntegerColumn("c"))
	f, err := frame.JoinFunc(left, right, func(l, r frame.Row) expr.Expr {
		return expr.Le(l.Col("a"), r.Col("c"))
	}, frame.JoinLeftOuter)
	require.NoError(t, err)

	assert.Equal(t,
		`SELECT "root"."a" AS "a", "root"."b" AS "b", "root"."c" AS "c" `+
			`FROM ( SELECT "left"."a" AS "a", "left"."b" AS "b", "right"."c" AS "c" `+
			`FROM ( SELECT "root".a AS "a", "root".b AS "b" FROM test_schema.t1 AS "root" ) AS "left" `+
			`LEFT OUTER JOIN ( SELECT "root".c AS "c" FROM test_schema.t2 AS "root" ) AS "right" `+
			`ON ("left"."a" <= "right"."c") ) AS "root"`,
		compactSQL(t, f, nil))
}

func TestInputs(t *testing.T) {
	t.Run("service call", func(t *testing.T) {
		f, err := frame.NewServiceCall("/simplePersonService",
			frame.VersionedProject{GroupID: "g", ArtifactID: "a", Version: "1.0"},
			[]types.Column{types.StringColumn("First Name")})
		assert.Equal(t,
			`SELECT "root"."First Name" AS "First Name" FROM service( pattern => '/simplePersonService', `+
				`coordinates => 'g:a:1.0' ) AS "root"`,
			compactSQL(t, f, err))
	})

	t.Run("service probe", func(t *testing.T) {
		sql, err := sqlplan.ServiceProbe(context.Background(), "/simplePersonService",
			frame.PersonalWorkspace{ProjectID: "PROD-1", Workspace: "dev"}, sqlplan.Options{Pretty: true})
		require.NoError(t, err)
		testutil.AssertSQL(t, `
			SELECT
			    "root".*
			FROM
			    service(
			        pattern => '/simplePersonService',
			        project => 'PROD-1',
			        workspace => 'dev'
			    ) AS "root"`, sql)
	})

	t.Run("resolve service schema", func(t *testing.T) {
		var probed string
		fetcher := frame.SchemaFetcherFunc(func(_ context.Context, sql string) ([]types.Column, error) {
			probed = sql
			return []types.Column{types.StringColumn("First Name"), types.IntegerColumn("Age")}, nil
		})
		f, err := sqlplan.ResolveService(context.Background(), "/simplePersonService",
			frame.VersionedProject{GroupID: "g", ArtifactID: "a", Version: "1.0"}, fetcher, sqlplan.Options{},
			frame.WithAccessor("model::PersonService"))
		require.NoError(t, err)
		assert.Contains(t, probed, `SELECT "root".* FROM service(`)
		assert.Equal(t, []string{"First Name", "Age"}, f.Schema().Names())
		assert.Equal(t, "model::PersonService", f.Accessor())
	})

	t.Run("table column names needing quotes", func(t *testing.T) {
		f := testutil.PersonFrame(t)
		r, err := frame.NewRestrict(f, []string{"First Name", "Age"})
		assert.Equal(t,
			`SELECT "root"."First Name" AS "First Name", "root".Age AS "Age" FROM test_schema.person AS "root"`,
			compactSQL(t, r, err))
	})

	t.Run("inline csv", func(t *testing.T) {
		f, err := frame.NewCsvInline("col1,col2\n1,a", []types.Column{types.IntegerColumn("col1"), types.StringColumn("col2")})
		assert.Equal(t,
			"SELECT \"root\".\"col1\" AS \"col1\", \"root\".\"col2\" AS \"col2\" FROM CSV( 'col1,col2\n1,a' ) AS \"root\"",
			compactSQL(t, f, err))
	})
}

func TestShiftIsUnsupported(t *testing.T) {
	f, err := frame.NewShift(testutil.SimpleFrame(t), frame.ShiftOptions{Periods: []int{1}, Columns: []string{"col1"}})
	require.NoError(t, err)

	_, err = sqlplan.Generate(context.Background(), f, sqlplan.Options{})
	fe := testutil.RequireKind(t, err, errors.KindUnsupported)
	assert.Equal(t, "shift", fe.Op)
	assert.ErrorIs(t, err, errors.ErrUnsupported)
}

func TestCancellation(t *testing.T) {
	f, err := frame.NewLimit(testutil.SimpleFrame(t), 1)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = sqlplan.Plan(ctx, f, sqlplan.Options{})
	testutil.RequireKind(t, err, errors.KindCancelled)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDeterministic(t *testing.T) {
	left, right := testutil.JoinFrames(t)
	f, err := frame.NewJoinByColumns(left, right, []string{"col2", "col1"}, []string{"col2", "col1"}, frame.JoinLeftOuter)
	require.NoError(t, err)
	assert.Equal(t, prettySQL(t, f), prettySQL(t, f))
}

func TestLogging(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	f, err := frame.NewLimit(testutil.SimpleFrame(t), 5)
	require.NoError(t, err)

	_, err = sqlplan.Generate(context.Background(), frame.NewDistinct(f), sqlplan.Options{Logger: zap.New(core)})
	require.NoError(t, err)

	steps := logs.FilterMessage("lowering frame").All()
	require.Len(t, steps, 3)
	assert.Equal(t, "distinct", steps[0].ContextMap()["op"])
	assert.Equal(t, int64(2), steps[2].ContextMap()["depth"])

	wraps := logs.FilterMessage("wrapping query in sub-query").All()
	require.Len(t, wraps, 1)
	assert.Equal(t, "limit", wraps[0].ContextMap()["reason"])
}
