package sqlast_test

import (
	"testing"

	"github.com/paveg/tdsframe/internal/sqlast"
	"github.com/stretchr/testify/assert"
)

var (
	pretty  = sqlast.Options{Pretty: true}
	compact = sqlast.Options{}
)

func rootTable(name ...string) sqlast.Relation {
	return &sqlast.AliasedRelation{Relation: &sqlast.Table{Name: name}, Alias: `"root"`}
}

func column(name string) sqlast.SelectItem {
	return &sqlast.SingleColumn{Expr: sqlast.Column(`"root"`, name), Alias: `"` + name + `"`}
}

func simpleQuery() *sqlast.QuerySpec {
	return &sqlast.QuerySpec{
		Select: sqlast.Select{Items: []sqlast.SelectItem{column("col1"), column("col2")}},
		From:   []sqlast.Relation{rootTable("test_schema", "test_table")},
	}
}

func TestFormatQuerySpec(t *testing.T) {
	q := simpleQuery()

	assert.Equal(t, `SELECT
    "root".col1 AS "col1",
    "root".col2 AS "col2"
FROM
    test_schema.test_table AS "root"`, sqlast.Format(q, pretty))

	assert.Equal(t,
		`SELECT "root".col1 AS "col1", "root".col2 AS "col2" FROM test_schema.test_table AS "root"`,
		q.String())
}

func TestFormatClauses(t *testing.T) {
	q := simpleQuery()
	q.Where = &sqlast.Comparison{Op: sqlast.GreaterThan, Left: sqlast.Column(`"root"`, "col1"), Right: &sqlast.IntegerLiteral{Value: 1}}
	q.OrderBy = []sqlast.SortItem{
		{Key: sqlast.Column(`"root"`, "col1")},
		{Key: sqlast.Column(`"root"`, "col2"), Descending: true},
	}
	q.Limit = sqlast.Int(10)
	q.Offset = sqlast.Int(0)

	assert.Equal(t, `SELECT
    "root".col1 AS "col1",
    "root".col2 AS "col2"
FROM
    test_schema.test_table AS "root"
WHERE
    ("root".col1 > 1)
ORDER BY
    "root".col1,
    "root".col2 DESC
LIMIT 10
OFFSET 0`, sqlast.Format(q, pretty))
}

func TestFormatGroupBy(t *testing.T) {
	key := sqlast.Column(`"root"`, "col2")
	q := &sqlast.QuerySpec{
		Select: sqlast.Select{Items: []sqlast.SelectItem{
			&sqlast.SingleColumn{Expr: key, Alias: `"col2"`},
			&sqlast.SingleColumn{Expr: &sqlast.Call{Name: "COUNT", Args: []sqlast.Expression{sqlast.Column(`"root"`, "col1")}, Distinct: true}, Alias: `"cnt"`},
		}},
		From:    []sqlast.Relation{rootTable("t")},
		GroupBy: []sqlast.Expression{key},
		Having:  &sqlast.Comparison{Op: sqlast.Equal, Left: key, Right: &sqlast.StringLiteral{Value: "a"}},
	}
	assert.Equal(t,
		`SELECT "root".col2 AS "col2", COUNT(DISTINCT "root".col1) AS "cnt" FROM t AS "root" GROUP BY "root".col2 HAVING ("root".col2 = 'a')`,
		sqlast.Format(q, compact))
}

func TestFormatNestedSubquery(t *testing.T) {
	inner := simpleQuery()
	inner.Limit = sqlast.Int(5)
	outer := &sqlast.QuerySpec{
		Select: sqlast.Select{Distinct: true, Items: []sqlast.SelectItem{column("col1"), column("col2")}},
		From: []sqlast.Relation{&sqlast.AliasedRelation{
			Relation: &sqlast.TableSubquery{Query: &sqlast.Query{Body: inner}},
			Alias:    `"root"`,
		}},
	}

	assert.Equal(t, `SELECT DISTINCT
    "root".col1 AS "col1",
    "root".col2 AS "col2"
FROM
    (
        SELECT
            "root".col1 AS "col1",
            "root".col2 AS "col2"
        FROM
            test_schema.test_table AS "root"
        LIMIT 5
    ) AS "root"`, sqlast.Format(outer, pretty))

	assert.Equal(t,
		`SELECT DISTINCT "root".col1 AS "col1", "root".col2 AS "col2" FROM ( SELECT "root".col1 AS "col1", "root".col2 AS "col2" FROM test_schema.test_table AS "root" LIMIT 5 ) AS "root"`,
		sqlast.Format(outer, compact))
}

func TestFormatUnion(t *testing.T) {
	union := &sqlast.Union{Left: simpleQuery(), Right: simpleQuery()}
	outer := &sqlast.QuerySpec{
		Select: sqlast.Select{Items: []sqlast.SelectItem{column("col1")}},
		From: []sqlast.Relation{&sqlast.AliasedRelation{
			Relation: &sqlast.TableSubquery{Query: &sqlast.Query{Body: union}},
			Alias:    `"root"`,
		}},
	}

	assert.Equal(t, `SELECT
    "root".col1 AS "col1"
FROM
    (
        SELECT
            "root".col1 AS "col1",
            "root".col2 AS "col2"
        FROM
            test_schema.test_table AS "root"
        UNION ALL
        SELECT
            "root".col1 AS "col1",
            "root".col2 AS "col2"
        FROM
            test_schema.test_table AS "root"
    ) AS "root"`, sqlast.Format(outer, pretty))

	union.Distinct = true
	assert.Contains(t, sqlast.Format(union, compact), `"root" UNION SELECT`)
}

func TestFormatJoin(t *testing.T) {
	join := &sqlast.Join{
		Type:  sqlast.LeftJoin,
		Left:  &sqlast.AliasedRelation{Relation: &sqlast.Table{Name: sqlast.QualifiedName{"s", "a"}}, Alias: `"left"`},
		Right: &sqlast.AliasedRelation{Relation: &sqlast.Table{Name: sqlast.QualifiedName{"s", "b"}}, Alias: `"right"`},
		On: &sqlast.Comparison{
			Op:    sqlast.Equal,
			Left:  sqlast.Column(`"left"`, "col1"),
			Right: sqlast.Column(`"right"`, "col3"),
		},
	}
	assert.Equal(t, `s.a AS "left"
LEFT OUTER JOIN
    s.b AS "right"
    ON ("left".col1 = "right".col3)`, sqlast.Format(join, pretty))

	join.Type = sqlast.RightJoin
	assert.Equal(t, `s.a AS "left" RIGHT OUTER JOIN s.b AS "right" ON ("left".col1 = "right".col3)`,
		sqlast.Format(join, compact))
}

func TestFormatTableFunction(t *testing.T) {
	service := &sqlast.AliasedRelation{
		Relation: &sqlast.TableFunction{Call: &sqlast.FunctionCall{
			Name: sqlast.QualifiedName{"service"},
			Args: []sqlast.Expression{
				&sqlast.NamedArgument{Name: "pattern", Value: &sqlast.StringLiteral{Value: "/simplePersonService"}},
				&sqlast.NamedArgument{Name: "coordinates", Value: &sqlast.StringLiteral{Value: "g:a:1.0"}},
			},
		}},
		Alias: `"root"`,
	}
	q := &sqlast.QuerySpec{
		Select: sqlast.Select{Items: []sqlast.SelectItem{&sqlast.AllColumns{Prefix: `"root"`}}},
		From:   []sqlast.Relation{service},
	}

	assert.Equal(t, `SELECT
    "root".*
FROM
    service(
        pattern => '/simplePersonService',
        coordinates => 'g:a:1.0'
    ) AS "root"`, sqlast.Format(q, pretty))
	assert.Equal(t,
		`SELECT "root".* FROM service( pattern => '/simplePersonService', coordinates => 'g:a:1.0' ) AS "root"`,
		sqlast.Format(q, compact))
	assert.Equal(t, "now()", sqlast.Format(&sqlast.FunctionCall{Name: sqlast.QualifiedName{"now"}}, pretty))
}

func TestFormatIdentifiers(t *testing.T) {
	q := &sqlast.QuerySpec{
		Select: sqlast.Select{Items: []sqlast.SelectItem{
			&sqlast.SingleColumn{Expr: sqlast.Column(`"root"`, "date"), Alias: `"date"`},
			&sqlast.SingleColumn{Expr: sqlast.Column(`"root"`, "name"), Alias: "name"},
		}},
		From: []sqlast.Relation{rootTable("s", "first")},
	}
	assert.Equal(t, `SELECT "root"."date" AS "date", "root".name AS name FROM s."first" AS "root"`,
		sqlast.Format(q, compact))
	assert.Equal(t, `SELECT "root"."date" AS "date", "root"."name" AS "name" FROM "s"."first" AS "root"`,
		sqlast.Format(q, sqlast.Options{QuoteAllIdentifiers: true}))
}

func TestFormatExpressions(t *testing.T) {
	col := sqlast.Column(`"root"`, "col1")
	one := &sqlast.IntegerLiteral{Value: 1}
	tests := []struct {
		name     string
		expr     sqlast.Expression
		expected string
	}{
		{"integer", &sqlast.IntegerLiteral{Value: -3}, "-3"},
		{"double", &sqlast.DoubleLiteral{Value: 2}, "2.0"},
		{"boolean", &sqlast.BooleanLiteral{Value: true}, "true"},
		{"string", &sqlast.StringLiteral{Value: "It's"}, "'It''s'"},
		{"null", &sqlast.NullLiteral{}, "null"},
		{"comparison", &sqlast.Comparison{Op: sqlast.NotEqual, Left: col, Right: one}, `("root".col1 <> 1)`},
		{"logical", &sqlast.Logical{Op: sqlast.Or, Left: &sqlast.BooleanLiteral{Value: true}, Right: &sqlast.BooleanLiteral{}}, "(true OR false)"},
		{"not comparison", &sqlast.Not{Value: &sqlast.Comparison{Op: sqlast.Equal, Left: col, Right: one}}, `NOT("root".col1 = 1)`},
		{"not column", &sqlast.Not{Value: col}, `NOT("root".col1)`},
		{"add", &sqlast.Arithmetic{Op: sqlast.Add, Left: col, Right: one}, `("root".col1 + 1)`},
		{"divide", &sqlast.Arithmetic{Op: sqlast.Divide, Left: col, Right: one}, `((1.0 * "root".col1) / 1)`},
		{"modulus", &sqlast.Arithmetic{Op: sqlast.Modulus, Left: col, Right: one}, `MOD("root".col1, 1)`},
		{"negative literal", &sqlast.Negative{Value: one}, "-1"},
		{"negative column", &sqlast.Negative{Value: col}, `(0 - "root".col1)`},
		{"cast", &sqlast.Cast{Value: &sqlast.StringLiteral{Value: "2024-01-01"}, Type: "DATE"}, "CAST('2024-01-01' AS DATE)"},
		{"is null", &sqlast.IsNull{Value: col}, `("root".col1 IS NULL)`},
		{"is not null", &sqlast.IsNotNull{Value: col}, `("root".col1 IS NOT NULL)`},
		{"like", &sqlast.Like{Value: col, Pattern: &sqlast.StringLiteral{Value: "a%"}}, `("root".col1 LIKE 'a%')`},
		{"current date", &sqlast.CurrentTime{}, "CURRENT_DATE"},
		{"current timestamp", &sqlast.CurrentTime{Kind: sqlast.CurrentTimestamp}, "CURRENT_TIMESTAMP"},
		{"call", &sqlast.Call{Name: "DATE_PART", Args: []sqlast.Expression{&sqlast.StringLiteral{Value: "year"}, col}}, `DATE_PART('year', "root".col1)`},
		{
			"window",
			&sqlast.Windowed{
				Func:        &sqlast.Call{Name: "LAG", Args: []sqlast.Expression{col, one}},
				PartitionBy: []sqlast.Expression{sqlast.Column(`"root"`, "col2")},
				OrderBy:     []sqlast.SortItem{{Key: col, Descending: true}},
			},
			`LAG("root".col1, 1) OVER (PARTITION BY "root".col2 ORDER BY "root".col1 DESC)`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, sqlast.Format(tt.expr, compact))
		})
	}
}

func TestFormatCase(t *testing.T) {
	col := sqlast.Column(`"root"`, "col1")
	c := &sqlast.Case{
		Whens: []sqlast.When{{
			Condition: &sqlast.Comparison{Op: sqlast.GreaterThan, Left: col, Right: &sqlast.IntegerLiteral{Value: 0}},
			Result:    &sqlast.StringLiteral{Value: "pos"},
		}},
		Else: &sqlast.StringLiteral{Value: "neg"},
	}
	assert.Equal(t, `CASE WHEN ("root".col1 > 0) THEN 'pos' ELSE 'neg' END`, sqlast.Format(c, compact))
	assert.Equal(t, `CASE
    WHEN
        ("root".col1 > 0)
    THEN
        'pos'
    ELSE
        'neg'
END`, sqlast.Format(c, pretty))
}
