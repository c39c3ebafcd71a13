package pipeline

import (
	"fmt"
	"strings"
	"time"

	"github.com/paveg/tdsframe/internal/common"
	"github.com/paveg/tdsframe/internal/expr"
	"github.com/paveg/tdsframe/internal/types"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

var binaryOps = map[string]func(a, b expr.Expr) expr.Expr{
	"add":         expr.Add,
	"sub":         expr.Sub,
	"mul":         expr.Mul,
	"div":         expr.Div,
	"mod":         expr.Mod,
	"eq":          expr.Eq,
	"ne":          expr.Ne,
	"lt":          expr.Lt,
	"le":          expr.Le,
	"gt":          expr.Gt,
	"ge":          expr.Ge,
	"xor":         expr.Xor,
	"startswith":  expr.StartsWith,
	"endswith":    expr.EndsWith,
	"contains":    expr.Contains,
	"index_of":    expr.IndexOf,
	"power":       expr.Power,
	"starts_with": expr.StartsWith,
	"ends_with":   expr.EndsWith,
}

var unaryOps = map[string]func(e expr.Expr) expr.Expr{
	"not":         expr.Not,
	"neg":         expr.Neg,
	"is_null":     expr.IsNull,
	"is_not_null": expr.IsNotNull,
	"to_string":   expr.ToString,
}

var dateTimeLayouts = []string{common.DateTimeLayout, common.DateTimeMicrosLayout, time.RFC3339Nano}

func (r *resolver) resolve(n *yaml.Node) (expr.Expr, error) {
	if n == nil {
		return nil, fmt.Errorf("expression is missing")
	}
	if n.Kind != yaml.MappingNode || len(n.Content) != 2 {
		return nil, fmt.Errorf("line %d: expression must be a mapping with a single key", n.Line)
	}
	key, value := n.Content[0].Value, n.Content[1]

	if row, ok := r.rows[key]; ok {
		if value.Kind != yaml.ScalarNode {
			return nil, fmt.Errorf("line %d: %s takes a column name", value.Line, key)
		}
		return row.Col(value.Value), nil
	}

	switch key {
	case "col", "left", "right":
		return nil, fmt.Errorf("line %d: %s references are not available here", n.Line, key)
	case "lit", "date", "datetime", "decimal", "null":
		return literal(key, value)
	case "today":
		return expr.Today(), nil
	case "now":
		return expr.Now(), nil
	case "and", "or":
		return r.logical(key, value)
	case "if_else":
		args, err := r.args(key, value, 3)
		if err != nil {
			return nil, err
		}
		return expr.IfElse(args[0], args[1], args[2]), nil
	case "case":
		return r.caseExpr(value)
	case "date_diff":
		return r.dateDiff(value)
	case "join_strings":
		return r.joinStrings(value)
	case "lag", "lead":
		return r.window(key, value)
	}

	if fn, ok := binaryOps[key]; ok {
		args, err := r.args(key, value, 2)
		if err != nil {
			return nil, err
		}
		return fn(args[0], args[1]), nil
	}
	if fn, ok := unaryOps[key]; ok {
		args, err := r.args(key, value, 1)
		if err != nil {
			return nil, err
		}
		return fn(args[0]), nil
	}
	if agg, ok := expr.ParseAggregationType(key); ok {
		args, err := r.args(key, value, 1)
		if err != nil {
			return nil, err
		}
		return expr.Aggregate(agg, args[0]), nil
	}
	args, err := r.args(key, value, 1)
	if err != nil {
		return nil, err
	}
	return expr.Call1(expr.FuncName(key), args[0]), nil
}

// argNodes accepts a list of arguments, or a single mapping for one argument.
func argNodes(value *yaml.Node) []*yaml.Node {
	if value.Kind == yaml.SequenceNode {
		return value.Content
	}
	return []*yaml.Node{value}
}

func (r *resolver) args(op string, value *yaml.Node, n int) ([]expr.Expr, error) {
	nodes := argNodes(value)
	if n >= 0 && len(nodes) != n {
		return nil, fmt.Errorf("line %d: %s takes %d arguments, got %d", value.Line, op, n, len(nodes))
	}
	out := make([]expr.Expr, len(nodes))
	for i, node := range nodes {
		e, err := r.resolve(node)
		if err != nil {
			return nil, err
		}
		out[i] = e
	}
	return out, nil
}

func (r *resolver) logical(op string, value *yaml.Node) (expr.Expr, error) {
	args, err := r.args(op, value, -1)
	if err != nil {
		return nil, err
	}
	if len(args) < 2 {
		return nil, fmt.Errorf("line %d: %s takes at least 2 arguments, got %d", value.Line, op, len(args))
	}
	combine := expr.And
	if op == "or" {
		combine = expr.Or
	}
	out := args[0]
	for _, a := range args[1:] {
		out = combine(out, a)
	}
	return out, nil
}

func literal(kind string, value *yaml.Node) (expr.Expr, error) {
	if value.Kind != yaml.ScalarNode {
		return nil, fmt.Errorf("line %d: %s takes a scalar value", value.Line, kind)
	}
	switch kind {
	case "null":
		t, err := types.ParsePrimitiveType(value.Value)
		if err != nil {
			return nil, fmt.Errorf("line %d: null takes a type name: %w", value.Line, err)
		}
		return expr.LitNull(t), nil
	case "date":
		t, err := time.Parse(common.DateLayout, value.Value)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", value.Line, err)
		}
		return expr.LitDate(t), nil
	case "datetime":
		for _, layout := range dateTimeLayouts {
			if t, err := time.Parse(layout, value.Value); err == nil {
				return expr.LitDateTime(t), nil
			}
		}
		return nil, fmt.Errorf("line %d: cannot parse datetime %q", value.Line, value.Value)
	case "decimal":
		d, err := decimal.NewFromString(value.Value)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", value.Line, err)
		}
		return expr.LitDecimal(d), nil
	}

	var v interface{}
	if err := value.Decode(&v); err != nil {
		return nil, fmt.Errorf("line %d: %w", value.Line, err)
	}
	if v == nil {
		return nil, fmt.Errorf("line %d: lit needs a value, use {null: <type>} for a typed null", value.Line)
	}
	switch value.Tag {
	case "!!int":
		n, err := common.ToInt64(v)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", value.Line, err)
		}
		return expr.Lit(n), nil
	case "!!float":
		f, err := common.ToFloat64(v)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", value.Line, err)
		}
		return expr.Lit(f), nil
	}
	return expr.Lit(v), nil
}

func (r *resolver) caseExpr(value *yaml.Node) (expr.Expr, error) {
	var spec struct {
		Whens []struct {
			When yaml.Node `yaml:"when"`
			Then yaml.Node `yaml:"then"`
		} `yaml:"whens"`
		Else *yaml.Node `yaml:"else"`
	}
	if err := value.Decode(&spec); err != nil {
		return nil, fmt.Errorf("line %d: %w", value.Line, err)
	}
	whens := make([]expr.CaseWhen, len(spec.Whens))
	for i := range spec.Whens {
		cond, err := r.resolve(&spec.Whens[i].When)
		if err != nil {
			return nil, err
		}
		then, err := r.resolve(&spec.Whens[i].Then)
		if err != nil {
			return nil, err
		}
		whens[i] = expr.When(cond, then)
	}
	var otherwise expr.Expr
	if spec.Else != nil {
		e, err := r.resolve(spec.Else)
		if err != nil {
			return nil, err
		}
		otherwise = e
	}
	return expr.Case(whens, otherwise), nil
}

func (r *resolver) dateDiff(value *yaml.Node) (expr.Expr, error) {
	nodes := argNodes(value)
	if len(nodes) != 3 || nodes[2].Kind != yaml.ScalarNode {
		return nil, fmt.Errorf("line %d: date_diff takes [from, to, unit]", value.Line)
	}
	unit, ok := expr.ParseDurationUnit(nodes[2].Value)
	if !ok {
		return nil, fmt.Errorf("line %d: unknown duration unit %q", nodes[2].Line, nodes[2].Value)
	}
	args, err := r.args("date_diff", &yaml.Node{Kind: yaml.SequenceNode, Line: value.Line, Content: nodes[:2]}, 2)
	if err != nil {
		return nil, err
	}
	return expr.DateDiff(args[0], args[1], unit), nil
}

func (r *resolver) joinStrings(value *yaml.Node) (expr.Expr, error) {
	nodes := argNodes(value)
	if len(nodes) != 2 || nodes[1].Kind != yaml.ScalarNode {
		return nil, fmt.Errorf("line %d: join_strings takes [column, separator]", value.Line)
	}
	column, err := r.resolve(nodes[0])
	if err != nil {
		return nil, err
	}
	return expr.JoinStrings(column, nodes[1].Value), nil
}

func (r *resolver) window(fn string, value *yaml.Node) (expr.Expr, error) {
	var spec struct {
		Column      string     `yaml:"column"`
		Offset      int        `yaml:"offset"`
		PartitionBy []string   `yaml:"partition_by"`
		OrderBy     []SortSpec `yaml:"order_by"`
	}
	if err := value.Decode(&spec); err != nil {
		return nil, fmt.Errorf("line %d: %w", value.Line, err)
	}
	row, ok := r.rows["col"]
	if !ok {
		return nil, fmt.Errorf("line %d: %s is not available here", value.Line, fn)
	}
	ref := row.Col(spec.Column)
	column, ok := ref.(*expr.ColumnExpr)
	if !ok {
		return ref, nil
	}
	if spec.Offset == 0 {
		spec.Offset = 1
	}

	window := expr.NewWindow()
	if len(spec.PartitionBy) > 0 {
		window = window.PartitionBy(spec.PartitionBy...)
	}
	for _, o := range spec.OrderBy {
		window = window.OrderBy(o.Column, !strings.EqualFold(o.Direction, "DESC"))
	}
	if fn == "lead" {
		return expr.Lead(column, spec.Offset, window), nil
	}
	return expr.Lag(column, spec.Offset, window), nil
}
