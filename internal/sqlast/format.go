package sqlast

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/paveg/tdsframe/internal/common"
)

// reservedKeywords are always quoted when used as identifiers.
var reservedKeywords = map[string]bool{
	"kerberos": true,
	"date":     true,
	"first":    true,
}

// Options control how a tree is rendered.
type Options struct {
	// Pretty breaks clauses onto their own lines, indenting four spaces per level
	Pretty bool
	// QuoteAllIdentifiers quotes every identifier instead of only reserved keywords
	QuoteAllIdentifiers bool
}

// Format renders a node as SQL text.
func Format(n Node, opts Options) string {
	p := printer{opts: opts}
	switch n := n.(type) {
	case *Query:
		return p.query(n, false)
	case Relation:
		return p.relation(n, false)
	case Expression:
		return p.expr(n)
	case SelectItem:
		return p.selectItem(n)
	default:
		panic(fmt.Sprintf("sqlast: cannot format %T", n))
	}
}

// printer carries the indent level. It is passed by value so that a nested
// clause indents without affecting its siblings.
type printer struct {
	opts   Options
	indent int
}

func (p printer) sep(n int) string {
	if !p.opts.Pretty {
		return " "
	}
	return "\n" + strings.Repeat("    ", p.indent+n)
}

func (p printer) push() printer {
	p.indent++
	return p
}

func (p printer) ident(name string) string {
	if common.IsQuotedIdentifier(name) {
		return name
	}
	if p.opts.QuoteAllIdentifiers || reservedKeywords[name] {
		return common.QuoteIdentifier(name)
	}
	return name
}

func (p printer) qualifiedName(name QualifiedName) string {
	parts := make([]string, len(name))
	for i, part := range name {
		parts[i] = p.ident(part)
	}
	return strings.Join(parts, ".")
}

func (p printer) query(q *Query, nested bool) string {
	if len(q.OrderBy) == 0 && q.Limit == nil && q.Offset == nil {
		return p.relation(q.Body, nested)
	}
	inner := p.push().push()
	body := inner.relation(q.Body, true)
	var b strings.Builder
	fmt.Fprintf(&b, "(%sSELECT%s*%sFROM%s%s", p.sep(1), p.sep(2), p.sep(1), p.sep(2), body)
	if len(q.OrderBy) > 0 {
		b.WriteString(p.push().orderBy(q.OrderBy))
	}
	b.WriteString(p.push().limit(q.Limit, q.Offset))
	b.WriteString(p.sep(0) + ")")
	return b.String()
}

func (p printer) querySpec(q *QuerySpec, nested bool) string {
	if nested {
		return "(" + p.sep(1) + p.push().querySpec(q, false) + p.sep(0) + ")"
	}

	var b strings.Builder
	b.WriteString("SELECT")
	if q.Select.Distinct {
		b.WriteString(" DISTINCT")
	}
	items := make([]string, len(q.Select.Items))
	for i, item := range q.Select.Items {
		items[i] = p.push().selectItem(item)
	}
	b.WriteString(p.sep(1) + strings.Join(items, ","+p.sep(1)))

	if len(q.From) > 0 {
		rels := make([]string, len(q.From))
		for i, r := range q.From {
			rels[i] = p.push().relation(r, false)
		}
		b.WriteString(p.sep(0) + "FROM" + p.sep(1) + strings.Join(rels, ","+p.sep(1)))
	}
	if q.Where != nil {
		b.WriteString(p.sep(0) + "WHERE" + p.sep(1) + p.push().expr(q.Where))
	}
	if len(q.GroupBy) > 0 {
		keys := make([]string, len(q.GroupBy))
		for i, g := range q.GroupBy {
			keys[i] = p.push().expr(g)
		}
		b.WriteString(p.sep(0) + "GROUP BY" + p.sep(1) + strings.Join(keys, ","+p.sep(1)))
	}
	if q.Having != nil {
		b.WriteString(p.sep(0) + "HAVING" + p.sep(1) + p.push().expr(q.Having))
	}
	if len(q.OrderBy) > 0 {
		b.WriteString(p.orderBy(q.OrderBy))
	}
	b.WriteString(p.limit(q.Limit, q.Offset))
	return b.String()
}

func (p printer) orderBy(items []SortItem) string {
	keys := make([]string, len(items))
	for i, s := range items {
		keys[i] = p.sortItem(s)
	}
	return p.sep(0) + "ORDER BY" + p.sep(1) + strings.Join(keys, ","+p.sep(1))
}

func (p printer) sortItem(s SortItem) string {
	out := p.push().expr(s.Key)
	if s.Descending {
		out += " DESC"
	}
	return out
}

func (p printer) limit(limit, offset *int64) string {
	var out string
	if limit != nil {
		out += p.sep(0) + "LIMIT " + strconv.FormatInt(*limit, 10)
	}
	if offset != nil {
		out += p.sep(0) + "OFFSET " + strconv.FormatInt(*offset, 10)
	}
	return out
}

func (p printer) selectItem(item SelectItem) string {
	switch item := item.(type) {
	case *AllColumns:
		if item.Prefix != "" {
			return p.ident(item.Prefix) + ".*"
		}
		return "*"
	case *SingleColumn:
		out := p.expr(item.Expr)
		if item.Alias != "" {
			out += " AS " + p.ident(item.Alias)
		}
		return out
	default:
		panic(fmt.Sprintf("sqlast: unsupported select item %T", item))
	}
}

func (p printer) relation(r Relation, nested bool) string {
	switch r := r.(type) {
	case *Table:
		return p.qualifiedName(r.Name)
	case *AliasedRelation:
		return p.relation(r.Relation, nested) + " AS " + p.ident(r.Alias)
	case *QuerySpec:
		return p.querySpec(r, nested)
	case *TableSubquery:
		return p.query(r.Query, true)
	case *Join:
		return p.join(r)
	case *TableFunction:
		return p.functionCall(r.Call)
	case *Union:
		if nested {
			return "(" + p.sep(1) + p.push().relation(r, false) + p.sep(0) + ")"
		}
		op := "UNION ALL"
		if r.Distinct {
			op = "UNION"
		}
		return p.relation(r.Left, false) + p.sep(0) + op + p.sep(0) + p.relation(r.Right, false)
	default:
		panic(fmt.Sprintf("sqlast: unsupported relation %T", r))
	}
}

func (p printer) join(j *Join) string {
	left := p.relation(j.Left, false)
	right := p.push().relation(j.Right, false)
	var cond string
	if j.On != nil {
		on := p.expr(j.On)
		if strings.HasPrefix(on, "(") && strings.HasSuffix(on, ")") {
			on = on[1 : len(on)-1]
		}
		cond = "ON (" + on + ")"
	}
	return left + p.sep(0) + j.Type.String() + p.sep(1) + right + p.sep(1) + cond
}

func (p printer) functionCall(f *FunctionCall) string {
	name := p.qualifiedName(f.Name)
	if len(f.Args) == 0 {
		return name + "()"
	}
	args := make([]string, len(f.Args))
	for i, a := range f.Args {
		args[i] = p.push().expr(a)
	}
	return name + "(" + p.sep(1) + strings.Join(args, ","+p.sep(1)) + p.sep(0) + ")"
}

func (p printer) exprs(es []Expression) string {
	out := make([]string, len(es))
	for i, e := range es {
		out[i] = p.expr(e)
	}
	return strings.Join(out, ", ")
}

func (p printer) expr(e Expression) string {
	switch e := e.(type) {
	case *IntegerLiteral:
		return strconv.FormatInt(e.Value, 10)
	case *DoubleLiteral:
		return common.FormatFloat(e.Value)
	case *BooleanLiteral:
		if e.Value {
			return "true"
		}
		return "false"
	case *StringLiteral:
		return common.QuoteSQLString(e.Value)
	case *DecimalLiteral:
		return e.Value.String()
	case *NullLiteral:
		return "null"
	case *ColumnRef:
		return p.qualifiedName(e.Name)
	case *Comparison:
		return "(" + p.expr(e.Left) + " " + string(e.Op) + " " + p.expr(e.Right) + ")"
	case *Logical:
		return "(" + p.expr(e.Left) + " " + string(e.Op) + " " + p.expr(e.Right) + ")"
	case *Not:
		switch e.Value.(type) {
		case *Logical, *Comparison:
			return "NOT" + p.expr(e.Value)
		}
		return "NOT(" + p.expr(e.Value) + ")"
	case *Arithmetic:
		l, r := p.expr(e.Left), p.expr(e.Right)
		switch e.Op {
		case Divide:
			return "((1.0 * " + l + ") / " + r + ")"
		case Modulus:
			return "MOD(" + l + ", " + r + ")"
		}
		return "(" + l + " " + string(e.Op) + " " + r + ")"
	case *Negative:
		switch e.Value.(type) {
		case *IntegerLiteral, *DoubleLiteral:
			return "-" + p.expr(e.Value)
		}
		return "(0 - " + p.expr(e.Value) + ")"
	case *Case:
		whens := make([]string, len(e.Whens))
		for i := range e.Whens {
			whens[i] = p.push().expr(&e.Whens[i])
		}
		out := "CASE" + p.sep(1) + strings.Join(whens, p.sep(1))
		if e.Else != nil {
			out += p.sep(1) + "ELSE" + p.sep(2) + p.push().push().expr(e.Else)
		}
		return out + p.sep(0) + "END"
	case *When:
		return "WHEN" + p.sep(1) + p.push().expr(e.Condition) + p.sep(0) + "THEN" + p.sep(1) + p.push().expr(e.Result)
	case *Cast:
		return "CAST(" + p.expr(e.Value) + " AS " + e.Type + ")"
	case *IsNull:
		return "(" + p.expr(e.Value) + " IS NULL)"
	case *IsNotNull:
		return "(" + p.expr(e.Value) + " IS NOT NULL)"
	case *Like:
		return "(" + p.expr(e.Value) + " LIKE " + p.expr(e.Pattern) + ")"
	case *CurrentTime:
		if e.Kind == CurrentTimestamp {
			return "CURRENT_TIMESTAMP"
		}
		return "CURRENT_DATE"
	case *Call:
		if e.Distinct {
			return e.Name + "(DISTINCT " + p.exprs(e.Args) + ")"
		}
		return e.Name + "(" + p.exprs(e.Args) + ")"
	case *Windowed:
		return p.expr(e.Func) + " " + p.window(e)
	case *FunctionCall:
		return p.functionCall(e)
	case *NamedArgument:
		return e.Name + " => " + p.expr(e.Value)
	default:
		panic(fmt.Sprintf("sqlast: unsupported expression %T", e))
	}
}

func (p printer) window(w *Windowed) string {
	var parts []string
	if len(w.PartitionBy) > 0 {
		parts = append(parts, "PARTITION BY "+p.exprs(w.PartitionBy))
	}
	if len(w.OrderBy) > 0 {
		keys := make([]string, len(w.OrderBy))
		for i, s := range w.OrderBy {
			keys[i] = p.sortItem(s)
		}
		parts = append(parts, "ORDER BY "+strings.Join(keys, ", "))
	}
	return "OVER (" + strings.Join(parts, " ") + ")"
}
