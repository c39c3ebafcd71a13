// Package sqlplan lowers frame IR into the SQL syntax tree of package sqlast.
//
// Every frame step either rewrites the query produced by its child in place or
// wraps that query in a sub-query aliased "root" and continues on the outer
// SELECT. Column references are resolved against the SELECT list of the query
// being extended, so a computed column is inlined wherever it is referenced. A
// column computed by a window function is read from a wrapped sub-query instead.
package sqlplan

import (
	"context"
	"fmt"

	"github.com/paveg/tdsframe/internal/common"
	"github.com/paveg/tdsframe/internal/errors"
	"github.com/paveg/tdsframe/internal/expr"
	"github.com/paveg/tdsframe/internal/frame"
	"github.com/paveg/tdsframe/internal/sqlast"
	"go.uber.org/zap"
)

// Aliases of the relations the planner introduces.
const (
	RootAlias  = "root"
	LeftAlias  = "left"
	RightAlias = "right"
)

// Options configure SQL generation.
type Options struct {
	// Pretty renders one clause per line.
	Pretty bool
	// QuoteAllIdentifiers quotes every identifier of the output.
	QuoteAllIdentifiers bool
	// Logger receives a debug entry per frame step. Nil disables logging.
	Logger *zap.Logger
}

func (o Options) format() sqlast.Options {
	return sqlast.Options{Pretty: o.Pretty, QuoteAllIdentifiers: o.QuoteAllIdentifiers}
}

// Translator lowers frames into SQL query specifications.
type Translator struct {
	logger *zap.Logger
}

// NewTranslator creates a translator logging to logger.
func NewTranslator(logger *zap.Logger) *Translator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Translator{logger: logger}
}

// Plan lowers f into a query specification.
func Plan(ctx context.Context, f frame.Frame, opts Options) (*sqlast.QuerySpec, error) {
	return NewTranslator(opts.Logger).Translate(ctx, f)
}

// Generate lowers f and renders the result as SQL text.
func Generate(ctx context.Context, f frame.Frame, opts Options) (string, error) {
	q, err := Plan(ctx, f, opts)
	if err != nil {
		return "", err
	}
	return sqlast.Format(q, opts.format()), nil
}

// ServiceProbe renders the query that selects every column of a service call.
// The engine answers it with the schema of the service result.
func ServiceProbe(ctx context.Context, pattern string, coordinates frame.ProjectCoordinates, opts Options) (string, error) {
	probe, err := frame.ProbeServiceCall(pattern, coordinates)
	if err != nil {
		return "", err
	}
	return Generate(ctx, probe, opts)
}

// ResolveService creates a service call whose columns are answered by fetcher for
// the probe query of the service.
func ResolveService(ctx context.Context, pattern string, coordinates frame.ProjectCoordinates,
	fetcher frame.SchemaFetcher, opts Options, serviceOpts ...frame.ServiceOption) (*frame.ServiceCall, error) {
	probe, err := ServiceProbe(ctx, pattern, coordinates, opts)
	if err != nil {
		return nil, err
	}
	columns, err := fetcher.FetchSchema(ctx, probe)
	if err != nil {
		return nil, fmt.Errorf("fetching schema of service %s: %w", pattern, err)
	}
	return frame.NewServiceCall(pattern, coordinates, columns, serviceOpts...)
}

// Translate lowers f into a query specification.
func (t *Translator) Translate(ctx context.Context, f frame.Frame) (*sqlast.QuerySpec, error) {
	return t.translate(ctx, f, 0)
}

func (t *Translator) translate(ctx context.Context, f frame.Frame, depth int) (*sqlast.QuerySpec, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.NewCancelledError(f.Op().String(), err)
	}
	t.logger.Debug("lowering frame", zap.String("op", f.Op().String()), zap.Int("depth", depth))

	switch f := f.(type) {
	case *frame.TableSpec:
		return t.translateTableSpec(f), nil
	case *frame.ServiceCall:
		return t.translateServiceCall(f), nil
	case *frame.CsvInline:
		return t.translateCsvInline(f), nil
	case *frame.Join:
		return t.translateJoin(ctx, f, depth)
	case *frame.Concatenate:
		return t.translateConcatenate(ctx, f, depth)
	case *frame.Shift:
		return nil, errors.NewUnsupportedError(f.Op().String(),
			"SQL generation is not supported for the shift function. Use the Pure target instead")
	}

	unary, ok := f.(interface{ Child() frame.Frame })
	if !ok {
		return nil, errors.NewUnsupportedError(f.Op().String(), "Cannot generate SQL for frame operation "+f.Op().String())
	}
	base, err := t.translate(ctx, unary.Child(), depth+1)
	if err != nil {
		return nil, err
	}

	switch f := f.(type) {
	case *frame.Restrict:
		return t.translateRestrict(base, f), nil
	case *frame.Rename:
		return t.translateRename(base, f), nil
	case *frame.Sort:
		return t.translateSort(base, f)
	case *frame.Limit:
		return t.translateLimit(base, f), nil
	case *frame.Drop:
		return t.translateDrop(base, f), nil
	case *frame.Slice:
		return t.translateSlice(base, f), nil
	case *frame.Distinct:
		return t.translateDistinct(base), nil
	case *frame.Filter:
		return t.translateFilter(base, f)
	case *frame.Extend:
		return t.translateExtend(base, f)
	case *frame.GroupBy:
		return t.translateGroupBy(base, f)
	default:
		return nil, errors.NewUnsupportedError(f.Op().String(), "Cannot generate SQL for frame operation "+f.Op().String())
	}
}

// columnPart renders a base table column name as the last part of a qualified
// reference.
func columnPart(name string) string {
	if common.IsIdentifier(name) {
		return name
	}
	return common.QuoteIdentifier(name)
}

func rootRelation(r sqlast.Relation) *sqlast.AliasedRelation {
	return &sqlast.AliasedRelation{Relation: r, Alias: common.QuoteIdentifier(RootAlias)}
}

func (t *Translator) translateTableSpec(f *frame.TableSpec) *sqlast.QuerySpec {
	root := common.QuoteIdentifier(RootAlias)
	items := make([]sqlast.SelectItem, 0, f.Schema().Len())
	for _, c := range f.Schema().Columns() {
		items = append(items, &sqlast.SingleColumn{
			Expr:  sqlast.Column(root, columnPart(c.Name)),
			Alias: common.QuoteIdentifier(c.Name),
		})
	}
	return &sqlast.QuerySpec{
		Select: sqlast.Select{Items: items},
		From:   []sqlast.Relation{rootRelation(&sqlast.Table{Name: sqlast.QualifiedName(f.Path())})},
	}
}

// quotedItems selects every schema column from the root relation through a
// quoted column name.
func quotedItems(f frame.Frame) []sqlast.SelectItem {
	root := common.QuoteIdentifier(RootAlias)
	items := make([]sqlast.SelectItem, 0, f.Schema().Len())
	for _, c := range f.Schema().Columns() {
		quoted := common.QuoteIdentifier(c.Name)
		items = append(items, &sqlast.SingleColumn{Expr: sqlast.Column(root, quoted), Alias: quoted})
	}
	return items
}

func (t *Translator) translateServiceCall(f *frame.ServiceCall) *sqlast.QuerySpec {
	args := []sqlast.Expression{
		&sqlast.NamedArgument{Name: "pattern", Value: &sqlast.StringLiteral{Value: f.Pattern()}},
	}
	for _, p := range f.Coordinates().Params() {
		args = append(args, &sqlast.NamedArgument{Name: p.Name, Value: &sqlast.StringLiteral{Value: p.Value}})
	}
	var items []sqlast.SelectItem
	if f.Initialized() {
		items = quotedItems(f)
	} else {
		items = []sqlast.SelectItem{&sqlast.AllColumns{Prefix: common.QuoteIdentifier(RootAlias)}}
	}
	call := &sqlast.FunctionCall{Name: sqlast.QualifiedName{"service"}, Args: args}
	return &sqlast.QuerySpec{
		Select: sqlast.Select{Items: items},
		From:   []sqlast.Relation{rootRelation(&sqlast.TableFunction{Call: call})},
	}
}

func (t *Translator) translateCsvInline(f *frame.CsvInline) *sqlast.QuerySpec {
	call := &sqlast.FunctionCall{
		Name: sqlast.QualifiedName{"CSV"},
		Args: []sqlast.Expression{&sqlast.StringLiteral{Value: f.CSV()}},
	}
	return &sqlast.QuerySpec{
		Select: sqlast.Select{Items: quotedItems(f)},
		From:   []sqlast.Relation{rootRelation(&sqlast.TableFunction{Call: call})},
	}
}

// wrap returns a query selecting the retained columns of q, in retain order,
// from q as a sub-query aliased "root". An empty retain list keeps every column.
func (t *Translator) wrap(q *sqlast.QuerySpec, reason string, retain ...string) *sqlast.QuerySpec {
	t.logger.Debug("wrapping query in sub-query", zap.String("reason", reason))
	root := common.QuoteIdentifier(RootAlias)
	var aliases []string
	if len(retain) == 0 {
		aliases = itemAliases(q)
	} else {
		for _, name := range retain {
			aliases = append(aliases, common.QuoteIdentifier(name))
		}
	}
	items := make([]sqlast.SelectItem, len(aliases))
	names := make([]string, len(aliases))
	for i, alias := range aliases {
		items[i] = &sqlast.SingleColumn{Expr: sqlast.Column(root, alias), Alias: alias}
		names[i] = alias
	}
	return &sqlast.QuerySpec{
		Select: sqlast.Select{Items: items},
		From: []sqlast.Relation{&sqlast.AliasedRelation{
			Relation:    &sqlast.TableSubquery{Query: &sqlast.Query{Body: q}},
			Alias:       root,
			ColumnNames: names,
		}},
	}
}

func itemAliases(q *sqlast.QuerySpec) []string {
	out := make([]string, 0, len(q.Select.Items))
	for _, item := range q.Select.Items {
		if c, ok := item.(*sqlast.SingleColumn); ok {
			out = append(out, c.Alias)
		}
	}
	return out
}

// findItem returns the SELECT item aliased as the quoted column name.
func findItem(q *sqlast.QuerySpec, name string) (*sqlast.SingleColumn, bool) {
	alias := common.QuoteIdentifier(name)
	for _, item := range q.Select.Items {
		if c, ok := item.(*sqlast.SingleColumn); ok && c.Alias == alias {
			return c, true
		}
	}
	return nil, false
}

func itemExpr(q *sqlast.QuerySpec, op, name string) (sqlast.Expression, error) {
	item, ok := findItem(q, name)
	if !ok {
		return nil, errors.NewValidationErrorf(op, "Cannot find column: %s in query: %s", name, q.String())
	}
	return item.Expr, nil
}

// wrapReason names the first clause of q found among the flagged ones. An empty
// result means q can be extended in place.
func wrapReason(q *sqlast.QuerySpec, clauses clause) string {
	switch {
	case clauses&clauseDistinct != 0 && q.Select.Distinct:
		return "distinct"
	case clauses&clauseGroupBy != 0 && len(q.GroupBy) > 0:
		return "group by"
	case clauses&clauseHaving != 0 && q.Having != nil:
		return "having"
	case clauses&clauseOrderBy != 0 && len(q.OrderBy) > 0:
		return "order by"
	case clauses&clauseLimit != 0 && q.HasLimit():
		return "limit"
	case clauses&clauseOffset != 0 && q.HasOffset():
		return "offset"
	}
	return ""
}

// clause flags the query clauses that force a frame step to wrap its child.
type clause uint8

const (
	clauseDistinct clause = 1 << iota
	clauseGroupBy
	clauseHaving
	clauseOrderBy
	clauseLimit
	clauseOffset

	clauseAll = clauseDistinct | clauseGroupBy | clauseHaving | clauseOrderBy | clauseLimit | clauseOffset
)

func (t *Translator) translateRestrict(base *sqlast.QuerySpec, f *frame.Restrict) *sqlast.QuerySpec {
	if reason := wrapReason(base, clauseAll); reason != "" {
		return t.wrap(base, reason, f.Columns()...)
	}
	q := copyQuery(base)
	items := make([]sqlast.SelectItem, 0, len(f.Columns()))
	for _, name := range f.Columns() {
		if item, ok := findItem(base, name); ok {
			items = append(items, item)
		}
	}
	q.Select.Items = items
	return q
}

func (t *Translator) translateRename(base *sqlast.QuerySpec, f *frame.Rename) *sqlast.QuerySpec {
	q := copyQuery(base)
	renames := make(map[string]string, len(f.Pairs()))
	for _, p := range f.Pairs() {
		renames[common.QuoteIdentifier(p.From)] = common.QuoteIdentifier(p.To)
	}
	items := make([]sqlast.SelectItem, len(q.Select.Items))
	for i, item := range q.Select.Items {
		if c, ok := item.(*sqlast.SingleColumn); ok {
			if to, found := renames[c.Alias]; found {
				item = &sqlast.SingleColumn{Expr: c.Expr, Alias: to}
			}
		}
		items[i] = item
	}
	q.Select.Items = items
	return q
}

func (t *Translator) translateSort(base *sqlast.QuerySpec, f *frame.Sort) (*sqlast.QuerySpec, error) {
	q := t.wrapOrCopy(base, clauseOrderBy|clauseLimit|clauseOffset)
	keys := f.Keys()
	order := make([]sqlast.SortItem, len(keys))
	for i, k := range keys {
		e, err := itemExpr(q, f.Op().String(), k.Column)
		if err != nil {
			return nil, err
		}
		order[i] = sqlast.SortItem{Key: e, Descending: k.Direction == frame.Descending}
	}
	q.OrderBy = order
	return q, nil
}

func (t *Translator) translateLimit(base *sqlast.QuerySpec, f *frame.Limit) *sqlast.QuerySpec {
	q := t.wrapOrCopy(base, clauseLimit)
	q.Limit = sqlast.Int(int64(f.N()))
	return q
}

func (t *Translator) translateDrop(base *sqlast.QuerySpec, f *frame.Drop) *sqlast.QuerySpec {
	q := t.wrapOrCopy(base, clauseLimit|clauseOffset)
	q.Offset = sqlast.Int(int64(f.N()))
	return q
}

func (t *Translator) translateSlice(base *sqlast.QuerySpec, f *frame.Slice) *sqlast.QuerySpec {
	q := t.wrapOrCopy(base, clauseLimit|clauseOffset)
	q.Offset = sqlast.Int(int64(f.Start()))
	q.Limit = sqlast.Int(int64(f.End() - f.Start()))
	return q
}

func (t *Translator) translateDistinct(base *sqlast.QuerySpec) *sqlast.QuerySpec {
	q := t.wrapOrCopy(base, clauseLimit|clauseOffset)
	q.Select.Distinct = true
	return q
}

func (t *Translator) wrapOrCopy(base *sqlast.QuerySpec, clauses clause) *sqlast.QuerySpec {
	if reason := wrapReason(base, clauses); reason != "" {
		return t.wrap(base, reason)
	}
	return copyQuery(base)
}

// readsWindow reports whether a SELECT item of q the names refer to applies a
// window function. Such an item cannot be inlined into WHERE, GROUP BY or the
// operands of another window.
func readsWindow(q *sqlast.QuerySpec, names []string) bool {
	for _, name := range names {
		if item, ok := findItem(q, name); ok && sqlast.ContainsWindow(item.Expr) {
			return true
		}
	}
	return false
}

func (t *Translator) wrapWindowed(q *sqlast.QuerySpec, names []string) *sqlast.QuerySpec {
	if readsWindow(q, names) {
		return t.wrap(q, "window")
	}
	return q
}

func (t *Translator) translateFilter(base *sqlast.QuerySpec, f *frame.Filter) (*sqlast.QuerySpec, error) {
	q := t.wrapOrCopy(base, clauseGroupBy|clauseHaving|clauseLimit|clauseOffset)
	q = t.wrapWindowed(q, expr.ColumnNames(f.Predicate()))
	cond, err := newLowering(f.Op().String(), rowResolver(q, f.Op().String())).lower(f.Predicate())
	if err != nil {
		return nil, err
	}
	if q.Where != nil {
		cond = &sqlast.Logical{Op: sqlast.And, Left: q.Where, Right: cond}
	}
	q.Where = cond
	return q, nil
}

func (t *Translator) translateExtend(base *sqlast.QuerySpec, f *frame.Extend) (*sqlast.QuerySpec, error) {
	q := t.wrapOrCopy(base, clauseDistinct|clauseGroupBy|clauseHaving|clauseLimit|clauseOffset)
	var windowReads []string
	for _, c := range f.Columns() {
		if expr.ContainsWindow(c.Expr) {
			windowReads = append(windowReads, expr.ColumnNames(c.Expr)...)
		}
	}
	q = t.wrapWindowed(q, windowReads)
	l := newLowering(f.Op().String(), rowResolver(q, f.Op().String()))
	items := append([]sqlast.SelectItem(nil), q.Select.Items...)
	for _, c := range f.Columns() {
		e, err := l.lower(c.Expr)
		if err != nil {
			return nil, err
		}
		items = append(items, &sqlast.SingleColumn{Expr: e, Alias: common.QuoteIdentifier(c.Name)})
	}
	q.Select.Items = items
	return q, nil
}

func (t *Translator) translateGroupBy(base *sqlast.QuerySpec, f *frame.GroupBy) (*sqlast.QuerySpec, error) {
	op := f.Op().String()
	q := t.wrapOrCopy(base, clauseAll)
	reads := f.Keys()
	for _, a := range f.Aggregates() {
		reads = append(reads, expr.ColumnNames(a.Expr)...)
	}
	q = t.wrapWindowed(q, reads)
	items := make([]sqlast.SelectItem, 0, len(f.Keys())+len(f.Aggregates()))
	groupBy := make([]sqlast.Expression, 0, len(f.Keys()))
	for _, k := range f.Keys() {
		item, ok := findItem(q, k)
		if !ok {
			return nil, errors.NewValidationErrorf(op, "Cannot find column: %s in query: %s", k, q.String())
		}
		items = append(items, item)
		groupBy = append(groupBy, item.Expr)
	}
	l := newLowering(op, rowResolver(q, op))
	for _, a := range f.Aggregates() {
		e, err := l.lower(a.Expr)
		if err != nil {
			return nil, err
		}
		items = append(items, &sqlast.SingleColumn{Expr: e, Alias: common.QuoteIdentifier(a.Name)})
	}
	q.Select.Items = items
	q.GroupBy = groupBy
	return q, nil
}

// subquery aliases q as a relation named alias.
func subquery(q *sqlast.QuerySpec, alias string) *sqlast.AliasedRelation {
	return &sqlast.AliasedRelation{
		Relation: &sqlast.TableSubquery{Query: &sqlast.Query{Body: q}},
		Alias:    common.QuoteIdentifier(alias),
	}
}

func (t *Translator) translateJoin(ctx context.Context, f *frame.Join, depth int) (*sqlast.QuerySpec, error) {
	left, err := t.translate(ctx, f.Left(), depth+1)
	if err != nil {
		return nil, err
	}
	right, err := t.translate(ctx, f.Right(), depth+1)
	if err != nil {
		return nil, err
	}

	leftAlias, rightAlias := common.QuoteIdentifier(LeftAlias), common.QuoteIdentifier(RightAlias)
	cond, err := newLowering(f.Op().String(), joinResolver(leftAlias, rightAlias)).lower(f.Condition())
	if err != nil {
		return nil, err
	}

	shared := make(map[string]bool, len(f.SharedKeys()))
	for _, k := range f.SharedKeys() {
		shared[k] = true
	}
	leftSchema := f.Left().Schema()
	items := make([]sqlast.SelectItem, 0, f.Schema().Len())
	for _, c := range f.Schema().Columns() {
		source := rightAlias
		switch {
		case shared[c.Name] && f.Kind() == frame.JoinRightOuter:
			source = rightAlias
		case leftSchema.Has(c.Name):
			source = leftAlias
		}
		quoted := common.QuoteIdentifier(c.Name)
		items = append(items, &sqlast.SingleColumn{Expr: sqlast.Column(source, quoted), Alias: quoted})
	}

	joined := &sqlast.QuerySpec{
		Select: sqlast.Select{Items: items},
		From: []sqlast.Relation{&sqlast.Join{
			Type:  joinType(f.Kind()),
			Left:  subquery(left, LeftAlias),
			Right: subquery(right, RightAlias),
			On:    cond,
		}},
	}
	return t.wrap(joined, "join"), nil
}

func joinType(k frame.JoinKind) sqlast.JoinType {
	switch k {
	case frame.JoinLeftOuter:
		return sqlast.LeftJoin
	case frame.JoinRightOuter:
		return sqlast.RightJoin
	default:
		return sqlast.InnerJoin
	}
}

func (t *Translator) translateConcatenate(ctx context.Context, f *frame.Concatenate, depth int) (*sqlast.QuerySpec, error) {
	left, err := t.translate(ctx, f.Left(), depth+1)
	if err != nil {
		return nil, err
	}
	right, err := t.translate(ctx, f.Right(), depth+1)
	if err != nil {
		return nil, err
	}
	// A union member cannot carry its own ORDER BY, LIMIT or OFFSET.
	bounded := clauseOrderBy | clauseLimit | clauseOffset
	if reason := wrapReason(left, bounded); reason != "" {
		left = t.wrap(left, reason)
	}
	if reason := wrapReason(right, bounded); reason != "" {
		right = t.wrap(right, reason)
	}

	root := common.QuoteIdentifier(RootAlias)
	names := f.Schema().Names()
	items := make([]sqlast.SelectItem, len(names))
	aliases := make([]string, len(names))
	for i, name := range names {
		quoted := common.QuoteIdentifier(name)
		items[i] = &sqlast.SingleColumn{Expr: sqlast.Column(root, quoted), Alias: quoted}
		aliases[i] = quoted
	}
	union := &sqlast.Union{Left: left, Right: right}
	return &sqlast.QuerySpec{
		Select: sqlast.Select{Items: items},
		From: []sqlast.Relation{&sqlast.AliasedRelation{
			Relation:    &sqlast.TableSubquery{Query: &sqlast.Query{Body: union}},
			Alias:       root,
			ColumnNames: aliases,
		}},
	}, nil
}

// copyQuery returns a shallow copy of q whose clause slices may be replaced
// without affecting q.
func copyQuery(q *sqlast.QuerySpec) *sqlast.QuerySpec {
	c := *q
	c.Select.Items = append([]sqlast.SelectItem(nil), q.Select.Items...)
	c.From = append([]sqlast.Relation(nil), q.From...)
	c.GroupBy = append([]sqlast.Expression(nil), q.GroupBy...)
	c.OrderBy = append([]sqlast.SortItem(nil), q.OrderBy...)
	return &c
}

