// Package sqlast provides the SQL syntax tree produced by the SQL planner and the
// formatter that renders it in pretty or compact form.
package sqlast

import "github.com/shopspring/decimal"

// Node is any node of the SQL syntax tree.
type Node interface {
	sqlNode()
}

// Expression is a scalar or aggregate value expression.
type Expression interface {
	Node
	expression()
}

// Relation is anything that can appear in a FROM clause.
type Relation interface {
	Node
	relation()
}

// QueryBody is a relation that can be the body of a query, a query specification
// or a set operation.
type QueryBody interface {
	Relation
	queryBody()
}

// SelectItem is an entry of a SELECT list.
type SelectItem interface {
	Node
	selectItem()
}

// QualifiedName is a dot separated name. Parts may already carry identifier quotes.
type QualifiedName []string

// QuerySpec is a single SELECT block.
type QuerySpec struct {
	Select  Select
	From    []Relation
	Where   Expression
	GroupBy []Expression
	Having  Expression
	OrderBy []SortItem
	Limit   *int64
	Offset  *int64
}

// HasLimit reports whether a LIMIT is set.
func (q *QuerySpec) HasLimit() bool { return q.Limit != nil }

// HasOffset reports whether an OFFSET is set.
func (q *QuerySpec) HasOffset() bool { return q.Offset != nil }

// String renders the query in compact form.
func (q *QuerySpec) String() string { return Format(q, Options{}) }

// Select is the SELECT list of a query specification.
type Select struct {
	Distinct bool
	Items    []SelectItem
}

// SingleColumn is an expression with an optional alias.
type SingleColumn struct {
	Expr  Expression
	Alias string
}

// AllColumns is "*" or "prefix.*".
type AllColumns struct {
	Prefix string
}

// SortItem is an ORDER BY key.
type SortItem struct {
	Key        Expression
	Descending bool
}

// Query wraps a query body with its own ordering and row limits.
type Query struct {
	Body    QueryBody
	OrderBy []SortItem
	Limit   *int64
	Offset  *int64
}

// String renders the query in compact form.
func (q *Query) String() string { return Format(q, Options{}) }

// Table is a named table.
type Table struct {
	Name QualifiedName
}

// AliasedRelation names a relation and, optionally, its columns.
type AliasedRelation struct {
	Relation    Relation
	Alias       string
	ColumnNames []string
}

// TableSubquery is a parenthesized query used as a relation.
type TableSubquery struct {
	Query *Query
}

// JoinType represents the kind of join.
type JoinType int

const (
	InnerJoin JoinType = iota
	LeftJoin
	RightJoin
)

func (jt JoinType) String() string {
	switch jt {
	case LeftJoin:
		return "LEFT OUTER JOIN"
	case RightJoin:
		return "RIGHT OUTER JOIN"
	default:
		return "INNER JOIN"
	}
}

// Join combines two relations on a condition.
type Join struct {
	Type  JoinType
	Left  Relation
	Right Relation
	On    Expression
}

// Union is a set union of two query bodies. Distinct false means UNION ALL.
type Union struct {
	Left     QueryBody
	Right    QueryBody
	Distinct bool
}

// TableFunction is a function call used as a relation.
type TableFunction struct {
	Call *FunctionCall
}

// FunctionCall is a call whose arguments are laid out one per line in pretty form.
// It is used for table functions such as service(...).
type FunctionCall struct {
	Name QualifiedName
	Args []Expression
}

// NamedArgument is a "name => value" function argument.
type NamedArgument struct {
	Name  string
	Value Expression
}

// Call is an inline scalar or aggregate function call, NAME(a, b).
type Call struct {
	Name     string
	Args     []Expression
	Distinct bool
}

// Windowed applies a window function over a partitioned and ordered window.
type Windowed struct {
	Func        *Call
	PartitionBy []Expression
	OrderBy     []SortItem
}

// ColumnRef references a column by qualified name.
type ColumnRef struct {
	Name QualifiedName
}

// Literals
type (
	IntegerLiteral struct{ Value int64 }
	DoubleLiteral  struct{ Value float64 }
	BooleanLiteral struct{ Value bool }
	StringLiteral  struct{ Value string }
	DecimalLiteral struct{ Value decimal.Decimal }
	NullLiteral    struct{}
)

// ComparisonOp is a comparison operator.
type ComparisonOp string

const (
	Equal          ComparisonOp = "="
	NotEqual       ComparisonOp = "<>"
	GreaterThan    ComparisonOp = ">"
	GreaterOrEqual ComparisonOp = ">="
	LessThan       ComparisonOp = "<"
	LessOrEqual    ComparisonOp = "<="
)

// Comparison compares two expressions.
type Comparison struct {
	Op    ComparisonOp
	Left  Expression
	Right Expression
}

// LogicalOp is AND or OR.
type LogicalOp string

const (
	And LogicalOp = "AND"
	Or  LogicalOp = "OR"
)

// Logical combines two Boolean expressions.
type Logical struct {
	Op    LogicalOp
	Left  Expression
	Right Expression
}

// Not negates a Boolean expression.
type Not struct {
	Value Expression
}

// ArithmeticOp is a binary numeric operator.
type ArithmeticOp string

const (
	Add      ArithmeticOp = "+"
	Subtract ArithmeticOp = "-"
	Multiply ArithmeticOp = "*"
	Divide   ArithmeticOp = "/"
	Modulus  ArithmeticOp = "%"
)

// Arithmetic applies a numeric operator.
type Arithmetic struct {
	Op    ArithmeticOp
	Left  Expression
	Right Expression
}

// Negative negates a numeric expression.
type Negative struct {
	Value Expression
}

// When is one branch of a searched CASE.
type When struct {
	Condition Expression
	Result    Expression
}

// Case is a searched CASE expression. Else may be nil.
type Case struct {
	Whens []When
	Else  Expression
}

// Cast converts a value to a SQL type, e.g. "DATE" or "DOUBLE PRECISION".
type Cast struct {
	Value Expression
	Type  string
}

// IsNull tests for null.
type IsNull struct {
	Value Expression
}

// IsNotNull tests for a non-null value.
type IsNotNull struct {
	Value Expression
}

// Like matches a string against a pattern.
type Like struct {
	Value   Expression
	Pattern Expression
}

// CurrentTimeKind selects CURRENT_DATE or CURRENT_TIMESTAMP.
type CurrentTimeKind int

const (
	CurrentDate CurrentTimeKind = iota
	CurrentTimestamp
)

// CurrentTime is the current date or timestamp.
type CurrentTime struct {
	Kind CurrentTimeKind
}

func (*QuerySpec) sqlNode()       {}
func (*SingleColumn) sqlNode()    {}
func (*AllColumns) sqlNode()      {}
func (*Query) sqlNode()           {}
func (*Table) sqlNode()           {}
func (*AliasedRelation) sqlNode() {}
func (*TableSubquery) sqlNode()   {}
func (*Join) sqlNode()            {}
func (*Union) sqlNode()           {}
func (*TableFunction) sqlNode()   {}
func (*FunctionCall) sqlNode()    {}
func (*NamedArgument) sqlNode()   {}
func (*Call) sqlNode()            {}
func (*Windowed) sqlNode()        {}
func (*ColumnRef) sqlNode()       {}
func (*IntegerLiteral) sqlNode()  {}
func (*DoubleLiteral) sqlNode()   {}
func (*BooleanLiteral) sqlNode()  {}
func (*StringLiteral) sqlNode()   {}
func (*DecimalLiteral) sqlNode()  {}
func (*NullLiteral) sqlNode()     {}
func (*Comparison) sqlNode()      {}
func (*Logical) sqlNode()         {}
func (*Not) sqlNode()             {}
func (*Arithmetic) sqlNode()      {}
func (*Negative) sqlNode()        {}
func (*When) sqlNode()            {}
func (*Case) sqlNode()            {}
func (*Cast) sqlNode()            {}
func (*IsNull) sqlNode()          {}
func (*IsNotNull) sqlNode()       {}
func (*Like) sqlNode()            {}
func (*CurrentTime) sqlNode()     {}

func (*QuerySpec) relation()       {}
func (*Table) relation()           {}
func (*AliasedRelation) relation() {}
func (*TableSubquery) relation()   {}
func (*Join) relation()            {}
func (*Union) relation()           {}
func (*TableFunction) relation()   {}

func (*QuerySpec) queryBody() {}
func (*Union) queryBody()     {}

func (*SingleColumn) selectItem() {}
func (*AllColumns) selectItem()   {}

func (*FunctionCall) expression()   {}
func (*NamedArgument) expression()  {}
func (*Call) expression()           {}
func (*Windowed) expression()       {}
func (*ColumnRef) expression()      {}
func (*IntegerLiteral) expression() {}
func (*DoubleLiteral) expression()  {}
func (*BooleanLiteral) expression() {}
func (*StringLiteral) expression()  {}
func (*DecimalLiteral) expression() {}
func (*NullLiteral) expression()    {}
func (*Comparison) expression()     {}
func (*Logical) expression()        {}
func (*Not) expression()            {}
func (*Arithmetic) expression()     {}
func (*Negative) expression()       {}
func (*When) expression()           {}
func (*Case) expression()           {}
func (*Cast) expression()           {}
func (*IsNull) expression()         {}
func (*IsNotNull) expression()      {}
func (*Like) expression()           {}
func (*CurrentTime) expression()    {}

// Int returns a pointer to n, for the Limit and Offset fields.
func Int(n int64) *int64 { return &n }

// Column references a qualified column, e.g. Column(`"root"`, "col1").
func Column(parts ...string) *ColumnRef {
	return &ColumnRef{Name: QualifiedName(parts)}
}
