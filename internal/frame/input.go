package frame

import (
	"context"
	"fmt"
	"strings"

	"github.com/paveg/tdsframe/internal/errors"
	"github.com/paveg/tdsframe/internal/io"
	"github.com/paveg/tdsframe/internal/types"
)

func newSchema(op string, columns []types.Column) (types.Schema, error) {
	s, err := types.NewSchema(columns...)
	if err != nil {
		return types.Schema{}, &errors.FrameError{Kind: errors.KindValidation, Op: op, Message: err.Error(), Cause: err}
	}
	return s, nil
}

type input struct {
	node
}

func (input) Children() []Frame { return nil }

// TableSpec reads a database table addressed by its qualified path.
type TableSpec struct {
	input
	path []string
}

// NewTableSpec creates a table input, e.g. path ["test_schema", "test_table"].
func NewTableSpec(path []string, columns []types.Column) (*TableSpec, error) {
	if len(path) == 0 {
		return nil, errors.NewValidationError(OpTableSpec.String(), "Table path should be a non-empty list of names")
	}
	for i, p := range path {
		if p == "" {
			return nil, errors.NewValidationErrorf(OpTableSpec.String(),
				"Table path element at index %d (0-indexed) is empty. Path: %s", i, types.QuotedList(path))
		}
	}
	schema, err := newSchema(OpTableSpec.String(), columns)
	if err != nil {
		return nil, err
	}
	return &TableSpec{input: input{node{schema: schema}}, path: append([]string(nil), path...)}, nil
}

func (t *TableSpec) Op() Op { return OpTableSpec }

// Path returns the qualified table path.
func (t *TableSpec) Path() []string { return append([]string(nil), t.path...) }

// QualifiedName joins the path with dots.
func (t *TableSpec) QualifiedName() string { return strings.Join(t.path, ".") }

// NamedParam is a named argument of the service table function.
type NamedParam struct {
	Name  string
	Value string
}

// ProjectCoordinates locates the project a service is defined in.
type ProjectCoordinates interface {
	// Params returns the named arguments identifying the project
	Params() []NamedParam
}

// VersionedProject addresses a released project version.
type VersionedProject struct {
	GroupID    string
	ArtifactID string
	Version    string
}

func (v VersionedProject) Params() []NamedParam {
	return []NamedParam{{Name: "coordinates", Value: fmt.Sprintf("%s:%s:%s", v.GroupID, v.ArtifactID, v.Version)}}
}

// PersonalWorkspace addresses a user workspace of a project.
type PersonalWorkspace struct {
	ProjectID string
	Workspace string
}

func (p PersonalWorkspace) Params() []NamedParam {
	return []NamedParam{{Name: "project", Value: p.ProjectID}, {Name: "workspace", Value: p.Workspace}}
}

// GroupWorkspace addresses a shared workspace of a project.
type GroupWorkspace struct {
	ProjectID string
	Workspace string
}

func (g GroupWorkspace) Params() []NamedParam {
	return []NamedParam{{Name: "project", Value: g.ProjectID}, {Name: "groupWorkspace", Value: g.Workspace}}
}

// SchemaFetcher resolves the columns a SQL query returns. It is implemented by the
// request layer that talks to the engine.
type SchemaFetcher interface {
	FetchSchema(ctx context.Context, sql string) ([]types.Column, error)
}

// SchemaFetcherFunc adapts a function to SchemaFetcher.
type SchemaFetcherFunc func(ctx context.Context, sql string) ([]types.Column, error)

func (f SchemaFetcherFunc) FetchSchema(ctx context.Context, sql string) ([]types.Column, error) {
	return f(ctx, sql)
}

// ServiceCall reads the result of a service defined in a project.
type ServiceCall struct {
	input
	pattern     string
	coordinates ProjectCoordinates
	accessor    string
}

// ServiceOption configures a ServiceCall.
type ServiceOption func(*ServiceCall)

// WithAccessor sets the Pure accessor the service is reachable through, e.g.
// "model::MyService". Without it the service cannot be lowered to Pure.
func WithAccessor(accessor string) ServiceOption {
	return func(s *ServiceCall) { s.accessor = accessor }
}

// NewServiceCall creates a service input with a known schema.
func NewServiceCall(pattern string, coordinates ProjectCoordinates, columns []types.Column, opts ...ServiceOption) (*ServiceCall, error) {
	op := OpServiceCall.String()
	if pattern == "" {
		return nil, errors.NewValidationError(op, "Service pattern should be a non-empty string")
	}
	if coordinates == nil {
		return nil, errors.NewValidationError(op, "Service project coordinates should be provided")
	}
	schema, err := newSchema(op, columns)
	if err != nil {
		return nil, err
	}
	s := &ServiceCall{input: input{node{schema: schema}}, pattern: pattern, coordinates: coordinates}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *ServiceCall) Op() Op { return OpServiceCall }

func (s *ServiceCall) Pattern() string                 { return s.pattern }
func (s *ServiceCall) Coordinates() ProjectCoordinates { return s.coordinates }
func (s *ServiceCall) Accessor() string                { return s.accessor }

// Initialized reports whether the schema is known. An uninitialized service call
// only serves as the schema probe.
func (s *ServiceCall) Initialized() bool { return s.schema.Len() > 0 }

// ProbeServiceCall returns a service call with an empty schema, the form whose SQL
// asks the engine to describe the service result.
func ProbeServiceCall(pattern string, coordinates ProjectCoordinates) (*ServiceCall, error) {
	return NewServiceCall(pattern, coordinates, nil)
}

// CsvInline carries its rows as literal CSV text.
type CsvInline struct {
	input
	csv string
}

// NewCsvInline creates an inline CSV input. When columns is nil the schema is
// inferred from the CSV header and values.
func NewCsvInline(csv string, columns []types.Column) (*CsvInline, error) {
	op := OpCsvInline.String()
	if strings.TrimSpace(csv) == "" {
		return nil, errors.NewValidationError(op, "CSV text should not be empty")
	}
	if columns == nil {
		inferred, err := io.InferColumns(csv)
		if err != nil {
			return nil, &errors.FrameError{Kind: errors.KindValidation, Op: op, Message: err.Error(), Cause: err}
		}
		columns = inferred
	}
	schema, err := newSchema(op, columns)
	if err != nil {
		return nil, err
	}
	return &CsvInline{input: input{node{schema: schema}}, csv: csv}, nil
}

func (c *CsvInline) Op() Op { return OpCsvInline }

// CSV returns the CSV text.
func (c *CsvInline) CSV() string { return c.csv }
