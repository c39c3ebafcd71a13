// Package pipeline decodes YAML pipeline documents into frame IR.
//
// A document names one source frame and the steps applied to it, in order:
//
//	source:
//	  table: test_schema.test_table
//	  columns:
//	    - {name: col1, type: Integer}
//	    - {name: col2, type: String}
//	steps:
//	  - filter: {gt: [{col: col1}, {lit: 1}]}
//	  - sort: [{column: col2, direction: DESC}]
//	  - limit: 10
//
// Expressions are single-key mappings naming an operator or function, with the
// arguments as a list: {add: [{col: col1}, {lit: 1}]}. Column references use the
// col key, or left and right inside a join condition.
package pipeline

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"
)

// Document is a decoded pipeline.
type Document struct {
	Source Source `yaml:"source"`
	Steps  []Step `yaml:"steps"`
}

// Source describes the input frame. Exactly one of Table, CSV and Service is set.
type Source struct {
	// Table is the dotted path of a database table, e.g. schema.table.
	Table string `yaml:"table,omitempty"`
	// CSV is literal CSV text. Without Columns the schema is inferred.
	CSV     string       `yaml:"csv,omitempty"`
	Service *Service     `yaml:"service,omitempty"`
	Columns []ColumnSpec `yaml:"columns,omitempty"`
}

// ColumnSpec declares one source column.
type ColumnSpec struct {
	Name string `yaml:"name"`
	Type string `yaml:"type"`
}

// Service locates a service of a project. Coordinates addresses a released
// version as group:artifact:version; otherwise Project and one of Workspace and
// GroupWorkspace are set.
type Service struct {
	Pattern        string `yaml:"pattern"`
	Coordinates    string `yaml:"coordinates,omitempty"`
	Project        string `yaml:"project,omitempty"`
	Workspace      string `yaml:"workspace,omitempty"`
	GroupWorkspace string `yaml:"group_workspace,omitempty"`
	Accessor       string `yaml:"accessor,omitempty"`
}

// Step is one frame operation. Exactly one field is set.
type Step struct {
	Restrict    []string     `yaml:"restrict,omitempty"`
	Rename      []RenameSpec `yaml:"rename,omitempty"`
	Sort        []SortSpec   `yaml:"sort,omitempty"`
	Limit       *int         `yaml:"limit,omitempty"`
	Drop        *int         `yaml:"drop,omitempty"`
	Slice       interface{}  `yaml:"slice,omitempty"`
	Distinct    bool         `yaml:"distinct,omitempty"`
	Filter      *Expr        `yaml:"filter,omitempty"`
	Extend      []ExtendSpec `yaml:"extend,omitempty"`
	Join        *JoinSpec    `yaml:"join,omitempty"`
	Concatenate *Document    `yaml:"concatenate,omitempty"`
	GroupBy     *GroupBySpec `yaml:"group_by,omitempty"`
	Shift       *ShiftSpec   `yaml:"shift,omitempty"`
}

// RenameSpec renames From to To.
type RenameSpec struct {
	From string `yaml:"from"`
	To   string `yaml:"to"`
}

// SortSpec orders by one column. A bare column name sorts ascending.
type SortSpec struct {
	Column    string `yaml:"column"`
	Direction string `yaml:"direction,omitempty"`
}

// UnmarshalYAML accepts a column name or a {column, direction} mapping.
func (s *SortSpec) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		s.Column = value.Value
		return nil
	}
	type plain SortSpec
	return value.Decode((*plain)(s))
}

// ExtendSpec computes column Name.
type ExtendSpec struct {
	Name string `yaml:"name"`
	Expr Expr   `yaml:"expr"`
}

// JoinSpec joins the current frame with Right. Either On (shared key names),
// LeftOn with RightOn, or Condition is set.
type JoinSpec struct {
	Right     Document `yaml:"right"`
	Kind      string   `yaml:"kind,omitempty"`
	On        []string `yaml:"on,omitempty"`
	LeftOn    []string `yaml:"left_on,omitempty"`
	RightOn   []string `yaml:"right_on,omitempty"`
	Condition *Expr    `yaml:"condition,omitempty"`
}

// GroupBySpec groups by Keys and computes Aggregates per group.
type GroupBySpec struct {
	Keys       []string        `yaml:"keys"`
	Aggregates []AggregateSpec `yaml:"aggregates"`
}

// AggregateSpec names one aggregate. Expr must be an aggregation such as
// {sum: [{col: x}]}.
type AggregateSpec struct {
	Name string `yaml:"name"`
	Expr Expr   `yaml:"expr"`
}

// ShiftSpec reads neighbouring rows. A list of periods selects the list form.
type ShiftSpec struct {
	Periods interface{} `yaml:"periods"`
	Suffix  string      `yaml:"suffix,omitempty"`
	GroupBy []string    `yaml:"group_by,omitempty"`
	Columns []string    `yaml:"columns,omitempty"`
}

// Expr is an undecoded expression node. It is resolved against the schema of the
// frame it applies to when the document is built.
type Expr struct {
	node *yaml.Node
}

// UnmarshalYAML keeps the node for later resolution.
func (e *Expr) UnmarshalYAML(value *yaml.Node) error {
	e.node = value
	return nil
}

// Parse decodes and validates a pipeline document.
func Parse(data []byte) (*Document, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var doc Document
	if err := dec.Decode(&doc); err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("parsing pipeline: empty document")
		}
		return nil, fmt.Errorf("parsing pipeline: %w", err)
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return &doc, nil
}

// LoadFile reads and parses the pipeline document at path.
func LoadFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading pipeline %s: %w", path, err)
	}
	return Parse(data)
}

// Validate reports every structural problem of the document: sources that name
// no or several inputs and steps that name no or several operations. Column and
// type checks happen when the document is built.
func (d *Document) Validate() error {
	return d.validate("")
}

func (d *Document) validate(path string) error {
	var err error
	err = multierr.Append(err, d.Source.validate(path+"source"))
	for i := range d.Steps {
		err = multierr.Append(err, d.Steps[i].validate(fmt.Sprintf("%ssteps[%d]", path, i)))
	}
	return err
}

func (s *Source) validate(path string) error {
	n := 0
	if s.Table != "" {
		n++
	}
	if s.CSV != "" {
		n++
	}
	if s.Service != nil {
		n++
	}
	switch {
	case n == 0:
		return fmt.Errorf("%s: one of table, csv or service is required", path)
	case n > 1:
		return fmt.Errorf("%s: only one of table, csv or service may be set", path)
	}

	var err error
	if s.Table != "" && len(s.Columns) == 0 {
		err = multierr.Append(err, fmt.Errorf("%s: table sources need columns", path))
	}
	if s.Service != nil {
		err = multierr.Append(err, s.Service.validate(path+".service"))
	}
	for i, c := range s.Columns {
		if c.Name == "" || c.Type == "" {
			err = multierr.Append(err, fmt.Errorf("%s.columns[%d]: name and type are required", path, i))
		}
	}
	return err
}

func (s *Service) validate(path string) error {
	var err error
	if s.Pattern == "" {
		err = multierr.Append(err, fmt.Errorf("%s: pattern is required", path))
	}
	if s.Coordinates == "" {
		if s.Project == "" {
			err = multierr.Append(err, fmt.Errorf("%s: coordinates or project is required", path))
		}
		if (s.Workspace == "") == (s.GroupWorkspace == "") {
			err = multierr.Append(err, fmt.Errorf("%s: exactly one of workspace or group_workspace is required", path))
		}
	}
	return err
}

// operations lists the operations a step names.
func (s *Step) operations() []string {
	var ops []string
	add := func(set bool, name string) {
		if set {
			ops = append(ops, name)
		}
	}
	add(s.Restrict != nil, "restrict")
	add(s.Rename != nil, "rename")
	add(s.Sort != nil, "sort")
	add(s.Limit != nil, "limit")
	add(s.Drop != nil, "drop")
	add(s.Slice != nil, "slice")
	add(s.Distinct, "distinct")
	add(s.Filter != nil, "filter")
	add(s.Extend != nil, "extend")
	add(s.Join != nil, "join")
	add(s.Concatenate != nil, "concatenate")
	add(s.GroupBy != nil, "group_by")
	add(s.Shift != nil, "shift")
	return ops
}

func (s *Step) validate(path string) error {
	ops := s.operations()
	switch {
	case len(ops) == 0:
		return fmt.Errorf("%s: step names no operation", path)
	case len(ops) > 1:
		return fmt.Errorf("%s: step names several operations %v", path, ops)
	}

	switch {
	case s.Join != nil:
		return s.Join.Right.validate(path + ".join.right.")
	case s.Concatenate != nil:
		return s.Concatenate.validate(path + ".concatenate.")
	}
	return nil
}
