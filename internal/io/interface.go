// Package io reads the text payload of inline CSV frames.
//
// Inline frames carry their rows as literal CSV text which is embedded unchanged
// into generated Pure. This package parses that text, checks that it is
// rectangular and infers a column schema from the header and the values.
//
// Key components:
//   - SchemaReader interface for pluggable schema sources
//   - CSVReader for CSV text with type inference
//   - CSVOptions for delimiter, comment and whitespace handling
package io

import (
	"io"

	"github.com/paveg/tdsframe/internal/types"
)

// SchemaReader defines the interface for sources that can describe their columns
type SchemaReader interface {
	// ReadSchema infers the ordered column list of the source
	ReadSchema() ([]types.Column, error)
}

// CSVOptions contains configuration options for CSV parsing
type CSVOptions struct {
	// Delimiter is the field delimiter (default: comma)
	Delimiter rune
	// Comment is the comment character (default: 0 = disabled)
	Comment rune
	// SkipInitialSpace indicates whether to skip initial whitespace
	SkipInitialSpace bool
}

// DefaultCSVOptions returns default CSV options
func DefaultCSVOptions() CSVOptions {
	return CSVOptions{
		Delimiter:        ',',
		Comment:          0,
		SkipInitialSpace: false,
	}
}

// CSVReader reads CSV text whose first record is the header
type CSVReader struct {
	reader  io.Reader
	options CSVOptions
}

// NewCSVReader creates a new CSV reader with the specified options
func NewCSVReader(reader io.Reader, options CSVOptions) *CSVReader {
	return &CSVReader{
		reader:  reader,
		options: options,
	}
}
