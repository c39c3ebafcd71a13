package io

import (
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/paveg/tdsframe/internal/types"
)

const (
	// Boolean string constants
	trueStr  = "true"
	falseStr = "false"
)

var dateTimeLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	time.RFC3339,
	time.RFC3339Nano,
}

// Table is a parsed CSV payload
type Table struct {
	Header []string
	Rows   [][]string
}

// ReadTable parses the CSV text into its header and data rows
func (r *CSVReader) ReadTable() (*Table, error) {
	csvReader := csv.NewReader(r.reader)
	csvReader.Comma = r.options.Delimiter
	csvReader.Comment = r.options.Comment
	csvReader.TrimLeadingSpace = r.options.SkipInitialSpace

	// Rows must match the header width
	csvReader.FieldsPerRecord = 0

	records, err := csvReader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading CSV: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("reading CSV: no header record")
	}

	header := records[0]
	for i, name := range header {
		header[i] = strings.TrimSpace(name)
		if header[i] == "" {
			return nil, fmt.Errorf("reading CSV: header column %d has an empty name", i)
		}
	}
	return &Table{Header: header, Rows: records[1:]}, nil
}

// ReadSchema infers a column per header entry from the values below it
func (r *CSVReader) ReadSchema() ([]types.Column, error) {
	table, err := r.ReadTable()
	if err != nil {
		return nil, err
	}

	columns := make([]types.Column, len(table.Header))
	values := make([]string, len(table.Rows))
	for i, name := range table.Header {
		for j, row := range table.Rows {
			values[j] = row[i]
		}
		columns[i] = types.NewColumn(name, InferType(values))
	}
	return columns, nil
}

// InferColumns is ReadSchema over a CSV string with default options
func InferColumns(text string) ([]types.Column, error) {
	return NewCSVReader(strings.NewReader(text), DefaultCSVOptions()).ReadSchema()
}

// InferType determines the most specific primitive type every non-empty value
// parses as. Columns with no values are String, columns mixing dates and
// datetimes are Date.
func InferType(data []string) types.PrimitiveType {
	canBeBool := true
	canBeInt := true
	canBeFloat := true
	canBeTemporal := true
	sawDate, sawDateTime := false, false
	hasNonEmptyValue := false

	for _, raw := range data {
		value := strings.TrimSpace(raw)
		if value == "" {
			continue // Skip empty values for type inference
		}
		hasNonEmptyValue = true

		if canBeBool {
			lower := strings.ToLower(value)
			if lower != trueStr && lower != falseStr {
				canBeBool = false
			}
		}
		if canBeInt {
			if _, err := strconv.ParseInt(value, 10, 64); err != nil {
				canBeInt = false
			}
		}
		if canBeFloat {
			if _, err := strconv.ParseFloat(value, 64); err != nil {
				canBeFloat = false
			}
		}
		if canBeTemporal {
			if _, err := time.Parse("2006-01-02", value); err == nil {
				sawDate = true
			} else if parsesAsDateTime(value) {
				sawDateTime = true
			} else {
				canBeTemporal = false
			}
		}
	}

	switch {
	case !hasNonEmptyValue:
		return types.String
	case canBeBool:
		return types.Boolean
	case canBeInt:
		return types.Integer
	case canBeFloat:
		return types.Float
	case canBeTemporal && sawDate && sawDateTime:
		return types.Date
	case canBeTemporal && sawDate:
		return types.StrictDate
	case canBeTemporal:
		return types.DateTime
	default:
		return types.String
	}
}

func parsesAsDateTime(value string) bool {
	for _, layout := range dateTimeLayouts {
		if _, err := time.Parse(layout, value); err == nil {
			return true
		}
	}
	return false
}
