// Package testutil provides the frames and assertions shared by the planner and
// façade tests.
//
// This package consolidates the fixtures most tests start from:
// - Table frames over the test_schema schema
// - The person frame used by the service and join scenarios
// - Error kind checks
package testutil

import (
	"testing"

	"github.com/paveg/tdsframe/internal/errors"
	"github.com/paveg/tdsframe/internal/frame"
	"github.com/paveg/tdsframe/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	// TestSchema is the schema every fixture table lives in.
	TestSchema = "test_schema"
	// TestTable is the table name of SimpleFrame.
	TestTable = "test_table"
)

// SimpleTable creates a table frame test_schema.<name> with the given columns.
//
// Example usage:
//
//	f := testutil.SimpleTable(t, "test_table", types.IntegerColumn("col1"))
func SimpleTable(tb testing.TB, name string, columns ...types.Column) frame.Frame {
	tb.Helper()
	f, err := frame.NewTableSpec([]string{TestSchema, name}, columns)
	require.NoError(tb, err)
	return f
}

// SimpleFrame is test_schema.test_table with col1 Integer and col2 String.
func SimpleFrame(tb testing.TB) frame.Frame {
	tb.Helper()
	return SimpleTable(tb, TestTable, types.IntegerColumn("col1"), types.StringColumn("col2"))
}

// PersonFrameOption configures PersonFrame.
type PersonFrameOption func(*personFrameConfig)

type personFrameConfig struct {
	table string
	extra []types.Column
}

// WithPersonTable sets the table name of the person frame.
func WithPersonTable(name string) PersonFrameOption {
	return func(cfg *personFrameConfig) {
		cfg.table = name
	}
}

// WithExtraColumns appends columns to the person frame.
func WithExtraColumns(columns ...types.Column) PersonFrameOption {
	return func(cfg *personFrameConfig) {
		cfg.extra = append(cfg.extra, columns...)
	}
}

// PersonFrame creates the person table used across scenarios.
//
// Default columns:
// - First Name (String)
// - Last Name (String)
// - Age (Integer)
// - Firm/Legal Name (String)
func PersonFrame(tb testing.TB, opts ...PersonFrameOption) frame.Frame {
	tb.Helper()
	cfg := &personFrameConfig{table: "person"}
	for _, opt := range opts {
		opt(cfg)
	}
	columns := []types.Column{
		types.StringColumn("First Name"),
		types.StringColumn("Last Name"),
		types.IntegerColumn("Age"),
		types.StringColumn("Firm/Legal Name"),
	}
	return SimpleTable(tb, cfg.table, append(columns, cfg.extra...)...)
}

// JoinFrames returns two tables sharing the col1 and col2 columns.
func JoinFrames(tb testing.TB) (frame.Frame, frame.Frame) {
	tb.Helper()
	left := SimpleTable(tb, "test_table1",
		types.IntegerColumn("col1"), types.StringColumn("col2"), types.StringColumn("col3"))
	right := SimpleTable(tb, "test_table2",
		types.IntegerColumn("col1"), types.StringColumn("col2"), types.StringColumn("col4"))
	return left, right
}

// RequireKind asserts that err is a FrameError of the given kind and returns it.
func RequireKind(tb testing.TB, err error, kind errors.Kind) *errors.FrameError {
	tb.Helper()
	require.Error(tb, err)
	var fe *errors.FrameError
	require.ErrorAs(tb, err, &fe)
	assert.Equal(tb, kind, fe.Kind)
	return fe
}
