package io_test

import (
	"strings"
	"testing"

	"github.com/paveg/tdsframe/internal/io"
	"github.com/paveg/tdsframe/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSVReader(t *testing.T) {
	t.Run("infers a schema from header and values", func(t *testing.T) {
		csvData := `name,age,salary,active,joined,updated
Alice,25,50000.5,true,2023-01-02,2023-01-02T10:00:00
Bob,30,60000,false,2023-02-03,2023-02-03 11:30:00`

		reader := io.NewCSVReader(strings.NewReader(csvData), io.DefaultCSVOptions())
		columns, err := reader.ReadSchema()
		require.NoError(t, err)

		assert.Equal(t, []types.Column{
			types.StringColumn("name"),
			types.IntegerColumn("age"),
			types.FloatColumn("salary"),
			types.BooleanColumn("active"),
			types.StrictDateColumn("joined"),
			types.DateTimeColumn("updated"),
		}, columns)
	})

	t.Run("header only yields String columns", func(t *testing.T) {
		columns, err := io.InferColumns("col1,col2")
		require.NoError(t, err)
		assert.Equal(t, []types.Column{types.StringColumn("col1"), types.StringColumn("col2")}, columns)
	})

	t.Run("trims header names", func(t *testing.T) {
		columns, err := io.InferColumns("col1, col2\n1,a")
		require.NoError(t, err)
		assert.Equal(t, []string{"col1", "col2"}, types.Names(columns))
	})

	t.Run("custom delimiter", func(t *testing.T) {
		opts := io.DefaultCSVOptions()
		opts.Delimiter = ';'
		columns, err := io.NewCSVReader(strings.NewReader("a;b\n1;x"), opts).ReadSchema()
		require.NoError(t, err)
		assert.Equal(t, []types.Column{types.IntegerColumn("a"), types.StringColumn("b")}, columns)
	})
}

func TestCSVReaderErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"empty text", ""},
		{"ragged rows", "a,b\n1,2,3"},
		{"empty header name", "a,,c\n1,2,3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := io.InferColumns(tt.data)
			assert.Error(t, err)
		})
	}
}

func TestInferType(t *testing.T) {
	tests := []struct {
		name     string
		values   []string
		expected types.PrimitiveType
	}{
		{"empty", []string{"", ""}, types.String},
		{"bool any case", []string{"TRUE", "false"}, types.Boolean},
		{"ints with blanks", []string{"1", "", "-3"}, types.Integer},
		{"mixed int and float", []string{"1", "2.5"}, types.Float},
		{"dates", []string{"2023-06-01"}, types.StrictDate},
		{"datetimes", []string{"2023-06-01T14:45:00"}, types.DateTime},
		{"date and datetime", []string{"2023-06-01", "2023-06-01T14:45:00"}, types.Date},
		{"text", []string{"1", "x"}, types.String},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, io.InferType(tt.values))
		})
	}
}
