package testutil_test

import (
	"testing"

	"github.com/paveg/tdsframe/internal/errors"
	"github.com/paveg/tdsframe/internal/frame"
	"github.com/paveg/tdsframe/internal/testutil"
	"github.com/paveg/tdsframe/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimpleFrame(t *testing.T) {
	f := testutil.SimpleFrame(t)
	require.NotNil(t, f)

	assert.Equal(t, frame.OpTableSpec, f.Op())
	assert.Equal(t, []string{"col1", "col2"}, f.Schema().Names())
	ts, ok := f.(*frame.TableSpec)
	require.True(t, ok)
	assert.Equal(t, "test_schema.test_table", ts.QualifiedName())
}

func TestPersonFrame(t *testing.T) {
	t.Run("default configuration", func(t *testing.T) {
		f := testutil.PersonFrame(t)
		assert.Equal(t, []string{"First Name", "Last Name", "Age", "Firm/Legal Name"}, f.Schema().Names())
		assert.Equal(t, "test_schema.person", f.(*frame.TableSpec).QualifiedName())
	})

	t.Run("with options", func(t *testing.T) {
		f := testutil.PersonFrame(t,
			testutil.WithPersonTable("people"),
			testutil.WithExtraColumns(types.StrictDateColumn("Birth Date")))
		assert.Equal(t, 5, f.Schema().Len())
		assert.True(t, f.Schema().Has("Birth Date"))
		assert.Equal(t, "test_schema.people", f.(*frame.TableSpec).QualifiedName())
	})
}

func TestJoinFrames(t *testing.T) {
	left, right := testutil.JoinFrames(t)
	assert.Equal(t, []string{"col1", "col2", "col3"}, left.Schema().Names())
	assert.Equal(t, []string{"col1", "col2", "col4"}, right.Schema().Names())
}

func TestRequireKind(t *testing.T) {
	_, err := frame.NewLimit(testutil.SimpleFrame(t), -1)
	fe := testutil.RequireKind(t, err, errors.KindValidation)
	assert.Equal(t, "Row count argument of head/take/limit function cannot be negative", fe.Message)
}

func TestDedent(t *testing.T) {
	tests := []struct {
		name     string
		in       string
		expected string
	}{
		{"flat", "a\nb", "a\nb"},
		{"shared indent", "\n    a\n      b\n    c\n", "a\n  b\nc"},
		{"blank lines kept", "\n  a\n\n  b", "a\n\nb"},
		{"tabs", "\n\t\tSELECT\n\t\t    x", "SELECT\n    x"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, testutil.Dedent(tt.in))
		})
	}
}

func TestAssertSQL(t *testing.T) {
	testutil.AssertSQL(t, `
		SELECT
		    "root".col1 AS "col1"
		FROM
		    test_schema.test_table AS "root"`,
		"SELECT\n    \"root\".col1 AS \"col1\"\nFROM\n    test_schema.test_table AS \"root\"")
	testutil.AssertPure(t, `
		#Table(test_schema.test_table)#
		  ->select(~[col1])`,
		"#Table(test_schema.test_table)#\n  ->select(~[col1])")
}
