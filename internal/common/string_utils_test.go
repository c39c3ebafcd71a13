package common_test

import (
	"testing"

	"github.com/paveg/tdsframe/internal/common"
	"github.com/stretchr/testify/assert"
)

func TestQuoting(t *testing.T) {
	t.Run("QuoteIdentifier", func(t *testing.T) {
		assert.Equal(t, `"root"`, common.QuoteIdentifier("root"))
		assert.Equal(t, `"First Name"`, common.QuoteIdentifier("First Name"))
		assert.Equal(t, `"a""b"`, common.QuoteIdentifier(`a"b`))
	})

	t.Run("IsQuotedIdentifier", func(t *testing.T) {
		assert.True(t, common.IsQuotedIdentifier(`"root"`))
		assert.False(t, common.IsQuotedIdentifier("root"))
		assert.False(t, common.IsQuotedIdentifier(`"`))
	})

	t.Run("QuoteSQLString", func(t *testing.T) {
		assert.Equal(t, "'abc'", common.QuoteSQLString("abc"))
		assert.Equal(t, "'It''s'", common.QuoteSQLString("It's"))
	})

	t.Run("QuotePureString", func(t *testing.T) {
		assert.Equal(t, "'abc'", common.QuotePureString("abc"))
		assert.Equal(t, `'It\'s'`, common.QuotePureString("It's"))
	})

	t.Run("EscapeLikePattern", func(t *testing.T) {
		assert.Equal(t, "abc", common.EscapeLikePattern("abc"))
		assert.Equal(t, `a\_b\%c`, common.EscapeLikePattern("a_b%c"))
	})
}

func TestColumnNames(t *testing.T) {
	tests := []struct {
		name     string
		ident    bool
		expected string
	}{
		{"col1", true, "col1"},
		{"_hidden", true, "_hidden"},
		{"First Name", false, "'First Name'"},
		{"col1_-3", false, "'col1_-3'"},
		{"1col", false, "'1col'"},
		{"it's", false, `'it\'s'`},
		{"", false, "''"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.ident, common.IsIdentifier(tt.name))
			assert.Equal(t, tt.expected, common.EscapeColumnName(tt.name))
		})
	}
}

func TestOuterParens(t *testing.T) {
	tests := []struct {
		in       string
		matching bool
		stripped string
	}{
		{"(a + b)", true, "a + b"},
		{"((a + b))", true, "(a + b)"},
		{"(a) + (b)", false, "(a) + (b)"},
		{"a + b", false, "a + b"},
		{"()", true, ""},
		{"(", false, "("},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.matching, common.HasMatchingOuterParens(tt.in), tt.in)
		assert.Equal(t, tt.stripped, common.StripOuterParens(tt.in), tt.in)
	}
}
