package testutil

import (
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
)

// Dedent removes the leading and trailing blank lines of s and the indentation
// shared by all of its non-blank lines. Tabs count as one column.
func Dedent(s string) string {
	lines := strings.Split(strings.Trim(s, "\n"), "\n")
	prefix := -1
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		indent := len(line) - len(strings.TrimLeft(line, " \t"))
		if prefix < 0 || indent < prefix {
			prefix = indent
		}
	}
	if prefix <= 0 {
		return strings.Join(lines, "\n")
	}
	for i, line := range lines {
		if len(line) >= prefix {
			lines[i] = line[prefix:]
		} else {
			lines[i] = strings.TrimLeft(line, " \t")
		}
	}
	return strings.Join(lines, "\n")
}

// AssertSQL compares generated SQL with an indented expectation.
//
// Example usage:
//
//	testutil.AssertSQL(t, `
//	    SELECT
//	        "root".col1 AS "col1"
//	    FROM
//	        test_schema.test_table AS "root"`, sql)
func AssertSQL(tb testing.TB, expected, actual string) bool {
	tb.Helper()
	return assert.Equal(tb, Dedent(expected), actual)
}

// AssertPure compares generated Pure with an indented expectation.
func AssertPure(tb testing.TB, expected, actual string) bool {
	tb.Helper()
	return assert.Equal(tb, Dedent(expected), actual)
}

// AssertGolden compares actual with testdata/golden/<name>.golden. Run the tests
// with -update to rewrite the golden files.
func AssertGolden(t *testing.T, name, actual string) {
	t.Helper()
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, []byte(actual))
}
