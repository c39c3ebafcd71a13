// Package common provides the quoting, escaping and literal rendering helpers
// shared by the SQL and Pure planners.
package common

import (
	"strings"
	"unicode"
)

// IdentifierQuote is the SQL identifier quote character.
const IdentifierQuote = `"`

// QuoteIdentifier wraps a SQL identifier in double quotes, doubling embedded quotes.
func QuoteIdentifier(name string) string {
	return IdentifierQuote + strings.ReplaceAll(name, IdentifierQuote, IdentifierQuote+IdentifierQuote) + IdentifierQuote
}

// IsQuotedIdentifier reports whether name is already wrapped in identifier quotes.
func IsQuotedIdentifier(name string) bool {
	return len(name) >= 2 && strings.HasPrefix(name, IdentifierQuote) && strings.HasSuffix(name, IdentifierQuote)
}

// QuoteSQLString renders a SQL string literal. Single quotes are doubled.
func QuoteSQLString(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// QuotePureString renders a Pure string literal. Single quotes are backslash-escaped.
func QuotePureString(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `\'`) + "'"
}

// EscapeLikePattern escapes the LIKE wildcards _ and % with a backslash.
func EscapeLikePattern(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r == '_' || r == '%' {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// IsIdentifier reports whether name is a letter or underscore followed by
// letters, digits and underscores.
func IsIdentifier(name string) bool {
	if name == "" {
		return false
	}
	for i, r := range name {
		switch {
		case r == '_' || unicode.IsLetter(r):
		case i > 0 && unicode.IsDigit(r):
		default:
			return false
		}
	}
	return true
}

// EscapeColumnName renders a column name for Pure. Identifier-like names are left
// bare, anything else is single quoted.
func EscapeColumnName(name string) string {
	if IsIdentifier(name) {
		return name
	}
	return QuotePureString(name)
}

// HasMatchingOuterParens reports whether s starts with an opening parenthesis
// whose matching closing parenthesis is the last character.
func HasMatchingOuterParens(s string) bool {
	if len(s) < 2 || s[0] != '(' || s[len(s)-1] != ')' {
		return false
	}
	depth := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 && i != len(s)-1 {
				return false
			}
		}
	}
	return depth == 0
}

// StripOuterParens removes one pair of enclosing parentheses when they match.
func StripOuterParens(s string) string {
	if HasMatchingOuterParens(s) {
		return s[1 : len(s)-1]
	}
	return s
}
