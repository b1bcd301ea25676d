package airtable

import (
	"fmt"
	"strings"
)

var quoteEscaper = strings.NewReplacer(`\`, `\\`, `'`, `\'`)

// Quote renders s as a single-quoted formula string literal.
func Quote(s string) string {
	return "'" + quoteEscaper.Replace(s) + "'"
}

// Eq renders {field} = 'value'.
func Eq(field, value string) string {
	return fmt.Sprintf("{%s} = %s", field, Quote(value))
}

// And joins clauses with AND(). A single clause is returned as is.
func And(clauses ...string) string {
	return join("AND", clauses)
}

// Or joins clauses with OR(). A single clause is returned as is.
func Or(clauses ...string) string {
	return join("OR", clauses)
}

func join(fn string, clauses []string) string {
	nonEmpty := clauses[:0:0]
	for _, c := range clauses {
		if strings.TrimSpace(c) != "" {
			nonEmpty = append(nonEmpty, c)
		}
	}
	switch len(nonEmpty) {
	case 0:
		return ""
	case 1:
		return nonEmpty[0]
	}
	return fn + "(" + strings.Join(nonEmpty, ", ") + ")"
}
