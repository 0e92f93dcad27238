// Package normalize canonicalizes user-supplied strings before they are
// stored or compared.
package normalize

import (
	"strings"

	"github.com/dalemusser/waffle/pantry/text"
)

// Email trims and lowercases an address.
func Email(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

// Name trims surrounding whitespace and collapses internal runs of it.
func Name(s string) string { return strings.Join(strings.Fields(s), " ") }

// Folded returns the case- and accent-insensitive key for a name, used for
// the *Ci shadow fields that back case-insensitive lookups.
func Folded(s string) string { return text.Fold(Name(s)) }

// Phone strips spaces, dashes and parentheses but keeps a leading '+'.
func Phone(s string) string {
	var b strings.Builder
	for i, r := range strings.TrimSpace(s) {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '+' && i == 0:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// QueryParam trims a query-string value and lowercases it.
func QueryParam(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

// Optional returns nil for blank input and a pointer to the trimmed value
// otherwise.
func Optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
