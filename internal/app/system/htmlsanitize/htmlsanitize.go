// Package htmlsanitize strips markup from free-text fields such as report
// descriptions before they are stored.
package htmlsanitize

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var strict = bluemonday.StrictPolicy()

// PlainText removes every tag and attribute, leaving only text content.
// Entities produced by the policy are left encoded.
func PlainText(s string) string {
	if s == "" {
		return ""
	}
	return strings.TrimSpace(strict.Sanitize(s))
}
