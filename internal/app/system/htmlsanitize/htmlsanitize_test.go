package htmlsanitize_test

import (
	"testing"

	"github.com/wastehub/wastehub/internal/app/system/htmlsanitize"
)

func TestPlainText(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty", "", ""},
		{"plain", "Garbage pile near the bus stop", "Garbage pile near the bus stop"},
		{"script", "Overflowing bin<script>alert('x')</script>", "Overflowing bin"},
		{"tags", "<b>Dead</b> dog on <a href=\"javascript:x\">road</a>", "Dead dog on road"},
		{"trim", "  <p>drain blocked</p>  ", "drain blocked"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := htmlsanitize.PlainText(tt.input); got != tt.want {
				t.Errorf("PlainText(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
