package inputval

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/wastehub/wastehub/internal/app/system/apperr"
)

type signup struct {
	Name       string   `json:"name" validate:"required"`
	Email      string   `json:"email" validate:"required,email"`
	Phone      string   `json:"phone" validate:"required,phone"`
	Categories []string `json:"categories" validate:"min=1,dive,category"`
	Severity   string   `json:"severity" validate:"omitempty,severity"`
}

func TestStruct(t *testing.T) {
	ok := signup{
		Name:       "Green Earth",
		Email:      "ops@greenearth.org",
		Phone:      "+919876543210",
		Categories: []string{"Plastic Waste"},
	}
	require.NoError(t, Struct(ok))

	tests := []struct {
		name string
		mut  func(*signup)
		want string
	}{
		{"missing name", func(s *signup) { s.Name = "" }, "name is required"},
		{"bad email", func(s *signup) { s.Email = "nope" }, "email must be a valid email address"},
		{"bad phone", func(s *signup) { s.Phone = "12ab" }, "phone must be a valid phone number"},
		{"no categories", func(s *signup) { s.Categories = nil }, "categories must contain at least 1 item(s)"},
		{"unknown category", func(s *signup) { s.Categories = []string{"Space Junk"} }, "categories[0] is not a recognised category"},
		{"bad severity", func(s *signup) { s.Severity = "urgent" }, "severity must be one of Low, Medium, High"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := ok
			tt.mut(&in)
			err := Struct(in)
			require.ErrorIs(t, err, apperr.ErrValidation)
			require.Equal(t, tt.want, apperr.Message(err))
		})
	}
}

func TestIsValidEmail(t *testing.T) {
	tests := []struct {
		email string
		want  bool
	}{
		{"user@example.com", true},
		{"user+tag@example.co.uk", true},
		{"", false},
		{"user@", false},
		{"User Name <user@example.com>", false},
	}
	for _, tt := range tests {
		t.Run(tt.email, func(t *testing.T) {
			if got := IsValidEmail(tt.email); got != tt.want {
				t.Errorf("IsValidEmail(%q) = %v, want %v", tt.email, got, tt.want)
			}
		})
	}
}

func TestIsValidPhone(t *testing.T) {
	tests := []struct {
		phone string
		want  bool
	}{
		{"9876543210", true},
		{"+919876543210", true},
		{"12345", false},
		{"98765 43210", false},
	}
	for _, tt := range tests {
		t.Run(tt.phone, func(t *testing.T) {
			if got := IsValidPhone(tt.phone); got != tt.want {
				t.Errorf("IsValidPhone(%q) = %v, want %v", tt.phone, got, tt.want)
			}
		})
	}
}
