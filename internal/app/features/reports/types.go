// internal/app/features/reports/types.go
package reports

import (
	"strings"

	reportstore "github.com/wastehub/wastehub/internal/app/store/reports"
	"github.com/wastehub/wastehub/internal/app/system/htmlsanitize"
	"github.com/wastehub/wastehub/internal/domain/models"
)

type createRequest struct {
	Category    string   `json:"category" validate:"required,category"`
	Description string   `json:"description" validate:"required,max=2000"`
	ImageURL    *string  `json:"image_url" validate:"omitempty,url"`
	Address     *string  `json:"address" validate:"omitempty,max=500"`
	Latitude    *float64 `json:"latitude" validate:"omitempty,latitude"`
	Longitude   *float64 `json:"longitude" validate:"omitempty,longitude"`
	Severity    string   `json:"severity" validate:"omitempty,severity"`
}

func (in *createRequest) clean() {
	in.Category = strings.TrimSpace(in.Category)
	in.Description = htmlsanitize.PlainText(in.Description)
	in.ImageURL = trimmed(in.ImageURL)
	if in.Address != nil {
		a := htmlsanitize.PlainText(*in.Address)
		in.Address = &a
	}
	in.Severity = strings.TrimSpace(in.Severity)
}

type updateRequest struct {
	Category    *string  `json:"category" validate:"omitnil,category"`
	Description *string  `json:"description" validate:"omitnil,min=1,max=2000"`
	ImageURL    *string  `json:"image_url" validate:"omitempty,url"`
	Address     *string  `json:"address" validate:"omitempty,max=500"`
	Latitude    *float64 `json:"latitude" validate:"omitempty,latitude"`
	Longitude   *float64 `json:"longitude" validate:"omitempty,longitude"`
	Severity    *string  `json:"severity" validate:"omitnil,severity"`
}

func (in *updateRequest) patch() reportstore.Patch {
	if in.Description != nil {
		d := htmlsanitize.PlainText(*in.Description)
		in.Description = &d
	}
	if in.Address != nil {
		a := htmlsanitize.PlainText(*in.Address)
		in.Address = &a
	}
	in.ImageURL = trimmed(in.ImageURL)
	p := reportstore.Patch{
		Category:    in.Category,
		Description: in.Description,
		ImageURL:    in.ImageURL,
		Address:     in.Address,
		Latitude:    in.Latitude,
		Longitude:   in.Longitude,
	}
	if in.Severity != nil {
		s := models.Severity(strings.TrimSpace(*in.Severity))
		in.Severity = (*string)(&s)
		p.Severity = &s
	}
	return p
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
