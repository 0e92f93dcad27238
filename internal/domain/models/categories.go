// internal/domain/models/categories.go
package models

// Categories is the fixed garbage-category vocabulary shared by reports and
// organizations.
var Categories = []string{
	"Dead Animals",
	"Garbage Collection",
	"Clean Public Space",
	"Overflowing Dustbins",
	"Construction Waste",
	"Plastic Waste",
	"Organic Waste",
	"Drain Cleaning",
}

// IsCategory reports whether c is in the vocabulary.
func IsCategory(c string) bool {
	for _, v := range Categories {
		if v == c {
			return true
		}
	}
	return false
}
