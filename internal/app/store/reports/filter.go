package reportstore

import (
	"strings"

	"github.com/wastehub/wastehub/internal/domain/models"
)

// View narrows a report list the way the history screens do.
type View string

const (
	ViewAll       View = "all"
	ViewOpen      View = "open"
	ViewCompleted View = "completed"
)

// ParseView accepts "", all, open and completed. Anything else is all.
func ParseView(s string) View {
	switch View(strings.ToLower(strings.TrimSpace(s))) {
	case ViewOpen:
		return ViewOpen
	case ViewCompleted:
		return ViewCompleted
	}
	return ViewAll
}

// Filter keeps the reports matching v whose address, category, reporter
// name or description contains q (case-insensitive). The input order is kept.
func Filter(items []models.Report, v View, q string) []models.Report {
	q = strings.ToLower(strings.TrimSpace(q))
	out := make([]models.Report, 0, len(items))
	for _, r := range items {
		switch v {
		case ViewOpen:
			if !r.Status.Open() {
				continue
			}
		case ViewCompleted:
			if r.Status.Open() {
				continue
			}
		}
		if q != "" && !matches(r, q) {
			continue
		}
		out = append(out, r)
	}
	return out
}

func matches(r models.Report, q string) bool {
	fields := []string{r.Category, r.UserName, r.Description}
	if r.Location.Address != nil {
		fields = append(fields, *r.Location.Address)
	}
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), q) {
			return true
		}
	}
	return false
}

// TaskSummary buckets a worker's reports by progress.
type TaskSummary struct {
	Assigned   []models.Report `json:"assigned"`
	InProgress []models.Report `json:"in_progress"`
	Resolved   []models.Report `json:"resolved"`
}

// Summarize splits items into a TaskSummary, keeping order within buckets.
func Summarize(items []models.Report) TaskSummary {
	ts := TaskSummary{
		Assigned:   []models.Report{},
		InProgress: []models.Report{},
		Resolved:   []models.Report{},
	}
	for _, r := range items {
		switch r.Status.Canonical() {
		case models.StatusAssigned:
			ts.Assigned = append(ts.Assigned, r)
		case models.StatusInProgress:
			ts.InProgress = append(ts.InProgress, r)
		case models.StatusResolved:
			ts.Resolved = append(ts.Resolved, r)
		}
	}
	return ts
}
