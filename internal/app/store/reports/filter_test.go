package reportstore

import (
	"testing"

	"github.com/wastehub/wastehub/internal/domain/models"
)

func TestFilter(t *testing.T) {
	addr := "Lake View Road"
	items := []models.Report{
		{Category: "Drain Cleaning", Status: models.StatusPending, UserName: "Asha"},
		{Category: "Plastic Waste", Status: models.StatusResolved, Location: models.Location{Address: &addr}},
		{Category: "Dead Animals", Status: models.StatusInProgress, Description: "dog near LAKE"},
	}

	tests := []struct {
		name string
		view View
		q    string
		want int
	}{
		{"all", ViewAll, "", 3},
		{"open", ViewOpen, "", 2},
		{"completed", ViewCompleted, "", 1},
		{"search address", ViewAll, "lake", 2},
		{"search open only", ViewOpen, "lake", 1},
		{"search reporter", ViewAll, "ASHA", 1},
		{"no match", ViewAll, "zzz", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Filter(items, tt.view, tt.q); len(got) != tt.want {
				t.Errorf("Filter(%q, %q) = %d items, want %d", tt.view, tt.q, len(got), tt.want)
			}
		})
	}
}

func TestParseView(t *testing.T) {
	if ParseView(" Open ") != ViewOpen || ParseView("completed") != ViewCompleted || ParseView("bogus") != ViewAll {
		t.Error("ParseView mismatch")
	}
}

func TestSummarize(t *testing.T) {
	ts := Summarize([]models.Report{
		{Status: models.StatusAssigned},
		{Status: models.StatusInProgress},
		{Status: models.StatusResolved},
		{Status: models.StatusResolved},
		{Status: models.StatusPending},
	})
	if len(ts.Assigned) != 1 || len(ts.InProgress) != 1 || len(ts.Resolved) != 2 {
		t.Errorf("Summarize = %d/%d/%d", len(ts.Assigned), len(ts.InProgress), len(ts.Resolved))
	}
}
