// internal/domain/models/report.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Severity of a reported problem. Empty means unset.
type Severity string

const (
	SeverityLow    Severity = "Low"
	SeverityMedium Severity = "Medium"
	SeverityHigh   Severity = "High"
)

// Valid reports whether s is unset or one of the known severities.
func (s Severity) Valid() bool {
	switch s {
	case "", SeverityLow, SeverityMedium, SeverityHigh:
		return true
	}
	return false
}

// Rank orders severities for triage; unset sorts last.
func (s Severity) Rank() int {
	switch s {
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	}
	return 0
}

// Location is where the citizen saw the problem. Every part is optional.
type Location struct {
	Address   *string  `bson:"address" json:"address"`
	Latitude  *float64 `bson:"latitude" json:"latitude"`
	Longitude *float64 `bson:"longitude" json:"longitude"`
}

// Report is a citizen's garbage report.
//
// WorkerName and WorkerEmail are a snapshot taken when the report was last
// assigned. They are not kept in sync with later edits to the worker profile.
type Report struct {
	ID          primitive.ObjectID  `bson:"_id" json:"id"`
	UserID      primitive.ObjectID  `bson:"userId" json:"user_id"`
	UserName    string              `bson:"userName" json:"user_name"`
	UserEmail   string              `bson:"userEmail" json:"user_email"`
	Category    string              `bson:"category,omitempty" json:"category,omitempty"`
	Description string              `bson:"description" json:"description"`
	ImageURL    *string             `bson:"imageUrl,omitempty" json:"image_url,omitempty"`
	Location    Location            `bson:"location" json:"location"`
	Severity    Severity            `bson:"severity,omitempty" json:"severity,omitempty"`
	Status      ReportStatus        `bson:"status" json:"status"`
	AssignedTo  *primitive.ObjectID `bson:"assignedTo,omitempty" json:"assigned_to"`
	WorkerName  *string             `bson:"workerName,omitempty" json:"worker_name"`
	WorkerEmail *string             `bson:"workerEmail,omitempty" json:"worker_email"`
	NGOID       *primitive.ObjectID `bson:"ngoId,omitempty" json:"ngo_id"`
	CreatedAt   time.Time           `bson:"createdAt" json:"created_at"`
	UpdatedAt   time.Time           `bson:"updatedAt" json:"updated_at"`
}
