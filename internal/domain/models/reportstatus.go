// internal/domain/models/reportstatus.go
package models

// ReportStatus is a report's lifecycle state.
type ReportStatus string

const (
	StatusPending    ReportStatus = "pending"
	StatusAssigned   ReportStatus = "assigned"
	StatusInProgress ReportStatus = "in-progress"
	StatusResolved   ReportStatus = "resolved"

	// StatusUnassigned is a legacy spelling of StatusPending. It is accepted on
	// input and matched on reads but never written.
	StatusUnassigned ReportStatus = "unassigned"
)

// UnassignedStatuses are the stored values that mean "no assignee yet".
var UnassignedStatuses = []ReportStatus{StatusPending, StatusUnassigned}

// Canonical folds the legacy alias onto pending.
func (s ReportStatus) Canonical() ReportStatus {
	if s == StatusUnassigned {
		return StatusPending
	}
	return s
}

// Valid reports whether s is a known status (alias included).
func (s ReportStatus) Valid() bool {
	switch s {
	case StatusPending, StatusUnassigned, StatusAssigned, StatusInProgress, StatusResolved:
		return true
	}
	return false
}

// HasAssignee reports whether a report in this status must carry an assignee.
func (s ReportStatus) HasAssignee() bool {
	switch s.Canonical() {
	case StatusAssigned, StatusInProgress, StatusResolved:
		return true
	}
	return false
}

// Open reports whether work on the report is still outstanding.
func (s ReportStatus) Open() bool {
	return s.Canonical() != StatusResolved
}

// Assignable reports whether a report in this status may be (re)assigned.
// Work that has started or finished keeps its worker.
func (s ReportStatus) Assignable() bool {
	switch s.Canonical() {
	case StatusPending, StatusAssigned:
		return true
	}
	return false
}

// CanTransition reports whether a report may move from one status to another.
//
//	pending     -> assigned
//	assigned    -> assigned (re-assignment before work starts)
//	assigned    -> in-progress
//	in-progress -> resolved
//	assigned    -> resolved
//
// A pending report cannot jump to resolved: it would be resolved without an
// assignee. resolved is terminal.
func CanTransition(from, to ReportStatus) bool {
	from, to = from.Canonical(), to.Canonical()
	switch to {
	case StatusAssigned:
		return from == StatusPending || from == StatusAssigned
	case StatusInProgress:
		return from == StatusAssigned
	case StatusResolved:
		return from == StatusAssigned || from == StatusInProgress
	}
	return false
}

// StatusesFrom lists every stored status (alias included) that may move to the
// given target. Stores use it as a write guard.
func StatusesFrom(to ReportStatus) []ReportStatus {
	var out []ReportStatus
	for _, s := range []ReportStatus{StatusPending, StatusUnassigned, StatusAssigned, StatusInProgress, StatusResolved} {
		if CanTransition(s, to) {
			out = append(out, s)
		}
	}
	return out
}
