package domain

import "strings"

// Status represents the lifecycle state of a task.
type Status string

const (
	StatusActive   Status = "Active"   // Created, being worked on
	StatusClosed   Status = "Closed"   // Completed (CompletedAt is set)
	StatusDeleted  Status = "Deleted"  // In the trash, recoverable
	StatusArchived Status = "Archived" // Emptied from the trash, terminal
)

// AllStatuses returns all valid status values.
func AllStatuses() []Status {
	return []Status{StatusActive, StatusClosed, StatusDeleted, StatusArchived}
}

// transitions defines the allowed status transitions.
// Flow: Active ⇄ Closed
//
//	  ↓        ↓
//	  Deleted → Archived
var transitions = map[Status][]Status{
	StatusActive:   {StatusClosed, StatusDeleted},
	StatusClosed:   {StatusActive, StatusDeleted},
	StatusDeleted:  {StatusArchived},
	StatusArchived: {},
}

// CanTransitionTo returns true if the status can transition to the target status.
func (s Status) CanTransitionTo(target Status) bool {
	allowed, ok := transitions[s]
	if !ok {
		return false
	}
	for _, t := range allowed {
		if t == target {
			return true
		}
	}
	return false
}

// IsTerminal returns true if the status is a terminal state.
func (s Status) IsTerminal() bool {
	return s == StatusArchived
}

// IsValid returns true if the status is a known valid value.
func (s Status) IsValid() bool {
	_, ok := transitions[s]
	return ok
}

// VisibleByDefault reports whether tasks in this status appear in default listings.
func (s Status) VisibleByDefault() bool {
	return s == StatusActive || s == StatusClosed
}

// ParseStatus parses a status name case-insensitively.
func ParseStatus(s string) (Status, error) {
	for _, st := range AllStatuses() {
		if strings.EqualFold(string(st), strings.TrimSpace(s)) {
			return st, nil
		}
	}
	return "", ErrInvalidStatus
}
