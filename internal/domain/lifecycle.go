package domain

import (
	"fmt"
	"time"
)

// Transition moves the task's fields to the target status and returns the audit
// updates the transition produces (IDs are left empty for the caller to assign).
//
// Requesting the current status is a no-op (changed=false), except that re-setting
// Closed refreshes CompletedAt. Archived is terminal.
func (t *Task) Transition(target Status, now time.Time) ([]Update, bool, error) {
	if !target.IsValid() {
		return nil, false, fmt.Errorf("%w: %q", ErrInvalidStatus, target)
	}
	from := t.Status

	if from == target {
		if target == StatusClosed {
			completed := now
			t.CompletedAt = &completed
			t.UpdatedAt = now
			return nil, true, nil
		}
		return nil, false, nil
	}

	if from.IsTerminal() || !from.CanTransitionTo(target) {
		return nil, false, fmt.Errorf("cannot move task from %s to %s: %w", from, target, ErrInvalidTransition)
	}

	var u Update
	switch target {
	case StatusClosed:
		completed := now
		t.CompletedAt = &completed
		u = Update{Type: UpdateStatusChange, Content: fmt.Sprintf("Status changed from %s to %s", from, target)}
	case StatusActive:
		t.CompletedAt = nil
		u = Update{Type: UpdateStatusChange, Content: fmt.Sprintf("Status changed from %s to %s", from, target)}
	case StatusDeleted:
		t.CompletedAt = nil
		deleted := now
		t.DeletedAt = &deleted
		u = Update{Type: UpdateDeletion, Content: "Task moved to trash"}
	case StatusArchived:
		archived := now
		t.ArchivedAt = &archived
		u = Update{Type: UpdateArchive, Content: "Task archived from trash"}
	}

	t.Status = target
	t.UpdatedAt = now
	u.Timestamp = now
	return []Update{u}, true, nil
}

// ChangeProperties applies priority and category changes and returns one
// property_change update per property that actually changed.
func (t *Task) ChangeProperties(priority *Priority, category *string, now time.Time) []Update {
	var updates []Update
	if priority != nil && *priority != t.Priority {
		updates = append(updates, Update{
			Type:      UpdatePropertyChange,
			Content:   fmt.Sprintf("Priority changed from %s to %s", t.Priority, *priority),
			Timestamp: now,
		})
		t.Priority = *priority
		t.Importance = priority.Importance()
	}
	if category != nil && *category != t.Category {
		updates = append(updates, Update{
			Type:      UpdatePropertyChange,
			Content:   fmt.Sprintf("Category changed from %s to %s", t.Category, *category),
			Timestamp: now,
		})
		t.Category = *category
	}
	if len(updates) > 0 {
		t.UpdatedAt = now
	}
	return updates
}

// ChangeDetails applies title and folder changes and returns one
// property_change update per value that actually changed.
func (t *Task) ChangeDetails(title, folderID *string, now time.Time) []Update {
	var updates []Update
	if title != nil && *title != t.Title {
		updates = append(updates, Update{
			Type:      UpdatePropertyChange,
			Content:   fmt.Sprintf("Title changed from %q to %q", t.Title, *title),
			Timestamp: now,
		})
		t.Title = *title
	}
	if folderID != nil && *folderID != t.FolderID {
		updates = append(updates, Update{
			Type:      UpdatePropertyChange,
			Content:   fmt.Sprintf("Folder changed from %s to %s", folderLabel(t.FolderID), folderLabel(*folderID)),
			Timestamp: now,
		})
		t.FolderID = *folderID
	}
	if len(updates) > 0 {
		t.UpdatedAt = now
	}
	return updates
}

func folderLabel(id string) string {
	if id == "" {
		return "none"
	}
	return id
}
