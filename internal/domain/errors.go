package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Error categories. Every specific error below belongs to at most one category,
// so callers can branch with errors.Is(err, ErrNotFound) and friends.
var (
	ErrInvalidInput  = errors.New("invalid input")
	ErrNotFound      = errors.New("not found")
	ErrPersistence   = errors.New("persistence error")
	ErrOracleFailure = errors.New("oracle failure")
)

// kindError is a sentinel that also matches its category.
type kindError struct {
	kind error
	msg  string
}

func (e *kindError) Error() string { return e.msg }

func (e *kindError) Is(target error) bool { return target == e.kind }

func newKind(kind error, msg string) error {
	return &kindError{kind: kind, msg: msg}
}

// Domain errors.
var (
	ErrTaskNotFound   = newKind(ErrNotFound, "task not found")
	ErrAgentNotFound  = newKind(ErrNotFound, "agent not found")
	ErrTimerNotFound  = newKind(ErrNotFound, "timer not found")
	ErrUpdateNotFound = newKind(ErrNotFound, "update not found")
	ErrNoteNotFound   = newKind(ErrNotFound, "note not found")

	ErrEmptyTitle       = newKind(ErrInvalidInput, "title cannot be empty")
	ErrEmptyMessage     = newKind(ErrInvalidInput, "message cannot be empty")
	ErrEmptyName        = newKind(ErrInvalidInput, "name cannot be empty")
	ErrEmptyInstruction = newKind(ErrInvalidInput, "instruction cannot be empty")
	ErrInvalidInterval  = newKind(ErrInvalidInput, "interval must be a positive number of seconds")
	ErrNoTargets        = newKind(ErrInvalidInput, "at least one target task is required")
	ErrInvalidStatus    = newKind(ErrInvalidInput, "invalid status")
	ErrInvalidPriority  = newKind(ErrInvalidInput, "invalid priority")
	ErrUnknownSkill     = newKind(ErrInvalidInput, "unknown skill")
	ErrNoFieldsToUpdate = newKind(ErrInvalidInput, "no fields to update")

	ErrSkillDisabled     = errors.New("skill not enabled for agent")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrStaleTask         = newKind(ErrInvalidTransition, "task status changed concurrently")
	ErrEngineNotRestored = errors.New("timer engine has not restored persisted jobs yet")
	ErrOracleUnavailable = newKind(ErrOracleFailure, "oracle not configured")

	ErrDuplicateID       = errors.New("record with this id already exists")
	ErrConfigExists      = errors.New("config file already exists")
	ErrMigrationConflict = errors.New("destination already holds a different record")
)

// Persistence wraps a store failure so that it matches ErrPersistence.
// Errors that already carry a domain meaning (not found, invalid input) pass through.
func Persistence(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrInvalidInput) || errors.Is(err, ErrPersistence) ||
		errors.Is(err, ErrInvalidTransition) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %w", op, ErrPersistence, err)
}

// OracleFailure wraps a decision step failure so that it matches ErrOracleFailure.
func OracleFailure(op string, err error) error {
	if err == nil {
		return fmt.Errorf("%s: %w", op, ErrOracleFailure)
	}
	if errors.Is(err, ErrOracleFailure) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %w", op, ErrOracleFailure, err)
}

// CorruptRecordsError reports persisted records that could not be decoded.
// Stores return it next to the records that did decode.
type CorruptRecordsError struct {
	IDs    []string
	Errors []error
}

func (e *CorruptRecordsError) Error() string {
	parts := make([]string, len(e.IDs))
	for i, id := range e.IDs {
		parts[i] = fmt.Sprintf("%s: %v", id, e.Errors[i])
	}
	return fmt.Sprintf("%d corrupt record(s): %s", len(e.IDs), strings.Join(parts, "; "))
}

// Add records one undecodable record.
func (e *CorruptRecordsError) Add(id string, err error) {
	e.IDs = append(e.IDs, id)
	e.Errors = append(e.Errors, err)
}

// OrNil returns nil when no record was added.
func (e *CorruptRecordsError) OrNil() error {
	if e == nil || len(e.IDs) == 0 {
		return nil
	}
	return e
}
