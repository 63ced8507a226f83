package domain

import (
	"errors"
	"fmt"
)

var (
	ErrRevisionConflict = errors.New("revision conflict")
	ErrIllegalStatus    = errors.New("illegal status transition")
)

// ErrorCode classifies why the page store refused a write
type ErrorCode string

const (
	CodeStaleRevision   ErrorCode = "stale_revision"
	CodeUniqueViolation ErrorCode = "unique_violation"
)

// ConflictError is the page store's conflict signal. The write was not applied.
type ConflictError struct {
	PageID           string
	Code             ErrorCode
	ExpectedRevision int64
	CurrentRevision  int64
}

func (e *ConflictError) Error() string {
	if e.Code == CodeUniqueViolation {
		return fmt.Sprintf("page %s: title already exists", e.PageID)
	}
	return fmt.Sprintf("page %s: revision conflict (expected %d, current %d)",
		e.PageID, e.ExpectedRevision, e.CurrentRevision)
}

func (e *ConflictError) Is(target error) bool {
	return target == ErrRevisionConflict
}

// StatusError reports an illegal page status transition
type StatusError struct {
	PageID string
	From   PageStatus
	To     PageStatus
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("page %s: cannot move from %s to %s", e.PageID, e.From, e.To)
}

func (e *StatusError) Is(target error) bool {
	return target == ErrIllegalStatus
}
