package domain

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// DefaultPageValue is the placeholder content of a freshly created page
const DefaultPageValue = "- "

// Page is a single outline document
type Page struct {
	ID             string
	Title          string // also the page name used by shared node keys
	Value          string // serialized outline, one node per line
	UserID         string
	RevisionNumber int64
	LastModified   time.Time
	IsJournal      bool
	Deleted        bool
	Status         PageStatus
}

// Lines splits the page value into lines
func (p *Page) Lines() []string {
	return SplitLines(p.Value)
}

// Line returns the line at index n (0-based)
func (p *Page) Line(n int) (string, bool) {
	lines := p.Lines()
	if n < 0 || n >= len(lines) {
		return "", false
	}
	return lines[n], true
}

// HasDefaultContent reports whether the page still holds placeholder content
func (p *Page) HasDefaultContent() bool {
	return IsDefaultContent(p.Value)
}

// IsDefaultContent reports whether a page value is empty or an empty bullet
func IsDefaultContent(value string) bool {
	v := strings.TrimSpace(value)
	return v == "" || v == "-"
}

// JournalTitle returns the journal page title for a day
func JournalTitle(t time.Time) string {
	return t.Format("2006-01-02")
}

// SplitLines splits a serialized value into lines. An empty value has no lines.
func SplitLines(value string) []string {
	if value == "" {
		return nil
	}
	return strings.Split(value, "\n")
}

// JoinLines is the inverse of SplitLines
func JoinLines(lines []string) string {
	return strings.Join(lines, "\n")
}

// StripIndent removes leading indentation from a line
func StripIndent(line string) string {
	return strings.TrimLeft(line, " \t")
}

// ReplaceLineContent rewrites line n of value keeping its indentation
func ReplaceLineContent(value string, n int, content string) (string, error) {
	lines := SplitLines(value)
	if n < 0 || n >= len(lines) {
		return value, fmt.Errorf("line %d out of range (%d lines)", n, len(lines))
	}
	indent := lines[n][:len(lines[n])-len(StripIndent(lines[n]))]
	lines[n] = indent + StripIndent(content)
	return JoinLines(lines), nil
}

// PageStatus is the per-page synchronization state
type PageStatus int

const (
	StatusQuiescent PageStatus = iota
	StatusUserEdit
	StatusEditFromSharedNodes
	StatusPendingWrite
	StatusConflict
)

// String returns a human-readable representation of the status
func (s PageStatus) String() string {
	switch s {
	case StatusQuiescent:
		return "quiescent"
	case StatusUserEdit:
		return "user-edit"
	case StatusEditFromSharedNodes:
		return "edit-from-shared-nodes"
	case StatusPendingWrite:
		return "pending-write"
	case StatusConflict:
		return "conflict"
	default:
		return "unknown"
	}
}

var statusTransitions = map[PageStatus][]PageStatus{
	StatusQuiescent:           {StatusUserEdit, StatusEditFromSharedNodes, StatusConflict},
	StatusUserEdit:            {StatusUserEdit, StatusPendingWrite, StatusConflict},
	StatusEditFromSharedNodes: {StatusEditFromSharedNodes, StatusPendingWrite, StatusQuiescent, StatusUserEdit, StatusConflict},
	StatusPendingWrite:        {StatusQuiescent, StatusConflict, StatusUserEdit, StatusEditFromSharedNodes},
	StatusConflict:            {StatusConflict},
}

// CanTransition reports whether moving from s to next is legal.
// Leaving Conflict requires an explicit reload (see Page.Reset).
func (s PageStatus) CanTransition(next PageStatus) bool {
	return slices.Contains(statusTransitions[s], next)
}

// Transition moves the page to next, rejecting illegal moves
func (p *Page) Transition(next PageStatus) error {
	if !p.Status.CanTransition(next) {
		return &StatusError{PageID: p.ID, From: p.Status, To: next}
	}
	p.Status = next
	return nil
}

// Reset replaces the page with a server copy and marks it quiescent
func (p *Page) Reset(server Page) {
	*p = server
	p.Status = StatusQuiescent
}

// SortPagesByTitle sorts pages by title in ascending order
func SortPagesByTitle(pages []Page) {
	slices.SortFunc(pages, func(a, b Page) int {
		return strings.Compare(a.Title, b.Title)
	})
}
