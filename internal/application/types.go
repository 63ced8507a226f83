package application

import (
	"quaderno/internal/domain"
	"quaderno/internal/ports"
)

// Re-export domain types for use by adapters
type (
	Page          = domain.Page
	PageStatus    = domain.PageStatus
	NodeMarkdown  = domain.NodeMarkdown
	FormulaResult = domain.FormulaResult
	ConflictError = domain.ConflictError
)

// Re-export port types for use by adapters
type (
	SaveRequest  = ports.SaveRequest
	QueuedUpdate = ports.QueuedUpdate
	Alert        = ports.Alert
)

// FindPage returns the live page with the given title
func FindPage(pages []domain.Page, title string) (*domain.Page, bool) {
	for i := range pages {
		if pages[i].Title == title && !pages[i].Deleted {
			return &pages[i], true
		}
	}
	return nil, false
}

// PageTitles returns the titles of pages in order
func PageTitles(pages []domain.Page) []string {
	titles := make([]string, 0, len(pages))
	for _, p := range pages {
		titles = append(titles, p.Title)
	}
	return titles
}
