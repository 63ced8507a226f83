package commands

import (
	"context"
	"sort"
	"strings"

	"quaderno/internal/application"
	"quaderno/internal/domain"
	"quaderno/internal/ports"
)

// SearchResult is a page that matched a search, with the best matching
// line (-1 when only the title matched) and a relevance score
type SearchResult struct {
	PageID string
	Title  string
	Line   int
	Text   string
	Score  int
}

// SearchCommand searches page titles and lines with fuzzy matching
type SearchCommand struct {
	store  ports.PageStore
	UserID string
	Query  string
}

// NewSearchCommand creates a new SearchCommand
func NewSearchCommand(store ports.PageStore, userID, query string) *SearchCommand {
	return &SearchCommand{
		store:  store,
		UserID: userID,
		Query:  query,
	}
}

// Execute runs the search command and returns scored, sorted results
func (c *SearchCommand) Execute(ctx context.Context) ([]SearchResult, error) {
	if len(c.Query) < 2 {
		return nil, nil
	}

	pages, err := c.store.Fetch(ctx, c.UserID)
	if err != nil {
		return nil, &application.TransportError{Op: "fetch pages", Err: err}
	}

	return FuzzySort(pages, c.Query), nil
}

// FuzzyScore calculates a relevance score for how well target matches query
func FuzzyScore(target, query string) int {
	target = strings.ToLower(target)
	query = strings.ToLower(query)

	if len(query) == 0 {
		return 0
	}

	if strings.Contains(target, query) {
		score := 100
		if strings.HasPrefix(target, query) {
			score += 50
		}
		return score
	}

	// characters in order, rewarding runs and word starts
	score := 0
	queryIdx := 0
	prevMatchIdx := -1

	for i := 0; i < len(target) && queryIdx < len(query); i++ {
		if target[i] != query[queryIdx] {
			continue
		}
		if prevMatchIdx == i-1 {
			score += 10
		}
		if i == 0 {
			score += 15
		}
		if i > 0 && strings.ContainsRune(" -#[", rune(target[i-1])) {
			score += 10
		}
		score++
		prevMatchIdx = i
		queryIdx++
	}

	if queryIdx == len(query) {
		return score
	}
	return 0
}

// FuzzySort scores every live page against query and returns the matches
// by relevance. Titles outrank lines on equal scores.
func FuzzySort(pages []domain.Page, query string) []SearchResult {
	scored := make([]SearchResult, 0, len(pages))

	for _, p := range pages {
		if p.Deleted {
			continue
		}
		best := SearchResult{PageID: p.ID, Title: p.Title, Line: -1, Score: FuzzyScore(p.Title, query)}
		for i, line := range p.Lines() {
			text := domain.BulletText(domain.StripIndent(line))
			if s := FuzzyScore(text, query); s > best.Score {
				best.Line, best.Text, best.Score = i, text, s
			}
		}
		if best.Score > 0 {
			scored = append(scored, best)
		}
	}

	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].Title < scored[j].Title
	})

	return scored
}
