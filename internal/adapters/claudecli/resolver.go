package claudecli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"regexp"
	"strings"

	"quaderno/internal/domain"
	"quaderno/internal/ports"
)

// Resolver implements ports.QueryResolver using the Claude Code CLI. It
// answers natural-language formulas that no built-in form recognizes.
type Resolver struct {
	model    string
	maxLines int
	run      func(ctx context.Context, args ...string) ([]byte, error)
}

// Ensure Resolver implements QueryResolver
var _ ports.QueryResolver = (*Resolver)(nil)

// Option configures the Resolver
type Option func(*Resolver)

// WithModel sets the Claude model to use
func WithModel(model string) Option {
	return func(r *Resolver) {
		if model != "" {
			r.model = model
		}
	}
}

// WithMaxLines caps how many page lines are sent in one prompt
func WithMaxLines(n int) Option {
	return func(r *Resolver) {
		if n > 0 {
			r.maxLines = n
		}
	}
}

// NewResolver creates a new Claude CLI resolver
func NewResolver(opts ...Option) *Resolver {
	r := &Resolver{
		model:    "haiku", // fast enough to answer while the user types
		maxLines: 2000,
		run:      runClaude,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// IsAvailable checks if the claude CLI is installed and accessible
func (r *Resolver) IsAvailable() bool {
	_, err := exec.LookPath("claude")
	return err == nil
}

// claudeResponse represents the JSON output from claude CLI
type claudeResponse struct {
	Type       string `json:"type"`
	Subtype    string `json:"subtype"`
	IsError    bool   `json:"is_error"`
	Result     string `json:"result"`
	DurationMS int    `json:"duration_ms"`
	SessionID  string `json:"session_id"`
}

// answerJSON is the shape the prompt asks Claude to answer in
type answerJSON struct {
	Kind  string `json:"kind"` // "text", "nodes" or "none"
	Text  string `json:"text,omitempty"`
	Nodes []struct {
		Page string `json:"page"`
		Line int    `json:"line"`
	} `json:"nodes,omitempty"`
}

// Resolve asks Claude to answer formula over pages. A "none" answer is
// reported as unresolved (nil result, nil error).
func (r *Resolver) Resolve(ctx context.Context, formula string, pages []domain.Page) (*domain.FormulaResult, error) {
	prompt := buildPrompt(formula, pages, r.maxLines)

	output, err := r.run(ctx, "-p", prompt, "--output-format", "json", "--model", r.model)
	if err != nil {
		return nil, err
	}

	var response claudeResponse
	if err := json.Unmarshal(output, &response); err != nil {
		return nil, fmt.Errorf("failed to parse claude response: %w", err)
	}
	if response.IsError {
		return nil, fmt.Errorf("claude returned an error: %s", response.Result)
	}

	return parseAnswer(response.Result, pages)
}

func runClaude(ctx context.Context, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "claude", args...)
	output, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil, fmt.Errorf("claude CLI error: %s", strings.TrimSpace(string(exitErr.Stderr)))
		}
		return nil, fmt.Errorf("claude CLI error: %w", err)
	}
	return output, nil
}

func buildPrompt(formula string, pages []domain.Page, maxLines int) string {
	var corpus strings.Builder
	sent := 0
	for _, p := range pages {
		if p.Deleted || sent >= maxLines {
			continue
		}
		fmt.Fprintf(&corpus, "\n### Page: %s\n", p.Title)
		for i, line := range p.Lines() {
			if sent >= maxLines {
				break
			}
			fmt.Fprintf(&corpus, "%d: %s\n", i, line)
			sent++
		}
	}

	return fmt.Sprintf(`You answer formulas written inside an outliner. Each page is a list of
numbered lines (line numbers start at 0, indentation shows nesting).

Formula: %q

Pages:
%s

Answer in one of two ways:
- If the formula asks for lines from the pages, return the matching lines.
- If it asks a question with a short answer (a number, a word, a sentence), return the text.
If you cannot answer, return kind "none".

Return ONLY a JSON object (no markdown, no code blocks), one of:
{"kind": "nodes", "nodes": [{"page": "Groceries", "line": 3}]}
{"kind": "text", "text": "42"}
{"kind": "none"}`, formula, corpus.String())
}

var codeBlockRe = regexp.MustCompile("```(?:json)?\\s*\\n?([\\s\\S]*?)\\n?```")

// parseAnswer extracts the answer object from Claude's response. Node
// answers are rebuilt from the page text so a cached line always matches
// its page; references to missing pages or lines are dropped.
func parseAnswer(result string, pages []domain.Page) (*domain.FormulaResult, error) {
	result = strings.TrimSpace(result)

	if matches := codeBlockRe.FindStringSubmatch(result); len(matches) > 1 {
		result = strings.TrimSpace(matches[1])
	}

	start := strings.Index(result, "{")
	end := strings.LastIndex(result, "}")
	if start == -1 || end == -1 || end <= start {
		return nil, fmt.Errorf("no valid JSON object found in response")
	}

	jsonStr := result[start : end+1]
	var raw answerJSON
	if err := json.Unmarshal([]byte(jsonStr), &raw); err != nil {
		return nil, fmt.Errorf("failed to parse answer JSON: %w (json: %s)", err, jsonStr)
	}

	switch raw.Kind {
	case "none":
		return nil, nil

	case "text":
		if strings.TrimSpace(raw.Text) == "" {
			return nil, nil
		}
		// the cached result sits on one line inside {result: ...}
		text := strings.Join(strings.Fields(raw.Text), " ")
		return &domain.FormulaResult{Kind: domain.ResultText, Text: text}, nil

	case "nodes":
		byTitle := make(map[string]*domain.Page, len(pages))
		for i := range pages {
			if !pages[i].Deleted {
				byTitle[pages[i].Title] = &pages[i]
			}
		}
		seen := make(map[string]bool)
		nodes := make([]domain.NodeMarkdown, 0, len(raw.Nodes))
		for _, n := range raw.Nodes {
			p, ok := byTitle[n.Page]
			if !ok {
				continue
			}
			line, ok := p.Line(n.Line)
			if !ok {
				continue
			}
			nm := domain.NodeMarkdown{
				NodeMarkdown: domain.StripIndent(line),
				PageName:     p.Title,
				LineNumber:   n.Line,
			}
			if seen[nm.Key()] {
				continue
			}
			seen[nm.Key()] = true
			nodes = append(nodes, nm)
		}
		domain.SortNodeMarkdown(nodes)
		return &domain.FormulaResult{Kind: domain.ResultNodes, Nodes: nodes}, nil

	default:
		return nil, fmt.Errorf("unknown answer kind %q", raw.Kind)
	}
}
