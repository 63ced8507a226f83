package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"quaderno/internal/application/commands"
	"quaderno/internal/application/formula"
	"quaderno/internal/application/reconcile"
	"quaderno/internal/domain"
	"quaderno/internal/ports"
)

// Workspace is what the tools act on: a running reconciliation loop and
// the store behind it
type Workspace struct {
	Loop     *reconcile.Loop
	Store    ports.PageStore
	Formulas *formula.Service
	UserID   string
}

// pages returns a snapshot of the live pages
func (w *Workspace) pages(ctx context.Context) ([]domain.Page, error) {
	var pages []domain.Page
	err := w.Loop.Inspect(ctx, func(e *reconcile.Engine) {
		pages = e.Pages()
	})
	return pages, err
}

// page returns a snapshot of the live page with the given title
func (w *Workspace) page(ctx context.Context, title string) (domain.Page, error) {
	var (
		p  domain.Page
		ok bool
	)
	if err := w.Loop.Inspect(ctx, func(e *reconcile.Engine) {
		p, ok = e.PageByTitle(title)
	}); err != nil {
		return p, err
	}
	if !ok {
		return p, fmt.Errorf("page not found: %s", title)
	}
	return p, nil
}

// RegisterReadTools adds the read-only page tools to the MCP server.
func RegisterReadTools(s *server.MCPServer, w *Workspace) {
	s.AddTool(listTool(), listHandler(w))
	s.AddTool(readTool(), readHandler(w))
	s.AddTool(searchTool(), searchHandler(w))
	s.AddTool(formulaTool(), formulaHandler(w))
}

// --- list_pages ---

func listTool() mcp.Tool {
	return mcp.NewTool("list_pages",
		mcp.WithDescription("List pages by title with their revision and sync status."),
		mcp.WithString("kind",
			mcp.Description("Which pages to list"),
			mcp.Enum("all", "journals", "pages"),
		),
	)
}

func listHandler(w *Workspace) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		kind := req.GetString("kind", "all")

		pages, err := w.pages(ctx)
		if err != nil {
			return toolError(err)
		}

		var filtered []domain.Page
		for _, p := range pages {
			switch {
			case kind == "journals" && !p.IsJournal:
			case kind == "pages" && p.IsJournal:
			default:
				filtered = append(filtered, p)
			}
		}
		return formatEntities(filtered, formatPage)
	}
}

// --- read_page ---

func readTool() mcp.Tool {
	return mcp.NewTool("read_page",
		mcp.WithDescription("Read a page as numbered outline lines. Line numbers are what set_line and edit_page expect."),
		mcp.WithString("title",
			mcp.Description("Page title (journal pages are titled YYYY-MM-DD)"),
			mcp.Required(),
		),
	)
}

func readHandler(w *Workspace) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		title := req.GetString("title", "")
		if title == "" {
			return toolError(fmt.Errorf("title is required"))
		}

		p, err := w.page(ctx, title)
		if err != nil {
			return toolError(err)
		}

		var sb strings.Builder
		fmt.Fprintf(&sb, "# %s (rev %d, %s)\n", p.Title, p.RevisionNumber, p.Status)
		for i, line := range p.Lines() {
			fmt.Fprintf(&sb, "%3d  %s\n", i, line)
		}
		return mcp.NewToolResultText(sb.String()), nil
	}
}

// --- search_pages ---

func searchTool() mcp.Tool {
	return mcp.NewTool("search_pages",
		mcp.WithDescription("Fuzzy search page titles and lines. Returns the best matching line per page."),
		mcp.WithString("query",
			mcp.Description("Search query (at least two characters)"),
			mcp.Required(),
		),
	)
}

func searchHandler(w *Workspace) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query := req.GetString("query", "")
		if len(query) < 2 {
			return toolError(fmt.Errorf("query must be at least two characters"))
		}

		pages, err := w.pages(ctx)
		if err != nil {
			return toolError(err)
		}

		results := commands.FuzzySort(pages, query)
		if len(results) == 0 {
			return mcp.NewToolResultText("No results found."), nil
		}

		var sb strings.Builder
		for _, r := range results {
			if r.Line < 0 {
				fmt.Fprintf(&sb, "%s\n", r.Title)
				continue
			}
			fmt.Fprintf(&sb, "%s:%d  %s\n", r.Title, r.Line, r.Text)
		}
		return mcp.NewToolResultText(sb.String()), nil
	}
}

// --- run_formula ---

func formulaTool() mcp.Tool {
	return mcp.NewTool("run_formula",
		mcp.WithDescription("Evaluate a formula over all pages without adding it to a page. Built-ins: find(regex), count(regex), tagged(tag), linked(page); anything else is answered in natural language."),
		mcp.WithString("formula",
			mcp.Description("Formula text without the leading ="),
			mcp.Required(),
		),
	)
}

func formulaHandler(w *Workspace) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query := strings.TrimPrefix(strings.TrimSpace(req.GetString("formula", "")), "=")
		if query == "" {
			return toolError(fmt.Errorf("formula is required"))
		}

		pages, err := w.pages(ctx)
		if err != nil {
			return toolError(err)
		}

		res, err := w.Formulas.Run(ctx, query, pages)
		if err != nil {
			return toolError(err)
		}
		return mcp.NewToolResultText(formatResult(res)), nil
	}
}

func formatResult(res *domain.FormulaResult) string {
	if res == nil {
		return "No answer."
	}
	if res.Kind == domain.ResultText {
		return res.Text
	}
	if len(res.Nodes) == 0 {
		return "No matching lines."
	}
	var sb strings.Builder
	for _, n := range res.Nodes {
		fmt.Fprintf(&sb, "%s:%d  %s\n", n.PageName, n.LineNumber, n.NodeMarkdown)
	}
	return sb.String()
}

func toolError(err error) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultError(err.Error()), nil
}

func formatEntities[T any](entities []T, format func(T) string) (*mcp.CallToolResult, error) {
	if len(entities) == 0 {
		return mcp.NewToolResultText("No results."), nil
	}
	var sb strings.Builder
	for _, e := range entities {
		sb.WriteString(format(e))
		sb.WriteByte('\n')
	}
	return mcp.NewToolResultText(sb.String()), nil
}

func formatPage(p domain.Page) string {
	kind := "page"
	if p.IsJournal {
		kind = "journal"
	}
	return fmt.Sprintf("%s  [%s, rev %d, %s]", p.Title, kind, p.RevisionNumber, p.Status)
}
