package mcp

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"quaderno/internal/application/commands"
	"quaderno/internal/application/reconcile"
)

// RegisterWriteTools adds the page editing tools to the MCP server.
// Edits go through the reconciliation loop and are saved after the
// debounce window.
func RegisterWriteTools(s *server.MCPServer, w *Workspace) {
	s.AddTool(setLineTool(), setLineHandler(w))
	s.AddTool(editTool(), editHandler(w))
	s.AddTool(createTool(), createHandler(w))
	s.AddTool(renameTool(), renameHandler(w))
	s.AddTool(deleteTool(), deleteHandler(w))
	s.AddTool(reloadTool(), reloadHandler(w))
}

// --- set_line ---

func setLineTool() mcp.Tool {
	return mcp.NewTool("set_line",
		mcp.WithDescription("Replace the content of one line, keeping its indentation. Editing a line under a formula edits the source page it came from."),
		mcp.WithString("title", mcp.Description("Page title"), mcp.Required()),
		mcp.WithNumber("line", mcp.Description("Line number as shown by read_page"), mcp.Required()),
		mcp.WithString("content", mcp.Description("New line content, e.g. \"- DONE buy milk\""), mcp.Required()),
	)
}

func setLineHandler(w *Workspace) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		p, err := w.page(ctx, req.GetString("title", ""))
		if err != nil {
			return toolError(err)
		}
		line := req.GetInt("line", -1)
		if err := w.Loop.SetLine(ctx, p.ID, line, req.GetString("content", "")); err != nil {
			return toolError(err)
		}
		return mcp.NewToolResultText(fmt.Sprintf("Updated %s line %d", p.Title, line)), nil
	}
}

// --- edit_page ---

func editTool() mcp.Tool {
	return mcp.NewTool("edit_page",
		mcp.WithDescription("Apply a structural edit to a line: indent, outdent, delete (with its children) or prepend-child."),
		mcp.WithString("title", mcp.Description("Page title"), mcp.Required()),
		mcp.WithNumber("line", mcp.Description("Line number as shown by read_page"), mcp.Required()),
		mcp.WithString("op",
			mcp.Description("Edit to apply"),
			mcp.Enum("indent", "outdent", "delete", "prepend-child"),
			mcp.Required(),
		),
	)
}

func editHandler(w *Workspace) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		op, err := reconcile.ParseEditOp(req.GetString("op", ""))
		if err != nil {
			return toolError(err)
		}
		p, err := w.page(ctx, req.GetString("title", ""))
		if err != nil {
			return toolError(err)
		}
		line := req.GetInt("line", -1)
		if err := w.Loop.ApplyEdit(ctx, p.ID, op, line); err != nil {
			return toolError(err)
		}
		return mcp.NewToolResultText(fmt.Sprintf("Applied %s to %s line %d", op, p.Title, line)), nil
	}
}

// --- create_page ---

func createTool() mcp.Tool {
	return mcp.NewTool("create_page",
		mcp.WithDescription("Create a page. With journal=true opens today's journal page, creating it if needed."),
		mcp.WithString("title", mcp.Description("Title of the new page. Ignored for journals.")),
		mcp.WithBoolean("journal", mcp.Description("Open today's journal page instead")),
	)
}

func createHandler(w *Workspace) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		cmd := commands.NewCreatePageCommand(w.Store, w.UserID, req.GetString("title", ""))
		if req.GetBool("journal", false) {
			cmd = commands.NewJournalCommand(w.Store, w.UserID, nil)
		}

		result, err := cmd.Execute(ctx)
		if err != nil {
			return toolError(err)
		}
		if !result.Existed {
			if err := w.Loop.Track(ctx, *result.Page); err != nil {
				return toolError(err)
			}
		}
		return mcp.NewToolResultText(result.Message), nil
	}
}

// --- rename_page ---

func renameTool() mcp.Tool {
	return mcp.NewTool("rename_page",
		mcp.WithDescription("Give a page a new title. Formulas listing its lines pick up the new name."),
		mcp.WithString("title", mcp.Description("Current title"), mcp.Required()),
		mcp.WithString("new_title", mcp.Description("New title"), mcp.Required()),
	)
}

func renameHandler(w *Workspace) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		p, err := w.page(ctx, req.GetString("title", ""))
		if err != nil {
			return toolError(err)
		}

		result, err := commands.NewRenameCommand(w.Store, p.ID, req.GetString("new_title", "")).Execute(ctx)
		if err != nil {
			return toolError(err)
		}
		if err := w.Loop.Reload(ctx, p.ID); err != nil {
			return toolError(err)
		}
		return mcp.NewToolResultText(result.Message), nil
	}
}

// --- delete_page ---

func deleteTool() mcp.Tool {
	return mcp.NewTool("delete_page",
		mcp.WithDescription("Delete a page. Lines it contributed to formulas disappear from them."),
		mcp.WithString("title", mcp.Description("Page title"), mcp.Required()),
	)
}

func deleteHandler(w *Workspace) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		p, err := w.page(ctx, req.GetString("title", ""))
		if err != nil {
			return toolError(err)
		}

		result, err := commands.NewDeleteCommand(w.Store, p.ID).Execute(ctx)
		if err != nil {
			return toolError(err)
		}
		if err := w.Loop.Forget(ctx, p.ID); err != nil {
			return toolError(err)
		}
		return mcp.NewToolResultText(result.Message), nil
	}
}

// --- reload_page ---

func reloadTool() mcp.Tool {
	return mcp.NewTool("reload_page",
		mcp.WithDescription("Discard local changes to a page and load the stored copy. Clears a conflict."),
		mcp.WithString("title", mcp.Description("Page title"), mcp.Required()),
	)
}

func reloadHandler(w *Workspace) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		p, err := w.page(ctx, req.GetString("title", ""))
		if err != nil {
			return toolError(err)
		}
		if err := w.Loop.Reload(ctx, p.ID); err != nil {
			return toolError(err)
		}
		return mcp.NewToolResultText(fmt.Sprintf("Reloaded %s", p.Title)), nil
	}
}
