package main

import (
	"context"
	"flag"
	"log"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	mcpadapter "quaderno/internal/adapters/mcp"
	"quaderno/internal/config"
	"quaderno/internal/logging"
	"quaderno/internal/workspace"
)

const version = "0.1.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("quaderno-mcp: %v", err)
	}
	userFlag := flag.String("user", cfg.User, "user whose pages are served")
	dbFlag := flag.String("db", cfg.Database, "path to the page database")
	flag.Parse()
	cfg.User, cfg.Database = *userFlag, *dbFlag

	// stdout carries the protocol; logs go to stderr and the log file
	logger, closer, err := logging.New(logging.Config{
		Level:   cfg.LogLevel,
		File:    cfg.LogFile,
		Service: "quaderno-mcp",
		JSON:    true,
	})
	if err != nil {
		log.Fatalf("quaderno-mcp: %v", err)
	}
	defer closer.Close()

	ctx := context.Background()
	ws, err := workspace.Open(ctx, &cfg, workspace.Options{Logger: logger})
	if err != nil {
		log.Fatalf("quaderno-mcp: %v", err)
	}
	defer ws.Close()
	stop := ws.Start(ctx)
	defer stop()

	mcpServer := server.NewMCPServer(
		"quaderno-mcp",
		version,
		server.WithToolCapabilities(true),
	)

	mcpServer.AddTool(
		mcp.NewTool("ping",
			mcp.WithDescription("Health check, returns pong"),
		),
		func(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return mcp.NewToolResultText("pong"), nil
		},
	)

	w := &mcpadapter.Workspace{Loop: ws.Loop, Store: ws.Store, Formulas: ws.Formulas, UserID: cfg.User}
	mcpadapter.RegisterReadTools(mcpServer, w)
	mcpadapter.RegisterWriteTools(mcpServer, w)

	serveErr := server.ServeStdio(mcpServer)

	sctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := ws.Settle(sctx); err != nil {
		logger.Warn("exiting with unsaved pages", "error", err)
	}
	if serveErr != nil {
		logger.Error("server stopped", "error", serveErr)
	}
}
