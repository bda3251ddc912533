package cmd

import (
	"log/slog"
	"os"
	"path/filepath"

	"github.com/jcdickinson/xmldocmd/internal/config"
	"github.com/jcdickinson/xmldocmd/internal/logging"
	"github.com/jcdickinson/xmldocmd/internal/mcp"
	"github.com/spf13/cobra"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the published library as an MCP server over stdio",
	Run:   runMCP,
}

func runMCP(cmd *cobra.Command, args []string) {
	// stdout carries the protocol, so logs go to a file.
	logPath := config.LogPath()
	if err := os.MkdirAll(filepath.Dir(logPath), 0755); err != nil {
		slog.Error("failed to create log directory", "error", err)
		os.Exit(1)
	}
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		slog.Error("failed to open log file", "error", err)
		os.Exit(1)
	}
	defer logFile.Close()

	level := logLevel
	if level == "" {
		level = cfg.Log.Level
	}
	logging.SetupFile(logFile, level)

	lib, closeLib, err := openLibrary()
	if err != nil {
		slog.Error("failed to open library", "error", err)
		os.Exit(1)
	}
	defer closeLib()

	slog.Info("mcp server starting", "version", Version)
	if err := mcp.NewServer(lib, Version).Run(); err != nil {
		slog.Error("mcp server failed", "error", err)
		os.Exit(1)
	}
}
