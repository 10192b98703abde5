// Package main is the entry point for the px record service.
//
// The main package stays minimal. Its job is to:
// 1. Read configuration from environment variables
// 2. Create the logger
// 3. Start the server
//
// All actual logic lives in internal/server and below.
//
// Environment:
//
//	PORT             listen port (default 8080)
//	DB_PATH          SQLite file (default data/px.db)
//	PX_ADMIN_SECRET  admin credential, plain or bcrypt hash
//	PX_AGENT_SECRET  agent credential, plain or bcrypt hash
//	LOG_LEVEL        debug, info, warn or error (default info)
//
// "px-server hash-secret <secret>" prints a bcrypt hash suitable for the
// *_SECRET variables and exits.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/sakif/px/internal/auth"
	"github.com/sakif/px/internal/server"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "hash-secret" {
		os.Exit(hashSecret(os.Args[2:]))
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLevel(os.Getenv("LOG_LEVEL")),
	}))

	port := 8080
	if portStr := os.Getenv("PORT"); portStr != "" {
		var err error
		port, err = strconv.Atoi(portStr)
		if err != nil || port <= 0 || port > 65535 {
			logger.Error("invalid PORT value", slog.String("value", portStr))
			os.Exit(1)
		}
	}

	dbPath := "data/px.db"
	if envDB := os.Getenv("DB_PATH"); envDB != "" {
		dbPath = envDB
	}

	// os.MkdirAll is like `mkdir -p`.
	if dbPath != ":memory:" {
		dbDir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dbDir, 0755); err != nil {
			logger.Error("failed to create database directory",
				slog.String("dir", dbDir),
				slog.String("error", err.Error()),
			)
			os.Exit(1)
		}
	}

	cfg := server.Config{
		Port:        port,
		DBPath:      dbPath,
		AdminSecret: os.Getenv("PX_ADMIN_SECRET"),
		AgentSecret: os.Getenv("PX_AGENT_SECRET"),
	}

	srv, err := server.New(cfg, logger)
	if err != nil {
		logger.Error("failed to create server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Start() blocks until the server is shut down (via Ctrl+C or SIGTERM)
	if err := srv.Start(); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func hashSecret(args []string) int {
	if len(args) != 1 {
		fmt.Fprintln(os.Stderr, "usage: px-server hash-secret <secret>")
		return 2
	}
	hash, err := auth.HashSecret(args[0], 0)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return 1
	}
	fmt.Println(hash)
	return 0
}
