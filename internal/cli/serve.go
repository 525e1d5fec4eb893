package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/signal"
	"strings"
	"syscall"

	"github.com/BearHuddleston/employee-mcp-server/internal/server"
	"github.com/BearHuddleston/employee-mcp-server/pkg/config"
	"github.com/BearHuddleston/employee-mcp-server/pkg/handlers"
	"github.com/BearHuddleston/employee-mcp-server/pkg/sqlgate"
	"github.com/BearHuddleston/employee-mcp-server/pkg/store"
	"github.com/BearHuddleston/employee-mcp-server/pkg/transport"
)

// errNoDatabase is returned when no database path was given.
var errNoDatabase = errors.New("usage: mcpserver <database_path>")

// serve opens the database and runs the configured transport until the
// input ends or a shutdown signal arrives.
func serve(ctx context.Context, cfg *config.Config, in io.Reader, out io.Writer, logger *slog.Logger) error {
	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	policy := sqlgate.PolicyFor(cfg.ReadOnly())
	gate := sqlgate.New(st, policy, logger)
	dbHandler := handlers.NewDatabase(gate, st, cfg.DefaultLimit, logger)

	mcpServer, err := server.New(cfg, dbHandler, logger)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	t, err := createTransport(cfg, in, out, logger)
	if err != nil {
		return fmt.Errorf("failed to create transport: %w", err)
	}

	// Set up graceful shutdown
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("serving database", "path", cfg.Database, "policy", policy.String(), "transport", cfg.TransportType)
	if err := t.Start(ctx, mcpServer); err != nil {
		return fmt.Errorf("transport start failed: %w", err)
	}
	return nil
}

func openStore(cfg *config.Config) (*store.Store, error) {
	if cfg.Database == "" {
		return nil, errNoDatabase
	}
	return store.Open(cfg.Database)
}

// createTransport creates the appropriate transport based on configuration
func createTransport(cfg *config.Config, in io.Reader, out io.Writer, logger *slog.Logger) (transport.Transport, error) {
	switch strings.ToLower(cfg.TransportType) {
	case config.TransportStdio:
		return transport.NewStdio(in, out, cfg.RequestTimeout, logger), nil
	case config.TransportHTTP:
		return transport.NewHTTP(cfg, logger), nil
	default:
		return nil, fmt.Errorf("invalid transport type: %s (must be 'stdio' or 'http')", cfg.TransportType)
	}
}
