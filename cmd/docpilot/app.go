package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/yourorg/docpilot/internal/config"
	"github.com/yourorg/docpilot/internal/generator"
	"github.com/yourorg/docpilot/internal/logging"
	"github.com/yourorg/docpilot/internal/parser"
	"github.com/yourorg/docpilot/internal/sanitize"
	"github.com/yourorg/docpilot/internal/store"
	"github.com/yourorg/docpilot/internal/telemetry"
	"github.com/yourorg/docpilot/pkg/types"
)

// app is the wiring shared by every command that touches the store.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    *store.SQLiteStore
	shutdown telemetry.ShutdownFunc
}

func openApp(cmd *cobra.Command, opts *rootOptions) (*app, error) {
	cfg, err := config.Load(opts.cfgPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	level := cfg.Log.Level
	if opts.debug {
		level = "debug"
	}
	logger := logging.New(level, cmd.ErrOrStderr())

	shutdown, err := telemetry.Setup(cmd.Context(), telemetry.Config{
		Endpoint:    cfg.Telemetry.Endpoint,
		Insecure:    cfg.Telemetry.Insecure,
		Headers:     cfg.Telemetry.Headers,
		ServiceName: cfg.Telemetry.ServiceName,
		Version:     version,
	})
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Store.Path), 0o755); err != nil {
		_ = shutdown(context.Background())
		return nil, err
	}
	st, err := store.NewSQLiteStore(cfg.Store.Path)
	if err != nil {
		_ = shutdown(context.Background())
		return nil, fmt.Errorf("open store: %w", err)
	}
	return &app{cfg: cfg, logger: logger, store: st, shutdown: shutdown}, nil
}

func (a *app) Close() {
	_ = a.store.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.shutdown(ctx); err != nil {
		a.logger.Warn("telemetry shutdown", "error", err)
	}
}

func (a *app) parser() *parser.Parser {
	return parser.New(a.cfg.Parser, parser.WithLogger(a.logger))
}

// chatter is nil when no model is configured.
func (a *app) chatter() generator.Chatter {
	if a.cfg.LLM.APIKey == "" {
		return nil
	}
	return generator.NewClient(a.cfg.LLM, a.logger)
}

// remote picks the configured remote. A misconfigured remote degrades to
// local-only generation.
func (a *app) remote() generator.Remote {
	if err := a.cfg.ValidateRemote(); err != nil {
		a.logger.Warn("remote generation disabled", "error", err)
		return nil
	}
	switch a.cfg.Generator.Remote {
	case config.RemoteLLM:
		return &generator.LLMRemote{Chat: a.chatter()}
	case config.RemoteService:
		return &generator.ServiceRemote{URL: a.cfg.Generator.ServiceURL}
	default:
		return nil
	}
}

func (a *app) generator() *generator.Generator {
	return generator.New(a.remote(), generator.FromConfig(a.cfg.Generator), generator.WithLogger(a.logger))
}

func (a *app) redactor() *sanitize.Redactor {
	return sanitize.New(a.cfg.Sanitize)
}

func (a *app) schema(id string) (*types.ParsedDocumentation, error) {
	doc, err := a.store.GetSchema(id)
	if err != nil {
		return nil, fmt.Errorf("schema %s: %w", id, err)
	}
	return doc, nil
}
