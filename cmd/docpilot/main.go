package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/MakeNowJust/heredoc"
	"github.com/spf13/cobra"

	"github.com/yourorg/docpilot/internal/config"
	"github.com/yourorg/docpilot/internal/store"
)

const version = "0.3.0"

const defaultConfigContent = `llm:
  provider: "openai"
  api_key: ""
  base_url: "https://api.openai.com/v1"
  model: "gpt-4o-mini"
  max_tokens: 1024
  temperature: 0.1

generator:
  # llm | service | none
  remote: "llm"
  service_url: ""
  timeout_ms: 12000
  max_retries: 2
  backoff_ms: 500

parser:
  fetch_timeout_ms: 10000
  evaluate_scripts: true
  script_timeout_ms: 2000

har:
  ignore_extensions: [.js, .css, .png, .jpg, .gif, .svg, .woff, .woff2, .ico, .map]
  ignore_content_types: [text/html, text/css, image/*, font/*, application/javascript]
  ignore_paths: [/static/, /assets/, /favicon]

sanitize:
  headers:
    - Authorization
    - Cookie
    - Set-Cookie
    - X-Api-Key
    - X-Auth-Token
  body_fields:
    - password
    - secret
    - token
    - api_key
    - access_token
    - refresh_token
    - credential
  replacement: "***REDACTED***"

server:
  host: "127.0.0.1"
  port: 3000
  cors_extension_id: ""

log:
  level: "info"

telemetry:
  endpoint: ""
  insecure: false
  service_name: "docpilot"
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// rootOptions carries the persistent flags into subcommands.
type rootOptions struct {
	cfgPath string
	debug   bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "docpilot",
		Short: "Turn API documentation pages into callable schemas",
		Long: heredoc.Doc(`
			docpilot detects API documentation on web pages (OpenAPI/Swagger specs,
			Swagger UI, Redoc, GraphQL explorers and endpoint tables), stores the
			normalized schema, and turns natural-language requests into API calls.

			It is the backend of the docpilot browser extension (docpilot serve) and
			can also run as an MCP server (docpilot mcp).
		`),
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&opts.cfgPath, "config", "", "config file path (.yaml or .toml)")
	root.PersistentFlags().BoolVar(&opts.debug, "debug", false, "enable debug logging")

	root.AddCommand(newInitCmd())
	root.AddCommand(newParseCmd(opts))
	root.AddCommand(newImportCmd(opts))
	root.AddCommand(newListCmd(opts))
	root.AddCommand(newShowCmd(opts))
	root.AddCommand(newDeleteCmd(opts))
	root.AddCommand(newGenerateCmd(opts))
	root.AddCommand(newValidateCmd(opts))
	root.AddCommand(newSuggestCmd(opts))
	root.AddCommand(newExplainCmd(opts))
	root.AddCommand(newExportCmd(opts))
	root.AddCommand(newServeCmd(opts))
	root.AddCommand(newMCPCmd(opts))

	return root
}

func newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize ~/.docpilot directory and default config",
		RunE: func(cmd *cobra.Command, args []string) error {
			baseDir, err := config.Dir()
			if err != nil {
				return err
			}
			if err := os.MkdirAll(baseDir, 0o755); err != nil {
				return err
			}

			cfgFile := filepath.Join(baseDir, "config.yaml")
			if _, err := os.Stat(cfgFile); errors.Is(err, os.ErrNotExist) {
				if err := os.WriteFile(cfgFile, []byte(defaultConfigContent), 0o600); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "created", cfgFile)
			} else if err == nil {
				fmt.Fprintln(cmd.OutOrStdout(), "exists", cfgFile)
			} else {
				return err
			}

			dbPath := filepath.Join(baseDir, "docpilot.db")
			s, err := store.NewSQLiteStore(dbPath)
			if err != nil {
				return err
			}
			defer s.Close()
			fmt.Fprintln(cmd.OutOrStdout(), "database ready", dbPath)
			fmt.Fprintln(cmd.OutOrStdout(), "set llm.api_key in", cfgFile, "to enable model-backed generation")
			return nil
		},
	}
}
