package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/MakeNowJust/heredoc"
	"github.com/spf13/cobra"
	"golang.org/x/net/html"

	"github.com/yourorg/docpilot/internal/export"
	"github.com/yourorg/docpilot/internal/generator"
	"github.com/yourorg/docpilot/internal/har"
	"github.com/yourorg/docpilot/internal/mcpserver"
	"github.com/yourorg/docpilot/internal/parser"
	"github.com/yourorg/docpilot/internal/server"
	"github.com/yourorg/docpilot/pkg/types"
)

func newParseCmd(opts *rootOptions) *cobra.Command {
	var pageURL, file, pageOverride string
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "parse",
		Short: "Detect API documentation on a page and store the schema",
		Example: heredoc.Doc(`
			docpilot parse --url https://petstore.swagger.io/
			docpilot parse --file saved.html --page-url https://docs.example.com/api
		`),
		RunE: func(cmd *cobra.Command, args []string) error {
			if (pageURL == "") == (file == "") {
				return errors.New("exactly one of --url or --file is required")
			}
			a, err := openApp(cmd, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			p := a.parser()
			var root *html.Node
			if file != "" {
				f, err := os.Open(file)
				if err != nil {
					return err
				}
				defer f.Close()
				if root, err = parser.ParseHTML(f); err != nil {
					return err
				}
			} else {
				if root, err = p.FetchPage(cmd.Context(), pageURL); err != nil {
					return err
				}
			}
			base := pageURL
			if pageOverride != "" {
				base = pageOverride
			}
			doc := p.Parse(cmd.Context(), root, base)
			if doc == nil {
				return errors.New("no API documentation detected")
			}
			if err := a.store.SaveSchema(doc); err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), doc)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\t%d endpoints\n", doc.Schema.ID, doc.Type, doc.Schema.Title, len(doc.Schema.Endpoints))
			return nil
		},
	}
	cmd.Flags().StringVar(&pageURL, "url", "", "documentation page URL to fetch")
	cmd.Flags().StringVar(&file, "file", "", "saved HTML page")
	cmd.Flags().StringVar(&pageOverride, "page-url", "", "URL the page was loaded from, used to resolve relative links")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the parsed documentation as JSON")
	return cmd
}

func newImportCmd(opts *rootOptions) *cobra.Command {
	var harPath string
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Build a schema from captured traffic in a HAR file",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd, opts)
			if err != nil {
				return err
			}
			defer a.Close()
			doc, err := har.ParseFile(harPath, a.cfg.HAR)
			if err != nil {
				return err
			}
			if err := a.store.SaveSchema(doc); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%d endpoints\n", doc.Schema.ID, doc.Schema.Title, len(doc.Schema.Endpoints))
			return nil
		},
	}
	cmd.Flags().StringVar(&harPath, "har", "", "HAR file path")
	_ = cmd.MarkFlagRequired("har")
	return cmd
}

func newListCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored schemas",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd, opts)
			if err != nil {
				return err
			}
			defer a.Close()
			docs, err := a.store.ListSchemas()
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tTYPE\tTITLE\tENDPOINTS\tPARSED")
			for _, d := range docs {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n", d.Schema.ID, d.Type, d.Schema.Title, len(d.Schema.Endpoints), d.Schema.ParsedAt.Format("2006-01-02 15:04"))
			}
			return tw.Flush()
		},
	}
}

func newShowCmd(opts *rootOptions) *cobra.Command {
	var schemaID string
	var history int
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show a stored schema and its recent queries",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd, opts)
			if err != nil {
				return err
			}
			defer a.Close()
			doc, err := a.schema(schemaID)
			if err != nil {
				return err
			}
			queries, err := a.store.ListQueries(schemaID, history)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), struct {
				Documentation *types.ParsedDocumentation `json:"documentation"`
				Queries       []types.QueryRecord        `json:"queries"`
			}{doc, queries})
		},
	}
	cmd.Flags().StringVar(&schemaID, "schema", "", "schema id")
	cmd.Flags().IntVar(&history, "history", 10, "number of recent queries to include")
	_ = cmd.MarkFlagRequired("schema")
	return cmd
}

func newDeleteCmd(opts *rootOptions) *cobra.Command {
	var schemaID string
	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete a schema and its query history",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd, opts)
			if err != nil {
				return err
			}
			defer a.Close()
			if err := a.store.DeleteSchema(schemaID); err != nil {
				return fmt.Errorf("schema %s: %w", schemaID, err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "deleted", schemaID)
			return nil
		},
	}
	cmd.Flags().StringVar(&schemaID, "schema", "", "schema id")
	_ = cmd.MarkFlagRequired("schema")
	return cmd
}

func newGenerateCmd(opts *rootOptions) *cobra.Command {
	var schemaID, query string
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Turn a natural-language request into an API call",
		Example: heredoc.Doc(`
			docpilot generate --schema 6f1c... --query "Create a new user named alice"
		`),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd, opts)
			if err != nil {
				return err
			}
			defer a.Close()
			doc, err := a.schema(schemaID)
			if err != nil {
				return err
			}
			call, source := a.generator().GenerateWithSource(cmd.Context(), query, &doc.Schema)
			valid := generator.Validate(call, &doc.Schema)
			rec := &types.QueryRecord{SchemaID: schemaID, Text: query, Call: a.redactor().Call(*call), Source: source, Valid: valid}
			if err := a.store.SaveQuery(rec); err != nil {
				a.logger.Warn("record query failed", "error", err)
			}
			return writeJSON(cmd.OutOrStdout(), struct {
				Call   *types.GeneratedApiCall `json:"call"`
				Valid  bool                    `json:"valid"`
				Source types.CallSource        `json:"source"`
			}{call, valid, source})
		},
	}
	cmd.Flags().StringVar(&schemaID, "schema", "", "schema id")
	cmd.Flags().StringVar(&query, "query", "", "natural-language request")
	_ = cmd.MarkFlagRequired("schema")
	_ = cmd.MarkFlagRequired("query")
	return cmd
}

func newValidateCmd(opts *rootOptions) *cobra.Command {
	var schemaID, callFile string
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check a call (JSON file) against a stored schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd, opts)
			if err != nil {
				return err
			}
			defer a.Close()
			doc, err := a.schema(schemaID)
			if err != nil {
				return err
			}
			data, err := os.ReadFile(callFile)
			if err != nil {
				return err
			}
			var call types.GeneratedApiCall
			if err := json.Unmarshal(data, &call); err != nil {
				return fmt.Errorf("decode call: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), strconv.FormatBool(generator.Validate(&call, &doc.Schema)))
			return nil
		},
	}
	cmd.Flags().StringVar(&schemaID, "schema", "", "schema id")
	cmd.Flags().StringVar(&callFile, "call-file", "", "JSON file holding a generated call")
	_ = cmd.MarkFlagRequired("schema")
	_ = cmd.MarkFlagRequired("call-file")
	return cmd
}

func newSuggestCmd(opts *rootOptions) *cobra.Command {
	var schemaID string
	cmd := &cobra.Command{
		Use:   "suggest",
		Short: "Suggest requests for a stored schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd, opts)
			if err != nil {
				return err
			}
			defer a.Close()
			doc, err := a.schema(schemaID)
			if err != nil {
				return err
			}
			for _, s := range generator.SuggestQueries(&doc.Schema) {
				fmt.Fprintln(cmd.OutOrStdout(), s)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&schemaID, "schema", "", "schema id")
	_ = cmd.MarkFlagRequired("schema")
	return cmd
}

func newExplainCmd(opts *rootOptions) *cobra.Command {
	var schemaID, method, path string
	cmd := &cobra.Command{
		Use:   "explain",
		Short: "Ask the model to explain one endpoint",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd, opts)
			if err != nil {
				return err
			}
			defer a.Close()
			doc, err := a.schema(schemaID)
			if err != nil {
				return err
			}
			for _, ep := range doc.Schema.Endpoints {
				if ep.Path != path || !strings.EqualFold(ep.Method, method) {
					continue
				}
				text, err := generator.Explain(cmd.Context(), a.chatter(), ep)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), text)
				return nil
			}
			return fmt.Errorf("endpoint %s %s not found", method, path)
		},
	}
	cmd.Flags().StringVar(&schemaID, "schema", "", "schema id")
	cmd.Flags().StringVar(&method, "method", "GET", "endpoint method")
	cmd.Flags().StringVar(&path, "path", "", "endpoint path as documented")
	_ = cmd.MarkFlagRequired("schema")
	_ = cmd.MarkFlagRequired("path")
	return cmd
}

func newExportCmd(opts *rootOptions) *cobra.Command {
	var schemaID, format, out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export a schema as OpenAPI (yaml/json) or Markdown",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd, opts)
			if err != nil {
				return err
			}
			defer a.Close()
			doc, err := a.schema(schemaID)
			if err != nil {
				return err
			}
			if out == "" || out == "-" {
				return export.Write(cmd.OutOrStdout(), &doc.Schema, format)
			}
			f, err := os.Create(out)
			if err != nil {
				return err
			}
			if err := export.Write(f, &doc.Schema, format); err != nil {
				_ = f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "wrote", out)
			return nil
		},
	}
	cmd.Flags().StringVar(&schemaID, "schema", "", "schema id")
	cmd.Flags().StringVar(&format, "format", export.FormatOpenAPI, "openapi | openapi-json | markdown")
	cmd.Flags().StringVar(&out, "out", "", "output file (default stdout)")
	_ = cmd.MarkFlagRequired("schema")
	return cmd
}

func newServeCmd(opts *rootOptions) *cobra.Command {
	var host string
	var port int
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP service used by the browser extension",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd, opts)
			if err != nil {
				return err
			}
			defer a.Close()
			if cmd.Flags().Changed("host") {
				a.cfg.Server.Host = host
			}
			if cmd.Flags().Changed("port") {
				a.cfg.Server.Port = port
			}
			srvOpts := []server.Option{server.WithGenerator(a.generator()), server.WithLogger(a.logger)}
			if chat := a.chatter(); chat != nil {
				srvOpts = append(srvOpts, server.WithChatter(chat))
			}
			srv, err := server.New(a.cfg, a.store, srvOpts...)
			if err != nil {
				return err
			}
			addr := net.JoinHostPort(a.cfg.Server.Host, strconv.Itoa(a.cfg.Server.Port))
			a.logger.Info("listening", "addr", "http://"+addr)
			return srv.ListenAndServe(cmd.Context(), addr)
		},
	}
	cmd.Flags().StringVar(&host, "host", "127.0.0.1", "server host")
	cmd.Flags().IntVar(&port, "port", 3000, "server port")
	return cmd
}

func newMCPCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Run as an MCP server over stdio",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd, opts)
			if err != nil {
				return err
			}
			defer a.Close()
			return mcpserver.New(a.store, a.parser(), a.generator(), a.logger, version).Run(cmd.Context())
		},
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
