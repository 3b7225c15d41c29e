package server

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"html/template"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/yourorg/docpilot/internal/config"
	"github.com/yourorg/docpilot/internal/export"
	"github.com/yourorg/docpilot/internal/generator"
	"github.com/yourorg/docpilot/internal/parser"
	"github.com/yourorg/docpilot/internal/sanitize"
	"github.com/yourorg/docpilot/internal/store"
	"github.com/yourorg/docpilot/pkg/types"
)

var (
	//go:embed ui.html
	uiHTML string

	uiTemplate = template.Must(template.New("ui").Parse(uiHTML))
)

const (
	maxRequestBytes    = 32 << 20
	defaultQueryLimit  = 20
	errNoDocumentation = "no API documentation detected"
)

// Server exposes parsing, generation and history over HTTP for the browser
// extension.
type Server struct {
	cfg        *config.Config
	store      store.Store
	generator  *generator.Generator
	completion *generator.Generator
	chat       generator.Chatter
	httpClient *http.Client
	redactor   *sanitize.Redactor
	logger     *slog.Logger
	mux        *http.ServeMux
}

type Option func(*Server)

// WithGenerator sets the generator used by /api/generate.
func WithGenerator(g *generator.Generator) Option {
	return func(s *Server) { s.generator = g }
}

// WithChatter enables /api/nl-to-api and /api/explain.
func WithChatter(c generator.Chatter) Option {
	return func(s *Server) { s.chat = c }
}

// WithHTTPClient sets the client used to fetch pages and spec files.
func WithHTTPClient(c *http.Client) Option {
	return func(s *Server) { s.httpClient = c }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

type uiData struct {
	Schemas []types.ParsedDocumentation
}

// apiResponse is the envelope of every /api response.
type apiResponse struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// New constructs a new Server with routes registered.
func New(cfg *config.Config, st store.Store, opts ...Option) (*Server, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	if st == nil {
		return nil, errors.New("store is nil")
	}

	srv := &Server{
		cfg:        cfg,
		store:      st,
		httpClient: http.DefaultClient,
		redactor:   sanitize.New(cfg.Sanitize),
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		mux:        http.NewServeMux(),
	}
	for _, opt := range opts {
		opt(srv)
	}
	if srv.generator == nil {
		srv.generator = generator.New(nil, generator.FromConfig(cfg.Generator), generator.WithLogger(srv.logger))
	}
	if srv.chat != nil {
		srv.completion = generator.New(&generator.LLMRemote{Chat: srv.chat}, generator.FromConfig(cfg.Generator), generator.WithLogger(srv.logger))
	}
	srv.registerRoutes()
	return srv, nil
}

// Handler returns the http handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// ListenAndServe serves on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	hs := &http.Server{Addr: addr, Handler: s.mux, ReadHeaderTimeout: 10 * time.Second}
	errCh := make(chan error, 1)
	go func() { errCh <- hs.ListenAndServe() }()
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := hs.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("/", s.handleIndex)

	s.mux.HandleFunc("/api/parse", s.cors(s.handleParse))
	s.mux.HandleFunc("/api/schemas", s.cors(s.handleSchemas))
	s.mux.HandleFunc("/api/schemas/", s.cors(s.handleSchemaRoutes))
	s.mux.HandleFunc("/api/generate", s.cors(s.handleGenerate))
	s.mux.HandleFunc("/api/validate", s.cors(s.handleValidate))
	s.mux.HandleFunc("/api/nl-to-api", s.cors(s.handleNLToAPI))
	s.mux.HandleFunc("/api/explain", s.cors(s.handleExplain))
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	schemas, err := s.store.ListSchemas()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	_ = uiTemplate.Execute(w, uiData{Schemas: schemas})
}

func (s *Server) handleParse(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	var req struct {
		URL     string                `json:"url"`
		HTML    string                `json:"html"`
		Globals *parser.StaticGlobals `json:"globals"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.URL) == "" && strings.TrimSpace(req.HTML) == "" {
		writeError(w, http.StatusBadRequest, "url or html required")
		return
	}

	opts := []parser.Option{parser.WithLogger(s.logger), parser.WithHTTPClient(s.httpClient)}
	if req.Globals != nil {
		opts = append(opts, parser.WithGlobals(*req.Globals))
	}
	p := parser.New(s.cfg.Parser, opts...)

	root, err := loadPage(r.Context(), p, req.URL, req.HTML)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	parsed := p.Parse(r.Context(), root, req.URL)
	if parsed == nil {
		writeJSON(w, http.StatusOK, apiResponse{Success: false, Error: errNoDocumentation})
		return
	}
	if err := s.store.SaveSchema(parsed); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, apiResponse{Success: true, Data: parsed})
}

// loadPage prefers the HTML the extension captured over refetching the URL.
func loadPage(ctx context.Context, p *parser.Parser, pageURL, doc string) (*html.Node, error) {
	if strings.TrimSpace(doc) != "" {
		return parser.ParseHTML(strings.NewReader(doc))
	}
	return p.FetchPage(ctx, pageURL)
}

func (s *Server) handleSchemas(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	schemas, err := s.store.ListSchemas()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, apiResponse{Success: true, Data: schemas})
}

func (s *Server) handleSchemaRoutes(w http.ResponseWriter, r *http.Request) {
	id, tail, ok := splitPath(r.URL.Path, "/api/schemas/")
	if !ok || id == "" {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	switch tail {
	case "":
		s.handleSchemaDetail(w, r, id)
	case "suggestions":
		s.handleSuggestions(w, r, id)
	case "queries":
		s.handleQueries(w, r, id)
	case "export":
		s.handleExport(w, r, id)
	default:
		writeError(w, http.StatusNotFound, "not found")
	}
}

func (s *Server) handleSchemaDetail(w http.ResponseWriter, r *http.Request, id string) {
	switch r.Method {
	case http.MethodGet:
		doc, ok := s.lookupSchema(w, id)
		if !ok {
			return
		}
		writeJSON(w, http.StatusOK, apiResponse{Success: true, Data: doc})
	case http.MethodDelete:
		if err := s.store.DeleteSchema(id); err != nil {
			writeStoreError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, apiResponse{Success: true})
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) handleSuggestions(w http.ResponseWriter, r *http.Request, id string) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	doc, ok := s.lookupSchema(w, id)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, apiResponse{Success: true, Data: generator.SuggestQueries(&doc.Schema)})
}

func (s *Server) handleQueries(w http.ResponseWriter, r *http.Request, id string) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	limit := defaultQueryLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}
	if _, ok := s.lookupSchema(w, id); !ok {
		return
	}
	recs, err := s.store.ListQueries(id, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, apiResponse{Success: true, Data: recs})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request, id string) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	doc, ok := s.lookupSchema(w, id)
	if !ok {
		return
	}
	format := r.URL.Query().Get("format")
	if format == "" {
		format = export.FormatOpenAPI
	}
	var buf bytes.Buffer
	if err := export.Write(&buf, &doc.Schema, format); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	switch export.Extension(format) {
	case ".json":
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
	case ".md":
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	default:
		w.Header().Set("Content-Type", "application/yaml; charset=utf-8")
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	var req struct {
		Query    string           `json:"query"`
		SchemaID string           `json:"schemaId"`
		Schema   *types.ApiSchema `json:"schema"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeError(w, http.StatusBadRequest, "query required")
		return
	}
	schema, stored, ok := s.resolveSchema(w, req.SchemaID, req.Schema)
	if !ok {
		return
	}

	call, source := s.generator.GenerateWithSource(r.Context(), req.Query, schema)
	valid := generator.Validate(call, schema)
	redacted := s.redactor.Call(*call)
	s.logger.Debug("generated call", "source", source, "valid", valid, "method", redacted.Method, "endpoint", redacted.Endpoint)

	if stored {
		rec := &types.QueryRecord{SchemaID: schema.ID, Text: req.Query, Call: redacted, Source: source, Valid: valid}
		if err := s.store.SaveQuery(rec); err != nil {
			s.logger.Warn("record query failed", "schema", schema.ID, "error", err)
		}
	}
	writeJSON(w, http.StatusOK, struct {
		Success bool                    `json:"success"`
		Data    *types.GeneratedApiCall `json:"data"`
		Valid   bool                    `json:"valid"`
		Source  types.CallSource        `json:"source"`
	}{Success: true, Data: call, Valid: valid, Source: source})
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	var req struct {
		Call     *types.GeneratedApiCall `json:"call"`
		SchemaID string                  `json:"schemaId"`
		Schema   *types.ApiSchema        `json:"schema"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Call == nil {
		writeError(w, http.StatusBadRequest, "call required")
		return
	}
	schema, _, ok := s.resolveSchema(w, req.SchemaID, req.Schema)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Success bool `json:"success"`
		Valid   bool `json:"valid"`
	}{Success: true, Valid: generator.Validate(req.Call, schema)})
}

// handleNLToAPI serves the completion-service contract backed by the LLM.
func (s *Server) handleNLToAPI(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	var req generator.CompletionRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Query) == "" || req.Schema == nil {
		writeJSON(w, http.StatusBadRequest, generator.CompletionResponse{Error: "query and schema required"})
		return
	}
	if s.completion == nil {
		writeJSON(w, http.StatusServiceUnavailable, generator.CompletionResponse{Error: generator.ErrRemoteUnavailable.Error()})
		return
	}
	call, err := s.completion.CompleteRemote(r.Context(), req.Query, req.Schema)
	if err != nil {
		s.logger.Warn("completion failed", "error", err)
		writeJSON(w, http.StatusBadGateway, generator.CompletionResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, generator.CompletionResponse{Success: true, Data: call})
}

func (s *Server) handleExplain(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	var req struct {
		SchemaID string `json:"schemaId"`
		Method   string `json:"method"`
		Path     string `json:"path"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	doc, ok := s.lookupSchema(w, req.SchemaID)
	if !ok {
		return
	}
	var endpoint *types.ApiEndpoint
	for i, ep := range doc.Schema.Endpoints {
		if strings.EqualFold(ep.Method, req.Method) && ep.Path == req.Path {
			endpoint = &doc.Schema.Endpoints[i]
			break
		}
	}
	if endpoint == nil {
		writeError(w, http.StatusNotFound, "endpoint not found")
		return
	}
	text, err := generator.Explain(r.Context(), s.chat, *endpoint)
	if err != nil {
		status := http.StatusBadGateway
		if errors.Is(err, generator.ErrRemoteUnavailable) {
			status = http.StatusServiceUnavailable
		}
		writeError(w, status, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, apiResponse{Success: true, Data: text})
}

func (s *Server) lookupSchema(w http.ResponseWriter, id string) (*types.ParsedDocumentation, bool) {
	if strings.TrimSpace(id) == "" {
		writeError(w, http.StatusBadRequest, "schemaId required")
		return nil, false
	}
	doc, err := s.store.GetSchema(id)
	if err != nil {
		writeStoreError(w, err)
		return nil, false
	}
	return doc, true
}

// resolveSchema prefers a stored schema and reports whether it came from the store.
func (s *Server) resolveSchema(w http.ResponseWriter, id string, inline *types.ApiSchema) (*types.ApiSchema, bool, bool) {
	if id != "" {
		doc, ok := s.lookupSchema(w, id)
		if !ok {
			return nil, false, false
		}
		return &doc.Schema, true, true
	}
	if inline == nil {
		writeError(w, http.StatusBadRequest, "schemaId or schema required")
		return nil, false, false
	}
	return inline, false, true
}

func (s *Server) cors(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		setCORS(w, s.cfg.Server.CORSExtensionID)
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next(w, r)
	}
}

func allowMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method != method {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return false
	}
	return true
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(io.LimitReader(r.Body, maxRequestBytes)).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json: "+err.Error())
		return false
	}
	return true
}

func splitPath(fullPath, prefix string) (string, string, bool) {
	if !strings.HasPrefix(fullPath, prefix) {
		return "", "", false
	}
	rest := strings.TrimPrefix(fullPath, prefix)
	rest = strings.Trim(rest, "/")
	if rest == "" {
		return "", "", false
	}
	parts := strings.Split(rest, "/")
	id := parts[0]
	tail := ""
	if len(parts) > 1 {
		tail = strings.Join(parts[1:], "/")
	}
	return id, tail, true
}

func writeStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "schema not found")
		return
	}
	writeError(w, http.StatusInternalServerError, err.Error())
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, apiResponse{Success: false, Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func setCORS(w http.ResponseWriter, extensionID string) {
	origin := "*"
	if extensionID != "" {
		origin = "chrome-extension://" + extensionID
	}
	w.Header().Set("Access-Control-Allow-Origin", origin)
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
}
