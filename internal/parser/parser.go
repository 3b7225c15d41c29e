package parser

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/net/html"

	"github.com/yourorg/docpilot/internal/config"
	"github.com/yourorg/docpilot/internal/telemetry"
	"github.com/yourorg/docpilot/pkg/types"
)

// Parser detects API documentation on a rendered page.
type Parser struct {
	httpClient      *http.Client
	logger          *slog.Logger
	tracer          trace.Tracer
	globals         Globals
	fetchTimeout    time.Duration
	probePaths      []string
	maxProbes       int
	graphQLPaths    []string
	evaluateScripts bool
	scriptTimeout   time.Duration
}

type Option func(*Parser)

func WithHTTPClient(c *http.Client) Option {
	return func(p *Parser) {
		if c != nil {
			p.httpClient = c
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(p *Parser) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithGlobals pins the page globals instead of evaluating inline scripts.
func WithGlobals(g Globals) Option {
	return func(p *Parser) { p.globals = g }
}

func New(cfg config.ParserConfig, opts ...Option) *Parser {
	p := &Parser{
		httpClient:      http.DefaultClient,
		logger:          slog.New(slog.NewTextHandler(io.Discard, nil)),
		tracer:          telemetry.Tracer(),
		fetchTimeout:    time.Duration(cfg.FetchTimeoutMs) * time.Millisecond,
		probePaths:      cfg.ProbePaths,
		maxProbes:       cfg.MaxProbes,
		graphQLPaths:    cfg.GraphQLPaths,
		evaluateScripts: cfg.ScriptsEnabled(),
		scriptTimeout:   time.Duration(cfg.ScriptTimeoutMs) * time.Millisecond,
	}
	if p.fetchTimeout <= 0 {
		p.fetchTimeout = 10 * time.Second
	}
	if len(p.probePaths) == 0 {
		p.probePaths = config.DefaultProbePaths
	}
	if p.maxProbes <= 0 || p.maxProbes > len(p.probePaths) {
		p.maxProbes = len(p.probePaths)
	}
	if len(p.graphQLPaths) == 0 {
		p.graphQLPaths = config.DefaultGraphQLPaths
	}
	if p.scriptTimeout <= 0 {
		p.scriptTimeout = 2 * time.Second
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// page is the input every strategy sees.
type page struct {
	doc     *html.Node
	url     string
	globals Globals
}

type strategy struct {
	name string
	fn   func(ctx context.Context, pg *page) *types.ParsedDocumentation
}

func (p *Parser) strategies() []strategy {
	return []strategy{
		{name: "embedded", fn: p.embeddedSpec},
		{name: "swagger-ui", fn: p.swaggerUI},
		{name: "redoc", fn: p.redoc},
		{name: "graphql", fn: p.graphQL},
		{name: "table", fn: p.restTable},
	}
}

// Parse runs the strategies in order and returns the first hit, or nil when
// the page carries no recognizable documentation.
func (p *Parser) Parse(ctx context.Context, doc *html.Node, pageURL string) *types.ParsedDocumentation {
	ctx, span := p.tracer.Start(ctx, "parser.Parse", trace.WithAttributes(attribute.String("page.url", pageURL)))
	defer span.End()

	if doc == nil {
		return nil
	}
	pg := &page{doc: doc, url: pageURL, globals: p.globalsFor(doc)}
	for _, s := range p.strategies() {
		result := p.runStrategy(ctx, s, pg)
		if result == nil {
			continue
		}
		span.SetAttributes(
			attribute.String("parser.strategy", s.name),
			attribute.Int("parser.endpoints", len(result.Schema.Endpoints)),
		)
		p.logger.Info("parsed documentation", "url", pageURL, "strategy", s.name, "type", result.Type, "endpoints", len(result.Schema.Endpoints))
		return result
	}
	p.logger.Info("no api documentation detected", "url", pageURL)
	return nil
}

// runStrategy runs one strategy and maps any panic to a miss.
func (p *Parser) runStrategy(ctx context.Context, s strategy, pg *page) (result *types.ParsedDocumentation) {
	ctx, span := p.tracer.Start(ctx, "parser.strategy."+s.name)
	defer span.End()
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("strategy %s panicked: %v", s.name, r)
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			p.logger.Debug("strategy failed", "strategy", s.name, "error", err)
			result = nil
		}
	}()
	p.logger.Debug("trying strategy", "strategy", s.name)
	return s.fn(ctx, pg)
}

func (p *Parser) globalsFor(doc *html.Node) Globals {
	switch {
	case p.globals != nil:
		return p.globals
	case p.evaluateScripts:
		return NewScriptGlobals(doc, p.scriptTimeout, p.logger)
	default:
		return NoGlobals{}
	}
}

func specDocument(spec map[string]any, order *KeyOrder, pageURL string) *types.ParsedDocumentation {
	return &types.ParsedDocumentation{
		Type:   docTypeOf(spec),
		Schema: ConvertOpenAPI(spec, pageURL, order),
	}
}
