package generator

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/yourorg/docpilot/internal/config"
	"github.com/yourorg/docpilot/internal/telemetry"
	"github.com/yourorg/docpilot/pkg/types"
)

const (
	defaultMaxRetries = 2
	defaultTimeout    = 12 * time.Second
	defaultBackoff    = 500 * time.Millisecond
)

var sleepFn = sleepContext

// sleepContext waits for d or until ctx is done, whichever comes first.
func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Generator turns natural language into API calls, remote first with a local
// fallback.
type Generator struct {
	remote     Remote
	logger     *slog.Logger
	tracer     trace.Tracer
	maxRetries int
	timeout    time.Duration
	backoff    time.Duration
}

type Option func(*Generator)

func WithLogger(l *slog.Logger) Option {
	return func(g *Generator) {
		if l != nil {
			g.logger = l
		}
	}
}

// WithRetryPolicy sets retries after the first attempt, the per-attempt
// timeout and the backoff unit. Zero values keep the defaults.
func WithRetryPolicy(maxRetries int, timeout, backoff time.Duration) Option {
	return func(g *Generator) {
		if maxRetries >= 0 {
			g.maxRetries = maxRetries
		}
		if timeout > 0 {
			g.timeout = timeout
		}
		if backoff > 0 {
			g.backoff = backoff
		}
	}
}

// FromConfig applies the generator config section.
func FromConfig(cfg config.GeneratorConfig) Option {
	return WithRetryPolicy(cfg.MaxRetries,
		time.Duration(cfg.TimeoutMs)*time.Millisecond,
		time.Duration(cfg.BackoffMs)*time.Millisecond)
}

// New builds a Generator. A nil remote means only the local matcher is used.
func New(remote Remote, opts ...Option) *Generator {
	g := &Generator{
		remote:     remote,
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		tracer:     telemetry.Tracer(),
		maxRetries: defaultMaxRetries,
		timeout:    defaultTimeout,
		backoff:    defaultBackoff,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate always returns a usable call.
func (g *Generator) Generate(ctx context.Context, query string, schema *types.ApiSchema) *types.GeneratedApiCall {
	call, _ := g.GenerateWithSource(ctx, query, schema)
	return call
}

// GenerateWithSource is Generate that also reports which path produced the call.
func (g *Generator) GenerateWithSource(ctx context.Context, query string, schema *types.ApiSchema) (call *types.GeneratedApiCall, source types.CallSource) {
	ctx, span := g.tracer.Start(ctx, "generate")
	defer span.End()
	if schema == nil {
		schema = &types.ApiSchema{}
	}
	defer func() {
		if r := recover(); r != nil {
			g.logger.Error("generation panicked", "panic", r)
			call, source = emptyCall(query, schema), types.SourceLocal
		}
		span.SetAttributes(attribute.String("generate.source", string(source)))
	}()

	remoteCall, err := g.tryRemote(ctx, query, schema)
	if err == nil {
		return remoteCall, types.SourceRemote
	}
	if g.remote != nil {
		g.logger.Warn("falling back to local matcher", "error", err)
	}

	_, fspan := g.tracer.Start(ctx, "fallback")
	defer fspan.End()
	return Fallback(query, schema), types.SourceLocal
}

// CompleteRemote runs only the remote path with its retry policy. It returns
// ErrRemoteUnavailable when every attempt failed or no remote is configured.
func (g *Generator) CompleteRemote(ctx context.Context, query string, schema *types.ApiSchema) (*types.GeneratedApiCall, error) {
	ctx, span := g.tracer.Start(ctx, "generate.remote")
	defer span.End()
	if schema == nil {
		schema = &types.ApiSchema{}
	}
	call, err := g.tryRemote(ctx, query, schema)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return call, err
}

// tryRemote makes one attempt plus up to maxRetries retries. The wait before
// retry n is n times the backoff unit.
func (g *Generator) tryRemote(ctx context.Context, query string, schema *types.ApiSchema) (*types.GeneratedApiCall, error) {
	if g.remote == nil {
		return nil, ErrRemoteUnavailable
	}
	attempts := g.maxRetries + 1
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			if err := sleepFn(ctx, time.Duration(attempt-1)*g.backoff); err != nil {
				return nil, fmt.Errorf("%w: %v", ErrRemoteUnavailable, err)
			}
		}
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrRemoteUnavailable, err)
		}
		call, err := g.attempt(ctx, attempt, query, schema)
		if err == nil {
			return call, nil
		}
		lastErr = err
		g.logger.Debug("remote attempt failed", "attempt", attempt, "of", attempts, "error", err)
	}
	return nil, fmt.Errorf("%w after %d attempts: %v", ErrRemoteUnavailable, attempts, lastErr)
}

func (g *Generator) attempt(ctx context.Context, n int, query string, schema *types.ApiSchema) (call *types.GeneratedApiCall, err error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()
	ctx, span := g.tracer.Start(ctx, "remote.attempt", trace.WithAttributes(attribute.Int("attempt", n)))
	defer span.End()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("remote panicked: %v", r)
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
	}()

	call, err = g.remote.Complete(ctx, query, schema)
	if err != nil {
		return nil, err
	}
	if call == nil || call.Endpoint == "" || call.Method == "" || call.Headers == nil {
		return nil, errIncompleteCall
	}
	return normalizeCall(call, query), nil
}

// emptyCall is the last resort when even the local matcher fails.
func emptyCall(query string, schema *types.ApiSchema) *types.GeneratedApiCall {
	return &types.GeneratedApiCall{
		Endpoint:    fallbackEndpoint(schema),
		Method:      types.MethodGet,
		Headers:     defaultHeaders(),
		Description: fmt.Sprintf("Generated from: %q", query),
	}
}
