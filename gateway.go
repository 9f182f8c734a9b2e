// Package sidecarssr renders Inertia pages through an SSR bundle deployed as
// an AWS Lambda function.
//
// A SidecarGateway sits where the host framework asks for server-rendered
// markup. It either returns the rendered head and body, or nothing, in which
// case the page renders client-side.
package sidecarssr

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/theory-cloud/sidecarssr/pkg/function"
	"github.com/theory-cloud/sidecarssr/pkg/lambdainvoke"
	"github.com/theory-cloud/sidecarssr/pkg/logger"
	"github.com/theory-cloud/sidecarssr/pkg/naming"
	"github.com/theory-cloud/sidecarssr/pkg/observability"
)

// Gateway is the capability the host rendering framework depends on.
//
// Dispatch returns (nil, nil) when SSR is unavailable and the page should
// render client-side.
type Gateway interface {
	Dispatch(ctx context.Context, page Page) (*Response, error)
}

// SidecarGateway dispatches renders to a Lambda function resolved from a
// function.Registry. It is safe for concurrent use when its Lambda client is.
type SidecarGateway struct {
	config   atomic.Pointer[Config]
	registry *function.Registry
	client   lambdainvoke.Client

	log     observability.StructuredLogger
	ids     IDGenerator
	metrics *Metrics
	now     func() time.Time
}

var _ Gateway = (*SidecarGateway)(nil)

type GatewayOption func(*SidecarGateway)

func WithLogger(l observability.StructuredLogger) GatewayOption {
	return func(g *SidecarGateway) { g.log = l }
}

func WithIDGenerator(ids IDGenerator) GatewayOption {
	return func(g *SidecarGateway) { g.ids = ids }
}

func WithMetrics(m *Metrics) GatewayOption {
	return func(g *SidecarGateway) { g.metrics = m }
}

func WithClock(now func() time.Time) GatewayOption {
	return func(g *SidecarGateway) { g.now = now }
}

// NewGateway validates cfg against registry up front so a bad handler fails at
// startup instead of on the first request.
func NewGateway(cfg Config, registry *function.Registry, client lambdainvoke.Client, opts ...GatewayOption) (*SidecarGateway, error) {
	if registry == nil {
		return nil, errors.New("sidecarssr: registry is nil")
	}
	if client == nil {
		return nil, errors.New("sidecarssr: lambda client is nil")
	}

	g := &SidecarGateway{
		registry: registry,
		client:   client,
		now:      time.Now,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(g)
	}
	if g.ids == nil {
		g.ids = NewULIDGenerator()
	}
	if g.now == nil {
		g.now = time.Now
	}

	if err := g.SetConfig(cfg); err != nil {
		return nil, err
	}
	return g, nil
}

// Config returns the configuration the next dispatch will use.
func (g *SidecarGateway) Config() Config {
	return *g.config.Load()
}

// SetConfig swaps the configuration used by subsequent dispatches. An enabled
// configuration whose handler does not resolve is rejected with *ConfigError
// and the previous configuration stays active.
func (g *SidecarGateway) SetConfig(cfg Config) error {
	if cfg.Enabled && cfg.Handler != "" {
		if err := g.registry.Validate(cfg.Handler); err != nil {
			return newConfigError(cfg.Handler, err)
		}
	}
	g.config.Store(&cfg)
	return nil
}

func (g *SidecarGateway) logger() observability.StructuredLogger {
	return logger.Or(g.log)
}

// Dispatch implements Gateway.
func (g *SidecarGateway) Dispatch(ctx context.Context, page Page) (*Response, error) {
	return g.Render(ctx, page).Result()
}

// Render performs one dispatch and reports its terminal state.
func (g *SidecarGateway) Render(ctx context.Context, page Page) Outcome {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg := g.Config()

	if !cfg.Enabled || cfg.Handler == "" {
		outcome := disabled()
		g.metrics.observe(outcome, 0, false)
		return outcome
	}

	log := g.logger().WithDispatchID(g.ids.NewID())

	fn, err := g.registry.Resolve(cfg.Handler)
	if err != nil {
		outcome := misconfigured(newConfigError(cfg.Handler, err))
		log.Error("SSR handler is not a deployable function", map[string]any{
			"handler": cfg.Handler,
			"error":   outcome.Err.Error(),
		})
		g.metrics.observe(outcome, 0, false)
		return outcome
	}

	functionName := naming.FunctionName(cfg.Sidecar.App, cfg.Sidecar.Environment, fn.Name())
	log = log.WithFunction(functionName)

	start := g.now()
	resp, report, err := g.execute(ctx, functionName, page, cfg.Timings, log)
	elapsed := g.now().Sub(start)

	var outcome Outcome
	if err != nil {
		outcome = failed(err, cfg.Debug)
		log.Error("SSR render failed", map[string]any{
			"component":  page.Component(),
			"error":      err.Error(),
			"suppressed": outcome.State == StateFailedSuppressed,
		})
	} else {
		outcome = succeeded(resp)
	}
	g.metrics.observe(outcome, elapsed, report.ColdStart())
	return outcome
}

func (g *SidecarGateway) execute(
	ctx context.Context,
	functionName string,
	page Page,
	timings bool,
	log observability.StructuredLogger,
) (*Response, lambdainvoke.Report, error) {
	result, err := g.client.Invoke(ctx, functionName, page)
	if err != nil {
		return nil, lambdainvoke.Report{}, err
	}

	if timings {
		log.Info("Sending SSR request to Lambda", result.Report.Fields())
	}

	resp, err := decodeResponse(result.Payload)
	if err != nil {
		return nil, result.Report, err
	}
	return resp, result.Report, nil
}
