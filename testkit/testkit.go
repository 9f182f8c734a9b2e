// Package testkit provides deterministic fakes for exercising the SSR gateway
// without AWS: an in-process Lambda, a manual clock, predictable IDs, and an
// in-memory SNS client.
package testkit

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/theory-cloud/sidecarssr"
	"github.com/theory-cloud/sidecarssr/pkg/function"
	"github.com/theory-cloud/sidecarssr/pkg/lambdainvoke"
	"github.com/theory-cloud/sidecarssr/pkg/observability"
)

// Env is a deterministic local test environment for the SSR gateway.
type Env struct {
	Clock  *ManualClock
	IDs    *ManualIDGenerator
	Lambda *FakeLambda
	Logs   *observability.TestLogger
}

func New() *Env {
	return NewWithTime(time.Unix(0, 0).UTC())
}

func NewWithTime(now time.Time) *Env {
	return &Env{
		Clock:  NewManualClock(now),
		IDs:    NewManualIDGenerator(),
		Lambda: NewFakeLambda(),
		Logs:   observability.NewTestLogger(),
	}
}

// Client returns a lambdainvoke.Client backed by the fake Lambda.
func (e *Env) Client(opts ...lambdainvoke.Option) lambdainvoke.Client {
	combined := append([]lambdainvoke.Option{lambdainvoke.WithAPI(e.Lambda)}, opts...)
	client, err := lambdainvoke.NewClient(context.Background(), combined...)
	if err != nil {
		// WithAPI short-circuits every fallible step.
		panic(err)
	}
	return client
}

// Gateway builds a gateway wired to the environment's fakes. Later options
// override the defaults.
func (e *Env) Gateway(cfg sidecarssr.Config, registry *function.Registry, opts ...sidecarssr.GatewayOption) (*sidecarssr.SidecarGateway, error) {
	combined := make([]sidecarssr.GatewayOption, 0, len(opts)+3)
	combined = append(combined,
		sidecarssr.WithClock(e.Clock.Now),
		sidecarssr.WithIDGenerator(e.IDs),
		sidecarssr.WithLogger(e.Logs),
	)
	combined = append(combined, opts...)
	return sidecarssr.NewGateway(cfg, registry, e.Client(), combined...)
}

// ManualClock is a deterministic, mutable clock for tests.
type ManualClock struct {
	mu  sync.Mutex
	now time.Time
}

func NewManualClock(now time.Time) *ManualClock {
	return &ManualClock{now: now}
}

func (c *ManualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *ManualClock) Set(now time.Time) {
	c.mu.Lock()
	c.now = now
	c.mu.Unlock()
}

func (c *ManualClock) Advance(d time.Duration) time.Time {
	c.mu.Lock()
	c.now = c.now.Add(d)
	out := c.now
	c.mu.Unlock()
	return out
}

// ManualIDGenerator hands out queued IDs first, then "dispatch-1",
// "dispatch-2", and so on.
type ManualIDGenerator struct {
	mu     sync.Mutex
	prefix string
	next   int64
	queue  []string
}

var _ sidecarssr.IDGenerator = (*ManualIDGenerator)(nil)

func NewManualIDGenerator() *ManualIDGenerator {
	return &ManualIDGenerator{prefix: "dispatch", next: 1}
}

func (g *ManualIDGenerator) Queue(ids ...string) {
	g.mu.Lock()
	g.queue = append(g.queue, ids...)
	g.mu.Unlock()
}

func (g *ManualIDGenerator) Reset() {
	g.mu.Lock()
	g.queue = nil
	g.next = 1
	g.mu.Unlock()
}

func (g *ManualIDGenerator) NewID() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	if len(g.queue) > 0 {
		out := g.queue[0]
		g.queue = g.queue[1:]
		return out
	}

	out := fmt.Sprintf("%s-%s", g.prefix, strconv.FormatInt(g.next, 10))
	g.next++
	return out
}
