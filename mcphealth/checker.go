// Package mcphealth implements a periodic liveness probe of the remote
// tool-server aggregator that gates tool availability for the ReAct engine
// and the Plan-Execute-Respond pipeline.
package mcphealth

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/aws-idp/agentcore/corerrors"
	"github.com/aws-idp/agentcore/telemetry"
	"github.com/aws-idp/agentcore/tools"
)

// DefaultTimeout is MCP_HEALTH_CHECK_TIMEOUT.
const DefaultTimeout = 10 * time.Second

// state is the checker's internal lifecycle state.
type state string

const (
	stateUnknown   state = "unknown"
	stateHealthy   state = "healthy"
	stateUnhealthy state = "unhealthy"
)

// Health is the checker's point-in-time status snapshot.
type Health struct {
	Healthy   bool
	LastCheck time.Time
	ToolCount int
	Error     string
}

// Aggregator is the remote tool-server aggregator the checker probes.
// ListTools must return at least one tool for the probe to be considered
// healthy.
type Aggregator interface {
	ListTools(ctx context.Context) ([]tools.ToolSpec, error)
}

// Checker implements the MCP Health Checker. The zero value is not usable;
// construct with New.
type Checker struct {
	aggregator Aggregator
	timeout    time.Duration
	limiter    *rate.Limiter

	mu        sync.RWMutex
	st        state
	health    Health
	toolSpecs []tools.ToolSpec

	logger telemetry.Logger
}

// Option configures a Checker at construction.
type Option func(*Checker)

// WithTimeout overrides DefaultTimeout for this checker's probes.
func WithTimeout(d time.Duration) Option { return func(c *Checker) { c.timeout = d } }

// WithLogger configures the checker's logger. Defaults to a noop logger.
func WithLogger(l telemetry.Logger) Option { return func(c *Checker) { c.logger = l } }

// New constructs a Checker in the Unknown state.
func New(aggregator Aggregator, opts ...Option) *Checker {
	c := &Checker{
		aggregator: aggregator,
		timeout:    DefaultTimeout,
		// One re-check per second at most; ForceCheck bypasses this limiter.
		limiter: rate.NewLimiter(rate.Every(time.Second), 1),
		st:      stateUnknown,
		logger:  telemetry.NewNoopLogger(),
	}
	for _, o := range opts {
		if o != nil {
			o(c)
		}
	}
	return c
}

// IsHealthy reports the checker's last known health without probing.
func (c *Checker) IsHealthy() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.st == stateHealthy
}

// ToolsAvailable returns the tool specs observed on the last successful
// check. Empty when the checker has never successfully checked or is
// currently unhealthy.
func (c *Checker) ToolsAvailable() []tools.ToolSpec {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.st != stateHealthy {
		return nil
	}
	out := make([]tools.ToolSpec, len(c.toolSpecs))
	copy(out, c.toolSpecs)
	return out
}

// SetUnhealthy forces a transition to Unhealthy, e.g. when the ReAct engine
// observes repeated tool-dispatch failures independent of the checker's own
// probe cadence.
func (c *Checker) SetUnhealthy(ctx context.Context, reason string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.st = stateUnhealthy
	c.health = Health{Healthy: false, LastCheck: time.Now(), Error: reason}
	c.logger.Warn(ctx, "mcp health forced unhealthy", "reason", reason)
}

// EnsureFresh re-checks if the last check is older than minStaleness.
// Returns the (possibly cached) Health.
func (c *Checker) EnsureFresh(ctx context.Context, minStaleness time.Duration) Health {
	c.mu.RLock()
	age := time.Since(c.health.LastCheck)
	stale := c.st == stateUnknown || age >= minStaleness
	current := c.health
	c.mu.RUnlock()
	if !stale {
		return current
	}
	return c.ForceCheck(ctx)
}

// ForceCheck performs an immediate probe, bypassing the re-check pacing
// limiter, and updates the checker's state.
func (c *Checker) ForceCheck(ctx context.Context) Health {
	checkCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	specs, err := c.aggregator.ListTools(checkCtx)
	now := time.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	if err != nil {
		c.st = stateUnhealthy
		c.health = Health{Healthy: false, LastCheck: now, Error: err.Error()}
		c.toolSpecs = nil
		c.logger.Warn(ctx, "mcp health check failed", "error", err.Error())
		return c.health
	}
	if len(specs) == 0 {
		c.st = stateUnhealthy
		c.health = Health{Healthy: false, LastCheck: now, ToolCount: 0}
		c.toolSpecs = nil
		return c.health
	}

	c.st = stateHealthy
	c.toolSpecs = specs
	c.health = Health{Healthy: true, LastCheck: now, ToolCount: len(specs)}
	return c.health
}

// Run starts the periodic probe loop, re-checking every interval until ctx
// is canceled. Intended to be launched as a background goroutine at process
// startup.
func (c *Checker) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.limiter.Wait(ctx); err != nil {
				return
			}
			c.ForceCheck(ctx)
		}
	}
}

// TimeoutError wraps a context-deadline probe failure with the
// KindTransport classification so callers can apply the standard retry
// policy.
func TimeoutError(err error) error {
	return corerrors.Wrap(corerrors.KindTransport, "mcp health check timed out", err)
}
