// Package invalidation purges stale asset copies from downstream caches,
// one path at a time or in partial-failure batches.
package invalidation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/assetwatch/assetwatch/internal/metrics"
	"github.com/assetwatch/assetwatch/internal/model"
)

// Defaults used when options are not given.
const (
	DefaultConcurrency = 8
	DefaultTimeout     = 10 * time.Second
)

// ErrPurgePanicked wraps a panic raised by a Purger.
var ErrPurgePanicked = errors.New("purge panicked")

// Purger performs the actual cache purge for one path.
type Purger interface {
	Purge(ctx context.Context, path string) error
}

// PurgeFunc adapts a function to Purger.
type PurgeFunc func(ctx context.Context, path string) error

// Purge calls f.
func (f PurgeFunc) Purge(ctx context.Context, path string) error {
	return f(ctx, path)
}

// Versions is the subset of version.Manager the coordinator needs.
type Versions interface {
	Resolve(ctx context.Context, path string, strategy model.VersionStrategy, explicit string) (model.VersionDescriptor, error)
	NeedsInvalidation(ctx context.Context, path string, maxAge time.Duration) bool
}

// Coordinator fans invalidations out to a Purger.
type Coordinator struct {
	purger      Purger
	versions    Versions
	limiter     *rate.Limiter
	concurrency int
	timeout     time.Duration
	logger      *slog.Logger
	metrics     metrics.Recorder
}

// Option customises a Coordinator.
type Option func(*Coordinator)

// WithVersions bumps the path version after each successful purge and lets
// SmartInvalidate consult version age.
func WithVersions(v Versions) Option {
	return func(c *Coordinator) {
		c.versions = v
	}
}

// WithConcurrency bounds how many purges a batch runs at once.
func WithConcurrency(n int) Option {
	return func(c *Coordinator) {
		if n > 0 {
			c.concurrency = n
		}
	}
}

// WithRateLimit caps purge calls per second across all batches.
// A non-positive perSecond disables the limit.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(c *Coordinator) {
		if perSecond <= 0 {
			c.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

// WithTimeout bounds each purge call.
func WithTimeout(d time.Duration) Option {
	return func(c *Coordinator) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Coordinator) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithRecorder sets the metrics recorder.
func WithRecorder(recorder metrics.Recorder) Option {
	return func(c *Coordinator) {
		if recorder != nil {
			c.metrics = recorder
		}
	}
}

// New creates a Coordinator around purger.
func New(purger Purger, opts ...Option) *Coordinator {
	c := &Coordinator{
		purger:      purger,
		concurrency: DefaultConcurrency,
		timeout:     DefaultTimeout,
		logger:      slog.Default(),
		metrics:     metrics.NewNoop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("component", "invalidation")
	return c
}

// Invalidate purges one path and reports whether it succeeded. Failures,
// timeouts and purger panics are logged and reported as false.
func (c *Coordinator) Invalidate(ctx context.Context, path string) bool {
	start := time.Now()
	err := c.purge(ctx, path)
	duration := time.Since(start)
	c.metrics.ObserveInvalidationDuration(duration)

	if err != nil {
		c.metrics.IncInvalidation("failed")
		c.logger.Warn("invalidation failed",
			"path", path,
			"duration_ms", duration.Milliseconds(),
			"error", err,
		)
		return false
	}

	c.metrics.IncInvalidation("success")
	if c.versions != nil {
		if _, err := c.versions.Resolve(ctx, path, model.StrategyTimestamp, ""); err != nil {
			c.logger.Warn("failed to bump version after invalidation", "path", path, "error", err)
		}
	}
	c.logger.Debug("path invalidated", "path", path, "duration_ms", duration.Milliseconds())
	return true
}

func (c *Coordinator) purge(ctx context.Context, path string) (err error) {
	if c.purger == nil {
		return errors.New("no purger configured")
	}
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limit: %w", err)
		}
	}

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrPurgePanicked, r)
		}
	}()
	return c.purger.Purge(callCtx, path)
}

// BatchInvalidate purges every distinct path concurrently and waits for all
// of them. Each input path lands in exactly one list of the result, in input
// order; repeated paths are purged once.
func (c *Coordinator) BatchInvalidate(ctx context.Context, paths []string) model.BatchResult {
	unique := dedupe(paths)
	ok := make([]bool, len(unique))

	var g errgroup.Group
	g.SetLimit(c.concurrency)
	for i, path := range unique {
		g.Go(func() error {
			ok[i] = c.Invalidate(ctx, path)
			return nil
		})
	}
	_ = g.Wait()

	result := model.BatchResult{
		Successful: make([]string, 0, len(unique)),
		Failed:     []string{},
	}
	for i, path := range unique {
		if ok[i] {
			result.Successful = append(result.Successful, path)
		} else {
			result.Failed = append(result.Failed, path)
		}
	}

	c.metrics.ObserveBatchSize(len(unique))
	c.logger.Info("batch invalidation finished",
		"paths", len(unique),
		"successful", len(result.Successful),
		"failed", len(result.Failed),
	)
	return result
}

// SmartOptions control SmartInvalidate.
type SmartOptions struct {
	MaxAge time.Duration
	Force  bool
}

// SmartInvalidate purges path when Force is set or its version is older than
// MaxAge, and reports whether a purge happened and succeeded. Without a
// version source every path is treated as stale.
func (c *Coordinator) SmartInvalidate(ctx context.Context, path string, opts SmartOptions) bool {
	if !opts.Force && c.versions != nil && !c.versions.NeedsInvalidation(ctx, path, opts.MaxAge) {
		c.logger.Debug("invalidation skipped, version still fresh", "path", path, "max_age", opts.MaxAge)
		return false
	}
	return c.Invalidate(ctx, path)
}

func dedupe(paths []string) []string {
	seen := make(map[string]struct{}, len(paths))
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}
