package notfound

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/dvcrn/wallabag-client/pkg/apierr"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
)

// Prober checks that the server is reachable at the configured base URL. A
// 404 from the probe means the base URL is wrong.
type Prober interface {
	Probe(ctx context.Context) error
}

// ProberFunc adapts a function to Prober.
type ProberFunc func(ctx context.Context) error

func (f ProberFunc) Probe(ctx context.Context) error {
	return f(ctx)
}

// CapabilityCheck reports whether the server supports the operation that
// returned 404. A nil check means the operation is not gated.
type CapabilityCheck func(ctx context.Context) (bool, error)

// Classifier applies a Policy to 404 errors.
type Classifier struct {
	prober Prober
	logger zerolog.Logger
	clock  clockwork.Clock

	// Successful probes are remembered for cacheTTL; zero disables it.
	cacheTTL time.Duration
	mu       sync.Mutex
	probedAt time.Time
}

// Option configures a Classifier.
type Option func(*Classifier)

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Classifier) {
		c.logger = logger
	}
}

// WithProbeCache remembers a successful probe for ttl so concurrent page
// walks do not probe on every 404. Failed probes are never cached.
func WithProbeCache(ttl time.Duration) Option {
	return func(c *Classifier) {
		c.cacheTTL = ttl
	}
}

// WithClock replaces the clock used by the probe cache.
func WithClock(clock clockwork.Clock) Option {
	return func(c *Classifier) {
		c.clock = clock
	}
}

// NewClassifier creates a Classifier probing through prober.
func NewClassifier(prober Prober, opts ...Option) *Classifier {
	c := &Classifier{
		prober: prober,
		logger: zerolog.Nop(),
		clock:  clockwork.NewRealClock(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Classify decides what to do with notFound under policy.
//
// Rethrow is paired with the error to surface: notFound itself, or the probe
// or capability check error when that is more informative.
func (c *Classifier) Classify(ctx context.Context, policy Policy, notFound error, check CapabilityCheck) (Disposition, error) {
	switch policy {
	case DefaultValue:
		return SubstituteDefault, nil
	case Smart:
		return c.classifySmart(ctx, notFound, check)
	default:
		return Rethrow, notFound
	}
}

func (c *Classifier) classifySmart(ctx context.Context, notFound error, check CapabilityCheck) (Disposition, error) {
	if err := c.probe(ctx); err != nil {
		if apierr.IsNotFound(err) {
			c.logger.Warn().Err(err).Msg("Reachability probe returned 404, base URL looks misconfigured")
			return Rethrow, notFound
		}
		c.logger.Warn().Err(err).Msg("Reachability probe failed")
		return Rethrow, err
	}

	if check == nil {
		return SubstituteDefault, nil
	}

	supported, err := check(ctx)
	if err != nil {
		return Rethrow, err
	}
	if !supported {
		c.logger.Debug().Msg("Operation not supported by server version, surfacing 404")
		return Rethrow, notFound
	}
	return SubstituteDefault, nil
}

func (c *Classifier) probe(ctx context.Context) error {
	if c.cacheTTL > 0 {
		c.mu.Lock()
		fresh := !c.probedAt.IsZero() && c.clock.Since(c.probedAt) < c.cacheTTL
		c.mu.Unlock()
		if fresh {
			return nil
		}
	}

	if err := c.prober.Probe(ctx); err != nil {
		return err
	}

	if c.cacheTTL > 0 {
		c.mu.Lock()
		c.probedAt = c.clock.Now()
		c.mu.Unlock()
	}
	return nil
}

// grantFailure is implemented by token grant errors. They always surface,
// whatever status the token endpoint answered with.
type grantFailure interface {
	GrantFailure()
}

// Handle returns value when err is nil. A 404 is classified under policy and
// yields either def with a nil error or the error to surface; any other
// error, and any failed token grant, passes through. Errors are paired with
// the zero T.
func Handle[T any](ctx context.Context, c *Classifier, policy Policy, value T, err error, def T, check CapabilityCheck) (T, error) {
	var zero T
	if err == nil {
		return value, nil
	}
	var grantErr grantFailure
	if errors.As(err, &grantErr) || !apierr.IsNotFound(err) {
		return zero, err
	}

	disposition, err := c.Classify(ctx, policy, err, check)
	if disposition == SubstituteDefault {
		return def, nil
	}
	return zero, err
}
