package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"regexp"
	"strconv"
	"time"
)

// RetryPolicy configures re-attempts after transient failures.
type RetryPolicy struct {
	// MaxRetries is the number of re-attempts after the first call (total calls = MaxRetries+1)
	// Default: 3
	MaxRetries int

	// InitialDelay is the backoff base for the first retry
	// Default: 1 second
	InitialDelay time.Duration

	// MaxDelay caps every computed delay, server-suggested ones included
	// Default: 10 seconds
	MaxDelay time.Duration

	// JitterFraction adds up to this share of the base delay
	// Default: 0.3
	JitterFraction float64
}

// Retry defaults.
const (
	DefaultMaxRetries     = 3
	DefaultInitialDelay   = time.Second
	DefaultMaxDelay       = 10 * time.Second
	DefaultJitterFraction = 0.3
)

// DefaultRetryPolicy returns the policy used when nothing is configured.
func DefaultRetryPolicy() RetryPolicy {
	p := RetryPolicy{}
	p.SetDefaults()
	return p
}

// SetDefaults fills in default values for unset fields.
func (p *RetryPolicy) SetDefaults() {
	if p.MaxRetries == 0 {
		p.MaxRetries = DefaultMaxRetries
	}
	if p.InitialDelay == 0 {
		p.InitialDelay = DefaultInitialDelay
	}
	if p.MaxDelay == 0 {
		p.MaxDelay = DefaultMaxDelay
	}
	if p.JitterFraction == 0 {
		p.JitterFraction = DefaultJitterFraction
	}
}

var retryHintPattern = regexp.MustCompile(`(?i)retry in\s+([0-9]+(?:\.[0-9]+)?)\s*s\b`)

// ExtractRetryDelay finds a server hint of the form "retry in <n>s" in the error text.
// Fractional seconds are rounded up to the next millisecond.
func ExtractRetryDelay(err error) (time.Duration, bool) {
	if err == nil {
		return 0, false
	}

	m := retryHintPattern.FindStringSubmatch(err.Error())
	if m == nil {
		return 0, false
	}

	secs, perr := strconv.ParseFloat(m[1], 64)
	if perr != nil {
		return 0, false
	}

	ms := math.Ceil(secs * 1000)
	return time.Duration(ms) * time.Millisecond, true
}

// ComputeBackoff returns the delay before retry number attempt (0-based).
// A server hint wins and gets no jitter. Otherwise the base doubles per attempt and
// jitter in [0, JitterFraction*base) is added. rnd must return values in [0, 1).
// The result never exceeds MaxDelay.
func (p RetryPolicy) ComputeBackoff(attempt int, err error, rnd func() float64) time.Duration {
	if hint, ok := ExtractRetryDelay(err); ok {
		return min(hint, p.MaxDelay)
	}

	base := p.InitialDelay
	for i := 0; i < attempt && base < p.MaxDelay; i++ {
		base *= 2
	}
	base = min(base, p.MaxDelay)

	jitter := time.Duration(rnd() * p.JitterFraction * float64(base))
	return min(base+jitter, p.MaxDelay)
}

// Sleeper waits for d or until ctx is done.
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

// SleeperFunc adapts a function to Sleeper.
type SleeperFunc func(ctx context.Context, d time.Duration) error

// Sleep calls f.
func (f SleeperFunc) Sleep(ctx context.Context, d time.Duration) error {
	return f(ctx, d)
}

type timerSleeper struct{}

func (timerSleeper) Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// RetryEvent describes a scheduled retry.
type RetryEvent struct {
	Attempt int
	Delay   time.Duration
	Err     error
}

// Retrier runs an operation under a RetryPolicy.
type Retrier struct {
	Policy  RetryPolicy
	Sleeper Sleeper
	Rand    func() float64
	OnRetry func(RetryEvent)
}

// NewRetrier creates a Retrier with a real timer and random jitter.
func NewRetrier(policy RetryPolicy) *Retrier {
	policy.SetDefaults()
	return &Retrier{
		Policy:  policy,
		Sleeper: timerSleeper{},
		Rand:    rand.Float64,
	}
}

// Retry calls op until it succeeds, fails with a fatal error, or retries run out.
// On exhaustion the last error is returned unchanged. If ctx ends while waiting,
// the returned error wraps both the context error and the last attempt error.
func Retry[T any](ctx context.Context, r *Retrier, op func(context.Context) (T, error)) (T, error) {
	var zero T

	sleeper := r.Sleeper
	if sleeper == nil {
		sleeper = timerSleeper{}
	}
	rnd := r.Rand
	if rnd == nil {
		rnd = rand.Float64
	}

	for attempt := 0; ; attempt++ {
		result, err := op(ctx)
		if err == nil {
			if attempt > 0 {
				slog.Info("Call succeeded after retry", "attempt", attempt+1)
			}
			return result, nil
		}

		class := ClassifyError(err)
		if class == ErrorFatal || attempt >= r.Policy.MaxRetries {
			slog.Warn("Call failed, not retrying",
				"attempt", attempt+1,
				"class", class.String(),
				"error", err.Error(),
			)
			return zero, err
		}

		delay := r.Policy.ComputeBackoff(attempt, err, rnd)
		slog.Warn("Call failed, retrying",
			"attempt", attempt+1,
			"max_attempts", r.Policy.MaxRetries+1,
			"delay_ms", delay.Milliseconds(),
			"error", err.Error(),
		)

		if r.OnRetry != nil {
			r.OnRetry(RetryEvent{Attempt: attempt, Delay: delay, Err: err})
		}

		if serr := sleeper.Sleep(ctx, delay); serr != nil {
			return zero, fmt.Errorf("retry aborted: %w", errors.Join(serr, err))
		}
	}
}
