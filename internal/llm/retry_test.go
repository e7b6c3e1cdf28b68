package llm

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorClass
	}{
		{"nil", nil, ErrorFatal},
		{"503 status", errors.New("HTTP 503 from upstream"), ErrorRetryable},
		{"service unavailable", errors.New("Service Unavailable"), ErrorRetryable},
		{"overloaded", errors.New("The model is overloaded"), ErrorRetryable},
		{"429 status", errors.New("got 429"), ErrorRetryable},
		{"too many requests", errors.New("Too Many Requests"), ErrorRetryable},
		{"quota", errors.New("Quota exceeded for project"), ErrorRetryable},
		{"rate limit", errors.New("rate limit hit"), ErrorRetryable},
		{"rate-limit", errors.New("rate-limit hit"), ErrorRetryable},
		{"ratelimit", errors.New("RateLimitExceeded"), ErrorRetryable},
		{"please retry", errors.New("Please retry later"), ErrorRetryable},
		{"network", NewNetworkError(errors.New("dial tcp")), ErrorRetryable},
		{"econnreset", errors.New("read ECONNRESET"), ErrorRetryable},
		{"connection reset", errors.New("connection reset by peer"), ErrorRetryable},
		{"timeout", NewTimeoutError(nil), ErrorRetryable},
		{"wrapped", fmt.Errorf("flow failed: %w", NewAPIError(503, "busy")), ErrorRetryable},
		{"400 bad request", errors.New("400 Bad Request: invalid argument"), ErrorFatal},
		{"401", NewAPIError(401, "Invalid API key"), ErrorFatal},
		{"parse", NewParseError("garbage", errors.New("invalid character")), ErrorFatal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClassifyError(tt.err); got != tt.want {
				t.Errorf("ClassifyError(%v) = %s, want %s", tt.err, got, tt.want)
			}
		})
	}
}

func TestExtractRetryDelay(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		want   time.Duration
		wantOK bool
	}{
		{"fractional seconds", errors.New("503: Please retry in 2.5s."), 2500 * time.Millisecond, true},
		{"whole seconds", errors.New("retry in 7s"), 7 * time.Second, true},
		{"rounds up to next millisecond", errors.New("Retry in 1.0004s"), 1001 * time.Millisecond, true},
		{"case insensitive", errors.New("RETRY IN 3S"), 3 * time.Second, true},
		{"no hint", errors.New("503 service unavailable"), 0, false},
		{"nil", nil, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ExtractRetryDelay(tt.err)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("ExtractRetryDelay() = %v, %v; want %v, %v", got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestComputeBackoff(t *testing.T) {
	p := DefaultRetryPolicy()
	plain := errors.New("503 service unavailable")

	t.Run("bounds without hint", func(t *testing.T) {
		for _, r := range []float64{0, 0.5, 0.999999} {
			rnd := func() float64 { return r }

			d0 := p.ComputeBackoff(0, plain, rnd)
			if d0 < 1000*time.Millisecond || d0 > 1300*time.Millisecond {
				t.Errorf("attempt 0 with rnd=%v: %v outside [1000ms,1300ms]", r, d0)
			}

			d1 := p.ComputeBackoff(1, plain, rnd)
			if d1 < 2000*time.Millisecond || d1 > 2600*time.Millisecond {
				t.Errorf("attempt 1 with rnd=%v: %v outside [2000ms,2600ms]", r, d1)
			}

			for attempt := 0; attempt < 40; attempt++ {
				if d := p.ComputeBackoff(attempt, plain, rnd); d > p.MaxDelay {
					t.Errorf("attempt %d: %v exceeds max %v", attempt, d, p.MaxDelay)
				}
			}
		}
	})

	t.Run("exact values at zero jitter", func(t *testing.T) {
		zero := func() float64 { return 0 }
		want := []time.Duration{time.Second, 2 * time.Second, 4 * time.Second, 8 * time.Second, 10 * time.Second}
		for attempt, w := range want {
			if got := p.ComputeBackoff(attempt, plain, zero); got != w {
				t.Errorf("attempt %d: got %v, want %v", attempt, got, w)
			}
		}
	})

	t.Run("server hint has no jitter", func(t *testing.T) {
		hinted := errors.New("429 Too Many Requests. Please retry in 2.5s")
		for _, r := range []float64{0, 0.9} {
			got := p.ComputeBackoff(3, hinted, func() float64 { return r })
			if got != 2500*time.Millisecond {
				t.Errorf("rnd=%v: got %v, want 2.5s", r, got)
			}
		}
	})

	t.Run("server hint is capped", func(t *testing.T) {
		hinted := errors.New("quota exceeded, retry in 45s")
		if got := p.ComputeBackoff(0, hinted, func() float64 { return 0 }); got != p.MaxDelay {
			t.Errorf("got %v, want %v", got, p.MaxDelay)
		}
	})
}

type recordingSleeper struct {
	delays []time.Duration
}

func (s *recordingSleeper) Sleep(ctx context.Context, d time.Duration) error {
	s.delays = append(s.delays, d)
	return ctx.Err()
}

func newTestRetrier() (*Retrier, *recordingSleeper) {
	sleeper := &recordingSleeper{}
	r := NewRetrier(DefaultRetryPolicy())
	r.Sleeper = sleeper
	r.Rand = func() float64 { return 0 }
	return r, sleeper
}

func TestRetry(t *testing.T) {
	t.Run("success on first attempt", func(t *testing.T) {
		r, sleeper := newTestRetrier()
		calls := 0

		got, err := Retry(context.Background(), r, func(ctx context.Context) (string, error) {
			calls++
			return "ok", nil
		})

		if err != nil || got != "ok" {
			t.Fatalf("got %q, %v", got, err)
		}
		if calls != 1 || len(sleeper.delays) != 0 {
			t.Errorf("expected one call and no sleeps, got %d calls %v", calls, sleeper.delays)
		}
	})

	t.Run("recovers after transient failures", func(t *testing.T) {
		r, sleeper := newTestRetrier()
		var events []RetryEvent
		r.OnRetry = func(e RetryEvent) { events = append(events, e) }
		calls := 0

		got, err := Retry(context.Background(), r, func(ctx context.Context) (int, error) {
			calls++
			if calls < 3 {
				return 0, NewAPIError(503, "overloaded")
			}
			return 42, nil
		})

		if err != nil || got != 42 {
			t.Fatalf("got %d, %v", got, err)
		}
		if calls != 3 {
			t.Errorf("expected 3 calls, got %d", calls)
		}
		if len(sleeper.delays) != 2 || sleeper.delays[0] != time.Second || sleeper.delays[1] != 2*time.Second {
			t.Errorf("unexpected delays %v", sleeper.delays)
		}
		if len(events) != 2 || events[1].Attempt != 1 {
			t.Errorf("unexpected retry events %+v", events)
		}
	})

	t.Run("fatal error is not retried", func(t *testing.T) {
		r, sleeper := newTestRetrier()
		fatal := NewAPIError(400, "invalid argument")
		calls := 0

		_, err := Retry(context.Background(), r, func(ctx context.Context) (int, error) {
			calls++
			return 0, fatal
		})

		if err != fatal {
			t.Errorf("expected the fatal error unchanged, got %v", err)
		}
		if calls != 1 || len(sleeper.delays) != 0 {
			t.Errorf("expected a single call, got %d", calls)
		}
	})

	t.Run("exhaustion returns the last error unchanged", func(t *testing.T) {
		r, sleeper := newTestRetrier()
		var last error
		calls := 0

		_, err := Retry(context.Background(), r, func(ctx context.Context) (int, error) {
			calls++
			last = fmt.Errorf("attempt %d: 503 service unavailable", calls)
			return 0, last
		})

		if calls != 4 {
			t.Errorf("expected 4 calls, got %d", calls)
		}
		if err != last || !errors.Is(err, last) {
			t.Errorf("expected last error %v, got %v", last, err)
		}
		if len(sleeper.delays) != 3 {
			t.Errorf("expected 3 sleeps, got %v", sleeper.delays)
		}
	})

	t.Run("cancellation stops the loop", func(t *testing.T) {
		r := NewRetrier(DefaultRetryPolicy())
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		transient := NewAPIError(503, "busy")
		_, err := Retry(ctx, r, func(ctx context.Context) (int, error) {
			return 0, transient
		})

		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
		if !errors.Is(err, transient) {
			t.Errorf("expected the attempt error to be kept, got %v", err)
		}
	})

	t.Run("real sleeper honours context", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()

		start := time.Now()
		err := timerSleeper{}.Sleep(ctx, time.Minute)
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("expected deadline exceeded, got %v", err)
		}
		if time.Since(start) > 5*time.Second {
			t.Error("sleep did not stop on context deadline")
		}
	})
}
