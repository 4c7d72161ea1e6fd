package resilience

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func fastRetry() RetryConfig {
	return RetryConfig{
		MaxAttempts:    3,
		InitialBackoff: 1 * time.Millisecond,
		MaxBackoff:     10 * time.Millisecond,
		Multiplier:     2.0,
	}
}

func TestDo_SuccessOnFirstAttempt(t *testing.T) {
	var calls int
	got, err := Do(context.Background(), DefaultRetryConfig(), func(_ context.Context) (string, error) {
		calls++
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "ok" {
		t.Errorf("expected ok, got %q", got)
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

func TestDo_SuccessAfterRetry(t *testing.T) {
	var calls int
	got, err := Do(context.Background(), fastRetry(), func(_ context.Context) ([]string, error) {
		calls++
		if calls < 3 {
			return nil, statusErr(503)
		}
		return []string{"snippet"}, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 {
		t.Errorf("expected one snippet, got %v", got)
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
}

func TestDo_ExhaustsRetries(t *testing.T) {
	var calls int
	got, err := Do(context.Background(), fastRetry(), func(_ context.Context) (int, error) {
		calls++
		return 42, statusErr(500)
	})
	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	if got != 0 {
		t.Errorf("expected zero value on failure, got %d", got)
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
}

func TestDo_NonTransientError_NoRetry(t *testing.T) {
	var calls int
	_, err := Do(context.Background(), fastRetry(), func(_ context.Context) (int, error) {
		calls++
		return 0, errors.New("bad request")
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Errorf("expected 1 call for non-transient error, got %d", calls)
	}
}

func TestDo_ContextCancelled_StopsRetry(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := fastRetry()
	cfg.MaxAttempts = 10
	cfg.InitialBackoff = time.Second

	var calls atomic.Int32
	done := make(chan error, 1)
	go func() {
		_, err := Do(ctx, cfg, func(_ context.Context) (int, error) {
			calls.Add(1)
			return 0, statusErr(503)
		})
		done <- err
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err == nil {
			t.Fatal("expected error after cancellation")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Do did not return after cancellation")
	}
	if calls.Load() != 1 {
		t.Errorf("expected 1 call before cancellation, got %d", calls.Load())
	}
}

func TestDo_CustomShouldRetry(t *testing.T) {
	cfg := fastRetry()
	cfg.ShouldRetry = func(err error) bool { return err.Error() == "retry me" }

	var calls int
	_, _ = Do(context.Background(), cfg, func(_ context.Context) (int, error) {
		calls++
		return 0, errors.New("retry me")
	})
	if calls != 3 {
		t.Errorf("expected 3 calls with custom ShouldRetry, got %d", calls)
	}
}

func TestDo_OnRetryCallback(t *testing.T) {
	cfg := fastRetry()
	var attempts []int
	cfg.OnRetry = func(attempt int, _ error) { attempts = append(attempts, attempt) }

	_, _ = Do(context.Background(), cfg, func(_ context.Context) (int, error) {
		return 0, statusErr(429)
	})
	if len(attempts) != 2 || attempts[0] != 1 || attempts[1] != 2 {
		t.Errorf("expected retries [1 2], got %v", attempts)
	}
}

func TestDo_DefaultConfig(t *testing.T) {
	var calls atomic.Int32
	_, err := Do(context.Background(), RetryConfig{}, func(_ context.Context) (int, error) {
		calls.Add(1)
		return 1, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls.Load() != 1 {
		t.Errorf("expected 1 call, got %d", calls.Load())
	}
}

func TestComputeBackoff_ExponentialGrowth(t *testing.T) {
	cfg := applyDefaults(RetryConfig{
		InitialBackoff: 100 * time.Millisecond,
		MaxBackoff:     10 * time.Second,
		Multiplier:     2.0,
	})

	expected := []time.Duration{100 * time.Millisecond, 200 * time.Millisecond, 400 * time.Millisecond, 800 * time.Millisecond}
	for i, want := range expected {
		if d := computeBackoff(i, cfg); d != want {
			t.Errorf("attempt %d: expected %v, got %v", i, want, d)
		}
	}
}

func TestComputeBackoff_CapsAtMax(t *testing.T) {
	cfg := applyDefaults(RetryConfig{
		InitialBackoff: 1 * time.Second,
		MaxBackoff:     5 * time.Second,
		Multiplier:     10.0,
	})

	if delay := computeBackoff(5, cfg); delay > 5*time.Second {
		t.Errorf("expected delay capped at 5s, got %v", delay)
	}
}

func TestComputeBackoff_WithJitter(t *testing.T) {
	cfg := applyDefaults(RetryConfig{
		InitialBackoff: 1 * time.Second,
		MaxBackoff:     30 * time.Second,
		Multiplier:     2.0,
		JitterFraction: 0.5,
	})

	seen := make(map[time.Duration]bool)
	for i := 0; i < 100; i++ {
		d := computeBackoff(0, cfg)
		seen[d] = true
		if d < 500*time.Millisecond || d > 1500*time.Millisecond {
			t.Errorf("delay %v outside expected range [500ms, 1500ms]", d)
		}
	}
	if len(seen) < 2 {
		t.Error("expected jitter to produce varying delays")
	}
}

func TestRetryLogger(t *testing.T) {
	t.Parallel()
	logger := RetryLogger("serp", "search")
	logger(1, errors.New("test error"))
}
