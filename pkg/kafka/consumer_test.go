package kafka

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"
)

func TestPermanent_Classification(t *testing.T) {
	base := errors.New("session 42 not found")

	if IsPermanent(base) {
		t.Error("plain error should not be classified as permanent")
	}

	perm := Permanent(base)
	if !IsPermanent(perm) {
		t.Error("Permanent(err) should be classified as permanent")
	}
	if !errors.Is(perm, base) {
		t.Error("Permanent(err) should unwrap to the original error")
	}
}

func TestPermanent_SurvivesWrapping(t *testing.T) {
	perm := Permanent(errors.New("unknown aggregate"))
	wrapped := fmt.Errorf("handle review event: %w", perm)

	if !IsPermanent(wrapped) {
		t.Error("permanent marker should survive fmt.Errorf wrapping")
	}
}

func TestPermanent_Nil(t *testing.T) {
	if Permanent(nil) != nil {
		t.Error("Permanent(nil) should return nil")
	}
	if IsPermanent(nil) {
		t.Error("IsPermanent(nil) should be false")
	}
}

// fakeStarter scripts the errors successive consumers stop with.
type fakeStarter struct {
	errs []error
}

func (f *fakeStarter) next() error {
	if len(f.errs) == 0 {
		return nil
	}
	err := f.errs[0]
	f.errs = f.errs[1:]
	return err
}

func TestRunWithRestart_RebuildsAfterExhaustedRetries(t *testing.T) {
	starts := &fakeStarter{errs: []error{
		fmt.Errorf("%w: persistent db outage", ErrHandlerExhausted),
		fmt.Errorf("%w: persistent db outage", ErrHandlerExhausted),
		nil,
	}}

	var built atomic.Int32
	factory := func() Starter {
		built.Add(1)
		return starterFunc(func(ctx context.Context) error { return starts.next() })
	}

	err := RunWithRestart(context.Background(), time.Millisecond, testLogger(), factory)
	if err != nil {
		t.Fatalf("RunWithRestart returned %v, want nil", err)
	}
	if got := built.Load(); got != 3 {
		t.Errorf("factory built %d consumers, want 3", got)
	}
}

func TestRunWithRestart_UnknownErrorStopsLoop(t *testing.T) {
	boom := errors.New("broker gone")

	var built atomic.Int32
	factory := func() Starter {
		built.Add(1)
		return starterFunc(func(ctx context.Context) error { return boom })
	}

	err := RunWithRestart(context.Background(), time.Millisecond, testLogger(), factory)
	if !errors.Is(err, boom) {
		t.Fatalf("RunWithRestart returned %v, want %v", err, boom)
	}
	if got := built.Load(); got != 1 {
		t.Errorf("factory built %d consumers, want 1", got)
	}
}

func TestRunWithRestart_ContextCancelEndsRestartWait(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	factory := func() Starter {
		return starterFunc(func(context.Context) error {
			cancel()
			return fmt.Errorf("%w: still failing", ErrHandlerExhausted)
		})
	}

	done := make(chan error, 1)
	go func() {
		done <- RunWithRestart(ctx, time.Hour, testLogger(), factory)
	}()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("RunWithRestart returned %v, want nil", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("RunWithRestart kept waiting for the restart delay after cancellation")
	}
}

type starterFunc func(ctx context.Context) error

func (f starterFunc) Start(ctx context.Context) error { return f(ctx) }

func TestConsumerConfig_Defaults(t *testing.T) {
	cfg := ConsumerConfig{
		Brokers: []string{"localhost:9092"},
		GroupID: "session-service",
		Topic:   "coaching.review.submitted",
	}
	c := NewConsumer(cfg, func(ctx context.Context, e *Event) error { return nil }, nil, testLogger())
	defer c.Close()

	if c.maxRetries != defaultMaxHandlerRetries {
		t.Errorf("maxRetries = %d, want default %d", c.maxRetries, defaultMaxHandlerRetries)
	}
}
