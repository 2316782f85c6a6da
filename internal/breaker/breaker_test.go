package breaker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sony/gobreaker"
)

func TestBreakerOpensAtThreshold(t *testing.T) {
	b := New(Options{FailureThreshold: 3, RecoveryTimeout: time.Minute})
	boom := errors.New("connect refused")

	for i := 0; i < 3; i++ {
		if err := b.Do(context.Background(), func(context.Context) error { return boom }); !errors.Is(err, boom) {
			t.Fatalf("attempt %d: err = %v, want cause", i, err)
		}
	}

	if !b.Open() {
		t.Fatalf("breaker state = %s, want open after 3 consecutive failures", b.State())
	}

	// While open, calls short-circuit without invoking fn.
	called := false
	err := b.Do(context.Background(), func(context.Context) error {
		called = true
		return nil
	})
	if !errors.Is(err, gobreaker.ErrOpenState) {
		t.Fatalf("err = %v, want ErrOpenState", err)
	}
	if called {
		t.Fatal("fn must not run while the breaker is open")
	}
}

func TestBreakerRecovers(t *testing.T) {
	b := New(Options{FailureThreshold: 1, RecoveryTimeout: 20 * time.Millisecond})

	_ = b.Do(context.Background(), func(context.Context) error { return errors.New("fail") })
	if !b.Open() {
		t.Fatal("breaker should open after one failure at threshold 1")
	}

	time.Sleep(30 * time.Millisecond)

	// Half-open: one success closes it.
	if err := b.Do(context.Background(), func(context.Context) error { return nil }); err != nil {
		t.Fatalf("half-open probe failed: %v", err)
	}
	if b.State() != "closed" {
		t.Fatalf("state = %s, want closed after successful probe", b.State())
	}
}

func TestBreakerStateChangeCallback(t *testing.T) {
	var transitions []string
	b := New(Options{
		FailureThreshold: 1,
		RecoveryTimeout:  time.Minute,
		OnStateChange: func(name, from, to string) {
			transitions = append(transitions, from+"->"+to)
		},
	})

	_ = b.Do(context.Background(), func(context.Context) error { return errors.New("fail") })
	if len(transitions) == 0 {
		t.Fatal("expected a state transition callback")
	}
}
