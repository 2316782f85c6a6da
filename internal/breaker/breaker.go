// Package breaker wraps database initialization in a circuit breaker so a
// failing store short-circuits instead of hammering the connection path.
package breaker

import (
	"context"
	"time"

	"github.com/sony/gobreaker"
)

// Options configures the breaker.
type Options struct {
	// Name labels the breaker in state-change logs.
	Name string

	// FailureThreshold is the number of consecutive failures that opens
	// the breaker.
	FailureThreshold uint32

	// RecoveryTimeout is how long the breaker stays open before allowing a
	// half-open probe.
	RecoveryTimeout time.Duration

	// OnStateChange is called when the breaker transitions.
	OnStateChange func(name string, from, to string)
}

// Breaker is a three-state (closed, open, half-open) circuit breaker.
// One success in half-open closes it; one failure re-opens it.
type Breaker struct {
	cb *gobreaker.CircuitBreaker
}

// New creates a breaker. Zero options get the database defaults: 5
// consecutive failures to open, 30 s recovery.
func New(opts Options) *Breaker {
	if opts.Name == "" {
		opts.Name = "database"
	}
	if opts.FailureThreshold == 0 {
		opts.FailureThreshold = 5
	}
	if opts.RecoveryTimeout == 0 {
		opts.RecoveryTimeout = 30 * time.Second
	}

	settings := gobreaker.Settings{
		Name:        opts.Name,
		MaxRequests: 1,
		Timeout:     opts.RecoveryTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= opts.FailureThreshold
		},
	}
	if opts.OnStateChange != nil {
		settings.OnStateChange = func(name string, from, to gobreaker.State) {
			opts.OnStateChange(name, from.String(), to.String())
		}
	}

	return &Breaker{cb: gobreaker.NewCircuitBreaker(settings)}
}

// Do runs fn through the breaker. While the breaker is open it fails fast
// with gobreaker.ErrOpenState without invoking fn.
func (b *Breaker) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	_, err := b.cb.Execute(func() (any, error) {
		return nil, fn(ctx)
	})
	return err
}

// Open reports whether the breaker is currently open.
func (b *Breaker) Open() bool {
	return b.cb.State() == gobreaker.StateOpen
}

// State returns the breaker state name: "closed", "open" or "half-open".
func (b *Breaker) State() string {
	return b.cb.State().String()
}
