package pipeline

import (
	"context"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// BreakerConfig controls when the circuit around a wrapped stage trips and
// how long it stays open.
type BreakerConfig struct {
	Name             string
	FailureThreshold uint32        // consecutive failures before opening
	ResetTimeout     time.Duration // open duration before a half-open probe
	HalfOpenRequests uint32        // probes allowed while half-open
}

// breakered guards a stage with a circuit breaker. While the circuit is
// open, Invoke fails immediately with gobreaker.ErrOpenState instead of
// calling the wrapped stage; Transform applies the same guard per item.
type breakered[In, Out any] struct {
	inner   Stage[In, Out]
	breaker *gobreaker.CircuitBreaker
	logger  *zap.Logger
}

// Breaker wraps a stage with circuit breaking. A nil logger disables the
// state-change log.
func Breaker[In, Out any](inner Stage[In, Out], cfg BreakerConfig, logger *zap.Logger) Stage[In, Out] {
	if logger == nil {
		logger = zap.NewNop()
	}
	log := logger
	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.HalfOpenRequests,
		Timeout:     cfg.ResetTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("Circuit breaker state change",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	}
	return breakered[In, Out]{
		inner:   inner,
		breaker: gobreaker.NewCircuitBreaker(settings),
		logger:  log,
	}
}

func (b breakered[In, Out]) Invoke(ctx context.Context, input In) (Out, error) {
	v, err := b.breaker.Execute(func() (interface{}, error) {
		return b.inner.Invoke(ctx, input)
	})
	if err != nil {
		var zero Out
		return zero, err
	}
	return v.(Out), nil
}

func (b breakered[In, Out]) Transform(ctx context.Context, in <-chan Item[In]) <-chan Item[Out] {
	return TransformEach(ctx, in, b.Invoke)
}
