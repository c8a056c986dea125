package records

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"

	"github.com/dyllz92/Seated-Massage-Intake-Form/internal/domain"
)

// BreakerSource guards a remote or database source with a circuit breaker.
// While the breaker is open reads fail fast with domain.ErrSourceUnavailable.
type BreakerSource struct {
	inner   Source
	breaker *gobreaker.CircuitBreaker
}

// NewBreakerSource wraps inner with the default breaker settings.
func NewBreakerSource(inner Source, logger *logrus.Logger) *BreakerSource {
	return &BreakerSource{
		inner: inner,
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        inner.Name(),
			MaxRequests: 5,
			Interval:    30 * time.Second,
			Timeout:     60 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
				return counts.Requests >= 3 && failureRatio >= 0.6
			},
			// Cancellation is the caller's doing, not a backend failure
			IsSuccessful: func(err error) bool {
				return err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
			},
			OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
				logger.WithFields(logrus.Fields{
					"source": name,
					"from":   from.String(),
					"to":     to.String(),
				}).Warn("Record source circuit breaker changed state")
			},
		}),
	}
}

// Name implements Source.
func (b *BreakerSource) Name() string {
	return b.inner.Name()
}

// State reports the breaker state.
func (b *BreakerSource) State() gobreaker.State {
	return b.breaker.State()
}

// Read implements Source.
func (b *BreakerSource) Read(ctx context.Context) ([]json.RawMessage, error) {
	result, err := b.breaker.Execute(func() (interface{}, error) {
		return b.inner.Read(ctx)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%s: %w", b.inner.Name(), domain.ErrSourceUnavailable)
	}
	if err != nil {
		return nil, err
	}
	docs, _ := result.([]json.RawMessage)
	return docs, nil
}
