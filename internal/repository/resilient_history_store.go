package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker/v2"

	"LoadCoach/internal/domain/models"
	domrepo "LoadCoach/internal/domain/repository"
	domsvc "LoadCoach/internal/domain/service"
	applogger "LoadCoach/pkg/logger"
)

var _ domrepo.LoadHistoryStore = (*ResilientHistoryStore)(nil)

// BreakerConfig tunes the circuit breaker around a history store.
type BreakerConfig struct {
	Name             string
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	FailureThreshold uint32
}

// DefaultBreakerConfig opens after five consecutive failures and probes again after 30s.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		Name:             "history-store",
		MaxRequests:      1,
		Interval:         time.Minute,
		Timeout:          30 * time.Second,
		FailureThreshold: 5,
	}
}

// ResilientHistoryStore reports every failure of the wrapped store, and every
// call rejected by the open breaker, as ErrCollaboratorUnavailable.
type ResilientHistoryStore struct {
	next    domrepo.LoadHistoryStore
	breaker *gobreaker.CircuitBreaker[[]models.StressRecord]
}

func NewResilientHistoryStore(next domrepo.LoadHistoryStore, cfg BreakerConfig, log *applogger.Logger) *ResilientHistoryStore {
	if log == nil {
		log = applogger.NewNop()
	}
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = DefaultBreakerConfig().FailureThreshold
	}
	threshold := cfg.FailureThreshold
	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("circuit breaker state change",
				applogger.String("breaker", name),
				applogger.String("from", from.String()),
				applogger.String("to", to.String()),
			)
		},
		// Caller cancellations say nothing about the store's health.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
	}
	return &ResilientHistoryStore{
		next:    next,
		breaker: gobreaker.NewCircuitBreaker[[]models.StressRecord](settings),
	}
}

func (s *ResilientHistoryStore) SessionsBetween(ctx context.Context, userID string, from, to time.Time) ([]models.StressRecord, error) {
	out, err := s.breaker.Execute(func() ([]models.StressRecord, error) {
		return s.next.SessionsBetween(ctx, userID, from, to)
	})
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		return nil, fmt.Errorf("history store: %w: %w", domsvc.ErrCollaboratorUnavailable, err)
	}
	return out, nil
}

// State exposes the breaker state for health reporting.
func (s *ResilientHistoryStore) State() string {
	return s.breaker.State().String()
}
