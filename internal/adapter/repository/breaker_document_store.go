package repository

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker/v2"

	"lugares/internal/domain/repository"
	"lugares/pkg/errors"
)

type BreakerSettings struct {
	Name string

	// MaxFailures consecutive store failures open the breaker.
	MaxFailures uint32

	// Timeout is how long the breaker stays open before letting one probe through.
	Timeout time.Duration

	OnStateChange func(name string, from, to gobreaker.State)
}

type breakerDocumentStore struct {
	next    repository.DocumentStore
	breaker *gobreaker.CircuitBreaker[any]
}

// NewBreakerDocumentStore fails fast with ErrStoreUnavailable while the wrapped
// store keeps erroring. Not-found results, domain errors and cancellations do
// not count against the store.
func NewBreakerDocumentStore(next repository.DocumentStore, cfg BreakerSettings) repository.DocumentStore {
	if cfg.MaxFailures == 0 {
		cfg.MaxFailures = 5
	}
	if cfg.Name == "" {
		cfg.Name = "document-store"
	}

	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: 1,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.MaxFailures
		},
		IsSuccessful:  isStoreHealthy,
		OnStateChange: cfg.OnStateChange,
	}

	return &breakerDocumentStore{
		next:    next,
		breaker: gobreaker.NewCircuitBreaker[any](settings),
	}
}

func isStoreHealthy(err error) bool {
	if err == nil {
		return true
	}
	var appErr *errors.AppError
	switch {
	case stderrors.As(err, &appErr),
		stderrors.Is(err, repository.ErrDocumentNotFound),
		stderrors.Is(err, repository.ErrReadAfterWrite),
		stderrors.Is(err, repository.ErrTooManyAttempts),
		stderrors.Is(err, context.Canceled),
		stderrors.Is(err, context.DeadlineExceeded):
		return true
	}
	return false
}

func (s *breakerDocumentStore) execute(fn func() (any, error)) (any, error) {
	result, err := s.breaker.Execute(fn)
	if stderrors.Is(err, gobreaker.ErrOpenState) || stderrors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%w: %v", repository.ErrStoreUnavailable, err)
	}
	return result, err
}

func (s *breakerDocumentStore) Get(ctx context.Context, collection, id string) (*repository.Document, error) {
	result, err := s.execute(func() (any, error) {
		return s.next.Get(ctx, collection, id)
	})
	if err != nil {
		return nil, err
	}
	return result.(*repository.Document), nil
}

func (s *breakerDocumentStore) Query(ctx context.Context, collection string, filters ...repository.Filter) ([]*repository.Document, error) {
	result, err := s.execute(func() (any, error) {
		return s.next.Query(ctx, collection, filters...)
	})
	if err != nil {
		return nil, err
	}
	return result.([]*repository.Document), nil
}

func (s *breakerDocumentStore) Set(ctx context.Context, collection, id string, fields map[string]interface{}, merge bool) error {
	_, err := s.execute(func() (any, error) {
		return nil, s.next.Set(ctx, collection, id, fields, merge)
	})
	return err
}

func (s *breakerDocumentStore) Add(ctx context.Context, collection string, fields map[string]interface{}) (string, error) {
	result, err := s.execute(func() (any, error) {
		return s.next.Add(ctx, collection, fields)
	})
	if err != nil {
		return "", err
	}
	return result.(string), nil
}

func (s *breakerDocumentStore) Delete(ctx context.Context, collection, id string) error {
	_, err := s.execute(func() (any, error) {
		return nil, s.next.Delete(ctx, collection, id)
	})
	return err
}

func (s *breakerDocumentStore) RunTransaction(ctx context.Context, fn repository.TxnFunc) error {
	_, err := s.execute(func() (any, error) {
		return nil, s.next.RunTransaction(ctx, fn)
	})
	return err
}
