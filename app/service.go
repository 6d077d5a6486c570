// Package app wires the catalog query and the stock rules to a backend.
// It owns the fetch, compute, persist round trip of every stock operation.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/eapache/go-resiliency/retrier"

	"stockroom/auth"
	"stockroom/domain"
	"stockroom/logger"
)

const (
	// DefaultAttempts is how many times a backend call is tried before the
	// error is surfaced.
	DefaultAttempts = 2
	defaultBackoff  = 200 * time.Millisecond
)

// Session is the part of the authenticator the service needs: a way to
// drop the session when the backend rejects it.
type Session interface {
	Logout() error
}

// Service is the controller behind every screen of the client.
type Service struct {
	products domain.ProductStore
	session  Session
	retrier  *retrier.Retrier
	now      func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithRetry sets how many attempts each backend call gets and the pause
// between them.
func WithRetry(attempts int, backoff time.Duration) Option {
	return func(s *Service) {
		s.retrier = newRetrier(attempts, backoff)
	}
}

// WithClock replaces time.Now, for edit timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// New returns a Service for products. session may be nil, in which case an
// unauthorized answer is only reported.
func New(products domain.ProductStore, session Session, opts ...Option) *Service {
	s := &Service{
		products: products,
		session:  session,
		retrier:  newRetrier(DefaultAttempts, defaultBackoff),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func newRetrier(attempts int, backoff time.Duration) *retrier.Retrier {
	return retrier.New(retrier.ConstantBackoff(max(attempts-1, 0), backoff), transientClassifier{})
}

// transientClassifier retries transport failures and 5xx answers; anything
// the backend answered deliberately fails straight away.
type transientClassifier struct{}

func (transientClassifier) Classify(err error) retrier.Action {
	if err == nil {
		return retrier.Succeed
	}
	switch {
	case errors.Is(err, context.Canceled),
		auth.IsUnauthorized(err),
		domain.IsProductNotFoundError(err),
		domain.IsInvalidProductError(err),
		domain.IsDuplicateProductError(err),
		domain.IsWarehousemanNotFoundError(err):
		return retrier.Fail
	}
	var re *domain.RemoteError
	if errors.As(err, &re) && !re.Temporary() {
		return retrier.Fail
	}
	return retrier.Retry
}

// call runs fn under the retry policy. An unauthorized answer ends the
// session.
func (s *Service) call(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	attempt := 0
	err := s.retrier.RunCtx(ctx, func(ctx context.Context) error {
		attempt++
		err := fn(ctx)
		if err != nil && (transientClassifier{}).Classify(err) == retrier.Retry {
			logger.Logger.Warn().Err(err).Str("op", op).Int("attempt", attempt).Msg("backend call failed")
		}
		return err
	})
	if err == nil {
		return nil
	}

	if auth.IsUnauthorized(err) {
		if !errors.Is(err, domain.ErrUnauthorized) {
			err = fmt.Errorf("%w: %w", domain.ErrUnauthorized, err)
		}
		if s.session != nil {
			if lerr := s.session.Logout(); lerr != nil {
				logger.Logger.Error().Err(lerr).Msg("forced logout failed")
			}
		}
		logger.Logger.Warn().Str("op", op).Msg("session rejected by backend, logged out")
	}
	return fmt.Errorf("%s: %w", op, err)
}

func (s *Service) list(ctx context.Context, op string) ([]domain.Product, error) {
	var products []domain.Product
	err := s.call(ctx, op, func(ctx context.Context) error {
		var err error
		products, err = s.products.List(ctx)
		return err
	})
	return products, err
}

func (s *Service) get(ctx context.Context, op string, id domain.ID) (domain.Product, error) {
	var p domain.Product
	err := s.call(ctx, op, func(ctx context.Context) error {
		var err error
		p, err = s.products.Get(ctx, id)
		return err
	})
	return p, err
}

// mutate fetches product id, applies change and writes the whole document
// back. The fetch and the write are retried separately so a lost answer to
// the write never applies change twice. Nothing guards against a concurrent
// writer; the last write wins.
func (s *Service) mutate(ctx context.Context, op string, id domain.ID, change func(domain.Product) domain.Product) (domain.Product, error) {
	start := time.Now()

	current, err := s.get(ctx, op, id)
	if err != nil {
		return domain.Product{}, err
	}
	next := change(current)
	if err := domain.ValidateProduct(next); err != nil {
		return domain.Product{}, fmt.Errorf("%s: %w", op, err)
	}

	var saved domain.Product
	err = s.call(ctx, op, func(ctx context.Context) error {
		var err error
		saved, err = s.products.Update(ctx, id, next)
		return err
	})
	if err != nil {
		logger.Logger.Error().Err(err).Str("op", op).Str("product_id", string(id)).Msg("update failed")
		return domain.Product{}, err
	}

	logger.Logger.Info().
		Str("op", op).
		Str("product_id", string(id)).
		Int64("duration_ms", time.Since(start).Milliseconds()).
		Msg("product updated")
	return saved, nil
}
