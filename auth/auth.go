// Package auth logs warehouse staff in and out with their secret code.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"stockroom/domain"
	"stockroom/logger"
)

// SessionStore persists the logged-in user between runs.
type SessionStore interface {
	SaveUser(user domain.Warehouseman) error
	User() (domain.Warehouseman, bool, error)
	ClearUser() error
}

// Authenticator resolves secret codes against the staff directory and
// remembers the result in the session store.
type Authenticator struct {
	staff   domain.WarehousemanStore
	session SessionStore
}

// New returns an Authenticator.
func New(staff domain.WarehousemanStore, session SessionStore) *Authenticator {
	return &Authenticator{staff: staff, session: session}
}

// Login looks up the staff member owning secretKey and stores them as the
// current user.
func (a *Authenticator) Login(ctx context.Context, secretKey string) (domain.Warehouseman, error) {
	secretKey = strings.TrimSpace(secretKey)
	if secretKey == "" {
		return domain.Warehouseman{}, domain.NewWarehousemanNotFoundError()
	}

	user, err := a.staff.FindBySecretKey(ctx, secretKey)
	if err != nil {
		return domain.Warehouseman{}, fmt.Errorf("login: %w", err)
	}
	if err := a.session.SaveUser(user); err != nil {
		return domain.Warehouseman{}, fmt.Errorf("login: %w", err)
	}

	logger.Logger.Info().
		Int("warehouseman_id", user.ID).
		Int("warehouse_id", user.WarehouseID).
		Msg("logged in")
	return user, nil
}

// Logout forgets the current user.
func (a *Authenticator) Logout() error {
	if err := a.session.ClearUser(); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	logger.Logger.Info().Msg("logged out")
	return nil
}

// Current returns the stored user. ok is false when nobody is logged in.
func (a *Authenticator) Current() (user domain.Warehouseman, ok bool, err error) {
	return a.session.User()
}

// Require returns the current user or ErrNotAuthenticated.
func (a *Authenticator) Require() (domain.Warehouseman, error) {
	user, ok, err := a.session.User()
	if err != nil {
		return domain.Warehouseman{}, err
	}
	if !ok {
		return domain.Warehouseman{}, domain.ErrNotAuthenticated
	}
	return user, nil
}

// IsUnauthorized reports whether err means the backend no longer accepts
// the session. Besides ErrUnauthorized it recognises backends that only
// say so in the message.
func IsUnauthorized(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, domain.ErrUnauthorized) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "token invalid") || strings.Contains(msg, "unauthorized")
}
