package app

import (
	"context"
	"errors"
	"fmt"

	"chat-admin/models"
	"chat-admin/observability"
	"chat-admin/repository"
)

// ErrInvalidCredentials is returned for an unknown user or a wrong password
var ErrInvalidCredentials = errors.New("invalid credentials")

// Login checks the credentials against the stored users. Nothing is
// persisted; the caller only learns who matched.
func (a *App) Login(ctx context.Context, username, password string) (*models.Identity, error) {
	metrics := observability.GetMetrics()

	if username == "" || password == "" {
		metrics.RecordLogin("rejected")
		return nil, fmt.Errorf("%w: username and password are required", ErrValidation)
	}

	user, err := a.store.GetUserByUsername(ctx, username)
	if errors.Is(err, repository.ErrNotFound) {
		metrics.RecordLogin("invalid")
		observability.WithContext(ctx).Warn("login failed", "username", username)
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	if user.Password != password {
		metrics.RecordLogin("invalid")
		observability.WithContext(ctx).Warn("login failed", "username", username)
		return nil, ErrInvalidCredentials
	}

	metrics.RecordLogin("success")
	identity := user.Identity()
	return &identity, nil
}
