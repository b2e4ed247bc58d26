package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/noah-isme/skp-companion/internal/models"
	"github.com/noah-isme/skp-companion/internal/storage"
)

// Store keys for the signed-in session.
const (
	AuthTokenKey = "auth_token"
	UserDataKey  = "user_data"
)

// SessionRepository keeps the bearer credential and the cached identity blob.
type SessionRepository interface {
	Token(ctx context.Context) (string, error)
	SaveToken(ctx context.Context, token string) error
	ClearToken(ctx context.Context) error
	Identity(ctx context.Context) (models.Profile, bool, error)
	SaveIdentity(ctx context.Context, profile models.Profile) error
	Clear(ctx context.Context) error
}

type sessionRepository struct {
	store storage.Store
}

// NewSessionRepository constructs a session repository over the supplied store.
func NewSessionRepository(store storage.Store) SessionRepository {
	return &sessionRepository{store: store}
}

// Token returns the stored bearer token, or an empty string when none is stored.
func (r *sessionRepository) Token(ctx context.Context) (string, error) {
	raw, err := r.store.Get(ctx, AuthTokenKey)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return "", nil
		}
		return "", err
	}

	var token string
	if err := json.Unmarshal(raw, &token); err != nil {
		return "", fmt.Errorf("decode stored token: %w", err)
	}
	return token, nil
}

func (r *sessionRepository) SaveToken(ctx context.Context, token string) error {
	payload, err := json.Marshal(token)
	if err != nil {
		return err
	}
	return r.store.Put(ctx, AuthTokenKey, payload)
}

func (r *sessionRepository) ClearToken(ctx context.Context) error {
	return r.store.Delete(ctx, AuthTokenKey)
}

func (r *sessionRepository) Identity(ctx context.Context) (models.Profile, bool, error) {
	raw, err := r.store.Get(ctx, UserDataKey)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return models.Profile{}, false, nil
		}
		return models.Profile{}, false, err
	}

	var profile models.Profile
	if err := json.Unmarshal(raw, &profile); err != nil {
		return models.Profile{}, false, fmt.Errorf("decode cached identity: %w", err)
	}
	return profile, true, nil
}

func (r *sessionRepository) SaveIdentity(ctx context.Context, profile models.Profile) error {
	payload, err := json.Marshal(profile)
	if err != nil {
		return err
	}
	return r.store.Put(ctx, UserDataKey, payload)
}

func (r *sessionRepository) Clear(ctx context.Context) error {
	if err := r.store.Delete(ctx, AuthTokenKey); err != nil {
		return err
	}
	return r.store.Delete(ctx, UserDataKey)
}
