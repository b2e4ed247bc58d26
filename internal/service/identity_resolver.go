package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/noah-isme/skp-companion/internal/credential"
	"github.com/noah-isme/skp-companion/internal/dto"
	"github.com/noah-isme/skp-companion/internal/models"
	"github.com/noah-isme/skp-companion/internal/remote"
	"github.com/noah-isme/skp-companion/internal/repository"
)

const placeholderStudentName = "Unknown Student"

// IdentityResolver determines who a claim is attributed to. It always returns an identity.
type IdentityResolver interface {
	Resolve(ctx context.Context, cred credential.Result) (models.Profile, string)
}

type identityResolver struct {
	client    *remote.Client
	endpoints []string
	sessions  repository.SessionRepository
	logger    zerolog.Logger
}

// NewIdentityResolver constructs a resolver probing the given profile endpoints in order.
func NewIdentityResolver(client *remote.Client, endpoints []string, sessions repository.SessionRepository, logger zerolog.Logger) IdentityResolver {
	return &identityResolver{
		client:    client,
		endpoints: endpoints,
		sessions:  sessions,
		logger:    logger.With().Str("component", "identity_resolver").Logger(),
	}
}

// Resolve tries the remote profile, then the token claims and finally synthesises a
// placeholder. The cached profile only stands in for the token claims when it belongs to
// the same subject.
func (r *identityResolver) Resolve(ctx context.Context, cred credential.Result) (models.Profile, string) {
	if r.client != nil && len(r.endpoints) > 0 {
		profile, err := r.client.FetchProfile(ctx, cred.Token, r.endpoints)
		if err == nil {
			if err := r.sessions.SaveIdentity(ctx, profile); err != nil {
				r.logger.Warn().Err(err).Msg("failed to cache student profile")
			}
			return profile, dto.IdentitySourceRemote
		}
		r.logger.Debug().Err(err).Msg("profile endpoints unavailable")
	}

	if profile, ok := cred.Identity(); ok {
		cached, found, err := r.sessions.Identity(ctx)
		if err != nil {
			r.logger.Warn().Err(err).Msg("failed to read cached profile")
		}
		if found && cached.ID == profile.ID {
			return cached, dto.IdentitySourceCache
		}
		return profile, dto.IdentitySourceToken
	}

	return models.Profile{
		ID:   "anon-" + uuid.NewString(),
		Name: placeholderStudentName,
	}, dto.IdentitySourcePlaceholder
}
