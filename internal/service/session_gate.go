package service

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/skp-companion/internal/credential"
	"github.com/noah-isme/skp-companion/internal/repository"
)

// sessionGate resolves the bearer token for remote calls and discards stored tokens that
// can no longer be used, together with the identity cached for them.
type sessionGate struct {
	sessions repository.SessionRepository
	logger   zerolog.Logger
	now      func() time.Time
}

func newSessionGate(sessions repository.SessionRepository, logger zerolog.Logger) sessionGate {
	return sessionGate{sessions: sessions, logger: logger, now: time.Now}
}

// authorize falls back to the stored token when token is empty. No network call is made.
func (g sessionGate) authorize(ctx context.Context, token string) (credential.Result, error) {
	token = strings.TrimSpace(token)

	stored, err := g.sessions.Token(ctx)
	if err != nil {
		return credential.Result{}, err
	}
	if token == "" {
		token = stored
	}

	result := credential.Decode(token, g.now())
	if result.Usable() {
		return result, nil
	}

	if result.Status != credential.StatusMissing && token == stored {
		g.discard(ctx, string(result.Status))
	}
	return result, credentialError(result.Status)
}

func (g sessionGate) discard(ctx context.Context, reason string) {
	if err := g.sessions.Clear(ctx); err != nil {
		g.logger.Warn().Err(err).Str("reason", reason).Msg("failed to discard stored session token")
		return
	}
	g.logger.Info().Str("reason", reason).Msg("stored session token discarded")
}
