package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"

	"github.com/noah-isme/skp-companion/internal/credential"
	"github.com/noah-isme/skp-companion/internal/dto"
	"github.com/noah-isme/skp-companion/internal/models"
	"github.com/noah-isme/skp-companion/internal/remote"
	"github.com/noah-isme/skp-companion/internal/repository"
)

// ErrEmptyProfileUpdate indicates a profile update without any field set.
var ErrEmptyProfileUpdate = errors.New("profile update must change at least one field")

// SessionService manages the stored bearer token and the student's profile.
type SessionService interface {
	Login(ctx context.Context, request dto.SessionRequest) (dto.SessionResponse, error)
	Logout(ctx context.Context) error
	Status(ctx context.Context, token string) (dto.SessionResponse, error)
	Profile(ctx context.Context, token string) (dto.ProfileResponse, error)
	UpdateProfile(ctx context.Context, token string, request dto.ProfileUpdateRequest) (dto.ProfileResponse, error)
}

type sessionService struct {
	client     *remote.Client
	sessions   repository.SessionRepository
	gate       sessionGate
	identities IdentityResolver
	endpoints  []string
	validator  *validator.Validate
	sanitizer  *bluemonday.Policy
	logger     zerolog.Logger
}

// NewSessionService constructs a session service. profileEndpoints are tried in order on update.
func NewSessionService(client *remote.Client, sessions repository.SessionRepository, identities IdentityResolver, profileEndpoints []string, validate *validator.Validate, logger zerolog.Logger) SessionService {
	logger = logger.With().Str("component", "session_service").Logger()
	return &sessionService{
		client:     client,
		sessions:   sessions,
		gate:       newSessionGate(sessions, logger),
		identities: identities,
		endpoints:  profileEndpoints,
		validator:  validate,
		sanitizer:  bluemonday.StrictPolicy(),
		logger:     logger,
	}
}

// Login stores a token issued by the remote service. Malformed and expired tokens are refused.
func (s *sessionService) Login(ctx context.Context, request dto.SessionRequest) (dto.SessionResponse, error) {
	if err := s.validator.Struct(request); err != nil {
		return dto.SessionResponse{}, ErrCredentialMissing
	}

	result := credential.Decode(request.Token, s.gate.now())
	if !result.Usable() {
		return dto.SessionResponse{Status: string(result.Status)}, credentialError(result.Status)
	}

	if err := s.sessions.Clear(ctx); err != nil {
		return dto.SessionResponse{}, err
	}
	if err := s.sessions.SaveToken(ctx, result.Token); err != nil {
		return dto.SessionResponse{}, err
	}

	s.logger.Info().Str("role", result.Role()).Msg("session stored")
	return sessionResponse(result), nil
}

func (s *sessionService) Logout(ctx context.Context) error {
	if err := s.sessions.Clear(ctx); err != nil {
		return err
	}
	s.logger.Info().Msg("session cleared")
	return nil
}

func (s *sessionService) Status(ctx context.Context, token string) (dto.SessionResponse, error) {
	result, err := s.gate.authorize(ctx, token)
	if err != nil {
		return dto.SessionResponse{Status: string(result.Status)}, err
	}
	return sessionResponse(result), nil
}

func (s *sessionService) Profile(ctx context.Context, token string) (dto.ProfileResponse, error) {
	result, err := s.gate.authorize(ctx, token)
	if err != nil {
		return dto.ProfileResponse{}, err
	}
	profile, source := s.identities.Resolve(ctx, result)
	return dto.ProfileResponse{Profile: profile, Source: source}, nil
}

func (s *sessionService) UpdateProfile(ctx context.Context, token string, request dto.ProfileUpdateRequest) (dto.ProfileResponse, error) {
	result, err := s.gate.authorize(ctx, token)
	if err != nil {
		return dto.ProfileResponse{}, err
	}
	if err := s.validator.Struct(request); err != nil {
		return dto.ProfileResponse{}, err
	}

	payload := make(map[string]string)
	if request.Name != nil {
		payload["name"] = plainText(s.sanitizer, *request.Name)
	}
	if request.NIM != nil {
		payload["nim"] = strings.TrimSpace(*request.NIM)
	}
	if request.Email != nil {
		payload["email"] = strings.TrimSpace(*request.Email)
	}
	if len(payload) == 0 {
		return dto.ProfileResponse{}, ErrEmptyProfileUpdate
	}

	profile, err := remote.FirstSuccess(ctx, s.endpoints, func(ctx context.Context, path string) (models.Profile, error) {
		return s.client.UpdateProfile(ctx, result.Token, path, payload)
	})
	if err != nil {
		if remote.Classify(err) == remote.FailureAuthentication {
			s.gate.discard(ctx, "remote rejected credential")
		}
		return dto.ProfileResponse{}, fmt.Errorf("update profile: %w", err)
	}

	if err := s.sessions.SaveIdentity(ctx, profile); err != nil {
		s.logger.Warn().Err(err).Msg("failed to cache updated profile")
	}
	return dto.ProfileResponse{Profile: profile, Source: dto.IdentitySourceRemote}, nil
}

func sessionResponse(result credential.Result) dto.SessionResponse {
	response := dto.SessionResponse{
		Status:    string(result.Status),
		Role:      result.Role(),
		ExpiresAt: result.ExpiresAt,
	}
	if profile, ok := result.Identity(); ok {
		response.Identity = &profile
	}
	return response
}
