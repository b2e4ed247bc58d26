package service

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"

	"github.com/noah-isme/skp-companion/internal/dto"
	"github.com/noah-isme/skp-companion/internal/models"
	"github.com/noah-isme/skp-companion/internal/remote"
	"github.com/noah-isme/skp-companion/internal/repository"
)

// CatalogService proxies the remote administration API.
type CatalogService interface {
	ListActivityTypes(ctx context.Context, token string) ([]models.ActivityType, error)
	CreateActivityType(ctx context.Context, token string, request dto.ActivityTypeRequest) (models.ActivityType, error)
	UpdateActivityType(ctx context.Context, token, id string, request dto.ActivityTypeRequest) (models.ActivityType, error)
	DeleteActivityType(ctx context.Context, token, id string) error
	ListCompetencies(ctx context.Context, token string) ([]models.Competency, error)
	CreateCompetency(ctx context.Context, token string, request dto.CompetencyRequest) (models.Competency, error)
	UpdateCompetency(ctx context.Context, token, id string, request dto.CompetencyRequest) (models.Competency, error)
	DeleteCompetency(ctx context.Context, token, id string) error
	ListUsers(ctx context.Context, token string) ([]models.RemoteUser, error)
	Review(ctx context.Context, token, submissionID string, request dto.ReviewRequest) error
}

type catalogService struct {
	catalog   *remote.Catalog
	gate      sessionGate
	validator *validator.Validate
	sanitizer *bluemonday.Policy
	logger    zerolog.Logger
}

// NewCatalogService constructs the admin catalog service.
func NewCatalogService(catalog *remote.Catalog, sessions repository.SessionRepository, validate *validator.Validate, logger zerolog.Logger) CatalogService {
	logger = logger.With().Str("component", "catalog_service").Logger()
	return &catalogService{
		catalog:   catalog,
		gate:      newSessionGate(sessions, logger),
		validator: validate,
		sanitizer: bluemonday.StrictPolicy(),
		logger:    logger,
	}
}

func (s *catalogService) ListActivityTypes(ctx context.Context, token string) ([]models.ActivityType, error) {
	cred, err := s.gate.authorize(ctx, token)
	if err != nil {
		return nil, err
	}
	return s.catalog.ListActivityTypes(ctx, cred.Token)
}

func (s *catalogService) CreateActivityType(ctx context.Context, token string, request dto.ActivityTypeRequest) (models.ActivityType, error) {
	cred, err := s.gate.authorize(ctx, token)
	if err != nil {
		return models.ActivityType{}, err
	}
	request, err = s.cleanActivityType(request)
	if err != nil {
		return models.ActivityType{}, err
	}
	created, err := s.catalog.CreateActivityType(ctx, cred.Token, request)
	if err != nil {
		return models.ActivityType{}, err
	}
	s.logger.Info().Str("activity_type_id", created.ID).Msg("activity type created")
	return created, nil
}

func (s *catalogService) UpdateActivityType(ctx context.Context, token, id string, request dto.ActivityTypeRequest) (models.ActivityType, error) {
	cred, err := s.gate.authorize(ctx, token)
	if err != nil {
		return models.ActivityType{}, err
	}
	request, err = s.cleanActivityType(request)
	if err != nil {
		return models.ActivityType{}, err
	}
	return s.catalog.UpdateActivityType(ctx, cred.Token, id, request)
}

func (s *catalogService) DeleteActivityType(ctx context.Context, token, id string) error {
	cred, err := s.gate.authorize(ctx, token)
	if err != nil {
		return err
	}
	if err := s.catalog.DeleteActivityType(ctx, cred.Token, id); err != nil {
		return err
	}
	s.logger.Info().Str("activity_type_id", id).Msg("activity type deleted")
	return nil
}

func (s *catalogService) ListCompetencies(ctx context.Context, token string) ([]models.Competency, error) {
	cred, err := s.gate.authorize(ctx, token)
	if err != nil {
		return nil, err
	}
	return s.catalog.ListCompetencies(ctx, cred.Token)
}

func (s *catalogService) CreateCompetency(ctx context.Context, token string, request dto.CompetencyRequest) (models.Competency, error) {
	cred, err := s.gate.authorize(ctx, token)
	if err != nil {
		return models.Competency{}, err
	}
	request, err = s.cleanCompetency(request)
	if err != nil {
		return models.Competency{}, err
	}
	return s.catalog.CreateCompetency(ctx, cred.Token, request)
}

func (s *catalogService) UpdateCompetency(ctx context.Context, token, id string, request dto.CompetencyRequest) (models.Competency, error) {
	cred, err := s.gate.authorize(ctx, token)
	if err != nil {
		return models.Competency{}, err
	}
	request, err = s.cleanCompetency(request)
	if err != nil {
		return models.Competency{}, err
	}
	return s.catalog.UpdateCompetency(ctx, cred.Token, id, request)
}

func (s *catalogService) DeleteCompetency(ctx context.Context, token, id string) error {
	cred, err := s.gate.authorize(ctx, token)
	if err != nil {
		return err
	}
	return s.catalog.DeleteCompetency(ctx, cred.Token, id)
}

func (s *catalogService) ListUsers(ctx context.Context, token string) ([]models.RemoteUser, error) {
	cred, err := s.gate.authorize(ctx, token)
	if err != nil {
		return nil, err
	}
	return s.catalog.ListUsers(ctx, cred.Token)
}

func (s *catalogService) Review(ctx context.Context, token, submissionID string, request dto.ReviewRequest) error {
	cred, err := s.gate.authorize(ctx, token)
	if err != nil {
		return err
	}
	if err := s.validator.Struct(request); err != nil {
		return err
	}
	request.Note = plainText(s.sanitizer, request.Note)

	if err := s.catalog.ReviewSubmission(ctx, cred.Token, submissionID, request.Decision, request); err != nil {
		return err
	}
	s.logger.Info().Str("submission_id", submissionID).Str("decision", request.Decision).Msg("submission reviewed")
	return nil
}

func (s *catalogService) cleanActivityType(request dto.ActivityTypeRequest) (dto.ActivityTypeRequest, error) {
	request.Name = plainText(s.sanitizer, request.Name)
	request.Category = plainText(s.sanitizer, request.Category)
	request.Description = plainText(s.sanitizer, request.Description)
	if err := s.validator.Struct(request); err != nil {
		return dto.ActivityTypeRequest{}, err
	}
	return request, nil
}

func (s *catalogService) cleanCompetency(request dto.CompetencyRequest) (dto.CompetencyRequest, error) {
	request.Code = strings.ToUpper(strings.TrimSpace(request.Code))
	request.Name = plainText(s.sanitizer, request.Name)
	request.Description = plainText(s.sanitizer, request.Description)
	if err := s.validator.Struct(request); err != nil {
		return dto.CompetencyRequest{}, err
	}
	return request, nil
}
