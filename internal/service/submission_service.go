package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/skp-companion/internal/dto"
	"github.com/noah-isme/skp-companion/internal/events"
	"github.com/noah-isme/skp-companion/internal/models"
	"github.com/noah-isme/skp-companion/internal/observability"
	"github.com/noah-isme/skp-companion/internal/remote"
	"github.com/noah-isme/skp-companion/internal/repository"
)

// SubmissionConfig carries the remote routes used by the submission service.
type SubmissionConfig struct {
	Route           remote.ClaimRoute
	UploadEndpoints []string
	EvidenceMaxMB   int
}

// SubmissionService records activity claims remotely, or locally when the remote service
// cannot take them.
type SubmissionService interface {
	Submit(ctx context.Context, request dto.ClaimSubmitRequest, evidence *dto.EvidenceFile, token string, confirmer Confirmer) (dto.SubmitResult, error)
}

type submissionService struct {
	client     *remote.Client
	pending    repository.PendingRepository
	gate       sessionGate
	identities IdentityResolver
	evidence   *evidenceMaterializer
	publisher  events.Publisher
	validator  *validator.Validate
	sanitizer  *bluemonday.Policy
	route      remote.ClaimRoute
	logger     zerolog.Logger
	tracer     trace.Tracer
	now        func() time.Time
}

// NewSubmissionService constructs the submission orchestrator. storage and publisher may be nil.
func NewSubmissionService(
	client *remote.Client,
	pending repository.PendingRepository,
	sessions repository.SessionRepository,
	identities IdentityResolver,
	storage FileStorage,
	publisher events.Publisher,
	validate *validator.Validate,
	cfg SubmissionConfig,
	logger zerolog.Logger,
) SubmissionService {
	if publisher == nil {
		publisher = events.Nop{}
	}
	logger = logger.With().Str("component", "submission_service").Logger()
	tracer := observability.Tracer("service/submission")

	return &submissionService{
		client:     client,
		pending:    pending,
		gate:       newSessionGate(sessions, logger),
		identities: identities,
		evidence:   newEvidenceMaterializer(client, cfg.UploadEndpoints, storage, cfg.EvidenceMaxMB, logger, tracer),
		publisher:  publisher,
		validator:  validate,
		sanitizer:  bluemonday.StrictPolicy(),
		route:      cfg.Route,
		logger:     logger,
		tracer:     tracer,
		now:        time.Now,
	}
}

func (s *submissionService) Submit(ctx context.Context, request dto.ClaimSubmitRequest, file *dto.EvidenceFile, token string, confirmer Confirmer) (dto.SubmitResult, error) {
	ctx, span := s.tracer.Start(ctx, "claims.submit")
	defer span.End()

	cred, err := s.gate.authorize(ctx, token)
	if err != nil {
		if !IsCredentialError(err) {
			span.RecordError(err)
			return dto.SubmitResult{}, err
		}
		return s.reject(span, dto.FailureAuthentication, err)
	}

	claim, err := s.prepareClaim(request)
	if err != nil {
		return s.reject(span, dto.FailureValidation, err)
	}
	content, err := s.evidence.inspect(file)
	if err != nil {
		return s.reject(span, dto.FailureValidation, err)
	}
	span.SetAttributes(attribute.String("claim.activity_type", claim.ActivityType))

	student, source := s.identities.Resolve(ctx, cred)
	span.SetAttributes(attribute.String("claim.identity_source", source))

	evidence := s.evidence.materialize(ctx, cred.Token, content)
	if evidence.Kind != models.EvidenceKindURL {
		prompt := ConfirmationPrompt{
			Kind:     ConfirmEvidenceFallback,
			Message:  evidenceFallbackMessage(evidence),
			Evidence: &evidence,
		}
		if !confirmed(ctx, confirmer, prompt) {
			s.record(dto.OutcomeCancelled, "")
			span.SetStatus(codes.Error, "cancelled")
			s.logger.Info().Str("evidence_kind", evidence.Kind).Msg("submission cancelled without usable evidence link")
			return dto.SubmitResult{
				Outcome:  dto.OutcomeCancelled,
				Message:  "Submission cancelled. Nothing was sent or saved.",
				Evidence: &evidence,
			}, ErrSubmissionCancelled
		}
	}

	id := uuid.NewString()
	submittedAt := s.now().UTC()
	payloads := []remote.ClaimPayload{
		minimalPayload(claim, evidence),
		extendedPayload(claim, evidence, student, submittedAt),
	}

	receipt, err := s.client.SubmitClaim(ctx, cred.Token, s.route, payloads, id)
	if err == nil {
		s.record(dto.OutcomeSubmitted, "")
		s.publish(ctx, events.ClaimSubmitted, id, "")
		span.SetStatus(codes.Ok, "submitted")
		s.logger.Info().Str("endpoint", receipt.Path).Str("shape", receipt.Shape).Msg("claim submitted")
		return dto.SubmitResult{
			Outcome: dto.OutcomeSubmitted,
			Message: "Activity claim submitted for review.",
			Receipt: &dto.ClaimReceiptResponse{
				Endpoint: receipt.Path,
				Shape:    receipt.Shape,
				Status:   receipt.Status,
				RemoteID: receipt.RemoteID,
			},
			Evidence: &evidence,
			Student:  &student,
		}, nil
	}

	return s.queue(ctx, span, id, submittedAt, claim, student, evidence, err)
}

func (s *submissionService) queue(ctx context.Context, span trace.Span, id string, createdAt time.Time, claim models.ActivityClaim, student models.Profile, evidence models.EvidenceReference, cause error) (dto.SubmitResult, error) {
	span.RecordError(cause)
	class := remote.Classify(cause)
	if class == remote.FailureAuthentication {
		s.gate.discard(ctx, "remote rejected credential")
	}

	entry := models.PendingSubmission{
		ID:         id,
		CreatedAt:  createdAt,
		Claim:      claim,
		User:       student,
		Evidence:   evidence,
		Status:     models.PendingStatusServerSync,
		RetryCount: 0,
		LastError:  lastFailure(cause),
	}
	if err := s.pending.Append(ctx, entry); err != nil {
		span.SetStatus(codes.Error, "local persistence failed")
		s.logger.Error().Err(err).AnErr("remote_error", cause).Msg("failed to queue claim locally")
		return dto.SubmitResult{}, fmt.Errorf("queue claim locally after remote failure (%s): %w", entry.LastError, err)
	}

	failure := string(class)
	s.record(dto.OutcomeQueued, failure)
	count := s.publish(ctx, events.PendingQueued, id, entry.LastError)
	observability.PendingEntries().Set(float64(count))
	span.SetStatus(codes.Error, "queued locally")
	s.logger.Warn().Err(cause).Str("failure", failure).Str("pending_id", id).Msg("claim queued locally")

	return dto.SubmitResult{
		Outcome:  dto.OutcomeQueued,
		Failure:  failure,
		Message:  queuedMessage(class, cause),
		Pending:  &entry,
		Evidence: &evidence,
		Student:  &student,
	}, nil
}

func (s *submissionService) prepareClaim(request dto.ClaimSubmitRequest) (models.ActivityClaim, error) {
	if err := s.validator.Struct(request); err != nil {
		return models.ActivityClaim{}, fmt.Errorf("%w: %v", ErrInvalidClaim, err)
	}

	claim := request.ToModel()
	claim.Title = plainText(s.sanitizer, claim.Title)
	claim.Description = plainText(s.sanitizer, claim.Description)
	claim.Notes = plainText(s.sanitizer, claim.Notes)
	if claim.Title == "" || claim.Description == "" {
		return models.ActivityClaim{}, fmt.Errorf("%w: title and description must contain text", ErrInvalidClaim)
	}
	return claim, nil
}

func (s *submissionService) reject(span trace.Span, failure string, err error) (dto.SubmitResult, error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, failure)
	s.record(dto.OutcomeRejected, failure)
	return dto.SubmitResult{
		Outcome: dto.OutcomeRejected,
		Failure: failure,
		Message: err.Error(),
	}, err
}

func (s *submissionService) record(outcome dto.SubmitOutcome, failure string) {
	observability.Submissions().WithLabelValues(string(outcome), failure).Inc()
}

// publish emits a queue event and returns the queue size it reported.
func (s *submissionService) publish(ctx context.Context, kind events.Type, id, message string) int {
	count := 0
	if entries, err := s.pending.ListAll(ctx); err == nil {
		count = len(entries)
	}
	s.publisher.Publish(ctx, events.Event{
		Type:       kind,
		PendingID:  id,
		Count:      count,
		Message:    message,
		OccurredAt: s.now().UTC(),
	})
	return count
}

func evidenceFallbackMessage(evidence models.EvidenceReference) string {
	if evidence.Kind == models.EvidenceKindInline {
		return fmt.Sprintf("Evidence %s could not be uploaded and will be embedded in the claim instead. Continue?", evidence.FileName)
	}
	return fmt.Sprintf("Evidence %s could not be encoded; the claim will only carry its description. Continue?", evidence.FileName)
}

func queuedMessage(class remote.FailureClass, cause error) string {
	switch class {
	case remote.FailureMaintenance:
		return "The SKP service is not accepting submissions yet (maintenance). Your claim was saved locally; export it for manual processing or retry later."
	case remote.FailureAuthentication:
		return "The SKP service rejected your session. Your claim was saved locally; sign in again and retry."
	case remote.FailurePermanent:
		status := remote.StatusOf(cause)
		var probe *remote.ProbeError
		if errors.As(cause, &probe) {
			status = remote.StatusOf(probe.Last())
		}
		return fmt.Sprintf("The SKP service refused the claim (HTTP %d). It was saved locally for manual handling.", status)
	default:
		return "The SKP service could not be reached. Your claim was saved locally; retry when the service is back."
	}
}
