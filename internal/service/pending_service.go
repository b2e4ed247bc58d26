package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/skp-companion/internal/dto"
	"github.com/noah-isme/skp-companion/internal/events"
	"github.com/noah-isme/skp-companion/internal/export"
	"github.com/noah-isme/skp-companion/internal/models"
	"github.com/noah-isme/skp-companion/internal/observability"
	"github.com/noah-isme/skp-companion/internal/remote"
	"github.com/noah-isme/skp-companion/internal/repository"
)

// PendingConfig configures replays of the pending queue.
type PendingConfig struct {
	Route remote.ClaimRoute
	// MaxReplays skips entries that already failed this many replays. Zero disables the cap.
	MaxReplays int
}

// PendingService manages claims that are waiting for the remote service.
type PendingService interface {
	List(ctx context.Context) ([]models.PendingSubmission, error)
	Remove(ctx context.Context, id string) error
	RetryAll(ctx context.Context, token string) (dto.RetryReport, error)
	ExportAll(ctx context.Context, format dto.ExportFormat) (dto.ExportArtifact, error)
	ClearAll(ctx context.Context, confirmer Confirmer) (int, error)
}

type pendingService struct {
	client    *remote.Client
	repo      repository.PendingRepository
	gate      sessionGate
	renderer  *export.Renderer
	publisher events.Publisher
	cfg       PendingConfig
	logger    zerolog.Logger
	tracer    trace.Tracer
	now       func() time.Time
}

// NewPendingService constructs a pending queue service. publisher may be nil.
func NewPendingService(client *remote.Client, repo repository.PendingRepository, sessions repository.SessionRepository, renderer *export.Renderer, publisher events.Publisher, cfg PendingConfig, logger zerolog.Logger) PendingService {
	if publisher == nil {
		publisher = events.Nop{}
	}
	logger = logger.With().Str("component", "pending_service").Logger()
	return &pendingService{
		client:    client,
		repo:      repo,
		gate:      newSessionGate(sessions, logger),
		renderer:  renderer,
		publisher: publisher,
		cfg:       cfg,
		logger:    logger,
		tracer:    observability.Tracer("service/pending"),
		now:       time.Now,
	}
}

func (s *pendingService) List(ctx context.Context) ([]models.PendingSubmission, error) {
	entries, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	observability.PendingEntries().Set(float64(len(entries)))
	return entries, nil
}

func (s *pendingService) Remove(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return repository.ErrPendingNotFound
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.emit(ctx, events.PendingRemoved, id, "")
	s.logger.Info().Str("pending_id", id).Msg("pending submission removed")
	return nil
}

// RetryAll replays every eligible entry once with the minimal payload and applies the
// outcome in a single rewrite.
func (s *pendingService) RetryAll(ctx context.Context, token string) (dto.RetryReport, error) {
	ctx, span := s.tracer.Start(ctx, "pending.retry_all")
	defer span.End()

	cred, err := s.gate.authorize(ctx, token)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "credential rejected")
		return dto.RetryReport{}, err
	}

	entries, err := s.repo.ListAll(ctx)
	if err != nil {
		span.RecordError(err)
		return dto.RetryReport{}, err
	}
	span.SetAttributes(attribute.Int("pending.size", len(entries)))

	report := dto.RetryReport{
		Succeeded: []string{},
		Failed:    []dto.ReplayFailureResponse{},
		Skipped:   []string{},
	}
	var failures []repository.ReplayFailure
	authRejected := false

	for _, entry := range entries {
		if ctx.Err() != nil {
			break
		}
		if s.cfg.MaxReplays > 0 && entry.RetryCount >= s.cfg.MaxReplays {
			report.Skipped = append(report.Skipped, entry.ID)
			observability.Replays().WithLabelValues("skipped").Inc()
			continue
		}

		report.Attempted++
		payloads := []remote.ClaimPayload{minimalPayload(entry.Claim, entry.Evidence)}
		if _, err := s.client.SubmitClaim(ctx, cred.Token, s.cfg.Route, payloads, entry.ID); err != nil {
			class := remote.Classify(err)
			if class == remote.FailureAuthentication {
				authRejected = true
			}
			message := lastFailure(err)
			failures = append(failures, repository.ReplayFailure{ID: entry.ID, Error: message})
			report.Failed = append(report.Failed, dto.ReplayFailureResponse{
				ID:         entry.ID,
				Title:      entry.Claim.Title,
				Failure:    string(class),
				Error:      message,
				RetryCount: entry.RetryCount + 1,
			})
			observability.Replays().WithLabelValues("failed").Inc()
			continue
		}

		report.Succeeded = append(report.Succeeded, entry.ID)
		observability.Replays().WithLabelValues("succeeded").Inc()
	}

	if err := s.repo.ApplyReplay(ctx, report.Succeeded, failures); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "apply replay failed")
		return report, fmt.Errorf("apply replay outcome: %w", err)
	}
	if authRejected {
		s.gate.discard(ctx, "remote rejected credential during replay")
	}

	for _, id := range report.Succeeded {
		s.emit(ctx, events.PendingReplayed, id, "")
	}
	for _, failure := range report.Failed {
		s.emit(ctx, events.PendingRetryFailed, failure.ID, failure.Error)
	}

	remaining, err := s.repo.ListAll(ctx)
	if err == nil {
		report.Remaining = len(remaining)
		observability.PendingEntries().Set(float64(report.Remaining))
	}

	span.SetAttributes(
		attribute.Int("pending.succeeded", len(report.Succeeded)),
		attribute.Int("pending.failed", len(report.Failed)),
		attribute.Int("pending.skipped", len(report.Skipped)),
	)
	s.logger.Info().
		Int("attempted", report.Attempted).
		Int("succeeded", len(report.Succeeded)).
		Int("failed", len(report.Failed)).
		Int("skipped", len(report.Skipped)).
		Msg("pending queue replayed")

	return report, nil
}

// ExportAll renders the queue without modifying it.
func (s *pendingService) ExportAll(ctx context.Context, format dto.ExportFormat) (dto.ExportArtifact, error) {
	entries, err := s.repo.ListAll(ctx)
	if err != nil {
		return dto.ExportArtifact{}, err
	}

	generatedAt := s.now().UTC()
	artifact := dto.ExportArtifact{
		Format:      format,
		Count:       len(entries),
		GeneratedAt: generatedAt,
	}

	switch format {
	case dto.ExportJSON, "":
		content, err := s.renderer.JSON(entries, generatedAt)
		if err != nil {
			return dto.ExportArtifact{}, err
		}
		artifact.Format = dto.ExportJSON
		artifact.Content = content
		artifact.ContentType = "application/json"
		artifact.FileName = export.FileName("json", generatedAt)
	case dto.ExportText:
		artifact.Content = s.renderer.Text(entries, generatedAt)
		artifact.ContentType = "text/plain; charset=utf-8"
		artifact.FileName = export.FileName("txt", generatedAt)
	default:
		return dto.ExportArtifact{}, ErrInvalidExportFormat
	}

	return artifact, nil
}

// ClearAll empties the queue once the confirmer agrees and returns how many entries were dropped.
func (s *pendingService) ClearAll(ctx context.Context, confirmer Confirmer) (int, error) {
	entries, err := s.repo.ListAll(ctx)
	if err != nil {
		return 0, err
	}

	prompt := ConfirmationPrompt{
		Kind:    ConfirmClearPending,
		Message: fmt.Sprintf("Permanently delete %d pending submission(s)? Export them first if they are still needed.", len(entries)),
		Count:   len(entries),
	}
	if !confirmed(ctx, confirmer, prompt) {
		return 0, ErrClearNotConfirmed
	}

	if err := s.repo.Clear(ctx); err != nil {
		return 0, err
	}
	s.emit(ctx, events.PendingCleared, "", "")
	s.logger.Warn().Int("count", len(entries)).Msg("pending queue cleared")
	return len(entries), nil
}

func (s *pendingService) emit(ctx context.Context, kind events.Type, id, message string) {
	count := 0
	entries, err := s.repo.ListAll(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to count pending submissions")
	} else {
		count = len(entries)
	}
	observability.PendingEntries().Set(float64(count))
	s.publisher.Publish(ctx, events.Event{
		Type:       kind,
		PendingID:  id,
		Count:      count,
		Message:    message,
		OccurredAt: s.now().UTC(),
	})
}
