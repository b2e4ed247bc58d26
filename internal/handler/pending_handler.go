package handler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/skp-companion/internal/dto"
	"github.com/noah-isme/skp-companion/internal/events"
	"github.com/noah-isme/skp-companion/internal/middleware"
	"github.com/noah-isme/skp-companion/internal/observability"
	"github.com/noah-isme/skp-companion/internal/repository"
	"github.com/noah-isme/skp-companion/internal/service"
	"github.com/noah-isme/skp-companion/internal/utils"
)

const eventPingInterval = 30 * time.Second

// EventSource hands out live queue event subscriptions.
type EventSource interface {
	Subscribe() (<-chan events.Event, func())
}

// PendingHandler exposes the local pending queue.
type PendingHandler struct {
	service    service.PendingService
	events     EventSource
	retryGuard fiber.Handler
	logger     zerolog.Logger
}

// NewPendingHandler constructs a pending queue handler. retryGuard, typically a rate
// limiter, runs in front of the replay route when set.
func NewPendingHandler(service service.PendingService, source EventSource, retryGuard fiber.Handler, logger zerolog.Logger) *PendingHandler {
	return &PendingHandler{
		service:    service,
		events:     source,
		retryGuard: retryGuard,
		logger:     logger.With().Str("component", "pending_handler").Logger(),
	}
}

// Register wires pending queue routes.
func (h *PendingHandler) Register(router fiber.Router) {
	router.Get("", h.list)
	router.Delete("", h.clear)
	router.Get("/export", h.export)

	if h.retryGuard != nil {
		router.Post("/retry", h.retryGuard, h.retry)
	} else {
		router.Post("/retry", h.retry)
	}

	if h.events != nil {
		router.Use("/events", func(c *fiber.Ctx) error {
			if websocket.IsWebSocketUpgrade(c) {
				return c.Next()
			}
			return fiber.ErrUpgradeRequired
		})
		router.Get("/events", websocket.New(h.stream))
	}

	router.Delete("/:id", h.remove)
}

func (h *PendingHandler) list(c *fiber.Ctx) error {
	entries, err := h.service.List(c.UserContext())
	if err != nil {
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to list pending submissions")
		return utils.Fail(c, fiber.StatusInternalServerError, "failed to list pending submissions", nil)
	}
	response := dto.NewPendingListResponse(entries)
	return utils.OK(c, response, "pending submissions", fiber.Map{"count": response.Count})
}

func (h *PendingHandler) remove(c *fiber.Ctx) error {
	if err := h.service.Remove(c.UserContext(), c.Params("id")); err != nil {
		if errors.Is(err, repository.ErrPendingNotFound) {
			return utils.Fail(c, fiber.StatusNotFound, err.Error(), nil)
		}
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to remove pending submission")
		return utils.Fail(c, fiber.StatusInternalServerError, "failed to remove pending submission", nil)
	}
	return utils.SendSuccess(c, "pending submission removed", nil)
}

func (h *PendingHandler) retry(c *fiber.Ctx) error {
	report, err := h.service.RetryAll(c.UserContext(), middleware.SessionToken(c))
	if err != nil {
		if service.IsCredentialError(err) {
			return utils.Fail(c, fiber.StatusUnauthorized, err.Error(), nil)
		}
		requestLogger(h.logger, c).Error().Err(err).Msg("pending replay failed")
		return utils.Fail(c, fiber.StatusInternalServerError, "pending replay failed", report)
	}

	message := fmt.Sprintf("%d of %d pending submission(s) delivered", len(report.Succeeded), report.Attempted)
	return utils.SendSuccess(c, message, report)
}

func (h *PendingHandler) export(c *fiber.Ctx) error {
	format := dto.ExportFormat(c.Query("format", string(dto.ExportJSON)))
	artifact, err := h.service.ExportAll(c.UserContext(), format)
	if err != nil {
		if errors.Is(err, service.ErrInvalidExportFormat) {
			return utils.Fail(c, fiber.StatusBadRequest, err.Error(), nil)
		}
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to export pending submissions")
		return utils.Fail(c, fiber.StatusInternalServerError, "failed to export pending submissions", nil)
	}

	c.Attachment(artifact.FileName)
	c.Set(fiber.HeaderContentType, artifact.ContentType)
	return c.Status(fiber.StatusOK).Send(artifact.Content)
}

func (h *PendingHandler) clear(c *fiber.Ctx) error {
	confirmer := service.NeverConfirm
	if c.QueryBool("confirm") {
		confirmer = service.AlwaysConfirm
	}

	cleared, err := h.service.ClearAll(c.UserContext(), confirmer)
	if err != nil {
		if errors.Is(err, service.ErrClearNotConfirmed) {
			return utils.Fail(c, fiber.StatusPreconditionRequired, "add confirm=true to delete every pending submission", nil)
		}
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to clear pending submissions")
		return utils.Fail(c, fiber.StatusInternalServerError, "failed to clear pending submissions", nil)
	}
	return utils.SendSuccess(c, "pending submissions cleared", fiber.Map{"cleared": cleared})
}

func (h *PendingHandler) stream(conn *websocket.Conn) {
	updates, cancel := h.events.Subscribe()
	defer cancel()

	observability.EventSubscribers().Inc()
	defer observability.EventSubscribers().Dec()

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	snapshot := events.Event{Type: events.PendingSnapshot, OccurredAt: time.Now().UTC()}
	if entries, err := h.service.List(context.Background()); err == nil {
		snapshot.Count = len(entries)
	}
	if err := conn.WriteJSON(snapshot); err != nil {
		return
	}

	ticker := time.NewTicker(eventPingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-closed:
			return
		case event, ok := <-updates:
			if !ok {
				return
			}
			if err := conn.WriteJSON(event); err != nil {
				h.logger.Debug().Err(err).Msg("pending event subscriber went away")
				return
			}
		case <-ticker.C:
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
