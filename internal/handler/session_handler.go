package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/skp-companion/internal/dto"
	"github.com/noah-isme/skp-companion/internal/middleware"
	"github.com/noah-isme/skp-companion/internal/service"
	"github.com/noah-isme/skp-companion/internal/utils"
)

// SessionHandler stores and forgets the bearer token and exposes the student's profile.
type SessionHandler struct {
	service service.SessionService
	logger  zerolog.Logger
}

// NewSessionHandler constructs a session handler.
func NewSessionHandler(service service.SessionService, logger zerolog.Logger) *SessionHandler {
	return &SessionHandler{
		service: service,
		logger:  logger.With().Str("component", "session_handler").Logger(),
	}
}

// Register wires session routes.
func (h *SessionHandler) Register(router fiber.Router) {
	router.Get("", h.status)
	router.Post("", h.login)
	router.Delete("", h.logout)
}

// RegisterProfile wires profile routes.
func (h *SessionHandler) RegisterProfile(router fiber.Router) {
	router.Get("", h.profile)
	router.Put("", h.updateProfile)
}

func (h *SessionHandler) login(c *fiber.Ctx) error {
	var request dto.SessionRequest
	if err := c.BodyParser(&request); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid session payload")
	}

	response, err := h.service.Login(c.UserContext(), request)
	if err != nil {
		if service.IsCredentialError(err) {
			return utils.Fail(c, fiber.StatusUnauthorized, err.Error(), response)
		}
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to store session")
		return utils.Fail(c, fiber.StatusInternalServerError, "failed to store session", nil)
	}
	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "session stored", response)
}

func (h *SessionHandler) logout(c *fiber.Ctx) error {
	if err := h.service.Logout(c.UserContext()); err != nil {
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to clear session")
		return utils.Fail(c, fiber.StatusInternalServerError, "failed to clear session", nil)
	}
	return utils.SendSuccess(c, "session cleared", nil)
}

func (h *SessionHandler) status(c *fiber.Ctx) error {
	response, err := h.service.Status(c.UserContext(), middleware.SessionToken(c))
	if err != nil {
		return sendRemoteError(c, h.logger, err, "session status")
	}
	return utils.SendSuccess(c, "session active", response)
}

func (h *SessionHandler) profile(c *fiber.Ctx) error {
	response, err := h.service.Profile(c.UserContext(), middleware.SessionToken(c))
	if err != nil {
		return sendRemoteError(c, h.logger, err, "profile lookup")
	}
	return utils.SendSuccess(c, "profile resolved", response)
}

func (h *SessionHandler) updateProfile(c *fiber.Ctx) error {
	var request dto.ProfileUpdateRequest
	if err := c.BodyParser(&request); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid profile payload")
	}

	response, err := h.service.UpdateProfile(c.UserContext(), middleware.SessionToken(c), request)
	if err != nil {
		if errors.Is(err, service.ErrEmptyProfileUpdate) {
			return utils.Fail(c, fiber.StatusBadRequest, err.Error(), nil)
		}
		return sendRemoteError(c, h.logger, err, "profile update")
	}
	return utils.SendSuccess(c, "profile updated", response)
}
