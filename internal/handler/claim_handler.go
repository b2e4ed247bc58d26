package handler

import (
	"errors"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/skp-companion/internal/dto"
	"github.com/noah-isme/skp-companion/internal/middleware"
	"github.com/noah-isme/skp-companion/internal/service"
	"github.com/noah-isme/skp-companion/internal/utils"
)

// ClaimHandler accepts activity claims from the student.
type ClaimHandler struct {
	service service.SubmissionService
	logger  zerolog.Logger
}

// NewClaimHandler constructs a claim handler.
func NewClaimHandler(service service.SubmissionService, logger zerolog.Logger) *ClaimHandler {
	return &ClaimHandler{
		service: service,
		logger:  logger.With().Str("component", "claim_handler").Logger(),
	}
}

// Register wires claim routes.
func (h *ClaimHandler) Register(router fiber.Router) {
	router.Post("", h.submit)
}

func (h *ClaimHandler) submit(c *fiber.Ctx) error {
	var request dto.ClaimSubmitRequest
	if err := c.BodyParser(&request); err != nil {
		return utils.Fail(c, fiber.StatusBadRequest, "invalid claim form", nil)
	}

	var evidence *dto.EvidenceFile
	if header, err := c.FormFile("evidence"); err == nil {
		evidence = dto.EvidenceFromMultipart(header)
	}

	confirmer := service.NeverConfirm
	if proceed, _ := strconv.ParseBool(strings.TrimSpace(c.FormValue("proceed_without_evidence"))); proceed {
		confirmer = service.AlwaysConfirm
	}

	result, err := h.service.Submit(c.UserContext(), request, evidence, middleware.SessionToken(c), confirmer)
	if err != nil {
		return h.handleError(c, result, err)
	}

	switch result.Outcome {
	case dto.OutcomeSubmitted:
		return utils.SendSuccessWithStatus(c, fiber.StatusCreated, result.Message, result)
	default:
		return utils.SendSuccessWithStatus(c, fiber.StatusAccepted, result.Message, result)
	}
}

func (h *ClaimHandler) handleError(c *fiber.Ctx, result dto.SubmitResult, err error) error {
	switch {
	case service.IsCredentialError(err):
		return utils.Fail(c, fiber.StatusUnauthorized, err.Error(), nil)
	case errors.Is(err, service.ErrSubmissionCancelled):
		return utils.Fail(c, fiber.StatusConflict, result.Message, result)
	case errors.Is(err, service.ErrEvidenceTooLarge):
		return utils.Fail(c, fiber.StatusRequestEntityTooLarge, err.Error(), nil)
	case errors.Is(err, service.ErrEvidenceTypeNotAllowed):
		return utils.Fail(c, fiber.StatusUnsupportedMediaType, err.Error(), nil)
	case errors.Is(err, service.ErrInvalidClaim), errors.Is(err, service.ErrEvidenceRequired):
		return utils.Fail(c, fiber.StatusBadRequest, err.Error(), nil)
	default:
		requestLogger(h.logger, c).Error().Err(err).Msg("claim could not be recorded")
		return utils.Fail(c, fiber.StatusInternalServerError, "claim could not be recorded", nil)
	}
}
