package handler

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/skp-companion/internal/middleware"
	"github.com/noah-isme/skp-companion/internal/remote"
	"github.com/noah-isme/skp-companion/internal/service"
	"github.com/noah-isme/skp-companion/internal/utils"
)

func requestLogger(base zerolog.Logger, c *fiber.Ctx) *zerolog.Logger {
	logger := base
	if c != nil {
		if correlation := middleware.GetCorrelationID(c); correlation != "" {
			logger = base.With().Str("correlation_id", correlation).Logger()
		}
	}
	return &logger
}

func isValidationError(err error) bool {
	var validationErrors validator.ValidationErrors
	return errors.As(err, &validationErrors)
}

func validationDetails(err error) map[string]string {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return nil
	}
	details := make(map[string]string, len(validationErrors))
	for _, fieldErr := range validationErrors {
		details[strings.ToLower(fieldErr.Field())] = fieldErr.Tag()
	}
	return details
}

// sendRemoteError maps errors of session-bound and proxied calls onto HTTP answers.
func sendRemoteError(c *fiber.Ctx, logger zerolog.Logger, err error, action string) error {
	switch {
	case service.IsCredentialError(err):
		return utils.Fail(c, fiber.StatusUnauthorized, err.Error(), nil)
	case isValidationError(err):
		return utils.Fail(c, fiber.StatusBadRequest, "invalid payload", validationDetails(err))
	}

	switch remote.Classify(err) {
	case remote.FailureAuthentication:
		return utils.Fail(c, fiber.StatusUnauthorized, "the SKP service rejected the session", nil)
	case remote.FailureMaintenance:
		return utils.Fail(c, fiber.StatusNotFound, "the SKP service does not offer this resource", nil)
	case remote.FailurePermanent:
		status := remote.StatusOf(err)
		if status == 0 {
			status = fiber.StatusBadRequest
		}
		return utils.Fail(c, status, err.Error(), nil)
	}

	requestLogger(logger, c).Error().Err(err).Msg(action + " failed")
	return utils.Fail(c, fiber.StatusBadGateway, "the SKP service is unavailable", nil)
}
