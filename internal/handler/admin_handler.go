package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/skp-companion/internal/dto"
	"github.com/noah-isme/skp-companion/internal/middleware"
	"github.com/noah-isme/skp-companion/internal/service"
	"github.com/noah-isme/skp-companion/internal/utils"
)

// AdminHandler proxies the remote catalog and review API for administrators.
type AdminHandler struct {
	service service.CatalogService
	logger  zerolog.Logger
}

// NewAdminHandler constructs an admin handler.
func NewAdminHandler(service service.CatalogService, logger zerolog.Logger) *AdminHandler {
	return &AdminHandler{
		service: service,
		logger:  logger.With().Str("component", "admin_handler").Logger(),
	}
}

// Register wires admin routes. Role checks are applied by the caller.
func (h *AdminHandler) Register(router fiber.Router) {
	router.Get("/activity-types", h.listActivityTypes)
	router.Post("/activity-types", h.createActivityType)
	router.Put("/activity-types/:id", h.updateActivityType)
	router.Delete("/activity-types/:id", h.deleteActivityType)

	router.Get("/competencies", h.listCompetencies)
	router.Post("/competencies", h.createCompetency)
	router.Put("/competencies/:id", h.updateCompetency)
	router.Delete("/competencies/:id", h.deleteCompetency)

	router.Get("/users", h.listUsers)
	router.Post("/submissions/:id/review", h.review)
}

func (h *AdminHandler) listActivityTypes(c *fiber.Ctx) error {
	items, err := h.service.ListActivityTypes(c.UserContext(), middleware.SessionToken(c))
	if err != nil {
		return sendRemoteError(c, h.logger, err, "list activity types")
	}
	return utils.OK(c, items, "activity types", fiber.Map{"count": len(items)})
}

func (h *AdminHandler) createActivityType(c *fiber.Ctx) error {
	var request dto.ActivityTypeRequest
	if err := c.BodyParser(&request); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid activity type payload")
	}
	created, err := h.service.CreateActivityType(c.UserContext(), middleware.SessionToken(c), request)
	if err != nil {
		return sendRemoteError(c, h.logger, err, "create activity type")
	}
	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "activity type created", created)
}

func (h *AdminHandler) updateActivityType(c *fiber.Ctx) error {
	var request dto.ActivityTypeRequest
	if err := c.BodyParser(&request); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid activity type payload")
	}
	updated, err := h.service.UpdateActivityType(c.UserContext(), middleware.SessionToken(c), c.Params("id"), request)
	if err != nil {
		return sendRemoteError(c, h.logger, err, "update activity type")
	}
	return utils.SendSuccess(c, "activity type updated", updated)
}

func (h *AdminHandler) deleteActivityType(c *fiber.Ctx) error {
	if err := h.service.DeleteActivityType(c.UserContext(), middleware.SessionToken(c), c.Params("id")); err != nil {
		return sendRemoteError(c, h.logger, err, "delete activity type")
	}
	return utils.SendSuccess(c, "activity type deleted", nil)
}

func (h *AdminHandler) listCompetencies(c *fiber.Ctx) error {
	items, err := h.service.ListCompetencies(c.UserContext(), middleware.SessionToken(c))
	if err != nil {
		return sendRemoteError(c, h.logger, err, "list competencies")
	}
	return utils.OK(c, items, "competencies", fiber.Map{"count": len(items)})
}

func (h *AdminHandler) createCompetency(c *fiber.Ctx) error {
	var request dto.CompetencyRequest
	if err := c.BodyParser(&request); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid competency payload")
	}
	created, err := h.service.CreateCompetency(c.UserContext(), middleware.SessionToken(c), request)
	if err != nil {
		return sendRemoteError(c, h.logger, err, "create competency")
	}
	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "competency created", created)
}

func (h *AdminHandler) updateCompetency(c *fiber.Ctx) error {
	var request dto.CompetencyRequest
	if err := c.BodyParser(&request); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid competency payload")
	}
	updated, err := h.service.UpdateCompetency(c.UserContext(), middleware.SessionToken(c), c.Params("id"), request)
	if err != nil {
		return sendRemoteError(c, h.logger, err, "update competency")
	}
	return utils.SendSuccess(c, "competency updated", updated)
}

func (h *AdminHandler) deleteCompetency(c *fiber.Ctx) error {
	if err := h.service.DeleteCompetency(c.UserContext(), middleware.SessionToken(c), c.Params("id")); err != nil {
		return sendRemoteError(c, h.logger, err, "delete competency")
	}
	return utils.SendSuccess(c, "competency deleted", nil)
}

func (h *AdminHandler) listUsers(c *fiber.Ctx) error {
	users, err := h.service.ListUsers(c.UserContext(), middleware.SessionToken(c))
	if err != nil {
		return sendRemoteError(c, h.logger, err, "list users")
	}
	return utils.OK(c, users, "users", fiber.Map{"count": len(users)})
}

func (h *AdminHandler) review(c *fiber.Ctx) error {
	var request dto.ReviewRequest
	if err := c.BodyParser(&request); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid review payload")
	}
	if err := h.service.Review(c.UserContext(), middleware.SessionToken(c), c.Params("id"), request); err != nil {
		return sendRemoteError(c, h.logger, err, "review submission")
	}
	message := "submission approved"
	if request.Decision == "reject" {
		message = "submission rejected"
	}
	return utils.SendSuccess(c, message, nil)
}
