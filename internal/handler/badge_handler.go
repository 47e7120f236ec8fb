package handler

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/syncmind/syncmind-api/internal/badge"
	"github.com/syncmind/syncmind-api/internal/service"
	"github.com/syncmind/syncmind-api/internal/utils"
)

// BadgeHandler exposes the badge ledger.
type BadgeHandler struct {
	service service.BadgeService
	logger  zerolog.Logger
}

// NewBadgeHandler constructs the handler.
func NewBadgeHandler(service service.BadgeService, logger zerolog.Logger) *BadgeHandler {
	return &BadgeHandler{
		service: service,
		logger:  logger.With().Str("component", "badge_handler").Logger(),
	}
}

// RegisterTeacher attaches the teacher endpoints.
func (h *BadgeHandler) RegisterTeacher(router fiber.Router) {
	router.Get("/badges", h.listForTeacher)
	router.Post("/students/:id/badges/:direction", h.adjust)
}

// RegisterStudent attaches the student endpoints.
func (h *BadgeHandler) RegisterStudent(router fiber.Router) {
	router.Get("/badges", h.listForStudent)
}

func (h *BadgeHandler) adjust(c *fiber.Ctx) error {
	studentID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}
	direction := badge.Direction(strings.ToLower(strings.TrimSpace(c.Params("direction"))))

	result, err := h.service.Adjust(requestContext(c), userIDFromContext(c), studentID, direction)
	if err != nil {
		return handleServiceError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "badges updated", result)
}

func (h *BadgeHandler) listForTeacher(c *fiber.Ctx) error {
	summaries, err := h.service.ListForTeacher(requestContext(c), userIDFromContext(c))
	if err != nil {
		return handleServiceError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "badges retrieved", summaries)
}

func (h *BadgeHandler) listForStudent(c *fiber.Ctx) error {
	summaries, err := h.service.ListForStudent(requestContext(c), userIDFromContext(c))
	if err != nil {
		return handleServiceError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "badges retrieved", summaries)
}
