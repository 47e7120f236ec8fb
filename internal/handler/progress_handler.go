package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/syncmind/syncmind-api/internal/service"
	"github.com/syncmind/syncmind-api/internal/utils"
)

// ProgressHandler serves the progress report.
type ProgressHandler struct {
	service service.ProgressService
	logger  zerolog.Logger
}

// NewProgressHandler constructs the handler.
func NewProgressHandler(service service.ProgressService, logger zerolog.Logger) *ProgressHandler {
	return &ProgressHandler{
		service: service,
		logger:  logger.With().Str("component", "progress_handler").Logger(),
	}
}

// RegisterTeacher attaches the per-student report.
func (h *ProgressHandler) RegisterTeacher(router fiber.Router) {
	router.Get("/students/:id/progress", h.forStudentOfTeacher)
}

// RegisterStudent attaches the own report.
func (h *ProgressHandler) RegisterStudent(router fiber.Router) {
	router.Get("/progress", h.forStudent)
}

func (h *ProgressHandler) forStudent(c *fiber.Ctx) error {
	report, err := h.service.ForStudent(requestContext(c), userIDFromContext(c))
	if err != nil {
		return handleServiceError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "progress retrieved", report)
}

func (h *ProgressHandler) forStudentOfTeacher(c *fiber.Ctx) error {
	studentID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	report, err := h.service.ForTeacher(requestContext(c), userIDFromContext(c), studentID)
	if err != nil {
		return handleServiceError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "progress retrieved", report)
}
