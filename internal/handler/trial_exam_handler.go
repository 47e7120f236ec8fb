package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/syncmind/syncmind-api/internal/dto"
	"github.com/syncmind/syncmind-api/internal/service"
	"github.com/syncmind/syncmind-api/internal/utils"
)

// TrialExamHandler exposes trial exam sessions.
type TrialExamHandler struct {
	service service.TrialExamService
	logger  zerolog.Logger
}

// NewTrialExamHandler constructs the handler.
func NewTrialExamHandler(service service.TrialExamService, logger zerolog.Logger) *TrialExamHandler {
	return &TrialExamHandler{
		service: service,
		logger:  logger.With().Str("component", "trial_exam_handler").Logger(),
	}
}

// RegisterTeacher attaches the teacher endpoints.
func (h *TrialExamHandler) RegisterTeacher(router fiber.Router) {
	router.Get("", h.listForTeacher)
	router.Post("", h.record)
	router.Delete("", h.deleteSession)
}

// RegisterStudent attaches the student endpoints.
func (h *TrialExamHandler) RegisterStudent(router fiber.Router) {
	router.Get("", h.listForStudent)
}

func (h *TrialExamHandler) record(c *fiber.Ctx) error {
	var payload dto.TrialExamCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	session, err := h.service.Record(requestContext(c), userIDFromContext(c), payload)
	if err != nil {
		return handleServiceError(c, h.logger, err)
	}
	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "trial exam recorded", session)
}

func (h *TrialExamHandler) listForTeacher(c *fiber.Ctx) error {
	sessions, err := h.service.ListForTeacher(requestContext(c), userIDFromContext(c))
	if err != nil {
		return handleServiceError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "trial exams retrieved", sessions)
}

func (h *TrialExamHandler) listForStudent(c *fiber.Ctx) error {
	sessions, err := h.service.ListForStudent(requestContext(c), userIDFromContext(c))
	if err != nil {
		return handleServiceError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "trial exams retrieved", sessions)
}

func (h *TrialExamHandler) deleteSession(c *fiber.Ctx) error {
	var payload dto.TrialExamDeleteRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	removed, err := h.service.DeleteSession(requestContext(c), userIDFromContext(c), payload)
	if err != nil {
		return handleServiceError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "trial exam deleted", fiber.Map{"removed": removed})
}
