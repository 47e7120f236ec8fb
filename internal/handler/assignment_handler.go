package handler

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/syncmind/syncmind-api/internal/dto"
	"github.com/syncmind/syncmind-api/internal/lifecycle"
	"github.com/syncmind/syncmind-api/internal/service"
	"github.com/syncmind/syncmind-api/internal/utils"
)

// AssignmentHandler wires the assignment lifecycle routes.
type AssignmentHandler struct {
	service   service.AssignmentService
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewAssignmentHandler constructs the handler.
func NewAssignmentHandler(service service.AssignmentService, validator *validator.Validate, logger zerolog.Logger) *AssignmentHandler {
	return &AssignmentHandler{
		service:   service,
		validator: validator,
		logger:    logger.With().Str("component", "assignment_handler").Logger(),
	}
}

// RegisterTeacher attaches the teacher endpoints.
func (h *AssignmentHandler) RegisterTeacher(router fiber.Router) {
	router.Get("", h.listForTeacher)
	router.Post("", h.create)
	router.Post("/:id/approve", h.approve)
	router.Post("/:id/reject", h.reject)
	router.Delete("/:id", h.delete)
}

// RegisterStudent attaches the student endpoints.
func (h *AssignmentHandler) RegisterStudent(router fiber.Router) {
	router.Get("", h.listForStudent)
	router.Get("/new", h.listNew)
	router.Post("/seen", h.markSeen)
	router.Post("/:id/submit", h.submit)
}

func (h *AssignmentHandler) create(c *fiber.Ctx) error {
	var payload dto.AssignmentCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}
	if err := h.validator.Struct(payload); err != nil {
		return handleServiceError(c, h.logger, err)
	}

	created, err := h.service.Create(requestContext(c), actorFromContext(c), payload)
	if err != nil {
		return handleServiceError(c, h.logger, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "assignments created", created)
}

func (h *AssignmentHandler) listForTeacher(c *fiber.Ctx) error {
	listing, err := h.service.ListForTeacher(requestContext(c), userIDFromContext(c))
	if err != nil {
		return handleServiceError(c, h.logger, err)
	}
	return utils.OK(c, listing.Items, "assignments retrieved", listing.Summary)
}

func (h *AssignmentHandler) listForStudent(c *fiber.Ctx) error {
	listing, err := h.service.ListForStudent(requestContext(c), userIDFromContext(c))
	if err != nil {
		return handleServiceError(c, h.logger, err)
	}
	return utils.OK(c, listing.Items, "assignments retrieved", listing.Summary)
}

func (h *AssignmentHandler) listNew(c *fiber.Ctx) error {
	listing, err := h.service.ListNew(requestContext(c), userIDFromContext(c))
	if err != nil {
		return handleServiceError(c, h.logger, err)
	}
	return utils.OK(c, listing.Items, "new assignments retrieved", listing.Summary)
}

func (h *AssignmentHandler) markSeen(c *fiber.Ctx) error {
	seenAt, err := h.service.MarkSeen(requestContext(c), userIDFromContext(c))
	if err != nil {
		return handleServiceError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "assignments marked as seen", fiber.Map{"last_assignment_check_at": seenAt})
}

func (h *AssignmentHandler) submit(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	assignment, err := h.service.Submit(requestContext(c), userIDFromContext(c), id)
	if err != nil {
		return handleServiceError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "assignment submitted for approval", assignment)
}

func (h *AssignmentHandler) approve(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.AssignmentApproveRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&payload); err != nil {
			return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
		}
	}
	if err := h.validator.Struct(payload); err != nil {
		return handleServiceError(c, h.logger, err)
	}

	assignment, err := h.service.Review(requestContext(c), userIDFromContext(c), id, lifecycle.EventApprove, payload.LifecycleResults())
	if err != nil {
		return handleServiceError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "assignment approved", assignment)
}

func (h *AssignmentHandler) reject(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	assignment, err := h.service.Review(requestContext(c), userIDFromContext(c), id, lifecycle.EventReject, nil)
	if err != nil {
		return handleServiceError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "assignment rejected", assignment)
}

func (h *AssignmentHandler) delete(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	if err := h.service.Delete(requestContext(c), userIDFromContext(c), id); err != nil {
		return handleServiceError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "assignment deleted", fiber.Map{"id": id})
}
