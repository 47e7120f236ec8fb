package handler

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/syncmind/syncmind-api/internal/dto"
	"github.com/syncmind/syncmind-api/internal/middleware"
	"github.com/syncmind/syncmind-api/internal/service"
	"github.com/syncmind/syncmind-api/internal/utils"
)

// AccountHandler wires registration, login and roster routes.
type AccountHandler struct {
	service   service.AccountService
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewAccountHandler constructs the handler.
func NewAccountHandler(service service.AccountService, validator *validator.Validate, logger zerolog.Logger) *AccountHandler {
	return &AccountHandler{
		service:   service,
		validator: validator,
		logger:    logger.With().Str("component", "account_handler").Logger(),
	}
}

// RegisterPublic attaches the unauthenticated auth endpoints.
func (h *AccountHandler) RegisterPublic(router fiber.Router) {
	router.Post("/teachers/register", h.registerTeacher)
	router.Post("/students/register", h.registerStudent)
	router.Post("/login", h.login)
}

// RegisterAuthenticated attaches endpoints for any signed-in user.
func (h *AccountHandler) RegisterAuthenticated(router fiber.Router) {
	router.Get("/me", middleware.WithAuth(h.profile, middleware.AuthOptions{RequireUser: true}))
}

// RegisterTeacher attaches the roster and destructive teacher endpoints.
func (h *AccountHandler) RegisterTeacher(router fiber.Router) {
	router.Get("/students", h.listStudents)
	router.Delete("/students/:id", h.deleteStudent)
	router.Post("/clear", h.clearAll)
}

func (h *AccountHandler) registerTeacher(c *fiber.Ctx) error {
	var payload dto.TeacherRegisterRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	result, err := h.service.RegisterTeacher(requestContext(c), payload)
	if err != nil {
		return handleServiceError(c, h.logger, err)
	}
	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "teacher registered", result)
}

func (h *AccountHandler) registerStudent(c *fiber.Ctx) error {
	var payload dto.StudentRegisterRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	result, err := h.service.RegisterStudent(requestContext(c), payload)
	if err != nil {
		return handleServiceError(c, h.logger, err)
	}
	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "student registered", result)
}

func (h *AccountHandler) login(c *fiber.Ctx) error {
	var payload dto.LoginRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	result, err := h.service.Login(requestContext(c), payload)
	if err != nil {
		return handleServiceError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "login successful", result)
}

func (h *AccountHandler) profile(c *fiber.Ctx) error {
	profile, err := h.service.Profile(requestContext(c), userIDFromContext(c))
	if err != nil {
		return handleServiceError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "profile retrieved", profile)
}

func (h *AccountHandler) listStudents(c *fiber.Ctx) error {
	students, err := h.service.ListStudents(requestContext(c), userIDFromContext(c))
	if err != nil {
		return handleServiceError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "students retrieved", students)
}

func (h *AccountHandler) deleteStudent(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	payload, err := h.reauthPayload(c)
	if err != nil {
		return err
	}

	if err := h.service.DeleteStudent(requestContext(c), userIDFromContext(c), id, payload.Password); err != nil {
		return handleServiceError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "student deleted", fiber.Map{"id": id})
}

func (h *AccountHandler) clearAll(c *fiber.Ctx) error {
	payload, err := h.reauthPayload(c)
	if err != nil {
		return err
	}

	result, err := h.service.ClearAll(requestContext(c), userIDFromContext(c), payload.Password)
	if err != nil {
		return handleServiceError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "all data cleared", result)
}

// reauthPayload parses the password confirmation. On failure the error
// response has already been written.
func (h *AccountHandler) reauthPayload(c *fiber.Ctx) (dto.ReauthRequest, error) {
	var payload dto.ReauthRequest
	if err := c.BodyParser(&payload); err != nil {
		return payload, utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}
	if err := h.validator.Struct(payload); err != nil {
		return payload, utils.SendError(c, fiber.StatusUnauthorized, "password confirmation is required")
	}
	return payload, nil
}
