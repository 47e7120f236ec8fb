package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/syncmind/syncmind-api/internal/service"
	"github.com/syncmind/syncmind-api/internal/utils"
)

// UploadHandler accepts resource files (worksheets, reading material) that a
// teacher links from an assignment's resource field.
type UploadHandler struct {
	service service.UploadService
	logger  zerolog.Logger
}

func NewUploadHandler(service service.UploadService, logger zerolog.Logger) *UploadHandler {
	return &UploadHandler{
		service: service,
		logger:  logger.With().Str("component", "upload_handler").Logger(),
	}
}

// Register mounts POST /teacher/resources.
func (h *UploadHandler) Register(router fiber.Router) {
	router.Post("", h.upload)
}

func (h *UploadHandler) upload(c *fiber.Ctx) error {
	file, err := c.FormFile("file")
	if err != nil || file == nil {
		return handleServiceError(c, h.logger, service.ErrUploadMissing)
	}

	actor := actorFromContext(c)
	resource, err := h.service.Upload(requestContext(c), actor, file)
	if err != nil {
		return handleServiceError(c, h.logger, err)
	}

	requestLogger(h.logger, c).Info().
		Uint("teacher_id", actor.ID).
		Str("mime_type", resource.MimeType).
		Int64("size_bytes", resource.SizeBytes).
		Msg("resource stored")

	c.Location(resource.URL)
	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "resource uploaded", resource)
}
