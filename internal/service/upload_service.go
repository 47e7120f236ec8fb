package service

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/syncmind/syncmind-api/internal/dto"
	"github.com/syncmind/syncmind-api/internal/observability"
)

var (
	// ErrUploadTooLarge indicates the payload exceeded the configured limit.
	ErrUploadTooLarge = errors.New("file exceeds maximum allowed size")
	// ErrUploadTypeNotAllowed indicates the MIME type is not permitted.
	ErrUploadTypeNotAllowed = errors.New("file type not allowed")
	// ErrUploadMissing indicates the request carried no file.
	ErrUploadMissing = errors.New("file is required")
	// ErrStorageUnavailable indicates no upload backend is configured.
	ErrStorageUnavailable = errors.New("resource storage is not configured")
)

// ResourceStorage abstracts where resource files end up.
type ResourceStorage interface {
	Upload(ctx context.Context, folder, name string, reader io.Reader) (string, error)
}

// UploadService validates and stores resource files teachers link from assignments.
type UploadService interface {
	Upload(ctx context.Context, actor Actor, file *multipart.FileHeader) (dto.UploadResponse, error)
}

type uploadService struct {
	storage  ResourceStorage
	activity ActivityRecorder
	logger   zerolog.Logger
	maxSize  int64
	tracer   trace.Tracer
}

// NewUploadService constructs an upload service. A nil storage makes every
// upload fail with ErrStorageUnavailable.
func NewUploadService(storage ResourceStorage, activity ActivityRecorder, maxSizeMB int, logger zerolog.Logger) UploadService {
	if maxSizeMB <= 0 {
		maxSizeMB = 10
	}
	return &uploadService{
		storage:  storage,
		activity: activity,
		logger:   logger.With().Str("component", "upload_service").Logger(),
		maxSize:  int64(maxSizeMB) * 1024 * 1024,
		tracer:   otel.Tracer("github.com/syncmind/syncmind-api/internal/service/upload"),
	}
}

func (s *uploadService) Upload(ctx context.Context, actor Actor, file *multipart.FileHeader) (dto.UploadResponse, error) {
	ctx, span := s.tracer.Start(ctx, "resources.upload")
	defer span.End()

	start := time.Now()
	defer func() {
		observability.UploadLatency().Observe(time.Since(start).Seconds())
	}()

	response, outcome, err := s.upload(ctx, span, actor, file)
	observability.Uploads().WithLabelValues(outcome).Inc()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)
		return dto.UploadResponse{}, err
	}

	span.SetStatus(codes.Ok, "stored")
	return response, nil
}

func (s *uploadService) upload(ctx context.Context, span trace.Span, actor Actor, file *multipart.FileHeader) (dto.UploadResponse, string, error) {
	if s.storage == nil {
		return dto.UploadResponse{}, "unavailable", ErrStorageUnavailable
	}
	if file == nil {
		return dto.UploadResponse{}, "missing", ErrUploadMissing
	}

	span.SetAttributes(
		attribute.String("upload.original_name", strings.TrimSpace(file.Filename)),
		attribute.Int64("upload.request_size", file.Size),
	)
	if file.Size > s.maxSize {
		return dto.UploadResponse{}, "size", ErrUploadTooLarge
	}

	handle, err := file.Open()
	if err != nil {
		return dto.UploadResponse{}, "read", err
	}
	defer handle.Close()

	buf := bytes.NewBuffer(nil)
	if _, err := io.Copy(buf, io.LimitReader(handle, s.maxSize+1)); err != nil {
		return dto.UploadResponse{}, "read", err
	}
	if int64(buf.Len()) > s.maxSize {
		return dto.UploadResponse{}, "size", ErrUploadTooLarge
	}

	fileType := normalizeMime(mimetype.Detect(buf.Bytes()).String())
	span.SetAttributes(attribute.String("upload.detected_mime", fileType))
	if !isAllowedResource(fileType) {
		return dto.UploadResponse{}, "type", ErrUploadTypeNotAllowed
	}

	checksum := sha256.Sum256(buf.Bytes())
	name := sanitizeFileName(file.Filename)
	folder := fmt.Sprintf("teacher-%d", actor.ID)

	url, err := s.storage.Upload(ctx, folder, name, bytes.NewReader(buf.Bytes()))
	if err != nil {
		return dto.UploadResponse{}, "storage", err
	}

	response := dto.UploadResponse{
		URL:       url,
		SizeBytes: int64(buf.Len()),
		MimeType:  fileType,
		Checksum:  hex.EncodeToString(checksum[:]),
		FileName:  name,
	}

	recordActivity(ctx, s.activity, s.logger, ActivityEntry{
		ActorID:    actor.ID,
		ActorRole:  actor.Role,
		Action:     ActionResourceUploaded,
		EntityType: "resource",
		Metadata: map[string]interface{}{
			"url":       url,
			"mime_type": fileType,
			"checksum":  response.Checksum,
		},
	})

	return response, "stored", nil
}

func sanitizeFileName(name string) string {
	base := strings.TrimSuffix(name, filepath.Ext(name))
	base = strings.ToLower(base)
	base = strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			return r
		}
		return '-'
	}, base)
	base = strings.Trim(base, "-")
	if base == "" {
		base = fmt.Sprintf("resource-%d", time.Now().Unix())
	}
	ext := strings.ToLower(filepath.Ext(name))
	if ext == "" {
		ext = ".bin"
	}
	return base + ext
}

func normalizeMime(m string) string {
	lower := strings.ToLower(strings.TrimSpace(m))
	if idx := strings.Index(lower, ";"); idx >= 0 {
		lower = strings.TrimSpace(lower[:idx])
	}
	return lower
}

func isAllowedResource(m string) bool {
	if strings.HasPrefix(m, "image/") {
		return true
	}
	switch m {
	case "application/pdf", "text/plain":
		return true
	default:
		return false
	}
}
