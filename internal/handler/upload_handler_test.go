package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/syncmind/syncmind-api/internal/dto"
	"github.com/syncmind/syncmind-api/internal/handler"
	"github.com/syncmind/syncmind-api/internal/service"
)

type memoryStorage struct {
	folder string
	data   []byte
}

func (m *memoryStorage) Upload(_ context.Context, folder, name string, reader io.Reader) (string, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return "", err
	}
	m.folder = folder
	m.data = data
	return "https://cdn.example.com/" + folder + "/" + name, nil
}

type discardRecorder struct{}

func (discardRecorder) Record(context.Context, service.ActivityEntry) error { return nil }

func setupUploadApp(t *testing.T, storage service.ResourceStorage) *fiber.App {
	t.Helper()

	logger := zerolog.Nop()
	uploads := service.NewUploadService(storage, discardRecorder{}, 1, logger)
	h := handler.NewUploadHandler(uploads, logger)

	app := fiber.New()
	group := app.Group("/api/v1/teacher/resources", func(c *fiber.Ctx) error {
		c.Locals("user_id", uint(5))
		c.Locals("user_role", "teacher")
		return c.Next()
	})
	h.Register(group)
	return app
}

func multipartRequest(t *testing.T, filename string, content []byte) *http.Request {
	t.Helper()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/teacher/resources", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func TestUploadHandlerStoresPDF(t *testing.T) {
	storage := &memoryStorage{}
	app := setupUploadApp(t, storage)

	resp, err := app.Test(multipartRequest(t, "worksheet.pdf", []byte("%PDF-1.4\n%âãÏÓ\n1 0 obj\n<<>>\nendobj\n")), -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var body struct {
		Success bool               `json:"success"`
		Data    dto.UploadResponse `json:"data"`
	}
	decodeResponse(t, resp, &body)
	require.True(t, body.Success)
	require.Equal(t, "application/pdf", body.Data.MimeType)
	require.Equal(t, "teacher-5", storage.folder)
	require.NotEmpty(t, body.Data.Checksum)
}

func TestUploadHandlerErrors(t *testing.T) {
	app := setupUploadApp(t, &memoryStorage{})

	resp, err := app.Test(multipartRequest(t, "tool.exe", []byte("MZ\x90\x00\x03\x00\x00\x00\x04\x00")), -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusUnsupportedMediaType, resp.StatusCode)

	resp, err = app.Test(multipartRequest(t, "big.txt", bytes.Repeat([]byte("a"), 2*1024*1024)), -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusRequestEntityTooLarge, resp.StatusCode)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/teacher/resources", nil)
	resp, err = app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	unavailable := setupUploadApp(t, nil)
	resp, err = unavailable.Test(multipartRequest(t, "notes.txt", []byte("hello")), -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)
}

func decodeResponse(t *testing.T, resp *http.Response, target interface{}) {
	t.Helper()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	require.NoError(t, json.Unmarshal(data, target))
}
