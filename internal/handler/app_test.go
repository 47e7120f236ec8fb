package handler_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/syncmind/syncmind-api/internal/badge"
	"github.com/syncmind/syncmind-api/internal/config"
	"github.com/syncmind/syncmind-api/internal/database"
	"github.com/syncmind/syncmind-api/internal/dto"
	"github.com/syncmind/syncmind-api/internal/handler"
	"github.com/syncmind/syncmind-api/internal/middleware"
	"github.com/syncmind/syncmind-api/internal/repository"
	"github.com/syncmind/syncmind-api/internal/retry"
	"github.com/syncmind/syncmind-api/internal/router"
	"github.com/syncmind/syncmind-api/internal/service"
)

const (
	testSecret   = "handler-test-secret"
	testPassword = "correct-horse-battery"
)

type testEnv struct {
	app     *fiber.App
	db      *gorm.DB
	feed    service.ChangeFeed
	sweeper service.SweepService
}

func setupApp(t *testing.T) *testEnv {
	t.Helper()

	dsn := fmt.Sprintf("file:handler_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	logger := zerolog.New(io.Discard)
	validate := validator.New(validator.WithRequiredStructEnabled())
	policy := retry.Policy{Attempts: 1}
	repos := repository.NewRepositories(db)
	tx := repository.NewTransactor(db)
	gate := service.NewLedgerGate(badge.NewLedger(logger), nil)
	feed := service.NewChangeFeed(nil, "", nil, logger)
	activity := service.NewActivityService(repos.Activity, validate, logger)
	progress := service.NewProgressService(repos, nil, time.Minute, policy, logger)
	cfg := config.Config{AppName: "SyncMind Test", AppEnv: "test", JWTSecret: testSecret, AuthRateLimit: 100}

	accounts := service.NewAccountService(repos, tx, feed, activity, validate, service.TokenConfig{Secret: testSecret, TTL: time.Hour}, policy, logger)
	assignments := service.NewAssignmentService(repos, tx, gate, feed, activity, validate, policy, logger)
	badges := service.NewBadgeService(repos, tx, gate, feed, activity, policy, logger)
	exams := service.NewTrialExamService(repos, feed, activity, validate, policy, logger)

	app := fiber.New()
	middleware.Register(app, middleware.Config{AccessLog: io.Discard})
	router.Register(app, cfg, router.Dependencies{
		AccountHandler:    handler.NewAccountHandler(accounts, validate, logger),
		AssignmentHandler: handler.NewAssignmentHandler(assignments, validate, logger),
		BadgeHandler:      handler.NewBadgeHandler(badges, logger),
		TrialExamHandler:  handler.NewTrialExamHandler(exams, logger),
		ProgressHandler:   handler.NewProgressHandler(progress, logger),
		EventHandler:      handler.NewEventHandler(feed, time.Second, logger),
		UploadHandler:     handler.NewUploadHandler(service.NewUploadService(nil, activity, 1, logger), logger),
		ActivityHandler:   handler.NewActivityHandler(activity, logger),
		Readiness:         handler.ReadinessCheck(cfg, db, nil),
	})

	return &testEnv{
		app:     app,
		db:      db,
		feed:    feed,
		sweeper: service.NewSweepService(repos, tx, feed, activity, logger),
	}
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Meta    json.RawMessage `json:"meta"`

	CorrelationID string `json:"correlation_id"`
}

func (e *testEnv) do(t *testing.T, method, path, token string, body interface{}) (*http.Response, envelope) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())

	var decoded envelope
	if strings.HasPrefix(resp.Header.Get("Content-Type"), fiber.MIMEApplicationJSON) {
		require.NoError(t, json.Unmarshal(raw, &decoded), string(raw))
	}
	return resp, decoded
}

func decodeData(t *testing.T, body envelope, target interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(body.Data, target))
}

func decodeMeta(t *testing.T, body envelope, target interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(body.Meta, target))
}

type classroom struct {
	teacherToken string
	teacherID    uint
	studentToken string
	studentUser  uint
	studentID    uint
}

func (e *testEnv) seedClassroom(t *testing.T) classroom {
	t.Helper()

	resp, body := e.do(t, http.MethodPost, "/api/v1/auth/teachers/register", "", dto.TeacherRegisterRequest{
		Email:     "teacher@example.com",
		Password:  testPassword,
		FirstName: "Ayşe",
		LastName:  "Yılmaz",
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode, body.Message)
	var teacher dto.AuthResponse
	decodeData(t, body, &teacher)
	require.NotNil(t, teacher.User.TeacherCode)

	resp, body = e.do(t, http.MethodPost, "/api/v1/auth/students/register", "", dto.StudentRegisterRequest{
		Email:       "student@example.com",
		Password:    testPassword,
		FirstName:   "Ali",
		LastName:    "Demir",
		TeacherCode: *teacher.User.TeacherCode,
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode, body.Message)
	var student dto.AuthResponse
	decodeData(t, body, &student)

	resp, body = e.do(t, http.MethodGet, "/api/v1/teacher/students", teacher.Token, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var roster []dto.StudentResponse
	decodeData(t, body, &roster)
	require.Len(t, roster, 1)

	return classroom{
		teacherToken: teacher.Token,
		teacherID:    teacher.User.ID,
		studentToken: student.Token,
		studentUser:  student.User.ID,
		studentID:    roster[0].ID,
	}
}

func (e *testEnv) createAssignment(t *testing.T, room classroom, kind string, due time.Time) dto.AssignmentResponse {
	t.Helper()

	questions, pages := 40, 120
	req := dto.AssignmentCreateRequest{
		StudentIDs: []uint{room.studentID},
		Subject:    "Matematik",
		Subtopic:   "Türev",
		Kind:       kind,
		DueAt:      due,
	}
	switch kind {
	case "question_practice":
		req.QuestionCount = &questions
	case "reading":
		req.PageCount = &pages
	}

	resp, body := e.do(t, http.MethodPost, "/api/v1/teacher/assignments", room.teacherToken, req)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode, body.Message)
	var created []dto.AssignmentResponse
	decodeData(t, body, &created)
	require.Len(t, created, 1)
	return created[0]
}
