package handler_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/stretchr/testify/require"

	"github.com/syncmind/syncmind-api/internal/dto"
)

func compileSchema(t *testing.T, name string) *jsonschema.Schema {
	t.Helper()

	path, err := filepath.Abs(filepath.Join("testdata", name))
	require.NoError(t, err)

	compiler := jsonschema.NewCompiler()
	compiler.AssertFormat = true
	schema, err := compiler.Compile("file://" + filepath.ToSlash(path))
	require.NoError(t, err)
	return schema
}

func rawPayload(t *testing.T, app *fiber.App, method, path, token string, body interface{}) (int, interface{}) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(encoded)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())

	var payload interface{}
	require.NoError(t, json.Unmarshal(raw, &payload))
	return resp.StatusCode, payload
}

func TestAssignmentListContract(t *testing.T) {
	env := setupApp(t)
	room := env.seedClassroom(t)
	schema := compileSchema(t, "assignment_list.schema.json")

	practice := env.createAssignment(t, room, "question_practice", time.Now().Add(24*time.Hour))
	env.createAssignment(t, room, "reading", time.Now().Add(24*time.Hour))

	resp, _ := env.do(t, http.MethodPost, fmt.Sprintf("/api/v1/student/assignments/%d/submit", practice.ID), room.studentToken, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	resp, _ = env.do(t, http.MethodPost, fmt.Sprintf("/api/v1/teacher/assignments/%d/approve", practice.ID), room.teacherToken, dto.AssignmentApproveRequest{
		Results: &dto.ResultCounts{Correct: 20, Incorrect: 10, Blank: 10},
	})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	status, payload := rawPayload(t, env.app, http.MethodGet, "/api/v1/teacher/assignments", room.teacherToken, nil)
	require.Equal(t, fiber.StatusOK, status)
	require.NoError(t, schema.Validate(payload))

	status, payload = rawPayload(t, env.app, http.MethodGet, "/api/v1/student/assignments", room.studentToken, nil)
	require.Equal(t, fiber.StatusOK, status)
	require.NoError(t, schema.Validate(payload))
}

func TestBadgeAdjustContract(t *testing.T) {
	env := setupApp(t)
	room := env.seedClassroom(t)
	schema := compileSchema(t, "badge_adjust.schema.json")

	path := fmt.Sprintf("/api/v1/teacher/students/%d/badges/award", room.studentID)
	for i := 0; i < 12; i++ {
		status, payload := rawPayload(t, env.app, http.MethodPost, path, room.teacherToken, nil)
		require.Equal(t, fiber.StatusOK, status)
		require.NoError(t, schema.Validate(payload), "award %d", i+1)
	}
}

func TestErrorEnvelopeContract(t *testing.T) {
	env := setupApp(t)
	room := env.seedClassroom(t)
	schema := compileSchema(t, "error.schema.json")

	cases := []struct {
		method string
		path   string
		token  string
		status int
	}{
		{http.MethodPost, "/api/v1/student/assignments/42/submit", room.studentToken, fiber.StatusNotFound},
		{http.MethodGet, "/api/v1/teacher/badges", room.studentToken, fiber.StatusForbidden},
		{http.MethodGet, "/api/v1/student/progress", "garbage", fiber.StatusUnauthorized},
		{http.MethodPost, "/api/v1/teacher/students/1/badges/sideways", room.teacherToken, fiber.StatusBadRequest},
	}

	for _, tc := range cases {
		status, payload := rawPayload(t, env.app, tc.method, tc.path, tc.token, nil)
		require.Equal(t, tc.status, status, tc.path)
		require.NoError(t, schema.Validate(payload), tc.path)
	}
}
