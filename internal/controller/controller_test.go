package controller

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"helmet-orchestrator-be/internal/dto"
	"helmet-orchestrator-be/internal/entity"
	"helmet-orchestrator-be/internal/pkg/apperr"
	"helmet-orchestrator-be/internal/pkg/serverutils"
	"helmet-orchestrator-be/internal/service"
	"helmet-orchestrator-be/pkg/broadcast"
	"helmet-orchestrator-be/pkg/gateway"
	"helmet-orchestrator-be/pkg/intent"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "controller-secret"

type stubCommandService struct {
	lastSource entity.CommandSource
	lastReq    *dto.ExecuteCommandRequest
	result     *dto.ExecuteCommandResponse
	routeErr   error
}

func (s *stubCommandService) Execute(_ context.Context, req *dto.ExecuteCommandRequest, source entity.CommandSource) (*dto.ExecuteCommandResponse, error) {
	s.lastReq = req
	s.lastSource = source
	res := *s.result
	res.CommandId = req.Id
	return &res, nil
}

func (s *stubCommandService) RouteIntent(_ context.Context, req *dto.RouteIntentRequest, source entity.CommandSource) (*dto.RouteIntentResponse, error) {
	s.lastSource = source
	if s.routeErr != nil {
		return nil, s.routeErr
	}
	return &dto.RouteIntentResponse{Intent: "start_recording", Result: s.result}, nil
}

func (s *stubCommandService) HandleVoiceIntent(context.Context, entity.Intent) (*dto.RouteIntentResponse, error) {
	return nil, nil
}

func (s *stubCommandService) ListLogs(context.Context, *dto.CommandLogListRequest) ([]*dto.CommandLogResponse, error) {
	return []*dto.CommandLogResponse{{CommandId: "c1", Kind: "snapshot", Status: "accepted"}}, nil
}

type fixedSession struct{ session entity.Session }

func (f fixedSession) Current() entity.Session { return f.session }

func newApp(t *testing.T, commands service.ICommandService, status service.IStatusService) *fiber.App {
	t.Helper()
	t.Setenv("JWT_SECRET", testSecret)

	app := fiber.New()
	app.Use(serverutils.ErrorHandlerMiddleware())
	api := app.Group("/api")
	NewCommandController(commands).RegisterRoutes(api)
	NewIntentController(commands).RegisterRoutes(api)
	NewStatusController(status).RegisterRoutes(api)
	return app
}

func token(t *testing.T, role string) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "tester", "role": role}).
		SignedString([]byte(testSecret))
	require.NoError(t, err)
	return "Bearer " + signed
}

func do(t *testing.T, app *fiber.App, method, path, auth string, body interface{}) (*http.Response, map[string]interface{}) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)

	var out map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp, out
}

func newStatus() (service.IStatusService, *broadcast.Broadcaster, *gateway.Health) {
	board := broadcast.New(broadcast.DefaultQueueDepth, "dev")
	health := gateway.NewHealth(nil)
	session := entity.NewSession(time.Now())
	session.CurrentMode = entity.ModeNavigation
	return service.NewStatusService(board, fixedSession{session: session}, health, nil, nil), board, health
}

func TestExecuteCommand(t *testing.T) {
	accepted := &dto.ExecuteCommandResponse{Status: "accepted", Message: "mode set to navigation"}
	rejected := &dto.ExecuteCommandResponse{Status: "rejected", Code: string(apperr.CodeStateConflict), Message: "no recording in progress"}

	tests := []struct {
		name       string
		auth       string
		body       interface{}
		result     *dto.ExecuteCommandResponse
		wantStatus int
		wantSource entity.CommandSource
	}{
		{
			name:       "operator accepted",
			auth:       token(t, "operator"),
			body:       dto.ExecuteCommandRequest{Id: "c1", Kind: "set_mode", Parameters: map[string]string{"mode": "navigation"}},
			result:     accepted,
			wantStatus: fiber.StatusOK,
			wantSource: entity.SourceOperator,
		},
		{
			name:       "ui rejected",
			auth:       token(t, "viewer"),
			body:       dto.ExecuteCommandRequest{Id: "c2", Kind: "stop_recording"},
			result:     rejected,
			wantStatus: fiber.StatusConflict,
			wantSource: entity.SourceUI,
		},
		{
			name:       "missing kind",
			auth:       token(t, "operator"),
			body:       dto.ExecuteCommandRequest{Id: "c3"},
			result:     accepted,
			wantStatus: fiber.StatusBadRequest,
		},
		{
			name:       "no token",
			body:       dto.ExecuteCommandRequest{Id: "c4", Kind: "snapshot"},
			result:     accepted,
			wantStatus: fiber.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			commands := &stubCommandService{result: tt.result}
			status, _, _ := newStatus()
			app := newApp(t, commands, status)

			resp, body := do(t, app, "POST", "/api/command/v1", tt.auth, tt.body)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			if tt.wantSource != "" {
				assert.Equal(t, tt.wantSource, commands.lastSource)
				data := body["data"].(map[string]interface{})
				assert.Equal(t, tt.result.Status, data["status"])
			}
		})
	}
}

func TestListLogs(t *testing.T) {
	status, _, _ := newStatus()
	app := newApp(t, &stubCommandService{}, status)

	resp, body := do(t, app, "GET", "/api/command/v1/logs?limit=10&status=accepted", token(t, "operator"), nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Len(t, body["data"], 1)

	resp, _ = do(t, app, "GET", "/api/command/v1/logs?status=bogus", token(t, "operator"), nil)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestRouteIntentUnrecognized(t *testing.T) {
	status, _, _ := newStatus()
	commands := &stubCommandService{routeErr: apperr.Wrap(intent.ErrUnrecognized, apperr.CodeUnrecognized, "no rule matched")}
	app := newApp(t, commands, status)

	resp, body := do(t, app, "POST", "/api/intent/v1", token(t, "operator"), dto.RouteIntentRequest{Text: "purple elephant"})
	assert.Equal(t, fiber.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, "UNRECOGNIZED", body["code"])
}

func TestRouteIntentAccepted(t *testing.T) {
	status, _, _ := newStatus()
	commands := &stubCommandService{result: &dto.ExecuteCommandResponse{Status: "accepted", Message: "recording started"}}
	app := newApp(t, commands, status)

	resp, body := do(t, app, "POST", "/api/intent/v1", token(t, "viewer"), dto.RouteIntentRequest{Text: "start recording"})
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, entity.SourceUI, commands.lastSource)

	resp, _ = do(t, app, "POST", "/api/intent/v1", token(t, "operator"), dto.RouteIntentRequest{Text: "start recording"})
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, entity.SourceOperator, commands.lastSource)
}

func TestRouteIntentRequiresNameOrText(t *testing.T) {
	status, _, _ := newStatus()
	app := newApp(t, &stubCommandService{}, status)

	resp, _ := do(t, app, "POST", "/api/intent/v1", token(t, "viewer"), dto.RouteIntentRequest{})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestStatusAndHealth(t *testing.T) {
	status, board, health := newStatus()
	app := newApp(t, &stubCommandService{}, status)

	board.Publish(broadcast.WithCaption("a person crossing"))
	resp, body := do(t, app, "GET", "/api/status/v1", token(t, "viewer"), nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	data := body["data"].(map[string]interface{})
	assert.Equal(t, "a person crossing", data["caption_text"])
	assert.Equal(t, "dev", data["profile"])

	resp, body = do(t, app, "GET", "/api/health", "", nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body["data"].(map[string]interface{})["status"])

	health.MarkDegraded(gateway.ServiceVideo)
	resp, body = do(t, app, "GET", "/api/health", "", nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	data = body["data"].(map[string]interface{})
	assert.Equal(t, "degraded", data["status"])
	assert.Equal(t, "navigation", data["mode"])
	assert.Equal(t, []interface{}{"video"}, data["degraded"])
}

func TestTelemetryHistoryWithoutDatabase(t *testing.T) {
	status, _, _ := newStatus()
	app := newApp(t, &stubCommandService{}, status)

	resp, body := do(t, app, "GET", "/api/status/v1/telemetry?limit=5", token(t, "viewer"), nil)
	assert.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, "DOWNSTREAM_UNAVAILABLE", body["code"])

	resp, _ = do(t, app, "GET", "/api/status/v1/telemetry?since=yesterday", token(t, "viewer"), nil)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}
