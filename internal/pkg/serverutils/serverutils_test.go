package serverutils

import (
	"encoding/json"
	"net/http/httptest"
	"testing"

	"helmet-orchestrator-be/internal/entity"
	"helmet-orchestrator-be/internal/pkg/apperr"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func TestJwtMiddlewareSource(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	app := fiber.New()
	app.Get("/whoami", JwtMiddleware, func(ctx *fiber.Ctx) error {
		return ctx.SendString(string(CommandSource(ctx)))
	})

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantBody   string
	}{
		{name: "missing token", wantStatus: fiber.StatusUnauthorized},
		{name: "garbage token", header: "Bearer nope", wantStatus: fiber.StatusUnauthorized},
		{
			name:       "wrong secret",
			header:     "Bearer " + signToken(t, "other", jwt.MapClaims{"sub": "a"}),
			wantStatus: fiber.StatusUnauthorized,
		},
		{
			name:       "operator",
			header:     "Bearer " + signToken(t, "test-secret", jwt.MapClaims{"sub": "op", "role": "operator"}),
			wantStatus: fiber.StatusOK,
			wantBody:   string(entity.SourceOperator),
		},
		{
			name:       "viewer",
			header:     "Bearer " + signToken(t, "test-secret", jwt.MapClaims{"sub": "hud", "role": "viewer"}),
			wantStatus: fiber.StatusOK,
			wantBody:   string(entity.SourceUI),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/whoami", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			if tt.wantBody != "" {
				buf := make([]byte, 64)
				n, _ := resp.Body.Read(buf)
				assert.Equal(t, tt.wantBody, string(buf[:n]))
			}
		})
	}
}

func TestErrorHandlerMapsCodes(t *testing.T) {
	app := fiber.New()
	app.Use(ErrorHandlerMiddleware())
	app.Get("/conflict", func(*fiber.Ctx) error {
		return apperr.StateConflict("no recording in progress")
	})
	app.Get("/unrecognized", func(*fiber.Ctx) error {
		return apperr.New(apperr.CodeUnrecognized, "no rule matched")
	})
	app.Get("/fiber", func(*fiber.Ctx) error {
		return fiber.ErrUpgradeRequired
	})

	tests := []struct {
		path       string
		wantStatus int
		wantCode   string
	}{
		{path: "/conflict", wantStatus: fiber.StatusConflict, wantCode: "STATE_CONFLICT"},
		{path: "/unrecognized", wantStatus: fiber.StatusUnprocessableEntity, wantCode: "UNRECOGNIZED"},
		{path: "/fiber", wantStatus: fiber.StatusUpgradeRequired},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			resp, err := app.Test(httptest.NewRequest("GET", tt.path, nil))
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)

			var body Response[any]
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			assert.False(t, body.Success)
			assert.Equal(t, tt.wantCode, body.Code)
			assert.NotEmpty(t, body.Message)
		})
	}
}

func TestValidateRequest(t *testing.T) {
	type request struct {
		Kind string `validate:"required"`
		Id   string `validate:"omitempty,max=4"`
	}

	assert.NoError(t, ValidateRequest(request{Kind: "snapshot"}))

	err := ValidateRequest(request{Id: "too-long"})
	require.Error(t, err)
	assert.Equal(t, apperr.CodeValidationFailed, apperr.GetCode(err))
	assert.Contains(t, apperr.Message(err), "Kind")
	assert.Contains(t, apperr.Message(err), "Id")
}
