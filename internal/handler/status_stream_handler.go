package handler

import (
	"helmet-orchestrator-be/internal/pkg/logger"
	"helmet-orchestrator-be/internal/pkg/serverutils"
	internalWS "helmet-orchestrator-be/internal/websocket"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

type StatusStreamHandler struct {
	hub    *internalWS.Hub
	logger logger.ILogger
}

func NewStatusStreamHandler(hub *internalWS.Hub, log logger.ILogger) *StatusStreamHandler {
	return &StatusStreamHandler{
		hub:    hub,
		logger: log,
	}
}

// ServeWs authenticates the handshake, then upgrades and streams status.
// Browsers cannot set headers on a websocket handshake, so the token may also
// arrive in the "token" query parameter.
func (h *StatusStreamHandler) ServeWs(c *fiber.Ctx) error {
	tokenStr := serverutils.BearerToken(c)
	if tokenStr == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(serverutils.ErrorResponse("", "Missing token (Query 'token' or Header 'Authorization')"))
	}

	claims, err := serverutils.ParseToken(tokenStr)
	if err != nil {
		h.logger.Warn("StatusStreamHandler", "Invalid token in WS handshake", map[string]interface{}{"error": err.Error()})
		return c.Status(fiber.StatusUnauthorized).JSON(serverutils.ErrorResponse("", "Invalid token"))
	}
	subject, _ := claims.GetSubject()

	if websocket.IsWebSocketUpgrade(c) {
		return websocket.New(func(conn *websocket.Conn) {
			h.logger.Info("StatusStreamHandler", "Starting status stream", map[string]interface{}{"subject": subject})
			internalWS.ServeWs(h.hub, conn, subject)
			h.logger.Info("StatusStreamHandler", "Status stream ended", map[string]interface{}{"subject": subject})
		})(c)
	}
	return fiber.ErrUpgradeRequired
}

func (h *StatusStreamHandler) RegisterRoutes(router fiber.Router) {
	router.Get("/status/v1/stream", h.ServeWs)
}
