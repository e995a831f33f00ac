package controller

import (
	"helmet-orchestrator-be/internal/dto"
	"helmet-orchestrator-be/internal/pkg/apperr"
	"helmet-orchestrator-be/internal/pkg/serverutils"
	"helmet-orchestrator-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IStatusController interface {
	RegisterRoutes(r fiber.Router)
	Show(ctx *fiber.Ctx) error
	Health(ctx *fiber.Ctx) error
	TelemetryHistory(ctx *fiber.Ctx) error
}

type statusController struct {
	service service.IStatusService
}

func NewStatusController(service service.IStatusService) IStatusController {
	return &statusController{service: service}
}

func (c *statusController) RegisterRoutes(r fiber.Router) {
	r.Get("/health", c.Health)

	h := r.Group("/status/v1")
	h.Get("", serverutils.JwtMiddleware, c.Show)
	h.Get("telemetry", serverutils.JwtMiddleware, c.TelemetryHistory)
}

func (c *statusController) Show(ctx *fiber.Ctx) error {
	return ctx.JSON(serverutils.SuccessResponse("Success get status", c.service.Snapshot()))
}

// Health is a liveness probe and stays reachable without a token. Degraded
// collaborators are reported in the body, not as a failing status.
func (c *statusController) Health(ctx *fiber.Ctx) error {
	res := c.service.Health()
	return ctx.JSON(serverutils.SuccessResponse(res.Status, res))
}

func (c *statusController) TelemetryHistory(ctx *fiber.Ctx) error {
	var req dto.TelemetryHistoryRequest
	if err := ctx.QueryParser(&req); err != nil {
		return apperr.Wrap(err, apperr.CodeValidationFailed, "malformed query")
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.TelemetryHistory(ctx.UserContext(), &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get telemetry history", res))
}
