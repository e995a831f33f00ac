package controller

import (
	"helmet-orchestrator-be/internal/dto"
	"helmet-orchestrator-be/internal/pkg/apperr"
	"helmet-orchestrator-be/internal/pkg/serverutils"
	"helmet-orchestrator-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type ICommandController interface {
	RegisterRoutes(r fiber.Router)
	Execute(ctx *fiber.Ctx) error
	ListLogs(ctx *fiber.Ctx) error
}

type commandController struct {
	service service.ICommandService
}

func NewCommandController(service service.ICommandService) ICommandController {
	return &commandController{service: service}
}

func (c *commandController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/command/v1")
	h.Use(serverutils.JwtMiddleware)
	h.Post("", c.Execute)
	h.Get("logs", c.ListLogs)
}

func (c *commandController) Execute(ctx *fiber.Ctx) error {
	var req dto.ExecuteCommandRequest
	if err := ctx.BodyParser(&req); err != nil {
		return apperr.Wrap(err, apperr.CodeValidationFailed, "malformed request body")
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.Execute(ctx.UserContext(), &req, serverutils.CommandSource(ctx))
	if err != nil {
		return err
	}

	return writeResult(ctx, res)
}

func (c *commandController) ListLogs(ctx *fiber.Ctx) error {
	var req dto.CommandLogListRequest
	if err := ctx.QueryParser(&req); err != nil {
		return apperr.Wrap(err, apperr.CodeValidationFailed, "malformed query")
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.ListLogs(ctx.UserContext(), &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get command logs", res))
}

// writeResult carries a terminal CommandResult in the body either way; the
// HTTP status follows its code.
func writeResult(ctx *fiber.Ctx, res *dto.ExecuteCommandResponse) error {
	if res.Status == "accepted" {
		return ctx.JSON(serverutils.SuccessResponse(res.Message, res))
	}
	return ctx.Status(serverutils.StatusFor(apperr.Code(res.Code))).JSON(&serverutils.Response[*dto.ExecuteCommandResponse]{
		Success: false,
		Code:    res.Code,
		Message: res.Message,
		Data:    res,
	})
}
