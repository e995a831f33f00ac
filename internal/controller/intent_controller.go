package controller

import (
	"helmet-orchestrator-be/internal/dto"
	"helmet-orchestrator-be/internal/pkg/apperr"
	"helmet-orchestrator-be/internal/pkg/serverutils"
	"helmet-orchestrator-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IIntentController interface {
	RegisterRoutes(r fiber.Router)
	Route(ctx *fiber.Ctx) error
}

type intentController struct {
	service service.ICommandService
}

func NewIntentController(service service.ICommandService) IIntentController {
	return &intentController{service: service}
}

func (c *intentController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/intent/v1")
	h.Use(serverutils.JwtMiddleware)
	h.Post("", c.Route)
}

func (c *intentController) Route(ctx *fiber.Ctx) error {
	var req dto.RouteIntentRequest
	if err := ctx.BodyParser(&req); err != nil {
		return apperr.Wrap(err, apperr.CodeValidationFailed, "malformed request body")
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.RouteIntent(ctx.UserContext(), &req, serverutils.CommandSource(ctx))
	if err != nil {
		return err
	}

	if res.Result.Status != "accepted" {
		return ctx.Status(serverutils.StatusFor(apperr.Code(res.Result.Code))).JSON(&serverutils.Response[*dto.RouteIntentResponse]{
			Success: false,
			Code:    res.Result.Code,
			Message: res.Result.Message,
			Data:    res,
		})
	}
	return ctx.JSON(serverutils.SuccessResponse("Intent "+res.Intent+" executed", res))
}
