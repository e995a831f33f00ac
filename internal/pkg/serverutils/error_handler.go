package serverutils

import (
	"errors"

	"helmet-orchestrator-be/internal/pkg/apperr"

	"github.com/gofiber/fiber/v2"
)

var statusByCode = map[apperr.Code]int{
	apperr.CodeValidationFailed:      fiber.StatusBadRequest,
	apperr.CodeInvalidArgument:       fiber.StatusBadRequest,
	apperr.CodeStateConflict:         fiber.StatusConflict,
	apperr.CodePermissionDenied:      fiber.StatusForbidden,
	apperr.CodeDownstreamUnavailable: fiber.StatusServiceUnavailable,
	apperr.CodePersistenceError:      fiber.StatusInternalServerError,
	apperr.CodeUnrecognized:          fiber.StatusUnprocessableEntity,
	apperr.CodeCancelled:             fiber.StatusRequestTimeout,
	apperr.CodeInternal:              fiber.StatusInternalServerError,
}

// StatusFor maps an error code to its HTTP status.
func StatusFor(code apperr.Code) int {
	if status, ok := statusByCode[code]; ok {
		return status
	}
	return fiber.StatusInternalServerError
}

// ErrorHandlerMiddleware renders handler errors as {success:false, message, code}.
func ErrorHandlerMiddleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		err := ctx.Next()
		if err == nil {
			return nil
		}

		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			return ctx.Status(fiberErr.Code).JSON(ErrorResponse("", fiberErr.Message))
		}

		code := apperr.GetCode(err)
		return ctx.Status(StatusFor(code)).JSON(ErrorResponse(string(code), apperr.Message(err)))
	}
}
