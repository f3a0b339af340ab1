package serverutils

import (
	"errors"

	"socratic-tutor-be/internal/apperror"
	"socratic-tutor-be/internal/pkg/logger"

	"github.com/gofiber/fiber/v2"
)

// ErrorHandlerMiddleware turns errors returned by handlers into JSON bodies.
// Domain errors are mapped through apperror.HTTPStatus; unknown errors are
// logged and reported as 500 without their text.
func ErrorHandlerMiddleware(log logger.ILogger) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		err := ctx.Next()
		if err == nil {
			return nil
		}

		var fe *fiber.Error
		if errors.As(err, &fe) {
			return ctx.Status(fe.Code).JSON(ErrorResponse(fe.Code, fe.Message, false))
		}

		code := apperror.HTTPStatus(err)
		message := err.Error()
		if code == fiber.StatusInternalServerError {
			log.Error("HTTP", "Unhandled error", map[string]interface{}{
				"path":  ctx.Path(),
				"error": err.Error(),
			})
			message = "internal server error"
		}
		return ctx.Status(code).JSON(ErrorResponse(code, message, apperror.IsRecoverable(err)))
	}
}
