package serverutils

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"recipe-rag-be/pkg/upstream"
)

// ErrorHandlerMiddleware converts errors returned by handlers into JSON
// responses. Upstream error kinds map to fixed status codes; a StatusError
// mirrors the upstream's own status.
func ErrorHandlerMiddleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		err := ctx.Next()
		if err == nil {
			return nil
		}

		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			return ctx.Status(fiberErr.Code).JSON(fiber.Map{"message": fiberErr.Message})
		}

		return ctx.Status(StatusFor(err)).JSON(fiber.Map{"message": err.Error()})
	}
}

// StatusFor maps the upstream error taxonomy to an HTTP status code.
func StatusFor(err error) int {
	var (
		configErr    *upstream.ConfigError
		statusErr    *upstream.StatusError
		transportErr *upstream.TransportError
		contractErr  *upstream.ContractError
	)
	switch {
	case errors.As(err, &configErr):
		return fiber.StatusInternalServerError
	case errors.As(err, &statusErr):
		return statusErr.StatusCode
	case errors.As(err, &transportErr):
		return fiber.StatusBadGateway
	case errors.As(err, &contractErr):
		return fiber.StatusBadGateway
	default:
		return fiber.StatusInternalServerError
	}
}
