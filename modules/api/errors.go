package api

import (
	"errors"
	"log/slog"

	"github.com/example/session-auth/modules/auth"
	"github.com/gofiber/fiber/v2"
)

const internalServerError = "Internal Server Error"

// NewErrorHandler returns the terminal fiber error handler. Auth errors map
// to a status by kind. In production, 500 responses carry a generic message
// and no details.
func NewErrorHandler(production bool, log *slog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		status, resp := errorResponse(err, production)
		if status >= fiber.StatusInternalServerError {
			log.Error("request failed",
				"method", c.Method(),
				"path", c.Path(),
				"status", status,
				"error", err,
			)
		}
		return c.Status(status).JSON(resp)
	}
}

func errorResponse(err error, production bool) (int, ErrorResponse) {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fe.Code, ErrorResponse{
			Error:   fiberErrorCode(fe.Code),
			Message: fe.Message,
		}
	}

	e := auth.AsError(err)
	status := statusForKind(e.Kind)
	resp := ErrorResponse{
		Error:   e.Code,
		Message: e.Message,
	}
	if status == fiber.StatusInternalServerError {
		resp.Message = internalServerError
	}
	if !production && e.Err != nil {
		resp.Details = e.Err.Error()
	}
	return status, resp
}

func statusForKind(kind auth.Kind) int {
	switch kind {
	case auth.KindValidation, auth.KindConflict:
		return fiber.StatusBadRequest
	case auth.KindAuthentication:
		return fiber.StatusUnauthorized
	case auth.KindNotFound:
		return fiber.StatusNotFound
	default:
		return fiber.StatusInternalServerError
	}
}

func fiberErrorCode(status int) string {
	switch {
	case status == fiber.StatusNotFound:
		return "not_found"
	case status == fiber.StatusTooManyRequests:
		return "too_many_requests"
	case status == fiber.StatusMethodNotAllowed:
		return "method_not_allowed"
	case status >= fiber.StatusInternalServerError:
		return "server_error"
	default:
		return "bad_request"
	}
}
