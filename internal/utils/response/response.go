// Package response writes the uniform {status, data, message} envelope.
package response

import (
	"log/slog"

	"arbitra/internal/config"
	apperrors "arbitra/internal/errors"

	"github.com/gofiber/fiber/v2"
)

const (
	statusSuccess = "success"
	statusError   = "error"
)

func Success(c *fiber.Ctx, message string, data interface{}) error {
	return c.JSON(envelope(message, data))
}

func Created(c *fiber.Ctx, message string, data interface{}) error {
	return c.Status(fiber.StatusCreated).JSON(envelope(message, data))
}

func envelope(message string, data interface{}) fiber.Map {
	body := fiber.Map{"status": statusSuccess}
	if message != "" {
		body["message"] = message
	}
	if data != nil {
		body["data"] = data
	}
	return body
}

func Error(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(fiber.Map{
		"status":  statusError,
		"message": message,
	})
}

func BadRequest(c *fiber.Ctx, message string) error {
	return Error(c, fiber.StatusBadRequest, message)
}

func ServerError(c *fiber.Ctx, message string) error {
	return Error(c, fiber.StatusInternalServerError, message)
}

func Unauthorized(c *fiber.Ctx) error {
	return Error(c, fiber.StatusUnauthorized, "Unauthorized")
}

// Fail maps err onto its taxonomy status. Infrastructure details are hidden
// in production; validation failures carry their field messages.
func Fail(c *fiber.Ctx, err error) error {
	status := apperrors.HTTPStatus(err)
	message := err.Error()

	de, ok := apperrors.As(err)
	if ok {
		message = de.Message
	}

	if status >= fiber.StatusInternalServerError {
		slog.Error("request failed",
			"module", "http",
			"method", c.Method(),
			"path", c.Path(),
			"error", err,
		)
		if config.IsProduction() {
			message = "Internal server error"
		}
	}

	body := fiber.Map{
		"status":  statusError,
		"message": message,
	}
	if ok && len(de.Fields) > 0 {
		body["data"] = fiber.Map{"errors": de.Fields}
	}
	return c.Status(status).JSON(body)
}

// ErrorHandler is installed on the fiber app for errors that escape handlers.
func ErrorHandler(c *fiber.Ctx, err error) error {
	if fe, ok := err.(*fiber.Error); ok {
		return Error(c, fe.Code, fe.Message)
	}
	return Fail(c, err)
}
