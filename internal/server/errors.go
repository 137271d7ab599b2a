package server

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"vacciassist/internal/domain"
)

type Error struct {
	Code    int    `json:"code"`
	Message string `json:"error"`
}

func (e Error) Error() string {
	return e.Message
}

func NewError(code int, msg string) Error {
	return Error{Code: code, Message: msg}
}

type ValidationError struct {
	Status int               `json:"status"`
	Errors map[string]string `json:"errors"`
}

func (e ValidationError) Error() string {
	return "validation failed"
}

func NewValidationError(errors map[string]string) ValidationError {
	return ValidationError{
		Status: fiber.StatusUnprocessableEntity,
		Errors: errors,
	}
}

func ErrBadRequest() Error {
	return NewError(fiber.StatusBadRequest, "invalid JSON request")
}

func ErrNotFound[T any](arg T, resource string) Error {
	return NewError(fiber.StatusNotFound, fmt.Sprintf("%s with %v not found", resource, arg))
}

// ErrorHandler turns handler errors into JSON responses. Domain errors are
// mapped to status codes by kind.
func ErrorHandler(c *fiber.Ctx, err error) error {
	var valErr ValidationError
	if errors.As(err, &valErr) {
		return c.Status(valErr.Status).JSON(valErr)
	}

	apiErr := toAPIError(err)
	if apiErr.Code >= fiber.StatusInternalServerError {
		slog.Default().Error("request failed",
			"component", "http", "method", c.Method(), "path", c.Path(), "code", apiErr.Code, "err", err)
	}
	return c.Status(apiErr.Code).JSON(apiErr)
}

func toAPIError(err error) Error {
	var apiErr Error
	if errors.As(err, &apiErr) {
		return apiErr
	}
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return NewError(fe.Code, fe.Message)
	}
	switch {
	case errors.Is(err, domain.ErrSessionNotFound):
		return NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrIngestion):
		return NewError(fiber.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, domain.ErrEmptyQuestion), errors.Is(err, domain.ErrInvalidBirthDate):
		return NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrEmbedding), errors.Is(err, domain.ErrCompletion):
		return NewError(fiber.StatusBadGateway, err.Error())
	}
	return NewError(fiber.StatusInternalServerError, "internal server error")
}
