package http

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"github.com/gemfoundation/exposure/internal/core/domain"
	"github.com/gemfoundation/exposure/internal/pkg/validation"
)

// APIError is a structured error response.
type APIError struct {
	Status    int                     `json:"status"`
	Code      string                  `json:"code"`    // bad_request, not_found, internal_error, ...
	Message   string                  `json:"message"` // Human-readable message
	RequestID string                  `json:"request_id,omitempty"`
	Fields    []validation.FieldError `json:"fields,omitempty"`
}

// newError builds a JSON error response with a request ID.
func newError(c *fiber.Ctx, status int, code string, message string) error {
	reqID, _ := c.Locals("requestid").(string)
	return c.Status(status).JSON(APIError{
		Status:    status,
		Code:      code,
		Message:   message,
		RequestID: reqID,
	})
}

// errBadRequest returns a 400 error.
func errBadRequest(c *fiber.Ctx, msg string) error {
	return newError(c, fiber.StatusBadRequest, "bad_request", msg)
}

// errNotFound returns a 404 error.
func errNotFound(c *fiber.Ctx, msg string) error {
	return newError(c, fiber.StatusNotFound, "not_found", msg)
}

// errInternal returns a 500 error.
func errInternal(c *fiber.Ctx, msg string) error {
	return newError(c, fiber.StatusInternalServerError, "internal_error", msg)
}

// errUnauthorized returns a 401 error.
func errUnauthorized(c *fiber.Ctx, msg string) error {
	return newError(c, fiber.StatusUnauthorized, "unauthorized", msg)
}

// errMethodNotAllowed returns a 405 error.
func errMethodNotAllowed(c *fiber.Ctx, msg string) error {
	return newError(c, fiber.StatusMethodNotAllowed, "method_not_allowed", msg)
}

// errValidation returns a 400 listing every failed field.
func errValidation(c *fiber.Ctx, verr *validation.Error) error {
	reqID, _ := c.Locals("requestid").(string)
	return c.Status(fiber.StatusBadRequest).JSON(APIError{
		Status:    fiber.StatusBadRequest,
		Code:      "validation_failed",
		Message:   verr.Error(),
		RequestID: reqID,
		Fields:    verr.Fields,
	})
}

// errBoundingBox renders the export-area rejection as the HTML snippet the
// map client shows verbatim.
func errBoundingBox(c *fiber.Ctx, err error) error {
	c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
	return c.Status(fiber.StatusForbidden).SendString(err.Error())
}

// writeDomainError maps a service error to its HTTP response.
func writeDomainError(c *fiber.Ctx, err error) error {
	var verr *validation.Error
	switch {
	case errors.Is(err, domain.ErrInvalidBoundingBox):
		return errBoundingBox(c, err)
	case errors.Is(err, domain.ErrUnsupportedFormat), errors.Is(err, domain.ErrInvalidParameter):
		return errBadRequest(c, err.Error())
	case errors.As(err, &verr):
		return errValidation(c, verr)
	case errors.Is(err, domain.ErrNotFound):
		return errNotFound(c, err.Error())
	}
	LoggerFromCtx(c.UserContext()).Error("request failed", slog.String("path", c.Path()), slog.Any("error", err))
	return errInternal(c, "internal server error")
}

// ErrorHandler is the fiber.Config error handler. Errors raised by fiber
// itself (unknown route, request timeout, body too large) keep their status.
func ErrorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return newError(c, fe.Code, errorCode(fe.Code), fe.Message)
	}
	return writeDomainError(c, err)
}

func errorCode(status int) string {
	switch status {
	case fiber.StatusBadRequest:
		return "bad_request"
	case fiber.StatusUnauthorized:
		return "unauthorized"
	case fiber.StatusNotFound:
		return "not_found"
	case fiber.StatusMethodNotAllowed:
		return "method_not_allowed"
	case fiber.StatusRequestTimeout:
		return "timeout"
	case fiber.StatusRequestEntityTooLarge:
		return "body_too_large"
	case fiber.StatusTooManyRequests:
		return "rate_limited"
	}
	if status >= 500 {
		return "internal_error"
	}
	return "error"
}
