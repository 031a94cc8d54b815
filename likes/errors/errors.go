// Copyright (c) 2025 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package errors

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"
)

// Like service specific errors
var (
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrStoreUnavailable   = errors.New("like store unavailable")
	ErrEntityNotFound     = errors.New("entity not found")
	ErrOwnerRequired      = errors.New("entityUserId is required")
	ErrInvalidRequest     = errors.New("invalid request")
	ErrMissingUserContext = errors.New("missing user context")
)

// Error codes
const (
	CodeInvalidArgument    = "INVALID_ARGUMENT"
	CodeStoreUnavailable   = "STORE_UNAVAILABLE"
	CodeEntityNotFound     = "ENTITY_NOT_FOUND"
	CodeInvalidRequest     = "INVALID_REQUEST"
	CodeMissingUserContext = "MISSING_USER_CONTEXT"
	CodeValidationFailed   = "VALIDATION_FAILED"
)

// ErrorResponse represents the standardized error response format
type ErrorResponse struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// HandleServiceError handles service errors and returns appropriate HTTP responses
func HandleServiceError(c *fiber.Ctx, err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, ErrInvalidArgument), errors.Is(err, ErrOwnerRequired):
		return c.Status(http.StatusBadRequest).JSON(ErrorResponse{
			Code:    CodeInvalidArgument,
			Message: "Invalid argument",
			Details: err.Error(),
		})
	case errors.Is(err, ErrEntityNotFound):
		return c.Status(http.StatusNotFound).JSON(ErrorResponse{
			Code:    CodeEntityNotFound,
			Message: "Entity not found",
			Details: err.Error(),
		})
	case errors.Is(err, ErrStoreUnavailable):
		return c.Status(http.StatusServiceUnavailable).JSON(ErrorResponse{
			Code:    CodeStoreUnavailable,
			Message: "Like store unavailable, the operation was not applied",
			Details: err.Error(),
		})
	default:
		return c.Status(http.StatusInternalServerError).JSON(ErrorResponse{
			Code:    "INTERNAL_ERROR",
			Message: "An unexpected error occurred",
			Details: err.Error(),
		})
	}
}

// HandleValidationError handles validation errors with 400 Bad Request
func HandleValidationError(c *fiber.Ctx, message string) error {
	return c.Status(http.StatusBadRequest).JSON(ErrorResponse{
		Code:    CodeValidationFailed,
		Message: message,
		Details: message,
	})
}

// HandleUserContextError handles user context errors with 401 Unauthorized
func HandleUserContextError(c *fiber.Ctx, message string) error {
	return c.Status(http.StatusUnauthorized).JSON(ErrorResponse{
		Code:    CodeMissingUserContext,
		Message: message,
		Details: message,
	})
}

// HandleInvalidRequestError handles invalid request errors with 400 Bad Request
func HandleInvalidRequestError(c *fiber.Ctx, message string) error {
	return c.Status(http.StatusBadRequest).JSON(ErrorResponse{
		Code:    CodeInvalidRequest,
		Message: message,
		Details: message,
	})
}
