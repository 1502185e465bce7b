package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound            = errors.New("not found")
	ErrValidation          = errors.New("validation error")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrForbidden           = errors.New("forbidden")
	ErrConflict            = errors.New("conflict")
	ErrNoPlatforms         = errors.New("no platforms connected")
	ErrUpstream            = errors.New("upstream error")
	ErrMalformedAI         = errors.New("malformed AI response")
	ErrAllRefreshesFailed  = errors.New("all platform refreshes failed")
	ErrInsufficientCredits = errors.New("insufficient credits")
)

type AppError struct {
	Err     error  // sentinel category, checked with errors.Is
	Message string // Human-readable error message
	Field   string // Optional: field causing the error

	// Upstream HTTP details, set only for ErrUpstream.
	Status int
	Body   string
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %s", resource, id),
	}
}

// NotFoundOrUnauthorized is used when an ownership check fails. The message
// deliberately does not say whether the resource exists — a caller probing
// other users' IDs learns nothing from the response.
func NotFoundOrUnauthorized(resource string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found", resource),
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

func Unauthorized(message string) *AppError {
	return &AppError{
		Err:     ErrUnauthorized,
		Message: message,
	}
}

// Forbidden returns an AppError indicating the caller lacks permission.
// HTTP handlers map this to 403 Forbidden.
func Forbidden(message string) *AppError {
	return &AppError{
		Err:     ErrForbidden,
		Message: message,
	}
}

func Conflict(resource, id string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: fmt.Sprintf("%s conflict with id %s", resource, id),
	}
}

func NoPlatformsConnected() *AppError {
	return &AppError{
		Err:     ErrNoPlatforms,
		Message: "no platforms connected — connect at least one platform first",
	}
}

// Upstream wraps a non-2xx response from an external API. The status code and
// body are carried so callers can log exactly what the upstream said.
func Upstream(api string, status int, body string) *AppError {
	return &AppError{
		Err:     ErrUpstream,
		Message: fmt.Sprintf("%s returned status %d", api, status),
		Status:  status,
		Body:    body,
	}
}

func MalformedAIResponse(message string) *AppError {
	return &AppError{
		Err:     ErrMalformedAI,
		Message: message,
	}
}

func AllPlatformRefreshesFailed() *AppError {
	return &AppError{
		Err:     ErrAllRefreshesFailed,
		Message: "every platform refresh attempt failed",
	}
}

func InsufficientCredits() *AppError {
	return &AppError{
		Err:     ErrInsufficientCredits,
		Message: "not enough credits — purchase more to generate insights",
	}
}
