package types

import (
	"errors"
	"fmt"
)

type ErrorKind string

const (
	KindValidation     ErrorKind = "validation"
	KindNotFound       ErrorKind = "not_found"
	KindConflict       ErrorKind = "conflict"
	KindRateLimit      ErrorKind = "rate_limit"
	KindAuthentication ErrorKind = "authentication"
	KindInternal       ErrorKind = "internal"
)

// AppError is a classified domain failure returned by the service layer.
type AppError struct {
	Kind    ErrorKind `json:"type"`
	Message string    `json:"message"`

	// RemainingHours is only set for KindRateLimit
	RemainingHours int `json:"remainingHours,omitempty"`
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func Validation(message string) *AppError {
	return &AppError{Kind: KindValidation, Message: message}
}

func NotFound(message string) *AppError {
	return &AppError{Kind: KindNotFound, Message: message}
}

func Conflict(message string) *AppError {
	return &AppError{Kind: KindConflict, Message: message}
}

func Unauthenticated(message string) *AppError {
	return &AppError{Kind: KindAuthentication, Message: message}
}

func RateLimited(remainingHours int) *AppError {
	return &AppError{
		Kind:           KindRateLimit,
		Message:        fmt.Sprintf("You can only post once per 24 hours. Please wait %d more hour(s).", remainingHours),
		RemainingHours: remainingHours,
	}
}

// KindOf returns KindInternal for anything that is not an *AppError
func KindOf(err error) ErrorKind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// IsKind reports whether err carries the given kind
func IsKind(err error, kind ErrorKind) bool {
	return err != nil && KindOf(err) == kind
}
