package errors

import (
	"errors"
	"fmt"
	"net/http"
)

const (
	CodeInvalidRatingValue = "INVALID_RATING_VALUE"
	CodeInvalidComment     = "INVALID_COMMENT"
	CodeNotAuthenticated   = "NOT_AUTHENTICATED"
	CodeRestaurantNotFound = "RESTAURANT_NOT_FOUND"
	CodeNotFound           = "NOT_FOUND"
	CodeNotOwner           = "NOT_OWNER"
	CodeStoreUnavailable   = "STORE_UNAVAILABLE"
	CodeBadRequest         = "BAD_REQUEST"
	CodeTooManyRequests    = "TOO_MANY_REQUESTS"
	CodeInternal           = "INTERNAL_ERROR"
)

type AppError struct {
	Code    string
	Message string
	Status  int
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func InvalidRatingValue(message string) *AppError {
	return &AppError{
		Code:    CodeInvalidRatingValue,
		Message: message,
		Status:  http.StatusBadRequest,
	}
}

func InvalidComment(message string) *AppError {
	return &AppError{
		Code:    CodeInvalidComment,
		Message: message,
		Status:  http.StatusBadRequest,
	}
}

func NotAuthenticated(message string) *AppError {
	return &AppError{
		Code:    CodeNotAuthenticated,
		Message: message,
		Status:  http.StatusUnauthorized,
	}
}

func RestaurantNotFound(id string, err error) *AppError {
	return &AppError{
		Code:    CodeRestaurantNotFound,
		Message: fmt.Sprintf("restaurant %s not found", id),
		Status:  http.StatusNotFound,
		Err:     err,
	}
}

func NotFound(resource string, err error) *AppError {
	return &AppError{
		Code:    CodeNotFound,
		Message: fmt.Sprintf("%s not found", resource),
		Status:  http.StatusNotFound,
		Err:     err,
	}
}

func NotOwner(message string) *AppError {
	return &AppError{
		Code:    CodeNotOwner,
		Message: message,
		Status:  http.StatusForbidden,
	}
}

// StoreUnavailable marks a recoverable store failure; callers may retry the whole operation.
func StoreUnavailable(message string, err error) *AppError {
	return &AppError{
		Code:    CodeStoreUnavailable,
		Message: message,
		Status:  http.StatusServiceUnavailable,
		Err:     err,
	}
}

func BadRequest(message string, err error) *AppError {
	return &AppError{
		Code:    CodeBadRequest,
		Message: message,
		Status:  http.StatusBadRequest,
		Err:     err,
	}
}

func TooManyRequests(message string) *AppError {
	return &AppError{
		Code:    CodeTooManyRequests,
		Message: message,
		Status:  http.StatusTooManyRequests,
	}
}

func Is(err error, code string) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}
