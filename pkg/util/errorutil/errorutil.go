package errorutil

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5"
)

// Error codes shared by the Discord surface and the admin API.
const (
	CodeValidation          = "VALIDATION_FAILED"
	CodeUnauthorized        = "UNAUTHORIZED"
	CodeForbidden           = "FORBIDDEN"
	CodeNotFound            = "NOT_FOUND"
	CodeConflict            = "CONFLICT"
	CodeDuplicateTicket     = "DUPLICATE_TICKET"
	CodeReopenWindowExpired = "REOPEN_WINDOW_EXCEEDED"
	CodeInternal            = "INTERNAL_ERROR"
)

// GenericFailureMessage is shown to actors when an unexpected error occurs.
const GenericFailureMessage = "Something went wrong. Please try again later."

// DomainError standardizes application errors.
type DomainError struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]any
	Err        error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is matches on code so callers can compare against the sentinel constructors.
func (e *DomainError) Is(target error) bool {
	var other *DomainError
	if !errors.As(target, &other) {
		return false
	}
	return other.Code == e.Code
}

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details}
}

func NewValidationError(message string, details map[string]any) error {
	return NewDomainError(CodeValidation, message, http.StatusBadRequest, details)
}

func NewNotFound(resource string, details map[string]any) error {
	if details == nil {
		details = map[string]any{}
	}
	return &DomainError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
		Details:    details,
	}
}

func NewUnauthorized(message string) error {
	return NewDomainError(CodeUnauthorized, message, http.StatusUnauthorized, nil)
}

func NewForbidden(message string) error {
	return NewDomainError(CodeForbidden, message, http.StatusForbidden, nil)
}

func NewConflict(message string, details map[string]any) error {
	return NewDomainError(CodeConflict, message, http.StatusConflict, details)
}

// NewDuplicateTicket reports that the user already has a live ticket.
func NewDuplicateTicket(channelID string) error {
	return NewDomainError(CodeDuplicateTicket,
		fmt.Sprintf("You already have an open ticket: <#%s>. Please close it before creating a new one.", channelID),
		http.StatusConflict,
		map[string]any{"channel_id": channelID})
}

// NewReopenWindowExceeded reports a reopen attempt after the grace period.
func NewReopenWindowExceeded(windowHours int) error {
	return NewDomainError(CodeReopenWindowExpired,
		fmt.Sprintf("Ticket cannot be reopened after %d hours", windowHours),
		http.StatusConflict,
		map[string]any{"window_hours": windowHours})
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       CodeInternal,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// ToDomainError converts generic errors to DomainError.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	if errors.Is(err, pgx.ErrNoRows) {
		if de, ok := NewNotFound("resource", nil).(*DomainError); ok {
			return de
		}
	}
	return &DomainError{
		Code:       CodeInternal,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// IsInternal reports whether err is unclassified and must be logged server-side.
func IsInternal(err error) bool {
	return ToDomainError(err).Code == CodeInternal
}

// UserMessage returns the single reply text an actor sees for err.
func UserMessage(err error) string {
	de := ToDomainError(err)
	if de.Code == CodeInternal {
		return GenericFailureMessage
	}
	return de.Message
}
