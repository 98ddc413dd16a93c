package app

import (
	"fmt"
	"net/http"
	"strings"
)

type ErrorKind string

const (
	KindValidation  ErrorKind = "VALIDATION"
	KindNotFound    ErrorKind = "NOT_FOUND"
	KindUnavailable ErrorKind = "UNAVAILABLE"
	KindConflict    ErrorKind = "CONFLICT"
	KindPermission  ErrorKind = "PERMISSION"
	KindImmutable   ErrorKind = "IMMUTABLE"
)

// DomainError is the only error shape business rules raise. Code is stable
// and machine-readable; Message is for humans. The HTTP layer owns status
// mapping and localization.
type DomainError struct {
	Kind    ErrorKind
	Code    string
	Message string
	Details any
}

func (e *DomainError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// HTTPStatus maps an error kind to its transport status.
func (e *DomainError) HTTPStatus() int {
	switch e.Kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindUnavailable:
		return http.StatusUnprocessableEntity
	case KindConflict, KindImmutable:
		return http.StatusConflict
	case KindPermission:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

type FieldViolation struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// validationError reports every violated field at once, never just the first.
func validationError(violations ...FieldViolation) *DomainError {
	fields := make([]string, 0, len(violations))
	for _, v := range violations {
		fields = append(fields, v.Field)
	}
	return &DomainError{
		Kind:    KindValidation,
		Code:    "VALIDATION_FAILED",
		Message: "invalid fields: " + strings.Join(fields, ", "),
		Details: violations,
	}
}

func notFoundError(code, message string) *DomainError {
	return &DomainError{Kind: KindNotFound, Code: code, Message: message}
}

// unavailableError carries the gating reason code so callers can tell a
// disabled type from a system in maintenance.
func unavailableError(reason, message, detail string) *DomainError {
	err := &DomainError{Kind: KindUnavailable, Code: reason, Message: message}
	if detail != "" {
		err.Details = map[string]string{"detail": detail}
	}
	return err
}

func conflictError(code, message string) *DomainError {
	return &DomainError{Kind: KindConflict, Code: code, Message: message}
}

func permissionError(code, message string) *DomainError {
	return &DomainError{Kind: KindPermission, Code: code, Message: message}
}

func immutableError(message string) *DomainError {
	return &DomainError{Kind: KindImmutable, Code: "LOG_IMMUTABLE", Message: message}
}
