package app

import (
	"errors"
	"fmt"
	"net/http"

	"denuncias/api/internal/util"
)

type DomainError struct {
	Status  int
	Code    string
	Message string
	Details any
	cause   error
}

func (e *DomainError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *DomainError) Unwrap() error {
	return e.cause
}

func domainError(status int, code, message string, details any) *DomainError {
	return &DomainError{
		Status:  status,
		Code:    code,
		Message: message,
		Details: details,
	}
}

func validationError(message string, missing ...string) *DomainError {
	var details any
	if len(missing) > 0 {
		details = map[string]any{"missing": missing}
	}
	return domainError(http.StatusBadRequest, "VALIDATION_ERROR", message, details)
}

// fieldValidationError turns validator output (or any other input error) into
// a 400 naming the offending fields.
func fieldValidationError(err error) *DomainError {
	var fieldErrs *util.FieldErrors
	if !errors.As(err, &fieldErrs) {
		return validationError(err.Error())
	}
	details := map[string]any{}
	message := "Invalid input"
	if len(fieldErrs.Missing) > 0 {
		details["missing"] = fieldErrs.Missing
		message = "Missing required fields"
	}
	if len(fieldErrs.Invalid) > 0 {
		details["invalid"] = fieldErrs.Invalid
	}
	return domainError(http.StatusBadRequest, "VALIDATION_ERROR", message, details)
}

func authenticationError() *DomainError {
	return domainError(http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", nil)
}

func authorizationError() *DomainError {
	return domainError(http.StatusForbidden, "FORBIDDEN", "Forbidden", nil)
}

func notFoundError(message string) *DomainError {
	return domainError(http.StatusNotFound, "NOT_FOUND", message, nil)
}

func conflictError(code, message string, details any) *DomainError {
	return domainError(http.StatusConflict, code, message, details)
}

func dependencyError(message string, cause error) *DomainError {
	err := domainError(http.StatusServiceUnavailable, "DEPENDENCY_UNAVAILABLE", message, nil)
	err.cause = cause
	return err
}
