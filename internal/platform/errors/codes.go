// Package errors provides structured domain errors for the cafes service.
package errors

import (
	"net/http"
	"strings"
)

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Input errors
	CodeValidationFailed Code = "VALIDATION_FAILED"
	CodeMissingArgument  Code = "MISSING_ARGUMENT"
	CodeInvalidArgument  Code = "INVALID_ARGUMENT"
	CodeInvalidFilter    Code = "INVALID_FILTER"

	// Storage errors
	CodeNotFound      Code = "NOT_FOUND"
	CodeNoMatch       Code = "NO_MATCH"
	CodeDuplicateName Code = "DUPLICATE_NAME"
	CodeEmptyStore    Code = "EMPTY_STORE"

	// Access errors
	CodeUnauthorized Code = "UNAUTHORIZED"
)

// HTTPStatus maps domain codes to HTTP status codes.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeValidationFailed,
		CodeMissingArgument,
		CodeInvalidArgument,
		CodeInvalidFilter:
		return http.StatusBadRequest
	case CodeNotFound,
		CodeNoMatch,
		CodeEmptyStore:
		return http.StatusNotFound
	case CodeDuplicateName:
		return http.StatusConflict
	case CodeUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// LocalizationKey returns the message catalog key for the code.
func (c Code) LocalizationKey() string {
	if c == "" {
		c = CodeUnknown
	}
	return "errors." + strings.ToLower(string(c))
}
