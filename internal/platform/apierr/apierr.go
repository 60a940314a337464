package apierr

import (
	"errors"
	"fmt"
	"net/http"
)

type Error struct {
	Status int
	Code   string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Code != "" {
		return e.Code
	}
	if e.Status != 0 {
		return fmt.Sprintf("api error (%d)", e.Status)
	}
	return "api error"
}

func (e *Error) Unwrap() error { return e.Err }

func New(status int, code string, err error) *Error {
	return &Error{Status: status, Code: code, Err: err}
}

func Unauthorized(err error) *Error {
	return New(http.StatusUnauthorized, "unauthorized", err)
}

func Forbidden(err error) *Error {
	return New(http.StatusForbidden, "forbidden", err)
}

func Validation(code string, err error) *Error {
	if code == "" {
		code = "invalid_request"
	}
	return New(http.StatusBadRequest, code, err)
}

func NotFound(code string, err error) *Error {
	if code == "" {
		code = "not_found"
	}
	return New(http.StatusNotFound, code, err)
}

// MigrationMissing marks a lookup against a table that has not been
// provisioned yet; callers decide whether to degrade or fail.
func MigrationMissing(relation string) *Error {
	return New(http.StatusInternalServerError, "migration_missing",
		fmt.Errorf("relation %q does not exist; run the pending migration", relation))
}

func Upstream(err error) *Error {
	return New(http.StatusBadGateway, "upstream_failure", err)
}

func Internal(err error) *Error {
	return New(http.StatusInternalServerError, "internal", err)
}

// From extracts an *Error from err's chain, wrapping unknown errors as
// internal so handlers always have a status to render.
func From(err error) *Error {
	if err == nil {
		return nil
	}
	var ae *Error
	if errors.As(err, &ae) {
		return ae
	}
	return Internal(err)
}
