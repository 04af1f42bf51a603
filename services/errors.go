package services

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/vgnam/Library-Management-System-sub000/store"
)

// Error is a rule violation the client should see verbatim as "detail".
type Error struct {
	Status int
	Detail string
}

func (e *Error) Error() string { return e.Detail }

func newError(status int, format string, args ...any) *Error {
	return &Error{Status: status, Detail: fmt.Sprintf(format, args...)}
}

func badRequest(format string, args ...any) *Error {
	return newError(http.StatusBadRequest, format, args...)
}

func unauthorized(format string, args ...any) *Error {
	return newError(http.StatusUnauthorized, format, args...)
}

func forbidden(format string, args ...any) *Error {
	return newError(http.StatusForbidden, format, args...)
}

func notFound(format string, args ...any) *Error {
	return newError(http.StatusNotFound, format, args...)
}

func conflict(format string, args ...any) *Error {
	return newError(http.StatusConflict, format, args...)
}

// fromStore turns store sentinels into client errors. what names the entity
// for not-found messages. Unknown errors pass through as internal.
func fromStore(err error, what string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrNotFound):
		return notFound("%s not found", what)
	case errors.Is(err, store.ErrUserExists):
		return badRequest("Username already exists")
	case errors.Is(err, store.ErrEmailExists):
		return badRequest("Email already exists")
	case errors.Is(err, store.ErrConflict):
		return conflict("%s conflicts with existing data", what)
	case errors.Is(err, store.ErrInvalidState):
		return badRequest("%s is not in a state that allows this action", what)
	}
	return err
}
