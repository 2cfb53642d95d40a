package rbac

import (
	"errors"
	"net/http"
)

// Sentinel errors for the access control domain. Services wrap these with
// context via fmt.Errorf("...: %w", Err...) and handlers map them to HTTP
// statuses with HTTPStatus.
var (
	// ErrUnauthenticated means no valid identity was presented
	ErrUnauthenticated = errors.New("authentication required")

	// ErrForbidden means the identity is known but lacks permission
	ErrForbidden = errors.New("permission denied")

	// ErrValidation means the request payload failed a domain rule
	ErrValidation = errors.New("validation failed")

	// ErrNotFound means the referenced record does not exist
	ErrNotFound = errors.New("not found")
)

// HTTPStatus maps a service error to its response status. Unrecognized
// errors are internal.
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
