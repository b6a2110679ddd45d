package bastion

import (
	"errors"
	"net/http"

	"github.com/xraph/bastion/store"
)

var (
	// ErrAccessDenied is returned when an authorization check fails.
	ErrAccessDenied = errors.New("bastion: access denied")

	// ErrRootProtected is returned when a non-root principal targets the
	// root role or a root user.
	ErrRootProtected = errors.New("bastion: root is protected")

	// ErrTenantUnresolved is returned when no tenant matches a request on
	// an enforced path.
	ErrTenantUnresolved = errors.New("bastion: tenant could not be resolved")

	// ErrTenantAlreadySet is returned when a tenant context is filled twice.
	ErrTenantAlreadySet = errors.New("bastion: tenant already set for this context")

	// ErrNoTenantContext is returned by SetTenant when the context carries
	// no tenant slot.
	ErrNoTenantContext = errors.New("bastion: no tenant context")

	// ErrNotFound is returned when a requested entity does not exist.
	ErrNotFound = errors.New("bastion: not found")

	// ErrCrossTenant is returned when an entity belongs to another tenant.
	// It is reported as not found so tenant membership does not leak.
	ErrCrossTenant = errors.New("bastion: entity belongs to another tenant")

	// ErrValidation is returned when input fails validation.
	ErrValidation = errors.New("bastion: validation failed")

	// ErrDuplicateRoleName is returned when a role name is taken in its guard.
	ErrDuplicateRoleName = errors.New("bastion: role name already taken")

	// ErrSelfDelete is returned when a user tries to delete their own account.
	ErrSelfDelete = errors.New("bastion: cannot delete your own account")
)

// StatusCode maps err onto the HTTP status a caller should see.
func StatusCode(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrAccessDenied), errors.Is(err, ErrRootProtected):
		return http.StatusForbidden
	case errors.Is(err, ErrTenantUnresolved),
		errors.Is(err, ErrNotFound),
		errors.Is(err, ErrCrossTenant),
		errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrValidation),
		errors.Is(err, ErrDuplicateRoleName),
		errors.Is(err, ErrSelfDelete),
		errors.Is(err, store.ErrDuplicate):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
