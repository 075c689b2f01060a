// Package httpx provides HTTP response utilities.
package httpx

import (
	"errors"
	"net/http"

	"github.com/comanda-pos/comanda/internal/shared"
)

// RespondError maps domain errors to HTTP responses using RFC7807. Tenant
// mismatches and permission gaps deliberately carry no detail.
func RespondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, shared.ErrAuthentication), errors.Is(err, shared.ErrInvalidCredentials):
		Problem(w, http.StatusUnauthorized, "Not Authenticated", "")
	case errors.Is(err, shared.ErrTenantMismatch):
		Problem(w, http.StatusForbidden, "Access Denied", "")
	case errors.Is(err, shared.ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", "")
	case errors.Is(err, shared.ErrValidation):
		Problem(w, http.StatusBadRequest, "Validation Failed", "")
	case errors.Is(err, shared.ErrAlreadyCredentialed):
		Problem(w, http.StatusConflict, "Already Credentialed", "")
	case errors.Is(err, shared.ErrNotCredentialed):
		Problem(w, http.StatusConflict, "Not Credentialed", "")
	case errors.Is(err, shared.ErrConfirmationMismatch):
		Problem(w, http.StatusBadRequest, "Confirmation Required", "")
	case errors.Is(err, shared.ErrLockBusy):
		Problem(w, http.StatusConflict, "Busy", "")
	case errors.Is(err, shared.ErrStoreUnavailable):
		Problem(w, http.StatusServiceUnavailable, "Store Unavailable", "")
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
