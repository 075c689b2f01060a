package shared

import "errors"

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAuthentication indicates the session token could not be validated.
	ErrAuthentication = errors.New("not authenticated")
	// ErrTenantMismatch indicates an attempted cross-tenant access. Always
	// fatal, never silently corrected.
	ErrTenantMismatch = errors.New("tenant mismatch")
	// ErrStoreUnavailable indicates a transient persistence failure. Callers
	// must fail closed.
	ErrStoreUnavailable = errors.New("store unavailable")
	// ErrAlreadyCredentialed indicates a grant on an already active record.
	ErrAlreadyCredentialed = errors.New("employee already credentialed")
	// ErrNotCredentialed indicates a credential operation on a record that
	// has no system access.
	ErrNotCredentialed = errors.New("employee not credentialed")
	// ErrConfirmationMismatch indicates the removal confirmation string did
	// not match the required literal.
	ErrConfirmationMismatch = errors.New("confirmation string mismatch")
	// ErrLockBusy indicates the per-principal mutation lease is held elsewhere.
	ErrLockBusy = errors.New("mutation in progress for principal")
	// ErrValidation indicates a rejected request payload.
	ErrValidation = errors.New("validation failed")
)
