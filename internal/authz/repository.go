package authz

import (
	"context"

	"github.com/google/uuid"
)

// OverrideStore persists per-principal permission overrides. Every call is
// scoped by the (tenant, principal) compound key. Fetch returns an empty
// slice for principals without overrides; only transport or permission
// failures surface as shared.ErrStoreUnavailable.
type OverrideStore interface {
	FetchOverrides(ctx context.Context, tenantID, principalID uuid.UUID) ([]OverrideRow, error)
	ReplaceModuleOverride(ctx context.Context, tenantID, principalID uuid.UUID, module Module, cells Cells) error
	ClearModuleOverride(ctx context.Context, tenantID, principalID uuid.UUID, module Module) error
	ClearAllOverrides(ctx context.Context, tenantID, principalID uuid.UUID) error
}

// AssignmentStore persists canonical role assignments, including the
// mappings learned from heuristic resolution.
type AssignmentStore interface {
	// CanonicalAssignment returns the role-assignment record for the
	// principal, or shared.ErrNotFound when none exists.
	CanonicalAssignment(ctx context.Context, tenantID, principalID uuid.UUID) (Assignment, error)
	// SaveLearnedAssignment records a heuristically resolved role using an
	// atomic insert-if-absent, so concurrent resolutions cannot clobber a
	// canonical record.
	SaveLearnedAssignment(ctx context.Context, tenantID, principalID uuid.UUID, role Role) error
}

// Directory exposes the minimal staff-record view the resolver needs: the
// free-text job title and whether access is currently suspended. Returns
// shared.ErrNotFound for principals whose staff record no longer exists.
type Directory interface {
	PrincipalProfile(ctx context.Context, tenantID, principalID uuid.UUID) (Profile, error)
}

// Profile is the resolver's view of a staff record.
type Profile struct {
	JobTitle    string
	Deactivated bool
}

// TenantLookup resolves the tenant a principal belongs to, for the override
// store tenant guard. Returns shared.ErrNotFound for unknown principals.
type TenantLookup interface {
	PrincipalTenant(ctx context.Context, principalID uuid.UUID) (uuid.UUID, error)
}

// SessionValidator validates a session token against the identity
// collaborator. Returns shared.ErrAuthentication for missing, expired or
// revoked tokens.
type SessionValidator interface {
	Validate(ctx context.Context, token string) (SessionIdentity, error)
}

// SessionIdentity is the authenticated-but-unresolved principal.
type SessionIdentity struct {
	PrincipalID uuid.UUID
	TenantID    uuid.UUID
	Email       string
}
