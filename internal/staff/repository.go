package staff

import (
	"context"

	"github.com/google/uuid"

	"github.com/comanda-pos/comanda/internal/authz"
)

// Repository defines persistence for staff records and their role
// assignments. Every operation is tenant-scoped.
type Repository interface {
	ListEmployees(ctx context.Context, tenantID uuid.UUID) ([]Employee, error)
	GetEmployee(ctx context.Context, tenantID, employeeID uuid.UUID) (Employee, error)
	CreateEmployee(ctx context.Context, emp Employee) (Employee, error)
	// BindPrincipal moves the record to the given access state and binds
	// (or keeps) its principal id.
	BindPrincipal(ctx context.Context, tenantID, employeeID, principalID uuid.UUID, state AccessState) error
	SetAccessState(ctx context.Context, tenantID, employeeID uuid.UUID, state AccessState) error
	DeleteEmployee(ctx context.Context, tenantID, employeeID uuid.UUID) error

	CreateAssignment(ctx context.Context, tenantID, principalID uuid.UUID, role authz.Role) error
	SetAssignmentActive(ctx context.Context, tenantID, principalID uuid.UUID, active bool) error
	DeleteAssignment(ctx context.Context, tenantID, principalID uuid.UUID) error
}

// CredentialIssuer is the external credential-issuance collaborator.
type CredentialIssuer interface {
	Issue(ctx context.Context, tenantID, principalID uuid.UUID, email string) (TemporaryCredential, error)
	Suspend(ctx context.Context, principalID uuid.UUID) error
	Reinstate(ctx context.Context, principalID uuid.UUID) error
	Revoke(ctx context.Context, principalID uuid.UUID) error
}

// SessionRevoker invalidates live sessions for a principal.
type SessionRevoker interface {
	Revoke(ctx context.Context, principalID string) error
}
