package auth

import (
	"context"

	"github.com/google/uuid"

	"github.com/comanda-pos/comanda/internal/authz"
	"github.com/comanda-pos/comanda/internal/shared"
)

// SessionValidator adapts the redis session manager to the resolver's
// session/identity collaborator contract.
type SessionValidator struct {
	sessions *shared.SessionManager
}

// NewSessionValidator constructs a SessionValidator.
func NewSessionValidator(sessions *shared.SessionManager) *SessionValidator {
	return &SessionValidator{sessions: sessions}
}

// Validate resolves a token to the principal and tenant it was bound to at
// login. Missing, expired or revoked tokens fail with ErrAuthentication.
func (v *SessionValidator) Validate(ctx context.Context, token string) (authz.SessionIdentity, error) {
	sess, err := v.sessions.Load(ctx, token)
	if err != nil {
		return authz.SessionIdentity{}, err
	}
	principalID, err := uuid.Parse(sess.PrincipalID())
	if err != nil {
		return authz.SessionIdentity{}, shared.ErrAuthentication
	}
	tenantID, err := uuid.Parse(sess.TenantID())
	if err != nil {
		return authz.SessionIdentity{}, shared.ErrAuthentication
	}
	return authz.SessionIdentity{
		PrincipalID: principalID,
		TenantID:    tenantID,
		Email:       sess.Email(),
	}, nil
}

var _ authz.SessionValidator = (*SessionValidator)(nil)
