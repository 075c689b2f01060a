package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/comanda-pos/comanda/internal/shared"
	"github.com/comanda-pos/comanda/internal/staff"
)

// Service wraps authentication business rules and acts as the
// credential-issuance collaborator for the staff lifecycle.
type Service struct {
	repo Repository
}

// NewService constructs a new Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Authenticate validates email/password credentials. Suspended credentials
// fail exactly like wrong passwords; callers learn nothing about why.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*Credential, error) {
	cred, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	if cred.Status != CredentialActive {
		return nil, shared.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(cred.PasswordHash), []byte(password)); err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	return cred, nil
}

// ChangePassword lets a principal replace a temporary password.
func (s *Service) ChangePassword(ctx context.Context, principalID uuid.UUID, newPassword string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("auth: hash password: %w", err)
	}
	return s.repo.SetPassword(ctx, principalID, string(hash), false)
}

// Issue creates a credential with a one-time temporary password.
func (s *Service) Issue(ctx context.Context, tenantID, principalID uuid.UUID, email string) (staff.TemporaryCredential, error) {
	password, err := generatePassword()
	if err != nil {
		return staff.TemporaryCredential{}, fmt.Errorf("auth: generate password: %w", err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return staff.TemporaryCredential{}, fmt.Errorf("auth: hash password: %w", err)
	}
	err = s.repo.Insert(ctx, Credential{
		PrincipalID:  principalID,
		TenantID:     tenantID,
		Email:        email,
		PasswordHash: string(hash),
		Status:       CredentialActive,
		Temporary:    true,
	})
	if err != nil {
		return staff.TemporaryCredential{}, err
	}
	return staff.TemporaryCredential{Email: email, Password: password}, nil
}

// Suspend marks the credential invalid without deleting it.
func (s *Service) Suspend(ctx context.Context, principalID uuid.UUID) error {
	return s.repo.SetStatus(ctx, principalID, CredentialSuspended)
}

// Reinstate restores a suspended credential.
func (s *Service) Reinstate(ctx context.Context, principalID uuid.UUID) error {
	return s.repo.SetStatus(ctx, principalID, CredentialActive)
}

// Revoke deletes the credential. Revoking an absent credential succeeds so
// compensating rollbacks stay idempotent.
func (s *Service) Revoke(ctx context.Context, principalID uuid.UUID) error {
	return s.repo.Delete(ctx, principalID)
}

func generatePassword() (string, error) {
	b := make([]byte, 18)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

var _ staff.CredentialIssuer = (*Service)(nil)
