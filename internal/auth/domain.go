package auth

import (
	"time"

	"github.com/google/uuid"
)

// CredentialStatus is the credential's validity state.
type CredentialStatus string

const (
	CredentialActive    CredentialStatus = "active"
	CredentialSuspended CredentialStatus = "suspended"
)

// Credential represents an issued login credential for a principal.
type Credential struct {
	PrincipalID  uuid.UUID
	TenantID     uuid.UUID
	Email        string
	PasswordHash string
	Status       CredentialStatus
	Temporary    bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
