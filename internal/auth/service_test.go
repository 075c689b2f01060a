package auth

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/comanda-pos/comanda/internal/shared"
)

type memoryRepository struct {
	byEmail     map[string]*Credential
	byPrincipal map[uuid.UUID]*Credential
}

func newMemoryRepository() *memoryRepository {
	return &memoryRepository{
		byEmail:     make(map[string]*Credential),
		byPrincipal: make(map[uuid.UUID]*Credential),
	}
}

func (m *memoryRepository) FindByEmail(ctx context.Context, email string) (*Credential, error) {
	cred, ok := m.byEmail[email]
	if !ok {
		return nil, shared.ErrNotFound
	}
	copied := *cred
	return &copied, nil
}

func (m *memoryRepository) Insert(ctx context.Context, cred Credential) error {
	if _, exists := m.byPrincipal[cred.PrincipalID]; exists {
		return shared.ErrAlreadyCredentialed
	}
	if _, exists := m.byEmail[cred.Email]; exists {
		return shared.ErrAlreadyCredentialed
	}
	m.byEmail[cred.Email] = &cred
	m.byPrincipal[cred.PrincipalID] = &cred
	return nil
}

func (m *memoryRepository) SetStatus(ctx context.Context, principalID uuid.UUID, status CredentialStatus) error {
	cred, ok := m.byPrincipal[principalID]
	if !ok {
		return shared.ErrNotCredentialed
	}
	cred.Status = status
	return nil
}

func (m *memoryRepository) SetPassword(ctx context.Context, principalID uuid.UUID, passwordHash string, temporary bool) error {
	cred, ok := m.byPrincipal[principalID]
	if !ok {
		return shared.ErrNotCredentialed
	}
	cred.PasswordHash = passwordHash
	cred.Temporary = temporary
	return nil
}

func (m *memoryRepository) Delete(ctx context.Context, principalID uuid.UUID) error {
	cred, ok := m.byPrincipal[principalID]
	if !ok {
		return nil
	}
	delete(m.byEmail, cred.Email)
	delete(m.byPrincipal, principalID)
	return nil
}

func seedCredential(t *testing.T, repo *memoryRepository, email, password string, status CredentialStatus) *Credential {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	cred := Credential{
		PrincipalID:  uuid.New(),
		TenantID:     uuid.New(),
		Email:        email,
		PasswordHash: string(hash),
		Status:       status,
	}
	require.NoError(t, repo.Insert(context.Background(), cred))
	return repo.byEmail[email]
}

func TestAuthenticate(t *testing.T) {
	repo := newMemoryRepository()
	svc := NewService(repo)
	seeded := seedCredential(t, repo, "maria@bar.example", "correct-horse", CredentialActive)

	cred, err := svc.Authenticate(context.Background(), "maria@bar.example", "correct-horse")
	require.NoError(t, err)
	assert.Equal(t, seeded.PrincipalID, cred.PrincipalID)
}

func TestAuthenticateWrongPassword(t *testing.T) {
	repo := newMemoryRepository()
	svc := NewService(repo)
	seedCredential(t, repo, "maria@bar.example", "correct-horse", CredentialActive)

	_, err := svc.Authenticate(context.Background(), "maria@bar.example", "wrong")
	assert.ErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestAuthenticateUnknownEmail(t *testing.T) {
	svc := NewService(newMemoryRepository())

	_, err := svc.Authenticate(context.Background(), "nobody@bar.example", "whatever")
	assert.ErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestAuthenticateSuspendedLooksLikeWrongPassword(t *testing.T) {
	repo := newMemoryRepository()
	svc := NewService(repo)
	seedCredential(t, repo, "maria@bar.example", "correct-horse", CredentialSuspended)

	_, err := svc.Authenticate(context.Background(), "maria@bar.example", "correct-horse")
	assert.ErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestIssueCreatesTemporaryCredential(t *testing.T) {
	repo := newMemoryRepository()
	svc := NewService(repo)
	principalID := uuid.New()

	cred, err := svc.Issue(context.Background(), uuid.New(), principalID, "novo@bar.example")
	require.NoError(t, err)
	assert.Equal(t, "novo@bar.example", cred.Email)
	assert.NotEmpty(t, cred.Password)

	stored := repo.byPrincipal[principalID]
	require.NotNil(t, stored)
	assert.True(t, stored.Temporary)
	assert.Equal(t, CredentialActive, stored.Status)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte(cred.Password)))
}

func TestIssueDuplicateFails(t *testing.T) {
	repo := newMemoryRepository()
	svc := NewService(repo)
	principalID := uuid.New()

	_, err := svc.Issue(context.Background(), uuid.New(), principalID, "novo@bar.example")
	require.NoError(t, err)

	_, err = svc.Issue(context.Background(), uuid.New(), principalID, "novo@bar.example")
	assert.ErrorIs(t, err, shared.ErrAlreadyCredentialed)
}

func TestSuspendReinstateRoundTrip(t *testing.T) {
	repo := newMemoryRepository()
	svc := NewService(repo)
	seeded := seedCredential(t, repo, "maria@bar.example", "correct-horse", CredentialActive)

	require.NoError(t, svc.Suspend(context.Background(), seeded.PrincipalID))
	_, err := svc.Authenticate(context.Background(), "maria@bar.example", "correct-horse")
	assert.ErrorIs(t, err, shared.ErrInvalidCredentials)

	require.NoError(t, svc.Reinstate(context.Background(), seeded.PrincipalID))
	_, err = svc.Authenticate(context.Background(), "maria@bar.example", "correct-horse")
	assert.NoError(t, err)
}

func TestChangePasswordClearsTemporaryFlag(t *testing.T) {
	repo := newMemoryRepository()
	svc := NewService(repo)
	principalID := uuid.New()

	issued, err := svc.Issue(context.Background(), uuid.New(), principalID, "novo@bar.example")
	require.NoError(t, err)

	require.NoError(t, svc.ChangePassword(context.Background(), principalID, "my-own-password"))

	stored := repo.byPrincipal[principalID]
	assert.False(t, stored.Temporary)
	assert.Error(t, bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte(issued.Password)))
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("my-own-password")))
}

func TestRevokeIsIdempotent(t *testing.T) {
	repo := newMemoryRepository()
	svc := NewService(repo)
	seeded := seedCredential(t, repo, "maria@bar.example", "correct-horse", CredentialActive)

	require.NoError(t, svc.Revoke(context.Background(), seeded.PrincipalID))
	require.NoError(t, svc.Revoke(context.Background(), seeded.PrincipalID))

	_, err := svc.Authenticate(context.Background(), "maria@bar.example", "correct-horse")
	assert.ErrorIs(t, err, shared.ErrInvalidCredentials)
}
