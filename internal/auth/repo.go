package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/comanda-pos/comanda/internal/shared"
)

// Repository defines persistence operations for credentials.
type Repository interface {
	FindByEmail(ctx context.Context, email string) (*Credential, error)
	Insert(ctx context.Context, cred Credential) error
	SetStatus(ctx context.Context, principalID uuid.UUID, status CredentialStatus) error
	SetPassword(ctx context.Context, principalID uuid.UUID, passwordHash string, temporary bool) error
	Delete(ctx context.Context, principalID uuid.UUID) error
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// FindByEmail fetches a credential by email.
func (r *PGRepository) FindByEmail(ctx context.Context, email string) (*Credential, error) {
	var cred Credential
	err := r.pool.QueryRow(ctx,
		`SELECT principal_id, tenant_id, email, password_hash, status, temporary, created_at, updated_at
		 FROM credentials WHERE email = $1`, email).
		Scan(&cred.PrincipalID, &cred.TenantID, &cred.Email, &cred.PasswordHash,
			&cred.Status, &cred.Temporary, &cred.CreatedAt, &cred.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, storeErr("find by email", err)
	}
	return &cred, nil
}

// Insert persists a newly issued credential.
func (r *PGRepository) Insert(ctx context.Context, cred Credential) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO credentials (principal_id, tenant_id, email, password_hash, status, temporary, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())`,
		cred.PrincipalID, cred.TenantID, cred.Email, cred.PasswordHash, cred.Status, cred.Temporary)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return shared.ErrAlreadyCredentialed
		}
		return storeErr("insert credential", err)
	}
	return nil
}

// SetStatus flips the credential's validity.
func (r *PGRepository) SetStatus(ctx context.Context, principalID uuid.UUID, status CredentialStatus) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE credentials SET status = $2, updated_at = NOW() WHERE principal_id = $1`,
		principalID, status)
	if err != nil {
		return storeErr("set status", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotCredentialed
	}
	return nil
}

// SetPassword replaces the password hash, clearing the temporary flag when
// the principal picks their own password.
func (r *PGRepository) SetPassword(ctx context.Context, principalID uuid.UUID, passwordHash string, temporary bool) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE credentials SET password_hash = $2, temporary = $3, updated_at = NOW() WHERE principal_id = $1`,
		principalID, passwordHash, temporary)
	if err != nil {
		return storeErr("set password", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotCredentialed
	}
	return nil
}

// Delete removes the credential entirely.
func (r *PGRepository) Delete(ctx context.Context, principalID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM credentials WHERE principal_id = $1`, principalID)
	if err != nil {
		return storeErr("delete credential", err)
	}
	return nil
}

func storeErr(op string, err error) error {
	return fmt.Errorf("auth: %s: %w: %v", op, shared.ErrStoreUnavailable, err)
}

var _ Repository = (*PGRepository)(nil)
