package authz

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/comanda-pos/comanda/internal/shared"
)

// PGStore implements OverrideStore, AssignmentStore and TenantLookup on
// PostgreSQL. All queries filter by the (tenant_id, principal_id) compound
// key; nothing here trusts a bare principal id.
type PGStore struct {
	pool *pgxpool.Pool
}

// NewPGStore constructs a PGStore.
func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

// FetchOverrides returns the principal's override rows. No rows is a valid
// empty result, not an error.
func (s *PGStore) FetchOverrides(ctx context.Context, tenantID, principalID uuid.UUID) ([]OverrideRow, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT tenant_id, principal_id, module, can_view, can_create, can_edit, can_delete, can_administer, updated_at
		 FROM permission_overrides
		 WHERE tenant_id = $1 AND principal_id = $2
		 ORDER BY module`, tenantID, principalID)
	if err != nil {
		return nil, storeErr("fetch overrides", err)
	}
	defer rows.Close()

	var out []OverrideRow
	for rows.Next() {
		var row OverrideRow
		if err := rows.Scan(
			&row.TenantID, &row.PrincipalID, &row.Module,
			&row.Cells.View, &row.Cells.Create, &row.Cells.Edit, &row.Cells.Delete, &row.Cells.Administer,
			&row.UpdatedAt,
		); err != nil {
			return nil, storeErr("scan override", err)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("iterate overrides", err)
	}
	return out, nil
}

// ReplaceModuleOverride upserts the full five-action cell for one module.
func (s *PGStore) ReplaceModuleOverride(ctx context.Context, tenantID, principalID uuid.UUID, module Module, cells Cells) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO permission_overrides
		   (tenant_id, principal_id, module, can_view, can_create, can_edit, can_delete, can_administer, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
		 ON CONFLICT (tenant_id, principal_id, module) DO UPDATE SET
		   can_view = EXCLUDED.can_view,
		   can_create = EXCLUDED.can_create,
		   can_edit = EXCLUDED.can_edit,
		   can_delete = EXCLUDED.can_delete,
		   can_administer = EXCLUDED.can_administer,
		   updated_at = NOW()`,
		tenantID, principalID, module,
		cells.View, cells.Create, cells.Edit, cells.Delete, cells.Administer)
	if err != nil {
		return storeErr("replace override", err)
	}
	return nil
}

// ClearModuleOverride deletes one module's override, reverting that module to
// the role default. Deleting an absent row is a no-op success.
func (s *PGStore) ClearModuleOverride(ctx context.Context, tenantID, principalID uuid.UUID, module Module) error {
	_, err := s.pool.Exec(ctx,
		`DELETE FROM permission_overrides WHERE tenant_id = $1 AND principal_id = $2 AND module = $3`,
		tenantID, principalID, module)
	if err != nil {
		return storeErr("clear module override", err)
	}
	return nil
}

// ClearAllOverrides deletes every override for the principal.
func (s *PGStore) ClearAllOverrides(ctx context.Context, tenantID, principalID uuid.UUID) error {
	_, err := s.pool.Exec(ctx,
		`DELETE FROM permission_overrides WHERE tenant_id = $1 AND principal_id = $2`,
		tenantID, principalID)
	if err != nil {
		return storeErr("clear overrides", err)
	}
	return nil
}

// CanonicalAssignment fetches the role-assignment record for a principal.
func (s *PGStore) CanonicalAssignment(ctx context.Context, tenantID, principalID uuid.UUID) (Assignment, error) {
	var a Assignment
	var role string
	err := s.pool.QueryRow(ctx,
		`SELECT tenant_id, principal_id, role, active, learned, created_at, updated_at
		 FROM role_assignments
		 WHERE tenant_id = $1 AND principal_id = $2`, tenantID, principalID).
		Scan(&a.TenantID, &a.PrincipalID, &role, &a.Active, &a.Learned, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Assignment{}, shared.ErrNotFound
		}
		return Assignment{}, storeErr("canonical assignment", err)
	}
	a.Role = Role(role)
	return a, nil
}

// SaveLearnedAssignment records a heuristically derived role. Insert-if-absent:
// an existing record with a concrete role always wins; a record whose role
// was never captured gets the learned role filled in so the canonical lookup
// short-circuits on the next resolution.
func (s *PGStore) SaveLearnedAssignment(ctx context.Context, tenantID, principalID uuid.UUID, role Role) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO role_assignments (tenant_id, principal_id, role, active, learned, created_at, updated_at)
		 VALUES ($1, $2, $3, TRUE, TRUE, NOW(), NOW())
		 ON CONFLICT (tenant_id, principal_id) DO UPDATE SET
		   role = EXCLUDED.role,
		   learned = TRUE,
		   updated_at = NOW()
		 WHERE role_assignments.role = ''`,
		tenantID, principalID, string(role))
	if err != nil {
		return storeErr("save learned assignment", err)
	}
	return nil
}

// PrincipalTenant returns the tenant that owns the principal's staff record.
func (s *PGStore) PrincipalTenant(ctx context.Context, principalID uuid.UUID) (uuid.UUID, error) {
	var tenantID uuid.UUID
	err := s.pool.QueryRow(ctx,
		`SELECT tenant_id FROM staff_members WHERE principal_id = $1`, principalID).Scan(&tenantID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return uuid.Nil, shared.ErrNotFound
		}
		return uuid.Nil, storeErr("principal tenant", err)
	}
	return tenantID, nil
}

func storeErr(op string, err error) error {
	return fmt.Errorf("authz: %s: %w: %v", op, shared.ErrStoreUnavailable, err)
}

var (
	_ OverrideStore   = (*PGStore)(nil)
	_ AssignmentStore = (*PGStore)(nil)
	_ TenantLookup    = (*PGStore)(nil)
)
