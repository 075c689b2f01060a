package staff

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/comanda-pos/comanda/internal/authz"
	"github.com/comanda-pos/comanda/internal/shared"
)

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const employeeColumns = `id, tenant_id, COALESCE(principal_id, '00000000-0000-0000-0000-000000000000'::uuid), name, email, phone, job_title, access_state, created_at, updated_at`

// ListEmployees returns all staff records for a tenant ordered by name.
func (r *PGRepository) ListEmployees(ctx context.Context, tenantID uuid.UUID) ([]Employee, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+employeeColumns+` FROM staff_members WHERE tenant_id = $1 ORDER BY name`, tenantID)
	if err != nil {
		return nil, storeErr("list employees", err)
	}
	defer rows.Close()

	var out []Employee
	for rows.Next() {
		emp, err := scanEmployee(rows)
		if err != nil {
			return nil, storeErr("scan employee", err)
		}
		out = append(out, emp)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("iterate employees", err)
	}
	return out, nil
}

// GetEmployee fetches one staff record within the tenant.
func (r *PGRepository) GetEmployee(ctx context.Context, tenantID, employeeID uuid.UUID) (Employee, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+employeeColumns+` FROM staff_members WHERE tenant_id = $1 AND id = $2`, tenantID, employeeID)
	emp, err := scanEmployee(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Employee{}, shared.ErrNotFound
		}
		return Employee{}, storeErr("get employee", err)
	}
	return emp, nil
}

// CreateEmployee inserts a new staff record in the no_access state.
func (r *PGRepository) CreateEmployee(ctx context.Context, emp Employee) (Employee, error) {
	if emp.ID == uuid.Nil {
		emp.ID = uuid.New()
	}
	emp.AccessState = StateNoAccess
	err := r.pool.QueryRow(ctx,
		`INSERT INTO staff_members (id, tenant_id, name, email, phone, job_title, access_state, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
		 RETURNING created_at, updated_at`,
		emp.ID, emp.TenantID, emp.Name, emp.Email, emp.Phone, emp.JobTitle, emp.AccessState).
		Scan(&emp.CreatedAt, &emp.UpdatedAt)
	if err != nil {
		return Employee{}, storeErr("create employee", err)
	}
	return emp, nil
}

// BindPrincipal binds the principal id and sets the access state atomically.
func (r *PGRepository) BindPrincipal(ctx context.Context, tenantID, employeeID, principalID uuid.UUID, state AccessState) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE staff_members SET principal_id = $3, access_state = $4, updated_at = NOW()
		 WHERE tenant_id = $1 AND id = $2`,
		tenantID, employeeID, principalID, state)
	if err != nil {
		return storeErr("bind principal", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// SetAccessState updates the record's access state.
func (r *PGRepository) SetAccessState(ctx context.Context, tenantID, employeeID uuid.UUID, state AccessState) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE staff_members SET access_state = $3, updated_at = NOW()
		 WHERE tenant_id = $1 AND id = $2`,
		tenantID, employeeID, state)
	if err != nil {
		return storeErr("set access state", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// DeleteEmployee hard-deletes the staff record.
func (r *PGRepository) DeleteEmployee(ctx context.Context, tenantID, employeeID uuid.UUID) error {
	_, err := r.pool.Exec(ctx,
		`DELETE FROM staff_members WHERE tenant_id = $1 AND id = $2`, tenantID, employeeID)
	if err != nil {
		return storeErr("delete employee", err)
	}
	return nil
}

// CreateAssignment inserts an active role assignment for the principal.
func (r *PGRepository) CreateAssignment(ctx context.Context, tenantID, principalID uuid.UUID, role authz.Role) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO role_assignments (tenant_id, principal_id, role, active, learned, created_at, updated_at)
		 VALUES ($1, $2, $3, TRUE, FALSE, NOW(), NOW())`,
		tenantID, principalID, string(role))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return shared.ErrAlreadyCredentialed
		}
		return storeErr("create assignment", err)
	}
	return nil
}

// SetAssignmentActive flips the assignment's active flag. The row is kept for
// audit continuity; it is never hard-deleted on suspension.
func (r *PGRepository) SetAssignmentActive(ctx context.Context, tenantID, principalID uuid.UUID, active bool) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE role_assignments SET active = $3, updated_at = NOW()
		 WHERE tenant_id = $1 AND principal_id = $2`,
		tenantID, principalID, active)
	if err != nil {
		return storeErr("set assignment active", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotCredentialed
	}
	return nil
}

// DeleteAssignment hard-deletes the assignment. Used only by removal.
func (r *PGRepository) DeleteAssignment(ctx context.Context, tenantID, principalID uuid.UUID) error {
	_, err := r.pool.Exec(ctx,
		`DELETE FROM role_assignments WHERE tenant_id = $1 AND principal_id = $2`, tenantID, principalID)
	if err != nil {
		return storeErr("delete assignment", err)
	}
	return nil
}

// PrincipalProfile implements authz.Directory: the resolver's minimal view.
func (r *PGRepository) PrincipalProfile(ctx context.Context, tenantID, principalID uuid.UUID) (authz.Profile, error) {
	var jobTitle string
	var state string
	err := r.pool.QueryRow(ctx,
		`SELECT job_title, access_state FROM staff_members
		 WHERE tenant_id = $1 AND principal_id = $2`, tenantID, principalID).
		Scan(&jobTitle, &state)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return authz.Profile{}, shared.ErrNotFound
		}
		return authz.Profile{}, storeErr("principal profile", err)
	}
	return authz.Profile{
		JobTitle:    jobTitle,
		Deactivated: AccessState(state) == StateDeactivated,
	}, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEmployee(row rowScanner) (Employee, error) {
	var emp Employee
	err := row.Scan(
		&emp.ID, &emp.TenantID, &emp.PrincipalID,
		&emp.Name, &emp.Email, &emp.Phone, &emp.JobTitle,
		&emp.AccessState, &emp.CreatedAt, &emp.UpdatedAt,
	)
	return emp, err
}

func storeErr(op string, err error) error {
	return fmt.Errorf("staff: %s: %w: %v", op, shared.ErrStoreUnavailable, err)
}

var (
	_ Repository      = (*PGRepository)(nil)
	_ authz.Directory = (*PGRepository)(nil)
)
