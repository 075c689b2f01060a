package jobs

import (
	"context"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
)

// RunRevocationSweep re-aligns credentials and role assignments with the
// access state stored on staff records. Deactivated employees must never
// keep an active credential or assignment, even if an earlier suspension
// failed halfway.
func RunRevocationSweep(ctx context.Context, pool *pgxpool.Pool, logger *slog.Logger) error {
	creds, err := pool.Exec(ctx,
		`UPDATE credentials c
		    SET status = 'suspended', updated_at = NOW()
		   FROM staff_members s
		  WHERE s.principal_id = c.principal_id
		    AND s.tenant_id = c.tenant_id
		    AND s.access_state = 'deactivated'
		    AND c.status = 'active'`)
	if err != nil {
		return err
	}

	assignments, err := pool.Exec(ctx,
		`UPDATE role_assignments ra
		    SET active = FALSE, updated_at = NOW()
		   FROM staff_members s
		  WHERE s.principal_id = ra.principal_id
		    AND s.tenant_id = ra.tenant_id
		    AND s.access_state = 'deactivated'
		    AND ra.active`)
	if err != nil {
		return err
	}

	if logger != nil {
		logger.Info("revocation sweep executed",
			slog.String("job", "revocation_sweep"),
			slog.Int64("credentials_suspended", creds.RowsAffected()),
			slog.Int64("assignments_deactivated", assignments.RowsAffected()))
	}
	return nil
}
