package jobs

import (
	"context"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/comanda-pos/comanda/internal/platform/db"
)

// RunMappingCleanup drops learned role assignments and permission overrides
// that no longer point at a staff record. Removal clears these rows inline,
// so leftovers indicate an interrupted removal. Both deletes run in one
// transaction so a crash cannot leave an orphaned override without its
// orphaned assignment.
func RunMappingCleanup(ctx context.Context, pool *pgxpool.Pool, logger *slog.Logger) error {
	var assignments, overrides int64
	err := db.WithTx(ctx, pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx,
			`DELETE FROM role_assignments ra
			  WHERE ra.learned
			    AND NOT EXISTS (
			        SELECT 1 FROM staff_members s
			         WHERE s.principal_id = ra.principal_id
			           AND s.tenant_id = ra.tenant_id)`)
		if err != nil {
			return err
		}
		assignments = tag.RowsAffected()

		tag, err = tx.Exec(ctx,
			`DELETE FROM permission_overrides po
			  WHERE NOT EXISTS (
			        SELECT 1 FROM staff_members s
			         WHERE s.principal_id = po.principal_id
			           AND s.tenant_id = po.tenant_id)`)
		if err != nil {
			return err
		}
		overrides = tag.RowsAffected()
		return nil
	})
	if err != nil {
		return err
	}

	if logger != nil {
		logger.Info("mapping cleanup executed",
			slog.String("job", "mapping_cleanup"),
			slog.Int64("assignments_removed", assignments),
			slog.Int64("overrides_removed", overrides))
	}
	return nil
}
