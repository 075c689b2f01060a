package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/comanda-pos/comanda/internal/shared"
)

// RunAuditCleanup removes audit entries older than the retention window.
func RunAuditCleanup(ctx context.Context, audit *shared.AuditLogger, retention time.Duration, logger *slog.Logger) error {
	removed, err := audit.Cleanup(ctx, retention)
	if err != nil {
		return err
	}
	if logger != nil {
		logger.Info("audit cleanup executed",
			slog.String("job", "audit_cleanup"),
			slog.Int64("entries_removed", removed))
	}
	return nil
}
