package jobs

import (
	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskRevocationSweep re-checks that deactivated staff cannot log in.
	TaskRevocationSweep = "staff:revocation_sweep"
	// TaskMappingCleanup drops learned role mappings and overrides whose
	// staff records are gone.
	TaskMappingCleanup = "authz:mapping_cleanup"
	// TaskAuditCleanup enforces the audit log retention window.
	TaskAuditCleanup = "audit:cleanup"
)

// NewRevocationSweepTask constructs the sweep task.
func NewRevocationSweepTask() *asynq.Task {
	return asynq.NewTask(TaskRevocationSweep, nil)
}

// NewMappingCleanupTask constructs the mapping cleanup task.
func NewMappingCleanupTask() *asynq.Task {
	return asynq.NewTask(TaskMappingCleanup, nil)
}

// NewAuditCleanupTask constructs the audit retention task.
func NewAuditCleanupTask() *asynq.Task {
	return asynq.NewTask(TaskAuditCleanup, nil)
}
