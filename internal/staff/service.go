package staff

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/comanda-pos/comanda/internal/authz"
	"github.com/comanda-pos/comanda/internal/shared"
)

// TransitionObserver counts lifecycle transitions.
type TransitionObserver interface {
	ObserveTransition(transition string)
}

// Service drives the employee access lifecycle. Every transition is
// serialized per (tenant, employee) through the keyed lease, and any step
// that partially completes attempts a compensating rollback so a principal
// is never left with valid credentials but no role assignment.
type Service struct {
	repo      Repository
	overrides authz.OverrideStore
	issuer    CredentialIssuer
	sessions  SessionRevoker
	lock      *shared.KeyedLock
	audit     *shared.AuditLogger
	logger    *slog.Logger
	observer  TransitionObserver
}

// NewService constructs a Service.
func NewService(repo Repository, overrides authz.OverrideStore, issuer CredentialIssuer, sessions SessionRevoker, lock *shared.KeyedLock, audit *shared.AuditLogger, logger *slog.Logger, observer TransitionObserver) *Service {
	return &Service{
		repo:      repo,
		overrides: overrides,
		issuer:    issuer,
		sessions:  sessions,
		lock:      lock,
		audit:     audit,
		logger:    logger,
		observer:  observer,
	}
}

// ListEmployees returns the tenant's staff records.
func (s *Service) ListEmployees(ctx context.Context, tenantID uuid.UUID) ([]Employee, error) {
	return s.repo.ListEmployees(ctx, tenantID)
}

// GetEmployee fetches one staff record.
func (s *Service) GetEmployee(ctx context.Context, tenantID, employeeID uuid.UUID) (Employee, error) {
	return s.repo.GetEmployee(ctx, tenantID, employeeID)
}

// CreateEmployee registers a staff record without system access.
func (s *Service) CreateEmployee(ctx context.Context, emp Employee) (Employee, error) {
	return s.repo.CreateEmployee(ctx, emp)
}

// GrantAccess moves no_access -> active: issues a credential, creates the
// role assignment (role derived from the job title) and binds the principal.
// Overrides start empty so the principal inherits pure role defaults.
func (s *Service) GrantAccess(ctx context.Context, actor authz.Identity, tenantID, employeeID uuid.UUID) (TemporaryCredential, error) {
	var cred TemporaryCredential
	err := s.withEmployeeLease(ctx, tenantID, employeeID, func(ctx context.Context) error {
		emp, err := s.repo.GetEmployee(ctx, tenantID, employeeID)
		if err != nil {
			return err
		}
		if emp.AccessState != StateNoAccess {
			return shared.ErrAlreadyCredentialed
		}

		principalID := uuid.New()
		issued, err := s.issuer.Issue(ctx, tenantID, principalID, emp.Email)
		if err != nil {
			return fmt.Errorf("staff: issue credential: %w", err)
		}

		role := authz.RoleForTitle(emp.JobTitle)
		if err := s.repo.CreateAssignment(ctx, tenantID, principalID, role); err != nil {
			return s.compensateGrant(ctx, principalID, err, nil)
		}
		if err := s.repo.BindPrincipal(ctx, tenantID, employeeID, principalID, StateActive); err != nil {
			return s.compensateGrant(ctx, principalID, err, func(ctx context.Context) error {
				return s.repo.DeleteAssignment(ctx, tenantID, principalID)
			})
		}

		cred = issued
		s.observe("grant")
		s.record(ctx, actor, tenantID, employeeID, shared.AuditAccessGranted, map[string]any{
			"principal_id": principalID.String(),
			"role":         string(role),
		})
		return nil
	})
	return cred, err
}

// Suspend moves active -> deactivated. Idempotent: suspending an already
// deactivated record is a no-op success. Overrides are kept so reactivation
// restores the exact prior permissions.
func (s *Service) Suspend(ctx context.Context, actor authz.Identity, tenantID, employeeID uuid.UUID) error {
	return s.withEmployeeLease(ctx, tenantID, employeeID, func(ctx context.Context) error {
		emp, err := s.repo.GetEmployee(ctx, tenantID, employeeID)
		if err != nil {
			return err
		}
		switch emp.AccessState {
		case StateDeactivated:
			return nil
		case StateNoAccess:
			return shared.ErrNotCredentialed
		}

		if err := s.repo.SetAssignmentActive(ctx, tenantID, emp.PrincipalID, false); err != nil {
			return err
		}
		if err := s.issuer.Suspend(ctx, emp.PrincipalID); err != nil {
			return fmt.Errorf("staff: suspend credential: %w", err)
		}
		if err := s.repo.SetAccessState(ctx, tenantID, employeeID, StateDeactivated); err != nil {
			return err
		}
		s.revokeSessions(ctx, emp.PrincipalID)
		s.observe("suspend")
		s.record(ctx, actor, tenantID, employeeID, shared.AuditAccessSuspended, nil)
		return nil
	})
}

// Reactivate moves deactivated -> active. Overrides from before suspension
// apply unchanged. Reactivating an active record is a no-op success.
func (s *Service) Reactivate(ctx context.Context, actor authz.Identity, tenantID, employeeID uuid.UUID) error {
	return s.withEmployeeLease(ctx, tenantID, employeeID, func(ctx context.Context) error {
		emp, err := s.repo.GetEmployee(ctx, tenantID, employeeID)
		if err != nil {
			return err
		}
		switch emp.AccessState {
		case StateActive:
			return nil
		case StateNoAccess:
			return shared.ErrNotCredentialed
		}

		if err := s.repo.SetAssignmentActive(ctx, tenantID, emp.PrincipalID, true); err != nil {
			return err
		}
		if err := s.issuer.Reinstate(ctx, emp.PrincipalID); err != nil {
			return fmt.Errorf("staff: reinstate credential: %w", err)
		}
		if err := s.repo.SetAccessState(ctx, tenantID, employeeID, StateActive); err != nil {
			return err
		}
		s.observe("reactivate")
		s.record(ctx, actor, tenantID, employeeID, shared.AuditAccessReactivated, nil)
		return nil
	})
}

// Remove hard-deletes the staff record, its role assignment and all its
// overrides, and revokes the credential if present. Irreversible; the caller
// must supply the literal confirmation string.
func (s *Service) Remove(ctx context.Context, actor authz.Identity, tenantID, employeeID uuid.UUID, confirmation string) error {
	if confirmation != RemovalConfirmation(employeeID) {
		return shared.ErrConfirmationMismatch
	}
	return s.withEmployeeLease(ctx, tenantID, employeeID, func(ctx context.Context) error {
		emp, err := s.repo.GetEmployee(ctx, tenantID, employeeID)
		if err != nil {
			return err
		}

		var failures []error
		if emp.Credentialed() {
			if err := s.issuer.Revoke(ctx, emp.PrincipalID); err != nil {
				failures = append(failures, fmt.Errorf("revoke credential: %w", err))
			}
			if err := s.overrides.ClearAllOverrides(ctx, tenantID, emp.PrincipalID); err != nil {
				failures = append(failures, fmt.Errorf("clear overrides: %w", err))
			}
			if err := s.repo.DeleteAssignment(ctx, tenantID, emp.PrincipalID); err != nil {
				failures = append(failures, fmt.Errorf("delete assignment: %w", err))
			}
			s.revokeSessions(ctx, emp.PrincipalID)
		}
		if len(failures) > 0 {
			// Leave the record in place: a half-removed employee must
			// stay addressable so the operator can retry.
			return fmt.Errorf("staff: remove partially failed: %w", errors.Join(failures...))
		}
		if err := s.repo.DeleteEmployee(ctx, tenantID, employeeID); err != nil {
			return err
		}
		s.observe("remove")
		s.record(ctx, actor, tenantID, employeeID, shared.AuditAccessRemoved, nil)
		return nil
	})
}

// compensateGrant rolls back a partially completed grant and reports a
// single aggregated error.
func (s *Service) compensateGrant(ctx context.Context, principalID uuid.UUID, cause error, extra func(context.Context) error) error {
	failures := []error{cause}
	if extra != nil {
		if err := extra(ctx); err != nil {
			failures = append(failures, fmt.Errorf("rollback assignment: %w", err))
		}
	}
	if err := s.issuer.Revoke(ctx, principalID); err != nil {
		failures = append(failures, fmt.Errorf("rollback credential: %w", err))
	}
	return fmt.Errorf("staff: grant rolled back: %w", errors.Join(failures...))
}

func (s *Service) withEmployeeLease(ctx context.Context, tenantID, employeeID uuid.UUID, fn func(context.Context) error) error {
	return s.lock.WithLease(ctx, shared.PrincipalLockKey(tenantID.String(), employeeID.String()), fn)
}

func (s *Service) revokeSessions(ctx context.Context, principalID uuid.UUID) {
	if s.sessions == nil {
		return
	}
	if err := s.sessions.Revoke(ctx, principalID.String()); err != nil && s.logger != nil {
		s.logger.Warn("revoke sessions", slog.String("principal_id", principalID.String()), slog.Any("error", err))
	}
}

func (s *Service) observe(transition string) {
	if s.observer != nil {
		s.observer.ObserveTransition(transition)
	}
}

func (s *Service) record(ctx context.Context, actor authz.Identity, tenantID, employeeID uuid.UUID, action string, meta map[string]any) {
	if s.audit == nil {
		return
	}
	err := s.audit.Record(ctx, shared.AuditLog{
		TenantID: tenantID.String(),
		ActorID:  actor.PrincipalID.String(),
		Action:   action,
		Entity:   "staff_member",
		EntityID: employeeID.String(),
		Meta:     meta,
	})
	if err != nil && s.logger != nil {
		s.logger.Warn("audit lifecycle transition", slog.Any("error", err))
	}
}
