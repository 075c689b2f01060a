package authz

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/comanda-pos/comanda/internal/shared"
)

// LifecycleObserver counts override mutations.
type LifecycleObserver interface {
	ObserveOverrideWrite(op string)
}

// OverrideService is the write path for permission overrides. Mutations are
// serialized per (tenant, principal) through the keyed lease so concurrent
// edits and preset applications cannot interleave.
type OverrideService struct {
	store    OverrideStore
	lock     *shared.KeyedLock
	audit    SecurityAuditor
	logger   *slog.Logger
	observer LifecycleObserver
}

// NewOverrideService constructs an OverrideService.
func NewOverrideService(store OverrideStore, lock *shared.KeyedLock, audit SecurityAuditor, logger *slog.Logger, observer LifecycleObserver) *OverrideService {
	return &OverrideService{store: store, lock: lock, audit: audit, logger: logger, observer: observer}
}

// SetModuleOverride replaces the full five-action cell for one module.
func (s *OverrideService) SetModuleOverride(ctx context.Context, actor Identity, tenantID, principalID uuid.UUID, module Module, cells Cells) error {
	if !KnownModule(module) {
		return shared.ErrValidation
	}
	err := s.lock.WithLease(ctx, shared.PrincipalLockKey(tenantID.String(), principalID.String()), func(ctx context.Context) error {
		return s.store.ReplaceModuleOverride(ctx, tenantID, principalID, module, cells)
	})
	if err != nil {
		return err
	}
	s.observe("replace")
	s.record(ctx, actor, tenantID, principalID, shared.AuditOverrideReplaced, map[string]any{"module": string(module)})
	return nil
}

// ApplyRolePreset writes every module of the role's default template as an
// explicit override, snapshotting the preset onto the principal.
func (s *OverrideService) ApplyRolePreset(ctx context.Context, actor Identity, tenantID, principalID uuid.UUID, role Role) error {
	if !KnownRole(role) {
		return shared.ErrValidation
	}
	err := s.lock.WithLease(ctx, shared.PrincipalLockKey(tenantID.String(), principalID.String()), func(ctx context.Context) error {
		for module, cells := range RoleDefaults(role) {
			if err := s.store.ReplaceModuleOverride(ctx, tenantID, principalID, module, cells); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.observe("preset")
	s.record(ctx, actor, tenantID, principalID, shared.AuditOverrideReplaced, map[string]any{"preset": string(role)})
	return nil
}

// ClearModuleOverride reverts one module to its role default. Idempotent.
func (s *OverrideService) ClearModuleOverride(ctx context.Context, actor Identity, tenantID, principalID uuid.UUID, module Module) error {
	if !KnownModule(module) {
		return shared.ErrValidation
	}
	err := s.lock.WithLease(ctx, shared.PrincipalLockKey(tenantID.String(), principalID.String()), func(ctx context.Context) error {
		return s.store.ClearModuleOverride(ctx, tenantID, principalID, module)
	})
	if err != nil {
		return err
	}
	s.observe("clear-module")
	s.record(ctx, actor, tenantID, principalID, shared.AuditOverrideCleared, map[string]any{"module": string(module)})
	return nil
}

// ClearAllOverrides reverts the principal to pure role defaults. Idempotent.
func (s *OverrideService) ClearAllOverrides(ctx context.Context, actor Identity, tenantID, principalID uuid.UUID) error {
	err := s.lock.WithLease(ctx, shared.PrincipalLockKey(tenantID.String(), principalID.String()), func(ctx context.Context) error {
		return s.store.ClearAllOverrides(ctx, tenantID, principalID)
	})
	if err != nil {
		return err
	}
	s.observe("clear-all")
	s.record(ctx, actor, tenantID, principalID, shared.AuditOverrideCleared, nil)
	return nil
}

func (s *OverrideService) observe(op string) {
	if s.observer != nil {
		s.observer.ObserveOverrideWrite(op)
	}
}

func (s *OverrideService) record(ctx context.Context, actor Identity, tenantID, principalID uuid.UUID, action string, meta map[string]any) {
	if s.audit == nil {
		return
	}
	err := s.audit.Record(ctx, shared.AuditLog{
		TenantID: tenantID.String(),
		ActorID:  actor.PrincipalID.String(),
		Action:   action,
		Entity:   "permission_override",
		EntityID: principalID.String(),
		Meta:     meta,
	})
	if err != nil && s.logger != nil {
		s.logger.Warn("audit override mutation", slog.Any("error", err))
	}
}
