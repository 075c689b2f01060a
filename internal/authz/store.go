package authz

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/comanda-pos/comanda/internal/shared"
)

// SecurityAuditor records tenant-boundary violations. *shared.AuditLogger
// satisfies it.
type SecurityAuditor interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// SecurityObserver counts refused cross-tenant accesses.
type SecurityObserver interface {
	ObserveTenantMismatch()
}

// GuardedOverrideStore wraps an OverrideStore with the tenant-boundary check:
// any call whose tenant argument does not match the target principal's actual
// tenant fails with shared.ErrTenantMismatch, is logged as a security event,
// and never reaches the underlying store. This is the last line of defense
// against cross-tenant data leakage.
type GuardedOverrideStore struct {
	inner    OverrideStore
	tenants  TenantLookup
	audit    SecurityAuditor
	logger   *slog.Logger
	observer SecurityObserver
}

// NewGuardedOverrideStore constructs the guard. The observer may be nil.
func NewGuardedOverrideStore(inner OverrideStore, tenants TenantLookup, audit SecurityAuditor, logger *slog.Logger, observer SecurityObserver) *GuardedOverrideStore {
	return &GuardedOverrideStore{inner: inner, tenants: tenants, audit: audit, logger: logger, observer: observer}
}

// FetchOverrides verifies tenant ownership before reading.
func (g *GuardedOverrideStore) FetchOverrides(ctx context.Context, tenantID, principalID uuid.UUID) ([]OverrideRow, error) {
	if err := g.verify(ctx, tenantID, principalID, "fetch"); err != nil {
		return nil, err
	}
	return g.inner.FetchOverrides(ctx, tenantID, principalID)
}

// ReplaceModuleOverride verifies tenant ownership before writing.
func (g *GuardedOverrideStore) ReplaceModuleOverride(ctx context.Context, tenantID, principalID uuid.UUID, module Module, cells Cells) error {
	if err := g.verify(ctx, tenantID, principalID, "replace"); err != nil {
		return err
	}
	return g.inner.ReplaceModuleOverride(ctx, tenantID, principalID, module, cells)
}

// ClearModuleOverride verifies tenant ownership before deleting.
func (g *GuardedOverrideStore) ClearModuleOverride(ctx context.Context, tenantID, principalID uuid.UUID, module Module) error {
	if err := g.verify(ctx, tenantID, principalID, "clear-module"); err != nil {
		return err
	}
	return g.inner.ClearModuleOverride(ctx, tenantID, principalID, module)
}

// ClearAllOverrides verifies tenant ownership before deleting.
func (g *GuardedOverrideStore) ClearAllOverrides(ctx context.Context, tenantID, principalID uuid.UUID) error {
	if err := g.verify(ctx, tenantID, principalID, "clear-all"); err != nil {
		return err
	}
	return g.inner.ClearAllOverrides(ctx, tenantID, principalID)
}

func (g *GuardedOverrideStore) verify(ctx context.Context, tenantID, principalID uuid.UUID, op string) error {
	actual, err := g.tenants.PrincipalTenant(ctx, principalID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			// Unknown principal: nothing to leak, let the scoped query
			// return its empty result or no-op.
			return nil
		}
		return err
	}
	if actual == tenantID {
		return nil
	}
	if g.logger != nil {
		g.logger.Error("cross-tenant override access refused",
			slog.String("op", op),
			slog.String("principal_id", principalID.String()),
			slog.String("claimed_tenant", tenantID.String()))
	}
	if g.audit != nil {
		_ = g.audit.Record(ctx, shared.AuditLog{
			TenantID: actual.String(),
			Action:   shared.AuditTenantMismatch,
			Entity:   "permission_override",
			EntityID: principalID.String(),
			Meta: map[string]any{
				"op":             op,
				"claimed_tenant": tenantID.String(),
			},
		})
	}
	if g.observer != nil {
		g.observer.ObserveTenantMismatch()
	}
	return fmt.Errorf("authz: override %s: %w", op, shared.ErrTenantMismatch)
}

var _ OverrideStore = (*GuardedOverrideStore)(nil)
