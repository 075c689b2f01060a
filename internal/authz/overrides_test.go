package authz

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/comanda-pos/comanda/internal/shared"
)

type opCounter struct {
	ops []string
}

func (o *opCounter) ObserveOverrideWrite(op string) {
	o.ops = append(o.ops, op)
}

func newTestOverrideService(t *testing.T, store OverrideStore) (*OverrideService, *recordingAuditor, *opCounter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	lock := shared.NewKeyedLock(client, time.Minute)
	auditor := &recordingAuditor{}
	counter := &opCounter{}
	return NewOverrideService(store, lock, auditor, slog.Default(), counter), auditor, counter, mr
}

func testActor() Identity {
	return Identity{PrincipalID: uuid.New(), TenantID: uuid.New(), Role: RoleAdministrator}
}

func TestSetModuleOverrideRejectsUnknownModule(t *testing.T) {
	svc, auditor, _, _ := newTestOverrideService(t, newFakeOverrideStore())

	err := svc.SetModuleOverride(context.Background(), testActor(), uuid.New(), uuid.New(), Module("time-travel"), Cells{View: true})
	assert.ErrorIs(t, err, shared.ErrValidation)
	assert.Empty(t, auditor.logs)
}

func TestSetModuleOverrideWritesAndAudits(t *testing.T) {
	store := newFakeOverrideStore()
	svc, auditor, counter, _ := newTestOverrideService(t, store)
	tenantID, principalID := uuid.New(), uuid.New()

	err := svc.SetModuleOverride(context.Background(), testActor(), tenantID, principalID, ModuleReporting, Cells{View: true, Delete: true})
	require.NoError(t, err)

	rows, err := store.FetchOverrides(context.Background(), tenantID, principalID)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, Cells{View: true, Delete: true}, rows[0].Cells)

	require.Len(t, auditor.logs, 1)
	assert.Equal(t, shared.AuditOverrideReplaced, auditor.logs[0].Action)
	assert.Equal(t, []string{"replace"}, counter.ops)
}

func TestApplyRolePresetSnapshotsEveryTemplateModule(t *testing.T) {
	store := newFakeOverrideStore()
	svc, _, counter, _ := newTestOverrideService(t, store)
	tenantID, principalID := uuid.New(), uuid.New()

	err := svc.ApplyRolePreset(context.Background(), testActor(), tenantID, principalID, RoleCashier)
	require.NoError(t, err)

	rows, err := store.FetchOverrides(context.Background(), tenantID, principalID)
	require.NoError(t, err)
	assert.Len(t, rows, len(RoleDefaults(RoleCashier)))
	assert.Equal(t, []string{"preset"}, counter.ops)
}

func TestApplyRolePresetRejectsUnknownRole(t *testing.T) {
	svc, _, _, _ := newTestOverrideService(t, newFakeOverrideStore())

	err := svc.ApplyRolePreset(context.Background(), testActor(), uuid.New(), uuid.New(), Role("wizard"))
	assert.ErrorIs(t, err, shared.ErrValidation)
}

func TestClearModuleOverrideIsIdempotent(t *testing.T) {
	store := newFakeOverrideStore()
	svc, auditor, _, _ := newTestOverrideService(t, store)
	tenantID, principalID := uuid.New(), uuid.New()

	require.NoError(t, svc.SetModuleOverride(context.Background(), testActor(), tenantID, principalID, ModuleSettings, Cells{View: true}))
	require.NoError(t, svc.ClearModuleOverride(context.Background(), testActor(), tenantID, principalID, ModuleSettings))
	require.NoError(t, svc.ClearModuleOverride(context.Background(), testActor(), tenantID, principalID, ModuleSettings))

	rows, err := store.FetchOverrides(context.Background(), tenantID, principalID)
	require.NoError(t, err)
	assert.Empty(t, rows)
	assert.Equal(t, shared.AuditOverrideCleared, auditor.logs[len(auditor.logs)-1].Action)
}

func TestMutationsBlockedWhileLeaseHeld(t *testing.T) {
	svc, _, _, mr := newTestOverrideService(t, newFakeOverrideStore())
	tenantID, principalID := uuid.New(), uuid.New()

	// Simulate another holder owning the lease.
	require.NoError(t, mr.Set(shared.PrincipalLockKey(tenantID.String(), principalID.String()), "other-holder"))

	err := svc.SetModuleOverride(context.Background(), testActor(), tenantID, principalID, ModuleSettings, Cells{View: true})
	assert.ErrorIs(t, err, shared.ErrLockBusy)

	err = svc.ClearAllOverrides(context.Background(), testActor(), tenantID, principalID)
	assert.ErrorIs(t, err, shared.ErrLockBusy)
}
