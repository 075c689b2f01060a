package authz

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/comanda-pos/comanda/internal/shared"
)

type fakeSessions struct {
	identity SessionIdentity
	err      error
}

func (f *fakeSessions) Validate(ctx context.Context, token string) (SessionIdentity, error) {
	if f.err != nil {
		return SessionIdentity{}, f.err
	}
	return f.identity, nil
}

type savedAssignment struct {
	tenantID    uuid.UUID
	principalID uuid.UUID
	role        Role
}

type fakeAssignments struct {
	canonical *Assignment
	fetchErr  error
	saveErr   error
	saved     []savedAssignment
}

func (f *fakeAssignments) CanonicalAssignment(ctx context.Context, tenantID, principalID uuid.UUID) (Assignment, error) {
	if f.fetchErr != nil {
		return Assignment{}, f.fetchErr
	}
	if f.canonical == nil {
		return Assignment{}, shared.ErrNotFound
	}
	return *f.canonical, nil
}

func (f *fakeAssignments) SaveLearnedAssignment(ctx context.Context, tenantID, principalID uuid.UUID, role Role) error {
	f.saved = append(f.saved, savedAssignment{tenantID: tenantID, principalID: principalID, role: role})
	return f.saveErr
}

type fakeDirectory struct {
	profile Profile
	err     error
}

func (f *fakeDirectory) PrincipalProfile(ctx context.Context, tenantID, principalID uuid.UUID) (Profile, error) {
	if f.err != nil {
		return Profile{}, f.err
	}
	return f.profile, nil
}

type recordingObserver struct {
	strategies []string
}

func (r *recordingObserver) ObserveResolution(strategy string) {
	r.strategies = append(r.strategies, strategy)
}

func newTestResolver(cfg ResolverConfig, sessions *fakeSessions, assignments *fakeAssignments, directory *fakeDirectory, observer *recordingObserver) *Resolver {
	var obs ResolutionObserver
	if observer != nil {
		obs = observer
	}
	return NewResolver(cfg, sessions, assignments, directory, slog.Default(), obs)
}

func testSessionIdentity(email string) SessionIdentity {
	return SessionIdentity{
		PrincipalID: uuid.New(),
		TenantID:    uuid.New(),
		Email:       email,
	}
}

func TestResolveSuperuserBeatsCanonical(t *testing.T) {
	sid := testSessionIdentity("owner@bar.example")
	sessions := &fakeSessions{identity: sid}
	assignments := &fakeAssignments{canonical: &Assignment{
		TenantID:    sid.TenantID,
		PrincipalID: sid.PrincipalID,
		Role:        RoleServer,
		Active:      true,
	}}
	observer := &recordingObserver{}
	r := newTestResolver(ResolverConfig{SuperuserEmail: "owner@bar.example"}, sessions, assignments, &fakeDirectory{}, observer)

	identity, err := r.Resolve(context.Background(), "token")
	require.NoError(t, err)
	assert.Equal(t, RoleAdministrator, identity.Role)
	assert.Equal(t, []string{"superuser"}, observer.strategies)
	assert.Empty(t, assignments.saved, "superuser resolution must not be persisted")
}

func TestResolveAdminOverridePersists(t *testing.T) {
	sid := testSessionIdentity("Chefe@Bar.Example")
	sessions := &fakeSessions{identity: sid}
	assignments := &fakeAssignments{}
	observer := &recordingObserver{}
	cfg := ResolverConfig{AdminOverrides: map[string]Role{"chefe@bar.example": RoleManager}}
	r := newTestResolver(cfg, sessions, assignments, &fakeDirectory{}, observer)

	identity, err := r.Resolve(context.Background(), "token")
	require.NoError(t, err)
	assert.Equal(t, RoleManager, identity.Role)
	assert.Equal(t, []string{"admin_override"}, observer.strategies)
	require.Len(t, assignments.saved, 1)
	assert.Equal(t, RoleManager, assignments.saved[0].role)
	assert.Equal(t, sid.PrincipalID, assignments.saved[0].principalID)
}

func TestResolveCanonicalWinsOverTitle(t *testing.T) {
	sid := testSessionIdentity("maria@bar.example")
	sessions := &fakeSessions{identity: sid}
	assignments := &fakeAssignments{canonical: &Assignment{Role: RoleCashier, Active: true}}
	observer := &recordingObserver{}
	r := newTestResolver(ResolverConfig{}, sessions, assignments, &fakeDirectory{profile: Profile{JobTitle: "Gerente"}}, observer)

	identity, err := r.Resolve(context.Background(), "token")
	require.NoError(t, err)
	assert.Equal(t, RoleCashier, identity.Role)
	assert.Equal(t, []string{"canonical"}, observer.strategies)
	assert.Empty(t, assignments.saved)
}

func TestResolveTitleFillsEmptyRoleCanonical(t *testing.T) {
	sid := testSessionIdentity("maria@bar.example")
	sessions := &fakeSessions{identity: sid}
	assignments := &fakeAssignments{canonical: &Assignment{Role: "", Active: true}}
	observer := &recordingObserver{}
	r := newTestResolver(ResolverConfig{}, sessions, assignments, &fakeDirectory{profile: Profile{JobTitle: "Gerente de Bar"}}, observer)

	identity, err := r.Resolve(context.Background(), "token")
	require.NoError(t, err)
	assert.Equal(t, RoleManager, identity.Role)
	assert.Equal(t, []string{"title_keyword"}, observer.strategies)
	require.Len(t, assignments.saved, 1)
	assert.Equal(t, RoleManager, assignments.saved[0].role)
}

func TestResolveEmailKeywordOnlyWithoutCanonical(t *testing.T) {
	sid := testSessionIdentity("cashier.nine@bar.example")
	sessions := &fakeSessions{identity: sid}
	assignments := &fakeAssignments{}
	observer := &recordingObserver{}
	r := newTestResolver(ResolverConfig{}, sessions, assignments, &fakeDirectory{}, observer)

	identity, err := r.Resolve(context.Background(), "token")
	require.NoError(t, err)
	assert.Equal(t, RoleCashier, identity.Role)
	assert.Equal(t, []string{"email_keyword"}, observer.strategies)
	require.Len(t, assignments.saved, 1)
}

func TestResolveTerminalDefault(t *testing.T) {
	sid := testSessionIdentity("joao@bar.example")
	sessions := &fakeSessions{identity: sid}
	assignments := &fakeAssignments{}
	observer := &recordingObserver{}
	r := newTestResolver(ResolverConfig{}, sessions, assignments, &fakeDirectory{profile: Profile{JobTitle: "Auxiliar"}}, observer)

	identity, err := r.Resolve(context.Background(), "token")
	require.NoError(t, err)
	assert.Equal(t, RoleStaff, identity.Role)
	assert.Equal(t, []string{"terminal_default"}, observer.strategies)
	assert.Empty(t, assignments.saved, "terminal default is never persisted")
}

func TestResolveRemovedPrincipalFailsAuthentication(t *testing.T) {
	sessions := &fakeSessions{identity: testSessionIdentity("ghost@bar.example")}
	r := newTestResolver(ResolverConfig{}, sessions, &fakeAssignments{}, &fakeDirectory{err: shared.ErrNotFound}, nil)

	_, err := r.Resolve(context.Background(), "token")
	require.Error(t, err)
	assert.ErrorIs(t, err, shared.ErrAuthentication)
}

func TestResolveDirectoryTransportFailurePropagates(t *testing.T) {
	sessions := &fakeSessions{identity: testSessionIdentity("maria@bar.example")}
	r := newTestResolver(ResolverConfig{}, sessions, &fakeAssignments{}, &fakeDirectory{err: shared.ErrStoreUnavailable}, nil)

	_, err := r.Resolve(context.Background(), "token")
	assert.ErrorIs(t, err, shared.ErrStoreUnavailable)
}

func TestResolveAssignmentTransportFailurePropagates(t *testing.T) {
	sessions := &fakeSessions{identity: testSessionIdentity("maria@bar.example")}
	assignments := &fakeAssignments{fetchErr: shared.ErrStoreUnavailable}
	r := newTestResolver(ResolverConfig{}, sessions, assignments, &fakeDirectory{}, nil)

	_, err := r.Resolve(context.Background(), "token")
	assert.ErrorIs(t, err, shared.ErrStoreUnavailable)
}

func TestResolveDeactivatedStates(t *testing.T) {
	t.Run("profile deactivated", func(t *testing.T) {
		sessions := &fakeSessions{identity: testSessionIdentity("maria@bar.example")}
		r := newTestResolver(ResolverConfig{}, sessions, &fakeAssignments{}, &fakeDirectory{profile: Profile{Deactivated: true}}, nil)

		identity, err := r.Resolve(context.Background(), "token")
		require.NoError(t, err)
		assert.Equal(t, PrincipalDeactivated, identity.State)
	})
	t.Run("inactive canonical assignment", func(t *testing.T) {
		sessions := &fakeSessions{identity: testSessionIdentity("maria@bar.example")}
		assignments := &fakeAssignments{canonical: &Assignment{Role: RoleCashier, Active: false}}
		r := newTestResolver(ResolverConfig{}, sessions, assignments, &fakeDirectory{}, nil)

		identity, err := r.Resolve(context.Background(), "token")
		require.NoError(t, err)
		assert.Equal(t, PrincipalDeactivated, identity.State)
		assert.Equal(t, RoleCashier, identity.Role)
	})
}

func TestResolvePersistFailureIsNotFatal(t *testing.T) {
	sessions := &fakeSessions{identity: testSessionIdentity("gerente@bar.example")}
	assignments := &fakeAssignments{saveErr: errors.New("write refused")}
	r := newTestResolver(ResolverConfig{}, sessions, assignments, &fakeDirectory{}, nil)

	identity, err := r.Resolve(context.Background(), "token")
	require.NoError(t, err)
	assert.Equal(t, RoleManager, identity.Role)
}

func TestResolveInvalidSession(t *testing.T) {
	sessions := &fakeSessions{err: shared.ErrAuthentication}
	r := newTestResolver(ResolverConfig{}, sessions, &fakeAssignments{}, &fakeDirectory{}, nil)

	_, err := r.Resolve(context.Background(), "bad-token")
	assert.ErrorIs(t, err, shared.ErrAuthentication)
}
