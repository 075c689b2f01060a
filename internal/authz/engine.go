package authz

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/comanda-pos/comanda/internal/shared"
)

// Engine computes effective permission matrices. Resolution is a pure read
// of current state: role defaults first, then overrides, whole-module
// replacement. On any collaborator failure the engine fails closed and
// returns the deny-all matrix with the error.
type Engine struct {
	resolver  *Resolver
	overrides OverrideStore
	timeout   time.Duration
	group     singleflight.Group
}

// NewEngine constructs an Engine. timeout bounds each resolution end to end;
// zero means no bound beyond the caller's context.
func NewEngine(resolver *Resolver, overrides OverrideStore, timeout time.Duration) *Engine {
	return &Engine{resolver: resolver, overrides: overrides, timeout: timeout}
}

// Resolution bundles the computed matrix with the identity it belongs to.
type Resolution struct {
	Identity Identity
	Matrix   Matrix
}

// Resolve validates the token and computes the principal's effective matrix.
// Deactivated principals get the all-false matrix unconditionally, before
// any matrix computation; removed principals fail with ErrAuthentication.
func (e *Engine) Resolve(ctx context.Context, token string) (Resolution, error) {
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	identity, err := e.resolver.Resolve(ctx, token)
	if err != nil {
		return Resolution{Matrix: EmptyMatrix()}, failClosed(err)
	}

	resolution := Resolution{Identity: identity, Matrix: EmptyMatrix()}
	if identity.State == PrincipalDeactivated {
		return resolution, nil
	}

	// Concurrent resolutions for the same principal collapse into one
	// override fetch. No cross-call caching: a resolution always reads
	// current state.
	key := identity.TenantID.String() + "/" + identity.PrincipalID.String()
	rows, err, _ := e.group.Do(key, func() (any, error) {
		return e.overrides.FetchOverrides(ctx, identity.TenantID, identity.PrincipalID)
	})
	if err != nil {
		return Resolution{Identity: identity, Matrix: EmptyMatrix()}, failClosed(err)
	}

	matrix := ApplyRole(EmptyMatrix(), identity.Role)
	matrix = ApplyOverrides(matrix, rows.([]OverrideRow))
	resolution.Matrix = matrix
	return resolution, nil
}

// GetEffectivePermissions returns the effective matrix for a session token.
func (e *Engine) GetEffectivePermissions(ctx context.Context, token string) (Matrix, error) {
	resolution, err := e.Resolve(ctx, token)
	return resolution.Matrix, err
}

// failClosed maps collaborator timeouts onto the store-unavailable error so
// callers deny rather than guess.
func failClosed(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("authz: resolution timed out: %w", shared.ErrStoreUnavailable)
	}
	return err
}
