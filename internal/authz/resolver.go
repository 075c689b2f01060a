package authz

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/comanda-pos/comanda/internal/shared"
)

// ResolverConfig carries the deployment-time role assignment artifacts: the
// superuser email and the operator-maintained emergency override list.
type ResolverConfig struct {
	SuperuserEmail string
	AdminOverrides map[string]Role
}

// ResolutionObserver counts resolutions per winning strategy.
type ResolutionObserver interface {
	ObserveResolution(strategy string)
}

// Resolver establishes a principal's role within its tenant. Strategies are
// evaluated in strict precedence order as a pure table; all I/O happens up
// front so each strategy is testable without a store.
type Resolver struct {
	cfg         ResolverConfig
	sessions    SessionValidator
	assignments AssignmentStore
	directory   Directory
	logger      *slog.Logger
	observer    ResolutionObserver
}

// NewResolver constructs a Resolver.
func NewResolver(cfg ResolverConfig, sessions SessionValidator, assignments AssignmentStore, directory Directory, logger *slog.Logger, observer ResolutionObserver) *Resolver {
	overrides := make(map[string]Role, len(cfg.AdminOverrides))
	for email, role := range cfg.AdminOverrides {
		overrides[strings.ToLower(strings.TrimSpace(email))] = role
	}
	cfg.AdminOverrides = overrides
	return &Resolver{
		cfg:         cfg,
		sessions:    sessions,
		assignments: assignments,
		directory:   directory,
		logger:      logger,
		observer:    observer,
	}
}

// resolveInput is the gathered context a strategy inspects. Strategies are
// pure functions over this struct.
type resolveInput struct {
	cfg       ResolverConfig
	email     string
	canonical *Assignment
	jobTitle  string
}

type strategy struct {
	name    string
	resolve func(in resolveInput) (Role, bool)
	// persist marks strategies whose outcome is written back as a
	// canonical mapping. Cache-fill, not a privilege grant: the engine's
	// deny-by-default posture is unaffected.
	persist bool
}

var strategies = []strategy{
	{name: "superuser", resolve: resolveSuperuser},
	{name: "admin_override", resolve: resolveAdminOverride, persist: true},
	{name: "canonical", resolve: resolveCanonical},
	{name: "title_keyword", resolve: resolveTitleKeyword, persist: true},
	{name: "email_keyword", resolve: resolveEmailKeyword, persist: true},
	{name: "terminal_default", resolve: resolveTerminalDefault},
}

func resolveSuperuser(in resolveInput) (Role, bool) {
	if in.cfg.SuperuserEmail == "" {
		return "", false
	}
	if strings.EqualFold(strings.TrimSpace(in.email), in.cfg.SuperuserEmail) {
		return RoleAdministrator, true
	}
	return "", false
}

func resolveAdminOverride(in resolveInput) (Role, bool) {
	role, ok := in.cfg.AdminOverrides[strings.ToLower(strings.TrimSpace(in.email))]
	return role, ok
}

func resolveCanonical(in resolveInput) (Role, bool) {
	if in.canonical == nil || in.canonical.Role == "" {
		return "", false
	}
	return in.canonical.Role, true
}

// resolveTitleKeyword only applies when a canonical record exists but its
// role field was never captured.
func resolveTitleKeyword(in resolveInput) (Role, bool) {
	if in.canonical == nil || in.canonical.Role != "" {
		return "", false
	}
	if role, ok := matchKeyword(in.jobTitle); ok {
		return role, true
	}
	return "", false
}

// resolveEmailKeyword only applies when no canonical record exists at all.
func resolveEmailKeyword(in resolveInput) (Role, bool) {
	if in.canonical != nil {
		return "", false
	}
	return roleForEmail(in.email)
}

func resolveTerminalDefault(resolveInput) (Role, bool) {
	return RoleStaff, true
}

// Resolve validates the session token and determines the principal's role.
// Role derivation never fails: the terminal default guarantees a value. Only
// invalid sessions, unresolvable principals and store transport failures
// surface as errors.
func (r *Resolver) Resolve(ctx context.Context, token string) (Identity, error) {
	sid, err := r.sessions.Validate(ctx, token)
	if err != nil {
		return Identity{}, err
	}

	profile, err := r.directory.PrincipalProfile(ctx, sid.TenantID, sid.PrincipalID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			// The staff record is gone: the identity is no longer
			// resolvable, which is an authentication failure rather
			// than a deny-all matrix for a ghost.
			return Identity{}, fmt.Errorf("authz: principal %s not resolvable: %w", sid.PrincipalID, shared.ErrAuthentication)
		}
		return Identity{}, err
	}

	in := resolveInput{cfg: r.cfg, email: sid.Email, jobTitle: profile.JobTitle}

	canonical, err := r.assignments.CanonicalAssignment(ctx, sid.TenantID, sid.PrincipalID)
	switch {
	case err == nil:
		in.canonical = &canonical
	case errors.Is(err, shared.ErrNotFound):
		// Absent or inaccessible record: fall through to the heuristics.
	default:
		return Identity{}, err
	}

	identity := Identity{
		PrincipalID: sid.PrincipalID,
		TenantID:    sid.TenantID,
		Email:       sid.Email,
		State:       PrincipalActive,
	}
	if profile.Deactivated || (in.canonical != nil && !in.canonical.Active) {
		identity.State = PrincipalDeactivated
	}

	for _, s := range strategies {
		role, ok := s.resolve(in)
		if !ok {
			continue
		}
		identity.Role = role
		if r.observer != nil {
			r.observer.ObserveResolution(s.name)
		}
		if s.persist {
			if err := r.assignments.SaveLearnedAssignment(ctx, sid.TenantID, sid.PrincipalID, role); err != nil && r.logger != nil {
				r.logger.Warn("persist learned role mapping",
					slog.String("principal_id", sid.PrincipalID.String()),
					slog.String("strategy", s.name),
					slog.Any("error", err))
			}
		}
		return identity, nil
	}

	// Unreachable: the terminal default always matches.
	identity.Role = RoleStaff
	return identity, nil
}
