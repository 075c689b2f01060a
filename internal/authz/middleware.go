package authz

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/comanda-pos/comanda/internal/platform/httpx"
	"github.com/comanda-pos/comanda/internal/shared"
)

type resolutionContextKey struct{}

// ContextWithResolution stores the computed resolution in context.
func ContextWithResolution(ctx context.Context, res Resolution) context.Context {
	return context.WithValue(ctx, resolutionContextKey{}, res)
}

// ResolutionFromContext extracts the resolution placed by the middleware.
func ResolutionFromContext(ctx context.Context) (Resolution, bool) {
	res, ok := ctx.Value(resolutionContextKey{}).(Resolution)
	return res, ok
}

// Middleware gates HTTP routes on the effective permission matrix.
type Middleware struct {
	Engine   *Engine
	Sessions interface {
		TokenFromRequest(r *http.Request) string
	}
	Logger *slog.Logger
}

// Require allows the request through only when the principal holds the
// (module, action) cell. Ordinary permission gaps respond 403 with no detail;
// authentication failures respond 401.
func (m Middleware) Require(module Module, action Action) func(http.Handler) http.Handler {
	return m.gate(func(res Resolution) bool {
		return res.Matrix.HasAccess(module, action)
	})
}

// RequireStaffManager allows administrators and principals with edit or
// administer on employee administration.
func (m Middleware) RequireStaffManager() func(http.Handler) http.Handler {
	return m.gate(func(res Resolution) bool {
		return CanManageStaff(res.Matrix, res.Identity.Role)
	})
}

// RequireAdministrator allows only administrators.
func (m Middleware) RequireAdministrator() func(http.Handler) http.Handler {
	return m.gate(func(res Resolution) bool {
		return IsAdministrator(res.Matrix, res.Identity.Role)
	})
}

func (m Middleware) gate(allowed func(Resolution) bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := m.Sessions.TokenFromRequest(r)
			resolution, err := m.Engine.Resolve(r.Context(), token)
			if err != nil {
				m.respondError(w, err)
				return
			}
			if !allowed(resolution) {
				httpx.Problem(w, http.StatusForbidden, "Forbidden", "")
				return
			}
			next.ServeHTTP(w, r.WithContext(ContextWithResolution(r.Context(), resolution)))
		})
	}
}

func (m Middleware) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, shared.ErrAuthentication):
		httpx.Problem(w, http.StatusUnauthorized, "Not Authenticated", "")
	case errors.Is(err, shared.ErrStoreUnavailable):
		if m.Logger != nil {
			m.Logger.Error("authorization unavailable, denying", slog.Any("error", err))
		}
		httpx.Problem(w, http.StatusServiceUnavailable, "Authorization Unavailable", "")
	default:
		if m.Logger != nil {
			m.Logger.Error("authorization check failed", slog.Any("error", err))
		}
		httpx.Problem(w, http.StatusForbidden, "Forbidden", "")
	}
}
