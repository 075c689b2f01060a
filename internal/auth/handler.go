package auth

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/comanda-pos/comanda/internal/platform/httpx"
	"github.com/comanda-pos/comanda/internal/shared"
)

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	logger         *slog.Logger
	service        *Service
	sessionManager *shared.SessionManager
	validator      *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, sessions *shared.SessionManager) *Handler {
	return &Handler{
		logger:         logger,
		service:        service,
		sessionManager: sessions,
		validator:      validator.New(),
	}
}

// MountRoutes registers auth routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/login", h.handleLogin)
	r.Post("/logout", h.handleLogout)
	r.Post("/password", h.handleChangePassword)
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Payload", err.Error())
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	cred, err := h.service.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		httpx.Problem(w, http.StatusUnauthorized, "Not Authenticated", "invalid email or password")
		return
	}

	sess, err := h.sessionManager.Create(r.Context(), cred.PrincipalID.String(), cred.TenantID.String(), cred.Email)
	if err != nil {
		h.logger.Error("create session", slog.Any("error", err))
		httpx.Problem(w, http.StatusServiceUnavailable, "Session Unavailable", "")
		return
	}
	if err := h.sessionManager.Commit(r.Context(), w, sess); err != nil {
		h.logger.Error("commit session", slog.Any("error", err))
		httpx.Problem(w, http.StatusServiceUnavailable, "Session Unavailable", "")
		return
	}

	httpx.JSON(w, http.StatusOK, map[string]any{
		"token":              sess.ID,
		"must_set_password":  cred.Temporary,
		"expires_in_seconds": int(h.sessionManager.TTL().Seconds()),
	})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	token := h.sessionManager.TokenFromRequest(r)
	sess, err := h.sessionManager.Load(r.Context(), token)
	if err != nil {
		if errors.Is(err, shared.ErrAuthentication) {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		httpx.Problem(w, http.StatusServiceUnavailable, "Session Unavailable", "")
		return
	}
	h.sessionManager.Destroy(sess)
	if err := h.sessionManager.Commit(r.Context(), w, sess); err != nil {
		h.logger.Warn("destroy session", slog.Any("error", err))
	}
	w.WriteHeader(http.StatusNoContent)
}

type changePasswordRequest struct {
	Current string `json:"current_password" validate:"required"`
	New     string `json:"new_password" validate:"required,min=10"`
}

func (h *Handler) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	token := h.sessionManager.TokenFromRequest(r)
	sess, err := h.sessionManager.Load(r.Context(), token)
	if err != nil {
		httpx.Problem(w, http.StatusUnauthorized, "Not Authenticated", "")
		return
	}

	var req changePasswordRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Payload", err.Error())
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	cred, err := h.service.Authenticate(r.Context(), sess.Email(), req.Current)
	if err != nil {
		httpx.Problem(w, http.StatusUnauthorized, "Not Authenticated", "current password incorrect")
		return
	}
	if err := h.service.ChangePassword(r.Context(), cred.PrincipalID, req.New); err != nil {
		h.logger.Error("change password", slog.Any("error", err))
		httpx.Problem(w, http.StatusServiceUnavailable, "Store Unavailable", "")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
