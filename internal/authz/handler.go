package authz

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/comanda-pos/comanda/internal/platform/httpx"
	"github.com/comanda-pos/comanda/internal/shared"
)

// Handler exposes the permission surface: the caller's own matrix plus the
// staff-manager-gated override editing endpoints.
type Handler struct {
	logger    *slog.Logger
	engine    *Engine
	overrides *OverrideService
	mw        Middleware
	validator *validator.Validate
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, engine *Engine, overrides *OverrideService, mw Middleware) *Handler {
	return &Handler{
		logger:    logger,
		engine:    engine,
		overrides: overrides,
		mw:        mw,
		validator: validator.New(),
	}
}

// MountRoutes registers permission routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.mw.Require(ModuleDashboard, ActionView))
		r.Get("/me", h.showOwnPermissions)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.mw.RequireStaffManager())
		r.Get("/{principalID}", h.showPermissions)
		r.Put("/{principalID}/modules/{module}", h.replaceModule)
		r.Delete("/{principalID}/modules/{module}", h.clearModule)
		r.Post("/{principalID}/preset", h.applyPreset)
		r.Delete("/{principalID}", h.clearAll)
	})
}

type matrixResponse struct {
	PrincipalID string           `json:"principal_id"`
	Role        string           `json:"role"`
	Matrix      map[Module]Cells `json:"matrix"`
}

func (h *Handler) showOwnPermissions(w http.ResponseWriter, r *http.Request) {
	res, ok := ResolutionFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Not Authenticated", "")
		return
	}
	httpx.JSON(w, http.StatusOK, matrixResponse{
		PrincipalID: res.Identity.PrincipalID.String(),
		Role:        string(res.Identity.Role),
		Matrix:      res.Matrix,
	})
}

func (h *Handler) showPermissions(w http.ResponseWriter, r *http.Request) {
	actor, principalID, ok := h.targetPrincipal(w, r)
	if !ok {
		return
	}
	rows, err := h.engine.overrides.FetchOverrides(r.Context(), actor.TenantID, principalID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	overrides := make(map[Module]Cells, len(rows))
	for _, row := range rows {
		overrides[row.Module] = row.Cells
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"principal_id": principalID.String(),
		"overrides":    overrides,
	})
}

type cellsRequest struct {
	View       bool `json:"view"`
	Create     bool `json:"create"`
	Edit       bool `json:"edit"`
	Delete     bool `json:"delete"`
	Administer bool `json:"administer"`
}

func (h *Handler) replaceModule(w http.ResponseWriter, r *http.Request) {
	actor, principalID, ok := h.targetPrincipal(w, r)
	if !ok {
		return
	}
	module := Module(chi.URLParam(r, "module"))
	var req cellsRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Payload", err.Error())
		return
	}
	cells := Cells{View: req.View, Create: req.Create, Edit: req.Edit, Delete: req.Delete, Administer: req.Administer}
	if err := h.overrides.SetModuleOverride(r.Context(), actor, actor.TenantID, principalID, module, cells); err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"module": string(module), "cells": cells})
}

type presetRequest struct {
	Role string `json:"role" validate:"required"`
}

func (h *Handler) applyPreset(w http.ResponseWriter, r *http.Request) {
	actor, principalID, ok := h.targetPrincipal(w, r)
	if !ok {
		return
	}
	var req presetRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Payload", err.Error())
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	if err := h.overrides.ApplyRolePreset(r.Context(), actor, actor.TenantID, principalID, Role(req.Role)); err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"preset": req.Role})
}

func (h *Handler) clearModule(w http.ResponseWriter, r *http.Request) {
	actor, principalID, ok := h.targetPrincipal(w, r)
	if !ok {
		return
	}
	module := Module(chi.URLParam(r, "module"))
	if err := h.overrides.ClearModuleOverride(r.Context(), actor, actor.TenantID, principalID, module); err != nil {
		h.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) clearAll(w http.ResponseWriter, r *http.Request) {
	actor, principalID, ok := h.targetPrincipal(w, r)
	if !ok {
		return
	}
	if err := h.overrides.ClearAllOverrides(r.Context(), actor, actor.TenantID, principalID); err != nil {
		h.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// targetPrincipal extracts the acting identity and the target principal id.
// The target is always addressed within the actor's tenant; the guarded
// store rejects the call if the principal actually belongs elsewhere.
func (h *Handler) targetPrincipal(w http.ResponseWriter, r *http.Request) (Identity, uuid.UUID, bool) {
	res, ok := ResolutionFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Not Authenticated", "")
		return Identity{}, uuid.Nil, false
	}
	principalID, err := uuid.Parse(chi.URLParam(r, "principalID"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Principal", "principal id must be a UUID")
		return Identity{}, uuid.Nil, false
	}
	return res.Identity, principalID, true
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, shared.ErrTenantMismatch):
		httpx.Problem(w, http.StatusForbidden, "Access Denied", "")
	case errors.Is(err, shared.ErrValidation):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "")
	case errors.Is(err, shared.ErrLockBusy):
		httpx.Problem(w, http.StatusConflict, "Busy", "another permission edit is in progress")
	case errors.Is(err, shared.ErrStoreUnavailable):
		h.logger.Error("override store unavailable", slog.Any("error", err))
		httpx.Problem(w, http.StatusServiceUnavailable, "Store Unavailable", "")
	default:
		h.logger.Error("permission handler", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
