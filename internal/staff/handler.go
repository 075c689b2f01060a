package staff

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/comanda-pos/comanda/internal/authz"
	"github.com/comanda-pos/comanda/internal/platform/httpx"
	"github.com/comanda-pos/comanda/internal/shared"
)

// Handler wires HTTP endpoints for staff administration.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	mw        authz.Middleware
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, mw authz.Middleware) *Handler {
	return &Handler{
		logger:    logger,
		service:   service,
		mw:        mw,
		validator: validator.New(),
	}
}

// MountRoutes registers staff routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.mw.Require(authz.ModuleEmployeeAdmin, authz.ActionView))
		r.Get("/", h.listEmployees)
		r.Get("/{employeeID}", h.getEmployee)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.mw.Require(authz.ModuleEmployeeAdmin, authz.ActionCreate))
		r.Post("/", h.createEmployee)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.mw.RequireStaffManager())
		r.Post("/{employeeID}/access", h.grantAccess)
		r.Post("/{employeeID}/suspend", h.suspend)
		r.Post("/{employeeID}/reactivate", h.reactivate)
		r.Delete("/{employeeID}", h.remove)
	})
}

type employeeResponse struct {
	ID          string `json:"id"`
	PrincipalID string `json:"principal_id,omitempty"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	Phone       string `json:"phone,omitempty"`
	JobTitle    string `json:"job_title"`
	AccessState string `json:"access_state"`
}

func toEmployeeResponse(emp Employee) employeeResponse {
	resp := employeeResponse{
		ID:          emp.ID.String(),
		Name:        emp.Name,
		Email:       emp.Email,
		Phone:       emp.Phone,
		JobTitle:    emp.JobTitle,
		AccessState: string(emp.AccessState),
	}
	if emp.Credentialed() {
		resp.PrincipalID = emp.PrincipalID.String()
	}
	return resp
}

func (h *Handler) listEmployees(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	employees, err := h.service.ListEmployees(r.Context(), actor.TenantID)
	if err != nil {
		h.respondError(w, err)
		return
	}

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))
	pagination := shared.NewPagination(page, perPage, len(employees))

	start := pagination.Offset()
	if start > len(employees) {
		start = len(employees)
	}
	end := start + pagination.PerPage
	if end > len(employees) {
		end = len(employees)
	}

	out := make([]employeeResponse, 0, end-start)
	for _, emp := range employees[start:end] {
		out = append(out, toEmployeeResponse(emp))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"employees":  out,
		"pagination": pagination,
	})
}

func (h *Handler) getEmployee(w http.ResponseWriter, r *http.Request) {
	actor, employeeID, ok := h.actorAndEmployee(w, r)
	if !ok {
		return
	}
	emp, err := h.service.GetEmployee(r.Context(), actor.TenantID, employeeID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toEmployeeResponse(emp))
}

type createEmployeeRequest struct {
	Name     string `json:"name" validate:"required,min=2"`
	Email    string `json:"email" validate:"required,email"`
	Phone    string `json:"phone" validate:"omitempty,min=6"`
	JobTitle string `json:"job_title" validate:"required"`
}

func (h *Handler) createEmployee(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	var req createEmployeeRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Payload", err.Error())
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	emp, err := h.service.CreateEmployee(r.Context(), Employee{
		TenantID: actor.TenantID,
		Name:     req.Name,
		Email:    req.Email,
		Phone:    req.Phone,
		JobTitle: req.JobTitle,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toEmployeeResponse(emp))
}

func (h *Handler) grantAccess(w http.ResponseWriter, r *http.Request) {
	actor, employeeID, ok := h.actorAndEmployee(w, r)
	if !ok {
		return
	}
	cred, err := h.service.GrantAccess(r.Context(), actor, actor.TenantID, employeeID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	// The temporary password is shown exactly once.
	httpx.JSON(w, http.StatusCreated, map[string]any{
		"email":              cred.Email,
		"temporary_password": cred.Password,
	})
}

func (h *Handler) suspend(w http.ResponseWriter, r *http.Request) {
	actor, employeeID, ok := h.actorAndEmployee(w, r)
	if !ok {
		return
	}
	if err := h.service.Suspend(r.Context(), actor, actor.TenantID, employeeID); err != nil {
		h.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) reactivate(w http.ResponseWriter, r *http.Request) {
	actor, employeeID, ok := h.actorAndEmployee(w, r)
	if !ok {
		return
	}
	if err := h.service.Reactivate(r.Context(), actor, actor.TenantID, employeeID); err != nil {
		h.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type removeRequest struct {
	Confirmation string `json:"confirmation" validate:"required"`
}

func (h *Handler) remove(w http.ResponseWriter, r *http.Request) {
	actor, employeeID, ok := h.actorAndEmployee(w, r)
	if !ok {
		return
	}
	var req removeRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Payload", err.Error())
		return
	}
	if err := h.service.Remove(r.Context(), actor, actor.TenantID, employeeID, req.Confirmation); err != nil {
		h.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) actor(w http.ResponseWriter, r *http.Request) (authz.Identity, bool) {
	res, ok := authz.ResolutionFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Not Authenticated", "")
		return authz.Identity{}, false
	}
	return res.Identity, true
}

func (h *Handler) actorAndEmployee(w http.ResponseWriter, r *http.Request) (authz.Identity, uuid.UUID, bool) {
	actor, ok := h.actor(w, r)
	if !ok {
		return authz.Identity{}, uuid.Nil, false
	}
	employeeID, err := uuid.Parse(chi.URLParam(r, "employeeID"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Employee", "employee id must be a UUID")
		return authz.Identity{}, uuid.Nil, false
	}
	return actor, employeeID, true
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, shared.ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", "")
	case errors.Is(err, shared.ErrAlreadyCredentialed):
		httpx.Problem(w, http.StatusConflict, "Already Credentialed", "")
	case errors.Is(err, shared.ErrNotCredentialed):
		httpx.Problem(w, http.StatusConflict, "Not Credentialed", "")
	case errors.Is(err, shared.ErrConfirmationMismatch):
		httpx.Problem(w, http.StatusBadRequest, "Confirmation Required", "removal requires the literal confirmation string")
	case errors.Is(err, shared.ErrTenantMismatch):
		httpx.Problem(w, http.StatusForbidden, "Access Denied", "")
	case errors.Is(err, shared.ErrLockBusy):
		httpx.Problem(w, http.StatusConflict, "Busy", "another change is in progress for this employee")
	case errors.Is(err, shared.ErrStoreUnavailable):
		h.logger.Error("staff store unavailable", slog.Any("error", err))
		httpx.Problem(w, http.StatusServiceUnavailable, "Store Unavailable", "")
	default:
		h.logger.Error("staff handler", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
