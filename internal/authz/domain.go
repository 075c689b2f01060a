package authz

import (
	"time"

	"github.com/google/uuid"
)

// Module is a named functional area subject to access control. The set is a
// closed enumeration; identifiers outside it never match anything.
type Module string

const (
	ModuleDashboard       Module = "dashboard"
	ModuleCashManagement  Module = "cash-management"
	ModuleEmployeeAdmin   Module = "employee-administration"
	ModuleReporting       Module = "reporting"
	ModuleSettings        Module = "settings"
	ModuleBarService      Module = "bar-service"
	ModuleKitchenMonitor  Module = "kitchen-monitor"
	ModuleCustomerRecords Module = "customer-records"
	ModuleBarMonitor      Module = "bar-monitor"
)

// Modules lists every access-controlled module.
func Modules() []Module {
	return []Module{
		ModuleDashboard,
		ModuleCashManagement,
		ModuleEmployeeAdmin,
		ModuleReporting,
		ModuleSettings,
		ModuleBarService,
		ModuleKitchenMonitor,
		ModuleCustomerRecords,
		ModuleBarMonitor,
	}
}

// KnownModule reports whether the identifier belongs to the enumeration.
func KnownModule(m Module) bool {
	for _, known := range Modules() {
		if m == known {
			return true
		}
	}
	return false
}

// Action is a permission verb. Each action is an independent boolean; higher
// actions do not imply lower ones.
type Action string

const (
	ActionView       Action = "view"
	ActionCreate     Action = "create"
	ActionEdit       Action = "edit"
	ActionDelete     Action = "delete"
	ActionAdminister Action = "administer"
)

// Actions lists the permission verbs in increasing privilege order.
func Actions() []Action {
	return []Action{ActionView, ActionCreate, ActionEdit, ActionDelete, ActionAdminister}
}

// Role is a named default permission template.
type Role string

const (
	RoleAdministrator Role = "administrator"
	RoleManager       Role = "manager"
	RoleStaff         Role = "staff"
	RoleCashier       Role = "cashier"
	RoleServer        Role = "server"
	RoleCook          Role = "cook"
	RoleFOHCashier    Role = "front-of-house-cashier"
)

// Roles lists every known role.
func Roles() []Role {
	return []Role{
		RoleAdministrator,
		RoleManager,
		RoleStaff,
		RoleCashier,
		RoleServer,
		RoleCook,
		RoleFOHCashier,
	}
}

// KnownRole reports whether the role belongs to the enumeration.
func KnownRole(r Role) bool {
	for _, known := range Roles() {
		if r == known {
			return true
		}
	}
	return false
}

// Cells holds the five action booleans for one module.
type Cells struct {
	View       bool `json:"view"`
	Create     bool `json:"create"`
	Edit       bool `json:"edit"`
	Delete     bool `json:"delete"`
	Administer bool `json:"administer"`
}

// Action returns the cell value for one action. Unknown actions are deny.
func (c Cells) Action(a Action) bool {
	switch a {
	case ActionView:
		return c.View
	case ActionCreate:
		return c.Create
	case ActionEdit:
		return c.Edit
	case ActionDelete:
		return c.Delete
	case ActionAdminister:
		return c.Administer
	default:
		return false
	}
}

// Matrix is the full module by action grid for one principal in one tenant.
// Matrices are total: every enumerated module is present, deny-by-default.
type Matrix map[Module]Cells

// OverrideRow is a per-principal, per-module explicit permission set that
// supersedes the role default wholesale for its module.
type OverrideRow struct {
	TenantID    uuid.UUID
	PrincipalID uuid.UUID
	Module      Module
	Cells       Cells
	UpdatedAt   time.Time
}

// Assignment is the canonical role-assignment record for a principal within
// a tenant. Role may be empty when the record predates role capture; the
// resolver then falls back to the job-title heuristic.
type Assignment struct {
	TenantID    uuid.UUID
	PrincipalID uuid.UUID
	Role        Role
	Active      bool
	Learned     bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Identity is the result of resolving a session token: the principal, the
// tenant it is bound to for the life of the session, and the resolved role.
type Identity struct {
	PrincipalID uuid.UUID
	TenantID    uuid.UUID
	Email       string
	Role        Role
	State       PrincipalState
}

// PrincipalState mirrors the staff record's access state as far as the
// engine needs it: resolvable-and-active, or suspended.
type PrincipalState string

const (
	PrincipalActive      PrincipalState = "active"
	PrincipalDeactivated PrincipalState = "deactivated"
)
