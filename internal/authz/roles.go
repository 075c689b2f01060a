package authz

// Role default templates. Templates are partial matrices; modules they do not
// mention stay all-false. Defaults are written so that higher actions imply
// lower ones within a module, though nothing in the engine enforces that.
var roleDefaults = map[Role]map[Module]Cells{
	RoleAdministrator: fullGrid(),
	RoleManager: {
		ModuleDashboard:       {View: true, Create: true, Edit: true, Delete: true},
		ModuleCashManagement:  {View: true, Create: true, Edit: true, Delete: true},
		ModuleEmployeeAdmin:   {View: true, Create: true, Edit: true, Delete: true, Administer: true},
		ModuleReporting:       {View: true, Create: true, Edit: true, Delete: true},
		ModuleSettings:        {View: true, Edit: true},
		ModuleBarService:      {View: true, Create: true, Edit: true, Delete: true},
		ModuleKitchenMonitor:  {View: true, Create: true, Edit: true, Delete: true},
		ModuleCustomerRecords: {View: true, Create: true, Edit: true, Delete: true},
		ModuleBarMonitor:      {View: true, Create: true, Edit: true, Delete: true},
	},
	RoleStaff: {
		ModuleDashboard: {View: true},
	},
	RoleCashier: {
		ModuleDashboard:      {View: true},
		ModuleCashManagement: {View: true, Create: true, Edit: true},
		ModuleReporting:      {View: true},
	},
	RoleServer: {
		ModuleBarService: {View: true, Create: true, Edit: true},
	},
	RoleCook: {
		ModuleDashboard:      {View: true},
		ModuleKitchenMonitor: {View: true, Create: true, Edit: true},
	},
	RoleFOHCashier: {
		ModuleDashboard:       {View: true},
		ModuleCashManagement:  {View: true, Create: true, Edit: true},
		ModuleBarMonitor:      {View: true},
		ModuleCustomerRecords: {View: true, Create: true},
	},
}

func fullGrid() map[Module]Cells {
	grid := make(map[Module]Cells, len(Modules()))
	for _, module := range Modules() {
		grid[module] = Cells{View: true, Create: true, Edit: true, Delete: true, Administer: true}
	}
	return grid
}

// RoleDefaults returns a copy of the role's partial template.
func RoleDefaults(role Role) map[Module]Cells {
	defaults := roleDefaults[role]
	out := make(map[Module]Cells, len(defaults))
	for module, cells := range defaults {
		out[module] = cells
	}
	return out
}

// IsAdministrator reports administrative capability: granted wholesale by the
// top-privilege role, or surgically via an administer override on the
// settings module. Both paths must be honored.
func IsAdministrator(m Matrix, role Role) bool {
	if role == RoleAdministrator {
		return true
	}
	return m.HasAccess(ModuleSettings, ActionAdminister)
}

// CanManageStaff reports whether the principal may manage employee records:
// administrators, plus anyone with edit or administer on the
// employee-administration module.
func CanManageStaff(m Matrix, role Role) bool {
	if IsAdministrator(m, role) {
		return true
	}
	return m.HasAccess(ModuleEmployeeAdmin, ActionEdit) || m.HasAccess(ModuleEmployeeAdmin, ActionAdminister)
}
