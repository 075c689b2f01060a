package authz

// EmptyMatrix returns the total all-false grid. Deny-by-default: every
// enumerated module is present with every action false.
func EmptyMatrix() Matrix {
	m := make(Matrix, len(Modules()))
	for _, module := range Modules() {
		m[module] = Cells{}
	}
	return m
}

// ApplyRole overlays the role's default template onto the matrix. It is only
// ever called on an empty base; role templates are partial and unspecified
// modules stay all-false.
func ApplyRole(m Matrix, role Role) Matrix {
	for module, cells := range roleDefaults[role] {
		m[module] = cells
	}
	return m
}

// ApplyOverrides replaces, per module present in rows, the entire five-action
// cell. Modules absent from rows keep their role defaults. An override never
// merges with the role default action-by-action.
func ApplyOverrides(m Matrix, rows []OverrideRow) Matrix {
	for _, row := range rows {
		if !KnownModule(row.Module) {
			continue
		}
		m[row.Module] = row.Cells
	}
	return m
}

// HasAccess performs a direct cell lookup. Unknown module or action
// identifiers mean "not configured", which is deny.
func (m Matrix) HasAccess(module Module, action Action) bool {
	cells, ok := m[module]
	if !ok {
		return false
	}
	return cells.Action(action)
}
