package authz

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// keywordRule maps a folded substring to a role. Rules are evaluated in
// order; the first match wins, so more specific phrases come first.
type keywordRule struct {
	substr string
	role   Role
}

// Job titles arrive in Portuguese, Spanish or English depending on the
// venue, so the table carries all three spellings.
var keywordRules = []keywordRule{
	{"frente de caixa", RoleFOHCashier},
	{"front of house", RoleFOHCashier},
	{"caixa", RoleCashier},
	{"cajero", RoleCashier},
	{"cashier", RoleCashier},
	{"gerente", RoleManager},
	{"manager", RoleManager},
	{"supervisor", RoleManager},
	{"administrador", RoleAdministrator},
	{"administrator", RoleAdministrator},
	{"garcom", RoleServer},
	{"garcon", RoleServer},
	{"mesero", RoleServer},
	{"waiter", RoleServer},
	{"server", RoleServer},
	{"bartender", RoleServer},
	{"cozinheiro", RoleCook},
	{"cozinha", RoleCook},
	{"cocinero", RoleCook},
	{"cook", RoleCook},
	{"chef", RoleCook},
}

var foldTransformer = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// foldKeyword lowercases and strips diacritics so "Gerência" matches
// "gerencia" and "Garçom" matches "garcom".
func foldKeyword(s string) string {
	folded, _, err := transform.String(foldTransformer, s)
	if err != nil {
		folded = s
	}
	return strings.ToLower(strings.TrimSpace(folded))
}

// RoleForTitle derives a role from a free-text job title. Returns the
// lowest-privilege role when nothing matches; it never fails.
func RoleForTitle(title string) Role {
	if role, ok := matchKeyword(title); ok {
		return role
	}
	return RoleStaff
}

// roleForEmail infers a role from the local part of an email address.
func roleForEmail(email string) (Role, bool) {
	local := email
	if at := strings.IndexByte(email, '@'); at >= 0 {
		local = email[:at]
	}
	return matchKeyword(local)
}

func matchKeyword(s string) (Role, bool) {
	folded := foldKeyword(s)
	if folded == "" {
		return "", false
	}
	for _, rule := range keywordRules {
		if strings.Contains(folded, rule.substr) {
			return rule.role, true
		}
	}
	return "", false
}
