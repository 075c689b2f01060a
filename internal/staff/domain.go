package staff

import (
	"time"

	"github.com/google/uuid"
)

// AccessState is the staff record's system-access state. removed is terminal
// and never stored: removal deletes the record.
type AccessState string

const (
	StateNoAccess    AccessState = "no_access"
	StateActive      AccessState = "active"
	StateDeactivated AccessState = "deactivated"
)

// Employee is a staff record. Contact attributes are structured columns; the
// record never encodes them into free text.
type Employee struct {
	ID          uuid.UUID
	TenantID    uuid.UUID
	PrincipalID uuid.UUID // uuid.Nil until credentials are granted
	Name        string
	Email       string
	Phone       string
	JobTitle    string
	AccessState AccessState
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Credentialed reports whether the record has a bound principal.
func (e Employee) Credentialed() bool {
	return e.PrincipalID != uuid.Nil
}

// RemovalConfirmation is the literal string an operator must supply to
// remove an employee. A deliberate friction control: removal is irreversible.
func RemovalConfirmation(employeeID uuid.UUID) string {
	return "REMOVE " + employeeID.String()
}

// TemporaryCredential is handed back once at grant time.
type TemporaryCredential struct {
	Email    string
	Password string
}
