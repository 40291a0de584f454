package domain

// Role names carried in JWT claims and checked by the role middleware.
const (
	RoleAdmin   = "admin"
	RolePatient = "patient"
	RoleDoctor  = "doctor"
)

// Roles returns the fixed role catalog.
func Roles() []string {
	return []string{RoleAdmin, RoleDoctor, RolePatient}
}
