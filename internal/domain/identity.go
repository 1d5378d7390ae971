package domain

// Role distinguishes the two back-office workflows.
type Role string

const (
	RoleDispatcher Role = "dispatcher"
	RoleTechnician Role = "technician"
)

// User is the identity record issued by the credential provider alongside a
// bearer token.
type User struct {
	ID    string
	Name  string
	Email string
	Role  Role
}
