package domain

// Role is a directory role. It doubles as the key of the loan-duration
// policy table, so the set is open: any non-empty value is a valid key,
// the constants below are the ones the seed data and the role gate use.
type Role string

const (
	RoleEstudiante    Role = "estudiante"
	RoleProfesor      Role = "profesor"
	RoleBibliotecario Role = "bibliotecario"
	RoleAdministrador Role = "administrador"
)

// StaffRoles are the roles allowed to operate the loan administration screen.
func StaffRoles() []Role {
	return []Role{RoleBibliotecario, RoleAdministrador}
}

func (r Role) String() string { return string(r) }
