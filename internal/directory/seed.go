package directory

import (
	"context"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"libris/pkg/domain"
)

// SeedSampleUsers loads starter accounts for local development. The staff
// accounts share the given password so the admin surface is reachable out
// of the box.
func SeedSampleUsers(store *InMemory, staffPassword string) ([]*User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(staffPassword), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	users := []*User{
		{ID: domain.UserID(uuid.New()), Nombre: "María", Apellidos: "García López", Email: "maria.garcia@biblioteca.edu", Role: domain.RoleEstudiante},
		{ID: domain.UserID(uuid.New()), Nombre: "Carlos", Apellidos: "Fernández Ruiz", Email: "carlos.fernandez@biblioteca.edu", Role: domain.RoleProfesor},
		{ID: domain.UserID(uuid.New()), Nombre: "Lucía", Apellidos: "Martín Sanz", Email: "lucia.martin@biblioteca.edu", Role: domain.RoleBibliotecario, PasswordHash: hash},
		{ID: domain.UserID(uuid.New()), Nombre: "Admin", Apellidos: "General", Email: "admin@biblioteca.edu", Role: domain.RoleAdministrador, PasswordHash: hash},
	}
	for _, u := range users {
		if err := store.Create(context.Background(), u); err != nil {
			return nil, err
		}
	}
	return users, nil
}
