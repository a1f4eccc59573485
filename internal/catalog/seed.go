package catalog

import (
	"context"

	"github.com/google/uuid"

	"libris/pkg/domain"
)

// SeedSampleBooks loads a starter catalog for local development.
func SeedSampleBooks(store *InMemory) []*Book {
	books := []*Book{
		{ID: domain.BookID(uuid.New()), Title: "Cien años de soledad", Author: "Gabriel García Márquez", ISBN: "978-0307474728"},
		{ID: domain.BookID(uuid.New()), Title: "Don Quijote de la Mancha", Author: "Miguel de Cervantes", ISBN: "978-8420412146"},
		{ID: domain.BookID(uuid.New()), Title: "La sombra del viento", Author: "Carlos Ruiz Zafón", ISBN: "978-0143126393"},
		{ID: domain.BookID(uuid.New()), Title: "Rayuela", Author: "Julio Cortázar", ISBN: "978-8437604572"},
	}
	for _, b := range books {
		_ = store.Create(context.Background(), b)
	}
	return books
}
