// Package directory holds borrower and staff accounts.
package directory

import (
	"context"
	"strings"
	"sync"

	"libris/pkg/domain"
	"libris/pkg/platform/sentinel"
)

// User is a library account. PasswordHash is a bcrypt hash and is only set
// for accounts that can sign in to the admin surface.
type User struct {
	ID           domain.UserID `json:"id"`
	Nombre       string        `json:"nombre"`
	Apellidos    string        `json:"apellidos"`
	Email        string        `json:"email"`
	Role         domain.Role   `json:"role"`
	PasswordHash []byte        `json:"-"`
}

// FullName is the display name shown in loan views.
func (u *User) FullName() string {
	return strings.TrimSpace(u.Nombre + " " + u.Apellidos)
}

// Finder is the read surface the loan service depends on.
type Finder interface {
	FindByID(ctx context.Context, userID domain.UserID) (*User, error)
}

// InMemory is a mutex-guarded user store with a case-insensitive email index.
type InMemory struct {
	mu      sync.RWMutex
	users   map[domain.UserID]*User
	byEmail map[string]domain.UserID
}

func NewInMemory() *InMemory {
	return &InMemory{
		users:   make(map[domain.UserID]*User),
		byEmail: make(map[string]domain.UserID),
	}
}

func (s *InMemory) Create(_ context.Context, user *User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	email := strings.ToLower(user.Email)
	if _, exists := s.users[user.ID]; exists {
		return sentinel.ErrConflict
	}
	if _, taken := s.byEmail[email]; taken {
		return sentinel.ErrConflict
	}
	cp := *user
	s.users[user.ID] = &cp
	s.byEmail[email] = user.ID
	return nil
}

func (s *InMemory) FindByID(_ context.Context, userID domain.UserID) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.users[userID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *user
	return &cp, nil
}

func (s *InMemory) FindByEmail(_ context.Context, email string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	userID, ok := s.byEmail[strings.ToLower(strings.TrimSpace(email))]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *s.users[userID]
	return &cp, nil
}
