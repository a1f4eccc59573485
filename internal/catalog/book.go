// Package catalog holds the book inventory the loan views join against.
package catalog

import (
	"context"
	"sync"

	"libris/pkg/domain"
	"libris/pkg/platform/sentinel"
)

// Book is a catalog entry. DigitalCopyKey points into the blob store when
// the title has an attached digital copy; empty means none.
type Book struct {
	ID             domain.BookID `json:"id"`
	Title          string        `json:"titulo"`
	Author         string        `json:"autor"`
	ISBN           string        `json:"isbn"`
	DigitalCopyKey string        `json:"digitalCopyKey,omitempty"`
}

// Finder is the read surface the loan service depends on.
type Finder interface {
	FindByID(ctx context.Context, bookID domain.BookID) (*Book, error)
}

// InMemory is a mutex-guarded book store.
type InMemory struct {
	mu    sync.RWMutex
	books map[domain.BookID]*Book
}

func NewInMemory() *InMemory {
	return &InMemory{books: make(map[domain.BookID]*Book)}
}

func (s *InMemory) Create(_ context.Context, book *Book) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.books[book.ID]; exists {
		return sentinel.ErrConflict
	}
	cp := *book
	s.books[book.ID] = &cp
	return nil
}

func (s *InMemory) FindByID(_ context.Context, bookID domain.BookID) (*Book, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	book, ok := s.books[bookID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *book
	return &cp, nil
}

// SetDigitalCopyKey points the book at a new blob and returns the key it
// replaced, empty if the book had no digital copy yet.
func (s *InMemory) SetDigitalCopyKey(_ context.Context, bookID domain.BookID, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	book, ok := s.books[bookID]
	if !ok {
		return "", sentinel.ErrNotFound
	}
	previous := book.DigitalCopyKey
	book.DigitalCopyKey = key
	return previous, nil
}
