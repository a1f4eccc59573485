package media

import (
	"context"
	"errors"
	"log/slog"

	"libris/internal/catalog"
	"libris/pkg/domain"
	dErrors "libris/pkg/domain-errors"
	"libris/pkg/platform/sentinel"
)

// CatalogStore is the slice of the catalog the media service needs.
type CatalogStore interface {
	FindByID(ctx context.Context, bookID domain.BookID) (*catalog.Book, error)
	SetDigitalCopyKey(ctx context.Context, bookID domain.BookID, key string) (previous string, err error)
}

// Service uploads and replaces digital copies. Replacement is upload-first:
// the new blob must be stored and linked before the old one is touched, so
// a failed upload never leaves the book without a copy.
type Service struct {
	blobs  BlobStore
	books  CatalogStore
	logger *slog.Logger
}

func New(blobs BlobStore, books CatalogStore, logger *slog.Logger) *Service {
	return &Service{blobs: blobs, books: books, logger: logger}
}

// ReplaceDigitalCopy stores a new digital copy for the book and unlinks the
// previous one. Deleting the old blob is best effort: an orphaned blob
// costs storage, a failed replacement costs the operator's upload.
func (s *Service) ReplaceDigitalCopy(ctx context.Context, bookID domain.BookID, fileName string, data []byte) (string, error) {
	if len(data) == 0 {
		return "", dErrors.New(dErrors.CodeValidation, "digital copy content is required")
	}
	if fileName == "" {
		return "", dErrors.New(dErrors.CodeValidation, "fileName is required")
	}

	if _, err := s.books.FindByID(ctx, bookID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return "", dErrors.New(dErrors.CodeNotFound, "book not found")
		}
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to load book")
	}

	key := NewKey(fileName)
	if err := s.blobs.Upload(ctx, key, data); err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to store digital copy")
	}

	previous, err := s.books.SetDigitalCopyKey(ctx, bookID, key)
	if err != nil {
		if delErr := s.blobs.Delete(ctx, key); delErr != nil {
			s.logger.WarnContext(ctx, "orphaned digital copy after failed link",
				slog.String("key", key), slog.String("error", delErr.Error()))
		}
		if errors.Is(err, sentinel.ErrNotFound) {
			return "", dErrors.New(dErrors.CodeNotFound, "book not found")
		}
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to link digital copy")
	}

	if previous != "" {
		if err := s.blobs.Delete(ctx, previous); err != nil {
			s.logger.WarnContext(ctx, "failed to delete replaced digital copy",
				slog.String("key", previous), slog.String("error", err.Error()))
		}
	}
	return key, nil
}

// RemoveDigitalCopy unlinks the book's digital copy and deletes the blob.
// Removing a book without a copy is a no-op.
func (s *Service) RemoveDigitalCopy(ctx context.Context, bookID domain.BookID) error {
	previous, err := s.books.SetDigitalCopyKey(ctx, bookID, "")
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "book not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to unlink digital copy")
	}
	if previous == "" {
		return nil
	}
	if err := s.blobs.Delete(ctx, previous); err != nil {
		s.logger.WarnContext(ctx, "failed to delete removed digital copy",
			slog.String("key", previous), slog.String("error", err.Error()))
	}
	return nil
}

// DownloadDigitalCopy returns the stored content for a book.
func (s *Service) DownloadDigitalCopy(ctx context.Context, bookID domain.BookID) ([]byte, error) {
	book, err := s.books.FindByID(ctx, bookID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "book not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load book")
	}
	if book.DigitalCopyKey == "" {
		return nil, dErrors.New(dErrors.CodeNotFound, "book has no digital copy")
	}

	data, err := s.blobs.Download(ctx, book.DigitalCopyKey)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "digital copy content missing")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read digital copy")
	}
	return data, nil
}
