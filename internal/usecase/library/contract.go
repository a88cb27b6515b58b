package library

import (
	"context"
	"time"

	dombook "github.com/kailas-cloud/seshat/internal/domain/book"
	"github.com/kailas-cloud/seshat/internal/domain/tagging"
)

// Transactor runs fn in a single database transaction.
type Transactor interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// BookRepository defines the storage contract for the shared book catalog.
type BookRepository interface {
	Create(ctx context.Context, b *dombook.Book) error
	Update(ctx context.Context, b *dombook.Book) error
	Delete(ctx context.Context, b *dombook.Book) error
	Get(ctx context.Context, id int64) (*dombook.Book, error)
	GetByTitle(ctx context.Context, title string) (*dombook.Book, error)
	OwnerCount(ctx context.Context, id int64) (int, error)
}

// OwnershipRepository defines the storage contract for personal collections.
type OwnershipRepository interface {
	AddOwnership(ctx context.Context, userID, bookID int64, at time.Time) error
	RemoveOwnership(ctx context.Context, userID, bookID int64) error
	Owns(ctx context.Context, userID, bookID int64) (bool, error)
	Books(ctx context.Context, userID int64) ([]dombook.Owned, error)
}

// TagRepository defines the storage contract for per-user book tags.
type TagRepository interface {
	Add(ctx context.Context, t *tagging.Tagging) error
	List(ctx context.Context, userID, bookID int64) ([]tagging.Tagging, error)
	Remove(ctx context.Context, userID, bookID int64, name string) error
}
