package account

import (
	"context"
	"io"

	"github.com/kailas-cloud/seshat/internal/domain"
	dombook "github.com/kailas-cloud/seshat/internal/domain/book"
	domuser "github.com/kailas-cloud/seshat/internal/domain/user"
)

// Transactor runs fn in a single database transaction.
type Transactor interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// UserRepository defines the storage contract for accounts.
type UserRepository interface {
	Get(ctx context.Context, id int64) (*domuser.User, error)
	Update(ctx context.Context, u *domuser.User) error
	Delete(ctx context.Context, u *domuser.User) error
	Stats(ctx context.Context, userID int64) (domuser.Stats, error)
	Books(ctx context.Context, userID int64) ([]dombook.Owned, error)
}

// BookRepository removes catalog entries left without owners.
type BookRepository interface {
	Delete(ctx context.Context, b *dombook.Book) error
	OwnerCount(ctx context.Context, id int64) (int, error)
}

// Availability reports usernames and emails taken by other accounts.
type Availability interface {
	CheckAvailable(ctx context.Context, v *domain.ValidationError, selfID int64, username, email string) error
}

// PictureStore thumbnails and stores profile pictures.
type PictureStore interface {
	Save(ctx context.Context, filename string, r io.Reader) (string, error)
	Delete(ctx context.Context, name string) error
	URL(name string) string
}
