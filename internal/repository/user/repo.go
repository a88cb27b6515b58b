package user

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kailas-cloud/seshat/internal/domain"
	dombook "github.com/kailas-cloud/seshat/internal/domain/book"
	domuser "github.com/kailas-cloud/seshat/internal/domain/user"
	"github.com/kailas-cloud/seshat/internal/storage"
)

// store is the consumer interface for users (ISP).
type store interface {
	Conn(ctx context.Context) storage.Querier
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Repo implements the user and ownership repository.
type Repo struct {
	store store
}

// New creates a user repository.
func New(s store) *Repo {
	return &Repo{store: s}
}

// Create inserts u and assigns its id. A taken username or email yields
// domain.ErrAlreadyExists.
func (r *Repo) Create(ctx context.Context, u *domuser.User) error {
	return r.store.WithTx(ctx, func(ctx context.Context) error {
		res, err := r.store.Conn(ctx).ExecContext(ctx,
			`INSERT INTO users (username, email, first_name, last_name, profile_pic, password, is_admin, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			u.Username(), u.Email(), u.FirstName(), u.LastName(), u.ProfilePic(),
			u.PasswordHash(), u.IsAdmin(), nullTime(u.CreatedAt()))
		if err != nil {
			return writeErr("insert user", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("insert user: %w", err)
		}
		u.SetID(id)
		if tx, ok := storage.TxFromContext(ctx); ok {
			tx.TrackNew(u)
		}
		return nil
	})
}

// Update writes the profile fields and password hash of u.
func (r *Repo) Update(ctx context.Context, u *domuser.User) error {
	return r.store.WithTx(ctx, func(ctx context.Context) error {
		res, err := r.store.Conn(ctx).ExecContext(ctx,
			`UPDATE users SET username = ?, email = ?, first_name = ?, last_name = ?,
			 profile_pic = ?, password = ? WHERE id = ?`,
			u.Username(), u.Email(), u.FirstName(), u.LastName(), u.ProfilePic(),
			u.PasswordHash(), u.ID())
		if err != nil {
			return writeErr(fmt.Sprintf("update user %d", u.ID()), err)
		}
		if err := expectRow(res, "user", u.ID()); err != nil {
			return err
		}
		if tx, ok := storage.TxFromContext(ctx); ok {
			tx.TrackDirty(u)
		}
		return nil
	})
}

// Delete removes u. Ownerships and taggings cascade; books are kept.
func (r *Repo) Delete(ctx context.Context, u *domuser.User) error {
	return r.store.WithTx(ctx, func(ctx context.Context) error {
		res, err := r.store.Conn(ctx).ExecContext(ctx, "DELETE FROM users WHERE id = ?", u.ID())
		if err != nil {
			return fmt.Errorf("delete user %d: %w", u.ID(), storage.MapError(err))
		}
		if err := expectRow(res, "user", u.ID()); err != nil {
			return err
		}
		if tx, ok := storage.TxFromContext(ctx); ok {
			tx.TrackDeleted(u)
		}
		return nil
	})
}

// Get returns the user with id.
func (r *Repo) Get(ctx context.Context, id int64) (*domuser.User, error) {
	return r.getBy(ctx, "id", id)
}

// GetByEmail returns the user registered with email.
func (r *Repo) GetByEmail(ctx context.Context, email string) (*domuser.User, error) {
	return r.getBy(ctx, "email", email)
}

// GetByUsername returns the user with username.
func (r *Repo) GetByUsername(ctx context.Context, username string) (*domuser.User, error) {
	return r.getBy(ctx, "username", username)
}

func (r *Repo) getBy(ctx context.Context, column string, value any) (*domuser.User, error) {
	row := r.store.Conn(ctx).QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE "+column+" = ?", value)
	u, err := scanUser(row)
	if err != nil {
		if errors.Is(storage.MapError(err), storage.ErrNotFound) {
			return nil, fmt.Errorf("get user by %s: %w", column, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get user by %s: %w", column, err)
	}
	return u, nil
}

// AddOwnership puts a book in the user's collection. A book already owned
// yields domain.ErrAlreadyExists.
func (r *Repo) AddOwnership(ctx context.Context, userID, bookID int64, at time.Time) error {
	_, err := r.store.Conn(ctx).ExecContext(ctx,
		"INSERT INTO ownership (user_id, book_id, date_added) VALUES (?, ?, ?)",
		userID, bookID, at.UTC())
	if err != nil {
		return writeErr(fmt.Sprintf("add book %d to user %d", bookID, userID), err)
	}
	return nil
}

// RemoveOwnership takes a book out of the user's collection.
func (r *Repo) RemoveOwnership(ctx context.Context, userID, bookID int64) error {
	res, err := r.store.Conn(ctx).ExecContext(ctx,
		"DELETE FROM ownership WHERE user_id = ? AND book_id = ?", userID, bookID)
	if err != nil {
		return fmt.Errorf("remove book %d from user %d: %w", bookID, userID, err)
	}
	return expectRow(res, "ownership of book", bookID)
}

// Owns reports whether the book is in the user's collection.
func (r *Repo) Owns(ctx context.Context, userID, bookID int64) (bool, error) {
	var n int
	err := r.store.Conn(ctx).QueryRowContext(ctx,
		"SELECT COUNT(*) FROM ownership WHERE user_id = ? AND book_id = ?", userID, bookID).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check ownership: %w", err)
	}
	return n > 0, nil
}

// Books lists the user's collection, most recently added first.
func (r *Repo) Books(ctx context.Context, userID int64) ([]dombook.Owned, error) {
	rows, err := r.store.Conn(ctx).QueryContext(ctx,
		`SELECT b.id, b.title, b.author, b.num_pages, b.isbn, o.date_added
		 FROM ownership o JOIN books b ON b.id = o.book_id
		 WHERE o.user_id = ?
		 ORDER BY o.date_added DESC, b.id DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list books of user %d: %w", userID, err)
	}
	defer func() { _ = rows.Close() }()

	out := []dombook.Owned{}
	for rows.Next() {
		owned, err := scanOwned(rows)
		if err != nil {
			return nil, fmt.Errorf("scan owned book: %w", err)
		}
		out = append(out, owned)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list books of user %d: %w", userID, err)
	}
	return out, nil
}

// Stats returns the number of books and the total page count of the user's collection.
func (r *Repo) Stats(ctx context.Context, userID int64) (domuser.Stats, error) {
	var s domuser.Stats
	err := r.store.Conn(ctx).QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(b.num_pages), 0)
		 FROM ownership o JOIN books b ON b.id = o.book_id
		 WHERE o.user_id = ?`, userID).Scan(&s.Books, &s.Pages)
	if err != nil {
		return domuser.Stats{}, fmt.Errorf("stats of user %d: %w", userID, err)
	}
	return s, nil
}

func writeErr(op string, err error) error {
	mapped := storage.MapError(err)
	switch {
	case errors.Is(mapped, storage.ErrConstraint):
		return fmt.Errorf("%s: %w", op, domain.ErrAlreadyExists)
	case errors.Is(mapped, storage.ErrForeignKey):
		return fmt.Errorf("%s: %w", op, domain.ErrNotFound)
	}
	return fmt.Errorf("%s: %w", op, mapped)
}

func expectRow(res interface{ RowsAffected() (int64, error) }, what string, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s %d: %w", what, id, domain.ErrNotFound)
	}
	return nil
}
