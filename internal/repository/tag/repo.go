package tag

import (
	"context"
	"errors"
	"fmt"

	"github.com/kailas-cloud/seshat/internal/domain"
	"github.com/kailas-cloud/seshat/internal/domain/tagging"
	"github.com/kailas-cloud/seshat/internal/storage"
)

// store is the consumer interface for taggings (ISP).
type store interface {
	Conn(ctx context.Context) storage.Querier
}

// Repo stores per-user book tags.
type Repo struct {
	store store
}

// New creates a tag repository.
func New(s store) *Repo {
	return &Repo{store: s}
}

// Add stores t. The book must be in the user's collection.
func (r *Repo) Add(ctx context.Context, t *tagging.Tagging) error {
	res, err := r.store.Conn(ctx).ExecContext(ctx,
		"INSERT INTO taggings (user_id, book_id, name) VALUES (?, ?, ?)",
		t.UserID(), t.BookID(), t.Name())
	if err != nil {
		mapped := storage.MapError(err)
		switch {
		case errors.Is(mapped, storage.ErrConstraint):
			return fmt.Errorf("tag %q: %w", t.Name(), domain.ErrAlreadyExists)
		case errors.Is(mapped, storage.ErrForeignKey):
			return fmt.Errorf("tag book %d: %w", t.BookID(), domain.ErrNotFound)
		}
		return fmt.Errorf("insert tag: %w", mapped)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("insert tag: %w", err)
	}
	t.SetID(id)
	return nil
}

// List returns the user's tags on a book in name order.
func (r *Repo) List(ctx context.Context, userID, bookID int64) ([]tagging.Tagging, error) {
	rows, err := r.store.Conn(ctx).QueryContext(ctx,
		"SELECT id, user_id, book_id, name FROM taggings WHERE user_id = ? AND book_id = ? ORDER BY name",
		userID, bookID)
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := []tagging.Tagging{}
	for rows.Next() {
		var id, uid, bid int64
		var name string
		if err := rows.Scan(&id, &uid, &bid, &name); err != nil {
			return nil, fmt.Errorf("scan tag: %w", err)
		}
		out = append(out, tagging.Reconstruct(id, uid, bid, name))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	return out, nil
}

// Remove deletes one tag by name.
func (r *Repo) Remove(ctx context.Context, userID, bookID int64, name string) error {
	res, err := r.store.Conn(ctx).ExecContext(ctx,
		"DELETE FROM taggings WHERE user_id = ? AND book_id = ? AND name = ?", userID, bookID, name)
	if err != nil {
		return fmt.Errorf("remove tag: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("tag %q: %w", name, domain.ErrNotFound)
	}
	return nil
}
