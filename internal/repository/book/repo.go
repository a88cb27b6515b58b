package book

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kailas-cloud/seshat/internal/domain"
	dombook "github.com/kailas-cloud/seshat/internal/domain/book"
	"github.com/kailas-cloud/seshat/internal/search"
	"github.com/kailas-cloud/seshat/internal/storage"
)

// scanBatch is the number of rows fetched per round trip during a full scan.
const scanBatch = 500

// store is the consumer interface for books (ISP).
type store interface {
	Conn(ctx context.Context) storage.Querier
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Repo implements the book repository used by the library and search use cases.
type Repo struct {
	store store
}

// New creates a book repository.
func New(s store) *Repo {
	return &Repo{store: s}
}

// SearchKind declares books as searchable on title, author and isbn.
func (r *Repo) SearchKind() search.Kind {
	return search.Kind{
		Namespace: dombook.Namespace,
		Fields:    dombook.SearchFields,
		Scan: func(ctx context.Context, fn func(search.Entity) error) error {
			return r.Scan(ctx, func(b *dombook.Book) error { return fn(b) })
		},
	}
}

// Create inserts b and assigns its id.
func (r *Repo) Create(ctx context.Context, b *dombook.Book) error {
	return r.store.WithTx(ctx, func(ctx context.Context) error {
		res, err := r.store.Conn(ctx).ExecContext(ctx,
			"INSERT INTO books (title, author, num_pages, isbn) VALUES (?, ?, ?, ?)",
			b.Title(), b.Author(), nullPages(b.NumPages()), nullString(b.ISBN()))
		if err != nil {
			return fmt.Errorf("insert book: %w", storage.MapError(err))
		}
		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("insert book: %w", err)
		}
		b.SetID(id)
		if tx, ok := storage.TxFromContext(ctx); ok {
			tx.TrackNew(b)
		}
		return nil
	})
}

// Update writes the mutable fields of b.
func (r *Repo) Update(ctx context.Context, b *dombook.Book) error {
	return r.store.WithTx(ctx, func(ctx context.Context) error {
		res, err := r.store.Conn(ctx).ExecContext(ctx,
			"UPDATE books SET title = ?, author = ?, num_pages = ?, isbn = ? WHERE id = ?",
			b.Title(), b.Author(), nullPages(b.NumPages()), nullString(b.ISBN()), b.ID())
		if err != nil {
			return fmt.Errorf("update book %d: %w", b.ID(), storage.MapError(err))
		}
		if err := expectRow(res, b.ID()); err != nil {
			return err
		}
		if tx, ok := storage.TxFromContext(ctx); ok {
			tx.TrackDirty(b)
		}
		return nil
	})
}

// Delete removes b. Ownerships and taggings cascade.
func (r *Repo) Delete(ctx context.Context, b *dombook.Book) error {
	return r.store.WithTx(ctx, func(ctx context.Context) error {
		res, err := r.store.Conn(ctx).ExecContext(ctx, "DELETE FROM books WHERE id = ?", b.ID())
		if err != nil {
			return fmt.Errorf("delete book %d: %w", b.ID(), storage.MapError(err))
		}
		if err := expectRow(res, b.ID()); err != nil {
			return err
		}
		if tx, ok := storage.TxFromContext(ctx); ok {
			tx.TrackDeleted(b)
		}
		return nil
	})
}

// Get returns the book with id.
func (r *Repo) Get(ctx context.Context, id int64) (*dombook.Book, error) {
	row := r.store.Conn(ctx).QueryRowContext(ctx,
		"SELECT "+bookColumns+" FROM books WHERE id = ?", id)
	b, err := scanBook(row)
	if err != nil {
		return nil, notFound(err, fmt.Sprintf("get book %d", id))
	}
	return b, nil
}

// GetByTitle returns the first book with exactly this title.
func (r *Repo) GetByTitle(ctx context.Context, title string) (*dombook.Book, error) {
	row := r.store.Conn(ctx).QueryRowContext(ctx,
		"SELECT "+bookColumns+" FROM books WHERE title = ? ORDER BY id LIMIT 1", title)
	b, err := scanBook(row)
	if err != nil {
		return nil, notFound(err, fmt.Sprintf("get book by title %q", title))
	}
	return b, nil
}

// GetMany loads books by id, ordered as in ids. Missing ids are skipped.
func (r *Repo) GetMany(ctx context.Context, ids []int64) ([]*dombook.Book, error) {
	if len(ids) == 0 {
		return []*dombook.Book{}, nil
	}

	args := make([]any, 0, len(ids)*3)
	for _, id := range ids {
		args = append(args, id)
	}
	var order strings.Builder
	order.WriteString("CASE id")
	for i, id := range ids {
		order.WriteString(" WHEN ? THEN ?")
		args = append(args, id, i)
	}
	order.WriteString(" END")

	query := "SELECT " + bookColumns + " FROM books WHERE id IN (" +
		storage.Placeholders(len(ids)) + ") ORDER BY " + order.String()

	rows, err := r.store.Conn(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("get books: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := make([]*dombook.Book, 0, len(ids))
	for rows.Next() {
		b, err := scanBook(rows)
		if err != nil {
			return nil, fmt.Errorf("scan book: %w", err)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("get books: %w", err)
	}
	return out, nil
}

// Scan calls fn for every book in id order. Rows are read in batches so the
// connection is released while fn runs.
func (r *Repo) Scan(ctx context.Context, fn func(*dombook.Book) error) error {
	var after int64
	for {
		batch, err := r.scanAfter(ctx, after)
		if err != nil {
			return err
		}
		for _, b := range batch {
			if err := fn(b); err != nil {
				return err
			}
		}
		if len(batch) < scanBatch {
			return nil
		}
		after = batch[len(batch)-1].ID()
	}
}

func (r *Repo) scanAfter(ctx context.Context, after int64) ([]*dombook.Book, error) {
	rows, err := r.store.Conn(ctx).QueryContext(ctx,
		"SELECT "+bookColumns+" FROM books WHERE id > ? ORDER BY id LIMIT ?", after, scanBatch)
	if err != nil {
		return nil, fmt.Errorf("scan books: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*dombook.Book
	for rows.Next() {
		b, err := scanBook(rows)
		if err != nil {
			return nil, fmt.Errorf("scan book: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// OwnerCount returns how many users own the book.
func (r *Repo) OwnerCount(ctx context.Context, id int64) (int, error) {
	var n int
	err := r.store.Conn(ctx).QueryRowContext(ctx,
		"SELECT COUNT(*) FROM ownership WHERE book_id = ?", id).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count owners of book %d: %w", id, err)
	}
	return n, nil
}

func expectRow(res interface{ RowsAffected() (int64, error) }, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("book %d: %w", id, domain.ErrNotFound)
	}
	return nil
}

func notFound(err error, op string) error {
	if errors.Is(storage.MapError(err), storage.ErrNotFound) {
		return fmt.Errorf("%s: %w", op, domain.ErrNotFound)
	}
	return fmt.Errorf("%s: %w", op, err)
}
