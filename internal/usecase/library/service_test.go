package library

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/kailas-cloud/seshat/internal/domain"
	dombook "github.com/kailas-cloud/seshat/internal/domain/book"
	"github.com/kailas-cloud/seshat/internal/domain/tagging"
)

// --- Mocks ---

type mockTx struct {
	calls int
}

func (m *mockTx) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	m.calls++
	return fn(ctx)
}

type ownKey struct{ user, book int64 }

// memLibrary implements every repository contract over maps.
type memLibrary struct {
	nextID  int64
	books   map[int64]*dombook.Book
	owners  map[ownKey]time.Time
	tags    map[ownKey][]string
	deleted []int64
	getErr  error
}

func newMemLibrary() *memLibrary {
	return &memLibrary{
		books:  map[int64]*dombook.Book{},
		owners: map[ownKey]time.Time{},
		tags:   map[ownKey][]string{},
	}
}

func (m *memLibrary) Create(_ context.Context, b *dombook.Book) error {
	m.nextID++
	b.SetID(m.nextID)
	m.books[b.ID()] = b
	return nil
}

func (m *memLibrary) Update(_ context.Context, b *dombook.Book) error {
	if _, ok := m.books[b.ID()]; !ok {
		return domain.ErrNotFound
	}
	m.books[b.ID()] = b
	return nil
}

func (m *memLibrary) Delete(_ context.Context, b *dombook.Book) error {
	delete(m.books, b.ID())
	m.deleted = append(m.deleted, b.ID())
	return nil
}

func (m *memLibrary) Get(_ context.Context, id int64) (*dombook.Book, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	b, ok := m.books[id]
	if !ok {
		return nil, fmt.Errorf("book %d: %w", id, domain.ErrNotFound)
	}
	return b, nil
}

func (m *memLibrary) GetByTitle(_ context.Context, title string) (*dombook.Book, error) {
	for _, b := range m.books {
		if b.Title() == title {
			return b, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memLibrary) OwnerCount(_ context.Context, id int64) (int, error) {
	n := 0
	for k := range m.owners {
		if k.book == id {
			n++
		}
	}
	return n, nil
}

func (m *memLibrary) AddOwnership(_ context.Context, userID, bookID int64, at time.Time) error {
	k := ownKey{userID, bookID}
	if _, ok := m.owners[k]; ok {
		return domain.ErrAlreadyExists
	}
	m.owners[k] = at
	return nil
}

func (m *memLibrary) RemoveOwnership(_ context.Context, userID, bookID int64) error {
	k := ownKey{userID, bookID}
	if _, ok := m.owners[k]; !ok {
		return domain.ErrNotFound
	}
	delete(m.owners, k)
	return nil
}

func (m *memLibrary) Owns(_ context.Context, userID, bookID int64) (bool, error) {
	_, ok := m.owners[ownKey{userID, bookID}]
	return ok, nil
}

func (m *memLibrary) Books(_ context.Context, userID int64) ([]dombook.Owned, error) {
	var out []dombook.Owned
	for k, at := range m.owners {
		if k.user == userID {
			out = append(out, dombook.Owned{Book: m.books[k.book], DateAdded: at})
		}
	}
	return out, nil
}

type memTags struct{ lib *memLibrary }

func (m memTags) Add(_ context.Context, t *tagging.Tagging) error {
	k := ownKey{t.UserID(), t.BookID()}
	for _, n := range m.lib.tags[k] {
		if n == t.Name() {
			return domain.ErrAlreadyExists
		}
	}
	m.lib.tags[k] = append(m.lib.tags[k], t.Name())
	return nil
}

func (m memTags) List(_ context.Context, userID, bookID int64) ([]tagging.Tagging, error) {
	var out []tagging.Tagging
	for i, n := range m.lib.tags[ownKey{userID, bookID}] {
		out = append(out, tagging.Reconstruct(int64(i+1), userID, bookID, n))
	}
	return out, nil
}

func (m memTags) Remove(_ context.Context, userID, bookID int64, name string) error {
	k := ownKey{userID, bookID}
	for i, n := range m.lib.tags[k] {
		if n == name {
			m.lib.tags[k] = append(m.lib.tags[k][:i], m.lib.tags[k][i+1:]...)
			return nil
		}
	}
	return domain.ErrNotFound
}

func newTestService() (*Service, *memLibrary, *mockTx) {
	lib := newMemLibrary()
	tx := &mockTx{}
	return New(tx, lib, lib, memTags{lib}), lib, tx
}

func dune() BookInput {
	return BookInput{Title: "Dune", Author: "Frank Herbert", NumPages: 412}
}

// --- Tests ---

func TestAddBook_NewTitle(t *testing.T) {
	svc, lib, tx := newTestService()

	res, err := svc.AddBook(context.Background(), 1, dune())
	if err != nil {
		t.Fatalf("AddBook: %v", err)
	}
	if !res.Created || res.Book.ID() == 0 {
		t.Errorf("expected a created book, got %+v", res)
	}
	if owns, _ := lib.Owns(context.Background(), 1, res.Book.ID()); !owns {
		t.Error("book not in collection")
	}
	if tx.calls != 1 {
		t.Errorf("expected one transaction, got %d", tx.calls)
	}
}

func TestAddBook_ExistingTitleShared(t *testing.T) {
	svc, lib, _ := newTestService()
	ctx := context.Background()

	first, _ := svc.AddBook(ctx, 1, dune())
	second, err := svc.AddBook(ctx, 2, dune())
	if err != nil {
		t.Fatalf("AddBook: %v", err)
	}
	if second.Created || second.Book.ID() != first.Book.ID() {
		t.Errorf("expected shared book %d, got %+v", first.Book.ID(), second)
	}
	if len(lib.books) != 1 {
		t.Errorf("expected 1 catalog entry, got %d", len(lib.books))
	}
	if n, _ := lib.OwnerCount(ctx, first.Book.ID()); n != 2 {
		t.Errorf("expected 2 owners, got %d", n)
	}
}

func TestAddBook_AlreadyOwned(t *testing.T) {
	svc, lib, _ := newTestService()
	ctx := context.Background()

	_, _ = svc.AddBook(ctx, 1, dune())
	_, err := svc.AddBook(ctx, 1, dune())
	if !errors.Is(err, domain.ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}
	if len(lib.books) != 1 || len(lib.owners) != 1 {
		t.Errorf("duplicate add changed state: books=%d owners=%d", len(lib.books), len(lib.owners))
	}
}

func TestAddBook_Validation(t *testing.T) {
	svc, lib, tx := newTestService()

	_, err := svc.AddBook(context.Background(), 1, BookInput{Title: " ", Author: ""})
	var vErr *domain.ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if len(vErr.Fields["title"]) == 0 || len(vErr.Fields["author"]) == 0 {
		t.Errorf("expected title and author errors, got %v", vErr.Fields)
	}
	if tx.calls != 0 || len(lib.books) != 0 {
		t.Error("invalid input must not reach storage")
	}
}

func TestUpdateBook(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	res, _ := svc.AddBook(ctx, 1, dune())

	b, err := svc.UpdateBook(ctx, 1, res.Book.ID(), BookInput{Author: "F. Herbert", NumPages: 500, ISBN: "9780441013593"})
	if err != nil {
		t.Fatalf("UpdateBook: %v", err)
	}
	if b.Author() != "F. Herbert" || b.NumPages() != 500 || b.Title() != "Dune" {
		t.Errorf("unexpected book after update: %s/%s/%d", b.Title(), b.Author(), b.NumPages())
	}

	if _, err := svc.UpdateBook(ctx, 2, res.Book.ID(), dune()); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("non-owner update: expected ErrNotFound, got %v", err)
	}
	if _, err := svc.UpdateBook(ctx, 1, res.Book.ID(), BookInput{Author: "X", NumPages: -1}); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestRemoveFromCollection_OrphanDeleted(t *testing.T) {
	svc, lib, _ := newTestService()
	ctx := context.Background()
	res, _ := svc.AddBook(ctx, 1, dune())
	_, _ = svc.AddBook(ctx, 2, dune())

	if err := svc.RemoveFromCollection(ctx, 1, res.Book.ID()); err != nil {
		t.Fatalf("RemoveFromCollection: %v", err)
	}
	if len(lib.deleted) != 0 {
		t.Fatal("book with remaining owners deleted")
	}

	if err := svc.RemoveFromCollection(ctx, 2, res.Book.ID()); err != nil {
		t.Fatalf("RemoveFromCollection: %v", err)
	}
	if len(lib.deleted) != 1 || lib.deleted[0] != res.Book.ID() {
		t.Errorf("orphaned book not deleted: %v", lib.deleted)
	}
}

func TestRemoveFromCollection_NotOwned(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	res, _ := svc.AddBook(ctx, 1, dune())

	if err := svc.RemoveFromCollection(ctx, 2, res.Book.ID()); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if err := svc.RemoveFromCollection(ctx, 1, 999); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound for missing book, got %v", err)
	}
}

func TestGetBook(t *testing.T) {
	svc, lib, _ := newTestService()
	ctx := context.Background()
	res, _ := svc.AddBook(ctx, 1, dune())
	_, _ = svc.AddBook(ctx, 2, dune())

	v, err := svc.GetBook(ctx, res.Book.ID())
	if err != nil {
		t.Fatalf("GetBook: %v", err)
	}
	if v.Owners != 2 || v.Book.Title() != "Dune" {
		t.Errorf("unexpected view %+v", v)
	}

	lib.getErr = errors.New("disk I/O error")
	if _, err := svc.GetBook(ctx, res.Book.ID()); err == nil {
		t.Error("expected storage error")
	}
}

func TestMyBooks(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	_, _ = svc.AddBook(ctx, 1, dune())
	_, _ = svc.AddBook(ctx, 1, BookInput{Title: "Emma", Author: "Jane Austen"})

	books, err := svc.MyBooks(ctx, 1)
	if err != nil {
		t.Fatalf("MyBooks: %v", err)
	}
	if len(books) != 2 {
		t.Errorf("expected 2 books, got %d", len(books))
	}
}

func TestTags(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	res, _ := svc.AddBook(ctx, 1, dune())
	id := res.Book.ID()

	tg, err := svc.AddTag(ctx, 1, id, "  Sci-Fi ")
	if err != nil {
		t.Fatalf("AddTag: %v", err)
	}
	if tg.Name() != "sci-fi" {
		t.Errorf("expected normalized name, got %q", tg.Name())
	}
	if _, err := svc.AddTag(ctx, 1, id, "sci-fi"); !errors.Is(err, domain.ErrAlreadyExists) {
		t.Errorf("expected ErrAlreadyExists, got %v", err)
	}
	if _, err := svc.AddTag(ctx, 2, id, "mine"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("tagging an unowned book: expected ErrNotFound, got %v", err)
	}
	if _, err := svc.AddTag(ctx, 1, id, ""); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("expected validation error, got %v", err)
	}

	if err := svc.RemoveTag(ctx, 1, id, "SCI-FI"); err != nil {
		t.Fatalf("RemoveTag: %v", err)
	}
	tags, _ := svc.Tags(ctx, 1, id)
	if len(tags) != 0 {
		t.Errorf("expected no tags, got %d", len(tags))
	}
}
