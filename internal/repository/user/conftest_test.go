package user

import (
	"context"
	"testing"

	dombook "github.com/kailas-cloud/seshat/internal/domain/book"
	domuser "github.com/kailas-cloud/seshat/internal/domain/user"
	"github.com/kailas-cloud/seshat/internal/storage"
)

func newTestRepo(t *testing.T) (*Repo, *storage.Store) {
	t.Helper()
	s, err := storage.Open(context.Background(), ":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return New(s), s
}

func createUser(t *testing.T, r *Repo, username string) *domuser.User {
	t.Helper()
	u, err := domuser.New(username, username+"@example.com", "$2a$10$hash")
	if err != nil {
		t.Fatalf("new user: %v", err)
	}
	if err := r.Create(context.Background(), &u); err != nil {
		t.Fatalf("create user: %v", err)
	}
	return &u
}

func createBook(t *testing.T, s *storage.Store, title string, pages int) int64 {
	t.Helper()
	ctx := context.Background()
	b, err := dombook.New(title, "Someone", pages, "")
	if err != nil {
		t.Fatalf("new book: %v", err)
	}
	res, err := s.Conn(ctx).ExecContext(ctx,
		"INSERT INTO books (title, author, num_pages) VALUES (?, ?, ?)", b.Title(), b.Author(), b.NumPages())
	if err != nil {
		t.Fatalf("insert book: %v", err)
	}
	id, _ := res.LastInsertId()
	return id
}
