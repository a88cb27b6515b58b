package tag

import (
	"context"
	"errors"
	"testing"

	"github.com/kailas-cloud/seshat/internal/domain"
	"github.com/kailas-cloud/seshat/internal/domain/tagging"
	"github.com/kailas-cloud/seshat/internal/storage"
)

// seed creates one user owning one book and returns their ids.
func seed(t *testing.T) (*Repo, *storage.Store, int64, int64) {
	t.Helper()
	ctx := context.Background()
	s, err := storage.Open(ctx, ":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })

	exec := func(q string, args ...any) int64 {
		res, err := s.Conn(ctx).ExecContext(ctx, q, args...)
		if err != nil {
			t.Fatalf("%s: %v", q, err)
		}
		id, _ := res.LastInsertId()
		return id
	}
	uid := exec("INSERT INTO users (username, email, password) VALUES ('ann', 'ann@example.com', 'x')")
	bid := exec("INSERT INTO books (title, author) VALUES ('Dune', 'Frank Herbert')")
	exec("INSERT INTO ownership (user_id, book_id, date_added) VALUES (?, ?, CURRENT_TIMESTAMP)", uid, bid)
	return New(s), s, uid, bid
}

func mustTag(t *testing.T, uid, bid int64, name string) *tagging.Tagging {
	t.Helper()
	tg, err := tagging.New(uid, bid, name)
	if err != nil {
		t.Fatalf("new tagging: %v", err)
	}
	return &tg
}

func TestAddListRemove(t *testing.T) {
	repo, _, uid, bid := seed(t)
	ctx := context.Background()

	for _, name := range []string{"Sci-Fi", "classic"} {
		if err := repo.Add(ctx, mustTag(t, uid, bid, name)); err != nil {
			t.Fatalf("Add(%s): %v", name, err)
		}
	}
	if err := repo.Add(ctx, mustTag(t, uid, bid, "SCI-FI")); !errors.Is(err, domain.ErrAlreadyExists) {
		t.Errorf("duplicate tag: expected ErrAlreadyExists, got %v", err)
	}

	tags, err := repo.List(ctx, uid, bid)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(tags) != 2 || tags[0].Name() != "classic" || tags[1].Name() != "sci-fi" {
		t.Fatalf("unexpected tags: %+v", tags)
	}

	if err := repo.Remove(ctx, uid, bid, "classic"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if err := repo.Remove(ctx, uid, bid, "classic"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestAdd_BookNotOwned(t *testing.T) {
	repo, _, uid, _ := seed(t)
	if err := repo.Add(context.Background(), mustTag(t, uid, 999, "x")); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestTagsGoWithOwnership(t *testing.T) {
	repo, s, uid, bid := seed(t)
	ctx := context.Background()
	_ = repo.Add(ctx, mustTag(t, uid, bid, "keep"))

	if _, err := s.Conn(ctx).ExecContext(ctx,
		"DELETE FROM ownership WHERE user_id = ? AND book_id = ?", uid, bid); err != nil {
		t.Fatalf("delete ownership: %v", err)
	}
	tags, err := repo.List(ctx, uid, bid)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(tags) != 0 {
		t.Errorf("tags survived ownership removal: %+v", tags)
	}
}
