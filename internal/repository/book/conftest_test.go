package book

import (
	"context"
	"strings"
	"sync"
	"testing"

	dombook "github.com/kailas-cloud/seshat/internal/domain/book"
	"github.com/kailas-cloud/seshat/internal/search"
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

func mustBook(t *testing.T, title, author string, pages int) *dombook.Book {
	t.Helper()
	b, err := dombook.New(title, author, pages, "")
	if err != nil {
		t.Fatalf("new book: %v", err)
	}
	return &b
}

func bookIDs(books []*dombook.Book) []int64 {
	out := make([]int64, len(books))
	for i, b := range books {
		out[i] = b.ID()
	}
	return out
}

// fakeIndex is an in-memory search.Backend matching any word of the indexed text.
type fakeIndex struct {
	mu   sync.Mutex
	docs map[int64]string
}

func newFakeIndex() *fakeIndex { return &fakeIndex{docs: make(map[int64]string)} }

func (f *fakeIndex) Upsert(ctx context.Context, doc search.Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.docs[doc.ID] = strings.ToLower(doc.Text())
	return nil
}

func (f *fakeIndex) Delete(ctx context.Context, _ string, id int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.docs, id)
	return nil
}

func (f *fakeIndex) Query(_ context.Context, _, expr string, offset, limit int) (search.Page, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var ids []int64
	for id, text := range f.docs {
		if strings.Contains(text, strings.ToLower(expr)) {
			ids = append(ids, id)
		}
	}
	total := len(ids)
	if offset > len(ids) {
		offset = len(ids)
	}
	ids = ids[offset:]
	if len(ids) > limit {
		ids = ids[:limit]
	}
	return search.Page{IDs: ids, Total: total}, nil
}

func (f *fakeIndex) Ping(context.Context) error { return nil }

func (f *fakeIndex) has(id int64) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.docs[id]
	return ok
}
