package search

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
)

// --- Fakes ---

type testEntity struct {
	ns    string
	id    int64
	title string
	body  string
}

func (e *testEntity) SearchNamespace() string { return e.ns }
func (e *testEntity) SearchID() int64         { return e.id }
func (e *testEntity) SearchValue(field string) string {
	switch field {
	case "title":
		return e.title
	case "body":
		return e.body
	}
	return ""
}

// notSearchable does not implement Entity.
type notSearchable struct{ id int64 }

// memBackend is an in-memory Backend: substring match, ascending id order.
type memBackend struct {
	mu       sync.Mutex
	docs     map[string]map[int64]Document
	upserts  int
	deletes  int
	queryErr error
	writeErr error
}

func newMemBackend() *memBackend {
	return &memBackend{docs: make(map[string]map[int64]Document)}
}

func (m *memBackend) Upsert(_ context.Context, doc Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.writeErr != nil {
		return m.writeErr
	}
	if m.docs[doc.Namespace] == nil {
		m.docs[doc.Namespace] = make(map[int64]Document)
	}
	m.docs[doc.Namespace][doc.ID] = doc
	m.upserts++
	return nil
}

func (m *memBackend) Delete(_ context.Context, namespace string, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.writeErr != nil {
		return m.writeErr
	}
	delete(m.docs[namespace], id)
	m.deletes++
	return nil
}

func (m *memBackend) Query(_ context.Context, namespace, expr string, offset, limit int) (Page, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.queryErr != nil {
		return Page{}, m.queryErr
	}
	var ids []int64
	for id, doc := range m.docs[namespace] {
		if strings.Contains(strings.ToLower(doc.Text()), strings.ToLower(expr)) {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	total := len(ids)
	if offset > len(ids) {
		offset = len(ids)
	}
	end := min(offset+limit, len(ids))
	return Page{IDs: ids[offset:end], Total: total}, nil
}

func (m *memBackend) Ping(context.Context) error { return nil }

func (m *memBackend) count(namespace string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.docs[namespace])
}

func (m *memBackend) has(namespace string, id int64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.docs[namespace][id]
	return ok
}

// batchBackend records UpsertMany calls.
type batchBackend struct {
	*memBackend
	batches []int
}

func (b *batchBackend) UpsertMany(ctx context.Context, docs []Document) error {
	b.batches = append(b.batches, len(docs))
	for _, d := range docs {
		if err := b.Upsert(ctx, d); err != nil {
			return err
		}
	}
	return nil
}

// stubBackend returns a fixed page for every query.
type stubBackend struct {
	memBackend
	page Page
}

func (s *stubBackend) Query(context.Context, string, string, int, int) (Page, error) {
	return s.page, nil
}

// fakeTx implements Transaction.
type fakeTx struct {
	active  bool
	added   []any
	dirty   []any
	deleted []any
	before  []func(context.Context) error
	after   []func(context.Context)
}

func newFakeTx() *fakeTx { return &fakeTx{active: true} }

func (t *fakeTx) Active() bool   { return t.active }
func (t *fakeTx) New() []any     { return t.added }
func (t *fakeTx) Dirty() []any   { return t.dirty }
func (t *fakeTx) Deleted() []any { return t.deleted }

func (t *fakeTx) BeforeCommit(fn func(context.Context) error) { t.before = append(t.before, fn) }
func (t *fakeTx) AfterCommit(fn func(context.Context))        { t.after = append(t.after, fn) }

func (t *fakeTx) Commit(ctx context.Context) error {
	for _, fn := range t.before {
		if err := fn(ctx); err != nil {
			t.active = false
			return err
		}
	}
	t.active = false
	for _, fn := range t.after {
		fn(ctx)
	}
	return nil
}

func (t *fakeTx) Rollback() { t.active = false }

var errBackendDown = errors.New("connection refused")

func testRegistry(t interface{ Fatalf(string, ...any) }, scan func(context.Context, func(Entity) error) error) *Registry {
	r := NewRegistry()
	if err := r.Register(Kind{Namespace: "book", Fields: []string{"title", "body"}, Scan: scan}); err != nil {
		t.Fatalf("register: %v", err)
	}
	return r
}

func ids[T Entity](rows []T) []int64 {
	out := make([]int64, len(rows))
	for i, r := range rows {
		out[i] = r.SearchID()
	}
	return out
}

func equalIDs(a, b []int64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
