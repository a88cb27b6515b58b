package search

import (
	"context"
	"errors"
	"testing"
)

func TestCapture_OutsideTransaction(t *testing.T) {
	tx := newFakeTx()
	tx.active = false

	if _, err := Capture(tx); !errors.Is(err, ErrNoActiveTransaction) {
		t.Fatalf("expected ErrNoActiveTransaction, got %v", err)
	}
	if _, err := Capture(nil); !errors.Is(err, ErrNoActiveTransaction) {
		t.Fatalf("nil session: expected ErrNoActiveTransaction, got %v", err)
	}
}

func TestCapture_HoldsReferences(t *testing.T) {
	tx := newFakeTx()
	e := &testEntity{ns: "book", id: 1, title: "draft"}
	tx.added = []any{e}

	cs, err := Capture(tx)
	if err != nil {
		t.Fatalf("Capture: %v", err)
	}
	e.title = "final"

	got := cs.Added[0].(*testEntity)
	if got.title != "final" {
		t.Errorf("change set should see final state, got %q", got.title)
	}
	if cs.Len() != 1 {
		t.Errorf("Len() = %d", cs.Len())
	}
}

func TestApply_UpsertsAndDeletes(t *testing.T) {
	backend := newMemBackend()
	c := NewClient(backend, testRegistry(t, nil), nil)
	s := NewSynchronizer(c, nil)
	ctx := context.Background()

	gone := &testEntity{ns: "book", id: 2, title: "old"}
	_ = c.AddToIndex(ctx, "book", gone)

	cs := &ChangeSet{
		Added:   []any{&testEntity{ns: "book", id: 1, title: "new"}},
		Updated: []any{&testEntity{ns: "book", id: 3, title: "edited"}},
		Deleted: []any{gone},
	}
	if err := s.Apply(ctx, cs); err != nil {
		t.Fatalf("Apply: %v", err)
	}

	if !backend.has("book", 1) || !backend.has("book", 3) {
		t.Error("added/updated entities missing from index")
	}
	if backend.has("book", 2) {
		t.Error("deleted entity still indexed")
	}
	if !cs.Consumed() || cs.Len() != 0 {
		t.Error("change set must be discarded after apply")
	}
}

func TestApply_SkipsNonSearchable(t *testing.T) {
	backend := newMemBackend()
	s := NewSynchronizer(NewClient(backend, testRegistry(t, nil), nil), nil)

	cs := &ChangeSet{
		Added: []any{
			&notSearchable{id: 1},
			&testEntity{ns: "ownership", id: 2}, // implements Entity, not registered
			&testEntity{ns: "book", id: 3, title: "kept"},
		},
	}
	if err := s.Apply(context.Background(), cs); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if backend.upserts != 1 {
		t.Errorf("expected 1 upsert, got %d", backend.upserts)
	}
}

func TestApply_TwiceIsNoop(t *testing.T) {
	backend := newMemBackend()
	s := NewSynchronizer(NewClient(backend, testRegistry(t, nil), nil), nil)
	cs := &ChangeSet{Added: []any{&testEntity{ns: "book", id: 1}}}

	_ = s.Apply(context.Background(), cs)
	_ = s.Apply(context.Background(), cs)

	if backend.upserts != 1 {
		t.Errorf("stale change set replayed: %d upserts", backend.upserts)
	}
}

func TestApply_BackendFailureReported(t *testing.T) {
	backend := newMemBackend()
	backend.writeErr = errBackendDown
	s := NewSynchronizer(NewClient(backend, testRegistry(t, nil), nil), nil)

	cs := &ChangeSet{
		Added:   []any{&testEntity{ns: "book", id: 1}},
		Deleted: []any{&testEntity{ns: "book", id: 2}},
	}
	err := s.Apply(context.Background(), cs)
	if !errors.Is(err, errBackendDown) {
		t.Fatalf("expected joined backend error, got %v", err)
	}
	if !cs.Consumed() {
		t.Error("failed change set must still be discarded")
	}
}

func TestApply_DisabledClient(t *testing.T) {
	s := NewSynchronizer(NewClient(nil, testRegistry(t, nil), nil), nil)
	cs := &ChangeSet{Added: []any{&testEntity{ns: "book", id: 1}}}
	if err := s.Apply(context.Background(), cs); err != nil {
		t.Fatalf("Apply: %v", err)
	}
}

func TestBind_CommitAppliesChanges(t *testing.T) {
	backend := newMemBackend()
	s := NewSynchronizer(NewClient(backend, testRegistry(t, nil), nil), nil)
	ctx := context.Background()

	tx := newFakeTx()
	s.Bind(tx)
	e := &testEntity{ns: "book", id: 7, title: "Dune"}
	tx.added = append(tx.added, e)

	if backend.has("book", 7) {
		t.Fatal("index written before commit")
	}
	if err := tx.Commit(ctx); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if !backend.has("book", 7) {
		t.Fatal("entity not indexed after commit")
	}

	tx2 := newFakeTx()
	s.Bind(tx2)
	tx2.deleted = append(tx2.deleted, e)
	_ = tx2.Commit(ctx)
	if backend.has("book", 7) {
		t.Fatal("entity still indexed after delete commit")
	}
}

func TestBind_RollbackNeverApplies(t *testing.T) {
	backend := newMemBackend()
	s := NewSynchronizer(NewClient(backend, testRegistry(t, nil), nil), nil)

	tx := newFakeTx()
	s.Bind(tx)
	tx.added = append(tx.added, &testEntity{ns: "book", id: 1})
	tx.Rollback()

	if backend.upserts != 0 {
		t.Errorf("rolled back transaction reached the index")
	}
}

func TestBind_IndexFailureDoesNotFailCommit(t *testing.T) {
	backend := newMemBackend()
	backend.writeErr = errBackendDown
	s := NewSynchronizer(NewClient(backend, testRegistry(t, nil), nil), nil)

	tx := newFakeTx()
	s.Bind(tx)
	tx.added = append(tx.added, &testEntity{ns: "book", id: 1})
	if err := tx.Commit(context.Background()); err != nil {
		t.Fatalf("commit must succeed despite index failure: %v", err)
	}
}

func TestReindex_FullSweep(t *testing.T) {
	rows := []*testEntity{
		{ns: "book", id: 1, title: "a"},
		{ns: "book", id: 2, title: "b"},
		{ns: "book", id: 3, title: "c"},
	}
	scan := func(_ context.Context, fn func(Entity) error) error {
		for _, r := range rows {
			if err := fn(r); err != nil {
				return err
			}
		}
		return nil
	}
	backend := newMemBackend()
	s := NewSynchronizer(NewClient(backend, testRegistry(t, scan), nil), nil)

	n, err := s.Reindex(context.Background(), "book")
	if err != nil {
		t.Fatalf("Reindex: %v", err)
	}
	if n != 3 || backend.count("book") != 3 {
		t.Errorf("expected 3 rows reindexed, got n=%d indexed=%d", n, backend.count("book"))
	}

	counts, err := s.ReindexAll(context.Background())
	if err != nil {
		t.Fatalf("ReindexAll: %v", err)
	}
	if counts["book"] != 3 {
		t.Errorf("ReindexAll counts = %v", counts)
	}
	if backend.count("book") != 3 {
		t.Errorf("reindex must not duplicate entries, got %d", backend.count("book"))
	}
}

func TestReindex_UnknownAndDisabled(t *testing.T) {
	s := NewSynchronizer(NewClient(nil, testRegistry(t, nil), nil), nil)

	if _, err := s.Reindex(context.Background(), "author"); !errors.Is(err, ErrUnknownNamespace) {
		t.Errorf("expected ErrUnknownNamespace, got %v", err)
	}
	n, err := s.Reindex(context.Background(), "book")
	if err != nil || n != 0 {
		t.Errorf("disabled reindex: n=%d err=%v", n, err)
	}
}

func TestReindex_BatchesUpserts(t *testing.T) {
	total := 2*ReindexBatchSize + 5
	scan := func(_ context.Context, fn func(Entity) error) error {
		for id := 1; id <= total; id++ {
			if err := fn(&testEntity{ns: "book", id: int64(id), title: "t"}); err != nil {
				return err
			}
		}
		return nil
	}
	backend := &batchBackend{memBackend: newMemBackend()}
	s := NewSynchronizer(NewClient(backend, testRegistry(t, scan), nil), nil)

	n, err := s.Reindex(context.Background(), "book")
	if err != nil {
		t.Fatalf("Reindex: %v", err)
	}
	if n != total || backend.count("book") != total {
		t.Errorf("n=%d indexed=%d, want %d", n, backend.count("book"), total)
	}
	want := []int{ReindexBatchSize, ReindexBatchSize, 5}
	if len(backend.batches) != len(want) {
		t.Fatalf("batches = %v, want %v", backend.batches, want)
	}
	for i := range want {
		if backend.batches[i] != want[i] {
			t.Errorf("batches = %v, want %v", backend.batches, want)
		}
	}
}
