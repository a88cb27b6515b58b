package storage

import (
	"context"
	"database/sql"
	"fmt"
	"slices"
	"sync"
)

type txState int

const (
	txActive txState = iota
	txCommitted
	txRolledBack
)

type txKey struct{}

// ContextWithTx stores tx in the context.
func ContextWithTx(ctx context.Context, tx *Tx) context.Context {
	return context.WithValue(ctx, txKey{}, tx)
}

// TxFromContext extracts an active transaction from the context.
func TxFromContext(ctx context.Context) (*Tx, bool) {
	tx, ok := ctx.Value(txKey{}).(*Tx)
	if !ok || !tx.Active() {
		return nil, false
	}
	return tx, true
}

// Tx wraps a SQL transaction. It records the entities written through it and
// runs registered hooks around the commit.
//
// Tracked entities must be pointers. Entities that report a namespace and a
// persisted id are identified by that pair, so two loads of the same row count
// as one entity; anything else is identified by pointer. The three lists stay
// disjoint.
type Tx struct {
	tx *sql.Tx

	mu      sync.Mutex
	state   txState
	added   []any
	dirty   []any
	deleted []any
	before  []func(ctx context.Context) error
	after   []func(ctx context.Context)
}

// Querier exposes the underlying transaction.
func (t *Tx) Querier() Querier { return t.tx }

// Active implements search.Session.
func (t *Tx) Active() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state == txActive
}

// New implements search.Session.
func (t *Tx) New() []any {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]any(nil), t.added...)
}

// Dirty implements search.Session.
func (t *Tx) Dirty() []any {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]any(nil), t.dirty...)
}

// Deleted implements search.Session.
func (t *Tx) Deleted() []any {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]any(nil), t.deleted...)
}

// TrackNew records an inserted entity.
func (t *Tx) TrackNew(obj any) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.added = upsert(t.added, obj)
}

// TrackDirty records a modified entity. Entities inserted or deleted in the
// same transaction stay where they are.
func (t *Tx) TrackDirty(obj any) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if i := indexOf(t.added, obj); i >= 0 {
		t.added[i] = obj
		return
	}
	if indexOf(t.deleted, obj) >= 0 {
		return
	}
	t.dirty = upsert(t.dirty, obj)
}

// TrackDeleted records a deleted entity and forgets earlier inserts or updates of it.
func (t *Tx) TrackDeleted(obj any) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.added = remove(t.added, obj)
	t.dirty = remove(t.dirty, obj)
	if indexOf(t.deleted, obj) < 0 {
		t.deleted = append(t.deleted, obj)
	}
}

// BeforeCommit implements search.Transaction.
func (t *Tx) BeforeCommit(fn func(ctx context.Context) error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.before = append(t.before, fn)
}

// AfterCommit implements search.Transaction.
func (t *Tx) AfterCommit(fn func(ctx context.Context)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.after = append(t.after, fn)
}

// Commit runs the before-commit hooks, commits, then runs the after-commit
// hooks. A failing before-commit hook rolls the transaction back.
func (t *Tx) Commit(ctx context.Context) error {
	if !t.Active() {
		return ErrTxDone
	}

	t.mu.Lock()
	before := slices.Clone(t.before)
	t.mu.Unlock()

	for _, fn := range before {
		if err := fn(ctx); err != nil {
			_ = t.Rollback()
			return fmt.Errorf("before commit: %w", err)
		}
	}

	if err := t.tx.Commit(); err != nil {
		t.finish(txRolledBack)
		return fmt.Errorf("commit: %w", MapError(err))
	}

	// The data is committed; a cancelled caller must not stop the hooks.
	afterCtx := context.WithoutCancel(ctx)
	after := t.finish(txCommitted)
	for _, fn := range after {
		fn(afterCtx)
	}
	return nil
}

// Rollback aborts the transaction. After-commit hooks never run.
func (t *Tx) Rollback() error {
	if !t.Active() {
		return ErrTxDone
	}
	t.finish(txRolledBack)
	if err := t.tx.Rollback(); err != nil {
		return fmt.Errorf("rollback: %w", err)
	}
	return nil
}

// finish moves the transaction to its final state, clears pending state and
// returns the after-commit hooks.
func (t *Tx) finish(state txState) []func(context.Context) {
	t.mu.Lock()
	defer t.mu.Unlock()
	after := t.after
	t.state = state
	t.added, t.dirty, t.deleted = nil, nil, nil
	t.before, t.after = nil, nil
	return after
}

// identified is implemented by search entities.
type identified interface {
	SearchNamespace() string
	SearchID() int64
}

func sameEntity(a, b any) bool {
	if a == b {
		return true
	}
	ia, ok := a.(identified)
	if !ok {
		return false
	}
	ib, ok := b.(identified)
	if !ok || ia.SearchID() == 0 {
		return false
	}
	return ia.SearchID() == ib.SearchID() && ia.SearchNamespace() == ib.SearchNamespace()
}

func indexOf(list []any, obj any) int {
	for i, v := range list {
		if sameEntity(v, obj) {
			return i
		}
	}
	return -1
}

// upsert appends obj, or replaces the entry for the same entity so the list
// holds the most recent copy.
func upsert(list []any, obj any) []any {
	if i := indexOf(list, obj); i >= 0 {
		list[i] = obj
		return list
	}
	return append(list, obj)
}

func remove(list []any, obj any) []any {
	i := indexOf(list, obj)
	if i < 0 {
		return list
	}
	return append(list[:i], list[i+1:]...)
}
