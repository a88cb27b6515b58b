package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func countBooks(t *testing.T, s *Store) int {
	t.Helper()
	var n int
	require.NoError(t, s.Conn(context.Background()).
		QueryRowContext(context.Background(), "SELECT COUNT(*) FROM books").Scan(&n))
	return n
}

func insertBook(ctx context.Context, s *Store, title string) error {
	_, err := s.Conn(ctx).ExecContext(ctx,
		"INSERT INTO books (title, author) VALUES (?, ?)", title, "someone")
	return err
}

func TestOpen_AppliesMigrations(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	v, err := SchemaVersion(ctx, s.db)
	require.NoError(t, err)
	assert.Equal(t, "1.2.0", v.String())

	// Second run is a no-op.
	require.NoError(t, ApplyMigrations(ctx, s.db))
	var n int
	require.NoError(t, s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM schema_version").Scan(&n))
	assert.Equal(t, len(AllMigrations), n)
}

func TestWithTx_CommitAndRollback(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.WithTx(ctx, func(ctx context.Context) error {
		return insertBook(ctx, s, "Dune")
	}))
	assert.Equal(t, 1, countBooks(t, s))

	boom := errors.New("boom")
	err := s.WithTx(ctx, func(ctx context.Context) error {
		require.NoError(t, insertBook(ctx, s, "Emma"))
		return boom
	})
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 1, countBooks(t, s))
}

func TestWithTx_NestedJoinsOuter(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	begins := 0
	s.OnBegin(func(*Tx) { begins++ })

	require.NoError(t, s.WithTx(ctx, func(outerCtx context.Context) error {
		outer, ok := TxFromContext(outerCtx)
		require.True(t, ok)
		return s.WithTx(outerCtx, func(innerCtx context.Context) error {
			inner, ok := TxFromContext(innerCtx)
			require.True(t, ok)
			assert.Same(t, outer, inner)
			return insertBook(innerCtx, s, "Dune")
		})
	}))
	assert.Equal(t, 1, begins)
	assert.Equal(t, 1, countBooks(t, s))
}

func TestTx_HooksOrder(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	var calls []string

	tx, err := s.Begin(ctx)
	require.NoError(t, err)
	tx.BeforeCommit(func(context.Context) error {
		assert.True(t, tx.Active(), "before-commit hook must see an active transaction")
		calls = append(calls, "before")
		return nil
	})
	tx.AfterCommit(func(context.Context) {
		assert.False(t, tx.Active())
		calls = append(calls, "after")
	})

	require.NoError(t, tx.Commit(ctx))
	assert.Equal(t, []string{"before", "after"}, calls)
	require.ErrorIs(t, tx.Commit(ctx), ErrTxDone)
}

func TestTx_FailingBeforeHookRollsBack(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	afterRan := false
	s.OnBegin(func(tx *Tx) {
		tx.BeforeCommit(func(context.Context) error { return errors.New("veto") })
		tx.AfterCommit(func(context.Context) { afterRan = true })
	})

	err := s.WithTx(ctx, func(ctx context.Context) error {
		return insertBook(ctx, s, "Dune")
	})
	require.Error(t, err)
	assert.False(t, afterRan)
	assert.Equal(t, 0, countBooks(t, s))
}

func TestTx_RollbackSkipsAfterHooks(t *testing.T) {
	s := openTestStore(t)
	tx, err := s.Begin(context.Background())
	require.NoError(t, err)

	afterRan := false
	tx.AfterCommit(func(context.Context) { afterRan = true })
	require.NoError(t, tx.Rollback())
	assert.False(t, afterRan)
	assert.False(t, tx.Active())
}

type row struct{ id int }

func TestTx_TrackingListsStayDisjoint(t *testing.T) {
	s := openTestStore(t)
	tx, err := s.Begin(context.Background())
	require.NoError(t, err)
	defer func() { _ = tx.Rollback() }()

	a, b, c := &row{1}, &row{2}, &row{3}

	tx.TrackNew(a)
	tx.TrackNew(a)
	tx.TrackDirty(a) // still new
	tx.TrackDirty(b)
	tx.TrackDirty(c)
	tx.TrackDeleted(c) // dirty -> deleted
	tx.TrackDirty(c)   // stays deleted

	assert.Equal(t, []any{a}, tx.New())
	assert.Equal(t, []any{b}, tx.Dirty())
	assert.Equal(t, []any{c}, tx.Deleted())

	tx.TrackDeleted(a)
	assert.Empty(t, tx.New())
	assert.Len(t, tx.Deleted(), 2)
}

type entity struct {
	ns string
	id int64
}

func (e *entity) SearchNamespace() string { return e.ns }
func (e *entity) SearchID() int64         { return e.id }

func TestTx_TrackingByEntityID(t *testing.T) {
	s := openTestStore(t)
	tx, err := s.Begin(context.Background())
	require.NoError(t, err)
	defer func() { _ = tx.Rollback() }()

	loaded, reloaded := &entity{"book", 1}, &entity{"book", 1}
	other := &entity{"user", 1}

	tx.TrackDirty(loaded)
	tx.TrackDirty(reloaded)
	tx.TrackDirty(other)
	require.Len(t, tx.Dirty(), 2)
	assert.Same(t, reloaded, tx.Dirty()[0])

	tx.TrackDeleted(loaded)
	assert.Equal(t, []any{other}, tx.Dirty())
	assert.Equal(t, []any{loaded}, tx.Deleted())

	// Unsaved entities fall back to pointer identity.
	tx.TrackNew(&entity{"book", 0})
	tx.TrackNew(&entity{"book", 0})
	assert.Len(t, tx.New(), 2)
}

func TestTx_AfterHooksOutliveCaller(t *testing.T) {
	s := openTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var hookErr error
	s.OnBegin(func(tx *Tx) {
		tx.AfterCommit(func(context.Context) { cancel() })
		tx.AfterCommit(func(ctx context.Context) { hookErr = ctx.Err() })
	})

	require.NoError(t, s.WithTx(ctx, func(ctx context.Context) error {
		return insertBook(ctx, s, "Dune")
	}))
	require.Error(t, ctx.Err())
	assert.NoError(t, hookErr)
	assert.Equal(t, 1, countBooks(t, s))
}

func TestMapError_Constraint(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	insertUser := func() error {
		_, err := s.Conn(ctx).ExecContext(ctx,
			"INSERT INTO users (username, email, password) VALUES ('ann', 'ann@example.com', 'x')")
		return MapError(err)
	}

	require.NoError(t, insertUser())
	require.ErrorIs(t, insertUser(), ErrConstraint)
	assert.Nil(t, MapError(nil))

	_, err := s.Conn(ctx).ExecContext(ctx,
		"INSERT INTO ownership (user_id, book_id, date_added) VALUES (42, 42, CURRENT_TIMESTAMP)")
	require.ErrorIs(t, MapError(err), ErrForeignKey)
}

func TestPlaceholders(t *testing.T) {
	assert.Equal(t, "", Placeholders(0))
	assert.Equal(t, "?", Placeholders(1))
	assert.Equal(t, "?, ?, ?", Placeholders(3))
}
