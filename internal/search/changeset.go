package search

// Session exposes the pending changes of an in-flight transaction.
type Session interface {
	// Active reports whether the transaction has neither committed nor rolled back.
	Active() bool
	// New returns entities inserted in the transaction.
	New() []any
	// Dirty returns persisted entities modified in the transaction.
	Dirty() []any
	// Deleted returns entities deleted in the transaction.
	Deleted() []any
}

// ChangeSet is the pre-commit snapshot of a transaction's changes.
// Lists hold the session's own references, so field reads after the capture
// see the final pre-commit state.
type ChangeSet struct {
	Added   []any
	Updated []any
	Deleted []any

	consumed bool
}

// Capture snapshots the pending changes of s.
func Capture(s Session) (*ChangeSet, error) {
	if s == nil || !s.Active() {
		return nil, ErrNoActiveTransaction
	}
	return &ChangeSet{
		Added:   append([]any(nil), s.New()...),
		Updated: append([]any(nil), s.Dirty()...),
		Deleted: append([]any(nil), s.Deleted()...),
	}, nil
}

// Len returns the number of captured entities.
func (cs *ChangeSet) Len() int {
	if cs == nil {
		return 0
	}
	return len(cs.Added) + len(cs.Updated) + len(cs.Deleted)
}

// Consumed reports whether the change set was already applied.
func (cs *ChangeSet) Consumed() bool { return cs == nil || cs.consumed }

func (cs *ChangeSet) discard() {
	cs.Added, cs.Updated, cs.Deleted = nil, nil, nil
	cs.consumed = true
}
