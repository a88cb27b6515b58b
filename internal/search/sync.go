package search

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/seshat/internal/metrics"
)

// Transaction is a relational transaction that accepts commit hooks.
type Transaction interface {
	Session
	// BeforeCommit registers fn to run right before the commit is finalized.
	// A non-nil error aborts the commit.
	BeforeCommit(fn func(ctx context.Context) error)
	// AfterCommit registers fn to run once the commit succeeded.
	AfterCommit(fn func(ctx context.Context))
}

// ReindexBatchSize is the number of rows upserted per backend call during a reindex.
const ReindexBatchSize = 100

// Synchronizer replays committed changes into the index.
type Synchronizer struct {
	client *Client
	logger *zap.Logger
}

// NewSynchronizer creates a synchronizer writing through client.
func NewSynchronizer(client *Client, logger *zap.Logger) *Synchronizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Synchronizer{client: client, logger: logger}
}

// Bind captures tx's changes before it commits and applies them after.
// Rolled back transactions never reach the index.
func (s *Synchronizer) Bind(tx Transaction) {
	var cs *ChangeSet

	tx.BeforeCommit(func(context.Context) error {
		captured, err := Capture(tx)
		if err != nil {
			return fmt.Errorf("capture search changes: %w", err)
		}
		cs = captured
		return nil
	})

	tx.AfterCommit(func(ctx context.Context) {
		if cs == nil {
			return
		}
		if err := s.Apply(ctx, cs); err != nil {
			// The commit already succeeded; the index stays stale until a reindex.
			s.logger.Warn("Search index sync failed", zap.Error(err))
		}
		cs = nil
	})
}

// Apply upserts added and updated entities and removes deleted ones.
// Entities whose type is not searchable are skipped. The change set is
// emptied afterwards, so applying it twice is a no-op.
func (s *Synchronizer) Apply(ctx context.Context, cs *ChangeSet) error {
	if cs.Consumed() {
		return nil
	}
	defer cs.discard()

	if !s.client.Enabled() {
		return nil
	}

	var errs []error
	upsert := func(list []any) {
		for _, obj := range list {
			e, kind, ok := s.client.registry.searchable(obj)
			if !ok {
				continue
			}
			if err := s.client.AddToIndex(ctx, kind.Namespace, e); err != nil {
				metrics.IndexSyncDroppedTotal.WithLabelValues(kind.Namespace).Inc()
				errs = append(errs, err)
			}
		}
	}
	upsert(cs.Added)
	upsert(cs.Updated)

	for _, obj := range cs.Deleted {
		e, kind, ok := s.client.registry.searchable(obj)
		if !ok {
			continue
		}
		if err := s.client.RemoveFromIndex(ctx, kind.Namespace, e); err != nil {
			metrics.IndexSyncDroppedTotal.WithLabelValues(kind.Namespace).Inc()
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// Reindex re-adds every row of namespace. Always a full-table sweep.
func (s *Synchronizer) Reindex(ctx context.Context, namespace string) (int, error) {
	kind, ok := s.client.registry.Lookup(namespace)
	if !ok {
		return 0, fmt.Errorf("reindex: %w: %s", ErrUnknownNamespace, namespace)
	}
	if !s.client.Enabled() {
		s.logger.Info("Search disabled, skipping reindex", zap.String("namespace", namespace))
		return 0, nil
	}
	if kind.Scan == nil {
		return 0, fmt.Errorf("reindex %s: kind has no scanner", namespace)
	}

	n := 0
	buf := make([]Entity, 0, ReindexBatchSize)
	flush := func() error {
		if err := s.client.addManyToIndex(ctx, kind, buf); err != nil {
			return err
		}
		n += len(buf)
		buf = buf[:0]
		return nil
	}
	err := kind.Scan(ctx, func(e Entity) error {
		buf = append(buf, e)
		if len(buf) < ReindexBatchSize {
			return nil
		}
		return flush()
	})
	if err == nil {
		err = flush()
	}
	metrics.IndexReindexedTotal.WithLabelValues(namespace).Add(float64(n))
	if err != nil {
		return n, fmt.Errorf("reindex %s: %w", namespace, err)
	}

	s.logger.Info("Reindex finished", zap.String("namespace", namespace), zap.Int("rows", n))
	return n, nil
}

// ReindexAll reindexes every registered kind concurrently.
func (s *Synchronizer) ReindexAll(ctx context.Context) (map[string]int, error) {
	var (
		mu     sync.Mutex
		counts = make(map[string]int)
	)

	g, gctx := errgroup.WithContext(ctx)
	for _, kind := range s.client.registry.Kinds() {
		ns := kind.Namespace
		g.Go(func() error {
			n, err := s.Reindex(gctx, ns)
			mu.Lock()
			counts[ns] = n
			mu.Unlock()
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return counts, err
	}
	return counts, nil
}
