package search

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/seshat/internal/metrics"
)

// DefaultPerPage is used when a query asks for a non-positive page size.
const DefaultPerPage = 10

// ErrDisabled is returned by Ping when no backend is configured.
var ErrDisabled = errors.New("search: no backend configured")

// Backend is a full-text search service.
type Backend interface {
	// Upsert replaces the entry (doc.Namespace, doc.ID).
	Upsert(ctx context.Context, doc Document) error
	// Delete removes the entry; deleting a missing entry is not an error.
	Delete(ctx context.Context, namespace string, id int64) error
	// Query returns ids ranked by relevance plus the total match count.
	Query(ctx context.Context, namespace, expr string, offset, limit int) (Page, error)
	Ping(ctx context.Context) error
}

// BatchBackend is implemented by backends that upsert many entries in one
// round-trip. Reindex uses it when available.
type BatchBackend interface {
	UpsertMany(ctx context.Context, docs []Document) error
}

// Page is one window of ranked search results.
type Page struct {
	IDs   []int64
	Total int
}

// Client is the index client used by the synchronizer and by searches.
type Client struct {
	backend  Backend
	registry *Registry
	logger   *zap.Logger
}

// NewClient creates an index client. backend may be nil: search is then
// disabled and every operation silently degrades.
func NewClient(backend Backend, registry *Registry, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{backend: backend, registry: registry, logger: logger}
}

// Enabled reports whether a backend is configured.
func (c *Client) Enabled() bool { return c.backend != nil }

// Registry returns the kinds known to the client.
func (c *Client) Registry() *Registry { return c.registry }

// Ping checks the backend.
func (c *Client) Ping(ctx context.Context) error {
	if c.backend == nil {
		return ErrDisabled
	}
	if err := c.backend.Ping(ctx); err != nil {
		return fmt.Errorf("search backend ping: %w", err)
	}
	return nil
}

// AddToIndex upserts the indexed fields of e under namespace.
func (c *Client) AddToIndex(ctx context.Context, namespace string, e Entity) error {
	if c.backend == nil {
		return nil
	}
	kind, ok := c.registry.Lookup(namespace)
	if !ok {
		return fmt.Errorf("add to index: %w: %s", ErrUnknownNamespace, namespace)
	}

	err := c.backend.Upsert(ctx, DocumentOf(kind, e))
	observeOp(namespace, "add", err)
	if err != nil {
		return fmt.Errorf("add %s/%d to index: %w", namespace, e.SearchID(), err)
	}
	return nil
}

// addManyToIndex upserts entities of one kind, batched when the backend supports it.
func (c *Client) addManyToIndex(ctx context.Context, kind Kind, entities []Entity) error {
	if c.backend == nil || len(entities) == 0 {
		return nil
	}
	batch, ok := c.backend.(BatchBackend)
	if !ok {
		for _, e := range entities {
			if err := c.AddToIndex(ctx, kind.Namespace, e); err != nil {
				return err
			}
		}
		return nil
	}

	docs := make([]Document, len(entities))
	for i, e := range entities {
		docs[i] = DocumentOf(kind, e)
	}
	err := batch.UpsertMany(ctx, docs)
	observeOp(kind.Namespace, "add", err)
	if err != nil {
		return fmt.Errorf("add %d %s entries to index: %w", len(docs), kind.Namespace, err)
	}
	return nil
}

// RemoveFromIndex deletes the entry of e under namespace.
func (c *Client) RemoveFromIndex(ctx context.Context, namespace string, e Entity) error {
	if c.backend == nil {
		return nil
	}
	if _, ok := c.registry.Lookup(namespace); !ok {
		return fmt.Errorf("remove from index: %w: %s", ErrUnknownNamespace, namespace)
	}

	err := c.backend.Delete(ctx, namespace, e.SearchID())
	observeOp(namespace, "remove", err)
	if err != nil {
		return fmt.Errorf("remove %s/%d from index: %w", namespace, e.SearchID(), err)
	}
	return nil
}

// QueryIndex returns the ranked ids matching expr on a 1-indexed page.
// A disabled or failing backend yields an empty page, not an error.
func (c *Client) QueryIndex(ctx context.Context, namespace, expr string, page, perPage int) (Page, error) {
	if _, ok := c.registry.Lookup(namespace); !ok {
		return Page{}, fmt.Errorf("query index: %w: %s", ErrUnknownNamespace, namespace)
	}
	if c.backend == nil {
		return Page{}, nil
	}

	expr = strings.TrimSpace(expr)
	if expr == "" {
		return Page{}, nil
	}
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = DefaultPerPage
	}

	start := time.Now()
	p, err := c.backend.Query(ctx, namespace, expr, (page-1)*perPage, perPage)
	metrics.IndexQueryDuration.WithLabelValues(namespace).Observe(time.Since(start).Seconds())
	observeOp(namespace, "query", err)
	if err != nil {
		c.logger.Warn("Search backend query failed, returning no results",
			zap.String("namespace", namespace),
			zap.Int("page", page),
			zap.Error(err),
		)
		return Page{}, nil
	}
	return p, nil
}

func observeOp(namespace, op string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	metrics.IndexOpsTotal.WithLabelValues(namespace, op, status).Inc()
}
