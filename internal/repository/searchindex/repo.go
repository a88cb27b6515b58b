package searchindex

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/kailas-cloud/seshat/internal/db"
	"github.com/kailas-cloud/seshat/internal/search"
)

// DefaultKeyPrefix namespaces every key written by seshat.
const DefaultKeyPrefix = "seshat"

// store is the consumer interface for index writes and queries (ISP).
type store interface {
	Ping(ctx context.Context) error
	HSet(ctx context.Context, key string, fields map[string]string) error
	HSetMulti(ctx context.Context, items []db.HashSetItem) error
	Del(ctx context.Context, key string) error
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	DropIndex(ctx context.Context, name string, deleteDocs bool) error
	IndexExists(ctx context.Context, name string) (bool, error)
	SearchText(ctx context.Context, q *db.TextQuery) (*db.SearchResult, error)
}

// Repo implements search.Backend on a Redis FT index per namespace:
// index "<prefix>:<ns>:idx" over hashes "<prefix>:<ns>:<id>".
type Repo struct {
	store   store
	prefix  string
	weights map[string]float64

	mu      sync.Mutex
	ensured map[string]bool
}

// Compile-time check: Repo implements search.Backend and search.BatchBackend.
var (
	_ search.Backend      = (*Repo)(nil)
	_ search.BatchBackend = (*Repo)(nil)
)

// New creates an index repository. An empty prefix uses DefaultKeyPrefix.
func New(s store, prefix string) *Repo {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &Repo{store: s, prefix: prefix, ensured: make(map[string]bool)}
}

// WithFieldWeights boosts matches in the given fields.
func (r *Repo) WithFieldWeights(w map[string]float64) *Repo {
	r.weights = w
	return r
}

// EnsureIndexes creates the FT index of every kind that doesn't have one yet.
func (r *Repo) EnsureIndexes(ctx context.Context, kinds []search.Kind) error {
	for _, k := range kinds {
		if err := r.ensure(ctx, k); err != nil {
			return err
		}
	}
	return nil
}

func (r *Repo) ensure(ctx context.Context, kind search.Kind) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ensured[kind.Namespace] {
		return nil
	}

	name := r.indexName(kind.Namespace)
	exists, err := r.store.IndexExists(ctx, name)
	if err != nil {
		return fmt.Errorf("check index %s: %w", name, err)
	}
	if !exists {
		def, err := r.buildIndex(kind)
		if err != nil {
			return fmt.Errorf("build index %s: %w", name, err)
		}
		if err := r.store.CreateIndex(ctx, def); err != nil && !errors.Is(err, db.ErrIndexExists) {
			return fmt.Errorf("create index %s: %w", name, err)
		}
	}
	r.ensured[kind.Namespace] = true
	return nil
}

func (r *Repo) buildIndex(kind search.Kind) (*db.IndexDefinition, error) {
	b := db.NewIndex(r.indexName(kind.Namespace)).
		OnHash().
		Prefix(r.keyPrefix(kind.Namespace))
	for _, f := range kind.Fields {
		if w, ok := r.weights[f]; ok {
			b.TextWeighted(f, w)
			continue
		}
		b.Text(f)
	}
	return b.Build()
}

// Reset drops the index of kind together with its documents and recreates it empty.
func (r *Repo) Reset(ctx context.Context, kind search.Kind) error {
	name := r.indexName(kind.Namespace)
	if err := r.store.DropIndex(ctx, name, true); err != nil && !errors.Is(err, db.ErrIndexNotFound) {
		return fmt.Errorf("drop index %s: %w", name, err)
	}
	r.mu.Lock()
	delete(r.ensured, kind.Namespace)
	r.mu.Unlock()
	return r.ensure(ctx, kind)
}

// Upsert implements search.Backend.
func (r *Repo) Upsert(ctx context.Context, doc search.Document) error {
	if err := r.store.HSet(ctx, r.docKey(doc.Namespace, doc.ID), hashFields(doc)); err != nil {
		return fmt.Errorf("upsert %s/%d: %w", doc.Namespace, doc.ID, err)
	}
	return nil
}

// UpsertMany implements search.BatchBackend with one pipelined round-trip.
func (r *Repo) UpsertMany(ctx context.Context, docs []search.Document) error {
	items := make([]db.HashSetItem, len(docs))
	for i, doc := range docs {
		items[i] = db.HashSetItem{Key: r.docKey(doc.Namespace, doc.ID), Fields: hashFields(doc)}
	}
	if err := r.store.HSetMulti(ctx, items); err != nil {
		return fmt.Errorf("upsert %d documents: %w", len(docs), err)
	}
	return nil
}

func hashFields(doc search.Document) map[string]string {
	fields := make(map[string]string, len(doc.Fields))
	for _, f := range doc.Fields {
		fields[f.Name] = f.Value
	}
	return fields
}

// Delete implements search.Backend.
func (r *Repo) Delete(ctx context.Context, namespace string, id int64) error {
	if err := r.store.Del(ctx, r.docKey(namespace, id)); err != nil {
		return fmt.Errorf("delete %s/%d: %w", namespace, id, err)
	}
	return nil
}

// Query implements search.Backend.
func (r *Repo) Query(ctx context.Context, namespace, expr string, offset, limit int) (search.Page, error) {
	res, err := r.store.SearchText(ctx, &db.TextQuery{
		IndexName: r.indexName(namespace),
		Query:     expr,
		Offset:    offset,
		Limit:     limit,
	})
	if err != nil {
		return search.Page{}, fmt.Errorf("query %s: %w", namespace, err)
	}

	prefix := r.keyPrefix(namespace)
	ids := make([]int64, 0, len(res.Keys))
	for _, key := range res.Keys {
		id, err := strconv.ParseInt(strings.TrimPrefix(key, prefix), 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return search.Page{IDs: ids, Total: res.Total}, nil
}

// Ping implements search.Backend.
func (r *Repo) Ping(ctx context.Context) error {
	return r.store.Ping(ctx)
}

func (r *Repo) indexName(namespace string) string {
	return r.prefix + ":" + namespace + ":idx"
}

func (r *Repo) keyPrefix(namespace string) string {
	return r.prefix + ":" + namespace + ":"
}

func (r *Repo) docKey(namespace string, id int64) string {
	return r.keyPrefix(namespace) + strconv.FormatInt(id, 10)
}
