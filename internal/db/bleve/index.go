// Package bleve is an embedded full-text search backend for deployments
// without a Redis server.
package bleve

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	bleveapi "github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"

	"github.com/kailas-cloud/seshat/internal/search"
)

// Compile-time check: Index implements search.Backend.
var _ search.Backend = (*Index)(nil)

const (
	fieldNamespace = "namespace"
	fieldText      = "text"
)

// Index stores every namespace in one bleve index; documents are keyed
// "<namespace>:<id>" and carry the namespace as a keyword field.
type Index struct {
	index bleveapi.Index
}

// Open opens the index at path, creating it when missing. An empty path
// creates a memory-only index.
func Open(path string) (*Index, error) {
	if path == "" {
		idx, err := bleveapi.NewMemOnly(newMapping())
		if err != nil {
			return nil, fmt.Errorf("create in-memory index: %w", err)
		}
		return &Index{index: idx}, nil
	}

	idx, err := bleveapi.Open(path)
	if errors.Is(err, bleveapi.ErrorIndexPathDoesNotExist) {
		idx, err = bleveapi.New(path, newMapping())
	}
	if err != nil {
		return nil, fmt.Errorf("open index %s: %w", path, err)
	}
	return &Index{index: idx}, nil
}

func newMapping() mapping.IndexMapping {
	namespace := bleveapi.NewKeywordFieldMapping()
	namespace.IncludeInAll = false

	text := bleveapi.NewTextFieldMapping()
	text.Store = false

	doc := bleveapi.NewDocumentMapping()
	doc.AddFieldMappingsAt(fieldNamespace, namespace)
	doc.AddFieldMappingsAt(fieldText, text)

	m := bleveapi.NewIndexMapping()
	m.DefaultMapping = doc
	m.StoreDynamic = false
	return m
}

// Upsert implements search.Backend.
func (i *Index) Upsert(_ context.Context, doc search.Document) error {
	body := map[string]any{
		fieldNamespace: doc.Namespace,
		fieldText:      doc.Text(),
	}
	if err := i.index.Index(docID(doc.Namespace, doc.ID), body); err != nil {
		return fmt.Errorf("index %s/%d: %w", doc.Namespace, doc.ID, err)
	}
	return nil
}

// Delete implements search.Backend.
func (i *Index) Delete(_ context.Context, namespace string, id int64) error {
	if err := i.index.Delete(docID(namespace, id)); err != nil {
		return fmt.Errorf("delete %s/%d: %w", namespace, id, err)
	}
	return nil
}

// Query implements search.Backend. Any term may match; results are ordered
// by bleve's relevance score.
func (i *Index) Query(ctx context.Context, namespace, expr string, offset, limit int) (search.Page, error) {
	ns := bleveapi.NewTermQuery(namespace)
	ns.SetField(fieldNamespace)

	match := bleveapi.NewMatchQuery(expr)
	match.SetField(fieldText)

	req := bleveapi.NewSearchRequestOptions(bleveapi.NewConjunctionQuery(ns, match), limit, offset, false)
	res, err := i.index.SearchInContext(ctx, req)
	if err != nil {
		return search.Page{}, fmt.Errorf("search %s: %w", namespace, err)
	}

	ids := make([]int64, 0, len(res.Hits))
	for _, hit := range res.Hits {
		id, ok := parseDocID(namespace, hit.ID)
		if !ok {
			continue
		}
		ids = append(ids, id)
	}
	return search.Page{IDs: ids, Total: int(res.Total)}, nil
}

// Ping implements search.Backend.
func (i *Index) Ping(_ context.Context) error {
	if _, err := i.index.DocCount(); err != nil {
		return fmt.Errorf("bleve: %w", err)
	}
	return nil
}

// Close releases the index files.
func (i *Index) Close() error {
	return i.index.Close()
}

func docID(namespace string, id int64) string {
	return namespace + ":" + strconv.FormatInt(id, 10)
}

func parseDocID(namespace, key string) (int64, bool) {
	raw, ok := strings.CutPrefix(key, namespace+":")
	if !ok {
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}
