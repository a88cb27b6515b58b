package search

import (
	"context"

	"github.com/kailas-cloud/seshat/internal/search"
)

// Reindexer rebuilds index entries from the relational store.
type Reindexer interface {
	Reindex(ctx context.Context, namespace string) (int, error)
	ReindexAll(ctx context.Context) (map[string]int, error)
}

// IndexResetter drops and recreates the index of a kind. Optional; only
// backends with a server-side schema need it.
type IndexResetter interface {
	Reset(ctx context.Context, kind search.Kind) error
}
