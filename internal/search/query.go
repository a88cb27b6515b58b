package search

import (
	"context"
	"fmt"
)

// Loader fetches rows by id from the relational store, in any order.
// Ids without a row are simply absent from the result.
type Loader[T Entity] func(ctx context.Context, ids []int64) ([]T, error)

// Search queries the index and re-fetches the matching rows in rank order.
// The returned total is the index's match count across all pages; it may
// exceed the number of rows when the index is stale.
func Search[T Entity](
	ctx context.Context, c *Client,
	namespace, expr string, page, perPage int,
	load Loader[T],
) ([]T, int, error) {
	p, err := c.QueryIndex(ctx, namespace, expr, page, perPage)
	if err != nil {
		return nil, 0, err
	}
	if p.Total == 0 {
		return []T{}, 0, nil
	}
	if len(p.IDs) == 0 {
		return []T{}, p.Total, nil
	}

	rows, err := load(ctx, p.IDs)
	if err != nil {
		return nil, 0, fmt.Errorf("load %s rows: %w", namespace, err)
	}

	return Rank(p.IDs, rows), p.Total, nil
}

// Rank orders rows to match ids. Rows whose id is not listed are dropped,
// and so are ids without a row.
func Rank[T Entity](ids []int64, rows []T) []T {
	rank := make(map[int64]int, len(ids))
	for i, id := range ids {
		if _, dup := rank[id]; !dup {
			rank[id] = i
		}
	}

	slots := make([]T, len(ids))
	filled := make([]bool, len(ids))
	for _, row := range rows {
		pos, ok := rank[row.SearchID()]
		if !ok || filled[pos] {
			continue
		}
		slots[pos] = row
		filled[pos] = true
	}

	out := make([]T, 0, len(rows))
	for i, ok := range filled {
		if ok {
			out = append(out, slots[i])
		}
	}
	return out
}
