// Package search keeps the relational store and the full-text index in sync.
//
// The moving parts:
//
//   - Entity / Kind / Registry: the searchable contract. A Kind declares a
//     namespace (the table name) and the ordered list of indexed fields; an
//     Entity exposes its id and field values. Only kinds enumerated in the
//     Registry take part in indexing.
//   - Client: the index client. Wraps an optional Backend; with no backend
//     configured every write is a no-op and every query is empty (degraded mode).
//   - Capture / ChangeSet: snapshot of the new, dirty and deleted entities of a
//     transaction, taken right before it commits.
//   - Synchronizer: replays a ChangeSet against the Client after the commit
//     succeeded. Bind wires both steps onto a Transaction's hooks.
//   - Search: ranked re-query. Asks the index for ranked ids, loads the rows
//     and returns them in index order.
//
// Index writes happen strictly after the relational commit. A crash in between
// leaves the index stale until the next Reindex.
//
// # Wiring
//
//	registry := search.NewRegistry()
//	_ = registry.Register(bookRepo.SearchKind())
//
//	client := search.NewClient(backend, registry, logger)
//	sync := search.NewSynchronizer(client, logger)
//	store.OnBegin(func(tx *storage.Tx) { sync.Bind(tx) })
//
//	books, total, err := search.Search(ctx, client, "book", "dune", 1, 10, bookRepo.GetMany)
package search
