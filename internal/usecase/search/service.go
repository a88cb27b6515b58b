package search

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	dombook "github.com/kailas-cloud/seshat/internal/domain/book"
	"github.com/kailas-cloud/seshat/internal/search"
)

// PerPage is the default number of books on a search results page.
const PerPage = 10

// BookPage is one page of book search results.
type BookPage struct {
	Books []*dombook.Book
	Total int
	Page  int
	// NextPage and PrevPage are 0 when there is no such page.
	NextPage int
	PrevPage int
}

// Service runs catalog searches and index maintenance.
type Service struct {
	client    *search.Client
	loadBooks search.Loader[*dombook.Book]
	reindexer Reindexer
	resetter  IndexResetter
	perPage   int
	logger    *zap.Logger
}

// New creates a search service. resetter may be nil.
func New(
	client *search.Client, loadBooks search.Loader[*dombook.Book],
	reindexer Reindexer, resetter IndexResetter, logger *zap.Logger,
) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		client:    client,
		loadBooks: loadBooks,
		reindexer: reindexer,
		resetter:  resetter,
		perPage:   PerPage,
		logger:    logger,
	}
}

// WithPerPage sets the number of books per results page. Non-positive values
// keep the default.
func (s *Service) WithPerPage(n int) *Service {
	if n > 0 {
		s.perPage = n
	}
	return s
}

// SearchBooks returns a page of books matching q in relevance order.
func (s *Service) SearchBooks(ctx context.Context, q string, page int) (BookPage, error) {
	if page < 1 {
		page = 1
	}
	books, total, err := search.Search(ctx, s.client, dombook.Namespace, q, page, s.perPage, s.loadBooks)
	if err != nil {
		return BookPage{}, fmt.Errorf("search books: %w", err)
	}

	out := BookPage{Books: books, Total: total, Page: page}
	if total > page*s.perPage {
		out.NextPage = page + 1
	}
	if page > 1 {
		out.PrevPage = page - 1
	}
	return out, nil
}

// Reindex rebuilds the index of namespace, or of every kind when namespace
// is empty. With drop set the index is recreated empty first, which also
// removes entries of rows deleted behind the application's back.
func (s *Service) Reindex(ctx context.Context, namespace string, drop bool) (map[string]int, error) {
	if drop {
		if err := s.reset(ctx, namespace); err != nil {
			return nil, err
		}
	}

	if namespace == "" {
		counts, err := s.reindexer.ReindexAll(ctx)
		if err != nil {
			return counts, fmt.Errorf("reindex: %w", err)
		}
		return counts, nil
	}

	n, err := s.reindexer.Reindex(ctx, namespace)
	if err != nil {
		return map[string]int{namespace: n}, err
	}
	return map[string]int{namespace: n}, nil
}

func (s *Service) reset(ctx context.Context, namespace string) error {
	if s.resetter == nil || !s.client.Enabled() {
		return nil
	}
	kinds := s.client.Registry().Kinds()
	if namespace != "" {
		kind, ok := s.client.Registry().Lookup(namespace)
		if !ok {
			return fmt.Errorf("reset index: %w: %s", search.ErrUnknownNamespace, namespace)
		}
		kinds = []search.Kind{kind}
	}
	for _, kind := range kinds {
		if err := s.resetter.Reset(ctx, kind); err != nil {
			return fmt.Errorf("reset index %s: %w", kind.Namespace, err)
		}
		s.logger.Info("Index reset", zap.String("namespace", kind.Namespace))
	}
	return nil
}
