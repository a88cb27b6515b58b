package chi

import (
	"net/http"

	"go.uber.org/zap"
)

// Search handles GET /search?q=&page=. An empty query returns no results.
func (s *Server) Search(w http.ResponseWriter, r *http.Request) {
	var q searchQuery
	if err := s.decodeValues(&q, r.URL.Query()); err != nil {
		s.handleFormError(w, r, err)
		return
	}

	if q.Q == "" {
		writeJSON(w, http.StatusOK, searchResponse{Books: []bookResponse{}, Page: 1})
		return
	}

	page, err := s.search.SearchBooks(r.Context(), q.Q, q.Page)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, searchResponse{
		Books:    booksToResponse(page.Books),
		Total:    page.Total,
		Page:     page.Page,
		NextPage: page.NextPage,
		PrevPage: page.PrevPage,
	})
}

// Reindex handles POST /admin/reindex. An empty namespace rebuilds every
// registered kind; drop recreates the index first.
func (s *Server) Reindex(w http.ResponseWriter, r *http.Request) {
	var form reindexForm
	if err := s.decodeForm(r, &form); err != nil {
		s.handleFormError(w, r, err)
		return
	}

	counts, err := s.search.Reindex(r.Context(), form.Namespace, form.Drop)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	s.requestLogger(r).Info("reindex finished",
		zap.String("namespace", form.Namespace),
		zap.Bool("drop", form.Drop),
		zap.Any("indexed", counts),
	)
	writeJSON(w, http.StatusOK, reindexResponse{Indexed: counts})
}
