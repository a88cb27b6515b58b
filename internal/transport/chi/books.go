package chi

import (
	"net/http"

	gochi "github.com/go-chi/chi/v5"

	libraryuc "github.com/kailas-cloud/seshat/internal/usecase/library"
)

// AddBook handles POST /add_book. A title new to the catalog answers 201,
// a title shared with other readers 200.
func (s *Server) AddBook(w http.ResponseWriter, r *http.Request) {
	u, _ := userFromContext(r.Context())

	var form bookForm
	if err := s.decodeForm(r, &form); err != nil {
		s.handleFormError(w, r, err)
		return
	}

	res, err := s.library.AddBook(r.Context(), u.ID(), libraryuc.BookInput(form))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	status := http.StatusOK
	if res.Created {
		status = http.StatusCreated
	}
	writeJSON(w, status, addBookResponse{
		Book:    bookToResponse(res.Book),
		Created: res.Created,
		Message: res.Book.Title() + " added to your account!",
	})
}

// GetBook handles GET /books/{id}.
func (s *Server) GetBook(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		writeError(w, http.StatusNotFound, codeNotFound, "not found")
		return
	}

	view, err := s.library.GetBook(r.Context(), id)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, bookDetailResponse{
		bookResponse: bookToResponse(view.Book),
		Owners:       view.Owners,
	})
}

// UpdateBook handles POST /books/{id}. The title cannot change.
func (s *Server) UpdateBook(w http.ResponseWriter, r *http.Request) {
	u, _ := userFromContext(r.Context())
	id, ok := idParam(r, "id")
	if !ok {
		writeError(w, http.StatusNotFound, codeNotFound, "not found")
		return
	}

	var form bookForm
	if err := s.decodeForm(r, &form); err != nil {
		s.handleFormError(w, r, err)
		return
	}

	b, err := s.library.UpdateBook(r.Context(), u.ID(), id, libraryuc.BookInput(form))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, bookToResponse(b))
}

// RemoveBook handles POST /books/{id}/delete.
func (s *Server) RemoveBook(w http.ResponseWriter, r *http.Request) {
	u, _ := userFromContext(r.Context())
	id, ok := idParam(r, "id")
	if !ok {
		writeError(w, http.StatusNotFound, codeNotFound, "not found")
		return
	}

	if err := s.library.RemoveFromCollection(r.Context(), u.ID(), id); err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// MyBooks handles GET /my_books.
func (s *Server) MyBooks(w http.ResponseWriter, r *http.Request) {
	u, _ := userFromContext(r.Context())

	owned, err := s.library.MyBooks(r.Context(), u.ID())
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	items := make([]ownedBookResponse, len(owned))
	for i, o := range owned {
		items[i] = ownedBookResponse{bookResponse: bookToResponse(o.Book), DateAdded: o.DateAdded}
	}
	writeJSON(w, http.StatusOK, struct {
		Books []ownedBookResponse `json:"books"`
	}{items})
}

// ListTags handles GET /books/{id}/tags.
func (s *Server) ListTags(w http.ResponseWriter, r *http.Request) {
	u, _ := userFromContext(r.Context())
	id, ok := idParam(r, "id")
	if !ok {
		writeError(w, http.StatusNotFound, codeNotFound, "not found")
		return
	}

	tags, err := s.library.Tags(r.Context(), u.ID(), id)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	names := make([]string, len(tags))
	for i, t := range tags {
		names[i] = t.Name()
	}
	writeJSON(w, http.StatusOK, tagsResponse{Tags: names})
}

// AddTag handles POST /books/{id}/tags.
func (s *Server) AddTag(w http.ResponseWriter, r *http.Request) {
	u, _ := userFromContext(r.Context())
	id, ok := idParam(r, "id")
	if !ok {
		writeError(w, http.StatusNotFound, codeNotFound, "not found")
		return
	}

	var form tagForm
	if err := s.decodeForm(r, &form); err != nil {
		s.handleFormError(w, r, err)
		return
	}

	t, err := s.library.AddTag(r.Context(), u.ID(), id, form.Name)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, struct {
		Name string `json:"name"`
	}{t.Name()})
}

// RemoveTag handles POST /books/{id}/tags/{tag}/delete.
func (s *Server) RemoveTag(w http.ResponseWriter, r *http.Request) {
	u, _ := userFromContext(r.Context())
	id, ok := idParam(r, "id")
	if !ok {
		writeError(w, http.StatusNotFound, codeNotFound, "not found")
		return
	}

	if err := s.library.RemoveTag(r.Context(), u.ID(), id, gochi.URLParam(r, "tag")); err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
