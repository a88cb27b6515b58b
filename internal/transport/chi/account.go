package chi

import (
	"errors"
	"net/http"

	accountuc "github.com/kailas-cloud/seshat/internal/usecase/account"
)

// Account handles GET /account.
func (s *Server) Account(w http.ResponseWriter, r *http.Request) {
	u, _ := userFromContext(r.Context())

	ov, err := s.account.Overview(r.Context(), u.ID())
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, accountResponse{
		User:       userToResponse(ov.User),
		Books:      ov.Stats.Books,
		Pages:      ov.Stats.Pages,
		PictureURL: ov.PictureURL,
	})
}

// UpdateSettings handles POST /account_settings. The body may be multipart
// with an optional "picture" file.
func (s *Server) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	u, _ := userFromContext(r.Context())

	var form settingsForm
	if err := s.decodeForm(r, &form); err != nil {
		s.handleFormError(w, r, err)
		return
	}

	in := accountuc.SettingsInput{
		Username:  form.Username,
		Email:     form.Email,
		FirstName: form.FirstName,
		LastName:  form.LastName,
	}
	if isMultipart(r) {
		file, header, err := r.FormFile("picture")
		switch {
		case err == nil:
			defer func() { _ = file.Close() }()
			in.Picture = &accountuc.Upload{Filename: header.Filename, Content: file}
		case !errors.Is(err, http.ErrMissingFile):
			writeError(w, http.StatusBadRequest, codeBadRequest, "invalid picture upload")
			return
		}
	}

	updated, err := s.account.UpdateSettings(r.Context(), u.ID(), in)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, struct {
		User    userResponse `json:"user"`
		Message string       `json:"message"`
	}{userToResponse(updated), "Account information has been updated!"})
}

// DeleteAccount handles POST /account/delete_account and ends the session.
func (s *Server) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	u, _ := userFromContext(r.Context())

	if err := s.account.DeleteAccount(r.Context(), u.ID()); err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	s.clearSessionCookie(w)
	writeJSON(w, http.StatusOK, messageResponse{Message: "Your account has been deleted!"})
}
