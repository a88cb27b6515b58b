package chi

import (
	"fmt"
	"net/http"

	gochi "github.com/go-chi/chi/v5"

	authuc "github.com/kailas-cloud/seshat/internal/usecase/auth"
)

// Register handles POST /register.
func (s *Server) Register(w http.ResponseWriter, r *http.Request) {
	var form registerForm
	if err := s.decodeForm(r, &form); err != nil {
		s.handleFormError(w, r, err)
		return
	}

	u, err := s.auth.Register(r.Context(), authuc.RegisterInput{
		Username:        form.Username,
		Email:           form.Email,
		Password:        form.Password,
		ConfirmPassword: form.ConfirmPassword,
	})
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, struct {
		User    userResponse `json:"user"`
		Message string       `json:"message"`
	}{userToResponse(u), fmt.Sprintf("Account for %s created!", u.Username())})
}

// Login handles POST /login and sets the session cookie.
func (s *Server) Login(w http.ResponseWriter, r *http.Request) {
	if u, ok := userFromContext(r.Context()); ok {
		writeJSON(w, http.StatusOK, userToResponse(u))
		return
	}

	var form loginForm
	if err := s.decodeForm(r, &form); err != nil {
		s.handleFormError(w, r, err)
		return
	}

	sess, err := s.auth.Login(r.Context(), form.Email, form.Password)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	s.setSessionCookie(w, sess.Token)
	writeJSON(w, http.StatusOK, userToResponse(sess.User))
}

// Logout handles POST /logout.
func (s *Server) Logout(w http.ResponseWriter, _ *http.Request) {
	s.clearSessionCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

// RequestPasswordReset handles POST /reset_password_request. The response is
// the same whether or not the email belongs to an account.
func (s *Server) RequestPasswordReset(w http.ResponseWriter, r *http.Request) {
	var form resetRequestForm
	if err := s.decodeForm(r, &form); err != nil {
		s.handleFormError(w, r, err)
		return
	}

	if err := s.auth.RequestPasswordReset(r.Context(), form.Email); err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusAccepted, messageResponse{
		Message: "Check your email for the instructions to reset your password",
	})
}

// VerifyResetToken handles GET /reset_password/{token}.
func (s *Server) VerifyResetToken(w http.ResponseWriter, r *http.Request) {
	u, ok := s.auth.VerifyResetToken(r.Context(), gochi.URLParam(r, "token"))
	if !ok {
		writeError(w, http.StatusBadRequest, codeInvalidToken, "This token is invalid or expired.")
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Username string `json:"username"`
	}{u.Username()})
}

// ResetPassword handles POST /reset_password/{token}.
func (s *Server) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var form resetPasswordForm
	if err := s.decodeForm(r, &form); err != nil {
		s.handleFormError(w, r, err)
		return
	}

	err := s.auth.ResetPassword(r.Context(), gochi.URLParam(r, "token"), form.Password, form.ConfirmPassword)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, messageResponse{Message: "Your password has been reset!"})
}
