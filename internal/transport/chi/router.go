package chi

import (
	"net/http"

	gochi "github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/kailas-cloud/seshat/internal/metrics"
)

// Router mounts the middleware stack and every route of the API.
func (s *Server) Router() http.Handler {
	r := gochi.NewRouter()
	r.Use(jsonRecoverer(s.logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(s.logger))
	r.Use(metrics.Middleware())

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, codeNotFound, "page not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, codeBadRequest, "method not allowed")
	})

	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
	if s.staticDir != "" {
		fs := http.StripPrefix(s.staticPrefix, http.FileServer(http.Dir(s.staticDir)))
		r.Handle(s.staticPrefix+"/*", fs)
	}

	r.Group(func(r gochi.Router) {
		r.Use(s.sessionMiddleware)

		r.Post("/register", s.Register)
		r.Post("/login", s.Login)
		r.Post("/logout", s.Logout)
		r.Post("/reset_password_request", s.RequestPasswordReset)
		r.Get("/reset_password/{token}", s.VerifyResetToken)
		r.Post("/reset_password/{token}", s.ResetPassword)
		r.Get("/books/{id}", s.GetBook)
		r.Get("/search", s.Search)

		r.Group(func(r gochi.Router) {
			r.Use(requireUser)

			r.Post("/add_book", s.AddBook)
			r.Get("/my_books", s.MyBooks)
			r.Post("/books/{id}", s.UpdateBook)
			r.Post("/books/{id}/delete", s.RemoveBook)
			r.Get("/books/{id}/tags", s.ListTags)
			r.Post("/books/{id}/tags", s.AddTag)
			r.Post("/books/{id}/tags/{tag}/delete", s.RemoveTag)

			r.Get("/account", s.Account)
			r.Post("/account_settings", s.UpdateSettings)
			r.Post("/account/delete_account", s.DeleteAccount)
		})

		r.With(requireAdmin).Post("/admin/reindex", s.Reindex)
	})

	return r
}
