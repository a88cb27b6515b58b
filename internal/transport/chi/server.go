package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	gochi "github.com/go-chi/chi/v5"
	"github.com/gorilla/schema"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/seshat/internal/domain"
	dombook "github.com/kailas-cloud/seshat/internal/domain/book"
	"github.com/kailas-cloud/seshat/internal/domain/tagging"
	domuser "github.com/kailas-cloud/seshat/internal/domain/user"
	"github.com/kailas-cloud/seshat/internal/search"
	accountuc "github.com/kailas-cloud/seshat/internal/usecase/account"
	authuc "github.com/kailas-cloud/seshat/internal/usecase/auth"
	healthuc "github.com/kailas-cloud/seshat/internal/usecase/health"
	libraryuc "github.com/kailas-cloud/seshat/internal/usecase/library"
	searchuc "github.com/kailas-cloud/seshat/internal/usecase/search"
)

// Error codes returned in the "code" field of error responses.
const (
	codeBadRequest         = "bad_request"
	codeValidationFailed   = "validation_failed"
	codeNotFound           = "not_found"
	codeAlreadyExists      = "already_exists"
	codeInvalidCredentials = "invalid_credentials"
	codeInvalidToken       = "invalid_token"
	codeUnauthorized       = "unauthorized"
	codeForbidden          = "forbidden"
	codeRateLimited        = "rate_limited"
	codeInternalError      = "internal_error"
)

// maxUploadSize bounds multipart bodies (profile pictures).
const maxUploadSize = 8 << 20

// AuthService is the consumer interface for registration and sessions.
type AuthService interface {
	Register(ctx context.Context, in authuc.RegisterInput) (*domuser.User, error)
	Login(ctx context.Context, email, password string) (authuc.Session, error)
	Authenticate(ctx context.Context, token string) (*domuser.User, error)
	RequestPasswordReset(ctx context.Context, email string) error
	VerifyResetToken(ctx context.Context, token string) (*domuser.User, bool)
	ResetPassword(ctx context.Context, token, password, confirm string) error
}

// LibraryService is the consumer interface for collections and tags.
type LibraryService interface {
	AddBook(ctx context.Context, userID int64, in libraryuc.BookInput) (libraryuc.AddResult, error)
	UpdateBook(ctx context.Context, userID, bookID int64, in libraryuc.BookInput) (*dombook.Book, error)
	RemoveFromCollection(ctx context.Context, userID, bookID int64) error
	GetBook(ctx context.Context, bookID int64) (libraryuc.BookView, error)
	MyBooks(ctx context.Context, userID int64) ([]dombook.Owned, error)
	AddTag(ctx context.Context, userID, bookID int64, name string) (tagging.Tagging, error)
	Tags(ctx context.Context, userID, bookID int64) ([]tagging.Tagging, error)
	RemoveTag(ctx context.Context, userID, bookID int64, name string) error
}

// AccountService is the consumer interface for the signed-in user's account.
type AccountService interface {
	Overview(ctx context.Context, userID int64) (accountuc.Overview, error)
	UpdateSettings(ctx context.Context, userID int64, in accountuc.SettingsInput) (*domuser.User, error)
	DeleteAccount(ctx context.Context, userID int64) error
}

// SearchService is the consumer interface for catalog search and reindexing.
type SearchService interface {
	SearchBooks(ctx context.Context, q string, page int) (searchuc.BookPage, error)
	Reindex(ctx context.Context, namespace string, drop bool) (map[string]int, error)
}

// HealthChecker reports component health.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}

// Services groups the use cases served over HTTP.
type Services struct {
	Auth    AuthService
	Library LibraryService
	Account AccountService
	Search  SearchService
	Health  HealthChecker
}

// CookieConfig controls the session cookie.
type CookieConfig struct {
	// TTL is the cookie lifetime; it should match the session token TTL.
	TTL time.Duration
	// Secure restricts the cookie to HTTPS.
	Secure bool
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server serves the seshat HTTP API.
type Server struct {
	auth    AuthService
	library LibraryService
	account AccountService
	search  SearchService
	health  HealthChecker

	cookie        CookieConfig
	staticPrefix  string
	staticDir     string
	decoder       *schema.Decoder
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(svc Services, cookie CookieConfig, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	decoder := schema.NewDecoder()
	decoder.IgnoreUnknownKeys(true)
	decoder.ZeroEmpty(true)

	s := &Server{
		auth:    svc.Auth,
		library: svc.Library,
		account: svc.Account,
		search:  svc.Search,
		health:  svc.Health,
		cookie:  cookie,
		decoder: decoder,
		logger:  logger,
	}
	s.errorHandlers = []errorHandler{
		validationHandler,
		sentinelHandler(domain.ErrNotFound, http.StatusNotFound, codeNotFound),
		sentinelHandler(search.ErrUnknownNamespace, http.StatusNotFound, codeNotFound),
		sentinelHandler(domain.ErrAlreadyExists, http.StatusConflict, codeAlreadyExists),
		sentinelHandler(domain.ErrInvalidCredentials, http.StatusUnauthorized, codeInvalidCredentials),
		sentinelHandler(domain.ErrUnauthorized, http.StatusUnauthorized, codeUnauthorized),
		sentinelHandler(domain.ErrInvalidToken, http.StatusBadRequest, codeInvalidToken),
		sentinelHandler(domain.ErrForbidden, http.StatusForbidden, codeForbidden),
		sentinelHandler(domain.ErrRateLimited, http.StatusTooManyRequests, codeRateLimited),
	}
	return s
}

// WithStatic serves files under dir at urlPrefix (locally stored profile pictures).
func (s *Server) WithStatic(urlPrefix, dir string) *Server {
	s.staticPrefix = strings.TrimSuffix(urlPrefix, "/")
	s.staticDir = dir
	return s
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status == healthuc.Unhealthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, healthResponse{
		Status: string(report.Status),
		Checks: checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

// decodeForm parses the urlencoded or multipart body and decodes it into dst.
func (s *Server) decodeForm(r *http.Request, dst any) error {
	if isMultipart(r) {
		if err := r.ParseMultipartForm(maxUploadSize); err != nil {
			return err
		}
	} else if err := r.ParseForm(); err != nil {
		return err
	}
	return s.decodeValues(dst, r.PostForm)
}

func (s *Server) decodeValues(dst any, values map[string][]string) error {
	err := s.decoder.Decode(dst, values)
	if err == nil {
		return nil
	}
	var multi schema.MultiError
	if errors.As(err, &multi) {
		v := domain.NewValidationError()
		for key := range multi {
			v.Add(key, "Not a valid value.")
		}
		return v
	}
	return err
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns the sentinel text for known domain errors and a
// generic message otherwise, so wrapped internals never leak.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrNotFound,
		domain.ErrAlreadyExists,
		domain.ErrInvalidCredentials,
		domain.ErrInvalidToken,
		domain.ErrUnauthorized,
		domain.ErrForbidden,
		domain.ErrRateLimited,
		domain.ErrValidation,
		search.ErrUnknownNamespace,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that maps a sentinel error to an HTTP status.
func sentinelHandler(sentinel error, status int, code string) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

// validationHandler answers 422 with the per-field messages.
func validationHandler(w http.ResponseWriter, err error, msg string) bool {
	var verr *domain.ValidationError
	if !errors.As(err, &verr) {
		return false
	}
	writeJSON(w, http.StatusUnprocessableEntity, errorResponse{
		Code:    codeValidationFailed,
		Message: msg,
		Fields:  verr.Fields,
	})
	return true
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	log := s.requestLogger(r)
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			log.Warn("domain error", zap.Error(err))
			return
		}
	}
	log.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
}

// handleFormError reports undecodable input. Field conversion failures come
// back as validation errors; anything else is a malformed body.
func (s *Server) handleFormError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, domain.ErrValidation) {
		s.handleDomainError(w, r, err)
		return
	}
	writeError(w, http.StatusBadRequest, codeBadRequest, "invalid request body")
}

func isMultipart(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data")
}

// idParam parses a positive integer URL parameter.
func idParam(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(gochi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
