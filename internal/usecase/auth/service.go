package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	pwd "github.com/kailas-cloud/seshat/internal/auth"
	"github.com/kailas-cloud/seshat/internal/domain"
	domuser "github.com/kailas-cloud/seshat/internal/domain/user"
	"github.com/kailas-cloud/seshat/internal/mail"
)

// Config tunes the auth service.
type Config struct {
	// ResetURL is the base URL reset tokens are appended to.
	ResetURL string
	// ResetEvery is the refill interval of the per-email reset request limiter; 0 disables it.
	ResetEvery time.Duration
	// ResetBurst is the number of reset requests allowed at once.
	ResetBurst int
}

// RegisterInput carries the sign-up form.
type RegisterInput struct {
	Username        string
	Email           string
	Password        string
	ConfirmPassword string
}

// Session is an authenticated user with a signed session token.
type Session struct {
	User  *domuser.User
	Token string
}

// Service handles registration, login and password reset.
type Service struct {
	users   UserRepository
	tokens  TokenIssuer
	mailer  Mailer
	cfg     Config
	limiter *keyedLimiter
	logger  *zap.Logger
	now     func() time.Time
}

// New creates an auth service.
func New(users UserRepository, tokens TokenIssuer, mailer Mailer, cfg Config, logger *zap.Logger) *Service {
	if cfg.ResetBurst < 1 {
		cfg.ResetBurst = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		users:   users,
		tokens:  tokens,
		mailer:  mailer,
		cfg:     cfg,
		limiter: newKeyedLimiter(cfg.ResetEvery, cfg.ResetBurst),
		logger:  logger,
		now:     time.Now,
	}
}

// Register creates an account. Taken usernames or emails are reported as
// field errors.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*domuser.User, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)

	v := domain.NewValidationError()
	domuser.ValidateUsername(v, in.Username)
	domuser.ValidateEmail(v, in.Email)
	validatePassword(v, in.Password, in.ConfirmPassword)
	if err := s.checkAvailable(ctx, v, 0, in.Username, in.Email); err != nil {
		return nil, err
	}
	if err := v.OrNil(); err != nil {
		return nil, err
	}

	hash, err := pwd.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	u, err := domuser.New(in.Username, in.Email, hash)
	if err != nil {
		return nil, err
	}
	if err := s.users.Create(ctx, &u); err != nil {
		return nil, fmt.Errorf("register: %w", err)
	}
	return &u, nil
}

// Login checks credentials and issues a session token.
func (s *Service) Login(ctx context.Context, email, password string) (Session, error) {
	u, err := s.users.GetByEmail(ctx, strings.TrimSpace(email))
	if errors.Is(err, domain.ErrNotFound) {
		return Session{}, domain.ErrInvalidCredentials
	}
	if err != nil {
		return Session{}, fmt.Errorf("login: %w", err)
	}

	ok, err := pwd.CheckPassword(u.PasswordHash(), password)
	if err != nil {
		return Session{}, fmt.Errorf("login: %w", err)
	}
	if !ok {
		return Session{}, domain.ErrInvalidCredentials
	}

	token, err := s.tokens.IssueSession(u.ID())
	if err != nil {
		return Session{}, fmt.Errorf("login: %w", err)
	}
	return Session{User: u, Token: token}, nil
}

// Authenticate resolves a session token to its user.
func (s *Service) Authenticate(ctx context.Context, token string) (*domuser.User, error) {
	id, err := s.tokens.ParseSession(token)
	if err != nil {
		return nil, domain.ErrUnauthorized
	}
	u, err := s.users.Get(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.ErrUnauthorized
	}
	if err != nil {
		return nil, fmt.Errorf("authenticate: %w", err)
	}
	return u, nil
}

// RequestPasswordReset mails reset instructions. Unknown emails succeed
// silently so accounts cannot be enumerated.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	email = strings.TrimSpace(email)
	v := domain.NewValidationError()
	domuser.ValidateEmail(v, email)
	if err := v.OrNil(); err != nil {
		return err
	}
	if !s.limiter.allow(strings.ToLower(email), s.now()) {
		return domain.ErrRateLimited
	}

	u, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, domain.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reset request: %w", err)
	}

	token, err := s.tokens.IssueReset(u.ID())
	if err != nil {
		return fmt.Errorf("reset request: %w", err)
	}
	link := strings.TrimSuffix(s.cfg.ResetURL, "/") + "/" + token
	if err := s.mailer.Send(ctx, mail.PasswordReset(u.Email(), u.Username(), link)); err != nil {
		return fmt.Errorf("send reset email: %w", err)
	}
	s.logger.Info("password reset requested", zap.Int64("user_id", u.ID()))
	return nil
}

// VerifyResetToken returns the user a reset token was issued for. Invalid,
// expired or orphaned tokens yield false, never an error.
func (s *Service) VerifyResetToken(ctx context.Context, token string) (*domuser.User, bool) {
	id, err := s.tokens.ParseReset(token)
	if err != nil {
		return nil, false
	}
	u, err := s.users.Get(ctx, id)
	if err != nil {
		return nil, false
	}
	return u, true
}

// ResetPassword sets a new password using a reset token.
func (s *Service) ResetPassword(ctx context.Context, token, password, confirm string) error {
	u, ok := s.VerifyResetToken(ctx, token)
	if !ok {
		return domain.ErrInvalidToken
	}

	v := domain.NewValidationError()
	validatePassword(v, password, confirm)
	if err := v.OrNil(); err != nil {
		return err
	}

	hash, err := pwd.HashPassword(password)
	if err != nil {
		return err
	}
	u.SetPasswordHash(hash)
	if err := s.users.Update(ctx, u); err != nil {
		return fmt.Errorf("reset password: %w", err)
	}
	return nil
}

// CheckAvailable records field errors for a username or email taken by
// another user than selfID.
func (s *Service) CheckAvailable(ctx context.Context, v *domain.ValidationError, selfID int64, username, email string) error {
	return s.checkAvailable(ctx, v, selfID, username, email)
}

func (s *Service) checkAvailable(ctx context.Context, v *domain.ValidationError, selfID int64, username, email string) error {
	if username != "" {
		taken, err := s.takenBy(ctx, s.users.GetByUsername, username, selfID)
		if err != nil {
			return err
		}
		if taken {
			v.Add("username", "This username is already taken.")
		}
	}
	if email != "" {
		taken, err := s.takenBy(ctx, s.users.GetByEmail, email, selfID)
		if err != nil {
			return err
		}
		if taken {
			v.Add("email", "An account with this email already exists.")
		}
	}
	return nil
}

func (s *Service) takenBy(
	ctx context.Context,
	lookup func(context.Context, string) (*domuser.User, error),
	value string, selfID int64,
) (bool, error) {
	u, err := lookup(ctx, value)
	if errors.Is(err, domain.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check availability: %w", err)
	}
	return u.ID() != selfID, nil
}

func validatePassword(v *domain.ValidationError, password, confirm string) {
	if password == "" {
		v.Add("password", "This field is required.")
		return
	}
	if password != confirm {
		v.Add("confirm_password", "Passwords must match.")
	}
}
