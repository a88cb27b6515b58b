package auth

import (
	"context"

	domuser "github.com/kailas-cloud/seshat/internal/domain/user"
	"github.com/kailas-cloud/seshat/internal/mail"
)

// UserRepository defines the storage contract for accounts.
type UserRepository interface {
	Create(ctx context.Context, u *domuser.User) error
	Update(ctx context.Context, u *domuser.User) error
	Get(ctx context.Context, id int64) (*domuser.User, error)
	GetByEmail(ctx context.Context, email string) (*domuser.User, error)
	GetByUsername(ctx context.Context, username string) (*domuser.User, error)
}

// TokenIssuer signs and validates session and password reset tokens.
type TokenIssuer interface {
	IssueSession(userID int64) (string, error)
	ParseSession(token string) (int64, error)
	IssueReset(userID int64) (string, error)
	ParseReset(token string) (int64, error)
}

// Mailer delivers email.
type Mailer interface {
	Send(ctx context.Context, m mail.Message) error
}
