package account

import (
	"context"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/seshat/internal/domain"
	dombook "github.com/kailas-cloud/seshat/internal/domain/book"
	domuser "github.com/kailas-cloud/seshat/internal/domain/user"
)

// Overview is the account page.
type Overview struct {
	User       *domuser.User
	Stats      domuser.Stats
	PictureURL string
}

// Upload is an uploaded file.
type Upload struct {
	Filename string
	Content  io.Reader
}

// SettingsInput carries the account settings form.
type SettingsInput struct {
	Username  string
	Email     string
	FirstName string
	LastName  string
	// Picture is optional.
	Picture *Upload
}

// Service manages the signed-in user's account.
type Service struct {
	tx       Transactor
	users    UserRepository
	books    BookRepository
	avail    Availability
	pictures PictureStore
	logger   *zap.Logger
}

// New creates an account service.
func New(tx Transactor, users UserRepository, books BookRepository, avail Availability, pictures PictureStore, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{tx: tx, users: users, books: books, avail: avail, pictures: pictures, logger: logger}
}

// Overview returns the user with collection stats and picture URL.
func (s *Service) Overview(ctx context.Context, userID int64) (Overview, error) {
	u, err := s.users.Get(ctx, userID)
	if err != nil {
		return Overview{}, fmt.Errorf("account overview: %w", err)
	}
	stats, err := s.users.Stats(ctx, userID)
	if err != nil {
		return Overview{}, fmt.Errorf("account overview: %w", err)
	}
	return Overview{User: u, Stats: stats, PictureURL: s.pictures.URL(u.ProfilePic())}, nil
}

// UpdateSettings changes username, email, names and optionally the picture.
func (s *Service) UpdateSettings(ctx context.Context, userID int64, in SettingsInput) (*domuser.User, error) {
	u, err := s.users.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("update settings: %w", err)
	}

	username := strings.TrimSpace(in.Username)
	email := strings.TrimSpace(in.Email)
	v := domain.NewValidationError()
	domuser.ValidateUsername(v, username)
	domuser.ValidateEmail(v, email)
	if err := s.avail.CheckAvailable(ctx, v, u.ID(), username, email); err != nil {
		return nil, err
	}
	if err := v.OrNil(); err != nil {
		return nil, err
	}

	oldPic := u.ProfilePic()
	if in.Picture != nil {
		name, err := s.pictures.Save(ctx, in.Picture.Filename, in.Picture.Content)
		if err != nil {
			return nil, err
		}
		u.SetProfilePic(name)
	}
	u.SetUsername(username)
	u.SetEmail(email)
	u.SetNames(in.FirstName, in.LastName)

	if err := s.users.Update(ctx, u); err != nil {
		if in.Picture != nil {
			s.dropPicture(ctx, u.ProfilePic())
		}
		return nil, fmt.Errorf("update settings: %w", err)
	}
	if in.Picture != nil {
		s.dropPicture(ctx, oldPic)
	}
	return u, nil
}

// DeleteAccount removes the user together with their collection. Books left
// without owners are deleted from the catalog.
func (s *Service) DeleteAccount(ctx context.Context, userID int64) error {
	var pic string
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		u, err := s.users.Get(ctx, userID)
		if err != nil {
			return err
		}
		owned, err := s.users.Books(ctx, userID)
		if err != nil {
			return err
		}
		if err := s.users.Delete(ctx, u); err != nil {
			return err
		}
		pic = u.ProfilePic()
		return s.dropOrphans(ctx, owned)
	})
	if err != nil {
		return fmt.Errorf("delete account %d: %w", userID, err)
	}
	s.dropPicture(ctx, pic)
	return nil
}

func (s *Service) dropOrphans(ctx context.Context, owned []dombook.Owned) error {
	for _, o := range owned {
		n, err := s.books.OwnerCount(ctx, o.Book.ID())
		if err != nil {
			return err
		}
		if n > 0 {
			continue
		}
		if err := s.books.Delete(ctx, o.Book); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) dropPicture(ctx context.Context, name string) {
	if err := s.pictures.Delete(ctx, name); err != nil {
		s.logger.Warn("failed to delete profile picture", zap.String("picture", name), zap.Error(err))
	}
}
