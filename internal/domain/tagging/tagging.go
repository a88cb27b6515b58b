package tagging

import (
	"fmt"
	"strings"

	"github.com/kailas-cloud/seshat/internal/domain"
)

const maxNameLen = 50

// Tagging is a user's private label on a book.
type Tagging struct {
	id     int64
	userID int64
	bookID int64
	name   string
}

// New validates and creates a Tagging. Names are lower-cased.
func New(userID, bookID int64, name string) (Tagging, error) {
	name = NormalizeName(name)
	v := domain.NewValidationError()
	switch {
	case name == "":
		v.Add("name", "This field is required.")
	case len(name) > maxNameLen:
		v.Add("name", fmt.Sprintf("Field cannot be longer than %d characters.", maxNameLen))
	}
	if err := v.OrNil(); err != nil {
		return Tagging{}, err
	}
	return Tagging{userID: userID, bookID: bookID, name: name}, nil
}

// NormalizeName returns the stored form of a tag name.
func NormalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Reconstruct creates a Tagging without validation (storage hydration).
func Reconstruct(id, userID, bookID int64, name string) Tagging {
	return Tagging{id: id, userID: userID, bookID: bookID, name: name}
}

// ID returns the tagging identifier.
func (t *Tagging) ID() int64 { return t.id }

// SetID assigns the identifier generated by the store.
func (t *Tagging) SetID(id int64) { t.id = id }

// UserID returns the owning user.
func (t *Tagging) UserID() int64 { return t.userID }

// BookID returns the tagged book.
func (t *Tagging) BookID() int64 { return t.bookID }

// Name returns the normalized tag name.
func (t *Tagging) Name() string { return t.name }
