package user

import (
	"net/mail"
	"strings"
	"time"

	"github.com/kailas-cloud/seshat/internal/domain"
)

// DefaultProfilePic is assigned to every new account.
const DefaultProfilePic = "default.jpg"

const (
	minUsernameLen = 2
	maxUsernameLen = 20
	maxEmailLen    = 120
	maxNameLen     = 50
)

// User is a registered account.
type User struct {
	id           int64
	username     string
	email        string
	firstName    string
	lastName     string
	profilePic   string
	passwordHash string
	isAdmin      bool
	createdAt    time.Time
}

// New validates and creates a User that has not been persisted yet.
// passwordHash must already be hashed.
func New(username, email, passwordHash string) (User, error) {
	v := domain.NewValidationError()
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)
	ValidateUsername(v, username)
	ValidateEmail(v, email)
	if passwordHash == "" {
		v.Add("password", "This field is required.")
	}
	if err := v.OrNil(); err != nil {
		return User{}, err
	}
	return User{
		username:     username,
		email:        email,
		profilePic:   DefaultProfilePic,
		passwordHash: passwordHash,
		createdAt:    time.Now().UTC(),
	}, nil
}

// Reconstruct creates a User without validation (storage hydration).
func Reconstruct(
	id int64, username, email, firstName, lastName, profilePic, passwordHash string,
	isAdmin bool, createdAt time.Time,
) User {
	return User{
		id: id, username: username, email: email,
		firstName: firstName, lastName: lastName,
		profilePic: profilePic, passwordHash: passwordHash,
		isAdmin: isAdmin, createdAt: createdAt,
	}
}

// Stats summarizes a user's collection.
type Stats struct {
	Books int
	Pages int
}

// ValidateUsername records username problems on v.
func ValidateUsername(v *domain.ValidationError, username string) {
	switch {
	case username == "":
		v.Add("username", "This field is required.")
	case len(username) < minUsernameLen || len(username) > maxUsernameLen:
		v.Add("username", "Field must be between 2 and 20 characters long.")
	}
}

// ValidateEmail records email problems on v.
func ValidateEmail(v *domain.ValidationError, email string) {
	if email == "" {
		v.Add("email", "This field is required.")
		return
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || len(email) > maxEmailLen {
		v.Add("email", "Invalid email address.")
	}
}

// ID returns the user identifier.
func (u *User) ID() int64 { return u.id }

// SetID assigns the identifier generated by the store.
func (u *User) SetID(id int64) { u.id = id }

// Username returns the unique display name.
func (u *User) Username() string { return u.username }

// Email returns the unique login email.
func (u *User) Email() string { return u.email }

// FirstName returns the optional first name.
func (u *User) FirstName() string { return u.firstName }

// LastName returns the optional last name.
func (u *User) LastName() string { return u.lastName }

// ProfilePic returns the stored picture file name.
func (u *User) ProfilePic() string { return u.profilePic }

// PasswordHash returns the bcrypt hash.
func (u *User) PasswordHash() string { return u.passwordHash }

// IsAdmin reports whether the user may run admin operations.
func (u *User) IsAdmin() bool { return u.isAdmin }

// CreatedAt returns the registration time.
func (u *User) CreatedAt() time.Time { return u.createdAt }

// SetUsername changes the username. Uniqueness is checked by the caller.
func (u *User) SetUsername(username string) { u.username = strings.TrimSpace(username) }

// SetEmail changes the email. Uniqueness is checked by the caller.
func (u *User) SetEmail(email string) { u.email = strings.TrimSpace(email) }

// SetNames changes first and last name.
func (u *User) SetNames(first, last string) {
	u.firstName = truncate(strings.TrimSpace(first), maxNameLen)
	u.lastName = truncate(strings.TrimSpace(last), maxNameLen)
}

// SetProfilePic changes the stored picture file name.
func (u *User) SetProfilePic(name string) { u.profilePic = name }

// SetPasswordHash replaces the bcrypt hash.
func (u *User) SetPasswordHash(hash string) { u.passwordHash = hash }

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
