package chi

import (
	"time"

	dombook "github.com/kailas-cloud/seshat/internal/domain/book"
	domuser "github.com/kailas-cloud/seshat/internal/domain/user"
)

// Request forms, decoded with gorilla/schema.

type registerForm struct {
	Username        string `schema:"username"`
	Email           string `schema:"email"`
	Password        string `schema:"password"`
	ConfirmPassword string `schema:"confirm_password"`
}

type loginForm struct {
	Email    string `schema:"email"`
	Password string `schema:"password"`
}

type resetRequestForm struct {
	Email string `schema:"email"`
}

type resetPasswordForm struct {
	Password        string `schema:"password"`
	ConfirmPassword string `schema:"confirm_password"`
}

type bookForm struct {
	Title    string `schema:"title"`
	Author   string `schema:"author"`
	NumPages int    `schema:"num_pages"`
	ISBN     string `schema:"isbn"`
}

type tagForm struct {
	Name string `schema:"name"`
}

type settingsForm struct {
	Username  string `schema:"username"`
	Email     string `schema:"email"`
	FirstName string `schema:"first_name"`
	LastName  string `schema:"last_name"`
}

type searchQuery struct {
	Q    string `schema:"q"`
	Page int    `schema:"page"`
}

type reindexForm struct {
	Namespace string `schema:"namespace"`
	Drop      bool   `schema:"drop"`
}

// Responses.

type errorResponse struct {
	Code    string              `json:"code"`
	Message string              `json:"message"`
	Fields  map[string][]string `json:"fields,omitempty"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

type userResponse struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	IsAdmin   bool   `json:"is_admin,omitempty"`
}

type bookResponse struct {
	ID       int64  `json:"id"`
	Title    string `json:"title"`
	Author   string `json:"author"`
	NumPages int    `json:"num_pages,omitempty"`
	ISBN     string `json:"isbn,omitempty"`
}

type bookDetailResponse struct {
	bookResponse
	Owners int `json:"owners"`
}

type addBookResponse struct {
	Book    bookResponse `json:"book"`
	Created bool         `json:"created"`
	Message string       `json:"message"`
}

type ownedBookResponse struct {
	bookResponse
	DateAdded time.Time `json:"date_added"`
}

type tagsResponse struct {
	Tags []string `json:"tags"`
}

type searchResponse struct {
	Books    []bookResponse `json:"books"`
	Total    int            `json:"total"`
	Page     int            `json:"page"`
	NextPage int            `json:"next_page,omitempty"`
	PrevPage int            `json:"prev_page,omitempty"`
}

type accountResponse struct {
	User       userResponse `json:"user"`
	Books      int          `json:"books"`
	Pages      int          `json:"pages"`
	PictureURL string       `json:"picture_url"`
}

type reindexResponse struct {
	Indexed map[string]int `json:"indexed"`
}

func userToResponse(u *domuser.User) userResponse {
	return userResponse{
		ID:        u.ID(),
		Username:  u.Username(),
		Email:     u.Email(),
		FirstName: u.FirstName(),
		LastName:  u.LastName(),
		IsAdmin:   u.IsAdmin(),
	}
}

func bookToResponse(b *dombook.Book) bookResponse {
	return bookResponse{
		ID:       b.ID(),
		Title:    b.Title(),
		Author:   b.Author(),
		NumPages: b.NumPages(),
		ISBN:     b.ISBN(),
	}
}

func booksToResponse(books []*dombook.Book) []bookResponse {
	out := make([]bookResponse, len(books))
	for i, b := range books {
		out[i] = bookToResponse(b)
	}
	return out
}
