package book

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/kailas-cloud/seshat/internal/domain"
)

// Namespace is the table name of books and their search index namespace.
const Namespace = "book"

// Indexed fields, in index order.
const (
	FieldTitle  = "title"
	FieldAuthor = "author"
	FieldISBN   = "isbn"
)

// SearchFields lists the fields of a book that are full-text indexed.
var SearchFields = []string{FieldTitle, FieldAuthor, FieldISBN}

const (
	maxTitleLen  = 100
	maxAuthorLen = 100
	maxISBNLen   = 100
)

// Book is a catalog entry. Books are shared between users; ownership is tracked separately.
type Book struct {
	id       int64
	title    string
	author   string
	numPages int
	isbn     string
}

// New validates and creates a Book that has not been persisted yet.
// Invalid input yields a *domain.ValidationError.
func New(title, author string, numPages int, isbn string) (Book, error) {
	title = strings.TrimSpace(title)
	author = strings.TrimSpace(author)
	isbn = strings.TrimSpace(isbn)

	v := domain.NewValidationError()
	switch {
	case title == "":
		v.Add(FieldTitle, "This field is required.")
	case len(title) > maxTitleLen:
		v.Add(FieldTitle, fmt.Sprintf("Field cannot be longer than %d characters.", maxTitleLen))
	}
	validateAuthor(v, author)
	if numPages < 0 {
		v.Add("num_pages", "Number must be at least 0.")
	}
	validateISBN(v, isbn)
	if err := v.OrNil(); err != nil {
		return Book{}, err
	}

	return Book{title: title, author: author, numPages: numPages, isbn: isbn}, nil
}

func validateAuthor(v *domain.ValidationError, author string) {
	switch {
	case author == "":
		v.Add(FieldAuthor, "This field is required.")
	case len(author) > maxAuthorLen:
		v.Add(FieldAuthor, fmt.Sprintf("Field cannot be longer than %d characters.", maxAuthorLen))
	}
}

func validateISBN(v *domain.ValidationError, isbn string) {
	if len(isbn) > maxISBNLen {
		v.Add(FieldISBN, fmt.Sprintf("Field cannot be longer than %d characters.", maxISBNLen))
	}
}

// Reconstruct creates a Book without validation (storage hydration).
func Reconstruct(id int64, title, author string, numPages int, isbn string) Book {
	return Book{id: id, title: title, author: author, numPages: numPages, isbn: isbn}
}

// ID returns the book identifier (0 until persisted).
func (b *Book) ID() int64 { return b.id }

// SetID assigns the identifier generated by the store.
func (b *Book) SetID(id int64) { b.id = id }

// Title returns the book title.
func (b *Book) Title() string { return b.title }

// Author returns the author's display name.
func (b *Book) Author() string { return b.author }

// NumPages returns the page count (0 when unknown).
func (b *Book) NumPages() int { return b.numPages }

// ISBN returns the ISBN, possibly empty.
func (b *Book) ISBN() string { return b.isbn }

// Update validates and applies the editable fields. The title is immutable:
// it identifies the shared catalog entry.
func (b *Book) Update(author string, numPages int, isbn string) error {
	author = strings.TrimSpace(author)
	isbn = strings.TrimSpace(isbn)

	v := domain.NewValidationError()
	validateAuthor(v, author)
	if numPages < 0 {
		v.Add("num_pages", "Number must be at least 0.")
	}
	validateISBN(v, isbn)
	if err := v.OrNil(); err != nil {
		return err
	}

	b.author, b.numPages, b.isbn = author, numPages, isbn
	return nil
}

// SearchNamespace implements search.Entity.
func (b *Book) SearchNamespace() string { return Namespace }

// SearchID implements search.Entity.
func (b *Book) SearchID() int64 { return b.id }

// SearchValue implements search.Entity.
func (b *Book) SearchValue(field string) string {
	switch field {
	case FieldTitle:
		return b.title
	case FieldAuthor:
		return b.author
	case FieldISBN:
		return b.isbn
	case "num_pages":
		return strconv.Itoa(b.numPages)
	default:
		return ""
	}
}

// String is used in log lines.
func (b *Book) String() string {
	return fmt.Sprintf("Book(%q by %q)", b.title, b.author)
}

// Owned is a book in a user's collection.
type Owned struct {
	Book      *Book
	DateAdded time.Time
}
