package library

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kailas-cloud/seshat/internal/domain"
	dombook "github.com/kailas-cloud/seshat/internal/domain/book"
	"github.com/kailas-cloud/seshat/internal/domain/tagging"
)

// BookInput carries the editable fields of a book.
type BookInput struct {
	Title    string
	Author   string
	NumPages int
	ISBN     string
}

// AddResult reports what AddBook did.
type AddResult struct {
	Book *dombook.Book
	// Created is true when the title was new to the catalog.
	Created bool
}

// BookView is a book with its number of owners.
type BookView struct {
	Book   *dombook.Book
	Owners int
}

// Service manages personal collections on top of the shared catalog.
type Service struct {
	tx        Transactor
	books     BookRepository
	ownership OwnershipRepository
	tags      TagRepository
	now       func() time.Time
}

// New creates a library service.
func New(tx Transactor, books BookRepository, ownership OwnershipRepository, tags TagRepository) *Service {
	return &Service{tx: tx, books: books, ownership: ownership, tags: tags, now: time.Now}
}

// AddBook puts a title in the user's collection. A title already in the
// catalog is shared; otherwise a new book is created. A book the user
// already owns yields domain.ErrAlreadyExists and changes nothing.
func (s *Service) AddBook(ctx context.Context, userID int64, in BookInput) (AddResult, error) {
	candidate, err := dombook.New(in.Title, in.Author, in.NumPages, in.ISBN)
	if err != nil {
		return AddResult{}, err
	}

	var res AddResult
	err = s.tx.WithTx(ctx, func(ctx context.Context) error {
		existing, err := s.books.GetByTitle(ctx, candidate.Title())
		switch {
		case err == nil:
			res.Book = existing
		case errors.Is(err, domain.ErrNotFound):
			b := candidate
			if err := s.books.Create(ctx, &b); err != nil {
				return err
			}
			res.Book, res.Created = &b, true
		default:
			return err
		}
		return s.ownership.AddOwnership(ctx, userID, res.Book.ID(), s.now())
	})
	if err != nil {
		return AddResult{}, fmt.Errorf("add book %q: %w", candidate.Title(), err)
	}
	return res, nil
}

// UpdateBook edits a book in the user's collection. The title is fixed.
func (s *Service) UpdateBook(ctx context.Context, userID, bookID int64, in BookInput) (*dombook.Book, error) {
	var out *dombook.Book
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		if err := s.mustOwn(ctx, userID, bookID); err != nil {
			return err
		}
		b, err := s.books.Get(ctx, bookID)
		if err != nil {
			return err
		}
		if err := b.Update(in.Author, in.NumPages, in.ISBN); err != nil {
			return err
		}
		if err := s.books.Update(ctx, b); err != nil {
			return err
		}
		out = b
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("update book %d: %w", bookID, err)
	}
	return out, nil
}

// RemoveFromCollection takes a book out of the user's collection. A book
// left without owners is deleted from the catalog.
func (s *Service) RemoveFromCollection(ctx context.Context, userID, bookID int64) error {
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		b, err := s.books.Get(ctx, bookID)
		if err != nil {
			return err
		}
		if err := s.ownership.RemoveOwnership(ctx, userID, bookID); err != nil {
			return err
		}
		owners, err := s.books.OwnerCount(ctx, bookID)
		if err != nil {
			return err
		}
		if owners == 0 {
			return s.books.Delete(ctx, b)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("remove book %d: %w", bookID, err)
	}
	return nil
}

// GetBook returns a book with its owner count.
func (s *Service) GetBook(ctx context.Context, bookID int64) (BookView, error) {
	b, err := s.books.Get(ctx, bookID)
	if err != nil {
		return BookView{}, fmt.Errorf("get book: %w", err)
	}
	owners, err := s.books.OwnerCount(ctx, bookID)
	if err != nil {
		return BookView{}, fmt.Errorf("get book: %w", err)
	}
	return BookView{Book: b, Owners: owners}, nil
}

// MyBooks lists the user's collection, most recently added first.
func (s *Service) MyBooks(ctx context.Context, userID int64) ([]dombook.Owned, error) {
	books, err := s.ownership.Books(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("my books: %w", err)
	}
	return books, nil
}

// AddTag labels a book in the user's collection.
func (s *Service) AddTag(ctx context.Context, userID, bookID int64, name string) (tagging.Tagging, error) {
	t, err := tagging.New(userID, bookID, name)
	if err != nil {
		return tagging.Tagging{}, err
	}
	if err := s.mustOwn(ctx, userID, bookID); err != nil {
		return tagging.Tagging{}, fmt.Errorf("add tag: %w", err)
	}
	if err := s.tags.Add(ctx, &t); err != nil {
		return tagging.Tagging{}, fmt.Errorf("add tag: %w", err)
	}
	return t, nil
}

// Tags lists the user's tags on a book.
func (s *Service) Tags(ctx context.Context, userID, bookID int64) ([]tagging.Tagging, error) {
	tags, err := s.tags.List(ctx, userID, bookID)
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	return tags, nil
}

// RemoveTag deletes one of the user's tags on a book.
func (s *Service) RemoveTag(ctx context.Context, userID, bookID int64, name string) error {
	if err := s.tags.Remove(ctx, userID, bookID, tagging.NormalizeName(name)); err != nil {
		return fmt.Errorf("remove tag: %w", err)
	}
	return nil
}

func (s *Service) mustOwn(ctx context.Context, userID, bookID int64) error {
	owns, err := s.ownership.Owns(ctx, userID, bookID)
	if err != nil {
		return err
	}
	if !owns {
		return fmt.Errorf("book %d not in collection: %w", bookID, domain.ErrNotFound)
	}
	return nil
}
