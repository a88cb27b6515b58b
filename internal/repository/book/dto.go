package book

import (
	"database/sql"

	dombook "github.com/kailas-cloud/seshat/internal/domain/book"
)

const bookColumns = "id, title, author, num_pages, isbn"

type rowScanner interface {
	Scan(dest ...any) error
}

// scanBook hydrates a Book from a row selected with bookColumns.
func scanBook(row rowScanner) (*dombook.Book, error) {
	var (
		id       int64
		title    string
		author   string
		numPages sql.NullInt64
		isbn     sql.NullString
	)
	if err := row.Scan(&id, &title, &author, &numPages, &isbn); err != nil {
		return nil, err
	}
	b := dombook.Reconstruct(id, title, author, int(numPages.Int64), isbn.String)
	return &b, nil
}

// nullPages stores an unknown page count as NULL.
func nullPages(n int) sql.NullInt64 {
	return sql.NullInt64{Int64: int64(n), Valid: n > 0}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
