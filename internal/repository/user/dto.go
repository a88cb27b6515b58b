package user

import (
	"database/sql"
	"time"

	dombook "github.com/kailas-cloud/seshat/internal/domain/book"
	domuser "github.com/kailas-cloud/seshat/internal/domain/user"
)

const userColumns = "id, username, email, first_name, last_name, profile_pic, password, is_admin, created_at"

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*domuser.User, error) {
	var (
		id                       int64
		username, email          string
		firstName, lastName, pic string
		hash                     string
		isAdmin                  bool
		createdAt                sql.NullTime
	)
	if err := row.Scan(&id, &username, &email, &firstName, &lastName, &pic, &hash, &isAdmin, &createdAt); err != nil {
		return nil, err
	}
	u := domuser.Reconstruct(id, username, email, firstName, lastName, pic, hash, isAdmin, createdAt.Time.UTC())
	return &u, nil
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t.UTC(), Valid: !t.IsZero()}
}

func scanOwned(row rowScanner) (dombook.Owned, error) {
	var (
		id        int64
		title     string
		author    string
		numPages  sql.NullInt64
		isbn      sql.NullString
		dateAdded time.Time
	)
	if err := row.Scan(&id, &title, &author, &numPages, &isbn, &dateAdded); err != nil {
		return dombook.Owned{}, err
	}
	b := dombook.Reconstruct(id, title, author, int(numPages.Int64), isbn.String)
	return dombook.Owned{Book: &b, DateAdded: dateAdded.UTC()}, nil
}
