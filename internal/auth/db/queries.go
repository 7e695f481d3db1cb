package db

import (
	"database/sql"
	"fmt"

	"github.com/mwolthuis/ticklist/internal/auth"
	"github.com/mwolthuis/ticklist/internal/db"
	"github.com/mwolthuis/ticklist/internal/errorz"
)

type execFunc func(query string, params ...any) (sql.Result, error)
type queryFunc func(query string, params ...any) (*sql.Rows, error)

func insertUser(ef execFunc, u *auth.User) error {
	var q db.Query
	q.Unsafe(`INSERT INTO users (username, email, password_hash, is_email_verified, created_at, updated_at) VALUES (`)
	q.Params(u.Username, string(u.Email), u.PasswordHash.String(), u.IsEmailVerified, u.CreatedAt, u.UpdatedAt)
	q.Unsafe(`)`)

	s, params := q.Get()

	result, err := ef(s, params...)
	if err != nil {
		return errorz.MapDBErr(err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return errorz.MapDBErr(err)
	}

	u.ID = int(id)

	return nil
}

func updateUser(ef execFunc, u *auth.User) error {
	var q db.Query
	q.Unsafe(`UPDATE users SET `)

	q.Unsafe(`username = `)
	q.Param(u.Username)

	q.Unsafe(`, email = `)
	q.Param(string(u.Email))

	q.Unsafe(`, password_hash = `)
	q.Param(u.PasswordHash.String())

	q.Unsafe(`, is_email_verified = `)
	q.Param(u.IsEmailVerified)

	q.Unsafe(`, created_at = `)
	q.Param(u.CreatedAt)

	q.Unsafe(`, updated_at = `)
	q.Param(u.UpdatedAt)

	q.Unsafe(` WHERE id = `)
	q.Param(u.ID)

	s, params := q.Get()

	result, err := ef(s, params...)
	if err != nil {
		return errorz.MapDBErr(err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return errorz.MapDBErr(err)
	}

	if rows == 0 {
		return fmt.Errorf("user not found: %w", errorz.ErrNotFound)
	}

	return nil
}

func selectUsers(qf queryFunc, f *auth.UserFilter) ([]auth.User, error) {
	var q db.Query
	q.Unsafe(`SELECT id, username, email, password_hash, is_email_verified, created_at, updated_at FROM users WHERE 1=1 `)

	if len(f.IDs) > 0 {
		q.Unsafe(`AND id IN (`)
		q.Params(anySlice(f.IDs)...)
		q.Unsafe(`) `)
	}

	if len(f.Usernames) > 0 {
		q.Unsafe(`AND username IN (`)
		q.Params(anySlice(f.Usernames)...)
		q.Unsafe(`) `)
	}

	if len(f.Emails) > 0 {
		q.Unsafe(`AND email IN (`)
		q.Params(anySlice(f.Emails)...)
		q.Unsafe(`) `)
	}

	if f.IsEmailVerified != nil {
		q.Unsafe(`AND is_email_verified = `)
		q.Param(*f.IsEmailVerified)
	}

	q.Unsafe(`ORDER BY id ASC`)

	s, params := q.Get()

	rows, err := qf(s, params...)
	if err != nil {
		return nil, errorz.MapDBErr(err)
	}

	defer rows.Close()

	out := make([]auth.User, 0)
	for rows.Next() {
		var u auth.User
		err := rows.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.IsEmailVerified, &u.CreatedAt, &u.UpdatedAt)
		if err != nil {
			return nil, errorz.MapDBErr(err)
		}

		out = append(out, u)
	}

	if err := rows.Err(); err != nil {
		return nil, errorz.MapDBErr(err)
	}

	return out, nil
}

func anySlice[T any](s []T) []any {
	out := make([]any, 0, len(s))
	for _, v := range s {
		out = append(out, v)
	}
	return out
}
