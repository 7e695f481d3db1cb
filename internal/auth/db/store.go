// Package db persists users in a SQLite database.
package db

import (
	"context"
	"database/sql"

	"github.com/mwolthuis/ticklist/internal/auth"
)

// Store is responsible for interacting with the users table.
type Store struct {
	writeDB *sql.DB
	readDB  *sql.DB
}

// New creates a new Store. The write and read handles may point to the
// same *sql.DB, see internal/db for why they are separate.
func New(writeDB, readDB *sql.DB) *Store {
	return &Store{
		writeDB: writeDB,
		readDB:  readDB,
	}
}

// BeginTx starts a new transaction on the write handle.
func (s *Store) BeginTx(ctx context.Context) (auth.Tx, error) {
	tx, err := s.writeDB.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &Tx{
		tx: tx,
	}, nil
}

// FindUsers queries for users outside of a transaction, using the
// read handle.
func (s *Store) FindUsers(ctx context.Context, filter *auth.UserFilter) ([]auth.User, error) {
	return selectUsers(func(query string, params ...any) (*sql.Rows, error) {
		return s.readDB.QueryContext(ctx, query, params...)
	}, filter)
}
