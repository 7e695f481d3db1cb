// Package db persists todos in a SQLite database.
package db

import (
	"context"
	"database/sql"

	"github.com/mwolthuis/ticklist/internal/todo"
)

// Store is responsible for interacting with the todos table.
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

// CreateTodo creates a todo in the database.
// It updates the ID field when successful.
func (s *Store) CreateTodo(ctx context.Context, t *todo.Todo) error {
	return insertTodo(func(query string, params ...any) (sql.Result, error) {
		return s.writeDB.ExecContext(ctx, query, params...)
	}, t)
}

// UpdateTodo updates a todo in the database.
// It returns errorz.ErrNotFound if no todo is found.
func (s *Store) UpdateTodo(ctx context.Context, t *todo.Todo) error {
	return updateTodo(func(query string, params ...any) (sql.Result, error) {
		return s.writeDB.ExecContext(ctx, query, params...)
	}, t)
}

// DeleteTodo deletes a todo from the database.
// It returns errorz.ErrNotFound if no todo is found.
func (s *Store) DeleteTodo(ctx context.Context, id int) error {
	return deleteTodo(func(query string, params ...any) (sql.Result, error) {
		return s.writeDB.ExecContext(ctx, query, params...)
	}, id)
}

// FindTodos queries for todos based on the provided filter.
// It returns an empty slice if no todos are found.
func (s *Store) FindTodos(ctx context.Context, filter *todo.TodoFilter) ([]todo.Todo, error) {
	return selectTodos(func(query string, params ...any) (*sql.Rows, error) {
		return s.readDB.QueryContext(ctx, query, params...)
	}, filter)
}
