package db

import (
	"database/sql"
	"fmt"

	"github.com/mwolthuis/ticklist/internal/db"
	"github.com/mwolthuis/ticklist/internal/errorz"
	"github.com/mwolthuis/ticklist/internal/todo"
)

type execFunc func(query string, params ...any) (sql.Result, error)
type queryFunc func(query string, params ...any) (*sql.Rows, error)

func insertTodo(ef execFunc, t *todo.Todo) error {
	var q db.Query
	q.Unsafe(`INSERT INTO todos (title, description, is_completed, owner_id, created_at, updated_at) VALUES (`)
	q.Params(t.Title, t.Description, t.IsCompleted, t.OwnerID, t.CreatedAt, t.UpdatedAt)
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

	t.ID = int(id)

	return nil
}

func updateTodo(ef execFunc, t *todo.Todo) error {
	var q db.Query
	q.Unsafe(`UPDATE todos SET `)

	q.Unsafe(`title = `)
	q.Param(t.Title)

	q.Unsafe(`, description = `)
	q.Param(t.Description)

	q.Unsafe(`, is_completed = `)
	q.Param(t.IsCompleted)

	q.Unsafe(`, updated_at = `)
	q.Param(t.UpdatedAt)

	q.Unsafe(` WHERE id = `)
	q.Param(t.ID)

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
		return fmt.Errorf("todo not found: %w", errorz.ErrNotFound)
	}

	return nil
}

func deleteTodo(ef execFunc, id int) error {
	var q db.Query
	q.Unsafe(`DELETE FROM todos WHERE id = `)
	q.Param(id)

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
		return fmt.Errorf("todo not found: %w", errorz.ErrNotFound)
	}

	return nil
}

func selectTodos(qf queryFunc, f *todo.TodoFilter) ([]todo.Todo, error) {
	var q db.Query
	q.Unsafe(`SELECT id, title, description, is_completed, owner_id, created_at, updated_at FROM todos WHERE 1=1 `)

	if len(f.IDs) > 0 {
		q.Unsafe(`AND id IN (`)
		q.Params(anySlice(f.IDs)...)
		q.Unsafe(`) `)
	}

	if len(f.OwnerIDs) > 0 {
		q.Unsafe(`AND owner_id IN (`)
		q.Params(anySlice(f.OwnerIDs)...)
		q.Unsafe(`) `)
	}

	if f.IsCompleted != nil {
		q.Unsafe(`AND is_completed = `)
		q.Param(*f.IsCompleted)
	}

	q.Unsafe(`ORDER BY id ASC`)

	s, params := q.Get()

	rows, err := qf(s, params...)
	if err != nil {
		return nil, errorz.MapDBErr(err)
	}

	defer rows.Close()

	out := make([]todo.Todo, 0)
	for rows.Next() {
		var t todo.Todo
		err := rows.Scan(&t.ID, &t.Title, &t.Description, &t.IsCompleted, &t.OwnerID, &t.CreatedAt, &t.UpdatedAt)
		if err != nil {
			return nil, errorz.MapDBErr(err)
		}

		out = append(out, t)
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
