package todo

import "context"

// TodoFilter is used to filter todos.
// Returned todos must match all the provided fields.
// If a field is empty or nil, it's ignored.
type TodoFilter struct {
	IDs         []int
	OwnerIDs    []int
	IsCompleted *bool
}

// Store provides access to the todo store.
type Store interface {
	CreateTodo(ctx context.Context, t *Todo) error
	UpdateTodo(ctx context.Context, t *Todo) error
	DeleteTodo(ctx context.Context, id int) error
	FindTodos(ctx context.Context, filter *TodoFilter) ([]Todo, error)
}
