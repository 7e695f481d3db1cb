// Package todo provides the ownership-scoped task list workflow.
package todo

import (
	"context"
	"errors"
	"time"

	"github.com/mwolthuis/ticklist/internal/errorz"
)

// ErrNotOwner indicates an operation on a todo owned by another user.
var ErrNotOwner = errors.New("not the owner")

// Input is the mutable part of a todo, as submitted by a form.
//
// There is no server-side requirement on title or description, both may
// be empty.
type Input struct {
	Title       string
	Description string
	IsCompleted bool
}

// Service provides the rules for the todo workflow. Every operation is
// scoped to the requesting user, callers pass the authenticated user's ID.
type Service struct {
	store Store

	// NowFunc is used to get the current time.
	// Exposed for testing purposes.
	NowFunc func() time.Time
}

func NewService(store Store) *Service {
	return &Service{
		store:   store,
		NowFunc: time.Now,
	}
}

// List returns the owner's todos matching the filter, together with
// counts over the owner's full, unfiltered set.
func (s *Service) List(ctx context.Context, ownerID int, f Filter) ([]Todo, Counts, error) {
	all, err := s.store.FindTodos(ctx, &TodoFilter{OwnerIDs: []int{ownerID}})
	if err != nil {
		return nil, Counts{}, err
	}

	var counts Counts
	shown := make([]Todo, 0, len(all))
	for _, t := range all {
		counts.All++
		if t.IsCompleted {
			counts.Completed++
		} else {
			counts.Incomplete++
		}

		switch f {
		case FilterComplete:
			if t.IsCompleted {
				shown = append(shown, t)
			}
		case FilterIncomplete:
			if !t.IsCompleted {
				shown = append(shown, t)
			}
		default:
			shown = append(shown, t)
		}
	}

	return shown, counts, nil
}

// Create persists a new todo owned by the requester.
func (s *Service) Create(ctx context.Context, ownerID int, in Input) (Todo, error) {
	now := s.NowFunc()
	t := Todo{
		Title:       in.Title,
		Description: in.Description,
		IsCompleted: in.IsCompleted,
		OwnerID:     ownerID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.store.CreateTodo(ctx, &t); err != nil {
		return Todo{}, err
	}

	return t, nil
}

// Get returns the todo with the provided ID if it is owned by the
// requester. A todo that exists but belongs to someone else results in
// errorz.ErrNotFound, so existence is not leaked to other users.
func (s *Service) Get(ctx context.Context, ownerID, id int) (Todo, error) {
	t, err := s.GetAny(ctx, id)
	if err != nil {
		return Todo{}, err
	}

	if t.OwnerID != ownerID {
		return Todo{}, errorz.ErrNotFound
	}

	return t, nil
}

// GetAny returns the todo with the provided ID regardless of owner.
//
// It exists for the delete confirmation flow, which renders the
// confirmation page for any existing todo and only denies on submission.
func (s *Service) GetAny(ctx context.Context, id int) (Todo, error) {
	todos, err := s.store.FindTodos(ctx, &TodoFilter{IDs: []int{id}})
	if err != nil {
		return Todo{}, err
	}

	if len(todos) != 1 {
		return Todo{}, errorz.ErrNotFound
	}

	return todos[0], nil
}

// Update overwrites the mutable fields of the requester's todo and bumps
// its update timestamp. The same ownership rule as Get applies.
func (s *Service) Update(ctx context.Context, ownerID, id int, in Input) (Todo, error) {
	t, err := s.Get(ctx, ownerID, id)
	if err != nil {
		return Todo{}, err
	}

	t.Title = in.Title
	t.Description = in.Description
	t.IsCompleted = in.IsCompleted
	t.UpdatedAt = s.NowFunc()

	if err := s.store.UpdateTodo(ctx, &t); err != nil {
		return Todo{}, err
	}

	return t, nil
}

// Delete removes the todo with the provided ID.
//
// It returns errorz.ErrNotFound if no such todo exists and ErrNotOwner
// if it belongs to another user. In the latter case nothing is deleted,
// the caller decides how to present the denial.
func (s *Service) Delete(ctx context.Context, ownerID, id int) error {
	t, err := s.GetAny(ctx, id)
	if err != nil {
		return err
	}

	if t.OwnerID != ownerID {
		return ErrNotOwner
	}

	return s.store.DeleteTodo(ctx, t.ID)
}
