package web

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/mwolthuis/ticklist/internal/errorz"
	"github.com/mwolthuis/ticklist/internal/todo"
)

// todoIndexView is the data for the todo overview page.
type todoIndexView struct {
	Todos  []todo.Todo
	Counts todo.Counts
	Filter todo.Filter
}

func (s *Server) getTodoIndex(w http.ResponseWriter, r *http.Request) {
	userID, err := s.userID(r)
	if err != nil {
		s.handleError(w, r, err)
		return
	}

	filter := todo.ParseFilter(r.URL.Query().Get("filter"))

	todos, counts, err := s.deps.TodoService.List(r.Context(), userID, filter)
	if err != nil {
		s.handleError(w, r, err)
		return
	}

	err = s.writeView(w, r, "todo-index", todoIndexView{
		Todos:  todos,
		Counts: counts,
		Filter: filter,
	})
	if err != nil {
		s.handleError(w, r, err)
	}
}

func (s *Server) getTodoCreate(w http.ResponseWriter, r *http.Request) {
	if err := s.writeView(w, r, "todo-create", nil); err != nil {
		s.handleError(w, r, err)
	}
}

func (s *Server) postTodoCreate(w http.ResponseWriter, r *http.Request) {
	userID, err := s.userID(r)
	if err != nil {
		s.handleError(w, r, err)
		return
	}

	var form todoForm
	if err := s.decodeForm(r, &form); err != nil {
		s.handleError(w, r, err)
		return
	}

	t, err := s.deps.TodoService.Create(r.Context(), userID, todo.Input{
		Title:       form.Title,
		Description: form.Description,
		IsCompleted: bool(form.IsCompleted),
	})
	if err != nil {
		s.handleError(w, r, err)
		return
	}

	if err := s.flash(r, "Todo created successfully"); err != nil {
		s.handleError(w, r, err)
		return
	}
	s.redirect(w, r, fmt.Sprintf("/todos/%d", t.ID))
}

func (s *Server) getTodoDetail(w http.ResponseWriter, r *http.Request) {
	t, err := s.ownedTodo(r)
	if err != nil {
		s.handleError(w, r, err)
		return
	}

	if err := s.writeView(w, r, "todo-detail", t); err != nil {
		s.handleError(w, r, err)
	}
}

func (s *Server) getTodoEdit(w http.ResponseWriter, r *http.Request) {
	t, err := s.ownedTodo(r)
	if err != nil {
		s.handleError(w, r, err)
		return
	}

	if err := s.writeView(w, r, "todo-edit", t); err != nil {
		s.handleError(w, r, err)
	}
}

func (s *Server) postTodoEdit(w http.ResponseWriter, r *http.Request) {
	userID, err := s.userID(r)
	if err != nil {
		s.handleError(w, r, err)
		return
	}

	id, err := todoID(r)
	if err != nil {
		s.handleError(w, r, err)
		return
	}

	var form todoForm
	if err := s.decodeForm(r, &form); err != nil {
		s.handleError(w, r, err)
		return
	}

	t, err := s.deps.TodoService.Update(r.Context(), userID, id, todo.Input{
		Title:       form.Title,
		Description: form.Description,
		IsCompleted: bool(form.IsCompleted),
	})
	if err != nil {
		s.handleError(w, r, err)
		return
	}

	if err := s.flash(r, "Todo update success"); err != nil {
		s.handleError(w, r, err)
		return
	}
	s.redirect(w, r, fmt.Sprintf("/todos/%d", t.ID))
}

func (s *Server) getTodoDelete(w http.ResponseWriter, r *http.Request) {
	id, err := todoID(r)
	if err != nil {
		s.handleError(w, r, err)
		return
	}

	// The confirmation page is shown for any existing todo, a denied
	// delete lands back here without revealing the ownership check.
	t, err := s.deps.TodoService.GetAny(r.Context(), id)
	if err != nil {
		s.handleError(w, r, err)
		return
	}

	if err := s.writeView(w, r, "todo-delete", t); err != nil {
		s.handleError(w, r, err)
	}
}

func (s *Server) postTodoDelete(w http.ResponseWriter, r *http.Request) {
	userID, err := s.userID(r)
	if err != nil {
		s.handleError(w, r, err)
		return
	}

	id, err := todoID(r)
	if err != nil {
		s.handleError(w, r, err)
		return
	}

	err = s.deps.TodoService.Delete(r.Context(), userID, id)
	if err != nil {
		if errors.Is(err, todo.ErrNotOwner) {
			// Deleting someone else's todo silently re-renders the
			// confirmation page.
			t, gErr := s.deps.TodoService.GetAny(r.Context(), id)
			if gErr != nil {
				s.handleError(w, r, gErr)
				return
			}

			if vErr := s.writeView(w, r, "todo-delete", t); vErr != nil {
				s.handleError(w, r, vErr)
			}
			return
		}

		s.handleError(w, r, err)
		return
	}

	if err := s.flash(r, "Todo deleted successfully"); err != nil {
		s.handleError(w, r, err)
		return
	}
	s.redirect(w, r, "/todos")
}

// userID returns the authenticated user id from the request session. The
// loggedIn middleware guarantees it is set for routes that call this.
func (s *Server) userID(r *http.Request) (int, error) {
	sess, err := sessionFromCtx(r.Context())
	if err != nil {
		return 0, err
	}

	id, ok := sess.UserID()
	if !ok {
		return 0, errors.New("no user id in session")
	}

	return id, nil
}

// ownedTodo loads the todo from the id path segment, scoped to the
// authenticated user. Todos owned by other users are indistinguishable
// from missing ones.
func (s *Server) ownedTodo(r *http.Request) (todo.Todo, error) {
	userID, err := s.userID(r)
	if err != nil {
		return todo.Todo{}, err
	}

	id, err := todoID(r)
	if err != nil {
		return todo.Todo{}, err
	}

	return s.deps.TodoService.Get(r.Context(), userID, id)
}

func todoID(r *http.Request) (int, error) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		return 0, fmt.Errorf("%w: malformed todo id", errorz.ErrNotFound)
	}

	return id, nil
}
