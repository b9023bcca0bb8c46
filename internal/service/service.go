// Package service holds the authorization core of the application. Every todo
// operation passes two independent identity checks before it touches storage:
// the path-claimed username must resolve to the caller's user id, and for
// item-scoped operations the item's stored owner id must match as well. All
// failures collapse into one error so clients cannot probe for the existence
// of users or items.
package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/patric-chuzhbe/todolist/internal/models"
	"github.com/patric-chuzhbe/todolist/internal/todo"
	"github.com/patric-chuzhbe/todolist/internal/user"
)

// ErrUnauthorized covers every authorization failure: unknown username,
// identity mismatch, missing item, and foreign item alike.
var ErrUnauthorized = errors.New("unauthorized access")

type userKeeper interface {
	FindUserByUsername(ctx context.Context, username string, transaction *sql.Tx) (*user.User, bool, error)
}

type todoKeeper interface {
	CreateTodo(ctx context.Context, item *todo.Item, transaction *sql.Tx) (int64, error)
	GetUserTodos(ctx context.Context, ownerID int64) ([]todo.Item, error)
	FindTodoByID(ctx context.Context, todoID int64) (*todo.Item, bool, error)
	ToggleTodoExecution(ctx context.Context, todoID int64) (*todo.Item, bool, error)
	DeleteTodo(ctx context.Context, todoID int64) (*todo.Item, bool, error)
}

type statsKeeper interface {
	GetNumberOfUsers(ctx context.Context) (int64, error)
	GetNumberOfTodos(ctx context.Context) (int64, error)
}

type pinger interface {
	Ping(ctx context.Context) error
}

type storage interface {
	userKeeper
	todoKeeper
	statsKeeper
	pinger
}

// Service gates every todo operation on the caller's verified identity.
type Service struct {
	db storage
}

// New creates the authorization service over the given storage.
func New(db storage) *Service {
	return &Service{db: db}
}

// authorizeOwner resolves the path-claimed username and checks it against the
// caller's verified id. An unknown username is reported exactly like a
// mismatch: a 404 here would leak which usernames exist.
func (s *Service) authorizeOwner(ctx context.Context, callerID int64, username string) (*user.User, error) {
	usr, found, err := s.db.FindUserByUsername(ctx, username, nil)
	if err != nil {
		return nil, err
	}
	if !found || usr.ID != callerID {
		return nil, ErrUnauthorized
	}

	return usr, nil
}

// authorizeItem fetches the item and checks its stored owner id against the
// caller. The username check runs first: both the URL's username and the
// item's stored owner must agree with the token before the item is touched.
func (s *Service) authorizeItem(ctx context.Context, callerID int64, username string, todoID int64) error {
	if _, err := s.authorizeOwner(ctx, callerID, username); err != nil {
		return err
	}

	item, found, err := s.db.FindTodoByID(ctx, todoID)
	if err != nil {
		return err
	}
	if !found || item.OwnerID != callerID {
		return ErrUnauthorized
	}

	return nil
}

// ListTodos returns the caller's items in insertion order.
func (s *Service) ListTodos(ctx context.Context, callerID int64, username string) ([]todo.Item, error) {
	usr, err := s.authorizeOwner(ctx, callerID, username)
	if err != nil {
		return nil, err
	}

	return s.db.GetUserTodos(ctx, usr.ID)
}

// AddTodo creates a new item owned by the caller.
func (s *Service) AddTodo(
	ctx context.Context,
	callerID int64,
	username string,
	name string,
	isExecuted bool,
) (*todo.Item, error) {
	usr, err := s.authorizeOwner(ctx, callerID, username)
	if err != nil {
		return nil, err
	}

	item := &todo.Item{
		OwnerID:    usr.ID,
		Name:       name,
		IsExecuted: isExecuted,
	}

	itemID, err := s.db.CreateTodo(ctx, item, nil)
	if err != nil {
		return nil, err
	}
	item.ID = itemID

	return item, nil
}

// GetTodo returns a single item after both ownership checks pass.
func (s *Service) GetTodo(ctx context.Context, callerID int64, username string, todoID int64) (*todo.Item, error) {
	if err := s.authorizeItem(ctx, callerID, username, todoID); err != nil {
		return nil, err
	}

	item, found, err := s.db.FindTodoByID(ctx, todoID)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrUnauthorized
	}

	return item, nil
}

// ToggleTodo flips the item's is_executed flag and returns the updated record.
func (s *Service) ToggleTodo(ctx context.Context, callerID int64, username string, todoID int64) (*todo.Item, error) {
	if err := s.authorizeItem(ctx, callerID, username, todoID); err != nil {
		return nil, err
	}

	item, found, err := s.db.ToggleTodoExecution(ctx, todoID)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrUnauthorized
	}

	return item, nil
}

// DeleteTodo removes the item and returns the removed record. A repeated
// delete of the same id fails exactly like an ownership mismatch.
func (s *Service) DeleteTodo(ctx context.Context, callerID int64, username string, todoID int64) (*todo.Item, error) {
	if err := s.authorizeItem(ctx, callerID, username, todoID); err != nil {
		return nil, err
	}

	item, found, err := s.db.DeleteTodo(ctx, todoID)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrUnauthorized
	}

	return item, nil
}

// Stats returns service-wide counters for the internal stats endpoint.
func (s *Service) Stats(ctx context.Context) (models.StatsResponse, error) {
	users, err := s.db.GetNumberOfUsers(ctx)
	if err != nil {
		return models.StatsResponse{}, err
	}

	todos, err := s.db.GetNumberOfTodos(ctx)
	if err != nil {
		return models.StatsResponse{}, err
	}

	return models.StatsResponse{
		Users: users,
		Todos: todos,
	}, nil
}

// Ping checks the health of the storage layer.
func (s *Service) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}
