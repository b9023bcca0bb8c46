// Package storage declares the persistence contract shared by all storage
// backends. Ownership of todo items is NOT enforced here; callers (the
// service layer) check it before touching item-scoped operations.
package storage

import (
	"context"
	"database/sql"
	"errors"

	"github.com/patric-chuzhbe/todolist/internal/todo"
	"github.com/patric-chuzhbe/todolist/internal/user"
)

// ErrUsernameTaken is returned by CreateUser when the username already exists.
var ErrUsernameTaken = errors.New("username already taken")

// Storage is the full persistence interface. The transaction parameter may be
// nil, in which case the operation runs outside any transaction. Backends
// without transactional support return a nil *sql.Tx from BeginTransaction
// and treat Commit/Rollback as no-ops.
type Storage interface {
	CreateUser(ctx context.Context, usr *user.User, transaction *sql.Tx) (int64, error)

	FindUserByID(ctx context.Context, userID int64, transaction *sql.Tx) (*user.User, bool, error)

	FindUserByUsername(ctx context.Context, username string, transaction *sql.Tx) (*user.User, bool, error)

	CreateTodo(ctx context.Context, item *todo.Item, transaction *sql.Tx) (int64, error)

	// GetUserTodos returns the owner's items in insertion (id) order.
	GetUserTodos(ctx context.Context, ownerID int64) ([]todo.Item, error)

	FindTodoByID(ctx context.Context, todoID int64) (*todo.Item, bool, error)

	// ToggleTodoExecution flips is_executed as a single atomic
	// read-modify-write and returns the updated item.
	ToggleTodoExecution(ctx context.Context, todoID int64) (*todo.Item, bool, error)

	// DeleteTodo removes the item and returns the removed record.
	DeleteTodo(ctx context.Context, todoID int64) (*todo.Item, bool, error)

	GetNumberOfUsers(ctx context.Context) (int64, error)

	GetNumberOfTodos(ctx context.Context) (int64, error)

	BeginTransaction() (*sql.Tx, error)

	CommitTransaction(transaction *sql.Tx) error

	RollbackTransaction(transaction *sql.Tx) error

	Ping(ctx context.Context) error

	Close() error
}
