// Package mockstorage provides a testify-based mock implementation of the
// storage interface. It is used for unit testing the service and router
// layers by simulating storage behavior, including error paths that the real
// backends cannot produce on demand.
package mockstorage

import (
	"context"
	"database/sql"

	"github.com/stretchr/testify/mock"

	"github.com/patric-chuzhbe/todolist/internal/todo"
	"github.com/patric-chuzhbe/todolist/internal/user"
)

// StorageMock is a testify mock that implements the storage interface.
type StorageMock struct {
	mock.Mock
}

// CreateUser mocks user creation and returns the configured id.
func (m *StorageMock) CreateUser(ctx context.Context, usr *user.User, tx *sql.Tx) (int64, error) {
	args := m.Called(ctx, usr, tx)
	return args.Get(0).(int64), args.Error(1)
}

// FindUserByID mocks fetching a user by id.
func (m *StorageMock) FindUserByID(ctx context.Context, userID int64, tx *sql.Tx) (*user.User, bool, error) {
	args := m.Called(ctx, userID, tx)
	usr, _ := args.Get(0).(*user.User)
	return usr, args.Bool(1), args.Error(2)
}

// FindUserByUsername mocks fetching a user by username.
func (m *StorageMock) FindUserByUsername(ctx context.Context, username string, tx *sql.Tx) (*user.User, bool, error) {
	args := m.Called(ctx, username, tx)
	usr, _ := args.Get(0).(*user.User)
	return usr, args.Bool(1), args.Error(2)
}

// CreateTodo mocks todo creation and returns the configured id.
func (m *StorageMock) CreateTodo(ctx context.Context, item *todo.Item, tx *sql.Tx) (int64, error) {
	args := m.Called(ctx, item, tx)
	return args.Get(0).(int64), args.Error(1)
}

// GetUserTodos mocks listing an owner's items.
func (m *StorageMock) GetUserTodos(ctx context.Context, ownerID int64) ([]todo.Item, error) {
	args := m.Called(ctx, ownerID)
	items, _ := args.Get(0).([]todo.Item)
	return items, args.Error(1)
}

// FindTodoByID mocks fetching an item by id.
func (m *StorageMock) FindTodoByID(ctx context.Context, todoID int64) (*todo.Item, bool, error) {
	args := m.Called(ctx, todoID)
	item, _ := args.Get(0).(*todo.Item)
	return item, args.Bool(1), args.Error(2)
}

// ToggleTodoExecution mocks the atomic toggle.
func (m *StorageMock) ToggleTodoExecution(ctx context.Context, todoID int64) (*todo.Item, bool, error) {
	args := m.Called(ctx, todoID)
	item, _ := args.Get(0).(*todo.Item)
	return item, args.Bool(1), args.Error(2)
}

// DeleteTodo mocks removal of an item.
func (m *StorageMock) DeleteTodo(ctx context.Context, todoID int64) (*todo.Item, bool, error) {
	args := m.Called(ctx, todoID)
	item, _ := args.Get(0).(*todo.Item)
	return item, args.Bool(1), args.Error(2)
}

// GetNumberOfUsers mocks the user counter.
func (m *StorageMock) GetNumberOfUsers(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

// GetNumberOfTodos mocks the todo counter.
func (m *StorageMock) GetNumberOfTodos(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

// BeginTransaction mocks the beginning of a transaction.
func (m *StorageMock) BeginTransaction() (*sql.Tx, error) {
	args := m.Called()
	tx, _ := args.Get(0).(*sql.Tx)
	return tx, args.Error(1)
}

// CommitTransaction mocks committing a transaction.
func (m *StorageMock) CommitTransaction(tx *sql.Tx) error {
	args := m.Called(tx)
	return args.Error(0)
}

// RollbackTransaction mocks rolling back a transaction.
func (m *StorageMock) RollbackTransaction(tx *sql.Tx) error {
	args := m.Called(tx)
	return args.Error(0)
}

// Ping mocks the storage health check.
func (m *StorageMock) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// Close mocks closing the storage.
func (m *StorageMock) Close() error {
	args := m.Called()
	return args.Error(0)
}
