package jsondb

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patric-chuzhbe/todolist/internal/db/storage"
	"github.com/patric-chuzhbe/todolist/internal/todo"
	"github.com/patric-chuzhbe/todolist/internal/user"
)

func setupTestDB(t *testing.T) (*JSONDB, string) {
	t.Helper()

	fileName := filepath.Join(t.TempDir(), "db.json")
	db, err := New(fileName)
	require.NoError(t, err)

	return db, fileName
}

func TestCreateAndFindUser(t *testing.T) {
	db, _ := setupTestDB(t)

	id, err := db.CreateUser(context.Background(), &user.User{Username: "alice", PasswordHash: "hash"}, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), id)

	byName, found, err := db.FindUserByUsername(context.Background(), "alice", nil)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, id, byName.ID)
	assert.Equal(t, "hash", byName.PasswordHash)

	byID, found, err := db.FindUserByID(context.Background(), id, nil)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "alice", byID.Username)

	_, found, err = db.FindUserByUsername(context.Background(), "nosuchuser", nil)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestCreateUserDuplicateUsername(t *testing.T) {
	db, _ := setupTestDB(t)

	_, err := db.CreateUser(context.Background(), &user.User{Username: "alice", PasswordHash: "hash"}, nil)
	require.NoError(t, err)

	_, err = db.CreateUser(context.Background(), &user.User{Username: "alice", PasswordHash: "other"}, nil)
	assert.True(t, errors.Is(err, storage.ErrUsernameTaken))

	count, err := db.GetNumberOfUsers(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestGetUserTodosOrderAndIsolation(t *testing.T) {
	db, _ := setupTestDB(t)

	aliceID, err := db.CreateUser(context.Background(), &user.User{Username: "alice", PasswordHash: "x"}, nil)
	require.NoError(t, err)
	bobID, err := db.CreateUser(context.Background(), &user.User{Username: "bob", PasswordHash: "x"}, nil)
	require.NoError(t, err)

	names := []string{"first", "second", "third"}
	for _, name := range names {
		_, err := db.CreateTodo(context.Background(), &todo.Item{OwnerID: aliceID, Name: name}, nil)
		require.NoError(t, err)
	}
	_, err = db.CreateTodo(context.Background(), &todo.Item{OwnerID: bobID, Name: "bob's"}, nil)
	require.NoError(t, err)

	items, err := db.GetUserTodos(context.Background(), aliceID)
	require.NoError(t, err)
	require.Len(t, items, 3)
	for i, item := range items {
		assert.Equal(t, names[i], item.Name)
		assert.Equal(t, aliceID, item.OwnerID)
	}
}

func TestToggleTodoExecution(t *testing.T) {
	db, _ := setupTestDB(t)

	id, err := db.CreateTodo(context.Background(), &todo.Item{OwnerID: 1, Name: "buy milk"}, nil)
	require.NoError(t, err)

	toggled, found, err := db.ToggleTodoExecution(context.Background(), id)
	require.NoError(t, err)
	require.True(t, found)
	assert.True(t, toggled.IsExecuted)

	toggled, found, err = db.ToggleTodoExecution(context.Background(), id)
	require.NoError(t, err)
	require.True(t, found)
	assert.False(t, toggled.IsExecuted)

	_, found, err = db.ToggleTodoExecution(context.Background(), 99999)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestDeleteTodo(t *testing.T) {
	db, _ := setupTestDB(t)

	id, err := db.CreateTodo(context.Background(), &todo.Item{OwnerID: 1, Name: "buy milk"}, nil)
	require.NoError(t, err)

	deleted, found, err := db.DeleteTodo(context.Background(), id)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "buy milk", deleted.Name)

	_, found, err = db.FindTodoByID(context.Background(), id)
	require.NoError(t, err)
	assert.False(t, found)

	_, found, err = db.DeleteTodo(context.Background(), id)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestPersistenceAcrossReopen(t *testing.T) {
	db, fileName := setupTestDB(t)

	aliceID, err := db.CreateUser(context.Background(), &user.User{Username: "alice", PasswordHash: "hash"}, nil)
	require.NoError(t, err)
	todoID, err := db.CreateTodo(context.Background(), &todo.Item{OwnerID: aliceID, Name: "buy milk", IsExecuted: true}, nil)
	require.NoError(t, err)

	require.NoError(t, db.Close())

	reopened, err := New(fileName)
	require.NoError(t, err)

	usr, found, err := reopened.FindUserByUsername(context.Background(), "alice", nil)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, aliceID, usr.ID)
	assert.Equal(t, "hash", usr.PasswordHash, "the password digest must survive a restart")

	item, found, err := reopened.FindTodoByID(context.Background(), todoID)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "buy milk", item.Name)
	assert.True(t, item.IsExecuted)
	assert.Equal(t, aliceID, item.OwnerID, "the owner id must survive a restart")

	items, err := reopened.GetUserTodos(context.Background(), aliceID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, todoID, items[0].ID)

	// Id counters must continue past the persisted records.
	nextUserID, err := reopened.CreateUser(context.Background(), &user.User{Username: "bob", PasswordHash: "hash"}, nil)
	require.NoError(t, err)
	assert.Equal(t, aliceID+1, nextUserID)

	nextTodoID, err := reopened.CreateTodo(context.Background(), &todo.Item{OwnerID: aliceID, Name: "next"}, nil)
	require.NoError(t, err)
	assert.Equal(t, todoID+1, nextTodoID)
}

func TestReturnedRecordsAreCopies(t *testing.T) {
	db, _ := setupTestDB(t)

	id, err := db.CreateTodo(context.Background(), &todo.Item{OwnerID: 1, Name: "buy milk"}, nil)
	require.NoError(t, err)

	item, found, err := db.FindTodoByID(context.Background(), id)
	require.NoError(t, err)
	require.True(t, found)

	item.Name = "mutated"

	stored, found, err := db.FindTodoByID(context.Background(), id)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "buy milk", stored.Name)
}
