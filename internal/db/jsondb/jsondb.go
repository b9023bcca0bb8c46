// Package jsondb is a file-backed storage implementation. The whole dataset
// lives in memory and is flushed to a JSON file on Close. Mutations are
// serialized with a mutex, so concurrent toggles of the same item never
// interleave.
package jsondb

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"

	"github.com/thoas/go-funk"

	"github.com/patric-chuzhbe/todolist/internal/db/storage"
	"github.com/patric-chuzhbe/todolist/internal/todo"
	"github.com/patric-chuzhbe/todolist/internal/user"
)

// JSONDB keeps all records in an in-memory cache persisted as a JSON file.
type JSONDB struct {
	fileName string
	mutex    sync.RWMutex
	Cache    CacheStruct
}

// CacheStruct holds the in-memory dataset.
type CacheStruct struct {
	Users        map[int64]*user.User
	UsernameToID map[string]int64
	Todos        map[int64]*todo.Item
	NextUserID   int64
	NextTodoID   int64
}

// userRecord and todoRecord are the persisted shapes. The domain structs hide
// PasswordHash and OwnerID from API responses with `json:"-"`, so marshaling
// them directly would drop both fields from the database file.
type userRecord struct {
	ID           int64  `json:"id"`
	Username     string `json:"username"`
	PasswordHash string `json:"password_hash"`
}

type todoRecord struct {
	ID         int64  `json:"id"`
	OwnerID    int64  `json:"owner_id"`
	Name       string `json:"name"`
	IsExecuted bool   `json:"is_executed"`
}

// fileCache is the serialized shape of the database file.
type fileCache struct {
	Users        map[int64]userRecord `json:"users"`
	UsernameToID map[string]int64     `json:"username_to_id"`
	Todos        map[int64]todoRecord `json:"todos"`
	NextUserID   int64                `json:"next_user_id"`
	NextTodoID   int64                `json:"next_todo_id"`
}

func (cache *CacheStruct) toFileCache() fileCache {
	result := fileCache{
		Users:        map[int64]userRecord{},
		UsernameToID: map[string]int64{},
		Todos:        map[int64]todoRecord{},
		NextUserID:   cache.NextUserID,
		NextTodoID:   cache.NextTodoID,
	}

	for id, usr := range cache.Users {
		result.Users[id] = userRecord{
			ID:           usr.ID,
			Username:     usr.Username,
			PasswordHash: usr.PasswordHash,
		}
	}
	for username, id := range cache.UsernameToID {
		result.UsernameToID[username] = id
	}
	for id, item := range cache.Todos {
		result.Todos[id] = todoRecord{
			ID:         item.ID,
			OwnerID:    item.OwnerID,
			Name:       item.Name,
			IsExecuted: item.IsExecuted,
		}
	}

	return result
}

func (persisted *fileCache) toCache() CacheStruct {
	result := NewCache()
	result.NextUserID = persisted.NextUserID
	result.NextTodoID = persisted.NextTodoID

	for id, record := range persisted.Users {
		result.Users[id] = &user.User{
			ID:           record.ID,
			Username:     record.Username,
			PasswordHash: record.PasswordHash,
		}
	}
	for username, id := range persisted.UsernameToID {
		result.UsernameToID[username] = id
	}
	for id, record := range persisted.Todos {
		result.Todos[id] = &todo.Item{
			ID:         record.ID,
			OwnerID:    record.OwnerID,
			Name:       record.Name,
			IsExecuted: record.IsExecuted,
		}
	}

	return result
}

// NewCache returns an empty, fully initialized cache.
func NewCache() CacheStruct {
	return CacheStruct{
		Users:        map[int64]*user.User{},
		UsernameToID: map[string]int64{},
		Todos:        map[int64]*todo.Item{},
		NextUserID:   1,
		NextTodoID:   1,
	}
}

func initDBFile(fileName string) error {
	empty := NewCache()
	data, err := json.MarshalIndent(empty.toFileCache(), "", "\t")
	if err != nil {
		return err
	}

	return os.WriteFile(fileName, data, 0644)
}

func parseJSONFile(fileName string, cache *fileCache) error {
	file, err := os.Open(fileName)
	if err != nil {
		return err
	}
	defer file.Close()

	return json.NewDecoder(file).Decode(cache)
}

func writeToJSONFile(fileName string, cache interface{}) error {
	jsonData, err := json.MarshalIndent(cache, "", "\t")
	if err != nil {
		return fmt.Errorf("error marshaling JSON: %w", err)
	}

	if err := os.WriteFile(fileName, jsonData, 0644); err != nil {
		return fmt.Errorf("error writing to file: %w", err)
	}

	return nil
}

// New loads the database from fileName, creating an empty file when none
// exists yet.
func New(fileName string) (*JSONDB, error) {
	db := JSONDB{
		fileName: fileName,
	}

	var persisted fileCache
	err := parseJSONFile(db.fileName, &persisted)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
		if err := initDBFile(fileName); err != nil {
			return nil, err
		}
		if err := parseJSONFile(db.fileName, &persisted); err != nil {
			return nil, err
		}
	}

	db.Cache = persisted.toCache()
	db.normalizeCache()

	return &db, nil
}

// normalizeCache repairs missing maps and counters after loading a file that
// was written by hand or by an older version.
func (db *JSONDB) normalizeCache() {
	if db.Cache.Users == nil {
		db.Cache.Users = map[int64]*user.User{}
	}
	if db.Cache.UsernameToID == nil {
		db.Cache.UsernameToID = map[string]int64{}
	}
	if db.Cache.Todos == nil {
		db.Cache.Todos = map[int64]*todo.Item{}
	}
	for id := range db.Cache.Users {
		if id >= db.Cache.NextUserID {
			db.Cache.NextUserID = id + 1
		}
	}
	for id := range db.Cache.Todos {
		if id >= db.Cache.NextTodoID {
			db.Cache.NextTodoID = id + 1
		}
	}
	if db.Cache.NextUserID < 1 {
		db.Cache.NextUserID = 1
	}
	if db.Cache.NextTodoID < 1 {
		db.Cache.NextTodoID = 1
	}
}

// CreateUser stores a new user and returns its assigned id.
func (db *JSONDB) CreateUser(ctx context.Context, usr *user.User, transaction *sql.Tx) (int64, error) {
	db.mutex.Lock()
	defer db.mutex.Unlock()

	if _, exists := db.Cache.UsernameToID[usr.Username]; exists {
		return 0, storage.ErrUsernameTaken
	}

	id := db.Cache.NextUserID
	db.Cache.NextUserID++

	stored := *usr
	stored.ID = id
	db.Cache.Users[id] = &stored
	db.Cache.UsernameToID[stored.Username] = id

	return id, nil
}

// FindUserByID returns the user with the given id, if any.
func (db *JSONDB) FindUserByID(ctx context.Context, userID int64, transaction *sql.Tx) (*user.User, bool, error) {
	db.mutex.RLock()
	defer db.mutex.RUnlock()

	usr, found := db.Cache.Users[userID]
	if !found {
		return nil, false, nil
	}
	result := *usr

	return &result, true, nil
}

// FindUserByUsername returns the user with the given username, if any.
func (db *JSONDB) FindUserByUsername(ctx context.Context, username string, transaction *sql.Tx) (*user.User, bool, error) {
	db.mutex.RLock()
	defer db.mutex.RUnlock()

	id, found := db.Cache.UsernameToID[username]
	if !found {
		return nil, false, nil
	}
	result := *db.Cache.Users[id]

	return &result, true, nil
}

// CreateTodo stores a new todo item and returns its assigned id.
func (db *JSONDB) CreateTodo(ctx context.Context, item *todo.Item, transaction *sql.Tx) (int64, error) {
	db.mutex.Lock()
	defer db.mutex.Unlock()

	id := db.Cache.NextTodoID
	db.Cache.NextTodoID++

	stored := *item
	stored.ID = id
	db.Cache.Todos[id] = &stored

	return id, nil
}

// GetUserTodos returns the owner's items ordered by id, which is insertion
// order because ids are assigned sequentially.
func (db *JSONDB) GetUserTodos(ctx context.Context, ownerID int64) ([]todo.Item, error) {
	db.mutex.RLock()
	defer db.mutex.RUnlock()

	all := make([]todo.Item, 0, len(db.Cache.Todos))
	for _, item := range db.Cache.Todos {
		all = append(all, *item)
	}

	result := funk.Filter(all, func(item todo.Item) bool {
		return item.OwnerID == ownerID
	}).([]todo.Item)

	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })

	return result, nil
}

// FindTodoByID returns the item with the given id, if any.
func (db *JSONDB) FindTodoByID(ctx context.Context, todoID int64) (*todo.Item, bool, error) {
	db.mutex.RLock()
	defer db.mutex.RUnlock()

	item, found := db.Cache.Todos[todoID]
	if !found {
		return nil, false, nil
	}
	result := *item

	return &result, true, nil
}

// ToggleTodoExecution flips is_executed under the write lock and returns the
// updated item.
func (db *JSONDB) ToggleTodoExecution(ctx context.Context, todoID int64) (*todo.Item, bool, error) {
	db.mutex.Lock()
	defer db.mutex.Unlock()

	item, found := db.Cache.Todos[todoID]
	if !found {
		return nil, false, nil
	}
	item.IsExecuted = !item.IsExecuted
	result := *item

	return &result, true, nil
}

// DeleteTodo removes the item and returns the removed record.
func (db *JSONDB) DeleteTodo(ctx context.Context, todoID int64) (*todo.Item, bool, error) {
	db.mutex.Lock()
	defer db.mutex.Unlock()

	item, found := db.Cache.Todos[todoID]
	if !found {
		return nil, false, nil
	}
	delete(db.Cache.Todos, todoID)
	result := *item

	return &result, true, nil
}

// GetNumberOfUsers returns the total amount of registered users.
func (db *JSONDB) GetNumberOfUsers(ctx context.Context) (int64, error) {
	db.mutex.RLock()
	defer db.mutex.RUnlock()

	return int64(len(db.Cache.Users)), nil
}

// GetNumberOfTodos returns the total amount of stored todo items.
func (db *JSONDB) GetNumberOfTodos(ctx context.Context) (int64, error) {
	db.mutex.RLock()
	defer db.mutex.RUnlock()

	return int64(len(db.Cache.Todos)), nil
}

// BeginTransaction is a no-op; the file backend serializes with its mutex.
func (db *JSONDB) BeginTransaction() (*sql.Tx, error) {
	return nil, nil
}

// CommitTransaction is a no-op for the file backend.
func (db *JSONDB) CommitTransaction(transaction *sql.Tx) error {
	return nil
}

// RollbackTransaction is a no-op for the file backend.
func (db *JSONDB) RollbackTransaction(transaction *sql.Tx) error {
	return nil
}

// Ping always succeeds for the file backend.
func (db *JSONDB) Ping(ctx context.Context) error {
	return nil
}

// Close flushes the cache to the JSON file.
func (db *JSONDB) Close() error {
	db.mutex.RLock()
	defer db.mutex.RUnlock()

	return writeToJSONFile(db.fileName, db.Cache.toFileCache())
}
