// Package postgresdb provides the PostgreSQL-backed implementation of the
// storage interface. It runs goose migrations on startup and relies on the
// database's own atomicity for per-item mutations: toggling and deleting are
// single statements, so two concurrent toggles of the same item can never
// interleave.
package postgresdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pressly/goose/v3"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/patric-chuzhbe/todolist/internal/db/storage"
	"github.com/patric-chuzhbe/todolist/internal/todo"
	"github.com/patric-chuzhbe/todolist/internal/user"
)

const uniqueViolationCode = "23505"

// PostgresDB is a PostgreSQL-backed implementation of the storage interface.
type PostgresDB struct {
	database          *sql.DB
	connectionTimeout time.Duration
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type initOptions struct {
	DBPreReset bool
}

// InitOption defines a functional option for configuring database initialization.
type InitOption func(*initOptions)

// WithDBPreReset enables dropping all public tables before migration.
// It is meant for test setups.
func WithDBPreReset(value bool) InitOption {
	return func(options *initOptions) {
		options.DBPreReset = value
	}
}

// New establishes a connection to the PostgreSQL database, runs schema
// migrations, and returns a configured PostgresDB instance.
func New(
	ctx context.Context,
	databaseDSN string,
	connectionTimeout time.Duration,
	migrationsDir string,
	optionsProto ...InitOption,
) (*PostgresDB, error) {
	options := &initOptions{
		DBPreReset: false,
	}
	for _, protoOption := range optionsProto {
		protoOption(options)
	}

	database, err := sql.Open("pgx", databaseDSN)
	if err != nil {
		return nil, err
	}

	result := &PostgresDB{
		database:          database,
		connectionTimeout: connectionTimeout,
	}

	if options.DBPreReset {
		if err := result.resetDB(ctx); err != nil {
			return nil, fmt.Errorf("error while the database pre-reset: %w", err)
		}
	}

	if err := goose.SetDialect("postgres"); err != nil {
		return nil, fmt.Errorf("error while `goose.SetDialect()` calling: %w", err)
	}

	if err := goose.Up(result.database, migrationsDir); err != nil {
		return nil, fmt.Errorf("error while `goose.Up()` calling: %w", err)
	}

	return result, nil
}

func (db *PostgresDB) queryerFor(transaction *sql.Tx) queryer {
	if transaction == nil {
		return db.database
	}

	return transaction
}

// CreateUser inserts a new user record and returns the assigned id.
// A unique constraint violation on the username maps to storage.ErrUsernameTaken.
func (db *PostgresDB) CreateUser(ctx context.Context, usr *user.User, transaction *sql.Tx) (int64, error) {
	row := db.queryerFor(transaction).QueryRowContext(
		ctx,
		`INSERT INTO users (username, password_hash) VALUES ($1, $2) RETURNING id`,
		usr.Username,
		usr.PasswordHash,
	)

	var userID int64
	if err := row.Scan(&userID); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return 0, storage.ErrUsernameTaken
		}
		return 0, err
	}

	return userID, nil
}

// FindUserByID fetches a user by id. The boolean result reports presence.
func (db *PostgresDB) FindUserByID(ctx context.Context, userID int64, transaction *sql.Tx) (*user.User, bool, error) {
	row := db.queryerFor(transaction).QueryRowContext(
		ctx,
		`SELECT id, username, password_hash FROM users WHERE id = $1`,
		userID,
	)

	return scanUser(row)
}

// FindUserByUsername fetches a user by username. The boolean result reports presence.
func (db *PostgresDB) FindUserByUsername(ctx context.Context, username string, transaction *sql.Tx) (*user.User, bool, error) {
	row := db.queryerFor(transaction).QueryRowContext(
		ctx,
		`SELECT id, username, password_hash FROM users WHERE username = $1`,
		username,
	)

	return scanUser(row)
}

func scanUser(row *sql.Row) (*user.User, bool, error) {
	var usr user.User
	err := row.Scan(&usr.ID, &usr.Username, &usr.PasswordHash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}

	return &usr, true, nil
}

// CreateTodo inserts a new todo item and returns the assigned id.
func (db *PostgresDB) CreateTodo(ctx context.Context, item *todo.Item, transaction *sql.Tx) (int64, error) {
	row := db.queryerFor(transaction).QueryRowContext(
		ctx,
		`INSERT INTO todos (user_id, name, is_executed) VALUES ($1, $2, $3) RETURNING id`,
		item.OwnerID,
		item.Name,
		item.IsExecuted,
	)

	var todoID int64
	if err := row.Scan(&todoID); err != nil {
		return 0, err
	}

	return todoID, nil
}

// GetUserTodos returns the owner's items in insertion (id) order.
func (db *PostgresDB) GetUserTodos(ctx context.Context, ownerID int64) ([]todo.Item, error) {
	rows, err := db.database.QueryContext(
		ctx,
		`SELECT id, user_id, name, is_executed FROM todos WHERE user_id = $1 ORDER BY id`,
		ownerID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []todo.Item{}
	for rows.Next() {
		var item todo.Item
		if err := rows.Scan(&item.ID, &item.OwnerID, &item.Name, &item.IsExecuted); err != nil {
			return nil, err
		}
		result = append(result, item)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

// FindTodoByID fetches a todo item by id. The boolean result reports presence.
func (db *PostgresDB) FindTodoByID(ctx context.Context, todoID int64) (*todo.Item, bool, error) {
	row := db.database.QueryRowContext(
		ctx,
		`SELECT id, user_id, name, is_executed FROM todos WHERE id = $1`,
		todoID,
	)

	return scanTodo(row)
}

// ToggleTodoExecution flips is_executed in a single UPDATE, so concurrent
// toggles of the same item serialize inside the database.
func (db *PostgresDB) ToggleTodoExecution(ctx context.Context, todoID int64) (*todo.Item, bool, error) {
	row := db.database.QueryRowContext(
		ctx,
		`
			UPDATE todos
				SET is_executed = NOT is_executed
				WHERE id = $1
				RETURNING id, user_id, name, is_executed
		`,
		todoID,
	)

	return scanTodo(row)
}

// DeleteTodo removes the item and returns the removed record.
func (db *PostgresDB) DeleteTodo(ctx context.Context, todoID int64) (*todo.Item, bool, error) {
	row := db.database.QueryRowContext(
		ctx,
		`DELETE FROM todos WHERE id = $1 RETURNING id, user_id, name, is_executed`,
		todoID,
	)

	return scanTodo(row)
}

func scanTodo(row *sql.Row) (*todo.Item, bool, error) {
	var item todo.Item
	err := row.Scan(&item.ID, &item.OwnerID, &item.Name, &item.IsExecuted)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}

	return &item, true, nil
}

// GetNumberOfUsers returns the total amount of registered users.
func (db *PostgresDB) GetNumberOfUsers(ctx context.Context) (int64, error) {
	return db.countRows(ctx, `SELECT COUNT(*) FROM users`)
}

// GetNumberOfTodos returns the total amount of stored todo items.
func (db *PostgresDB) GetNumberOfTodos(ctx context.Context) (int64, error) {
	return db.countRows(ctx, `SELECT COUNT(*) FROM todos`)
}

func (db *PostgresDB) countRows(ctx context.Context, query string) (int64, error) {
	row := db.database.QueryRowContext(ctx, query)

	var count int64
	if err := row.Scan(&count); err != nil {
		return 0, err
	}

	return count, nil
}

// BeginTransaction starts a new SQL transaction. The caller is responsible
// for committing or rolling it back.
func (db *PostgresDB) BeginTransaction() (*sql.Tx, error) {
	return db.database.Begin()
}

// CommitTransaction commits the given SQL transaction.
func (db *PostgresDB) CommitTransaction(transaction *sql.Tx) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic occurred while committing transaction: %v", r)
		}
	}()

	return transaction.Commit()
}

// RollbackTransaction rolls back the given SQL transaction.
func (db *PostgresDB) RollbackTransaction(transaction *sql.Tx) error {
	return transaction.Rollback()
}

// Ping verifies connectivity with the database within the configured timeout.
func (db *PostgresDB) Ping(ctx context.Context) error {
	ctxWithTimeout, cancel := context.WithTimeout(ctx, db.connectionTimeout)
	defer cancel()

	return db.database.PingContext(ctxWithTimeout)
}

// Close closes the database connection and releases any associated resources.
func (db *PostgresDB) Close() error {
	return db.database.Close()
}

func (db *PostgresDB) resetDB(ctx context.Context) error {
	_, err := db.database.ExecContext(
		ctx,
		`
			DO $$
			DECLARE
				r RECORD;
			BEGIN
				FOR r IN (SELECT tablename FROM pg_tables WHERE schemaname = 'public') LOOP
					EXECUTE 'DROP TABLE IF EXISTS ' || quote_ident(r.tablename) || ' CASCADE';
				END LOOP;
			END $$;
		`,
	)
	if err != nil {
		return fmt.Errorf("error while dropping the public tables: %w", err)
	}

	return nil
}
