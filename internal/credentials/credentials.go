// Package credentials implements the credential store: registration and
// password verification over the storage layer. Passwords are only ever kept
// as bcrypt digests.
package credentials

import (
	"context"
	"database/sql"
	"errors"

	"golang.org/x/crypto/bcrypt"

	"github.com/patric-chuzhbe/todolist/internal/user"
)

// ErrMissingField is returned when the username or the password is empty.
var ErrMissingField = errors.New("missing username or password")

// ErrInvalidCredentials is returned for unknown usernames and wrong passwords
// alike, so a caller cannot tell which of the two failed.
var ErrInvalidCredentials = errors.New("invalid credentials")

type userKeeper interface {
	CreateUser(ctx context.Context, usr *user.User, transaction *sql.Tx) (int64, error)
	FindUserByUsername(ctx context.Context, username string, transaction *sql.Tx) (*user.User, bool, error)
}

type transactioner interface {
	BeginTransaction() (*sql.Tx, error)
	CommitTransaction(transaction *sql.Tx) error
	RollbackTransaction(transaction *sql.Tx) error
}

type userStorage interface {
	userKeeper
	transactioner
}

// Service registers users and verifies their passwords.
type Service struct {
	db userStorage
}

// New creates a credentials service over the given storage.
func New(db userStorage) *Service {
	return &Service{db: db}
}

// Register creates a new user with a bcrypt password digest and returns the
// assigned user id. Duplicate usernames yield storage.ErrUsernameTaken.
func (s *Service) Register(ctx context.Context, username, password string) (int64, error) {
	if username == "" || password == "" {
		return 0, ErrMissingField
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return 0, err
	}

	tx, err := s.db.BeginTransaction()
	if err != nil {
		return 0, err
	}
	defer func() {
		_ = s.db.RollbackTransaction(tx)
	}()

	userID, err := s.db.CreateUser(
		ctx,
		&user.User{
			Username:     username,
			PasswordHash: string(passwordHash),
		},
		tx,
	)
	if err != nil {
		return 0, err
	}

	if err := s.db.CommitTransaction(tx); err != nil {
		return 0, err
	}

	return userID, nil
}

// Verify checks a plaintext password against the stored digest and returns
// the user id on success. The bcrypt comparison is constant-time.
func (s *Service) Verify(ctx context.Context, username, password string) (int64, error) {
	if username == "" || password == "" {
		return 0, ErrInvalidCredentials
	}

	usr, found, err := s.db.FindUserByUsername(ctx, username, nil)
	if err != nil {
		return 0, err
	}
	if !found {
		return 0, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(usr.PasswordHash), []byte(password)); err != nil {
		return 0, ErrInvalidCredentials
	}

	return usr.ID, nil
}
