// Package user defines the user account model used throughout the
// application, particularly for authentication and todo ownership.
package user

// User represents a registered account.
type User struct {
	// ID is the unique identifier of the user, assigned by the storage layer.
	ID int64 `json:"id"`

	// Username is unique across all users and immutable after registration.
	Username string `json:"username"`

	// PasswordHash is the bcrypt digest of the user's password.
	// It is never serialized into responses.
	PasswordHash string `json:"-"`
}
