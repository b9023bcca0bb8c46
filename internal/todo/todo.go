// Package todo defines the todo item model.
package todo

// Item is a single todo record. Each item is exclusively owned by one user;
// the owner id is set at creation and never changes.
type Item struct {
	ID int64 `json:"id"`

	// OwnerID references user.User.ID. It is never exposed in responses;
	// ownership is an authorization concern, not part of the wire format.
	OwnerID int64 `json:"-"`

	Name       string `json:"name"`
	IsExecuted bool   `json:"is_executed"`
}
