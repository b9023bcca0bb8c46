// Package models contains the request and response shapes of the HTTP API.
package models

// CredentialsRequest is the body of POST /register and POST /login.
type CredentialsRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// AddTodoRequest is the body of POST /{username}/todos.
// IsExecuted is optional and defaults to false.
type AddTodoRequest struct {
	Name       string `json:"name" validate:"required"`
	IsExecuted bool   `json:"is_executed"`
}

// UnauthorizedMessage is the body of every 401 response. It is deliberately
// uniform: missing token, unknown username, identity mismatch, and missing or
// foreign items are indistinguishable to the client.
const UnauthorizedMessage = "Unauthorized access"

// MessageResponse is the generic `{"message": ...}` body used for
// registration results, login failures, and the uniform unauthorized reply.
type MessageResponse struct {
	Message string `json:"message"`
}

// LoginResponse is returned on successful login. The same token is also set
// as an httponly cookie so browser clients need not handle it themselves.
type LoginResponse struct {
	Message string `json:"message"`
	Token   string `json:"token"`
}

// StatsResponse reports service-wide counters for the internal stats endpoint.
type StatsResponse struct {
	Users int64 `json:"users"`
	Todos int64 `json:"todos"`
}
