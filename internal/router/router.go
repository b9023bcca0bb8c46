// Package router maps the HTTP surface onto the credential and todo services.
// Handlers only decode, dispatch, and serialize; every ownership decision
// lives in the service layer.
package router

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	validator "github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/patric-chuzhbe/todolist/internal/auth"
	"github.com/patric-chuzhbe/todolist/internal/credentials"
	"github.com/patric-chuzhbe/todolist/internal/db/storage"
	"github.com/patric-chuzhbe/todolist/internal/gzippedhttp"
	"github.com/patric-chuzhbe/todolist/internal/logger"
	"github.com/patric-chuzhbe/todolist/internal/models"
	"github.com/patric-chuzhbe/todolist/internal/service"
	"github.com/patric-chuzhbe/todolist/internal/todo"
)

type authenticator interface {
	Issue(userID int64) (string, error)
	Authenticate(h http.Handler) http.Handler
	CookieName() string
}

type credentialsKeeper interface {
	Register(ctx context.Context, username, password string) (int64, error)
	Verify(ctx context.Context, username, password string) (int64, error)
}

type todoService interface {
	ListTodos(ctx context.Context, callerID int64, username string) ([]todo.Item, error)
	AddTodo(ctx context.Context, callerID int64, username, name string, isExecuted bool) (*todo.Item, error)
	GetTodo(ctx context.Context, callerID int64, username string, todoID int64) (*todo.Item, error)
	ToggleTodo(ctx context.Context, callerID int64, username string, todoID int64) (*todo.Item, error)
	DeleteTodo(ctx context.Context, callerID int64, username string, todoID int64) (*todo.Item, error)
	Stats(ctx context.Context) (models.StatsResponse, error)
	Ping(ctx context.Context) error
}

type clientIPChecker interface {
	Check(clientIP net.IP) bool
	GetClientIP(request *http.Request) (net.IP, error)
}

// Router holds the services the HTTP handlers dispatch to.
type Router struct {
	creds     credentialsKeeper
	svc       todoService
	auth      authenticator
	ipChecker clientIPChecker
	validator *validator.Validate
}

// New wires the handlers into a chi mux.
func New(
	creds credentialsKeeper,
	svc todoService,
	authHandler authenticator,
	ipChecker clientIPChecker,
) *chi.Mux {
	theRouter := &Router{
		creds:     creds,
		svc:       svc,
		auth:      authHandler,
		ipChecker: ipChecker,
		validator: validator.New(),
	}

	router := chi.NewRouter()
	router.Use(
		logger.WithLoggingHTTPMiddleware,
		gzippedhttp.UngzipRequest,
		gzippedhttp.GzipResponse,
	)

	router.Post(`/register`, theRouter.PostRegister)
	router.Post(`/login`, theRouter.PostLogin)
	router.Get(`/ping`, theRouter.GetPing)
	router.Get(`/api/internal/stats`, theRouter.GetInternalStats)

	router.Group(func(protected chi.Router) {
		protected.Use(authHandler.Authenticate)
		protected.Get(`/logout`, theRouter.GetLogout)
		protected.Route(`/{username}/todos`, func(todos chi.Router) {
			todos.Get(`/`, theRouter.GetUserTodos)
			todos.Post(`/`, theRouter.PostUserTodos)
			todos.Get(`/{todoID}`, theRouter.GetUserTodo)
			todos.Put(`/{todoID}`, theRouter.ToggleUserTodo)
			todos.Patch(`/{todoID}`, theRouter.ToggleUserTodo)
			todos.Delete(`/{todoID}`, theRouter.DeleteUserTodo)
		})
	})

	return router
}

// PostRegister creates a new user from a `{username, password}` body.
func (theRouter *Router) PostRegister(response http.ResponseWriter, request *http.Request) {
	requestBody, ok := theRouter.decodeCredentials(response, request)
	if !ok {
		return
	}

	_, err := theRouter.creds.Register(request.Context(), requestBody.Username, requestBody.Password)
	switch {
	case errors.Is(err, storage.ErrUsernameTaken):
		writeJSON(response, http.StatusBadRequest, models.MessageResponse{Message: "User already exists"})

	case errors.Is(err, credentials.ErrMissingField):
		writeJSON(response, http.StatusBadRequest, models.MessageResponse{Message: "Missing username or password"})

	case err != nil:
		writeInternalError(response, "register", err)

	default:
		writeJSON(response, http.StatusCreated, models.MessageResponse{Message: "User registered successfully"})
	}
}

// PostLogin verifies credentials and hands out a token, both in the response
// body and as an httponly cookie.
func (theRouter *Router) PostLogin(response http.ResponseWriter, request *http.Request) {
	requestBody, ok := theRouter.decodeCredentials(response, request)
	if !ok {
		return
	}

	userID, err := theRouter.creds.Verify(request.Context(), requestBody.Username, requestBody.Password)
	if err != nil {
		if errors.Is(err, credentials.ErrInvalidCredentials) {
			writeJSON(response, http.StatusUnauthorized, models.MessageResponse{Message: "Invalid credentials"})
			return
		}
		writeInternalError(response, "login", err)
		return
	}

	token, err := theRouter.auth.Issue(userID)
	if err != nil {
		writeInternalError(response, "login", err)
		return
	}

	http.SetCookie(
		response,
		&http.Cookie{
			Name:     theRouter.auth.CookieName(),
			Value:    token,
			HttpOnly: true,
			Path:     "/",
		},
	)

	writeJSON(
		response,
		http.StatusOK,
		models.LoginResponse{
			Message: "Login successful",
			Token:   token,
		},
	)
}

// GetLogout expires the auth cookie. The token itself stays valid until its
// expiry; it is the client's copy that is discarded.
func (theRouter *Router) GetLogout(response http.ResponseWriter, request *http.Request) {
	http.SetCookie(
		response,
		&http.Cookie{
			Name:   theRouter.auth.CookieName(),
			Value:  "",
			MaxAge: -1,
			Path:   "/",
		},
	)

	writeJSON(response, http.StatusOK, models.MessageResponse{Message: "Logged out successfully"})
}

// GetUserTodos lists the path user's items.
func (theRouter *Router) GetUserTodos(response http.ResponseWriter, request *http.Request) {
	callerID, ok := callerIDFromContext(request.Context())
	if !ok {
		writeUnauthorized(response)
		return
	}

	items, err := theRouter.svc.ListTodos(request.Context(), callerID, chi.URLParam(request, "username"))
	if err != nil {
		writeServiceError(response, "list todos", err)
		return
	}

	writeJSON(response, http.StatusOK, items)
}

// PostUserTodos creates an item from a `{name, is_executed?}` body.
func (theRouter *Router) PostUserTodos(response http.ResponseWriter, request *http.Request) {
	callerID, ok := callerIDFromContext(request.Context())
	if !ok {
		writeUnauthorized(response)
		return
	}

	var requestBody models.AddTodoRequest
	if err := json.NewDecoder(request.Body).Decode(&requestBody); err != nil {
		writeJSON(response, http.StatusBadRequest, models.MessageResponse{Message: "Invalid JSON data"})
		return
	}
	if err := theRouter.validator.Struct(requestBody); err != nil {
		writeJSON(response, http.StatusBadRequest, models.MessageResponse{Message: "Missing todo name"})
		return
	}

	item, err := theRouter.svc.AddTodo(
		request.Context(),
		callerID,
		chi.URLParam(request, "username"),
		requestBody.Name,
		requestBody.IsExecuted,
	)
	if err != nil {
		writeServiceError(response, "add todo", err)
		return
	}

	writeJSON(response, http.StatusCreated, item)
}

// GetUserTodo returns a single item.
func (theRouter *Router) GetUserTodo(response http.ResponseWriter, request *http.Request) {
	theRouter.handleItemRequest(response, request, "get todo", theRouter.svc.GetTodo)
}

// ToggleUserTodo flips the item's is_executed flag.
func (theRouter *Router) ToggleUserTodo(response http.ResponseWriter, request *http.Request) {
	theRouter.handleItemRequest(response, request, "toggle todo", theRouter.svc.ToggleTodo)
}

// DeleteUserTodo removes the item and returns the removed record.
func (theRouter *Router) DeleteUserTodo(response http.ResponseWriter, request *http.Request) {
	theRouter.handleItemRequest(response, request, "delete todo", theRouter.svc.DeleteTodo)
}

// handleItemRequest is the shared shape of all item-scoped handlers: resolve
// caller, parse the id, dispatch, serialize. A non-numeric id cannot address
// any item and collapses into the uniform unauthorized reply, exactly like a
// missing one.
func (theRouter *Router) handleItemRequest(
	response http.ResponseWriter,
	request *http.Request,
	operation string,
	serviceCall func(ctx context.Context, callerID int64, username string, todoID int64) (*todo.Item, error),
) {
	callerID, ok := callerIDFromContext(request.Context())
	if !ok {
		writeUnauthorized(response)
		return
	}

	todoID, err := strconv.ParseInt(chi.URLParam(request, "todoID"), 10, 64)
	if err != nil {
		writeUnauthorized(response)
		return
	}

	item, err := serviceCall(request.Context(), callerID, chi.URLParam(request, "username"), todoID)
	if err != nil {
		writeServiceError(response, operation, err)
		return
	}

	writeJSON(response, http.StatusOK, item)
}

// GetPing reports whether the storage layer is reachable.
func (theRouter *Router) GetPing(response http.ResponseWriter, request *http.Request) {
	if err := theRouter.svc.Ping(request.Context()); err != nil {
		logger.Log.Debugln("storage ping failed: ", zap.Error(err))
		response.WriteHeader(http.StatusInternalServerError)
		return
	}

	response.WriteHeader(http.StatusOK)
}

// GetInternalStats returns service-wide counters to callers from the trusted
// subnet.
func (theRouter *Router) GetInternalStats(response http.ResponseWriter, request *http.Request) {
	clientIP, err := theRouter.ipChecker.GetClientIP(request)
	if err != nil || !theRouter.ipChecker.Check(clientIP) {
		response.WriteHeader(http.StatusForbidden)
		return
	}

	stats, err := theRouter.svc.Stats(request.Context())
	if err != nil {
		writeInternalError(response, "stats", err)
		return
	}

	writeJSON(response, http.StatusOK, stats)
}

func (theRouter *Router) decodeCredentials(
	response http.ResponseWriter,
	request *http.Request,
) (models.CredentialsRequest, bool) {
	var requestBody models.CredentialsRequest
	if err := json.NewDecoder(request.Body).Decode(&requestBody); err != nil {
		writeJSON(response, http.StatusBadRequest, models.MessageResponse{Message: "Invalid JSON data"})
		return requestBody, false
	}

	if err := theRouter.validator.Struct(requestBody); err != nil {
		writeJSON(response, http.StatusBadRequest, models.MessageResponse{Message: "Missing username or password"})
		return requestBody, false
	}

	return requestBody, true
}

func callerIDFromContext(ctx context.Context) (int64, bool) {
	callerID, ok := ctx.Value(auth.UserIDKey).(int64)
	return callerID, ok
}

func writeJSON(response http.ResponseWriter, statusCode int, payload interface{}) {
	response.Header().Set("Content-Type", "application/json")
	response.WriteHeader(statusCode)
	if err := json.NewEncoder(response).Encode(payload); err != nil {
		logger.Log.Debugln("error while encoding the response: ", zap.Error(err))
	}
}

func writeUnauthorized(response http.ResponseWriter) {
	writeJSON(response, http.StatusUnauthorized, models.MessageResponse{Message: models.UnauthorizedMessage})
}

func writeInternalError(response http.ResponseWriter, operation string, err error) {
	logger.Log.Debugln("error while handling the `"+operation+"` request: ", zap.Error(err))
	writeJSON(response, http.StatusInternalServerError, models.MessageResponse{Message: "An error occurred"})
}

// writeServiceError maps service errors to responses: authorization failures
// collapse into the uniform 401, everything else is a 500.
func writeServiceError(response http.ResponseWriter, operation string, err error) {
	if errors.Is(err, service.ErrUnauthorized) {
		writeUnauthorized(response)
		return
	}

	writeInternalError(response, operation, err)
}
