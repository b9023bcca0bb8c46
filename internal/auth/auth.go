// Package auth issues and resolves the JWT bearer tokens that identify users.
// Tokens are accepted from the Authorization header or, failing that, from a
// cookie. Resolution fails closed: any parse or signature problem is a typed
// error, never a fallback identity.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"github.com/patric-chuzhbe/todolist/internal/models"
)

// ErrMissingToken is returned when the request carries no token at all.
var ErrMissingToken = errors.New("missing token")

// ErrInvalidToken is returned when a token is present but cannot be verified.
var ErrInvalidToken = errors.New("invalid token")

// Claims represents the JWT claims used by the system.
// It embeds standard JWT claims and adds the user identifier.
type Claims struct {
	jwt.RegisteredClaims
	UserID int64 `json:"user_id"`
}

// ContextKey is a custom type for storing values in context to avoid collisions.
type ContextKey string

// UserIDKey is the context key used to store and retrieve the authenticated user's ID.
const UserIDKey ContextKey = "userID"

const bearerPrefix = "Bearer "

// Auth issues and verifies JWT tokens.
type Auth struct {
	// authCookieName is the name of the cookie used to carry the JWT.
	authCookieName string

	// signingSecretKey is the key used to sign JWTs.
	signingSecretKey []byte

	// tokenTTL bounds token validity; zero means tokens never expire.
	tokenTTL time.Duration
}

// New creates a new Auth handler with the given cookie name, JWT signing
// secret, and token lifetime.
func New(authCookieName string, signingSecretKey []byte, tokenTTL time.Duration) *Auth {
	return &Auth{
		authCookieName:   authCookieName,
		signingSecretKey: signingSecretKey,
		tokenTTL:         tokenTTL,
	}
}

// CookieName returns the name of the cookie the tokens travel in.
func (a *Auth) CookieName() string {
	return a.authCookieName
}

// Issue builds a signed token whose single custom claim is the user id.
func (a *Auth) Issue(userID int64) (string, error) {
	claims := &Claims{UserID: userID}
	if a.tokenTTL > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(time.Now().Add(a.tokenTTL))
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	tokenString, err := token.SignedString(a.signingSecretKey)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

// ResolveIdentity extracts and verifies the token from the request and
// returns the user id it claims. Sources are tried in order: the
// Authorization header first, the auth cookie second.
func (a *Auth) ResolveIdentity(request *http.Request) (int64, error) {
	tokenString := a.tokenFromRequest(request)
	if tokenString == "" {
		return 0, ErrMissingToken
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(
		tokenString,
		claims,
		func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return a.signingSecretKey, nil
		},
	)
	if err != nil || !token.Valid {
		return 0, ErrInvalidToken
	}

	return claims.UserID, nil
}

// tokenFromRequest picks the token source: a `Bearer `-prefixed Authorization
// header first, the auth cookie second. Headers carrying another scheme are
// not token sources and do not shadow the cookie.
func (a *Auth) tokenFromRequest(request *http.Request) string {
	authHeader := request.Header.Get("Authorization")
	if strings.HasPrefix(authHeader, bearerPrefix) {
		return strings.TrimPrefix(authHeader, bearerPrefix)
	}

	cookie, err := request.Cookie(a.authCookieName)
	if err != nil {
		return ""
	}

	return cookie.Value
}

// Authenticate is an HTTP middleware that resolves the caller's identity and
// stores the user id in the request context. Requests without a verifiable
// token receive the uniform unauthorized response.
func (a *Auth) Authenticate(h http.Handler) http.Handler {
	middleware := func(response http.ResponseWriter, request *http.Request) {
		userID, err := a.ResolveIdentity(request)
		if err != nil {
			writeUnauthorized(response)
			return
		}

		ctx := context.WithValue(request.Context(), UserIDKey, userID)
		h.ServeHTTP(response, request.WithContext(ctx))
	}

	return http.HandlerFunc(middleware)
}

func writeUnauthorized(response http.ResponseWriter) {
	response.Header().Set("Content-Type", "application/json")
	response.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(response).Encode(models.MessageResponse{Message: models.UnauthorizedMessage})
}
