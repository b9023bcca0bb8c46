package auth

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testCookieName = "access_token"

var testSigningKey = []byte("test-signing-key")

func newTestAuth(tokenTTL time.Duration) *Auth {
	return New(testCookieName, testSigningKey, tokenTTL)
}

func TestIssueAndResolveFromHeader(t *testing.T) {
	theAuth := newTestAuth(time.Hour)

	token, err := theAuth.Issue(42)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	request := httptest.NewRequest(http.MethodGet, "/alice/todos", nil)
	request.Header.Set("Authorization", "Bearer "+token)

	userID, err := theAuth.ResolveIdentity(request)
	require.NoError(t, err)
	assert.Equal(t, int64(42), userID)
}

func TestResolveFromCookie(t *testing.T) {
	theAuth := newTestAuth(time.Hour)

	token, err := theAuth.Issue(7)
	require.NoError(t, err)

	request := httptest.NewRequest(http.MethodGet, "/alice/todos", nil)
	request.AddCookie(&http.Cookie{Name: testCookieName, Value: token})

	userID, err := theAuth.ResolveIdentity(request)
	require.NoError(t, err)
	assert.Equal(t, int64(7), userID)
}

func TestHeaderTakesPrecedenceOverCookie(t *testing.T) {
	theAuth := newTestAuth(time.Hour)

	headerToken, err := theAuth.Issue(1)
	require.NoError(t, err)
	cookieToken, err := theAuth.Issue(2)
	require.NoError(t, err)

	request := httptest.NewRequest(http.MethodGet, "/alice/todos", nil)
	request.Header.Set("Authorization", "Bearer "+headerToken)
	request.AddCookie(&http.Cookie{Name: testCookieName, Value: cookieToken})

	userID, err := theAuth.ResolveIdentity(request)
	require.NoError(t, err)
	assert.Equal(t, int64(1), userID)
}

func TestNonBearerHeaderDoesNotShadowCookie(t *testing.T) {
	theAuth := newTestAuth(time.Hour)

	cookieToken, err := theAuth.Issue(7)
	require.NoError(t, err)

	request := httptest.NewRequest(http.MethodGet, "/alice/todos", nil)
	request.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
	request.AddCookie(&http.Cookie{Name: testCookieName, Value: cookieToken})

	userID, err := theAuth.ResolveIdentity(request)
	require.NoError(t, err)
	assert.Equal(t, int64(7), userID)

	// Without the cookie the non-Bearer header is no token source at all.
	bare := httptest.NewRequest(http.MethodGet, "/alice/todos", nil)
	bare.Header.Set("Authorization", "Basic dXNlcjpwYXNz")

	_, err = theAuth.ResolveIdentity(bare)
	assert.True(t, errors.Is(err, ErrMissingToken))
}

func TestResolveFailsClosed(t *testing.T) {
	theAuth := newTestAuth(time.Hour)

	foreignAuth := New(testCookieName, []byte("another-key"), time.Hour)
	foreignToken, err := foreignAuth.Issue(42)
	require.NoError(t, err)

	expiredAuth := newTestAuth(-time.Minute)
	expiredToken, err := expiredAuth.Issue(42)
	require.NoError(t, err)

	testCases := []struct {
		name        string
		prepare     func(request *http.Request)
		expectedErr error
	}{
		{
			name:        "no token at all",
			prepare:     func(request *http.Request) {},
			expectedErr: ErrMissingToken,
		},
		{
			name: "garbage in the header",
			prepare: func(request *http.Request) {
				request.Header.Set("Authorization", "Bearer not-a-jwt")
			},
			expectedErr: ErrInvalidToken,
		},
		{
			name: "token signed with another key",
			prepare: func(request *http.Request) {
				request.Header.Set("Authorization", "Bearer "+foreignToken)
			},
			expectedErr: ErrInvalidToken,
		},
		{
			name: "expired token",
			prepare: func(request *http.Request) {
				request.Header.Set("Authorization", "Bearer "+expiredToken)
			},
			expectedErr: ErrInvalidToken,
		},
		{
			name: "garbage in the cookie",
			prepare: func(request *http.Request) {
				request.AddCookie(&http.Cookie{Name: testCookieName, Value: "not-a-jwt"})
			},
			expectedErr: ErrInvalidToken,
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			request := httptest.NewRequest(http.MethodGet, "/alice/todos", nil)
			testCase.prepare(request)

			_, err := theAuth.ResolveIdentity(request)
			assert.True(t, errors.Is(err, testCase.expectedErr))
		})
	}
}

func TestTokensWithoutTTLNeverExpire(t *testing.T) {
	theAuth := newTestAuth(0)

	token, err := theAuth.Issue(42)
	require.NoError(t, err)

	request := httptest.NewRequest(http.MethodGet, "/alice/todos", nil)
	request.Header.Set("Authorization", "Bearer "+token)

	userID, err := theAuth.ResolveIdentity(request)
	require.NoError(t, err)
	assert.Equal(t, int64(42), userID)
}

func TestAuthenticateMiddleware(t *testing.T) {
	theAuth := newTestAuth(time.Hour)

	token, err := theAuth.Issue(42)
	require.NoError(t, err)

	var seenUserID int64
	var handlerCalled bool
	handler := theAuth.Authenticate(http.HandlerFunc(func(response http.ResponseWriter, request *http.Request) {
		handlerCalled = true
		seenUserID, _ = request.Context().Value(UserIDKey).(int64)
	}))

	t.Run("valid token reaches the handler", func(t *testing.T) {
		handlerCalled = false
		request := httptest.NewRequest(http.MethodGet, "/alice/todos", nil)
		request.Header.Set("Authorization", "Bearer "+token)
		recorder := httptest.NewRecorder()

		handler.ServeHTTP(recorder, request)

		assert.True(t, handlerCalled)
		assert.Equal(t, int64(42), seenUserID)
	})

	t.Run("missing token is rejected with the uniform body", func(t *testing.T) {
		handlerCalled = false
		request := httptest.NewRequest(http.MethodGet, "/alice/todos", nil)
		recorder := httptest.NewRecorder()

		handler.ServeHTTP(recorder, request)

		assert.False(t, handlerCalled)
		assert.Equal(t, http.StatusUnauthorized, recorder.Code)
		assert.JSONEq(t, `{"message":"Unauthorized access"}`, recorder.Body.String())
	})
}
