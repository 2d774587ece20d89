package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const protectedPath = "/api/employer/autocomplete_update"

func TestHTTPMiddleware(t *testing.T) {
	const (
		validSecret   = "test-secret"
		invalidSecret = "wrong-secret"
		userID        = "test-user"
	)

	// Helper to generate test tokens
	generateToken := func(secret string, expiresAt time.Time) string {
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
			"sub": userID,
			"exp": expiresAt.Unix(),
		})
		tokenString, _ := token.SignedString([]byte(secret))
		return tokenString
	}

	tests := []struct {
		name       string
		path       string
		header     string
		wantStatus int
		wantSub    string
	}{
		{
			name:       "protected path valid token",
			path:       protectedPath,
			header:     "Bearer " + generateToken(validSecret, time.Now().Add(time.Hour)),
			wantStatus: http.StatusOK,
			wantSub:    userID,
		},
		{
			name:       "protected path invalid signature",
			path:       protectedPath,
			header:     "Bearer " + generateToken(invalidSecret, time.Now().Add(time.Hour)),
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "protected path expired token",
			path:       protectedPath,
			header:     "Bearer " + generateToken(validSecret, time.Now().Add(-time.Hour)),
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "protected path missing header",
			path:       protectedPath,
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "protected path without bearer prefix",
			path:       protectedPath,
			header:     generateToken(validSecret, time.Now().Add(time.Hour)),
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "public path without token",
			path:       "/api/employer/autocomplete",
			wantStatus: http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotSub string
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotSub = Subject(r.Context())
				w.WriteHeader(http.StatusOK)
			})
			handler := HTTPMiddleware(next, validSecret, protectedPath)

			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantSub, gotSub)
		})
	}
}

func TestHTTPMiddleware_EmptySecretIsOpen(t *testing.T) {
	called := false
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	})

	rec := httptest.NewRecorder()
	HTTPMiddleware(next, "", protectedPath).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, protectedPath, nil))

	assert.True(t, called)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestGenerateToken(t *testing.T) {
	token, err := GenerateToken("maintainer", "secret")
	require.NoError(t, err)

	claims, err := validateToken(token, "secret")
	require.NoError(t, err)
	assert.Equal(t, "maintainer", claims["sub"])

	_, err = validateToken(token, "other")
	assert.Error(t, err)
}

func TestValidateToken_RejectsOtherAlgorithms(t *testing.T) {
	token := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sub": "x"})
	tokenString, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = validateToken(tokenString, "secret")
	assert.Error(t, err)
}
