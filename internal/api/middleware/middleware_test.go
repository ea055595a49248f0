package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/gocomet/parcel-pickup/internal/domain/user"
	"github.com/gocomet/parcel-pickup/internal/service/auth"
	"github.com/gocomet/parcel-pickup/pkg/logger"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

type fakeAuthenticator struct {
	users map[string]*user.User
	err   error
}

func (f *fakeAuthenticator) Authenticate(ctx context.Context, token string) (*user.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	if u, ok := f.users[token]; ok {
		return u, nil
	}
	return nil, auth.ErrInvalidToken
}

func init() {
	gin.SetMode(gin.TestMode)
}

func newAuthRouter(authn Authenticator) *gin.Engine {
	r := gin.New()
	r.Use(RequestLogger(logger.NewNop()))
	r.GET("/private", Auth(authn, logger.NewNop()), func(c *gin.Context) {
		u, _ := CurrentUser(c)
		c.String(http.StatusOK, u.Username)
	})
	r.GET("/public", OptionalAuth(authn), func(c *gin.Context) {
		if u, ok := CurrentUser(c); ok {
			c.String(http.StatusOK, u.Username)
			return
		}
		c.String(http.StatusOK, "anonymous")
	})
	return r
}

// TestAuth tests bearer parsing and rejection
func TestAuth(t *testing.T) {
	authn := &fakeAuthenticator{users: map[string]*user.User{
		"good": {ID: uuid.New(), Username: "alice"},
	}}
	r := newAuthRouter(authn)

	tests := []struct {
		name   string
		header string
		status int
		body   string
	}{
		{"valid token", "Bearer good", http.StatusOK, "alice"},
		{"lowercase scheme", "bearer good", http.StatusOK, "alice"},
		{"missing header", "", http.StatusUnauthorized, "UNAUTHORIZED"},
		{"wrong scheme", "Basic good", http.StatusUnauthorized, "UNAUTHORIZED"},
		{"unknown token", "Bearer bad", http.StatusUnauthorized, "UNAUTHORIZED"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/private", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.status, w.Code)
			assert.Contains(t, w.Body.String(), tt.body)
			assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
		})
	}
}

// TestAuth_InfrastructureFailure tests that lookup failures are 500s, not 401s
func TestAuth_InfrastructureFailure(t *testing.T) {
	r := newAuthRouter(&fakeAuthenticator{err: errors.New("database is locked")})

	req := httptest.NewRequest(http.MethodGet, "/private", nil)
	req.Header.Set("Authorization", "Bearer any")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "database is locked")
}

// TestOptionalAuth tests that bad tokens degrade to anonymous
func TestOptionalAuth(t *testing.T) {
	r := newAuthRouter(&fakeAuthenticator{users: map[string]*user.User{
		"good": {ID: uuid.New(), Username: "alice"},
	}})

	for header, want := range map[string]string{"Bearer good": "alice", "Bearer bad": "anonymous", "": "anonymous"} {
		req := httptest.NewRequest(http.MethodGet, "/public", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, want, w.Body.String())
	}
}

// TestCORS tests preflight handling and origin matching
func TestCORS(t *testing.T) {
	r := gin.New()
	r.Use(CORS(CORSConfig{
		AllowedOrigins: []string{"https://app.example"},
		AllowedMethods: []string{"GET", "POST"},
		AllowedHeaders: []string{"Authorization"},
	}))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodOptions, "/x", nil)
	req.Header.Set("Origin", "https://app.example")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://app.example", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "GET, POST", w.Header().Get("Access-Control-Allow-Methods"))

	req = httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Origin", "https://evil.example")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

// TestRecovery tests that panics become JSON 500s
func TestRecovery(t *testing.T) {
	r := gin.New()
	r.Use(Recovery(logger.NewNop()))
	r.GET("/boom", func(c *gin.Context) { panic("boom") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "INTERNAL_ERROR")
}
