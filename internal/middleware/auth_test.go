package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aliskhannn/prok/internal/auth"
)

func newEngine(tokens *auth.Tokens) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()

	echo := func(c *gin.Context) {
		c.String(http.StatusOK, UserID(c).String())
	}
	r.GET("/required", RequireAuth(tokens), echo)
	r.GET("/optional", OptionalAuth(tokens), echo)

	return r
}

func TestAuthMiddleware(t *testing.T) {
	tokens := auth.NewTokens("secret", time.Hour)
	id := uuid.New()
	token, err := tokens.Issue(id, "alice")
	require.NoError(t, err)

	tests := []struct {
		name       string
		path       string
		header     string
		wantStatus int
		wantBody   string
	}{
		{"required with token", "/required", "Bearer " + token, http.StatusOK, id.String()},
		{"required lowercase scheme", "/required", "bearer " + token, http.StatusOK, id.String()},
		{"required without token", "/required", "", http.StatusUnauthorized, ""},
		{"required bad token", "/required", "Bearer nope", http.StatusUnauthorized, ""},
		{"required wrong scheme", "/required", "Basic " + token, http.StatusUnauthorized, ""},
		{"optional with token", "/optional", "Bearer " + token, http.StatusOK, id.String()},
		{"optional anonymous", "/optional", "", http.StatusOK, uuid.Nil.String()},
		{"optional bad token", "/optional", "Bearer nope", http.StatusOK, uuid.Nil.String()},
	}

	r := newEngine(tokens)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantBody != "" {
				assert.Equal(t, tt.wantBody, w.Body.String())
			}
		})
	}
}

func TestCORSMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(CORSMiddleware([]string{"http://localhost:3000"}))
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
}
