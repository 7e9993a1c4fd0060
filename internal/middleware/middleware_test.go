package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/amphitryon/backend/internal/apperr"
	"github.com/amphitryon/backend/internal/models"
)

const header = "SESSION_TOKEN_AMPHITRYON"

type resolverStub map[string]*models.User

func (r resolverStub) Resolve(_ context.Context, token string) (*models.User, error) {
	if token == "broken" {
		return nil, errors.New("store down")
	}
	u, ok := r[token]
	if !ok {
		return nil, apperr.ErrUnauthenticated
	}
	return u, nil
}

func newRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	resolver := resolverStub{
		"student-token": {ID: "s1", Username: "sam", StudentProfile: &models.StudentProfile{}},
		"host-token":    {ID: "h1", Username: "hugo", HostProfile: &models.HostProfile{}},
	}
	r := gin.New()
	r.Use(CORS("http://localhost:3000", header))
	authed := r.Group("/", JWT(resolver, header))
	authed.GET("/me", func(c *gin.Context) { c.String(http.StatusOK, CurrentUser(c).Username) })
	authed.GET("/student", RequireStudent(), func(c *gin.Context) { c.Status(http.StatusOK) })
	authed.GET("/host", RequireHost(), func(c *gin.Context) { c.Status(http.StatusOK) })
	return r
}

func do(r http.Handler, path string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestJWT(t *testing.T) {
	r := newRouter()

	w := do(r, "/me", map[string]string{header: "Bearer student-token"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "sam", w.Body.String())

	w = do(r, "/me", map[string]string{"Authorization": "Bearer host-token"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "hugo", w.Body.String())

	assert.Equal(t, http.StatusUnauthorized, do(r, "/me", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, do(r, "/me", map[string]string{header: "student-token"}).Code)
	assert.Equal(t, http.StatusUnauthorized, do(r, "/me", map[string]string{header: "Bearer nope"}).Code)
	assert.Equal(t, http.StatusInternalServerError, do(r, "/me", map[string]string{header: "Bearer broken"}).Code)
}

func TestRequireCapability(t *testing.T) {
	r := newRouter()
	student := map[string]string{header: "Bearer student-token"}
	host := map[string]string{header: "Bearer host-token"}

	assert.Equal(t, http.StatusOK, do(r, "/student", student).Code)
	assert.Equal(t, http.StatusNotAcceptable, do(r, "/student", host).Code)
	assert.Equal(t, http.StatusOK, do(r, "/host", host).Code)
	assert.Equal(t, http.StatusNotAcceptable, do(r, "/host", student).Code)
}

func TestCORS(t *testing.T) {
	r := newRouter()

	req := httptest.NewRequest(http.MethodOptions, "/me", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Headers"), header)
	assert.Equal(t, header, w.Header().Get("Access-Control-Expose-Headers"))

	req = httptest.NewRequest(http.MethodOptions, "/me", nil)
	req.Header.Set("Origin", "http://evil.example")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}
