package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amphitryon/backend/internal/apperr"
	"github.com/amphitryon/backend/internal/models"
	"github.com/amphitryon/backend/pkg/docstore"
)

const sessionHeader = "SESSION_TOKEN_AMPHITRYON"

// fakeVerifier maps raw ID tokens to identities.
type fakeVerifier map[string]*Identity

func (f fakeVerifier) Verify(_ context.Context, raw, _ string) (*Identity, error) {
	id, ok := f[raw]
	if !ok {
		return nil, ErrInvalidIDToken
	}
	return id, nil
}

type envelope struct {
	Success bool          `json:"success"`
	Data    TokenResponse `json:"data"`
	Error   string        `json:"error"`
}

func newTestRouter(t *testing.T) (*gin.Engine, *Repository, *JWTService) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	repo := NewRepository(docstore.NewMemory())
	jwtSvc := NewJWTService("secret", 30)
	verifier := fakeVerifier{
		"testToken":   {Subject: TestSubject},
		"alice-token": {Subject: "g-alice", Email: "alice@example.ch", GivenName: "Alice"},
	}
	h := NewHandler(repo, jwtSvc, verifier, sessionHeader, nil)

	r := gin.New()
	r.POST("/signUpStudent", h.SignUpStudent)
	r.POST("/signUpHost", h.SignUpHost)
	r.POST("/login", h.Login)
	r.GET("/user/:username", h.GetByUsername)
	return r, repo, jwtSvc
}

func post(t *testing.T, r http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

func TestSignUpStudent_IssuesSessionHeader(t *testing.T) {
	r, repo, jwtSvc := newTestRouter(t)

	w := post(t, r, "/signUpStudent", SignUpStudentRequest{Username: "alice", TokenID: "alice-token"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	env := decode(t, w)
	require.True(t, env.Success)
	assert.Equal(t, BearerPrefix+env.Data.Token, w.Header().Get(sessionHeader))
	assert.True(t, env.Data.User.IsStudent())
	assert.Equal(t, "alice@example.ch", env.Data.User.Email)

	claims, err := jwtSvc.Validate(env.Data.Token)
	require.NoError(t, err)
	assert.Equal(t, env.Data.User.ID, claims.Subject)

	stored, err := repo.GetByUsername(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, "g-alice", stored.GoogleID)
}

func TestSignUp_Rejections(t *testing.T) {
	r, _, _ := newTestRouter(t)

	w := post(t, r, "/signUpStudent", SignUpStudentRequest{Username: "x", TokenID: "forged"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = post(t, r, "/signUpStudent", map[string]string{"tokenID": "testToken"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	require.Equal(t, http.StatusCreated, post(t, r, "/signUpStudent", SignUpStudentRequest{Username: "bob", TokenID: "testToken"}).Code)
	w = post(t, r, "/signUpStudent", SignUpStudentRequest{Username: "bob", TokenID: "testToken"})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestSignUpHost_AttachesToExistingAccount(t *testing.T) {
	r, repo, _ := newTestRouter(t)
	require.Equal(t, http.StatusCreated, post(t, r, "/signUpStudent", SignUpStudentRequest{Username: "alice", TokenID: "alice-token"}).Code)

	w := post(t, r, "/signUpHost", SignUpHostRequest{
		TokenID: "alice-token", Name: "Bar du Lac", Street: "Rue du Lac", StreetNb: "4", CityName: "Yverdon", NPA: "1400",
		Tags: []models.Tag{{Name: "bar"}},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	u, err := repo.GetByUsername(context.Background(), "alice")
	require.NoError(t, err)
	assert.True(t, u.IsStudent())
	assert.True(t, u.IsHost())
	assert.Equal(t, "Yverdon", u.HostProfile.Address.CityName)
}

func TestLogin(t *testing.T) {
	r, _, _ := newTestRouter(t)
	require.Equal(t, http.StatusCreated, post(t, r, "/signUpStudent", SignUpStudentRequest{Username: "alice", TokenID: "alice-token"}).Code)
	require.Equal(t, http.StatusCreated, post(t, r, "/signUpStudent", SignUpStudentRequest{Username: "mock", TokenID: "testToken"}).Code)

	w := post(t, r, "/login", LoginRequest{TokenID: "alice-token"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "alice", decode(t, w).Data.User.Username)
	assert.NotEmpty(t, w.Header().Get(sessionHeader))

	w = post(t, r, "/login", LoginRequest{TokenID: "testToken", Username: "mock"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "mock", decode(t, w).Data.User.Username)

	w = post(t, r, "/login", LoginRequest{TokenID: "testToken", Username: "alice"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestGetByUsername(t *testing.T) {
	r, _, _ := newTestRouter(t)
	require.Equal(t, http.StatusCreated, post(t, r, "/signUpStudent", SignUpStudentRequest{Username: "alice", TokenID: "alice-token"}).Code)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/user/alice", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var env struct {
		Data models.UserPublic `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	assert.Equal(t, "alice", env.Data.Username)
	assert.True(t, env.Data.IsStudent)
	assert.NotContains(t, w.Body.String(), "g-alice")

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/user/nobody", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSessionResolver(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(docstore.NewMemory())
	jwtSvc := NewJWTService("secret", 30)
	require.NoError(t, repo.Save(ctx, &models.User{ID: "u1", Username: "alice"}))
	res := NewSessionResolver(jwtSvc, repo)

	token, err := jwtSvc.Generate("u1", "alice")
	require.NoError(t, err)
	u, err := res.Resolve(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, "alice", u.Username)

	_, err = res.Resolve(ctx, "garbage")
	assert.ErrorIs(t, err, apperr.ErrUnauthenticated)

	ghost, err := jwtSvc.Generate("u2", "ghost")
	require.NoError(t, err)
	_, err = res.Resolve(ctx, ghost)
	assert.ErrorIs(t, err, apperr.ErrUnauthenticated)
}
