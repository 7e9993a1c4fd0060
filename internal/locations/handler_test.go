package locations_test

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

	"github.com/amphitryon/backend/internal/locations"
	"github.com/amphitryon/backend/internal/middleware"
	"github.com/amphitryon/backend/internal/models"
	"github.com/amphitryon/backend/pkg/docstore"
)

type locationEnvelope struct {
	Success bool            `json:"success"`
	Data    models.Location `json:"data"`
	Error   string          `json:"error"`
}

type listEnvelope struct {
	Data []models.Location `json:"data"`
}

func setup(t *testing.T, user *models.User) (*gin.Engine, *locations.Repository) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	repo := locations.NewRepository(docstore.NewMemory())
	h := locations.NewHandler(repo, nil)

	r := gin.New()
	r.Use(func(c *gin.Context) {
		if user != nil {
			c.Set(middleware.ContextUser, user)
		}
		c.Next()
	})
	r.POST("/location", middleware.RequireHost(), h.Create)
	r.GET("/location/:id", h.GetByID)
	r.GET("/locations", h.List)
	r.GET("/locations/host/:hostID", h.ListByHost)
	return r, repo
}

func do(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	return w
}

func TestCreateLocation(t *testing.T) {
	host := &models.User{ID: "h1", Username: "hugo", HostProfile: &models.HostProfile{}}
	r, repo := setup(t, host)

	body := `{"name":"Bar du Lac","hostID":"someone-else","address":{"street":"Rue du Lac","streetNb":"4","cityName":"Yverdon","npa":"1400"},
		"openingHours":[{"day":1,"startTime":"08:00","endTime":"23:30"}]}`
	w := do(r, http.MethodPost, "/location", body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var env locationEnvelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	assert.NotEmpty(t, env.Data.ID)
	assert.Equal(t, "h1", env.Data.HostID)

	stored, err := repo.GetByID(context.Background(), env.Data.ID)
	require.NoError(t, err)
	assert.Equal(t, "Yverdon", stored.Address.CityName)
}

func TestCreateLocationValidation(t *testing.T) {
	host := &models.User{ID: "h1", Username: "hugo", HostProfile: &models.HostProfile{}}
	r, _ := setup(t, host)

	tests := []struct {
		name string
		body string
		want int
	}{
		{"missing name", `{"description":"x"}`, http.StatusBadRequest},
		{"bad day", `{"name":"a","openingHours":[{"day":7,"startTime":"08:00","endTime":"09:00"}]}`, http.StatusNotAcceptable},
		{"bad time", `{"name":"a","openingHours":[{"day":1,"startTime":"8h","endTime":"09:00"}]}`, http.StatusNotAcceptable},
		{"end before start", `{"name":"a","openingHours":[{"day":1,"startTime":"10:00","endTime":"09:00"}]}`, http.StatusNotAcceptable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, do(r, http.MethodPost, "/location", tt.body).Code)
		})
	}
}

func TestCreateLocationRequiresHost(t *testing.T) {
	student := &models.User{ID: "u1", Username: "alice", StudentProfile: &models.StudentProfile{}}
	r, _ := setup(t, student)
	assert.Equal(t, http.StatusNotAcceptable, do(r, http.MethodPost, "/location", `{"name":"a"}`).Code)

	r, _ = setup(t, nil)
	assert.Equal(t, http.StatusUnauthorized, do(r, http.MethodPost, "/location", `{"name":"a"}`).Code)
}

func TestReadLocations(t *testing.T) {
	r, repo := setup(t, nil)
	ctx := context.Background()
	require.NoError(t, repo.Save(ctx, &models.Location{ID: "l1", HostID: "h1", Name: "One"}))
	require.NoError(t, repo.Save(ctx, &models.Location{ID: "l2", HostID: "h2", Name: "Two"}))
	require.NoError(t, repo.Save(ctx, &models.Location{ID: "l3", HostID: "h1", Name: "Three"}))

	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/location/l2", "").Code)
	assert.Equal(t, http.StatusNotFound, do(r, http.MethodGet, "/location/missing", "").Code)

	var all listEnvelope
	require.NoError(t, json.Unmarshal(do(r, http.MethodGet, "/locations", "").Body.Bytes(), &all))
	assert.Len(t, all.Data, 3)

	var byHost listEnvelope
	require.NoError(t, json.Unmarshal(do(r, http.MethodGet, "/locations/host/h1", "").Body.Bytes(), &byHost))
	require.Len(t, byHost.Data, 2)
	assert.Equal(t, "l1", byHost.Data[0].ID)
	assert.Equal(t, "l3", byHost.Data[1].ID)
}
