package meetings_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amphitryon/backend/internal/assembler"
	"github.com/amphitryon/backend/internal/auth"
	"github.com/amphitryon/backend/internal/chats"
	"github.com/amphitryon/backend/internal/filter"
	"github.com/amphitryon/backend/internal/locations"
	"github.com/amphitryon/backend/internal/meetings"
	"github.com/amphitryon/backend/internal/membership"
	"github.com/amphitryon/backend/internal/middleware"
	"github.com/amphitryon/backend/internal/models"
	"github.com/amphitryon/backend/pkg/docstore"
)

type server struct {
	router *gin.Engine
	users  *auth.Repository
}

func newServer(t *testing.T) *server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	ctx := context.Background()
	store := docstore.NewMemory()

	users := auth.NewRepository(store)
	locs := locations.NewRepository(store)
	chatRepo := chats.NewRepository(store)
	repo := meetings.NewRepository(store)
	asm := assembler.New(locs)
	engine := membership.NewEngine(repo, users, chatRepo, chats.NewInlinePurger(chatRepo), asm, nil)
	h := meetings.NewHandler(engine, filter.NewEngine(locs), repo, asm, nil)

	require.NoError(t, locs.Save(ctx, &models.Location{ID: "loc-1", Name: "Bar du Lac",
		Address: models.Address{Street: "Rue du Lac", StreetNb: "4", CityName: "Yverdon", NPA: "1400"}}))
	for _, u := range []*models.User{
		{ID: "alice", Username: "alice", StudentProfile: &models.StudentProfile{}},
		{ID: "bob", Username: "bob", StudentProfile: &models.StudentProfile{}},
		{ID: "hugo", Username: "hugo", HostProfile: &models.HostProfile{}},
	} {
		require.NoError(t, users.Save(ctx, u))
	}

	r := gin.New()
	// Stands in for middleware.JWT: the X-User header names the principal.
	g := r.Group("/", func(c *gin.Context) {
		u, err := users.GetByID(c.Request.Context(), c.GetHeader("X-User"))
		if err == nil {
			c.Set(middleware.ContextUser, u)
		}
		c.Next()
	})
	h.Register(g)
	return &server{router: r, users: users}
}

type meetingEnvelope struct {
	Success bool                   `json:"success"`
	Data    models.MeetingResponse `json:"data"`
	Error   string                 `json:"error"`
}

type listEnvelope struct {
	Success bool                     `json:"success"`
	Data    []models.MeetingResponse `json:"data"`
}

func (s *server) do(t *testing.T, method, path, user string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User", user)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *server) create(t *testing.T, user, name string, start time.Time) models.MeetingResponse {
	t.Helper()
	w := s.do(t, http.MethodPost, "/meeting", user, map[string]any{
		"name":       name,
		"tags":       []models.Tag{{Name: "games"}},
		"startDate":  start,
		"endDate":    start.Add(2 * time.Hour),
		"locationID": "loc-1",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var env meetingEnvelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env.Data
}

func start() time.Time { return time.Date(2030, time.March, 3, 19, 0, 0, 0, time.UTC) }

func TestMeetingLifecycle(t *testing.T) {
	s := newServer(t)
	m := s.create(t, "alice", "Chess Club", start())
	assert.Equal(t, "Bar du Lac", m.LocationName)

	w := s.do(t, http.MethodPost, "/meeting/join/"+m.ID, "bob", nil)
	require.Equal(t, http.StatusOK, w.Code)
	w = s.do(t, http.MethodPost, "/meeting/join/"+m.ID, "bob", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var joined meetingEnvelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &joined))
	assert.Equal(t, []string{"alice", "bob"}, joined.Data.MembersID)

	w = s.do(t, http.MethodPost, "/getMyMeetings", "bob", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var mine listEnvelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &mine))
	require.Len(t, mine.Data, 1)

	w = s.do(t, http.MethodPost, "/leaveMeeting/"+m.ID, "bob", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodDelete, "/meeting/"+m.ID, "alice", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, w.Body.String())

	w = s.do(t, http.MethodGet, "/meeting/"+m.ID, "alice", nil)
	assert.Equal(t, http.StatusNotAcceptable, w.Code)
}

func TestDomainFailuresAreNotAcceptable(t *testing.T) {
	s := newServer(t)

	w := s.do(t, http.MethodPost, "/meeting", "hugo", map[string]any{"name": "x", "locationID": "loc-1"})
	assert.Equal(t, http.StatusNotAcceptable, w.Code)
	var env meetingEnvelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	assert.False(t, env.Success)
	assert.Contains(t, env.Error, "not a student")

	assert.Equal(t, http.StatusNotAcceptable, s.do(t, http.MethodPost, "/meeting/join/missing", "bob", nil).Code)
	assert.Equal(t, http.StatusNotAcceptable, s.do(t, http.MethodDelete, "/meeting/missing", "alice", nil).Code)
	assert.Equal(t, http.StatusNotAcceptable, s.do(t, http.MethodPatch, "/meeting", "alice", map[string]any{"name": "x"}).Code)
}

func TestUpdateKeepsMembership(t *testing.T) {
	s := newServer(t)
	m := s.create(t, "alice", "Chess Club", start())
	require.Equal(t, http.StatusOK, s.do(t, http.MethodPost, "/meeting/join/"+m.ID, "bob", nil).Code)

	w := s.do(t, http.MethodPatch, "/meeting", "bob", map[string]any{
		"id":         m.ID,
		"name":       "Chess Night",
		"membersID":  []string{"mallory"},
		"ownerID":    "mallory",
		"locationID": "loc-1",
		"startDate":  m.StartDate,
		"endDate":    m.EndDate,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var env meetingEnvelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	assert.Equal(t, "Chess Night", env.Data.Name)
	assert.Equal(t, []string{"alice", "bob"}, env.Data.MembersID)
	assert.Equal(t, "alice", env.Data.OwnerID)
}

func TestFilterEndpoint(t *testing.T) {
	s := newServer(t)
	a := s.create(t, "alice", "Chess Club", start())
	b := s.create(t, "alice", "Book Club", start().AddDate(0, 0, 10))

	w := s.do(t, http.MethodPost, "/meetings/filter", "bob", map[string]any{"name": "Chess"})
	require.Equal(t, http.StatusOK, w.Code)
	var env listEnvelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	require.Len(t, env.Data, 1)
	assert.Equal(t, a.ID, env.Data[0].ID)

	w = s.do(t, http.MethodPost, "/meetings/filter", "bob", map[string]any{
		"startDate": start().AddDate(0, 0, 9),
		"endDate":   start().AddDate(0, 0, 11),
		"location":  map[string]any{"address": map[string]string{"street": "Rue du Lac", "streetNb": "4", "cityName": "Yverdon", "npa": "1400"}},
	})
	require.Equal(t, http.StatusOK, w.Code)
	env = listEnvelope{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	require.Len(t, env.Data, 1)
	assert.Equal(t, b.ID, env.Data[0].ID)

	w = s.do(t, http.MethodGet, "/meetings", "bob", nil)
	require.Equal(t, http.StatusOK, w.Code)
	env = listEnvelope{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	assert.Len(t, env.Data, 2)
}

func TestCreatedMeetings(t *testing.T) {
	s := newServer(t)
	m := s.create(t, "alice", "Chess Club", start())

	w := s.do(t, http.MethodGet, "/getCreatedMeetings", "alice", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var env listEnvelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	require.Len(t, env.Data, 1)
	assert.Equal(t, m.ID, env.Data[0].ID)

	assert.Equal(t, http.StatusNotAcceptable, s.do(t, http.MethodGet, "/getCreatedMeetings", "hugo", nil).Code)
}
