package handlers

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"leadsite/api/middleware"
	"leadsite/api/models"
	"leadsite/api/scoring"
	"leadsite/api/store"
	"leadsite/api/utils"
)

var (
	fixedNow   = time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC)
	testSecret = []byte("test-secret")
)

const testAdminKey = "admin-key"

func init() {
	gin.SetMode(gin.TestMode)
}

// fakeUsers is an in-memory user store.
type fakeUsers struct {
	mu     sync.Mutex
	nextID int64
	byID   map[int64]*models.User
	err    error
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{byID: make(map[int64]*models.User)}
}

func (f *fakeUsers) CreateUser(_ context.Context, email, name string, hashed []byte) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	for _, u := range f.byID {
		if u.Email == email {
			return nil, store.ErrUserExists
		}
	}
	f.nextID++
	u := &models.User{ID: f.nextID, Email: email, Name: name, HashedPassword: hashed, IsActive: true, CreatedAt: fixedNow}
	f.byID[u.ID] = u
	return u, nil
}

func (f *fakeUsers) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	for _, u := range f.byID {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, store.ErrUserNotFound
}

func (f *fakeUsers) GetActiveUserByID(_ context.Context, id int64) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.byID[id]; ok && u.IsActive {
		return u, nil
	}
	return nil, store.ErrUserNotFound
}

func (f *fakeUsers) GetUserRefsByIDs(_ context.Context, ids []int64) (map[int64]models.UserRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[int64]models.UserRef)
	for _, id := range ids {
		if u, ok := f.byID[id]; ok {
			out[id] = u.Ref()
		}
	}
	return out, nil
}

func (f *fakeUsers) add(t *testing.T, email, password string) *models.User {
	t.Helper()
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	u, err := f.CreateUser(context.Background(), email, "", hashed)
	require.NoError(t, err)
	return u
}

// fakeSessions is an in-memory revocation list.
type fakeSessions struct {
	mu      sync.Mutex
	revoked map[string]time.Duration
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{revoked: make(map[string]time.Duration)}
}

func (f *fakeSessions) Revoke(_ context.Context, tokenID string, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.revoked[tokenID] = ttl
	return nil
}

func (f *fakeSessions) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.revoked[tokenID]
	return ok, nil
}

type testServer struct {
	router   *gin.Engine
	users    *fakeUsers
	sessions *fakeSessions
	events   *store.MemoryEventStore
	engine   *scoring.Engine
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ts := &testServer{
		users:    newFakeUsers(),
		sessions: newFakeSessions(),
		events:   store.NewMemoryEventStore(),
	}
	engine, err := scoring.NewEngine(ts.events, ts.users, scoring.Config{
		ChunkSize: 3,
		Now:       func() time.Time { return fixedNow },
	})
	require.NoError(t, err)
	ts.engine = engine

	auth := middleware.NewAuthenticator(testSecret, ts.users, ts.sessions)
	authHandlers := NewAuthHandlers(ts.users, ts.sessions, testSecret, time.Hour, false)
	authHandlers.bcryptCost = bcrypt.MinCost
	analytics := NewAnalyticsHandlers(ts.events, engine)
	analytics.now = func() time.Time { return fixedNow }
	admin := NewAdminHandlers(ts.events, engine)
	admin.now = func() time.Time { return fixedNow }

	r := gin.New()
	api := r.Group("/api")
	api.POST("/signup", authHandlers.Signup)
	api.POST("/login", authHandlers.Login)
	api.POST("/logout", auth.OptionalAuth(), authHandlers.Logout)
	api.GET("/profile", auth.AuthRequired(), authHandlers.Profile)
	api.POST("/analytics/events", auth.OptionalAuth(), analytics.IngestEvents)
	api.GET("/analytics/me/interest-summary", auth.AuthRequired(), analytics.MyInterestSummary)
	api.GET("/analytics/anonymous/popularity-summary", analytics.AnonymousPopularitySummary)
	adminGroup := api.Group("/analytics/admin", middleware.AdminRequired(testAdminKey))
	adminGroup.GET("/insights", admin.Insights)
	adminGroup.GET("/stats/event-counts", admin.EventCounts)
	adminGroup.GET("/stats/unique-visitors", admin.UniqueVisitors)
	adminGroup.GET("/stats/top-paths", admin.TopPaths)

	ts.router = r
	return ts
}

func (ts *testServer) tokenFor(t *testing.T, u *models.User) string {
	t.Helper()
	token, _, err := utils.GenerateJWT(u, testSecret, time.Hour)
	require.NoError(t, err)
	return token
}

func (ts *testServer) do(method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	return w
}

func bearer(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.NewDecoder(bytes.NewReader(w.Body.Bytes())).Decode(&out), w.Body.String())
	return out
}

func sessionCookie(w *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range w.Result().Cookies() {
		if c.Name == middleware.SessionCookie {
			return c
		}
	}
	return nil
}
