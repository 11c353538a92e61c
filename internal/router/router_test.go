package router_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"go-content-dashboard/internal/app"
	"go-content-dashboard/internal/config"
	"go-content-dashboard/internal/model"
	"go-content-dashboard/internal/repository"
)

func testConfig() *config.Config {
	return &config.Config{
		ServerPort:       "0",
		RequestTimeout:   5 * time.Second,
		JWTSecret:        "router-test-secret",
		JWTTTL:           time.Hour,
		BcryptCost:       bcrypt.MinCost,
		CORSOrigins:      []string{"*"},
		RateLimitRPM:     0,
		AuthRateLimitRPM: 1000,
	}
}

func newTestHandler(t *testing.T, cfg *config.Config) http.Handler {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	components, err := app.Build(ctx, cfg, repository.NewMemory(), nil, nil)
	require.NoError(t, err)
	return components.Handler
}

func do(t *testing.T, h http.Handler, method string, path string, token string, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func register(t *testing.T, h http.Handler, name string, email string) model.AuthResult {
	t.Helper()

	rec := do(t, h, http.MethodPost, "/api/auth/register", "",
		`{"name":"`+name+`","email":"`+email+`","password":"secret-pw"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[model.AuthResult](t, rec)
}

func TestAuthFlow(t *testing.T) {
	t.Parallel()

	h := newTestHandler(t, testConfig())
	registered := register(t, h, "Ann", "ann@example.com")
	assert.NotEmpty(t, registered.Token)
	assert.Equal(t, "ann@example.com", registered.User.Email)

	rec := do(t, h, http.MethodPost, "/api/auth/login", "", `{"email":"ann@example.com","password":"secret-pw"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	loggedIn := decode[model.AuthResult](t, rec)
	assert.Equal(t, registered.User, loggedIn.User)

	rec = do(t, h, http.MethodGet, "/api/auth/me", loggedIn.Token, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"id":"`+registered.User.ID+`","name":"Ann","email":"ann@example.com"}`, rec.Body.String())
	assert.NotContains(t, rec.Body.String(), "password")

	rec = do(t, h, http.MethodPost, "/api/auth/login", "", `{"email":"ann@example.com","password":"wrong"}`)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "invalid credentials", decode[model.ErrorResponse](t, rec).Message)

	rec = do(t, h, http.MethodPost, "/api/auth/register", "", `{"name":"Ann","email":"ANN@example.com","password":"x"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "CONFLICT", decode[model.ErrorResponse](t, rec).Code)

	rec = do(t, h, http.MethodPost, "/api/auth/logout", loggedIn.Token, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"revoked":false}`, rec.Body.String())
}

func TestAuthRejectsBadTokens(t *testing.T) {
	t.Parallel()

	h := newTestHandler(t, testConfig())
	for _, token := range []string{"", "garbage", "a.b.c"} {
		rec := do(t, h, http.MethodGet, "/api/auth/me", token, "")
		require.Equal(t, http.StatusUnauthorized, rec.Code, token)
		assert.NotEmpty(t, decode[model.ErrorResponse](t, rec).Message)
	}

	rec := do(t, h, http.MethodPost, "/api/posts", "", `{"title":"Hi"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	rec = do(t, h, http.MethodGet, "/api/calendar", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestPostOwnershipScenario(t *testing.T) {
	t.Parallel()

	h := newTestHandler(t, testConfig())
	ann := register(t, h, "Ann", "ann@example.com")
	bob := register(t, h, "Bob", "bob@example.com")

	rec := do(t, h, http.MethodPost, "/api/posts", ann.Token, `{"title":"Hi","author":"`+bob.User.ID+`"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	post := decode[model.Post](t, rec)
	assert.Equal(t, "Hi", post.Title)
	assert.Equal(t, model.StatusIdea, post.Status)
	assert.Zero(t, post.Views)
	assert.Equal(t, ann.User.ID, post.Author)
	assert.Equal(t, "Ann", post.AuthorName)

	before := do(t, h, http.MethodGet, "/api/posts/"+post.ID, "", "")
	require.Equal(t, http.StatusOK, before.Code)
	again := do(t, h, http.MethodGet, "/api/posts/"+post.ID, "", "")
	assert.Equal(t, before.Body.Bytes(), again.Body.Bytes())

	rec = do(t, h, http.MethodPut, "/api/posts/"+post.ID, bob.Token, `{"title":"Bob was here"}`)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "User not authorized", decode[model.ErrorResponse](t, rec).Message)

	after := do(t, h, http.MethodGet, "/api/posts/"+post.ID, "", "")
	assert.Equal(t, before.Body.Bytes(), after.Body.Bytes())

	rec = do(t, h, http.MethodPut, "/api/posts/"+post.ID, ann.Token, `{"status":"Published","views":12,"date":"2024-05-01"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decode[model.Post](t, rec)
	assert.Equal(t, model.StatusPublished, updated.Status)
	assert.Equal(t, 12, updated.Views)
	assert.Equal(t, "Hi", updated.Title)

	rec = do(t, h, http.MethodGet, "/api/posts?authorId="+ann.User.ID, "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]model.Post](t, rec), 1)

	rec = do(t, h, http.MethodGet, "/api/posts?authorId="+bob.User.ID, "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]\n", rec.Body.String())

	rec = do(t, h, http.MethodGet, "/api/posts/analytics", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	analytics := decode[model.PostAnalytics](t, rec)
	assert.Equal(t, []model.TopPost{{Title: "Hi", Views: 12}}, analytics.TopPosts)
	assert.Len(t, analytics.PageViews, 30)
}

func TestPostValidationAndNotFound(t *testing.T) {
	t.Parallel()

	h := newTestHandler(t, testConfig())
	ann := register(t, h, "Ann", "ann@example.com")

	for _, body := range []string{`{}`, `{"title":"a","status":"Archived"}`, `{"title":"a","views":-1}`, `not json`} {
		rec := do(t, h, http.MethodPost, "/api/posts", ann.Token, body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
		assert.NotEmpty(t, decode[model.ErrorResponse](t, rec).Message)
	}

	rec := do(t, h, http.MethodGet, "/api/posts/does-not-exist", "", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Post not found", decode[model.ErrorResponse](t, rec).Message)

	rec = do(t, h, http.MethodPut, "/api/posts/does-not-exist", ann.Token, `{"title":"x"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, h, http.MethodDelete, "/api/posts/does-not-exist", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPostDelete(t *testing.T) {
	t.Parallel()

	t.Run("public by default", func(t *testing.T) {
		h := newTestHandler(t, testConfig())
		ann := register(t, h, "Ann", "ann@example.com")
		post := decode[model.Post](t, do(t, h, http.MethodPost, "/api/posts", ann.Token, `{"title":"Hi"}`))

		rec := do(t, h, http.MethodDelete, "/api/posts/"+post.ID, "", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"message":"Post deleted successfully"}`, rec.Body.String())

		rec = do(t, h, http.MethodGet, "/api/posts/"+post.ID, "", "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("owner only when configured", func(t *testing.T) {
		cfg := testConfig()
		cfg.PostDeleteRequiresOwner = true
		h := newTestHandler(t, cfg)
		ann := register(t, h, "Ann", "ann@example.com")
		bob := register(t, h, "Bob", "bob@example.com")
		post := decode[model.Post](t, do(t, h, http.MethodPost, "/api/posts", ann.Token, `{"title":"Hi"}`))

		assert.Equal(t, http.StatusUnauthorized, do(t, h, http.MethodDelete, "/api/posts/"+post.ID, "", "").Code)
		assert.Equal(t, http.StatusUnauthorized, do(t, h, http.MethodDelete, "/api/posts/"+post.ID, bob.Token, "").Code)
		assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/api/posts/"+post.ID, "", "").Code)
		assert.Equal(t, http.StatusOK, do(t, h, http.MethodDelete, "/api/posts/"+post.ID, ann.Token, "").Code)
	})
}

func TestCalendarIsolation(t *testing.T) {
	t.Parallel()

	h := newTestHandler(t, testConfig())
	ann := register(t, h, "Ann", "ann@example.com")
	bob := register(t, h, "Bob", "bob@example.com")

	rec := do(t, h, http.MethodPost, "/api/calendar", ann.Token, `{"name":"Launch","date":"2024-07-10","user":"`+bob.User.ID+`"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[model.CalendarEvent](t, rec)
	assert.Equal(t, ann.User.ID, created.User)

	rec = do(t, h, http.MethodGet, "/api/calendar", ann.Token, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]model.CalendarEvent](t, rec), 1)

	rec = do(t, h, http.MethodGet, "/api/calendar", bob.Token, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]\n", rec.Body.String())

	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodPut, "/api/calendar/"+created.ID, bob.Token, `{"name":"mine"}`).Code)
	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodDelete, "/api/calendar/"+created.ID, bob.Token, "").Code)

	rec = do(t, h, http.MethodPut, "/api/calendar/"+created.ID, ann.Token, `{"name":"Launch day"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Launch day", decode[model.CalendarEvent](t, rec).Name)

	rec = do(t, h, http.MethodDelete, "/api/calendar/"+created.ID, ann.Token, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"Event deleted successfully"}`, rec.Body.String())

	rec = do(t, h, http.MethodPost, "/api/calendar", ann.Token, `{"name":"No date"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func auditActions(h http.Handler, token string) []string {
	req := httptest.NewRequest(http.MethodGet, "/api/audit", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var entries []model.AuditEntry
	if rec.Code != http.StatusOK || json.Unmarshal(rec.Body.Bytes(), &entries) != nil {
		return nil
	}
	actions := make([]string, 0, len(entries))
	for _, e := range entries {
		actions = append(actions, e.Action)
	}
	return actions
}

func TestAuditTrail(t *testing.T) {
	t.Parallel()

	h := newTestHandler(t, testConfig())
	ann := register(t, h, "Ann", "ann@example.com")
	bob := register(t, h, "Bob", "bob@example.com")
	do(t, h, http.MethodPost, "/api/posts", ann.Token, `{"title":"Hi"}`)

	want := []string{"post.created", "user.registered"}
	require.Eventually(t, func() bool {
		return assert.ObjectsAreEqual(want, auditActions(h, ann.Token))
	}, 2*time.Second, 20*time.Millisecond)

	rec := do(t, h, http.MethodGet, "/api/audit", bob.Token, "")
	require.Equal(t, http.StatusOK, rec.Code)
	entries := decode[[]model.AuditEntry](t, rec)
	require.Len(t, entries, 1)
	assert.Equal(t, bob.User.ID, entries[0].ActorID)
	assert.Equal(t, "user.registered", entries[0].Action)
}

// Requests served right after Build must be audited even when the worker
// goroutines have not been scheduled yet.
func TestAuditTrailOnSingleProcessor(t *testing.T) {
	defer runtime.GOMAXPROCS(runtime.GOMAXPROCS(1))

	h := newTestHandler(t, testConfig())
	ann := register(t, h, "Ann", "ann@example.com")
	do(t, h, http.MethodPost, "/api/posts", ann.Token, `{"title":"Hi"}`)

	want := []string{"post.created", "user.registered"}
	require.Eventually(t, func() bool {
		return assert.ObjectsAreEqual(want, auditActions(h, ann.Token))
	}, 2*time.Second, 20*time.Millisecond)
}

func TestOperationalRoutes(t *testing.T) {
	t.Parallel()

	h := newTestHandler(t, testConfig())

	rec := do(t, h, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	do(t, h, http.MethodGet, "/api/posts", "", "")
	rec = do(t, h, http.MethodGet, "/metrics", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "dashboard_http_requests_total")
}

func TestHealthReportsStoreOutage(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	components, err := app.Build(ctx, testConfig(), repository.NewMemory(), nil, func(context.Context) error {
		return assert.AnError
	})
	require.NoError(t, err)

	rec := do(t, components.Handler, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestLiveFeed(t *testing.T) {
	t.Parallel()

	h := newTestHandler(t, testConfig())
	server := httptest.NewServer(h)
	t.Cleanup(server.Close)

	ann := register(t, h, "Ann", "ann@example.com")
	bob := register(t, h, "Bob", "bob@example.com")

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/api/events"
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	bobConn, _, err := websocket.DefaultDialer.Dial(wsURL+"?token="+bob.Token, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = bobConn.Close() })

	// Ann keeps creating calendar entries and then a post until Bob has
	// clearly joined; Bob must only ever see the post events.
	require.NoError(t, bobConn.SetReadDeadline(time.Now().Add(5*time.Second)))
	received := make(chan map[string]any, 1)
	go func() {
		for {
			_, data, err := bobConn.ReadMessage()
			if err != nil {
				close(received)
				return
			}
			var msg map[string]any
			if json.Unmarshal(data, &msg) == nil {
				received <- msg
				return
			}
		}
	}()

	var msg map[string]any
	require.Eventually(t, func() bool {
		do(t, h, http.MethodPost, "/api/calendar", ann.Token, `{"name":"secret","date":"2024-07-10"}`)
		do(t, h, http.MethodPost, "/api/posts", ann.Token, `{"title":"public"}`)
		select {
		case got, ok := <-received:
			msg = got
			return ok
		default:
			return false
		}
	}, 4*time.Second, 50*time.Millisecond)

	assert.Equal(t, "post.created", msg["type"])
	assert.Equal(t, ann.User.ID, msg["actorId"])
}
