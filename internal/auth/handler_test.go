package auth_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-admin/internal/apiclient"
	"github.com/odyssey-erp/odyssey-admin/internal/auth"
	"github.com/odyssey-erp/odyssey-admin/internal/menu"
	"github.com/odyssey-erp/odyssey-admin/internal/nav"
	"github.com/odyssey-erp/odyssey-admin/internal/rbac"
	"github.com/odyssey-erp/odyssey-admin/internal/session"
	"github.com/odyssey-erp/odyssey-admin/internal/shared"
	"github.com/odyssey-erp/odyssey-admin/internal/shell"
	"github.com/odyssey-erp/odyssey-admin/internal/view"
	_ "github.com/odyssey-erp/odyssey-admin/testing"
)

const aliceProfile = `{"user":{"id":1,"username":"alice","name":"Alice","role":"global_admin","permissions":["store:read"]}}`

type apiStub struct {
	profileCalls  atomic.Int32
	rejectProfile atomic.Bool
}

func (a *apiStub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/api/auth/login":
		var body struct {
			Username string `json:"username"`
			Password string `json:"password"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body.Username != "alice" || body.Password != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"message":"invalid credentials"}`))
			return
		}
		_, _ = w.Write([]byte(`{"token":"tok-alice"}`))
	case "/api/auth/profile":
		a.profileCalls.Add(1)
		if a.rejectProfile.Load() || r.Header.Get("Authorization") != "Bearer tok-alice" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(aliceProfile))
	default:
		http.NotFound(w, r)
	}
}

type memAudit struct {
	mu      sync.Mutex
	entries []auth.AuditEntry
}

func (m *memAudit) Record(_ context.Context, entry auth.AuditEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, entry)
	return nil
}

func (m *memAudit) Prune(_ context.Context, before time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.entries[:0]
	var removed int64
	for _, e := range m.entries {
		if e.OccurredAt.Before(before) {
			removed++
			continue
		}
		kept = append(kept, e)
	}
	m.entries = kept
	return removed, nil
}

func (m *memAudit) events() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.entries))
	for _, e := range m.entries {
		out = append(out, e.Event)
	}
	return out
}

type harness struct {
	t        *testing.T
	router   http.Handler
	sessions *shared.SessionManager
	registry *session.Registry
	api      *apiStub
	audit    *memAudit
	cookie   *http.Cookie
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	sessionManager := shared.NewSessionManager(redisClient, "admin_session", time.Hour, false)
	csrfManager := shared.NewCSRFManager("csrfsecret")

	api := &apiStub{}
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)
	client, err := apiclient.New(apiclient.Config{BaseURL: srv.URL + "/api"})
	require.NoError(t, err)

	audit := &memAudit{}
	recorder := auth.NewRecorder(audit, nil)
	storage := session.NewRedisStorage(redisClient, time.Hour)
	registry := session.NewRegistry(16, time.Hour, func(string) session.Config {
		return session.Config{Backend: client, Storage: storage, OnEvent: recorder.HandleEvent}
	})

	templates, err := view.NewEngine()
	if err != nil {
		t.Fatalf("templates: %v", err)
	}
	renderer := &shell.Renderer{
		Templates:  templates,
		CSRF:       csrfManager,
		Expansions: nav.NewExpansionRegistry(16, time.Hour),
	}
	guard := rbac.Middleware{Resolve: auth.Subject}
	handler := auth.NewHandler(nil, renderer, csrfManager, 0)

	ok := func(body string) http.HandlerFunc {
		return func(w http.ResponseWriter, _ *http.Request) { _, _ = w.Write([]byte(body)) }
	}
	r := chi.NewRouter()
	r.Use(menu.Middleware(nil))
	r.Use(auth.SessionMiddleware{Registry: registry}.Attach)
	handler.MountRoutes(r)
	r.With(guard.RequireAuth()).Get("/dashboard", ok("home"))
	r.With(guard.RequirePermissions(rbac.PermStoreRead)).Get("/dashboard/stores", ok("stores"))
	r.With(guard.RequirePermissions(rbac.PermUserReadAll)).Get("/dashboard/users", ok("users"))

	return &harness{t: t, router: r, sessions: sessionManager, registry: registry, api: api, audit: audit}
}

func (h *harness) serve(req *http.Request) *httptest.ResponseRecorder {
	h.t.Helper()
	if h.cookie != nil {
		req.AddCookie(h.cookie)
	}
	sess, err := h.sessions.Load(req.Context(), req)
	require.NoError(h.t, err)
	ctx := shared.ContextWithSession(req.Context(), sess)
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req.WithContext(ctx))
	require.NoError(h.t, h.sessions.Commit(ctx, rec, sess))
	h.cookie = &http.Cookie{Name: h.sessions.CookieName(), Value: sess.ID}
	return rec
}

func (h *harness) get(target string) *httptest.ResponseRecorder {
	return h.serve(httptest.NewRequest(http.MethodGet, target, nil))
}

func (h *harness) post(target string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return h.serve(req)
}

func (h *harness) login() {
	h.t.Helper()
	rec := h.post("/login", url.Values{"username": {"alice"}, "password": {"secret"}})
	require.Equal(h.t, http.StatusSeeOther, rec.Code, rec.Body.String())
}

func TestLoginPage(t *testing.T) {
	h := newHarness(t)
	res := h.get("/login")

	if res.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", res.Code)
	}
	if !strings.Contains(res.Body.String(), "<form") {
		t.Fatalf("expected login form in body")
	}
}

func TestGuardSendsAnonymousToLoginAndBack(t *testing.T) {
	h := newHarness(t)

	res := h.get("/dashboard/stores")
	require.Equal(t, http.StatusSeeOther, res.Code)
	loc, err := url.Parse(res.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "/login", loc.Path)
	assert.Equal(t, "/dashboard/stores", loc.Query().Get("from"))

	page := h.get(loc.String())
	require.Equal(t, http.StatusOK, page.Code)
	assert.Contains(t, page.Body.String(), rbac.LoginRequiredMessage)
	assert.Contains(t, page.Body.String(), `value="/dashboard/stores"`)

	res = h.post("/login", url.Values{"username": {"alice"}, "password": {"secret"}, "from": {"/dashboard/stores"}})
	require.Equal(t, http.StatusSeeOther, res.Code)
	assert.Equal(t, "/dashboard/stores", res.Header().Get("Location"))

	res = h.get("/dashboard/stores")
	assert.Equal(t, http.StatusOK, res.Code)
	assert.Equal(t, "stores", res.Body.String())
	assert.Contains(t, h.audit.events(), string(session.EventLoginSuccess))
}

func TestLoginInvalidCredentials(t *testing.T) {
	h := newHarness(t)
	res := h.post("/login", url.Values{"username": {"alice"}, "password": {"wrong"}})

	assert.Equal(t, http.StatusUnauthorized, res.Code)
	assert.Contains(t, res.Body.String(), session.MsgInvalidCredentials)
	assert.Contains(t, res.Body.String(), `value="alice"`)
	assert.Equal(t, []string{string(session.EventLoginFailure)}, h.audit.events())

	res = h.get("/dashboard")
	assert.Equal(t, http.StatusSeeOther, res.Code)
}

func TestLoginValidation(t *testing.T) {
	h := newHarness(t)
	res := h.post("/login", url.Values{"username": {""}, "password": {""}})

	assert.Equal(t, http.StatusBadRequest, res.Code)
	assert.Contains(t, res.Body.String(), "Username is required.")
	assert.Contains(t, res.Body.String(), "Password is required.")
	assert.Zero(t, h.api.profileCalls.Load())
}

func TestLoginIgnoresForeignReturnPath(t *testing.T) {
	h := newHarness(t)
	res := h.post("/login", url.Values{"username": {"alice"}, "password": {"secret"}, "from": {"https://evil.example/steal"}})
	require.Equal(t, http.StatusSeeOther, res.Code)
	assert.Equal(t, auth.HomePath, res.Header().Get("Location"))
}

func TestLoginPageRedirectsWhenAuthenticated(t *testing.T) {
	h := newHarness(t)
	h.login()
	res := h.get("/login?from=%2Fdashboard%2Fstores")
	require.Equal(t, http.StatusSeeOther, res.Code)
	assert.Equal(t, "/dashboard/stores", res.Header().Get("Location"))
}

func TestLogoutShowsNoticeOnce(t *testing.T) {
	h := newHarness(t)
	h.login()

	res := h.post("/logout", nil)
	require.Equal(t, http.StatusSeeOther, res.Code)
	assert.Equal(t, "/login", res.Header().Get("Location"))

	page := h.get("/login")
	assert.Contains(t, page.Body.String(), session.MsgLoggedOut)
	page = h.get("/login")
	assert.NotContains(t, page.Body.String(), session.MsgLoggedOut)

	assert.Equal(t, http.StatusSeeOther, h.get("/dashboard").Code)
	assert.Equal(t, []string{string(session.EventLoginSuccess), string(session.EventLogout)}, h.audit.events())
}

func TestSessionSurvivesRegistryEviction(t *testing.T) {
	h := newHarness(t)
	h.login()
	h.registry.Forget(h.cookie.Value)

	res := h.get("/dashboard")
	assert.Equal(t, http.StatusOK, res.Code)
	assert.Equal(t, int32(2), h.api.profileCalls.Load(), "restore refetches the profile")
}

func TestRejectedTokenOnRestoreLogsOut(t *testing.T) {
	h := newHarness(t)
	h.login()
	h.registry.Forget(h.cookie.Value)
	h.api.rejectProfile.Store(true)

	res := h.get("/dashboard")
	assert.Equal(t, http.StatusSeeOther, res.Code)
	assert.Contains(t, h.audit.events(), string(session.EventRestoreFailed))

	h.api.rejectProfile.Store(false)
	h.registry.Forget(h.cookie.Value)
	assert.Equal(t, http.StatusSeeOther, h.get("/dashboard").Code, "snapshot was cleared")
}

func TestAccessDenied(t *testing.T) {
	h := newHarness(t)
	h.login()

	res := h.get("/dashboard/users")
	require.Equal(t, http.StatusSeeOther, res.Code)
	loc := res.Header().Get("Location")
	assert.True(t, strings.HasPrefix(loc, "/access-denied?"), loc)

	page := h.get(loc)
	assert.Equal(t, http.StatusForbidden, page.Code)
	assert.Contains(t, page.Body.String(), "/dashboard/users")
}
