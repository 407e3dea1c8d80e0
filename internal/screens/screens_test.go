package screens

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-admin/internal/apiclient"
	"github.com/odyssey-erp/odyssey-admin/internal/menu"
	"github.com/odyssey-erp/odyssey-admin/internal/nav"
	"github.com/odyssey-erp/odyssey-admin/internal/rbac"
	"github.com/odyssey-erp/odyssey-admin/internal/session"
	"github.com/odyssey-erp/odyssey-admin/internal/shared"
	"github.com/odyssey-erp/odyssey-admin/internal/shell"
	"github.com/odyssey-erp/odyssey-admin/internal/view"
	_ "github.com/odyssey-erp/odyssey-admin/testing"
)

const token = "tok-1"

type profileBackend struct{ profile string }

func (b profileBackend) Login(context.Context, string, string) (string, error) { return token, nil }

func (b profileBackend) Profile(context.Context, string) (json.RawMessage, error) {
	return json.RawMessage(b.profile), nil
}

// api fakes the wholesale backend for the screens.
type api struct {
	mu       sync.Mutex
	queries  []url.Values
	deleted  []string
	created  []map[string]any
	rejected bool
}

func (a *api) reject() {
	a.mu.Lock()
	a.rejected = true
	a.mu.Unlock()
}

func (a *api) seen() (queries []url.Values, deleted []string, created []map[string]any) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]url.Values(nil), a.queries...), append([]string(nil), a.deleted...), append([]map[string]any(nil), a.created...)
}

func (a *api) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /brands", func(w http.ResponseWriter, r *http.Request) {
		a.mu.Lock()
		a.queries = append(a.queries, r.URL.Query())
		a.mu.Unlock()
		_, _ = io.WriteString(w, `{"data":[{"id":1,"name":"Acme","description":null},{"id":2,"name":"Globex","description":"Imported"}],"total":45}`)
	})
	mux.HandleFunc("DELETE /brands/{id}", func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		if id == "2" {
			w.WriteHeader(http.StatusConflict)
			_, _ = io.WriteString(w, `{"message":"Brand is in use"}`)
			return
		}
		a.mu.Lock()
		a.deleted = append(a.deleted, id)
		a.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("POST /brands", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		a.mu.Lock()
		a.created = append(a.created, body)
		a.mu.Unlock()
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"id":3}`)
	})
	mux.HandleFunc("GET /products", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `[{"id":"p1","name":"TV","sku":"TV-55","category":{"name":"Electronics"},"price":199.5}]`)
	})
	mux.HandleFunc("GET /products/stats", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})
	mux.HandleFunc("GET /taxes", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		a.mu.Lock()
		rejected := a.rejected
		a.mu.Unlock()
		if rejected || r.Header.Get("Authorization") != "Bearer "+token {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		mux.ServeHTTP(w, r)
	})
}

type fixture struct {
	router chi.Router
	store  *session.Store
	sess   *shared.Session
	api    *api
}

func newFixture(t *testing.T, perms ...string) *fixture {
	t.Helper()
	backend := &api{}
	srv := httptest.NewServer(backend.handler(t))
	t.Cleanup(srv.Close)
	client, err := apiclient.New(apiclient.Config{BaseURL: srv.URL, Timeout: 5 * time.Second})
	require.NoError(t, err)

	quoted := make([]string, 0, len(perms))
	for _, p := range perms {
		quoted = append(quoted, `"`+p+`"`)
	}
	profile := `{"id":"7","username":"carol","name":"Carol","role":"store_admin","permissions":[` + strings.Join(quoted, ",") + `]}`
	store := session.NewStore(session.Config{Key: "browser-1", Backend: profileBackend{profile: profile}})
	store.Restore(context.Background())
	res := store.Login(context.Background(), session.Credentials{Username: "carol", Password: "pw"})
	require.True(t, res.Success, res.Error)

	templates, err := view.NewEngine()
	require.NoError(t, err)
	renderer := &shell.Renderer{
		Templates:  templates,
		CSRF:       shared.NewCSRFManager("csrf-secret"),
		Expansions: nav.NewExpansionRegistry(8, time.Minute),
	}
	guard := rbac.Middleware{
		Resolve: func(r *http.Request) rbac.Subject {
			s, ok := session.FromContext(r.Context())
			if !ok {
				return nil
			}
			return s.State()
		},
	}
	router := chi.NewRouter()
	router.Use(menu.Middleware(nil))
	router.Route("/dashboard", NewHandler(nil, renderer, client, guard).MountRoutes)
	return &fixture{router: router, store: store, sess: &shared.Session{ID: "browser-1"}, api: backend}
}

func (f *fixture) do(req *http.Request) *httptest.ResponseRecorder {
	ctx := shared.ContextWithSession(req.Context(), f.sess)
	ctx = session.ContextWithStore(ctx, f.store)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req.WithContext(ctx))
	return rec
}

func postForm(target string, form url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func TestListRendersRowsAndPublishesMenu(t *testing.T) {
	f := newFixture(t, "brand:read", "brand:create", "brand:delete")
	rec := f.do(httptest.NewRequest(http.MethodGet, "/dashboard/brands?q=ac&page=2", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `class="topbar__title">Brands<`)
	assert.Contains(t, body, "Acme")
	assert.Contains(t, body, "Imported")
	assert.Contains(t, body, "—", "missing values render a placeholder")
	assert.Contains(t, body, `id="bulk-delete"`)
	assert.Contains(t, body, `value="1" form="bulk-delete"`)
	assert.Contains(t, body, `href="/dashboard/brands/new"`)
	assert.Contains(t, body, `action="/dashboard/brands/2/delete"`)
	assert.Contains(t, body, "Page 2 of 3")

	queries, _, _ := f.api.seen()
	require.Len(t, queries, 1)
	assert.Equal(t, "ac", queries[0].Get("search"))
	assert.Equal(t, "2", queries[0].Get("page"))
	assert.Equal(t, "20", queries[0].Get("limit"))
}

func TestListWithoutDeletePermissionDisablesDelete(t *testing.T) {
	f := newFixture(t, "brand:read")
	rec := f.do(httptest.NewRequest(http.MethodGet, "/dashboard/brands", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.NotContains(t, body, `id="bulk-delete"`)
	assert.NotContains(t, body, `/dashboard/brands/1/delete`)
	assert.Contains(t, body, "disabled", "new action is shown but not clickable")
}

func TestListSurvivesFailingSummary(t *testing.T) {
	f := newFixture(t, "product:read")
	rec := f.do(httptest.NewRequest(http.MethodGet, "/dashboard/products", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "TV-55")
	assert.Contains(t, body, "Electronics")
	assert.NotContains(t, body, `class="stats"`)
}

func TestListRequiresReadPermission(t *testing.T) {
	f := newFixture(t, "product:read")
	rec := f.do(httptest.NewRequest(http.MethodGet, "/dashboard/brands", nil))

	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/access-denied?from=%2Fdashboard%2Fbrands", rec.Header().Get("Location"))
	queries, _, _ := f.api.seen()
	assert.Empty(t, queries)
}

func TestMissingCollectionRendersNotFound(t *testing.T) {
	f := newFixture(t, "tax:read")
	rec := f.do(httptest.NewRequest(http.MethodGet, "/dashboard/taxes", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRejectedTokenLogsOutAndRedirects(t *testing.T) {
	f := newFixture(t, "brand:read")
	f.api.reject()
	rec := f.do(httptest.NewRequest(http.MethodGet, "/dashboard/brands?page=3", nil))

	require.Equal(t, http.StatusSeeOther, rec.Code)
	loc, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "/login", loc.Path)
	assert.Equal(t, "/dashboard/brands?page=3", loc.Query().Get("from"))
	assert.Equal(t, session.MsgSessionExpired, loc.Query().Get("message"))
	assert.False(t, f.store.IsAuthenticated())
}

func TestDeleteFlashesOutcome(t *testing.T) {
	f := newFixture(t, "brand:read", "brand:delete")

	rec := f.do(postForm("/dashboard/brands/1/delete", nil))
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/dashboard/brands", rec.Header().Get("Location"))
	flash := f.sess.PopFlash()
	require.NotNil(t, flash)
	assert.Equal(t, "success", flash.Kind)
	assert.Equal(t, "Brand deleted.", flash.Message)

	f.do(postForm("/dashboard/brands/2/delete", nil))
	flash = f.sess.PopFlash()
	require.NotNil(t, flash)
	assert.Equal(t, "error", flash.Kind)
	assert.Equal(t, "Could not delete brand: Brand is in use", flash.Message)
	_, deleted, _ := f.api.seen()
	assert.Equal(t, []string{"1"}, deleted)
}

func TestBulkDeleteReportsPartialFailure(t *testing.T) {
	f := newFixture(t, "brand:read", "brand:delete")
	rec := f.do(postForm("/dashboard/brands/delete", url.Values{"ids": {"1", "2"}}))

	require.Equal(t, http.StatusSeeOther, rec.Code)
	flash := f.sess.PopFlash()
	require.NotNil(t, flash)
	assert.Equal(t, "error", flash.Kind)
	assert.Equal(t, "Deleted 1 of 2 selected. 1 could not be deleted.", flash.Message)
	assert.Nil(t, f.sess.PopFlash())
}

func TestBulkDeleteWithoutSelection(t *testing.T) {
	f := newFixture(t, "brand:read", "brand:delete")
	f.do(postForm("/dashboard/brands/delete", nil))
	flash := f.sess.PopFlash()
	require.NotNil(t, flash)
	assert.Equal(t, "info", flash.Kind)
	_, deleted, _ := f.api.seen()
	assert.Empty(t, deleted)
}

func TestDeleteRequiresPermission(t *testing.T) {
	f := newFixture(t, "brand:read")
	rec := f.do(postForm("/dashboard/brands/1/delete", nil))
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Contains(t, rec.Header().Get("Location"), "/access-denied")
	_, deleted, _ := f.api.seen()
	assert.Empty(t, deleted)
}

func TestCreateValidatesAndPosts(t *testing.T) {
	f := newFixture(t, "brand:read", "brand:create")

	rec := f.do(httptest.NewRequest(http.MethodGet, "/dashboard/brands/new", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `class="topbar__title">New brand<`)

	rec = f.do(postForm("/dashboard/brands", url.Values{"description": {"kept"}}))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Name is required.")
	assert.Contains(t, rec.Body.String(), `value="kept"`)
	_, _, created := f.api.seen()
	assert.Empty(t, created)

	rec = f.do(postForm("/dashboard/brands", url.Values{"name": {" Initech "}}))
	require.Equal(t, http.StatusSeeOther, rec.Code)
	_, _, created = f.api.seen()
	require.Len(t, created, 1)
	assert.Equal(t, map[string]any{"name": "Initech"}, created[0])
	flash := f.sess.PopFlash()
	require.NotNil(t, flash)
	assert.Equal(t, "Brand created.", flash.Message)
}

func TestResourcesWithoutFieldsHaveNoCreateRoute(t *testing.T) {
	f := newFixture(t, "product:read", "product:create")
	rec := f.do(httptest.NewRequest(http.MethodGet, "/dashboard/products/new", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestParseFieldsConvertsTypes(t *testing.T) {
	h := NewHandler(nil, nil, nil, rbac.Middleware{})
	res := Resource{Fields: []Field{
		{Name: "rate", Label: "Rate", Type: FieldNumber, Required: true},
		{Name: "email", Label: "Email", Type: FieldEmail},
		{Name: "note", Label: "Note", Type: FieldText},
	}}

	req := postForm("/", url.Values{"rate": {"7.5"}, "email": {"ops@example.com"}})
	require.NoError(t, req.ParseForm())
	body, errs := h.parseFields(res, req)
	assert.Empty(t, errs)
	assert.Equal(t, map[string]any{"rate": 7.5, "email": "ops@example.com"}, body)

	req = postForm("/", url.Values{"rate": {"seven"}, "email": {"nope"}})
	require.NoError(t, req.ParseForm())
	_, errs = h.parseFields(res, req)
	assert.Equal(t, "Rate must be a number.", errs["rate"])
	assert.Equal(t, "Email must be a valid email address.", errs["email"])
}

func TestParseFieldsAppliesValidationTags(t *testing.T) {
	h := NewHandler(nil, nil, nil, rbac.Middleware{})
	res := Resource{Fields: []Field{
		{Name: "name", Label: "Name", Type: FieldText, Required: true},
		{Name: "code", Label: "Code", Type: FieldText},
	}}

	req := postForm("/", url.Values{"name": {"   "}, "code": {strings.Repeat("x", maxFieldLength+1)}})
	require.NoError(t, req.ParseForm())
	body, errs := h.parseFields(res, req)
	assert.Empty(t, body)
	assert.Equal(t, "Name is required.", errs["name"])
	assert.Equal(t, "Code is too long.", errs["code"])

	assert.Equal(t, "required,max=255,numeric", fieldTags(Field{Type: FieldNumber, Required: true}))
	assert.Equal(t, "max=255,email", fieldTags(Field{Type: FieldEmail}))
}

func TestPermissionsPageGroupsGrants(t *testing.T) {
	f := newFixture(t, "permission:read", "brand:read", "product:read")
	rec := f.do(httptest.NewRequest(http.MethodGet, "/dashboard/permissions", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "<code>brand:read</code>")
	assert.Contains(t, body, "<code>permission:read</code>")
	assert.Contains(t, body, "Carol")
}
