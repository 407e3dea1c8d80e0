package view

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-admin/internal/menu"
	"github.com/odyssey-erp/odyssey-admin/internal/nav"
	"github.com/odyssey-erp/odyssey-admin/internal/rbac"
	"github.com/odyssey-erp/odyssey-admin/internal/session"
	"github.com/odyssey-erp/odyssey-admin/internal/shared"
)

func TestNewEngine(t *testing.T) {
	engine, err := NewEngine()
	assert.NoError(t, err, "Templates should parse without error")
	assert.NotNil(t, engine)
}

func render(t *testing.T, status int, name string, data TemplateData) string {
	t.Helper()
	engine, err := NewEngine()
	require.NoError(t, err)
	rec := httptest.NewRecorder()
	require.NoError(t, engine.RenderStatus(rec, status, name, data))
	assert.Equal(t, status, rec.Code)
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
	return rec.Body.String()
}

func shellData() TemplateData {
	cfg := menu.Defaults()
	cfg.Title = "Brands"
	cfg.Breadcrumbs = []menu.Breadcrumb{{Label: "Dashboard", Href: "/dashboard"}, {Label: "Brands"}}
	cfg.Actions = []menu.Action{
		{Kind: menu.ActionButton, Label: "Import", Href: "/dashboard/brands/import", Method: "POST"},
		{Kind: menu.ActionIconButton, Icon: "refresh", Tooltip: "Refresh", Href: "/dashboard/brands"},
		{Kind: menu.ActionDivider},
		{Kind: menu.ActionMenuButton, Label: "More", Items: []menu.MenuItem{
			{Label: "Export", Href: "/export.csv"},
			{Label: "Archive", Href: "/archive", Method: "POST", Danger: true},
		}},
		{Kind: menu.ActionCustom, HTML: `<span class="badge">Beta</span>`},
		{Kind: menu.ActionButton, Label: "Locked", Disabled: true},
	}
	cfg.DeleteAction = menu.Feature{Visible: true, Enabled: true, Label: "Delete", Href: "/dashboard/brands/delete", Method: "POST"}
	cfg.NewAction = menu.Feature{Visible: true, Enabled: false, Label: "New", Href: "/dashboard/brands/new"}
	cfg.Search = menu.SearchBox{Visible: true, Enabled: true, Placeholder: "Search brands", Action: "/dashboard/brands", Param: "q", Query: "<acme>"}

	return TemplateData{
		Title:       "Brands",
		CSRFToken:   "tok",
		CurrentPath: "/dashboard/brands",
		Menu:        cfg,
		Flash:       &shared.FlashMessage{Kind: "success", Message: "Brand created."},
		User:        &session.User{Username: "carol", Name: "Carol", Role: rbac.RoleStoreAdmin},
		Sidebar: nav.Sidebar{Items: []nav.Item{
			{Label: "Dashboard", Icon: "home", Path: "/dashboard"},
			{ID: "catalog", Label: "Catalog", Section: true, Open: true, Children: []nav.Item{
				{Label: "Brands", Path: "/dashboard/brands", Active: true},
			}},
			{ID: "partners", Label: "Partners", Section: true, Children: []nav.Item{
				{Label: "Suppliers", Path: "/dashboard/suppliers"},
			}},
		}},
		Data: map[string]any{"Message": "Nothing to see."},
	}
}

func TestTopBarRendersEveryActionKind(t *testing.T) {
	body := render(t, http.StatusOK, "pages/error.html", shellData())

	assert.Contains(t, body, `class="topbar__title">Brands<`)
	assert.Contains(t, body, `<a href="/dashboard">Dashboard</a>`)
	assert.Contains(t, body, `action="/dashboard/brands/import"`)
	assert.Contains(t, body, `<span class="sr-only">Refresh</span>`)
	assert.Contains(t, body, `role="separator"`)
	assert.Contains(t, body, `<a class="menu-item" href="/export.csv">Export</a>`)
	assert.Contains(t, body, `action="/archive"`)
	assert.Contains(t, body, `<span class="badge">Beta</span>`)
	assert.Contains(t, body, `disabled>Locked</button>`)
	assert.Contains(t, body, `id="bulk-delete"`)
	assert.NotContains(t, body, `href="/dashboard/brands/new"`, "disabled new action is not a link")
	assert.Contains(t, body, `value="&lt;acme&gt;"`)
	assert.Contains(t, body, "Brand created.")
	assert.NotContains(t, body, "icon--share", "hidden slots are not rendered")
}

func TestSidebarShowsOnlyOpenSections(t *testing.T) {
	body := render(t, http.StatusOK, "pages/error.html", shellData())

	assert.Contains(t, body, `action="/shell/sections/catalog/toggle"`)
	assert.Contains(t, body, `aria-current="page"`)
	assert.Contains(t, body, `href="/dashboard/brands"`)
	assert.Contains(t, body, `action="/shell/sections/partners/toggle"`)
	assert.NotContains(t, body, `href="/dashboard/suppliers"`, "closed section hides its children")
	assert.Contains(t, body, "Carol")
}

func TestAnonymousLayoutOmitsShell(t *testing.T) {
	data := TemplateData{
		Title: "Sign in",
		Menu:  menu.Defaults(),
		Data: map[string]any{
			"Errors": map[string]string{"username": "Username is required."},
		},
	}
	body := render(t, http.StatusBadRequest, "pages/login.html", data)
	assert.Contains(t, body, "Username is required.")
	assert.NotContains(t, body, `class="topbar"`)
	assert.NotContains(t, body, "/shell/sections/")
}
