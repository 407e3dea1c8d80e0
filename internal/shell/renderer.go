// Package shell assembles the authenticated page chrome: the top bar published by
// the page, the permission filtered sidebar and the per browser session toggles.
package shell

import (
	"log/slog"
	"net/http"

	"github.com/odyssey-erp/odyssey-admin/internal/menu"
	"github.com/odyssey-erp/odyssey-admin/internal/nav"
	"github.com/odyssey-erp/odyssey-admin/internal/session"
	"github.com/odyssey-erp/odyssey-admin/internal/shared"
	"github.com/odyssey-erp/odyssey-admin/internal/view"
)

// Renderer turns a page's data into a full response.
type Renderer struct {
	Templates  *view.Engine
	CSRF       *shared.CSRFManager
	Expansions *nav.ExpansionRegistry
	Tree       []nav.Entry
	Logger     *slog.Logger
}

// Page collects the values every layout needs. The top bar is read from the request's
// menu store, so handlers publish before they render.
func (rd *Renderer) Page(r *http.Request, title string, data any) view.TemplateData {
	ctx := r.Context()
	sess := shared.SessionFromContext(ctx)
	td := view.TemplateData{
		Title:       title,
		CurrentPath: r.URL.Path,
		Menu:        menu.FromContext(ctx).Current(),
		Data:        data,
	}
	if sess != nil {
		if token, err := rd.CSRF.EnsureToken(sess); err == nil {
			td.CSRFToken = token
		} else {
			rd.logger().Warn("ensure csrf token", slog.Any("error", err))
		}
		td.Flash = sess.PopFlash()
	}
	if td.Title == "" {
		td.Title = td.Menu.Title
	}

	store, ok := session.FromContext(ctx)
	if !ok {
		return td
	}
	state := store.State()
	if !state.IsAuthenticated() {
		return td
	}
	td.User = state.User
	var x *nav.Expansion
	if sess != nil && rd.Expansions != nil {
		x = rd.Expansions.Get(sess.ID)
	}
	td.Sidebar = nav.Build(rd.tree(), state, x, r.URL.Path)
	return td
}

// Render writes the named page with status.
func (rd *Renderer) Render(w http.ResponseWriter, r *http.Request, status int, name, title string, data any) {
	if err := rd.Templates.RenderStatus(w, status, name, rd.Page(r, title, data)); err != nil {
		rd.logger().Error("render page", slog.String("template", name), slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

type errorPage struct {
	Message string
}

// Error renders err with a message that is safe to show.
func (rd *Renderer) Error(w http.ResponseWriter, r *http.Request, err error) {
	status := shared.StatusCode(err)
	if status >= http.StatusInternalServerError {
		rd.logger().Error("request failed", slog.String("path", r.URL.Path), slog.Any("error", err))
	}
	rd.Render(w, r, status, "pages/error.html", http.StatusText(status), errorPage{Message: shared.UserSafeMessage(err)})
}

// Loading renders the placeholder the route guard shows while a session resolves.
func (rd *Renderer) Loading() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := rd.Templates.RenderStatus(w, http.StatusOK, "pages/loading.html", view.TemplateData{Title: "Loading"}); err != nil {
			rd.logger().Error("render loading", slog.Any("error", err))
		}
	})
}

func (rd *Renderer) tree() []nav.Entry {
	if rd.Tree != nil {
		return rd.Tree
	}
	return nav.DefaultTree()
}

func (rd *Renderer) logger() *slog.Logger {
	if rd.Logger != nil {
		return rd.Logger
	}
	return slog.Default()
}
