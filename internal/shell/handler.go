package shell

import (
	"log/slog"
	"net/http"
	"slices"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/odyssey-admin/internal/menu"
	"github.com/odyssey-erp/odyssey-admin/internal/nav"
	"github.com/odyssey-erp/odyssey-admin/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-admin/internal/rbac"
	"github.com/odyssey-erp/odyssey-admin/internal/session"
	"github.com/odyssey-erp/odyssey-admin/internal/shared"
)

// Handler serves the dashboard home and the /shell endpoints.
type Handler struct {
	logger   *slog.Logger
	renderer *Renderer
	guard    rbac.Middleware
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, renderer *Renderer, guard rbac.Middleware) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, renderer: renderer, guard: guard}
}

// MountRoutes registers the /shell routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/session", h.showSession)
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireAuth())
		r.Post("/session/refresh", h.refreshSession)
		r.Post("/sections/{id}/toggle", h.toggleSection)
		r.Post("/sidebar/toggle", h.toggleSidebar)
	})
}

// Shortcut is a dashboard tile linking to a screen the user may open.
type Shortcut struct {
	Label   string
	Icon    string
	Path    string
	Section string
}

type dashboardPage struct {
	Shortcuts []Shortcut
}

// Dashboard renders the landing page after login.
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	release, err := menu.FromContext(r.Context()).Publish(
		menu.Title("Dashboard"),
		menu.Breadcrumbs(menu.Breadcrumb{Label: "Dashboard"}),
	)
	defer release()
	if err != nil {
		h.renderer.Error(w, r, err)
		return
	}
	var data dashboardPage
	if store, ok := session.FromContext(r.Context()); ok {
		data.Shortcuts = shortcuts(nav.Filter(h.renderer.tree(), store.State()), "")
	}
	h.renderer.Render(w, r, http.StatusOK, "pages/dashboard.html", "Dashboard", data)
}

func shortcuts(entries []nav.Entry, section string) []Shortcut {
	var out []Shortcut
	for _, e := range entries {
		if e.IsSection() {
			out = append(out, shortcuts(e.Items, e.Label)...)
			continue
		}
		if e.Path == "" || e.Path == "/dashboard" {
			continue
		}
		out = append(out, Shortcut{Label: e.Label, Icon: e.Icon, Path: e.Path, Section: section})
	}
	return out
}

// SessionView is the JSON shape of GET /shell/session.
type SessionView struct {
	IsAuthenticated bool     `json:"isAuthenticated"`
	IsLoading       bool     `json:"isLoading"`
	UserID          string   `json:"userId,omitempty"`
	Username        string   `json:"username,omitempty"`
	Name            string   `json:"name,omitempty"`
	Role            string   `json:"role,omitempty"`
	Permissions     []string `json:"permissions"`
	Error           string   `json:"error,omitempty"`
}

// NewSessionView projects a session state for client side widgets. The token is
// never exposed.
func NewSessionView(st session.State) SessionView {
	view := SessionView{
		IsAuthenticated: st.IsAuthenticated(),
		IsLoading:       st.IsLoading,
		Permissions:     st.Permissions().Strings(),
		Error:           st.Error,
	}
	if u := st.User; u != nil {
		view.UserID = u.ID
		view.Username = u.Username
		view.Name = u.DisplayName()
		view.Role = string(u.Role)
	}
	return view
}

func (h *Handler) showSession(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-store")
	store, ok := session.FromContext(r.Context())
	if !ok {
		httpx.JSON(w, http.StatusOK, NewSessionView(session.State{}))
		return
	}
	httpx.JSON(w, http.StatusOK, NewSessionView(store.State()))
}

func (h *Handler) refreshSession(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-store")
	store, ok := session.FromContext(r.Context())
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	if err := store.RefreshProfile(r.Context()); err != nil {
		h.logger.Info("refresh profile", slog.String("session", store.Key()), slog.Any("error", err))
		if !store.IsAuthenticated() {
			httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", session.MsgProfileFailed)
			return
		}
		httpx.Problem(w, http.StatusBadGateway, "Bad Gateway", session.MsgUnavailable)
		return
	}
	httpx.JSON(w, http.StatusOK, NewSessionView(store.State()))
}

func (h *Handler) toggleSection(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !slices.Contains(nav.SectionIDs(h.renderer.tree()), id) {
		h.renderer.Error(w, r, shared.ErrNotFound)
		return
	}
	x := h.expansion(r)
	open := x.Toggle(id)
	if wantsJSON(r) {
		httpx.JSON(w, http.StatusOK, map[string]any{"id": id, "open": open})
		return
	}
	http.Redirect(w, r, returnPath(r), http.StatusSeeOther)
}

func (h *Handler) toggleSidebar(w http.ResponseWriter, r *http.Request) {
	collapsed := h.expansion(r).ToggleCollapsed()
	if wantsJSON(r) {
		httpx.JSON(w, http.StatusOK, map[string]any{"collapsed": collapsed})
		return
	}
	http.Redirect(w, r, returnPath(r), http.StatusSeeOther)
}

func (h *Handler) expansion(r *http.Request) *nav.Expansion {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil || h.renderer.Expansions == nil {
		return nav.NewExpansion()
	}
	return h.renderer.Expansions.Get(sess.ID)
}

func returnPath(r *http.Request) string {
	if from := rbac.SafeReturnPath(r.PostFormValue("from")); from != "" {
		return from
	}
	return "/dashboard"
}

func wantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}
