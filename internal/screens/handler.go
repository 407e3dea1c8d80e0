package screens

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"golang.org/x/sync/errgroup"

	"github.com/odyssey-erp/odyssey-admin/internal/apiclient"
	"github.com/odyssey-erp/odyssey-admin/internal/menu"
	"github.com/odyssey-erp/odyssey-admin/internal/rbac"
	"github.com/odyssey-erp/odyssey-admin/internal/session"
	"github.com/odyssey-erp/odyssey-admin/internal/shared"
	"github.com/odyssey-erp/odyssey-admin/internal/shell"
)

const (
	defaultPerPage = 20
	// deleteParallelism bounds concurrent API calls of a bulk delete.
	deleteParallelism = 4
)

var errStoreMissing = errors.New("screens: session store missing")

// Handler serves the entity screens under /dashboard.
type Handler struct {
	logger    *slog.Logger
	renderer  *shell.Renderer
	client    *apiclient.Client
	guard     rbac.Middleware
	resources []Resource
	validator *validator.Validate
	perPage   int
}

// NewHandler constructs a Handler for Resources().
func NewHandler(logger *slog.Logger, renderer *shell.Renderer, client *apiclient.Client, guard rbac.Middleware) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:    logger,
		renderer:  renderer,
		client:    client,
		guard:     guard,
		resources: Resources(),
		validator: validator.New(),
		perPage:   defaultPerPage,
	}
}

// MountRoutes registers one list, create and delete route set per resource plus the
// permissions overview. Each route is guarded by the permission it needs.
func (h *Handler) MountRoutes(r chi.Router) {
	for _, res := range h.resources {
		base := "/" + res.Slug
		r.With(h.guard.RequirePermissions(res.Read)).Get(base, h.list(res))
		r.With(h.guard.RequirePermissions(res.Delete)).Post(base+"/delete", h.bulkDelete(res))
		r.With(h.guard.RequirePermissions(res.Delete)).Post(base+"/{id}/delete", h.delete(res))
		if len(res.Fields) > 0 {
			r.With(h.guard.RequirePermissions(res.Create)).Get(base+"/new", h.newForm(res))
			r.With(h.guard.RequirePermissions(res.Create)).Post(base, h.create(res))
		}
	}
	r.With(h.guard.RequirePermissions(rbac.PermPermissionRead)).Get("/permissions", h.permissions)
}

type listPage struct {
	Columns    []Column
	Plural     string
	Rows       []Row
	Summary    []Stat
	Query      string
	Pagination shared.Pagination
	CanDelete  bool
}

func (h *Handler) list(res Resource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		store, ok := session.FromContext(r.Context())
		if !ok {
			h.renderer.Error(w, r, errStoreMissing)
			return
		}
		api := h.client.As(store)
		q := strings.TrimSpace(r.URL.Query().Get("q"))
		page := shared.PageFromQuery(r.URL.Query())

		var (
			raw   json.RawMessage
			stats []Stat
		)
		g, ctx := errgroup.WithContext(r.Context())
		g.Go(func() error {
			query := url.Values{"page": {strconv.Itoa(page)}, "limit": {strconv.Itoa(h.perPage)}}
			if q != "" {
				query.Set("search", q)
			}
			return api.Get(ctx, res.APIPath, query, &raw)
		})
		if res.StatsPath != "" {
			g.Go(func() error {
				var statsRaw json.RawMessage
				if err := api.Get(ctx, res.StatsPath, nil, &statsRaw); err != nil {
					if errors.Is(err, apiclient.ErrSessionExpired) {
						return err
					}
					h.logger.Warn("load summary", slog.String("resource", res.Slug), slog.Any("error", err))
					return nil
				}
				decoded, err := decodeStats(statsRaw)
				if err != nil {
					h.logger.Warn("decode summary", slog.String("resource", res.Slug), slog.Any("error", err))
					return nil
				}
				stats = decoded
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			h.fail(w, r, res, err)
			return
		}

		records, total, err := decodeList(raw)
		if err != nil {
			h.renderer.Error(w, r, shared.NewSafeError(http.StatusBadGateway, "The server answered with data this screen cannot show.", err))
			return
		}

		canDelete := store.HasPermission(res.Delete)
		opts := []menu.Option{
			menu.Title(res.Title),
			menu.Breadcrumbs(breadcrumbs(res, "")...),
			menu.Search(res.Path(), q),
			menu.SearchPlaceholder("Search " + strings.ToLower(res.Title) + "..."),
			menu.DeleteAction(res.Path()+"/delete", canDelete),
			menu.Actions(menu.Action{Kind: menu.ActionIconButton, Icon: "refresh", Tooltip: "Refresh", Href: res.Path()}),
		}
		if len(res.Fields) > 0 {
			opts = append(opts, menu.NewAction(res.Path()+"/new", store.HasPermission(res.Create)))
		}
		release, err := menu.FromContext(r.Context()).Publish(opts...)
		defer release()
		if err != nil {
			h.renderer.Error(w, r, err)
			return
		}

		h.renderer.Render(w, r, http.StatusOK, "pages/resource_list.html", res.Title, listPage{
			Columns:    res.Columns,
			Plural:     strings.ToLower(res.Title),
			Rows:       buildRows(res, records),
			Summary:    stats,
			Query:      q,
			Pagination: shared.NewPagination(page, h.perPage, total),
			CanDelete:  canDelete,
		})
	}
}

func (h *Handler) delete(res Resource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		store, ok := session.FromContext(r.Context())
		if !ok {
			h.renderer.Error(w, r, errStoreMissing)
			return
		}
		id := chi.URLParam(r, "id")
		err := h.client.As(store).Delete(r.Context(), res.APIPath+"/"+url.PathEscape(id))
		if errors.Is(err, apiclient.ErrSessionExpired) {
			h.toLogin(w, r, res)
			return
		}
		if err != nil {
			h.logger.Info("delete failed", slog.String("resource", res.Slug), slog.String("id", id), slog.Any("error", err))
			h.flash(r, "error", deleteFailure(res, err))
		} else {
			h.flash(r, "success", capitalize(res.Singular)+" deleted.")
		}
		http.Redirect(w, r, res.Path(), http.StatusSeeOther)
	}
}

func (h *Handler) bulkDelete(res Resource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		store, ok := session.FromContext(r.Context())
		if !ok {
			h.renderer.Error(w, r, errStoreMissing)
			return
		}
		if err := r.ParseForm(); err != nil {
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			return
		}
		ids := r.PostForm["ids"]
		if len(ids) == 0 {
			h.flash(r, "info", "Select at least one "+res.Singular+" to delete.")
			http.Redirect(w, r, res.Path(), http.StatusSeeOther)
			return
		}

		api := h.client.As(store)
		var deleted, failed atomic.Int32
		g, ctx := errgroup.WithContext(r.Context())
		g.SetLimit(deleteParallelism)
		for _, id := range ids {
			g.Go(func() error {
				err := api.Delete(ctx, res.APIPath+"/"+url.PathEscape(id))
				switch {
				case errors.Is(err, apiclient.ErrSessionExpired):
					return err
				case err != nil:
					h.logger.Info("delete failed", slog.String("resource", res.Slug), slog.String("id", id), slog.Any("error", err))
					failed.Add(1)
				default:
					deleted.Add(1)
				}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			h.toLogin(w, r, res)
			return
		}
		summary := fmt.Sprintf("Deleted %d of %d selected.", deleted.Load(), len(ids))
		if n := failed.Load(); n > 0 {
			h.flash(r, "error", fmt.Sprintf("%s %d could not be deleted.", summary, n))
		} else {
			h.flash(r, "success", summary)
		}
		http.Redirect(w, r, res.Path(), http.StatusSeeOther)
	}
}

type permissionsPage struct {
	Groups []rbac.PermissionGroup
}

func (h *Handler) permissions(w http.ResponseWriter, r *http.Request) {
	store, ok := session.FromContext(r.Context())
	if !ok {
		h.renderer.Error(w, r, errStoreMissing)
		return
	}
	release, err := menu.FromContext(r.Context()).Publish(
		menu.Title("Permissions"),
		menu.Breadcrumbs(
			menu.Breadcrumb{Label: "Dashboard", Href: "/dashboard"},
			menu.Breadcrumb{Label: "Users & Access"},
			menu.Breadcrumb{Label: "Permissions"},
		),
	)
	defer release()
	if err != nil {
		h.renderer.Error(w, r, err)
		return
	}
	groups := rbac.Group(store.State().Permissions())
	h.renderer.Render(w, r, http.StatusOK, "pages/permissions.html", "Permissions", permissionsPage{Groups: groups})
}

// fail maps a backend failure onto the response. An expired session goes back to the
// login screen; everything else renders a safe error page.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, res Resource, err error) {
	switch {
	case errors.Is(err, apiclient.ErrSessionExpired):
		h.toLogin(w, r, res)
		return
	case apiclient.IsNotFound(err):
		err = fmt.Errorf("%w: %v", shared.ErrNotFound, err)
	case errors.Is(err, apiclient.ErrUnavailable), errors.Is(err, context.DeadlineExceeded):
		err = shared.NewSafeError(http.StatusServiceUnavailable, session.MsgUnavailable, err)
	default:
		err = shared.NewSafeError(http.StatusBadGateway, "The server could not load "+strings.ToLower(res.Title)+".", err)
	}
	h.renderer.Error(w, r, err)
}

func (h *Handler) toLogin(w http.ResponseWriter, r *http.Request, res Resource) {
	from := res.Path()
	if r.Method == http.MethodGet {
		from = rbac.RequestedPath(r)
	}
	login := h.guard.LoginPath
	if login == "" {
		login = rbac.DefaultLoginPath
	}
	http.Redirect(w, r, rbac.LoginRedirect(login, from, session.MsgSessionExpired), http.StatusSeeOther)
}

func (h *Handler) flash(r *http.Request, kind, message string) {
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		sess.AddFlash(shared.FlashMessage{Kind: kind, Message: message})
	}
}

func deleteFailure(res Resource, err error) string {
	var statusErr *apiclient.StatusError
	if errors.As(err, &statusErr) && statusErr.Message != "" && statusErr.StatusCode < http.StatusInternalServerError {
		return "Could not delete " + res.Singular + ": " + statusErr.Message
	}
	return "Could not delete " + res.Singular + ". Please try again."
}

func breadcrumbs(res Resource, leaf string) []menu.Breadcrumb {
	crumbs := []menu.Breadcrumb{{Label: "Dashboard", Href: "/dashboard"}}
	if res.Section != "" {
		crumbs = append(crumbs, menu.Breadcrumb{Label: res.Section})
	}
	if leaf == "" {
		return append(crumbs, menu.Breadcrumb{Label: res.Title})
	}
	return append(crumbs, menu.Breadcrumb{Label: res.Title, Href: res.Path()}, menu.Breadcrumb{Label: leaf})
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
