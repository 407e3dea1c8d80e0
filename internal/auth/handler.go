package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/go-playground/validator/v10"

	"github.com/odyssey-erp/odyssey-admin/internal/nav"
	"github.com/odyssey-erp/odyssey-admin/internal/rbac"
	"github.com/odyssey-erp/odyssey-admin/internal/session"
	"github.com/odyssey-erp/odyssey-admin/internal/shared"
	"github.com/odyssey-erp/odyssey-admin/internal/shell"
)

// HomePath is where a login without a usable return path lands.
const HomePath = "/dashboard"

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	logger      *slog.Logger
	renderer    *shell.Renderer
	csrfManager *shared.CSRFManager
	expansions  *nav.ExpansionRegistry
	validator   *validator.Validate
	// loginLimit caps login attempts per client IP and minute; zero disables it.
	loginLimit int
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, renderer *shell.Renderer, csrf *shared.CSRFManager, loginLimit int) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:      logger,
		renderer:    renderer,
		csrfManager: csrf,
		expansions:  renderer.Expansions,
		validator:   validator.New(),
		loginLimit:  loginLimit,
	}
}

// MountRoutes registers auth routes on provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/login", h.showLogin)
	if h.loginLimit > 0 {
		r.With(httprate.LimitByIP(h.loginLimit, time.Minute)).Post("/login", h.handleLogin)
	} else {
		r.Post("/login", h.handleLogin)
	}
	r.Post("/logout", h.handleLogout)
	r.Get("/access-denied", h.showAccessDenied)
}

type loginForm struct {
	Username string `validate:"required,max=150"`
	Password string `validate:"required,max=256"`
}

type loginPageData struct {
	Username string
	From     string
	Message  string
	Error    string
	Errors   map[string]string
}

func (h *Handler) showLogin(w http.ResponseWriter, r *http.Request) {
	from := rbac.SafeReturnPath(r.URL.Query().Get("from"))
	store, ok := session.FromContext(r.Context())
	if ok {
		st := store.State()
		if st.IsAuthenticated() && !st.IsLoading {
			http.Redirect(w, r, landing(from), http.StatusSeeOther)
			return
		}
	}
	data := loginPageData{From: from, Message: r.URL.Query().Get("message")}
	if ok {
		if notice := store.TakeNotice(); notice != "" {
			data.Message = notice
		}
	}
	h.renderer.Render(w, r, http.StatusOK, "pages/login.html", "Log in", data)
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	form := loginForm{
		Username: r.PostFormValue("username"),
		Password: r.PostFormValue("password"),
	}
	data := loginPageData{
		Username: form.Username,
		From:     rbac.SafeReturnPath(r.PostFormValue("from")),
		Errors:   make(map[string]string),
	}
	if err := h.validator.Struct(form); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			for _, fieldErr := range fieldErrs {
				data.Errors[formField(fieldErr.Field())] = validationMessage(fieldErr)
			}
		}
		h.renderer.Render(w, r, http.StatusBadRequest, "pages/login.html", "Log in", data)
		return
	}

	store, ok := session.FromContext(r.Context())
	if !ok {
		h.logger.Error("session store missing during login")
		h.renderer.Error(w, r, errors.New("session store missing"))
		return
	}
	result := store.Login(r.Context(), session.Credentials{Username: form.Username, Password: form.Password})
	if !result.Success {
		data.Error = result.Error
		h.renderer.Render(w, r, http.StatusUnauthorized, "pages/login.html", "Log in", data)
		return
	}

	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		if _, err := h.csrfManager.Rotate(sess); err != nil {
			h.logger.Warn("rotate csrf token", slog.Any("error", err))
		}
		sess.AddFlash(shared.FlashMessage{Kind: "success", Message: "Welcome back, " + result.User.DisplayName() + "."})
	}
	http.Redirect(w, r, landing(data.From), http.StatusSeeOther)
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if store, ok := session.FromContext(r.Context()); ok {
		store.Logout(r.Context(), session.MsgLoggedOut)
	}
	if sess := shared.SessionFromContext(r.Context()); sess != nil && h.expansions != nil {
		h.expansions.Forget(sess.ID)
	}
	http.Redirect(w, r, rbac.DefaultLoginPath, http.StatusSeeOther)
}

type accessDeniedData struct {
	From string
}

func (h *Handler) showAccessDenied(w http.ResponseWriter, r *http.Request) {
	data := accessDeniedData{From: rbac.SafeReturnPath(r.URL.Query().Get("from"))}
	h.renderer.Render(w, r, http.StatusForbidden, "pages/access_denied.html", "Access denied", data)
}

func landing(from string) string {
	if from == "" || strings.HasPrefix(from, rbac.DefaultLoginPath) {
		return HomePath
	}
	return from
}

func formField(name string) string {
	switch name {
	case "Username":
		return "username"
	case "Password":
		return "password"
	default:
		return name
	}
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required."
	case "max":
		return fe.Field() + " is too long."
	default:
		return fe.Field() + " is invalid."
	}
}
