package rbac

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"
)

// Default destinations used by the guard.
const (
	DefaultLoginPath  = "/login"
	DefaultDeniedPath = "/access-denied"

	// LoginRequiredMessage is shown on the login screen after a guard redirect.
	LoginRequiredMessage = "Please log in to access this page."
)

// SubjectResolver extracts the current subject from a request.
type SubjectResolver func(r *http.Request) Subject

// Middleware guards protected screens.
type Middleware struct {
	Resolve    SubjectResolver
	Logger     *slog.Logger
	LoginPath  string
	DeniedPath string
	// Loading renders the placeholder shown while the session is still resolving.
	Loading http.Handler
	// Observe receives every decision, e.g. for metrics.
	Observe func(Decision)
}

// RequireAuth lets any authenticated user through.
func (m Middleware) RequireAuth() func(http.Handler) http.Handler {
	return m.Require(Requirement{})
}

// RequireRoles guards a route with a role allow-list.
func (m Middleware) RequireRoles(roles ...Role) func(http.Handler) http.Handler {
	return m.Require(Requirement{Roles: roles})
}

// RequirePermissions guards a route with permissions that must all be held.
func (m Middleware) RequirePermissions(perms ...Permission) func(http.Handler) http.Handler {
	return m.Require(Requirement{Permissions: perms})
}

// Require guards a route with the full requirement.
func (m Middleware) Require(req Requirement) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var subject Subject
			if m.Resolve != nil {
				subject = m.Resolve(r)
			}
			decision := Decide(subject, req)
			if m.Observe != nil {
				m.Observe(decision)
			}
			switch decision {
			case DecisionLoading:
				m.renderLoading(w, r)
			case DecisionUnauthenticated:
				http.Redirect(w, r, LoginRedirect(m.loginPath(), RequestedPath(r), LoginRequiredMessage), http.StatusSeeOther)
			case DecisionForbidden:
				if m.Logger != nil {
					m.Logger.Debug("route denied", slog.String("path", r.URL.Path), slog.String("role", string(subject.CurrentRole())))
				}
				target := m.deniedPath() + "?" + url.Values{"from": {RequestedPath(r)}}.Encode()
				http.Redirect(w, r, target, http.StatusSeeOther)
			default:
				next.ServeHTTP(w, r)
			}
		})
	}
}

func (m Middleware) renderLoading(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Retry-After", "1")
	w.Header().Set("Cache-Control", "no-store")
	if m.Loading != nil {
		m.Loading.ServeHTTP(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`<!doctype html><meta http-equiv="refresh" content="1"><p>Loading&hellip;</p>`))
}

func (m Middleware) loginPath() string {
	if m.LoginPath != "" {
		return m.LoginPath
	}
	return DefaultLoginPath
}

func (m Middleware) deniedPath() string {
	if m.DeniedPath != "" {
		return m.DeniedPath
	}
	return DefaultDeniedPath
}

// RequestedPath returns the path and query the browser asked for.
func RequestedPath(r *http.Request) string {
	if r.URL.RawQuery == "" {
		return r.URL.Path
	}
	return r.URL.Path + "?" + r.URL.RawQuery
}

// LoginRedirect builds the login URL carrying the originally requested path and a message.
func LoginRedirect(loginPath, from, message string) string {
	values := url.Values{}
	if from = SafeReturnPath(from); from != "" {
		values.Set("from", from)
	}
	if message != "" {
		values.Set("message", message)
	}
	if len(values) == 0 {
		return loginPath
	}
	return loginPath + "?" + values.Encode()
}

// SafeReturnPath accepts only same-origin absolute paths and returns "" otherwise.
func SafeReturnPath(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" || !strings.HasPrefix(raw, "/") || strings.HasPrefix(raw, "//") || strings.HasPrefix(raw, "/\\") {
		return ""
	}
	parsed, err := url.Parse(raw)
	if err != nil || parsed.IsAbs() || parsed.Host != "" {
		return ""
	}
	return raw
}
