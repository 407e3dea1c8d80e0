package auth

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/odyssey-erp/odyssey-admin/internal/rbac"
	"github.com/odyssey-erp/odyssey-admin/internal/session"
	"github.com/odyssey-erp/odyssey-admin/internal/shared"
)

// SessionMiddleware binds the browser's Session Store to each request.
type SessionMiddleware struct {
	Registry *session.Registry
	Logger   *slog.Logger
	// RestoreTimeout bounds the restore run by the request that created the store.
	RestoreTimeout time.Duration
}

// Attach must run after the cookie session was loaded. The first request of a browser
// session restores the persisted login; concurrent requests observe it loading.
func (m SessionMiddleware) Attach(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := shared.SessionFromContext(r.Context())
		if sess == nil || m.Registry == nil {
			next.ServeHTTP(w, r)
			return
		}
		store, created := m.Registry.Acquire(sess.ID)
		if created {
			// A client disconnect must not be mistaken for a rejected token.
			ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), m.restoreTimeout())
			st := store.Restore(ctx)
			cancel()
			if m.Logger != nil {
				m.Logger.Debug("session restored",
					slog.String("session", sess.ID),
					slog.Bool("authenticated", st.IsAuthenticated()),
				)
			}
		}
		next.ServeHTTP(w, r.WithContext(session.ContextWithStore(r.Context(), store)))
	})
}

func (m SessionMiddleware) restoreTimeout() time.Duration {
	if m.RestoreTimeout > 0 {
		return m.RestoreTimeout
	}
	return 10 * time.Second
}

// Subject resolves the route guard's subject from the request's Session Store.
func Subject(r *http.Request) rbac.Subject {
	store, ok := session.FromContext(r.Context())
	if !ok {
		return nil
	}
	return store.State()
}
