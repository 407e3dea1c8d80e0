package menu

import (
	"context"
	"log/slog"
	"net/http"
)

type storeKey struct{}

// ContextWithStore stores s in ctx.
func ContextWithStore(ctx context.Context, s *Store) context.Context {
	return context.WithValue(ctx, storeKey{}, s)
}

// FromContext returns the Store of the current request. Outside Middleware it
// returns a detached store so callers never need a nil check.
func FromContext(ctx context.Context) *Store {
	if s, ok := ctx.Value(storeKey{}).(*Store); ok && s != nil {
		return s
	}
	return NewStore()
}

// Middleware gives every request its own Store, so concurrent tabs of one browser
// never see each other's page configuration.
func Middleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			store := NewStore()
			if logger != nil && logger.Enabled(r.Context(), slog.LevelDebug) {
				cancel := store.Subscribe(func(cfg Config, version uint64) {
					logger.Debug("menu published",
						slog.String("path", r.URL.Path),
						slog.String("title", cfg.Title),
						slog.Int("actions", len(cfg.Actions)),
						slog.Uint64("version", version),
					)
				})
				defer cancel()
			}
			next.ServeHTTP(w, r.WithContext(ContextWithStore(r.Context(), store)))
		})
	}
}
