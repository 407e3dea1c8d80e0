package auth

import (
	"context"
	"log/slog"
	"time"

	"github.com/odyssey-erp/odyssey-admin/internal/session"
)

// Recorder writes session lifecycle events to the audit trail. A nil store only logs.
type Recorder struct {
	store   AuditStore
	logger  *slog.Logger
	timeout time.Duration
	now     func() time.Time
}

// NewRecorder constructs a Recorder.
func NewRecorder(store AuditStore, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{store: store, logger: logger, timeout: 3 * time.Second, now: time.Now}
}

// HandleEvent is suitable as session.Config.OnEvent. It never blocks the caller for
// longer than the recorder timeout, and failures are only logged.
func (r *Recorder) HandleEvent(ev session.Event) {
	level := slog.LevelInfo
	switch ev.Kind {
	case session.EventLoginFailure, session.EventRestoreFailed, session.EventProfileFailed:
		level = slog.LevelWarn
	case session.EventRestored:
		level = slog.LevelDebug
	}
	r.logger.Log(context.Background(), level, "session event",
		slog.String("event", string(ev.Kind)),
		slog.String("session", ev.Key),
		slog.String("user", ev.Username),
		slog.String("reason", ev.Reason),
	)
	if r.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()
	if err := r.store.Record(ctx, EntryFromEvent(ev, r.now())); err != nil {
		r.logger.Warn("record session audit", slog.String("event", string(ev.Kind)), slog.Any("error", err))
	}
}

// Prune removes audit rows older than retention.
func (r *Recorder) Prune(ctx context.Context, retention time.Duration) (int64, error) {
	if r.store == nil {
		return 0, nil
	}
	removed, err := r.store.Prune(ctx, r.now().Add(-retention))
	if err != nil {
		return 0, err
	}
	r.logger.Info("pruned session audit", slog.Int64("rows", removed), slog.Duration("retention", retention))
	return removed, nil
}
