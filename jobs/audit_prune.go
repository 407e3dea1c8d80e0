package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/odyssey-erp/odyssey-admin/internal/jobs"
)

// Pruner deletes audit rows older than the retention window.
type Pruner interface {
	Prune(ctx context.Context, retention time.Duration) (int64, error)
}

// AuditPruneJob enforces the session audit retention.
type AuditPruneJob struct {
	Pruner    Pruner
	Retention time.Duration
	Logger    *slog.Logger
	Metrics   *jobmetrics.Metrics
}

// NewAuditPruneJob initialises the prune handler.
func NewAuditPruneJob(pruner Pruner, retention time.Duration, logger *slog.Logger, metrics *jobmetrics.Metrics) *AuditPruneJob {
	return &AuditPruneJob{Pruner: pruner, Retention: retention, Logger: logger, Metrics: metrics}
}

// Handle executes one prune run.
func (j *AuditPruneJob) Handle(ctx context.Context, t *asynq.Task) (resultErr error) {
	if j == nil || j.Pruner == nil {
		return errors.New("audit prune: handler not configured")
	}
	var payload AuditPrunePayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
	}
	retention := j.Retention
	if payload.Retention != "" {
		d, err := time.ParseDuration(payload.Retention)
		if err != nil || d <= 0 {
			return asynq.SkipRetry
		}
		retention = d
	}
	if retention <= 0 {
		return asynq.SkipRetry
	}

	tracker := j.Metrics.Track(TaskAuditPrune)
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger().With(slog.Duration("retention", retention))
	removed, err := j.Pruner.Prune(ctx, retention)
	if err != nil {
		logger.Error("audit prune failed", slog.Any("error", err))
		return err
	}
	j.Metrics.AddPruned(removed)
	logger.Info("audit prune completed", slog.Int64("removed", removed))
	return nil
}

func (j *AuditPruneJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}
