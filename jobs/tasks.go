package jobs

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/odyssey-admin/internal/platform/cache"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskAuditPrune deletes session audit rows past their retention.
	TaskAuditPrune = "audit:prune"
)

// AuditPrunePayload configures one prune run. A zero Retention uses the job default.
type AuditPrunePayload struct {
	Retention string `json:"retention,omitempty"`
}

// NewAuditPruneTask constructs an Asynq task.
func NewAuditPruneTask(retention time.Duration) (*asynq.Task, error) {
	payload := AuditPrunePayload{}
	if retention > 0 {
		payload.Retention = retention.String()
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("audit prune: encode payload: %w", err)
	}
	return asynq.NewTask(TaskAuditPrune, data), nil
}

// RedisOpt converts the shared Redis settings for Asynq clients and servers.
func RedisOpt(o cache.Options) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{Addr: o.Addr, Password: o.Password, DB: o.DB}
}
