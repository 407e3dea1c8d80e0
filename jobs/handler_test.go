package jobs

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-admin/internal/platform/cache"
)

func TestHealthWithoutInspectorReportsEmptyQueue(t *testing.T) {
	r := chi.NewRouter()
	NewHandler(nil, nil).MountRoutes(r)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"queue":"default","pending":0,"active":0,"scheduled":0,"retry":0}`, rec.Body.String())
}

func TestRedisOptCarriesCredentials(t *testing.T) {
	opt := RedisOpt(cache.Options{Addr: "redis:6379", Password: "pw", DB: 2})
	assert.Equal(t, asynq.RedisClientOpt{Addr: "redis:6379", Password: "pw", DB: 2}, opt)
}

func TestNewWorkerRejectsIncompleteRegistrations(t *testing.T) {
	opts := asynq.RedisClientOpt{Addr: "127.0.0.1:0"}

	_, err := NewWorker(WorkerConfig{RedisOpts: opts, Handlers: []TaskHandler{{Type: TaskAuditPrune}}})
	assert.ErrorContains(t, err, "incomplete handler")

	_, err = NewWorker(WorkerConfig{RedisOpts: opts, Cron: []CronRegistration{{Spec: "@daily"}}})
	assert.ErrorContains(t, err, "cron entry")
}

func TestAsynqLoggerTagsComponent(t *testing.T) {
	var buf bytes.Buffer
	l := asynqLogger{slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))}
	l.Warn("lease ", "expired")
	assert.Contains(t, buf.String(), `msg="lease expired"`)
	assert.Contains(t, buf.String(), "component=asynq")
}
