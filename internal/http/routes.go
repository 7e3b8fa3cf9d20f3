// Package httpx serves the queue's operator API and the pull API used by
// remote workers.
package httpx

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/target/mmk-ce-queue/internal/core"
	"github.com/target/mmk-ce-queue/internal/domain/model"
	"github.com/target/mmk-ce-queue/internal/service"
)

// QueueAPI is the queue controller surface exposed over HTTP.
type QueueAPI interface {
	Submit(ctx context.Context, req *model.SubmitRequest, opts ...model.SubmitOption) (*model.Task, error)
	MassSubmit(ctx context.Context, reqs []*model.SubmitRequest, opts ...model.SubmitOption) ([]*model.Task, error)
	GetTask(ctx context.Context, id string) (*model.Task, error)
	Cancel(ctx context.Context, taskID string) error
	CancelAll(ctx context.Context, includeInProgress bool) (int, error)
	Fail(ctx context.Context, taskID string, req model.FailRequest) (*model.ActivityRecord, error)
	Peek(ctx context.Context, req service.PeekRequest) (*model.Task, error)
	Remove(
		ctx context.Context,
		task *model.Task,
		outcome model.Outcome,
		result *model.TaskResult,
		taskErr *model.TaskError,
	) error
	RemoveHeld(
		ctx context.Context,
		workerID string,
		task *model.Task,
		outcome model.Outcome,
		result *model.TaskResult,
		taskErr *model.TaskError,
	) error
	Subscribe() (func(), <-chan struct{})
	Stats(ctx context.Context) (*model.QueueStats, error)
	History(ctx context.Context, opts model.ActivityListOptions) ([]*model.ActivityRecord, error)
	HasIssueSyncPendingOrInProgress(ctx context.Context) (bool, error)
	PauseWorkers(ctx context.Context) error
	ResumeWorkers(ctx context.Context) error
	SyncPauseState(ctx context.Context) error
	WorkersPauseStatus(ctx context.Context) (model.WorkersPauseStatus, error)
}

var _ QueueAPI = (*service.QueueService)(nil)

// RouterServices holds all the services needed by the HTTP router.
type RouterServices struct {
	Queue QueueAPI
	// Optional: remote worker heartbeats. Without it the sweeper can't see
	// remote workers and their tasks get reset.
	Registry core.WorkerRegistry
	// Readiness checks keyed by dependency name.
	Checks       map[string]HealthCheck
	HeartbeatTTL time.Duration
	MaxPeekWait  time.Duration
	// APIToken protects /api routes when set.
	APIToken string
	Logger   *slog.Logger
}

// NewRouter creates the HTTP router. Health endpoints are never token-protected;
// GET patterns also answer HEAD.
func NewRouter(services RouterServices) http.Handler {
	logger := services.Logger
	if logger == nil {
		logger = slog.Default()
	}

	api := http.NewServeMux()
	registerTaskRoutes(api, &TaskHandlers{Svc: services.Queue})
	registerQueueRoutes(api, &QueueHandlers{Svc: services.Queue})
	registerWorkerRoutes(api, &WorkerHandlers{
		Svc:          services.Queue,
		Registry:     services.Registry,
		HeartbeatTTL: services.HeartbeatTTL,
		MaxWait:      services.MaxPeekWait,
		Logger:       logger.With("component", "worker_api"),
	})

	mux := http.NewServeMux()
	mux.Handle("/api/", RequireToken(services.APIToken)(api))
	mux.Handle("GET /healthz", http.HandlerFunc(healthHandler))
	mux.Handle("GET /readyz", readinessHandler(services.Checks))
	return mux
}

func registerTaskRoutes(mux *http.ServeMux, h *TaskHandlers) {
	mux.HandleFunc("POST /api/tasks", h.Submit)
	mux.HandleFunc("POST /api/tasks/batch", h.MassSubmit)
	mux.HandleFunc("POST /api/tasks/cancel-all", h.CancelAll)
	mux.HandleFunc("GET /api/tasks/{id}", h.Get)
	mux.HandleFunc("DELETE /api/tasks/{id}", h.Cancel)
	mux.HandleFunc("POST /api/tasks/{id}/fail", h.Fail)
}

func registerQueueRoutes(mux *http.ServeMux, h *QueueHandlers) {
	mux.HandleFunc("GET /api/queue", h.Status)
	mux.HandleFunc("POST /api/queue/pause", h.Pause)
	mux.HandleFunc("POST /api/queue/resume", h.Resume)
	mux.HandleFunc("GET /api/activity", h.History)
}

func registerWorkerRoutes(mux *http.ServeMux, h *WorkerHandlers) {
	mux.HandleFunc("POST /api/workers/{worker}/peek", h.Peek)
	mux.HandleFunc("POST /api/workers/{worker}/heartbeat", h.Heartbeat)
	mux.HandleFunc("POST /api/workers/{worker}/tasks/{id}/complete", h.Complete)
}
