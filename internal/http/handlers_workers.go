package httpx

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/target/mmk-ce-queue/internal/core"
	"github.com/target/mmk-ce-queue/internal/domain/model"
	apperrors "github.com/target/mmk-ce-queue/internal/errors"
	"github.com/target/mmk-ce-queue/internal/service"
)

const (
	defaultHeartbeatTTL = 30 * time.Second
	defaultMaxPeekWait  = 30 * time.Second
)

// WorkerHandlers serves the pull API for workers running outside this process.
// A remote worker peeks, runs the task, then reports completion; it must keep
// heartbeating while it runs or the sweeper returns its task to the queue.
type WorkerHandlers struct {
	Svc          QueueAPI
	Registry     core.WorkerRegistry
	HeartbeatTTL time.Duration
	MaxWait      time.Duration
	Logger       *slog.Logger
}

type completeRequest struct {
	Status     model.Outcome `json:"status"`
	AnalysisID *string       `json:"analysis_id,omitempty"`
	Error      *taskErrorDTO `json:"error,omitempty"`
}

type taskErrorDTO struct {
	Type       string `json:"type"`
	Message    string `json:"message"`
	Stacktrace string `json:"stacktrace,omitempty"`
}

func (h *WorkerHandlers) ttl() time.Duration {
	if h.HeartbeatTTL > 0 {
		return h.HeartbeatTTL
	}
	return defaultHeartbeatTTL
}

func (h *WorkerHandlers) maxWait() time.Duration {
	if h.MaxWait > 0 {
		return h.MaxWait
	}
	return defaultMaxPeekWait
}

func workerID(r *http.Request) (string, error) {
	id := strings.TrimSpace(r.PathValue("worker"))
	if id == "" {
		return "", apperrors.InvalidField("worker_id", "worker id is required")
	}
	return id, nil
}

func (h *WorkerHandlers) heartbeat(ctx context.Context, id string) error {
	if h.Registry == nil {
		return nil
	}
	return h.Registry.Heartbeat(ctx, id, h.ttl())
}

// Heartbeat keeps the worker's registry entry alive.
func (h *WorkerHandlers) Heartbeat(w http.ResponseWriter, r *http.Request) {
	id, err := workerID(r)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if err := h.heartbeat(r.Context(), id); err != nil {
		writeServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"ok": true, "ttl_seconds": int(h.ttl().Seconds())})
}

// Peek claims the next eligible task for the worker. With ?wait=N it blocks up
// to N seconds (capped by MaxWait) for a submission before answering 204.
// Any task the worker still held is returned to the queue first.
func (h *WorkerHandlers) Peek(w http.ResponseWriter, r *http.Request) {
	id, err := workerID(r)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if err := h.heartbeat(r.Context(), id); err != nil {
		h.Logger.WarnContext(r.Context(), "remote worker heartbeat failed", "worker_id", id, "error", err)
	}

	req := service.PeekRequest{WorkerID: id, ExcludeIssueSync: parseBoolQuery(r, "exclude_issue_sync")}
	task, err := h.Svc.Peek(r.Context(), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if task != nil {
		WriteJSON(w, http.StatusOK, task)
		return
	}

	wait := time.Duration(parseIntQuery(r, "wait", 0)) * time.Second
	if wait <= 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	h.longPoll(w, r, req, min(wait, h.maxWait()))
}

func (h *WorkerHandlers) longPoll(w http.ResponseWriter, r *http.Request, req service.PeekRequest, wait time.Duration) {
	ctx, cancel := context.WithTimeout(r.Context(), wait)
	defer cancel()

	unsub, ch := h.Svc.Subscribe()
	defer unsub()

	for {
		select {
		case <-ctx.Done():
			w.WriteHeader(http.StatusNoContent)
			return
		case _, ok := <-ch:
			if !ok {
				// Listeners stopped: the process is shutting down.
				w.WriteHeader(http.StatusNoContent)
				return
			}
			task, err := h.Svc.Peek(ctx, req)
			if err != nil {
				if ctx.Err() != nil {
					w.WriteHeader(http.StatusNoContent)
					return
				}
				writeServiceError(w, err)
				return
			}
			if task != nil {
				WriteJSON(w, http.StatusOK, task)
				return
			}
			// Another worker won the task; keep waiting.
		}
	}
}

// Complete archives a task the worker finished. The task must be held by the
// worker named in the path; the archive re-checks that atomically.
func (h *WorkerHandlers) Complete(w http.ResponseWriter, r *http.Request) {
	id, err := workerID(r)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	var req completeRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	req.Status = model.Outcome(strings.ToUpper(string(req.Status)))
	if !req.Status.Valid() {
		writeServiceError(w, apperrors.InvalidField("status", "status must be SUCCESS, FAILED or CANCELED"))
		return
	}

	ctx := r.Context()
	task, err := h.Svc.GetTask(ctx, r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if task.WorkerID == nil || *task.WorkerID != id {
		writeServiceError(w, apperrors.IllegalStatef("task %s is not held by worker %s", task.ID, id))
		return
	}

	var result *model.TaskResult
	if req.AnalysisID != nil {
		result = &model.TaskResult{AnalysisID: req.AnalysisID}
	}
	var taskErr *model.TaskError
	if req.Error != nil {
		taskErr = &model.TaskError{Type: req.Error.Type, Message: req.Error.Message, Stacktrace: req.Error.Stacktrace}
	}

	if err := h.Svc.RemoveHeld(ctx, id, task, req.Status, result, taskErr); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
