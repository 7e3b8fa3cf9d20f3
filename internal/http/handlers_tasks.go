package httpx

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/target/mmk-ce-queue/internal/domain/model"
	apperrors "github.com/target/mmk-ce-queue/internal/errors"
)

// maxBatchSize bounds POST /api/tasks/batch.
const maxBatchSize = 500

// TaskHandlers serves submission and operator actions on single tasks.
type TaskHandlers struct {
	Svc QueueAPI
}

type submitResponse struct {
	Task    *model.Task `json:"task,omitempty"`
	Skipped bool        `json:"skipped,omitempty"`
}

type batchRequest struct {
	Tasks []*model.SubmitRequest `json:"tasks"`
}

type batchResponse struct {
	Tasks   []*model.Task `json:"tasks"`
	Skipped int           `json:"skipped"`
}

type failRequest struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// parseSubmitOptions reads ?unique=project,job_type.
func parseSubmitOptions(r *http.Request) ([]model.SubmitOption, error) {
	raw := strings.TrimSpace(r.URL.Query().Get("unique"))
	if raw == "" {
		return nil, nil
	}
	var opts []model.SubmitOption
	for part := range strings.SplitSeq(raw, ",") {
		switch strings.TrimSpace(part) {
		case "":
		case "project":
			opts = append(opts, model.UniqueQueuePerProject)
		case "job_type":
			opts = append(opts, model.UniqueQueuePerJobType)
		default:
			return nil, apperrors.InvalidField("unique", fmt.Sprintf("unknown uniqueness option %q", part))
		}
	}
	return opts, nil
}

// Submit enqueues one task. A submission skipped by a uniqueness option
// answers 200 with skipped=true.
func (h *TaskHandlers) Submit(w http.ResponseWriter, r *http.Request) {
	opts, err := parseSubmitOptions(r)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	var req model.SubmitRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	task, err := h.Svc.Submit(r.Context(), &req, opts...)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if task == nil {
		WriteJSON(w, http.StatusOK, submitResponse{Skipped: true})
		return
	}
	WriteJSON(w, http.StatusCreated, submitResponse{Task: task})
}

// MassSubmit enqueues tasks in order. On failure nothing after the failing
// request is submitted; earlier ones stay queued.
func (h *TaskHandlers) MassSubmit(w http.ResponseWriter, r *http.Request) {
	opts, err := parseSubmitOptions(r)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	var req batchRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	switch {
	case len(req.Tasks) == 0:
		writeServiceError(w, apperrors.InvalidField("tasks", "at least one task is required"))
		return
	case len(req.Tasks) > maxBatchSize:
		writeServiceError(w, apperrors.InvalidField("tasks", fmt.Sprintf("at most %d tasks per batch", maxBatchSize)))
		return
	}
	for i, t := range req.Tasks {
		if t == nil {
			writeServiceError(w, apperrors.InvalidField("tasks", fmt.Sprintf("task %d is null", i)))
			return
		}
	}

	tasks, err := h.Svc.MassSubmit(r.Context(), req.Tasks, opts...)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusCreated, batchResponse{Tasks: tasks, Skipped: len(req.Tasks) - len(tasks)})
}

// Get returns a queued task.
func (h *TaskHandlers) Get(w http.ResponseWriter, r *http.Request) {
	task, err := h.Svc.GetTask(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, task)
}

// Cancel archives a pending task as CANCELED.
func (h *TaskHandlers) Cancel(w http.ResponseWriter, r *http.Request) {
	if err := h.Svc.Cancel(r.Context(), r.PathValue("id")); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CancelAll cancels pending tasks, and in-progress ones with
// ?include_in_progress=true.
func (h *TaskHandlers) CancelAll(w http.ResponseWriter, r *http.Request) {
	n, err := h.Svc.CancelAll(r.Context(), parseBoolQuery(r, "include_in_progress"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]int{"canceled": n})
}

// Fail archives an in-progress task as FAILED.
func (h *TaskHandlers) Fail(w http.ResponseWriter, r *http.Request) {
	var req failRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	req.Message = strings.TrimSpace(req.Message)
	if req.Message == "" {
		writeServiceError(w, apperrors.InvalidField("message", "message is required"))
		return
	}
	if strings.TrimSpace(req.Type) == "" {
		req.Type = "operator"
	}

	record, err := h.Svc.Fail(r.Context(), r.PathValue("id"), model.FailRequest{
		ErrorType:    req.Type,
		ErrorMessage: req.Message,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, record)
}
