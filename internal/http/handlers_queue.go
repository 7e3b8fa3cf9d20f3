package httpx

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/target/mmk-ce-queue/internal/domain/model"
	apperrors "github.com/target/mmk-ce-queue/internal/errors"
)

const (
	defaultActivityLimit = 50
	maxActivityLimit     = 1000
)

// QueueHandlers serves queue-wide status and intake control.
type QueueHandlers struct {
	Svc QueueAPI
}

type queueStatusResponse struct {
	Workers         model.WorkersPauseStatus `json:"workers"`
	Pending         int                      `json:"pending"`
	InProgress      int                      `json:"in_progress"`
	IssueSyncQueued bool                     `json:"issue_sync_queued"`
}

// Status reports queue depth and the pause status of the worker fleet.
func (h *QueueHandlers) Status(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	// The flag may have been flipped by another node.
	if err := h.Svc.SyncPauseState(ctx); err != nil {
		writeServiceError(w, err)
		return
	}
	stats, err := h.Svc.Stats(ctx)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	status, err := h.Svc.WorkersPauseStatus(ctx)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	issueSync, err := h.Svc.HasIssueSyncPendingOrInProgress(ctx)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, queueStatusResponse{
		Workers:         status,
		Pending:         stats.Pending,
		InProgress:      stats.InProgress,
		IssueSyncQueued: issueSync,
	})
}

// Pause stops intake on every node.
func (h *QueueHandlers) Pause(w http.ResponseWriter, r *http.Request) {
	h.setPaused(w, r, true)
}

// Resume restarts intake on every node.
func (h *QueueHandlers) Resume(w http.ResponseWriter, r *http.Request) {
	h.setPaused(w, r, false)
}

func (h *QueueHandlers) setPaused(w http.ResponseWriter, r *http.Request, paused bool) {
	ctx := r.Context()
	var err error
	if paused {
		err = h.Svc.PauseWorkers(ctx)
	} else {
		err = h.Svc.ResumeWorkers(ctx)
	}
	if err != nil {
		writeServiceError(w, err)
		return
	}
	status, err := h.Svc.WorkersPauseStatus(ctx)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]model.WorkersPauseStatus{"workers": status})
}

// History lists archived activity, newest first.
func (h *QueueHandlers) History(w http.ResponseWriter, r *http.Request) {
	limit, offset := ParseLimitOffset(r, defaultActivityLimit, maxActivityLimit)
	opts := model.ActivityListOptions{
		ProjectID: optionalQuery(r, "project_id"),
		TargetID:  optionalQuery(r, "target_id"),
		JobType:   optionalQuery(r, "job_type"),
		OnlyLast:  parseBoolQuery(r, "only_last"),
		Limit:     limit,
		Offset:    offset,
	}
	if raw := optionalQuery(r, "status"); raw != nil {
		outcome := model.Outcome(strings.ToUpper(*raw))
		if !outcome.Valid() {
			writeServiceError(w, apperrors.InvalidField("status", fmt.Sprintf("unknown status %q", *raw)))
			return
		}
		opts.Outcome = &outcome
	}

	records, err := h.Svc.History(r.Context(), opts)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if records == nil {
		records = []*model.ActivityRecord{}
	}
	WriteJSON(w, http.StatusOK, map[string]any{"activity": records})
}
