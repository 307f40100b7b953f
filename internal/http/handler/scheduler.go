package handler

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"vepbot/internal/jobs"
	"vepbot/internal/logger"
)

type Runner interface {
	RunOnce(ctx context.Context) (*jobs.Report, error)
}

type StatusCounter interface {
	CountByStatus(ctx context.Context) (map[jobs.Status]int64, error)
}

type SchedulerHandler struct {
	Runner Runner
	Stats  StatusCounter
	Log    *zap.SugaredLogger
}

// Run executes one pass synchronously and returns its report. The pass is
// detached from the request: claimed jobs finish even if the caller goes away.
func (h *SchedulerHandler) Run(w http.ResponseWriter, r *http.Request) {
	report, err := h.Runner.RunOnce(context.WithoutCancel(r.Context()))
	if err != nil {
		if h.Log != nil {
			h.Log.Errorw("manual run failed", logger.FieldError, err)
		}
		if report == nil {
			http.Error(w, "server error", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": err.Error(), "report": report})
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (h *SchedulerHandler) Counts(w http.ResponseWriter, r *http.Request) {
	counts, err := h.Stats.CountByStatus(r.Context())
	if err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, counts)
}
