package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"

	"vepbot/internal/jobs"
)

func (h *JobHandler) List(w http.ResponseWriter, r *http.Request) {
	var status *jobs.Status
	if s := strings.TrimSpace(strings.ToUpper(r.URL.Query().Get("status"))); s != "" {
		st := jobs.Status(s)
		if !st.Valid() {
			http.Error(w, "invalid status", http.StatusBadRequest)
			return
		}
		status = &st
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	rows, err := h.Jobs.List(r.Context(), status, limit)
	if err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	if rows == nil {
		rows = []jobs.Job{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": rows})
}

func (h *JobHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	j, err := h.Jobs.Get(r.Context(), id)
	if errors.Is(err, jobs.ErrNotFound) {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, j)
}

func (h *JobHandler) Deliveries(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	if _, err := h.Jobs.Get(r.Context(), id); err != nil {
		if errors.Is(err, jobs.ErrNotFound) {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}

	rows, err := h.Jobs.ListDeliveries(r.Context(), id)
	if err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	if rows == nil {
		rows = []jobs.Delivery{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"job_id": id, "items": rows})
}
