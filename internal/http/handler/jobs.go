package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/cockroachdb/errors"

	"vepbot/internal/jobs"
)

// JobStore is the part of jobs.Repo the API needs.
type JobStore interface {
	Create(ctx context.Context, j *jobs.Job) error
	Get(ctx context.Context, id uint64) (*jobs.Job, error)
	List(ctx context.Context, status *jobs.Status, limit int) ([]jobs.Job, error)
	Delete(ctx context.Context, id uint64) error
	ListDeliveries(ctx context.Context, jobID uint64) ([]jobs.Delivery, error)
}

type JobHandler struct {
	Jobs JobStore
	// Loc is the scheduler's reference timezone; execution times are stored as its wall clock.
	Loc *time.Location
}

type createJobReq struct {
	Users         []jobs.Recipient `json:"users"` // may be empty: the job finishes without sending
	Category      string           `json:"category"`
	Folder        string           `json:"folder"`
	Caducate      *string          `json:"caducate"`
	ExecutionTime string           `json:"execution_time"`
}

var wallLayouts = []string{"2006-01-02T15:04:05", "2006-01-02T15:04", "2006-01-02 15:04:05", "2006-01-02 15:04"}

// parseExecutionTime accepts a zone-less wall clock in the reference zone or
// an RFC3339 instant, and returns the wall clock to store.
func parseExecutionTime(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		t = t.In(loc)
		return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, time.UTC), nil
	}
	for _, layout := range wallLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, errors.Newf("invalid execution_time %q", s)
}

func validateRecipients(users []jobs.Recipient) error {
	seen := map[uint64]bool{}
	for i := range users {
		u := &users[i]
		if u.ID == 0 || seen[u.ID] {
			return errors.Newf("users[%d]: id must be unique and non-zero", i)
		}
		seen[u.ID] = true
		if strings.TrimSpace(u.Phone) == "" {
			return errors.Newf("users[%d]: phone required", i)
		}
		u.Sent = false
	}
	return nil
}

func (h *JobHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createJobReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}

	category := jobs.Category(strings.ToUpper(strings.TrimSpace(req.Category)))
	if !category.Valid() {
		http.Error(w, "invalid category", http.StatusBadRequest)
		return
	}
	req.Folder = strings.TrimSpace(req.Folder)
	if req.Folder == "" {
		http.Error(w, "folder required", http.StatusBadRequest)
		return
	}
	if err := validateRecipients(req.Users); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	at, err := parseExecutionTime(req.ExecutionTime, h.loc())
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	j := jobs.Job{
		Users:         req.Users,
		Category:      category,
		Folder:        req.Folder,
		Caducate:      req.Caducate,
		ExecutionTime: at,
		Status:        jobs.StatusPending,
	}
	if err := h.Jobs.Create(r.Context(), &j); err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, j)
}

func (h *JobHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	err := h.Jobs.Delete(r.Context(), id)
	switch {
	case err == nil:
		w.WriteHeader(http.StatusNoContent)
	case errors.Is(err, jobs.ErrNotFound):
		http.Error(w, "not found", http.StatusNotFound)
	case errors.Is(err, jobs.ErrJobRunning):
		http.Error(w, "job is running", http.StatusConflict)
	default:
		http.Error(w, "server error", http.StatusInternalServerError)
	}
}

func (h *JobHandler) loc() *time.Location {
	if h.Loc == nil {
		return time.UTC
	}
	return h.Loc
}
