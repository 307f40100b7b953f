package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"vepbot/internal/jobs"
	"vepbot/internal/templates"
)

type TemplateStore interface {
	List(ctx context.Context) ([]templates.Template, error)
	Upsert(ctx context.Context, category, text string) error
}

type TemplateHandler struct {
	Store TemplateStore
}

type templateDTO struct {
	Category string `json:"category"`
	Text     string `json:"text"`
	Stored   bool   `json:"stored"`
}

// List shows every category, falling back to the built-in text where no row exists.
func (h *TemplateHandler) List(w http.ResponseWriter, r *http.Request) {
	rows, err := h.Store.List(r.Context())
	if err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}

	stored := make(map[string]string, len(rows))
	for _, t := range rows {
		stored[t.Category] = t.Text
	}

	out := make([]templateDTO, 0, len(jobs.Categories))
	for _, c := range jobs.Categories {
		if text, ok := stored[string(c)]; ok {
			out = append(out, templateDTO{Category: string(c), Text: text, Stored: true})
			continue
		}
		text, _ := templates.Default(c)
		out = append(out, templateDTO{Category: string(c), Text: text})
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": out})
}

type putTemplateReq struct {
	Text string `json:"text"`
}

// Put stores a template. Blank text is accepted and blocks sending for the
// category. The running scheduler keeps its cached copy until restart.
func (h *TemplateHandler) Put(w http.ResponseWriter, r *http.Request) {
	category := jobs.Category(strings.ToUpper(chi.URLParam(r, "category")))
	if !category.Valid() {
		http.Error(w, "invalid category", http.StatusBadRequest)
		return
	}

	var req putTemplateReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	if err := h.Store.Upsert(r.Context(), string(category), req.Text); err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
