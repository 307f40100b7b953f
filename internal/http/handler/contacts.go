package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/cockroachdb/errors"

	"vepbot/internal/contacts"
)

type ContactStore interface {
	Create(ctx context.Context, c *contacts.Contact) error
	List(ctx context.Context) ([]contacts.Contact, error)
}

type ContactHandler struct {
	Store ContactStore
}

type createContactReq struct {
	Name      string  `json:"name"`
	AlterName string  `json:"alter_name"`
	Phone     string  `json:"phone"`
	Cuit      *string `json:"cuit"`
	IsGroup   bool    `json:"is_group"`
}

func (h *ContactHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createContactReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}

	c := contacts.Contact{
		Name:      req.Name,
		AlterName: req.AlterName,
		Phone:     req.Phone,
		Cuit:      req.Cuit,
		IsGroup:   req.IsGroup,
	}
	if err := h.Store.Create(r.Context(), &c); err != nil {
		if errors.Is(err, contacts.ErrInvalid) {
			http.Error(w, "invalid input", http.StatusBadRequest)
			return
		}
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (h *ContactHandler) List(w http.ResponseWriter, r *http.Request) {
	rows, err := h.Store.List(r.Context())
	if err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	if rows == nil {
		rows = []contacts.Contact{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": rows})
}
