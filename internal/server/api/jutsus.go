package api

import (
	"errors"
	"net/http"

	"github.com/ayusman/kagebunshin/internal/store"
)

// DefaultJutsuLimit caps GET /api/jutsus when no limit is given.
const DefaultJutsuLimit = 50

// JutsusHandler serves the log of triggered sessions.
type JutsusHandler struct {
	store *store.Store
}

// NewJutsusHandler creates a JutsusHandler.
func NewJutsusHandler(s *store.Store) *JutsusHandler {
	return &JutsusHandler{store: s}
}

type listJutsusResponse struct {
	Jutsus []*store.Jutsu `json:"jutsus"`
	Total  int            `json:"total"`
}

// ServeHTTP implements the http.Handler interface.
// Expected paths: /api/jutsus and /api/jutsus/{id}
func (h *JutsusHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	parts := pathParts(r.URL.Path, "/api/jutsus")
	switch len(parts) {
	case 0:
		h.list(w, r)
	case 1:
		h.get(w, parts[0])
	default:
		writeError(w, http.StatusNotFound, "Not found")
	}
}

func (h *JutsusHandler) list(w http.ResponseWriter, r *http.Request) {
	limit, ok := intQuery(r, "limit", DefaultJutsuLimit)
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid limit")
		return
	}

	jutsus, err := h.store.Jutsus().List(limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list jutsus")
		return
	}
	if jutsus == nil {
		jutsus = []*store.Jutsu{}
	}

	total, err := h.store.Jutsus().Count()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to count jutsus")
		return
	}

	writeJSON(w, http.StatusOK, listJutsusResponse{Jutsus: jutsus, Total: total})
}

func (h *JutsusHandler) get(w http.ResponseWriter, id string) {
	j, err := h.store.Jutsus().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Jutsu not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get jutsu")
		return
	}
	writeJSON(w, http.StatusOK, j)
}
