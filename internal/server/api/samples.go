package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/ayusman/kagebunshin/internal/gesture"
	"github.com/ayusman/kagebunshin/internal/store"
)

// SamplesHandler handles the recorded sample set and its dataset file form.
//
//	GET    /api/samples?label=clone_sign  list samples
//	GET    /api/samples/counts            per-label counts
//	DELETE /api/samples[?session_id=...]  delete one run or everything
//	GET    /api/dataset                   export as a dataset document
//	POST   /api/dataset                   import a dataset document
type SamplesHandler struct {
	store *store.Store
}

// NewSamplesHandler creates a new SamplesHandler with the given store.
func NewSamplesHandler(s *store.Store) *SamplesHandler {
	return &SamplesHandler{store: s}
}

type listSamplesResponse struct {
	Samples []store.Sample `json:"samples"`
}

type deleteSamplesResponse struct {
	Deleted int64 `json:"deleted"`
}

type importResponse struct {
	SessionID string         `json:"session_id"`
	Imported  int            `json:"imported"`
	Counts    map[string]int `json:"counts"`
}

// ServeHTTP implements the http.Handler interface.
func (h *SamplesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if strings.HasPrefix(r.URL.Path, "/api/dataset") {
		if len(pathParts(r.URL.Path, "/api/dataset")) != 0 {
			writeError(w, http.StatusNotFound, "Not found")
			return
		}
		h.dataset(w, r)
		return
	}

	parts := pathParts(r.URL.Path, "/api/samples")
	switch {
	case len(parts) == 0:
		switch r.Method {
		case http.MethodGet:
			h.list(w, r)
		case http.MethodDelete:
			h.delete(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	case len(parts) == 1 && parts[0] == "counts":
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.counts(w)
	default:
		writeError(w, http.StatusNotFound, "Not found")
	}
}

// list handles GET /api/samples
func (h *SamplesHandler) list(w http.ResponseWriter, r *http.Request) {
	label := r.URL.Query().Get("label")
	if label != "" && !gesture.ValidLabel(label) {
		writeError(w, http.StatusBadRequest, "Invalid label")
		return
	}

	samples, err := h.store.Samples().List(label)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list samples")
		return
	}
	if samples == nil {
		samples = []store.Sample{}
	}

	writeJSON(w, http.StatusOK, listSamplesResponse{Samples: samples})
}

// counts handles GET /api/samples/counts
func (h *SamplesHandler) counts(w http.ResponseWriter) {
	counts, err := h.store.Samples().Counts()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to count samples")
		return
	}
	writeJSON(w, http.StatusOK, counts)
}

// delete handles DELETE /api/samples
func (h *SamplesHandler) delete(w http.ResponseWriter, r *http.Request) {
	var (
		n   int64
		err error
	)
	if id := r.URL.Query().Get("session_id"); id != "" {
		n, err = h.store.Samples().DeleteBySession(id)
	} else {
		n, err = h.store.Samples().DeleteAll()
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to delete samples")
		return
	}
	writeJSON(w, http.StatusOK, deleteSamplesResponse{Deleted: n})
}

// dataset handles GET and POST /api/dataset
func (h *SamplesHandler) dataset(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		ds, err := h.store.Samples().Dataset()
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to load dataset")
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Content-Disposition", `attachment; filename="dataset.json"`)
		ds.Export(w)

	case http.MethodPost:
		ds, err := gesture.ImportDataset(r.Body)
		if err != nil {
			if errors.Is(err, gesture.ErrInputSize) {
				writeError(w, http.StatusBadRequest, err.Error())
				return
			}
			writeError(w, http.StatusBadRequest, "Invalid dataset")
			return
		}

		id := uuid.NewString()
		if err := h.store.Samples().Import(id, ds); err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to import dataset")
			return
		}

		counts, err := h.store.Samples().Counts()
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to count samples")
			return
		}
		writeJSON(w, http.StatusCreated, importResponse{SessionID: id, Imported: ds.Len(), Counts: counts})

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}
