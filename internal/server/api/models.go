package api

import (
	"errors"
	"net/http"

	"github.com/ayusman/kagebunshin/internal/gesture"
	"github.com/ayusman/kagebunshin/internal/store"
	"github.com/ayusman/kagebunshin/internal/training"
)

// ModelsHandler lists trained models, trains new ones and switches the live one.
//
//	GET    /api/models                list models, newest first
//	GET    /api/models/active         the active model
//	POST   /api/models/train          train on the stored samples
//	POST   /api/models/{id}/activate  make a stored model live
//	DELETE /api/models/{id}           delete a model
type ModelsHandler struct {
	store    *store.Store
	training *training.Service
}

// NewModelsHandler creates a ModelsHandler.
func NewModelsHandler(s *store.Store, svc *training.Service) *ModelsHandler {
	return &ModelsHandler{store: s, training: svc}
}

type listModelsResponse struct {
	Models []*store.Model `json:"models"`
}

// ServeHTTP implements the http.Handler interface.
func (h *ModelsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	parts := pathParts(r.URL.Path, "/api/models")

	switch {
	case len(parts) == 0:
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.list(w)

	case len(parts) == 1 && parts[0] == "active":
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.active(w)

	case len(parts) == 1 && parts[0] == "train":
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.train(w, r)

	case len(parts) == 2 && parts[1] == "activate":
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.activate(w, parts[0])

	case len(parts) == 1:
		if r.Method != http.MethodDelete {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.delete(w, parts[0])

	default:
		writeError(w, http.StatusNotFound, "Not found")
	}
}

// list handles GET /api/models
func (h *ModelsHandler) list(w http.ResponseWriter) {
	models, err := h.store.Models().List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list models")
		return
	}
	if models == nil {
		models = []*store.Model{}
	}
	writeJSON(w, http.StatusOK, listModelsResponse{Models: models})
}

// active handles GET /api/models/active
func (h *ModelsHandler) active(w http.ResponseWriter) {
	m, err := h.store.Models().Active()
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "No trained model")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get model")
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// train handles POST /api/models/train
func (h *ModelsHandler) train(w http.ResponseWriter, r *http.Request) {
	m, err := h.training.Train(r.Context())
	if err != nil {
		switch {
		case errors.Is(err, gesture.ErrNotEnoughSamples):
			writeError(w, http.StatusUnprocessableEntity, err.Error())
		case errors.Is(err, training.ErrBusy):
			writeError(w, http.StatusConflict, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, "Training failed")
		}
		return
	}
	writeJSON(w, http.StatusCreated, m)
}

// activate handles POST /api/models/{id}/activate
func (h *ModelsHandler) activate(w http.ResponseWriter, id string) {
	m, err := h.training.Activate(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Model not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to activate model")
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// delete handles DELETE /api/models/{id}
func (h *ModelsHandler) delete(w http.ResponseWriter, id string) {
	if err := h.store.Models().Delete(id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Model not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to delete model")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
