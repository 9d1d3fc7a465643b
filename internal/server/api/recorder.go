package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/ayusman/kagebunshin/internal/recorder"
)

// RecorderHandler starts, cancels and reports sample recording runs.
//
//	GET    /api/recorder  current status
//	POST   /api/recorder  {"label": "clone_sign"} starts a countdown
//	DELETE /api/recorder  cancels the running session
type RecorderHandler struct {
	recorder *recorder.Recorder
	now      func() time.Time
}

// NewRecorderHandler creates a RecorderHandler.
func NewRecorderHandler(r *recorder.Recorder) *RecorderHandler {
	return &RecorderHandler{recorder: r, now: time.Now}
}

type startRecordingRequest struct {
	Label string `json:"label"`
}

type startRecordingResponse struct {
	SessionID string          `json:"session_id"`
	Status    recorder.Status `json:"status"`
}

// ServeHTTP implements the http.Handler interface.
func (h *RecorderHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if len(pathParts(r.URL.Path, "/api/recorder")) != 0 {
		writeError(w, http.StatusNotFound, "Not found")
		return
	}

	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, h.recorder.Poll(h.now()))
	case http.MethodPost:
		h.start(w, r)
	case http.MethodDelete:
		h.recorder.Cancel()
		writeJSON(w, http.StatusOK, h.recorder.Poll(h.now()))
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *RecorderHandler) start(w http.ResponseWriter, r *http.Request) {
	var req startRecordingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	now := h.now()
	id, err := h.recorder.Start(req.Label, now)
	if err != nil {
		if errors.Is(err, recorder.ErrUnknownLabel) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to start recording")
		return
	}

	writeJSON(w, http.StatusCreated, startRecordingResponse{
		SessionID: id,
		Status:    h.recorder.Poll(now),
	})
}
