package api

import (
	"errors"
	"net/http"

	"github.com/ayusman/gaitgrip/internal/store"
	"github.com/ayusman/gaitgrip/internal/telemetry"
)

// Recorder is the recording control surface. *telemetry.Recorder implements it.
type Recorder interface {
	Start(scene string, sceneNum, iteration int) (*store.Session, error)
	Stop() (*store.Session, error)
	Status() telemetry.Status
}

// RecordingHandler starts and stops telemetry sessions.
type RecordingHandler struct {
	recorder Recorder
}

// NewRecordingHandler creates a RecordingHandler for rec.
func NewRecordingHandler(rec Recorder) *RecordingHandler {
	return &RecordingHandler{recorder: rec}
}

type startRecordingRequest struct {
	Scene     string `json:"scene"`
	SceneNum  int    `json:"scene_num"`
	Iteration int    `json:"iteration"`
}

type recordingResponse struct {
	Recording bool             `json:"recording"`
	Ticks     int              `json:"ticks"`
	Session   *sessionResponse `json:"session,omitempty"`
}

// ServeHTTP routes GET, POST and DELETE on /api/recording.
func (h *RecordingHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.status(w)
	case http.MethodPost:
		h.start(w, r)
	case http.MethodDelete:
		h.stop(w)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *RecordingHandler) status(w http.ResponseWriter) {
	st := h.recorder.Status()
	resp := recordingResponse{Recording: st.Recording, Ticks: st.Ticks}
	if st.Session != nil {
		sr := toSessionResponse(st.Session)
		resp.Session = &sr
	}
	writeJSON(w, http.StatusOK, resp)
}

// start handles POST /api/recording. An empty body starts the default scene.
func (h *RecordingHandler) start(w http.ResponseWriter, r *http.Request) {
	var req startRecordingRequest
	if !decodeJSON(w, r, &req, true) {
		return
	}
	if req.SceneNum < 0 || req.Iteration < 0 {
		writeError(w, http.StatusBadRequest, "scene_num and iteration must not be negative")
		return
	}

	sess, err := h.recorder.Start(req.Scene, req.SceneNum, req.Iteration)
	if err != nil {
		if errors.Is(err, telemetry.ErrRecording) {
			writeError(w, http.StatusConflict, "Already recording")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to start recording")
		return
	}

	sr := toSessionResponse(sess)
	writeJSON(w, http.StatusCreated, recordingResponse{Recording: true, Session: &sr})
}

func (h *RecordingHandler) stop(w http.ResponseWriter) {
	sess, err := h.recorder.Stop()
	if err != nil {
		if errors.Is(err, telemetry.ErrNotRecording) {
			writeError(w, http.StatusConflict, "Not recording")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to stop recording")
		return
	}

	sr := toSessionResponse(sess)
	writeJSON(w, http.StatusOK, recordingResponse{Recording: false, Ticks: sess.Ticks, Session: &sr})
}
