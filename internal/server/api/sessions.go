package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/ayusman/gaitgrip/internal/log"
	"github.com/ayusman/gaitgrip/internal/store"
	"github.com/ayusman/gaitgrip/internal/telemetry"
)

// SessionHandler serves recorded sessions and their per-tick rows.
type SessionHandler struct {
	store *store.Store
}

// NewSessionHandler creates a SessionHandler over s.
func NewSessionHandler(s *store.Store) *SessionHandler {
	return &SessionHandler{store: s}
}

// ServeHTTP routes:
//
//	GET    /api/sessions
//	GET    /api/sessions/{id}
//	DELETE /api/sessions/{id}
//	GET    /api/sessions/{id}/walk[?format=csv]
//	GET    /api/sessions/{id}/encumbrance[?format=csv]
func (h *SessionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	parts := splitPath(r.URL.Path, "/api/sessions")

	switch len(parts) {
	case 0:
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.list(w)
	case 1:
		switch r.Method {
		case http.MethodGet:
			h.get(w, parts[0])
		case http.MethodDelete:
			h.delete(w, parts[0])
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	case 2:
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		kind := telemetry.Kind(parts[1])
		if kind != telemetry.KindWalk && kind != telemetry.KindEncumbrance {
			writeError(w, http.StatusNotFound, "Not found")
			return
		}
		h.samples(w, r, parts[0], kind)
	default:
		writeError(w, http.StatusNotFound, "Not found")
	}
}

type sessionResponse struct {
	ID        string `json:"id"`
	Scene     string `json:"scene"`
	SceneNum  int    `json:"scene_num"`
	Iteration int    `json:"iteration"`
	Ticks     int    `json:"ticks"`
	StartedAt string `json:"started_at"`
	EndedAt   string `json:"ended_at,omitempty"`
}

type listSessionsResponse struct {
	Sessions []sessionResponse `json:"sessions"`
}

func toSessionResponse(s *store.Session) sessionResponse {
	resp := sessionResponse{
		ID:        s.ID,
		Scene:     s.Scene,
		SceneNum:  s.SceneNum,
		Iteration: s.Iteration,
		Ticks:     s.Ticks,
		StartedAt: formatTime(s.StartedAt),
	}
	if s.EndedAt != nil {
		resp.EndedAt = formatTime(*s.EndedAt)
	}
	return resp
}

func (h *SessionHandler) list(w http.ResponseWriter) {
	sessions, err := h.store.Sessions().List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list sessions")
		return
	}

	resp := listSessionsResponse{Sessions: make([]sessionResponse, 0, len(sessions))}
	for _, s := range sessions {
		resp.Sessions = append(resp.Sessions, toSessionResponse(s))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *SessionHandler) get(w http.ResponseWriter, id string) {
	sess, err := h.store.Sessions().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Session not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get session")
		return
	}
	writeJSON(w, http.StatusOK, toSessionResponse(sess))
}

func (h *SessionHandler) delete(w http.ResponseWriter, id string) {
	if err := h.store.Sessions().Delete(id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Session not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to delete session")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *SessionHandler) samples(w http.ResponseWriter, r *http.Request, id string, kind telemetry.Kind) {
	if _, err := h.store.Sessions().GetByID(id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Session not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get session")
		return
	}

	if r.URL.Query().Get("format") == "csv" {
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s_%s.csv"`, id, kind))
		if err := telemetry.Export(w, h.store, id, kind); err != nil {
			// The status line is already sent; the client sees a truncated file.
			log.Error("csv export failed", "session", id, "kind", kind, "error", err)
		}
		return
	}

	var rows any
	switch kind {
	case telemetry.KindWalk:
		walk, err := h.store.Samples().WalkSamples(id)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to load samples")
			return
		}
		if walk == nil {
			walk = []store.WalkSample{}
		}
		rows = walk
	default:
		enc, err := h.store.Samples().EncumbranceSamples(id)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to load samples")
			return
		}
		if enc == nil {
			enc = []store.EncumbranceSample{}
		}
		rows = enc
	}
	writeJSON(w, http.StatusOK, map[string]any{"session_id": id, "samples": rows})
}
