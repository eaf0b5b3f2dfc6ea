package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/ayusman/gaitgrip/internal/engine"
	"github.com/ayusman/gaitgrip/internal/store"
)

// HookHandler manages the transition hooks persisted in the store.
type HookHandler struct {
	store *store.Store
}

// NewHookHandler creates a HookHandler over s.
func NewHookHandler(s *store.Store) *HookHandler {
	return &HookHandler{store: s}
}

// ServeHTTP routes /api/hooks and /api/hooks/{id}.
func (h *HookHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	parts := splitPath(r.URL.Path, "/api/hooks")

	switch len(parts) {
	case 0:
		switch r.Method {
		case http.MethodGet:
			h.list(w)
		case http.MethodPost:
			h.create(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	case 1:
		switch r.Method {
		case http.MethodGet:
			h.get(w, parts[0])
		case http.MethodPut:
			h.update(w, r, parts[0])
		case http.MethodDelete:
			h.delete(w, parts[0])
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	default:
		writeError(w, http.StatusNotFound, "Not found")
	}
}

// hookRequest is used for both create and update. Unset fields keep their
// current value on update; Enabled defaults to true on create.
type hookRequest struct {
	Event   string          `json:"event"`
	Plugin  string          `json:"plugin"`
	Action  string          `json:"action"`
	Config  json.RawMessage `json:"config"`
	Enabled *bool           `json:"enabled"`
}

type hookResponse struct {
	ID        string          `json:"id"`
	Event     string          `json:"event"`
	Plugin    string          `json:"plugin"`
	Action    string          `json:"action"`
	Config    json.RawMessage `json:"config"`
	Enabled   bool            `json:"enabled"`
	CreatedAt string          `json:"created_at"`
}

type listHooksResponse struct {
	Hooks []hookResponse `json:"hooks"`
}

func toHookResponse(hk *store.Hook) hookResponse {
	cfg := hk.Config
	if len(cfg) == 0 {
		cfg = json.RawMessage("{}")
	}
	return hookResponse{
		ID:        hk.ID,
		Event:     hk.Event,
		Plugin:    hk.PluginName,
		Action:    hk.ActionName,
		Config:    cfg,
		Enabled:   hk.Enabled,
		CreatedAt: formatTime(hk.CreatedAt),
	}
}

// validConfig accepts an absent config or a JSON object.
func validConfig(raw json.RawMessage) bool {
	if len(raw) == 0 {
		return true
	}
	var obj map[string]any
	return json.Unmarshal(raw, &obj) == nil
}

func (h *HookHandler) list(w http.ResponseWriter) {
	hooks, err := h.store.Hooks().List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list hooks")
		return
	}

	resp := listHooksResponse{Hooks: make([]hookResponse, 0, len(hooks))}
	for _, hk := range hooks {
		resp.Hooks = append(resp.Hooks, toHookResponse(hk))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *HookHandler) get(w http.ResponseWriter, id string) {
	hk, err := h.store.Hooks().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Hook not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get hook")
		return
	}
	writeJSON(w, http.StatusOK, toHookResponse(hk))
}

func (h *HookHandler) create(w http.ResponseWriter, r *http.Request) {
	var req hookRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}

	if !engine.EventKind(req.Event).Valid() {
		writeError(w, http.StatusBadRequest, "Unknown event")
		return
	}
	if req.Plugin == "" || req.Action == "" {
		writeError(w, http.StatusBadRequest, "Plugin and action are required")
		return
	}
	if !validConfig(req.Config) {
		writeError(w, http.StatusBadRequest, "Config must be a JSON object")
		return
	}

	hk := &store.Hook{
		ID:         uuid.New().String(),
		Event:      req.Event,
		PluginName: req.Plugin,
		ActionName: req.Action,
		Config:     req.Config,
		Enabled:    req.Enabled == nil || *req.Enabled,
	}
	if err := h.store.Hooks().Create(hk); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create hook")
		return
	}

	writeJSON(w, http.StatusCreated, toHookResponse(hk))
}

func (h *HookHandler) update(w http.ResponseWriter, r *http.Request, id string) {
	hk, err := h.store.Hooks().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Hook not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get hook")
		return
	}

	var req hookRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}

	if req.Event != "" {
		if !engine.EventKind(req.Event).Valid() {
			writeError(w, http.StatusBadRequest, "Unknown event")
			return
		}
		hk.Event = req.Event
	}
	if req.Plugin != "" {
		hk.PluginName = req.Plugin
	}
	if req.Action != "" {
		hk.ActionName = req.Action
	}
	if len(req.Config) > 0 {
		if !validConfig(req.Config) {
			writeError(w, http.StatusBadRequest, "Config must be a JSON object")
			return
		}
		hk.Config = req.Config
	}
	if req.Enabled != nil {
		hk.Enabled = *req.Enabled
	}

	if err := h.store.Hooks().Update(hk); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to update hook")
		return
	}
	writeJSON(w, http.StatusOK, toHookResponse(hk))
}

func (h *HookHandler) delete(w http.ResponseWriter, id string) {
	if err := h.store.Hooks().Delete(id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Hook not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to delete hook")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
