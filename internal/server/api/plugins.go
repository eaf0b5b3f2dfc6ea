package api

import (
	"net/http"

	"github.com/ayusman/gaitgrip/internal/plugin"
)

// PluginLister lists discovered plugins. *plugin.Manager implements it.
type PluginLister interface {
	List() []*plugin.Plugin
	Discover() error
}

// StatsReporter reports dispatcher counters. *plugin.Dispatcher implements it.
type StatsReporter interface {
	Stats() plugin.Stats
}

// PluginHandler lists adapter plugins and rescans the plugin directory.
type PluginHandler struct {
	plugins PluginLister
	stats   StatsReporter
}

// NewPluginHandler creates a PluginHandler. stats may be nil.
func NewPluginHandler(plugins PluginLister, stats StatsReporter) *PluginHandler {
	return &PluginHandler{plugins: plugins, stats: stats}
}

type pluginResponse struct {
	Name        string   `json:"name"`
	Version     string   `json:"version"`
	Description string   `json:"description"`
	Actions     []string `json:"actions"`
	Events      []string `json:"events,omitempty"`
}

type listPluginsResponse struct {
	Plugins []pluginResponse `json:"plugins"`
	Stats   *plugin.Stats    `json:"stats,omitempty"`
}

// ServeHTTP handles GET /api/plugins and POST /api/plugins (rescan).
func (h *PluginHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
	case http.MethodPost:
		if err := h.plugins.Discover(); err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to scan plugins")
			return
		}
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	list := h.plugins.List()
	resp := listPluginsResponse{Plugins: make([]pluginResponse, 0, len(list))}
	for _, p := range list {
		resp.Plugins = append(resp.Plugins, pluginResponse{
			Name:        p.Manifest.Name,
			Version:     p.Manifest.Version,
			Description: p.Manifest.Description,
			Actions:     p.Manifest.Actions,
			Events:      p.Manifest.Events,
		})
	}
	if h.stats != nil {
		st := h.stats.Stats()
		resp.Stats = &st
	}
	writeJSON(w, http.StatusOK, resp)
}
