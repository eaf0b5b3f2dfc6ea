// Package app assembles the gaitgrip runtime: pose source, classifier engine,
// telemetry recorder, plugin dispatch and the HTTP server.
package app

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"golang.org/x/sync/errgroup"

	"github.com/ayusman/gaitgrip/internal/config"
	"github.com/ayusman/gaitgrip/internal/engine"
	"github.com/ayusman/gaitgrip/internal/log"
	"github.com/ayusman/gaitgrip/internal/mqttbridge"
	"github.com/ayusman/gaitgrip/internal/plugin"
	"github.com/ayusman/gaitgrip/internal/pose"
	"github.com/ayusman/gaitgrip/internal/server"
	"github.com/ayusman/gaitgrip/internal/store"
	"github.com/ayusman/gaitgrip/internal/telemetry"
)

// App is the running application. Create it with New, start it with Run and
// release it with Close.
type App struct {
	config     config.Config
	store      *store.Store
	poses      *pose.StreamSource
	engine     *engine.Engine
	recorder   *telemetry.Recorder
	pluginMgr  *plugin.Manager
	dispatcher *plugin.Dispatcher
	bridge     *mqttbridge.Bridge
	server     *server.Server
}

// New opens the store, discovers plugins and wires the engine to its sinks.
// A nil source selects a StreamSource fed by the pose ingest endpoint.
func New(cfg config.Config, source pose.Source) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}

	st, err := store.New(cfg.DBPath())
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	a := &App{
		config:    cfg,
		store:     st,
		recorder:  telemetry.NewRecorder(st),
		pluginMgr: plugin.NewManager(cfg.PluginDir),
	}

	if err := a.pluginMgr.Discover(); err != nil {
		log.Warn("plugin discovery failed", "dir", cfg.PluginDir, "error", err)
	}
	a.dispatcher = plugin.NewDispatcher(
		a.pluginMgr,
		plugin.NewExecutor(cfg.PluginTimeout),
		plugin.DefaultQueueSize,
		plugin.StaticBindings(cfg.Hooks),
		plugin.StoreBindings{Hooks: st.Hooks()},
	)

	if source == nil {
		a.poses = pose.NewStreamSource()
		source = a.poses
	}

	a.engine, err = engine.New(cfg.Engine, source, a.recorder, a.dispatcher)
	if err != nil {
		st.Close()
		return nil, err
	}

	if cfg.MQTT.Enabled() {
		a.bridge = mqttbridge.New(cfg.MQTT, a.poses, cfg.Engine.Encumbrance.Topology)
		a.engine.AddSink(a.bridge)
	}

	srvCfg := server.Config{
		StaticDir:   cfg.StaticDir,
		Store:       st,
		State:       a.engine,
		Topology:    cfg.Engine.Encumbrance.Topology,
		Recorder:    a.recorder,
		Plugins:     a.pluginMgr,
		PluginStats: a.dispatcher,
		Poses:       a.poses,
	}
	a.server = server.New(srvCfg)

	log.Info("app initialized",
		"db", st.Path(),
		"plugins", len(a.pluginMgr.List()),
		"hooks", len(cfg.Hooks),
		"stream", a.poses != nil,
		"mqtt", cfg.MQTT.Enabled(),
	)
	return a, nil
}

// Run starts the engine, recorder flush loop, plugin dispatcher, MQTT bridge
// and HTTP server, and blocks until ctx is cancelled or one of them fails.
// The engine stopping at the end of a replay leaves the rest running.
// An unreachable broker is logged and the bridge stays off.
func (a *App) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	if a.bridge != nil {
		if err := a.bridge.Connect(); err != nil {
			log.Warn("mqtt bridge disabled", "error", err)
		} else {
			g.Go(func() error {
				return a.bridge.Run(ctx)
			})
		}
	}

	g.Go(func() error {
		return a.engine.Run(ctx)
	})
	g.Go(func() error {
		return a.recorder.Run(ctx, telemetry.DefaultFlushInterval)
	})
	g.Go(func() error {
		return a.dispatcher.Run(ctx)
	})
	g.Go(func() error {
		return a.server.ListenAndServe(ctx, a.config.Addr)
	})

	return g.Wait()
}

// AddSink registers an extra engine sink, such as the tray.
func (a *App) AddSink(s engine.Sink) {
	a.engine.AddSink(s)
}

// Engine returns the classifier engine.
func (a *App) Engine() *engine.Engine {
	return a.engine
}

// Store returns the telemetry store.
func (a *App) Store() *store.Store {
	return a.store
}

// Recorder returns the telemetry recorder.
func (a *App) Recorder() *telemetry.Recorder {
	return a.recorder
}

// Dispatcher returns the plugin dispatcher.
func (a *App) Dispatcher() *plugin.Dispatcher {
	return a.dispatcher
}

// Bridge returns the MQTT bridge, or nil when no broker is configured.
func (a *App) Bridge() *mqttbridge.Bridge {
	return a.bridge
}

// Handler returns the HTTP handler without starting a listener.
func (a *App) Handler() http.Handler {
	return a.server
}

// Close releases the store. Call it after Run has returned.
func (a *App) Close() error {
	a.server.Close()
	return a.store.Close()
}
