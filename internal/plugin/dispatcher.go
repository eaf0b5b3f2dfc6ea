package plugin

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"

	"github.com/ayusman/gaitgrip/internal/engine"
	"github.com/ayusman/gaitgrip/internal/log"
	"github.com/ayusman/gaitgrip/internal/store"
)

// DefaultQueueSize is the number of pending transitions the dispatcher buffers.
const DefaultQueueSize = 64

// Binding ties a transition event to one plugin action.
type Binding struct {
	Event  string         `json:"event" yaml:"event"`
	Plugin string         `json:"plugin" yaml:"plugin"`
	Action string         `json:"action" yaml:"action"`
	Config map[string]any `json:"config,omitempty" yaml:"config,omitempty"`
}

// BindingSource yields the bindings for an event.
type BindingSource interface {
	Bindings(event string) ([]Binding, error)
}

// StaticBindings is a fixed binding list, usually from the config file.
type StaticBindings []Binding

// Bindings returns the entries for event in list order.
func (s StaticBindings) Bindings(event string) ([]Binding, error) {
	var out []Binding
	for _, b := range s {
		if b.Event == event {
			out = append(out, b)
		}
	}
	return out, nil
}

// HookLister is the part of store.HookRepository the dispatcher reads.
type HookLister interface {
	ListEnabledByEvent(event string) ([]*store.Hook, error)
}

// StoreBindings serves the enabled hooks persisted in the store.
type StoreBindings struct {
	Hooks HookLister
}

// Bindings converts the enabled hooks for event into bindings.
func (s StoreBindings) Bindings(event string) ([]Binding, error) {
	hooks, err := s.Hooks.ListEnabledByEvent(event)
	if err != nil {
		return nil, fmt.Errorf("list hooks for %s: %w", event, err)
	}
	out := make([]Binding, 0, len(hooks))
	for _, h := range hooks {
		b := Binding{Event: h.Event, Plugin: h.PluginName, Action: h.ActionName}
		if len(h.Config) > 0 {
			if err := json.Unmarshal(h.Config, &b.Config); err != nil {
				return nil, fmt.Errorf("hook %s config: %w", h.ID, err)
			}
		}
		out = append(out, b)
	}
	return out, nil
}

// Resolver looks up plugins by name. *Manager implements it.
type Resolver interface {
	Get(name string) (*Plugin, error)
}

// Runner executes one plugin request. *Executor implements it.
type Runner interface {
	Execute(ctx context.Context, plugin *Plugin, req *Request) (*Response, error)
}

// Stats counts dispatcher outcomes since it was created.
type Stats struct {
	Dispatched uint64 `json:"dispatched"`
	Failed     uint64 `json:"failed"`
	Dropped    uint64 `json:"dropped"`
}

type job struct {
	event engine.Event
	state json.RawMessage
}

// Dispatcher is an engine.Sink that runs bound plugin actions for every
// transition. Publish only enqueues; Run executes plugins on its own goroutine
// so a slow plugin never stalls the tick loop. When the queue is full the
// transition is dropped and counted.
type Dispatcher struct {
	resolver Resolver
	runner   Runner
	sources  []BindingSource
	queue    chan job

	dispatched atomic.Uint64
	failed     atomic.Uint64
	dropped    atomic.Uint64
}

// NewDispatcher creates a Dispatcher. A non-positive queueSize selects DefaultQueueSize.
func NewDispatcher(resolver Resolver, runner Runner, queueSize int, sources ...BindingSource) *Dispatcher {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	return &Dispatcher{
		resolver: resolver,
		runner:   runner,
		sources:  sources,
		queue:    make(chan job, queueSize),
	}
}

// Publish implements engine.Sink.
func (d *Dispatcher) Publish(snap engine.Snapshot, events []engine.Event) {
	if len(events) == 0 {
		return
	}
	state, err := json.Marshal(snap)
	if err != nil {
		log.Error("failed to encode snapshot for plugins", "seq", snap.Seq, "error", err)
		return
	}
	for _, ev := range events {
		select {
		case d.queue <- job{event: ev, state: state}:
		default:
			d.dropped.Add(1)
			log.Warn("plugin queue full, dropping transition", "event", ev.Kind, "seq", ev.Seq)
		}
	}
}

// Run executes queued transitions until ctx is done.
func (d *Dispatcher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case j := <-d.queue:
			d.handle(ctx, j)
		}
	}
}

// Stats returns the outcome counters.
func (d *Dispatcher) Stats() Stats {
	return Stats{
		Dispatched: d.dispatched.Load(),
		Failed:     d.failed.Load(),
		Dropped:    d.dropped.Load(),
	}
}

func (d *Dispatcher) handle(ctx context.Context, j job) {
	event := string(j.event.Kind)
	for _, src := range d.sources {
		bindings, err := src.Bindings(event)
		if err != nil {
			log.Error("failed to load bindings", "event", event, "error", err)
			continue
		}
		for _, b := range bindings {
			if err := d.run(ctx, b, j); err != nil {
				d.failed.Add(1)
				log.Warn("plugin action failed", "event", event, "plugin", b.Plugin, "action", b.Action, "error", err)
				continue
			}
			d.dispatched.Add(1)
			log.Debug("plugin action done", "event", event, "plugin", b.Plugin, "action", b.Action)
		}
	}
}

func (d *Dispatcher) run(ctx context.Context, b Binding, j job) error {
	p, err := d.resolver.Get(b.Plugin)
	if err != nil {
		return err
	}
	if !p.Manifest.HasAction(b.Action) {
		return fmt.Errorf("plugin %s has no action %q", b.Plugin, b.Action)
	}

	req := &Request{
		Action: b.Action,
		Event:  string(j.event.Kind),
		Seq:    j.event.Seq,
		State:  j.state,
	}
	if b.Config != nil {
		cfg, err := json.Marshal(b.Config)
		if err != nil {
			return fmt.Errorf("encode binding config: %w", err)
		}
		req.Config = cfg
	}

	resp, err := d.runner.Execute(ctx, p, req)
	if err != nil {
		return err
	}
	if !resp.Success {
		return fmt.Errorf("plugin reported failure: %s", resp.Error)
	}
	return nil
}
