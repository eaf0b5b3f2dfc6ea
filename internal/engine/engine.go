// Package engine runs the locomotion and encumbrance classifiers once per tick
// and publishes their combined output.
package engine

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ayusman/gaitgrip/internal/encumbrance"
	"github.com/ayusman/gaitgrip/internal/locomotion"
	"github.com/ayusman/gaitgrip/internal/pose"
)

// DefaultTickInterval matches the locomotion buffer cadence.
const DefaultTickInterval = 50 * time.Millisecond

// ErrNoSample is returned by Step when the source has nothing for this tick.
var ErrNoSample = errors.New("no pose sample")

// Config holds the classifier settings and tick timing.
type Config struct {
	Locomotion  locomotion.Config  `yaml:"locomotion"`
	Encumbrance encumbrance.Config `yaml:"encumbrance"`
	// TickInterval is the period of Run's ticker.
	TickInterval time.Duration `yaml:"tick_interval"`
	// FixedStep feeds TickInterval as dt instead of the measured wall-clock time.
	// Replays and synthetic sources want this.
	FixedStep bool `yaml:"fixed_step"`
}

// DefaultConfig returns the classifier defaults with a 50 ms tick.
func DefaultConfig() Config {
	return Config{
		Locomotion:   locomotion.DefaultConfig(),
		Encumbrance:  encumbrance.DefaultConfig(),
		TickInterval: DefaultTickInterval,
	}
}

// Snapshot is the immutable output of one tick.
type Snapshot struct {
	Seq  uint64    `json:"seq"`
	Time time.Time `json:"time"`
	// DT is the tick length in seconds.
	DT float64 `json:"dt"`

	Locomotion  locomotion.State  `json:"locomotion"`
	Encumbrance encumbrance.State `json:"encumbrance"`

	// Adapt is set while the interface should switch to its hands-busy layout.
	Adapt bool `json:"adapt"`
}

// Sink receives every snapshot with the transitions it caused.
// Publish runs on the tick goroutine and must not block.
type Sink interface {
	Publish(snap Snapshot, events []Event)
}

// SinkFunc adapts a function to a Sink.
type SinkFunc func(snap Snapshot, events []Event)

// Publish calls f.
func (f SinkFunc) Publish(snap Snapshot, events []Event) {
	f(snap, events)
}

// Engine owns both classifiers and enforces their order within a tick.
type Engine struct {
	config Config
	source pose.Source
	loco   *locomotion.Classifier
	enc    *encumbrance.Classifier
	now    func() time.Time

	// tick is held for the whole of a step so classifier state is never shared.
	tick sync.Mutex

	mu     sync.RWMutex
	latest Snapshot
	sinks  []Sink
}

// New creates an Engine reading from source.
func New(config Config, source pose.Source, sinks ...Sink) (*Engine, error) {
	if source == nil {
		return nil, errors.New("engine: nil pose source")
	}
	if config.TickInterval <= 0 {
		config.TickInterval = DefaultTickInterval
	}

	loco, err := locomotion.New(config.Locomotion)
	if err != nil {
		return nil, fmt.Errorf("locomotion classifier: %w", err)
	}
	enc, err := encumbrance.New(config.Encumbrance)
	if err != nil {
		return nil, fmt.Errorf("encumbrance classifier: %w", err)
	}

	return &Engine{
		config: config,
		source: source,
		loco:   loco,
		enc:    enc,
		now:    time.Now,
		sinks:  sinks,
	}, nil
}

// Config returns the engine configuration.
func (e *Engine) Config() Config {
	return e.config
}

// AddSink registers s for all following ticks.
func (e *Engine) AddSink(s Sink) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sinks = append(e.sinks, s)
}

// Latest returns the most recent snapshot. It is safe to call from any goroutine.
func (e *Engine) Latest() Snapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.latest
}

// Step pulls one sample from the source and processes it.
// It returns ErrNoSample, and the previous snapshot, when the source is empty.
func (e *Engine) Step(dt float64) (Snapshot, error) {
	sample, ok := e.source.Next()
	if !ok {
		return e.Latest(), ErrNoSample
	}
	return e.Process(dt, sample)
}

// Process runs one tick on sample: locomotion first, then encumbrance gated by
// the walking state of the same tick.
func (e *Engine) Process(dt float64, sample pose.Sample) (Snapshot, error) {
	e.tick.Lock()
	defer e.tick.Unlock()

	loco := e.loco.Step(dt, sample.Head)
	enc, err := e.enc.Step(dt, sample.Hand, loco.IsWalking)
	if err != nil {
		return e.Latest(), fmt.Errorf("encumbrance step: %w", err)
	}

	e.mu.Lock()
	prev := e.latest
	snap := Snapshot{
		Seq:         prev.Seq + 1,
		Time:        e.now(),
		DT:          dt,
		Locomotion:  loco,
		Encumbrance: enc,
		Adapt:       loco.IsWalking || enc.IsEncumbered,
	}
	e.latest = snap
	sinks := make([]Sink, len(e.sinks))
	copy(sinks, e.sinks)
	e.mu.Unlock()

	events := Transitions(prev, snap)
	for _, s := range sinks {
		s.Publish(snap, events)
	}
	return snap, nil
}

// Reset returns both classifiers to their initial state and clears the
// latest snapshot. The sequence number keeps counting.
func (e *Engine) Reset() {
	e.tick.Lock()
	defer e.tick.Unlock()

	e.loco.Reset()
	e.enc.Reset()

	e.mu.Lock()
	e.latest = Snapshot{Seq: e.latest.Seq, Time: e.now()}
	e.mu.Unlock()
}
