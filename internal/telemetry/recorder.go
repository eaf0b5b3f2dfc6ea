// Package telemetry records per-tick classifier diagnostics into experiment
// sessions and exports them as CSV.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ayusman/gaitgrip/internal/engine"
	"github.com/ayusman/gaitgrip/internal/log"
	"github.com/ayusman/gaitgrip/internal/store"
)

// DefaultFlushInterval is how often Run writes buffered rows to the store.
const DefaultFlushInterval = time.Second

var (
	// ErrRecording is returned by Start while a session is open.
	ErrRecording = errors.New("already recording")
	// ErrNotRecording is returned by Stop when no session is open.
	ErrNotRecording = errors.New("not recording")
)

// Status describes the recorder at one instant.
type Status struct {
	Recording bool           `json:"recording"`
	Session   *store.Session `json:"session,omitempty"`
	// Ticks counts the rows captured in the open session, flushed or not.
	Ticks int `json:"ticks"`
	// Pending counts rows not yet written to the store.
	Pending int `json:"pending"`
}

// Recorder is an engine.Sink that captures one walk row and one encumbrance
// row per tick while a session is open. Publish only appends to memory; rows
// reach the store on Flush, from Run, and on Stop.
type Recorder struct {
	store *store.Store
	now   func() time.Time
	newID func() string

	mu      sync.Mutex
	session *store.Session
	ticks   int
	walk    []store.WalkSample
	enc     []store.EncumbranceSample

	// flushMu serializes store writes so rows keep their order.
	flushMu sync.Mutex
}

// NewRecorder creates a Recorder persisting into st.
func NewRecorder(st *store.Store) *Recorder {
	return &Recorder{
		store: st,
		now:   time.Now,
		newID: uuid.NewString,
	}
}

// Start opens a session for scene and iteration and persists its header.
func (r *Recorder) Start(scene string, sceneNum, iteration int) (*store.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.session != nil {
		return nil, fmt.Errorf("%w: session %s", ErrRecording, r.session.ID)
	}
	if scene == "" {
		scene = "default"
	}

	sess := &store.Session{
		ID:        r.newID(),
		Scene:     scene,
		SceneNum:  sceneNum,
		Iteration: iteration,
		StartedAt: r.now(),
	}
	if err := r.store.Sessions().Create(sess); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	r.session = sess
	r.ticks = 0
	r.walk = r.walk[:0]
	r.enc = r.enc[:0]

	log.Info("recording started", "session", sess.ID, "scene", scene, "iteration", iteration)
	copied := *sess
	return &copied, nil
}

// Stop flushes the remaining rows, closes the session and returns it.
// If either store write fails the session stays open with its rows buffered,
// so Stop can be retried.
func (r *Recorder) Stop() (*store.Session, error) {
	r.flushMu.Lock()
	defer r.flushMu.Unlock()

	r.mu.Lock()
	sess := r.session
	if sess == nil {
		r.mu.Unlock()
		return nil, ErrNotRecording
	}
	walk, enc := r.takeLocked()
	ticks := r.ticks
	r.mu.Unlock()

	if err := r.store.Samples().Append(sess.ID, walk, enc); err != nil {
		r.restore(walk, enc)
		return nil, fmt.Errorf("flush session %s: %w", sess.ID, err)
	}

	ended := r.now()
	if err := r.store.Sessions().Finish(sess.ID, ended, ticks); err != nil {
		return nil, fmt.Errorf("finish session %s: %w", sess.ID, err)
	}

	// Rows published while the store was busy came after the stop.
	r.mu.Lock()
	r.session = nil
	r.walk, r.enc = nil, nil
	r.mu.Unlock()

	done := *sess
	done.Ticks = ticks
	done.EndedAt = &ended
	log.Info("recording stopped", "session", sess.ID, "ticks", ticks)
	return &done, nil
}

// Status reports whether a session is open.
func (r *Recorder) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()

	st := Status{Recording: r.session != nil, Ticks: r.ticks, Pending: len(r.walk)}
	if r.session != nil {
		copied := *r.session
		st.Session = &copied
	}
	return st
}

// Publish implements engine.Sink.
func (r *Recorder) Publish(snap engine.Snapshot, _ []engine.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.session == nil {
		return
	}
	r.ticks++
	r.walk = append(r.walk, walkRow(r.ticks, snap))
	r.enc = append(r.enc, encumbranceRow(r.ticks, snap))
}

// Flush writes the buffered rows of the open session to the store.
func (r *Recorder) Flush() error {
	r.flushMu.Lock()
	defer r.flushMu.Unlock()

	r.mu.Lock()
	if r.session == nil || len(r.walk) == 0 {
		r.mu.Unlock()
		return nil
	}
	id := r.session.ID
	walk, enc := r.takeLocked()
	r.mu.Unlock()

	if err := r.store.Samples().Append(id, walk, enc); err != nil {
		r.restore(walk, enc)
		return fmt.Errorf("flush session %s: %w", id, err)
	}
	return nil
}

// Run flushes every interval until ctx is done. A non-positive interval
// selects DefaultFlushInterval. An open session is stopped on the way out.
func (r *Recorder) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = DefaultFlushInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if _, err := r.Stop(); err != nil && !errors.Is(err, ErrNotRecording) {
				return err
			}
			return nil
		case <-ticker.C:
			if err := r.Flush(); err != nil {
				log.Error("telemetry flush failed", "error", err)
			}
		}
	}
}

// takeLocked hands over the buffered rows. r.mu must be held.
func (r *Recorder) takeLocked() ([]store.WalkSample, []store.EncumbranceSample) {
	walk, enc := r.walk, r.enc
	r.walk, r.enc = nil, nil
	return walk, enc
}

// restore puts rows that failed to reach the store back in front of the
// buffer. r.flushMu must be held.
func (r *Recorder) restore(walk []store.WalkSample, enc []store.EncumbranceSample) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.walk = append(walk, r.walk...)
	r.enc = append(enc, r.enc...)
}

func walkRow(seq int, snap engine.Snapshot) store.WalkSample {
	l := snap.Locomotion
	return store.WalkSample{
		Seq:                seq,
		RecordedAt:         snap.Time,
		SmoothedHorizontal: l.SmoothedHorizontal,
		SmoothedVertical:   l.SmoothedVertical,
		DirectionStability: l.DirectionStability,
		VerticalPattern:    l.VerticalPatternScore,
		HorizontalPattern:  l.HorizontalPatternScore,
		AvgSpeed:           l.AverageHorizontalSpeed,
		IsWalking:          l.IsWalking,
		RawMoveX:           l.RawFrameMovement.X,
		RawMoveY:           l.RawFrameMovement.Y,
		RawMoveZ:           l.RawFrameMovement.Z,
	}
}

func encumbranceRow(seq int, snap engine.Snapshot) store.EncumbranceSample {
	e := snap.Encumbrance
	return store.EncumbranceSample{
		Seq:         seq,
		RecordedAt:  snap.Time,
		CurlIndex:   e.CurlIndex(),
		CurlMiddle:  e.CurlMiddle(),
		CurlRing:    e.CurlRing(),
		CurlPinky:   e.CurlPinky(),
		AvgGripCurl: e.AvgGripCurl,
		PinchIndex:  e.PinchIndex(),
		PinchMiddle: e.PinchMiddle(),
		PinchRing:   e.PinchRing(),
		PinchPinky:  e.PinchPinky(),
		AvgPinch:    e.AvgPinch,
		WristX:      e.WristRotation.X,
		WristY:      e.WristRotation.Y,
		WristZ:      e.WristRotation.Z,
		DeltaX:      e.DeltaX,
		DeltaY:      e.DeltaY,
		DeltaZ:      e.DeltaZ,
		WristStable: e.WristStable,
		GripHeld:    e.GripHeld,
		PinchHeld:   e.PinchHeld,
		Encumbered:  e.IsEncumbered,

		WristStableTime: e.WristStableTime,
	}
}
