package pose

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"sync"
)

// Source supplies one pose sample per tick.
type Source interface {
	// Next returns the sample for the current tick.
	// ok is false when the source has nothing to offer yet; the tick is then skipped.
	// Next must not block.
	Next() (s Sample, ok bool)
}

// StreamSource holds the most recent sample pushed by an external producer,
// such as a headset streaming over a websocket.
type StreamSource struct {
	latest Sample
	has    bool
	pushes uint64
	mu     sync.RWMutex
}

// NewStreamSource creates an empty StreamSource.
func NewStreamSource() *StreamSource {
	return &StreamSource{}
}

// Push replaces the current sample.
func (s *StreamSource) Push(sample Sample) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.latest = sample
	s.has = true
	s.pushes++
}

// Next returns the most recently pushed sample. A sample that is not refreshed
// is repeated on every tick.
func (s *StreamSource) Next() (Sample, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest, s.has
}

// Pushes returns how many samples have been pushed so far.
func (s *StreamSource) Pushes() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pushes
}

// Replay plays back a recorded sequence of samples, one per tick.
type Replay struct {
	samples []Sample
	pos     int
	loop    bool
}

// NewReplay creates a Replay over samples. When loop is set the sequence restarts
// after the last sample; otherwise the source reports no sample once exhausted.
func NewReplay(samples []Sample, loop bool) *Replay {
	return &Replay{samples: samples, loop: loop}
}

// Next returns the next recorded sample.
func (r *Replay) Next() (Sample, bool) {
	if len(r.samples) == 0 {
		return Sample{}, false
	}
	if r.pos >= len(r.samples) {
		if !r.loop {
			return Sample{}, false
		}
		r.pos = 0
	}
	s := r.samples[r.pos]
	r.pos++
	return s, true
}

// Done reports whether a non-looping replay has been exhausted.
func (r *Replay) Done() bool {
	return !r.loop && r.pos >= len(r.samples)
}

// ReadRecording parses a JSON-lines recording, one Sample per line.
// Blank lines are skipped.
func ReadRecording(r io.Reader) ([]Sample, error) {
	var samples []Sample
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	line := 0
	for scanner.Scan() {
		line++
		data := scanner.Bytes()
		if len(data) == 0 {
			continue
		}
		var s Sample
		if err := json.Unmarshal(data, &s); err != nil {
			return nil, fmt.Errorf("parse line %d: %w", line, err)
		}
		samples = append(samples, s)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read recording: %w", err)
	}
	return samples, nil
}

// WriteRecording writes samples as JSON lines.
func WriteRecording(w io.Writer, samples []Sample) error {
	enc := json.NewEncoder(w)
	for i, s := range samples {
		if err := enc.Encode(s); err != nil {
			return fmt.Errorf("write sample %d: %w", i, err)
		}
	}
	return nil
}
