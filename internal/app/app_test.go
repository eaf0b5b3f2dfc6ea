package app

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ayusman/gaitgrip/internal/config"
	"github.com/ayusman/gaitgrip/internal/pose"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Addr = "127.0.0.1:0"
	cfg.DataDir = filepath.Join(t.TempDir(), "data")
	cfg.PluginDir = filepath.Join(t.TempDir(), "plugins")
	cfg.Engine.TickInterval = 2 * time.Millisecond
	return cfg
}

func TestOpenSource(t *testing.T) {
	t.Run("stream", func(t *testing.T) {
		cfg := testConfig(t)
		src, err := OpenSource(&cfg, SourceStream, "", false)
		if err != nil || src != nil {
			t.Fatalf("OpenSource() = %v, %v; want nil, nil", src, err)
		}
		if cfg.Engine.FixedStep {
			t.Error("stream source should keep wall-clock ticking")
		}
	})

	t.Run("synthetic", func(t *testing.T) {
		cfg := testConfig(t)
		src, err := OpenSource(&cfg, SourceSynthetic, "", false)
		if err != nil {
			t.Fatal(err)
		}
		if _, ok := src.(*pose.Synthetic); !ok {
			t.Fatalf("source = %T", src)
		}
		if !cfg.Engine.FixedStep {
			t.Error("synthetic source should switch to fixed-step ticking")
		}
	})

	t.Run("replay", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "poses.jsonl")
		f, err := os.Create(path)
		if err != nil {
			t.Fatal(err)
		}
		samples := []pose.Sample{{Hand: pose.OpenHand()}, {Hand: pose.GripHand()}}
		if err := pose.WriteRecording(f, samples); err != nil {
			t.Fatal(err)
		}
		f.Close()

		cfg := testConfig(t)
		src, err := OpenSource(&cfg, SourceReplay, path, false)
		if err != nil {
			t.Fatal(err)
		}
		replay, ok := src.(*pose.Replay)
		if !ok {
			t.Fatalf("source = %T", src)
		}
		for range samples {
			if _, ok := replay.Next(); !ok {
				t.Fatal("replay ended early")
			}
		}
		if !replay.Done() {
			t.Error("replay should be done after both samples")
		}
	})

	tests := []struct {
		name string
		mode SourceMode
		path string
	}{
		{"replay without path", SourceReplay, ""},
		{"replay missing file", SourceReplay, "/path/that/does/not/exist.jsonl"},
		{"unknown mode", SourceMode("camera"), ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(t)
			if _, err := OpenSource(&cfg, tt.mode, tt.path, false); err == nil {
				t.Fatal("expected error")
			}
		})
	}

	cfg := testConfig(t)
	if _, err := OpenSource(&cfg, "camera", "", false); !errors.Is(err, ErrUnknownSource) {
		t.Errorf("expected ErrUnknownSource, got %v", err)
	}
}

func TestNew_InvalidConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.Addr = ""
	if _, err := New(cfg, nil); !errors.Is(err, config.ErrInvalid) {
		t.Fatalf("expected ErrInvalid, got %v", err)
	}
}

func TestApp_StreamSourceServesIngest(t *testing.T) {
	a, err := New(testConfig(t), nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer a.Close()

	ts := httptest.NewServer(a.Handler())
	defer ts.Close()

	resp, err := ts.Client().Get(ts.URL + "/api/health")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("health status = %d", resp.StatusCode)
	}

	// The ingest route only exists for the stream source.
	resp, err = ts.Client().Get(ts.URL + "/api/pose")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("pose status = %d, want 405", resp.StatusCode)
	}
}

func TestApp_RunRecordsSyntheticSession(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	cfg := testConfig(t)
	src, err := OpenSource(&cfg, SourceSynthetic, "", false)
	if err != nil {
		t.Fatal(err)
	}
	a, err := New(cfg, src)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer a.Close()

	sess, err := a.Recorder().Start("synthetic", 1, 1)
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	deadline := time.Now().Add(5 * time.Second)
	for a.Engine().Latest().Seq < 50 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()

	if err := <-done; err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	// Cancelling Run stops the open session and flushes its rows.
	stored, err := a.Store().Sessions().GetByID(sess.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stored.EndedAt == nil || stored.Ticks < 50 {
		t.Fatalf("session = ticks %d ended %v", stored.Ticks, stored.EndedAt)
	}
	walk, err := a.Store().Samples().WalkSamples(sess.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(walk) != stored.Ticks {
		t.Errorf("stored %d walk rows for %d ticks", len(walk), stored.Ticks)
	}
}

func TestApp_UnreachableBrokerKeepsRunning(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping network test")
	}

	cfg := testConfig(t)
	cfg.MQTT.Broker = "tcp://127.0.0.1:1"
	a, err := New(cfg, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer a.Close()
	if a.Bridge() == nil {
		t.Fatal("Bridge() = nil with a broker configured")
	}

	a.poses.Push(pose.Sample{Head: pose.Vec3{Y: 1.6}, Hand: pose.OpenHand()})

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	deadline := time.Now().Add(12 * time.Second)
	for a.Engine().Latest().Seq < 10 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if a.Engine().Latest().Seq < 10 {
		t.Error("engine did not tick with the broker down")
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Run() error = %v", err)
	}
}

func TestApp_NoBrokerNoBridge(t *testing.T) {
	a, err := New(testConfig(t), nil)
	if err != nil {
		t.Fatal(err)
	}
	defer a.Close()
	if a.Bridge() != nil {
		t.Error("Bridge() should be nil without a broker")
	}
}
