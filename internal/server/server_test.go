package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/ayusman/gaitgrip/internal/engine"
	"github.com/ayusman/gaitgrip/internal/pose"
)

// fakeState is a StateProvider with a settable snapshot.
type fakeState struct {
	mu   sync.Mutex
	snap engine.Snapshot
}

func (f *fakeState) Latest() engine.Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snap
}

func (f *fakeState) set(snap engine.Snapshot) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.snap = snap
}

func newTestServer(t *testing.T, cfg Config) *Server {
	t.Helper()
	s := New(cfg)
	t.Cleanup(s.Close)
	return s
}

func TestServer_Health(t *testing.T) {
	s := newTestServer(t, Config{})

	t.Run("returns 200 with JSON response", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
		rec := httptest.NewRecorder()

		s.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Errorf("expected status %d, got %d", http.StatusOK, rec.Code)
		}

		contentType := rec.Header().Get("Content-Type")
		if contentType != "application/json" {
			t.Errorf("expected Content-Type application/json, got %s", contentType)
		}

		var response map[string]any
		if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}

		if response["status"] != "ok" {
			t.Errorf("expected status 'ok', got %v", response["status"])
		}

		if _, exists := response["uptime"]; !exists {
			t.Error("expected 'uptime' field in response")
		}
		if _, exists := response["ticks"]; exists {
			t.Error("unexpected 'ticks' field without a state provider")
		}
	})

	t.Run("only allows GET method", func(t *testing.T) {
		methods := []string{http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodPatch}

		for _, method := range methods {
			req := httptest.NewRequest(method, "/api/health", nil)
			rec := httptest.NewRecorder()

			s.ServeHTTP(rec, req)

			if rec.Code != http.StatusMethodNotAllowed {
				t.Errorf("method %s: expected status %d, got %d", method, http.StatusMethodNotAllowed, rec.Code)
			}
		}
	})
}

func TestServer_HealthReportsTicks(t *testing.T) {
	state := &fakeState{}
	state.set(engine.Snapshot{Seq: 42})
	poses := pose.NewStreamSource()
	poses.Push(pose.Sample{})
	s := newTestServer(t, Config{State: state, Poses: poses})

	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	var response struct {
		Ticks       uint64 `json:"ticks"`
		PoseSamples uint64 `json:"pose_samples"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if response.Ticks != 42 || response.PoseSamples != 1 {
		t.Errorf("health = %+v", response)
	}
}

func TestServer_State(t *testing.T) {
	state := &fakeState{}
	state.snap.Seq = 7
	state.snap.Adapt = true
	state.snap.Locomotion.IsWalking = true
	s := newTestServer(t, Config{State: state})

	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/state", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var got engine.Snapshot
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("failed to decode snapshot: %v", err)
	}
	if got.Seq != 7 || !got.Adapt || !got.Locomotion.IsWalking {
		t.Errorf("snapshot = %+v", got)
	}

	rec = httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/state", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("POST status = %d", rec.Code)
	}
}

func TestServer_PoseIngest(t *testing.T) {
	poses := pose.NewStreamSource()
	s := newTestServer(t, Config{Poses: poses})

	encode := func(sample pose.Sample) *bytes.Buffer {
		var buf bytes.Buffer
		if err := json.NewEncoder(&buf).Encode(sample); err != nil {
			t.Fatal(err)
		}
		return &buf
	}

	incomplete := pose.OpenHand()
	incomplete.Joints = incomplete.Joints[:3]

	tests := []struct {
		name   string
		method string
		body   *bytes.Buffer
		want   int
	}{
		{"full hand", http.MethodPost, encode(pose.Sample{Head: pose.Vec3{Y: 1.6}, Hand: pose.GripHand()}), http.StatusAccepted},
		{"untracked hand", http.MethodPost, encode(pose.Sample{Head: pose.Vec3{Y: 1.6}}), http.StatusAccepted},
		{"missing joints", http.MethodPost, encode(pose.Sample{Hand: incomplete}), http.StatusUnprocessableEntity},
		{"invalid json", http.MethodPost, bytes.NewBufferString(`{"head":`), http.StatusBadRequest},
		{"oversized body", http.MethodPost, bytes.NewBufferString(`{"pad":"` + strings.Repeat("x", maxPoseBytes) + `"}`), http.StatusRequestEntityTooLarge},
		{"plain get", http.MethodGet, &bytes.Buffer{}, http.StatusMethodNotAllowed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			s.ServeHTTP(rec, httptest.NewRequest(tt.method, "/api/pose", tt.body))
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d: %s", rec.Code, tt.want, rec.Body.String())
			}
		})
	}

	if poses.Pushes() != 2 {
		t.Errorf("Pushes() = %d, want 2", poses.Pushes())
	}
	latest, ok := poses.Next()
	if !ok || latest.Head.Y != 1.6 || len(latest.Hand.Joints) != 0 {
		t.Errorf("latest sample = %+v, %v", latest.Head, ok)
	}
}

func TestServer_NotFound(t *testing.T) {
	s := newTestServer(t, Config{})

	for _, path := range []string{"/api/nonexistent", "/api/state", "/api/sessions", "/api/pose"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()

		s.ServeHTTP(rec, req)

		if rec.Code != http.StatusNotFound {
			t.Errorf("%s: expected status %d, got %d", path, http.StatusNotFound, rec.Code)
		}
	}
}

func TestServer_StaticFiles(t *testing.T) {
	tmpDir := t.TempDir()

	// Create a test HTML file
	testContent := "<html><body>Hello, World!</body></html>"
	if err := os.WriteFile(filepath.Join(tmpDir, "index.html"), []byte(testContent), 0644); err != nil {
		t.Fatalf("failed to create test file: %v", err)
	}

	// Create a CSS file for testing direct file access
	cssContent := "body { color: red; }"
	if err := os.WriteFile(filepath.Join(tmpDir, "style.css"), []byte(cssContent), 0644); err != nil {
		t.Fatalf("failed to create test CSS file: %v", err)
	}

	s := newTestServer(t, Config{StaticDir: tmpDir})

	t.Run("serves index.html at root path", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()

		s.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Errorf("expected status %d, got %d", http.StatusOK, rec.Code)
		}

		if rec.Body.String() != testContent {
			t.Errorf("expected body %q, got %q", testContent, rec.Body.String())
		}
	})

	t.Run("serves static files from configured directory", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/style.css", nil)
		rec := httptest.NewRecorder()

		s.ServeHTTP(rec, req)

		if rec.Body.String() != cssContent {
			t.Errorf("expected body %q, got %q", cssContent, rec.Body.String())
		}
	})

	t.Run("returns 404 for non-existent static files", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/nonexistent.html", nil)
		rec := httptest.NewRecorder()

		s.ServeHTTP(rec, req)

		if rec.Code != http.StatusNotFound {
			t.Errorf("expected status %d, got %d", http.StatusNotFound, rec.Code)
		}
	})
}

func TestNew(t *testing.T) {
	t.Run("creates server with config", func(t *testing.T) {
		cfg := Config{StaticDir: "/some/path"}
		s := newTestServer(t, cfg)

		if s.config.StaticDir != cfg.StaticDir {
			t.Errorf("expected StaticDir %s, got %s", cfg.StaticDir, s.config.StaticDir)
		}
		if s.state != nil {
			t.Error("state broadcaster started without a state provider")
		}
	})

	t.Run("server implements http.Handler", func(t *testing.T) {
		var _ http.Handler = newTestServer(t, Config{})
	})

	t.Run("close is idempotent", func(t *testing.T) {
		s := New(Config{State: &fakeState{}})
		s.Close()
		s.Close()
	})
}
