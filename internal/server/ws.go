package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ayusman/gaitgrip/internal/log"
	"github.com/ayusman/gaitgrip/internal/pose"
)

// DefaultStateInterval is the websocket broadcast period (~15 Hz).
const DefaultStateInterval = 66 * time.Millisecond

const writeWait = time.Second

// maxPoseBytes caps one pose sample, over POST or as a websocket message.
const maxPoseBytes = 64 << 10

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

// StateHandler broadcasts classifier snapshots via WebSocket.
type StateHandler struct {
	state    StateProvider
	interval time.Duration
	clients  map[*websocket.Conn]bool
	mu       sync.RWMutex

	done      chan struct{}
	closeOnce sync.Once
}

// NewStateHandler creates a StateHandler and starts its broadcast loop.
// interval <= 0 selects DefaultStateInterval.
func NewStateHandler(state StateProvider, interval time.Duration) *StateHandler {
	if interval <= 0 {
		interval = DefaultStateInterval
	}
	h := &StateHandler{
		state:    state,
		interval: interval,
		clients:  make(map[*websocket.Conn]bool),
		done:     make(chan struct{}),
	}
	go h.broadcast()
	return h
}

// ServeHTTP handles WebSocket upgrade requests.
func (h *StateHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	select {
	case <-h.done:
		http.Error(w, "Server shutting down", http.StatusServiceUnavailable)
		return
	default:
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn("websocket upgrade error", "error", err)
		return
	}
	defer conn.Close()

	h.mu.Lock()
	h.clients[conn] = true
	h.mu.Unlock()
	log.Debug("state client connected", "remote", r.RemoteAddr)

	defer func() {
		h.mu.Lock()
		delete(h.clients, conn)
		h.mu.Unlock()
		log.Debug("state client disconnected", "remote", r.RemoteAddr)
	}()

	// Keep connection alive by reading messages
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}

// Clients returns the number of connected clients.
func (h *StateHandler) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close stops the broadcast loop and disconnects every client.
func (h *StateHandler) Close() {
	h.closeOnce.Do(func() {
		close(h.done)
		h.mu.Lock()
		for conn := range h.clients {
			conn.Close()
		}
		h.mu.Unlock()
	})
}

// broadcast sends each new snapshot to all connected clients. A snapshot is
// sent once; ticks between broadcasts are skipped.
func (h *StateHandler) broadcast() {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	var lastSeq uint64
	for {
		select {
		case <-h.done:
			return
		case <-ticker.C:
		}

		if h.Clients() == 0 {
			continue
		}

		snap := h.state.Latest()
		if snap.Seq == 0 || snap.Seq == lastSeq {
			continue
		}
		lastSeq = snap.Seq

		msg, err := json.Marshal(snap)
		if err != nil {
			log.Error("failed to encode snapshot", "seq", snap.Seq, "error", err)
			continue
		}

		h.mu.RLock()
		var failed []*websocket.Conn
		for conn := range h.clients {
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				failed = append(failed, conn)
			}
		}
		h.mu.RUnlock()

		// Closing unblocks the reader in ServeHTTP, which removes the client.
		for _, conn := range failed {
			conn.Close()
		}
	}
}

// PoseHandler ingests pose samples from an external tracker. A WebSocket
// connection streams one JSON sample per message; a plain POST carries one.
type PoseHandler struct {
	poses *pose.StreamSource
	topo  pose.Topology
}

// NewPoseHandler creates a PoseHandler pushing into poses. A nil topo selects
// pose.DefaultTopology.
func NewPoseHandler(poses *pose.StreamSource, topo pose.Topology) *PoseHandler {
	if topo == nil {
		topo = pose.DefaultTopology()
	}
	return &PoseHandler{poses: poses, topo: topo}
}

var errIncompleteHand = errors.New("incomplete hand skeleton")

// accept checks a sample and pushes it. Skeletons missing a curl joint are
// rejected here so they never reach the classifier.
func (h *PoseHandler) accept(s pose.Sample) error {
	if len(s.Hand.Joints) > 0 {
		if id, missing := h.topo.Missing(s.Hand.Joints); missing {
			return fmt.Errorf("%w: no %s", errIncompleteHand, id)
		}
	}
	h.poses.Push(s)
	return nil
}

// ServeHTTP handles GET (WebSocket) and POST on /api/pose.
func (h *PoseHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.Method == http.MethodGet && websocket.IsWebSocketUpgrade(r):
		h.stream(w, r)
	case r.Method == http.MethodPost:
		var s pose.Sample
		body := http.MaxBytesReader(w, r.Body, maxPoseBytes)
		if err := json.NewDecoder(body).Decode(&s); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				http.Error(w, "Request body too large", http.StatusRequestEntityTooLarge)
				return
			}
			http.Error(w, "Invalid JSON", http.StatusBadRequest)
			return
		}
		if err := h.accept(s); err != nil {
			http.Error(w, err.Error(), http.StatusUnprocessableEntity)
			return
		}
		w.WriteHeader(http.StatusAccepted)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *PoseHandler) stream(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn("websocket upgrade error", "error", err)
		return
	}
	defer conn.Close()
	conn.SetReadLimit(maxPoseBytes)

	log.Info("pose producer connected", "remote", r.RemoteAddr)
	var rejected int
	for {
		var s pose.Sample
		if err := conn.ReadJSON(&s); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Warn("pose stream closed", "remote", r.RemoteAddr, "error", err)
			}
			break
		}
		if err := h.accept(s); err != nil {
			// Log the first rejection and then every hundredth.
			if rejected%100 == 0 {
				log.Warn("pose sample rejected", "remote", r.RemoteAddr, "rejected", rejected+1, "error", err)
			}
			rejected++
		}
	}
	log.Info("pose producer disconnected", "remote", r.RemoteAddr, "rejected", rejected)
}
