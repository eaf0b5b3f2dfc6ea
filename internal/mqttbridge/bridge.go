// Package mqttbridge connects the engine to an MQTT broker. It publishes
// transitions and state for headset-side adapters and can take pose samples
// from a broker topic instead of the websocket ingest endpoint.
package mqttbridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/ayusman/gaitgrip/internal/engine"
	"github.com/ayusman/gaitgrip/internal/log"
	"github.com/ayusman/gaitgrip/internal/pose"
)

// Defaults.
const (
	DefaultTopicPrefix = "gaitgrip"
	DefaultQueueSize   = 256
	publishTimeout     = 5 * time.Second
	disconnectQuiesce  = 250 // ms
)

// ErrConnect is returned by Connect when the broker cannot be reached.
var ErrConnect = errors.New("mqtt connect failed")

// Config holds the broker settings. The bridge is disabled when Broker is empty.
type Config struct {
	// Broker is a URL such as tcp://localhost:1883 or ssl://host:8883.
	Broker   string `yaml:"broker"`
	ClientID string `yaml:"client_id"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	// TopicPrefix roots the state, event and pose topics.
	TopicPrefix string `yaml:"topic_prefix"`
	// SubscribePose feeds samples from <prefix>/pose into the stream source.
	SubscribePose bool `yaml:"subscribe_pose"`
}

// Enabled reports whether a broker is configured.
func (c Config) Enabled() bool {
	return c.Broker != ""
}

// Topics under the configured prefix.
func (c Config) prefix() string {
	if c.TopicPrefix == "" {
		return DefaultTopicPrefix
	}
	return c.TopicPrefix
}

// StateTopic carries the retained snapshot after each transition.
func (c Config) StateTopic() string { return c.prefix() + "/state" }

// EventTopic carries one message per transition, under its kind.
func (c Config) EventTopic(kind engine.EventKind) string {
	return c.prefix() + "/events/" + string(kind)
}

// PoseTopic is subscribed when SubscribePose is set.
func (c Config) PoseTopic() string { return c.prefix() + "/pose" }

// publisher is the part of mqtt.Client the send loop uses.
type publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

type message struct {
	topic    string
	retained bool
	payload  []byte
}

// Stats counts bridge traffic.
type Stats struct {
	Published uint64 `json:"published"`
	Failed    uint64 `json:"failed"`
	Dropped   uint64 `json:"dropped"`
	Poses     uint64 `json:"poses"`
	Rejected  uint64 `json:"rejected"`
}

// Bridge is an engine.Sink that forwards transitions to the broker.
// Publish only enqueues; Run does the network writes.
type Bridge struct {
	cfg    Config
	client mqtt.Client
	pub    publisher
	poses  *pose.StreamSource
	topo   pose.Topology
	queue  chan message

	published atomic.Uint64
	failed    atomic.Uint64
	dropped   atomic.Uint64
	received  atomic.Uint64
	rejected  atomic.Uint64
}

// New creates a Bridge. poses may be nil, in which case SubscribePose is
// ignored. A nil topo selects pose.DefaultTopology.
func New(cfg Config, poses *pose.StreamSource, topo pose.Topology) *Bridge {
	if topo == nil {
		topo = pose.DefaultTopology()
	}
	return &Bridge{
		cfg:   cfg,
		poses: poses,
		topo:  topo,
		queue: make(chan message, DefaultQueueSize),
	}
}

// Connect dials the broker. Subscriptions are renewed on every reconnect.
func (b *Bridge) Connect() error {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(b.cfg.Broker)

	clientID := b.cfg.ClientID
	if clientID == "" {
		clientID = fmt.Sprintf("gaitgrip-%d", time.Now().Unix())
	}
	opts.SetClientID(clientID)
	if b.cfg.Username != "" {
		opts.SetUsername(b.cfg.Username)
		opts.SetPassword(b.cfg.Password)
	}

	opts.SetKeepAlive(60 * time.Second)
	opts.SetPingTimeout(10 * time.Second)
	opts.SetConnectTimeout(10 * time.Second)
	opts.SetAutoReconnect(true)
	opts.SetMaxReconnectInterval(30 * time.Second)

	opts.OnConnect = b.onConnect
	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		log.Warn("mqtt connection lost", "error", err)
	}

	b.client = mqtt.NewClient(opts)
	b.pub = b.client

	log.Info("mqtt connecting", "broker", b.cfg.Broker, "client_id", clientID)
	token := b.client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		return fmt.Errorf("%w: %s: timeout", ErrConnect, b.cfg.Broker)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrConnect, b.cfg.Broker, err)
	}
	return nil
}

func (b *Bridge) onConnect(client mqtt.Client) {
	log.Info("mqtt connected", "broker", b.cfg.Broker)
	if !b.cfg.SubscribePose || b.poses == nil {
		return
	}

	topic := b.cfg.PoseTopic()
	token := client.Subscribe(topic, 0, b.handlePose)
	if !token.WaitTimeout(5 * time.Second) {
		log.Warn("mqtt subscribe timeout", "topic", topic)
		return
	}
	if err := token.Error(); err != nil {
		log.Warn("mqtt subscribe failed", "topic", topic, "error", err)
		return
	}
	log.Info("mqtt subscribed", "topic", topic)
}

// handlePose decodes one sample and pushes it to the stream source.
func (b *Bridge) handlePose(_ mqtt.Client, msg mqtt.Message) {
	var s pose.Sample
	if err := json.Unmarshal(msg.Payload(), &s); err != nil {
		b.rejected.Add(1)
		return
	}
	if len(s.Hand.Joints) > 0 {
		if _, missing := b.topo.Missing(s.Hand.Joints); missing {
			b.rejected.Add(1)
			return
		}
	}
	b.poses.Push(s)
	b.received.Add(1)
}

// Publish implements engine.Sink. Each transition produces an event message
// and one retained state message per tick.
func (b *Bridge) Publish(snap engine.Snapshot, events []engine.Event) {
	if len(events) == 0 {
		return
	}

	for _, ev := range events {
		payload, err := json.Marshal(ev)
		if err != nil {
			continue
		}
		b.enqueue(message{topic: b.cfg.EventTopic(ev.Kind), payload: payload})
	}

	state, err := json.Marshal(snap)
	if err != nil {
		log.Error("failed to encode snapshot", "seq", snap.Seq, "error", err)
		return
	}
	b.enqueue(message{topic: b.cfg.StateTopic(), retained: true, payload: state})
}

func (b *Bridge) enqueue(m message) {
	select {
	case b.queue <- m:
	default:
		// Full queue: drop rather than stall the tick.
		b.dropped.Add(1)
	}
}

// Run publishes queued messages until ctx is done, then disconnects.
// Connect must have succeeded first.
func (b *Bridge) Run(ctx context.Context) error {
	if b.pub == nil {
		return errors.New("mqttbridge: not connected")
	}
	defer func() {
		if b.client != nil && b.client.IsConnected() {
			b.client.Disconnect(disconnectQuiesce)
			log.Info("mqtt disconnected")
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case m := <-b.queue:
			b.send(m)
		}
	}
}

func (b *Bridge) send(m message) {
	token := b.pub.Publish(m.topic, 0, m.retained, m.payload)
	if !token.WaitTimeout(publishTimeout) {
		b.failed.Add(1)
		log.Warn("mqtt publish timeout", "topic", m.topic)
		return
	}
	if err := token.Error(); err != nil {
		b.failed.Add(1)
		log.Warn("mqtt publish failed", "topic", m.topic, "error", err)
		return
	}
	b.published.Add(1)
}

// Stats returns the traffic counters.
func (b *Bridge) Stats() Stats {
	return Stats{
		Published: b.published.Load(),
		Failed:    b.failed.Load(),
		Dropped:   b.dropped.Load(),
		Poses:     b.received.Load(),
		Rejected:  b.rejected.Load(),
	}
}
