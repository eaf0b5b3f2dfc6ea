// Package config loads the gaitgrip configuration from a YAML file and the
// environment. Values are layered: defaults, then the file, then environment
// variables, then command-line flags applied by the caller.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ayusman/gaitgrip/internal/engine"
	"github.com/ayusman/gaitgrip/internal/mqttbridge"
	"github.com/ayusman/gaitgrip/internal/plugin"
)

// Environment variables read by ApplyEnv.
const (
	EnvAddr      = "GAITGRIP_ADDR"
	EnvDataDir   = "GAITGRIP_DATA_DIR"
	EnvLogLevel  = "GAITGRIP_LOG_LEVEL"
	EnvPluginDir = "GAITGRIP_PLUGIN_DIR"

	EnvMQTTBroker   = "GAITGRIP_MQTT_BROKER"
	EnvMQTTUsername = "GAITGRIP_MQTT_USERNAME"
	EnvMQTTPassword = "GAITGRIP_MQTT_PASSWORD"
)

// Defaults.
const (
	DefaultAddr     = ":8080"
	DefaultLogLevel = "info"
	dbFile          = "gaitgrip.db"
	configFile      = "config.yaml"
)

// ErrInvalid is returned by Validate.
var ErrInvalid = errors.New("invalid config")

// Config is the full runtime configuration of the gaitgrip binary.
type Config struct {
	Engine engine.Config `yaml:"engine"`

	// Addr is the HTTP listen address.
	Addr      string `yaml:"addr"`
	StaticDir string `yaml:"static_dir"`
	// DataDir holds the SQLite database.
	DataDir string `yaml:"data_dir"`

	PluginDir     string           `yaml:"plugin_dir"`
	PluginTimeout time.Duration    `yaml:"plugin_timeout"`
	Hooks         []plugin.Binding `yaml:"hooks"`

	// MQTT is optional; the bridge starts only when a broker is set.
	MQTT mqttbridge.Config `yaml:"mqtt"`

	LogLevel string `yaml:"log_level"`
	Tray     bool   `yaml:"tray"`
}

// HomeDir returns ~/.gaitgrip, or ".gaitgrip" when the home directory is unknown.
func HomeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".gaitgrip"
	}
	return filepath.Join(home, ".gaitgrip")
}

// DefaultPath is the config file read when no path is given.
func DefaultPath() string {
	return filepath.Join(HomeDir(), configFile)
}

// Default returns the built-in configuration.
func Default() Config {
	home := HomeDir()
	return Config{
		Engine:        engine.DefaultConfig(),
		Addr:          DefaultAddr,
		DataDir:       home,
		PluginDir:     filepath.Join(home, "plugins"),
		PluginTimeout: plugin.DefaultTimeout,
		LogLevel:      DefaultLogLevel,
	}
}

// Load reads the YAML file at path over the defaults and applies the
// environment. An empty path reads DefaultPath if it exists; an explicit path
// that does not exist is an error.
func Load(path string) (Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
	default:
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	cfg.ApplyEnv(os.LookupEnv)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ApplyEnv overrides fields from the GAITGRIP_* variables found by lookup.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	if v, ok := lookup(EnvAddr); ok && v != "" {
		c.Addr = v
	}
	if v, ok := lookup(EnvDataDir); ok && v != "" {
		c.DataDir = v
	}
	if v, ok := lookup(EnvLogLevel); ok && v != "" {
		c.LogLevel = v
	}
	if v, ok := lookup(EnvPluginDir); ok && v != "" {
		c.PluginDir = v
	}
	if v, ok := lookup(EnvMQTTBroker); ok && v != "" {
		c.MQTT.Broker = v
	}
	if v, ok := lookup(EnvMQTTUsername); ok && v != "" {
		c.MQTT.Username = v
	}
	if v, ok := lookup(EnvMQTTPassword); ok {
		c.MQTT.Password = v
	}
}

// Validate checks the classifier settings and the fields the binary needs.
func (c Config) Validate() error {
	if err := c.Engine.Locomotion.Validate(); err != nil {
		return fmt.Errorf("%w: engine.locomotion: %w", ErrInvalid, err)
	}
	if err := c.Engine.Encumbrance.Validate(); err != nil {
		return fmt.Errorf("%w: engine.encumbrance: %w", ErrInvalid, err)
	}
	if c.Engine.TickInterval <= 0 {
		return fmt.Errorf("%w: engine.tick_interval must be positive", ErrInvalid)
	}
	if c.Addr == "" {
		return fmt.Errorf("%w: addr must not be empty", ErrInvalid)
	}
	if c.DataDir == "" {
		return fmt.Errorf("%w: data_dir must not be empty", ErrInvalid)
	}
	if c.MQTT.Enabled() {
		u, err := url.Parse(c.MQTT.Broker)
		if err != nil || u.Host == "" {
			return fmt.Errorf("%w: mqtt.broker %q is not a broker URL", ErrInvalid, c.MQTT.Broker)
		}
	}
	for i, h := range c.Hooks {
		if !engine.EventKind(h.Event).Valid() {
			return fmt.Errorf("%w: hooks[%d] has unknown event %q", ErrInvalid, i, h.Event)
		}
		if h.Plugin == "" || h.Action == "" {
			return fmt.Errorf("%w: hooks[%d] needs plugin and action", ErrInvalid, i)
		}
	}
	return nil
}

// DBPath returns the SQLite database path inside DataDir.
func (c Config) DBPath() string {
	return filepath.Join(c.DataDir, dbFile)
}
