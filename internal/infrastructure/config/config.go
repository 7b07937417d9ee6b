package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultFileName is the config file name searched for when no explicit
// path is given.
const DefaultFileName = "scenemix.yaml"

// Config is the root configuration structure for scenemix.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	OBS     OBSConfig     `yaml:"obs"`
	Mixer   MixerConfig   `yaml:"mixer"`
	MQTT    MQTTConfig    `yaml:"mqtt"`
	Logging LoggingConfig `yaml:"logging"`

	// Scenes maps an OBS scene name to the mixer channels that should be
	// open while that scene is live. Channels absent from a scene's list
	// are muted; scenes absent from the map mute everything.
	Scenes map[string][]int `yaml:"scenes"`
}

// OBSConfig contains obs-websocket connection settings.
type OBSConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Password string `yaml:"password"`

	// ConnectTimeout bounds the dial and handshake, in seconds.
	ConnectTimeout int `yaml:"connect_timeout"`

	Reconnect ReconnectConfig `yaml:"reconnect"`
}

// MixerConfig contains console connection settings.
type MixerConfig struct {
	// Kind selects the console model: XR12, XR16, XR18, MR18 or X32.
	Kind string `yaml:"kind"`
	Host string `yaml:"host"`

	// Port is the console's OSC port. Zero selects the kind's default.
	Port int `yaml:"port"`

	// ConnectTimeout bounds the handshake, in seconds.
	ConnectTimeout int `yaml:"connect_timeout"`

	// ProbeInterval is the keepalive/liveness cadence, in seconds.
	ProbeInterval int `yaml:"probe_interval"`

	// CommandTimeout bounds a single mute command, in seconds.
	CommandTimeout int `yaml:"command_timeout"`

	// ResyncOnReconnect replays the active scene as soon as the console
	// comes back, instead of waiting for the next scene change.
	ResyncOnReconnect bool `yaml:"resync_on_reconnect"`

	Reconnect ReconnectConfig `yaml:"reconnect"`
}

// ReconnectConfig contains session retry settings, in seconds.
type ReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
}

// MQTTConfig contains settings for the optional status publisher.
type MQTTConfig struct {
	Enabled     bool             `yaml:"enabled"`
	Broker      MQTTBrokerConfig `yaml:"broker"`
	Auth        MQTTAuthConfig   `yaml:"auth"`
	QoS         int              `yaml:"qos"`
	TopicPrefix string           `yaml:"topic_prefix"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Resolve locates the config file.
//
// When explicit is non-empty it is the answer, existing or not; Load will
// surface the miss. Otherwise the search order is:
//  1. The current working directory
//  2. The directory holding the executable
//  3. The user config directory (e.g. ~/.config/scenemix/)
func Resolve(explicit string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}

	var candidates []string
	candidates = append(candidates, DefaultFileName)
	if exe, err := os.Executable(); err == nil {
		candidates = append(candidates, filepath.Join(filepath.Dir(exe), DefaultFileName))
	}
	if dir, err := os.UserConfigDir(); err == nil {
		candidates = append(candidates, filepath.Join(dir, "scenemix", DefaultFileName))
	}

	for _, path := range candidates {
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path, nil
		}
	}
	return "", fmt.Errorf("no %s found (searched working directory, executable directory, user config directory)", DefaultFileName)
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: SCENEMIX_SECTION_KEY
// For example: SCENEMIX_OBS_PASSWORD, SCENEMIX_MIXER_HOST
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		OBS: OBSConfig{
			Host:           "localhost",
			Port:           4455,
			ConnectTimeout: 10,
			Reconnect: ReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
		},
		Mixer: MixerConfig{
			Kind:           "XR18",
			ConnectTimeout: 10,
			ProbeInterval:  5,
			CommandTimeout: 5,
			Reconnect: ReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "scenemix",
			},
			QoS:         1,
			TopicPrefix: "scenemix",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: SCENEMIX_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// OBS
	if v := os.Getenv("SCENEMIX_OBS_HOST"); v != "" {
		cfg.OBS.Host = v
	}
	if v := os.Getenv("SCENEMIX_OBS_PASSWORD"); v != "" {
		cfg.OBS.Password = v
	}

	// Mixer
	if v := os.Getenv("SCENEMIX_MIXER_HOST"); v != "" {
		cfg.Mixer.Host = v
	}
	if v := os.Getenv("SCENEMIX_MIXER_KIND"); v != "" {
		cfg.Mixer.Kind = v
	}

	// MQTT
	if v := os.Getenv("SCENEMIX_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("SCENEMIX_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("SCENEMIX_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// Logging
	if v := os.Getenv("SCENEMIX_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []string

	// OBS validation
	if c.OBS.Host == "" {
		errs = append(errs, "obs.host is required")
	}
	if c.OBS.Port < 1 || c.OBS.Port > 65535 {
		errs = append(errs, "obs.port must be between 1 and 65535")
	}

	// Mixer validation
	if c.Mixer.Host == "" {
		errs = append(errs, "mixer.host is required")
	}
	if c.Mixer.Kind == "" {
		errs = append(errs, "mixer.kind is required")
	}
	if c.Mixer.Port < 0 || c.Mixer.Port > 65535 {
		errs = append(errs, "mixer.port must be between 0 and 65535")
	}
	if c.Mixer.ProbeInterval < 1 {
		errs = append(errs, "mixer.probe_interval must be at least 1 second")
	}

	// Reconnect validation
	for section, r := range map[string]ReconnectConfig{"obs": c.OBS.Reconnect, "mixer": c.Mixer.Reconnect} {
		if r.InitialDelay < 1 {
			errs = append(errs, fmt.Sprintf("%s.reconnect.initial_delay must be at least 1 second", section))
		}
		if r.MaxDelay < r.InitialDelay {
			errs = append(errs, fmt.Sprintf("%s.reconnect.max_delay must be >= initial_delay", section))
		}
	}

	// Scene validation. Upper bounds depend on the console kind and are
	// checked when the scene map is handed to the bridge.
	for _, scene := range sceneNames(c.Scenes) {
		for _, ch := range c.Scenes[scene] {
			if ch < 1 {
				errs = append(errs, fmt.Sprintf("scenes.%q: channel %d out of range (channels are 1-based)", scene, ch))
			}
		}
	}

	// MQTT validation
	if c.MQTT.Enabled {
		if c.MQTT.Broker.Host == "" {
			errs = append(errs, "mqtt.broker.host is required when mqtt is enabled")
		}
		if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
			errs = append(errs, "mqtt.qos must be 0, 1, or 2")
		}
		if c.MQTT.TopicPrefix == "" {
			errs = append(errs, "mqtt.topic_prefix is required when mqtt is enabled")
		}
	}

	// Logging validation
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, "logging.level must be one of: debug, info, warn, error")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// sceneNames returns scene names in a stable order so validation errors do
// not shuffle between runs.
func sceneNames(scenes map[string][]int) []string {
	names := make([]string, 0, len(scenes))
	for name := range scenes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// GetOBSConnectTimeout returns the OBS connect timeout as a Duration.
func (c *Config) GetOBSConnectTimeout() time.Duration {
	return time.Duration(c.OBS.ConnectTimeout) * time.Second
}

// GetMixerConnectTimeout returns the mixer connect timeout as a Duration.
func (c *Config) GetMixerConnectTimeout() time.Duration {
	return time.Duration(c.Mixer.ConnectTimeout) * time.Second
}

// GetMixerProbeInterval returns the mixer probe interval as a Duration.
func (c *Config) GetMixerProbeInterval() time.Duration {
	return time.Duration(c.Mixer.ProbeInterval) * time.Second
}

// GetCommandTimeout returns the per-command mixer timeout as a Duration.
func (c *Config) GetCommandTimeout() time.Duration {
	return time.Duration(c.Mixer.CommandTimeout) * time.Second
}

// Delays returns a reconnect section's backoff bounds as Durations.
func (r ReconnectConfig) Delays() (initial, max time.Duration) {
	return time.Duration(r.InitialDelay) * time.Second, time.Duration(r.MaxDelay) * time.Second
}
