package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for the Lutron gateway.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Hub       HubConfig       `yaml:"hub"`
	Sync      SyncConfig      `yaml:"sync"`
	Database  DatabaseConfig  `yaml:"database"`
	API       APIConfig       `yaml:"api"`
	WebSocket WebSocketConfig `yaml:"websocket"`
	InfluxDB  InfluxDBConfig  `yaml:"influxdb"`
	Discovery DiscoveryConfig `yaml:"discovery"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// HubConfig contains the connection settings for the hub's MQTT broker.
type HubConfig struct {
	// URL is the broker endpoint, e.g. "tcp://192.168.1.20:1883".
	// When empty, the endpoint is resolved through mDNS discovery.
	URL string `yaml:"url"`

	// Token is the bearer token issued by the hub. It is presented to the
	// broker as the MQTT password.
	Token    string `yaml:"token"`
	Username string `yaml:"username"`

	ClientIDPrefix string `yaml:"client_id_prefix"`
	TopicPrefix    string `yaml:"topic_prefix"`
	QoS            int    `yaml:"qos"`

	// Timeouts and delays. Seconds unless stated otherwise.
	ConnectTimeout    int `yaml:"connect_timeout"`
	DisconnectTimeout int `yaml:"disconnect_timeout"` // milliseconds
	ReconnectDelay    int `yaml:"reconnect_delay"`
	HeartbeatTimeout  int `yaml:"heartbeat_timeout"`
}

// SyncConfig controls the device inventory refresh cycle.
type SyncConfig struct {
	SettleDelay     int `yaml:"settle_delay"`
	RefreshInterval int `yaml:"refresh_interval"`
	StaggerWindow   int `yaml:"stagger_window"`

	// EvictMissing removes devices that are absent from a full refresh.
	// When false they are kept with their last known state.
	EvictMissing bool `yaml:"evict_missing"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
	CORS     CORSConfig       `yaml:"cors"`
}

// APITimeoutConfig contains HTTP timeout settings.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// CORSConfig contains Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// WebSocketConfig contains WebSocket server settings.
type WebSocketConfig struct {
	Path           string `yaml:"path"`
	MaxMessageSize int    `yaml:"max_message_size"`
	PingInterval   int    `yaml:"ping_interval"`
	PongTimeout    int    `yaml:"pong_timeout"`
}

// InfluxDBConfig contains InfluxDB connection settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// DiscoveryConfig contains mDNS hub discovery settings.
type DiscoveryConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Service   string `yaml:"service"`
	Domain    string `yaml:"domain"`
	Timeout   int    `yaml:"timeout"`
	Interface string `yaml:"interface"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: LUTRONGW_SECTION_KEY
// For example: LUTRONGW_HUB_URL, LUTRONGW_DATABASE_PATH
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
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

// defaultConfig returns a Config with the hub's reference timings.
func defaultConfig() *Config {
	return &Config{
		Hub: HubConfig{
			Username:          "lutrongw",
			ClientIDPrefix:    "lutrongw-",
			TopicPrefix:       "lutron",
			QoS:               0,
			ConnectTimeout:    10,
			DisconnectTimeout: 3000,
			ReconnectDelay:    20,
			HeartbeatTimeout:  120,
		},
		Sync: SyncConfig{
			SettleDelay:     5,
			RefreshInterval: 300,
			StaggerWindow:   3,
			EvictMissing:    false,
		},
		Database: DatabaseConfig{
			Path:        "./data/lutrongw.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		API: APIConfig{
			Host: "0.0.0.0",
			Port: 8080,
			Timeouts: APITimeoutConfig{
				Read:  10,
				Write: 10,
				Idle:  60,
			},
		},
		WebSocket: WebSocketConfig{
			Path:           "/ws",
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		InfluxDB: InfluxDBConfig{
			BatchSize:     100,
			FlushInterval: 10,
		},
		Discovery: DiscoveryConfig{
			Service: "_lutron_mqtt._tcp",
			Domain:  "local.",
			Timeout: 10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
func applyEnvOverrides(cfg *Config) {
	// Hub
	if v := os.Getenv("LUTRONGW_HUB_URL"); v != "" {
		cfg.Hub.URL = v
	}
	if v := os.Getenv("LUTRONGW_HUB_TOKEN"); v != "" {
		cfg.Hub.Token = v
	}

	if v := os.Getenv("LUTRONGW_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("LUTRONGW_API_HOST"); v != "" {
		cfg.API.Host = v
	}
	if v := os.Getenv("LUTRONGW_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}
	if v := os.Getenv("LUTRONGW_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

// Validate checks the configuration for required fields and valid values.
//
// The broker URL is only checked for presence here. Its syntax is checked
// when the hub connection starts, so a bad URL surfaces as a hub status
// rather than a startup failure.
func (c *Config) Validate() error {
	var errs []string

	if c.Hub.URL == "" && !c.Discovery.Enabled {
		errs = append(errs, "hub.url is required when discovery is disabled (set LUTRONGW_HUB_URL)")
	}

	// QoS 2 is not supported by the hub protocol.
	if c.Hub.QoS < 0 || c.Hub.QoS > 1 {
		errs = append(errs, "hub.qos must be 0 or 1")
	}

	positive := []struct {
		name  string
		value int
	}{
		{"hub.connect_timeout", c.Hub.ConnectTimeout},
		{"hub.disconnect_timeout", c.Hub.DisconnectTimeout},
		{"hub.reconnect_delay", c.Hub.ReconnectDelay},
		{"hub.heartbeat_timeout", c.Hub.HeartbeatTimeout},
		{"sync.settle_delay", c.Sync.SettleDelay},
		{"sync.refresh_interval", c.Sync.RefreshInterval},
		{"sync.stagger_window", c.Sync.StaggerWindow},
	}
	for _, p := range positive {
		if p.value <= 0 {
			errs = append(errs, p.name+" must be greater than zero")
		}
	}

	if c.Hub.TopicPrefix == "" {
		errs = append(errs, "hub.topic_prefix is required")
	}

	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	if c.API.Port < 1 || c.API.Port > 65535 {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	if c.InfluxDB.Enabled && c.InfluxDB.URL == "" {
		errs = append(errs, "influxdb.url is required when influxdb is enabled")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// GetReadTimeout returns the API read timeout as a Duration.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the API write timeout as a Duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the API idle timeout as a Duration.
func (c *Config) GetIdleTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Idle) * time.Second
}

// ReconnectDelayDuration returns the fixed backoff between hub connection attempts.
func (h HubConfig) ReconnectDelayDuration() time.Duration {
	return time.Duration(h.ReconnectDelay) * time.Second
}

// HeartbeatWindow returns how long the hub may stay silent before it is
// declared offline.
func (h HubConfig) HeartbeatWindow() time.Duration {
	return time.Duration(h.HeartbeatTimeout) * time.Second
}

// ConnectTimeoutDuration returns the bound on a single connect attempt.
func (h HubConfig) ConnectTimeoutDuration() time.Duration {
	return time.Duration(h.ConnectTimeout) * time.Second
}

// DisconnectTimeoutDuration returns the bound on a forced disconnect.
func (h HubConfig) DisconnectTimeoutDuration() time.Duration {
	return time.Duration(h.DisconnectTimeout) * time.Millisecond
}

// SettleDelayDuration returns the wait between subscribing and the first
// inventory request.
func (s SyncConfig) SettleDelayDuration() time.Duration {
	return time.Duration(s.SettleDelay) * time.Second
}

// RefreshIntervalDuration returns the period of the full inventory refresh.
func (s SyncConfig) RefreshIntervalDuration() time.Duration {
	return time.Duration(s.RefreshInterval) * time.Second
}
