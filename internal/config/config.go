package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"tavern/internal/conn"
)

// Config is the root application configuration.
type Config struct {
	Version   string          `mapstructure:"version" yaml:"version"`
	Engine    EngineConfig    `mapstructure:"engine" yaml:"engine"`
	Session   SessionConfig   `mapstructure:"session" yaml:"session"`
	Reconnect ReconnectConfig `mapstructure:"reconnect" yaml:"reconnect"`
	Log       LogConfig       `mapstructure:"log" yaml:"log"`
	Storage   StorageConfig   `mapstructure:"storage" yaml:"storage"`
	Inspector InspectorConfig `mapstructure:"inspector" yaml:"inspector"`
}

// EngineConfig locates the gameplay engine.
type EngineConfig struct {
	// URL is the websocket endpoint of the session gateway,
	// e.g. ws://localhost:8000/ws/session.
	URL string `mapstructure:"url" yaml:"url"`

	// MinVersion is a semver constraint checked against the
	// engine_version reported on join. Empty disables the check.
	MinVersion string `mapstructure:"min_version" yaml:"min_version"`
}

// SessionConfig holds gameplay session behavior.
type SessionConfig struct {
	Role              string        `mapstructure:"role" yaml:"role"`
	WorldID           string        `mapstructure:"world_id" yaml:"world_id,omitempty"`
	HeartbeatInterval time.Duration `mapstructure:"heartbeat_interval" yaml:"heartbeat_interval"`
}

// ReconnectConfig tunes the automatic reconnect backoff.
type ReconnectConfig struct {
	MaxRetries   int           `mapstructure:"max_retries" yaml:"max_retries"`
	InitialDelay time.Duration `mapstructure:"initial_delay" yaml:"initial_delay"`
	MaxDelay     time.Duration `mapstructure:"max_delay" yaml:"max_delay"`
	Multiplier   float64       `mapstructure:"multiplier" yaml:"multiplier"`
}

// Policy converts the config into a reconnect policy, falling back to
// defaults for unset fields.
func (c ReconnectConfig) Policy() conn.ReconnectPolicy {
	p := conn.DefaultReconnectPolicy()
	if c.MaxRetries > 0 {
		p.MaxRetries = c.MaxRetries
	}
	if c.InitialDelay > 0 {
		p.InitialDelay = c.InitialDelay
	}
	if c.MaxDelay > 0 {
		p.MaxDelay = c.MaxDelay
	}
	if c.Multiplier > 1 {
		p.Multiplier = c.Multiplier
	}
	return p
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
	File   string `mapstructure:"file" yaml:"file"`
}

// StorageConfig holds local storage configuration.
type StorageConfig struct {
	Driver string `mapstructure:"driver" yaml:"driver"`
	Path   string `mapstructure:"path" yaml:"path"`
}

// InspectorConfig holds the local read-only status API configuration.
type InspectorConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Host    string `mapstructure:"host" yaml:"host"`
	Port    int    `mapstructure:"port" yaml:"port"`
}

var (
	globalConfig *Config
	configPath   string
	mu           sync.RWMutex
)

// Load loads the configuration. Precedence: ENV > config file > defaults.
func Load(path string) (*Config, error) {
	mu.Lock()
	defer mu.Unlock()

	SetDefaults()

	viper.SetEnvPrefix("TAVERN")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if path != "" {
		expandedPath, err := ExpandPath(path)
		if err != nil {
			return nil, err
		}
		configPath = expandedPath

		viper.SetConfigFile(expandedPath)
		if err := viper.ReadInConfig(); err != nil {
			// A missing file falls back to defaults; a broken one does not.
			var pathErr *os.PathError
			if !errors.As(err, &pathErr) && !os.IsNotExist(err) {
				if _, ok := err.(viper.ConfigParseError); ok {
					return nil, err
				}
			}
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	globalConfig = &cfg
	return &cfg, nil
}

// GetConfig returns the loaded configuration.
func GetConfig() *Config {
	mu.RLock()
	defer mu.RUnlock()
	return globalConfig
}

// Path returns the loaded configuration file path, if any.
func Path() string {
	mu.RLock()
	defer mu.RUnlock()
	return configPath
}

// GetString returns a string configuration value.
func GetString(key string) string {
	return viper.GetString(key)
}

// GetBool returns a boolean configuration value.
func GetBool(key string) bool {
	return viper.GetBool(key)
}

// Set sets a configuration value and persists it when a config file is
// loaded.
func Set(key string, value any) error {
	mu.Lock()
	defer mu.Unlock()

	viper.Set(key, value)

	if configPath != "" {
		return save()
	}
	return nil
}

// Save writes the configuration to the loaded config file.
func Save() error {
	mu.Lock()
	defer mu.Unlock()
	return save()
}

// save persists the current settings. Callers must hold mu.
func save() error {
	if configPath == "" {
		return errors.New("config path not set")
	}

	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	allSettings := viper.AllSettings()

	data, err := yaml.Marshal(allSettings)
	if err != nil {
		return err
	}

	return os.WriteFile(configPath, data, 0600)
}

// SaveTo writes cfg to an explicit path. Used by `tavern init`.
func SaveTo(cfg *Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0600)
}

// Reset clears the loaded configuration. Mainly for tests.
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	globalConfig = nil
	configPath = ""
	viper.Reset()
}
