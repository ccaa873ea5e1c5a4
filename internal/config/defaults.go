package config

import (
	"time"

	"github.com/spf13/viper"
)

// SetDefaults registers default values for every configuration key.
func SetDefaults() {
	applyDefaults(viper.GetViper())
}

// Defaults returns a Config holding only the default values, independent
// of any loaded file or environment overrides.
func Defaults() *Config {
	v := viper.New()
	applyDefaults(v)
	var cfg Config
	// Unmarshal of pure defaults cannot fail.
	_ = v.Unmarshal(&cfg)
	return &cfg
}

func applyDefaults(v *viper.Viper) {
	// Engine
	v.SetDefault("engine.url", "ws://localhost:8000/ws/session")
	v.SetDefault("engine.min_version", "")

	// Session
	v.SetDefault("session.role", "player")
	v.SetDefault("session.world_id", "")
	v.SetDefault("session.heartbeat_interval", 30*time.Second)

	// Reconnect backoff
	v.SetDefault("reconnect.max_retries", 5)
	v.SetDefault("reconnect.initial_delay", 1*time.Second)
	v.SetDefault("reconnect.max_delay", 16*time.Second)
	v.SetDefault("reconnect.multiplier", 2.0)

	// Log
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.file", "")

	// Storage
	v.SetDefault("storage.driver", "sqlite")
	v.SetDefault("storage.path", "~/.tavern/data.db")

	// Inspector (local status API, off unless asked for)
	v.SetDefault("inspector.enabled", false)
	v.SetDefault("inspector.host", "127.0.0.1")
	v.SetDefault("inspector.port", 18791)
}
