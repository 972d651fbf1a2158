package config

import (
	"time"

	"github.com/spf13/viper"
)

// CloudConfig is the cloud node's configuration, read from the
// environment via viper's AutomaticEnv (§6: "PORT, INFERENCE_ENGINE,
// DATABASE_URL, broker credentials").
type CloudConfig struct {
	Port            int           `mapstructure:"port"`
	InferenceEngine string        `mapstructure:"inference_engine"` // rule_only | cloud_llm | hybrid
	DatabaseURL     string        `mapstructure:"database_url"`     // empty => in-memory only
	BrokerListenURL string        `mapstructure:"broker_listen_url"`
	CloudLLM        CloudLLMEnv   `mapstructure:"cloud_llm"`
	Log             LogConfig     `mapstructure:"log"`
	EventBusCap     int           `mapstructure:"event_bus_capacity"`
	ShutdownGrace   time.Duration `mapstructure:"shutdown_grace"`

	// HeartbeatInterval is the cloud's assumption about how often devices
	// in this fleet emit heartbeats; it feeds HeartbeatMonitor's offline
	// miss window (§3 "configurable, safe default 3x heartbeat_interval_secs",
	// §9 Open Question). It mirrors the agent's own
	// heartbeat_interval_secs default but is configured independently —
	// the cloud has no way to learn an individual device's interval.
	HeartbeatInterval time.Duration `mapstructure:"heartbeat_interval"`
}

// CloudLLMEnv configures the cloud inference tier (§4.1).
type CloudLLMEnv struct {
	Endpoint string        `mapstructure:"endpoint"`
	APIKey   string        `mapstructure:"api_key"`
	Model    string        `mapstructure:"model"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// LoadCloudConfig reads cloud configuration purely from the process
// environment, matching the teacher's env-override layer in
// infrastructure/config/config.go (AutomaticEnv, here unprefixed), but
// without a backing file — the cloud node is meant to run config-as-env
// in a container, never from a mounted TOML/YAML file.
func LoadCloudConfig() (*CloudConfig, error) {
	v := viper.New()

	v.SetDefault("port", 8080)
	v.SetDefault("inference_engine", "hybrid")
	v.SetDefault("database_url", "")
	v.SetDefault("broker_listen_url", "")
	v.SetDefault("cloud_llm.timeout", "15s")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("event_bus_capacity", 256)
	v.SetDefault("shutdown_grace", "10s")
	v.SetDefault("heartbeat_interval", "30s")

	v.AutomaticEnv()

	bind := []string{
		"port", "inference_engine", "database_url", "broker_listen_url",
		"cloud_llm.endpoint", "cloud_llm.api_key", "cloud_llm.model", "cloud_llm.timeout",
		"log.level", "log.format", "event_bus_capacity", "shutdown_grace", "heartbeat_interval",
	}
	for _, key := range bind {
		_ = v.BindEnv(key)
	}

	var cfg CloudConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
