// Package config loads the edge agent's and cloud node's settings via
// viper, mirroring the teacher's infrastructure/config package: a typed
// struct with mapstructure tags, sane defaults set before the file is
// read, and (for the agent) a filesystem watch that re-parses the file
// when it changes (§6).
package config

import (
	"fmt"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// AgentConfig is the edge agent's on-disk configuration, read from a TOML
// file (§6: "Agent config file (TOML)"). Identity fields (FleetID,
// DeviceID) are fixed at provisioning time. A running agent keeps the
// values it loaded at startup; edits to the file take effect on restart.
type AgentConfig struct {
	FleetID                string           `mapstructure:"fleet_id"`
	DeviceID                string           `mapstructure:"device_id"`
	HeartbeatIntervalSecs   int              `mapstructure:"heartbeat_interval_secs"`
	ShadowSyncIntervalSecs  int              `mapstructure:"shadow_sync_interval_secs"`
	LogPaths                []string         `mapstructure:"log_paths"`
	Broker                  BrokerConfig     `mapstructure:"broker"`
	LocalLLM                LocalLLMConfig   `mapstructure:"local_llm"`
	Log                     LogConfig        `mapstructure:"log"`
}

// BrokerConfig configures the agent's transport connection to the cloud
// bridge (§4.4, §6).
type BrokerConfig struct {
	URL               string        `mapstructure:"url"`
	ReconnectMinDelay time.Duration `mapstructure:"reconnect_min_delay"`
	ReconnectMaxDelay time.Duration `mapstructure:"reconnect_max_delay"`
}

// LocalLLMConfig configures the on-device fallback model server (§4.1).
type LocalLLMConfig struct {
	Host    string        `mapstructure:"host"`
	Model   string        `mapstructure:"model"`
	Timeout time.Duration `mapstructure:"timeout"`
	Enabled bool          `mapstructure:"enabled"`
}

// LogConfig mirrors infrastructure/logger.Config's mapstructure shape.
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"output_path"`
}

// DefaultHeartbeatIntervalSecs matches §4.5's default cadence.
const DefaultHeartbeatIntervalSecs = 30

// DefaultShadowSyncIntervalSecs matches §4.7's default reporting cadence.
const DefaultShadowSyncIntervalSecs = 60

func agentDefaults(v *viper.Viper) {
	v.SetDefault("heartbeat_interval_secs", DefaultHeartbeatIntervalSecs)
	v.SetDefault("shadow_sync_interval_secs", DefaultShadowSyncIntervalSecs)
	v.SetDefault("log_paths", []string{"/var/log/syslog"})
	v.SetDefault("broker.reconnect_min_delay", "1s")
	v.SetDefault("broker.reconnect_max_delay", "60s")
	v.SetDefault("local_llm.host", "http://127.0.0.1:11434")
	v.SetDefault("local_llm.timeout", "5s")
	v.SetDefault("local_llm.enabled", true)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
}

// LoadAgentConfig reads the agent's TOML config file at path and validates
// the required identity fields are present.
func LoadAgentConfig(path string) (*AgentConfig, error) {
	v := viper.New()
	agentDefaults(v)
	v.SetConfigFile(path)
	v.SetConfigType("toml")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config: read agent config %s: %w", path, err)
	}

	var cfg AgentConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: parse agent config: %w", err)
	}
	if cfg.FleetID == "" {
		return nil, fmt.Errorf("config: fleet_id is required")
	}
	if cfg.DeviceID == "" {
		return nil, fmt.Errorf("config: device_id is required")
	}
	return &cfg, nil
}

// WatchAgentConfig re-parses the file whenever it is written or created
// on disk and invokes onChange with the freshly parsed config, identity
// fields included; a file that fails to load is skipped. It applies
// nothing itself, and the agent's own onChange only logs the reload.
func WatchAgentConfig(path string, onChange func(*AgentConfig)) (*fsnotify.Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("config: create watcher: %w", err)
	}
	if err := watcher.Add(path); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("config: watch %s: %w", path, err)
	}

	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				cfg, err := LoadAgentConfig(path)
				if err != nil {
					continue
				}
				onChange(cfg)
			case _, ok := <-watcher.Errors:
				if !ok {
					return
				}
			}
		}
	}()

	return watcher, nil
}
