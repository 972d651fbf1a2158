package config

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

// AgentHomeDirName is the per-device data directory name created in the
// directory that holds the agent's config file, on first run.
const AgentHomeDirName = ".fleetd-agent"

// Bootstrap ensures the agent's config file and data directory exist,
// grounded on the teacher's infrastructure/config/bootstrap.go: create
// missing directories, write a default file only if absent, never
// overwrite an operator's edits.
func Bootstrap(configPath string, logger *zap.Logger) error {
	dataDir := filepath.Join(filepath.Dir(configPath), AgentHomeDirName)
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return fmt.Errorf("config: create data dir %s: %w", dataDir, err)
	}

	if _, err := os.Stat(configPath); err == nil {
		logger.Debug("agent config present", zap.String("path", configPath))
		return nil
	}

	if err := os.WriteFile(configPath, []byte(defaultAgentTOML), 0o644); err != nil {
		return fmt.Errorf("config: write default config %s: %w", configPath, err)
	}
	logger.Info("wrote default agent config", zap.String("path", configPath))
	return nil
}

const defaultAgentTOML = `# fleetd-agent configuration — generated on first launch.
# fleet_id and device_id are assigned at provisioning time; everything
# else may be edited and takes effect when the agent restarts.

fleet_id = ""
device_id = ""
heartbeat_interval_secs = 30
shadow_sync_interval_secs = 60
log_paths = ["/var/log/syslog"]

[broker]
url = "ws://localhost:8080"
reconnect_min_delay = "1s"
reconnect_max_delay = "60s"

[local_llm]
host = "http://127.0.0.1:11434"
model = "llama3.2:3b"
timeout = "5s"
enabled = true

[log]
level = "info"
format = "console"
output_path = ""
`
