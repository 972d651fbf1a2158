// Command agent runs the edge agent: connects to the cloud's broker
// gateway, constructs the tool registry and shell sandbox, and spawns
// the three runtime tasks (§4.5). Grounded on the teacher's
// cmd/gateway/main.go signal-wait-then-graceful-shutdown shape.
package main

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	domaintool "github.com/aman-2709/zeroclaw-remote-diagnostics/internal/domain/tool"
	"github.com/aman-2709/zeroclaw-remote-diagnostics/internal/domain/service"
	"github.com/aman-2709/zeroclaw-remote-diagnostics/internal/infrastructure/agent"
	"github.com/aman-2709/zeroclaw-remote-diagnostics/internal/infrastructure/broker"
	"github.com/aman-2709/zeroclaw-remote-diagnostics/internal/infrastructure/config"
	"github.com/aman-2709/zeroclaw-remote-diagnostics/internal/infrastructure/intent"
	"github.com/aman-2709/zeroclaw-remote-diagnostics/internal/infrastructure/logger"
	"github.com/aman-2709/zeroclaw-remote-diagnostics/internal/infrastructure/sandbox"
	infratool "github.com/aman-2709/zeroclaw-remote-diagnostics/internal/infrastructure/tool"
)

const appName = "fleetd-agent"

const (
	exitConfigError   = 1
	exitBrokerConnect = 2
	exitIrrecoverable = 3
)

const maxDialAttempts = 5

func main() {
	rootCmd := &cobra.Command{
		Use:   appName,
		Short: "Fleet edge agent",
		RunE:  runAgent,
	}
	rootCmd.Flags().String("config", defaultConfigPath(), "path to the agent TOML config file")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(exitIrrecoverable)
	}
}

func defaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "agent.toml"
	}
	return home + "/" + config.AgentHomeDirName + "/agent.toml"
}

func runAgent(cmd *cobra.Command, _ []string) error {
	configPath, _ := cmd.Flags().GetString("config")

	bootstrapLogger, _ := logger.New(logger.Config{Level: "info", Format: "console", OutputPath: "stdout"})
	if err := config.Bootstrap(configPath, bootstrapLogger); err != nil {
		fmt.Fprintf(os.Stderr, "bootstrap failed: %v\n", err)
		os.Exit(exitConfigError)
	}

	cfg, err := config.LoadAgentConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(exitConfigError)
	}

	log, err := logger.New(logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format, OutputPath: cfg.Log.OutputPath})
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(exitConfigError)
	}
	defer log.Sync()

	log.Info("starting edge agent", zap.String("name", appName), zap.String("device_id", cfg.DeviceID))

	watcher, err := config.WatchAgentConfig(configPath, func(updated *config.AgentConfig) {
		log.Info("agent config reloaded", zap.String("device_id", updated.DeviceID))
	})
	if err != nil {
		log.Warn("config hot-reload watch failed, continuing without it", zap.Error(err))
	} else {
		defer watcher.Close()
	}

	registry := domaintool.NewInMemoryRegistry()
	canBackend := infratool.NewMockCANBackend()
	_ = registry.Register(infratool.NewPIDReadTool(canBackend))
	_ = registry.Register(infratool.NewDTCReadTool(canBackend))
	_ = registry.Register(infratool.NewSearchLogsTool(cfg.LogPaths))
	_ = registry.Register(infratool.NewTailLogsTool(cfg.LogPaths))

	localParser := intent.NewCompositeEngine(log, intent.NewRuleEngine(), intent.NewLocalLLMEngine(intent.LocalLLMConfig{
		Host:    cfg.LocalLLM.Host,
		Model:   cfg.LocalLLM.Model,
		Timeout: cfg.LocalLLM.Timeout,
		Enabled: cfg.LocalLLM.Enabled,
	}, registry, log))

	shell := sandbox.New(log)
	executor := service.NewExecutor(registry, shell, localParser, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	channel, err := dialBroker(ctx, cfg, log)
	if err != nil {
		log.Error("failed to connect to broker", zap.Error(err))
		os.Exit(exitBrokerConnect)
	}
	defer channel.Close()

	rt := agent.NewRuntime(cfg, channel, executor, registry, log)
	if err := rt.Start(ctx); err != nil {
		log.Error("failed to start agent runtime", zap.Error(err))
		os.Exit(exitIrrecoverable)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	log.Info("received shutdown signal", zap.String("signal", sig.String()))

	cancel()
	_ = channel.Close()
	log.Info("agent stopped cleanly")
	return nil
}

// dialBroker connects to the cloud's device-facing gateway endpoint,
// retrying with the configured backoff window (§6 broker {reconnect}).
func dialBroker(ctx context.Context, cfg *config.AgentConfig, log *zap.Logger) (*broker.WebSocketChannel, error) {
	target, err := url.Parse(cfg.Broker.URL)
	if err != nil {
		return nil, fmt.Errorf("agent: invalid broker url: %w", err)
	}
	target.Path = "/ws/devices/" + cfg.DeviceID

	minDelay := cfg.Broker.ReconnectMinDelay
	if minDelay <= 0 {
		minDelay = time.Second
	}
	maxDelay := cfg.Broker.ReconnectMaxDelay
	if maxDelay <= 0 {
		maxDelay = 30 * time.Second
	}

	delay := minDelay
	var lastErr error
	for attempt := 1; attempt <= maxDialAttempts; attempt++ {
		conn, _, err := websocket.DefaultDialer.DialContext(ctx, target.String(), nil)
		if err == nil {
			log.Info("connected to broker", zap.String("url", target.String()))
			return broker.NewWebSocketChannel(conn, log), nil
		}
		lastErr = err
		log.Warn("broker dial failed, retrying", zap.Int("attempt", attempt), zap.Duration("delay", delay), zap.Error(err))

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
		if delay > maxDelay {
			delay = maxDelay
		}
	}
	return nil, fmt.Errorf("agent: could not connect to broker after %d attempts: %w", maxDialAttempts, lastErr)
}
