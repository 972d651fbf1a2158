// Package http is the cloud node's REST and WebSocket surface (§6),
// grounded on the teacher's interfaces/http/server.go: a thin gin router
// wrapper, one handler struct per resource, a logging middleware, and a
// graceful Start/Stop pair.
package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/aman-2709/zeroclaw-remote-diagnostics/internal/application"
	"github.com/aman-2709/zeroclaw-remote-diagnostics/internal/interfaces/http/handlers"
)

// Config controls the listener and gin's run mode.
type Config struct {
	Host string
	Port int
	Mode string // debug, release
}

// Server wraps the stdlib http.Server the gin router is mounted on.
type Server struct {
	httpServer *http.Server
	logger     *zap.Logger
}

// NewServer builds the router against one CloudApp's use cases and
// infrastructure, and registers every route from §6.
func NewServer(cfg Config, app *application.CloudApp, logger *zap.Logger) *Server {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(ginLogger(logger))

	deviceHandler := handlers.NewDeviceHandler(app.Devices, logger)
	commandHandler := handlers.NewCommandHandler(app.Commands, app.CommandQ, logger)
	shadowHandler := handlers.NewShadowHandler(app.Shadows, app.Devices, logger)
	telemetryHandler := handlers.NewTelemetryHandler(app.TelemetryQ, logger)
	gatewayHandler := handlers.NewGatewayHandler(app.Gateway(), logger)

	setupRoutes(router, app, deviceHandler, commandHandler, shadowHandler, telemetryHandler, gatewayHandler)

	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	return &Server{
		httpServer: &http.Server{Addr: addr, Handler: router},
		logger:     logger,
	}
}

// Start launches the listener in the background, per the teacher's
// non-blocking Start convention.
func (s *Server) Start(ctx context.Context) error {
	s.logger.Info("starting http server", zap.String("address", s.httpServer.Addr))
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("http server error", zap.Error(err))
		}
	}()
	return nil
}

// Stop shuts the listener down gracefully.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("stopping http server")
	return s.httpServer.Shutdown(ctx)
}

// HTTPServer exposes the underlying *http.Server so the caller can hand
// it to CloudApp.SetHTTPServer for coordinated shutdown.
func (s *Server) HTTPServer() *http.Server { return s.httpServer }

func setupRoutes(
	router *gin.Engine,
	app *application.CloudApp,
	deviceHandler *handlers.DeviceHandler,
	commandHandler *handlers.CommandHandler,
	shadowHandler *handlers.ShadowHandler,
	telemetryHandler *handlers.TelemetryHandler,
	gatewayHandler *handlers.GatewayHandler,
) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "time": time.Now().Unix()})
	})

	v1 := router.Group("/api/v1")
	{
		v1.GET("/devices", deviceHandler.ListDevices)
		v1.POST("/devices", deviceHandler.ProvisionDevice)
		v1.GET("/devices/:id", deviceHandler.GetDevice)

		v1.POST("/commands", commandHandler.SubmitCommand)
		v1.GET("/commands", commandHandler.ListCommands)
		v1.GET("/commands/:id", commandHandler.GetCommand)

		v1.GET("/devices/:id/shadows", shadowHandler.ListShadowNames)
		v1.GET("/devices/:id/shadows/:name", shadowHandler.GetShadow)
		v1.PUT("/devices/:id/shadows/:name/desired", shadowHandler.SetDesired)

		v1.GET("/devices/:id/telemetry", telemetryHandler.ListTelemetry)

		v1.GET("/ws", func(c *gin.Context) {
			app.Hub().ServeWS(c.Writer, c.Request)
		})
	}

	// Device-facing broker substitution listener (§4.4); agents dial this
	// instead of an MQTT broker port.
	router.GET("/ws/devices/:device_id", gatewayHandler.Connect)
}

func ginLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		logger.Info("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.String("query", query),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("ip", c.ClientIP()),
		)
	}
}
