// Package web serves the depthguard status surface: REST endpoints, a live
// status websocket, the depth frame ingest websocket and prometheus metrics.
package web

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/websocket/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/teslashibe/go-depthguard/pkg/alert"
	"github.com/teslashibe/go-depthguard/pkg/depth"
	"github.com/teslashibe/go-depthguard/pkg/detector"
	"github.com/teslashibe/go-depthguard/pkg/hub"
	"github.com/teslashibe/go-depthguard/pkg/protocol"
	"github.com/teslashibe/go-depthguard/pkg/proximity"
)

// Detector is the part of *detector.Detector the server uses
type Detector interface {
	Status() detector.Status
	Region() depth.Region
	Validate(width, height int) error
	Submit(f *depth.Frame) bool
	Subscribe(fn func(detector.Status)) (unsubscribe func())
}

// Config configures the server
type Config struct {
	Port      int
	StaticDir string
}

// Option configures a Server
type Option func(*Server)

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithAlertConfig sets the alert settings reported by /api/config
func WithAlertConfig(cfg proximity.Config) Option {
	return func(s *Server) {
		s.alertCfg = cfg
	}
}

// WithPictureAnnouncer makes /api/picture speak phrase. An empty phrase
// keeps the action silent.
func WithPictureAnnouncer(a alert.Announcer, phrase string) Option {
	return func(s *Server) {
		s.announcer = a
		s.picturePhrase = phrase
	}
}

// WithFatalHandler registers fn for configuration failures reported by a
// frame source. The process is expected to stop.
func WithFatalHandler(fn func(error)) Option {
	return func(s *Server) {
		s.onFatal = fn
	}
}

// WithGatherer serves /metrics from g instead of the default registry
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) {
		s.metrics = promhttp.HandlerFor(g, promhttp.HandlerOpts{})
	}
}

// Server is the status server
type Server struct {
	app    *fiber.App
	addr   string
	logger *slog.Logger

	det           Detector
	alertCfg      proximity.Config
	announcer     alert.Announcer
	picturePhrase string
	onFatal       func(error)
	metrics       http.Handler

	statusHub *hub.Hub
}

// NewServer creates the server and its routes
func NewServer(cfg Config, det Detector, opts ...Option) *Server {
	s := &Server{
		addr:     fmt.Sprintf(":%d", cfg.Port),
		logger:   slog.Default(),
		det:      det,
		alertCfg: proximity.DefaultConfig(),
		metrics:  promhttp.Handler(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "web")
	s.statusHub = hub.New("status", s.logger)

	app := fiber.New(fiber.Config{
		AppName:               "depthguard",
		DisableStartupMessage: true,
	})

	app.Use(cors.New())

	if cfg.StaticDir != "" {
		app.Static("/", cfg.StaticDir)
	}

	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})
	app.Get("/metrics", adaptor.HTTPHandler(s.metrics))

	api := app.Group("/api")
	api.Get("/status", s.handleStatus)
	api.Get("/config", s.handleConfig)
	api.Post("/picture", s.handlePicture)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/status", websocket.New(s.handleStatusWS))
	app.Get("/ws/frames", websocket.New(s.handleFramesWS))

	s.app = app
	return s
}

// Run serves until ctx is done, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	go s.statusHub.Run(ctx)

	unsubscribe := s.det.Subscribe(s.broadcastStatus)
	defer unsubscribe()

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("web server listening", "addr", s.addr)
		errc <- s.app.Listen(s.addr)
	}()

	select {
	case err := <-errc:
		return fmt.Errorf("web server: %w", err)
	case <-ctx.Done():
		if err := s.app.ShutdownWithTimeout(5 * time.Second); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("web shutdown: %w", err)
		}
		return nil
	}
}

// Hub returns the status hub
func (s *Server) Hub() *hub.Hub {
	return s.statusHub
}

func (s *Server) broadcastStatus(st detector.Status) {
	msg, err := protocol.NewStatusMessage(st)
	if err != nil {
		s.logger.Warn("encode status failed", "error", err)
		return
	}
	if err := s.statusHub.BroadcastProtocol(msg); err != nil {
		s.logger.Warn("broadcast status failed", "error", err)
	}
}
