// Package web provides the optional status surface of the device:
// health, loop counters and the effective configuration. It never
// exposes gesture results beyond the aggregate counters.
package web

import (
	"encoding/json"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/go-handcam/internal/log"
	"github.com/teslashibe/go-handcam/pkg/pipeline"
)

// statsPushInterval paces websocket snapshots to clients.
const statsPushInterval = time.Second

// StatsProvider supplies loop counters for the API.
type StatsProvider interface {
	Snapshot() pipeline.Snapshot
}

// Server is the status HTTP server.
type Server struct {
	app   *fiber.App
	addr  string
	stats StatsProvider
	hub   *statsHub

	// Config is returned verbatim by /api/config. Set before Start.
	Config any
}

// NewServer creates a status server reading counters from stats.
func NewServer(addr string, stats StatsProvider) *Server {
	s := &Server{
		addr:  addr,
		stats: stats,
		hub:   newStatsHub(),
	}

	app := fiber.New(fiber.Config{
		AppName:               "handcam status",
		DisableStartupMessage: true,
	})
	app.Use(cors.New())

	app.Get("/healthz", s.handleHealth)

	api := app.Group("/api")
	api.Get("/stats", s.handleStats)
	api.Get("/config", s.handleConfig)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/stats", websocket.New(s.handleStatsWS))

	s.app = app
	return s
}

func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

func (s *Server) handleStats(c *fiber.Ctx) error {
	return c.JSON(s.stats.Snapshot())
}

func (s *Server) handleConfig(c *fiber.Ctx) error {
	if s.Config == nil {
		return c.JSON(fiber.Map{})
	}
	return c.JSON(s.Config)
}

// handleStatsWS subscribes the connection to the broadcast hub and
// blocks until the client goes away.
func (s *Server) handleStatsWS(c *websocket.Conn) {
	client, ok := newWSClient(s.hub, c)
	if !ok {
		c.Close()
		return
	}
	client.run()
}

// pushLoop samples the counters once per interval and hands the
// snapshot to the hub. Sampling is skipped while nobody listens.
func (s *Server) pushLoop() {
	ticker := time.NewTicker(statsPushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if s.hub.clientCount() == 0 {
				continue
			}
			payload, err := json.Marshal(s.stats.Snapshot())
			if err != nil {
				continue
			}
			s.hub.publish(payload)
		case <-s.hub.done:
			return
		}
	}
}

// StartAsync serves in a goroutine; the loop never waits on the web
// surface.
func (s *Server) StartAsync() {
	go s.hub.run()
	go s.pushLoop()
	go func() {
		log.Component("web").Info("status server listening", "addr", s.addr)
		if err := s.app.Listen(s.addr); err != nil {
			log.Component("web").Error("status server stopped", "error", err)
		}
	}()
}

// Shutdown stops the server and disconnects websocket clients.
func (s *Server) Shutdown() error {
	s.hub.stop()
	return s.app.Shutdown()
}

// App exposes the fiber app for tests.
func (s *Server) App() *fiber.App {
	return s.app
}
