// SPDX-License-Identifier: EPL-2.0

// Package server exposes one engine of a Runtime over HTTP, with a WebSocket
// endpoint for live speech.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/google/uuid"

	"github.com/ik5/audbeacon"
	"github.com/ik5/audbeacon/beacon"
	"github.com/ik5/audbeacon/internal/config"
)

// Server is the HTTP control surface of the daemon
type Server struct {
	app       *fiber.App
	cfg       config.ServerConfig
	runtime   *audbeacon.Runtime
	engine    uuid.UUID
	logger    *slog.Logger
	speech    *SpeechHub
	startTime time.Time
	version   string
}

// New creates a server driving engine of runtime. speechBuffer bounds the
// bytes buffered per speech connection; zero is unbounded.
func New(cfg config.ServerConfig, runtime *audbeacon.Runtime, engine uuid.UUID, speechBuffer int, logger *slog.Logger, version string) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	app := fiber.New(fiber.Config{
		AppName:               "audbeacond",
		DisableStartupMessage: true,
		ReadTimeout:           cfg.ReadTimeout,
		WriteTimeout:          cfg.WriteTimeout,
	})

	app.Use(recover.New())
	app.Use(cors.New())
	app.Use(LoggingMiddleware(logger))

	s := &Server{
		app:       app,
		cfg:       cfg,
		runtime:   runtime,
		engine:    engine,
		logger:    logger,
		speech:    NewSpeechHub(runtime, engine, speechBuffer, logger),
		startTime: time.Now(),
		version:   version,
	}

	s.registerRoutes()

	return s
}

func (s *Server) registerRoutes() {
	s.app.Get("/health", s.healthHandler)

	api := s.app.Group("/api")
	api.Post("/geometry", s.geometryHandler)

	api.Get("/beacons", s.listBeaconsHandler)
	api.Post("/beacons", s.createBeaconHandler)
	api.Get("/beacons/:id", s.getBeaconHandler)
	api.Delete("/beacons/:id", s.deleteBeaconHandler)

	api.Get("/beacon-type", s.getBeaconTypeHandler)
	api.Put("/beacon-type", s.setBeaconTypeHandler)

	api.Get("/speech", s.speech.UpgradeHandler())
}

type position struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

func (p position) validate() error {
	if p.Lat < -90 || p.Lat > 90 || p.Lon < -180 || p.Lon > 180 {
		return fmt.Errorf("position out of range: %v, %v", p.Lat, p.Lon)
	}
	return nil
}

type geometryRequest struct {
	position
	Heading float64 `json:"heading"`
}

func (s *Server) healthHandler(c *fiber.Ctx) error {
	status := "ok"
	beacons, err := s.runtime.Beacons(s.engine)
	if err != nil {
		status = "degraded"
	}

	return c.JSON(fiber.Map{
		"status":         status,
		"version":        s.version,
		"uptime_seconds": int64(time.Since(s.startTime).Seconds()),
		"engine":         s.engine,
		"beacons":        len(beacons),
		"speech_clients": s.speech.ClientCount(),
	})
}

func (s *Server) geometryHandler(c *fiber.Ctx) error {
	var req geometryRequest
	if err := c.BodyParser(&req); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, err)
	}
	if err := req.validate(); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, err)
	}

	if err := s.runtime.UpdateGeometry(s.engine, req.Lat, req.Lon, req.Heading); err != nil {
		return errorJSON(c, statusFor(err), err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) listBeaconsHandler(c *fiber.Ctx) error {
	beacons, err := s.runtime.Beacons(s.engine)
	if err != nil {
		return errorJSON(c, statusFor(err), err)
	}

	return c.JSON(beacons)
}

func (s *Server) createBeaconHandler(c *fiber.Ctx) error {
	var req position
	if err := c.BodyParser(&req); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, err)
	}
	if err := req.validate(); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, err)
	}

	id, err := s.runtime.CreateDirectionalBeacon(s.engine, req.Lat, req.Lon)
	if err != nil {
		return errorJSON(c, statusFor(err), err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"id": id})
}

func (s *Server) getBeaconHandler(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return errorJSON(c, fiber.StatusBadRequest, err)
	}

	info, err := s.runtime.Beacon(s.engine, id)
	if err != nil {
		return errorJSON(c, statusFor(err), err)
	}

	return c.JSON(info)
}

func (s *Server) deleteBeaconHandler(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return errorJSON(c, fiber.StatusBadRequest, err)
	}

	if err := s.runtime.DestroyBeacon(s.engine, id); err != nil {
		return errorJSON(c, statusFor(err), err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) getBeaconTypeHandler(c *fiber.Ctx) error {
	current, err := s.runtime.BeaconType(s.engine)
	if err != nil {
		return errorJSON(c, statusFor(err), err)
	}

	return c.JSON(fiber.Map{
		"type":  current,
		"types": s.runtime.BeaconTypes(),
	})
}

func (s *Server) setBeaconTypeHandler(c *fiber.Ctx) error {
	var req struct {
		Type string `json:"type"`
	}
	if err := c.BodyParser(&req); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, err)
	}

	if err := s.runtime.SetBeaconType(s.engine, req.Type); err != nil {
		return errorJSON(c, statusFor(err), err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func errorJSON(c *fiber.Ctx, status int, err error) error {
	return c.Status(status).JSON(fiber.Map{"error": err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, audbeacon.ErrUnknownBeaconType):
		return fiber.StatusBadRequest
	case errors.Is(err, audbeacon.ErrUnknownBeacon):
		return fiber.StatusNotFound
	case errors.Is(err, audbeacon.ErrUnknownEngine),
		errors.Is(err, audbeacon.ErrClosed),
		errors.Is(err, beacon.ErrEngineClosed):
		return fiber.StatusServiceUnavailable
	default:
		return fiber.StatusInternalServerError
	}
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", "port", s.cfg.Port)

	return s.app.Listen(fmt.Sprintf(":%d", s.cfg.Port))
}

// Serve serves on an existing listener.
func (s *Server) Serve(ln net.Listener) error {
	return s.app.Listener(ln)
}

// Shutdown closes every speech connection, which ends their beacons'
// streams, and stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")

	s.speech.Close()

	done := make(chan error, 1)
	go func() {
		done <- s.app.Shutdown()
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
