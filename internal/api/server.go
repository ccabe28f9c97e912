// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package api serves the monitor's HTTP endpoints: current status, history,
// Prometheus metrics and optional charger control.
package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/Thermoquad/benystat/internal/config"
	"github.com/Thermoquad/benystat/internal/history"
	"github.com/Thermoquad/benystat/internal/metrics"
	"github.com/Thermoquad/benystat/pkg/beny"
)

// Controller is the subset of the charger client the control routes use
type Controller interface {
	StartCharging(ctx context.Context) error
	StopCharging(ctx context.Context) error
	SetMaxCurrent(ctx context.Context, amps int) error
	Statistics() *beny.Statistics
}

// Server is the monitor HTTP server
type Server struct {
	cfg        config.MonitorConfig
	snapshot   *Snapshot
	controller Controller
	metrics    *metrics.Metrics
	history    *history.Store
	logger     zerolog.Logger

	router     *gin.Engine
	httpServer *http.Server
}

// Options carries the server dependencies. History and Metrics are optional.
type Options struct {
	Snapshot   *Snapshot
	Controller Controller
	Metrics    *metrics.Metrics
	History    *history.Store
	Logger     zerolog.Logger
}

// NewServer builds the router
func NewServer(cfg config.MonitorConfig, opts Options) *Server {
	if opts.Logger.GetLevel() == zerolog.DebugLevel || opts.Logger.GetLevel() == zerolog.TraceLevel {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		cfg:        cfg,
		snapshot:   opts.Snapshot,
		controller: opts.Controller,
		metrics:    opts.Metrics,
		history:    opts.History,
		logger:     opts.Logger.With().Str("component", "api").Logger(),
	}
	s.router = s.buildRouter()
	return s
}

// Handler exposes the router
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start listens on the configured address and serves until ctx is done
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Listen)
	if err != nil {
		return fmt.Errorf("API server error: %w", err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on an existing listener until ctx is done
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.httpServer = &http.Server{
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	s.logger.Info().Str("addr", ln.Addr().String()).Msg("HTTP API starting")

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.httpServer.Shutdown(shutdownCtx)
	}()

	if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("API server error: %w", err)
	}
	return nil
}

func (s *Server) buildRouter() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(RequestLogger(s.logger))

	if len(s.cfg.AllowedOrigins) > 0 {
		router.Use(cors.New(cors.Config{
			AllowOrigins:  s.cfg.AllowedOrigins,
			AllowMethods:  []string{"GET", "POST", "PUT", "OPTIONS"},
			AllowHeaders:  []string{"Origin", "Content-Type"},
			ExposeHeaders: []string{"Content-Length"},
			MaxAge:        12 * time.Hour,
		}))
	}

	router.GET("/healthz", s.handleHealth)
	if s.metrics != nil {
		router.GET("/metrics", gin.WrapH(s.metrics.Handler()))
	}

	api := router.Group("/api")
	{
		api.GET("/status", s.handleStatus)
		api.GET("/history", s.handleHistory)
		api.GET("/stats", s.handleStats)
	}

	if s.cfg.EnableControl && s.controller != nil {
		control := api.Group("/control")
		{
			control.POST("/start", s.handleStart)
			control.POST("/stop", s.handleStop)
			control.PUT("/max-current", s.handleMaxCurrent)
		}
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "endpoint not found"})
	})

	return router
}

// RequestLogger logs every request at debug level
func RequestLogger(logger zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		logger.Debug().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("duration", time.Since(start)).
			Str("client_ip", c.ClientIP()).
			Msg("api request")
	}
}
