// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Thermoquad/benystat/pkg/beny"
	"github.com/Thermoquad/benystat/pkg/charger"
)

const maxHistoryLimit = 1000

func (s *Server) handleHealth(c *gin.Context) {
	status, polledAt, err := s.snapshot.Get()
	if status == nil {
		msg := "waiting for first poll"
		if err != nil {
			msg = err.Error()
		}
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": msg})
		return
	}

	body := gin.H{
		"status":    "ok",
		"polled_at": polledAt.UTC().Format(time.RFC3339),
	}
	if err != nil {
		body["status"] = "degraded"
		body["error"] = err.Error()
	}
	c.JSON(http.StatusOK, body)
}

func (s *Server) handleStatus(c *gin.Context) {
	status, _, err := s.snapshot.Get()
	if status == nil {
		msg := "no status received yet"
		if err != nil {
			msg = err.Error()
		}
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": msg})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"serial": s.snapshot.Serial(),
		"status": status,
		"stale":  err != nil,
	})
}

func (s *Server) handleHistory(c *gin.Context) {
	if s.history == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "history is not enabled"})
		return
	}

	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit <= 0 || limit > maxHistoryLimit {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be between 1 and 1000"})
		return
	}

	entries, err := s.history.Recent(c.Request.Context(), s.snapshot.Serial(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	statuses := make([]charger.Status, 0, len(entries))
	for _, e := range entries {
		statuses = append(statuses, e.Status)
	}
	c.JSON(http.StatusOK, gin.H{
		"entries": statuses,
		"total":   len(statuses),
	})
}

func (s *Server) handleStats(c *gin.Context) {
	if s.controller == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no client"})
		return
	}
	stats := s.controller.Statistics().Snapshot()
	c.JSON(http.StatusOK, gin.H{
		"total_messages":     stats.TotalMessages,
		"valid_messages":     stats.ValidMessages,
		"checksum_errors":    stats.ChecksumErrors,
		"unknown_types":      stats.UnknownTypes,
		"malformed_messages": stats.MalformedMessages,
		"field_errors":       stats.FieldErrors,
		"access_denied":      stats.AccessDenied,
	})
}

func (s *Server) handleStart(c *gin.Context) {
	s.respondCommand(c, "start", s.controller.StartCharging(c.Request.Context()))
}

func (s *Server) handleStop(c *gin.Context) {
	s.respondCommand(c, "stop", s.controller.StopCharging(c.Request.Context()))
}

type maxCurrentRequest struct {
	Amps int `json:"amps" binding:"required"`
}

func (s *Server) handleMaxCurrent(c *gin.Context) {
	var req maxCurrentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "body must be {\"amps\": N}"})
		return
	}
	s.respondCommand(c, "max-current", s.controller.SetMaxCurrent(c.Request.Context(), req.Amps))
}

func (s *Server) respondCommand(c *gin.Context, name string, err error) {
	if err == nil {
		s.logger.Info().Str("command", name).Str("client_ip", c.ClientIP()).Msg("command sent")
		c.JSON(http.StatusOK, gin.H{"result": "ok"})
		return
	}

	s.logger.Warn().Err(err).Str("command", name).Msg("command failed")
	c.JSON(statusForError(err), gin.H{"error": err.Error()})
}

// statusForError maps client errors to HTTP status codes
func statusForError(err error) int {
	switch {
	case errors.Is(err, charger.ErrInvalidCurrent), errors.Is(err, charger.ErrOutOfRange):
		return http.StatusBadRequest
	case errors.Is(err, charger.ErrAccessDenied):
		return http.StatusForbidden
	case errors.Is(err, charger.ErrUnplugged):
		return http.StatusConflict
	case errors.Is(err, charger.ErrTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, beny.ErrChecksumMismatch), errors.Is(err, beny.ErrUnknownMessageType),
		errors.Is(err, beny.ErrMalformedHex):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
