// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package logging builds the zerolog loggers handed to every component.
package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Config holds logger settings
type Config struct {
	Level string
	JSON  bool

	// File, when set, receives JSON lines in addition to the console output
	File string
}

// New creates a logger writing to w. Console output is human readable;
// JSON output is one object per line. Unknown levels fall back to info.
func New(cfg Config, w io.Writer) (zerolog.Logger, io.Closer, error) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}

	var out io.Writer = w
	if !cfg.JSON {
		out = zerolog.ConsoleWriter{
			Out:        w,
			TimeFormat: "15:04:05",
		}
	}

	var closer io.Closer = nopCloser{}
	if cfg.File != "" {
		f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return zerolog.Nop(), nil, err
		}
		out = zerolog.MultiLevelWriter(out, f)
		closer = f
	}

	logger := zerolog.New(out).
		Level(level).
		With().
		Timestamp().
		Str("app", "benystat").
		Logger()

	return logger, closer, nil
}

// Component returns a child logger tagged with a component name
func Component(logger zerolog.Logger, name string) zerolog.Logger {
	return logger.With().Str("component", name).Logger()
}

func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
