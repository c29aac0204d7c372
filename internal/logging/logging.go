// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package logging configures the process logger.
//
// The TUI owns the terminal while it runs, so log output goes to a file in
// that mode. CLI commands log to stderr.
package logging

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/jeranaias/invtui/internal/config"
)

// Mode selects where log output goes.
type Mode int

const (
	// ModeCLI writes to stderr.
	ModeCLI Mode = iota
	// ModeTUI writes to the configured log file, or discards output when no
	// file can be opened.
	ModeTUI
)

// Setup configures the standard logrus logger from cfg and returns it along
// with a closer for any opened file.
func Setup(cfg config.LogConfig, mode Mode) (*logrus.Logger, io.Closer, error) {
	logger := logrus.StandardLogger()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: time.RFC3339,
	})
	logger.SetLevel(ParseLevel(cfg.Level))

	if mode == ModeCLI {
		logger.SetOutput(os.Stderr)
		return logger, nopCloser{}, nil
	}

	path := cfg.File
	if path == "" {
		p, err := config.DefaultLogPath()
		if err != nil {
			logger.SetOutput(io.Discard)
			return logger, nopCloser{}, err
		}
		path = p
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		logger.SetOutput(io.Discard)
		return logger, nopCloser{}, err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		logger.SetOutput(io.Discard)
		return logger, nopCloser{}, err
	}
	logger.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339})
	logger.SetOutput(f)
	return logger, f, nil
}

// ParseLevel maps a level name to a logrus level, defaulting to info.
func ParseLevel(level string) logrus.Level {
	switch strings.ToLower(level) {
	case "trace":
		return logrus.TraceLevel
	case "debug":
		return logrus.DebugLevel
	case "warn", "warning":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}

// Component returns a logger tagged with a component name.
func Component(name string) logrus.FieldLogger {
	return logrus.StandardLogger().WithField("component", name)
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
