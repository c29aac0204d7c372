// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

// ============================================================================
// FAULT INJECTION
// ============================================================================

// Faults maps request paths to a forced HTTP status, so demos and tests can
// exercise partial failures (for example /tasks failing while /agents
// works).
type Faults struct {
	mu     sync.RWMutex
	status map[string]int
}

// NewFaults returns an empty fault table.
func NewFaults() *Faults {
	return &Faults{status: make(map[string]int)}
}

// Fail makes every request to path answer with status.
func (f *Faults) Fail(path string, status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.status[path] = status
}

// Clear removes the fault for path.
func (f *Faults) Clear(path string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.status, path)
}

func (f *Faults) lookup(path string) (int, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	code, ok := f.status[path]
	return code, ok
}

func faultInjection(f *Faults) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if code, ok := f.lookup(c.Request().URL.Path); ok {
				return c.JSON(code, map[string]string{"error": http.StatusText(code)})
			}
			return next(c)
		}
	}
}

// ============================================================================
// LATENCY
// ============================================================================

func latency(d time.Duration) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if d <= 0 {
				return next(c)
			}
			select {
			case <-time.After(d):
			case <-c.Request().Context().Done():
				return c.Request().Context().Err()
			}
			return next(c)
		}
	}
}

// ============================================================================
// REQUEST LOGGING
// ============================================================================

func requestLogger(log logrus.FieldLogger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}
			req := c.Request()
			log.WithFields(logrus.Fields{
				"method":      req.Method,
				"path":        req.URL.Path,
				"status":      c.Response().Status,
				"duration_ms": time.Since(start).Milliseconds(),
				"client_ip":   c.RealIP(),
			}).Info("request")
			return nil
		}
	}
}
