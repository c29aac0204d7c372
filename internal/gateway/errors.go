// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package gateway

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
)

var (
	// ErrNotConfigured is returned when a client has no base URL.
	ErrNotConfigured = errors.New("base URL not configured")

	// ErrTransport matches any TransportError via errors.Is.
	ErrTransport = errors.New("transport failure")
)

// RequestError is returned when the server answered with a non-success
// status.
type RequestError struct {
	Facility   string
	StatusCode int
	StatusText string
	Body       []byte
}

// newRequestError takes the reason phrase from the status line the server
// sent, so codes without a registered text keep theirs.
func newRequestError(facility string, code int, status string, body []byte) *RequestError {
	text := strings.TrimSpace(strings.TrimPrefix(status, strconv.Itoa(code)))
	if text == "" {
		text = http.StatusText(code)
	}
	return &RequestError{
		Facility:   facility,
		StatusCode: code,
		StatusText: text,
		Body:       body,
	}
}

// Error returns "<facility> request failed: <status> <statusText>", or
// without the text when the server sent none.
func (e *RequestError) Error() string {
	if e.StatusText == "" {
		return fmt.Sprintf("%s request failed: %d", e.Facility, e.StatusCode)
	}
	return fmt.Sprintf("%s request failed: %d %s", e.Facility, e.StatusCode, e.StatusText)
}

// TransportError wraps a failure where no response was received. Its
// message is the underlying error's message unchanged.
type TransportError struct {
	Facility string
	Err      error
}

func (e *TransportError) Error() string {
	return e.Err.Error()
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is(err, ErrTransport) match.
func (e *TransportError) Is(target error) bool {
	return target == ErrTransport
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var re *RequestError
	if errors.As(err, &re) {
		return re.StatusCode
	}
	return 0
}
