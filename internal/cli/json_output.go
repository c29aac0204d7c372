// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// json_output.go - JSON output for scripted use.
//
// Every command that takes --json prints one JSONResponse to stdout;
// human-readable messages go to stderr in that mode.

package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	chromaStyles "github.com/alecthomas/chroma/v2/styles"

	"github.com/jeranaias/invtui/internal/dashboard"
	"github.com/jeranaias/invtui/internal/model"
)

// JSONResponse is the response envelope for every --json command.
type JSONResponse struct {
	// Success indicates whether the command completed successfully
	Success bool `json:"success"`

	// Data contains the command-specific response data
	Data interface{} `json:"data"`

	// Error contains the error message if Success is false, null otherwise
	Error *string `json:"error"`

	// Timestamp is the RFC 3339 time the response was generated
	Timestamp string `json:"timestamp"`

	// Command is the command that was executed
	Command string `json:"command,omitempty"`
}

// NewJSONResponse creates a new successful JSON response.
func NewJSONResponse(command string, data interface{}) *JSONResponse {
	return &JSONResponse{
		Success:   true,
		Data:      data,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Command:   command,
	}
}

// NewJSONErrorResponse creates a new error JSON response.
func NewJSONErrorResponse(command string, err error) *JSONResponse {
	errStr := err.Error()
	return &JSONResponse{
		Success:   false,
		Error:     &errStr,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Command:   command,
	}
}

// Write prints the response indented. With color set, the JSON is syntax
// highlighted for a terminal.
func (r *JSONResponse) Write(w io.Writer, color bool) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal response: %w", err)
	}
	data = append(data, '\n')
	if color {
		if err := highlightJSON(w, string(data)); err == nil {
			return nil
		}
	}
	_, err = w.Write(data)
	return err
}

// String returns the JSON response as a string.
func (r *JSONResponse) String() string {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Sprintf(`{"success":false,"error":"failed to marshal response: %s","timestamp":"%s"}`,
			err.Error(), time.Now().UTC().Format(time.RFC3339))
	}
	return string(data)
}

// OutputJSON runs handler and, in JSON mode, prints its result or error as
// a JSONResponse. Outside JSON mode the handler prints for itself.
func OutputJSON(w io.Writer, jsonMode bool, command string, handler func() (interface{}, error)) error {
	if !jsonMode {
		_, err := handler()
		return err
	}

	data, err := handler()
	if err != nil {
		_ = NewJSONErrorResponse(command, err).Write(w, ColorsEnabled())
		return err
	}
	return NewJSONResponse(command, data).Write(w, ColorsEnabled())
}

func highlightJSON(w io.Writer, src string) error {
	lexer := lexers.Get("json")
	if lexer == nil {
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)

	style := chromaStyles.Get("monokai")
	if style == nil {
		style = chromaStyles.Fallback
	}
	formatter := formatters.Get("terminal256")
	if formatter == nil {
		formatter = formatters.Fallback
	}

	iterator, err := lexer.Tokenise(nil, src)
	if err != nil {
		return err
	}
	return formatter.Format(w, style, iterator)
}

// =============================================================================
// COMMAND-SPECIFIC DATA STRUCTURES
// =============================================================================

// AgentsData is returned by the agents command.
type AgentsData struct {
	Agents  []model.Agent          `json:"agents"`
	Metrics dashboard.AgentMetrics `json:"metrics"`
	Models  []string               `json:"models"`
}

// ProductsData is returned by the products list command.
type ProductsData struct {
	Products []model.Product `json:"products"`
	Shown    int             `json:"shown"`
	Total    int             `json:"total"`
	Units    int             `json:"units"`
	LowStock int             `json:"low_stock"`
	Value    float64         `json:"value"`
}

// ProductCreatedData is returned by the products add command.
type ProductCreatedData struct {
	Product model.ProductInput `json:"product"`
}

// VersionData represents the data returned by the version command.
type VersionData struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version,omitempty"`
}

// TranscriptData is returned by the listen command.
type TranscriptData struct {
	Text string `json:"text"`
}
