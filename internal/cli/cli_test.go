// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/invtui/internal/config"
	"github.com/jeranaias/invtui/internal/logging"
	"github.com/jeranaias/invtui/internal/model"
	"github.com/jeranaias/invtui/internal/server"
)

// =============================================================================
// HELPERS
// =============================================================================

// isolate points the config directory at a temp dir and clears environment
// overrides that could leak in from the host.
func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("INVTUI_HOME", home)
	for _, k := range []string{
		"API_AGENT", "VITE_API_AGENT", "API_DETAILS", "VITE_API_DETAILS",
		"INVTUI_TOKEN", "INVTUI_USER", "SPEECH_API_KEY", "ELEVENLABS_API_KEY",
		"SPEECH_LOCALE", "SPEECH_STT_URL", "SPEECH_AUTO", "INVTUI_LOG_FILE",
	} {
		t.Setenv(k, "")
	}
	t.Setenv("SPEECH_PROVIDER", "none")
	t.Setenv("INVTUI_LOG_LEVEL", "error")
	t.Setenv("COLUMNS", "120")
	ForceColorsEnabled(false)
	config.ResetGlobalForTesting()
	t.Cleanup(config.ResetGlobalForTesting)
	return home
}

func mockBackend(t *testing.T, style server.EnvelopeStyle) (*server.Server, string) {
	t.Helper()
	log, _ := test.NewNullLogger()
	srv := server.New(server.WithLogger(log), server.WithEnvelope(style))
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return srv, ts.URL
}

// execute runs the command tree with args and returns stdout and stderr.
func execute(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	root := NewRootCmd()
	root.SetArgs(args)
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetIn(strings.NewReader(stdin))
	err := root.Execute()
	return out.String(), errOut.String(), err
}

func decodeResponse(t *testing.T, out string, data any) JSONResponse {
	t.Helper()
	var raw struct {
		JSONResponse
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &raw), out)
	if data != nil && len(raw.Data) > 0 {
		require.NoError(t, json.Unmarshal(raw.Data, data))
	}
	return raw.JSONResponse
}

// =============================================================================
// AGENTS AND PRODUCTS
// =============================================================================

func TestAgentsCommand_JSON(t *testing.T) {
	isolate(t)
	srv, url := mockBackend(t, server.EnvelopeData)

	out, _, err := execute(t, "", "agents", "--json", "--agents-url", url)
	require.NoError(t, err)

	var data AgentsData
	resp := decodeResponse(t, out, &data)
	assert.True(t, resp.Success)
	assert.Equal(t, "agents", resp.Command)
	assert.Len(t, data.Agents, len(srv.Store().Agents()))
	assert.Equal(t, len(srv.Store().Agents()), data.Metrics.Total)
	assert.Equal(t, 1, data.Metrics.Alerts)
	assert.NotEmpty(t, data.Models)
}

func TestAgentsCommand_Table(t *testing.T) {
	isolate(t)
	srv, url := mockBackend(t, server.EnvelopeBare)

	out, _, err := execute(t, "", "agents", "--agents-url", url)
	require.NoError(t, err)
	assert.Contains(t, out, "Active agents")
	assert.Contains(t, out, "LAST ACTION")
	for _, a := range srv.Store().Agents() {
		assert.Contains(t, out, a.Name)
	}
}

func TestAgentsCommand_Failure(t *testing.T) {
	isolate(t)
	srv, url := mockBackend(t, server.EnvelopeBare)
	srv.Faults().Fail("/agents", 500)

	out, _, err := execute(t, "", "agents", "--json", "--agents-url", url)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Error loading agents")

	resp := decodeResponse(t, out, nil)
	assert.False(t, resp.Success)
	require.NotNil(t, resp.Error)
}

func TestProductsList_Search(t *testing.T) {
	isolate(t)
	_, url := mockBackend(t, server.EnvelopeDomain)

	out, _, err := execute(t, "", "products", "list", "--json", "--search", "ACCESS", "--details-url", url)
	require.NoError(t, err)

	var data ProductsData
	decodeResponse(t, out, &data)
	assert.Equal(t, 2, data.Shown)
	assert.Equal(t, 4, data.Total)
	for _, p := range data.Products {
		assert.Equal(t, "Accessories", p.Category)
	}

	out, _, err = execute(t, "", "products", "list", "-s", "phones", "--details-url", url)
	require.NoError(t, err)
	assert.Contains(t, out, "Showing 1 of 4 products")
	assert.Contains(t, out, "iPhone 15 Pro")
	assert.NotContains(t, out, "Magic Mouse")
}

func TestProductsAdd(t *testing.T) {
	isolate(t)
	srv, url := mockBackend(t, server.EnvelopeResult)

	out, _, err := execute(t, "", "products", "add", "--details-url", url,
		"--name", "Webcam", "--category", "Accessories", "--description", "1080p",
		"--stock", "3", "--stockMinimum", "5", "--price", "49.90", "--image", "cam.png")
	require.NoError(t, err)
	assert.Contains(t, out, "Created Webcam (5 products)")

	products := srv.Store().Products()
	require.Len(t, products, 5)
	assert.Equal(t, "Webcam", products[4].Name)
	assert.InDelta(t, 49.9, products[4].Price, 0.001)
	assert.Len(t, srv.Store().Alerts(), 2)
}

func TestProductsAdd_InvalidInput(t *testing.T) {
	isolate(t)
	srv, url := mockBackend(t, server.EnvelopeBare)

	_, _, err := execute(t, "", "products", "add", "--details-url", url,
		"--name", "Webcam", "--stock", "many")
	require.Error(t, err)

	var fields model.FieldErrors
	require.True(t, errors.As(err, &fields))
	assert.Len(t, srv.Store().Products(), 4)
}

// =============================================================================
// CHAT
// =============================================================================

func TestChat_PipedConversation(t *testing.T) {
	isolate(t)
	srv, url := mockBackend(t, server.EnvelopeBare)

	stdin := "How many Magic Mouse left?\n/speak\n/listen\n/history\n/quit\n"
	out, errOut, err := execute(t, stdin, "chat", "Inventory Agent", "--agents-url", url)
	require.NoError(t, err)

	assert.Contains(t, out, "Chat with Inventory Agent")
	assert.Contains(t, out, "Hi! I'm")
	assert.Contains(t, out, "Magic Mouse currently has 22 units")
	assert.Contains(t, out, "Speak replies: off")
	assert.Contains(t, errOut, "speech recognition is not available")
	assert.Contains(t, out, "you: How many Magic Mouse left?")
	assert.Equal(t, 1, srv.Store().ChatCount())
}

func TestChat_Resume(t *testing.T) {
	isolate(t)
	srv, url := mockBackend(t, server.EnvelopeBare)
	rec := srv.Store().CreateChat("dashboard", "inventory-agent-1", "Chat with Inventory Agent", []model.ChatTurn{
		{Role: model.RoleUser, Content: "restock the hubs"},
		{Role: model.RoleAssistant, Content: "Purchase order raised."},
	})

	out, _, err := execute(t, "Thanks\n", "chat", "Inventory Agent", "--resume", rec.ID, "--agents-url", url)
	require.NoError(t, err)
	assert.Contains(t, out, "#"+rec.ID)
	assert.Contains(t, out, "restock the hubs")
	assert.Contains(t, out, "Purchase order raised.")
	assert.NotContains(t, out, "Hi! I'm")

	got := srv.Store().Chat(rec.ID)
	require.NotNil(t, got)
	assert.Len(t, got.Messages, 4)
	assert.Equal(t, 1, srv.Store().ChatCount())
}

func TestChat_ResumeUnknownChat(t *testing.T) {
	isolate(t)
	_, url := mockBackend(t, server.EnvelopeBare)

	_, _, err := execute(t, "", "chat", "Inventory Agent", "--resume", "nope", "--agents-url", url)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load chat nope")
}

func TestScanReader_BlankLineAcceptsSuggestion(t *testing.T) {
	var out bytes.Buffer
	r := newScanReader(strings.NewReader("\ntyped\n"), &out)

	line, err := r.Prompt("you> ", "from voice")
	require.NoError(t, err)
	assert.Equal(t, "from voice", line)

	line, err = r.Prompt("you> ", "")
	require.NoError(t, err)
	assert.Equal(t, "typed", line)

	_, err = r.Prompt("you> ", "")
	assert.ErrorIs(t, err, io.EOF)
}

// =============================================================================
// SPEECH, CONFIG, SERVER AND VERSION
// =============================================================================

func TestSay_DisabledProvider(t *testing.T) {
	isolate(t)
	_, _, err := execute(t, "", "say", "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "speech is disabled")
}

func TestListen_DisabledProviderJSON(t *testing.T) {
	isolate(t)
	out, _, err := execute(t, "", "listen", "--json")
	require.Error(t, err)
	resp := decodeResponse(t, out, nil)
	assert.False(t, resp.Success)
	assert.Equal(t, "listen", resp.Command)
}

func TestConfigCommands(t *testing.T) {
	home := isolate(t)
	want := filepath.Join(home, "config.toml")

	out, _, err := execute(t, "", "config", "path")
	require.NoError(t, err)
	assert.Equal(t, want, strings.TrimSpace(out))

	out, _, err = execute(t, "", "config", "init")
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote "+want)
	info, err := os.Stat(want)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	_, _, err = execute(t, "", "config", "init")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--force")

	_, _, err = execute(t, "", "config", "init", "--force")
	require.NoError(t, err)

	out, _, err = execute(t, "", "config", "get", "ui.default_view")
	require.NoError(t, err)
	assert.Equal(t, "agents", strings.TrimSpace(out))

	t.Setenv("INVTUI_TOKEN", "s3cret")
	out, _, err = execute(t, "", "config", "show", "--json")
	require.NoError(t, err)
	assert.NotContains(t, out, "s3cret")
	assert.Contains(t, out, "[REDACTED]")
}

func TestConfig_InvalidFlagValue(t *testing.T) {
	isolate(t)
	_, _, err := execute(t, "", "config", "show", "--log-level", "loud")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid config")
}

func TestParseFault(t *testing.T) {
	path, status, err := parseFault("tasks=503")
	require.NoError(t, err)
	assert.Equal(t, "/tasks", path)
	assert.Equal(t, 503, status)

	for _, bad := range []string{"/tasks", "=500", "/tasks=200", "/tasks=abc"} {
		_, _, err := parseFault(bad)
		assert.Error(t, err, bad)
	}
}

func TestMockServerOptions_Build(t *testing.T) {
	isolate(t)
	opts := &rootOptions{}
	rt, err := opts.load(logging.ModeCLI)
	require.NoError(t, err)
	defer rt.Close()

	mo := &mockServerOptions{envelope: "domain", fail: []string{"/alerts=502"}}
	srv, err := mo.build(rt)
	require.NoError(t, err)

	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()
	resp, err := ts.Client().Get(ts.URL + "/alerts")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, 502, resp.StatusCode)

	mo.envelope = "xml"
	_, err = mo.build(rt)
	assert.Error(t, err)
}

func TestVersionCommand(t *testing.T) {
	isolate(t)
	out, _, err := execute(t, "", "version", "--json")
	require.NoError(t, err)

	var data VersionData
	resp := decodeResponse(t, out, &data)
	assert.True(t, resp.Success)
	assert.Equal(t, Version, data.Version)
	assert.NotEmpty(t, data.GoVersion)
}

func TestRootCommand_RequiresTTY(t *testing.T) {
	if IsTTY() {
		t.Skip("stdin is a terminal")
	}
	isolate(t)
	_, _, err := execute(t, "")
	var tty *TTYRequiredError
	require.True(t, errors.As(err, &tty))
	assert.Contains(t, err.Error(), "run the dashboard")
}
