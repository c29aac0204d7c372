// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package speech

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/invtui/internal/config"
)

// fakeRunner pretends a fixed set of programs is installed.
type fakeRunner struct {
	installed map[string]bool
	onRun     func(ctx context.Context, name string, args []string) error
	output    map[string][]byte

	mu    sync.Mutex
	calls []string
}

func newFakeRunner(programs ...string) *fakeRunner {
	f := &fakeRunner{installed: map[string]bool{}, output: map[string][]byte{}}
	for _, p := range programs {
		f.installed[p] = true
	}
	return f
}

func (f *fakeRunner) LookPath(name string) (string, error) {
	if f.installed[name] {
		return "/usr/bin/" + name, nil
	}
	return "", errors.New("not found")
}

func (f *fakeRunner) Run(ctx context.Context, name string, args ...string) error {
	f.mu.Lock()
	f.calls = append(f.calls, filepath.Base(name))
	f.mu.Unlock()
	if f.onRun != nil {
		return f.onRun(ctx, filepath.Base(name), args)
	}
	return nil
}

func (f *fakeRunner) Output(ctx context.Context, name string, args ...string) ([]byte, error) {
	f.mu.Lock()
	f.calls = append(f.calls, filepath.Base(name))
	f.mu.Unlock()
	return f.output[filepath.Base(name)], nil
}

func testCfg() config.SpeechConfig {
	return config.Default().Speech
}

// =============================================================================
// VOICES
// =============================================================================

func TestSelectVoice(t *testing.T) {
	voices := []Voice{
		{Name: "Samantha", Lang: "en_US"},
		{Name: "Jorge", Lang: "es_ES"},
		{Name: "Paulina", Lang: "es_MX"},
		{Name: "Amelie female", Lang: "fr-CA"},
	}

	v, ok := SelectVoice(voices, "es-ES")
	require.True(t, ok)
	assert.Equal(t, "Paulina", v.Name, "base language match is enough")

	_, ok = SelectVoice(voices, "en-US")
	assert.False(t, ok, "no English voice carries a preferred name")

	v, ok = SelectVoice(voices, "fr")
	require.True(t, ok)
	assert.Equal(t, "Amelie female", v.Name)

	_, ok = SelectVoice(voices, "not a locale!")
	assert.False(t, ok)
}

func TestParseVoices(t *testing.T) {
	espeak := []byte("Pty Language       Age/Gender VoiceName          File          Other Languages\n" +
		" 5  es              --/M      Spanish_(Spain)    roa/es\n" +
		" 5  es-419          --/F      Spanish_(Latin)    roa/es-419\n")
	voices := parseEspeakVoices(espeak)
	require.Len(t, voices, 2)
	assert.Equal(t, "es-419", voices[1].Lang)
	assert.Contains(t, voices[1].Name, "female")

	say := []byte("Monica              es_ES    # Hola, me llamo Mónica.\nGood News           en_US    # Hello\n")
	voices = parseSayVoices(say)
	require.Len(t, voices, 2)
	assert.Equal(t, Voice{Name: "Monica", Lang: "es_ES"}, voices[0])
	assert.Equal(t, "Good News", voices[1].Name)
}

func TestEstimateDuration(t *testing.T) {
	assert.Equal(t, time.Second, EstimateDuration("hi"))
	assert.Greater(t, EstimateDuration(strings.Repeat("ñ", 100)), time.Second)
}

// =============================================================================
// LOCAL PROVIDER
// =============================================================================

func TestLocalSpeaker_Unavailable(t *testing.T) {
	log, _ := test.NewNullLogger()
	s := NewLocalSpeaker(testCfg(), newFakeRunner(), log)
	assert.False(t, s.Available())
	assert.ErrorIs(t, s.Speak(context.Background(), "hola"), ErrUnavailable)
}

func TestLocalSpeaker_NewPlaybackCancelsPrevious(t *testing.T) {
	log, _ := test.NewNullLogger()
	r := newFakeRunner("espeak-ng")
	started := make(chan string, 2)
	r.onRun = func(ctx context.Context, name string, args []string) error {
		started <- args[len(args)-1]
		<-ctx.Done()
		return ctx.Err()
	}
	s := NewLocalSpeaker(testCfg(), r, log)

	first := make(chan error, 1)
	go func() { first <- s.Speak(context.Background(), "uno") }()
	require.Equal(t, "uno", <-started)
	assert.True(t, s.Speaking())

	second := make(chan error, 1)
	go func() { second <- s.Speak(context.Background(), "dos") }()

	select {
	case err := <-first:
		assert.ErrorIs(t, err, ErrCancelled)
	case <-time.After(2 * time.Second):
		t.Fatal("first playback was not cancelled")
	}
	require.Equal(t, "dos", <-started)
	assert.True(t, s.Speaking())

	require.NoError(t, s.Stop())
	select {
	case err := <-second:
		assert.ErrorIs(t, err, ErrCancelled)
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not end playback")
	}
	assert.Eventually(t, func() bool { return !s.Speaking() }, time.Second, 10*time.Millisecond)
}

func TestLocalListener_Unavailable(t *testing.T) {
	log, _ := test.NewNullLogger()
	l := NewLocalListener(testCfg(), newFakeRunner(), log)

	var msg string
	h := l.Listen(context.Background(), func(string) { t.Error("unexpected result") }, func(m string) { msg = m })
	assert.Nil(t, h)
	assert.Contains(t, msg, "not available")
}

func TestLocalListener_CapturesWithinLimit(t *testing.T) {
	log, _ := test.NewNullLogger()
	r := newFakeRunner("arecord", "whisper-cli")
	r.output["whisper-cli"] = []byte("  hola   mundo \n")

	var (
		deadline time.Time
		captured string
	)
	r.onRun = func(ctx context.Context, name string, args []string) error {
		deadline, _ = ctx.Deadline()
		captured = args[len(args)-1]
		return os.WriteFile(captured, []byte("RIFF"), 0o600)
	}
	l := NewLocalListener(testCfg(), r, log)

	result := make(chan string, 1)
	start := time.Now()
	h := l.Listen(context.Background(), func(s string) { result <- s }, func(m string) { t.Errorf("error: %s", m) })
	require.NotNil(t, h)

	select {
	case got := <-result:
		assert.Equal(t, "hola mundo", got)
	case <-time.After(2 * time.Second):
		t.Fatal("no transcript")
	}
	assert.False(t, deadline.IsZero(), "capture must carry a deadline")
	assert.LessOrEqual(t, deadline.Sub(start), CaptureLimit+100*time.Millisecond)
	assert.Eventually(t, func() bool {
		_, err := os.Stat(captured)
		return os.IsNotExist(err)
	}, time.Second, 10*time.Millisecond, "capture file should be removed")
}

// =============================================================================
// REMOTE PROVIDER
// =============================================================================

func TestRemoteSpeaker_StreamsAndRemovesAudio(t *testing.T) {
	log, _ := test.NewNullLogger()
	var got map[string]string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/text-to-speech/voice-1/stream", r.URL.Path)
		assert.Equal(t, "secret", r.Header.Get("xi-api-key"))
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &got)
		w.Header().Set("Content-Type", "audio/mpeg")
		_, _ = w.Write([]byte("ID3-audio"))
	}))
	defer ts.Close()

	cfg := testCfg()
	cfg.Provider = config.ProviderRemote
	cfg.APIKey = "secret"
	cfg.VoiceID = "voice-1"
	cfg.TTSURL = ts.URL + "/"

	r := newFakeRunner("mpv")
	var played string
	r.onRun = func(ctx context.Context, name string, args []string) error {
		played = args[len(args)-1]
		data, err := os.ReadFile(played)
		require.NoError(t, err)
		assert.Equal(t, "ID3-audio", string(data))
		return nil
	}

	s := NewRemoteSpeaker(cfg, r, ts.Client(), log)
	require.True(t, s.Available())
	require.NoError(t, s.Speak(context.Background(), "Hay 12 unidades"))

	assert.Equal(t, "Hay 12 unidades", got["text"])
	assert.Equal(t, cfg.ModelID, got["model_id"])
	_, err := os.Stat(played)
	assert.True(t, os.IsNotExist(err), "audio file should be removed after playback")
}

func TestRemoteSpeaker_HTTPFailure(t *testing.T) {
	log, _ := test.NewNullLogger()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer ts.Close()

	cfg := testCfg()
	cfg.APIKey = "bad"
	cfg.TTSURL = ts.URL
	s := NewRemoteSpeaker(cfg, newFakeRunner("ffplay"), ts.Client(), log)

	err := s.Speak(context.Background(), "hola")
	require.Error(t, err)
	assert.Equal(t, "speech request failed: 401 Unauthorized", err.Error())
}

func TestRemoteSpeaker_UnavailableWithoutKey(t *testing.T) {
	log, _ := test.NewNullLogger()
	s := NewRemoteSpeaker(testCfg(), newFakeRunner("ffplay"), nil, log)
	assert.ErrorIs(t, s.Speak(context.Background(), "hola"), ErrUnavailable)
}

func TestRemoteListener_Transcribes(t *testing.T) {
	log, _ := test.NewNullLogger()
	var got map[string]string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &got)
		_, _ = w.Write([]byte(`{"transcript":" cuántos quedan "}`))
	}))
	defer ts.Close()

	cfg := testCfg()
	cfg.APIKey = "secret"
	cfg.STTURL = ts.URL

	r := newFakeRunner("arecord")
	r.onRun = func(ctx context.Context, name string, args []string) error {
		return os.WriteFile(args[len(args)-1], []byte("wave"), 0o600)
	}
	l := NewRemoteListener(cfg, r, ts.Client(), log)

	result := make(chan string, 1)
	h := l.Listen(context.Background(), func(s string) { result <- s }, func(m string) { t.Errorf("error: %s", m) })
	require.NotNil(t, h)

	select {
	case text := <-result:
		assert.Equal(t, "cuántos quedan", text)
	case <-time.After(2 * time.Second):
		t.Fatal("no transcript")
	}
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("wave")), got["audio"])
	assert.Equal(t, "es-ES", got["language"])
}

// =============================================================================
// BRIDGE
// =============================================================================

func TestNewBridge_Providers(t *testing.T) {
	log, _ := test.NewNullLogger()
	r := newFakeRunner()

	cfg := testCfg()
	cfg.Provider = config.ProviderNone
	b := NewBridge(cfg, WithRunner(r), WithLogger(log))
	assert.False(t, b.Enabled())

	cfg.Provider = config.ProviderRemote
	b = NewBridge(cfg, WithRunner(r), WithLogger(log))
	assert.IsType(t, &RemoteSpeaker{}, b.Speaker)
	assert.IsType(t, &RemoteListener{}, b.Listener)

	cfg.Provider = ""
	b = NewBridge(cfg, WithRunner(r), WithLogger(log))
	assert.Equal(t, config.ProviderLocal, b.Provider)
	assert.IsType(t, &LocalSpeaker{}, b.Speaker)
}
