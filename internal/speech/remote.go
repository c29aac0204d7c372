// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package speech

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/jeranaias/invtui/internal/config"
	"github.com/jeranaias/invtui/internal/envelope"
)

const (
	// maxAudioSize bounds a synthesized audio stream.
	maxAudioSize = 20 * 1024 * 1024

	remoteTimeout = 60 * time.Second
	apiKeyHeader  = "xi-api-key"
)

var playerCandidates = []string{"ffplay", "mpv", "mpg123", "afplay"}

// Doer sends HTTP requests. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

func newLimiter(rpm int) *rate.Limiter {
	if rpm <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(time.Minute/time.Duration(rpm)), 1)
}

func defaultDoer(c Doer) Doer {
	if c != nil {
		return c
	}
	return &http.Client{Timeout: remoteTimeout}
}

// playerArgs returns the arguments to play path once without a window.
func playerArgs(program, path string) []string {
	switch filepath.Base(program) {
	case "ffplay":
		return []string{"-nodisp", "-autoexit", "-loglevel", "quiet", path}
	case "mpv":
		return []string{"--no-video", "--really-quiet", path}
	case "mpg123":
		return []string{"-q", path}
	default:
		return []string{path}
	}
}

// =============================================================================
// REMOTE SPEAKER
// =============================================================================

// RemoteSpeaker synthesizes with a text-to-speech API and plays the buffered
// audio with a local player.
type RemoteSpeaker struct {
	client  Doer
	runner  Runner
	player  string
	baseURL string
	apiKey  string
	voiceID string
	modelID string
	limiter *rate.Limiter
	log     logrus.FieldLogger

	play exclusive
}

// NewRemoteSpeaker creates a remote speaker. A nil client uses a default
// http.Client.
func NewRemoteSpeaker(cfg config.SpeechConfig, r Runner, client Doer, log logrus.FieldLogger) *RemoteSpeaker {
	return &RemoteSpeaker{
		client:  defaultDoer(client),
		runner:  r,
		player:  firstAvailable(r, cfg.Player, playerCandidates...),
		baseURL: strings.TrimRight(cfg.TTSURL, "/"),
		apiKey:  cfg.APIKey,
		voiceID: cfg.VoiceID,
		modelID: cfg.ModelID,
		limiter: newLimiter(cfg.RequestsPerMinute),
		log:     log,
	}
}

// Available reports whether the speaker is configured and can play audio.
func (s *RemoteSpeaker) Available() bool {
	return s.apiKey != "" && s.baseURL != "" && s.player != ""
}

// Speak implements Speaker.
func (s *RemoteSpeaker) Speak(ctx context.Context, text string) error {
	if !s.Available() {
		s.log.Warn("remote speech synthesis is not configured")
		return ErrUnavailable
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	pctx, done := s.play.begin(ctx)
	defer done()

	path, err := s.synthesize(pctx, text)
	if err != nil {
		return playResult(pctx, err)
	}
	// The buffered audio lives only as long as its playback.
	defer os.Remove(path)

	return playResult(pctx, s.runner.Run(pctx, s.player, playerArgs(s.player, path)...))
}

func (s *RemoteSpeaker) synthesize(ctx context.Context, text string) (string, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return "", err
	}

	body, err := json.Marshal(map[string]string{"text": text, "model_id": s.modelID})
	if err != nil {
		return "", err
	}
	url := fmt.Sprintf("%s/v1/text-to-speech/%s/stream", s.baseURL, s.voiceID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/mpeg")
	req.Header.Set(apiKeyHeader, s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("speech request failed: %d %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	}

	f, err := os.CreateTemp("", "invtui-tts-*.mp3")
	if err != nil {
		return "", fmt.Errorf("create audio file: %w", err)
	}
	_, err = io.Copy(f, io.LimitReader(resp.Body, maxAudioSize))
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("buffer audio: %w", err)
	}
	return f.Name(), nil
}

// Stop implements Speaker.
func (s *RemoteSpeaker) Stop() error {
	s.play.stop()
	return nil
}

// Speaking implements Speaker.
func (s *RemoteSpeaker) Speaking() bool {
	return s.play.active()
}

// =============================================================================
// REMOTE LISTENER
// =============================================================================

// RemoteListener records locally and transcribes with a speech-to-text API.
type RemoteListener struct {
	client   Doer
	runner   Runner
	recorder string
	url      string
	apiKey   string
	locale   string
	limiter  *rate.Limiter
	log      logrus.FieldLogger
}

// NewRemoteListener creates a remote listener.
func NewRemoteListener(cfg config.SpeechConfig, r Runner, client Doer, log logrus.FieldLogger) *RemoteListener {
	return &RemoteListener{
		client:   defaultDoer(client),
		runner:   r,
		recorder: firstAvailable(r, cfg.Recorder, recorderCandidates...),
		url:      cfg.STTURL,
		apiKey:   cfg.APIKey,
		locale:   cfg.Locale,
		limiter:  newLimiter(cfg.RequestsPerMinute),
		log:      log,
	}
}

// Available reports whether the listener can record and is configured.
func (l *RemoteListener) Available() bool {
	return l.recorder != "" && l.url != "" && l.apiKey != ""
}

// Listen implements Listener.
func (l *RemoteListener) Listen(ctx context.Context, onResult func(string), onError func(string)) Handle {
	if !l.Available() {
		msg := "speech recognition is not available"
		l.log.Warn(msg)
		onError(msg)
		return nil
	}

	stopCtx, cancel := context.WithCancel(ctx)
	h := &captureHandle{cancel: cancel}
	go func() {
		defer h.Stop()
		path, err := record(ctx, stopCtx, l.runner, l.recorder)
		if err != nil {
			onError(err.Error())
			return
		}
		defer os.Remove(path)

		audio, err := os.ReadFile(path)
		if err != nil {
			onError(err.Error())
			return
		}
		text, err := l.transcribe(ctx, audio)
		if err != nil {
			l.log.WithError(err).Warn("speech recognition failed")
			onError(err.Error())
			return
		}
		onResult(text)
	}()
	return h
}

func (l *RemoteListener) transcribe(ctx context.Context, audio []byte) (string, error) {
	if err := l.limiter.Wait(ctx); err != nil {
		return "", err
	}
	body, err := json.Marshal(map[string]string{
		"audio":    base64.StdEncoding.EncodeToString(audio),
		"language": l.locale,
	})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, l.url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(apiKeyHeader, l.apiKey)

	resp, err := l.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("speech recognition request failed: %d %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	}

	env := envelope.Decode(raw)
	for _, key := range []string{"text", "transcript"} {
		if s, ok := env.Field(key).(string); ok {
			return strings.TrimSpace(s), nil
		}
	}
	return "", fmt.Errorf("speech recognition returned no transcript")
}
