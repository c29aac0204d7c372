// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package speech provides spoken replies and voice capture.
//
// Two providers exist: a local one driving on-device programs (espeak-ng,
// espeak, say, whisper-cli) and a remote one talking to an ElevenLabs style
// HTTP API. Both implement the Speaker and Listener interfaces, so callers
// never care which one is active.
package speech

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/sirupsen/logrus"

	"github.com/jeranaias/invtui/internal/config"
)

// =============================================================================
// INTERFACES
// =============================================================================

// Speaker plays text aloud. Speak blocks until playback ends or is cancelled;
// starting a new playback cancels the previous one.
type Speaker interface {
	Speak(ctx context.Context, text string) error
	Stop() error
	Speaking() bool
}

// Listener captures one utterance and transcribes it. Exactly one of
// onResult or onError is called per started session. A nil Handle means no
// session was started.
type Listener interface {
	Listen(ctx context.Context, onResult func(string), onError func(string)) Handle
}

// Handle controls an active capture session.
type Handle interface {
	Stop()
}

// =============================================================================
// ERRORS AND CONSTANTS
// =============================================================================

var (
	// ErrUnavailable is returned when the capability is missing on this host
	// or not configured.
	ErrUnavailable = errors.New("speech synthesis is not available")

	// ErrCancelled is returned by Speak when a newer playback or Stop
	// interrupted it.
	ErrCancelled = errors.New("playback cancelled")
)

// CaptureLimit is the longest a single voice capture runs before it is
// stopped automatically.
const CaptureLimit = 5 * time.Second

const (
	msPerRune   = 70 * time.Millisecond
	minDuration = time.Second
)

// EstimateDuration approximates how long text takes to speak.
func EstimateDuration(text string) time.Duration {
	d := time.Duration(utf8.RuneCountInString(strings.TrimSpace(text))) * msPerRune
	if d < minDuration {
		return minDuration
	}
	return d
}

// =============================================================================
// BRIDGE
// =============================================================================

// Bridge bundles the speaker and listener of the configured provider. Either
// may be nil when the provider is "none".
type Bridge struct {
	Provider string
	Speaker  Speaker
	Listener Listener
}

// Enabled reports whether any speech capability is wired.
func (b *Bridge) Enabled() bool {
	return b != nil && (b.Speaker != nil || b.Listener != nil)
}

type bridgeOptions struct {
	runner Runner
	log    logrus.FieldLogger
	client Doer
}

// BridgeOption configures NewBridge.
type BridgeOption func(*bridgeOptions)

// WithRunner replaces the process runner.
func WithRunner(r Runner) BridgeOption {
	return func(o *bridgeOptions) { o.runner = r }
}

// WithLogger sets the logger.
func WithLogger(log logrus.FieldLogger) BridgeOption {
	return func(o *bridgeOptions) {
		if log != nil {
			o.log = log
		}
	}
}

// WithHTTPClient replaces the HTTP client used by the remote provider.
func WithHTTPClient(c Doer) BridgeOption {
	return func(o *bridgeOptions) { o.client = c }
}

// NewBridge builds the provider named in cfg.
func NewBridge(cfg config.SpeechConfig, opts ...BridgeOption) *Bridge {
	o := bridgeOptions{
		runner: ExecRunner{},
		log:    logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	log := o.log.WithField("component", "speech")

	provider := strings.ToLower(strings.TrimSpace(cfg.Provider))
	b := &Bridge{Provider: provider}
	switch provider {
	case config.ProviderRemote:
		b.Speaker = NewRemoteSpeaker(cfg, o.runner, o.client, log)
		b.Listener = NewRemoteListener(cfg, o.runner, o.client, log)
	case config.ProviderNone:
	default:
		b.Provider = config.ProviderLocal
		b.Speaker = NewLocalSpeaker(cfg, o.runner, log)
		b.Listener = NewLocalListener(cfg, o.runner, log)
	}
	return b
}

// =============================================================================
// PLAYBACK EXCLUSIVITY
// =============================================================================

// exclusive tracks the single active playback. begin cancels whatever was
// playing before handing out a fresh context.
type exclusive struct {
	mu     sync.Mutex
	gen    uint64
	cancel context.CancelFunc
}

func (e *exclusive) begin(parent context.Context) (context.Context, func()) {
	ctx, cancel := context.WithCancel(parent)

	e.mu.Lock()
	if e.cancel != nil {
		e.cancel()
	}
	e.gen++
	gen := e.gen
	e.cancel = cancel
	e.mu.Unlock()

	return ctx, func() {
		cancel()
		e.mu.Lock()
		if e.gen == gen {
			e.cancel = nil
		}
		e.mu.Unlock()
	}
}

func (e *exclusive) stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cancel != nil {
		e.cancel()
		e.cancel = nil
	}
}

func (e *exclusive) active() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cancel != nil
}

// playResult maps a finished playback to the error Speak reports.
func playResult(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return ErrCancelled
	}
	return err
}

// =============================================================================
// CAPTURE HANDLE
// =============================================================================

// captureHandle stops recording early; transcription of what was captured
// still runs.
type captureHandle struct {
	once   sync.Once
	cancel context.CancelFunc
}

func (h *captureHandle) Stop() {
	h.once.Do(h.cancel)
}
