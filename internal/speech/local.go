// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package speech

import (
	"bufio"
	"bytes"
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/text/language"

	"github.com/jeranaias/invtui/internal/config"
)

var (
	synthesizerCandidates = []string{"espeak-ng", "espeak", "say"}
	recognizerCandidates  = []string{"whisper-cli", "whisper"}
)

// preferredVoiceHints are matched against lower-cased voice names.
var preferredVoiceHints = []string{"female", "femenina", "woman", "monica", "paulina", "google español"}

func isDarwin() bool {
	return runtime.GOOS == "darwin"
}

// =============================================================================
// VOICES
// =============================================================================

// Voice is one synthesizer voice.
type Voice struct {
	Name string
	Lang string
}

// SelectVoice picks a voice sharing the locale's base language whose name
// suggests a female voice. It reports false when none matches, in which
// case the engine default is used.
func SelectVoice(voices []Voice, locale string) (Voice, bool) {
	want, ok := baseLanguage(locale)
	if !ok {
		return Voice{}, false
	}
	for _, v := range voices {
		if got, ok := baseLanguage(v.Lang); !ok || got != want {
			continue
		}
		name := strings.ToLower(v.Name)
		for _, hint := range preferredVoiceHints {
			if strings.Contains(name, hint) {
				return v, true
			}
		}
	}
	return Voice{}, false
}

func baseLanguage(tag string) (language.Base, bool) {
	t, err := language.Parse(strings.ReplaceAll(strings.TrimSpace(tag), "_", "-"))
	if err != nil {
		return language.Base{}, false
	}
	b, conf := t.Base()
	return b, conf != language.No
}

// parseEspeakVoices reads the table printed by `espeak --voices=<lang>`:
//
//	Pty Language       Age/Gender VoiceName          File          Other Languages
//	 5  es              --/M      Spanish_(Spain)    roa/es
func parseEspeakVoices(out []byte) []Voice {
	var voices []Voice
	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		f := strings.Fields(sc.Text())
		if len(f) < 4 || f[0] == "Pty" {
			continue
		}
		name := strings.ReplaceAll(f[3], "_", " ")
		if strings.HasSuffix(f[2], "/F") {
			name += " female"
		}
		voices = append(voices, Voice{Name: name, Lang: f[1]})
	}
	return voices
}

// parseSayVoices reads `say -v ?` output:
//
//	Monica              es_ES    # Hola, me llamo Mónica.
func parseSayVoices(out []byte) []Voice {
	var voices []Voice
	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		line, _, _ := strings.Cut(sc.Text(), "#")
		f := strings.Fields(line)
		if len(f) < 2 {
			continue
		}
		voices = append(voices, Voice{
			Name: strings.Join(f[:len(f)-1], " "),
			Lang: f[len(f)-1],
		})
	}
	return voices
}

// =============================================================================
// LOCAL SPEAKER
// =============================================================================

// LocalSpeaker speaks with an on-device synthesizer.
type LocalSpeaker struct {
	runner Runner
	engine string
	locale string
	log    logrus.FieldLogger

	play      exclusive
	voiceOnce sync.Once
	voice     string
}

// NewLocalSpeaker discovers the synthesizer. A speaker without an engine
// returns ErrUnavailable from Speak.
func NewLocalSpeaker(cfg config.SpeechConfig, r Runner, log logrus.FieldLogger) *LocalSpeaker {
	return &LocalSpeaker{
		runner: r,
		engine: firstAvailable(r, cfg.Synthesizer, synthesizerCandidates...),
		locale: cfg.Locale,
		log:    log,
	}
}

// Available reports whether a synthesizer was found.
func (s *LocalSpeaker) Available() bool {
	return s.engine != ""
}

// Speak implements Speaker.
func (s *LocalSpeaker) Speak(ctx context.Context, text string) error {
	if s.engine == "" {
		s.log.Warn("speech synthesis is not available on this system")
		return ErrUnavailable
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	s.voiceOnce.Do(func() { s.voice = s.resolveVoice(ctx) })

	var args []string
	if s.voice != "" {
		args = append(args, "-v", s.voice)
	}
	args = append(args, text)

	pctx, done := s.play.begin(ctx)
	defer done()
	return playResult(pctx, s.runner.Run(pctx, s.engine, args...))
}

// Stop implements Speaker.
func (s *LocalSpeaker) Stop() error {
	s.play.stop()
	return nil
}

// Speaking implements Speaker.
func (s *LocalSpeaker) Speaking() bool {
	return s.play.active()
}

func (s *LocalSpeaker) resolveVoice(ctx context.Context) string {
	var voices []Voice
	switch filepath.Base(s.engine) {
	case "say":
		out, err := s.runner.Output(ctx, s.engine, "-v", "?")
		if err != nil {
			s.log.WithError(err).Debug("listing voices failed")
			return ""
		}
		voices = parseSayVoices(out)
	default:
		lang := "es"
		if b, ok := baseLanguage(s.locale); ok {
			lang = b.String()
		}
		out, err := s.runner.Output(ctx, s.engine, "--voices="+lang)
		if err != nil {
			s.log.WithError(err).Debug("listing voices failed")
			return ""
		}
		voices = parseEspeakVoices(out)
		// espeak voices are addressed by language plus a variant.
		if v, ok := SelectVoice(voices, s.locale); ok {
			s.log.WithField("voice", v.Name).Debug("selected voice")
			return v.Lang + "+f3"
		}
		return ""
	}
	if v, ok := SelectVoice(voices, s.locale); ok {
		s.log.WithField("voice", v.Name).Debug("selected voice")
		return v.Name
	}
	return ""
}

// =============================================================================
// LOCAL LISTENER
// =============================================================================

// LocalListener records with an audio capture program and transcribes with
// an on-device recognizer in single-shot mode.
type LocalListener struct {
	runner     Runner
	recorder   string
	recognizer string
	extraArgs  []string
	locale     string
	log        logrus.FieldLogger
}

// NewLocalListener discovers the recorder and recognizer.
func NewLocalListener(cfg config.SpeechConfig, r Runner, log logrus.FieldLogger) *LocalListener {
	l := &LocalListener{
		runner:     r,
		recorder:   firstAvailable(r, cfg.Recorder, recorderCandidates...),
		recognizer: firstAvailable(r, cfg.Recognizer, recognizerCandidates...),
		locale:     cfg.Locale,
		log:        log,
	}
	if f := strings.Fields(cfg.Recognizer); len(f) > 1 {
		l.extraArgs = f[1:]
	}
	return l
}

// Available reports whether both programs were found.
func (l *LocalListener) Available() bool {
	return l.recorder != "" && l.recognizer != ""
}

// Listen implements Listener.
func (l *LocalListener) Listen(ctx context.Context, onResult func(string), onError func(string)) Handle {
	if !l.Available() {
		msg := "speech recognition is not available on this system"
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

		text, err := l.transcribe(ctx, path)
		if err != nil {
			l.log.WithError(err).Warn("speech recognition failed")
			onError(err.Error())
			return
		}
		onResult(text)
	}()
	return h
}

func (l *LocalListener) transcribe(ctx context.Context, path string) (string, error) {
	lang := "auto"
	if b, ok := baseLanguage(l.locale); ok {
		lang = b.String()
	}
	args := append([]string{}, l.extraArgs...)
	args = append(args, "-l", lang, "-nt", "-np", "-f", path)
	out, err := l.runner.Output(ctx, l.recognizer, args...)
	if err != nil {
		return "", err
	}
	return strings.Join(strings.Fields(string(out)), " "), nil
}
