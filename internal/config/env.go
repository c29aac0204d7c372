// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// LoadDotEnv loads KEY=VALUE pairs from the given files (default ".env")
// into the process environment. Variables already set are left alone and
// missing files are skipped.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return err
		}
	}
	return nil
}

// firstEnv returns the first non-empty value among keys.
func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(os.Getenv(k)); v != "" {
			return v
		}
	}
	return ""
}

// ApplyEnvOverrides applies environment variable overrides to the config.
//
// Supported environment variables:
//   - API_AGENT, VITE_API_AGENT: overrides api.agents_url
//   - API_DETAILS, VITE_API_DETAILS: overrides api.details_url
//   - INVTUI_TOKEN: overrides api.token
//   - INVTUI_USER: overrides user
//   - SPEECH_PROVIDER: overrides speech.provider
//   - SPEECH_API_KEY, ELEVENLABS_API_KEY: overrides speech.api_key
//   - SPEECH_VOICE_ID: overrides speech.voice_id
//   - SPEECH_LOCALE: overrides speech.locale
//   - SPEECH_STT_URL: overrides speech.stt_url
//   - SPEECH_AUTO: overrides speech.auto_speak
//   - INVTUI_LOG_LEVEL: overrides log.level
//   - INVTUI_LOG_FILE: overrides log.file
func (c *Config) ApplyEnvOverrides() {
	if v := firstEnv("API_AGENT", "VITE_API_AGENT"); v != "" {
		c.API.AgentsURL = v
	}
	if v := firstEnv("API_DETAILS", "VITE_API_DETAILS"); v != "" {
		c.API.DetailsURL = v
	}
	if v := firstEnv("INVTUI_TOKEN"); v != "" {
		c.API.Token = v
	}
	if v := firstEnv("INVTUI_USER"); v != "" {
		c.User = v
	}

	if v := firstEnv("SPEECH_PROVIDER"); v != "" {
		c.Speech.Provider = strings.ToLower(v)
	}
	if v := firstEnv("SPEECH_API_KEY", "ELEVENLABS_API_KEY"); v != "" {
		c.Speech.APIKey = v
	}
	if v := firstEnv("SPEECH_VOICE_ID"); v != "" {
		c.Speech.VoiceID = v
	}
	if v := firstEnv("SPEECH_LOCALE"); v != "" {
		c.Speech.Locale = v
	}
	if v := firstEnv("SPEECH_STT_URL"); v != "" {
		c.Speech.STTURL = v
	}
	if v := firstEnv("SPEECH_AUTO"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Speech.AutoSpeak = b
		}
	}

	if v := firstEnv("INVTUI_LOG_LEVEL"); v != "" {
		c.Log.Level = strings.ToLower(v)
	}
	if v := firstEnv("INVTUI_LOG_FILE"); v != "" {
		c.Log.File = v
	}
}
