// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for invtui.
//
// # Key Types
//
//   - Config: Main configuration structure with all settings
//   - APIConfig: Base URLs for the agents and details (inventory) APIs
//   - SpeechConfig: Speech provider selection and its settings
//   - UIConfig, LogConfig: Presentation and logging settings
//
// # Configuration Precedence
//
// Configuration is loaded from (in order of precedence):
//   - Environment variables (API_AGENT, VITE_API_AGENT, SPEECH_*, INVTUI_*)
//   - .env in the working directory (via LoadDotEnv)
//   - ~/.invtui/config.toml
//   - Built-in defaults
//
// # Usage
//
//	_ = config.LoadDotEnv()
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	agents := cfg.API.AgentsURL
package config
