// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// invtui is a terminal dashboard for AI inventory agents.
//
// Usage:
//
//	invtui                      Open the dashboard
//	invtui agents [--json]      List agents and activity metrics
//	invtui products list        List inventory
//	invtui chat <agent>         Chat with an agent in line mode
//	invtui mock-server          Serve demo data for both APIs
//
// Run "invtui --help" for every command.
package main

import (
	"os"

	"github.com/jeranaias/invtui/internal/cli"
)

// Version information (set at build time with -ldflags "-X main.Version=...")
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func init() {
	cli.Version = Version
	cli.GitCommit = GitCommit
	cli.BuildDate = BuildDate
}

func main() {
	os.Exit(cli.Execute())
}
