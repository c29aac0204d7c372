// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements the invtui command line: the dashboard TUI as the
// default command, plus scriptable commands for agents, products, chat,
// speech, configuration and the mock backend.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/jeranaias/invtui/internal/api"
	"github.com/jeranaias/invtui/internal/config"
	"github.com/jeranaias/invtui/internal/logging"
	"github.com/jeranaias/invtui/internal/speech"
	"github.com/jeranaias/invtui/internal/ui/app"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// rootOptions holds the persistent flags.
type rootOptions struct {
	configPath string
	envFiles   []string
	logLevel   string
	agentsURL  string
	detailsURL string
}

// runtime is what a command needs after configuration is loaded.
type runtime struct {
	cfg     *config.Config
	cfgPath string
	log     *logrus.Logger
	closer  io.Closer
}

func (r *runtime) Close() {
	if r.closer != nil {
		_ = r.closer.Close()
	}
}

func (r *runtime) apis() *api.Set {
	return api.NewSet(r.cfg, r.log)
}

func (r *runtime) bridge() *speech.Bridge {
	return speech.NewBridge(r.cfg.Speech, speech.WithLogger(r.log))
}

// load reads .env files, the config file and flag overrides, then sets up
// logging for mode.
func (o *rootOptions) load(mode logging.Mode) (*runtime, error) {
	if err := config.LoadDotEnv(o.envFiles...); err != nil {
		return nil, fmt.Errorf("failed to load env file: %w", err)
	}

	path := o.configPath
	if path == "" {
		p, err := config.ConfigPath()
		if err != nil {
			return nil, err
		}
		path = p
	}
	cfg, err := config.LoadFrom(path)
	if err != nil {
		return nil, err
	}

	if o.agentsURL != "" {
		cfg.API.AgentsURL = o.agentsURL
	}
	if o.detailsURL != "" {
		cfg.API.DetailsURL = o.detailsURL
	}
	if o.logLevel != "" {
		cfg.Log.Level = o.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	config.SetGlobal(cfg)

	log, closer, err := logging.Setup(cfg.Log, mode)
	if err != nil {
		log.WithError(err).Warn("log file unavailable")
	}
	return &runtime{cfg: cfg, cfgPath: path, log: log, closer: closer}, nil
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "invtui",
		Short: "Terminal dashboard for AI inventory agents",
		Long: `invtui shows the agents working on your inventory and the products they
manage, and lets you chat with an agent by keyboard or voice.

Run without arguments to open the dashboard.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(cmd.Context(), opts)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "config file (default ~/.invtui/config.toml)")
	flags.StringSliceVar(&opts.envFiles, "env-file", nil, "env files to load (default .env)")
	flags.StringVar(&opts.logLevel, "log-level", "", "log level: trace, debug, info, warn, error")
	flags.StringVar(&opts.agentsURL, "agents-url", "", "agents API base URL")
	flags.StringVar(&opts.detailsURL, "details-url", "", "details API base URL")

	root.AddCommand(
		newAgentsCmd(opts),
		newProductsCmd(opts),
		newChatCmd(opts),
		newSayCmd(opts),
		newListenCmd(opts),
		newConfigCmd(opts),
		newMockServerCmd(opts),
		newVersionCmd(),
	)
	return root
}

// Execute runs the command line and returns the process exit code.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := NewRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", RenderConditional(ErrorStyle, "Error:"), err)
		var tty *TTYRequiredError
		if errors.As(err, &tty) {
			return 2
		}
		return 1
	}
	return 0
}

func runTUI(ctx context.Context, opts *rootOptions) error {
	if err := RequiresTTY("run the dashboard"); err != nil {
		return err
	}
	rt, err := opts.load(logging.ModeTUI)
	if err != nil {
		return err
	}
	defer rt.Close()

	watch := ""
	if _, err := os.Stat(rt.cfgPath); err == nil {
		watch = rt.cfgPath
	}

	rt.log.WithFields(logrus.Fields{
		"agents_url":  rt.cfg.API.AgentsURL,
		"details_url": rt.cfg.API.DetailsURL,
		"speech":      rt.cfg.Speech.Provider,
	}).Info("starting dashboard")

	return app.Run(ctx, app.RunOptions{
		Config:     rt.cfg,
		ConfigPath: watch,
		APIs:       rt.apis(),
		Bridge:     rt.bridge(),
		Logger:     rt.log,
	})
}
