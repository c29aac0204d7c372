// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/jeranaias/invtui/internal/logging"
	"github.com/jeranaias/invtui/internal/server"
)

type mockServerOptions struct {
	addr     string
	envelope string
	latency  time.Duration
	fail     []string
}

func newMockServerCmd(opts *rootOptions) *cobra.Command {
	mo := &mockServerOptions{}

	cmd := &cobra.Command{
		Use:   "mock-server",
		Short: "Serve demo agents, products and chats over HTTP",
		Long: `Run a local backend that implements both the agents API and the
details API with seeded demo data. Point agents_url and details_url at it
to try the dashboard without a real deployment.`,
		Example: `  invtui mock-server --addr 127.0.0.1:8787
  invtui mock-server --envelope domain --latency 300ms --fail /tasks=500`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := opts.load(logging.ModeCLI)
			if err != nil {
				return err
			}
			defer rt.Close()

			srv, err := mo.build(rt)
			if err != nil {
				return err
			}
			return serveUntilDone(cmd.Context(), srv, mo.addr, func(addr string) {
				fmt.Fprintf(cmd.OutOrStdout(), "%s mock backend on http://%s (Ctrl+C to stop)\n",
					RenderConditional(SuccessStyle, "[OK]"), addr)
			})
		},
	}

	f := cmd.Flags()
	f.StringVar(&mo.addr, "addr", server.DefaultAddr, "listen address")
	f.StringVar(&mo.envelope, "envelope", string(server.EnvelopeBare), "list envelope: bare, data, domain, result")
	f.DurationVar(&mo.latency, "latency", 0, "delay added to every response")
	f.StringSliceVar(&mo.fail, "fail", nil, "make a path fail, as path=status (repeatable)")
	return cmd
}

func (mo *mockServerOptions) build(rt *runtime) (*server.Server, error) {
	style, err := server.ParseEnvelopeStyle(mo.envelope)
	if err != nil {
		return nil, err
	}
	srv := server.New(
		server.WithLogger(rt.log),
		server.WithEnvelope(style),
		server.WithLatency(mo.latency),
	)
	for _, f := range mo.fail {
		path, status, err := parseFault(f)
		if err != nil {
			return nil, err
		}
		srv.Faults().Fail(path, status)
	}
	return srv, nil
}

// parseFault parses "path=status".
func parseFault(s string) (string, int, error) {
	path, code, ok := strings.Cut(s, "=")
	path = strings.TrimSpace(path)
	if !ok || path == "" {
		return "", 0, fmt.Errorf("invalid --fail %q: want path=status", s)
	}
	status, err := strconv.Atoi(strings.TrimSpace(code))
	if err != nil || status < 400 || status > 599 {
		return "", 0, fmt.Errorf("invalid --fail %q: status must be 400-599", s)
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return path, status, nil
}

// serveUntilDone runs srv until ctx ends, then shuts it down.
func serveUntilDone(ctx context.Context, srv *server.Server, addr string, ready func(string)) error {
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start(addr) }()
	if ready != nil {
		ready(addr)
	}

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}
