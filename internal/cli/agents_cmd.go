// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/jeranaias/invtui/internal/dashboard"
	"github.com/jeranaias/invtui/internal/logging"
	"github.com/jeranaias/invtui/internal/ui/styles"
	"github.com/jeranaias/invtui/internal/util"
)

func newAgentsCmd(opts *rootOptions) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "agents",
		Short: "List agents with their status and activity metrics",
		Example: `  invtui agents
  invtui agents --json | jq '.data.metrics'`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := opts.load(logging.ModeCLI)
			if err != nil {
				return err
			}
			defer rt.Close()

			out := cmd.OutOrStdout()
			return OutputJSON(out, jsonOut, "agents", func() (interface{}, error) {
				snap := dashboard.NewAgentsController(rt.apis().Agents, rt.log).Load(cmd.Context())
				if snap.Err != "" {
					return nil, errors.New("Error loading agents: " + snap.Err)
				}
				if !jsonOut {
					printAgents(out, snap)
				}
				return AgentsData{Agents: snap.Agents, Metrics: snap.Metrics, Models: snap.ModelLabels()}, nil
			})
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "output JSON")
	return cmd
}

func printAgents(w io.Writer, snap dashboard.AgentsSnapshot) {
	fmt.Fprintln(w, RenderConditional(TitleStyle, "Agents"))
	if len(snap.Agents) == 0 {
		fmt.Fprintln(w, RenderConditional(DimStyle, "No agents found."))
		return
	}

	m := snap.Metrics
	fmt.Fprintf(w, "%s%d/%d\n", RenderLabel("Active agents"), m.Active, m.Total)
	fmt.Fprintf(w, "%s%d\n", RenderLabel("Requests today"), m.RequestsToday)
	fmt.Fprintf(w, "%s%d\n", RenderLabel("Tasks completed"), m.TasksCompleted)
	fmt.Fprintf(w, "%s%d\n", RenderLabel("Products updated"), m.ProductsUpdated)
	fmt.Fprintf(w, "%s%d\n", RenderLabel("Alerts"), m.Alerts)
	if labels := snap.ModelLabels(); len(labels) > 0 {
		fmt.Fprintf(w, "%s%s\n", RenderLabel("Models"), strings.Join(labels, ", "))
	}
	fmt.Fprintln(w)

	nameW := 12
	for _, a := range snap.Agents {
		if n := util.StringWidth(a.Name); n > nameW {
			nameW = n
		}
	}
	if limit := fitColumn(54, 12, 28); nameW > limit {
		nameW = limit
	}

	fmt.Fprintln(w, RenderConditional(SectionStyle,
		util.PadRight("NAME", nameW)+"  "+util.PadRight("STATUS", 12)+"  "+util.PadRight("MODEL", 14)+"  "+util.PadRight("TASKS", 6)+"  LAST ACTION"))
	fmt.Fprintln(w, RenderSeparator(nameW+54))
	now := time.Now()
	for _, a := range snap.Agents {
		plain := styles.AgentStatusIndicator(a.Status) + " " + a.Status.Label()
		status := util.PadRight(plain, 12)
		if ColorsEnabled() {
			status = RenderAgentStatus(a.Status) + strings.Repeat(" ", max(0, 12-util.StringWidth(plain)))
		}
		fmt.Fprintf(w, "%s  %s  %s  %s  %s\n",
			util.PadRight(util.TruncateWidth(a.Name, nameW), nameW),
			status,
			util.PadRight(util.TruncateWidth(a.Model, 14), 14),
			util.PadRight(strconv.Itoa(a.TasksCompleted), 6),
			a.LastActionDisplay(now),
		)
	}
}
