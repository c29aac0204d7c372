// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"github.com/sirupsen/logrus"

	"github.com/jeranaias/invtui/internal/config"
	"github.com/jeranaias/invtui/internal/gateway"
)

// Set bundles both facilities, built from one configuration.
type Set struct {
	Agents  *Agents
	Details *Details
}

// NewSet creates independent gateway clients for the agents and details
// APIs from cfg.
func NewSet(cfg *config.Config, log logrus.FieldLogger, opts ...gateway.Option) *Set {
	if log == nil {
		log = logrus.StandardLogger()
	}
	common := append([]gateway.Option{gateway.WithLogger(log)}, opts...)
	if cfg.API.Token != "" {
		common = append(common, gateway.WithToken(cfg.API.Token))
	}

	agentsOpts := append([]gateway.Option{}, common...)
	detailsOpts := append([]gateway.Option{}, common...)
	return &Set{
		Agents:  NewAgents(gateway.New(gateway.FacilityAgents, cfg.API.AgentsURL, agentsOpts...), log.WithField("facility", "agents")),
		Details: NewDetails(gateway.New(gateway.FacilityDetails, cfg.API.DetailsURL, detailsOpts...), log.WithField("facility", "details")),
	}
}
