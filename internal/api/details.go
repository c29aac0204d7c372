// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/jeranaias/invtui/internal/envelope"
	"github.com/jeranaias/invtui/internal/gateway"
	"github.com/jeranaias/invtui/internal/model"
)

// Details is the typed client for the details (inventory) API.
type Details struct {
	client *gateway.Client
	log    logrus.FieldLogger
}

// NewDetails wraps a gateway client bound to the details API.
func NewDetails(client *gateway.Client, log logrus.FieldLogger) *Details {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Details{client: client, log: log}
}

// Client returns the underlying gateway client.
func (d *Details) Client() *gateway.Client {
	return d.client
}

// ListProducts fetches GET /products.
func (d *Details) ListProducts(ctx context.Context) ([]model.Product, error) {
	env, err := d.client.Get(ctx, "/products")
	if err != nil {
		return nil, err
	}
	return envelope.DecodeList[model.Product](env, "products", d.log), nil
}

// CreateProduct issues POST /products. The input is validated first so an
// invalid form never reaches the backend.
func (d *Details) CreateProduct(ctx context.Context, in model.ProductInput) error {
	if err := in.Validate(); err != nil {
		return err
	}
	_, err := d.client.Post(ctx, "/products", in)
	return err
}
