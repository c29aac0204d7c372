// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package dashboard

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/text/cases"

	"github.com/jeranaias/invtui/internal/model"
)

// ProductsSource is the part of the details API the inventory view uses.
type ProductsSource interface {
	ListProducts(ctx context.Context) ([]model.Product, error)
	CreateProduct(ctx context.Context, in model.ProductInput) error
}

// Summary describes a filtered product list against the full list.
type Summary struct {
	Shown      int
	Total      int
	Units      int
	LowStock   int
	Categories int
	Value      float64
}

// Showing renders the "Showing X of Y products" line.
func (s Summary) Showing() string {
	return fmt.Sprintf("Showing %d of %d products", s.Shown, s.Total)
}

// Summarize computes figures over shown, counting total as the unfiltered
// size.
func Summarize(shown []model.Product, total int) Summary {
	s := Summary{Shown: len(shown), Total: total}
	cats := make(map[string]struct{})
	for _, p := range shown {
		s.Units += p.Stock
		s.Value += float64(p.Stock) * p.Price
		if p.StockStatus() == model.StockLow {
			s.LowStock++
		}
		if p.Category != "" {
			cats[p.Category] = struct{}{}
		}
	}
	s.Categories = len(cats)
	return s
}

// FilterProducts keeps products whose name or category contains term,
// ignoring case. An empty term keeps everything.
func FilterProducts(products []model.Product, term string) []model.Product {
	term = strings.TrimSpace(term)
	if term == "" {
		return append([]model.Product(nil), products...)
	}
	fold := cases.Fold()
	needle := fold.String(term)
	out := make([]model.Product, 0, len(products))
	for _, p := range products {
		if strings.Contains(fold.String(p.Name), needle) || strings.Contains(fold.String(p.Category), needle) {
			out = append(out, p)
		}
	}
	return out
}

// InventoryController loads and extends the product list.
type InventoryController struct {
	src ProductsSource
	log logrus.FieldLogger

	mu       sync.Mutex
	loaded   bool
	loading  bool
	creating bool
	products []model.Product
	err      string
}

// NewInventoryController creates a controller reading from src.
func NewInventoryController(src ProductsSource, log logrus.FieldLogger) *InventoryController {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &InventoryController{src: src, log: log.WithField("view", "inventory")}
}

// Products returns a copy of the loaded list.
func (c *InventoryController) Products() []model.Product {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]model.Product(nil), c.products...)
}

// Err returns the last load error message, or "".
func (c *InventoryController) Err() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Loading reports whether a fetch or create is running.
func (c *InventoryController) Loading() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loading || c.creating
}

// Load fetches the list on first call only.
func (c *InventoryController) Load(ctx context.Context) error {
	c.mu.Lock()
	if c.loaded || c.loading {
		c.mu.Unlock()
		return nil
	}
	c.loading = true
	c.mu.Unlock()
	return c.fetch(ctx)
}

// Reload fetches the list. On failure the current list is kept and the
// error is recorded.
func (c *InventoryController) Reload(ctx context.Context) error {
	c.mu.Lock()
	c.loading = true
	c.mu.Unlock()
	return c.fetch(ctx)
}

// fetch runs with loading already set and clears it when done.
func (c *InventoryController) fetch(ctx context.Context) error {
	defer func() {
		c.mu.Lock()
		c.loading = false
		c.mu.Unlock()
	}()

	products, err := c.src.ListProducts(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.loaded = true
	if err != nil {
		c.log.WithError(err).Error("loading products failed")
		c.err = err.Error()
		return err
	}
	c.err = ""
	c.products = products
	return nil
}

// Create validates and posts a product, then refetches the list. A failed
// refetch is logged and leaves the current list in place; it does not fail
// the create.
func (c *InventoryController) Create(ctx context.Context, in model.ProductInput) error {
	if err := in.Validate(); err != nil {
		return err
	}

	c.mu.Lock()
	if c.creating {
		c.mu.Unlock()
		return fmt.Errorf("a product is already being created")
	}
	c.creating = true
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.creating = false
		c.mu.Unlock()
	}()

	if err := c.src.CreateProduct(ctx, in); err != nil {
		c.log.WithError(err).Warn("creating product failed")
		return err
	}
	c.log.WithField("name", in.Name).Info("product created")

	if err := c.Reload(ctx); err != nil {
		c.log.WithError(err).Warn("refetch after create failed, keeping current list")
		c.mu.Lock()
		c.err = ""
		c.mu.Unlock()
	}
	return nil
}

// Filter applies FilterProducts to the loaded list and summarizes it.
// It never refetches.
func (c *InventoryController) Filter(term string) ([]model.Product, Summary) {
	all := c.Products()
	shown := FilterProducts(all, term)
	return shown, Summarize(shown, len(all))
}
