// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// =============================================================================
// STOCK LEVEL
// =============================================================================

// StockLevel classifies a stock quantity for badges.
type StockLevel string

const (
	StockLow    StockLevel = "low"
	StockMedium StockLevel = "medium"
	StockHigh   StockLevel = "high"
)

const (
	// LowStockBelow is the exclusive upper bound of the low band.
	LowStockBelow = 15
	// MediumStockBelow is the exclusive upper bound of the medium band.
	MediumStockBelow = 30
)

// StockStatus classifies a stock quantity: below 15 is low, below 30 is
// medium, anything else is high.
func StockStatus(stock int) StockLevel {
	switch {
	case stock < LowStockBelow:
		return StockLow
	case stock < MediumStockBelow:
		return StockMedium
	default:
		return StockHigh
	}
}

// Label returns the badge text for the level.
func (l StockLevel) Label() string {
	switch l {
	case StockLow:
		return "Low"
	case StockMedium:
		return "Medium"
	default:
		return "High"
	}
}

// =============================================================================
// PRODUCT
// =============================================================================

// Product is an inventory item served by the details API.
type Product struct {
	ID           ID      `json:"id,omitempty"`
	Name         string  `json:"name"`
	Category     string  `json:"category"`
	Description  string  `json:"description"`
	Stock        int     `json:"stock"`
	StockMinimum int     `json:"stockMinimum"`
	Price        float64 `json:"price"`
	Image        string  `json:"image"`
	CreatedAt    string  `json:"created_at,omitempty"`
	UpdatedAt    string  `json:"updated_at,omitempty"`
}

// productWire is the loose shape accepted from the details API. Numeric
// fields may arrive as numbers or numeric strings.
type productWire struct {
	ID           ID          `json:"id"`
	MongoID      ID          `json:"_id"`
	Name         string      `json:"name"`
	Category     string      `json:"category"`
	Description  string      `json:"description"`
	Stock        looseNumber `json:"stock"`
	StockMinimum looseNumber `json:"stockMinimum"`
	StockMinAlt  looseNumber `json:"stock_minimum"`
	Price        looseNumber `json:"price"`
	Image        string      `json:"image"`
	CreatedAt    string      `json:"created_at"`
	CreatedAtAlt string      `json:"createdAt"`
	UpdatedAt    string      `json:"updated_at"`
	UpdatedAtAlt string      `json:"updatedAt"`
}

// UnmarshalJSON tolerates stringly numbers and camelCase timestamps so one
// odd row does not fail the whole list.
func (p *Product) UnmarshalJSON(data []byte) error {
	var w productWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*p = Product{
		ID:          w.ID,
		Name:        w.Name,
		Category:    w.Category,
		Description: w.Description,
		Stock:       w.Stock.Int(),
		Price:       w.Price.Float(),
		Image:       w.Image,
		CreatedAt:   firstNonEmpty(w.CreatedAt, w.CreatedAtAlt),
		UpdatedAt:   firstNonEmpty(w.UpdatedAt, w.UpdatedAtAlt),
	}
	if p.ID.IsZero() {
		p.ID = w.MongoID
	}
	p.StockMinimum = w.StockMinimum.Int()
	if !w.StockMinimum.set {
		p.StockMinimum = w.StockMinAlt.Int()
	}
	return nil
}

// looseNumber accepts a JSON number, a numeric string or null. Anything
// else, including NaN and Inf, reads as absent.
type looseNumber struct {
	v   float64
	set bool
}

func (l *looseNumber) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	s := string(data)
	if len(data) > 0 && data[0] == '"' {
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		*l = looseNumber{}
		return nil
	}
	*l = looseNumber{v: f, set: true}
	return nil
}

func (l looseNumber) Int() int {
	return int(l.v)
}

func (l looseNumber) Float() float64 {
	return l.v
}

// StockStatus classifies the product's current stock.
func (p Product) StockStatus() StockLevel {
	return StockStatus(p.Stock)
}

// BelowMinimum reports whether stock has fallen under the product's own
// threshold.
func (p Product) BelowMinimum() bool {
	return p.StockMinimum > 0 && p.Stock < p.StockMinimum
}

// PriceDisplay formats the unit price with two decimals.
func (p Product) PriceDisplay() string {
	return "$" + strconv.FormatFloat(p.Price, 'f', 2, 64)
}

// LastUpdated returns the update time, else the creation time, else "N/A".
// Parsable timestamps are shortened to a date.
func (p Product) LastUpdated() string {
	raw := firstNonEmpty(p.UpdatedAt, p.CreatedAt)
	if raw == "" {
		return "N/A"
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.Local().Format("2006-01-02 15:04")
	}
	return raw
}

// =============================================================================
// PRODUCT INPUT
// =============================================================================

// ProductInput is the creation payload for POST /products.
type ProductInput struct {
	Name         string  `json:"name"`
	Category     string  `json:"category"`
	Description  string  `json:"description"`
	Stock        int     `json:"stock"`
	StockMinimum int     `json:"stockMinimum"`
	Price        float64 `json:"price"`
	Image        string  `json:"image"`
}

// ProductFields lists the form fields in entry order.
var ProductFields = []string{"name", "category", "description", "stock", "stockMinimum", "price", "image"}

// FieldError describes one invalid form field.
type FieldError struct {
	Field   string
	Message string
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// FieldErrors collects every invalid field of a form.
type FieldErrors []FieldError

func (e FieldErrors) Error() string {
	msgs := make([]string, len(e))
	for i, fe := range e {
		msgs[i] = fe.Error()
	}
	return strings.Join(msgs, "; ")
}

// ParseProductInput builds a ProductInput from raw form text. Every field is
// required; stock values must be non-negative integers and price a
// non-negative decimal.
func ParseProductInput(form map[string]string) (ProductInput, error) {
	var errs FieldErrors
	get := func(field string) string {
		v := strings.TrimSpace(form[field])
		if v == "" {
			errs = append(errs, FieldError{Field: field, Message: "is required"})
		}
		return v
	}

	in := ProductInput{
		Name:        get("name"),
		Category:    get("category"),
		Description: get("description"),
		Image:       get("image"),
	}

	if s := get("stock"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			errs = append(errs, FieldError{Field: "stock", Message: "must be a non-negative integer"})
		}
		in.Stock = n
	}
	if s := get("stockMinimum"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			errs = append(errs, FieldError{Field: "stockMinimum", Message: "must be a non-negative integer"})
		}
		in.StockMinimum = n
	}
	if s := get("price"); s != "" {
		f, err := strconv.ParseFloat(s, 64)
		if err != nil || !validPrice(f) {
			errs = append(errs, FieldError{Field: "price", Message: "must be a non-negative number"})
		}
		in.Price = f
	}

	if len(errs) > 0 {
		return ProductInput{}, errs
	}
	return in, nil
}

// validPrice rejects negatives and the NaN and Inf values ParseFloat accepts.
func validPrice(f float64) bool {
	return f >= 0 && !math.IsInf(f, 0) && !math.IsNaN(f)
}

// Validate checks an already typed input.
func (in ProductInput) Validate() error {
	var errs FieldErrors
	required := []struct{ field, value string }{
		{"name", in.Name},
		{"category", in.Category},
		{"description", in.Description},
		{"image", in.Image},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			errs = append(errs, FieldError{Field: r.field, Message: "is required"})
		}
	}
	if in.Stock < 0 {
		errs = append(errs, FieldError{Field: "stock", Message: "must be a non-negative integer"})
	}
	if in.StockMinimum < 0 {
		errs = append(errs, FieldError{Field: "stockMinimum", Message: "must be a non-negative integer"})
	}
	if !validPrice(in.Price) {
		errs = append(errs, FieldError{Field: "price", Message: "must be a non-negative number"})
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}
