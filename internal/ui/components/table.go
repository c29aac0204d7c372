// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/invtui/internal/model"
	"github.com/jeranaias/invtui/internal/ui/styles"
	"github.com/jeranaias/invtui/internal/util"
)

type column struct {
	title string
	width int
	flex  bool
}

// ProductTable renders products as a table of at most height rows,
// scrolled so that the selected row is visible.
func ProductTable(theme *styles.Theme, products []model.Product, selected, width, height int) string {
	if len(products) == 0 {
		return theme.CardMuted.Render("No products match.")
	}

	cols := []column{
		{title: "Name", flex: true},
		{title: "Category", width: 14},
		{title: "Stock", width: 7},
		{title: "Status", width: 12},
		{title: "Price", width: 11},
		{title: "Updated", width: 16},
	}
	fixed := 0
	for _, c := range cols {
		fixed += c.width + 1
	}
	if flex := width - fixed; flex >= 12 {
		cols[0].width = flex
	} else {
		cols[0].width = 12
	}

	header := make([]string, len(cols))
	for i, c := range cols {
		header[i] = util.PadRight(c.title, c.width)
	}

	rows := height - 2
	if rows < 1 {
		rows = 1
	}
	start := 0
	if selected >= rows {
		start = selected - rows + 1
	}
	end := start + rows
	if end > len(products) {
		end = len(products)
	}

	lines := []string{theme.TableHeader.Render(strings.Join(header, " "))}
	for i := start; i < end; i++ {
		p := products[i]
		level := p.StockStatus()
		status := lipgloss.NewStyle().Foreground(styles.StockColor(level)).
			Render(util.PadRight(level.Label(), cols[3].width))
		if p.BelowMinimum() {
			status = lipgloss.NewStyle().Foreground(styles.Rose).Bold(true).
				Render(util.PadRight(styles.StatusIndicators.Warning+" "+level.Label(), cols[3].width))
		}
		cells := []string{
			util.PadRight(p.Name, cols[0].width),
			util.PadRight(p.Category, cols[1].width),
			util.PadRight(strconv.Itoa(p.Stock), cols[2].width),
			status,
			util.PadRight(p.PriceDisplay(), cols[4].width),
			util.PadRight(p.LastUpdated(), cols[5].width),
		}
		line := strings.Join(cells, " ")
		if i == selected {
			lines = append(lines, theme.TableSelected.Render(line))
		} else {
			lines = append(lines, theme.TableRow.Render(line))
		}
	}
	return strings.Join(lines, "\n")
}

// ProductDetail renders the full record of one product.
func ProductDetail(theme *styles.Theme, p model.Product, width int) string {
	field := func(label, value string) string {
		return theme.InputLabel.Render(label) + util.TruncateWidth(value, width-16)
	}
	lines := []string{
		theme.CardTitle.Render(p.Name),
		field("Category", p.Category),
		field("Description", p.Description),
		field("Stock", strconv.Itoa(p.Stock)+" (minimum "+strconv.Itoa(p.StockMinimum)+")"),
		field("Price", p.PriceDisplay()),
		field("Image", p.Image),
		field("Updated", p.LastUpdated()),
	}
	return theme.Card.Render(strings.Join(lines, "\n"))
}
