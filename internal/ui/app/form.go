// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package app

import (
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/invtui/internal/model"
	"github.com/jeranaias/invtui/internal/ui/styles"
)

var fieldLabels = map[string]string{
	"name":         "Name",
	"category":     "Category",
	"description":  "Description",
	"stock":        "Stock",
	"stockMinimum": "Minimum stock",
	"price":        "Price",
	"image":        "Image URL",
}

var fieldPlaceholders = map[string]string{
	"name":         "Galaxy S24",
	"category":     "Smartphones",
	"description":  "Short description",
	"stock":        "0",
	"stockMinimum": "0",
	"price":        "0.00",
	"image":        "https://...",
}

// productForm collects a new product. One text input per field, in
// model.ProductFields order.
type productForm struct {
	inputs     []textinput.Model
	focus      int
	fieldErrs  map[string]string
	err        string
	submitting bool
}

func newProductForm(theme *styles.Theme) *productForm {
	f := &productForm{
		inputs:    make([]textinput.Model, len(model.ProductFields)),
		fieldErrs: make(map[string]string),
	}
	for i, field := range model.ProductFields {
		ti := textinput.New()
		ti.Prompt = ""
		ti.Placeholder = fieldPlaceholders[field]
		ti.CharLimit = 200
		ti.Width = 40
		ti.TextStyle = lipgloss.NewStyle().Foreground(styles.TextPrimary)
		f.inputs[i] = ti
	}
	f.inputs[0].Focus()
	return f
}

func (f *productForm) values() map[string]string {
	out := make(map[string]string, len(f.inputs))
	for i, field := range model.ProductFields {
		out[field] = f.inputs[i].Value()
	}
	return out
}

func (f *productForm) setValue(field, v string) {
	for i, name := range model.ProductFields {
		if name == field {
			f.inputs[i].SetValue(v)
			return
		}
	}
}

func (f *productForm) onLast() bool {
	return f.focus == len(f.inputs)-1
}

func (f *productForm) move(delta int) tea.Cmd {
	f.inputs[f.focus].Blur()
	f.focus = (f.focus + delta + len(f.inputs)) % len(f.inputs)
	return f.inputs[f.focus].Focus()
}

func (f *productForm) update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	f.inputs[f.focus], cmd = f.inputs[f.focus].Update(msg)
	return cmd
}

// setError records a failed parse or create. Field errors are shown next
// to their inputs; anything else above the form.
func (f *productForm) setError(err error) {
	f.fieldErrs = make(map[string]string)
	f.err = ""
	var fes model.FieldErrors
	if errors.As(err, &fes) {
		for _, fe := range fes {
			f.fieldErrs[fe.Field] = fe.Message
		}
		return
	}
	if err != nil {
		f.err = err.Error()
	}
}

func (f *productForm) view(theme *styles.Theme, width int) string {
	inputWidth := width - theme.InputLabel.GetWidth() - 6
	if inputWidth < 10 {
		inputWidth = 10
	}

	lines := []string{theme.CardTitle.Render("New product"), ""}
	if f.err != "" {
		lines = append(lines, theme.ErrorStyle.Render(styles.StatusIndicators.Error+" "+f.err), "")
	}
	for i, field := range model.ProductFields {
		marker := "  "
		if i == f.focus {
			marker = theme.InputPrompt.Render("❯ ")
		}
		in := f.inputs[i]
		in.Width = inputWidth
		lines = append(lines, marker+theme.InputLabel.Render(fieldLabels[field])+in.View())
		if msg, ok := f.fieldErrs[field]; ok {
			lines = append(lines, strings.Repeat(" ", 2+theme.InputLabel.GetWidth())+theme.FieldError.Render(fieldLabels[field]+" "+msg))
		}
	}
	lines = append(lines, "")
	if f.submitting {
		lines = append(lines, theme.CardMuted.Render("Saving..."))
	} else {
		lines = append(lines, theme.CardMuted.Render("Enter on the last field or Ctrl+S to save, Esc to cancel"))
	}
	return theme.Card.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}
