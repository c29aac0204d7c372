// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/invtui/internal/chat"
	"github.com/jeranaias/invtui/internal/model"
	"github.com/jeranaias/invtui/internal/ui/components"
	"github.com/jeranaias/invtui/internal/ui/styles"
)

// =============================================================================
// MESSAGES
// =============================================================================

// ReplyMsg reports the end of an exchange started from the panel.
type ReplyMsg struct {
	Agent string
	Err   error
}

// HistoryMsg reports the end of a history load.
type HistoryMsg struct {
	Agent string
	Err   error
}

// EventMsg carries a session event into the Bubble Tea loop.
type EventMsg struct {
	chat.Event
}

// CloseMsg asks the parent to close the panel.
type CloseMsg struct{}

// =============================================================================
// PANEL
// =============================================================================

// Panel renders one chat session.
type Panel struct {
	ctx      context.Context
	session  *chat.Session
	theme    *styles.Theme
	markdown *components.MarkdownRenderer
	keys     KeyMap

	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model

	width  int
	height int
}

// NewPanel creates a panel over session. ctx bounds the requests the panel
// starts.
func NewPanel(ctx context.Context, session *chat.Session, theme *styles.Theme, md *components.MarkdownRenderer) *Panel {
	ti := textinput.New()
	ti.Placeholder = "Type a message..."
	ti.Prompt = "❯ "
	ti.PromptStyle = theme.InputPrompt
	ti.CharLimit = 4000
	ti.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = theme.Spinner

	p := &Panel{
		ctx:      ctx,
		session:  session,
		theme:    theme,
		markdown: md,
		keys:     DefaultKeyMap(),
		input:    ti,
		viewport: viewport.New(60, 10),
		spinner:  sp,
	}
	p.refresh()
	return p
}

// Session returns the session behind the panel.
func (p *Panel) Session() *chat.Session {
	return p.session
}

// Agent returns the agent name.
func (p *Panel) Agent() string {
	return p.session.AgentName()
}

// Keys returns the panel bindings for help rendering.
func (p *Panel) Keys() KeyMap {
	return p.keys
}

// Input returns the current input text.
func (p *Panel) Input() string {
	return p.input.Value()
}

// Init loads persisted history when resuming a chat.
func (p *Panel) Init() tea.Cmd {
	s := p.session
	ctx := p.ctx
	return tea.Batch(
		textinput.Blink,
		p.spinner.Tick,
		func() tea.Msg {
			return HistoryMsg{Agent: s.AgentName(), Err: s.LoadHistory(ctx)}
		},
	)
}

// SetSize sets the outer size of the panel.
func (p *Panel) SetSize(width, height int) {
	p.width = width
	p.height = height

	inner := width - p.theme.ChatPanel.GetHorizontalFrameSize()
	if inner < 20 {
		inner = 20
	}
	// title, status, input and frame
	vh := height - 4 - p.theme.ChatPanel.GetVerticalFrameSize()
	if vh < 3 {
		vh = 3
	}
	p.viewport.Width = inner
	p.viewport.Height = vh
	p.input.Width = inner - lipgloss.Width(p.input.Prompt) - 1
	p.refresh()
}

// Update handles a message addressed to the panel.
func (p *Panel) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return p.handleKey(msg)

	case ReplyMsg, HistoryMsg:
		p.refresh()
		return nil

	case EventMsg:
		if msg.Agent != p.Agent() {
			return nil
		}
		if msg.Kind == chat.EventTranscript {
			p.input.SetValue(msg.Text)
			p.input.CursorEnd()
		}
		p.refresh()
		return nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		p.spinner, cmd = p.spinner.Update(msg)
		return cmd

	case tea.MouseMsg:
		var cmd tea.Cmd
		p.viewport, cmd = p.viewport.Update(msg)
		return cmd
	}

	var cmd tea.Cmd
	p.input, cmd = p.input.Update(msg)
	return cmd
}

func (p *Panel) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, p.keys.Close):
		p.session.StopListening()
		return func() tea.Msg { return CloseMsg{} }

	case key.Matches(msg, p.keys.Submit):
		return p.submit()

	case key.Matches(msg, p.keys.Listen):
		if p.session.Listening() {
			p.session.StopListening()
			return nil
		}
		p.session.StartListening(p.ctx, nil)
		p.refresh()
		return nil

	case key.Matches(msg, p.keys.Silence):
		p.session.StopSpeaking()
		p.refresh()
		return nil

	case key.Matches(msg, p.keys.PageUp):
		p.viewport.HalfViewUp()
		return nil

	case key.Matches(msg, p.keys.PageDown):
		p.viewport.HalfViewDown()
		return nil
	}

	var cmd tea.Cmd
	p.input, cmd = p.input.Update(msg)
	return cmd
}

func (p *Panel) submit() tea.Cmd {
	x, err := p.session.Submit(p.input.Value())
	if err != nil {
		// Empty input and a pending reply are both ignored.
		if !errors.Is(err, chat.ErrEmptyMessage) && !errors.Is(err, chat.ErrPending) {
			p.refresh()
		}
		return nil
	}
	p.input.Reset()
	p.refresh()

	agent := p.Agent()
	ctx := p.ctx
	return func() tea.Msg {
		_, err := x.Await(ctx)
		return ReplyMsg{Agent: agent, Err: err}
	}
}

// refresh re-renders the transcript into the viewport.
func (p *Panel) refresh() {
	atBottom := p.viewport.AtBottom() || p.viewport.TotalLineCount() == 0
	p.viewport.SetContent(p.renderMessages())
	if atBottom || p.session.Loading() {
		p.viewport.GotoBottom()
	}
}

func (p *Panel) renderMessages() string {
	msgs := p.session.Messages()
	if len(msgs) == 0 {
		return p.theme.CardMuted.Render("No messages yet. Say hello to " + p.Agent() + ".")
	}

	width := p.viewport.Width
	bubbleWidth := width * 3 / 4
	if bubbleWidth < 16 {
		bubbleWidth = width
	}

	var b strings.Builder
	for i, m := range msgs {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(p.renderMessage(m, bubbleWidth, width))
	}
	if p.session.State() == chat.StatePending {
		b.WriteString("\n\n")
		b.WriteString(p.spinner.View() + " " + p.theme.CardMuted.Render(p.Agent()+" is typing..."))
	}
	return b.String()
}

func (p *Panel) renderMessage(m model.Message, bubbleWidth, width int) string {
	label := m.Role.DisplayName()
	if m.Role == model.RoleAssistant {
		label = p.Agent()
	}
	meta := p.theme.CardLabel.Render(label)
	if ts := m.DisplayTime(); ts != "" {
		meta += " " + p.theme.Timestamp.Render(ts)
	}

	if m.Role == model.RoleUser {
		st := p.theme.UserBubble
		body := st.Width(bubbleWidth - st.GetHorizontalBorderSize() - st.GetHorizontalMargins()).Render(m.Content)
		return lipgloss.PlaceHorizontal(width, lipgloss.Right, lipgloss.JoinVertical(lipgloss.Right, meta, body))
	}
	st := p.theme.AssistantBubble
	text := p.markdown.Render(m.Content, bubbleWidth-st.GetHorizontalFrameSize())
	body := st.Width(bubbleWidth - st.GetHorizontalBorderSize() - st.GetHorizontalMargins()).Render(text)
	return lipgloss.JoinVertical(lipgloss.Left, meta, body)
}

// View renders the panel.
func (p *Panel) View() string {
	title := p.theme.ChatTitle.Render("Chat with " + p.Agent())
	if id := p.session.ChatID(); !id.IsZero() {
		title += " " + p.theme.Timestamp.Render("#"+id.String())
	}

	var flags []string
	switch {
	case p.session.Loading() && len(p.session.Messages()) == 0:
		flags = append(flags, p.spinner.View()+" Loading conversation...")
	case p.session.State() == chat.StatePending:
		flags = append(flags, p.spinner.View()+" Waiting for reply")
	}
	if p.session.Listening() {
		flags = append(flags, p.theme.WarningStyle.Render(styles.StatusIndicators.Pending+" Listening..."))
	}
	if p.session.Speaking() {
		flags = append(flags, p.theme.InfoStyle.Render(styles.StatusIndicators.Active+" Speaking"))
	}
	status := strings.Join(flags, "  ")
	if err := p.session.Err(); err != nil {
		status = p.theme.ErrorStyle.Render(styles.StatusIndicators.Error + " " + err.Error())
	}

	input := p.theme.InputContainer.Width(p.viewport.Width).Render(p.input.View())

	body := lipgloss.JoinVertical(lipgloss.Left,
		title,
		p.viewport.View(),
		status,
		input,
	)
	style := p.theme.ChatPanel
	if p.width > 0 {
		style = style.Width(p.width - style.GetHorizontalBorderSize())
	}
	return style.Render(body)
}
