// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// chat.go - line-mode chat with one agent.
//
// Command: chat <agent>
//
// Examples:
//   invtui chat "Stock Keeper"             Start a new chat
//   invtui chat "Stock Keeper" --resume 42 Continue chat #42
//
// Interactive Commands (during chat):
//   /help, /h           Show available commands
//   /listen, /l         Capture one voice input and put it on the next prompt
//   /speak [on|off]     Show or toggle speaking replies aloud
//   /stop               Stop speaking
//   /history            Show the conversation
//   /quit, /q           Exit chat
//   Ctrl+D              Exit chat
package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/peterh/liner"
	"github.com/spf13/cobra"

	"github.com/jeranaias/invtui/internal/chat"
	"github.com/jeranaias/invtui/internal/config"
	"github.com/jeranaias/invtui/internal/logging"
	"github.com/jeranaias/invtui/internal/model"
	"github.com/jeranaias/invtui/internal/speech"
	"github.com/jeranaias/invtui/internal/ui/components"
)

// =============================================================================
// INPUT
// =============================================================================

// lineReader reads one line of input. suggestion prefills the line where
// the reader supports editing.
type lineReader interface {
	Prompt(prompt, suggestion string) (string, error)
	Close() error
}

// historyReader provides input history and line editing on a terminal.
type historyReader struct {
	line        *liner.State
	historyFile string
}

func newHistoryReader() *historyReader {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	dir, err := config.ConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	r := &historyReader{line: line, historyFile: filepath.Join(dir, "chat_history")}
	if f, err := os.Open(r.historyFile); err == nil {
		_, _ = line.ReadHistory(f)
		f.Close()
	}
	return r
}

func (r *historyReader) Prompt(prompt, suggestion string) (string, error) {
	var (
		input string
		err   error
	)
	if suggestion != "" {
		input, err = r.line.PromptWithSuggestion(prompt, suggestion, -1)
	} else {
		input, err = r.line.Prompt(prompt)
	}
	if errors.Is(err, liner.ErrPromptAborted) {
		return "", io.EOF
	}
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(input) != "" {
		r.line.AppendHistory(input)
	}
	return input, nil
}

// Close saves history with owner-only permissions and restores the terminal.
func (r *historyReader) Close() error {
	if err := os.MkdirAll(filepath.Dir(r.historyFile), 0o700); err == nil {
		if f, err := os.OpenFile(r.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600); err == nil {
			_, _ = r.line.WriteHistory(f)
			f.Close()
		}
	}
	return r.line.Close()
}

// scanReader reads piped input. A blank line accepts the suggestion.
type scanReader struct {
	sc  *bufio.Scanner
	out io.Writer
}

func newScanReader(in io.Reader, out io.Writer) *scanReader {
	return &scanReader{sc: bufio.NewScanner(in), out: out}
}

func (r *scanReader) Prompt(prompt, suggestion string) (string, error) {
	fmt.Fprint(r.out, prompt)
	if suggestion != "" {
		fmt.Fprintf(r.out, "[%s] ", suggestion)
	}
	if !r.sc.Scan() {
		fmt.Fprintln(r.out)
		if err := r.sc.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	line := r.sc.Text()
	fmt.Fprintln(r.out, line)
	if strings.TrimSpace(line) == "" && suggestion != "" {
		return suggestion, nil
	}
	return line, nil
}

func (r *scanReader) Close() error { return nil }

// =============================================================================
// COMMAND
// =============================================================================

func newChatCmd(opts *rootOptions) *cobra.Command {
	var (
		resume  string
		noSpeak bool
	)

	cmd := &cobra.Command{
		Use:   "chat <agent>",
		Short: "Chat with an agent in the terminal",
		Long: `Start a line-mode conversation with an agent.

Replies are rendered as markdown and, when speech is configured and
auto_speak is on, read aloud. Type /help inside the chat for commands.`,
		Example: `  invtui chat "Stock Keeper"
  invtui chat "Stock Keeper" --resume 42`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			agent := strings.TrimSpace(args[0])
			if agent == "" {
				return errors.New("agent name is required")
			}

			rt, err := opts.load(logging.ModeCLI)
			if err != nil {
				return err
			}
			defer rt.Close()

			repl := &chatREPL{
				out:    cmd.OutOrStdout(),
				errOut: cmd.ErrOrStderr(),
				events: make(chan chat.Event, 16),
				md:     components.NewMarkdownRenderer(rt.cfg.UI.Markdown, markdownStyle(rt.cfg.UI.Theme)),
				width:  GetTerminalWidth(),
			}

			bridge := rt.bridge()
			sessOpts := []chat.Option{
				chat.WithUser(rt.cfg.User),
				chat.WithLogger(rt.log),
				chat.WithNotify(repl.notify),
			}
			if bridge.Speaker != nil {
				sessOpts = append(sessOpts, chat.WithSpeaker(bridge.Speaker, rt.cfg.Speech.AutoSpeak && !noSpeak))
			}
			if bridge.Listener != nil {
				sessOpts = append(sessOpts, chat.WithListener(bridge.Listener))
			}
			if resume != "" {
				sessOpts = append(sessOpts, chat.WithChatID(model.ID(resume)))
			} else {
				sessOpts = append(sessOpts, chat.WithGreeting())
			}
			repl.session = chat.NewSession(rt.apis().Agents, agent, sessOpts...)

			if in := cmd.InOrStdin(); in == os.Stdin && IsTTY() {
				repl.reader = newHistoryReader()
			} else {
				repl.reader = newScanReader(in, repl.out)
			}
			defer repl.reader.Close()

			return repl.run(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&resume, "resume", "", "continue an existing chat by id")
	cmd.Flags().BoolVar(&noSpeak, "no-speak", false, "do not read replies aloud")
	return cmd
}

func markdownStyle(theme string) string {
	switch theme {
	case "light", "dark":
		return theme
	}
	return ""
}

// =============================================================================
// REPL
// =============================================================================

type chatREPL struct {
	session *chat.Session
	reader  lineReader
	out     io.Writer
	errOut  io.Writer
	events  chan chat.Event
	md      *components.MarkdownRenderer
	width   int

	// pending is the last transcript, offered on the next prompt.
	pending string
}

// notify runs on session goroutines; only the events /listen waits on are
// kept.
func (r *chatREPL) notify(ev chat.Event) {
	if ev.Kind != chat.EventTranscript && ev.Kind != chat.EventError {
		return
	}
	select {
	case r.events <- ev:
	default:
	}
}

func (r *chatREPL) run(ctx context.Context) error {
	r.printWelcome()

	if err := r.session.LoadHistory(ctx); err != nil {
		return fmt.Errorf("failed to load chat %s: %w", r.session.ChatID(), err)
	}
	for _, m := range r.session.Messages() {
		r.printMessage(m)
	}

	for {
		if ctx.Err() != nil {
			return nil
		}
		suggestion := r.pending
		r.pending = ""

		input, err := r.reader.Prompt("you> ", suggestion)
		if err != nil {
			r.session.StopSpeaking()
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}

		if strings.HasPrefix(input, "/") {
			if !r.handleCommand(ctx, input) {
				r.session.StopSpeaking()
				return nil
			}
			continue
		}

		reply, err := r.session.Send(ctx, input)
		if err != nil {
			if errors.Is(err, chat.ErrPending) || errors.Is(err, chat.ErrEmptyMessage) {
				continue
			}
			fmt.Fprintf(r.errOut, "%s %v\n", RenderConditional(ErrorStyle, "[Error]"), err)
			continue
		}
		r.printMessage(reply)
	}
}

// handleCommand runs a slash command and reports whether the chat goes on.
func (r *chatREPL) handleCommand(ctx context.Context, input string) bool {
	fields := strings.Fields(input)
	switch strings.ToLower(fields[0]) {
	case "/quit", "/q", "/exit":
		return false
	case "/help", "/h":
		r.printHelp()
	case "/history":
		msgs := r.session.Messages()
		if len(msgs) == 0 {
			fmt.Fprintln(r.out, RenderConditional(DimStyle, "No messages yet."))
		}
		for _, m := range msgs {
			r.printMessage(m)
		}
	case "/stop":
		r.session.StopSpeaking()
	case "/speak":
		if len(fields) > 1 {
			switch strings.ToLower(fields[1]) {
			case "on":
				r.session.SetAutoSpeak(true)
			case "off":
				r.session.SetAutoSpeak(false)
				r.session.StopSpeaking()
			default:
				fmt.Fprintln(r.errOut, "usage: /speak [on|off]")
				return true
			}
		}
		state := "off"
		if r.session.AutoSpeak() {
			state = "on"
		}
		fmt.Fprintf(r.out, "%s %s\n", RenderConditional(DimStyle, "Speak replies:"), state)
	case "/listen", "/l":
		r.listen(ctx)
	default:
		fmt.Fprintf(r.errOut, "%s unknown command %s (try /help)\n", RenderConditional(WarningStyle, "[!]"), fields[0])
	}
	return true
}

// listen captures one utterance. The transcript becomes the next prompt's
// suggestion; it is never sent on its own.
func (r *chatREPL) listen(ctx context.Context) {
	for len(r.events) > 0 {
		<-r.events
	}

	if !r.session.StartListening(ctx, nil) {
		err := r.session.Err()
		if err == nil {
			err = chat.ErrListenerUnavailable
		}
		fmt.Fprintf(r.errOut, "%s %v\n", RenderConditional(ErrorStyle, "[Error]"), err)
		return
	}
	fmt.Fprintln(r.out, RenderConditional(DimStyle, "Listening..."))

	timer := time.NewTimer(speech.CaptureLimit + 15*time.Second)
	defer timer.Stop()
	for {
		select {
		case ev := <-r.events:
			switch ev.Kind {
			case chat.EventTranscript:
				r.pending = ev.Text
				return
			case chat.EventError:
				fmt.Fprintf(r.errOut, "%s %v\n", RenderConditional(ErrorStyle, "[Error]"), ev.Err)
				return
			}
		case <-timer.C:
			r.session.StopListening()
			fmt.Fprintln(r.errOut, "no speech captured")
			return
		case <-ctx.Done():
			r.session.StopListening()
			return
		}
	}
}

func (r *chatREPL) printWelcome() {
	fmt.Fprintln(r.out)
	title := "Chat with " + r.session.AgentName()
	if id := r.session.ChatID(); !id.IsZero() {
		title += " #" + id.String()
	}
	fmt.Fprintln(r.out, RenderConditional(TitleStyle, title))
	fmt.Fprintln(r.out, RenderConditional(DimStyle, "Type /help for commands, /quit or Ctrl+D to exit."))
	fmt.Fprintln(r.out)
}

func (r *chatREPL) printMessage(m model.Message) {
	if m.Role == model.RoleUser {
		fmt.Fprintf(r.out, "%s %s\n", RenderConditional(PromptStyle, "you:"), m.Content)
		return
	}
	width := r.width - 4
	if width > 100 {
		width = 100
	}
	body := m.Content
	if ColorsEnabled() {
		body = r.md.Render(m.Content, width)
	}
	fmt.Fprintf(r.out, "%s\n%s\n\n", RenderConditional(AgentNameStyle, r.session.AgentName()+":"), body)
}

func (r *chatREPL) printHelp() {
	fmt.Fprintln(r.out)
	fmt.Fprintln(r.out, RenderConditional(SectionStyle, "Available Commands"))
	commands := []struct {
		cmd  string
		desc string
	}{
		{"/help, /h", "Show this help"},
		{"/listen, /l", "Speak your next message"},
		{"/speak [on|off]", "Read replies aloud"},
		{"/stop", "Stop speaking"},
		{"/history", "Show the conversation"},
		{"/quit, /q", "Exit chat"},
	}
	for _, c := range commands {
		fmt.Fprintf(r.out, "  %-17s %s\n", c.cmd, RenderConditional(DimStyle, c.desc))
	}
	fmt.Fprintln(r.out)
}
