// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/jeranaias/invtui/internal/logging"
	"github.com/jeranaias/invtui/internal/speech"
)

func newSayCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "say <text...>",
		Short:   "Speak text with the configured speech provider",
		Example: `  invtui say "Stock for Galaxy S24 is low"`,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := opts.load(logging.ModeCLI)
			if err != nil {
				return err
			}
			defer rt.Close()

			b := rt.bridge()
			if b.Speaker == nil {
				return fmt.Errorf("speech is disabled (speech.provider = %q)", b.Provider)
			}
			text := strings.Join(args, " ")
			if err := b.Speaker.Speak(cmd.Context(), text); err != nil && !errors.Is(err, speech.ErrCancelled) {
				return err
			}
			return nil
		},
	}
}

func newListenCmd(opts *rootOptions) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "listen",
		Short: "Capture one voice input and print the transcript",
		Long: fmt.Sprintf(`Record from the microphone for up to %s and print what was said.`,
			speech.CaptureLimit),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := opts.load(logging.ModeCLI)
			if err != nil {
				return err
			}
			defer rt.Close()

			out := cmd.OutOrStdout()
			return OutputJSON(out, jsonOut, "listen", func() (interface{}, error) {
				b := rt.bridge()
				if b.Listener == nil {
					return nil, fmt.Errorf("speech is disabled (speech.provider = %q)", b.Provider)
				}
				if !jsonOut {
					fmt.Fprintln(cmd.ErrOrStderr(), RenderConditional(DimStyle, "Listening..."))
				}
				text, err := captureOnce(cmd.Context(), b.Listener)
				if err != nil {
					return nil, err
				}
				if !jsonOut {
					fmt.Fprintln(out, text)
				}
				return TranscriptData{Text: text}, nil
			})
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "output JSON")
	return cmd
}

// captureOnce runs one capture session and waits for its outcome.
func captureOnce(ctx context.Context, l speech.Listener) (string, error) {
	type outcome struct {
		text string
		err  error
	}
	done := make(chan outcome, 1)
	h := l.Listen(ctx,
		func(text string) { done <- outcome{text: text} },
		func(msg string) { done <- outcome{err: errors.New(msg)} },
	)

	// A nil handle may still have reported why through onError.
	if h == nil {
		select {
		case o := <-done:
			if o.err != nil {
				return "", o.err
			}
			return o.text, nil
		default:
			return "", errors.New("speech recognition is not available")
		}
	}

	timer := time.NewTimer(speech.CaptureLimit + 15*time.Second)
	defer timer.Stop()
	select {
	case o := <-done:
		return o.text, o.err
	case <-timer.C:
		h.Stop()
		return "", errors.New("no speech captured")
	case <-ctx.Done():
		h.Stop()
		return "", ctx.Err()
	}
}
