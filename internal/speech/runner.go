// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package speech

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Runner starts external programs. Run and Output must stop the program when
// ctx is cancelled.
type Runner interface {
	LookPath(name string) (string, error)
	Run(ctx context.Context, name string, args ...string) error
	Output(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ExecRunner runs programs with os/exec.
type ExecRunner struct{}

// LookPath implements Runner.
func (ExecRunner) LookPath(name string) (string, error) {
	return exec.LookPath(name)
}

// Run implements Runner.
func (ExecRunner) Run(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return fmt.Errorf("%s: %w: %s", filepath.Base(name), err, msg)
		}
		return fmt.Errorf("%s: %w", filepath.Base(name), err)
	}
	return nil
}

// Output implements Runner.
func (ExecRunner) Output(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return out, fmt.Errorf("%s: %w: %s", filepath.Base(name), err, msg)
		}
		return out, fmt.Errorf("%s: %w", filepath.Base(name), err)
	}
	return out, nil
}

// firstAvailable returns the configured program when set, else the first
// candidate found on PATH. It returns "" when nothing is found.
func firstAvailable(r Runner, configured string, candidates ...string) string {
	if configured != "" {
		fields := strings.Fields(configured)
		if len(fields) > 0 {
			if p, err := r.LookPath(fields[0]); err == nil {
				return p
			}
		}
		return ""
	}
	for _, c := range candidates {
		if p, err := r.LookPath(c); err == nil {
			return p
		}
	}
	return ""
}

// =============================================================================
// RECORDING
// =============================================================================

var recorderCandidates = []string{"arecord", "rec", "ffmpeg"}

// recordArgs builds the arguments to record 16 kHz mono WAV to path for at
// most limit.
func recordArgs(program, path string, limit time.Duration) []string {
	secs := strconv.Itoa(int(limit.Round(time.Second) / time.Second))
	switch filepath.Base(program) {
	case "rec", "sox":
		return []string{"-q", "-r", "16000", "-c", "1", path, "trim", "0", secs}
	case "ffmpeg":
		src := []string{"-f", "alsa", "-i", "default"}
		if isDarwin() {
			src = []string{"-f", "avfoundation", "-i", ":0"}
		}
		args := append([]string{"-loglevel", "error", "-y"}, src...)
		return append(args, "-t", secs, "-ar", "16000", "-ac", "1", path)
	default:
		return []string{"-q", "-f", "S16_LE", "-r", "16000", "-c", "1", "-d", secs, path}
	}
}

// record captures audio into a temporary WAV file. The capture stops after
// CaptureLimit or when stopCtx is cancelled; both count as a normal end. The
// caller removes the returned file.
func record(ctx, stopCtx context.Context, r Runner, program string) (string, error) {
	f, err := os.CreateTemp("", "invtui-capture-*.wav")
	if err != nil {
		return "", fmt.Errorf("create capture file: %w", err)
	}
	path := f.Name()
	f.Close()

	recCtx, cancel := context.WithTimeout(stopCtx, CaptureLimit)
	defer cancel()

	err = r.Run(recCtx, program, recordArgs(program, path, CaptureLimit)...)
	if ctx.Err() != nil {
		os.Remove(path)
		return "", ctx.Err()
	}
	if err != nil && recCtx.Err() == nil {
		os.Remove(path)
		return "", fmt.Errorf("record audio: %w", err)
	}
	if st, statErr := os.Stat(path); statErr != nil || st.Size() == 0 {
		os.Remove(path)
		return "", fmt.Errorf("no audio was captured")
	}
	return path, nil
}
