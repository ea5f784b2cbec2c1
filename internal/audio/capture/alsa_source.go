// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package internal_capture

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"
)

// alsaSource records raw LINEAR16 PCM from the default ALSA device via
// arecord. Using the external binary keeps the build cgo-free.
type alsaSource struct {
	device string
	cmd    *exec.Cmd
	stdout io.ReadCloser
	stderr bytes.Buffer
}

// NewALSASource returns a Source reading from the given ALSA device
// ("default" when empty).
func NewALSASource(device string) Source {
	if device == "" {
		device = "default"
	}
	return &alsaSource{device: device}
}

func (s *alsaSource) Open(ctx context.Context) error {
	if s.cmd != nil {
		return ErrDeviceBusy
	}
	cmd := exec.CommandContext(ctx, "arecord",
		"-D", s.device,
		"-f", "S16_LE",
		"-r", strconv.Itoa(int(audioConfig.SampleRate)),
		"-c", strconv.Itoa(int(audioConfig.Channels)),
		"-t", "raw",
		"-q",
		"-")
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("capture: stdout pipe: %w", err)
	}
	cmd.Stderr = &s.stderr
	if err := cmd.Start(); err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return ErrDeviceNotFound
		}
		return classifyALSAError(err.Error())
	}
	s.cmd = cmd
	s.stdout = stdout
	return nil
}

func (s *alsaSource) Read(p []byte) (int, error) {
	if s.stdout == nil {
		return 0, io.EOF
	}
	n, err := s.stdout.Read(p)
	if err != nil && s.stderr.Len() > 0 {
		// arecord writes the refusal reason to stderr and exits.
		return n, classifyALSAError(s.stderr.String())
	}
	return n, err
}

func (s *alsaSource) Close() error {
	if s.cmd == nil {
		return nil
	}
	if s.cmd.Process != nil {
		// SIGKILL is fine for raw output; there is no trailer to flush.
		_ = s.cmd.Process.Kill()
	}
	_ = s.cmd.Wait()
	s.cmd = nil
	s.stdout = nil
	return nil
}

func classifyALSAError(msg string) error {
	lower := strings.ToLower(msg)
	switch {
	case strings.Contains(lower, "permission denied"):
		return ErrPermissionDenied
	case strings.Contains(lower, "busy"):
		return ErrDeviceBusy
	case strings.Contains(lower, "no such"), strings.Contains(lower, "not found"),
		strings.Contains(lower, "no soundcards"):
		return ErrDeviceNotFound
	default:
		return fmt.Errorf("capture: %s", strings.TrimSpace(msg))
	}
}
