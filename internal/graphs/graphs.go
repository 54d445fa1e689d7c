// Package graphs triggers the out-of-process graph renderer. The core never
// renders or waits; it starts the job and serves whatever images the last
// completed run left behind.
package graphs

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

var (
	ErrNoCommand   = errors.New("graph command not configured")
	ErrUnknownKind = errors.New("unknown graph type")
	ErrNotRendered = errors.New("graph image not rendered yet")
)

var knownKinds = map[string]struct{}{
	"separate": {},
	"combined": {},
	"daily":    {},
}

// Renderer launches the configured render command and resolves rendered
// image paths.
type Renderer struct {
	command []string
	dir     string
	log     *zap.Logger
}

// New builds a Renderer from a shell-less command line (fields split on
// whitespace) and an output directory.
func New(command, dir string, log *zap.Logger) *Renderer {
	return &Renderer{
		command: strings.Fields(command),
		dir:     dir,
		log:     log,
	}
}

// Trigger starts one render run and returns without waiting for it. The
// exit status is only logged; a failed render leaves the previous images
// in place.
func (r *Renderer) Trigger() error {
	if len(r.command) == 0 {
		return ErrNoCommand
	}

	cmd := exec.Command(r.command[0], r.command[1:]...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start graph renderer: %w", err)
	}

	go func() {
		if err := cmd.Wait(); err != nil {
			r.log.Warn("graph renderer exited with error", zap.Error(err))
			return
		}
		r.log.Info("graph renderer finished", zap.String("dir", r.dir))
	}()

	return nil
}

// ImagePath resolves the rendered image for the given graph type
// (separate|combined|daily). ErrUnknownKind is a client error;
// ErrNotRendered means no run has produced this image yet.
func (r *Renderer) ImagePath(kind string) (string, error) {
	if _, ok := knownKinds[kind]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}

	path := filepath.Join(r.dir, "weather_"+kind+".png")
	if _, err := os.Stat(path); err != nil {
		return "", ErrNotRendered
	}
	return path, nil
}
