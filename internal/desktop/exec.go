// Package desktop runs the external programs the assistant drives.
package desktop

import (
	"bytes"
	"context"
	"fmt"
	log "log/slog"
	"os/exec"
	"strings"
)

// Runner starts external commands. Skills take a Runner so tests can
// record the command lines instead of executing them.
type Runner interface {
	// Run waits for the command to finish.
	Run(ctx context.Context, name string, args ...string) error
	// Output waits for the command and returns its stdout.
	Output(ctx context.Context, name string, args ...string) ([]byte, error)
	// Start launches the command and does not wait for it.
	Start(name string, args ...string) error
}

type Exec struct{}

func (Exec) Run(ctx context.Context, name string, args ...string) error {
	_, err := Exec{}.Output(ctx, name, args...)
	return err
}

func (Exec) Output(ctx context.Context, name string, args ...string) ([]byte, error) {
	var stderr bytes.Buffer

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return out, fmt.Errorf("%s: %w: %s", name, err, msg)
		}
		return out, fmt.Errorf("%s: %w", name, err)
	}
	return out, nil
}

func (Exec) Start(name string, args ...string) error {
	cmd := exec.Command(name, args...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}

	// reap the child so it does not linger as a zombie
	go func() {
		if err := cmd.Wait(); err != nil {
			log.Debug("Detached command exited", "cmd", name, "err", err)
		}
	}()
	return nil
}

// Opener shows a URL to the user.
type Opener interface {
	Open(ctx context.Context, url string) error
}

// Browser opens URLs with the desktop's default handler.
type Browser struct {
	Runner  Runner
	Command string
}

func NewBrowser(r Runner) *Browser {
	return &Browser{Runner: r, Command: "xdg-open"}
}

func (b *Browser) Open(_ context.Context, url string) error {
	log.Debug("Opening URL", "url", url)
	return b.Runner.Start(b.Command, url)
}
