package darwin

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/shazow/wifiman/wifi"
)

// Runner executes an external command and returns what it printed.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (stdout []byte, stderr []byte, err error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	var stdout, stderr bytes.Buffer
	c := exec.CommandContext(ctx, name, args...)
	c.Stdout = &stdout
	c.Stderr = &stderr
	err := c.Run()
	return stdout.Bytes(), stderr.Bytes(), err
}

// runWithOutput runs a command and wraps failures with the command line and stderr.
func runWithOutput(ctx context.Context, r Runner, name string, args ...string) ([]byte, error) {
	out, stderr, err := r.Run(ctx, name, args...)
	if err != nil {
		return out, fmt.Errorf("failed to run command: %s %s: %w: %v: %s", name, strings.Join(args, " "), wifi.ErrCommandFailed, err, strings.TrimSpace(string(stderr)))
	}
	return out, nil
}

// runOnly is runWithOutput for commands where we don't care about stdout.
func runOnly(ctx context.Context, r Runner, name string, args ...string) error {
	_, err := runWithOutput(ctx, r, name, args...)
	return err
}
