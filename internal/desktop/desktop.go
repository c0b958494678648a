// Package desktop issues the keyboard and pointer primitives the lookup
// sequence needs. It holds no state; every call is one blocking subprocess.
package desktop

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// waitDelay bounds how long Run waits for output pipes after the command was
// killed, in case something outside its process group still holds them.
const waitDelay = 500 * time.Millisecond

// CursorPosition is an absolute pointer location in screen coordinates
type CursorPosition struct {
	X int `json:"x"`
	Y int `json:"y"`
}

func (p CursorPosition) String() string {
	return fmt.Sprintf("(%d, %d)", p.X, p.Y)
}

// Controller is the window/input facade used by the sequencer
type Controller interface {
	CapturePointer(ctx context.Context) (CursorPosition, error)
	SendHotkey(ctx context.Context, hk Hotkey) error
	MovePointer(ctx context.Context, pos CursorPosition) error
}

// Runner executes an external command and returns its stdout
type Runner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ExecRunner runs commands with os/exec. Stderr is folded into the error.
// When ctx ends the whole process group is killed, so wrapper scripts cannot
// outlive the call timeout through their children.
type ExecRunner struct{}

// Run implements Runner
func (ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	killGroupOnCancel(cmd)
	cmd.WaitDelay = waitDelay
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return out, fmt.Errorf("%s: %w", name, ctxErr)
		}
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return out, fmt.Errorf("%s: %w: %s", name, err, msg)
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return out, fmt.Errorf("%s exited with status %d", name, exitErr.ExitCode())
		}
		return out, fmt.Errorf("%s: %w", name, err)
	}
	return out, nil
}
