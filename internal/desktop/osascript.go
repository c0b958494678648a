package desktop

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

const capturePointerScript = `import Quartz.CoreGraphics as CG
loc = CG.CGEventGetLocation(CG.CGEventCreate(None))
print(int(loc.x), int(loc.y))`

const movePointerScript = `import sys
import Quartz.CoreGraphics as CG
x, y = float(sys.argv[1]), float(sys.argv[2])
event = CG.CGEventCreateMouseEvent(None, CG.kCGEventMouseMoved, (x, y), 0)
CG.CGEventPost(CG.kCGHIDEventTap, event)`

// OSAScript drives the macOS desktop. Hotkeys go through osascript and
// System Events; the pointer goes through a Python interpreter with the
// Quartz bindings installed.
type OSAScript struct {
	runner Runner
	python string
}

// NewOSAScript creates a controller. An empty python path means "python3".
func NewOSAScript(runner Runner, python string) *OSAScript {
	if runner == nil {
		runner = ExecRunner{}
	}
	if python == "" {
		python = "python3"
	}
	return &OSAScript{runner: runner, python: python}
}

// CapturePointer returns the current pointer location
func (o *OSAScript) CapturePointer(ctx context.Context) (CursorPosition, error) {
	out, err := o.runner.Run(ctx, o.python, "-c", capturePointerScript)
	if err != nil {
		return CursorPosition{}, fmt.Errorf("capture pointer: %w", err)
	}
	pos, err := parsePosition(string(out))
	if err != nil {
		return CursorPosition{}, fmt.Errorf("capture pointer: %w", err)
	}
	return pos, nil
}

// SendHotkey synthesizes the key combination
func (o *OSAScript) SendHotkey(ctx context.Context, hk Hotkey) error {
	if _, err := o.runner.Run(ctx, "osascript", "-e", hk.AppleScript()); err != nil {
		return fmt.Errorf("send hotkey %s: %w", hk, err)
	}
	return nil
}

// MovePointer posts a mouse-moved event at pos
func (o *OSAScript) MovePointer(ctx context.Context, pos CursorPosition) error {
	_, err := o.runner.Run(ctx, o.python, "-c", movePointerScript, strconv.Itoa(pos.X), strconv.Itoa(pos.Y))
	if err != nil {
		return fmt.Errorf("move pointer to %s: %w", pos, err)
	}
	return nil
}

func parsePosition(out string) (CursorPosition, error) {
	fields := strings.Fields(out)
	if len(fields) != 2 {
		return CursorPosition{}, fmt.Errorf("unexpected pointer output %q", strings.TrimSpace(out))
	}
	x, err := strconv.Atoi(fields[0])
	if err != nil {
		return CursorPosition{}, fmt.Errorf("unexpected pointer x %q", fields[0])
	}
	y, err := strconv.Atoi(fields[1])
	if err != nil {
		return CursorPosition{}, fmt.Errorf("unexpected pointer y %q", fields[1])
	}
	return CursorPosition{X: x, Y: y}, nil
}
