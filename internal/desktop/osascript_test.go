package desktop

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type call struct {
	name string
	args []string
}

type fakeRunner struct {
	calls []call
	out   []byte
	err   error
}

func (f *fakeRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	f.calls = append(f.calls, call{name: name, args: args})
	return f.out, f.err
}

func TestCapturePointer(t *testing.T) {
	runner := &fakeRunner{out: []byte("812 403\n")}
	ctl := NewOSAScript(runner, "/opt/venv/bin/python")

	pos, err := ctl.CapturePointer(context.Background())
	require.NoError(t, err)
	assert.Equal(t, CursorPosition{X: 812, Y: 403}, pos)

	require.Len(t, runner.calls, 1)
	assert.Equal(t, "/opt/venv/bin/python", runner.calls[0].name)
	assert.Equal(t, "-c", runner.calls[0].args[0])
}

func TestCapturePointerMalformedOutput(t *testing.T) {
	for _, out := range []string{"", "12", "a b", "1 2 3", "1 y"} {
		ctl := NewOSAScript(&fakeRunner{out: []byte(out)}, "")
		_, err := ctl.CapturePointer(context.Background())
		assert.Error(t, err, "output %q", out)
	}
}

func TestSendHotkey(t *testing.T) {
	runner := &fakeRunner{}
	ctl := NewOSAScript(runner, "")

	require.NoError(t, ctl.SendHotkey(context.Background(), MustParseHotkey("cmd+opt+ctrl+15")))
	require.Len(t, runner.calls, 1)

	c := runner.calls[0]
	assert.Equal(t, "osascript", c.name)
	require.Len(t, c.args, 2)
	assert.Equal(t, "-e", c.args[0])
	assert.Contains(t, c.args[1], "key code 15")
}

func TestSendHotkeyError(t *testing.T) {
	cause := errors.New("osascript exited with status 1")
	ctl := NewOSAScript(&fakeRunner{err: cause}, "")

	err := ctl.SendHotkey(context.Background(), MustParseHotkey("cmd+1"))
	require.ErrorIs(t, err, cause)
	assert.ErrorContains(t, err, "cmd+1")
}

func TestMovePointer(t *testing.T) {
	runner := &fakeRunner{}
	ctl := NewOSAScript(runner, "")

	require.NoError(t, ctl.MovePointer(context.Background(), CursorPosition{X: 10, Y: -4}))
	require.Len(t, runner.calls, 1)

	c := runner.calls[0]
	assert.Equal(t, "python3", c.name, "default interpreter")
	n := len(c.args)
	require.GreaterOrEqual(t, n, 2)
	assert.Equal(t, []string{"10", "-4"}, c.args[n-2:])
}

func TestCursorPositionString(t *testing.T) {
	assert.Equal(t, "(3, -7)", CursorPosition{X: 3, Y: -7}.String())
}
