package desktop

import (
	"fmt"
	"strconv"
	"strings"
)

// Modifier is a bit set of held modifier keys
type Modifier uint8

const (
	Command Modifier = 1 << iota
	Option
	Control
	Shift
)

// pressOrder is the order modifiers go down; they come up in reverse
var pressOrder = []struct {
	mod    Modifier
	name   string
	script string
}{
	{Command, "cmd", "command"},
	{Option, "opt", "option"},
	{Control, "ctrl", "control"},
	{Shift, "shift", "shift"},
}

var modifierAliases = map[string]Modifier{
	"cmd":     Command,
	"command": Command,
	"opt":     Option,
	"option":  Option,
	"alt":     Option,
	"ctrl":    Control,
	"control": Control,
	"shift":   Shift,
}

// Hotkey is a modifier combination plus a virtual key code
type Hotkey struct {
	Modifiers Modifier
	KeyCode   int
}

// ParseHotkey parses bindings like "cmd+opt+ctrl+15".
// The last component is the numeric key code; everything before it is a modifier.
func ParseHotkey(binding string) (Hotkey, error) {
	parts := strings.Split(binding, "+")
	if len(parts) < 2 {
		return Hotkey{}, fmt.Errorf("invalid hotkey %q (need modifier+keycode)", binding)
	}

	var hk Hotkey
	for _, part := range parts[:len(parts)-1] {
		name := strings.ToLower(strings.TrimSpace(part))
		mod, ok := modifierAliases[name]
		if !ok {
			return Hotkey{}, fmt.Errorf("invalid hotkey %q: unknown modifier %q", binding, name)
		}
		hk.Modifiers |= mod
	}

	key := strings.TrimSpace(parts[len(parts)-1])
	code, err := strconv.Atoi(key)
	if err != nil || code < 0 {
		return Hotkey{}, fmt.Errorf("invalid hotkey %q: key code %q is not a non-negative integer", binding, key)
	}
	hk.KeyCode = code
	return hk, nil
}

// MustParseHotkey is ParseHotkey for compile-time constants
func MustParseHotkey(binding string) Hotkey {
	hk, err := ParseHotkey(binding)
	if err != nil {
		panic(err)
	}
	return hk
}

// Has reports whether m is held
func (h Hotkey) Has(m Modifier) bool {
	return h.Modifiers&m != 0
}

// String renders the canonical binding form accepted by ParseHotkey
func (h Hotkey) String() string {
	var parts []string
	for _, p := range pressOrder {
		if h.Has(p.mod) {
			parts = append(parts, p.name)
		}
	}
	parts = append(parts, strconv.Itoa(h.KeyCode))
	return strings.Join(parts, "+")
}

// AppleScript renders a System Events script that presses the combination.
// Modifiers are held explicitly with key down/up rather than "using {...}",
// which some global hotkey daemons do not pick up.
func (h Hotkey) AppleScript() string {
	var b strings.Builder
	b.WriteString("tell application \"System Events\"\n")
	for _, p := range pressOrder {
		if h.Has(p.mod) {
			fmt.Fprintf(&b, "    key down %s\n", p.script)
		}
	}
	fmt.Fprintf(&b, "    key code %d\n", h.KeyCode)
	for i := len(pressOrder) - 1; i >= 0; i-- {
		if h.Has(pressOrder[i].mod) {
			fmt.Fprintf(&b, "    key up %s\n", pressOrder[i].script)
		}
	}
	b.WriteString("end tell\n")
	return b.String()
}
