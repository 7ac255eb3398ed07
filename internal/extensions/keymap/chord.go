package keymap

import (
	"strings"

	"github.com/dshills/loom/internal/pm"
)

// Chord is a parsed key binding such as "Shift-Mod-z".
type Chord struct {
	Key   string
	Shift bool
	Alt   bool
	Ctrl  bool
	Meta  bool
	Mod   bool
}

// ParseChord parses a binding. Modifiers are Shift, Alt, Ctrl, Meta (or
// Cmd), and Mod, which matches either Ctrl or Meta.
func ParseChord(s string) Chord {
	var c Chord
	parts := strings.Split(s, "-")
	// "Mod--" binds the minus key.
	if strings.HasSuffix(s, "--") {
		parts = append(strings.Split(strings.TrimSuffix(s, "--"), "-"), "-")
	}
	for i, p := range parts {
		if i == len(parts)-1 {
			c.Key = normalizeKey(p)
			break
		}
		switch strings.ToLower(p) {
		case "shift":
			c.Shift = true
		case "alt":
			c.Alt = true
		case "ctrl", "control":
			c.Ctrl = true
		case "meta", "cmd":
			c.Meta = true
		case "mod":
			c.Mod = true
		}
	}
	return c
}

// Matches reports whether event is a keydown for this chord.
func (c Chord) Matches(event *pm.Event) bool {
	if normalizeKey(event.Key) != c.Key {
		return false
	}
	if event.Shift != c.Shift || event.Alt != c.Alt {
		return false
	}
	if c.Mod {
		return event.Ctrl != event.Meta
	}
	return event.Ctrl == c.Ctrl && event.Meta == c.Meta
}

func normalizeKey(k string) string {
	if len([]rune(k)) == 1 {
		return strings.ToLower(k)
	}
	switch strings.ToLower(k) {
	case "esc":
		return "Escape"
	case "space", "spacebar":
		return " "
	}
	return k
}
