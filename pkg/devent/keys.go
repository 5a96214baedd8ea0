package devent

import "strings"

// Canonical lowercase key names. Platform sources map raw key codes
// onto this vocabulary; anything outside it is normalised to "unknown"
// so the log never grows an open-ended name set.
var knownKeys = map[string]struct{}{
	// modifiers
	"caps_lock": {}, "shift": {}, "control": {}, "fn": {}, "alt": {}, "meta": {},
	// function row
	"f1": {}, "f2": {}, "f3": {}, "f4": {}, "f5": {}, "f6": {},
	"f7": {}, "f8": {}, "f9": {}, "f10": {}, "f11": {}, "f12": {},
	// letters
	"a": {}, "b": {}, "c": {}, "d": {}, "e": {}, "f": {}, "g": {}, "h": {},
	"i": {}, "j": {}, "k": {}, "l": {}, "m": {}, "n": {}, "o": {}, "p": {},
	"q": {}, "r": {}, "s": {}, "t": {}, "u": {}, "v": {}, "w": {}, "x": {},
	"y": {}, "z": {},
	// digits
	"0": {}, "1": {}, "2": {}, "3": {}, "4": {}, "5": {}, "6": {}, "7": {},
	"8": {}, "9": {},
	// navigation
	"arrow_up": {}, "arrow_down": {}, "arrow_left": {}, "arrow_right": {},
	"home": {}, "end": {}, "page_up": {}, "page_down": {},
	// special
	"escape": {}, "enter": {}, "tab": {}, "space": {}, "backspace": {},
	"insert": {}, "delete": {}, "num_lock": {}, "scroll_lock": {},
	"pause": {}, "print_screen": {},
	// symbols
	"grave": {}, "minus": {}, "equal": {}, "bracket_left": {}, "bracket_right": {},
	"semicolon": {}, "quote": {}, "comma": {}, "period": {}, "slash": {},
	"backslash": {},
}

// UnknownKey is recorded when a platform key code has no canonical name.
const UnknownKey = "unknown"

// NormalizeKey lowercases a key name and collapses anything outside the
// canonical vocabulary to UnknownKey.
func NormalizeKey(key string) string {
	normalized := strings.ToLower(strings.TrimSpace(key))
	if _, ok := knownKeys[normalized]; ok {
		return normalized
	}
	return UnknownKey
}

// KnownKey reports whether name is part of the canonical vocabulary.
func KnownKey(name string) bool {
	_, ok := knownKeys[name]
	return ok
}
