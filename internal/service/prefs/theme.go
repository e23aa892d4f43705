package prefs

import "github.com/rs/zerolog/log"

// DarkModeKey is the storage key of the dark-mode flag.
const DarkModeKey = "gst_dark_mode"

// Theme reads and writes the dark-mode preference.
type Theme struct {
	kv KV
}

// NewTheme wraps kv.
func NewTheme(kv KV) *Theme {
	return &Theme{kv: kv}
}

// Dark reports whether dark mode is on. Anything but "true" means off.
func (t *Theme) Dark() bool {
	value, ok, err := t.kv.Get(DarkModeKey)
	if err != nil {
		log.Warn().Err(err).Msg("[prefs] read dark mode failed")
		return false
	}
	return ok && value == "true"
}

// SetDark persists the flag.
func (t *Theme) SetDark(on bool) error {
	value := "false"
	if on {
		value = "true"
	}
	return t.kv.Set(DarkModeKey, value)
}

// Toggle flips the flag and returns the new value.
func (t *Theme) Toggle() (bool, error) {
	next := !t.Dark()
	if err := t.SetDark(next); err != nil {
		return !next, err
	}
	return next, nil
}
