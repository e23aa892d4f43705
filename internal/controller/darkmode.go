package controller

import "github.com/rs/zerolog/log"

// ThemeStore persists the dark-mode flag.
type ThemeStore interface {
	Dark() bool
	Toggle() (bool, error)
}

// ThemeView applies the theme.
type ThemeView interface {
	ApplyTheme(dark bool)
}

// DarkMode applies and toggles the local dark-mode preference.
type DarkMode struct {
	store ThemeStore
	view  ThemeView
}

// NewDarkMode wires the toggle.
func NewDarkMode(store ThemeStore, view ThemeView) *DarkMode {
	return &DarkMode{store: store, view: view}
}

// Init applies the saved preference.
func (d *DarkMode) Init() {
	d.view.ApplyTheme(d.store.Dark())
}

// Toggle flips, persists and applies the preference. When persisting fails
// the current setting stays applied.
func (d *DarkMode) Toggle() bool {
	dark, err := d.store.Toggle()
	if err != nil {
		log.Warn().Err(err).Msg("[theme] save preference failed")
	}
	d.view.ApplyTheme(dark)
	return dark
}
