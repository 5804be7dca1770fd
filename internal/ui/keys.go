// SPDX-License-Identifier: Apache-2.0

// This file defines the keyboard bindings for the TUI application.
// It maps keys to actions and provides descriptions for the help overlay.

package ui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the keybindings for the application. The same physical
// key can mean different things depending on the navigation mode; the
// dispatch happens in the update handlers.
type KeyMap struct {
	// Navigation keys
	Up     key.Binding // previous host / scroll up / previous menu entry
	Down   key.Binding // next host / scroll down / next menu entry
	Left   key.Binding // previous host including completed ones
	Right  key.Binding // next host including completed ones
	PgUp   key.Binding // scroll up one page
	PgDown key.Binding // scroll down one page
	Home   key.Binding // jump to top of log
	End    key.Binding // jump to bottom of log

	// Mode control
	Enter  key.Binding // full-screen / select menu entry
	Tab    key.Binding // open host menu
	Esc    key.Binding // leave scroll mode / close overlay
	Scroll key.Binding // enter log scroll mode for the focused host

	// Misc
	Minimize key.Binding // toggle the minimized band
	Help     key.Binding // toggle the help overlay
	Quit     key.Binding // exit the application
}

// DefaultKeyMap provides the default keybindings.
var DefaultKeyMap = KeyMap{
	Up: key.NewBinding(
		key.WithKeys("up", "k"),
		key.WithHelp("↑/k", "prev host / scroll up"),
	),
	Down: key.NewBinding(
		key.WithKeys("down", "j"),
		key.WithHelp("↓/j", "next host / scroll down"),
	),
	Left: key.NewBinding(
		key.WithKeys("left"),
		key.WithHelp("←", "prev host (incl. done)"),
	),
	Right: key.NewBinding(
		key.WithKeys("right"),
		key.WithHelp("→", "next host (incl. done)"),
	),
	PgUp: key.NewBinding(
		key.WithKeys("pgup"),
		key.WithHelp("pgup", "page up"),
	),
	PgDown: key.NewBinding(
		key.WithKeys("pgdown"),
		key.WithHelp("pgdn", "page down"),
	),
	Home: key.NewBinding(
		key.WithKeys("home"),
		key.WithHelp("home", "top"),
	),
	End: key.NewBinding(
		key.WithKeys("end"),
		key.WithHelp("end", "bottom"),
	),
	Enter: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "full-screen/select"),
	),
	Tab: key.NewBinding(
		key.WithKeys("tab"),
		key.WithHelp("tab", "host menu"),
	),
	Esc: key.NewBinding(
		key.WithKeys("esc"),
		key.WithHelp("esc", "back"),
	),
	Scroll: key.NewBinding(
		key.WithKeys("s"),
		key.WithHelp("s", "scroll log"),
	),
	Minimize: key.NewBinding(
		key.WithKeys("m"),
		key.WithHelp("m", "toggle minimized"),
	),
	Help: key.NewBinding(
		key.WithKeys("h"),
		key.WithHelp("h", "help"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q/ctrl+c", "quit"),
	),
}
