// SPDX-License-Identifier: Apache-2.0

// Keyboard dispatch. The same key can act differently per navigation mode;
// quit and help are global.

package ui

import (
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		interrupted := msg.Type == tea.KeyCtrlC
		if cmd := m.beginShutdown(interrupted); cmd != nil {
			return m, cmd
		}
		return m, nil
	case key.Matches(msg, m.keys.Help):
		m.showHelp = !m.showHelp
		return m, nil
	}

	if m.showHelp {
		if key.Matches(msg, m.keys.Esc) {
			m.showHelp = false
		}
		return m, nil
	}

	switch m.mode {
	case modeHostNav:
		return m.handleHostNavKeys(msg)
	case modeLogScroll:
		return m.handleLogScrollKeys(msg)
	case modeFullScreen:
		return m.handleFullScreenKeys(msg)
	case modeMenu:
		return m.handleMenuKeys(msg)
	}
	return m, nil
}

func (m Model) handleHostNavKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Up):
		m.moveFocusVisible(-1)
	case key.Matches(msg, m.keys.Down):
		m.moveFocusVisible(1)
	case key.Matches(msg, m.keys.Left):
		m.moveFocus(-1)
	case key.Matches(msg, m.keys.Right):
		m.moveFocus(1)
	case key.Matches(msg, m.keys.Enter):
		if m.focusedHost() != nil {
			m.mode = modeFullScreen
		}
	case key.Matches(msg, m.keys.Tab):
		m.menuCursor = m.focus
		m.mode = modeMenu
	case key.Matches(msg, m.keys.Scroll):
		if h := m.focusedHost(); h != nil {
			h.scroll = followTail
			m.mode = modeLogScroll
		}
	case key.Matches(msg, m.keys.Minimize):
		m.autoMinimize = !m.autoMinimize
		if !m.autoMinimize {
			for _, h := range m.hosts {
				h.minimized = false
			}
		}
	}
	return m, nil
}

func (m Model) handleLogScrollKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	h := m.focusedHost()
	if h == nil {
		m.mode = modeHostNav
		return m, nil
	}
	page := m.pageSize()
	switch {
	case key.Matches(msg, m.keys.Up):
		h.scrollBy(-1, page)
	case key.Matches(msg, m.keys.Down):
		h.scrollBy(1, page)
	case key.Matches(msg, m.keys.PgUp):
		h.scrollBy(-page, page)
	case key.Matches(msg, m.keys.PgDown):
		h.scrollBy(page, page)
	case key.Matches(msg, m.keys.Home):
		h.scroll = h.buf.Base()
	case key.Matches(msg, m.keys.End):
		h.scroll = followTail
	case key.Matches(msg, m.keys.Esc):
		h.scroll = followTail
		m.mode = modeHostNav
	}
	return m, nil
}

func (m Model) handleFullScreenKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	h := m.focusedHost()
	if h == nil {
		m.mode = modeHostNav
		return m, nil
	}
	page := m.pageSize()
	switch {
	case key.Matches(msg, m.keys.PgUp):
		h.scrollBy(-page, page)
	case key.Matches(msg, m.keys.PgDown):
		h.scrollBy(page, page)
	case key.Matches(msg, m.keys.Home):
		h.scroll = h.buf.Base()
	case key.Matches(msg, m.keys.End):
		h.scroll = followTail
	case key.Matches(msg, m.keys.Enter), key.Matches(msg, m.keys.Esc):
		h.scroll = followTail
		m.mode = modeHostNav
	}
	return m, nil
}

func (m Model) handleMenuKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Up):
		if m.menuCursor > 0 {
			m.menuCursor--
		}
	case key.Matches(msg, m.keys.Down):
		if m.menuCursor < len(m.order)-1 {
			m.menuCursor++
		}
	case key.Matches(msg, m.keys.Enter):
		m.selectMenuEntry(m.menuCursor)
	case key.Matches(msg, m.keys.Esc), key.Matches(msg, m.keys.Tab):
		m.mode = modeHostNav
	default:
		if s := msg.String(); len(s) == 1 && s[0] >= '1' && s[0] <= '9' {
			if n := int(s[0] - '1'); n < len(m.order) {
				m.selectMenuEntry(n)
			}
		}
	}
	return m, nil
}

// selectMenuEntry focuses the chosen host, re-expanding it if it was
// minimized, and leaves the menu.
func (m *Model) selectMenuEntry(n int) {
	m.focus = n
	if h := m.focusedHost(); h != nil {
		h.minimized = false
	}
	m.mode = modeHostNav
}

// moveFocus shifts focus across all hosts, completed ones included.
func (m *Model) moveFocus(delta int) {
	if len(m.order) == 0 {
		return
	}
	m.focus = (m.focus + delta + len(m.order)) % len(m.order)
}

// moveFocusVisible shifts focus across the hosts currently shown in the
// grid, skipping minimized ones.
func (m *Model) moveFocusVisible(delta int) {
	visible := m.visibleIndices()
	if len(visible) == 0 {
		return
	}
	pos := 0
	for i, idx := range visible {
		if idx == m.focus {
			pos = i
			break
		}
	}
	m.focus = visible[(pos+delta+len(visible))%len(visible)]
}

// visibleIndices returns the order-indices of non-minimized hosts.
func (m Model) visibleIndices() []int {
	var out []int
	for i, key := range m.order {
		if !m.hosts[key].minimized {
			out = append(out, i)
		}
	}
	return out
}

// pageSize is the log window height for the current mode, used as the page
// step while scrolling.
func (m Model) pageSize() int {
	if m.mode == modeFullScreen {
		if h := Fullscreen(m.width, m.height).Height; h > 0 {
			return h
		}
		return 1
	}
	rects, visible := Grid(m.width, m.gridHeight(), len(m.visibleIndices()))
	if visible > 0 {
		if h := rects[0].Height - 4; h > 0 {
			return h
		}
	}
	return 1
}
