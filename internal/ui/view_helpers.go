// SPDX-License-Identifier: Apache-2.0

// View rendering. Everything here is a pure function of the model snapshot;
// Bubble Tea diffs the frames against the terminal.

package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"redland-forge/internal/buildfmt"
	"redland-forge/internal/phase"
)

func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Starting...\n"
	}
	if m.showHelp {
		return m.renderHelp()
	}
	switch m.mode {
	case modeMenu:
		return m.renderMenu()
	case modeFullScreen:
		return m.renderFullscreen()
	default:
		return m.renderGrid()
	}
}

// --- Grid view ---

// gridHeight is the tile area: terminal height minus the header line, the
// footer line and the minimized band.
func (m Model) gridHeight() int {
	h := m.height - 2 - len(m.minimizedKeys())
	if h < 0 {
		return 0
	}
	return h
}

func (m Model) minimizedKeys() []string {
	var out []string
	for _, key := range m.order {
		if m.hosts[key].minimized {
			out = append(out, key)
		}
	}
	return out
}

func (m Model) renderGrid() string {
	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n")

	visible := m.visibleIndices()
	rects, shown := Grid(m.width, m.gridHeight(), len(visible))
	if shown == 0 {
		b.WriteString(dimStyle.Render("Terminal too small; press tab for the host menu."))
		b.WriteString("\n")
	} else {
		var rows []string
		var rowTiles []string
		currentRow := rects[0].Row
		for i := 0; i < shown; i++ {
			if rects[i].Row != currentRow {
				rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, rowTiles...))
				rowTiles = nil
				currentRow = rects[i].Row
			}
			idx := visible[i]
			rowTiles = append(rowTiles, m.renderTile(m.hosts[m.order[idx]], rects[i], idx == m.focus))
		}
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, rowTiles...))
		b.WriteString(lipgloss.JoinVertical(lipgloss.Left, rows...))
		b.WriteString("\n")
	}

	for _, key := range m.minimizedKeys() {
		b.WriteString(m.renderMinimizedLine(m.hosts[key]))
		b.WriteString("\n")
	}

	b.WriteString(m.renderFooter())
	return b.String()
}

func (m Model) renderHeader() string {
	done, failed, inflight := m.counts()
	parts := []string{
		titleStyle.Render("redland-forge"),
		fmt.Sprintf("%d running", inflight),
		successStyle.Render(fmt.Sprintf("%d ok", done)),
		errorStyle.Render(fmt.Sprintf("%d failed", failed)),
		buildfmt.Duration(m.stats.RunElapsed()),
	}
	if !m.autoExitDeadline.IsZero() {
		remaining := time.Until(m.autoExitDeadline)
		if remaining < 0 {
			remaining = 0
		}
		parts = append(parts, dimStyle.Render(fmt.Sprintf("auto-exit in %s", buildfmt.Duration(remaining))))
	}
	return buildfmt.Truncate(strings.Join(parts, "  "), m.width)
}

func (m Model) renderTile(h *hostState, r Rect, focused bool) string {
	innerW := r.Width - 2
	innerH := r.Height - 2

	title := buildfmt.Truncate(h.host.Key, innerW)
	status := m.statusLine(h, innerW)

	logLines := h.visibleLines(innerH - 2)
	lines := make([]string, 0, innerH)
	lines = append(lines, titleStyle.Render(title), status)
	for _, l := range logLines {
		lines = append(lines, buildfmt.Truncate(l, innerW))
	}

	border := tileBorderStyle
	if focused {
		border = tileFocusedBorderStyle
	}
	return border.Width(innerW).Height(innerH).Render(strings.Join(lines, "\n"))
}

// statusLine shows the phase, its elapsed time and, when history exists,
// the ETA and progress percentage.
func (m Model) statusLine(h *hostState, width int) string {
	style := statusStyleFor(h.status)
	now := time.Now()
	timer := m.stats.Track(h.host.Key)

	var s string
	switch {
	case h.status == phase.Failed:
		s = style.Render("failed")
		if h.err != nil {
			s += " " + errorStyle.Render(buildfmt.Truncate(h.err.Error(), width-7))
		}
		return buildfmt.Truncate(s, width)
	case h.status == phase.Completed:
		s = style.Render(fmt.Sprintf("completed in %s", buildfmt.Duration(timer.BuildElapsed(h.terminalAt))))
		return buildfmt.Truncate(s, width)
	default:
		s = style.Render(fmt.Sprintf("[%s] %s", h.status, buildfmt.Duration(timer.ElapsedInPhase(now))))
	}

	if eta := m.etaSuffix(h, timer.ElapsedInPhase(now)); eta != "" {
		s += "  " + etaStyle.Render(eta)
	}
	return buildfmt.Truncate(s, width)
}

// etaSuffix formats the remaining-time estimate, or returns "" when no
// history is available or caching is off.
func (m Model) etaSuffix(h *hostState, elapsedInPhase time.Duration) string {
	if m.cache == nil || h.terminal() {
		return ""
	}
	remaining, fraction, ok := m.cache.Estimate(h.host.Key, h.status, elapsedInPhase)
	if !ok {
		return ""
	}
	return fmt.Sprintf("%s left (%s)", buildfmt.ApproxDuration(remaining), buildfmt.Percent(fraction))
}

func (m Model) renderMinimizedLine(h *hostState) string {
	timer := m.stats.Track(h.host.Key)
	line := fmt.Sprintf("%s %s  completed in %s",
		successStyle.Render("✓"), h.host.Key, buildfmt.Duration(timer.BuildElapsed(h.terminalAt)))
	return buildfmt.Truncate(line, m.width)
}

func (m Model) renderFooter() string {
	var bindings []struct{ key, desc string }
	switch m.mode {
	case modeLogScroll:
		bindings = []struct{ key, desc string }{
			{"↑/↓", "scroll"}, {"pgup/pgdn", "page"}, {"home/end", "top/bottom"}, {"esc", "back"}, {"q", "quit"},
		}
	default:
		bindings = []struct{ key, desc string }{
			{"↑/↓", "host"}, {"enter", "full-screen"}, {"s", "scroll"}, {"tab", "menu"},
			{"m", "minimize"}, {"h", "help"}, {"q", "quit"},
		}
	}
	parts := make([]string, 0, len(bindings))
	for _, b := range bindings {
		parts = append(parts, footerKeyStyle.Render(b.key)+" "+footerStyle.Render(b.desc))
	}
	sep := footerSeparatorStyle.Render(" | ")
	return buildfmt.Truncate(strings.Join(parts, sep), m.width)
}

// --- Full-screen view ---

func (m Model) renderFullscreen() string {
	h := m.focusedHost()
	if h == nil {
		return ""
	}
	content := Fullscreen(m.width, m.height)

	var b strings.Builder
	b.WriteString(buildfmt.Truncate(titleStyle.Render(h.host.Key), m.width))
	b.WriteString("\n")
	pos := fmt.Sprintf("%d lines", h.buf.Total())
	if h.scroll != followTail {
		pos = fmt.Sprintf("line %d/%d", h.scroll+1, h.buf.Total())
	}
	b.WriteString(buildfmt.Truncate(m.statusLine(h, m.width-len(pos)-2)+"  "+dimStyle.Render(pos), m.width))
	b.WriteString("\n")

	lines := h.visibleLines(content.Height)
	for i := 0; i < content.Height; i++ {
		if i < len(lines) {
			b.WriteString(buildfmt.Truncate(lines[i], m.width))
		}
		b.WriteString("\n")
	}

	parts := []string{
		footerKeyStyle.Render("pgup/pgdn") + " " + footerStyle.Render("page"),
		footerKeyStyle.Render("home/end") + " " + footerStyle.Render("top/bottom"),
		footerKeyStyle.Render("enter/esc") + " " + footerStyle.Render("back"),
		footerKeyStyle.Render("q") + " " + footerStyle.Render("quit"),
	}
	b.WriteString(buildfmt.Truncate(strings.Join(parts, footerSeparatorStyle.Render(" | ")), m.width))
	return b.String()
}

// --- Menu overlay ---

func (m Model) renderMenu() string {
	box := Menu(m.width, m.height)
	innerW := box.Width - 2

	var b strings.Builder
	b.WriteString(titleStyle.Render("Hosts"))
	b.WriteString("\n\n")
	maxRows := box.Height - 5
	for i, key := range m.order {
		if i >= maxRows {
			b.WriteString(dimStyle.Render(fmt.Sprintf("… %d more", len(m.order)-maxRows)))
			b.WriteString("\n")
			break
		}
		h := m.hosts[key]
		cursor := "  "
		if i == m.menuCursor {
			cursor = "> "
		}
		marker := ""
		if h.minimized {
			marker = dimStyle.Render(" (minimized)")
		}
		line := fmt.Sprintf("%s%d. %s  %s%s", cursor, i+1, key,
			statusStyleFor(h.status).Render(h.status.String()), marker)
		b.WriteString(buildfmt.Truncate(line, innerW))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(dimStyle.Render("↑/↓ move · 1-9 jump · enter select · esc close"))

	menu := menuBorderStyle.Width(innerW).Render(b.String())
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, menu)
}

// --- Help overlay ---

func (m Model) renderHelp() string {
	rows := []struct{ key, desc string }{
		{"↑/↓", "previous/next visible host, or scroll in log view"},
		{"←/→", "previous/next host, completed ones included"},
		{"enter", "full-screen for the focused host"},
		{"s", "scroll the focused host's log"},
		{"pgup/pgdn", "page up/down while scrolling"},
		{"home/end", "jump to top/bottom of the log"},
		{"tab", "open the host menu"},
		{"1-9", "jump to a menu entry"},
		{"m", "toggle auto-minimize of completed hosts"},
		{"esc", "leave scroll/full-screen/menu"},
		{"h", "toggle this help"},
		{"q", "quit"},
	}
	var b strings.Builder
	b.WriteString(titleStyle.Render("Keys"))
	b.WriteString("\n\n")
	for _, r := range rows {
		b.WriteString(fmt.Sprintf("  %s  %s\n", footerKeyStyle.Render(fmt.Sprintf("%-10s", r.key)), r.desc))
	}
	b.WriteString("\n")
	b.WriteString(dimStyle.Render("press h or esc to close"))

	box := menuBorderStyle.Render(b.String())
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
}
