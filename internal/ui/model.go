package ui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"redland-forge/internal/config"
	"redland-forge/internal/executor"
	"redland-forge/internal/stats"
	"redland-forge/internal/summary"
	"redland-forge/internal/timing"
)

// navMode selects how keystrokes are dispatched.
type navMode int

const (
	modeHostNav navMode = iota
	modeLogScroll
	modeFullScreen
	modeMenu
)

// Model is the Bubble Tea model for a build run. It is the sole owner of
// host state; executor events and keystrokes are its only inputs.
type Model struct {
	keys     KeyMap
	settings config.Settings

	exec   *executor.Executor
	events <-chan executor.Event
	cache  *timing.Cache // nil when caching is disabled
	stats  *stats.Manager

	order []string
	hosts map[string]*hostState

	width  int
	height int

	mode       navMode
	focus      int
	menuCursor int
	showHelp   bool

	// autoMinimize moves long-completed hosts into the bottom band; the
	// m key toggles it and re-expands everything when switched off.
	autoMinimize bool

	autoExitDeadline time.Time // zero while disarmed

	eventsDone  bool
	quitting    bool
	interrupted bool
}

// New assembles the model. The executor must already be started; cache may
// be nil to disable ETAs and recording.
func New(settings config.Settings, hosts []config.Host, exec *executor.Executor, cache *timing.Cache) Model {
	m := Model{
		keys:         DefaultKeyMap,
		settings:     settings,
		exec:         exec,
		events:       exec.Events(),
		cache:        cache,
		stats:        stats.NewManager(),
		hosts:        make(map[string]*hostState, len(hosts)),
		autoMinimize: true,
	}
	for _, h := range hosts {
		m.order = append(m.order, h.Key)
		m.hosts[h.Key] = newHostState(h, settings.OutputBufferCap)
		m.stats.Track(h.Key)
	}
	return m
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(waitForEventCmd(m.events), tickCmd())
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case buildEventMsg:
		return m.handleBuildEvent(msg.event)

	case eventsClosedMsg:
		m.eventsDone = true
		if m.quitting {
			return m, tea.Quit
		}
		return m, nil

	case tickMsg:
		return m.handleTick(time.Time(msg))

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

// --- Derived state ---

// allTerminal reports whether every host has finished.
func (m Model) allTerminal() bool {
	for _, h := range m.hosts {
		if !h.terminal() {
			return false
		}
	}
	return len(m.hosts) > 0
}

func (m Model) counts() (done, failed, inflight int) {
	for _, h := range m.hosts {
		switch {
		case h.err != nil || (h.terminal() && h.exitCode != 0):
			failed++
		case h.terminal():
			done++
		default:
			inflight++
		}
	}
	return
}

func (m Model) focusedHost() *hostState {
	if len(m.order) == 0 {
		return nil
	}
	if m.focus < 0 || m.focus >= len(m.order) {
		return m.hosts[m.order[0]]
	}
	return m.hosts[m.order[m.focus]]
}

// Results converts the final host states into summary entries, in the
// order the hosts were given on the command line.
func (m Model) Results() []summary.Result {
	results := make([]summary.Result, 0, len(m.order))
	for _, key := range m.order {
		h := m.hosts[key]
		var duration time.Duration
		if t := m.stats.Timer(key); t != nil {
			duration = t.Sample(false).Total
		}
		r := summary.Result{
			Host:     key,
			Success:  h.terminal() && h.err == nil && h.exitCode == 0,
			Duration: duration,
		}
		if h.err != nil {
			r.Err = h.err
		}
		results = append(results, r)
	}
	return results
}

// RunElapsed is the wall-clock duration of the run so far.
func (m Model) RunElapsed() time.Duration { return m.stats.RunElapsed() }

// Interrupted reports whether the user ended the run with an interrupt.
func (m Model) Interrupted() bool { return m.interrupted }
