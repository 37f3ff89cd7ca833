// Package ui implements the Dashboard Engine's Renderer: a bubbletea
// program driving the four fixed regions (Header, Agent Grid, Task
// Queue, Whisper Log) over the Polling Driver and State Store.
package ui

import (
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/asf/whisperdash/internal/dashboard/poll"
	"github.com/asf/whisperdash/internal/dashboard/state"
	"github.com/asf/whisperdash/internal/events"
)

// focusRegion is which region currently receives arrow-key input.
type focusRegion int

const (
	focusGrid focusRegion = iota
	focusLog
)

// pollUpdateMsg signals that the State Store changed and the Model
// should re-render from its current snapshot.
type pollUpdateMsg struct{}

// pollErrorMsg carries a poll-tick failure surfaced for the Header's
// status line.
type pollErrorMsg struct{ err error }

// Model is the bubbletea Model driving the dashboard's single screen.
type Model struct {
	driver *poll.Driver
	state  *state.Store
	bus    *events.Bus
	log    zerolog.Logger

	width  int
	height int

	focus      focusRegion
	logView    viewport.Model
	autoScroll bool

	lastErr error

	// eventCh relays bus `update`/`error` events into the bubbletea
	// loop, drained by the waitForEvent command, since the Polling
	// Driver emits from its own goroutine.
	eventCh chan tea.Msg
}

// New wires a Model to an already-constructed Driver/Store/Bus. The
// driver is started by Init once the program is running.
func New(driver *poll.Driver, st *state.Store, bus *events.Bus, log zerolog.Logger) *Model {
	lv := viewport.New(0, 0)
	m := &Model{
		driver:     driver,
		state:      st,
		bus:        bus,
		log:        log.With().Str("component", "ui_model").Logger(),
		logView:    lv,
		autoScroll: true,
		eventCh:    make(chan tea.Msg, 32),
	}

	bus.Subscribe(events.Update, func(*events.Event) {
		select {
		case m.eventCh <- pollUpdateMsg{}:
		default:
		}
	})
	bus.Subscribe(events.Error, func(e *events.Event) {
		var msg string
		if e.Data != nil {
			if s, ok := e.Data["error"].(string); ok {
				msg = s
			}
		}
		select {
		case m.eventCh <- pollErrorMsg{err: errString(msg)}:
		default:
		}
	})

	return m
}

// errString wraps a plain message as an error without importing
// fmt/errors into every call site.
type errString string

func (e errString) Error() string { return string(e) }

// Init starts the Polling Driver and begins relaying bus events into
// the bubbletea event loop.
func (m *Model) Init() tea.Cmd {
	m.driver.Start()
	return m.waitForEvent
}

// waitForEvent blocks on the relay channel and resurfaces itself as a
// tea.Cmd so the loop keeps listening after every delivered message.
func (m *Model) waitForEvent() tea.Msg {
	return <-m.eventCh
}
