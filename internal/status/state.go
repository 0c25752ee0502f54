package status

import (
	"fmt"
	"slices"
	"sync"

	"github.com/matheus3301/tourchat/internal/bus"
)

// State is the load state of a mounted view (conversation list or thread).
type State string

const (
	Idle    State = "IDLE"
	Loading State = "LOADING"
	Ready   State = "READY"
	Failed  State = "FAILED"
)

// validTransitions defines allowed state transitions. FAILED is only reached
// from the initial load; once READY, poll failures are absorbed.
var validTransitions = map[State][]State{
	Idle:    {Loading},
	Loading: {Ready, Failed, Idle},
	Ready:   {Idle},
	Failed:  {Loading, Idle},
}

// Machine tracks and enforces view load state transitions.
type Machine struct {
	mu      sync.RWMutex
	view    string
	current State
	lastErr error
	bus     *bus.Bus
}

// NewMachine creates a new state machine for the named view starting in Idle.
func NewMachine(view string, b *bus.Bus) *Machine {
	return &Machine{
		view:    view,
		current: Idle,
		bus:     b,
	}
}

// Current returns the current state.
func (m *Machine) Current() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Err returns the error that moved the view to FAILED, if any.
func (m *Machine) Err() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastErr
}

// Transition attempts to move to a new state. Returns error if transition is invalid.
func (m *Machine) Transition(to State) error {
	return m.transition(to, nil)
}

// Fail moves a loading view to FAILED and records the cause.
func (m *Machine) Fail(cause error) error {
	return m.transition(Failed, cause)
}

// Reset returns the view to IDLE from any state. Used on unmount.
func (m *Machine) Reset() {
	m.mu.Lock()
	from := m.current
	m.current = Idle
	m.lastErr = nil
	m.mu.Unlock()
	if from != Idle {
		m.publish(from, Idle, nil)
	}
}

func (m *Machine) transition(to State, cause error) error {
	m.mu.Lock()
	allowed := validTransitions[m.current]
	if !slices.Contains(allowed, to) {
		from := m.current
		m.mu.Unlock()
		return fmt.Errorf("%s: invalid transition from %s to %s", m.view, from, to)
	}
	from := m.current
	m.current = to
	m.lastErr = cause
	m.mu.Unlock()

	m.publish(from, to, cause)
	return nil
}

func (m *Machine) publish(from, to State, cause error) {
	if m.bus == nil {
		return
	}
	m.bus.Emit(bus.ViewStateChanged, StatusChange{
		View: m.view,
		From: from,
		To:   to,
		Err:  cause,
	})
}

// StatusChange is the payload for view.state_changed events.
type StatusChange struct {
	View string
	From State
	To   State
	Err  error
}
