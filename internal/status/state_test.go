package status

import (
	"errors"
	"testing"

	"github.com/matheus3301/tourchat/internal/bus"
)

func TestInitialState(t *testing.T) {
	m := NewMachine("conversations", nil)
	if m.Current() != Idle {
		t.Errorf("initial state = %s, want IDLE", m.Current())
	}
}

func TestValidTransitions(t *testing.T) {
	tests := []struct {
		from State
		to   State
	}{
		{Idle, Loading},
		{Loading, Ready},
		{Loading, Failed},
		{Loading, Idle},
		{Failed, Loading},
		{Failed, Idle},
		{Ready, Idle},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			m := NewMachine("thread", nil)
			walkTo(t, m, tt.from)
			if err := m.Transition(tt.to); err != nil {
				t.Errorf("Transition(%s -> %s) error = %v", tt.from, tt.to, err)
			}
			if m.Current() != tt.to {
				t.Errorf("state = %s, want %s", m.Current(), tt.to)
			}
		})
	}
}

func TestInvalidTransition(t *testing.T) {
	m := NewMachine("thread", nil)
	if err := m.Transition(Ready); err == nil {
		t.Error("Transition(IDLE -> READY) should fail")
	}
	walkTo(t, m, Ready)
	// Poll failures after the first load never surface as FAILED.
	if err := m.Fail(errors.New("timeout")); err == nil {
		t.Error("Fail() from READY should be rejected")
	}
	if m.Current() != Ready {
		t.Errorf("state = %s, want READY (unchanged)", m.Current())
	}
}

func TestFailRecordsCause(t *testing.T) {
	m := NewMachine("conversations", nil)
	walkTo(t, m, Loading)
	cause := errors.New("network down")
	if err := m.Fail(cause); err != nil {
		t.Fatal(err)
	}
	if !errors.Is(m.Err(), cause) {
		t.Errorf("Err() = %v, want %v", m.Err(), cause)
	}

	// Manual retry clears the error.
	if err := m.Transition(Loading); err != nil {
		t.Fatal(err)
	}
	if m.Err() != nil {
		t.Errorf("Err() = %v after retry, want nil", m.Err())
	}
}

func TestTransitionEmitsEvent(t *testing.T) {
	b := bus.New()
	ch, unsub := b.Subscribe("view.", 10)
	defer unsub()

	m := NewMachine("thread:c1", b)
	if err := m.Transition(Loading); err != nil {
		t.Fatal(err)
	}

	evt := <-ch
	if evt.Kind != bus.ViewStateChanged {
		t.Errorf("event kind = %q, want %s", evt.Kind, bus.ViewStateChanged)
	}
	change, ok := evt.Payload.(StatusChange)
	if !ok {
		t.Fatalf("payload type = %T, want StatusChange", evt.Payload)
	}
	if change.View != "thread:c1" || change.From != Idle || change.To != Loading {
		t.Errorf("change = %+v, want thread:c1 IDLE -> LOADING", change)
	}
}

func TestResetFromAnyState(t *testing.T) {
	for _, s := range []State{Idle, Loading, Ready, Failed} {
		m := NewMachine("v", nil)
		walkTo(t, m, s)
		m.Reset()
		if m.Current() != Idle {
			t.Errorf("Reset() from %s: state = %s, want IDLE", s, m.Current())
		}
	}
}

// walkTo is a helper that transitions the machine to a target state.
func walkTo(t *testing.T, m *Machine, target State) {
	t.Helper()
	paths := map[State][]State{
		Idle:    {},
		Loading: {Loading},
		Ready:   {Loading, Ready},
		Failed:  {Loading, Failed},
	}
	for _, s := range paths[target] {
		if err := m.Transition(s); err != nil {
			t.Fatalf("walkTo(%s): %v", target, err)
		}
	}
}
