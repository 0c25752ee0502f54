package model

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// Level is the severity of a flash message.
type Level int

const (
	Info Level = iota
	Warn
	Err
)

// Flash holds transient notification messages.
type Flash struct {
	mu      sync.RWMutex
	clock   clockwork.Clock
	message string
	level   Level
	expires time.Time
}

// NewFlash creates a flash that expires messages against clock.
func NewFlash(clock clockwork.Clock) *Flash {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Flash{clock: clock}
}

// Set stores a flash message that expires after the given duration.
func (f *Flash) Set(level Level, msg string, d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.message = msg
	f.level = level
	f.expires = f.clock.Now().Add(d)
}

// Get returns the current flash message, or empty if expired.
func (f *Flash) Get() (string, Level) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.message == "" || !f.clock.Now().Before(f.expires) {
		return "", Info
	}
	return f.message, f.level
}

// Clear drops the current message.
func (f *Flash) Clear() {
	f.mu.Lock()
	f.message = ""
	f.mu.Unlock()
}
