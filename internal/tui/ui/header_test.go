package ui

import (
	"testing"
	"time"

	"github.com/matheus3301/tourchat/internal/status"
	"github.com/stretchr/testify/assert"
)

func TestCrumbs_UsesLabels(t *testing.T) {
	c := NewCrumbs(DefaultTheme())
	c.SetLabel(func(page string) string {
		if page == "thread" {
			return "María López"
		}
		return ""
	})

	c.Update([]string{"conversations", "thread", "profile"})
	assert.Equal(t, " conversations  >  María López  >  profile ", c.GetText(true))

	c.Update(nil)
	assert.Empty(t, c.GetText(true))
}

func TestCrumbs_EscapesLabels(t *testing.T) {
	c := NewCrumbs(DefaultTheme())
	c.SetLabel(func(string) string { return "[red]Ana" })
	c.Update([]string{"thread"})
	assert.Equal(t, " [red]Ana ", c.GetText(true))
}

func TestSessionInfo_Update(t *testing.T) {
	si := NewSessionInfo(DefaultTheme())
	si.Update(&SessionData{
		Session:       "main",
		User:          "Lucía",
		State:         status.Failed,
		Conversations: 4,
		Unread:        3,
		Uptime:        90 * time.Minute,
	})

	text := si.GetText(true)
	assert.Contains(t, text, "Session: main")
	assert.Contains(t, text, "User:    Lucía")
	assert.Contains(t, text, "Sync:    offline")
	assert.Contains(t, text, "Chats:   4 (3 unread)")
	assert.Contains(t, text, "Uptime:  1h30m")

	si.Update(nil)
	assert.Empty(t, si.GetText(true))
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "0m", formatDuration(30*time.Second))
	assert.Equal(t, "45m", formatDuration(45*time.Minute))
	assert.Equal(t, "2h5m", formatDuration(125*time.Minute))
}
