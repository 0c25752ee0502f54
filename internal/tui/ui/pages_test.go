package ui

import (
	"testing"

	"github.com/rivo/tview"
	"github.com/stretchr/testify/assert"
)

func newTestPages() *Pages {
	p := NewPages()
	for _, name := range []string{"conversations", "thread", "profile"} {
		p.AddPage(name, tview.NewBox(), true, false)
	}
	return p
}

func TestPages_PushPop(t *testing.T) {
	p := newTestPages()
	var stacks [][]string
	p.SetOnChange(func(s []string) { stacks = append(stacks, s) })

	p.Reset("conversations")
	p.Push("thread")
	p.Push("thread")
	p.Push("profile")
	assert.Equal(t, []string{"conversations", "thread", "profile"}, p.Stack())
	assert.True(t, p.Contains("thread"))

	assert.Equal(t, "profile", p.Pop())
	assert.Equal(t, "thread", p.Current())
	assert.Equal(t, "thread", p.Pop())
	assert.Empty(t, p.Pop(), "root page stays")
	assert.Equal(t, "conversations", p.Current())
	assert.False(t, p.Contains("thread"))

	assert.Len(t, stacks, 5)
}

func TestPages_ResetClearsStack(t *testing.T) {
	p := newTestPages()
	p.Reset("conversations")
	p.Push("thread")
	p.Reset("conversations")
	assert.Equal(t, []string{"conversations"}, p.Stack())
}
