package keys

import (
	"testing"

	"github.com/gdamore/tcell/v2"
	"github.com/stretchr/testify/assert"
)

func TestRegistry_ViewShadowsGlobal(t *testing.T) {
	r := NewRegistry()
	var got []string
	r.AddGlobal(&Action{Key: tcell.KeyRune, Rune: 'r', Description: "r:reload", Visible: true,
		Handler: func() { got = append(got, "reload") }})
	r.AddView("chat", &Action{Key: tcell.KeyRune, Rune: 'r', Description: "r:retry", Visible: true,
		Handler: func() { got = append(got, "retry") }})

	assert.True(t, r.HandleEvent("chat", tcell.NewEventKey(tcell.KeyRune, 'r', tcell.ModNone)))
	assert.True(t, r.HandleEvent("chats", tcell.NewEventKey(tcell.KeyRune, 'r', tcell.ModNone)))
	assert.Equal(t, []string{"retry", "reload"}, got)
}

func TestRegistry_SpecialKeys(t *testing.T) {
	r := NewRegistry()
	escaped := false
	r.AddView("chat", &Action{Key: tcell.KeyEscape, Description: "esc:back", Visible: true,
		Handler: func() { escaped = true }})

	assert.False(t, r.HandleEvent("chat", tcell.NewEventKey(tcell.KeyRune, 'x', tcell.ModNone)))
	assert.True(t, r.HandleEvent("chat", tcell.NewEventKey(tcell.KeyEscape, 0, tcell.ModNone)))
	assert.True(t, escaped)
}

func TestRegistry_HintsOrder(t *testing.T) {
	r := NewRegistry()
	r.AddGlobal(&Action{Key: tcell.KeyRune, Rune: 'q', Description: "q:quit", Visible: true, Handler: func() {}})
	r.AddView("chats", &Action{Key: tcell.KeyRune, Rune: '/', Description: "/:filter", Visible: true, Handler: func() {}})
	r.AddView("chats", &Action{Key: tcell.KeyRune, Rune: 'j', Description: "j:down", Handler: func() {}})
	r.AddView("chats", &Action{Key: tcell.KeyEnter, Description: "enter:open", Visible: true, Handler: func() {}})

	assert.Equal(t, []string{"/:filter", "enter:open", "q:quit"}, r.Hints("chats"))
	assert.Equal(t, []string{"q:quit"}, r.Hints("chat"))
}
