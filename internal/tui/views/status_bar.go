package views

import (
	"fmt"
	"strings"
	"time"

	"github.com/matheus3301/tourchat/internal/tui/ui"
	"github.com/rivo/tview"
)

// StatusBar shows the clock and the key hints of the current page.
type StatusBar struct {
	*tview.TextView
	theme *ui.Theme
	hints []string
	now   func() time.Time
}

// NewStatusBar creates a new status bar.
func NewStatusBar(theme *ui.Theme) *StatusBar {
	tv := tview.NewTextView().
		SetDynamicColors(true)
	tv.SetBackgroundColor(tview.Styles.MoreContrastBackgroundColor)

	return &StatusBar{TextView: tv, theme: theme, now: time.Now}
}

// SetHints updates the key hints.
func (sb *StatusBar) SetHints(hints []string) {
	sb.hints = hints
	sb.Tick()
}

// Tick redraws the clock.
func (sb *StatusBar) Tick() {
	sb.Clear()
	line := " " + sb.now().Format("15:04")
	if len(sb.hints) > 0 {
		line += fmt.Sprintf(" | [%s]%s[-]", ui.ColorName(sb.theme.MenuKeyColor), tview.Escape(strings.Join(sb.hints, "  ")))
	}
	_, _ = fmt.Fprint(sb, line)
}
