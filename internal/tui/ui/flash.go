package ui

import (
	"fmt"

	"github.com/matheus3301/tourchat/internal/tui/model"
	"github.com/rivo/tview"
)

// FlashBar is the UI component that displays flash notifications.
type FlashBar struct {
	*tview.TextView
	theme *Theme
}

// NewFlashBar creates a new flash notification bar.
func NewFlashBar(theme *Theme) *FlashBar {
	tv := tview.NewTextView().
		SetDynamicColors(true)
	tv.SetBackgroundColor(theme.BgColor)

	return &FlashBar{
		TextView: tv,
		theme:    theme,
	}
}

// Update renders the current flash message, or clears the bar.
func (fb *FlashBar) Update(f *model.Flash) {
	fb.Clear()
	msg, level := f.Get()
	if msg == "" {
		return
	}

	var color string
	switch level {
	case model.Warn:
		color = ColorName(fb.theme.FlashWarnColor)
	case model.Err:
		color = ColorName(fb.theme.FlashErrColor)
	default:
		color = ColorName(fb.theme.FlashInfoColor)
	}
	_, _ = fmt.Fprintf(fb, " [%s]%s[-]", color, tview.Escape(msg))
}
