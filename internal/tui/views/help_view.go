package views

import (
	"fmt"

	"github.com/matheus3301/tourchat/internal/tui/ui"
	"github.com/rivo/tview"
)

// HelpSection is one titled group of key descriptions.
type HelpSection struct {
	Title string
	Keys  []string
}

// HelpView displays key binding reference.
type HelpView struct {
	*tview.TextView
	theme *ui.Theme
}

// NewHelpView creates a new help view.
func NewHelpView(theme *ui.Theme) *HelpView {
	tv := tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true)
	tv.SetBorder(true)
	tv.SetBorderColor(theme.BorderColor)
	tv.SetBackgroundColor(theme.BgColor)
	tv.SetTextColor(theme.FgColor)
	tv.SetTitle(" Help ")
	tv.SetTitleColor(theme.TitleColor)

	return &HelpView{
		TextView: tv,
		theme:    theme,
	}
}

// Update renders the given sections. Descriptions use the "key:action" form
// of the key registry.
func (hv *HelpView) Update(sections []HelpSection) {
	hv.Clear()
	kc := ui.ColorName(hv.theme.MenuKeyColor)
	for _, s := range sections {
		_, _ = fmt.Fprintf(hv, "\n  [::b]%s[-:-:-]\n\n", tview.Escape(s.Title))
		for _, k := range s.Keys {
			key, desc := splitHint(k)
			_, _ = fmt.Fprintf(hv, "  [%s]%-8s[-] %s\n", kc, tview.Escape(key), tview.Escape(desc))
		}
	}
	hv.ScrollToBeginning()
}

func splitHint(h string) (key, desc string) {
	// The key itself may be ':'.
	for i := 1; i < len(h); i++ {
		if h[i] == ':' {
			return h[:i], h[i+1:]
		}
	}
	return h, ""
}
