package views

import (
	"fmt"
	"strings"

	"github.com/matheus3301/tourchat/internal/conversation"
	"github.com/matheus3301/tourchat/internal/profile"
	"github.com/matheus3301/tourchat/internal/tui/ui"
	"github.com/rivo/tview"
)

// ProfileView shows the participant of the open conversation.
type ProfileView struct {
	*tview.TextView
	theme *ui.Theme
}

// NewProfileView creates a new profile view.
func NewProfileView(theme *ui.Theme) *ProfileView {
	tv := tview.NewTextView().
		SetDynamicColors(true).
		SetWordWrap(true)
	tv.SetBorder(true)
	tv.SetBorderColor(theme.BorderColor)
	tv.SetBackgroundColor(theme.BgColor)
	tv.SetTextColor(theme.FgColor)
	tv.SetTitle(" Profile ")
	tv.SetTitleColor(theme.TitleColor)

	return &ProfileView{
		TextView: tv,
		theme:    theme,
	}
}

// ShowLoading clears the view while the profile is fetched.
func (pv *ProfileView) ShowLoading(c conversation.Conversation) {
	pv.Clear()
	pv.SetTitle(fmt.Sprintf(" %s ", sanitize(c.ParticipantName, false)))
	_, _ = fmt.Fprint(pv, "\n [::d]Loading profile...[-:-:-]")
}

// Update renders the profile next to what the conversation knows about it.
func (pv *ProfileView) Update(c conversation.Conversation, p profile.Profile) {
	pv.Clear()

	fg := ui.ColorName(pv.theme.FgColor)
	ct := ui.ColorName(pv.theme.CounterColor)
	field := func(label, value string) {
		if value == "" {
			return
		}
		_, _ = fmt.Fprintf(pv, " [%s::b]%-12s[-:-:-] [%s]%s[-]\n", fg, label+":", ct, value)
	}

	name := p.Name
	if name == "" {
		name = c.ParticipantName
	}
	kind := p.Type
	if kind == "" {
		kind = string(c.ParticipantType)
	}
	verified := "no"
	if p.IsVerified || c.IsVerified {
		verified = "yes"
	}

	_, _ = fmt.Fprint(pv, "\n")
	field("Name", sanitize(name, false))
	field("Role", kind)
	field("Verified", verified)
	if p.Rating > 0 {
		field("Rating", fmt.Sprintf("%.1f", p.Rating))
	}
	if p.ToursCount > 0 {
		field("Tours", fmt.Sprintf("%d", p.ToursCount))
	}
	field("Languages", sanitize(strings.Join(p.Languages, ", "), false))
	field("Booking", sanitize(c.RelatedBookingID, false))
	field("Tour", sanitize(c.RelatedTourTitle, false))
	if p.Bio != "" {
		_, _ = fmt.Fprintf(pv, "\n %s\n", sanitize(p.Bio, true))
	}

	pv.SetTitle(fmt.Sprintf(" %s ", sanitize(name, false)))
}

// ShowError reports a failed profile lookup.
func (pv *ProfileView) ShowError(err error) {
	pv.Clear()
	_, _ = fmt.Fprintf(pv, "\n [%s]Could not load profile: %s[-]",
		ui.ColorName(pv.theme.FlashErrColor), tview.Escape(err.Error()))
}
