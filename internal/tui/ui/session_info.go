package ui

import (
	"fmt"
	"time"

	"github.com/matheus3301/tourchat/internal/status"
	"github.com/rivo/tview"
)

// SessionData holds what the header shows about the signed-in session.
type SessionData struct {
	Session       string
	User          string
	State         status.State
	Conversations int
	Unread        int
	Uptime        time.Duration
}

// SessionInfo displays session metadata in the header.
type SessionInfo struct {
	*tview.TextView
	theme *Theme
}

// NewSessionInfo creates a new session info panel.
func NewSessionInfo(theme *Theme) *SessionInfo {
	tv := tview.NewTextView().
		SetDynamicColors(true)
	tv.SetBackgroundColor(theme.BgColor)
	tv.SetBorderPadding(0, 0, 1, 1)

	return &SessionInfo{
		TextView: tv,
		theme:    theme,
	}
}

// Update renders the session info.
func (si *SessionInfo) Update(data *SessionData) {
	si.Clear()
	if data == nil {
		return
	}

	fg := ColorName(si.theme.FgColor)
	counter := ColorName(si.theme.CounterColor)

	user := data.User
	if user == "" {
		user = "-"
	}
	unread := fmt.Sprintf("[%s]%d[-]", counter, data.Unread)
	if data.Unread > 0 {
		unread = fmt.Sprintf("[%s::b]%d[-:-:-]", ColorName(si.theme.UnreadColor), data.Unread)
	}

	_, _ = fmt.Fprintf(si,
		"[%s::b]Session:[-:-:-] [%s]%s[-]\n"+
			"[%s::b]User:[-:-:-]    [%s]%s[-]\n"+
			"[%s::b]Sync:[-:-:-]    %s\n"+
			"[%s::b]Chats:[-:-:-]   [%s]%d[-] (%s unread)\n"+
			"[%s::b]Uptime:[-:-:-]  [%s]%s[-]",
		fg, counter, tview.Escape(data.Session),
		fg, counter, tview.Escape(user),
		fg, si.stateText(data.State),
		fg, counter, data.Conversations, unread,
		fg, counter, formatDuration(data.Uptime),
	)
}

func (si *SessionInfo) stateText(s status.State) string {
	switch s {
	case status.Loading:
		return fmt.Sprintf("[%s]syncing[-]", ColorName(si.theme.FlashWarnColor))
	case status.Ready:
		return fmt.Sprintf("[%s]online[-]", ColorName(si.theme.VerifiedColor))
	case status.Failed:
		return fmt.Sprintf("[%s]offline[-]", ColorName(si.theme.FlashErrColor))
	default:
		return "[::d]idle[-:-:-]"
	}
}

func formatDuration(d time.Duration) string {
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	if h > 0 {
		return fmt.Sprintf("%dh%dm", h, m)
	}
	return fmt.Sprintf("%dm", m)
}
