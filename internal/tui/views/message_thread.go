package views

import (
	"fmt"
	"strings"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/matheus3301/tourchat/internal/conversation"
	"github.com/matheus3301/tourchat/internal/messaging"
	"github.com/matheus3301/tourchat/internal/tui/model"
	"github.com/matheus3301/tourchat/internal/tui/ui"
	"github.com/rivo/tview"
)

// MessageThread displays messages and a composer for a single conversation.
type MessageThread struct {
	*tview.Flex
	theme    *ui.Theme
	messages *tview.TextView
	composer *tview.InputField
	onSend   func(text string)
	now      func() time.Time
}

// NewMessageThread creates a new message thread view.
func NewMessageThread(theme *ui.Theme) *MessageThread {
	messages := tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true).
		SetWordWrap(true)
	messages.SetBorder(true)
	messages.SetBorderColor(theme.BorderColor)
	messages.SetBackgroundColor(theme.BgColor)
	messages.SetTextColor(theme.FgColor)
	messages.SetTitle(" Messages ")
	messages.SetTitleColor(theme.TitleColor)

	composer := tview.NewInputField().
		SetLabel(" > ").
		SetFieldWidth(0)
	composer.SetBorder(true)
	composer.SetBorderColor(theme.BorderColor)
	composer.SetBackgroundColor(theme.BgColor)
	composer.SetFieldBackgroundColor(theme.BgColor)
	composer.SetFieldTextColor(theme.FgColor)
	composer.SetLabelColor(theme.MenuKeyColor)
	composer.SetTitle(" Compose (i to focus) ")
	composer.SetTitleColor(theme.TitleColor)

	flex := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(messages, 0, 1, true).
		AddItem(composer, 3, 0, false)

	mt := &MessageThread{
		Flex:     flex,
		theme:    theme,
		messages: messages,
		composer: composer,
		now:      time.Now,
	}

	composer.SetDoneFunc(func(key tcell.Key) {
		if key != tcell.KeyEnter || mt.onSend == nil {
			return
		}
		text := composer.GetText()
		if strings.TrimSpace(text) == "" {
			return
		}
		composer.SetText("")
		mt.onSend(text)
	})

	return mt
}

// SetOnSend sets the callback when the composer is submitted.
func (mt *MessageThread) SetOnSend(fn func(text string)) {
	mt.onSend = fn
}

// SetConversation updates the title from the conversation summary.
func (mt *MessageThread) SetConversation(c conversation.Conversation) {
	name := c.ParticipantName
	if name == "" {
		name = c.ParticipantID
	}
	title := " " + sanitize(name, false)
	if c.IsVerified {
		title += " ✓"
	}
	if c.RelatedTourTitle != "" {
		title += " · " + sanitize(truncate(c.RelatedTourTitle, 40), false)
	}
	mt.messages.SetTitle(title + " ")
}

// ShowStatus replaces the thread with a single line.
func (mt *MessageThread) ShowStatus(text string) {
	mt.messages.Clear()
	_, _ = fmt.Fprintf(mt.messages, "\n [::d]%s[-:-:-]", tview.Escape(text))
}

// Update re-renders the thread, oldest first.
func (mt *MessageThread) Update(rows []model.Row) {
	mt.messages.Clear()
	if len(rows) == 0 {
		_, _ = fmt.Fprint(mt.messages, "\n [::d]No messages yet. Press i to write one.[-:-:-]")
		return
	}

	now := mt.now()
	for _, r := range rows {
		_, _ = fmt.Fprint(mt.messages, mt.line(r, now))
	}
	mt.messages.ScrollToEnd()
}

func (mt *MessageThread) line(r model.Row, now time.Time) string {
	color := ui.ColorName(mt.theme.ParticipantColor)
	sender := r.SenderName
	if sender == "" {
		sender = r.SenderID
	}
	if r.Own() {
		color = ui.ColorName(mt.theme.OwnColor)
		sender = "You"
	}

	body := sanitize(r.Content, true)
	switch r.Type {
	case messaging.TypeImage:
		body = "[::i]sent a photo[-:-:-] " + body
	case messaging.TypeSystem:
		return fmt.Sprintf("[::d]  %s[-:-:-]\n\n", body)
	}

	meta := formatTimestamp(r.Timestamp, now)
	if r.Own() {
		meta += " " + statusGlyph(r.Status, mt.theme)
	}
	return fmt.Sprintf("[%s::b]%s[-:-:-] [::d]%s[-:-:-]\n%s\n\n",
		color, sanitize(sender, false), meta, body)
}

// statusGlyph is the delivery marker shown next to the user's own messages.
func statusGlyph(s messaging.Status, theme *ui.Theme) string {
	switch s {
	case messaging.StatusSending:
		return "…"
	case messaging.StatusSent:
		return "✓"
	case messaging.StatusDelivered:
		return "✓✓"
	case messaging.StatusRead:
		return fmt.Sprintf("[%s]✓✓[-]", ui.ColorName(theme.OwnColor))
	case messaging.StatusFailed:
		return fmt.Sprintf("[%s]! not sent, r to retry[-]", ui.ColorName(theme.FlashErrColor))
	default:
		return ""
	}
}

// SetDraft puts text back in the composer.
func (mt *MessageThread) SetDraft(text string) {
	mt.composer.SetText(text)
}

// Messages returns the messages text view (for focus management).
func (mt *MessageThread) Messages() *tview.TextView {
	return mt.messages
}

// Composer returns the composer input field (for focus management).
func (mt *MessageThread) Composer() *tview.InputField {
	return mt.composer
}
