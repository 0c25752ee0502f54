package views

import (
	"fmt"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/matheus3301/tourchat/internal/conversation"
	"github.com/matheus3301/tourchat/internal/messaging"
	"github.com/matheus3301/tourchat/internal/tui/ui"
	"github.com/rivo/tview"
)

// ConversationList is the main conversation table.
type ConversationList struct {
	*tview.Table
	theme  *ui.Theme
	convs  []conversation.Conversation
	total  int
	filter string
	now    func() time.Time
}

// NewConversationList creates a new conversation list table.
func NewConversationList(theme *ui.Theme) *ConversationList {
	table := tview.NewTable().
		SetSelectable(true, false).
		SetBorders(false).
		SetFixed(1, 0)
	table.SetBorder(true)
	table.SetBorderColor(theme.BorderColor)
	table.SetBackgroundColor(theme.BgColor)
	table.SetSelectedStyle(tcell.StyleDefault.
		Foreground(theme.TableCursorFg).
		Background(theme.TableCursorBg))
	table.SetTitle(" Conversations ")
	table.SetTitleColor(theme.TitleColor)

	return &ConversationList{
		Table: table,
		theme: theme,
		now:   time.Now,
	}
}

// Update replaces the rows. convs is already filtered; total is the size of
// the unfiltered list.
func (cl *ConversationList) Update(convs []conversation.Conversation, total int, filter string) {
	selected := cl.SelectedID()
	cl.convs = convs
	cl.total = total
	cl.filter = filter
	cl.render()
	cl.selectID(selected)
}

// ShowStatus replaces the rows with a single line, used while loading and
// after a failed initial load.
func (cl *ConversationList) ShowStatus(text string, color tcell.Color) {
	cl.convs = nil
	cl.Clear()
	cl.SetCell(0, 0, tview.NewTableCell(" "+tview.Escape(text)).
		SetSelectable(false).
		SetTextColor(color).
		SetExpansion(1))
}

func (cl *ConversationList) render() {
	cl.Clear()

	headers := []struct {
		text string
		exp  int
	}{
		{" NAME", 1},
		{" TOUR", 1},
		{" LAST MESSAGE", 2},
		{" TIME", 0},
	}
	for col, h := range headers {
		cell := tview.NewTableCell(h.text).
			SetSelectable(false).
			SetTextColor(cl.theme.TableHeaderFg).
			SetBackgroundColor(cl.theme.TableHeaderBg).
			SetAttributes(tcell.AttrBold).
			SetExpansion(h.exp)
		cl.SetCell(0, col, cell)
	}

	now := cl.now()
	for i, c := range cl.convs {
		row := i + 1
		name := sanitize(truncate(c.ParticipantName, 32), false)
		if c.IsVerified {
			name += fmt.Sprintf(" [%s]✓[-]", ui.ColorName(cl.theme.VerifiedColor))
		}
		if c.IsOnline {
			name = fmt.Sprintf("[%s]●[-] ", ui.ColorName(cl.theme.VerifiedColor)) + name
		}
		if c.UnreadCount > 0 {
			name = fmt.Sprintf("[%s::b](%d)[-:-:-] ", ui.ColorName(cl.theme.UnreadColor), c.UnreadCount) + name
		}

		var preview, ts string
		if c.LastMessage != nil {
			preview = previewText(*c.LastMessage)
			ts = formatTimestamp(c.LastMessage.Timestamp, now)
		}

		cl.SetCell(row, 0, tview.NewTableCell(" "+name).SetExpansion(1).SetTextColor(cl.theme.FgColor))
		cl.SetCell(row, 1, tview.NewTableCell(" "+sanitize(truncate(c.RelatedTourTitle, 32), false)).SetExpansion(1).SetTextColor(cl.theme.FgColor))
		cl.SetCell(row, 2, tview.NewTableCell(" "+preview).SetExpansion(2).SetTextColor(cl.theme.FgColor))
		cl.SetCell(row, 3, tview.NewTableCell(ts).SetExpansion(0).SetTextColor(cl.theme.FgColor).SetAlign(tview.AlignRight))
	}

	if cl.filter != "" {
		cl.SetTitle(fmt.Sprintf(" Conversations (%d/%d) filter: %s ", len(cl.convs), cl.total, tview.Escape(cl.filter)))
	} else {
		cl.SetTitle(fmt.Sprintf(" Conversations (%d) ", cl.total))
	}
}

// previewText is the one-line summary shown for a conversation's last message.
func previewText(p conversation.Preview) string {
	switch p.Type {
	case messaging.TypeImage:
		return "[::i]photo[-:-:-]"
	case messaging.TypeBooking:
		return "[::i]booking update[-:-:-]"
	}
	return sanitize(truncate(p.Content, 60), false)
}

// SelectedID returns the id of the conversation under the cursor.
func (cl *ConversationList) SelectedID() string {
	row, _ := cl.GetSelection()
	idx := row - 1 // account for header
	if idx < 0 || idx >= len(cl.convs) {
		return ""
	}
	return cl.convs[idx].ID
}

// Selected returns the conversation under the cursor.
func (cl *ConversationList) Selected() (conversation.Conversation, bool) {
	row, _ := cl.GetSelection()
	idx := row - 1
	if idx < 0 || idx >= len(cl.convs) {
		return conversation.Conversation{}, false
	}
	return cl.convs[idx], true
}

// selectID keeps the cursor on the same conversation across refreshes.
func (cl *ConversationList) selectID(id string) {
	for i, c := range cl.convs {
		if c.ID == id {
			cl.Select(i+1, 0)
			return
		}
	}
	if len(cl.convs) > 0 {
		cl.Select(1, 0)
	}
}
