package messaging

import (
	"fmt"
	"strconv"
	"time"
)

// Type is the kind of content a message carries.
type Type string

const (
	TypeText    Type = "text"
	TypeImage   Type = "image"
	TypeBooking Type = "booking"
	TypeSystem  Type = "system"
)

// TempIDPrefix marks ids generated locally for optimistic messages.
const TempIDPrefix = "temp-"

// Message is a single chat message in a conversation.
type Message struct {
	ID             string
	ClientID       string // temp id the server echoes back, if it does
	ConversationID string
	SenderID       string
	SenderName     string
	Content        string
	Type           Type
	Status         Status
	Timestamp      time.Time
}

// Pending reports whether the message is a local write the server has not
// confirmed (sending or failed).
func (m Message) Pending() bool {
	return m.Status == StatusSending || m.Status == StatusFailed
}

// TempID returns the optimistic id for a message created at t.
func TempID(t time.Time) string {
	return TempIDPrefix + strconv.FormatInt(t.UnixMilli(), 10)
}

func (m Message) String() string {
	return fmt.Sprintf("%s[%s] %s: %q", m.ID, m.Status, m.SenderID, m.Content)
}
