package conversation

import (
	"time"

	"github.com/matheus3301/tourchat/internal/messaging"
)

// ParticipantType is the role of the other party in a conversation.
type ParticipantType string

const (
	ParticipantGuide ParticipantType = "guide"
	ParticipantUser  ParticipantType = "user"
)

// Preview summarizes the last message of a conversation.
type Preview struct {
	Content   string
	Timestamp time.Time
	SenderID  string
	Type      messaging.Type
}

// Conversation is a summary of a thread between the local user and one
// participant. Conversations are created server-side only.
type Conversation struct {
	ID               string
	ParticipantID    string
	ParticipantName  string
	ParticipantType  ParticipantType
	IsVerified       bool
	IsOnline         bool
	LastMessage      *Preview
	UnreadCount      int
	RelatedBookingID string
	RelatedTourTitle string
}

func (c Conversation) clone() Conversation {
	if c.LastMessage != nil {
		p := *c.LastMessage
		c.LastMessage = &p
	}
	return c
}
