package bus

import "time"

// Event kinds published by the sync core. Subscribers filter by prefix, so
// "message." receives every message event and "view." every view state change.
const (
	MessageUpdated      = "message.updated"
	MessageSendAck      = "message.send_ack"
	MessageSendFailed   = "message.send_failed"
	MessageRetried      = "message.retried"
	ConversationUpdated = "conversation.updated"
	ViewStateChanged    = "view.state_changed"
)

// Event represents a domain event published on the bus.
type Event struct {
	Kind      string
	Timestamp time.Time
	Payload   any
}

// ConversationRef is the payload of message.* events that concern a single
// conversation thread.
type ConversationRef struct {
	ConversationID string
	MessageID      string
}
