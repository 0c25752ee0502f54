package messaging

import "slices"

// Status is the delivery state of a message.
type Status string

const (
	StatusSending   Status = "sending"
	StatusSent      Status = "sent"
	StatusDelivered Status = "delivered"
	StatusRead      Status = "read"
	StatusFailed    Status = "failed"
)

// validTransitions is the message lifecycle graph. sent -> delivered -> read
// is driven by server data; a failed message leaves the graph only by being
// removed on retry.
var validTransitions = map[Status][]Status{
	StatusSending:   {StatusSent, StatusFailed},
	StatusSent:      {StatusDelivered, StatusRead},
	StatusDelivered: {StatusRead},
	StatusRead:      {},
	StatusFailed:    {},
}

// confirmedRank orders the statuses a server can report.
var confirmedRank = map[Status]int{
	StatusSent:      1,
	StatusDelivered: 2,
	StatusRead:      3,
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	_, ok := validTransitions[s]
	return ok
}

// CanTransition reports whether a message may move from one status to another.
func CanTransition(from, to Status) bool {
	return slices.Contains(validTransitions[from], to)
}

// Advance returns the later of two confirmed statuses so that a stale
// server response never moves a message backwards. Unknown or pending
// statuses coming from the server are treated as sent.
func Advance(current, incoming Status) Status {
	if confirmedRank[incoming] == 0 {
		incoming = StatusSent
	}
	if confirmedRank[current] > confirmedRank[incoming] {
		return current
	}
	return incoming
}
