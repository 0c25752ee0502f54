// Package identity decides whether a message was written by the local user
// or by the other participant of a conversation.
package identity

import (
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// Author is the attribution of a message relative to the local user.
type Author int

const (
	// Unknown means the sender matches neither party.
	Unknown Author = iota
	Own
	Participant
)

func (a Author) String() string {
	switch a {
	case Own:
		return "own"
	case Participant:
		return "participant"
	default:
		return "unknown"
	}
}

// Normalize turns an identifier of any shape into a trimmed string.
// Identifiers reach the client as JSON strings from some endpoints and as
// numbers from others; both must compare equal.
func Normalize(v any) string {
	switch id := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(id)
	case int:
		return strconv.Itoa(id)
	case int64:
		return strconv.FormatInt(id, 10)
	case int32:
		return strconv.FormatInt(int64(id), 10)
	case uint64:
		return strconv.FormatUint(id, 10)
	case float64:
		return strconv.FormatFloat(id, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(id), 'f', -1, 32)
	case fmt.Stringer:
		return strings.TrimSpace(id.String())
	default:
		return strings.TrimSpace(fmt.Sprint(id))
	}
}

// Resolve attributes a message. The participant check comes first: a message
// is the participant's iff its sender equals the participant id. An empty
// sender never matches anyone.
func Resolve(senderID, localUserID, participantID string) Author {
	sender := Normalize(senderID)
	if sender == "" {
		return Unknown
	}
	switch sender {
	case Normalize(participantID):
		return Participant
	case Normalize(localUserID):
		return Own
	default:
		return Unknown
	}
}

// Resolver applies the presentation policy on top of Resolve.
type Resolver struct {
	localUserID string
	logger      *zap.Logger
}

// NewResolver creates a resolver for the given local user.
func NewResolver(localUserID string, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{localUserID: Normalize(localUserID), logger: logger}
}

// LocalUserID returns the normalized id of the signed-in user.
func (r *Resolver) LocalUserID() string {
	return r.localUserID
}

// Resolve returns the strict attribution, including Unknown.
func (r *Resolver) Resolve(senderID, participantID string) Author {
	return Resolve(senderID, r.localUserID, participantID)
}

// Classify returns Own or Participant. A sender matching neither party is
// rendered as Own so the message stays visible; the mismatch is logged.
func (r *Resolver) Classify(messageID, senderID, participantID string) Author {
	a := r.Resolve(senderID, participantID)
	if a != Unknown {
		return a
	}
	r.logger.Warn("message sender matches neither party",
		zap.String("msg_id", messageID),
		zap.String("sender_id", senderID),
		zap.String("participant_id", participantID),
		zap.String("local_user_id", r.localUserID),
	)
	return Own
}
