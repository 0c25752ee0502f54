package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/matheus3301/tourchat/internal/conversation"
	"github.com/matheus3301/tourchat/internal/messaging"
)

type previewWire struct {
	Content   string    `json:"content"`
	Timestamp Timestamp `json:"timestamp"`
	SenderID  FlexID    `json:"senderId"`
	Type      string    `json:"type"`
}

type conversationWire struct {
	ID               FlexID       `json:"id"`
	ParticipantID    FlexID       `json:"participantId"`
	ParticipantName  string       `json:"participantName"`
	ParticipantType  string       `json:"participantType"`
	IsVerified       bool         `json:"isVerified"`
	IsOnline         bool         `json:"isOnline"`
	LastMessage      *previewWire `json:"lastMessage"`
	UnreadCount      int          `json:"unreadCount"`
	RelatedBookingID FlexID       `json:"relatedBookingId"`
	RelatedTourTitle string       `json:"relatedTourTitle"`
}

// ListConversations returns every conversation of userID.
func (c *Client) ListConversations(ctx context.Context, userID string) ([]conversation.Conversation, error) {
	wire, err := call[[]conversationWire](ctx, c, "list conversations", http.MethodGet, "/conversations", nil,
		url.Values{"userId": {userID}})
	if err != nil {
		return nil, err
	}
	out := make([]conversation.Conversation, 0, len(wire))
	for _, w := range wire {
		out = append(out, conversationFromWire(w))
	}
	return out, nil
}

// MarkRead tells the server the local user has read the conversation.
func (c *Client) MarkRead(ctx context.Context, conversationID string) error {
	_, err := call[json.RawMessage](ctx, c, "mark read", http.MethodPost,
		"/conversations/"+url.PathEscape(conversationID)+"/read", struct{}{}, nil)
	return err
}

func conversationFromWire(w conversationWire) conversation.Conversation {
	conv := conversation.Conversation{
		ID:               w.ID.String(),
		ParticipantID:    w.ParticipantID.String(),
		ParticipantName:  w.ParticipantName,
		ParticipantType:  conversation.ParticipantType(w.ParticipantType),
		IsVerified:       w.IsVerified,
		IsOnline:         w.IsOnline,
		UnreadCount:      w.UnreadCount,
		RelatedBookingID: w.RelatedBookingID.String(),
		RelatedTourTitle: w.RelatedTourTitle,
	}
	if w.LastMessage != nil {
		conv.LastMessage = &conversation.Preview{
			Content:   w.LastMessage.Content,
			Timestamp: w.LastMessage.Timestamp.Time(),
			SenderID:  w.LastMessage.SenderID.String(),
			Type:      messageType(w.LastMessage.Type),
		}
	}
	return conv
}

func messageType(s string) messaging.Type {
	if s == "" {
		return messaging.TypeText
	}
	return messaging.Type(s)
}
