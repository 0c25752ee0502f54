package api

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/matheus3301/tourchat/internal/messaging"
)

type messageWire struct {
	ID              FlexID    `json:"id"`
	ClientMessageID string    `json:"clientMessageId,omitempty"`
	ConversationID  FlexID    `json:"conversationId"`
	SenderID        FlexID    `json:"senderId"`
	SenderName      string    `json:"senderName"`
	Content         string    `json:"content"`
	Timestamp       Timestamp `json:"timestamp"`
	Type            string    `json:"type"`
	Status          string    `json:"status"`
}

type sendRequest struct {
	Content         string `json:"content"`
	Type            string `json:"type"`
	ClientMessageID string `json:"clientMessageId,omitempty"`
}

// ListMessages returns the full message list of a conversation.
func (c *Client) ListMessages(ctx context.Context, conversationID string) ([]messaging.Message, error) {
	wire, err := call[[]messageWire](ctx, c, "list messages", http.MethodGet,
		"/conversations/"+url.PathEscape(conversationID)+"/messages", nil, nil)
	if err != nil {
		return nil, err
	}
	out := make([]messaging.Message, 0, len(wire))
	for _, w := range wire {
		out = append(out, messageFromWire(w, conversationID))
	}
	return out, nil
}

// SendMessage posts a text message. clientID is the optimistic temp id; a
// server that stores it echoes it back as clientMessageId.
func (c *Client) SendMessage(ctx context.Context, conversationID, content, clientID string) (messaging.Message, error) {
	w, err := call[messageWire](ctx, c, "send message", http.MethodPost,
		"/conversations/"+url.PathEscape(conversationID)+"/messages",
		sendRequest{Content: content, Type: string(messaging.TypeText), ClientMessageID: clientID}, nil)
	if err != nil {
		return messaging.Message{}, err
	}
	return messageFromWire(w, conversationID), nil
}

func messageFromWire(w messageWire, conversationID string) messaging.Message {
	convID := w.ConversationID.String()
	if convID == "" {
		convID = conversationID
	}
	return messaging.Message{
		ID:             w.ID.String(),
		ClientID:       w.ClientMessageID,
		ConversationID: convID,
		SenderID:       w.SenderID.String(),
		SenderName:     w.SenderName,
		Content:        w.Content,
		Type:           messageType(w.Type),
		Status:         messageStatus(w.Status),
		Timestamp:      w.Timestamp.Time(),
	}
}

// messageStatus normalizes case; statuses this client does not know are
// treated as sent.
func messageStatus(s string) messaging.Status {
	st := messaging.Status(strings.ToLower(strings.TrimSpace(s)))
	if !st.Valid() {
		return messaging.StatusSent
	}
	return st
}
