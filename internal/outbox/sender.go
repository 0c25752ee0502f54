package outbox

import (
	"context"
	"errors"
	"fmt"

	"github.com/jonboulle/clockwork"
	"github.com/matheus3301/tourchat/internal/auth"
	"github.com/matheus3301/tourchat/internal/conversation"
	"github.com/matheus3301/tourchat/internal/messaging"
	"go.uber.org/zap"
)

// ErrNoServerID is returned when the server accepts a message without
// assigning it an id.
var ErrNoServerID = errors.New("server accepted the message without an id")

// TextSender posts a text message to the marketplace API.
type TextSender interface {
	SendMessage(ctx context.Context, conversationID, content, clientID string) (messaging.Message, error)
}

// PreviewSink receives the preview of a message once the server has it.
type PreviewSink interface {
	TouchLastMessage(conversationID string, p conversation.Preview) bool
}

// Sender performs optimistic sends: the message appears in the thread as
// sending before the request is made, and is then either replaced by the
// server's copy or marked failed in place.
type Sender struct {
	store    *messaging.Store
	api      TextSender
	previews PreviewSink
	self     auth.Identity
	clock    clockwork.Clock
	logger   *zap.Logger
}

// NewSender creates a new outbox sender. previews may be nil.
func NewSender(store *messaging.Store, api TextSender, previews PreviewSink, self auth.Identity, clock clockwork.Clock, logger *zap.Logger) *Sender {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sender{
		store:    store,
		api:      api,
		previews: previews,
		self:     self,
		clock:    clock,
		logger:   logger,
	}
}

// Send sends text to an open conversation and blocks until the server has
// answered. On failure the returned message is the failed optimistic entry,
// which stays in the thread until retried.
func (s *Sender) Send(ctx context.Context, conversationID, text string) (messaging.Message, error) {
	// Optimistic insert: show the message in the thread immediately.
	pending, gen, err := s.store.BeginSend(conversationID, s.self.UserID, s.self.Name, text, s.clock.Now())
	if err != nil {
		return messaging.Message{}, err
	}
	s.logger.Debug("sending message",
		zap.String("conversation_id", conversationID), zap.String("temp_id", pending.ID))

	confirmed, err := s.api.SendMessage(ctx, conversationID, text, pending.ID)
	if err == nil && confirmed.ID == "" {
		err = ErrNoServerID
	}
	if err != nil {
		s.logger.Error("failed to send message", zap.Error(err),
			zap.String("conversation_id", conversationID), zap.String("temp_id", pending.ID))
		s.store.Fail(conversationID, gen, pending.ID)
		pending.Status = messaging.StatusFailed
		return pending, fmt.Errorf("send message: %w", err)
	}

	if confirmed.SenderID == "" {
		confirmed.SenderID = s.self.UserID
	}
	if confirmed.SenderName == "" {
		confirmed.SenderName = s.self.Name
	}
	if confirmed.Content == "" {
		confirmed.Content = text
	}
	if confirmed.Timestamp.IsZero() {
		confirmed.Timestamp = pending.Timestamp
	}
	if confirmed.Type == "" {
		confirmed.Type = messaging.TypeText
	}
	confirmed.ConversationID = conversationID
	confirmed.Status = messaging.Advance("", confirmed.Status)

	if !s.store.Acknowledge(conversationID, gen, pending.ID, confirmed) {
		s.logger.Debug("conversation closed before send ack",
			zap.String("conversation_id", conversationID), zap.String("server_msg_id", confirmed.ID))
	}
	if s.previews != nil {
		s.previews.TouchLastMessage(conversationID, conversation.Preview{
			Content:   confirmed.Content,
			Timestamp: confirmed.Timestamp,
			SenderID:  confirmed.SenderID,
			Type:      confirmed.Type,
		})
	}

	s.logger.Info("message sent",
		zap.String("temp_id", pending.ID), zap.String("server_msg_id", confirmed.ID))
	return confirmed, nil
}
