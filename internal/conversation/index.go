package conversation

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/matheus3301/tourchat/internal/bus"
	"go.uber.org/zap"
)

// Source is the network side of the index.
type Source interface {
	ListConversations(ctx context.Context, userID string) ([]Conversation, error)
	MarkRead(ctx context.Context, conversationID string) error
}

// markReadTimeout bounds the fire-and-forget read receipt.
const markReadTimeout = 10 * time.Second

// Index is the local list of conversation summaries for the signed-in user.
type Index struct {
	mu      sync.RWMutex
	items   []Conversation
	total   int
	loaded  bool
	seq     uint64
	applied uint64
	closed  bool

	src    Source
	userID string
	bus    *bus.Bus
	logger *zap.Logger
	wg     sync.WaitGroup
}

// NewIndex creates an empty index for the given local user.
func NewIndex(src Source, localUserID string, b *bus.Bus, logger *zap.Logger) *Index {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Index{src: src, userID: localUserID, bus: b, logger: logger}
}

// Refresh fetches every conversation of the local user and replaces the
// index wholesale. A response that arrives after a newer one is dropped.
func (x *Index) Refresh(ctx context.Context) error {
	x.mu.Lock()
	x.seq++
	seq := x.seq
	x.mu.Unlock()

	convs, err := x.src.ListConversations(ctx, x.userID)
	if err != nil {
		return fmt.Errorf("list conversations: %w", err)
	}

	items := make([]Conversation, 0, len(convs))
	total := 0
	for _, c := range convs {
		if c.UnreadCount < 0 {
			c.UnreadCount = 0
		}
		total += c.UnreadCount
		items = append(items, c.clone())
	}

	x.mu.Lock()
	if seq < x.applied {
		x.mu.Unlock()
		x.logger.Debug("discarding out-of-order conversation list")
		return nil
	}
	x.applied = seq
	x.items = items
	x.total = total
	x.loaded = true
	x.mu.Unlock()

	x.bus.Emit(bus.ConversationUpdated, bus.ConversationRef{})
	return nil
}

// Loaded reports whether at least one refresh has succeeded.
func (x *Index) Loaded() bool {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.loaded
}

// Snapshot returns a copy of the conversations in server order.
func (x *Index) Snapshot() []Conversation {
	x.mu.RLock()
	defer x.mu.RUnlock()
	out := make([]Conversation, len(x.items))
	for i, c := range x.items {
		out[i] = c.clone()
	}
	return out
}

// Get returns the conversation with the given id.
func (x *Index) Get(id string) (Conversation, bool) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	if i := x.find(id); i >= 0 {
		return x.items[i].clone(), true
	}
	return Conversation{}, false
}

// TotalUnread is the sum of UnreadCount over all conversations.
func (x *Index) TotalUnread() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.total
}

// Filter returns the conversations matching query, see Filter.
func (x *Index) Filter(query string) []Conversation {
	return Filter(x.Snapshot(), query)
}

// MarkRead zeroes the unread count locally and tells the server in the
// background. A server failure is logged and not rolled back; the next
// refresh corrects the count.
func (x *Index) MarkRead(ctx context.Context, conversationID string) {
	x.mu.Lock()
	changed := false
	if i := x.find(conversationID); i >= 0 && x.items[i].UnreadCount > 0 {
		x.total -= x.items[i].UnreadCount
		x.items[i].UnreadCount = 0
		changed = true
	}
	closed := x.closed
	if !closed {
		x.wg.Add(1)
	}
	x.mu.Unlock()

	if changed {
		x.bus.Emit(bus.ConversationUpdated, bus.ConversationRef{ConversationID: conversationID})
	}
	if closed {
		x.logger.Debug("index closed, read receipt not sent",
			zap.String("conversation_id", conversationID))
		return
	}

	go func() {
		defer x.wg.Done()
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), markReadTimeout)
		defer cancel()
		if err := x.src.MarkRead(ctx, conversationID); err != nil {
			x.logger.Warn("mark read failed",
				zap.String("conversation_id", conversationID), zap.Error(err))
		}
	}()
}

// TouchLastMessage updates the preview of a conversation if p is newer than
// the one it holds. Used after a send is acknowledged so the list shows the
// user's own message before the next poll.
func (x *Index) TouchLastMessage(conversationID string, p Preview) bool {
	x.mu.Lock()
	i := x.find(conversationID)
	if i < 0 {
		x.mu.Unlock()
		return false
	}
	if last := x.items[i].LastMessage; last != nil && last.Timestamp.After(p.Timestamp) {
		x.mu.Unlock()
		return false
	}
	x.items[i].LastMessage = &p
	x.mu.Unlock()

	x.bus.Emit(bus.ConversationUpdated, bus.ConversationRef{ConversationID: conversationID})
	return true
}

// Wait blocks until background read receipts have finished.
func (x *Index) Wait() {
	x.wg.Wait()
}

// Close stops sending read receipts and waits for the ones in flight.
// MarkRead keeps clearing unread counts locally after Close.
func (x *Index) Close() {
	x.mu.Lock()
	x.closed = true
	x.mu.Unlock()
	x.wg.Wait()
}

func (x *Index) find(id string) int {
	for i := range x.items {
		if x.items[i].ID == id {
			return i
		}
	}
	return -1
}

// Filter returns the conversations whose participant name or related tour
// title contains query, ignoring case. An empty query matches everything.
func Filter(convs []Conversation, query string) []Conversation {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return convs
	}
	var out []Conversation
	for _, c := range convs {
		if strings.Contains(strings.ToLower(c.ParticipantName), q) ||
			strings.Contains(strings.ToLower(c.RelatedTourTitle), q) {
			out = append(out, c)
		}
	}
	return out
}
