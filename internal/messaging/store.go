package messaging

import (
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/matheus3301/tourchat/internal/bus"
	"go.uber.org/zap"
)

// Generation identifies one mount of a conversation thread. Responses
// captured under an older generation are discarded.
type Generation uint64

// Store holds the message threads of the conversations that are currently
// open. Each thread is three layers merged on read:
//
//   - remote:  the last full message list the server returned;
//   - acked:   sends the server acknowledged that no refresh has listed yet;
//   - pending: local writes in status sending or failed, in insertion order.
//
// Refreshes replace remote wholesale and only ever shrink acked; they never
// touch pending. Acknowledgements move one pending entry, by temp id, into
// acked. Both operations are idempotent and commute.
type Store struct {
	mu      sync.RWMutex
	threads map[string]*thread
	lastGen Generation
	bus     *bus.Bus
	logger  *zap.Logger
}

type thread struct {
	gen     Generation
	remote  []Message
	acked   []Message
	pending []Message
}

// NewStore creates an empty message store.
func NewStore(b *bus.Bus, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		threads: make(map[string]*thread),
		bus:     b,
		logger:  logger,
	}
}

// Mount opens a fresh, empty thread for the conversation and returns its
// generation. Any previous thread for the same id is discarded.
func (s *Store) Mount(conversationID string) Generation {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastGen++
	s.threads[conversationID] = &thread{gen: s.lastGen}
	return s.lastGen
}

// Unmount drops the conversation's thread. Late responses for it are ignored.
func (s *Store) Unmount(conversationID string) {
	s.mu.Lock()
	delete(s.threads, conversationID)
	s.mu.Unlock()
}

// Generation returns the current generation of an open conversation.
func (s *Store) Generation(conversationID string) (Generation, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.threads[conversationID]
	if !ok {
		return 0, false
	}
	return t.gen, true
}

// Snapshot returns a copy of the conversation's messages in display order:
// confirmed messages by timestamp (ties keep server order), then pending
// local writes in the order they were made.
func (s *Store) Snapshot(conversationID string) []Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.threads[conversationID]
	if !ok {
		return nil
	}
	return t.snapshot()
}

// Latest returns the last message in display order.
func (s *Store) Latest(conversationID string) (Message, bool) {
	msgs := s.Snapshot(conversationID)
	if len(msgs) == 0 {
		return Message{}, false
	}
	return msgs[len(msgs)-1], true
}

// InFlight reports whether a send is outstanding in the conversation.
func (s *Store) InFlight(conversationID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.threads[conversationID]
	return ok && t.sendingIndex() >= 0
}

// ApplyRefresh replaces the server view of a conversation. It is a no-op
// returning false when the thread was unmounted or remounted since gen.
func (s *Store) ApplyRefresh(conversationID string, gen Generation, server []Message) bool {
	s.mu.Lock()
	t, ok := s.threads[conversationID]
	if !ok || t.gen != gen {
		s.mu.Unlock()
		s.logger.Debug("discarding stale refresh", zap.String("conversation_id", conversationID))
		return false
	}

	before := t.snapshot()

	previous := indexByID(t.remote, t.acked)
	remote := make([]Message, 0, len(server))
	seen := make(map[string]int, len(server))
	for _, m := range server {
		if m.ID == "" {
			continue
		}
		m.ConversationID = conversationID
		if old, ok := previous[m.ID]; ok {
			m.Status = Advance(old.Status, m.Status)
		} else {
			m.Status = Advance("", m.Status)
		}
		if i, dup := seen[m.ID]; dup {
			m.Status = Advance(remote[i].Status, m.Status)
			remote[i] = m
			continue
		}
		seen[m.ID] = len(remote)
		remote = append(remote, m)
	}
	t.remote = remote

	// Acknowledged sends stay visible until a refresh lists them.
	t.acked = slices.DeleteFunc(t.acked, func(m Message) bool {
		_, listed := seen[m.ID]
		return listed
	})

	// A server that echoes client ids lets a refresh confirm a send before
	// its acknowledgement arrives. Failed entries are left for the user.
	clientIDs := make(map[string]struct{})
	for _, m := range remote {
		if m.ClientID != "" {
			clientIDs[m.ClientID] = struct{}{}
		}
	}
	t.pending = slices.DeleteFunc(t.pending, func(m Message) bool {
		_, echoed := clientIDs[m.ID]
		return echoed && m.Status == StatusSending
	})

	changed := !slices.Equal(before, t.snapshot())
	s.mu.Unlock()

	if changed {
		s.publish(bus.MessageUpdated, conversationID, "")
	}
	return true
}

// BeginSend appends an optimistic message in status sending and returns it.
func (s *Store) BeginSend(conversationID, senderID, senderName, content string, now time.Time) (Message, Generation, error) {
	if strings.TrimSpace(content) == "" {
		return Message{}, 0, ErrEmptyMessage
	}

	s.mu.Lock()
	t, ok := s.threads[conversationID]
	if !ok {
		s.mu.Unlock()
		return Message{}, 0, ErrNotMounted
	}
	if t.sendingIndex() >= 0 {
		s.mu.Unlock()
		return Message{}, 0, ErrSendInFlight
	}

	id := TempID(now)
	for t.hasPending(id) {
		now = now.Add(time.Millisecond)
		id = TempID(now)
	}
	msg := Message{
		ID:             id,
		ConversationID: conversationID,
		SenderID:       senderID,
		SenderName:     senderName,
		Content:        content,
		Type:           TypeText,
		Status:         StatusSending,
		Timestamp:      now,
	}
	t.pending = append(t.pending, msg)
	gen := t.gen
	s.mu.Unlock()

	s.publish(bus.MessageUpdated, conversationID, id)
	return msg, gen, nil
}

// Acknowledge replaces the pending message tempID with the server-confirmed
// message. Calling it again, or after a refresh already listed the message,
// leaves exactly one copy. Returns false if the thread is gone or remounted.
func (s *Store) Acknowledge(conversationID string, gen Generation, tempID string, confirmed Message) bool {
	s.mu.Lock()
	t, ok := s.threads[conversationID]
	if !ok || t.gen != gen {
		s.mu.Unlock()
		s.logger.Debug("discarding stale send ack",
			zap.String("conversation_id", conversationID), zap.String("temp_id", tempID))
		return false
	}

	t.pending = slices.DeleteFunc(t.pending, func(m Message) bool { return m.ID == tempID })

	confirmed.ConversationID = conversationID
	if confirmed.ClientID == "" {
		confirmed.ClientID = tempID
	}
	if i := indexOf(t.remote, confirmed.ID); i >= 0 {
		t.remote[i].Status = Advance(t.remote[i].Status, confirmed.Status)
	} else if i := indexOf(t.acked, confirmed.ID); i >= 0 {
		confirmed.Status = Advance(t.acked[i].Status, confirmed.Status)
		t.acked[i] = confirmed
	} else {
		confirmed.Status = Advance("", confirmed.Status)
		t.acked = append(t.acked, confirmed)
	}
	s.mu.Unlock()

	s.publish(bus.MessageSendAck, conversationID, confirmed.ID)
	return true
}

// Fail marks the pending message tempID as failed in place.
func (s *Store) Fail(conversationID string, gen Generation, tempID string) bool {
	s.mu.Lock()
	t, ok := s.threads[conversationID]
	if !ok || t.gen != gen {
		s.mu.Unlock()
		return false
	}
	i := indexOf(t.pending, tempID)
	if i < 0 || !CanTransition(t.pending[i].Status, StatusFailed) {
		s.mu.Unlock()
		return false
	}
	t.pending[i].Status = StatusFailed
	s.mu.Unlock()

	s.publish(bus.MessageSendFailed, conversationID, tempID)
	return true
}

// Retry removes a failed message and returns its content so the caller can
// put it back in the composer.
func (s *Store) Retry(conversationID, messageID string) (string, error) {
	s.mu.Lock()
	t, ok := s.threads[conversationID]
	if !ok {
		s.mu.Unlock()
		return "", ErrNotMounted
	}
	i := indexOf(t.pending, messageID)
	if i < 0 {
		s.mu.Unlock()
		return "", ErrNotFound
	}
	if t.pending[i].Status != StatusFailed {
		s.mu.Unlock()
		return "", ErrNotFailed
	}
	content := t.pending[i].Content
	t.pending = slices.Delete(t.pending, i, i+1)
	s.mu.Unlock()

	s.publish(bus.MessageRetried, conversationID, messageID)
	return content, nil
}

func (s *Store) publish(kind, conversationID, messageID string) {
	s.bus.Emit(kind, bus.ConversationRef{ConversationID: conversationID, MessageID: messageID})
}

func (t *thread) snapshot() []Message {
	out := make([]Message, 0, len(t.remote)+len(t.acked)+len(t.pending))
	out = append(out, t.remote...)
	for _, m := range t.acked {
		if indexOf(t.remote, m.ID) < 0 {
			out = append(out, m)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return append(out, t.pending...)
}

func (t *thread) sendingIndex() int {
	return slices.IndexFunc(t.pending, func(m Message) bool { return m.Status == StatusSending })
}

func (t *thread) hasPending(id string) bool {
	return indexOf(t.pending, id) >= 0
}

func indexOf(msgs []Message, id string) int {
	return slices.IndexFunc(msgs, func(m Message) bool { return m.ID == id })
}

func indexByID(lists ...[]Message) map[string]Message {
	idx := make(map[string]Message)
	for _, l := range lists {
		for _, m := range l {
			if old, ok := idx[m.ID]; ok {
				m.Status = Advance(old.Status, m.Status)
			}
			idx[m.ID] = m
		}
	}
	return idx
}
