package model

import (
	"context"
	"sync"

	"github.com/jonboulle/clockwork"
	"github.com/matheus3301/tourchat/internal/bus"
	"github.com/matheus3301/tourchat/internal/conversation"
	"github.com/matheus3301/tourchat/internal/identity"
	"github.com/matheus3301/tourchat/internal/messaging"
	"github.com/matheus3301/tourchat/internal/status"
)

// Scheduler is the part of the sync scheduler the TUI drives.
type Scheduler interface {
	Active() (conversationID, participantID string, ok bool)
	ListState() *status.Machine
	ThreadState() *status.Machine
	MountConversationList(ctx context.Context) error
	UnmountConversationList()
	MountConversation(ctx context.Context, conversationID, participantID string) error
	UnmountConversation(conversationID string)
	Focus(ctx context.Context) error
	RetryLoad(ctx context.Context) error
	Send(ctx context.Context, conversationID, text string) (messaging.Message, error)
	Retry(conversationID, messageID string) (string, error)
}

// Row is a message as the thread view renders it.
type Row struct {
	messaging.Message
	Author identity.Author
}

// Own reports whether the row is drawn on the local user's side.
func (r Row) Own() bool { return r.Author == identity.Own }

// ViewModel reads snapshots from the sync core and signals UI refreshes when
// the bus reports that a snapshot went stale.
type ViewModel struct {
	mu     sync.RWMutex
	filter string

	index    *conversation.Index
	store    *messaging.Store
	sched    Scheduler
	resolver *identity.Resolver
	bus      *bus.Bus
	Flash    *Flash

	refreshCh chan struct{}
}

// NewViewModel creates a view model over the sync core.
func NewViewModel(index *conversation.Index, store *messaging.Store, sched Scheduler,
	resolver *identity.Resolver, b *bus.Bus, clock clockwork.Clock) *ViewModel {
	return &ViewModel{
		index:     index,
		store:     store,
		sched:     sched,
		resolver:  resolver,
		bus:       b,
		Flash:     NewFlash(clock),
		refreshCh: make(chan struct{}, 1),
	}
}

// RefreshCh returns the channel that signals UI refresh.
func (vm *ViewModel) RefreshCh() <-chan struct{} {
	return vm.refreshCh
}

func (vm *ViewModel) signalRefresh() {
	select {
	case vm.refreshCh <- struct{}{}:
	default:
	}
}

// Watch forwards bus activity to RefreshCh until ctx is done. Bursts of
// events collapse into a single pending signal.
func (vm *ViewModel) Watch(ctx context.Context) {
	events, unsubscribe := vm.bus.Subscribe("", 64)
	defer unsubscribe()
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-events:
			if !ok {
				return
			}
			vm.signalRefresh()
		}
	}
}

// SetFilter sets the conversation list query.
func (vm *ViewModel) SetFilter(query string) {
	vm.mu.Lock()
	vm.filter = query
	vm.mu.Unlock()
	vm.signalRefresh()
}

// Filter returns the conversation list query.
func (vm *ViewModel) Filter() string {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	return vm.filter
}

// Conversations returns the list filtered by the current query.
func (vm *ViewModel) Conversations() []conversation.Conversation {
	return vm.index.Filter(vm.Filter())
}

// Loaded reports whether the conversation list has loaded at least once.
func (vm *ViewModel) Loaded() bool {
	return vm.index.Loaded()
}

// ConversationCount is the size of the unfiltered list.
func (vm *ViewModel) ConversationCount() int {
	return len(vm.index.Snapshot())
}

// TotalUnread is the badge shown in the status bar.
func (vm *ViewModel) TotalUnread() int {
	return vm.index.TotalUnread()
}

// ListState is the load state of the conversation list.
func (vm *ViewModel) ListState() (status.State, error) {
	m := vm.sched.ListState()
	return m.Current(), m.Err()
}

// ThreadState is the load state of the open conversation.
func (vm *ViewModel) ThreadState() (status.State, error) {
	m := vm.sched.ThreadState()
	return m.Current(), m.Err()
}

// Active returns the open conversation, if any.
func (vm *ViewModel) Active() (conversation.Conversation, bool) {
	id, participantID, ok := vm.sched.Active()
	if !ok {
		return conversation.Conversation{}, false
	}
	c, found := vm.index.Get(id)
	if !found {
		c = conversation.Conversation{ID: id, ParticipantID: participantID}
	}
	return c, true
}

// Thread returns the open conversation's messages attributed to their author.
func (vm *ViewModel) Thread() []Row {
	id, participantID, ok := vm.sched.Active()
	if !ok {
		return nil
	}
	msgs := vm.store.Snapshot(id)
	rows := make([]Row, len(msgs))
	for i, m := range msgs {
		rows[i] = Row{Message: m, Author: vm.resolver.Classify(m.ID, m.SenderID, participantID)}
	}
	return rows
}

// LastFailed returns the most recent failed message in the open thread.
func (vm *ViewModel) LastFailed() (messaging.Message, bool) {
	rows := vm.Thread()
	for i := len(rows) - 1; i >= 0; i-- {
		if rows[i].Status == messaging.StatusFailed {
			return rows[i].Message, true
		}
	}
	return messaging.Message{}, false
}

// InFlight reports whether the open thread has a send waiting on the server.
func (vm *ViewModel) InFlight() bool {
	id, _, ok := vm.sched.Active()
	return ok && vm.store.InFlight(id)
}

// MountList loads the conversation list and keeps it polled.
func (vm *ViewModel) MountList(ctx context.Context) error {
	return vm.sched.MountConversationList(ctx)
}

// Open mounts the conversation with the given id.
func (vm *ViewModel) Open(ctx context.Context, conversationID string) error {
	c, _ := vm.index.Get(conversationID)
	return vm.sched.MountConversation(ctx, conversationID, c.ParticipantID)
}

// Close unmounts the open conversation.
func (vm *ViewModel) Close() {
	if id, _, ok := vm.sched.Active(); ok {
		vm.sched.UnmountConversation(id)
	}
	vm.signalRefresh()
}

// Send sends text to the open conversation.
func (vm *ViewModel) Send(ctx context.Context, text string) (messaging.Message, error) {
	id, _, ok := vm.sched.Active()
	if !ok {
		return messaging.Message{}, messaging.ErrNotMounted
	}
	return vm.sched.Send(ctx, id, text)
}

// RetryLastFailed removes the most recent failed message and returns its
// text for the composer.
func (vm *ViewModel) RetryLastFailed() (string, error) {
	id, _, ok := vm.sched.Active()
	if !ok {
		return "", messaging.ErrNotMounted
	}
	m, found := vm.LastFailed()
	if !found {
		return "", messaging.ErrNotFound
	}
	return vm.sched.Retry(id, m.ID)
}

// Reload repeats failed initial loads.
func (vm *ViewModel) Reload(ctx context.Context) error {
	return vm.sched.RetryLoad(ctx)
}

// Focus refreshes every mounted view.
func (vm *ViewModel) Focus(ctx context.Context) error {
	return vm.sched.Focus(ctx)
}
