// Package sync keeps the local conversation list and the open thread in step
// with the server by polling.
package sync

import (
	"context"
	"errors"
	"fmt"
	gosync "sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/matheus3301/tourchat/internal/bus"
	"github.com/matheus3301/tourchat/internal/conversation"
	"github.com/matheus3301/tourchat/internal/messaging"
	"github.com/matheus3301/tourchat/internal/status"
	"go.uber.org/zap"
)

const (
	DefaultConversationInterval = 10 * time.Second
	DefaultMessageInterval      = 5 * time.Second
)

// View names used for load state events.
const (
	ViewConversations = "conversations"
	ViewThread        = "thread"
)

// MessageSource fetches the full message list of a conversation.
type MessageSource interface {
	ListMessages(ctx context.Context, conversationID string) ([]messaging.Message, error)
}

// Sender performs an optimistic send.
type Sender interface {
	Send(ctx context.Context, conversationID, text string) (messaging.Message, error)
}

type Option func(*Scheduler)

func WithConversationInterval(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.conversationInterval = d
		}
	}
}

func WithMessageInterval(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.messageInterval = d
		}
	}
}

// Scheduler drives refreshes of the conversation index and the open thread:
// on a timer while a view is mounted, on focus, and after every send.
type Scheduler struct {
	store    *messaging.Store
	index    *conversation.Index
	messages MessageSource
	sender   Sender
	clock    clockwork.Clock
	logger   *zap.Logger

	conversationInterval time.Duration
	messageInterval      time.Duration

	listState   *status.Machine
	threadState *status.Machine

	// Tasks run under this context so they outlive the call that mounted them.
	ctx    context.Context
	cancel context.CancelFunc

	mu          gosync.Mutex
	listTask    *Task
	threadTask  *Task
	active      string
	participant string
}

// NewScheduler creates a scheduler with nothing mounted.
func NewScheduler(store *messaging.Store, index *conversation.Index, messages MessageSource, sender Sender,
	clock clockwork.Clock, b *bus.Bus, logger *zap.Logger, opts ...Option) *Scheduler {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		store:                store,
		index:                index,
		messages:             messages,
		sender:               sender,
		clock:                clock,
		logger:               logger,
		conversationInterval: DefaultConversationInterval,
		messageInterval:      DefaultMessageInterval,
		listState:            status.NewMachine(ViewConversations, b),
		threadState:          status.NewMachine(ViewThread, b),
		ctx:                  ctx,
		cancel:               cancel,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ListState is the load state of the conversation list view.
func (s *Scheduler) ListState() *status.Machine { return s.listState }

// ThreadState is the load state of the open conversation view.
func (s *Scheduler) ThreadState() *status.Machine { return s.threadState }

// Active returns the open conversation and its participant, if any.
func (s *Scheduler) Active() (conversationID, participantID string, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active, s.participant, s.active != ""
}

// MountConversationList loads the conversation list and polls it until
// unmounted. An initial load error is returned and leaves the view FAILED;
// polling continues and recovers the view on the next success.
func (s *Scheduler) MountConversationList(ctx context.Context) error {
	s.mu.Lock()
	if s.listTask == nil {
		s.listTask = NewTask(ViewConversations, s.conversationInterval, s.clock, s.pollList, s.logger)
	}
	task := s.listTask
	s.mu.Unlock()

	err := s.load(ctx, s.listState, s.index.Refresh)
	s.startIfCurrent(task, func() *Task { return s.listTask })
	return err
}

// UnmountConversationList stops polling the conversation list.
func (s *Scheduler) UnmountConversationList() {
	s.mu.Lock()
	task := s.listTask
	s.listTask = nil
	s.mu.Unlock()

	if task != nil {
		task.Stop()
	}
	s.listState.Reset()
}

// MountConversation opens a thread, loads it and polls it until unmounted.
// Only one thread is open at a time; opening another closes the current one.
// Opening a conversation also marks it read.
func (s *Scheduler) MountConversation(ctx context.Context, conversationID, participantID string) error {
	if conversationID == "" {
		return messaging.ErrNotFound
	}

	s.mu.Lock()
	if s.active == conversationID && s.threadTask != nil {
		s.participant = participantID
		s.mu.Unlock()
		return s.load(ctx, s.threadState, s.refreshThreadFunc(conversationID))
	}
	prevTask, prevID := s.threadTask, s.active
	task := NewTask(ViewThread+":"+conversationID, s.messageInterval, s.clock, func(ctx context.Context) {
		s.poll(ctx, s.threadState, s.refreshThreadFunc(conversationID))
	}, s.logger)
	s.threadTask = task
	s.active = conversationID
	s.participant = participantID
	s.mu.Unlock()

	if prevTask != nil {
		prevTask.Stop()
		s.store.Unmount(prevID)
	}
	s.threadState.Reset()
	s.store.Mount(conversationID)
	s.index.MarkRead(ctx, conversationID)

	err := s.load(ctx, s.threadState, s.refreshThreadFunc(conversationID))
	s.startIfCurrent(task, func() *Task { return s.threadTask })
	return err
}

// UnmountConversation closes the thread if it is the open one. Responses
// still in flight for it are discarded when they arrive. Failed messages
// that were not retried are dropped with the thread.
func (s *Scheduler) UnmountConversation(conversationID string) {
	s.mu.Lock()
	if s.active != conversationID {
		s.mu.Unlock()
		return
	}
	task := s.threadTask
	s.threadTask = nil
	s.active, s.participant = "", ""
	s.mu.Unlock()

	if task != nil {
		task.Stop()
	}
	s.store.Unmount(conversationID)
	s.threadState.Reset()
}

// Focus refreshes every mounted view immediately.
func (s *Scheduler) Focus(ctx context.Context) error {
	var errs []error

	s.mu.Lock()
	listMounted := s.listTask != nil
	active := s.active
	s.mu.Unlock()

	if listMounted {
		errs = append(errs, s.load(ctx, s.listState, s.index.Refresh))
	}
	if active != "" {
		errs = append(errs, s.load(ctx, s.threadState, s.refreshThreadFunc(active)))
	}
	return errors.Join(errs...)
}

// RetryLoad repeats the initial load of every view that failed it.
func (s *Scheduler) RetryLoad(ctx context.Context) error {
	var errs []error

	s.mu.Lock()
	active := s.active
	s.mu.Unlock()

	if s.listState.Current() == status.Failed {
		errs = append(errs, s.load(ctx, s.listState, s.index.Refresh))
	}
	if active != "" && s.threadState.Current() == status.Failed {
		errs = append(errs, s.load(ctx, s.threadState, s.refreshThreadFunc(active)))
	}
	return errors.Join(errs...)
}

// Send sends text to the open conversation and then refreshes the thread and
// the conversation list, whether the send succeeded or not. Sends rejected
// before reaching the network trigger no refresh.
func (s *Scheduler) Send(ctx context.Context, conversationID, text string) (messaging.Message, error) {
	msg, err := s.sender.Send(ctx, conversationID, text)
	if msg.ID == "" {
		return msg, err
	}

	if rerr := s.refreshThreadFunc(conversationID)(ctx); rerr != nil {
		s.logger.Warn("refresh after send failed", zap.String("conversation_id", conversationID), zap.Error(rerr))
	}
	if rerr := s.index.Refresh(ctx); rerr != nil {
		s.logger.Warn("conversation refresh after send failed", zap.Error(rerr))
	}
	return msg, err
}

// Retry removes a failed message from the open thread and returns its text
// so it can be edited and sent again.
func (s *Scheduler) Retry(conversationID, messageID string) (string, error) {
	return s.store.Retry(conversationID, messageID)
}

// Stop unmounts everything and waits for background work to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	active := s.active
	s.mu.Unlock()

	if active != "" {
		s.UnmountConversation(active)
	}
	s.UnmountConversationList()
	s.cancel()
	s.index.Close()
}

// startIfCurrent starts task unless the view was unmounted or remounted
// while its initial load was running.
func (s *Scheduler) startIfCurrent(task *Task, current func() *Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if current() == task {
		task.Start(s.ctx)
	}
}

func (s *Scheduler) refreshThreadFunc(conversationID string) func(context.Context) error {
	return func(ctx context.Context) error {
		gen, ok := s.store.Generation(conversationID)
		if !ok {
			return messaging.ErrNotMounted
		}
		msgs, err := s.messages.ListMessages(ctx, conversationID)
		if err != nil {
			return fmt.Errorf("list messages: %w", err)
		}
		if !s.store.ApplyRefresh(conversationID, gen, msgs) {
			s.logger.Debug("discarded messages for closed thread", zap.String("conversation_id", conversationID))
		}
		return nil
	}
}

func (s *Scheduler) pollList(ctx context.Context) {
	s.poll(ctx, s.listState, s.index.Refresh)
}

func (s *Scheduler) poll(ctx context.Context, m *status.Machine, refresh func(context.Context) error) {
	if err := s.load(ctx, m, refresh); err != nil && ctx.Err() == nil {
		s.logger.Warn("poll failed", zap.Error(err))
	}
}

// load runs refresh and moves the view through LOADING when it has no data
// yet. Once a view is READY, failures leave it READY with its last data.
func (s *Scheduler) load(ctx context.Context, m *status.Machine, refresh func(context.Context) error) error {
	switch m.Current() {
	case status.Idle, status.Failed:
		_ = m.Transition(status.Loading)
		if err := refresh(ctx); err != nil {
			_ = m.Fail(err)
			return err
		}
		_ = m.Transition(status.Ready)
		return nil
	default:
		return refresh(ctx)
	}
}
