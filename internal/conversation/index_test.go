package conversation

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/matheus3301/tourchat/internal/bus"
)

type fakeSource struct {
	mu      sync.Mutex
	convs   []Conversation
	listErr error
	markErr error
	marked  []string
	userIDs []string
	calls   int

	// The first list call signals started and waits for block.
	started chan struct{}
	block   chan struct{}
}

func (f *fakeSource) ListConversations(_ context.Context, userID string) ([]Conversation, error) {
	f.mu.Lock()
	f.calls++
	first := f.calls == 1
	f.userIDs = append(f.userIDs, userID)
	convs, err := append([]Conversation(nil), f.convs...), f.listErr
	f.mu.Unlock()

	if first && f.block != nil {
		f.started <- struct{}{}
		<-f.block
	}
	if err != nil {
		return nil, err
	}
	return convs, nil
}

func (f *fakeSource) MarkRead(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.marked = append(f.marked, id)
	return f.markErr
}

func sample() []Conversation {
	return []Conversation{
		{ID: "c1", ParticipantID: "g1", ParticipantName: "Lucía Gómez", ParticipantType: ParticipantGuide, UnreadCount: 2, RelatedTourTitle: "Tapas walk in La Latina"},
		{ID: "c2", ParticipantID: "g2", ParticipantName: "Marco Rossi", ParticipantType: ParticipantGuide, UnreadCount: 0, RelatedTourTitle: "Colosseum underground"},
		{ID: "c3", ParticipantID: "u9", ParticipantName: "Ana", ParticipantType: ParticipantUser, UnreadCount: 5},
	}
}

func TestRefreshReplacesWholesaleAndSumsUnread(t *testing.T) {
	src := &fakeSource{convs: sample()}
	x := NewIndex(src, "u1", nil, nil)

	require.NoError(t, x.Refresh(context.Background()))
	assert.True(t, x.Loaded())
	assert.Equal(t, 7, x.TotalUnread())
	assert.Len(t, x.Snapshot(), 3)
	assert.Equal(t, []string{"u1"}, src.userIDs)

	src.convs = sample()[:1]
	require.NoError(t, x.Refresh(context.Background()))
	assert.Equal(t, 2, x.TotalUnread())
	assert.Len(t, x.Snapshot(), 1)
}

func TestRefreshClampsNegativeUnread(t *testing.T) {
	convs := sample()
	convs[0].UnreadCount = -3
	x := NewIndex(&fakeSource{convs: convs}, "u1", nil, nil)

	require.NoError(t, x.Refresh(context.Background()))
	c, ok := x.Get("c1")
	require.True(t, ok)
	assert.Equal(t, 0, c.UnreadCount)
	assert.Equal(t, 5, x.TotalUnread())
}

func TestRefreshErrorKeepsPreviousList(t *testing.T) {
	src := &fakeSource{convs: sample()}
	x := NewIndex(src, "u1", nil, nil)
	require.NoError(t, x.Refresh(context.Background()))

	src.listErr = errors.New("connection refused")
	err := x.Refresh(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
	assert.Len(t, x.Snapshot(), 3)
	assert.Equal(t, 7, x.TotalUnread())
}

func TestOutOfOrderRefreshIsDropped(t *testing.T) {
	src := &fakeSource{convs: sample(), started: make(chan struct{}), block: make(chan struct{})}
	x := NewIndex(src, "u1", nil, nil)

	done := make(chan error)
	go func() { done <- x.Refresh(context.Background()) }()
	<-src.started

	src.mu.Lock()
	src.convs = sample()[:1]
	src.mu.Unlock()
	require.NoError(t, x.Refresh(context.Background()))

	close(src.block)
	require.NoError(t, <-done)
	assert.Len(t, x.Snapshot(), 1)
}

func TestMarkReadIsOptimisticAndNotRolledBack(t *testing.T) {
	src := &fakeSource{convs: sample(), markErr: errors.New("500")}
	b := bus.New()
	ch, unsub := b.Subscribe(bus.ConversationUpdated, 8)
	defer unsub()

	x := NewIndex(src, "u1", b, nil)
	require.NoError(t, x.Refresh(context.Background()))
	<-ch

	x.MarkRead(context.Background(), "c1")
	x.Wait()

	c, _ := x.Get("c1")
	assert.Equal(t, 0, c.UnreadCount)
	assert.Equal(t, 5, x.TotalUnread())
	assert.Equal(t, []string{"c1"}, src.marked)

	evt := <-ch
	assert.Equal(t, "c1", evt.Payload.(bus.ConversationRef).ConversationID)
}

func TestMarkReadSurvivesCancelledContext(t *testing.T) {
	src := &fakeSource{convs: sample()}
	x := NewIndex(src, "u1", nil, nil)
	require.NoError(t, x.Refresh(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	x.MarkRead(ctx, "c3")
	x.Wait()

	assert.Equal(t, []string{"c3"}, src.marked)
	assert.Equal(t, 2, x.TotalUnread())
}

func TestMarkReadAfterCloseSkipsReceipt(t *testing.T) {
	src := &fakeSource{convs: sample()}
	x := NewIndex(src, "u1", nil, nil)
	require.NoError(t, x.Refresh(context.Background()))

	x.MarkRead(context.Background(), "c1")
	x.Close()
	x.MarkRead(context.Background(), "c3")
	x.Wait()

	assert.Equal(t, []string{"c1"}, src.marked)
	assert.Equal(t, 0, x.TotalUnread())
}

func TestMarkReadConcurrentWithClose(t *testing.T) {
	src := &fakeSource{convs: sample()}
	x := NewIndex(src, "u1", nil, nil)
	require.NoError(t, x.Refresh(context.Background()))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			x.MarkRead(context.Background(), "c1")
		}()
	}
	x.Close()
	wg.Wait()
	x.Wait()

	src.mu.Lock()
	defer src.mu.Unlock()
	assert.LessOrEqual(t, len(src.marked), 20)
	assert.Equal(t, 5, x.TotalUnread())
}

func TestFilter(t *testing.T) {
	convs := sample()
	tests := []struct {
		query string
		want  []string
	}{
		{"", []string{"c1", "c2", "c3"}},
		{"  ", []string{"c1", "c2", "c3"}},
		{"lucía", []string{"c1"}},
		{"COLOSSEUM", []string{"c2"}},
		{"a", []string{"c1", "c3"}},
		{"zzz", nil},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			var got []string
			for _, c := range Filter(convs, tt.query) {
				got = append(got, c.ID)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTouchLastMessage(t *testing.T) {
	convs := sample()
	at := time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)
	convs[0].LastMessage = &Preview{Content: "¡Hola!", Timestamp: at, SenderID: "g1"}
	x := NewIndex(&fakeSource{convs: convs}, "u1", nil, nil)
	require.NoError(t, x.Refresh(context.Background()))

	assert.False(t, x.TouchLastMessage("c1", Preview{Content: "older", Timestamp: at.Add(-time.Minute)}))
	assert.True(t, x.TouchLastMessage("c1", Preview{Content: "Hola", Timestamp: at.Add(time.Minute), SenderID: "u1"}))
	assert.True(t, x.TouchLastMessage("c2", Preview{Content: "Ciao", Timestamp: at}))
	assert.False(t, x.TouchLastMessage("c9", Preview{Content: "x", Timestamp: at}))

	c, _ := x.Get("c1")
	assert.Equal(t, "Hola", c.LastMessage.Content)
}

func TestSnapshotIsACopy(t *testing.T) {
	convs := sample()
	convs[0].LastMessage = &Preview{Content: "hi"}
	x := NewIndex(&fakeSource{convs: convs}, "u1", nil, nil)
	require.NoError(t, x.Refresh(context.Background()))

	snap := x.Snapshot()
	snap[0].UnreadCount = 99
	snap[0].LastMessage.Content = "changed"

	c, _ := x.Get("c1")
	assert.Equal(t, 2, c.UnreadCount)
	assert.Equal(t, "hi", c.LastMessage.Content)
}

func TestPropTotalUnreadIsSum(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		counts := rapid.SliceOf(rapid.IntRange(-5, 50)).Draw(rt, "unread")
		convs := make([]Conversation, len(counts))
		for i, n := range counts {
			convs[i] = Conversation{ID: string(rune('a' + i%26)), UnreadCount: n}
		}
		x := NewIndex(&fakeSource{convs: convs}, "u1", nil, nil)
		if err := x.Refresh(context.Background()); err != nil {
			rt.Fatalf("refresh: %v", err)
		}

		sum := 0
		for _, c := range x.Snapshot() {
			if c.UnreadCount < 0 {
				rt.Fatalf("negative unread %d", c.UnreadCount)
			}
			sum += c.UnreadCount
		}
		if sum != x.TotalUnread() {
			rt.Fatalf("total %d, sum %d", x.TotalUnread(), sum)
		}
	})
}
