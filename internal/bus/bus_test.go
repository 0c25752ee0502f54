package bus

import (
	"testing"
	"time"
)

func TestPublishSubscribe(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe("message.", 10)
	defer unsub()

	b.Emit(MessageUpdated, ConversationRef{ConversationID: "c1"})

	select {
	case evt := <-ch:
		if evt.Kind != MessageUpdated {
			t.Errorf("got kind %q, want %s", evt.Kind, MessageUpdated)
		}
		if evt.Timestamp.IsZero() {
			t.Error("timestamp not stamped on publish")
		}
		ref, ok := evt.Payload.(ConversationRef)
		if !ok || ref.ConversationID != "c1" {
			t.Errorf("payload = %#v, want ConversationRef{c1}", evt.Payload)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for event")
	}
}

func TestNamespaceFiltering(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe("conversation.", 10)
	defer unsub()

	b.Emit(MessageSendAck, nil)
	b.Emit(ConversationUpdated, nil)

	select {
	case evt := <-ch:
		if evt.Kind != ConversationUpdated {
			t.Errorf("got kind %q, want %s", evt.Kind, ConversationUpdated)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for event")
	}

	select {
	case evt := <-ch:
		t.Errorf("unexpected event: %v", evt)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestUnsubscribe(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe("view.", 10)
	unsub()
	unsub() // second call is a no-op

	b.Emit(ViewStateChanged, nil)

	select {
	case evt := <-ch:
		t.Errorf("received event after unsubscribe: %v", evt)
	case <-time.After(50 * time.Millisecond):
	}
	if n := b.Subscribers(); n != 0 {
		t.Errorf("subscribers = %d, want 0", n)
	}
}

func TestDropOnFullBuffer(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe("message.", 1)
	defer unsub()

	b.Emit(MessageSendAck, nil)
	// Dropped: buffer holds one event.
	b.Emit(MessageSendFailed, nil)

	evt := <-ch
	if evt.Kind != MessageSendAck {
		t.Errorf("got %q, want %s", evt.Kind, MessageSendAck)
	}
}

func TestNilBusPublishIsNoop(t *testing.T) {
	var b *Bus
	b.Emit(MessageUpdated, nil)
}
