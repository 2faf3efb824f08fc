package events

import (
	"testing"
	"time"
)

func TestPublishSubscribe(t *testing.T) {
	b := NewBus()
	ch, unsub := b.Subscribe(EventCycleCompleted, 4)
	defer unsub()

	b.Publish(EventCycleCompleted, "payload")

	select {
	case msg := <-ch:
		if msg.Event != EventCycleCompleted {
			t.Errorf("event = %s", msg.Event)
		}
		if msg.Payload != "payload" {
			t.Errorf("payload = %v", msg.Payload)
		}
		if msg.Time.IsZero() {
			t.Error("message has no timestamp")
		}
	case <-time.After(time.Second):
		t.Fatal("no message delivered")
	}
}

func TestSubscribeAllMergesTopics(t *testing.T) {
	b := NewBus()
	ch, unsub := b.SubscribeAll(4, EventEngineStarted, EventEngineStopped)
	defer unsub()

	b.Publish(EventEngineStarted, nil)
	b.Publish(EventEngineStopped, nil)
	b.Publish(EventCycleFailed, nil) // not subscribed

	got := map[Event]bool{}
	for i := 0; i < 2; i++ {
		select {
		case msg := <-ch:
			got[msg.Event] = true
		case <-time.After(time.Second):
			t.Fatalf("only %d of 2 messages delivered", i)
		}
	}
	if !got[EventEngineStarted] || !got[EventEngineStopped] {
		t.Errorf("delivered topics = %v", got)
	}
	select {
	case msg := <-ch:
		t.Errorf("unexpected message for %s", msg.Event)
	default:
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	b := NewBus()
	ch, unsub := b.Subscribe(EventBalanceAlert, 1)

	unsub()
	unsub() // second call is a no-op

	if _, open := <-ch; open {
		t.Error("channel still open after unsubscribe")
	}
	b.Publish(EventBalanceAlert, nil) // must not panic on the removed sub
}

func TestSlowSubscriberDropped(t *testing.T) {
	b := NewBus()
	ch, unsub := b.Subscribe(EventSettingUpdated, 1)
	defer unsub()

	b.Publish(EventSettingUpdated, 1)
	b.Publish(EventSettingUpdated, 2) // buffer full, dropped

	if msg := <-ch; msg.Payload != 1 {
		t.Errorf("payload = %v, want 1", msg.Payload)
	}
	select {
	case msg := <-ch:
		t.Errorf("overflow message delivered: %v", msg.Payload)
	default:
	}
}
