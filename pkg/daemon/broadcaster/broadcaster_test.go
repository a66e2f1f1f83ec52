package broadcaster_test

import (
	"testing"

	"github.com/jamesainslie/memtrim/pkg/daemon/broadcaster"
	"github.com/jamesainslie/memtrim/pkg/memtrim/monitor"
)

func tickEvent() monitor.Event {
	return monitor.Event{Type: monitor.EventTick}
}

func TestSubscribeReceivesEvents(t *testing.T) {
	t.Parallel()

	b := broadcaster.New()
	defer b.Close()

	sub := b.Subscribe()
	if sub == nil {
		t.Fatal("Subscribe() returned nil")
	}

	b.Notify(tickEvent())

	select {
	case event := <-sub.Events:
		if event.Type != monitor.EventTick {
			t.Errorf("event type = %s, want tick", event.Type)
		}
	default:
		t.Fatal("no event delivered")
	}
}

func TestSubscribeFiltersByType(t *testing.T) {
	t.Parallel()

	b := broadcaster.New()
	defer b.Close()

	sub := b.Subscribe(monitor.EventCleanFinished)

	b.Notify(tickEvent())
	b.Notify(monitor.Event{Type: monitor.EventCleanFinished})

	select {
	case event := <-sub.Events:
		if event.Type != monitor.EventCleanFinished {
			t.Errorf("filtered subscriber got %s", event.Type)
		}
	default:
		t.Fatal("no event delivered")
	}

	select {
	case event := <-sub.Events:
		t.Errorf("unexpected extra event %s", event.Type)
	default:
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	t.Parallel()

	b := broadcaster.New()
	defer b.Close()

	sub := b.Subscribe()
	b.Unsubscribe(sub.ID)

	if _, ok := <-sub.Events; ok {
		t.Error("channel should be closed after Unsubscribe")
	}
	if b.SubscriberCount() != 0 {
		t.Errorf("SubscriberCount() = %d, want 0", b.SubscriberCount())
	}
}

func TestNotifyDropsWhenFull(t *testing.T) {
	t.Parallel()

	b := broadcaster.New()
	defer b.Close()

	sub := b.Subscribe()

	// Channel capacity is 100; overfill without draining. Notify must
	// not block.
	for i := 0; i < 200; i++ {
		b.Notify(tickEvent())
	}

	if got := len(sub.Events); got != 100 {
		t.Errorf("buffered events = %d, want 100", got)
	}
}

func TestCloseStopsSubscriptions(t *testing.T) {
	t.Parallel()

	b := broadcaster.New()
	sub := b.Subscribe()
	b.Close()

	if _, ok := <-sub.Events; ok {
		t.Error("channel should be closed after Close")
	}
	if b.Subscribe() != nil {
		t.Error("Subscribe() after Close should return nil")
	}
}
