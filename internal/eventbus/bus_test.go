package eventbus

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishFiltersByType(t *testing.T) {
	b := New()
	all, unsubAll := b.Subscribe(4)
	defer unsubAll()
	polls, unsubPolls := b.Subscribe(4, PollFailed)
	defer unsubPolls()

	b.Publish(Event{Type: NotifySent})
	b.Publish(Event{Type: PollFailed, Data: PollEvent{PollID: "p1"}})

	require.Len(t, all, 2)
	require.Len(t, polls, 1)
	e := <-polls
	assert.Equal(t, PollFailed, e.Type)
	assert.False(t, e.Time.IsZero())
	assert.Equal(t, "p1", e.Data.(PollEvent).PollID)
}

func TestPublishDropsWhenFull(t *testing.T) {
	b := New()
	_, unsub := b.Subscribe(1)
	defer unsub()

	b.Publish(Event{Type: PollStarted})
	b.Publish(Event{Type: PollStarted})
	assert.Equal(t, uint64(1), b.Dropped())
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe(1)
	unsub()
	unsub()

	select {
	case _, ok := <-ch:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("channel not closed")
	}
	b.Publish(Event{Type: PollStarted})
}
