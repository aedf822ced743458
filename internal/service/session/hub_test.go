package session

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"outliner/internal/domain/services"
)

func TestHubSkipsStateOlderThanSnapshot(t *testing.T) {
	h := newHub(slog.New(slog.NewTextHandler(io.Discard, nil)))

	id, ch, ok := h.subscribe(func() services.SessionEvent {
		return services.SessionEvent{Type: services.EventState, Version: 5}
	})
	require.True(t, ok)
	assert.Equal(t, uint64(5), (<-ch).Version)

	h.publish(services.SessionEvent{Type: services.EventState, Version: 4})
	h.publish(services.SessionEvent{Type: services.EventState, Version: 5})
	h.publish(services.SessionEvent{Type: services.EventNotification})
	h.publish(services.SessionEvent{Type: services.EventState, Version: 6})

	assert.Equal(t, services.EventNotification, (<-ch).Type)
	assert.Equal(t, uint64(6), (<-ch).Version)

	h.unsubscribe(id)
	_, open := <-ch
	assert.False(t, open)
	assert.Equal(t, 0, h.count())
}

func TestHubDropsWhenSubscriberIsFull(t *testing.T) {
	h := newHub(slog.New(slog.NewTextHandler(io.Discard, nil)))
	_, ch, ok := h.subscribe(func() services.SessionEvent {
		return services.SessionEvent{Type: services.EventState}
	})
	require.True(t, ok)

	for i := 0; i < subscriberBuffer*2; i++ {
		h.publish(services.SessionEvent{Type: services.EventNotification})
	}
	assert.Len(t, ch, subscriberBuffer)
}

func TestHubClosed(t *testing.T) {
	h := newHub(slog.New(slog.NewTextHandler(io.Discard, nil)))
	_, ch, ok := h.subscribe(func() services.SessionEvent { return services.SessionEvent{Type: services.EventState} })
	require.True(t, ok)

	h.close()
	<-ch
	_, open := <-ch
	assert.False(t, open)

	_, _, ok = h.subscribe(func() services.SessionEvent { return services.SessionEvent{} })
	assert.False(t, ok)
}
