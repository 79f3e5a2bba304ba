package events

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"golang.org/x/sync/errgroup"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func decodeEnvelope(t *testing.T, msg []byte) Envelope {
	t.Helper()
	var env Envelope
	require.NoError(t, json.Unmarshal(msg, &env))
	return env
}

func TestHub_BroadcastToAllSubscribers(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	hub := NewHub(4, testLogger())
	defer hub.Close()

	a, err := hub.Subscribe()
	require.NoError(t, err)
	b, err := hub.Subscribe()
	require.NoError(t, err)
	assert.Equal(t, 2, hub.Subscribers())

	require.NoError(t, hub.Broadcast(DisasterUpdated, map[string]string{"deleted": "abc"}))

	for _, sub := range []*Subscription{a, b} {
		msg := <-sub.Messages()
		env := decodeEnvelope(t, msg)
		assert.Equal(t, DisasterUpdated, env.Event)
		assert.JSONEq(t, `{"deleted":"abc"}`, string(env.Data))
	}
}

func TestHub_NoReplayForLateSubscribers(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	hub := NewHub(4, testLogger())
	defer hub.Close()

	require.NoError(t, hub.Broadcast(SocialMediaUpdated, []string{"old"}))

	sub, err := hub.Subscribe()
	require.NoError(t, err)

	select {
	case msg := <-sub.Messages():
		t.Fatalf("неожиданное сообщение: %s", msg)
	default:
	}
}

func TestHub_FullBufferDropsMessage(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	hub := NewHub(1, testLogger())
	defer hub.Close()

	sub, err := hub.Subscribe()
	require.NoError(t, err)

	require.NoError(t, hub.Broadcast(DisasterUpdated, 1))
	// Буфер заполнен: второе событие пропускается, вызов не блокируется
	require.NoError(t, hub.Broadcast(DisasterUpdated, 2))

	env := decodeEnvelope(t, <-sub.Messages())
	assert.JSONEq(t, `1`, string(env.Data))
	assert.Empty(t, sub.Messages())
}

func TestHub_Unsubscribe(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	hub := NewHub(4, testLogger())
	defer hub.Close()

	sub, err := hub.Subscribe()
	require.NoError(t, err)

	hub.Unsubscribe(sub)
	hub.Unsubscribe(sub)
	assert.Equal(t, 0, hub.Subscribers())

	_, ok := <-sub.Messages()
	assert.False(t, ok, "канал должен быть закрыт после отписки")

	require.NoError(t, hub.Broadcast(DisasterUpdated, "x"))
}

func TestHub_Close(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	hub := NewHub(4, testLogger())
	sub, err := hub.Subscribe()
	require.NoError(t, err)

	hub.Close()
	hub.Close()

	_, ok := <-sub.Messages()
	assert.False(t, ok)
	assert.Equal(t, 0, hub.Subscribers())

	_, err = hub.Subscribe()
	assert.ErrorIs(t, err, ErrHubClosed)

	// Отписка после Close не паникует
	hub.Unsubscribe(sub)
}

func TestHub_UnmarshalablePayload(t *testing.T) {
	hub := NewHub(4, testLogger())
	defer hub.Close()

	err := hub.Broadcast(DisasterUpdated, make(chan int))
	assert.Error(t, err)
}

func TestHub_ConcurrentBroadcast(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	const (
		publishers = 8
		perWorker  = 10
	)

	hub := NewHub(publishers*perWorker, testLogger())
	defer hub.Close()

	sub, err := hub.Subscribe()
	require.NoError(t, err)

	var g errgroup.Group
	for i := range publishers {
		g.Go(func() error {
			for j := range perWorker {
				if err := hub.Broadcast(DisasterUpdated, fmt.Sprintf("%d-%d", i, j)); err != nil {
					return err
				}
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	assert.Len(t, sub.Messages(), publishers*perWorker)
}
