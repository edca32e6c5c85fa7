package events

import (
	"context"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/problem-hunt/huntkit/core"
)

func newRawMessage(payload string) *message.Message {
	return message.NewMessage(watermill.NewUUID(), []byte(payload))
}

func TestWatermillBroadcasterRoundTrip(t *testing.T) {
	pubsub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	b := NewWatermillBroadcaster(pubsub, pubsub)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events, err := b.Subscribe(ctx)
	require.NoError(t, err)

	sent := core.TokensUpdated{
		Type:      core.EventTokensUpdated,
		Timestamp: time.Now().UTC().Truncate(time.Second),
		Source:    "proc-a",
	}
	require.NoError(t, b.PublishTokensUpdated(ctx, sent))

	select {
	case got := <-events:
		assert.Equal(t, sent.Type, got.Type)
		assert.Equal(t, sent.Source, got.Source)
		assert.True(t, sent.Timestamp.Equal(got.Timestamp))
	case <-time.After(time.Second):
		t.Fatal("no event delivered")
	}
}

func TestWatermillBroadcasterDropsGarbage(t *testing.T) {
	pubsub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	b := NewWatermillBroadcaster(pubsub, pubsub).(*WatermillBroadcaster)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events, err := b.Subscribe(ctx)
	require.NoError(t, err)

	require.NoError(t, b.publisher.Publish(b.topic, newRawMessage("not json")))
	require.NoError(t, b.PublishTokensUpdated(ctx, core.TokensUpdated{Source: "proc-b"}))

	select {
	case got := <-events:
		assert.Equal(t, "proc-b", got.Source, "undecodable messages are skipped")
	case <-time.After(time.Second):
		t.Fatal("no event delivered")
	}
}

func TestNopBroadcaster(t *testing.T) {
	b := NewNopBroadcaster()
	ctx, cancel := context.WithCancel(context.Background())

	require.NoError(t, b.PublishTokensUpdated(ctx, core.TokensUpdated{}))
	events, err := b.Subscribe(ctx)
	require.NoError(t, err)

	cancel()
	select {
	case _, open := <-events:
		assert.False(t, open, "channel closes with the context")
	case <-time.After(time.Second):
		t.Fatal("channel did not close")
	}
}
