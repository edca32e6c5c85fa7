package events

import (
	"context"

	"github.com/problem-hunt/huntkit/core"
	"github.com/problem-hunt/huntkit/ports"
)

// NopBroadcaster discards publishes and never delivers events, for
// single-process deployments without a message broker.
type NopBroadcaster struct{}

// NewNopBroadcaster creates a no-op broadcaster.
func NewNopBroadcaster() ports.Broadcaster {
	return NopBroadcaster{}
}

func (NopBroadcaster) PublishTokensUpdated(ctx context.Context, event core.TokensUpdated) error {
	return nil
}

// Subscribe returns a channel that closes with ctx and never delivers.
func (NopBroadcaster) Subscribe(ctx context.Context) (<-chan core.TokensUpdated, error) {
	out := make(chan core.TokensUpdated)
	go func() {
		<-ctx.Done()
		close(out)
	}()
	return out, nil
}
