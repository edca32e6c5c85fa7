package ports

import (
	"context"

	"github.com/problem-hunt/huntkit/core"
)

// Broadcaster notifies other processes about token updates. Delivery is best
// effort: a missed message only costs an extra refresh elsewhere.
type Broadcaster interface {
	PublishTokensUpdated(ctx context.Context, event core.TokensUpdated) error

	// Subscribe returns a channel of token-update events from other
	// processes. The channel is closed when ctx is cancelled.
	Subscribe(ctx context.Context) (<-chan core.TokensUpdated, error)
}
