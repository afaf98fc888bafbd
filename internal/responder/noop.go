package responder

import (
	"context"

	"github.com/neilzhangpro/moltbot-feishu/internal/bus"
)

// Noop is a responder that never replies. Used when no reply backend is
// configured; the command engine still works.
type Noop struct{}

func (Noop) Respond(ctx context.Context, msg *bus.InboundContext, deliver bus.DeliverFunc) error {
	return nil
}

func (Noop) WaitIdle(ctx context.Context) error { return nil }

func (Noop) MarkIdle() {}
