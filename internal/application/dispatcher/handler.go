package dispatcher

import (
	"context"

	"github.com/garyjia/approval-ledger/internal/domain/event"
)

// Handler reacts to a committed ledger event. Handlers run after the write
// is durable, so an error here never undoes ledger state.
type Handler func(ctx context.Context, evt *event.Event) error

// HandlerInfo describes one registration
type HandlerInfo struct {
	Name      string
	EventType event.Type
	Handler   Handler

	// Wildcard is set for handlers registered through SubscribeAll
	Wildcard bool
}
