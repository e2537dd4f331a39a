package realtime

import (
	"context"

	"go.uber.org/zap"

	"github.com/TESCHEL/agenthq/internal/events"
)

// Bridge forwards dispatched domain events to the registry.
type Bridge struct {
	registry Registry
	logger   *zap.Logger
}

// NewBridge constructs a Bridge.
func NewBridge(registry Registry, logger *zap.Logger) *Bridge {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bridge{registry: registry, logger: logger.Named("realtime_bridge")}
}

// RegisterHandlers subscribes the bridge to every realtime event type.
func (b *Bridge) RegisterHandlers(dispatcher events.Dispatcher) {
	for _, eventType := range []events.EventType{
		events.EventMessageCreated,
		events.EventHandoffCreated,
		events.EventHandoffUpdated,
	} {
		dispatcher.Subscribe(eventType, b.forward)
	}
}

func (b *Bridge) forward(_ context.Context, event events.Event) error {
	room := Room{Kind: event.RoomKind, ID: event.RoomID}
	delivered := b.registry.Publish(room, NewEventFrame(event))
	b.logger.Debug("event fanned out",
		zap.String("event_type", string(event.Type)),
		zap.String("room", room.String()),
		zap.Int("delivered", delivered))
	return nil
}
