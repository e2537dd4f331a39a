package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/TESCHEL/agenthq/internal/config"
	"github.com/TESCHEL/agenthq/internal/domain"
	"github.com/TESCHEL/agenthq/internal/events"
)

const notificationQueueSize = 128

// NotificationService relays urgent handoff activity to an outbound webhook.
// Delivery runs on its own goroutine so publishers never wait on the network.
type NotificationService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	cfg        config.NotificationConfig
	queue      chan events.Event
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, logger *zap.Logger, cfg config.NotificationConfig) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		dispatcher: dispatcher,
		logger:     logger.Named("notifications"),
		cfg:        cfg,
		queue:      make(chan events.Event, notificationQueueSize),
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventHandoffCreated, n.handleHandoff)
	n.dispatcher.Subscribe(events.EventHandoffUpdated, n.handleHandoff)
}

// Run delivers queued notifications until ctx is done.
func (n *NotificationService) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event := <-n.queue:
			if err := n.deliver(event); err != nil {
				n.logger.Warn("webhook delivery failed",
					zap.String("event_id", event.ID),
					zap.String("event_type", string(event.Type)),
					zap.Error(err))
			}
		}
	}
}

func (n *NotificationService) handleHandoff(_ context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.HandoffPayload)
	if !ok {
		return fmt.Errorf("unexpected payload %T for %s", event.Payload, event.Type)
	}
	n.logger.Info(string(event.Type),
		zap.String("handoff_id", payload.ID),
		zap.String("workspace_id", payload.WorkspaceID),
		zap.String("status", string(payload.Status)),
		zap.String("priority", string(payload.Priority)))

	if payload.Priority != domain.HandoffPriorityUrgent || strings.TrimSpace(n.cfg.WebhookURL) == "" {
		return nil
	}
	select {
	case n.queue <- event:
	default:
		n.logger.Warn("notification queue full, dropping", zap.String("event_id", event.ID))
	}
	return nil
}

func (n *NotificationService) deliver(event events.Event) error {
	timeout := n.cfg.WebhookTimeout()
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	agent := fiber.Post(n.cfg.WebhookURL)
	agent.JSON(event)
	agent.Timeout(timeout)
	if err := agent.Parse(); err != nil {
		return err
	}

	status, _, errs := agent.Bytes()
	if len(errs) > 0 {
		return errs[0]
	}
	if status >= fiber.StatusBadRequest {
		return fmt.Errorf("webhook responded with status %d", status)
	}
	n.logger.Debug("webhook delivered", zap.String("event_id", event.ID), zap.Int("status", status))
	return nil
}
