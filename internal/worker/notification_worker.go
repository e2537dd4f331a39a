package worker

import (
	"context"

	"github.com/TESCHEL/agenthq/internal/service"
)

// StartNotificationWorker registers notification handlers and starts
// webhook delivery until ctx is done.
func StartNotificationWorker(ctx context.Context, notificationService *service.NotificationService) {
	if notificationService == nil {
		return
	}
	notificationService.RegisterHandlers()
	go notificationService.Run(ctx)
}
