package worker

import (
	"go.uber.org/zap"

	"github.com/spec-kit/appointment-service/internal/events"
	"github.com/spec-kit/appointment-service/internal/service"
)

// StartNotificationWorker registers notification handlers.
func StartNotificationWorker(notificationService *service.NotificationService) {
	if notificationService == nil {
		return
	}
	notificationService.RegisterHandlers()
}

// StartEventForwarder forwards every dispatched event to Kafka. A nil
// publisher leaves the dispatcher untouched.
func StartEventForwarder(dispatcher events.Dispatcher, publisher *events.KafkaPublisher, logger *zap.Logger) {
	if dispatcher == nil || publisher == nil {
		return
	}
	publisher.Attach(dispatcher)
	if logger != nil {
		logger.Info("kafka event forwarding enabled")
	}
}
