package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/appointment-service/internal/config"
	"github.com/spec-kit/appointment-service/internal/events"
)

// NotificationService tells clients and providers about lifecycle changes.
type NotificationService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	cfg        config.NotificationConfig
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, logger *zap.Logger, cfg config.NotificationConfig) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		dispatcher: dispatcher,
		logger:     logger,
		cfg:        cfg,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventAppointmentStatusChanged, n.handleStatusChanged)
	n.dispatcher.Subscribe(events.EventInvoiceRequired, n.handleInvoiceRequired)
	n.dispatcher.Subscribe(events.EventReviewSubmitted, n.handleReviewSubmitted)
}

func (n *NotificationService) handleStatusChanged(ctx context.Context, event events.Event) error {
	n.logger.Info("AppointmentStatusChanged", zap.String("appointment_id", event.AppointmentID), zap.Any("payload", event.Payload))
	n.sendEmail(ctx, event)
	n.sendWebhook(ctx, event)
	return nil
}

func (n *NotificationService) handleInvoiceRequired(ctx context.Context, event events.Event) error {
	n.logger.Info("InvoiceRequired", zap.String("appointment_id", event.AppointmentID), zap.Any("payload", event.Payload))
	n.sendEmail(ctx, event)
	return nil
}

func (n *NotificationService) handleReviewSubmitted(ctx context.Context, event events.Event) error {
	n.logger.Info("ReviewSubmitted", zap.String("appointment_id", event.AppointmentID), zap.Any("payload", event.Payload))
	n.sendWebhook(ctx, event)
	return nil
}

func (n *NotificationService) sendEmail(_ context.Context, event events.Event) {
	if strings.TrimSpace(n.cfg.EmailFrom) == "" {
		return
	}
	n.logger.Debug("email notification queued",
		zap.String("from", n.cfg.EmailFrom),
		zap.String("appointment_id", event.AppointmentID),
		zap.String("event_type", string(event.Type)))
}

func (n *NotificationService) sendWebhook(_ context.Context, event events.Event) {
	if strings.TrimSpace(n.cfg.WebhookURL) == "" {
		return
	}
	n.logger.Debug("webhook notification queued",
		zap.String("url", n.cfg.WebhookURL),
		zap.String("appointment_id", event.AppointmentID),
		zap.String("event_type", string(event.Type)))
}
