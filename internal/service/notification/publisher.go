package notification

import (
	"context"
	"time"

	"github.com/osirix/clinique-api/internal/model"
	"github.com/osirix/clinique-api/pkg/logger"
	"github.com/osirix/clinique-api/pkg/messaging"
	"github.com/osirix/clinique-api/pkg/metrics"
)

// Channel is the broker channel appointment events travel on.
const Channel = "appointments"

const publishTimeout = 2 * time.Second

// Publisher emits appointment events without waiting for any acknowledgment.
type Publisher interface {
	Publish(ctx context.Context, event *model.AppointmentEvent)
}

type publisher struct {
	broker  messaging.Broker
	metrics *metrics.Metrics
	logger  *logger.Logger
}

func NewPublisher(broker messaging.Broker, m *metrics.Metrics, log *logger.Logger) Publisher {
	if log == nil {
		log = logger.Nop()
	}
	return &publisher{
		broker:  broker,
		metrics: m,
		logger:  log.With("notification-publisher"),
	}
}

// Publish hands event to the broker. Failures are logged and counted, never
// returned.
func (p *publisher) Publish(ctx context.Context, event *model.AppointmentEvent) {
	// The request may be finishing; the event should still go out.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	status := "success"
	if err := p.broker.Publish(ctx, Channel, event); err != nil {
		status = "error"
		p.logger.Error(err, "Failed to publish appointment event",
			"event_type", string(event.Type),
			"appointment_id", event.AppointmentID.String(),
		)
	}

	if p.metrics != nil {
		p.metrics.EventsPublished.WithLabelValues(string(event.Type), status).Inc()
	}
}
