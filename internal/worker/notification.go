package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/jwalitptl/clinic-api/internal/email"
	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/pkg/messaging"
	"github.com/jwalitptl/clinic-api/pkg/metrics"
)

// NotificationWorker emails patients when their appointments change. It
// consumes the appointment channels published by the outbox processor.
type NotificationWorker struct {
	broker   messaging.Broker
	sender   email.Service
	location *time.Location
	metrics  *metrics.Metrics
	logger   zerolog.Logger
}

func NewNotificationWorker(broker messaging.Broker, sender email.Service, loc *time.Location, m *metrics.Metrics, logger zerolog.Logger) *NotificationWorker {
	if loc == nil {
		loc = time.UTC
	}
	return &NotificationWorker{
		broker:   broker,
		sender:   sender,
		location: loc,
		metrics:  m,
		logger:   logger.With().Str("component", "notification_worker").Logger(),
	}
}

// Run blocks until ctx is cancelled.
func (w *NotificationWorker) Run(ctx context.Context) error {
	w.logger.Info().Strs("channels", model.AppointmentEvents).Msg("Starting notification worker")
	err := messaging.NewDispatcher(w.broker, w.Handle, w.logger).Run(ctx, model.AppointmentEvents...)
	if errors.Is(err, context.Canceled) {
		w.logger.Info().Msg("Shutting down notification worker")
		return nil
	}
	return err
}

// Handle decodes one appointment event and sends the matching email.
// Disabled email and events without a recipient are skipped.
func (w *NotificationWorker) Handle(ctx context.Context, channel string, payload []byte) error {
	var evt model.AppointmentEvent
	if err := json.Unmarshal(payload, &evt); err != nil {
		w.metrics.NotificationsFailed.WithLabelValues(channel).Inc()
		return fmt.Errorf("failed to decode %s event: %w", channel, err)
	}
	if evt.Type == "" {
		evt.Type = channel
	}

	log := w.logger.With().
		Str("event_type", evt.Type).
		Str("appointment_id", evt.AppointmentID.String()).
		Logger()

	if evt.PatientEmail == "" {
		log.Debug().Msg("Skipping notification without recipient")
		return nil
	}
	msg, ok := email.AppointmentMessage(evt, w.location)
	if !ok {
		log.Debug().Msg("No notification for event type")
		return nil
	}

	if err := w.sender.Send(ctx, msg); err != nil {
		if errors.Is(err, email.ErrDisabled) {
			log.Debug().Msg("Email disabled, notification skipped")
			return nil
		}
		w.metrics.NotificationsFailed.WithLabelValues(evt.Type).Inc()
		return fmt.Errorf("failed to notify patient: %w", err)
	}

	w.metrics.NotificationsSent.WithLabelValues(evt.Type).Inc()
	log.Info().Msg("Patient notified")
	return nil
}
