package event

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
)

// Service writes domain events to the transactional outbox. Delivery to the
// broker is left to the outbox processor.
type Service struct {
	outboxRepo repository.OutboxRepository
	logger     zerolog.Logger
	now        func() time.Time
}

func NewService(outboxRepo repository.OutboxRepository, logger zerolog.Logger) *Service {
	return &Service{
		outboxRepo: outboxRepo,
		logger:     logger,
		now:        time.Now,
	}
}

func (s *Service) Emit(ctx context.Context, eventType string, payload interface{}) error {
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	now := s.now().UTC()
	event := &model.OutboxEvent{
		ID:        uuid.New(),
		EventType: eventType,
		Payload:   payloadJSON,
		Status:    model.OutboxStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.outboxRepo.Create(ctx, event); err != nil {
		return fmt.Errorf("failed to create outbox event: %w", err)
	}

	s.logger.Debug().
		Str("event_id", event.ID.String()).
		Str("event_type", eventType).
		Msg("event queued")
	return nil
}
