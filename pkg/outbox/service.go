package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	dbpkg "github.com/rmorales/supplysync-backend/pkg/db"
	"github.com/rmorales/supplysync-backend/pkg/db/models"
	"github.com/rmorales/supplysync-backend/pkg/enums"
	"github.com/rmorales/supplysync-backend/pkg/logger"
)

type DomainEvent struct {
	EventType     enums.OutboxEventType
	AggregateType enums.OutboxAggregateType
	AggregateID   uuid.UUID
	Actor         *ActorRef
	Data          interface{}
	Version       int
	OccurredAt    time.Time
}

type Service struct {
	repo *Repository
	logg *logger.Logger
}

func NewService(repo *Repository, logg *logger.Logger) *Service {
	return &Service{repo: repo, logg: logg}
}

// Emit appends the event to the outbox inside the caller's transaction so
// it commits or rolls back together with the state change that produced it.
func (s *Service) Emit(ctx context.Context, tx *gorm.DB, event DomainEvent) error {
	if tx == nil {
		return errors.New("transaction required")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	payloadJSON, eventID, err := encodeEnvelope(&event)
	if err != nil {
		return err
	}
	row := models.OutboxEvent{
		EventType:     event.EventType,
		AggregateType: event.AggregateType,
		AggregateID:   event.AggregateID,
		Payload:       payloadJSON,
	}
	if err := s.repo.Insert(tx, row); err != nil {
		return err
	}
	s.logEvent(ctx, eventID, event, "outbox event queued")
	return nil
}

// EmitCoalesced queues the event, collapsing onto any unpublished row for the
// same event type and aggregate: the pending row's payload is replaced with
// this event's payload, so a delivery that has not happened yet always
// carries the latest state instead of a superseded one.
func (s *Service) EmitCoalesced(ctx context.Context, tx *gorm.DB, event DomainEvent) error {
	if tx == nil {
		return errors.New("transaction required")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	payloadJSON, eventID, err := encodeEnvelope(&event)
	if err != nil {
		return err
	}
	refreshed, err := s.repo.RefreshPendingTx(tx, event.EventType, event.AggregateType, event.AggregateID, payloadJSON)
	if err != nil {
		return err
	}
	if refreshed {
		s.logEvent(ctx, eventID, event, "outbox event payload refreshed")
		return nil
	}
	row := models.OutboxEvent{
		EventType:     event.EventType,
		AggregateType: event.AggregateType,
		AggregateID:   event.AggregateID,
		Payload:       payloadJSON,
	}
	if err := s.repo.Insert(tx, row); err != nil {
		if dbpkg.IsUniqueViolation(err, "ux_outbox_events_event_aggregate") {
			return nil
		}
		return err
	}
	s.logEvent(ctx, eventID, event, "outbox event queued")
	return nil
}

func encodeEnvelope(event *DomainEvent) (json.RawMessage, string, error) {
	payload, err := json.Marshal(event.Data)
	if err != nil {
		return nil, "", err
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now()
	}
	envelope := PayloadEnvelope{
		Version:    event.Version,
		EventID:    uuid.NewString(),
		OccurredAt: event.OccurredAt,
		Actor:      event.Actor,
		Data:       payload,
	}
	payloadJSON, err := json.Marshal(envelope)
	if err != nil {
		return nil, "", err
	}
	return json.RawMessage(payloadJSON), envelope.EventID, nil
}

func (s *Service) logEvent(ctx context.Context, eventID string, event DomainEvent, msg string) {
	if s.logg == nil {
		return
	}
	fields := map[string]any{
		"event_id":       eventID,
		"event_type":     event.EventType,
		"aggregate_id":   event.AggregateID.String(),
		"aggregate_type": event.AggregateType,
	}
	s.logg.Info(s.logg.WithFields(ctx, fields), msg)
}
