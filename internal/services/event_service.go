package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/isdelr/folio-api/internal/models"
	"github.com/rs/zerolog/log"
)

// EventPublisher fans a recorded event out to the owner's live subscribers.
type EventPublisher interface {
	PublishTo(userID string, message []byte)
}

// EventServiceProvider defines the interface for the activity log.
type EventServiceProvider interface {
	Record(ctx context.Context, userID, eventType, message string)
	GetRecentEvents(ctx context.Context, userID string, limit int) ([]models.Event, error)
	PruneBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// EventService stores activity events and pushes them to live subscribers.
type EventService struct {
	db        *sql.DB
	publisher EventPublisher
}

// NewEventService creates a new EventService. publisher may be nil.
func NewEventService(db *sql.DB, publisher EventPublisher) *EventService {
	return &EventService{db: db, publisher: publisher}
}

// Record logs a new event. Failures are logged and never surface to the
// caller; the activity log must not break the operation it describes.
func (s *EventService) Record(ctx context.Context, userID, eventType, message string) {
	event := models.Event{
		ID:        uuid.New().String(),
		UserID:    userID,
		Type:      eventType,
		Message:   message,
		CreatedAt: time.Now().UTC(),
	}

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO events (id, user_id, type, message, created_at) VALUES (?, ?, ?, ?, ?)",
		event.ID, event.UserID, event.Type, event.Message, event.CreatedAt)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Str("type", eventType).Msg("Failed to record event")
		return
	}

	if s.publisher == nil {
		return
	}
	payload, err := json.Marshal(map[string]any{"action": "event", "payload": event})
	if err != nil {
		log.Error().Err(err).Str("event_id", event.ID).Msg("Failed to encode event")
		return
	}
	s.publisher.PublishTo(userID, payload)
}

// GetRecentEvents retrieves a user's most recent events.
func (s *EventService) GetRecentEvents(ctx context.Context, userID string, limit int) ([]models.Event, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, user_id, type, message, created_at FROM events WHERE user_id = ? ORDER BY created_at DESC LIMIT ?",
		userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := []models.Event{}
	for rows.Next() {
		var event models.Event
		if err := rows.Scan(&event.ID, &event.UserID, &event.Type, &event.Message, &event.CreatedAt); err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	return events, rows.Err()
}

// PruneBefore deletes events older than cutoff and reports how many were removed.
func (s *EventService) PruneBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM events WHERE created_at < ?", cutoff.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
