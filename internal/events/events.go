package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mangashelf/apiserver/types"
	"go.uber.org/zap"
)

const (
	TypeLibraryEntrySaved = "library.entry.saved"
	TypeProfileUpdated    = "profile.updated"
)

// Channel returns the broker channel an event type is published on.
func Channel(eventType string) string {
	return "mangashelf." + eventType
}

// Envelope wraps every published payload.
type Envelope struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	OccurredAt time.Time       `json:"occurredAt"`
	UserID     int             `json:"userId"`
	Payload    json.RawMessage `json:"payload"`
}

// LibraryEntrySaved is the payload of library.entry.saved.
type LibraryEntrySaved struct {
	EntryID  types.EntryID      `json:"entryId"`
	Status   string             `json:"status"`
	Progress *int               `json:"progress,omitempty"`
	Stats    types.ReadingStats `json:"stats"`
}

// ProfileUpdated is the payload of profile.updated.
type ProfileUpdated struct {
	Name        string `json:"name"`
	Avatar      string `json:"avatar"`
	ReadingGoal int    `json:"readingGoal"`
}

// Broker is the subset of mq.MQ the publisher needs.
type Broker interface {
	Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error)
}

// Publisher sends events on a best-effort basis.
type Publisher struct {
	broker Broker
	log    *zap.Logger
	now    func() time.Time
}

func NewPublisher(broker Broker, log *zap.Logger) *Publisher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Publisher{broker: broker, log: log, now: time.Now}
}

// Publish wraps payload in an Envelope and sends it. Failures are logged and
// never returned to the caller.
func (p *Publisher) Publish(ctx context.Context, eventType string, userID int, payload any) {
	if p == nil || p.broker == nil {
		return
	}
	data, err := encode(eventType, userID, payload, p.now())
	if err != nil {
		p.log.Error("encode event", zap.String("type", eventType), zap.Error(err))
		return
	}
	attrs := map[string]string{"type": eventType}
	if _, err := p.broker.Publish(ctx, Channel(eventType), data, attrs); err != nil {
		p.log.Warn("publish event failed",
			zap.String("type", eventType),
			zap.Int("user_id", userID),
			zap.Error(err),
		)
	}
}

func encode(eventType string, userID int, payload any, now time.Time) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	return json.Marshal(Envelope{
		ID:         uuid.NewString(),
		Type:       eventType,
		OccurredAt: now.UTC(),
		UserID:     userID,
		Payload:    raw,
	})
}

// Decode parses an envelope and its payload.
func Decode(data []byte, payload any) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Envelope{}, fmt.Errorf("decode envelope: %w", err)
	}
	if len(env.Payload) == 0 {
		return Envelope{}, fmt.Errorf("decode envelope: missing payload")
	}
	if err := json.Unmarshal(env.Payload, payload); err != nil {
		return Envelope{}, fmt.Errorf("decode %s payload: %w", env.Type, err)
	}
	return env, nil
}
