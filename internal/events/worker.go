package events

import (
	"context"
	"errors"

	"github.com/mangashelf/apiserver/internal/mq"
	"github.com/mangashelf/apiserver/internal/store"
	"github.com/mangashelf/apiserver/types"
	"go.uber.org/zap"
)

// StatsWriter persists a user's reading counters.
type StatsWriter interface {
	UpdateReadingStats(ctx context.Context, id int, stats types.ReadingStats) error
}

// StatsHandler returns the consumer for library.entry.saved. Undecodable or
// invalid messages are logged and acknowledged so they are not redelivered.
func StatsHandler(writer StatsWriter, log *zap.Logger) mq.Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return func(ctx context.Context, msg mq.Message) error {
		var payload LibraryEntrySaved
		env, err := Decode(msg.Data, &payload)
		if err != nil {
			log.Warn("dropping malformed event", zap.String("message_id", msg.ID), zap.Error(err))
			return nil
		}
		if env.UserID < 1 {
			log.Warn("dropping event without user", zap.String("event_id", env.ID))
			return nil
		}
		if err := payload.Stats.Validate(); err != nil {
			log.Warn("dropping event with invalid stats", zap.String("event_id", env.ID), zap.Error(err))
			return nil
		}
		if err := writer.UpdateReadingStats(ctx, env.UserID, payload.Stats); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				log.Warn("dropping event for missing user", zap.Int("user_id", env.UserID))
				return nil
			}
			log.Error("update reading stats",
				zap.String("event_id", env.ID),
				zap.Int("user_id", env.UserID),
				zap.Error(err),
			)
			return err
		}
		log.Debug("reading stats updated", zap.Int("user_id", env.UserID))
		return nil
	}
}
