package library

import (
	"context"

	"github.com/mangashelf/apiserver/types"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// RemoteSource loads a user's list from the catalog, already bucketed.
type RemoteSource interface {
	UserList(ctx context.Context, userID int) (Buckets, error)
}

// LocalSource loads the cookie-backed list.
type LocalSource func(ctx context.Context) ([]types.LibraryEntry, error)

// Aggregator fetches both lists and merges them.
type Aggregator struct {
	remote RemoteSource
	log    *zap.Logger
}

func NewAggregator(remote RemoteSource, log *zap.Logger) *Aggregator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Aggregator{remote: remote, log: log}
}

// Aggregate loads both sources concurrently and merges them. A source that
// fails contributes nothing; its error is logged and never returned. A
// remoteUserID below 1 skips the catalog.
func (a *Aggregator) Aggregate(ctx context.Context, remoteUserID int, local LocalSource) Buckets {
	var (
		localEntries []types.LibraryEntry
		remote       = NewBuckets()
		g            errgroup.Group
	)

	g.Go(func() error {
		if local == nil {
			return nil
		}
		entries, err := local(ctx)
		if err != nil {
			a.log.Warn("local library unavailable", zap.Error(err))
			return nil
		}
		localEntries = entries
		return nil
	})
	g.Go(func() error {
		if a.remote == nil || remoteUserID < 1 {
			return nil
		}
		buckets, err := a.remote.UserList(ctx, remoteUserID)
		if err != nil {
			a.log.Warn("remote library unavailable", zap.Int("anilist_user_id", remoteUserID), zap.Error(err))
			return nil
		}
		remote = buckets
		return nil
	})
	_ = g.Wait()

	return Merge(localEntries, remote)
}
