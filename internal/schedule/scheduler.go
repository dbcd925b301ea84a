// Multi-link operator input bypasses the conversational flow entirely:
// each URL becomes an independent ScheduledPost drained later by the worker.

package schedule

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"go-jobdesk-bot/internal/models"
)

// Stride is the gap between consecutive posts of one batch.
const Stride = 5 * time.Minute

// PostStore is the slice of storage the scheduler needs.
type PostStore interface {
	CreateScheduledPost(ctx context.Context, post *models.ScheduledPost) error
}

type Scheduler struct {
	store  PostStore
	clock  clockwork.Clock
	stride time.Duration
}

func NewScheduler(store PostStore, clock clockwork.Clock, stride time.Duration) *Scheduler {
	if stride <= 0 {
		stride = Stride
	}
	return &Scheduler{store: store, clock: clock, stride: stride}
}

// ScheduleBatch creates one pending post per URL, staggered by the stride
// from submission time, preserving input order. It returns the number of
// rows actually persisted; on a partway failure that count is smaller than
// len(urls) and the error describes the first failure.
func (s *Scheduler) ScheduleBatch(ctx context.Context, urls []string) (int, error) {
	batchID := uuid.NewString()
	now := s.clock.Now()

	created := 0
	for i, u := range urls {
		post := &models.ScheduledPost{
			ID:           uuid.NewString(),
			BatchID:      batchID,
			URL:          u,
			Status:       models.ScheduledPending,
			ScheduledFor: now.Add(time.Duration(i) * s.stride),
		}
		if err := s.store.CreateScheduledPost(ctx, post); err != nil {
			return created, err
		}
		created++
	}
	return created, nil
}
