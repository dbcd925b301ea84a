package schedule

import (
	"context"
	"fmt"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/jonboulle/clockwork"

	"go-jobdesk-bot/internal/format"
	"go-jobdesk-bot/internal/harvest"
	"go-jobdesk-bot/internal/logger"
	"go-jobdesk-bot/internal/models"
	"go-jobdesk-bot/internal/publish"
	"go-jobdesk-bot/internal/slug"
)

const fetchLimit = 10

// WorkerStore is the slice of storage the worker needs.
type WorkerStore interface {
	slug.Checker
	CreateJob(ctx context.Context, job *models.JobRecord) (*models.JobRecord, error)
	DuePendingPosts(ctx context.Context, now time.Time, limit int) ([]models.ScheduledPost, error)
	UpdateScheduledStatus(ctx context.Context, id string, status models.ScheduledStatus) error
}

// Extractor mirrors ai.Extractor.
type Extractor interface {
	ExtractJob(ctx context.Context, text string) (*models.JobDraft, error)
}

// Worker drains due pending ScheduledPost rows: it runs the full create
// pipeline for each URL and transitions the row to processed or failed.
// The scheduling command was the operator's confirmation, so no session is
// involved here.
type Worker struct {
	store        WorkerStore
	extractor    Extractor
	harvester    harvest.Harvester
	publisher    publish.Publisher
	clock        clockwork.Clock
	pollInterval time.Duration
}

func NewWorker(store WorkerStore, extractor Extractor, harvester harvest.Harvester,
	publisher publish.Publisher, clock clockwork.Clock, pollInterval time.Duration) *Worker {
	if pollInterval <= 0 {
		pollInterval = time.Minute
	}
	return &Worker{
		store:        store,
		extractor:    extractor,
		harvester:    harvester,
		publisher:    publisher,
		clock:        clock,
		pollInterval: pollInterval,
	}
}

// Run polls until the context is cancelled.
func (w *Worker) Run(ctx context.Context) {
	ticker := w.clock.NewTicker(w.pollInterval)
	defer ticker.Stop()

	logger.Logger.Infow("schedule worker started", "poll_interval", w.pollInterval)
	for {
		select {
		case <-ctx.Done():
			logger.Logger.Info("schedule worker stopped")
			return
		case <-ticker.Chan():
			w.drain(ctx)
		}
	}
}

func (w *Worker) drain(ctx context.Context) {
	posts, err := w.store.DuePendingPosts(ctx, w.clock.Now(), fetchLimit)
	if err != nil {
		logger.Logger.Errorw("fetching due posts failed", "error", err)
		return
	}

	for _, post := range posts {
		status := models.ScheduledProcessed
		if err := w.process(ctx, post); err != nil {
			logger.Logger.Warnw("scheduled post failed", "id", post.ID, "url", post.URL, "error", err)
			status = models.ScheduledFailed
		}
		if err := w.store.UpdateScheduledStatus(ctx, post.ID, status); err != nil {
			logger.Logger.Errorw("updating scheduled post status failed", "id", post.ID, "error", err)
		}
	}
}

func (w *Worker) process(ctx context.Context, post models.ScheduledPost) error {
	input := post.URL
	var harvested *harvest.Result
	if res, err := w.harvester.Harvest(ctx, post.URL); err != nil {
		logger.Logger.Warnw("harvest failed for scheduled post", "url", post.URL, "error", err)
	} else {
		harvested = res
		input = fmt.Sprintf("Page title: %s\nPage content: %s\n---\n%s", res.Title, res.Body, post.URL)
	}

	draft, err := w.extractor.ExtractJob(ctx, input)
	if err != nil {
		return err
	}
	if !format.HasValue(draft.Title) {
		return errors.Newf("extraction produced no usable title for %s", post.URL)
	}

	record := models.JobRecord{
		Title:       draft.Title,
		Company:     draft.Company,
		Location:    draft.Location,
		Salary:      draft.Salary,
		Eligibility: draft.Eligibility,
		Category:    draft.Category,
		ApplyURL:    draft.ApplyURL,
		Description: draft.Description,
		LastDate:    draft.LastDate,
	}
	if !format.HasValue(record.ApplyURL) {
		if harvested != nil && harvested.ApplyURL != "" {
			record.ApplyURL = harvested.ApplyURL
		} else {
			record.ApplyURL = post.URL
		}
	}

	uniqueSlug, err := slug.MakeUnique(ctx, w.store, record.Title, record.Company)
	if err != nil {
		return err
	}
	record.Slug = uniqueSlug

	saved, err := w.store.CreateJob(ctx, &record)
	if err != nil {
		return err
	}

	w.publisher.Publish(saved)
	return nil
}
