// Package engine is the operator-facing state machine. It interprets
// commands and freeform replies against at most one pending session per
// operator and drives extraction, harvesting, scheduling, storage and
// broadcasting.
package engine

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/cockroachdb/errors"

	"go-jobdesk-bot/internal/format"
	"go-jobdesk-bot/internal/harvest"
	"go-jobdesk-bot/internal/logger"
	"go-jobdesk-bot/internal/models"
	"go-jobdesk-bot/internal/publish"
	"go-jobdesk-bot/internal/session"
	"go-jobdesk-bot/internal/slug"
	"go-jobdesk-bot/internal/store"
)

const (
	defaultListLimit = 10
	descriptionLimit = 300

	previewFooter = `Reply "yes" to publish or "no" to cancel.`
)

var urlRegex = regexp.MustCompile(`https?://[^\s<>"]+`)

// Storage is the slice of the repository the engine drives.
type Storage interface {
	slug.Checker
	CreateJob(ctx context.Context, job *models.JobRecord) (*models.JobRecord, error)
	GetJobBySlug(ctx context.Context, slug string) (*models.JobRecord, error)
	UpdateJob(ctx context.Context, job *models.JobRecord) error
	DeleteJob(ctx context.Context, slug string) error
	ToggleFeatured(ctx context.Context, slug string) (bool, error)
	ListJobs(ctx context.Context, limit int) ([]models.JobRecord, error)
	Stats(ctx context.Context) (*models.Stats, error)
}

// Extractor mirrors ai.Extractor so tests can inject a double without a network.
type Extractor interface {
	ExtractJob(ctx context.Context, text string) (*models.JobDraft, error)
}

// BatchScheduler is the multi-link path.
type BatchScheduler interface {
	ScheduleBatch(ctx context.Context, urls []string) (int, error)
}

type Engine struct {
	store     Storage
	sessions  session.Store
	extractor Extractor
	harvester harvest.Harvester
	scheduler BatchScheduler
	publisher publish.Publisher
	siteRoot  string
}

func New(storage Storage, sessions session.Store, extractor Extractor,
	harvester harvest.Harvester, scheduler BatchScheduler,
	publisher publish.Publisher, siteRoot string) *Engine {
	return &Engine{
		store:     storage,
		sessions:  sessions,
		extractor: extractor,
		harvester: harvester,
		scheduler: scheduler,
		publisher: publisher,
		siteRoot:  strings.TrimRight(siteRoot, "/"),
	}
}

// HandleMessage processes one operator message and returns the reply text.
// An empty reply means the message was deliberately ignored.
func (e *Engine) HandleMessage(ctx context.Context, operatorID int64, text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}

	keyword, args := splitCommand(text)
	switch keyword {
	case "create":
		return e.handleCreate(ctx, operatorID, args)
	case "list":
		return e.handleList(ctx, args)
	case "delete":
		return e.handleDelete(ctx, operatorID, args)
	case "feature":
		return e.handleFeature(ctx, args)
	case "edit":
		return e.handleEdit(ctx, operatorID, args)
	case "stats":
		return e.handleStats(ctx)
	default:
		return e.handleFreeform(ctx, operatorID, text)
	}
}

func splitCommand(text string) (keyword, args string) {
	parts := strings.SplitN(text, " ", 2)
	keyword = strings.ToLower(strings.TrimPrefix(parts[0], "/"))
	if len(parts) == 2 {
		args = strings.TrimSpace(parts[1])
	}
	return keyword, args
}

// ---------------- CREATE ----------------

func (e *Engine) handleCreate(ctx context.Context, operatorID int64, args string) string {
	if args == "" {
		return "Usage: create <job description or link>"
	}

	urls := urlRegex.FindAllString(args, -1)

	// Multiple links short-circuit to the batch scheduler; no session, no
	// extraction on this path.
	if len(urls) > 1 {
		created, err := e.scheduler.ScheduleBatch(ctx, urls)
		if err != nil {
			logger.Logger.Errorw("batch scheduling failed partway", "created", created, "error", err)
			return fmt.Sprintf("⚠️ Scheduled %d of %d posts before a storage error. The rest were not saved.", created, len(urls))
		}
		return fmt.Sprintf("✅ Scheduled %d posts, 5 minutes apart.", created)
	}

	input := args
	var harvested *harvest.Result
	if len(urls) == 1 {
		res, err := e.harvester.Harvest(ctx, urls[0])
		if err != nil {
			// degraded input, not a reason to abort
			logger.Logger.Warnw("link harvest failed", "url", urls[0], "error", err)
		} else {
			harvested = res
			input = fmt.Sprintf("Page title: %s\nPage content: %s\n---\n%s", res.Title, res.Body, args)
		}
	}

	draft, err := e.extractor.ExtractJob(ctx, input)
	if err != nil {
		logger.Logger.Errorw("extraction failed", "error", err)
		return "❌ Could not extract a job posting from that. Please rephrase and try again."
	}
	if !format.HasValue(draft.Title) {
		return "❌ Could not identify a job title in that text. Please include one and try again."
	}

	record := recordFromDraft(draft)
	if !format.HasValue(record.ApplyURL) {
		switch {
		case harvested != nil && harvested.ApplyURL != "":
			record.ApplyURL = harvested.ApplyURL
		case len(urls) == 1:
			record.ApplyURL = urls[0]
		}
	}

	e.sessions.Set(operatorID, session.Create{Record: record})
	return renderPreview(&record)
}

func recordFromDraft(d *models.JobDraft) models.JobRecord {
	return models.JobRecord{
		Title:       strings.TrimSpace(d.Title),
		Company:     strings.TrimSpace(d.Company),
		Location:    strings.TrimSpace(d.Location),
		Salary:      strings.TrimSpace(d.Salary),
		Eligibility: strings.TrimSpace(d.Eligibility),
		Category:    strings.TrimSpace(d.Category),
		ApplyURL:    strings.TrimSpace(d.ApplyURL),
		Description: strings.TrimSpace(d.Description),
		LastDate:    strings.TrimSpace(d.LastDate),
	}
}

// renderPreview enumerates only meaningful fields, in fixed order, for
// operator review before commit.
func renderPreview(job *models.JobRecord) string {
	var b strings.Builder
	b.WriteString("📋 New job posting preview:\n\n")

	writeField := func(label, value string) {
		if format.HasValue(value) {
			b.WriteString(fmt.Sprintf("%s: %s\n", label, strings.TrimSpace(value)))
		}
	}

	writeField("Title", job.Title)
	writeField("Company", job.Company)
	writeField("Location", job.Location)
	writeField("Salary", job.Salary)
	writeField("Category", job.Category)
	writeField("Apply link", job.ApplyURL)
	writeField("Last date", job.LastDate)
	writeField("Eligibility", job.Eligibility)
	if format.HasValue(job.Description) {
		writeField("Description", format.Truncate(strings.TrimSpace(job.Description), descriptionLimit))
	}

	b.WriteString("\n" + previewFooter)
	return b.String()
}

// ---------------- READ-ONLY / SINGLE-MUTATION COMMANDS ----------------

func (e *Engine) handleList(ctx context.Context, args string) string {
	limit := defaultListLimit
	if strings.EqualFold(strings.TrimSpace(args), "all") {
		limit = 0
	}

	jobs, err := e.store.ListJobs(ctx, limit)
	if err != nil {
		logger.Logger.Errorw("listing jobs failed", "error", err)
		return "⚠️ Could not load postings right now."
	}
	if len(jobs) == 0 {
		return "No postings yet."
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("📄 %d posting(s):\n", len(jobs)))
	for _, job := range jobs {
		line := fmt.Sprintf("• %s — %s", job.Slug, job.Title)
		if format.HasValue(job.Company) {
			line += " at " + job.Company
		}
		if job.Featured {
			line += " ⭐"
		}
		b.WriteString(line + "\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func (e *Engine) handleDelete(ctx context.Context, operatorID int64, args string) string {
	if args == "" {
		return "Usage: delete <slug>"
	}

	job, err := e.store.GetJobBySlug(ctx, args)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Sprintf("❌ No posting found with slug %q.", args)
		}
		logger.Logger.Errorw("delete lookup failed", "slug", args, "error", err)
		return "⚠️ Could not look that posting up right now."
	}

	e.sessions.Set(operatorID, session.Delete{Slug: job.Slug})
	return fmt.Sprintf("🗑 Delete %q (%s)? Reply \"yes\" to confirm or \"no\" to cancel.", job.Title, job.Slug)
}

func (e *Engine) handleFeature(ctx context.Context, args string) string {
	if args == "" {
		return "Usage: feature <slug>"
	}

	featured, err := e.store.ToggleFeatured(ctx, args)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Sprintf("❌ No posting found with slug %q.", args)
		}
		logger.Logger.Errorw("feature toggle failed", "slug", args, "error", err)
		return "⚠️ Could not update that posting right now."
	}
	if featured {
		return fmt.Sprintf("⭐ %s is now featured.", args)
	}
	return fmt.Sprintf("☆ %s is no longer featured.", args)
}

func (e *Engine) handleEdit(ctx context.Context, operatorID int64, args string) string {
	if args == "" {
		return "Usage: edit <slug>"
	}

	job, err := e.store.GetJobBySlug(ctx, args)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Sprintf("❌ No posting found with slug %q.", args)
		}
		logger.Logger.Errorw("edit lookup failed", "slug", args, "error", err)
		return "⚠️ Could not look that posting up right now."
	}

	e.sessions.Set(operatorID, session.Edit{Slug: job.Slug})
	return fmt.Sprintf("✏️ Editing %q (%s). Send the updated details in one message; fields you mention will be overwritten, the rest stay as they are.", job.Title, job.Slug)
}

func (e *Engine) handleStats(ctx context.Context) string {
	stats, err := e.store.Stats(ctx)
	if err != nil {
		logger.Logger.Errorw("stats query failed", "error", err)
		return "⚠️ Could not load stats right now."
	}
	return fmt.Sprintf(
		"📊 Stats\nPostings: %d (featured: %d)\nViews: %d | Clicks: %d\nScheduled posts — pending: %d, processed: %d, failed: %d",
		stats.TotalJobs, stats.FeaturedJobs, stats.TotalViews, stats.TotalClicks,
		stats.PendingPosts, stats.ProcessedPosts, stats.FailedPosts)
}

// ---------------- FREEFORM REPLIES ----------------

func (e *Engine) handleFreeform(ctx context.Context, operatorID int64, text string) string {
	pending, ok := e.sessions.Get(operatorID)
	if !ok {
		// no session, unrecognized text: ignore
		return ""
	}

	switch s := pending.(type) {
	case session.Create:
		return e.resolveCreate(ctx, operatorID, s, text)
	case session.Delete:
		return e.resolveDelete(ctx, operatorID, s, text)
	case session.Edit:
		return e.resolveEdit(ctx, operatorID, s, text)
	default:
		logger.Logger.Errorw("unknown session type, clearing", "operator", operatorID)
		e.sessions.Clear(operatorID)
		return ""
	}
}

func (e *Engine) resolveCreate(ctx context.Context, operatorID int64, s session.Create, text string) string {
	switch strings.ToLower(strings.TrimSpace(text)) {
	case "yes":
	case "no", "cancel":
		e.sessions.Clear(operatorID)
		return "❌ Discarded."
	default:
		// anything else is ignored so a stray message cannot destroy the draft
		return ""
	}

	record := s.Record
	uniqueSlug, err := slug.MakeUnique(ctx, e.store, record.Title, record.Company)
	if err != nil {
		logger.Logger.Errorw("slug generation failed", "error", err)
		return "⚠️ Could not save the posting. Reply \"yes\" to retry or \"no\" to discard."
	}
	record.Slug = uniqueSlug

	saved, err := e.store.CreateJob(ctx, &record)
	if err != nil {
		logger.Logger.Errorw("job create failed", "slug", record.Slug, "error", err)
		return "⚠️ Could not save the posting. Reply \"yes\" to retry or \"no\" to discard."
	}

	// Clear before publishing: a publish failure must never re-trigger the
	// storage write.
	e.sessions.Clear(operatorID)
	e.publisher.Publish(saved)

	return fmt.Sprintf("✅ Published %q — %s/job/%s", saved.Title, e.siteRoot, saved.Slug)
}

func (e *Engine) resolveDelete(ctx context.Context, operatorID int64, s session.Delete, text string) string {
	switch strings.ToLower(strings.TrimSpace(text)) {
	case "yes":
	case "no", "cancel":
		e.sessions.Clear(operatorID)
		return "❌ Cancelled."
	default:
		return ""
	}

	// Deleting an already-gone slug is fine; the session clears either way.
	if err := e.store.DeleteJob(ctx, s.Slug); err != nil {
		logger.Logger.Errorw("job delete failed", "slug", s.Slug, "error", err)
		return "⚠️ Could not delete the posting. Reply \"yes\" to retry or \"no\" to cancel."
	}

	e.sessions.Clear(operatorID)
	return fmt.Sprintf("🗑 Deleted %s.", s.Slug)
}

func (e *Engine) resolveEdit(ctx context.Context, operatorID int64, s session.Edit, text string) string {
	draft, err := e.extractor.ExtractJob(ctx, text)
	if err != nil {
		logger.Logger.Errorw("edit extraction failed", "slug", s.Slug, "error", err)
		return "❌ Could not make sense of that. Send the updated details again, or use another command to abandon the edit."
	}

	job, err := e.store.GetJobBySlug(ctx, s.Slug)
	if err != nil {
		logger.Logger.Errorw("edit reload failed", "slug", s.Slug, "error", err)
		return "⚠️ Could not load the posting. Send the details again to retry."
	}

	mergeDraft(job, draft)

	if err := e.store.UpdateJob(ctx, job); err != nil {
		logger.Logger.Errorw("edit save failed", "slug", s.Slug, "error", err)
		return "⚠️ Could not save the changes. Send the details again to retry."
	}

	e.sessions.Clear(operatorID)
	return fmt.Sprintf("✅ Updated %s.", s.Slug)
}

// mergeDraft overwrites only the fields the extraction produced; everything
// else, including the slug and counters, stays untouched.
func mergeDraft(job *models.JobRecord, draft *models.JobDraft) {
	apply := func(dst *string, v string) {
		if v = strings.TrimSpace(v); v != "" {
			*dst = v
		}
	}
	apply(&job.Title, draft.Title)
	apply(&job.Company, draft.Company)
	apply(&job.Location, draft.Location)
	apply(&job.Salary, draft.Salary)
	apply(&job.Eligibility, draft.Eligibility)
	apply(&job.Category, draft.Category)
	apply(&job.ApplyURL, draft.ApplyURL)
	apply(&job.Description, draft.Description)
	apply(&job.LastDate, draft.LastDate)
}
