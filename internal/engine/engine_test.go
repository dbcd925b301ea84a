package engine

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-jobdesk-bot/internal/harvest"
	"go-jobdesk-bot/internal/models"
	"go-jobdesk-bot/internal/session"
	"go-jobdesk-bot/internal/store"
)

const operatorID int64 = 100

// ---------------- DOUBLES ----------------

type fakeStorage struct {
	jobs      map[string]*models.JobRecord
	createErr error
	updateErr error
	deleteErr error
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{jobs: map[string]*models.JobRecord{}}
}

func (f *fakeStorage) SlugExists(_ context.Context, slug string) (bool, error) {
	_, ok := f.jobs[slug]
	return ok, nil
}

func (f *fakeStorage) CreateJob(_ context.Context, job *models.JobRecord) (*models.JobRecord, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	stored := *job
	stored.ID = fmt.Sprintf("id-%d", len(f.jobs)+1)
	f.jobs[job.Slug] = &stored
	return &stored, nil
}

func (f *fakeStorage) GetJobBySlug(_ context.Context, slug string) (*models.JobRecord, error) {
	job, ok := f.jobs[slug]
	if !ok {
		return nil, store.ErrNotFound
	}
	copied := *job
	return &copied, nil
}

func (f *fakeStorage) UpdateJob(_ context.Context, job *models.JobRecord) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	if _, ok := f.jobs[job.Slug]; !ok {
		return store.ErrNotFound
	}
	stored := *job
	f.jobs[job.Slug] = &stored
	return nil
}

func (f *fakeStorage) DeleteJob(_ context.Context, slug string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	delete(f.jobs, slug)
	return nil
}

func (f *fakeStorage) ToggleFeatured(_ context.Context, slug string) (bool, error) {
	job, ok := f.jobs[slug]
	if !ok {
		return false, store.ErrNotFound
	}
	job.Featured = !job.Featured
	return job.Featured, nil
}

func (f *fakeStorage) ListJobs(_ context.Context, limit int) ([]models.JobRecord, error) {
	var jobs []models.JobRecord
	for _, job := range f.jobs {
		jobs = append(jobs, *job)
	}
	if limit > 0 && len(jobs) > limit {
		jobs = jobs[:limit]
	}
	return jobs, nil
}

func (f *fakeStorage) Stats(_ context.Context) (*models.Stats, error) {
	stats := &models.Stats{TotalJobs: len(f.jobs)}
	for _, job := range f.jobs {
		if job.Featured {
			stats.FeaturedJobs++
		}
	}
	return stats, nil
}

type fakeExtractor struct {
	draft *models.JobDraft
	err   error
	calls int
	last  string
}

func (f *fakeExtractor) ExtractJob(_ context.Context, text string) (*models.JobDraft, error) {
	f.calls++
	f.last = text
	if f.err != nil {
		return nil, f.err
	}
	return f.draft, nil
}

type fakeHarvester struct {
	result *harvest.Result
	err    error
	calls  int
}

func (f *fakeHarvester) Harvest(_ context.Context, _ string) (*harvest.Result, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

type fakeScheduler struct {
	urls    []string
	created int
	err     error
	calls   int
}

func (f *fakeScheduler) ScheduleBatch(_ context.Context, urls []string) (int, error) {
	f.calls++
	f.urls = urls
	if f.err != nil {
		return f.created, f.err
	}
	return len(urls), nil
}

type fakePublisher struct {
	published []*models.JobRecord
}

func (f *fakePublisher) Publish(job *models.JobRecord) {
	f.published = append(f.published, job)
}

type fixture struct {
	engine    *Engine
	storage   *fakeStorage
	sessions  session.Store
	extractor *fakeExtractor
	harvester *fakeHarvester
	scheduler *fakeScheduler
	publisher *fakePublisher
}

func newFixture() *fixture {
	f := &fixture{
		storage:   newFakeStorage(),
		sessions:  session.NewMemoryStore(),
		extractor: &fakeExtractor{},
		harvester: &fakeHarvester{err: errors.New("no harvest configured")},
		scheduler: &fakeScheduler{},
		publisher: &fakePublisher{},
	}
	f.engine = New(f.storage, f.sessions, f.extractor, f.harvester, f.scheduler,
		f.publisher, "https://jobs.example.com")
	return f
}

func (f *fixture) handle(t *testing.T, text string) string {
	t.Helper()
	return f.engine.HandleMessage(context.Background(), operatorID, text)
}

// ---------------- CREATE ----------------

func TestCreateRequiresArgument(t *testing.T) {
	f := newFixture()
	reply := f.handle(t, "create")
	assert.Contains(t, reply, "Usage:")
	_, ok := f.sessions.Get(operatorID)
	assert.False(t, ok)
	assert.Zero(t, f.extractor.calls)
}

func TestCreatePreviewAndConfirm(t *testing.T) {
	f := newFixture()
	f.extractor.draft = &models.JobDraft{
		Title: "Backend Dev", Company: "Acme", Location: "Pune", Salary: "6 LPA",
	}

	preview := f.handle(t, "create Backend Dev at Acme, Pune, 6 LPA")

	// exactly the four extracted fields, in fixed order, plus the footer
	assert.Contains(t, preview, "Title: Backend Dev")
	assert.Contains(t, preview, "Company: Acme")
	assert.Contains(t, preview, "Location: Pune")
	assert.Contains(t, preview, "Salary: 6 LPA")
	assert.NotContains(t, preview, "Category:")
	assert.NotContains(t, preview, "Apply link:")
	assert.NotContains(t, preview, "Description:")
	assert.Contains(t, preview, previewFooter)

	order := []string{"Title:", "Company:", "Location:", "Salary:"}
	last := -1
	for _, label := range order {
		idx := strings.Index(preview, label)
		require.Greater(t, idx, last, "field %s out of order", label)
		last = idx
	}

	reply := f.handle(t, "YES")
	assert.Contains(t, reply, "✅")
	assert.Contains(t, reply, "https://jobs.example.com/job/backend-dev-acme")

	require.Len(t, f.storage.jobs, 1)
	saved := f.storage.jobs["backend-dev-acme"]
	require.NotNil(t, saved)
	assert.Equal(t, "Backend Dev", saved.Title)

	// session cleared, one publish attempt
	_, ok := f.sessions.Get(operatorID)
	assert.False(t, ok)
	require.Len(t, f.publisher.published, 1)
	assert.Equal(t, "backend-dev-acme", f.publisher.published[0].Slug)

	// a second "yes" must not commit again
	assert.Empty(t, f.handle(t, "yes"))
	assert.Len(t, f.storage.jobs, 1)
	assert.Len(t, f.publisher.published, 1)
}

func TestCreateCancel(t *testing.T) {
	f := newFixture()
	f.extractor.draft = &models.JobDraft{Title: "SRE"}

	f.handle(t, "create SRE role")
	reply := f.handle(t, "  No ")
	assert.Contains(t, reply, "Discarded")
	assert.Empty(t, f.storage.jobs)
	_, ok := f.sessions.Get(operatorID)
	assert.False(t, ok)
}

func TestAwaitingConfirmationIgnoresOtherText(t *testing.T) {
	f := newFixture()
	f.extractor.draft = &models.JobDraft{Title: "SRE"}

	f.handle(t, "create SRE role")
	extractCalls := f.extractor.calls

	for _, noise := range []string{"hm", "yes please", "maybe", "publish it"} {
		assert.Empty(t, f.handle(t, noise))
	}
	assert.Empty(t, f.storage.jobs)
	assert.Equal(t, extractCalls, f.extractor.calls, "noise must not re-run extraction")

	s, ok := f.sessions.Get(operatorID)
	require.True(t, ok, "session must survive unrelated replies")
	_, isCreate := s.(session.Create)
	assert.True(t, isCreate)

	// "cancel" still works after the noise
	f.handle(t, "cancel")
	_, ok = f.sessions.Get(operatorID)
	assert.False(t, ok)
}

func TestCreateWithoutTitleFails(t *testing.T) {
	f := newFixture()
	f.extractor.draft = &models.JobDraft{Title: "N/A", Company: "Acme"}

	reply := f.handle(t, "create something vague")
	assert.Contains(t, reply, "❌")
	_, ok := f.sessions.Get(operatorID)
	assert.False(t, ok, "hard extraction failure must not install a session")
}

func TestCreateExtractionError(t *testing.T) {
	f := newFixture()
	f.extractor.err = errors.New("service down")

	reply := f.handle(t, "create some role")
	assert.Contains(t, reply, "❌")
	_, ok := f.sessions.Get(operatorID)
	assert.False(t, ok)
}

func TestCreatePersistenceFailureKeepsSession(t *testing.T) {
	f := newFixture()
	f.extractor.draft = &models.JobDraft{Title: "SRE"}
	f.storage.createErr = errors.New("db down")

	f.handle(t, "create SRE role")
	reply := f.handle(t, "yes")
	assert.Contains(t, reply, "⚠️")
	assert.Empty(t, f.publisher.published)

	// session preserved so the operator can retry
	_, ok := f.sessions.Get(operatorID)
	require.True(t, ok)

	f.storage.createErr = nil
	reply = f.handle(t, "yes")
	assert.Contains(t, reply, "✅")
	assert.Len(t, f.storage.jobs, 1)
	assert.Len(t, f.publisher.published, 1)
}

func TestCreateOverwritesPendingSession(t *testing.T) {
	f := newFixture()
	f.extractor.draft = &models.JobDraft{Title: "First"}
	f.handle(t, "create first role")

	f.extractor.draft = &models.JobDraft{Title: "Second"}
	f.handle(t, "create second role")

	s, ok := f.sessions.Get(operatorID)
	require.True(t, ok)
	create, ok := s.(session.Create)
	require.True(t, ok)
	assert.Equal(t, "Second", create.Record.Title, "last write wins")
}

// ---------------- SINGLE-URL ENRICHMENT ----------------

func TestCreateSingleURLHarvestEnrichment(t *testing.T) {
	f := newFixture()
	f.harvester.err = nil
	f.harvester.result = &harvest.Result{
		Title:    "Acme Careers",
		Body:     "We are hiring a Backend Dev in Pune",
		ApplyURL: "https://acme.com/apply/7",
	}
	f.extractor.draft = &models.JobDraft{Title: "Backend Dev", Company: "Acme"}

	f.handle(t, "create check this out https://acme.com/jobs/7")

	assert.Equal(t, 1, f.harvester.calls)
	assert.Contains(t, f.extractor.last, "Page title: Acme Careers")
	assert.Contains(t, f.extractor.last, "We are hiring a Backend Dev")
	assert.Contains(t, f.extractor.last, "check this out")

	s, _ := f.sessions.Get(operatorID)
	create := s.(session.Create)
	// extracted draft had no apply URL: harvester-detected link wins
	assert.Equal(t, "https://acme.com/apply/7", create.Record.ApplyURL)
}

func TestApplyLinkBackfillOrder(t *testing.T) {
	tests := []struct {
		name      string
		draftURL  string
		harvested *harvest.Result
		expected  string
	}{
		{
			name:      "extracted value wins",
			draftURL:  "https://acme.com/direct",
			harvested: &harvest.Result{ApplyURL: "https://acme.com/apply/7"},
			expected:  "https://acme.com/direct",
		},
		{
			name:      "harvester link next",
			harvested: &harvest.Result{ApplyURL: "https://acme.com/apply/7"},
			expected:  "https://acme.com/apply/7",
		},
		{
			name:      "literal URL last",
			harvested: &harvest.Result{},
			expected:  "https://acme.com/jobs/7",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			f.harvester.err = nil
			f.harvester.result = tt.harvested
			f.extractor.draft = &models.JobDraft{Title: "Backend Dev", ApplyURL: tt.draftURL}

			f.handle(t, "create https://acme.com/jobs/7")

			s, ok := f.sessions.Get(operatorID)
			require.True(t, ok)
			assert.Equal(t, tt.expected, s.(session.Create).Record.ApplyURL)
		})
	}
}

func TestCreateHarvestFailureDegradesGracefully(t *testing.T) {
	f := newFixture()
	f.harvester.err = errors.New("timeout")
	f.extractor.draft = &models.JobDraft{Title: "Backend Dev"}

	f.handle(t, "create https://acme.com/jobs/7")

	// extraction ran on the raw text, and the literal URL backfilled the link
	assert.Equal(t, 1, f.extractor.calls)
	assert.NotContains(t, f.extractor.last, "Page title:")
	s, ok := f.sessions.Get(operatorID)
	require.True(t, ok)
	assert.Equal(t, "https://acme.com/jobs/7", s.(session.Create).Record.ApplyURL)
}

// ---------------- BATCH PATH ----------------

func TestCreateMultipleURLsDelegatesToScheduler(t *testing.T) {
	f := newFixture()

	reply := f.handle(t, "create http://a.com http://b.com http://c.com")
	assert.Contains(t, reply, "3")

	assert.Equal(t, 1, f.scheduler.calls)
	assert.Equal(t, []string{"http://a.com", "http://b.com", "http://c.com"}, f.scheduler.urls)
	assert.Zero(t, f.extractor.calls, "no extraction on the batch path")
	assert.Zero(t, f.harvester.calls)
	_, ok := f.sessions.Get(operatorID)
	assert.False(t, ok, "no session on the batch path")
}

func TestCreateBatchPartialFailureReportsActualCount(t *testing.T) {
	f := newFixture()
	f.scheduler.err = errors.New("db down")
	f.scheduler.created = 1

	reply := f.handle(t, "create http://a.com http://b.com http://c.com")
	assert.Contains(t, reply, "1 of 3")
}

// ---------------- DELETE ----------------

func TestDeleteFlow(t *testing.T) {
	f := newFixture()
	f.storage.jobs["backend-dev-acme"] = &models.JobRecord{Slug: "backend-dev-acme", Title: "Backend Dev"}

	reply := f.handle(t, "delete backend-dev-acme")
	assert.Contains(t, reply, "Backend Dev")

	reply = f.handle(t, "yes")
	assert.Contains(t, reply, "Deleted")
	assert.Empty(t, f.storage.jobs)
	_, ok := f.sessions.Get(operatorID)
	assert.False(t, ok)
}

func TestDeleteUnknownSlug(t *testing.T) {
	f := newFixture()
	reply := f.handle(t, "delete nope")
	assert.Contains(t, reply, "No posting found")
	_, ok := f.sessions.Get(operatorID)
	assert.False(t, ok)
}

func TestDeleteConfirmIsIdempotent(t *testing.T) {
	f := newFixture()
	f.storage.jobs["gone-soon"] = &models.JobRecord{Slug: "gone-soon", Title: "Gone"}

	f.handle(t, "delete gone-soon")
	// the record vanishes out from under the session (e.g. web admin)
	delete(f.storage.jobs, "gone-soon")

	reply := f.handle(t, "yes")
	assert.Contains(t, reply, "Deleted")
	_, ok := f.sessions.Get(operatorID)
	assert.False(t, ok, "confirming against a missing slug still clears the session")
}

// ---------------- EDIT ----------------

func TestEditMergesPartialFields(t *testing.T) {
	f := newFixture()
	f.storage.jobs["backend-dev-acme"] = &models.JobRecord{
		Slug: "backend-dev-acme", Title: "Backend Dev", Company: "Acme",
		Location: "Pune", Salary: "6 LPA", Views: 12,
	}

	reply := f.handle(t, "edit backend-dev-acme")
	assert.Contains(t, reply, "Editing")

	// edit has no title gate: a salary-only draft commits fine
	f.extractor.draft = &models.JobDraft{Salary: "8 LPA"}
	reply = f.handle(t, "bump the salary to 8 LPA")
	assert.Contains(t, reply, "Updated")

	job := f.storage.jobs["backend-dev-acme"]
	assert.Equal(t, "8 LPA", job.Salary)
	assert.Equal(t, "Backend Dev", job.Title, "absent fields stay untouched")
	assert.Equal(t, "Pune", job.Location)
	assert.Equal(t, "backend-dev-acme", job.Slug, "slug is immutable")
	assert.Equal(t, 12, job.Views)

	_, ok := f.sessions.Get(operatorID)
	assert.False(t, ok, "edit commits immediately, no second confirmation")
}

func TestEditExtractionFailureKeepsSession(t *testing.T) {
	f := newFixture()
	f.storage.jobs["x"] = &models.JobRecord{Slug: "x", Title: "X"}

	f.handle(t, "edit x")
	f.extractor.err = errors.New("service down")

	reply := f.handle(t, "garbled update")
	assert.Contains(t, reply, "❌")

	s, ok := f.sessions.Get(operatorID)
	require.True(t, ok, "failed extraction leaves the edit session installed")
	_, isEdit := s.(session.Edit)
	assert.True(t, isEdit)

	// retry succeeds
	f.extractor.err = nil
	f.extractor.draft = &models.JobDraft{Title: "X2"}
	reply = f.handle(t, "title is X2")
	assert.Contains(t, reply, "Updated")
	assert.Equal(t, "X2", f.storage.jobs["x"].Title)
}

// ---------------- OTHER COMMANDS ----------------

func TestFeatureTogglesWithoutSession(t *testing.T) {
	f := newFixture()
	f.storage.jobs["x"] = &models.JobRecord{Slug: "x", Title: "X"}

	reply := f.handle(t, "feature x")
	assert.Contains(t, reply, "now featured")
	assert.True(t, f.storage.jobs["x"].Featured)

	reply = f.handle(t, "feature x")
	assert.Contains(t, reply, "no longer featured")
	assert.False(t, f.storage.jobs["x"].Featured)

	_, ok := f.sessions.Get(operatorID)
	assert.False(t, ok)
}

func TestListAndStatsPassThroughPendingSession(t *testing.T) {
	f := newFixture()
	f.extractor.draft = &models.JobDraft{Title: "SRE"}
	f.handle(t, "create SRE role")

	assert.Equal(t, "No postings yet.", f.handle(t, "list"))
	assert.Contains(t, f.handle(t, "stats"), "Postings: 0")

	// informational commands must not disturb the pending session
	_, ok := f.sessions.Get(operatorID)
	assert.True(t, ok)
}

func TestIdleFreeTextIgnored(t *testing.T) {
	f := newFixture()
	assert.Empty(t, f.handle(t, "hello there"))
	assert.Empty(t, f.handle(t, "yes"))
}

func TestDistinctOperatorsHaveIndependentSessions(t *testing.T) {
	f := newFixture()
	f.extractor.draft = &models.JobDraft{Title: "SRE"}
	f.engine.HandleMessage(context.Background(), 100, "create SRE role")

	// operator 200 replying yes has no session, nothing happens
	assert.Empty(t, f.engine.HandleMessage(context.Background(), 200, "yes"))
	assert.Empty(t, f.storage.jobs)

	_, ok := f.sessions.Get(100)
	assert.True(t, ok)
}
