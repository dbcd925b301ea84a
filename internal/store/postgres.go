package store

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"go-jobdesk-bot/internal/models"
)

// ErrNotFound is returned for slug lookups that match nothing.
var ErrNotFound = errors.New("record not found")

type Repository struct {
	db *pgxpool.Pool
}

func ConnectDB(ctx context.Context, connString string) (*Repository, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, errors.Wrap(err, "unable to parse database url")
	}

	config.MaxConns = 10
	config.MinConns = 2
	config.MaxConnLifetime = time.Hour

	// IMPORTANT: Supabase connection pooler (PgBouncer in Transaction mode)
	// does not support prepared statements easily. We MUST disable the statement cache.
	config.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeExec

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, errors.Wrap(err, "unable to connect to database")
	}

	// Ping to ensure connection
	if err := pool.Ping(ctx); err != nil {
		return nil, errors.Wrap(err, "database unreachable")
	}

	return &Repository{db: pool}, nil
}

func (r *Repository) Close() {
	if r.db != nil {
		r.db.Close()
	}
}

// Migrate creates the tables if they are missing. Idempotent.
func (r *Repository) Migrate(ctx context.Context) error {
	ddl := `
	CREATE TABLE IF NOT EXISTS jobs (
		id          UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		slug        TEXT NOT NULL UNIQUE,
		title       TEXT NOT NULL,
		company     TEXT NOT NULL DEFAULT '',
		location    TEXT NOT NULL DEFAULT '',
		salary      TEXT NOT NULL DEFAULT '',
		eligibility TEXT NOT NULL DEFAULT '',
		category    TEXT NOT NULL DEFAULT '',
		apply_url   TEXT NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT '',
		last_date   TEXT NOT NULL DEFAULT '',
		featured    BOOLEAN NOT NULL DEFAULT FALSE,
		views       INTEGER NOT NULL DEFAULT 0,
		clicks      INTEGER NOT NULL DEFAULT 0,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
	);
	CREATE TABLE IF NOT EXISTS scheduled_posts (
		id            UUID PRIMARY KEY,
		batch_id      UUID NOT NULL,
		url           TEXT NOT NULL,
		status        TEXT NOT NULL DEFAULT 'pending',
		scheduled_for TIMESTAMPTZ NOT NULL,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
	);
	CREATE INDEX IF NOT EXISTS idx_scheduled_posts_due
		ON scheduled_posts (status, scheduled_for);`

	if _, err := r.db.Exec(ctx, ddl); err != nil {
		return errors.Wrap(err, "failed to run migrations")
	}
	return nil
}

// ---------------- JOB OPERATIONS ----------------

const jobColumns = `id, slug, title, company, location, salary, eligibility, category,
	apply_url, description, last_date, featured, views, clicks, created_at, updated_at`

func scanJob(row pgx.Row, job *models.JobRecord) error {
	return row.Scan(&job.ID, &job.Slug, &job.Title, &job.Company, &job.Location,
		&job.Salary, &job.Eligibility, &job.Category, &job.ApplyURL, &job.Description,
		&job.LastDate, &job.Featured, &job.Views, &job.Clicks, &job.CreatedAt, &job.UpdatedAt)
}

// CreateJob inserts a new record. The slug must already be assigned and unique.
func (r *Repository) CreateJob(ctx context.Context, job *models.JobRecord) (*models.JobRecord, error) {
	query := `
		INSERT INTO jobs (slug, title, company, location, salary, eligibility, category, apply_url, description, last_date, featured)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING ` + jobColumns

	row := r.db.QueryRow(ctx, query, job.Slug, job.Title, job.Company, job.Location,
		job.Salary, job.Eligibility, job.Category, job.ApplyURL, job.Description,
		job.LastDate, job.Featured)

	if err := scanJob(row, job); err != nil {
		return nil, errors.Wrap(err, "failed to create job")
	}
	return job, nil
}

func (r *Repository) GetJobBySlug(ctx context.Context, slug string) (*models.JobRecord, error) {
	var job models.JobRecord
	query := `SELECT ` + jobColumns + ` FROM jobs WHERE slug = $1`
	if err := scanJob(r.db.QueryRow(ctx, query, slug), &job); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "failed to get job by slug")
	}
	return &job, nil
}

func (r *Repository) SlugExists(ctx context.Context, slug string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM jobs WHERE slug = $1)", slug).Scan(&exists)
	if err != nil {
		return false, errors.Wrap(err, "failed to check slug")
	}
	return exists, nil
}

// UpdateJob overwrites the mutable fields of the record with this slug.
// The slug itself never changes.
func (r *Repository) UpdateJob(ctx context.Context, job *models.JobRecord) error {
	query := `
		UPDATE jobs
		SET title = $2, company = $3, location = $4, salary = $5, eligibility = $6,
			category = $7, apply_url = $8, description = $9, last_date = $10, updated_at = now()
		WHERE slug = $1`

	tag, err := r.db.Exec(ctx, query, job.Slug, job.Title, job.Company, job.Location,
		job.Salary, job.Eligibility, job.Category, job.ApplyURL, job.Description, job.LastDate)
	if err != nil {
		return errors.Wrap(err, "failed to update job")
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteJob removes the record. Deleting an absent slug is not an error.
func (r *Repository) DeleteJob(ctx context.Context, slug string) error {
	if _, err := r.db.Exec(ctx, "DELETE FROM jobs WHERE slug = $1", slug); err != nil {
		return errors.Wrap(err, "failed to delete job")
	}
	return nil
}

// ToggleFeatured flips the featured flag and returns the new state.
func (r *Repository) ToggleFeatured(ctx context.Context, slug string) (bool, error) {
	var featured bool
	err := r.db.QueryRow(ctx,
		"UPDATE jobs SET featured = NOT featured, updated_at = now() WHERE slug = $1 RETURNING featured",
		slug).Scan(&featured)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, ErrNotFound
		}
		return false, errors.Wrap(err, "failed to toggle featured")
	}
	return featured, nil
}

// ListJobs returns records newest first. limit <= 0 means no limit.
func (r *Repository) ListJobs(ctx context.Context, limit int) ([]models.JobRecord, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs ORDER BY created_at DESC`
	var (
		rows pgx.Rows
		err  error
	)
	if limit > 0 {
		rows, err = r.db.Query(ctx, query+" LIMIT $1", limit)
	} else {
		rows, err = r.db.Query(ctx, query)
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to list jobs")
	}
	defer rows.Close()

	var jobs []models.JobRecord
	for rows.Next() {
		var job models.JobRecord
		if err := scanJob(rows, &job); err != nil {
			return nil, errors.Wrap(err, "failed to scan job row")
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

func (r *Repository) Stats(ctx context.Context) (*models.Stats, error) {
	var stats models.Stats
	query := `
		SELECT
			(SELECT count(*) FROM jobs),
			(SELECT count(*) FROM jobs WHERE featured),
			(SELECT coalesce(sum(views), 0) FROM jobs),
			(SELECT coalesce(sum(clicks), 0) FROM jobs),
			(SELECT count(*) FROM scheduled_posts WHERE status = 'pending'),
			(SELECT count(*) FROM scheduled_posts WHERE status = 'processed'),
			(SELECT count(*) FROM scheduled_posts WHERE status = 'failed')`

	err := r.db.QueryRow(ctx, query).Scan(&stats.TotalJobs, &stats.FeaturedJobs,
		&stats.TotalViews, &stats.TotalClicks, &stats.PendingPosts,
		&stats.ProcessedPosts, &stats.FailedPosts)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load stats")
	}
	return &stats, nil
}

// ---------------- SCHEDULED POST OPERATIONS ----------------

func (r *Repository) CreateScheduledPost(ctx context.Context, post *models.ScheduledPost) error {
	query := `
		INSERT INTO scheduled_posts (id, batch_id, url, status, scheduled_for)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at`

	err := r.db.QueryRow(ctx, query, post.ID, post.BatchID, post.URL, post.Status, post.ScheduledFor).
		Scan(&post.CreatedAt)
	if err != nil {
		return errors.Wrap(err, "failed to create scheduled post")
	}
	return nil
}

// DuePendingPosts returns pending posts whose timestamp has passed, oldest first.
func (r *Repository) DuePendingPosts(ctx context.Context, now time.Time, limit int) ([]models.ScheduledPost, error) {
	query := `
		SELECT id, batch_id, url, status, scheduled_for, created_at
		FROM scheduled_posts
		WHERE status = 'pending' AND scheduled_for <= $1
		ORDER BY scheduled_for ASC
		LIMIT $2`

	rows, err := r.db.Query(ctx, query, now, limit)
	if err != nil {
		return nil, errors.Wrap(err, "failed to fetch due posts")
	}
	defer rows.Close()

	var posts []models.ScheduledPost
	for rows.Next() {
		var p models.ScheduledPost
		if err := rows.Scan(&p.ID, &p.BatchID, &p.URL, &p.Status, &p.ScheduledFor, &p.CreatedAt); err != nil {
			return nil, errors.Wrap(err, "failed to scan scheduled post")
		}
		posts = append(posts, p)
	}
	return posts, rows.Err()
}

func (r *Repository) UpdateScheduledStatus(ctx context.Context, id string, status models.ScheduledStatus) error {
	if _, err := r.db.Exec(ctx, "UPDATE scheduled_posts SET status = $1 WHERE id = $2", status, id); err != nil {
		return errors.Wrap(err, "failed to update scheduled post status")
	}
	return nil
}
