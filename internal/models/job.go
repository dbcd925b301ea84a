package models

import (
	"time"
)

type ScheduledStatus string

const (
	ScheduledPending   ScheduledStatus = "pending"
	ScheduledProcessed ScheduledStatus = "processed"
	ScheduledFailed    ScheduledStatus = "failed"
)

// JobRecord is the canonical structured posting. Slug is assigned once at
// creation and never changes; it is the only stable external reference.
type JobRecord struct {
	ID          string    `json:"id"`
	Slug        string    `json:"slug"`
	Title       string    `json:"title"`
	Company     string    `json:"company"`
	Location    string    `json:"location"`
	Salary      string    `json:"salary"`
	Eligibility string    `json:"eligibility"`
	Category    string    `json:"category"`
	ApplyURL    string    `json:"apply_url"`
	Description string    `json:"description"`
	LastDate    string    `json:"last_date"`
	Featured    bool      `json:"featured"`
	Views       int       `json:"views"`
	Clicks      int       `json:"clicks"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// JobDraft holds the fields the extraction service produced. Empty fields
// mean "not mentioned" and are skipped when merging into an existing record.
type JobDraft struct {
	Title       string `json:"title"`
	Company     string `json:"company"`
	Location    string `json:"location"`
	Salary      string `json:"salary"`
	Eligibility string `json:"eligibility"`
	Category    string `json:"category"`
	ApplyURL    string `json:"apply_url"`
	Description string `json:"description"`
	LastDate    string `json:"last_date"`
}

// ScheduledPost is a deferred single-URL publication intent created by the
// batch path and drained by the schedule worker.
type ScheduledPost struct {
	ID           string          `json:"id"`
	BatchID      string          `json:"batch_id"`
	URL          string          `json:"url"`
	Status       ScheduledStatus `json:"status"`
	ScheduledFor time.Time       `json:"scheduled_for"`
	CreatedAt    time.Time       `json:"created_at"`
}

// Stats is the aggregate report behind the stats command.
type Stats struct {
	TotalJobs      int `json:"total_jobs"`
	FeaturedJobs   int `json:"featured_jobs"`
	TotalViews     int `json:"total_views"`
	TotalClicks    int `json:"total_clicks"`
	PendingPosts   int `json:"pending_posts"`
	ProcessedPosts int `json:"processed_posts"`
	FailedPosts    int `json:"failed_posts"`
}
