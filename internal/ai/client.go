package ai

import (
	"context"
	"fmt"

	"go-jobdesk-bot/internal/models"
)

// Extractor is the interface for structured-extraction providers.
type Extractor interface {
	// ExtractJob takes a free-text blob (operator message, optionally
	// prefixed with scraped page content) and returns the structured
	// fields it could identify. One attempt per call, no retries; the
	// caller decides whether to ask the operator to try again.
	ExtractJob(ctx context.Context, text string) (*models.JobDraft, error)
}

// buildSystemPrompt creates the system instruction for the AI model
func buildSystemPrompt() string {
	return `You are a job posting parser.
I will give you free text describing a job opening, possibly preceded by scraped web page content.

Task:
1. Extract the posting into a JSON object with EXACTLY these keys:
   "title", "company", "location", "salary", "eligibility", "category", "apply_url", "description", "last_date".
2. Every value is a plain string. Use "" for anything the text does not state. Never invent values.
3. "last_date" is the last date to apply, verbatim as written in the text.
4. Return ONLY the raw JSON object. Do NOT wrap it in markdown blocks (no ` + "`" + `json...` + "`" + `). Output just the literal JSON starting with { and ending with }.`
}

// buildUserPrompt combines scraped content and operator text into one blob
func buildUserPrompt(text string) string {
	return fmt.Sprintf("Job posting text:\n%s\n\nPlease output the parsed posting as a JSON object with exactly the required keys.", text)
}
