package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/cockroachdb/errors"

	"go-jobdesk-bot/internal/models"
)

const groqURL = "https://api.groq.com/openai/v1/chat/completions"

type groqClient struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
}

// NewGroqClient creates a Groq chat-completions extraction client.
func NewGroqClient(apiKey string) Extractor {
	return &groqClient{
		apiKey:     apiKey,
		model:      "llama-3.3-70b-versatile",
		baseURL:    groqURL,
		httpClient: &http.Client{},
	}
}

type groqMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type groqRequest struct {
	Model       string        `json:"model"`
	Messages    []groqMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type groqResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// ExtractJob sends the text blob to Groq and parses the JSON it returns.
func (c *groqClient) ExtractJob(ctx context.Context, text string) (*models.JobDraft, error) {
	reqBody := groqRequest{
		Model: c.model,
		Messages: []groqMessage{
			{
				Role:    "system",
				Content: buildSystemPrompt(),
			},
			{
				Role:    "user",
				Content: buildUserPrompt(text),
			},
		},
		Temperature: 0.2, // Low temperature for consistency
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal groq request")
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create http request")
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "http request failed")
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read response body")
	}

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Newf("groq API returned status %d: %s", resp.StatusCode, string(bodyBytes))
	}

	var groqResp groqResponse
	if err := json.Unmarshal(bodyBytes, &groqResp); err != nil {
		return nil, errors.Wrap(err, "failed to decode response")
	}

	if groqResp.Error != nil {
		return nil, errors.Newf("API error: %s", groqResp.Error.Message)
	}

	if len(groqResp.Choices) == 0 {
		return nil, errors.New("no choices returned from groq API")
	}

	// Clean the response from potential markdown wrappers
	rawContent := groqResp.Choices[0].Message.Content
	cleanedJSON := cleanMarkdownJSON(rawContent)

	var draft models.JobDraft
	if err := json.Unmarshal([]byte(cleanedJSON), &draft); err != nil {
		return nil, errors.Wrapf(err, "failed to unmarshal AI response to JobDraft (raw length: %d)", len(cleanedJSON))
	}

	return &draft, nil
}

// cleanMarkdownJSON removes backticks and "json" prefix if the AI model tries to be helpful
func cleanMarkdownJSON(content string) string {
	content = strings.TrimSpace(content)
	if strings.HasPrefix(content, "```json") {
		content = strings.TrimPrefix(content, "```json")
		content = strings.TrimSuffix(content, "```")
	} else if strings.HasPrefix(content, "```") {
		content = strings.TrimPrefix(content, "```")
		content = strings.TrimSuffix(content, "```")
	}
	return strings.TrimSpace(content)
}
