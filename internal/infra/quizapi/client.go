// Package quizapi is a minimal client for a public trivia question API.
package quizapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"daily-trivia-service/internal/domain"
)

const requestTimeout = 5 * time.Second

// Client fetches difficulty-tagged questions over HTTP.
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: requestTimeout},
	}
}

type questionDTO struct {
	ID         string   `json:"id"`
	Question   string   `json:"question"`
	Answer     string   `json:"answer"`
	BadAnswers []string `json:"badAnswers"`
	Category   string   `json:"category"`
	Difficulty string   `json:"difficulty"`
}

type quizResponse struct {
	Count   int           `json:"count"`
	Quizzes []questionDTO `json:"quizzes"`
}

func (c *Client) Fetch(ctx context.Context, tier domain.Tier) (domain.GradedQuestion, error) {
	endpoint := fmt.Sprintf("%s/quiz?limit=1&difficulty=%s", c.baseURL, url.QueryEscape(apiDifficulty(tier)))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return domain.GradedQuestion{}, fmt.Errorf("build quiz request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return domain.GradedQuestion{}, fmt.Errorf("fetch %s question: %w", tier, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return domain.GradedQuestion{}, fmt.Errorf("fetch %s question: unexpected status %d", tier, resp.StatusCode)
	}

	var payload quizResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return domain.GradedQuestion{}, fmt.Errorf("decode quiz response: %w", err)
	}
	if len(payload.Quizzes) == 0 {
		return domain.GradedQuestion{}, fmt.Errorf("no %s question available", tier)
	}

	dto := payload.Quizzes[0]
	question := domain.GradedQuestion{
		ID:       dto.ID,
		Tier:     tier,
		Prompt:   dto.Question,
		Answer:   dto.Answer,
		Decoys:   dto.BadAnswers,
		Category: dto.Category,
	}
	if question.ID == "" {
		question.ID = fallbackID(dto.Question)
	}
	return question, nil
}

// apiDifficulty maps the medium tier to the API's "normal" label.
func apiDifficulty(tier domain.Tier) string {
	if tier == domain.TierMedium {
		return "normal"
	}
	return string(tier)
}

func fallbackID(prompt string) string {
	if len(prompt) > 32 {
		return prompt[:32]
	}
	if prompt != "" {
		return prompt
	}
	return fmt.Sprintf("question-%d", time.Now().UnixNano())
}
