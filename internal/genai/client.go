package genai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"quizdeck-service/internal/domain"
)

// Client talks to a Gemini-style generative-text endpoint: a single POST
// with the prompt, free-form text back. The endpoint URL carries the API
// key, so it is treated as a secret.
type Client struct {
	url        string
	httpClient *http.Client
}

func NewClient(url string) *Client {
	return &Client{
		url:        url,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

type generateRequest struct {
	Contents []content `json:"contents"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

// GenerateText sends the prompt and returns the first candidate's text.
func (c *Client) GenerateText(ctx context.Context, prompt string) (string, error) {
	payload, err := json.Marshal(generateRequest{
		Contents: []content{{Parts: []part{{Text: prompt}}}},
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("generate text: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("generate text: unexpected status %s", resp.Status)
	}

	var decoded generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(decoded.Candidates) == 0 || len(decoded.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("generate text: empty response")
	}
	return decoded.Candidates[0].Content.Parts[0].Text, nil
}

// BuildPrompt asks for a predictable numbered layout so the best-effort
// parser has something to hold on to.
func BuildPrompt(topic, difficulty string, count int, qtype domain.QuestionType) string {
	if qtype == domain.TrueFalse {
		return fmt.Sprintf(
			"Write %d %s true-or-false questions about %s. "+
				"Number each question like \"1.\" and finish each with a line \"Answer: True\" or \"Answer: False\". "+
				"No explanations.",
			count, difficulty, topic)
	}
	return fmt.Sprintf(
		"Write %d %s multiple-choice questions about %s with four options each. "+
			"Number each question like \"1.\", label the options \"A)\" through \"D)\", "+
			"and finish each with a line \"Answer: <letter>\". No explanations.",
		count, difficulty, topic)
}
