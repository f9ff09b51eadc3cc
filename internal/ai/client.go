// Package ai generates short-form video scripts through an OpenAI-compatible
// chat-completions endpoint.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"jubily/internal/pkg/errors"
)

const defaultBaseURL = "https://api.openai.com/v1"

const systemPrompt = "You are a professional viral short-form content script writer " +
	"for African entrepreneurs and tech founders."

type Client struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
}

type Option func(*Client)

func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.client.Timeout = d }
}

func New(apiKey, model string, opts ...Option) *Client {
	c := &Client{
		baseURL: defaultBaseURL,
		apiKey:  apiKey,
		model:   model,
		client:  &http.Client{Timeout: 60 * time.Second},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Generate returns script content for the topic. Empty generator output is an
// error: a script with nothing to narrate cannot be rendered.
func (c *Client) Generate(ctx context.Context, topicTitle string) (string, error) {
	if c.apiKey == "" {
		return "", errors.New(errors.CodeValidation, "missing AI api key")
	}

	body, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: fmt.Sprintf(
				"Write a 60 second viral short video script about: %s. "+
					"Hook viewers in first 3 seconds. End with strong call to action.", topicTitle)},
		},
		Temperature: 0.7,
		MaxTokens:   300,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	res, err := c.client.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "ai.generate", "chat completion request failed")
	}
	defer res.Body.Close()

	var parsed chatResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return "", errors.Wrap(err, "ai.generate", "malformed chat completion response")
	}

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		msg := fmt.Sprintf("chat completion http %d", res.StatusCode)
		if parsed.Error != nil && parsed.Error.Message != "" {
			msg = parsed.Error.Message
		}
		return "", errors.New(errors.CodeUnavailable, msg)
	}

	if len(parsed.Choices) == 0 || strings.TrimSpace(parsed.Choices[0].Message.Content) == "" {
		return "", errors.New(errors.CodeInternal, "generator returned empty content")
	}

	return parsed.Choices[0].Message.Content, nil
}
