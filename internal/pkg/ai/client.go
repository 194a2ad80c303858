package ai

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/PawTalesApp/PawTales/internal/pkg/env"
)

const defaultGenerationAPIBaseURL = "https://api.openai.com/v1"

// Generator is the costed generative-AI collaborator. Each call costs the
// operator real money whether or not the caller settles a credit afterwards,
// so workflows must gate on affordability before invoking it.
type Generator interface {
	GenerateText(ctx context.Context, prompt string) (string, error)
	GenerateImage(ctx context.Context, prompt string) ([]byte, error)
}

// Client talks to an OpenAI-compatible generation endpoint.
type Client struct {
	APIKey     string
	APIBaseURL string
	TextModel  string
	ImageModel string

	HTTPClient *http.Client
}

func NewClientFromEnv() *Client {
	return &Client{
		APIKey:     strings.TrimSpace(env.GetEnv("AI_API_KEY", "")),
		APIBaseURL: strings.TrimRight(env.GetEnv("AI_API_BASE_URL", defaultGenerationAPIBaseURL), "/"),
		TextModel:  strings.TrimSpace(env.GetEnv("AI_TEXT_MODEL", "gpt-4o-mini")),
		ImageModel: strings.TrimSpace(env.GetEnv("AI_IMAGE_MODEL", "gpt-image-1")),
		HTTPClient: &http.Client{
			Timeout: 120 * time.Second,
		},
	}
}

// GenerateText runs one chat completion and returns the first choice.
func (c *Client) GenerateText(ctx context.Context, prompt string) (string, error) {
	if strings.TrimSpace(c.APIKey) == "" {
		return "", errors.New("AI_API_KEY is not configured")
	}
	if strings.TrimSpace(prompt) == "" {
		return "", errors.New("prompt is required")
	}

	payload := map[string]interface{}{
		"model": c.TextModel,
		"messages": []map[string]string{
			{"role": "user", "content": prompt},
		},
	}

	body, err := c.postJSON(ctx, "/chat/completions", payload)
	if err != nil {
		return "", err
	}

	var out struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return "", err
	}
	if len(out.Choices) == 0 || strings.TrimSpace(out.Choices[0].Message.Content) == "" {
		return "", errors.New("generation response contained no text")
	}
	return out.Choices[0].Message.Content, nil
}

// GenerateImage renders one illustration and returns the decoded image bytes.
func (c *Client) GenerateImage(ctx context.Context, prompt string) ([]byte, error) {
	if strings.TrimSpace(c.APIKey) == "" {
		return nil, errors.New("AI_API_KEY is not configured")
	}
	if strings.TrimSpace(prompt) == "" {
		return nil, errors.New("prompt is required")
	}

	payload := map[string]interface{}{
		"model":           c.ImageModel,
		"prompt":          prompt,
		"n":               1,
		"size":            "1024x1024",
		"response_format": "b64_json",
	}

	body, err := c.postJSON(ctx, "/images/generations", payload)
	if err != nil {
		return nil, err
	}

	var out struct {
		Data []struct {
			B64JSON string `json:"b64_json"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, err
	}
	if len(out.Data) == 0 || strings.TrimSpace(out.Data[0].B64JSON) == "" {
		return nil, errors.New("generation response contained no image")
	}
	return base64.StdEncoding.DecodeString(out.Data[0].B64JSON)
}

func (c *Client) postJSON(ctx context.Context, path string, payload interface{}) ([]byte, error) {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.APIBaseURL+path, strings.NewReader(string(encoded)))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.APIKey)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("generation request %s failed: status=%d body=%s", path, resp.StatusCode, string(body))
	}
	return body, nil
}
