package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultMistralURL = "https://api.mistral.ai/v1/chat/completions"

type MistralClient struct {
	apiKey      string
	modelName   string
	visionModel string
	url         string
	httpClient  *http.Client
}

func NewMistralClient(apiKey, modelName, visionModel, baseURL string) *MistralClient {
	if baseURL == "" {
		baseURL = defaultMistralURL
	}
	if visionModel == "" {
		visionModel = modelName
	}
	return &MistralClient{
		apiKey:      apiKey,
		modelName:   modelName,
		visionModel: visionModel,
		url:         baseURL,
		httpClient:  &http.Client{Timeout: 60 * time.Second},
	}
}

type mistralMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type mistralPart struct {
	Type     string `json:"type"`
	Text     string `json:"text,omitempty"`
	ImageURL string `json:"image_url,omitempty"`
}

func (c *MistralClient) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	var messages []mistralMessage
	if req.SystemPrompt != "" {
		messages = append(messages, mistralMessage{Role: "system", Content: req.SystemPrompt})
	}
	messages = append(messages, mistralMessage{Role: "user", Content: req.UserPrompt})

	body := map[string]any{
		"model":       c.modelName,
		"messages":    messages,
		"temperature": req.Temperature,
	}
	if req.MaxTokens > 0 {
		body["max_tokens"] = req.MaxTokens
	}
	return c.send(ctx, body)
}

func (c *MistralClient) Analyze(ctx context.Context, images []ImageRef, prompt string) (string, error) {
	if len(images) == 0 {
		return "", ErrNoImages
	}
	parts := []mistralPart{{Type: "text", Text: prompt}}
	for _, img := range images {
		parts = append(parts, mistralPart{Type: "image_url", ImageURL: img.URL})
	}
	body := map[string]any{
		"model":    c.visionModel,
		"messages": []mistralMessage{{Role: "user", Content: parts}},
	}
	return c.send(ctx, body)
}

func (c *MistralClient) send(ctx context.Context, body map[string]any) (string, error) {
	jsonData, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("marshal mistral request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("create mistral request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("send mistral request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("mistral: status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var result struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decode mistral response: %w", err)
	}

	if len(result.Choices) == 0 || strings.TrimSpace(result.Choices[0].Message.Content) == "" {
		return "", ErrEmptyResponse
	}
	return result.Choices[0].Message.Content, nil
}
