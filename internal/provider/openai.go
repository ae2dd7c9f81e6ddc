package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cockroachdb/errors"
)

// openAIProvider implements Generator for the OpenAI Chat Completions API.
type openAIProvider struct {
	baseURL          string
	apiKey           string
	model            string
	systemPrompt     string
	client           *http.Client
	maxResponseBytes int64
}

// NewOpenAI creates a new OpenAI provider. systemPrompt may be empty.
func NewOpenAI(baseURL, apiKey, model, systemPrompt string, timeout time.Duration) Generator {
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	if model == "" {
		model = "gpt-4o-mini"
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	return &openAIProvider{
		baseURL:          baseURL,
		apiKey:           apiKey,
		model:            model,
		systemPrompt:     systemPrompt,
		maxResponseBytes: 4 * 1024 * 1024,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

type openAIChatRequest struct {
	Model    string              `json:"model"`
	Messages []openAIChatMessage `json:"messages"`
}

type openAIChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIChatResponse struct {
	Choices []struct {
		Message      openAIChatMessage `json:"message"`
		FinishReason string            `json:"finish_reason"`
	} `json:"choices"`
}

type openAIErrorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

func (p *openAIProvider) Complete(ctx context.Context, prompt string) (string, error) {
	oaiReq := openAIChatRequest{Model: p.model}
	if p.systemPrompt != "" {
		oaiReq.Messages = append(oaiReq.Messages, openAIChatMessage{
			Role:    "system",
			Content: p.systemPrompt,
		})
	}
	oaiReq.Messages = append(oaiReq.Messages, openAIChatMessage{
		Role:    "user",
		Content: prompt,
	})

	body, err := json.Marshal(oaiReq)
	if err != nil {
		return "", errors.Wrap(err, "marshal openai request")
	}

	httpReq, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		fmt.Sprintf("%s/chat/completions", p.baseURL),
		bytes.NewReader(body),
	)
	if err != nil {
		return "", errors.Wrap(err, "create openai request")
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return "", errors.Wrap(err, "call openai")
	}
	defer resp.Body.Close()

	limited := io.LimitReader(resp.Body, p.maxResponseBytes+1)
	respBody, err := io.ReadAll(limited)
	if err != nil {
		return "", errors.Wrap(err, "read openai response")
	}
	if int64(len(respBody)) > p.maxResponseBytes {
		return "", errors.Newf("openai response exceeded limit (%d bytes)", p.maxResponseBytes)
	}

	if resp.StatusCode >= 400 {
		var errBody openAIErrorResponse
		if err := json.Unmarshal(respBody, &errBody); err != nil {
			return "", errors.Newf("openai status %d", resp.StatusCode)
		}
		return "", errors.Newf("openai error: %s (type=%s)",
			errBody.Error.Message, errBody.Error.Type)
	}

	var oaiResp openAIChatResponse
	if err := json.Unmarshal(respBody, &oaiResp); err != nil {
		return "", errors.Wrap(err, "decode openai response")
	}
	if len(oaiResp.Choices) == 0 {
		return "", errors.New("openai response had no choices")
	}

	return oaiResp.Choices[0].Message.Content, nil
}
