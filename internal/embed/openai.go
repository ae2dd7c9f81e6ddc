package embed

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

// OpenAIEmbedder calls the OpenAI embeddings API.
type OpenAIEmbedder struct {
	baseURL          string
	apiKey           string
	model            string
	dims             int
	client           *http.Client
	maxResponseBytes int64
}

// NewOpenAI creates an embeddings client. model defaults to
// text-embedding-3-small (1536 dimensions).
func NewOpenAI(baseURL, apiKey, model string, timeout time.Duration) *OpenAIEmbedder {
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	if model == "" {
		model = "text-embedding-3-small"
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &OpenAIEmbedder{
		baseURL:          baseURL,
		apiKey:           apiKey,
		model:            model,
		dims:             1536,
		maxResponseBytes: 8 * 1024 * 1024,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

func (e *OpenAIEmbedder) Dimensions() int { return e.dims }

type embeddingsRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embeddingsResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

type embeddingsErrorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// Embed requests a single embedding.
func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	body, err := json.Marshal(embeddingsRequest{Model: e.model, Input: []string{text}})
	if err != nil {
		return nil, errors.Wrap(err, "marshal embeddings request")
	}

	httpReq, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		fmt.Sprintf("%s/embeddings", e.baseURL),
		bytes.NewReader(body),
	)
	if err != nil {
		return nil, errors.Wrap(err, "create embeddings request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+e.apiKey)

	resp, err := e.client.Do(httpReq)
	if err != nil {
		return nil, errors.Wrap(err, "call embeddings api")
	}
	defer resp.Body.Close()

	limited := io.LimitReader(resp.Body, e.maxResponseBytes+1)
	respBody, err := io.ReadAll(limited)
	if err != nil {
		return nil, errors.Wrap(err, "read embeddings response")
	}
	if int64(len(respBody)) > e.maxResponseBytes {
		return nil, errors.Newf("embeddings response exceeded limit (%d bytes)", e.maxResponseBytes)
	}

	if resp.StatusCode >= 400 {
		var errBody embeddingsErrorResponse
		if err := json.Unmarshal(respBody, &errBody); err != nil {
			return nil, errors.Newf("embeddings api status %d", resp.StatusCode)
		}
		return nil, errors.Newf("embeddings api error: %s (type=%s)",
			errBody.Error.Message, errBody.Error.Type)
	}

	var out embeddingsResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, errors.Wrap(err, "decode embeddings response")
	}
	if len(out.Data) == 0 {
		return nil, errors.New("embeddings response had no data")
	}
	return out.Data[0].Embedding, nil
}
