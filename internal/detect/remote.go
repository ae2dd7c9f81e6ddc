package detect

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

// RemoteDetector calls an NLP-backed detection service over HTTP. The
// service finds entities the regex mode cannot (names, addresses,
// organizations) and returns per-call provisional tokens.
type RemoteDetector struct {
	baseURL          string
	apiKey           string
	client           *http.Client
	maxResponseBytes int64
}

// NewRemote creates a detector client for the given service endpoint.
func NewRemote(baseURL, apiKey string, timeout time.Duration) *RemoteDetector {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &RemoteDetector{
		baseURL:          baseURL,
		apiKey:           apiKey,
		maxResponseBytes: 4 * 1024 * 1024,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

type detectRequest struct {
	Text string `json:"text"`
}

type detectResponse struct {
	Entities []Entity `json:"entities"`
}

type detectErrorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// Detect posts text to the detection service and decodes the entity list.
// Network and protocol failures are returned to the caller for retry; no
// partial results are returned on error.
func (d *RemoteDetector) Detect(ctx context.Context, text string) ([]Entity, error) {
	body, err := json.Marshal(detectRequest{Text: text})
	if err != nil {
		return nil, errors.Wrap(err, "marshal detect request")
	}

	httpReq, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		fmt.Sprintf("%s/v1/detect", d.baseURL),
		bytes.NewReader(body),
	)
	if err != nil {
		return nil, errors.Wrap(err, "create detect request")
	}

	httpReq.Header.Set("Content-Type", "application/json")
	if d.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+d.apiKey)
	}

	resp, err := d.client.Do(httpReq)
	if err != nil {
		return nil, errors.Wrap(err, "call detection service")
	}
	defer resp.Body.Close()

	limited := io.LimitReader(resp.Body, d.maxResponseBytes+1)
	respBody, err := io.ReadAll(limited)
	if err != nil {
		return nil, errors.Wrap(err, "read detect response")
	}
	if int64(len(respBody)) > d.maxResponseBytes {
		return nil, errors.Newf("detect response exceeded limit (%d bytes)", d.maxResponseBytes)
	}

	if resp.StatusCode >= 400 {
		var errBody detectErrorResponse
		if err := json.Unmarshal(respBody, &errBody); err != nil {
			return nil, errors.Newf("detection service status %d", resp.StatusCode)
		}
		return nil, errors.Newf("detection service error: %s (type=%s)",
			errBody.Error.Message, errBody.Error.Type)
	}

	var out detectResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, errors.Wrap(err, "decode detect response")
	}

	// Required fields only; drop malformed entries rather than failing the
	// whole batch.
	entities := out.Entities[:0]
	for _, e := range out.Entities {
		if e.Type == "" || e.Value == "" {
			continue
		}
		entities = append(entities, e)
	}
	return entities, nil
}
