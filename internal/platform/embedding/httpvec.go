package embedding

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

const vectorizeTimeout = 15 * time.Second

// HTTPVectorizer calls an OpenAI-compatible /embeddings endpoint.
type HTTPVectorizer struct {
	baseURL    string
	apiKey     string
	model      string
	dimensions int
	httpClient *http.Client
}

func NewHTTPVectorizer(baseURL, apiKey, model string, dimensions int) *HTTPVectorizer {
	return &HTTPVectorizer{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		apiKey:     apiKey,
		model:      model,
		dimensions: dimensions,
		httpClient: &http.Client{},
	}
}

func (v *HTTPVectorizer) Dimensions() int { return v.dimensions }

type embedRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

type embedResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

func (v *HTTPVectorizer) Vectorize(ctx context.Context, text string) ([]float32, error) {
	ctx, cancel := context.WithTimeout(ctx, vectorizeTimeout)
	defer cancel()

	payload, err := json.Marshal(embedRequest{Model: v.model, Input: text})
	if err != nil {
		return nil, fmt.Errorf("marshal embedding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.baseURL+"/embeddings", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build embedding request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if v.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+v.apiKey)
	}

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("embedding endpoint returned status %d", resp.StatusCode)
	}

	var parsed embedResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("decode embedding response: %w", err)
	}
	if len(parsed.Data) == 0 {
		return nil, fmt.Errorf("embedding response has no data")
	}
	vec := parsed.Data[0].Embedding
	if v.dimensions > 0 && len(vec) != v.dimensions {
		return nil, fmt.Errorf("embedding has %d dimensions, want %d", len(vec), v.dimensions)
	}
	return vec, nil
}
