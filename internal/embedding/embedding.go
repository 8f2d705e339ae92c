/*
Copyright 2025 Tally Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package embedding provides the HTTP client for the external embedding
// provider used by the semantic matching tier.
package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/pkg/errors"

	"github.com/korede-labs/tally/config"
)

// maxRetries bounds how many times a transient provider failure is retried
// per batch.
const maxRetries = 3

var (
	nonTextPattern    = regexp.MustCompile(`[^a-z0-9\s.\-]+`)
	whitespacePattern = regexp.MustCompile(`\s+`)
)

// Client talks to the embedding provider over HTTP. Texts are normalized and
// sent in small batches sized for interactive latency.
type Client struct {
	endpoint      string
	apiKey        string
	model         string
	batchSize     int
	maxTextLength int
	httpClient    *http.Client
}

type embedRequest struct {
	Model string   `json:"model"`
	Texts []string `json:"texts"`
}

type embedResponse struct {
	Embeddings [][]float64 `json:"embeddings"`
}

// NewClient builds a Client from embedding configuration.
//
// Parameters:
// - cnf: The embedding section of the application configuration.
//
// Returns:
// - *Client: A client ready to embed text batches.
func NewClient(cnf config.EmbeddingConfig) *Client {
	return &Client{
		endpoint:      cnf.Endpoint,
		apiKey:        cnf.APIKey,
		model:         cnf.Model,
		batchSize:     cnf.BatchSize,
		maxTextLength: cnf.MaxTextLength,
		httpClient:    &http.Client{Timeout: time.Duration(cnf.TimeoutSeconds) * time.Second},
	}
}

// Embed normalizes the given texts and returns one vector per text, calling
// the provider in batches. Any batch failure fails the whole call: downstream
// cosine computation requires the full vector set.
//
// Parameters:
// - ctx: The context controlling the provider calls.
// - texts: The raw transaction texts to embed.
//
// Returns:
// - [][]float64: One embedding vector per input text, in input order.
// - error: If any batch cannot be embedded.
func (c *Client) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	normalized := make([]string, len(texts))
	for i, text := range texts {
		normalized[i] = normalizeText(text, c.maxTextLength)
	}

	vectors := make([][]float64, 0, len(normalized))
	for start := 0; start < len(normalized); start += c.batchSize {
		end := start + c.batchSize
		if end > len(normalized) {
			end = len(normalized)
		}
		batch, err := c.embedBatch(ctx, normalized[start:end])
		if err != nil {
			return nil, err
		}
		vectors = append(vectors, batch...)
	}

	return vectors, nil
}

// embedBatch sends one batch to the provider, retrying transient failures
// with exponential backoff. Client-side errors and malformed responses are
// permanent.
func (c *Client) embedBatch(ctx context.Context, batch []string) ([][]float64, error) {
	payload, err := json.Marshal(embedRequest{Model: c.model, Texts: batch})
	if err != nil {
		return nil, errors.Wrap(err, "encoding embedding request")
	}

	var vectors [][]float64
	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")
		if c.apiKey != "" {
			req.Header.Set("Authorization", "Bearer "+c.apiKey)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode >= http.StatusInternalServerError {
			return fmt.Errorf("embedding provider returned status %d", resp.StatusCode)
		}
		if resp.StatusCode != http.StatusOK {
			return backoff.Permanent(fmt.Errorf("embedding provider rejected request with status %d", resp.StatusCode))
		}

		var decoded embedResponse
		if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
			return backoff.Permanent(errors.Wrap(err, "decoding embedding response"))
		}
		if len(decoded.Embeddings) != len(batch) {
			return backoff.Permanent(fmt.Errorf("embedding provider returned %d vectors for %d texts",
				len(decoded.Embeddings), len(batch)))
		}

		vectors = decoded.Embeddings
		return nil
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), maxRetries), ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		return nil, errors.Wrap(err, "embedding request failed")
	}

	return vectors, nil
}

// normalizeText lowercases, strips punctuation to whitespace, collapses runs
// of whitespace, and truncates to the configured length cap.
func normalizeText(s string, maxLength int) string {
	s = strings.ToLower(s)
	s = nonTextPattern.ReplaceAllString(s, " ")
	s = whitespacePattern.ReplaceAllString(s, " ")
	s = strings.TrimSpace(s)
	if maxLength > 0 {
		runes := []rune(s)
		if len(runes) > maxLength {
			s = string(runes[:maxLength])
		}
	}
	return s
}
