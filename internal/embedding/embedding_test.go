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

package embedding

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"

	"github.com/korede-labs/tally/config"
)

const testEndpoint = "https://embeddings.test/v1/embed"

func newTestClient(batchSize int) *Client {
	return NewClient(config.EmbeddingConfig{
		Endpoint:       testEndpoint,
		APIKey:         "test-key",
		Model:          "usf1-embed",
		BatchSize:      batchSize,
		MaxTextLength:  500,
		TimeoutSeconds: 5,
	})
}

// echoResponder returns one fixed-size vector per requested text, so batch
// arithmetic can be asserted without caring about vector contents.
func echoResponder(captured *[][]string) httpmock.Responder {
	return func(req *http.Request) (*http.Response, error) {
		var body embedRequest
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			return httpmock.NewStringResponse(http.StatusBadRequest, err.Error()), nil
		}
		if captured != nil {
			*captured = append(*captured, body.Texts)
		}
		vectors := make([][]float64, len(body.Texts))
		for i := range vectors {
			vectors[i] = []float64{1, 0, 0}
		}
		return httpmock.NewJsonResponse(http.StatusOK, embedResponse{Embeddings: vectors})
	}
}

func TestEmbedBatching(t *testing.T) {
	client := newTestClient(2)
	httpmock.ActivateNonDefault(client.httpClient)
	defer httpmock.DeactivateAndReset()

	var captured [][]string
	httpmock.RegisterResponder(http.MethodPost, testEndpoint, echoResponder(&captured))

	texts := []string{"alpha one", "beta two", "gamma three", "delta four", "epsilon five"}
	vectors, err := client.Embed(context.Background(), texts)
	assert.NoError(t, err)
	assert.Len(t, vectors, len(texts))

	// Five texts at batch size two means three calls: 2 + 2 + 1.
	assert.Equal(t, 3, httpmock.GetTotalCallCount())
	assert.Len(t, captured, 3)
	assert.Len(t, captured[0], 2)
	assert.Len(t, captured[2], 1)
}

func TestEmbedSendsNormalizedTexts(t *testing.T) {
	client := newTestClient(16)
	httpmock.ActivateNonDefault(client.httpClient)
	defer httpmock.DeactivateAndReset()

	var captured [][]string
	httpmock.RegisterResponder(http.MethodPost, testEndpoint, echoResponder(&captured))

	_, err := client.Embed(context.Background(), []string{"WAL-MART #1234,   Store!"})
	assert.NoError(t, err)
	assert.Equal(t, [][]string{{"wal-mart 1234 store"}}, captured)
}

func TestEmbedRetriesTransientFailures(t *testing.T) {
	client := newTestClient(16)
	httpmock.ActivateNonDefault(client.httpClient)
	defer httpmock.DeactivateAndReset()

	calls := 0
	httpmock.RegisterResponder(http.MethodPost, testEndpoint,
		func(req *http.Request) (*http.Response, error) {
			calls++
			if calls == 1 {
				return httpmock.NewStringResponse(http.StatusInternalServerError, "overloaded"), nil
			}
			return httpmock.NewJsonResponse(http.StatusOK, embedResponse{Embeddings: [][]float64{{1, 0}}})
		})

	vectors, err := client.Embed(context.Background(), []string{"coffee"})
	assert.NoError(t, err)
	assert.Len(t, vectors, 1)
	assert.Equal(t, 2, calls)
}

func TestEmbedClientErrorIsPermanent(t *testing.T) {
	client := newTestClient(16)
	httpmock.ActivateNonDefault(client.httpClient)
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder(http.MethodPost, testEndpoint,
		httpmock.NewStringResponder(http.StatusUnauthorized, "bad key"))

	_, err := client.Embed(context.Background(), []string{"coffee"})
	assert.Error(t, err)
	// No retries on a client-side rejection.
	assert.Equal(t, 1, httpmock.GetTotalCallCount())
}

func TestEmbedVectorCountMismatch(t *testing.T) {
	client := newTestClient(16)
	httpmock.ActivateNonDefault(client.httpClient)
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder(http.MethodPost, testEndpoint,
		httpmock.NewJsonResponderOrPanic(http.StatusOK, embedResponse{Embeddings: [][]float64{}}))

	_, err := client.Embed(context.Background(), []string{"coffee", "bagel"})
	assert.Error(t, err)
	assert.Equal(t, 1, httpmock.GetTotalCallCount())
}

func TestEmbedEmptyInput(t *testing.T) {
	client := newTestClient(16)
	vectors, err := client.Embed(context.Background(), nil)
	assert.NoError(t, err)
	assert.Nil(t, vectors)
}

func TestNormalizeText(t *testing.T) {
	assert.Equal(t, "wal-mart 1234 store", normalizeText("WAL-MART #1234,   Store!", 500))
	assert.Equal(t, "wal", normalizeText("WALMART", 3))
	assert.Equal(t, "", normalizeText("!!!", 500))
}

func TestCosine(t *testing.T) {
	assert.InDelta(t, 1.0, Cosine([]float64{1, 0}, []float64{2, 0}), 1e-9)
	assert.InDelta(t, 0.0, Cosine([]float64{1, 0}, []float64{0, 1}), 1e-9)
	assert.InDelta(t, -1.0, Cosine([]float64{1, 0}, []float64{-1, 0}), 1e-9)

	// Degenerate inputs resolve to zero rather than NaN.
	assert.Zero(t, Cosine([]float64{0, 0}, []float64{1, 0}))
	assert.Zero(t, Cosine([]float64{1, 0}, []float64{1, 0, 0}))
	assert.Zero(t, Cosine(nil, nil))
}
