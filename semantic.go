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

package tally

import (
	"context"
	"fmt"
	"strconv"

	"github.com/pkg/errors"

	"github.com/korede-labs/tally/internal/embedding"
	"github.com/korede-labs/tally/model"
)

// semanticCandidate is a proposed pairing from the vector similarity matcher,
// expressed against the caller's record indices. Confidence is the raw cosine
// similarity.
type semanticCandidate struct {
	receiptIndex int
	bankIndex    int
	confidence   float64
}

// semanticCandidates proposes pairings for records that the exact/fuzzy/
// blended tiers could not resolve (different wording, abbreviations,
// foreign-language descriptors). Both sides are embedded as
// "descriptor amount" texts, the full pairwise cosine matrix is computed, and
// each receipt's best column is kept when it clears the acceptance floor.
// This tier gates on text semantics alone; the orchestrator applies amount
// compatibility and consumption bookkeeping on top.
//
// Parameters:
// - ctx: The context controlling the embedding calls.
// - receipts: The residual receipt records.
// - bank: The residual bank records.
//
// Returns:
// - []semanticCandidate: Best-candidate pairings above the floor, in receipt order.
// - error: If no embedder is configured or the provider call fails.
func (t *Tally) semanticCandidates(ctx context.Context, receipts []model.ReceiptTransaction, bank []model.BankTransaction) ([]semanticCandidate, error) {
	if len(receipts) == 0 || len(bank) == 0 {
		return nil, nil
	}
	if t.embedder == nil {
		return nil, errors.New("no embedding provider configured")
	}

	receiptTexts := make([]string, len(receipts))
	for i, receipt := range receipts {
		receiptTexts[i] = transactionText(receipt.VendorName, receipt.Amount)
	}
	bankTexts := make([]string, len(bank))
	for i, txn := range bank {
		bankTexts[i] = transactionText(txn.Description, txn.Amount)
	}

	receiptVectors, err := t.embedder.Embed(ctx, receiptTexts)
	if err != nil {
		return nil, errors.Wrap(err, "embedding receipt texts")
	}
	bankVectors, err := t.embedder.Embed(ctx, bankTexts)
	if err != nil {
		return nil, errors.Wrap(err, "embedding bank transaction texts")
	}
	if len(receiptVectors) != len(receipts) || len(bankVectors) != len(bank) {
		return nil, errors.Errorf("embedding provider returned %d/%d vectors for %d/%d texts",
			len(receiptVectors), len(bankVectors), len(receipts), len(bank))
	}

	floor := t.config.Matcher.ConfidenceAcceptanceFloor
	var candidates []semanticCandidate
	for i := range receipts {
		bestIndex := -1
		bestSimilarity := 0.0
		for j := range bank {
			// Strict comparison keeps the earliest bank record on ties.
			if similarity := embedding.Cosine(receiptVectors[i], bankVectors[j]); similarity > bestSimilarity {
				bestSimilarity = similarity
				bestIndex = j
			}
		}
		if bestIndex >= 0 && bestSimilarity > floor {
			candidates = append(candidates, semanticCandidate{
				receiptIndex: i,
				bankIndex:    bestIndex,
				confidence:   bestSimilarity,
			})
		}
	}

	return candidates, nil
}

// transactionText builds the embeddable representation of a record:
// descriptor and amount, space-separated.
func transactionText(descriptor string, amount float64) string {
	return fmt.Sprintf("%s %s", descriptor, strconv.FormatFloat(amount, 'f', -1, 64))
}
