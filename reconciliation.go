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
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/wacul/ptr"

	"github.com/korede-labs/tally/config"
	"github.com/korede-labs/tally/model"
)

// Status constants representing the various states a reconciliation run can be in.
const (
	StatusStarted    = "started"     // Indicates the run has started.
	StatusInProgress = "in_progress" // Indicates the run is ongoing.
	StatusCompleted  = "completed"   // Indicates the run finished successfully.
	StatusFailed     = "failed"      // Indicates the run has failed.
)

// runState tracks consumption bookkeeping for one reconciliation run. It is
// created fresh per Reconcile call and owned by that call alone, so nothing
// leaks across runs. Records are tracked positionally: the engine never
// inspects transaction ids for uniqueness (that is an ingestion concern).
type runState struct {
	receipts        []model.ReceiptTransaction
	bank            []model.BankTransaction
	consumedReceipt []bool
	consumedBank    []bool
	matches         []model.Match
}

func newRunState(receipts []model.ReceiptTransaction, bank []model.BankTransaction) *runState {
	return &runState{
		receipts:        receipts,
		bank:            bank,
		consumedReceipt: make([]bool, len(receipts)),
		consumedBank:    make([]bool, len(bank)),
	}
}

// consume records a confirmed pairing and marks both records consumed. Each
// record transitions to consumed exactly once per run.
func (rs *runState) consume(receiptIndex, bankIndex int, confidence float64, matchType string) {
	rs.matches = append(rs.matches, model.Match{
		MatchID:    model.GenerateUUIDWithSuffix("match"),
		Receipt:    rs.receipts[receiptIndex],
		Bank:       rs.bank[bankIndex],
		Confidence: confidence,
		MatchType:  matchType,
	})
	rs.consumedReceipt[receiptIndex] = true
	rs.consumedBank[bankIndex] = true
}

// residue returns the records that remain unconsumed, preserving input order.
func (rs *runState) residue() ([]model.ReceiptTransaction, []model.BankTransaction) {
	unmatchedReceipts := make([]model.ReceiptTransaction, 0, len(rs.receipts))
	for i, receipt := range rs.receipts {
		if !rs.consumedReceipt[i] {
			unmatchedReceipts = append(unmatchedReceipts, receipt)
		}
	}
	unmatchedBank := make([]model.BankTransaction, 0, len(rs.bank))
	for j, txn := range rs.bank {
		if !rs.consumedBank[j] {
			unmatchedBank = append(unmatchedBank, txn)
		}
	}
	return unmatchedReceipts, unmatchedBank
}

// Reconcile runs the tiered matching engine over two record collections and
// partitions them into matches and residual unmatched lists. Strategies run
// in the configured order; within a pairwise tier, receipts are processed in
// input order and each claims its best qualifying bank candidate (greedy, not
// globally optimal, chosen for determinism). The returned outcome is complete
// or the run fails entirely; no partial result is returned on the error path.
//
// Parameters:
// - ctx: The context controlling the run (only the embedding tier does I/O).
// - receipts: The receipt records extracted from documents.
// - bank: The bank statement line items.
//
// Returns:
// - *model.ReconciliationOutcome: Matches plus both unmatched residues.
// - error: If a required tier fails (embedding-provider failure).
func (t *Tally) Reconcile(ctx context.Context, receipts []model.ReceiptTransaction, bank []model.BankTransaction) (*model.ReconciliationOutcome, error) {
	reconciliation := model.Reconciliation{
		ReconciliationID: model.GenerateUUIDWithSuffix("recon"),
		Status:           StatusStarted,
		StartedAt:        time.Now(),
	}
	logrus.Infof("Reconciliation %s started: %d receipts, %d bank transactions",
		reconciliation.ReconciliationID, len(receipts), len(bank))

	reconciliation.Status = StatusInProgress
	state := newRunState(receipts, bank)

	for _, strategy := range t.strategies() {
		if strategy.name == config.StrategySemantic {
			if err := t.runSemanticTier(ctx, state); err != nil {
				if t.config.Matcher.SemanticRequired {
					reconciliation.Status = StatusFailed
					logrus.Errorf("Reconciliation %s failed in semantic tier: %v",
						reconciliation.ReconciliationID, err)
					return nil, errors.Wrap(err, "semantic matching tier failed")
				}
				// The semantic tier is optional: without it the run still
				// completes, just with more residual unmatched records.
				logrus.Warnf("Reconciliation %s skipping semantic tier: %v",
					reconciliation.ReconciliationID, err)
			}
			continue
		}
		t.runPairwiseTier(strategy, state)
	}

	unmatchedReceipts, unmatchedBank := state.residue()

	reconciliation.Status = StatusCompleted
	reconciliation.MatchedTransactions = len(state.matches)
	reconciliation.UnmatchedTransactions = len(unmatchedReceipts) + len(unmatchedBank)
	reconciliation.CompletedAt = ptr.Time(time.Now())

	logrus.Infof("Reconciliation %s completed. Matches: %d, Unmatched receipts: %d, Unmatched bank: %d",
		reconciliation.ReconciliationID, len(state.matches), len(unmatchedReceipts), len(unmatchedBank))

	return &model.ReconciliationOutcome{
		Reconciliation:    reconciliation,
		Matches:           state.matches,
		UnmatchedReceipts: unmatchedReceipts,
		UnmatchedBank:     unmatchedBank,
	}, nil
}

// runPairwiseTier runs one pairwise strategy over the unconsumed pool. For
// each unconsumed receipt, in input order, every unconsumed bank record is
// evaluated; the maximum-confidence qualifying candidate wins, with ties
// going to the earliest bank record.
func (t *Tally) runPairwiseTier(strategy matchStrategy, state *runState) {
	accepted := 0
	for i := range state.receipts {
		if state.consumedReceipt[i] {
			continue
		}
		bestIndex := -1
		bestConfidence := 0.0
		for j := range state.bank {
			if state.consumedBank[j] {
				continue
			}
			confidence, ok := strategy.evaluate(t, state.receipts[i], state.bank[j])
			if !ok {
				continue
			}
			// Strict comparison keeps the earliest bank record on ties.
			if confidence > bestConfidence {
				bestConfidence = confidence
				bestIndex = j
			}
		}
		if bestIndex >= 0 {
			state.consume(i, bestIndex, bestConfidence, strategy.matchType)
			accepted++
		}
	}
	logrus.Debugf("Tier %s accepted %d matches", strategy.name, accepted)
}

// runSemanticTier embeds the residual pool and books the vector matcher's
// candidates. Candidates arrive in receipt order; one whose bank record was
// already claimed by an earlier candidate is skipped (the matcher itself is
// a pure query and does no bookkeeping). Amount compatibility is enforced
// here so the zero-amount exclusion holds across every tier.
func (t *Tally) runSemanticTier(ctx context.Context, state *runState) error {
	residualReceipts, residualBank := state.residue()
	if len(residualReceipts) == 0 || len(residualBank) == 0 {
		return nil
	}

	// Map residual positions back to run positions.
	receiptIndex := make([]int, 0, len(residualReceipts))
	for i := range state.receipts {
		if !state.consumedReceipt[i] {
			receiptIndex = append(receiptIndex, i)
		}
	}
	bankIndex := make([]int, 0, len(residualBank))
	for j := range state.bank {
		if !state.consumedBank[j] {
			bankIndex = append(bankIndex, j)
		}
	}

	candidates, err := t.semanticCandidates(ctx, residualReceipts, residualBank)
	if err != nil {
		return err
	}

	accepted := 0
	for _, candidate := range candidates {
		i := receiptIndex[candidate.receiptIndex]
		j := bankIndex[candidate.bankIndex]
		if state.consumedReceipt[i] || state.consumedBank[j] {
			continue
		}
		if !AmountsCompatible(state.receipts[i].Amount, state.bank[j].Amount, t.config.Matcher.AmountTolerancePercent) {
			continue
		}
		state.consume(i, j, candidate.confidence, model.MatchTypeSemantic)
		accepted++
	}
	logrus.Debugf("Tier semantic accepted %d matches", accepted)

	return nil
}
