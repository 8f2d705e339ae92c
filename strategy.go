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
	"math"

	"github.com/korede-labs/tally/config"
	"github.com/korede-labs/tally/model"
)

// exactAmountEpsilon bounds float noise when deciding two magnitudes are "the
// same amount" for the exact tier.
const exactAmountEpsilon = 1e-9

// matchStrategy is one tier of the engine. Pairwise strategies carry an
// evaluate function returning (confidence, accepted) for a single candidate
// pair; the semantic strategy has no evaluate function because it runs as a
// batch tier over the residual pool.
type matchStrategy struct {
	name      string
	matchType string
	evaluate  func(t *Tally, receipt model.ReceiptTransaction, bank model.BankTransaction) (float64, bool)
}

// strategies resolves the configured strategy order into executable tiers.
// Unknown names were already rejected by config validation.
func (t *Tally) strategies() []matchStrategy {
	resolved := make([]matchStrategy, 0, len(t.config.Matcher.Strategies))
	for _, name := range t.config.Matcher.Strategies {
		switch name {
		case config.StrategyExact:
			resolved = append(resolved, matchStrategy{
				name:      name,
				matchType: model.MatchTypeExact,
				evaluate:  evaluateExact,
			})
		case config.StrategyFuzzy:
			resolved = append(resolved, matchStrategy{
				name:      name,
				matchType: model.MatchTypeFuzzy,
				evaluate:  evaluateFuzzy,
			})
		case config.StrategyBlended:
			// The blended tier keeps the semantic tag: its confidence blends
			// text, amount and date signals rather than reporting a literal
			// field equality.
			resolved = append(resolved, matchStrategy{
				name:      name,
				matchType: model.MatchTypeSemantic,
				evaluate:  evaluateBlended,
			})
		case config.StrategySemantic:
			resolved = append(resolved, matchStrategy{
				name:      name,
				matchType: model.MatchTypeSemantic,
			})
		}
	}
	return resolved
}

// evaluateExact accepts pairs whose magnitudes are equal and whose dates fall
// within the tolerance window. Confidence is always 1.0.
func evaluateExact(t *Tally, receipt model.ReceiptTransaction, bank model.BankTransaction) (float64, bool) {
	if receipt.Amount == 0 {
		return 0, false
	}
	if math.Abs(math.Abs(receipt.Amount)-math.Abs(bank.Amount)) > exactAmountEpsilon {
		return 0, false
	}
	if !DatesWithinTolerance(receipt.TransactionDate.Time, bank.TransactionDate.Time, t.config.Matcher.DateToleranceDays) {
		return 0, false
	}
	return 1.0, true
}

// evaluateFuzzy accepts pairs within the amount and date tolerances whose
// vendor text clears the similarity threshold. Confidence reflects how close
// the amounts are.
func evaluateFuzzy(t *Tally, receipt model.ReceiptTransaction, bank model.BankTransaction) (float64, bool) {
	m := t.config.Matcher
	if !AmountsCompatible(receipt.Amount, bank.Amount, m.AmountTolerancePercent) {
		return 0, false
	}
	if !DatesWithinTolerance(receipt.TransactionDate.Time, bank.TransactionDate.Time, m.DateToleranceDays) {
		return 0, false
	}
	if TokenSetRatio(receipt.VendorName, bank.Description) <= m.VendorSimilarityThreshold {
		return 0, false
	}
	confidence := math.Max(0, 1-math.Abs(receipt.Amount-math.Abs(bank.Amount))/receipt.Amount)
	if confidence <= m.ConfidenceAcceptanceFloor {
		return 0, false
	}
	return confidence, true
}

// evaluateBlended accepts pairs whose blended confidence clears the
// acceptance floor and whose amounts are compatible.
func evaluateBlended(t *Tally, receipt model.ReceiptTransaction, bank model.BankTransaction) (float64, bool) {
	m := t.config.Matcher
	confidence := t.scorePair(receipt, bank)
	if confidence <= m.ConfidenceAcceptanceFloor {
		return 0, false
	}
	if !AmountsCompatible(receipt.Amount, bank.Amount, m.AmountTolerancePercent) {
		return 0, false
	}
	return confidence, true
}
