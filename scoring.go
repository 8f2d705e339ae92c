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
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/korede-labs/tally/model"
)

// Component weights for the blended confidence score. Vendor and amount
// dominate: the date tolerance is week-scale and therefore low-discriminating.
const (
	dateWeight   = 0.2
	amountWeight = 0.4
	vendorWeight = 0.4

	// vendorContainmentScore is assigned when the receipt vendor (or one of
	// its tokens) appears verbatim inside the bank description.
	vendorContainmentScore = 0.9

	// neutralDateScore substitutes for the date component when either date is
	// unavailable, so a parsing gap does not penalize the pair.
	neutralDateScore = 0.5

	// dateDecayWindowDays is how far past the tolerance window the date score
	// decays linearly before reaching zero.
	dateDecayWindowDays = 30
)

// scorePair computes the blended confidence for a candidate pair:
// 0.2*date + 0.4*amount + 0.4*vendor. A zero-amount receipt short-circuits to
// 0.0, and any panic while scoring one pair resolves to 0.0 for that pair so
// a single malformed record cannot abort the batch.
func (t *Tally) scorePair(receipt model.ReceiptTransaction, bank model.BankTransaction) (score float64) {
	defer func() {
		if r := recover(); r != nil {
			logrus.Warnf("scoring pair %s/%s panicked, resolving to 0: %v",
				receipt.TransactionID, bank.TransactionID, r)
			score = 0
		}
	}()

	if receipt.Amount <= 0 {
		return 0
	}

	amountScore := math.Max(0, 1-math.Abs(receipt.Amount-math.Abs(bank.Amount))/receipt.Amount)
	vendorScore := t.vendorScore(receipt.VendorName, bank.Description)
	dateScore := t.dateScore(receipt.TransactionDate.Time, bank.TransactionDate.Time)

	return dateWeight*dateScore + amountWeight*amountScore + vendorWeight*vendorScore
}

// vendorScore compares a receipt vendor against a bank description. The
// vendor is first passed through the configured alias table to undo known
// extraction noise. Verbatim containment of the vendor, or of any of its
// tokens, in the description earns the fixed containment score; otherwise the
// token-set ratio decides.
func (t *Tally) vendorScore(vendor, description string) float64 {
	vendor = t.remapVendor(vendor)

	v := strings.ToLower(strings.TrimSpace(vendor))
	d := strings.ToLower(description)
	if v != "" && strings.Contains(d, v) {
		return vendorContainmentScore
	}
	for _, token := range strings.Fields(v) {
		if strings.Contains(d, token) {
			return vendorContainmentScore
		}
	}

	return float64(TokenSetRatio(vendor, description)) / 100
}

// remapVendor rewrites vendor tokens through the configured alias table.
// Alias keys are matched case-insensitively.
func (t *Tally) remapVendor(vendor string) string {
	aliases := t.config.Matcher.VendorAliases
	if len(aliases) == 0 {
		return vendor
	}
	fields := strings.Fields(vendor)
	for i, field := range fields {
		if mapped, ok := aliases[strings.ToUpper(field)]; ok {
			fields[i] = mapped
		}
	}
	return strings.Join(fields, " ")
}

// dateScore is 1.0 inside the tolerance window, decays linearly to zero over
// the decay window past it, and is neutral when either date is unavailable.
func (t *Tally) dateScore(d1, d2 time.Time) float64 {
	if d1.IsZero() || d2.IsZero() {
		return neutralDateScore
	}
	days := calendarDaysBetween(d1, d2)
	tolerance := t.config.Matcher.DateToleranceDays
	if days <= tolerance {
		return 1.0
	}
	extra := days - tolerance
	if extra >= dateDecayWindowDays {
		return 0
	}
	return 1 - float64(extra)/dateDecayWindowDays
}
