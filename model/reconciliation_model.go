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
package model

import "time"

// Match types assigned to confirmed pairings.
const (
	MatchTypeExact    = "exact"
	MatchTypeFuzzy    = "fuzzy"
	MatchTypeSemantic = "semantic"
)

// Match is a confirmed pairing of one receipt and one bank record. It is
// created once per successful pairing and never updated; ownership transfers
// to the caller, which may persist it. Both records are carried in full so a
// caller needs no further lookups to act on the match.
type Match struct {
	MatchID    string             `json:"match_id"`
	Receipt    ReceiptTransaction `json:"receipt"`
	Bank       BankTransaction    `json:"bank_transaction"`
	Confidence float64            `json:"confidence"`
	MatchType  string             `json:"match_type"`
}

// Reconciliation holds the metadata of a single reconciliation run.
type Reconciliation struct {
	ReconciliationID      string     `json:"reconciliation_id"`
	Status                string     `json:"status"`
	MatchedTransactions   int        `json:"matched_transactions"`
	UnmatchedTransactions int        `json:"unmatched_transactions"`
	StartedAt             time.Time  `json:"started_at"`
	CompletedAt           *time.Time `json:"completed_at,omitempty"`
}

// ReconciliationOutcome is the aggregate result of one run: every match plus
// the residual unconsumed records on each side. It is created fresh per
// invocation and never cached or merged across runs.
type ReconciliationOutcome struct {
	Reconciliation    Reconciliation       `json:"reconciliation"`
	Matches           []Match              `json:"matches"`
	UnmatchedReceipts []ReceiptTransaction `json:"unmatched_receipts"`
	UnmatchedBank     []BankTransaction    `json:"unmatched_bank"`
}
