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
	"sort"
	"strings"
	"time"

	"github.com/texttheater/golang-levenshtein/levenshtein"
)

// minAbsoluteVariance is the floor on the amount allowance, in currency
// units. Without it, tiny-amount transactions would be rejected purely on
// percentage rounding.
const minAbsoluteVariance = 1.0

// AmountsCompatible reports whether a receipt amount and a (possibly signed)
// bank amount are close enough to describe the same purchase. The allowance
// is the larger of the receipt's percentage tolerance and one currency unit.
// A zero receipt amount fails closed: it carries no discriminating signal, so
// such receipts are never matchable.
//
// Parameters:
// - receiptAmount: The positive-magnitude amount from the receipt.
// - bankAmount: The signed amount from the bank record.
// - tolerancePercent: The allowed relative variance, e.g. 0.1 for 10%.
//
// Returns:
// - bool: True if the difference in magnitudes is within the allowance.
func AmountsCompatible(receiptAmount, bankAmount, tolerancePercent float64) bool {
	if receiptAmount == 0 {
		return false
	}
	diff := math.Abs(math.Abs(receiptAmount) - math.Abs(bankAmount))
	allowance := math.Max(math.Abs(receiptAmount)*tolerancePercent, minAbsoluteVariance)
	return diff <= allowance
}

// DatesWithinTolerance reports whether two calendar dates fall within
// toleranceDays of each other, ignoring time of day. The zero time is the
// "date unavailable" sentinel and is never within tolerance.
func DatesWithinTolerance(d1, d2 time.Time, toleranceDays int) bool {
	if d1.IsZero() || d2.IsZero() {
		return false
	}
	return calendarDaysBetween(d1, d2) <= toleranceDays
}

// calendarDaysBetween returns the absolute whole-day distance between two
// timestamps after truncating each to midnight UTC.
func calendarDaysBetween(d1, d2 time.Time) int {
	day1 := time.Date(d1.Year(), d1.Month(), d1.Day(), 0, 0, 0, 0, time.UTC)
	day2 := time.Date(d2.Year(), d2.Month(), d2.Day(), 0, 0, 0, 0, time.UTC)
	days := int(day1.Sub(day2).Hours() / 24)
	if days < 0 {
		days = -days
	}
	return days
}

// TokenSetRatio scores the similarity of two strings in [0, 100] using the
// token-set method: both strings are normalized and tokenized, and the score
// is the best Levenshtein similarity among joins of the shared tokens and
// each side's remainder. Word order and duplicated tokens do not matter, so
// "WALMART #1234 SUPERCENTER" scores 100 against "WALMART". The function is
// symmetric in its arguments.
func TokenSetRatio(a, b string) int {
	tokensA := tokenSet(a)
	tokensB := tokenSet(b)
	if len(tokensA) == 0 || len(tokensB) == 0 {
		return 0
	}

	intersection := make([]string, 0, len(tokensA))
	diffA := make([]string, 0, len(tokensA))
	for token := range tokensA {
		if _, ok := tokensB[token]; ok {
			intersection = append(intersection, token)
		} else {
			diffA = append(diffA, token)
		}
	}
	diffB := make([]string, 0, len(tokensB))
	for token := range tokensB {
		if _, ok := tokensA[token]; !ok {
			diffB = append(diffB, token)
		}
	}

	sort.Strings(intersection)
	sort.Strings(diffA)
	sort.Strings(diffB)

	base := strings.Join(intersection, " ")
	combinedA := strings.TrimSpace(base + " " + strings.Join(diffA, " "))
	combinedB := strings.TrimSpace(base + " " + strings.Join(diffB, " "))

	best := math.Max(
		levenshteinRatio(base, combinedA),
		math.Max(
			levenshteinRatio(base, combinedB),
			levenshteinRatio(combinedA, combinedB),
		),
	)
	return int(math.Round(best * 100))
}

// levenshteinRatio returns the Levenshtein similarity of two strings in
// [0, 1]. Two empty strings are identical.
func levenshteinRatio(a, b string) float64 {
	if a == "" && b == "" {
		return 1
	}
	return levenshtein.RatioForStrings([]rune(a), []rune(b), levenshtein.DefaultOptions)
}

// tokenSet normalizes a string to lowercase alphanumeric words and returns
// the set of distinct tokens.
func tokenSet(s string) map[string]struct{} {
	var builder strings.Builder
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			builder.WriteRune(r)
		} else {
			builder.WriteRune(' ')
		}
	}
	set := make(map[string]struct{})
	for _, token := range strings.Fields(builder.String()) {
		set[token] = struct{}{}
	}
	return set
}
