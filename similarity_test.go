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
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
)

func TestAmountsCompatible(t *testing.T) {
	tests := []struct {
		name      string
		receipt   float64
		bank      float64
		tolerance float64
		want      bool
	}{
		{"identical amounts", 52.18, 52.18, 0.1, true},
		{"sign ignored", 52.18, -52.18, 0.1, true},
		{"within percentage tolerance", 100.00, -95.00, 0.1, true},
		{"at percentage boundary", 100.00, -110.00, 0.1, true},
		{"outside percentage tolerance", 100.00, -120.00, 0.1, false},
		{"small amounts use absolute floor", 3.00, -3.90, 0.1, true},
		{"small amounts beyond absolute floor", 3.00, -4.50, 0.1, false},
		{"zero receipt fails closed", 0, 0, 0.1, false},
		{"zero receipt against real amount", 0, -52.18, 0.1, false},
		{"zero bank amount", 5.00, 0, 0.1, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, AmountsCompatible(tt.receipt, tt.bank, tt.tolerance))
		})
	}
}

func TestDatesWithinTolerance(t *testing.T) {
	base := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)

	assert.True(t, DatesWithinTolerance(base, base, 7))
	assert.True(t, DatesWithinTolerance(base, base.AddDate(0, 0, 7), 7))
	assert.True(t, DatesWithinTolerance(base, base.AddDate(0, 0, -7), 7))
	assert.False(t, DatesWithinTolerance(base, base.AddDate(0, 0, 8), 7))

	// Time of day does not count: 23:59 vs 00:01 the next day is one
	// calendar day apart, not two.
	late := time.Date(2025, 1, 10, 23, 59, 0, 0, time.UTC)
	early := time.Date(2025, 1, 11, 0, 1, 0, 0, time.UTC)
	assert.True(t, DatesWithinTolerance(late, early, 1))

	// The zero time is the unavailable sentinel, never within tolerance.
	assert.False(t, DatesWithinTolerance(time.Time{}, base, 7))
	assert.False(t, DatesWithinTolerance(base, time.Time{}, 7))
	assert.False(t, DatesWithinTolerance(time.Time{}, time.Time{}, 7))
}

func TestTokenSetRatio(t *testing.T) {
	tests := []struct {
		name string
		a    string
		b    string
		want int
	}{
		{"identical", "WALMART", "WALMART", 100},
		{"case and punctuation ignored", "Wal-Mart", "WALMART", 100},
		{"subset of tokens scores perfect", "WALMART", "WALMART #1234 SUPERCENTER", 100},
		{"word order ignored", "COFFEE STARBUCKS", "STARBUCKS COFFEE", 100},
		{"duplicate tokens ignored", "UBER UBER TRIP", "UBER TRIP", 100},
		{"both empty", "", "", 0},
		{"one empty", "WALMART", "", 0},
		{"punctuation only", "###", "!!!", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TokenSetRatio(tt.a, tt.b))
		})
	}

	t.Run("disjoint strings score low", func(t *testing.T) {
		assert.Less(t, TokenSetRatio("WALMART", "SHELL OIL"), 40)
	})

	t.Run("close strings beat distant ones", func(t *testing.T) {
		near := TokenSetRatio("STARBUCKS", "STARBUCKS STORE #554")
		distant := TokenSetRatio("STARBUCKS", "CHEVRON GAS")
		assert.Greater(t, near, distant)
	})
}

func TestTokenSetRatioSymmetry(t *testing.T) {
	faker := gofakeit.New(42)
	for i := 0; i < 200; i++ {
		a := faker.Company()
		b := faker.Sentence(4)
		assert.Equal(t, TokenSetRatio(a, b), TokenSetRatio(b, a), "asymmetric for %q / %q", a, b)
	}
}

func TestTokenSetRatioBounds(t *testing.T) {
	faker := gofakeit.New(7)
	for i := 0; i < 200; i++ {
		score := TokenSetRatio(faker.Company(), faker.BS())
		assert.GreaterOrEqual(t, score, 0)
		assert.LessOrEqual(t, score, 100)
	}
}
