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

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// Transaction type tags carried by bank records.
const (
	TypeDebit  = "debit"
	TypeCredit = "credit"
)

// ReceiptTransaction is a transaction extracted from a purchase document or
// email. Amounts are positive magnitudes; the extraction pipeline also
// reports how confident it was in the extracted fields.
type ReceiptTransaction struct {
	TransactionID        string       `json:"transaction_id"`
	Amount               float64      `json:"amount"`
	TransactionDate      FlexibleTime `json:"transaction_date"`
	VendorName           string       `json:"vendor_name"`
	Category             string       `json:"category"`
	ExtractionConfidence float64      `json:"extraction_confidence"`
}

// BankTransaction is a line item from an imported bank statement. Amounts are
// signed: negative values are debits.
type BankTransaction struct {
	TransactionID   string       `json:"transaction_id"`
	Amount          float64      `json:"amount"`
	TransactionDate FlexibleTime `json:"transaction_date"`
	Description     string       `json:"description"`
	TransactionType string       `json:"transaction_type"`
}

// FlexibleTime is a time.Time that tolerates the date representations seen
// across statement exports and extraction pipelines. A value that cannot be
// parsed decodes to the zero time rather than failing the surrounding
// document; callers treat the zero time as "date unavailable".
type FlexibleTime struct {
	time.Time
}

// flexibleDateLayouts are tried in order when parsing date strings.
var flexibleDateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
	"01/02/2006",
	"2006/01/02",
}

// ParseFlexibleDate parses a date value that may arrive as a time.Time, a
// string in one of several layouts, a numeric epoch (milliseconds or
// seconds), or a provider wrapper object of the form {"$date": <value>}.
//
// Parameters:
// - value: The raw date value to parse.
//
// Returns:
// - time.Time: The parsed timestamp.
// - error: If the value cannot be interpreted as a date.
func ParseFlexibleDate(value interface{}) (time.Time, error) {
	switch v := value.(type) {
	case time.Time:
		return v, nil
	case FlexibleTime:
		return v.Time, nil
	case string:
		for _, layout := range flexibleDateLayouts {
			if t, err := time.Parse(layout, v); err == nil {
				return t, nil
			}
		}
		return time.Time{}, fmt.Errorf("unrecognized date string %q", v)
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return time.Time{}, fmt.Errorf("non-numeric date value %q", v)
		}
		return epochToTime(f), nil
	case float64:
		return epochToTime(v), nil
	case int64:
		return epochToTime(float64(v)), nil
	case int:
		return epochToTime(float64(v)), nil
	case map[string]interface{}:
		// Provider-specific wrapper, e.g. {"$date": "2025-01-10T00:00:00Z"}.
		if wrapped, ok := v["$date"]; ok {
			return ParseFlexibleDate(wrapped)
		}
		return time.Time{}, fmt.Errorf("unrecognized date wrapper %v", v)
	case nil:
		return time.Time{}, fmt.Errorf("missing date value")
	default:
		return time.Time{}, fmt.Errorf("unsupported date type %T", value)
	}
}

// epochToTime interprets a numeric epoch value. Values large enough to only
// make sense as milliseconds are treated as such; everything else is seconds.
func epochToTime(v float64) time.Time {
	if v > 1e12 {
		return time.UnixMilli(int64(v)).UTC()
	}
	return time.Unix(int64(v), 0).UTC()
}

// UnmarshalJSON decodes any supported date representation. Parse failures
// resolve to the zero time instead of an error so one garbled date cannot
// abort decoding of a whole statement.
func (ft *FlexibleTime) UnmarshalJSON(data []byte) error {
	var raw interface{}
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()
	if err := decoder.Decode(&raw); err != nil {
		ft.Time = time.Time{}
		return nil
	}
	t, err := ParseFlexibleDate(raw)
	if err != nil {
		ft.Time = time.Time{}
		return nil
	}
	ft.Time = t
	return nil
}

// MarshalJSON emits RFC3339, or null for the zero-time sentinel.
func (ft FlexibleTime) MarshalJSON() ([]byte, error) {
	if ft.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(ft.Time)
}
