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
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/korede-labs/tally/model"
)

// ReadReceipts parses a receipt export (CSV or JSON, detected from filename
// and content) into receipt records. Rows that cannot be parsed are skipped
// and reported together; duplicate transaction ids are dropped with the first
// occurrence winning, so the engine never sees an ambiguous id.
//
// Parameters:
// - reader: The export content.
// - filename: The original filename, used for extension-based type detection.
//
// Returns:
// - []model.ReceiptTransaction: The parsed records, in file order.
// - error: If the file type is unsupported or every row failed.
func ReadReceipts(reader io.Reader, filename string) ([]model.ReceiptTransaction, error) {
	data, fileType, err := readAndDetect(reader, filename)
	if err != nil {
		return nil, err
	}

	switch fileType {
	case "text/csv":
		records, err := parseReceiptsCSV(data)
		if err != nil {
			return nil, err
		}
		return dedupeReceipts(records), nil
	case "application/json":
		var records []model.ReceiptTransaction
		if err := json.Unmarshal(data, &records); err != nil {
			return nil, fmt.Errorf("error parsing receipt JSON: %w", err)
		}
		return dedupeReceipts(records), nil
	default:
		return nil, fmt.Errorf("unsupported file type: %s", fileType)
	}
}

// ReadBankTransactions parses a bank statement export (CSV or JSON) into bank
// records, with the same duplicate-id handling as ReadReceipts.
func ReadBankTransactions(reader io.Reader, filename string) ([]model.BankTransaction, error) {
	data, fileType, err := readAndDetect(reader, filename)
	if err != nil {
		return nil, err
	}

	switch fileType {
	case "text/csv":
		records, err := parseBankCSV(data)
		if err != nil {
			return nil, err
		}
		return dedupeBank(records), nil
	case "application/json":
		var records []model.BankTransaction
		if err := json.Unmarshal(data, &records); err != nil {
			return nil, fmt.Errorf("error parsing bank transaction JSON: %w", err)
		}
		return dedupeBank(records), nil
	default:
		return nil, fmt.Errorf("unsupported file type: %s", fileType)
	}
}

// readAndDetect buffers the content and detects its type, by extension first
// and by inspection when the extension is uninformative.
func readAndDetect(reader io.Reader, filename string) ([]byte, string, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, "", fmt.Errorf("error reading upload data: %w", err)
	}
	fileType, err := detectFileType(data, filename)
	if err != nil {
		return nil, "", err
	}
	return data, fileType, nil
}

// detectFileType attempts to detect the file type based on its extension or
// content.
func detectFileType(data []byte, filename string) (string, error) {
	switch mimeType := mime.TypeByExtension(strings.ToLower(filepath.Ext(filename))); {
	case strings.HasPrefix(mimeType, "text/csv"):
		return "text/csv", nil
	case strings.HasPrefix(mimeType, "application/json"):
		return "application/json", nil
	}
	if looksLikeCSV(data) {
		return "text/csv", nil
	}
	if json.Valid(data) {
		return "application/json", nil
	}
	return "", fmt.Errorf("unable to detect file type")
}

// looksLikeCSV checks for multiple lines with a consistent comma-separated
// field count.
func looksLikeCSV(data []byte) bool {
	lines := bytes.Split(data, []byte("\n"))
	if len(lines) < 2 {
		return false
	}
	fields := bytes.Count(lines[0], []byte(",")) + 1
	for _, line := range lines[1:] {
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		if bytes.Count(line, []byte(","))+1 != fields {
			return false
		}
	}
	return fields > 1
}

// createColumnMap creates a map of column names to their indices based on the
// headers row of a CSV file, ensuring that all required columns are present.
func createColumnMap(headers []string, requiredColumns []string) (map[string]int, error) {
	columnMap := make(map[string]int)
	for i, header := range headers {
		columnMap[strings.ToLower(strings.TrimSpace(header))] = i
	}
	for _, col := range requiredColumns {
		if _, exists := columnMap[col]; !exists {
			return nil, fmt.Errorf("required column '%s' not found in CSV", col)
		}
	}
	return columnMap, nil
}

func parseReceiptsCSV(data []byte) ([]model.ReceiptTransaction, error) {
	rows, columnMap, err := readCSVRows(data, []string{"id", "amount", "date", "vendor"})
	if err != nil {
		return nil, err
	}

	var records []model.ReceiptTransaction
	var errs []error
	for rowNum, row := range rows {
		record, err := parseReceiptRow(row, columnMap)
		if err != nil {
			errs = append(errs, fmt.Errorf("error parsing row %d: %w", rowNum+2, err))
			continue
		}
		records = append(records, record)
	}
	return records, summarizeRowErrors(errs, len(rows))
}

func parseBankCSV(data []byte) ([]model.BankTransaction, error) {
	rows, columnMap, err := readCSVRows(data, []string{"id", "amount", "date", "description"})
	if err != nil {
		return nil, err
	}

	var records []model.BankTransaction
	var errs []error
	for rowNum, row := range rows {
		record, err := parseBankRow(row, columnMap)
		if err != nil {
			errs = append(errs, fmt.Errorf("error parsing row %d: %w", rowNum+2, err))
			continue
		}
		records = append(records, record)
	}
	return records, summarizeRowErrors(errs, len(rows))
}

// readCSVRows reads the header, builds the column map, and returns the data
// rows.
func readCSVRows(data []byte, requiredColumns []string) ([][]string, map[string]int, error) {
	csvReader := csv.NewReader(bytes.NewReader(data))
	csvReader.FieldsPerRecord = -1

	headers, err := csvReader.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("error reading CSV headers: %w", err)
	}
	columnMap, err := createColumnMap(headers, requiredColumns)
	if err != nil {
		return nil, nil, err
	}

	rows, err := csvReader.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("error reading CSV rows: %w", err)
	}
	return rows, columnMap, nil
}

// summarizeRowErrors keeps partial results when only some rows fail, but a
// file where every row failed is an error.
func summarizeRowErrors(errs []error, total int) error {
	if len(errs) == 0 {
		return nil
	}
	if len(errs) == total {
		return fmt.Errorf("no parsable rows: encountered %d errors, first: %v", len(errs), errs[0])
	}
	logrus.Warnf("Skipped %d of %d CSV rows: %v", len(errs), total, errs)
	return nil
}

func parseReceiptRow(record []string, columnMap map[string]int) (model.ReceiptTransaction, error) {
	id, err := getRequiredField(record, columnMap, "id")
	if err != nil {
		return model.ReceiptTransaction{}, err
	}
	amountStr, err := getRequiredField(record, columnMap, "amount")
	if err != nil {
		return model.ReceiptTransaction{}, err
	}
	amount, err := parseAmount(amountStr)
	if err != nil {
		return model.ReceiptTransaction{}, err
	}
	dateStr, err := getRequiredField(record, columnMap, "date")
	if err != nil {
		return model.ReceiptTransaction{}, err
	}
	vendor, err := getRequiredField(record, columnMap, "vendor")
	if err != nil {
		return model.ReceiptTransaction{}, err
	}

	receipt := model.ReceiptTransaction{
		TransactionID:   id,
		Amount:          amount,
		TransactionDate: parseDateField(dateStr),
		VendorName:      vendor,
		Category:        getOptionalField(record, columnMap, "category"),
	}
	if confidenceStr := getOptionalField(record, columnMap, "confidence"); confidenceStr != "" {
		if confidence, err := parseAmount(confidenceStr); err == nil {
			receipt.ExtractionConfidence = confidence
		}
	}
	return receipt, nil
}

func parseBankRow(record []string, columnMap map[string]int) (model.BankTransaction, error) {
	id, err := getRequiredField(record, columnMap, "id")
	if err != nil {
		return model.BankTransaction{}, err
	}
	amountStr, err := getRequiredField(record, columnMap, "amount")
	if err != nil {
		return model.BankTransaction{}, err
	}
	amount, err := parseAmount(amountStr)
	if err != nil {
		return model.BankTransaction{}, err
	}
	dateStr, err := getRequiredField(record, columnMap, "date")
	if err != nil {
		return model.BankTransaction{}, err
	}
	description, err := getRequiredField(record, columnMap, "description")
	if err != nil {
		return model.BankTransaction{}, err
	}

	transactionType := getOptionalField(record, columnMap, "type")
	if transactionType == "" {
		if amount < 0 {
			transactionType = model.TypeDebit
		} else {
			transactionType = model.TypeCredit
		}
	}

	return model.BankTransaction{
		TransactionID:   id,
		Amount:          amount,
		TransactionDate: parseDateField(dateStr),
		Description:     description,
		TransactionType: transactionType,
	}, nil
}

// parseDateField parses a CSV date cell, resolving failures to the zero-time
// sentinel rather than failing the row.
func parseDateField(s string) model.FlexibleTime {
	t, err := model.ParseFlexibleDate(s)
	if err != nil {
		return model.FlexibleTime{}
	}
	return model.FlexibleTime{Time: t}
}

var amountSanitizer = strings.NewReplacer(",", "", "$", "", " ", "")

// parseAmount parses a statement amount exactly, tolerating currency symbols
// and thousands separators.
func parseAmount(s string) (float64, error) {
	d, err := decimal.NewFromString(amountSanitizer.Replace(s))
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	f, _ := d.Float64()
	return f, nil
}

// getRequiredField retrieves a field from a CSV record, ensuring it is not
// empty.
func getRequiredField(record []string, columnMap map[string]int, field string) (string, error) {
	if index, exists := columnMap[field]; exists && index < len(record) {
		value := strings.TrimSpace(record[index])
		if value == "" {
			return "", fmt.Errorf("required field '%s' is empty", field)
		}
		return value, nil
	}
	return "", fmt.Errorf("required field '%s' not found in record", field)
}

func getOptionalField(record []string, columnMap map[string]int, field string) string {
	if index, exists := columnMap[field]; exists && index < len(record) {
		return strings.TrimSpace(record[index])
	}
	return ""
}

func dedupeReceipts(records []model.ReceiptTransaction) []model.ReceiptTransaction {
	seen := make(map[string]bool, len(records))
	deduped := records[:0]
	for _, record := range records {
		if seen[record.TransactionID] {
			logrus.Warnf("Dropping duplicate receipt transaction id %s", record.TransactionID)
			continue
		}
		seen[record.TransactionID] = true
		deduped = append(deduped, record)
	}
	return deduped
}

func dedupeBank(records []model.BankTransaction) []model.BankTransaction {
	seen := make(map[string]bool, len(records))
	deduped := records[:0]
	for _, record := range records {
		if seen[record.TransactionID] {
			logrus.Warnf("Dropping duplicate bank transaction id %s", record.TransactionID)
			continue
		}
		seen[record.TransactionID] = true
		deduped = append(deduped, record)
	}
	return deduped
}
