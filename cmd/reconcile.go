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

package main

import (
	"context"
	"encoding/json"
	"log"
	"os"

	"github.com/spf13/cobra"

	tally "github.com/korede-labs/tally"
	"github.com/korede-labs/tally/model"
)

// reconcileCommands creates the command for running a reconciliation over a
// receipt export and a bank statement export.
func reconcileCommands(t *tallyInstance) *cobra.Command {
	var receiptsFile string
	var bankFile string
	var outFile string

	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "match receipt transactions against a bank statement",
		Run: func(cmd *cobra.Command, args []string) {
			receipts, err := readReceiptsFile(receiptsFile)
			if err != nil {
				log.Fatalf("Error reading receipts: %v", err)
			}
			bank, err := readBankFile(bankFile)
			if err != nil {
				log.Fatalf("Error reading bank transactions: %v", err)
			}

			outcome, err := t.tally.Reconcile(context.Background(), receipts, bank)
			if err != nil {
				log.Fatalf("Error running reconciliation: %v", err)
			}

			if err := writeOutcome(outcome, outFile); err != nil {
				log.Fatalf("Error writing outcome: %v", err)
			}
		},
	}

	cmd.Flags().StringVar(&receiptsFile, "receipts", "", "Receipt export file (CSV or JSON)")
	cmd.Flags().StringVar(&bankFile, "bank", "", "Bank statement export file (CSV or JSON)")
	cmd.Flags().StringVar(&outFile, "out", "", "Write the outcome to this file instead of stdout")
	_ = cmd.MarkFlagRequired("receipts")
	_ = cmd.MarkFlagRequired("bank")

	return cmd
}

func readReceiptsFile(path string) ([]model.ReceiptTransaction, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	return tally.ReadReceipts(f, path)
}

func readBankFile(path string) ([]model.BankTransaction, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	return tally.ReadBankTransactions(f, path)
}

// writeOutcome renders the reconciliation outcome as indented JSON.
func writeOutcome(outcome interface{}, outFile string) error {
	data, err := json.MarshalIndent(outcome, "", "  ")
	if err != nil {
		return err
	}
	if outFile == "" {
		_, err = os.Stdout.Write(append(data, '\n'))
		return err
	}
	return os.WriteFile(outFile, data, 0o644)
}
