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
	"fmt"
	"log"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	tally "github.com/korede-labs/tally"
	"github.com/korede-labs/tally/config"
	"github.com/korede-labs/tally/internal/embedding"
)

// Tally represents the CLI application, encapsulating the root Cobra command.
type Tally struct {
	cmd *cobra.Command
}

// tallyInstance holds the engine instance and its configuration, shared by
// all subcommands.
type tallyInstance struct {
	tally *tally.Tally
	cnf   *config.Configuration
}

// recoverPanic handles any panics during program execution and logs the error using Logrus.
func recoverPanic() {
	if rec := recover(); rec != nil {
		logrus.Error(rec)
		os.Exit(1)
	}
}

// preRun sets up the configuration and initializes the engine before running
// any command.
func preRun(app *tallyInstance, configFile *string) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		err := config.InitConfig(*configFile)
		if err != nil {
			log.Fatal("error loading config", err)
		}

		cnf, err := config.Fetch()
		if err != nil {
			return err
		}

		app.tally = setupTally(cnf)
		app.cnf = cnf

		return nil
	}
}

// setupTally creates a new engine from the configuration. The embedding
// client is only wired when an endpoint is configured; without one the
// semantic pass is unavailable and the engine runs pairwise passes only.
func setupTally(cnf *config.Configuration) *tally.Tally {
	var embedder tally.Embedder
	if cnf.Embedding.Endpoint != "" {
		embedder = embedding.NewClient(cnf.Embedding)
	}
	return tally.NewTally(cnf, embedder)
}

// NewCLI creates the command-line interface for the reconciliation engine.
func NewCLI() *Tally {
	var configFile string
	t := &tallyInstance{}

	var rootCmd = &cobra.Command{
		Use:   "tally",
		Short: "Receipt to bank statement reconciliation",
		Run:   func(cmd *cobra.Command, args []string) {},
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "./tally.json", "Configuration file for the reconciliation engine")
	rootCmd.PersistentPreRunE = preRun(t, &configFile)

	rootCmd.AddCommand(reconcileCommands(t))

	return &Tally{cmd: rootCmd}
}

// executeCLI runs the root command, handling any errors that occur during execution.
func (t Tally) executeCLI() {
	if err := t.cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func main() {
	defer recoverPanic()

	cli := NewCLI()
	cli.executeCLI()
}
