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

package config

import (
	"encoding/json"
	"errors"
	"log"
	"os"
	"strings"
	"sync/atomic"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/kelseyhightower/envconfig"
	"github.com/sirupsen/logrus"
)

// Matching strategy names accepted in MatcherConfig.Strategies.
const (
	StrategyExact    = "exact"
	StrategyFuzzy    = "fuzzy"
	StrategySemantic = "semantic"
	StrategyBlended  = "blended"
)

var ConfigStore atomic.Value

// MatcherConfig carries the tolerances and thresholds the reconciliation
// engine runs with. The vendor alias table maps garbled extraction tokens to
// the merchant they are known to represent (e.g. "UBE" -> "UBER"); it encodes
// dataset-specific heuristics from the extraction pipeline and is supplied
// per deployment, never compiled in.
type MatcherConfig struct {
	DateToleranceDays         int               `json:"date_tolerance_days" envconfig:"TALLY_DATE_TOLERANCE_DAYS"`
	AmountTolerancePercent    float64           `json:"amount_tolerance_percent" envconfig:"TALLY_AMOUNT_TOLERANCE_PERCENT"`
	VendorSimilarityThreshold int               `json:"vendor_similarity_threshold" envconfig:"TALLY_VENDOR_SIMILARITY_THRESHOLD"`
	ConfidenceAcceptanceFloor float64           `json:"confidence_acceptance_floor" envconfig:"TALLY_CONFIDENCE_ACCEPTANCE_FLOOR"`
	Strategies                []string          `json:"strategies" envconfig:"TALLY_STRATEGIES"`
	SemanticRequired          bool              `json:"semantic_required" envconfig:"TALLY_SEMANTIC_REQUIRED"`
	VendorAliases             map[string]string `json:"vendor_aliases"`
}

// EmbeddingConfig configures the external embedding provider used by the
// semantic matching tier. An empty endpoint disables the tier.
type EmbeddingConfig struct {
	Endpoint       string `json:"endpoint" envconfig:"TALLY_EMBEDDING_ENDPOINT"`
	APIKey         string `json:"api_key" envconfig:"TALLY_EMBEDDING_API_KEY"`
	Model          string `json:"model" envconfig:"TALLY_EMBEDDING_MODEL"`
	BatchSize      int    `json:"batch_size" envconfig:"TALLY_EMBEDDING_BATCH_SIZE"`
	MaxTextLength  int    `json:"max_text_length" envconfig:"TALLY_EMBEDDING_MAX_TEXT_LENGTH"`
	TimeoutSeconds int    `json:"timeout_seconds" envconfig:"TALLY_EMBEDDING_TIMEOUT_SECONDS"`
}

type Configuration struct {
	ProjectName string          `json:"project_name" envconfig:"TALLY_PROJECT_NAME"`
	Matcher     MatcherConfig   `json:"matcher"`
	Embedding   EmbeddingConfig `json:"embedding"`
}

func loadConfigFromFile(file string) error {
	var cnf Configuration
	_, err := os.Stat(file)
	if err == nil {
		f, err := os.Open(file)
		if err != nil {
			return err
		}
		defer f.Close()
		err = json.NewDecoder(f).Decode(&cnf)
		if err != nil {
			return err
		}
	} else if errors.Is(err, os.ErrNotExist) {
		log.Println("config json not passed, will use env variables")
	}

	// override config from environment variables
	err = envconfig.Process("tally", &cnf)
	if err != nil {
		return err
	}

	err = cnf.validateAndAddDefaults()
	if err != nil {
		return err
	}

	ConfigStore.Store(&cnf)
	return err
}

func InitConfig(configFile string) error {
	logger()
	return loadConfigFromFile(configFile)
}

func Fetch() (*Configuration, error) {
	config := ConfigStore.Load()
	c, ok := config.(*Configuration)
	if !ok {
		return nil, errors.New("config not loaded from file. Create a json file called tally.json with your config")
	}
	return c, nil
}

// Default returns a Configuration populated with the engine defaults only.
// Useful for library callers that do not go through InitConfig.
func Default() *Configuration {
	cnf := &Configuration{}
	if err := cnf.validateAndAddDefaults(); err != nil {
		// Defaults always validate; reaching here means the defaults
		// themselves are broken.
		panic(err)
	}
	return cnf
}

func (cnf *Configuration) validateAndAddDefaults() error {
	if cnf.ProjectName == "" {
		cnf.ProjectName = "Tally"
	}
	cnf.ProjectName = strings.TrimSpace(cnf.ProjectName)

	if cnf.Matcher.DateToleranceDays == 0 {
		cnf.Matcher.DateToleranceDays = 7
	}
	if cnf.Matcher.AmountTolerancePercent == 0 {
		cnf.Matcher.AmountTolerancePercent = 0.1
	}
	if cnf.Matcher.VendorSimilarityThreshold == 0 {
		cnf.Matcher.VendorSimilarityThreshold = 70
	}
	if cnf.Matcher.ConfidenceAcceptanceFloor == 0 {
		cnf.Matcher.ConfidenceAcceptanceFloor = 0.7
	}
	if len(cnf.Matcher.Strategies) == 0 {
		cnf.Matcher.Strategies = []string{StrategyBlended, StrategySemantic}
	}
	if cnf.Matcher.VendorAliases == nil {
		cnf.Matcher.VendorAliases = map[string]string{}
	}

	if cnf.Embedding.Model == "" {
		cnf.Embedding.Model = "usf1-embed"
	}
	if cnf.Embedding.BatchSize == 0 {
		cnf.Embedding.BatchSize = 16
	}
	if cnf.Embedding.MaxTextLength == 0 {
		cnf.Embedding.MaxTextLength = 500
	}
	if cnf.Embedding.TimeoutSeconds == 0 {
		cnf.Embedding.TimeoutSeconds = 30
	}

	return cnf.Matcher.validate()
}

// validate rejects thresholds outside their documented ranges and unknown
// strategy names.
func (m MatcherConfig) validate() error {
	err := validation.ValidateStruct(&m,
		validation.Field(&m.DateToleranceDays, validation.Min(0)),
		validation.Field(&m.AmountTolerancePercent, validation.Min(0.0), validation.Max(1.0)),
		validation.Field(&m.VendorSimilarityThreshold, validation.Min(0), validation.Max(100)),
		validation.Field(&m.ConfidenceAcceptanceFloor, validation.Min(0.0), validation.Max(1.0)),
		validation.Field(&m.Strategies, validation.Each(validation.In(
			StrategyExact, StrategyFuzzy, StrategySemantic, StrategyBlended,
		))),
	)
	if err != nil {
		return err
	}
	return nil
}

// MockConfig sets a mock configuration for testing purposes.
func MockConfig(mockConfig *Configuration) {
	ConfigStore.Store(mockConfig)
}

func logger() {
	logger := logrus.New()
	log.SetOutput(logger.Writer())
}
