package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestValidateAndAddDefaults(t *testing.T) {
	cnf := Configuration{}
	err := cnf.validateAndAddDefaults()
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if cnf.Matcher.DateToleranceDays != 7 {
		t.Errorf("Expected default date tolerance 7, got %d", cnf.Matcher.DateToleranceDays)
	}
	if cnf.Matcher.AmountTolerancePercent != 0.1 {
		t.Errorf("Expected default amount tolerance 0.1, got %f", cnf.Matcher.AmountTolerancePercent)
	}
	if cnf.Matcher.VendorSimilarityThreshold != 70 {
		t.Errorf("Expected default vendor similarity threshold 70, got %d", cnf.Matcher.VendorSimilarityThreshold)
	}
	if cnf.Matcher.ConfidenceAcceptanceFloor != 0.7 {
		t.Errorf("Expected default confidence floor 0.7, got %f", cnf.Matcher.ConfidenceAcceptanceFloor)
	}
	if len(cnf.Matcher.Strategies) != 2 || cnf.Matcher.Strategies[0] != StrategyBlended || cnf.Matcher.Strategies[1] != StrategySemantic {
		t.Errorf("Expected default strategies [blended semantic], got %v", cnf.Matcher.Strategies)
	}
	if cnf.Embedding.BatchSize != 16 || cnf.Embedding.MaxTextLength != 500 {
		t.Errorf("Expected embedding defaults 16/500, got %d/%d", cnf.Embedding.BatchSize, cnf.Embedding.MaxTextLength)
	}
}

func TestValidateRejectsOutOfRangeThresholds(t *testing.T) {
	cnf := Configuration{}
	cnf.Matcher.VendorSimilarityThreshold = 170
	if err := cnf.validateAndAddDefaults(); err == nil {
		t.Error("Expected error for vendor similarity threshold above 100")
	}

	cnf = Configuration{}
	cnf.Matcher.AmountTolerancePercent = 2.5
	if err := cnf.validateAndAddDefaults(); err == nil {
		t.Error("Expected error for amount tolerance above 1.0")
	}

	cnf = Configuration{}
	cnf.Matcher.Strategies = []string{"levenshtein"}
	if err := cnf.validateAndAddDefaults(); err == nil {
		t.Error("Expected error for unknown strategy name")
	}
}

func TestInitConfigFromFileWithEnvOverride(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "tally.json")
	content := `{
		"project_name": "Tally Test",
		"matcher": {
			"date_tolerance_days": 3,
			"vendor_aliases": {"UBE": "UBER"}
		},
		"embedding": {"endpoint": "http://localhost:9000/embed"}
	}`
	if err := os.WriteFile(file, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	os.Setenv("TALLY_CONFIDENCE_ACCEPTANCE_FLOOR", "0.8")
	defer os.Unsetenv("TALLY_CONFIDENCE_ACCEPTANCE_FLOOR")

	if err := InitConfig(file); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	cnf, err := Fetch()
	if err != nil {
		t.Fatalf("Expected config to be fetchable, got %v", err)
	}
	if cnf.ProjectName != "Tally Test" {
		t.Errorf("Expected project name from file, got %q", cnf.ProjectName)
	}
	if cnf.Matcher.DateToleranceDays != 3 {
		t.Errorf("Expected date tolerance from file, got %d", cnf.Matcher.DateToleranceDays)
	}
	if cnf.Matcher.ConfidenceAcceptanceFloor != 0.8 {
		t.Errorf("Expected confidence floor from env override, got %f", cnf.Matcher.ConfidenceAcceptanceFloor)
	}
	if cnf.Matcher.VendorAliases["UBE"] != "UBER" {
		t.Errorf("Expected vendor alias from file, got %v", cnf.Matcher.VendorAliases)
	}
	// Fields absent from file and env still get defaults.
	if cnf.Matcher.VendorSimilarityThreshold != 70 {
		t.Errorf("Expected default vendor similarity threshold, got %d", cnf.Matcher.VendorSimilarityThreshold)
	}
}
