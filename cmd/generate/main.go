package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	engine "github.com/quantra-lab/quantra-backtest/internal/backtest/engine/engine_v1"
	"github.com/quantra-lab/quantra-backtest/pkg/marketdata"
)

const (
	configDir        = "./config"
	engineSchemaName = "backtest-config-v1.json"
	sampleConfigName = "backtest-config-v1.yaml"
)

// validatePaths rejects empty output locations before any file is touched.
func validatePaths(schemaPath string, sampleConfigPath string) error {
	if schemaPath == "" {
		return fmt.Errorf("schema path cannot be empty")
	}

	if sampleConfigPath == "" {
		return fmt.Errorf("sample config path cannot be empty")
	}

	return nil
}

// validateSchemaName ensures the schema reference embedded in the sample
// config points at a JSON file.
func validateSchemaName(schemaName string) error {
	if schemaName == "" {
		return fmt.Errorf("schema name cannot be empty")
	}

	if !strings.HasSuffix(schemaName, ".json") {
		return fmt.Errorf("schema name must have .json extension, got %s", schemaName)
	}

	return nil
}

// getSchemaReference returns the yaml-language-server header line that links
// a sample config to its schema file.
func getSchemaReference(schemaName string) string {
	return fmt.Sprintf("# yaml-language-server: $schema=%s\n", schemaName)
}

// generateSchemaFile writes the JSON schema of the engine configuration.
func generateSchemaFile(config engine.BacktestConfigV1, schemaPath string) error {
	schemaJSON, err := config.GenerateSchemaJSON()
	if err != nil {
		return fmt.Errorf("failed to generate schema: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(schemaPath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	if err := os.WriteFile(schemaPath, []byte(schemaJSON), 0644); err != nil {
		return fmt.Errorf("failed to write schema to file: %w", err)
	}

	return nil
}

// generateSampleConfig writes a starter YAML config referencing the schema.
// An existing file is left untouched so local edits survive regeneration.
func generateSampleConfig(config engine.BacktestConfigV1, samplePath string, schemaName string) error {
	if _, err := os.Stat(samplePath); err == nil {
		return nil
	}

	yamlBytes, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal sample config to yaml: %w", err)
	}

	yamlBytes = append([]byte(getSchemaReference(schemaName)), yamlBytes...)

	if err := os.WriteFile(samplePath, yamlBytes, 0644); err != nil {
		return fmt.Errorf("failed to write sample config to file: %w", err)
	}

	return nil
}

// generateDownloadSchemas writes one JSON schema per market data provider so
// download configurations can be edited with completion as well.
func generateDownloadSchemas(dir string) error {
	for _, providerName := range marketdata.GetSupportedProviders() {
		schemaJSON, err := marketdata.GetDownloadConfigSchema(providerName)
		if err != nil {
			return fmt.Errorf("failed to generate download schema for %s: %w", providerName, err)
		}

		schemaPath := filepath.Join(dir, fmt.Sprintf("download-%s-config.json", providerName))
		if err := os.WriteFile(schemaPath, []byte(schemaJSON), 0644); err != nil {
			return fmt.Errorf("failed to write download schema to file: %w", err)
		}
	}

	return nil
}

func main() {
	config := engine.EmptyConfig()

	schemaPath := filepath.Join(configDir, engineSchemaName)
	sampleConfigPath := filepath.Join(configDir, sampleConfigName)

	if err := validatePaths(schemaPath, sampleConfigPath); err != nil {
		log.Fatalf("Invalid paths: %v", err)
	}

	if err := validateSchemaName(engineSchemaName); err != nil {
		log.Fatalf("Invalid schema name: %v", err)
	}

	if err := generateSchemaFile(config, schemaPath); err != nil {
		log.Fatalf("Failed to generate schema: %v", err)
	}

	log.Printf("Schema successfully generated at %s", schemaPath)

	if err := generateSampleConfig(config, sampleConfigPath, engineSchemaName); err != nil {
		log.Fatalf("Failed to generate sample config: %v", err)
	}

	log.Printf("Sample config available at %s", sampleConfigPath)

	if err := generateDownloadSchemas(configDir); err != nil {
		log.Fatalf("Failed to generate download schemas: %v", err)
	}

	log.Printf("Download config schemas generated in %s", configDir)
}
