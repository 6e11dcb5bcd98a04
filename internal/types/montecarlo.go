package types

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// MonteCarloSummary is the empirical outcome distribution estimated by
// bootstrap-resampling a completed run's trade PnL sequence.
type MonteCarloSummary struct {
	// Simulations is the number of resampled paths drawn.
	Simulations int `yaml:"simulations" json:"simulations"`
	// Confidence is the confidence level the summary was requested at.
	Confidence float64 `yaml:"confidence" json:"confidence"`
	// Seed makes the resampling reproducible.
	Seed int64 `yaml:"seed" json:"seed"`

	// ExpectedReturn is the mean simulated total PnL; as Simulations grows it
	// converges to the realized total PnL of the original sequence.
	ExpectedReturn float64 `yaml:"expected_return" json:"expected_return"`
	// ExpectedVolatility is the standard deviation of the simulated totals.
	ExpectedVolatility float64 `yaml:"expected_volatility" json:"expected_volatility"`
	BestCase           float64 `yaml:"best_case" json:"best_case"`
	WorstCase          float64 `yaml:"worst_case" json:"worst_case"`

	// ProbabilityOfLoss is the fraction of simulated totals below zero.
	ProbabilityOfLoss float64 `yaml:"probability_of_loss" json:"probability_of_loss"`
	// DrawdownThreshold is the drawdown fraction a path must exceed to count
	// towards ProbabilityOfDrawdown.
	DrawdownThreshold float64 `yaml:"drawdown_threshold" json:"drawdown_threshold"`
	// ProbabilityOfDrawdown is the fraction of paths whose running drawdown
	// exceeded DrawdownThreshold when replayed as a mini equity curve.
	ProbabilityOfDrawdown float64 `yaml:"probability_of_drawdown" json:"probability_of_drawdown"`
}

// WriteMonteCarloSummary writes the summary to path as YAML.
func WriteMonteCarloSummary(path string, summary *MonteCarloSummary) error {
	data, err := yaml.Marshal(summary)
	if err != nil {
		return fmt.Errorf("failed to marshal monte carlo summary to YAML: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write monte carlo summary to file: %w", err)
	}

	return nil
}
