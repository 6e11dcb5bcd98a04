package types

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// WindowKind distinguishes the in-sample training slice of a walk-forward
// window from the out-of-sample testing slice that follows it.
type WindowKind string

const (
	WindowKindTraining WindowKind = "training"
	WindowKindTesting  WindowKind = "testing"
)

// WindowResult is the outcome of one independent sub-run over a single
// walk-forward window.
type WindowResult struct {
	// Index orders windows by their position in the sweep; the training and
	// testing halves of the same carve share an index.
	Index int        `yaml:"index" json:"index"`
	Kind  WindowKind `yaml:"kind" json:"kind"`
	// WindowStart and WindowEnd bound the slice of the total range this
	// sub-run simulated.
	WindowStart time.Time `yaml:"window_start" json:"window_start"`
	WindowEnd   time.Time `yaml:"window_end" json:"window_end"`
	// Result is the full, independent backtest over the window. Failed windows
	// carry State FAILED and are excluded from aggregate averages.
	Result BacktestResult `yaml:"result" json:"result"`
}

// WalkForwardResult collects every window of a walk-forward sweep in order,
// enabling out-of-sample comparison of testing returns against training returns.
type WalkForwardResult struct {
	Windows []WindowResult `yaml:"windows" json:"windows"`

	// TrainingWindows and TestingWindows count completed sub-runs only;
	// FailedWindows counts sub-runs excluded from the averages.
	TrainingWindows int `yaml:"training_windows" json:"training_windows"`
	TestingWindows  int `yaml:"testing_windows" json:"testing_windows"`
	FailedWindows   int `yaml:"failed_windows" json:"failed_windows"`

	// AvgTrainingReturn and AvgTestingReturn average total returns over the
	// completed windows of each kind.
	AvgTrainingReturn float64 `yaml:"avg_training_return" json:"avg_training_return"`
	AvgTestingReturn  float64 `yaml:"avg_testing_return" json:"avg_testing_return"`
}

// WriteWalkForwardResult writes the sweep result to path as YAML.
func WriteWalkForwardResult(path string, result *WalkForwardResult) error {
	data, err := yaml.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal walk-forward result to YAML: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write walk-forward result to file: %w", err)
	}

	return nil
}
