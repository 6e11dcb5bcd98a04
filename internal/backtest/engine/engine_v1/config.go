package engine

import (
	"encoding/json"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/invopop/jsonschema"
	"github.com/moznion/go-optional"

	"github.com/quantra-lab/quantra-backtest/internal/backtest/engine/engine_v1/fees"
	"github.com/quantra-lab/quantra-backtest/internal/strategy"
	"github.com/quantra-lab/quantra-backtest/internal/types"
	"github.com/quantra-lab/quantra-backtest/internal/version"
	"github.com/quantra-lab/quantra-backtest/pkg/errors"
)

// WalkForwardConfig controls how RunWalkForward partitions the backtest period.
type WalkForwardConfig struct {
	// WindowSizeDays is the length of each training window in days.
	WindowSizeDays int `yaml:"window_size_days" json:"window_size_days" jsonschema:"title=Window Size,description=Training window length in days,minimum=1" validate:"omitempty,gt=0"`
	// StepSizeDays is how far consecutive windows advance, and the testing
	// window length. Defaults to the window size when zero.
	StepSizeDays int `yaml:"step_size_days" json:"step_size_days" jsonschema:"title=Step Size,description=Days each window advances; also the testing window length,minimum=1" validate:"omitempty,gt=0"`
	// MinTestPeriodDays discards trailing testing windows shorter than this.
	MinTestPeriodDays int `yaml:"min_test_period_days" json:"min_test_period_days" jsonschema:"title=Minimum Test Period,description=Shortest testing window worth running in days,minimum=0" validate:"gte=0"`
	// Parallelism bounds how many windows run concurrently. Zero means one.
	Parallelism int `yaml:"parallelism" json:"parallelism" jsonschema:"title=Parallelism,description=Maximum windows running concurrently,minimum=0" validate:"gte=0"`
}

// MonteCarloConfig controls RunMonteCarlo resampling.
type MonteCarloConfig struct {
	// Simulations is the number of bootstrap iterations.
	Simulations int `yaml:"simulations" json:"simulations" jsonschema:"title=Simulations,description=Number of bootstrap iterations,minimum=1" validate:"gt=0"`
	// Confidence is the central interval coverage for best/worst case bounds.
	Confidence float64 `yaml:"confidence" json:"confidence" jsonschema:"title=Confidence,description=Central interval coverage between 0 and 1,minimum=0,maximum=1" validate:"gt=0,lt=1"`
	// DrawdownThreshold is the max drawdown fraction whose breach probability is
	// estimated, e.g. 0.2 for 20%.
	DrawdownThreshold float64 `yaml:"drawdown_threshold" json:"drawdown_threshold" jsonschema:"title=Drawdown Threshold,description=Drawdown fraction whose breach probability is reported,minimum=0,maximum=1" validate:"gte=0,lte=1"`
	// Seed makes the resampling reproducible.
	Seed int64 `yaml:"seed" json:"seed" jsonschema:"title=Seed,description=Random seed for reproducible resampling"`
	// Parallelism bounds how many iterations run concurrently. Zero means one.
	Parallelism int `yaml:"parallelism" json:"parallelism" jsonschema:"title=Parallelism,description=Maximum iterations running concurrently,minimum=0" validate:"gte=0"`
}

// BacktestConfigV1 is the engine configuration, loaded from YAML.
type BacktestConfigV1 struct {
	SchemaVersion  string                     `yaml:"schema_version" json:"schema_version" jsonschema:"title=Schema Version,description=Config schema version this file was written for"`
	InitialCapital float64                    `yaml:"initial_capital" json:"initial_capital" jsonschema:"title=Initial Capital,description=Starting capital for the backtest in account currency,minimum=0" validate:"required,gt=0"`
	RiskFreeRate   float64                    `yaml:"risk_free_rate" json:"risk_free_rate" jsonschema:"title=Risk Free Rate,description=Annualized risk free rate used by Sharpe and Sortino" validate:"gte=0"`
	Interval       types.Interval             `yaml:"interval" json:"interval" jsonschema:"title=Interval,description=Bar granularity the simulation advances by"`
	FeeAccounting  types.FeeAccounting        `yaml:"fee_accounting" json:"fee_accounting" jsonschema:"title=Fee Accounting,description=Whether fees are netted into trade PnL"`
	Fees           fees.Config                `yaml:"fees" json:"fees" jsonschema:"title=Fees,description=Fee model applied to every fill"`
	Strategy       strategy.Config            `yaml:"strategy" json:"strategy" jsonschema:"title=Strategy,description=Signal source to run" validate:"required"`
	Symbols        []string                   `yaml:"symbols" json:"symbols" jsonschema:"title=Symbols,description=Instruments to load from the data source; empty loads everything"`
	StartTime      optional.Option[time.Time] `yaml:"start_time" json:"start_time" jsonschema:"title=Start Time,description=Optional start of the backtest period"`
	EndTime        optional.Option[time.Time] `yaml:"end_time" json:"end_time" jsonschema:"title=End Time,description=Optional end of the backtest period"`
	ResultsFolder  string                     `yaml:"results_folder" json:"results_folder" jsonschema:"title=Results Folder,description=Directory result files are written to; empty disables persistence"`
	WalkForward    WalkForwardConfig          `yaml:"walk_forward" json:"walk_forward" jsonschema:"title=Walk Forward,description=Walk-forward analysis settings"`
	MonteCarlo     MonteCarloConfig           `yaml:"monte_carlo" json:"monte_carlo" jsonschema:"title=Monte Carlo,description=Monte Carlo resampling settings"`
}

// UnmarshalYAML implements custom unmarshaling for BacktestConfigV1, applying
// defaults for everything the file leaves out.
func (c *BacktestConfigV1) UnmarshalYAML(unmarshal func(interface{}) error) error {
	type Config struct {
		SchemaVersion  string              `yaml:"schema_version"`
		InitialCapital float64             `yaml:"initial_capital"`
		RiskFreeRate   float64             `yaml:"risk_free_rate"`
		Interval       types.Interval      `yaml:"interval"`
		FeeAccounting  types.FeeAccounting `yaml:"fee_accounting"`
		Fees           fees.Config         `yaml:"fees"`
		Strategy       strategy.Config     `yaml:"strategy"`
		Symbols        []string            `yaml:"symbols"`
		StartTime      *time.Time          `yaml:"start_time"`
		EndTime        *time.Time          `yaml:"end_time"`
		ResultsFolder  string              `yaml:"results_folder"`
		WalkForward    WalkForwardConfig   `yaml:"walk_forward"`
		MonteCarlo     MonteCarloConfig    `yaml:"monte_carlo"`
	}

	var config Config
	if err := unmarshal(&config); err != nil {
		return err
	}

	c.SchemaVersion = config.SchemaVersion
	c.InitialCapital = config.InitialCapital
	c.RiskFreeRate = config.RiskFreeRate
	c.Interval = config.Interval
	c.FeeAccounting = config.FeeAccounting
	c.Fees = config.Fees
	c.Strategy = config.Strategy
	c.Symbols = config.Symbols
	c.ResultsFolder = config.ResultsFolder
	c.WalkForward = config.WalkForward
	c.MonteCarlo = config.MonteCarlo

	if config.StartTime != nil {
		c.StartTime = optional.Some(*config.StartTime)
	}

	if config.EndTime != nil {
		c.EndTime = optional.Some(*config.EndTime)
	}

	c.applyDefaults()

	return nil
}

func (c *BacktestConfigV1) applyDefaults() {
	if c.SchemaVersion == "" {
		c.SchemaVersion = version.SchemaVersion
	}

	if c.Interval == "" {
		c.Interval = types.Interval1d
	}

	if c.FeeAccounting == "" {
		c.FeeAccounting = types.FeeAccountingInclusive
	}

	if c.Fees.Model == "" {
		c.Fees.Model = fees.FeeModelZero
	}

	if c.MonteCarlo.Simulations == 0 {
		c.MonteCarlo.Simulations = 1000
	}

	if c.MonteCarlo.Confidence == 0 {
		c.MonteCarlo.Confidence = 0.95
	}

	if c.MonteCarlo.Seed == 0 {
		c.MonteCarlo.Seed = 42
	}

	if c.WalkForward.StepSizeDays == 0 {
		c.WalkForward.StepSizeDays = c.WalkForward.WindowSizeDays
	}
}

// Validate checks the configuration for use by a run. It is called by
// Initialize; callers constructing configs in code should call it themselves.
func (c *BacktestConfigV1) Validate() error {
	if err := version.CheckSchemaCompatibility(version.SchemaVersion, c.SchemaVersion); err != nil {
		return err
	}

	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid backtest configuration", err)
	}

	if !c.Interval.IsValid() {
		return errors.Newf(errors.ErrCodeInvalidInterval, "unknown interval %q", string(c.Interval))
	}

	if c.FeeAccounting != types.FeeAccountingInclusive && c.FeeAccounting != types.FeeAccountingExclusive {
		return errors.Newf(errors.ErrCodeInvalidConfiguration, "unknown fee accounting mode %q", string(c.FeeAccounting))
	}

	if c.StartTime.IsSome() && c.EndTime.IsSome() {
		start, _ := c.StartTime.Take()
		end, _ := c.EndTime.Take()

		if !end.After(start) {
			return errors.Newf(errors.ErrCodeInvalidDateRange,
				"end_time %s must be after start_time %s", end.Format(time.RFC3339), start.Format(time.RFC3339))
		}
	}

	return nil
}

// GenerateSchema generates a JSON schema for the BacktestConfigV1
func (c *BacktestConfigV1) GenerateSchema() (*jsonschema.Schema, error) {
	reflector := jsonschema.Reflector{
		RequiredFromJSONSchemaTags: true,
		ExpandedStruct:             true,
		AllowAdditionalProperties:  false,
		Mapper: func(t reflect.Type) *jsonschema.Schema {
			if t.String() == "optional.Option[time.Time]" {
				return &jsonschema.Schema{
					Type:   "string",
					Format: "date-time",
				}
			}
			if strings.Contains(t.String(), "strategy.Kind") {
				return &jsonschema.Schema{
					Type: "string",
					Enum: strategy.AllKinds,
				}
			}
			if strings.Contains(t.String(), "fees.FeeModel") {
				return &jsonschema.Schema{
					Type: "string",
					Enum: fees.AllFeeModels,
				}
			}
			if strings.Contains(t.String(), "types.Interval") {
				return &jsonschema.Schema{
					Type: "string",
					Enum: types.AllIntervals,
				}
			}
			if strings.Contains(t.String(), "types.FeeAccounting") {
				return &jsonschema.Schema{
					Type: "string",
					Enum: types.AllFeeAccountingModes,
				}
			}
			return nil
		},
	}

	schema := reflector.Reflect(c)

	schema.Title = "backtest-config-v1"
	schema.Description = "Configuration schema for BacktestEngineV1"
	schema.Version = "http://json-schema.org/draft-07/schema#"

	return schema, nil
}

// GenerateSchemaJSON generates a JSON schema string for the BacktestConfigV1
func (c *BacktestConfigV1) GenerateSchemaJSON() (string, error) {
	schema, err := c.GenerateSchema()
	if err != nil {
		return "", err
	}

	schemaBytes, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return "", err
	}

	return string(schemaBytes), nil
}

// TestConfig returns a ready-to-run configuration for tests.
func TestConfig(startTime time.Time, endTime time.Time, kind strategy.Kind) BacktestConfigV1 {
	config := BacktestConfigV1{
		SchemaVersion:  version.SchemaVersion,
		InitialCapital: 10000,
		Interval:       types.Interval1d,
		FeeAccounting:  types.FeeAccountingInclusive,
		Fees:           fees.Config{Model: fees.FeeModelZero},
		Strategy:       strategy.Config{Kind: kind},
		StartTime:      optional.Some(startTime),
		EndTime:        optional.Some(endTime),
		MonteCarlo: MonteCarloConfig{
			Simulations: 1000,
			Confidence:  0.95,
			Seed:        42,
		},
	}

	return config
}

// EmptyConfig returns a BacktestConfigV1 with default values.
func EmptyConfig() BacktestConfigV1 {
	return BacktestConfigV1{
		SchemaVersion:  version.SchemaVersion,
		InitialCapital: 0,
		Interval:       types.Interval1d,
		FeeAccounting:  types.FeeAccountingInclusive,
		Fees:           fees.Config{Model: fees.FeeModelZero},
		StartTime:      optional.None[time.Time](),
		EndTime:        optional.None[time.Time](),
	}
}
