package marketdata

import (
	"encoding/json"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/quantra-lab/quantra-backtest/pkg/errors"
	"github.com/quantra-lab/quantra-backtest/pkg/marketdata/provider"
)

// BaseDownloadConfig contains the fields every download configuration
// shares. It is the JSON surface of a download request, used by tooling
// that drives downloads from configuration files rather than flags.
type BaseDownloadConfig struct {
	Ticker    string `json:"ticker" jsonschema:"title=Ticker,description=The trading symbol to download data for (e.g. SPY or BTCUSDT),required" validate:"required"`
	StartDate string `json:"startDate" jsonschema:"title=Start Date,description=Start of the download period in RFC3339,format=date-time,required" validate:"required"`
	EndDate   string `json:"endDate" jsonschema:"title=End Date,description=End of the download period in RFC3339,format=date-time,required" validate:"required"`
	Interval  string `json:"interval" jsonschema:"title=Interval,description=Bar granularity,required,enum=1s,enum=1m,enum=3m,enum=5m,enum=15m,enum=30m,enum=1h,enum=2h,enum=4h,enum=6h,enum=8h,enum=12h,enum=1d,enum=3d,enum=1w,enum=1M" validate:"required,oneof=1s 1m 3m 5m 15m 30m 1h 2h 4h 6h 8h 12h 1d 3d 1w 1M"`
}

// PolygonDownloadConfig configures a download from Polygon.io.
type PolygonDownloadConfig struct {
	BaseDownloadConfig

	ApiKey string `json:"apiKey" jsonschema:"title=API Key,description=Polygon.io API key for authentication,required" validate:"required"`
}

// BinanceDownloadConfig configures a download from Binance. The public
// market data API needs no authentication.
type BinanceDownloadConfig struct {
	BaseDownloadConfig
}

// Validate checks the shared download fields and the date range.
func (c *BaseDownloadConfig) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid download config", err)
	}

	start, err := time.Parse(time.RFC3339, c.StartDate)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidDateRange, "invalid startDate, expected RFC3339", err)
	}

	end, err := time.Parse(time.RFC3339, c.EndDate)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidDateRange, "invalid endDate, expected RFC3339", err)
	}

	if !end.After(start) {
		return errors.Newf(errors.ErrCodeInvalidDateRange, "endDate %s is not after startDate %s", c.EndDate, c.StartDate)
	}

	return nil
}

// Validate checks the Polygon download configuration.
func (c *PolygonDownloadConfig) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid download config", err)
	}

	return c.BaseDownloadConfig.Validate()
}

// Validate checks the Binance download configuration.
func (c *BinanceDownloadConfig) Validate() error {
	return c.BaseDownloadConfig.Validate()
}

// ToDownloadParams converts the config into the typed request the client
// consumes.
func (c *BaseDownloadConfig) ToDownloadParams() (DownloadParams, error) {
	startDate, err := time.Parse(time.RFC3339, c.StartDate)
	if err != nil {
		return DownloadParams{}, errors.Wrap(errors.ErrCodeInvalidDateRange, "failed to parse startDate", err)
	}

	endDate, err := time.Parse(time.RFC3339, c.EndDate)
	if err != nil {
		return DownloadParams{}, errors.Wrap(errors.ErrCodeInvalidDateRange, "failed to parse endDate", err)
	}

	timespan := Timespan(c.Interval)
	if !timespan.IsValid() {
		return DownloadParams{}, errors.Newf(errors.ErrCodeInvalidTimespan, "unsupported interval: %s", c.Interval)
	}

	return DownloadParams{
		Ticker:     c.Ticker,
		StartDate:  startDate,
		EndDate:    endDate,
		Multiplier: timespan.Multiplier(),
		Timespan:   timespan.PolygonTimespan(),
	}, nil
}

// ToClientConfig builds the client configuration for a Polygon download.
func (c *PolygonDownloadConfig) ToClientConfig(dataPath string) ClientConfig {
	return ClientConfig{
		Provider:      provider.TypePolygon,
		WriterType:    WriterDuckDB,
		DataPath:      dataPath,
		PolygonApiKey: c.ApiKey,
	}
}

// ToClientConfig builds the client configuration for a Binance download.
func (c *BinanceDownloadConfig) ToClientConfig(dataPath string) ClientConfig {
	return ClientConfig{
		Provider:      provider.TypeBinance,
		WriterType:    WriterDuckDB,
		DataPath:      dataPath,
		PolygonApiKey: "",
	}
}

// ParsePolygonConfig parses JSON into a validated PolygonDownloadConfig.
func ParsePolygonConfig(jsonConfig string) (*PolygonDownloadConfig, error) {
	var config PolygonDownloadConfig
	if err := json.Unmarshal([]byte(jsonConfig), &config); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfiguration, "failed to parse JSON config", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// ParseBinanceConfig parses JSON into a validated BinanceDownloadConfig.
func ParseBinanceConfig(jsonConfig string) (*BinanceDownloadConfig, error) {
	var config BinanceDownloadConfig
	if err := json.Unmarshal([]byte(jsonConfig), &config); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfiguration, "failed to parse JSON config", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}
