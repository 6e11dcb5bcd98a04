// Package marketdata downloads historical bars from external vendors and
// exports them as Parquet files the backtest engine can run on.
package marketdata

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/polygon-io/client-go/rest/models"
	"github.com/quantra-lab/quantra-backtest/pkg/errors"
	"github.com/quantra-lab/quantra-backtest/pkg/marketdata/provider"
	"github.com/quantra-lab/quantra-backtest/pkg/marketdata/writer"
)

// WriterType defines the storage format downloads are written to.
type WriterType string

const (
	WriterDuckDB WriterType = "duckdb"
)

// ClientConfig holds the configuration for the market data client.
type ClientConfig struct {
	Provider      provider.Type `validate:"required,oneof=polygon binance"`
	WriterType    WriterType    `validate:"required,oneof=duckdb"`
	DataPath      string        `validate:"required"`
	PolygonApiKey string        `validate:"required_if=Provider polygon"`
}

// DownloadParams holds the parameters for one download request.
type DownloadParams struct {
	Ticker     string          `validate:"required"`
	StartDate  time.Time       `validate:"required"`
	EndDate    time.Time       `validate:"required,gtfield=StartDate"`
	Multiplier int             `validate:"required,min=1"`
	Timespan   models.Timespan `validate:"required"`
}

// Client orchestrates downloads: it validates requests, provisions the
// writer and drives the configured provider.
type Client struct {
	provider   provider.Provider
	config     ClientConfig
	validate   *validator.Validate
	onProgress provider.OnDownloadProgress
}

// NewClient creates a market data client for the configured provider.
// onProgress may be nil when no progress reporting is wanted.
func NewClient(config ClientConfig, onProgress provider.OnDownloadProgress) (*Client, error) {
	validate := validator.New()
	if err := validate.Struct(config); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid client configuration", err)
	}

	marketProvider, err := provider.New(config.Provider, config.PolygonApiKey)
	if err != nil {
		return nil, err
	}

	return &Client{
		provider:   marketProvider,
		config:     config,
		validate:   validate,
		onProgress: onProgress,
	}, nil
}

// Download fetches the requested bars and returns the path of the exported
// Parquet file.
func (c *Client) Download(ctx context.Context, params DownloadParams) (string, error) {
	if err := c.validate.Struct(params); err != nil {
		return "", errors.Wrap(errors.ErrCodeInvalidParameter, "invalid download parameters", err)
	}

	marketWriter, err := c.setupWriter(params)
	if err != nil {
		return "", err
	}

	// The provider finalizes on success; Close reclaims resources on every
	// other path and is a no-op after a clean Finalize.
	defer func() {
		_ = marketWriter.Close()
	}()

	c.provider.ConfigWriter(marketWriter)

	path, err := c.provider.Download(
		ctx,
		params.Ticker,
		params.StartDate,
		params.EndDate,
		params.Multiplier,
		params.Timespan,
		c.onProgress,
	)
	if err != nil {
		return "", err
	}

	return path, nil
}

// setupWriter provisions the writer the download exports through. The file
// name encodes the request so downloaded files are self-describing:
// TICKER_START_END_MULTIPLIER_TIMESPAN.parquet.
func (c *Client) setupWriter(params DownloadParams) (writer.MarketDataWriter, error) {
	switch c.config.WriterType {
	case WriterDuckDB:
		outputFileName := fmt.Sprintf("%s_%s_%s_%d_%s.parquet",
			params.Ticker,
			params.StartDate.Format("2006-01-02"),
			params.EndDate.Format("2006-01-02"),
			params.Multiplier,
			params.Timespan)

		if err := os.MkdirAll(c.config.DataPath, 0755); err != nil {
			return nil, errors.Wrapf(errors.ErrCodeMarketDataWriteFailed, err, "failed to create data path %s", c.config.DataPath)
		}

		return writer.NewDuckDBWriter(filepath.Join(c.config.DataPath, outputFileName)), nil
	default:
		return nil, errors.Newf(errors.ErrCodeInvalidConfiguration, "unsupported writer type: %s", c.config.WriterType)
	}
}
