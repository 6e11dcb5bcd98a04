package provider

import (
	"context"
	"fmt"
	"os"
	"time"

	polygon "github.com/polygon-io/client-go/rest"
	"github.com/polygon-io/client-go/rest/models"
	"github.com/quantra-lab/quantra-backtest/internal/types"
	"github.com/quantra-lab/quantra-backtest/pkg/errors"
	"github.com/quantra-lab/quantra-backtest/pkg/marketdata/writer"
)

// polygonPageLimit is the maximum aggregates per page the API allows.
const polygonPageLimit = 50000

// polygonProgressEvery controls how many bars pass between progress reports.
const polygonProgressEvery = 1000

// PolygonAggsIterator is the slice of the polygon aggregate iterator the
// provider consumes.
type PolygonAggsIterator interface {
	Next() bool
	Item() models.Agg
	Err() error
}

// PolygonAPIClient is the slice of the Polygon REST client the provider uses.
type PolygonAPIClient interface {
	ListAggs(ctx context.Context, params *models.ListAggsParams, options ...models.RequestOption) PolygonAggsIterator
}

// polygonClientWrapper adapts *polygon.Client to PolygonAPIClient.
type polygonClientWrapper struct {
	client *polygon.Client
}

func (w *polygonClientWrapper) ListAggs(ctx context.Context, params *models.ListAggsParams, options ...models.RequestOption) PolygonAggsIterator {
	return w.client.ListAggs(ctx, params, options...)
}

// PolygonClient downloads aggregate bars from the Polygon.io REST API.
type PolygonClient struct {
	apiClient PolygonAPIClient
	writer    writer.MarketDataWriter
}

// NewPolygonClient creates a provider authenticated with the given API key.
func NewPolygonClient(apiKey string) (Provider, error) {
	if apiKey == "" {
		return nil, errors.New(errors.ErrCodeInvalidProvider, "apiKey is required for the Polygon provider")
	}

	return NewPolygonClientWithAPI(&polygonClientWrapper{client: polygon.New(apiKey)}), nil
}

// NewPolygonClientWithAPI creates a provider on top of a custom API client.
func NewPolygonClientWithAPI(apiClient PolygonAPIClient) *PolygonClient {
	return &PolygonClient{
		apiClient: apiClient,
		writer:    nil,
	}
}

// ConfigWriter implements Provider.
func (c *PolygonClient) ConfigWriter(w writer.MarketDataWriter) {
	c.writer = w
}

// Download streams aggregates through the paginating iterator and writes
// each bar as it arrives. Progress is reported in whole days covered.
func (c *PolygonClient) Download(ctx context.Context, ticker string, startDate time.Time, endDate time.Time, multiplier int, timespan models.Timespan, onProgress OnDownloadProgress) (string, error) {
	if c.writer == nil {
		return "", errors.New(errors.ErrCodeMarketDataWriteFailed, "no writer configured for PolygonClient, call ConfigWriter first")
	}

	if err := c.writer.Initialize(); err != nil {
		return "", errors.Wrap(errors.ErrCodeMarketDataWriteFailed, "failed to initialize writer", err)
	}

	totalDays := float64(int(endDate.Sub(startDate).Hours()/24) + 1)

	//nolint:exhaustruct // third-party struct with many optional fields
	params := models.ListAggsParams{
		Ticker:     ticker,
		Multiplier: multiplier,
		Timespan:   timespan,
		From:       models.Millis(startDate),
		To:         models.Millis(endDate),
	}.WithLimit(polygonPageLimit)

	iter := c.apiClient.ListAggs(ctx, params)

	processedCount := 0

	for iter.Next() {
		if err := ctx.Err(); err != nil {
			removeOutputIfEmpty(c.writer, processedCount)

			return "", errors.Wrap(errors.ErrCodeMarketDataFetchFailed, "download cancelled", err)
		}

		agg := iter.Item()
		bar := types.Bar{
			Symbol: ticker,
			Time:   time.Time(agg.Timestamp).UTC(),
			Open:   agg.Open,
			High:   agg.High,
			Low:    agg.Low,
			Close:  agg.Close,
			Volume: agg.Volume,
		}

		if err := c.writer.Write(bar); err != nil {
			removeOutputIfEmpty(c.writer, processedCount)

			return "", errors.Wrapf(errors.ErrCodeMarketDataWriteFailed, err, "failed to write bar %s %s", bar.Symbol, bar.Time)
		}

		processedCount++
		if onProgress != nil && processedCount%polygonProgressEvery == 0 {
			daysElapsed := time.Time(agg.Timestamp).Sub(startDate).Hours() / 24
			onProgress(daysElapsed, totalDays, fmt.Sprintf("Downloading %s from Polygon", ticker))
		}
	}

	if err := iter.Err(); err != nil {
		removeOutputIfEmpty(c.writer, processedCount)

		return "", errors.Wrap(errors.ErrCodeMarketDataFetchFailed, "failed to iterate polygon aggregates", err)
	}

	outputPath, err := c.writer.Finalize()
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeMarketDataWriteFailed, "failed to finalize writer", err)
	}

	if onProgress != nil {
		onProgress(totalDays, totalDays, fmt.Sprintf("Finished downloading %d bars for %s from Polygon", processedCount, ticker))
	}

	return outputPath, nil
}

// removeOutputIfEmpty deletes a stale file at the writer's output path when a
// download failed before writing anything, so no empty artifact is left behind.
func removeOutputIfEmpty(w writer.MarketDataWriter, written int) {
	if written > 0 {
		return
	}

	if path := w.GetOutputPath(); path != "" {
		_ = os.Remove(path)
	}
}
