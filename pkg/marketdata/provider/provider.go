package provider

import (
	"context"
	"time"

	"github.com/polygon-io/client-go/rest/models"
	"github.com/quantra-lab/quantra-backtest/pkg/errors"
	"github.com/quantra-lab/quantra-backtest/pkg/marketdata/writer"
)

// Type identifies a market data provider backend.
type Type string

const (
	TypePolygon Type = "polygon"
	TypeBinance Type = "binance"
)

// OnDownloadProgress reports download progress. Current and total are in
// provider-specific units (elapsed milliseconds for Binance, elapsed days
// for Polygon); callers should only rely on the current/total ratio.
type OnDownloadProgress = func(current float64, total float64, message string)

// Provider downloads historical bars from one data vendor and hands them to
// the configured writer.
type Provider interface {
	// ConfigWriter sets the destination the next Download writes into.
	ConfigWriter(w writer.MarketDataWriter)
	// Download fetches bars for ticker between startDate and endDate at the
	// given resolution and returns the path the writer exported to.
	// Cancelling the context aborts the download.
	Download(ctx context.Context, ticker string, startDate time.Time, endDate time.Time, multiplier int, timespan models.Timespan, onProgress OnDownloadProgress) (path string, err error)
}

// New creates a provider for the given backend. The apiKey is only needed
// by backends that authenticate, currently Polygon.
func New(providerType Type, apiKey string) (Provider, error) {
	switch providerType {
	case TypeBinance:
		return NewBinanceClient()
	case TypePolygon:
		return NewPolygonClient(apiKey)
	default:
		return nil, errors.Newf(errors.ErrCodeInvalidProvider, "unsupported market data provider: %s", providerType)
	}
}
