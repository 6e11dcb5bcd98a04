package provider

import (
	"context"
	"fmt"
	"strconv"
	"time"

	binance "github.com/adshao/go-binance/v2"
	"github.com/polygon-io/client-go/rest/models"
	"github.com/quantra-lab/quantra-backtest/internal/types"
	"github.com/quantra-lab/quantra-backtest/pkg/errors"
	"github.com/quantra-lab/quantra-backtest/pkg/marketdata/writer"
)

// binancePageSize is the number of klines the exchange returns per request.
const binancePageSize = 500

// BinanceKlinesService mirrors the fluent kline query from go-binance so
// tests can stub the exchange.
type BinanceKlinesService interface {
	Symbol(symbol string) BinanceKlinesService
	Interval(interval string) BinanceKlinesService
	StartTime(startTime int64) BinanceKlinesService
	EndTime(endTime int64) BinanceKlinesService
	Do(ctx context.Context) ([]*binance.Kline, error)
}

// BinanceAPIClient is the slice of the Binance client the provider uses.
type BinanceAPIClient interface {
	NewKlinesService() BinanceKlinesService
}

// binanceClientWrapper adapts *binance.Client to BinanceAPIClient.
type binanceClientWrapper struct {
	client *binance.Client
}

func (w *binanceClientWrapper) NewKlinesService() BinanceKlinesService {
	return &binanceKlinesServiceWrapper{service: w.client.NewKlinesService()}
}

type binanceKlinesServiceWrapper struct {
	service *binance.KlinesService
}

func (s *binanceKlinesServiceWrapper) Symbol(symbol string) BinanceKlinesService {
	s.service = s.service.Symbol(symbol)

	return s
}

func (s *binanceKlinesServiceWrapper) Interval(interval string) BinanceKlinesService {
	s.service = s.service.Interval(interval)

	return s
}

func (s *binanceKlinesServiceWrapper) StartTime(startTime int64) BinanceKlinesService {
	s.service = s.service.StartTime(startTime)

	return s
}

func (s *binanceKlinesServiceWrapper) EndTime(endTime int64) BinanceKlinesService {
	s.service = s.service.EndTime(endTime)

	return s
}

func (s *binanceKlinesServiceWrapper) Do(ctx context.Context) ([]*binance.Kline, error) {
	return s.service.Do(ctx)
}

// BinanceClient downloads klines from the Binance public market data API.
type BinanceClient struct {
	apiClient BinanceAPIClient
	writer    writer.MarketDataWriter
}

// NewBinanceClient creates a provider backed by the public Binance API.
// Historical klines need no credentials.
func NewBinanceClient() (Provider, error) {
	return NewBinanceClientWithAPI(&binanceClientWrapper{client: binance.NewClient("", "")}), nil
}

// NewBinanceClientWithAPI creates a provider on top of a custom API client.
func NewBinanceClientWithAPI(apiClient BinanceAPIClient) *BinanceClient {
	return &BinanceClient{
		apiClient: apiClient,
		writer:    nil,
	}
}

// NewBinanceClientWithBaseURL creates a provider that talks to an alternate
// REST endpoint, e.g. a regional mirror or a test server.
func NewBinanceClientWithBaseURL(baseURL string) *BinanceClient {
	client := binance.NewClient("", "")
	client.BaseURL = baseURL

	return NewBinanceClientWithAPI(&binanceClientWrapper{client: client})
}

// ConfigWriter implements Provider.
func (c *BinanceClient) ConfigWriter(w writer.MarketDataWriter) {
	c.writer = w
}

// Download pages through klines for the ticker and writes each page before
// fetching the next. When a fetch or write fails mid-stream the writer is
// still finalized so the pages already fetched are kept.
func (c *BinanceClient) Download(ctx context.Context, ticker string, startDate time.Time, endDate time.Time, multiplier int, timespan models.Timespan, onProgress OnDownloadProgress) (string, error) {
	interval, err := convertTimespanToBinanceInterval(timespan, multiplier)
	if err != nil {
		return "", err
	}

	if c.writer == nil {
		return "", errors.New(errors.ErrCodeMarketDataWriteFailed, "writer is not configured, call ConfigWriter first")
	}

	if err := c.writer.Initialize(); err != nil {
		return "", errors.Wrap(errors.ErrCodeMarketDataWriteFailed, "failed to initialize writer", err)
	}

	// Binance timestamps are milliseconds.
	startTimeMillis := startDate.UnixMilli()
	endTimeMillis := endDate.UnixMilli()

	// The exchange caps each response at binancePageSize klines, so resume
	// each request from just past the close time of the last kline received.
	currentStartTime := startTimeMillis

	for {
		klines, err := c.apiClient.NewKlinesService().
			Symbol(ticker).
			Interval(interval).
			StartTime(currentStartTime).
			EndTime(endTimeMillis).
			Do(ctx)
		if err != nil {
			return "", finalizeAfterError(c.writer, errors.Wrap(errors.ErrCodeMarketDataFetchFailed, "failed to fetch klines from Binance", err))
		}

		if onProgress != nil {
			onProgress(float64(currentStartTime-startTimeMillis), float64(endTimeMillis-startTimeMillis), fmt.Sprintf("Downloading %s klines from Binance", ticker))
		}

		if err := processKlines(c.writer, ticker, klines); err != nil {
			return "", finalizeAfterError(c.writer, err)
		}

		// A short page is the last one.
		if len(klines) < binancePageSize {
			break
		}

		lastKline := klines[len(klines)-1]
		currentStartTime = lastKline.CloseTime + 1

		if currentStartTime >= endTimeMillis {
			break
		}
	}

	outputPath, err := c.writer.Finalize()
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeMarketDataWriteFailed, "failed to finalize writer", err)
	}

	if onProgress != nil {
		total := float64(endTimeMillis - startTimeMillis)
		onProgress(total, total, fmt.Sprintf("Finished downloading %s klines from Binance", ticker))
	}

	return outputPath, nil
}

// finalizeAfterError finalizes the writer after a download error so the
// pages already fetched are flushed, folding a finalize failure into the
// returned error.
func finalizeAfterError(w writer.MarketDataWriter, downloadErr error) error {
	if _, finalizeErr := w.Finalize(); finalizeErr != nil {
		return errors.Wrapf(errors.GetCode(downloadErr), downloadErr, "download failed; also failed to finalize writer: %v", finalizeErr)
	}

	return downloadErr
}

// processKlines converts one page of klines into bars and writes them.
// Binance serves prices as strings; unparseable fields become zero.
func processKlines(w writer.MarketDataWriter, ticker string, klines []*binance.Kline) error {
	for _, k := range klines {
		open, _ := strconv.ParseFloat(k.Open, 64)
		high, _ := strconv.ParseFloat(k.High, 64)
		low, _ := strconv.ParseFloat(k.Low, 64)
		closePrice, _ := strconv.ParseFloat(k.Close, 64)
		volume, _ := strconv.ParseFloat(k.Volume, 64)

		bar := types.Bar{
			Symbol: ticker,
			// The open time stamps the bar, matching how the backtest
			// engine buckets timestamps.
			Time:   time.UnixMilli(k.OpenTime).UTC(),
			Open:   open,
			High:   high,
			Low:    low,
			Close:  closePrice,
			Volume: volume,
		}

		if err := w.Write(bar); err != nil {
			return errors.Wrap(errors.ErrCodeMarketDataWriteFailed, "failed to write market data", err)
		}
	}

	return nil
}

// convertTimespanToBinanceInterval maps a polygon-style resolution onto the
// Binance interval notation (1s, 1m, 3m, ..., 1d, 3d, 1w, 1M).
func convertTimespanToBinanceInterval(timespan models.Timespan, multiplier int) (string, error) {
	switch timespan {
	case models.Second:
		if multiplier == 1 {
			return "1s", nil
		}

		return "", errors.Newf(errors.ErrCodeInvalidTimespan, "unsupported second multiplier for Binance: %d", multiplier)
	case models.Minute:
		return fmt.Sprintf("%dm", multiplier), nil
	case models.Hour:
		return fmt.Sprintf("%dh", multiplier), nil
	case models.Day:
		return fmt.Sprintf("%dd", multiplier), nil
	case models.Week:
		if multiplier == 1 {
			return "1w", nil
		}

		return "", errors.Newf(errors.ErrCodeInvalidTimespan, "unsupported weekly multiplier for Binance: %d", multiplier)
	case models.Month:
		if multiplier == 1 {
			return "1M", nil
		}

		return "", errors.Newf(errors.ErrCodeInvalidTimespan, "unsupported monthly multiplier for Binance: %d", multiplier)
	default:
		return "", errors.Newf(errors.ErrCodeInvalidTimespan, "unsupported timespan for Binance: %s", timespan)
	}
}
