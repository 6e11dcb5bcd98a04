package provider

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/polygon-io/client-go/rest/models"
	"github.com/quantra-lab/quantra-backtest/pkg/errors"
	"github.com/stretchr/testify/suite"
)

// mockPolygonAPIClient implements PolygonAPIClient and records the params of
// the last ListAggs call.
type mockPolygonAPIClient struct {
	iterator   PolygonAggsIterator
	lastParams *models.ListAggsParams
}

func (m *mockPolygonAPIClient) ListAggs(_ context.Context, params *models.ListAggsParams, _ ...models.RequestOption) PolygonAggsIterator {
	m.lastParams = params

	return m.iterator
}

// mockPolygonIterator implements PolygonAggsIterator over a fixed slice.
type mockPolygonIterator struct {
	aggs  []models.Agg
	index int
	err   error
}

func (m *mockPolygonIterator) Next() bool {
	if m.index < len(m.aggs) {
		m.index++

		return true
	}

	return false
}

func (m *mockPolygonIterator) Item() models.Agg {
	if m.index > 0 && m.index <= len(m.aggs) {
		return m.aggs[m.index-1]
	}

	return models.Agg{}
}

func (m *mockPolygonIterator) Err() error {
	return m.err
}

func testAgg(at time.Time, open, high, low, closePrice, volume float64) models.Agg {
	return models.Agg{
		Timestamp: models.Millis(at),
		Open:      open,
		High:      high,
		Low:       low,
		Close:     closePrice,
		Volume:    volume,
	}
}

type PolygonProviderTestSuite struct {
	suite.Suite
}

func TestPolygonProviderSuite(t *testing.T) {
	suite.Run(t, new(PolygonProviderTestSuite))
}

func (suite *PolygonProviderTestSuite) TestNewPolygonClient() {
	client, err := NewPolygonClient("test-api-key")
	suite.Require().NoError(err)
	suite.Require().NotNil(client)

	polygonClient, ok := client.(*PolygonClient)
	suite.Require().True(ok)
	suite.NotNil(polygonClient.apiClient)
	suite.Nil(polygonClient.writer)
}

func (suite *PolygonProviderTestSuite) TestNewPolygonClientEmptyApiKey() {
	client, err := NewPolygonClient("")
	suite.Require().Error(err)
	suite.Nil(client)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidProvider))
	suite.Contains(err.Error(), "apiKey is required")
}

func (suite *PolygonProviderTestSuite) TestNewPolygonClientWithAPI() {
	mockAPI := &mockPolygonAPIClient{}
	client := NewPolygonClientWithAPI(mockAPI)
	suite.Require().NotNil(client)
	suite.Equal(mockAPI, client.apiClient)
	suite.Nil(client.writer)
}

func (suite *PolygonProviderTestSuite) TestConfigWriter() {
	client := NewPolygonClientWithAPI(&mockPolygonAPIClient{})
	suite.Nil(client.writer)

	mockW := &mockWriter{outputPath: "/tmp/test.parquet"}
	client.ConfigWriter(mockW)
	suite.Equal(mockW, client.writer)
}

func (suite *PolygonProviderTestSuite) TestDownloadWithoutWriter() {
	client := NewPolygonClientWithAPI(&mockPolygonAPIClient{})

	startDate := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	endDate := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)

	_, err := client.Download(context.Background(), "SPY", startDate, endDate, 1, models.Minute, nil)
	suite.Require().Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeMarketDataWriteFailed))
	suite.Contains(err.Error(), "no writer configured")
}

func (suite *PolygonProviderTestSuite) TestDownloadWriterInitializeError() {
	client := NewPolygonClientWithAPI(&mockPolygonAPIClient{})
	client.ConfigWriter(&mockWriter{initializeErr: errors.New(errors.ErrCodeMarketDataWriteFailed, "initialization failed")})

	startDate := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	endDate := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)

	_, err := client.Download(context.Background(), "SPY", startDate, endDate, 1, models.Minute, nil)
	suite.Require().Error(err)
	suite.Contains(err.Error(), "failed to initialize writer")
}

func (suite *PolygonProviderTestSuite) TestDownloadSuccess() {
	first := time.Date(2024, 1, 1, 9, 30, 0, 0, time.UTC)
	aggs := []models.Agg{
		testAgg(first, 100.0, 101.0, 99.0, 100.5, 1000000),
		testAgg(first.Add(time.Minute), 100.5, 102.0, 100.0, 101.5, 1500000),
	}

	mockAPI := &mockPolygonAPIClient{iterator: &mockPolygonIterator{aggs: aggs}}
	mockW := &mockWriter{outputPath: "/tmp/test.parquet"}

	client := NewPolygonClientWithAPI(mockAPI)
	client.ConfigWriter(mockW)

	startDate := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	endDate := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

	path, err := client.Download(context.Background(), "SPY", startDate, endDate, 1, models.Minute, nil)
	suite.Require().NoError(err)
	suite.Equal("/tmp/test.parquet", path)
	suite.True(mockW.initialized)
	suite.Require().Len(mockW.written, 2)

	bar := mockW.written[0]
	suite.Equal("SPY", bar.Symbol)
	suite.True(first.Equal(bar.Time))
	suite.InDelta(100.0, bar.Open, 1e-9)
	suite.InDelta(101.0, bar.High, 1e-9)
	suite.InDelta(99.0, bar.Low, 1e-9)
	suite.InDelta(100.5, bar.Close, 1e-9)
	suite.InDelta(1000000, bar.Volume, 1e-9)

	// The aggregate query carries the requested window and resolution.
	suite.Require().NotNil(mockAPI.lastParams)
	suite.Equal("SPY", mockAPI.lastParams.Ticker)
	suite.Equal(1, mockAPI.lastParams.Multiplier)
	suite.Equal(models.Minute, mockAPI.lastParams.Timespan)
	suite.True(startDate.Equal(time.Time(mockAPI.lastParams.From)))
	suite.True(endDate.Equal(time.Time(mockAPI.lastParams.To)))
}

func (suite *PolygonProviderTestSuite) TestDownloadEmptyAggs() {
	mockAPI := &mockPolygonAPIClient{iterator: &mockPolygonIterator{}}
	mockW := &mockWriter{outputPath: "/tmp/empty.parquet"}

	client := NewPolygonClientWithAPI(mockAPI)
	client.ConfigWriter(mockW)

	startDate := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	endDate := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

	path, err := client.Download(context.Background(), "SPY", startDate, endDate, 1, models.Minute, nil)
	suite.Require().NoError(err)
	suite.Equal("/tmp/empty.parquet", path)
	suite.Empty(mockW.written)
	suite.Equal(1, mockW.finalizeCalls)
}

func (suite *PolygonProviderTestSuite) TestDownloadIteratorError() {
	mockAPI := &mockPolygonAPIClient{iterator: &mockPolygonIterator{
		err: errors.New(errors.ErrCodeUnknown, "API rate limit exceeded"),
	}}
	mockW := &mockWriter{outputPath: "/tmp/test.parquet"}

	client := NewPolygonClientWithAPI(mockAPI)
	client.ConfigWriter(mockW)

	startDate := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	endDate := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

	_, err := client.Download(context.Background(), "SPY", startDate, endDate, 1, models.Minute, nil)
	suite.Require().Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeMarketDataFetchFailed))
	suite.Contains(err.Error(), "failed to iterate polygon aggregates")
	suite.Contains(err.Error(), "API rate limit exceeded")
}

func (suite *PolygonProviderTestSuite) TestDownloadWriteError() {
	aggs := []models.Agg{
		testAgg(time.Date(2024, 1, 1, 9, 30, 0, 0, time.UTC), 100.0, 101.0, 99.0, 100.5, 1000000),
	}

	mockAPI := &mockPolygonAPIClient{iterator: &mockPolygonIterator{aggs: aggs}}
	mockW := &mockWriter{writeErr: errors.New(errors.ErrCodeMarketDataWriteFailed, "disk full")}

	client := NewPolygonClientWithAPI(mockAPI)
	client.ConfigWriter(mockW)

	startDate := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	endDate := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

	_, err := client.Download(context.Background(), "SPY", startDate, endDate, 1, models.Minute, nil)
	suite.Require().Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeMarketDataWriteFailed))
	suite.Contains(err.Error(), "failed to write bar")
}

func (suite *PolygonProviderTestSuite) TestDownloadFinalizeError() {
	aggs := []models.Agg{
		testAgg(time.Date(2024, 1, 1, 9, 30, 0, 0, time.UTC), 100.0, 101.0, 99.0, 100.5, 1000000),
	}

	mockAPI := &mockPolygonAPIClient{iterator: &mockPolygonIterator{aggs: aggs}}
	mockW := &mockWriter{finalizeErr: errors.New(errors.ErrCodeMarketDataWriteFailed, "finalize failed")}

	client := NewPolygonClientWithAPI(mockAPI)
	client.ConfigWriter(mockW)

	startDate := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	endDate := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

	_, err := client.Download(context.Background(), "SPY", startDate, endDate, 1, models.Minute, nil)
	suite.Require().Error(err)
	suite.Contains(err.Error(), "failed to finalize writer")
}

// TestDownloadManyBars drives enough bars through the loop to trigger the
// periodic progress reports.
func (suite *PolygonProviderTestSuite) TestDownloadManyBars() {
	baseTime := time.Date(2024, 1, 1, 9, 30, 0, 0, time.UTC)
	aggs := make([]models.Agg, 1500)

	for i := range aggs {
		aggs[i] = testAgg(baseTime.Add(time.Duration(i)*time.Minute), 100.0+float64(i)*0.01, 101.0, 99.0, 100.5, 1000000)
	}

	mockAPI := &mockPolygonAPIClient{iterator: &mockPolygonIterator{aggs: aggs}}
	mockW := &mockWriter{outputPath: "/tmp/large.parquet"}

	client := NewPolygonClientWithAPI(mockAPI)
	client.ConfigWriter(mockW)

	startDate := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	endDate := time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC)

	progressCalls := 0
	path, err := client.Download(context.Background(), "SPY", startDate, endDate, 1, models.Minute, func(current, total float64, message string) {
		progressCalls++
		suite.Contains(message, "SPY")
	})
	suite.Require().NoError(err)
	suite.Equal("/tmp/large.parquet", path)
	suite.Len(mockW.written, 1500)
	// One report at bar 1000 and the completion report.
	suite.Equal(2, progressCalls)
}

// TestDownloadProgressStaysInBounds guards against progress percentages
// running past 100% when minute data spans only a few days.
func (suite *PolygonProviderTestSuite) TestDownloadProgressStaysInBounds() {
	startDate := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	endDate := time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC)
	baseTime := time.Date(2024, 1, 1, 9, 30, 0, 0, time.UTC)

	aggs := make([]models.Agg, 1500)
	for i := range aggs {
		aggs[i] = testAgg(baseTime.Add(time.Duration(i)*time.Minute), 100.0, 101.0, 99.0, 100.5, 1000000)
	}

	mockAPI := &mockPolygonAPIClient{iterator: &mockPolygonIterator{aggs: aggs}}
	mockW := &mockWriter{outputPath: "/tmp/test.parquet"}

	client := NewPolygonClientWithAPI(mockAPI)
	client.ConfigWriter(mockW)

	var maxPercentage float64

	_, err := client.Download(context.Background(), "SPY", startDate, endDate, 1, models.Minute, func(current, total float64, message string) {
		suite.Greater(total, 0.0)
		suite.LessOrEqual(current, total)

		percentage := (current / total) * 100
		if percentage > maxPercentage {
			maxPercentage = percentage
		}
	})
	suite.Require().NoError(err)
	suite.Greater(maxPercentage, 0.0)
	suite.LessOrEqual(maxPercentage, 100.0)
}

// TestDownloadIteratorErrorRemovesEmptyOutput verifies that a stale output
// file is removed when the download fails before writing anything.
func (suite *PolygonProviderTestSuite) TestDownloadIteratorErrorRemovesEmptyOutput() {
	tmpFile, err := os.CreateTemp(suite.T().TempDir(), "polygon_test_*.parquet")
	suite.Require().NoError(err)
	tmpPath := tmpFile.Name()
	suite.Require().NoError(tmpFile.Close())

	mockAPI := &mockPolygonAPIClient{iterator: &mockPolygonIterator{
		err: errors.New(errors.ErrCodeUnknown, "API rate limit exceeded"),
	}}
	mockW := &mockWriter{outputPath: tmpPath}

	client := NewPolygonClientWithAPI(mockAPI)
	client.ConfigWriter(mockW)

	startDate := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	endDate := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

	_, err = client.Download(context.Background(), "SPY", startDate, endDate, 1, models.Minute, nil)
	suite.Require().Error(err)
	suite.Contains(err.Error(), "failed to iterate polygon aggregates")

	_, err = os.Stat(tmpPath)
	suite.True(os.IsNotExist(err), "output file should be removed when nothing was written")
}

// TestDownloadWriteErrorRemovesEmptyOutput verifies cleanup when the very
// first write fails.
func (suite *PolygonProviderTestSuite) TestDownloadWriteErrorRemovesEmptyOutput() {
	tmpFile, err := os.CreateTemp(suite.T().TempDir(), "polygon_test_*.parquet")
	suite.Require().NoError(err)
	tmpPath := tmpFile.Name()
	suite.Require().NoError(tmpFile.Close())

	aggs := []models.Agg{
		testAgg(time.Date(2024, 1, 1, 9, 30, 0, 0, time.UTC), 100.0, 101.0, 99.0, 100.5, 1000000),
	}

	mockAPI := &mockPolygonAPIClient{iterator: &mockPolygonIterator{aggs: aggs}}
	mockW := &mockWriter{
		outputPath: tmpPath,
		writeErr:   errors.New(errors.ErrCodeMarketDataWriteFailed, "disk full"),
	}

	client := NewPolygonClientWithAPI(mockAPI)
	client.ConfigWriter(mockW)

	startDate := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	endDate := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

	_, err = client.Download(context.Background(), "SPY", startDate, endDate, 1, models.Minute, nil)
	suite.Require().Error(err)
	suite.Contains(err.Error(), "failed to write bar")

	_, err = os.Stat(tmpPath)
	suite.True(os.IsNotExist(err), "output file should be removed when nothing was written")
}

// TestDownloadPartialDataKeepsOutput verifies the output file survives an
// error that happens after bars were already written.
func (suite *PolygonProviderTestSuite) TestDownloadPartialDataKeepsOutput() {
	tmpFile, err := os.CreateTemp(suite.T().TempDir(), "polygon_test_*.parquet")
	suite.Require().NoError(err)
	tmpPath := tmpFile.Name()
	suite.Require().NoError(tmpFile.Close())

	first := time.Date(2024, 1, 1, 9, 30, 0, 0, time.UTC)
	aggs := []models.Agg{
		testAgg(first, 100.0, 101.0, 99.0, 100.5, 1000000),
		testAgg(first.Add(time.Minute), 100.5, 102.0, 100.0, 101.5, 1500000),
	}

	mockAPI := &mockPolygonAPIClient{iterator: &mockPolygonIterator{aggs: aggs}}
	mockW := &mockWriter{
		outputPath:     tmpPath,
		writeErr:       errors.New(errors.ErrCodeMarketDataWriteFailed, "disk full"),
		writeErrAfterN: 1,
	}

	client := NewPolygonClientWithAPI(mockAPI)
	client.ConfigWriter(mockW)

	startDate := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	endDate := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

	_, err = client.Download(context.Background(), "SPY", startDate, endDate, 1, models.Minute, nil)
	suite.Require().Error(err)
	suite.Len(mockW.written, 1)

	_, err = os.Stat(tmpPath)
	suite.NoError(err, "output file should be kept once bars were written")
}

func (suite *PolygonProviderTestSuite) TestDownloadCancellation() {
	aggs := []models.Agg{
		testAgg(time.Date(2024, 1, 1, 9, 30, 0, 0, time.UTC), 100.0, 101.0, 99.0, 100.5, 1000000),
	}

	mockAPI := &mockPolygonAPIClient{iterator: &mockPolygonIterator{aggs: aggs}}
	mockW := &mockWriter{outputPath: "/tmp/test.parquet"}

	client := NewPolygonClientWithAPI(mockAPI)
	client.ConfigWriter(mockW)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	startDate := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	endDate := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

	_, err := client.Download(ctx, "SPY", startDate, endDate, 1, models.Minute, nil)
	suite.Require().Error(err)
	suite.ErrorIs(err, context.Canceled)
	suite.Empty(mockW.written)
}

func (suite *PolygonProviderTestSuite) TestDownloadCancellationRemovesEmptyOutput() {
	tmpFile, err := os.CreateTemp(suite.T().TempDir(), "polygon_cancel_*.parquet")
	suite.Require().NoError(err)
	tmpPath := tmpFile.Name()
	suite.Require().NoError(tmpFile.Close())

	aggs := []models.Agg{
		testAgg(time.Date(2024, 1, 1, 9, 30, 0, 0, time.UTC), 100.0, 101.0, 99.0, 100.5, 1000000),
	}

	mockAPI := &mockPolygonAPIClient{iterator: &mockPolygonIterator{aggs: aggs}}
	mockW := &mockWriter{outputPath: tmpPath}

	client := NewPolygonClientWithAPI(mockAPI)
	client.ConfigWriter(mockW)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	startDate := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	endDate := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

	_, err = client.Download(ctx, "SPY", startDate, endDate, 1, models.Minute, nil)
	suite.Require().Error(err)
	suite.ErrorIs(err, context.Canceled)

	_, err = os.Stat(tmpPath)
	suite.True(os.IsNotExist(err), "output file should be removed when cancelled before writing")
}
