package marketdata_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/moznion/go-optional"
	"github.com/polygon-io/client-go/rest/models"
	"github.com/stretchr/testify/suite"

	"github.com/quantra-lab/quantra-backtest/internal/backtest/engine/engine_v1/datasource"
	"github.com/quantra-lab/quantra-backtest/internal/logger"
	"github.com/quantra-lab/quantra-backtest/pkg/errors"
	"github.com/quantra-lab/quantra-backtest/pkg/marketdata/provider"
	"github.com/quantra-lab/quantra-backtest/pkg/marketdata/writer"
)

// exchangePageSize is the kline page limit of the Binance REST API; a full
// page tells the provider to request the next one.
const exchangePageSize = 500

// mockExchange is a REST stand-in for Binance. It serves canned kline pages
// in order and records every query it receives.
type mockExchange struct {
	server   *httptest.Server
	mu       sync.Mutex
	requests []url.Values
	pages    []string
}

func newMockExchange(pages []string) *mockExchange {
	exchange := &mockExchange{pages: pages}

	router := mux.NewRouter()
	router.HandleFunc("/api/v3/klines", exchange.handleKlines).Methods(http.MethodGet)
	exchange.server = httptest.NewServer(router)

	return exchange
}

func (m *mockExchange) handleKlines(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	defer m.mu.Unlock()

	call := len(m.requests)
	m.requests = append(m.requests, r.URL.Query())

	w.Header().Set("Content-Type", "application/json")

	if call >= len(m.pages) {
		fmt.Fprint(w, "[]")

		return
	}

	fmt.Fprint(w, m.pages[call])
}

func (m *mockExchange) Requests() []url.Values {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([]url.Values(nil), m.requests...)
}

func (m *mockExchange) Close() {
	m.server.Close()
}

// klineRow renders one kline in the exchange wire format.
func klineRow(openTime int64, open, high, low, closePrice, volume string) string {
	return fmt.Sprintf(`[%d,"%s","%s","%s","%s","%s",%d,"0",0,"0","0","0"]`,
		openTime, open, high, low, closePrice, volume, openTime+59999)
}

func klinePage(rows ...string) string {
	return "[" + strings.Join(rows, ",") + "]"
}

// minuteRows renders count one-minute klines with a slowly rising close.
func minuteRows(startMillis int64, count int) []string {
	rows := make([]string, count)
	for i := 0; i < count; i++ {
		closePrice := fmt.Sprintf("%.2f", 42000.0+float64(i))
		rows[i] = klineRow(startMillis+int64(i*60000), "42000.00", "42500.00", "41800.00", closePrice, "1000.5")
	}

	return rows
}

// DownloadE2ETestSuite drives a download end to end: the provider pulls
// klines from a mock exchange, the DuckDB writer exports them to Parquet and
// the backtest data source reads the same bars back.
type DownloadE2ETestSuite struct {
	suite.Suite
}

func TestDownloadE2ETestSuite(t *testing.T) {
	suite.Run(t, new(DownloadE2ETestSuite))
}

// openDataSource attaches a fresh data source to the exported Parquet file.
func (s *DownloadE2ETestSuite) openDataSource(path string) datasource.DataSource {
	l, err := logger.NewLogger()
	s.Require().NoError(err)

	source, err := datasource.NewDataSource(":memory:", l)
	s.Require().NoError(err)
	s.T().Cleanup(func() { _ = source.Close() })

	s.Require().NoError(source.Initialize(path))

	return source
}

func (s *DownloadE2ETestSuite) TestDownloadToParquetRoundTrip() {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(24 * time.Hour)

	exchange := newMockExchange([]string{
		klinePage(
			klineRow(start.UnixMilli(), "42000.50", "42500.00", "41800.00", "42300.00", "1000.5"),
			klineRow(start.UnixMilli()+60000, "42300.00", "42400.00", "42200.00", "42350.00", "500.25"),
			klineRow(start.UnixMilli()+120000, "42350.00", "42600.00", "42300.00", "42500.00", "750.75"),
		),
	})
	defer exchange.Close()

	parquetPath := filepath.Join(s.T().TempDir(), "BTCUSDT_1m.parquet")

	client := provider.NewBinanceClientWithBaseURL(exchange.server.URL)
	client.ConfigWriter(writer.NewDuckDBWriter(parquetPath))

	type progressCall struct {
		current float64
		total   float64
	}

	var progress []progressCall

	path, err := client.Download(context.Background(), "BTCUSDT", start, end, 1, models.Minute,
		func(current, total float64, _ string) {
			progress = append(progress, progressCall{current, total})
		})
	s.Require().NoError(err)
	s.Equal(parquetPath, path)

	// One call for the single page plus the completion call.
	s.Require().Len(progress, 2)
	s.Equal(0.0, progress[0].current)
	s.Equal(progress[1].total, progress[1].current)

	requests := exchange.Requests()
	s.Require().Len(requests, 1)
	s.Equal("BTCUSDT", requests[0].Get("symbol"))
	s.Equal("1m", requests[0].Get("interval"))
	s.Equal(strconv.FormatInt(start.UnixMilli(), 10), requests[0].Get("startTime"))
	s.Equal(strconv.FormatInt(end.UnixMilli(), 10), requests[0].Get("endTime"))

	// The exported file must feed straight into the backtest data source.
	source := s.openDataSource(path)

	symbols, err := source.Symbols()
	s.Require().NoError(err)
	s.Equal([]string{"BTCUSDT"}, symbols)

	count, err := source.Count(optional.None[time.Time](), optional.None[time.Time]())
	s.Require().NoError(err)
	s.Equal(3, count)

	bars, err := source.GetBars([]string{"BTCUSDT"}, time.Time{}, time.Time{})
	s.Require().NoError(err)
	s.Require().Len(bars, 3)

	first := bars[0]
	s.Equal("BTCUSDT", first.Symbol)
	s.True(start.Equal(first.Time))
	s.InDelta(42000.50, first.Open, 1e-9)
	s.InDelta(42500.00, first.High, 1e-9)
	s.InDelta(41800.00, first.Low, 1e-9)
	s.InDelta(42300.00, first.Close, 1e-9)
	s.InDelta(1000.5, first.Volume, 1e-9)

	s.True(start.Add(2 * time.Minute).Equal(bars[2].Time))
	s.InDelta(42500.00, bars[2].Close, 1e-9)
}

func (s *DownloadE2ETestSuite) TestPaginatedDownloadLandsEveryRow() {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(24 * time.Hour)

	secondPageStart := start.UnixMilli() + int64(exchangePageSize*60000)

	exchange := newMockExchange([]string{
		klinePage(minuteRows(start.UnixMilli(), exchangePageSize)...),
		klinePage(minuteRows(secondPageStart, 2)...),
	})
	defer exchange.Close()

	parquetPath := filepath.Join(s.T().TempDir(), "BTCUSDT_paged.parquet")

	client := provider.NewBinanceClientWithBaseURL(exchange.server.URL)
	client.ConfigWriter(writer.NewDuckDBWriter(parquetPath))

	path, err := client.Download(context.Background(), "BTCUSDT", start, end, 1, models.Minute, nil)
	s.Require().NoError(err)

	requests := exchange.Requests()
	s.Require().Len(requests, 2)

	// The second request resumes one millisecond past the last close time.
	wantResume := start.UnixMilli() + int64((exchangePageSize-1)*60000) + 59999 + 1
	s.Equal(strconv.FormatInt(wantResume, 10), requests[1].Get("startTime"))

	source := s.openDataSource(path)

	count, err := source.Count(optional.None[time.Time](), optional.None[time.Time]())
	s.Require().NoError(err)
	s.Equal(exchangePageSize+2, count)

	// Row order and values survive the Parquet round trip.
	bars, err := source.GetBars([]string{"BTCUSDT"}, time.Time{}, time.Time{})
	s.Require().NoError(err)
	s.Require().Len(bars, exchangePageSize+2)

	for i := 1; i < len(bars); i++ {
		s.True(bars[i].Time.After(bars[i-1].Time))
	}

	s.InDelta(42000.0+float64(exchangePageSize-1), bars[exchangePageSize-1].Close, 1e-9)
	s.InDelta(42001.0, bars[len(bars)-1].Close, 1e-9)
}

func (s *DownloadE2ETestSuite) TestTimeRangeQueriesAfterDownload() {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)

	exchange := newMockExchange([]string{
		klinePage(minuteRows(start.UnixMilli(), 60)...),
	})
	defer exchange.Close()

	parquetPath := filepath.Join(s.T().TempDir(), "BTCUSDT_hour.parquet")

	client := provider.NewBinanceClientWithBaseURL(exchange.server.URL)
	client.ConfigWriter(writer.NewDuckDBWriter(parquetPath))

	path, err := client.Download(context.Background(), "BTCUSDT", start, end, 1, models.Minute, nil)
	s.Require().NoError(err)

	source := s.openDataSource(path)

	// A half-open slice of the hour through the bounded query paths.
	from := start.Add(15 * time.Minute)
	to := start.Add(29 * time.Minute)

	bars, err := source.GetBars([]string{"BTCUSDT"}, from, to)
	s.Require().NoError(err)
	s.Len(bars, 15)

	count, err := source.Count(optional.Some(from), optional.Some(to))
	s.Require().NoError(err)
	s.Equal(15, count)

	read := 0
	for bar, err := range source.ReadAll(optional.Some(from), optional.Some(to)) {
		s.Require().NoError(err)
		s.False(bar.Time.Before(from))
		s.False(bar.Time.After(to))

		read++
	}

	s.Equal(15, read)
}

func (s *DownloadE2ETestSuite) TestCancelledDownloadReturnsFetchError() {
	exchange := newMockExchange(nil)
	defer exchange.Close()

	parquetPath := filepath.Join(s.T().TempDir(), "BTCUSDT_cancelled.parquet")

	client := provider.NewBinanceClientWithBaseURL(exchange.server.URL)
	client.ConfigWriter(writer.NewDuckDBWriter(parquetPath))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	_, err := client.Download(ctx, "BTCUSDT", start, start.Add(time.Hour), 1, models.Minute, nil)
	s.Require().Error(err)
	s.True(errors.HasCode(err, errors.ErrCodeMarketDataFetchFailed))

	// Nothing was fetched, so the flushed export holds no rows.
	source := s.openDataSource(parquetPath)

	count, err := source.Count(optional.None[time.Time](), optional.None[time.Time]())
	s.Require().NoError(err)
	s.Zero(count)
}
