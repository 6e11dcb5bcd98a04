package marketdata

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/polygon-io/client-go/rest/models"
	"github.com/quantra-lab/quantra-backtest/mocks"
	"github.com/quantra-lab/quantra-backtest/pkg/errors"
	"github.com/quantra-lab/quantra-backtest/pkg/marketdata/provider"
	"github.com/quantra-lab/quantra-backtest/pkg/marketdata/writer"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"
)

type ClientTestSuite struct {
	suite.Suite
	ctrl         *gomock.Controller
	mockProvider *mocks.MockProvider
	tempDir      string
}

func (suite *ClientTestSuite) SetupSuite() {
	tempDir, err := os.MkdirTemp("", "marketdata-client-test")
	suite.Require().NoError(err)
	suite.tempDir = tempDir
}

func (suite *ClientTestSuite) TearDownSuite() {
	if suite.tempDir != "" {
		os.RemoveAll(suite.tempDir)
	}
}

func (suite *ClientTestSuite) SetupTest() {
	suite.ctrl = gomock.NewController(suite.T())
	suite.mockProvider = mocks.NewMockProvider(suite.ctrl)
}

func (suite *ClientTestSuite) TearDownTest() {
	suite.ctrl.Finish()
}

// newClientWithMock builds a client around the mocked provider, skipping the
// provider construction NewClient would do.
func (suite *ClientTestSuite) newClientWithMock() *Client {
	return &Client{
		provider: suite.mockProvider,
		config: ClientConfig{
			Provider:   provider.TypePolygon,
			WriterType: WriterDuckDB,
			DataPath:   suite.tempDir,
		},
		validate:   validator.New(),
		onProgress: nil,
	}
}

func (suite *ClientTestSuite) TestClientDownload() {
	startDate := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	endDate := time.Date(2023, 1, 31, 0, 0, 0, 0, time.UTC)

	testCases := []struct {
		name        string
		params      DownloadParams
		setupMock   func()
		expectError bool
		wantPath    string
	}{
		{
			name: "successful download",
			params: DownloadParams{
				Ticker:     "AAPL",
				StartDate:  startDate,
				EndDate:    endDate,
				Multiplier: 1,
				Timespan:   models.Minute,
			},
			setupMock: func() {
				suite.mockProvider.EXPECT().
					ConfigWriter(gomock.Any()).
					Do(func(w writer.MarketDataWriter) {
						// The file name encodes the request.
						suite.True(strings.HasSuffix(w.GetOutputPath(), "AAPL_2023-01-01_2023-01-31_1_minute.parquet"))
					}).
					Times(1)

				suite.mockProvider.EXPECT().
					Download(
						gomock.Any(),
						"AAPL",
						startDate,
						endDate,
						1,
						models.Minute,
						gomock.Any(),
					).
					Return("path/to/data.parquet", nil).
					Times(1)
			},
			expectError: false,
			wantPath:    "path/to/data.parquet",
		},
		{
			name: "download error",
			params: DownloadParams{
				Ticker:     "INVALID",
				StartDate:  startDate,
				EndDate:    endDate,
				Multiplier: 1,
				Timespan:   models.Minute,
			},
			setupMock: func() {
				suite.mockProvider.EXPECT().
					ConfigWriter(gomock.Any()).
					Times(1)

				suite.mockProvider.EXPECT().
					Download(
						gomock.Any(),
						"INVALID",
						startDate,
						endDate,
						1,
						models.Minute,
						gomock.Any(),
					).
					Return("", errors.New(errors.ErrCodeMarketDataFetchFailed, "ticker not found")).
					Times(1)
			},
			expectError: true,
			wantPath:    "",
		},
	}

	for _, tc := range testCases {
		suite.Run(tc.name, func() {
			tc.setupMock()

			client := suite.newClientWithMock()

			path, err := client.Download(context.Background(), tc.params)

			if tc.expectError {
				suite.Error(err)
			} else {
				suite.NoError(err)
				suite.Equal(tc.wantPath, path)
			}
		})
	}
}

func (suite *ClientTestSuite) TestClientDownloadInvalidParams() {
	// No provider expectations: validation fails before any provider call.
	client := suite.newClientWithMock()

	params := DownloadParams{
		Ticker:     "AAPL",
		StartDate:  time.Date(2023, 1, 31, 0, 0, 0, 0, time.UTC),
		EndDate:    time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
		Multiplier: 1,
		Timespan:   models.Minute,
	}

	_, err := client.Download(context.Background(), params)
	suite.Require().Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidParameter))
	suite.Contains(err.Error(), "invalid download parameters")
}

func (suite *ClientTestSuite) TestNewClient() {
	testCases := []struct {
		name          string
		config        ClientConfig
		expectError   bool
		errorContains string
	}{
		{
			name: "valid binance config",
			config: ClientConfig{
				Provider:   provider.TypeBinance,
				WriterType: WriterDuckDB,
				DataPath:   suite.tempDir,
			},
			expectError: false,
		},
		{
			name: "valid polygon config",
			config: ClientConfig{
				Provider:      provider.TypePolygon,
				WriterType:    WriterDuckDB,
				DataPath:      suite.tempDir,
				PolygonApiKey: "test-api-key",
			},
			expectError: false,
		},
		{
			name: "missing provider",
			config: ClientConfig{
				WriterType:    WriterDuckDB,
				DataPath:      suite.tempDir,
				PolygonApiKey: "test-api-key",
			},
			expectError:   true,
			errorContains: "invalid client configuration",
		},
		{
			name: "unknown provider",
			config: ClientConfig{
				Provider:      "unknown",
				WriterType:    WriterDuckDB,
				DataPath:      suite.tempDir,
				PolygonApiKey: "test-api-key",
			},
			expectError:   true,
			errorContains: "invalid client configuration",
		},
		{
			name: "missing writer type",
			config: ClientConfig{
				Provider:      provider.TypePolygon,
				DataPath:      suite.tempDir,
				PolygonApiKey: "test-api-key",
			},
			expectError:   true,
			errorContains: "invalid client configuration",
		},
		{
			name: "missing data path",
			config: ClientConfig{
				Provider:      provider.TypePolygon,
				WriterType:    WriterDuckDB,
				PolygonApiKey: "test-api-key",
			},
			expectError:   true,
			errorContains: "invalid client configuration",
		},
		{
			name: "missing polygon api key",
			config: ClientConfig{
				Provider:   provider.TypePolygon,
				WriterType: WriterDuckDB,
				DataPath:   suite.tempDir,
			},
			expectError:   true,
			errorContains: "invalid client configuration",
		},
	}

	for _, tc := range testCases {
		suite.Run(tc.name, func() {
			client, err := NewClient(tc.config, nil)

			if tc.expectError {
				suite.Require().Error(err)
				suite.Nil(client)
				suite.True(errors.HasCode(err, errors.ErrCodeInvalidConfiguration))
				suite.Contains(err.Error(), tc.errorContains)
			} else {
				suite.Require().NoError(err)
				suite.NotNil(client)
			}
		})
	}
}

func (suite *ClientTestSuite) TestDownloadParamsValidation() {
	now := time.Now()

	testCases := []struct {
		name        string
		params      DownloadParams
		expectError bool
		errorField  string
	}{
		{
			name: "valid download params",
			params: DownloadParams{
				Ticker:     "AAPL",
				StartDate:  now.Add(-24 * time.Hour),
				EndDate:    now,
				Multiplier: 1,
				Timespan:   models.Minute,
			},
			expectError: false,
		},
		{
			name: "missing ticker",
			params: DownloadParams{
				StartDate:  now.Add(-24 * time.Hour),
				EndDate:    now,
				Multiplier: 1,
				Timespan:   models.Minute,
			},
			expectError: true,
			errorField:  "Ticker",
		},
		{
			name: "missing start date",
			params: DownloadParams{
				Ticker:     "AAPL",
				EndDate:    now,
				Multiplier: 1,
				Timespan:   models.Minute,
			},
			expectError: true,
			errorField:  "StartDate",
		},
		{
			name: "end date before start date",
			params: DownloadParams{
				Ticker:     "AAPL",
				StartDate:  now,
				EndDate:    now.Add(-24 * time.Hour),
				Multiplier: 1,
				Timespan:   models.Minute,
			},
			expectError: true,
			errorField:  "EndDate",
		},
		{
			name: "missing multiplier",
			params: DownloadParams{
				Ticker:    "AAPL",
				StartDate: now.Add(-24 * time.Hour),
				EndDate:   now,
				Timespan:  models.Minute,
			},
			expectError: true,
			errorField:  "Multiplier",
		},
		{
			name: "zero multiplier",
			params: DownloadParams{
				Ticker:     "AAPL",
				StartDate:  now.Add(-24 * time.Hour),
				EndDate:    now,
				Multiplier: 0,
				Timespan:   models.Minute,
			},
			expectError: true,
			errorField:  "Multiplier",
		},
		{
			name: "missing timespan",
			params: DownloadParams{
				Ticker:     "AAPL",
				StartDate:  now.Add(-24 * time.Hour),
				EndDate:    now,
				Multiplier: 1,
			},
			expectError: true,
			errorField:  "Timespan",
		},
	}

	validate := validator.New()

	for _, tc := range testCases {
		suite.Run(tc.name, func() {
			err := validate.Struct(tc.params)

			if tc.expectError {
				suite.Require().Error(err)
				suite.Contains(err.Error(), tc.errorField)
			} else {
				suite.NoError(err)
			}
		})
	}
}

func TestClientSuite(t *testing.T) {
	suite.Run(t, new(ClientTestSuite))
}
