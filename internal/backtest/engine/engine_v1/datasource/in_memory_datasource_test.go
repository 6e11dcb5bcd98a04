package datasource

import (
	"testing"
	"time"

	"github.com/moznion/go-optional"
	"github.com/stretchr/testify/suite"

	"github.com/quantra-lab/quantra-backtest/internal/types"
)

type InMemoryDataSourceTestSuite struct {
	suite.Suite
	baseTime time.Time
}

func TestInMemoryDataSourceSuite(t *testing.T) {
	suite.Run(t, new(InMemoryDataSourceTestSuite))
}

func (suite *InMemoryDataSourceTestSuite) SetupSuite() {
	suite.baseTime = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
}

func (suite *InMemoryDataSourceTestSuite) bar(symbol string, offset time.Duration, close float64) types.Bar {
	return types.Bar{
		Symbol: symbol,
		Time:   suite.baseTime.Add(offset),
		Open:   close,
		High:   close,
		Low:    close,
		Close:  close,
		Volume: 100,
	}
}

func (suite *InMemoryDataSourceTestSuite) TestConstructionSortsBars() {
	ds := NewInMemoryDataSource([]types.Bar{
		suite.bar("MSFT", 2*time.Hour, 201),
		suite.bar("AAPL", 0, 100),
		suite.bar("MSFT", 0, 200),
		suite.bar("AAPL", 1*time.Hour, 101),
	})

	bars, err := ds.GetBars(nil, time.Time{}, time.Time{})

	suite.Require().NoError(err)
	suite.Require().Len(bars, 4)
	suite.Equal("AAPL", bars[0].Symbol)
	suite.Equal("MSFT", bars[1].Symbol)
	suite.Equal("AAPL", bars[2].Symbol)
	suite.Equal("MSFT", bars[3].Symbol)
}

func (suite *InMemoryDataSourceTestSuite) TestGetBarsFiltersSymbolAndRange() {
	ds := NewInMemoryDataSource([]types.Bar{
		suite.bar("AAPL", 0, 100),
		suite.bar("AAPL", 1*time.Hour, 101),
		suite.bar("AAPL", 2*time.Hour, 102),
		suite.bar("MSFT", 1*time.Hour, 200),
	})

	bars, err := ds.GetBars([]string{"AAPL"}, suite.baseTime.Add(time.Hour), suite.baseTime.Add(time.Hour))

	suite.Require().NoError(err)
	suite.Require().Len(bars, 1)
	suite.Equal(101.0, bars[0].Close)
}

func (suite *InMemoryDataSourceTestSuite) TestAppendKeepsOrder() {
	ds := NewInMemoryDataSource([]types.Bar{
		suite.bar("AAPL", 1*time.Hour, 101),
	})

	ds.Append(suite.bar("AAPL", 0, 100))

	bars, err := ds.GetBars(nil, time.Time{}, time.Time{})

	suite.Require().NoError(err)
	suite.Require().Len(bars, 2)
	suite.Equal(100.0, bars[0].Close)
	suite.Equal(101.0, bars[1].Close)
}

func (suite *InMemoryDataSourceTestSuite) TestReadAllRange() {
	ds := NewInMemoryDataSource([]types.Bar{
		suite.bar("AAPL", 0, 100),
		suite.bar("AAPL", 1*time.Hour, 101),
		suite.bar("AAPL", 2*time.Hour, 102),
	})

	var closes []float64

	for bar, err := range ds.ReadAll(optional.Some(suite.baseTime.Add(time.Hour)), optional.None[time.Time]()) {
		suite.Require().NoError(err)

		closes = append(closes, bar.Close)
	}

	suite.Equal([]float64{101, 102}, closes)
}

func (suite *InMemoryDataSourceTestSuite) TestReadAllEarlyStop() {
	ds := NewInMemoryDataSource([]types.Bar{
		suite.bar("AAPL", 0, 100),
		suite.bar("AAPL", 1*time.Hour, 101),
	})

	read := 0

	for range ds.ReadAll(optional.None[time.Time](), optional.None[time.Time]()) {
		read++

		break
	}

	suite.Equal(1, read)
}

func (suite *InMemoryDataSourceTestSuite) TestCount() {
	ds := NewInMemoryDataSource([]types.Bar{
		suite.bar("AAPL", 0, 100),
		suite.bar("MSFT", 0, 200),
		suite.bar("AAPL", 1*time.Hour, 101),
	})

	count, err := ds.Count(optional.Some(suite.baseTime.Add(time.Hour)), optional.None[time.Time]())

	suite.Require().NoError(err)
	suite.Equal(1, count)
}

func (suite *InMemoryDataSourceTestSuite) TestSymbolsSorted() {
	ds := NewInMemoryDataSource([]types.Bar{
		suite.bar("MSFT", 0, 200),
		suite.bar("AAPL", 0, 100),
		suite.bar("MSFT", 1*time.Hour, 201),
	})

	symbols, err := ds.Symbols()

	suite.Require().NoError(err)
	suite.Equal([]string{"AAPL", "MSFT"}, symbols)
}

func (suite *InMemoryDataSourceTestSuite) TestInitializeIsNoOp() {
	ds := NewInMemoryDataSource(nil)

	suite.NoError(ds.Initialize("ignored"))
}

func (suite *InMemoryDataSourceTestSuite) TestCloseClearsBars() {
	ds := NewInMemoryDataSource([]types.Bar{
		suite.bar("AAPL", 0, 100),
	})

	suite.Require().NoError(ds.Close())

	count, err := ds.Count(optional.None[time.Time](), optional.None[time.Time]())
	suite.Require().NoError(err)
	suite.Equal(0, count)
}
