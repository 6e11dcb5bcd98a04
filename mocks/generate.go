package mocks

//go:generate mockgen -destination=./mock_datasource.go -package=mocks github.com/quantra-lab/quantra-backtest/internal/backtest/engine/engine_v1/datasource DataSource
//go:generate mockgen -destination=./mock_signal_source.go -package=mocks github.com/quantra-lab/quantra-backtest/internal/strategy SignalSource
//go:generate mockgen -destination=./mock_fee_calculator.go -package=mocks github.com/quantra-lab/quantra-backtest/internal/backtest/engine/engine_v1/fees Calculator
//go:generate mockgen -destination=./mock_provider.go -package=mocks github.com/quantra-lab/quantra-backtest/pkg/marketdata/provider Provider
