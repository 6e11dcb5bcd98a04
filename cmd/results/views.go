package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"

	engine "github.com/quantra-lab/quantra-backtest/internal/backtest/engine/engine_v1"
	"github.com/quantra-lab/quantra-backtest/internal/types"
)

// listItem implements the list.Item interface for the run list.
type listItem struct {
	name        string
	description string
}

func (i listItem) Title() string       { return i.name }
func (i listItem) Description() string { return i.description }
func (i listItem) FilterValue() string { return i.name }

// NewResultList creates the list runs are selected from.
func NewResultList() list.Model {
	delegate := list.NewDefaultDelegate()
	delegate.ShowDescription = true

	l := list.New([]list.Item{}, delegate, 0, 0)
	l.Title = "Select Run"
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(false)
	l.SetShowHelp(false)

	return l
}

// UpdateResultItems replaces the list content with the loaded entries.
func UpdateResultItems(l list.Model, entries []engine.ResultEntry) list.Model {
	items := make([]list.Item, 0, len(entries))

	for _, entry := range entries {
		result := entry.Result
		description := fmt.Sprintf("%s | %s to %s | return %s",
			result.Config.Strategy,
			result.Config.Start.Format("2006-01-02"),
			result.Config.End.Format("2006-01-02"),
			FormatPercent(result.Metrics.TotalReturn))

		items = append(items, listItem{name: result.RunID, description: description})
	}

	l.SetItems(items)

	return l
}

// sparkLevels are the block characters the equity sparkline is drawn with,
// lowest to highest.
var sparkLevels = []rune("▁▂▃▄▅▆▇█")

// EquitySparkline draws the capital column of the equity curve as one row of
// block characters, downsampling evenly when the curve is wider than width.
func EquitySparkline(curve []types.EquityCurvePoint, width int) string {
	if len(curve) == 0 || width <= 0 {
		return ""
	}

	if len(curve) < width {
		width = len(curve)
	}

	// Evenly spaced samples, always ending on the final point.
	samples := make([]float64, width)
	for i := range samples {
		samples[i] = curve[(i+1)*len(curve)/width-1].Capital
	}

	lo, hi := samples[0], samples[0]
	for _, v := range samples[1:] {
		if v < lo {
			lo = v
		}

		if v > hi {
			hi = v
		}
	}

	var s strings.Builder

	for _, v := range samples {
		level := 0
		if hi > lo {
			level = int((v - lo) / (hi - lo) * float64(len(sparkLevels)-1))
		}

		s.WriteRune(sparkLevels[level])
	}

	return s.String()
}

// MetricsView renders the metric block of one run.
func MetricsView(entry engine.ResultEntry) string {
	result := entry.Result

	var s strings.Builder

	line := func(label string, value string) {
		s.WriteString(LabelStyle.Render(label))
		s.WriteString(value)
		s.WriteString("\n")
	}

	line("State", string(result.State))
	line("Strategy", result.Config.Strategy)
	line("Period", fmt.Sprintf("%s to %s",
		result.Config.Start.Format("2006-01-02"), result.Config.End.Format("2006-01-02")))
	line("Initial capital", fmt.Sprintf("%.2f", result.InitialCapital))
	line("Final capital", fmt.Sprintf("%.2f", result.FinalCapital))
	s.WriteString("\n")
	line("Total return", FormatPercent(result.Metrics.TotalReturn))
	line("Annualized return", FormatPercent(result.Metrics.AnnualizedReturn))
	line("Volatility", FormatPercent(result.Metrics.Volatility))
	line("Sharpe ratio", fmt.Sprintf("%.2f", result.Metrics.SharpeRatio))
	line("Sortino ratio", fmt.Sprintf("%.2f", result.Metrics.SortinoRatio))
	line("Max drawdown", FormatPercent(result.Metrics.MaxDrawdown))
	s.WriteString("\n")
	line("Trades", fmt.Sprintf("%d (%d won, %d lost)",
		result.Metrics.TotalTrades, result.Metrics.WinningTrades, result.Metrics.LosingTrades))
	line("Win rate", FormatPercent(result.Metrics.WinRate))
	line("Profit factor", fmt.Sprintf("%.2f", result.Metrics.ProfitFactor))
	line("Gross profit", fmt.Sprintf("%.2f", result.Metrics.GrossProfit))
	line("Gross loss", fmt.Sprintf("%.2f", result.Metrics.GrossLoss))
	line("Total fees", fmt.Sprintf("%.2f", result.Metrics.TotalFees))

	if len(result.EquityCurve) > 1 {
		s.WriteString("\n")
		line("Equity", EquitySparkline(result.EquityCurve, 48))
	}

	s.WriteString("\n")
	line("Folder", entry.Folder)

	return s.String()
}

// NewTradesTable creates the table trades are displayed in.
func NewTradesTable() table.Model {
	columns := []table.Column{
		{Title: "Symbol", Width: 10},
		{Title: "Side", Width: 6},
		{Title: "Entry", Width: 16},
		{Title: "Exit", Width: 16},
		{Title: "Qty", Width: 10},
		{Title: "PnL", Width: 14},
		{Title: "Fees", Width: 10},
		{Title: "Reason", Width: 12},
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(10),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(true)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("229")).
		Background(lipgloss.Color("57")).
		Bold(false)

	t.SetStyles(s)

	return t
}

// UpdateTradeRows fills the table with the trades of the selected run.
func UpdateTradeRows(t table.Model, trades []types.Trade) table.Model {
	rows := make([]table.Row, 0, len(trades))

	for _, trade := range trades {
		rows = append(rows, table.Row{
			trade.Symbol,
			string(trade.Side),
			trade.EntryTime.Format("2006-01-02 15:04"),
			trade.ExitTime.Format("2006-01-02 15:04"),
			fmt.Sprintf("%.4f", trade.Quantity),
			FormatPnL(trade.RealizedPnL),
			fmt.Sprintf("%.2f", trade.Fees),
			string(trade.CloseReason),
		})
	}

	t.SetRows(rows)

	return t
}
