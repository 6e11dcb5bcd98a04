package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/schollz/progressbar/v3"
	"github.com/urfave/cli/v3"

	"github.com/quantra-lab/quantra-backtest/pkg/marketdata"
	"github.com/quantra-lab/quantra-backtest/pkg/marketdata/provider"
)

// downloadAction parses the flags, sets up the market data client and runs
// the download, rendering provider progress as a terminal bar.
func downloadAction(ctx context.Context, cmd *cli.Command) error {
	ticker := cmd.String("ticker")
	startDate := cmd.Timestamp("start")
	endDate := cmd.Timestamp("end")
	interval := marketdata.Timespan(cmd.String("interval"))
	providerFlag := cmd.String("provider")
	writerFlag := cmd.String("writer")
	dataPath := cmd.String("data")

	if !interval.IsValid() {
		return fmt.Errorf("unsupported interval %q (supported: %v)", interval, marketdata.AllTimespans)
	}

	clientConfig := marketdata.ClientConfig{
		Provider:      provider.Type(providerFlag),
		WriterType:    marketdata.WriterType(writerFlag),
		DataPath:      dataPath,
		PolygonApiKey: os.Getenv("POLYGON_API_KEY"),
	}

	bar := progressbar.Default(100, fmt.Sprintf("Downloading %s", ticker))
	onProgress := func(current float64, total float64, _ string) {
		if total > 0 {
			_ = bar.Set(int(current / total * 100))
		}
	}

	client, err := marketdata.NewClient(clientConfig, onProgress)
	if err != nil {
		return fmt.Errorf("failed to create market data client: %w", err)
	}

	downloadParams := marketdata.DownloadParams{
		Ticker:     ticker,
		StartDate:  startDate,
		EndDate:    endDate,
		Multiplier: interval.Multiplier(),
		Timespan:   interval.PolygonTimespan(),
	}

	log.Printf("Starting download for %s from %s to %s using %s provider and %s writer...",
		ticker, startDate.Format("2006-01-02"), endDate.Format("2006-01-02"), providerFlag, writerFlag)

	path, err := client.Download(ctx, downloadParams)
	if err != nil {
		return fmt.Errorf("download failed: %w", err)
	}

	_ = bar.Finish()
	log.Printf("Download completed: %s", path)

	return nil
}

func main() {
	// Environment files are optional; POLYGON_API_KEY can come from the shell.
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading configuration from environment")
	}

	cmd := &cli.Command{
		Name:  "market",
		Usage: "Download historical market data for backtesting",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "ticker",
				Aliases:  []string{"t"},
				Usage:    "Instrument symbol, e.g. AAPL or BTCUSDT",
				Required: true,
			},
			&cli.TimestampFlag{
				Name:    "start",
				Aliases: []string{"s"},
				Usage:   "Start date in `YYYY-MM-DD` format",
				Config: cli.TimestampConfig{
					Layouts: []string{"2006-01-02"},
				},
				Required: true,
			},
			&cli.TimestampFlag{
				Name:    "end",
				Aliases: []string{"e"},
				Usage:   "End date in `YYYY-MM-DD` format. Defaults to today.",
				Value:   time.Now(),
				Config: cli.TimestampConfig{
					Layouts: []string{"2006-01-02"},
				},
			},
			&cli.StringFlag{
				Name:    "interval",
				Aliases: []string{"i"},
				Usage:   "Bar interval, e.g. 1m, 15m, 1h, 1d",
				Value:   string(marketdata.TimespanOneMinute),
			},
			&cli.StringFlag{
				Name:    "provider",
				Aliases: []string{"p"},
				Usage:   fmt.Sprintf("Data provider to use (e.g., %s, %s)", provider.TypePolygon, provider.TypeBinance),
				Value:   string(provider.TypePolygon),
			},
			&cli.StringFlag{
				Name:    "writer",
				Aliases: []string{"w"},
				Usage:   fmt.Sprintf("Data writer format (e.g., %s)", marketdata.WriterDuckDB),
				Value:   string(marketdata.WriterDuckDB),
			},
			&cli.StringFlag{
				Name:    "data",
				Aliases: []string{"d"},
				Usage:   "Path to the data output directory",
				Value:   "data",
			},
		},
		Action: downloadAction,
	}

	// Ctrl-C cancels an in-flight download; partial output with no rows is removed.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cmd.Run(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}
