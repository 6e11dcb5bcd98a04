package main

import engine "github.com/quantra-lab/quantra-backtest/internal/backtest/engine/engine_v1"

// ResultsLoadedMsg carries the result entries read from the results folder.
type ResultsLoadedMsg struct {
	Entries []engine.ResultEntry
}

// LoadErrorMsg indicates the results folder could not be read.
type LoadErrorMsg struct {
	Err error
}
