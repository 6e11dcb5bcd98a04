package errors

// ErrorCode represents a unique error code for identifying different error types.
type ErrorCode int

const (
	// General errors (1-99)
	ErrCodeUnknown ErrorCode = 1

	// Configuration errors (100-199). Fatal: a simulation never starts with one of these.
	ErrCodeInvalidParameter     ErrorCode = 100
	ErrCodeInvalidConfiguration ErrorCode = 101
	ErrCodeInvalidDateRange     ErrorCode = 102
	ErrCodeMissingParameter     ErrorCode = 103
	ErrCodeIncompatibleSchema   ErrorCode = 104
	ErrCodeInvalidSignal        ErrorCode = 105
	ErrCodeInvalidInterval      ErrorCode = 106

	// Data errors (200-299). Fatal for the run that hit them.
	ErrCodeNoHistoricalData      ErrorCode = 200
	ErrCodeDataSourceUnavailable ErrorCode = 201
	ErrCodeQueryFailed           ErrorCode = 202

	// Collaborator errors (300-399). Abort the current run only; other runs are unaffected.
	ErrCodeCollaborator    ErrorCode = 300
	ErrCodeUnknownStrategy ErrorCode = 301
	ErrCodeFeeQuote        ErrorCode = 302

	// Ledger errors (400-499). Library misuse; signal-level skips are logged, not raised.
	ErrCodeInvalidOrder ErrorCode = 400

	// Backtest run errors (500-599)
	ErrCodeBacktestNotInitialized ErrorCode = 500
	ErrCodeBacktestNoDatasource   ErrorCode = 501
	ErrCodeBacktestNoStrategy     ErrorCode = 502
	ErrCodeBacktestNoResultsDir   ErrorCode = 503

	// Results persistence errors (600-699)
	ErrCodeResultsWrite ErrorCode = 600
	ErrCodeResultsRead  ErrorCode = 601

	// Analysis errors (700-799)
	ErrCodeWalkForward ErrorCode = 700
	ErrCodeMonteCarlo  ErrorCode = 701

	// Market data errors (800-899)
	ErrCodeMarketDataFetchFailed ErrorCode = 800
	ErrCodeMarketDataWriteFailed ErrorCode = 801
	ErrCodeInvalidProvider       ErrorCode = 802
	ErrCodeInvalidTimespan       ErrorCode = 803
)
