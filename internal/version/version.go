package version

// Version is the current version of the backtest engine.
// This value is set at build time using ldflags:
// -ldflags "-X github.com/quantra-lab/quantra-backtest/internal/version.Version=1.2.3"
// The default value "main" indicates a development build.
var Version = "v1.0.0"

// GetVersion returns the current version of the engine.
func GetVersion() string {
	return Version
}

// SchemaVersion is the config schema version this build understands. Config
// files declare the schema they were written for; the loader rejects files
// whose major.minor differs.
const SchemaVersion = "1.0.0"
