package version

import (
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/quantra-lab/quantra-backtest/pkg/errors"
)

// CheckSchemaCompatibility checks if a config file's declared schema version is
// compatible with the schema version this build understands.
// Returns nil if compatible, error with details if not.
//
// Compatibility Rules:
//   - If either version is "main" (development build), compatibility check is skipped
//   - Major versions must match exactly
//   - Minor versions must match exactly
//   - Patch versions can differ (e.g., 1.2.0 is compatible with 1.2.5)
//
// Examples:
//   - Engine 1.2.0, Config 1.2.0 -> OK (exact match)
//   - Engine 1.2.1, Config 1.2.0 -> OK (patch differs)
//   - Engine 1.3.0, Config 1.2.0 -> ERROR (minor differs)
//   - Engine 2.0.0, Config 1.2.0 -> ERROR (major differs)
func CheckSchemaCompatibility(engineSchema, configSchema string) error {
	// Strip 'v' prefix if present for consistency
	engineSchema = strings.TrimPrefix(engineSchema, "v")
	configSchema = strings.TrimPrefix(configSchema, "v")

	// Skip version check for "main" (development builds)
	if engineSchema == "main" || configSchema == "main" {
		return nil
	}

	engineSemver, err := semver.NewVersion(engineSchema)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeIncompatibleSchema, err, "invalid engine schema version '%s'", engineSchema)
	}

	configSemver, err := semver.NewVersion(configSchema)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeIncompatibleSchema, err, "invalid config schema version '%s'", configSchema)
	}

	if engineSemver.Major() != configSemver.Major() {
		return errors.Newf(errors.ErrCodeIncompatibleSchema,
			"major schema mismatch: engine understands %d.x.x but config declares %d.x.x",
			engineSemver.Major(), configSemver.Major())
	}

	if engineSemver.Minor() != configSemver.Minor() {
		return errors.Newf(errors.ErrCodeIncompatibleSchema,
			"minor schema mismatch: engine understands %d.%d.x but config declares %d.%d.x",
			engineSemver.Major(), engineSemver.Minor(),
			configSemver.Major(), configSemver.Minor())
	}

	// Patch versions can differ, so we're compatible
	return nil
}
