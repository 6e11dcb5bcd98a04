package marketdata

import (
	"encoding/json"
	"sort"

	"github.com/invopop/jsonschema"
	"github.com/quantra-lab/quantra-backtest/pkg/errors"
	"github.com/quantra-lab/quantra-backtest/pkg/marketdata/provider"
)

// ProviderInfo describes one supported market data provider.
type ProviderInfo struct {
	Name         string `json:"name"`
	DisplayName  string `json:"displayName"`
	Description  string `json:"description"`
	RequiresAuth bool   `json:"requiresAuth"`
}

// providerRegistry holds metadata about all supported providers.
var providerRegistry = map[provider.Type]ProviderInfo{
	provider.TypePolygon: {
		Name:         string(provider.TypePolygon),
		DisplayName:  "Polygon.io",
		Description:  "US stock market data provider with historical OHLCV aggregates",
		RequiresAuth: true,
	},
	provider.TypeBinance: {
		Name:         string(provider.TypeBinance),
		DisplayName:  "Binance",
		Description:  "Cryptocurrency exchange with kline history for crypto trading pairs",
		RequiresAuth: false,
	},
}

// GetSupportedProviders returns the names of all supported providers,
// sorted for stable output.
func GetSupportedProviders() []string {
	providers := make([]string, 0, len(providerRegistry))
	for providerType := range providerRegistry {
		providers = append(providers, string(providerType))
	}

	sort.Strings(providers)

	return providers
}

// GetProviderInfo returns metadata for a specific provider.
func GetProviderInfo(providerName string) (ProviderInfo, error) {
	info, exists := providerRegistry[provider.Type(providerName)]
	if !exists {
		return ProviderInfo{}, errors.Newf(errors.ErrCodeInvalidProvider, "unsupported provider: %s", providerName)
	}

	return info, nil
}

// GetDownloadConfigSchema returns the JSON schema for a provider's download
// configuration.
func GetDownloadConfigSchema(providerName string) (string, error) {
	switch provider.Type(providerName) {
	case provider.TypePolygon:
		//nolint:exhaustruct // empty struct is intentional for schema generation
		return downloadConfigSchema(PolygonDownloadConfig{})
	case provider.TypeBinance:
		//nolint:exhaustruct // empty struct is intentional for schema generation
		return downloadConfigSchema(BinanceDownloadConfig{})
	default:
		return "", errors.Newf(errors.ErrCodeInvalidProvider, "unsupported provider: %s", providerName)
	}
}

// ParseDownloadConfig parses a JSON configuration string for the given
// provider. The result can be type-asserted to the provider's config type.
func ParseDownloadConfig(providerName string, jsonConfig string) (any, error) {
	switch provider.Type(providerName) {
	case provider.TypePolygon:
		return ParsePolygonConfig(jsonConfig)
	case provider.TypeBinance:
		return ParseBinanceConfig(jsonConfig)
	default:
		return nil, errors.Newf(errors.ErrCodeInvalidProvider, "unsupported provider: %s", providerName)
	}
}

// downloadConfigSchema renders the JSON schema for a download config type.
func downloadConfigSchema(config any) (string, error) {
	reflector := jsonschema.Reflector{
		RequiredFromJSONSchemaTags: true,
		ExpandedStruct:             true,
		AllowAdditionalProperties:  false,
	}

	schema := reflector.Reflect(config)

	schemaBytes, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeUnknown, "failed to marshal schema", err)
	}

	return string(schemaBytes), nil
}
