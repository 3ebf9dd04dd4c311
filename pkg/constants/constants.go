// Package constants provides shared constants for the finance-calculators application.
package constants

import "time"

// Financial constants
const (
	// MonthsPerYear is the number of months in a year
	MonthsPerYear = 12

	// MaxTermMonths caps loan and savings terms accepted from users (50 years)
	MaxTermMonths = 600

	// DecimalPrecision is the precision for currency rounding (2 decimal places)
	DecimalPrecision = 100

	// PercentageMultiplier is used for percentage conversions
	PercentageMultiplier = 100.0

	// CurrencyTolerance is the tolerance for currency comparisons (1 cent)
	CurrencyTolerance = 0.01
)

// Output format constants
const (
	// OutputFormatPretty is the human-readable output format
	OutputFormatPretty = "pretty"

	// OutputFormatCSV is the CSV output format
	OutputFormatCSV = "csv"

	// OutputFormatJSON is the JSON output format
	OutputFormatJSON = "json"
)

// Configuration file constants
const (
	// DefaultConfigFile is the default configuration file name
	DefaultConfigFile = "config.yaml"

	// DefaultServerConfigFile is the default server configuration file name
	DefaultServerConfigFile = "server-config.yaml"

	// EnvPrefix prefixes environment overrides, e.g. FINCALC_CACHE_BACKEND.
	EnvPrefix = "FINCALC"
)

// Server configuration defaults
const (
	// DefaultServerAddress is the default HTTP listen address for the API
	DefaultServerAddress = ":8080"

	// DefaultMaxBodySizeBytes is the default maximum request body size (64 KB)
	DefaultMaxBodySizeBytes int64 = 64 * 1024

	// DefaultRateLimitCapacity is the number of requests a client may burst
	DefaultRateLimitCapacity = 60

	// DefaultRateLimitRefill is the period after which a client bucket is refilled
	DefaultRateLimitRefill = time.Minute
)

// Exchange-rate defaults
const (
	// BaseCurrency is the currency every rate is quoted against
	BaseCurrency = "KRW"

	// BridgeCurrency is used to synthesize cross rates
	BridgeCurrency = "USD"

	// DefaultRatesTTL is how long a fetched rate snapshot stays fresh
	DefaultRatesTTL = time.Hour

	// DefaultRatesRefreshInterval is how often the rates service re-fetches
	DefaultRatesRefreshInterval = 30 * time.Minute

	// DefaultRatesTimeout bounds a single upstream fetch
	DefaultRatesTimeout = 10 * time.Second

	// DefaultEximURL is the Korea Eximbank exchange API endpoint
	DefaultEximURL = "https://www.koreaexim.go.kr/site/program/financial/exchangeJSON"

	// DefaultOpenAPIURL is the public multi-currency API endpoint
	DefaultOpenAPIURL = "https://open.er-api.com/v6/latest/KRW"

	// DefaultCacheKeyPrefix namespaces cache keys
	DefaultCacheKeyPrefix = "fincalc:rates"

	// CacheBackendMemory keeps snapshots in process
	CacheBackendMemory = "memory"

	// CacheBackendRedis keeps snapshots in redis
	CacheBackendRedis = "redis"
)

// Commission rates applied on currency exchange
const (
	// DirectCommissionPercent applies to KRW <-> single foreign currency legs
	DirectCommissionPercent = 1.5

	// CrossCommissionPercent applies to foreign <-> foreign paths synthesized through KRW/USD
	CrossCommissionPercent = 2.0
)
