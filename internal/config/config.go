// Package config defines the data structures related to configuration and
// includes functions for loading, defaulting and validating it.
package config

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/iwvelando/finance-calculators/pkg/amortization"
	"github.com/iwvelando/finance-calculators/pkg/constants"
	"github.com/iwvelando/finance-calculators/pkg/tax"
	"github.com/iwvelando/finance-calculators/pkg/validation"
	"github.com/spf13/viper"
)

// Configuration holds all configuration for finance-calculators.
type Configuration struct {
	Logging  LoggingConfig  `yaml:"logging,omitempty"`
	Output   OutputConfig   `yaml:"output,omitempty"`
	Rates    RatesConfig    `yaml:"rates,omitempty"`
	Cache    CacheConfig    `yaml:"cache,omitempty"`
	Defaults DefaultsConfig `yaml:"defaults,omitempty"`
}

// LoggingConfig holds logging configuration options
type LoggingConfig struct {
	Level      string `yaml:"level,omitempty"`      // debug, info, warn, error
	Format     string `yaml:"format,omitempty"`     // json, console
	OutputFile string `yaml:"outputFile,omitempty"` // optional file output
}

// OutputConfig holds output format configuration options
type OutputConfig struct {
	Format string `yaml:"format,omitempty"` // pretty, csv, json
	Round  *bool  `yaml:"round,omitempty"`  // round figures to whole currency units
}

// RatesConfig configures the upstream exchange-rate providers.
type RatesConfig struct {
	EximURL         string        `yaml:"eximURL,omitempty"`
	EximAuthKey     string        `yaml:"eximAuthKey,omitempty"`
	OpenAPIURL      string        `yaml:"openAPIURL,omitempty"`
	TTL             time.Duration `yaml:"ttl,omitempty"`
	RefreshInterval time.Duration `yaml:"refreshInterval,omitempty"`
	Timeout         time.Duration `yaml:"timeout,omitempty"`
}

// CacheConfig selects where fetched rate snapshots are kept.
type CacheConfig struct {
	Backend   string `yaml:"backend,omitempty"` // memory, redis
	RedisAddr string `yaml:"redisAddr,omitempty"`
	RedisDB   int    `yaml:"redisDB,omitempty"`
	KeyPrefix string `yaml:"keyPrefix,omitempty"`
}

// DefaultsConfig holds form defaults applied when a request omits a field.
type DefaultsConfig struct {
	Policy  string `yaml:"policy,omitempty"`
	TaxKind string `yaml:"taxKind,omitempty"`
}

// LoadConfiguration takes a file path as input and loads the YAML-formatted
// configuration there.
func LoadConfiguration(configPath string) (*Configuration, error) {
	v := newViper()
	v.SetConfigFile(configPath)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file, %s", err)
	}
	return decode(v)
}

// LoadConfigurationFromReader loads YAML configuration from r.
func LoadConfigurationFromReader(r io.Reader) (*Configuration, error) {
	v := newViper()
	if err := v.ReadConfig(r); err != nil {
		return nil, fmt.Errorf("error reading config data, %s", err)
	}
	return decode(v)
}

// Default returns a configuration with every default applied, for running without a file.
func Default() *Configuration {
	conf := &Configuration{}
	conf.ApplyDefaults()
	return conf
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yml")
	v.SetEnvPrefix(constants.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Keys must be known to viper for AutomaticEnv to override them on Unmarshal.
	for _, key := range []string{
		"logging.level", "logging.format", "logging.outputFile",
		"output.format",
		"rates.eximURL", "rates.eximAuthKey", "rates.openAPIURL",
		"rates.ttl", "rates.refreshInterval", "rates.timeout",
		"cache.backend", "cache.redisAddr", "cache.redisDB", "cache.keyPrefix",
		"defaults.policy", "defaults.taxKind",
	} {
		v.SetDefault(key, nil)
	}
	return v
}

func decode(v *viper.Viper) (*Configuration, error) {
	var configuration Configuration
	if err := v.Unmarshal(&configuration); err != nil {
		return nil, fmt.Errorf("unable to decode into struct, %s", err)
	}
	configuration.ApplyDefaults()
	return &configuration, nil
}

// ApplyDefaults fills every unset field with its default.
func (c *Configuration) ApplyDefaults() {
	if c.Output.Format == "" {
		c.Output.Format = constants.OutputFormatPretty
	}
	if c.Output.Round == nil {
		round := true
		c.Output.Round = &round
	}
	if c.Rates.EximURL == "" {
		c.Rates.EximURL = constants.DefaultEximURL
	}
	if c.Rates.OpenAPIURL == "" {
		c.Rates.OpenAPIURL = constants.DefaultOpenAPIURL
	}
	if c.Rates.TTL <= 0 {
		c.Rates.TTL = constants.DefaultRatesTTL
	}
	if c.Rates.RefreshInterval <= 0 {
		c.Rates.RefreshInterval = constants.DefaultRatesRefreshInterval
	}
	if c.Rates.Timeout <= 0 {
		c.Rates.Timeout = constants.DefaultRatesTimeout
	}
	if c.Cache.Backend == "" {
		c.Cache.Backend = constants.CacheBackendMemory
	}
	if c.Cache.KeyPrefix == "" {
		c.Cache.KeyPrefix = constants.DefaultCacheKeyPrefix
	}
	if c.Defaults.Policy == "" {
		c.Defaults.Policy = amortization.EqualPayment.String()
	}
	if c.Defaults.TaxKind == "" {
		c.Defaults.TaxKind = string(tax.TaxGeneral)
	}
}

// ShouldRound reports whether output figures are rounded to whole currency units.
func (c *Configuration) ShouldRound() bool {
	return c.Output.Round == nil || *c.Output.Round
}

// DefaultPolicy returns the configured default repayment policy.
func (c *Configuration) DefaultPolicy() amortization.RepaymentPolicy {
	policy, err := amortization.ParsePolicy(c.Defaults.Policy)
	if err != nil {
		return amortization.EqualPayment
	}
	return policy
}

// ValidateConfiguration performs general validation of the configuration and returns warnings
func (c *Configuration) ValidateConfiguration() []string {
	var warnings []string

	if err := validation.ValidateOutputFormat(c.Output.Format); err != nil {
		warnings = append(warnings, err.Error())
	}
	if _, err := amortization.ParsePolicy(c.Defaults.Policy); err != nil {
		warnings = append(warnings, fmt.Sprintf("defaults.policy: %v; falling back to %s",
			err, amortization.EqualPayment))
	}
	switch tax.InterestTaxKind(c.Defaults.TaxKind) {
	case tax.TaxGeneral, tax.TaxPreferential, tax.TaxFree:
	default:
		warnings = append(warnings, fmt.Sprintf("defaults.taxKind %q is unknown; interest is taxed as %s",
			c.Defaults.TaxKind, tax.TaxGeneral))
	}
	switch c.Cache.Backend {
	case constants.CacheBackendMemory:
	case constants.CacheBackendRedis:
		if c.Cache.RedisAddr == "" {
			warnings = append(warnings, "cache.backend is redis but cache.redisAddr is empty")
		}
	default:
		warnings = append(warnings, fmt.Sprintf("cache.backend %q is unknown; using %s",
			c.Cache.Backend, constants.CacheBackendMemory))
	}
	if c.Rates.EximAuthKey == "" {
		warnings = append(warnings, "rates.eximAuthKey is empty; only the public rate API will be used")
	}
	if c.Rates.RefreshInterval > c.Rates.TTL {
		warnings = append(warnings, fmt.Sprintf("rates.refreshInterval %s exceeds rates.ttl %s; cached rates will expire between refreshes",
			c.Rates.RefreshInterval, c.Rates.TTL))
	}

	return warnings
}
