package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the complete bot configuration.
type Config struct {
	Exchange ExchangeConfig `yaml:"exchange"`
	Funding  FundingConfig  `yaml:"funding"`
	Strategy StrategyConfig `yaml:"strategy"`
	Storage  StorageConfig  `yaml:"storage"`
	Log      LogConfig      `yaml:"log"`
}

// ExchangeConfig holds the REST endpoint and credentials. Credentials come
// from the environment (or .env), never from the YAML file.
type ExchangeConfig struct {
	BaseURL   string `yaml:"base_url"`
	APIKey    string `yaml:"-"`
	APISecret string `yaml:"-"`
}

// FundingConfig controls the reconciliation behavior.
type FundingConfig struct {
	Symbol               string  `yaml:"symbol"`
	Currency             string  `yaml:"currency"`
	IntervalSeconds      int     `yaml:"interval_seconds"`
	StatsIntervalSeconds int     `yaml:"stats_interval_seconds"`
	MinOfferSize         float64 `yaml:"min_offer_size"`
	MinTradable          float64 `yaml:"min_tradable"`
	MaxOfferAmount       float64 `yaml:"max_offer_amount"` // per-offer cap
	KeepFRROffers        bool    `yaml:"keep_frr_offers"`  // exempt FRR offers from cancellation
	PlaceFRROffer        bool    `yaml:"place_frr_offer"`  // maintain one FRR offer
	FRRPeriod            int     `yaml:"frr_period"`
	FeeRate              float64 `yaml:"fee_rate"`
	DeductFees           bool    `yaml:"deduct_fees"`
}

// StrategyConfig selects and tunes the selection policy.
type StrategyConfig struct {
	Policy     string           `yaml:"policy"` // annualized | tiered
	Annualized AnnualizedConfig `yaml:"annualized"`
	Tiered     TieredConfig     `yaml:"tiered"`
}

// AnnualizedConfig tunes the annualized-yield policy.
type AnnualizedConfig struct {
	MinRate             float64 `yaml:"min_rate"`
	RateIncrementPerDay float64 `yaml:"rate_increment_per_day"`
	LookbackMinutes     int     `yaml:"lookback_minutes"`
	Timeframe           string  `yaml:"timeframe"`
}

// TieredConfig tunes the period-bucket policy.
type TieredConfig struct {
	Min30DayRate    float64 `yaml:"min_30day_rate"`
	Min7DayRate     float64 `yaml:"min_7day_rate"`
	MinMidRate      float64 `yaml:"min_mid_rate"`
	MinShortRate    float64 `yaml:"min_short_rate"`
	FloorRate       float64 `yaml:"floor_rate"`
	LookbackMinutes int     `yaml:"lookback_minutes"`
	Timeframe       string  `yaml:"timeframe"`
}

// StorageConfig controls where history is recorded. Empty DSN disables
// recording.
type StorageConfig struct {
	DSN string `yaml:"dsn"`
}

// LogConfig controls logging output.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
}

// Load reads the YAML file and the .env file if present, then applies
// environment overrides and defaults.
func Load(path string) (*Config, error) {
	// Load .env if present (no error when missing)
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config.Load: read %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config.Load: parse YAML: %w", err)
	}

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	return &cfg, nil
}

// ReconcileInterval returns the reconciliation interval as a Duration.
func (c *Config) ReconcileInterval() time.Duration {
	return time.Duration(c.Funding.IntervalSeconds) * time.Second
}

// StatsInterval returns the stats interval as a Duration.
func (c *Config) StatsInterval() time.Duration {
	return time.Duration(c.Funding.StatsIntervalSeconds) * time.Second
}

// AnnualizedLookback returns the annualized policy lookback as a Duration.
func (c *Config) AnnualizedLookback() time.Duration {
	return time.Duration(c.Strategy.Annualized.LookbackMinutes) * time.Minute
}

// TieredLookback returns the tiered policy lookback as a Duration.
func (c *Config) TieredLookback() time.Duration {
	return time.Duration(c.Strategy.Tiered.LookbackMinutes) * time.Minute
}

// Validate checks the fields the bot cannot run without.
func (c *Config) Validate() error {
	if c.Exchange.APIKey == "" || c.Exchange.APISecret == "" {
		return fmt.Errorf("BFX_API_KEY and BFX_API_SECRET are required")
	}
	if c.Strategy.Policy != "annualized" && c.Strategy.Policy != "tiered" {
		return fmt.Errorf("strategy.policy must be %q or %q, got %q", "annualized", "tiered", c.Strategy.Policy)
	}
	if c.Funding.MinOfferSize <= c.Funding.MinTradable {
		return fmt.Errorf("funding.min_offer_size must be above funding.min_tradable")
	}
	if c.Funding.MaxOfferAmount < c.Funding.MinOfferSize {
		return fmt.Errorf("funding.max_offer_amount must be at least funding.min_offer_size")
	}
	if c.Funding.FeeRate < 0 || c.Funding.FeeRate >= 1 {
		return fmt.Errorf("funding.fee_rate must be in [0, 1)")
	}
	return nil
}

// applyEnvOverrides pulls credentials and log settings from the environment.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("BFX_API_KEY"); v != "" {
		cfg.Exchange.APIKey = v
	}
	if v := os.Getenv("BFX_API_SECRET"); v != "" {
		cfg.Exchange.APISecret = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
}

// setDefaults fills in sensible values for anything unset.
func setDefaults(cfg *Config) {
	if cfg.Funding.Symbol == "" {
		cfg.Funding.Symbol = "fUSD"
	}
	if cfg.Funding.Currency == "" {
		cfg.Funding.Currency = "USD"
	}
	if cfg.Funding.IntervalSeconds <= 0 {
		cfg.Funding.IntervalSeconds = 60
	}
	if cfg.Funding.StatsIntervalSeconds <= 0 {
		cfg.Funding.StatsIntervalSeconds = 3600
	}
	if cfg.Funding.MinOfferSize <= 0 {
		cfg.Funding.MinOfferSize = 150
	}
	if cfg.Funding.MinTradable <= 0 {
		cfg.Funding.MinTradable = 1
	}
	if cfg.Funding.MaxOfferAmount <= 0 {
		cfg.Funding.MaxOfferAmount = 1000
	}
	if cfg.Funding.FRRPeriod <= 0 {
		cfg.Funding.FRRPeriod = 30
	}
	if cfg.Funding.FeeRate <= 0 {
		cfg.Funding.FeeRate = 0.15
	}

	if cfg.Strategy.Policy == "" {
		cfg.Strategy.Policy = "annualized"
	}
	if cfg.Strategy.Annualized.MinRate <= 0 {
		cfg.Strategy.Annualized.MinRate = 0.0001
	}
	if cfg.Strategy.Annualized.RateIncrementPerDay <= 0 {
		cfg.Strategy.Annualized.RateIncrementPerDay = 0.00003
	}
	if cfg.Strategy.Annualized.LookbackMinutes <= 0 {
		cfg.Strategy.Annualized.LookbackMinutes = 60
	}
	if cfg.Strategy.Annualized.Timeframe == "" {
		cfg.Strategy.Annualized.Timeframe = "5m"
	}
	if cfg.Strategy.Tiered.Min30DayRate <= 0 {
		cfg.Strategy.Tiered.Min30DayRate = 0.0005
	}
	if cfg.Strategy.Tiered.Min7DayRate <= 0 {
		cfg.Strategy.Tiered.Min7DayRate = 0.0003
	}
	if cfg.Strategy.Tiered.MinMidRate <= 0 {
		cfg.Strategy.Tiered.MinMidRate = 0.0002
	}
	if cfg.Strategy.Tiered.MinShortRate <= 0 {
		cfg.Strategy.Tiered.MinShortRate = 0.00015
	}
	if cfg.Strategy.Tiered.FloorRate <= 0 {
		cfg.Strategy.Tiered.FloorRate = 0.0001
	}
	if cfg.Strategy.Tiered.LookbackMinutes <= 0 {
		cfg.Strategy.Tiered.LookbackMinutes = 15
	}
	if cfg.Strategy.Tiered.Timeframe == "" {
		cfg.Strategy.Tiered.Timeframe = "1m"
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}
