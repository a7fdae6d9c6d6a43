package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/kelseyhightower/envconfig"
)

// Config represents application configuration
type Config struct {
	Campaign CampaignConfig `envconfig:"CAMPAIGN"`
	Ledger   LedgerConfig   `envconfig:"LEDGER"`
	Registry RegistryConfig `envconfig:"REGISTRY"`
	Analyzer AnalyzerConfig `envconfig:"ANALYZER"`
	Cache    CacheConfig    `envconfig:"CACHE"`
	Telegram TelegramConfig `envconfig:"TELEGRAM"`
	Logging  LoggingConfig  `envconfig:"LOGGING"`
}

// CampaignConfig represents the distribution campaign under evaluation
type CampaignConfig struct {
	TargetContract string `envconfig:"CAMPAIGN_TARGET_CONTRACT" required:"true"`
	WalletListPath string `envconfig:"CAMPAIGN_WALLET_LIST" default:"data/potential_wallets.csv"`
	StartDate      string `envconfig:"CAMPAIGN_START_DATE" required:"true"` // YYYY-MM-DD
	ForecastDays   int    `envconfig:"CAMPAIGN_FORECAST_DAYS" default:"7"`

	// Curated audited-contract set, extendable per deployment. Defaults cover
	// the two stablecoins every distribution touches sooner or later.
	AuditedContracts []string `envconfig:"CAMPAIGN_AUDITED_CONTRACTS" default:"0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48,0xdac17f958d2ee523a2206206994597c13d831ec7"`
}

// LedgerConfig represents the ClickHouse ledger-data connection
type LedgerConfig struct {
	Host     string `envconfig:"LEDGER_HOST" default:"localhost"`
	Port     int    `envconfig:"LEDGER_PORT" default:"9000"`
	Database string `envconfig:"LEDGER_DATABASE" default:"eth"`
	User     string `envconfig:"LEDGER_USER" default:"default"`
	Password string `envconfig:"LEDGER_PASSWORD" required:"false"`

	// MaxScanRows caps the pre-flight EXPLAIN ESTIMATE of every analytical
	// query. Queries estimated above the ceiling are aborted before execution.
	MaxScanRows  uint64        `envconfig:"LEDGER_MAX_SCAN_ROWS" default:"500000000"`
	QueryTimeout time.Duration `envconfig:"LEDGER_QUERY_TIMEOUT" default:"5m"`

	CallWindowDays    int `envconfig:"LEDGER_CALL_WINDOW_DAYS" default:"90"`
	MaxDependents     int `envconfig:"LEDGER_MAX_DEPENDENTS" default:"30"`
	GasHistoryDays    int `envconfig:"LEDGER_GAS_HISTORY_DAYS" default:"30"`
	WalletWindowDays  int `envconfig:"LEDGER_WALLET_WINDOW_DAYS" default:"365"`
	ActivityWindowDay int `envconfig:"LEDGER_ACTIVITY_WINDOW_DAYS" default:"90"`
}

// RegistryConfig represents the verified-source registry API
type RegistryConfig struct {
	APIKey  string        `envconfig:"REGISTRY_API_KEY" required:"false"`
	BaseURL string        `envconfig:"REGISTRY_BASE_URL" default:"https://api.etherscan.io/api"`
	Timeout time.Duration `envconfig:"REGISTRY_TIMEOUT" default:"10s"`
}

// AnalyzerConfig represents the static analyzer tool invocation
type AnalyzerConfig struct {
	Binary  string        `envconfig:"ANALYZER_BINARY" default:"slither"`
	Timeout time.Duration `envconfig:"ANALYZER_TIMEOUT" default:"120s"`
}

// CacheConfig represents the Postgres result cache
type CacheConfig struct {
	Enabled        bool   `envconfig:"CACHE_ENABLED" default:"true"`
	Host           string `envconfig:"CACHE_DB_HOST" default:"localhost"`
	Port           int    `envconfig:"CACHE_DB_PORT" default:"5432"`
	Name           string `envconfig:"CACHE_DB_NAME" default:"advisor"`
	User           string `envconfig:"CACHE_DB_USER" required:"false"`
	Password       string `envconfig:"CACHE_DB_PASSWORD" required:"false"`
	SSLMode        string `envconfig:"CACHE_DB_SSLMODE" default:"disable"`
	MigrationsPath string `envconfig:"CACHE_MIGRATIONS_PATH" default:"migrations"`
}

// TelegramConfig represents optional report delivery
type TelegramConfig struct {
	BotToken string `envconfig:"TELEGRAM_BOT_TOKEN" required:"false"`
	ChatID   int64  `envconfig:"TELEGRAM_CHAT_ID" required:"false"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level string `envconfig:"LOG_LEVEL" default:"info"`
	File  string `envconfig:"LOG_FILE" required:"false"`
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	var cfg Config

	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Validate checks if configuration is valid
func (c *Config) Validate() error {
	if !common.IsHexAddress(c.Campaign.TargetContract) {
		return fmt.Errorf("target contract %q is not a valid address", c.Campaign.TargetContract)
	}

	if _, err := time.Parse("2006-01-02", c.Campaign.StartDate); err != nil {
		return fmt.Errorf("campaign start date must be YYYY-MM-DD: %w", err)
	}

	if c.Campaign.ForecastDays < 1 {
		return fmt.Errorf("forecast_days must be at least 1")
	}

	for _, addr := range c.Campaign.AuditedContracts {
		if !common.IsHexAddress(addr) {
			return fmt.Errorf("audited contract %q is not a valid address", addr)
		}
	}

	if c.Ledger.MaxScanRows == 0 {
		return fmt.Errorf("ledger scan ceiling must be positive")
	}
	if c.Ledger.MaxDependents < 1 {
		return fmt.Errorf("max_dependents must be at least 1")
	}

	if c.Cache.Enabled && c.Cache.User == "" {
		return fmt.Errorf("cache database user is required when cache is enabled")
	}

	return nil
}

// NormalizedTarget returns the target contract in lowercase hex form
func (c *CampaignConfig) NormalizedTarget() string {
	return strings.ToLower(common.HexToAddress(c.TargetContract).Hex())
}

// AuditedSet returns the audited contracts as a lowercase lookup set
func (c *CampaignConfig) AuditedSet() map[string]bool {
	set := make(map[string]bool, len(c.AuditedContracts))
	for _, addr := range c.AuditedContracts {
		set[strings.ToLower(common.HexToAddress(addr).Hex())] = true
	}
	return set
}

// CampaignStart parses the campaign start date in UTC
func (c *CampaignConfig) CampaignStart() time.Time {
	t, _ := time.Parse("2006-01-02", c.StartDate)
	return t.UTC()
}

// GetDSN returns ClickHouse connection string
func (c *LedgerConfig) GetDSN() string {
	return fmt.Sprintf(
		"clickhouse://%s:%s@%s:%d/%s",
		c.User, c.Password, c.Host, c.Port, c.Database,
	)
}

// GetDSN returns PostgreSQL connection string
func (c *CacheConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

// IsEnabled returns true if Telegram delivery is configured
func (c *TelegramConfig) IsEnabled() bool {
	return c.BotToken != "" && c.ChatID != 0
}
