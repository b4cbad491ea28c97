package config

import (
	"fmt"
	"strings"
	"sync"

	"github.com/spf13/viper"

	sharedConfig "github.com/tonpass-inc/tonpass/internal/shared/config"
)

type Config struct {
	Server   sharedConfig.ServerConfig   `mapstructure:"server"`
	Database sharedConfig.DatabaseConfig `mapstructure:"database"`
	Logger   sharedConfig.LoggerConfig   `mapstructure:"logger"`
	Redis    sharedConfig.RedisConfig    `mapstructure:"redis"`
	Ledger   sharedConfig.LedgerConfig   `mapstructure:"ledger"`
	Gate     sharedConfig.GateConfig     `mapstructure:"gate"`
	Escrow   sharedConfig.EscrowConfig   `mapstructure:"escrow"`
}

var (
	appConfig   *Config
	appConfigMu sync.RWMutex
)

// Load loads configuration from file and environment variables
func Load(env string) (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath("../configs")
	viper.AddConfigPath("../../configs")

	viper.SetEnvPrefix("TONPASS")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Allow env parameter to override server mode if provided
	if env != "" && env != "default" {
		viper.Set("server.mode", env)
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	appConfigMu.Lock()
	appConfig = &config
	appConfigMu.Unlock()

	return &config, nil
}

// Get returns the loaded configuration
func Get() *Config {
	appConfigMu.RLock()
	defer appConfigMu.RUnlock()
	return appConfig
}

// setDefaults sets default configuration values
func setDefaults() {
	// Server defaults
	viper.SetDefault("server.mode", "debug")
	viper.SetDefault("server.timezone", "UTC")

	// Database defaults
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 3306)
	viper.SetDefault("database.username", "root")
	viper.SetDefault("database.password", "password")
	viper.SetDefault("database.database", "tonpass_dev")
	viper.SetDefault("database.max_idle_conns", 10)
	viper.SetDefault("database.max_open_conns", 100)
	viper.SetDefault("database.conn_max_lifetime", 60)

	// Logger defaults
	viper.SetDefault("logger.level", "info")
	viper.SetDefault("logger.format", "console")
	viper.SetDefault("logger.output_path", "stdout")

	// Redis defaults
	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)

	// Ledger defaults
	viper.SetDefault("ledger.endpoint", "https://toncenter.com/api/v2")
	viper.SetDefault("ledger.api_key", "")
	viper.SetDefault("ledger.poll_interval_seconds", 30)
	viper.SetDefault("ledger.lookback_hours", 24)
	viper.SetDefault("ledger.alert_threshold_mins", 5)
	viper.SetDefault("ledger.request_timeout_secs", 15)
	viper.SetDefault("ledger.retry_max_attempts", 3)
	viper.SetDefault("ledger.retry_base_delay_millis", 500)

	// Gate defaults
	viper.SetDefault("gate.endpoint", "https://api.telegram.org")
	viper.SetDefault("gate.bot_token", "")
	viper.SetDefault("gate.poll_timeout_secs", 30)
	viper.SetDefault("gate.request_ttl_hours", 48)

	// Escrow defaults
	viper.SetDefault("escrow.price", 5_000_000_000)
	viper.SetDefault("escrow.tolerance_bps", 100)
	viper.SetDefault("escrow.refund_threshold", 100_000_000)
	viper.SetDefault("escrow.gas_reserve", 50_000_000)
	viper.SetDefault("escrow.access_model", "expiry")
	viper.SetDefault("escrow.period_days", 30)
}
