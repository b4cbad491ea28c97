package config

import "fmt"

type ServerConfig struct {
	Mode     string `mapstructure:"mode"`
	Timezone string `mapstructure:"timezone"`
}

type DatabaseConfig struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	Username        string `mapstructure:"username"`
	Password        string `mapstructure:"password"`
	Database        string `mapstructure:"database"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`
}

func (d *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		d.Username, d.Password, d.Host, d.Port, d.Database)
}

type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"output_path"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

func (r *RedisConfig) GetAddr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// LedgerConfig configures the read-only ledger RPC client and the
// reconciliation loop that drives it.
type LedgerConfig struct {
	Endpoint             string `mapstructure:"endpoint"`
	APIKey               string `mapstructure:"api_key"`
	PollIntervalSeconds  int    `mapstructure:"poll_interval_seconds"`
	LookbackHours        int    `mapstructure:"lookback_hours"`
	AlertThresholdMins   int    `mapstructure:"alert_threshold_mins"`
	RequestTimeoutSecs   int    `mapstructure:"request_timeout_secs"`
	RetryMaxAttempts     int    `mapstructure:"retry_max_attempts"`
	RetryBaseDelayMillis int    `mapstructure:"retry_base_delay_millis"`
}

// GateConfig configures the external access-control gate client.
type GateConfig struct {
	Endpoint        string `mapstructure:"endpoint"`
	BotToken        string `mapstructure:"bot_token"`
	PollTimeoutSecs int    `mapstructure:"poll_timeout_secs"`
	RequestTTLHours int    `mapstructure:"request_ttl_hours"`
}

// EscrowConfig holds default escrow contract parameters applied to new
// deployments and to entitlements created for payment intents.
type EscrowConfig struct {
	Price           int64  `mapstructure:"price"` // expected amount in minor units
	ToleranceBps    int    `mapstructure:"tolerance_bps"`
	RefundThreshold int64  `mapstructure:"refund_threshold"`
	GasReserve      int64  `mapstructure:"gas_reserve"`
	AccessModel     string `mapstructure:"access_model"` // "expiry" or "lifetime"
	PeriodDays      int    `mapstructure:"period_days"`  // access period when access_model is "expiry"
}
