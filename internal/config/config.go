// Package config provides configuration management using viper.
// It supports loading from YAML files and environment variable overrides.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"werewolf-bot/internal/game/werewolf"
)

// Config holds all application configuration.
type Config struct {
	Bot       BotConfig       `mapstructure:"bot"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Admin     AdminConfig     `mapstructure:"admin"`
	Whitelist WhitelistConfig `mapstructure:"whitelist"`
	Werewolf  WerewolfConfig  `mapstructure:"werewolf"`
	Oracle    OracleConfig    `mapstructure:"oracle"`
	HTTP      HTTPConfig      `mapstructure:"http"`
}

// BotConfig holds Telegram bot configuration.
type BotConfig struct {
	Token string `mapstructure:"token"`
}

// DatabaseConfig holds PostgreSQL connection configuration.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	PoolSize        int           `mapstructure:"pool_size"`
	ConnectTimeout  time.Duration `mapstructure:"connect_timeout"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time"`
}

// AdminConfig holds admin user configuration.
type AdminConfig struct {
	IDs []int64 `mapstructure:"ids"`
}

// WhitelistConfig holds chat whitelist configuration.
type WhitelistConfig struct {
	Chats []int64 `mapstructure:"chats"`
}

// WerewolfConfig holds phase budgets and automation settings.
type WerewolfConfig struct {
	Eliminate        time.Duration `mapstructure:"eliminate"`
	Inspect          time.Duration `mapstructure:"inspect"`
	Protect          time.Duration `mapstructure:"protect"`
	Retaliate        time.Duration `mapstructure:"retaliate"`
	Speak            time.Duration `mapstructure:"speak"`
	LastWords        time.Duration `mapstructure:"last_words"`
	Vote             time.Duration `mapstructure:"vote"`
	AutomatedLead    time.Duration `mapstructure:"automated_lead"`
	DeadHolderMin    time.Duration `mapstructure:"dead_holder_min"`
	DeadHolderMax    time.Duration `mapstructure:"dead_holder_max"`
	OracleTimeout    time.Duration `mapstructure:"oracle_timeout"`
	OracleRetries    int           `mapstructure:"oracle_retries"`
	OracleRetryDelay time.Duration `mapstructure:"oracle_retry_delay"`
	GatewayTimeout   time.Duration `mapstructure:"gateway_timeout"`
	MuteDuration     time.Duration `mapstructure:"mute_duration"`
}

// OracleConfig holds the LLM endpoint used for automated players. An empty
// endpoint leaves them on the rule-based oracle.
type OracleConfig struct {
	Endpoint    string        `mapstructure:"endpoint"`
	APIKey      string        `mapstructure:"api_key"`
	Model       string        `mapstructure:"model"`
	Temperature float64       `mapstructure:"temperature"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// HTTPConfig holds the state API listener.
type HTTPConfig struct {
	Addr       string `mapstructure:"addr"`
	AdminToken string `mapstructure:"admin_token"`
}

// DSN returns the PostgreSQL connection string.
func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=disable",
		d.User, d.Password, d.Host, d.Port, d.Name,
	)
}

// Timing converts the werewolf section into engine timing.
func (w WerewolfConfig) Timing() werewolf.Timing {
	return werewolf.Timing{
		Eliminate:        w.Eliminate,
		Inspect:          w.Inspect,
		Protect:          w.Protect,
		Retaliate:        w.Retaliate,
		Speak:            w.Speak,
		LastWords:        w.LastWords,
		Vote:             w.Vote,
		AutomatedLead:    w.AutomatedLead,
		DeadHolderMin:    w.DeadHolderMin,
		DeadHolderMax:    w.DeadHolderMax,
		OracleTimeout:    w.OracleTimeout,
		OracleRetries:    w.OracleRetries,
		OracleRetryDelay: w.OracleRetryDelay,
		GatewayTimeout:   w.GatewayTimeout,
	}
}

// Load reads configuration from file and environment variables.
// It looks for config.yaml in the config directory.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	// e.g. BOT_TOKEN, DATABASE_HOST, WEREWOLF_VOTE, ORACLE_API_KEY
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Config file is optional; env vars can provide all config.
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.Werewolf.DeadHolderMin > cfg.Werewolf.DeadHolderMax {
		return nil, fmt.Errorf("werewolf.dead_holder_min %s exceeds dead_holder_max %s",
			cfg.Werewolf.DeadHolderMin, cfg.Werewolf.DeadHolderMax)
	}
	return &cfg, nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	// Secrets have empty defaults so AutomaticEnv can find them.
	v.SetDefault("bot.token", "")
	v.SetDefault("database.password", "")
	v.SetDefault("oracle.endpoint", "")
	v.SetDefault("oracle.api_key", "")
	v.SetDefault("oracle.model", "")
	v.SetDefault("http.admin_token", "")

	// Database defaults
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "werewolf")
	v.SetDefault("database.name", "werewolf")
	v.SetDefault("database.pool_size", 20)
	v.SetDefault("database.connect_timeout", "10s")
	v.SetDefault("database.max_conn_lifetime", "1h")
	v.SetDefault("database.max_conn_idle_time", "30m")

	// Werewolf defaults
	d := werewolf.DefaultTiming()
	v.SetDefault("werewolf.eliminate", d.Eliminate)
	v.SetDefault("werewolf.inspect", d.Inspect)
	v.SetDefault("werewolf.protect", d.Protect)
	v.SetDefault("werewolf.retaliate", d.Retaliate)
	v.SetDefault("werewolf.speak", d.Speak)
	v.SetDefault("werewolf.last_words", d.LastWords)
	v.SetDefault("werewolf.vote", d.Vote)
	v.SetDefault("werewolf.automated_lead", d.AutomatedLead)
	v.SetDefault("werewolf.dead_holder_min", d.DeadHolderMin)
	v.SetDefault("werewolf.dead_holder_max", d.DeadHolderMax)
	v.SetDefault("werewolf.oracle_timeout", d.OracleTimeout)
	v.SetDefault("werewolf.oracle_retries", d.OracleRetries)
	v.SetDefault("werewolf.oracle_retry_delay", d.OracleRetryDelay)
	v.SetDefault("werewolf.gateway_timeout", d.GatewayTimeout)
	v.SetDefault("werewolf.mute_duration", "1h")

	// Oracle defaults
	v.SetDefault("oracle.temperature", 0.8)
	v.SetDefault("oracle.timeout", "30s")

	// HTTP defaults
	v.SetDefault("http.addr", ":8080")
}

// IsAdmin checks if a user ID is in the admin list.
func (c *Config) IsAdmin(userID int64) bool {
	for _, id := range c.Admin.IDs {
		if id == userID {
			return true
		}
	}
	return false
}

// IsChatAllowed checks if a chat ID is in the whitelist.
func (c *Config) IsChatAllowed(chatID int64) bool {
	// Empty whitelist means all chats are allowed
	if len(c.Whitelist.Chats) == 0 {
		return true
	}
	for _, id := range c.Whitelist.Chats {
		if id == chatID {
			return true
		}
	}
	return false
}
