package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config is the root configuration loaded from config.json with
// environment variable overrides.
type Config struct {
	AnalysisConfig  AnalysisConfig  `json:"analysis"`
	OracleConfig    OracleConfig    `json:"oracle"`
	ValidatorConfig ValidatorConfig `json:"validator"`
	GuardConfig     GuardConfig     `json:"guard"`
	LoggingConfig   LoggingConfig   `json:"logging"`
	ServerConfig    ServerConfig    `json:"server"`
	DatabaseConfig  DatabaseConfig  `json:"database"`
	RedisConfig     RedisConfig     `json:"redis"`
	VaultConfig     VaultConfig     `json:"vault"`
}

// AnalysisConfig holds observation and phase detection parameters
type AnalysisConfig struct {
	Symbols          []string `json:"symbols"`
	HigherTimeframe  string   `json:"higher_timeframe"` // e.g. "15m"
	LowerTimeframe   string   `json:"lower_timeframe"`  // e.g. "1m"
	CandleLimit      int      `json:"candle_limit"`     // candles fetched per timeframe
	CycleInterval    int      `json:"cycle_interval"`   // seconds between analysis cycles
	SwingLookback    int      `json:"swing_lookback"`   // candles each side of a swing
	ATRMultiplier    float64  `json:"atr_multiplier"`   // displacement body threshold
	PoolTolerance    float64  `json:"pool_tolerance"`   // relative equal-level tolerance
	SweepMaxSwingAge int      `json:"sweep_max_swing_age"`
	PhaseLookback    int      `json:"phase_lookback"` // minutes of events considered by phase detection
}

// OracleConfig holds LLM reasoning oracle configuration
type OracleConfig struct {
	Enabled        bool    `json:"enabled"`
	Provider       string  `json:"provider"` // "claude", "openai", or "deepseek"
	ClaudeAPIKey   string  `json:"claude_api_key"`
	OpenAIAPIKey   string  `json:"openai_api_key"`
	DeepSeekAPIKey string  `json:"deepseek_api_key"`
	Model          string  `json:"model"`
	MaxTokens      int     `json:"max_tokens"`
	Temperature    float64 `json:"temperature"`
	TimeoutSeconds int     `json:"timeout_seconds"`
}

// ValidatorConfig holds decision validation parameters
type ValidatorConfig struct {
	MaxTradesPerSession int `json:"max_trades_per_session"`
	SweepWindowMinutes  int `json:"sweep_window_minutes"`
}

// GuardConfig holds news cooldown parameters
type GuardConfig struct {
	Enabled               bool `json:"enabled"`
	CooldownBeforeMinutes int  `json:"cooldown_before_minutes"`
	CooldownAfterMinutes  int  `json:"cooldown_after_minutes"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `json:"level"`  // debug, info, warn, error
	Format string `json:"format"` // json or console
	Output string `json:"output"` // stdout, stderr, or file path
}

// ServerConfig holds API server configuration
type ServerConfig struct {
	Enabled              bool   `json:"enabled"`
	Host                 string `json:"host"`
	Port                 int    `json:"port"`
	ProductionMode       bool   `json:"production_mode"`
	OperatorName         string `json:"operator_name"`
	OperatorPasswordHash string `json:"operator_password_hash"`
	JWTSecret            string `json:"jwt_secret"`
}

// DatabaseConfig holds PostgreSQL configuration for audit storage
type DatabaseConfig struct {
	Enabled  bool   `json:"enabled"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	Database string `json:"database"`
	SSLMode  string `json:"ssl_mode"`
}

// RedisConfig holds Redis configuration for context snapshots
type RedisConfig struct {
	Enabled  bool   `json:"enabled"`
	Address  string `json:"address"`
	Password string `json:"password"`
	DB       int    `json:"db"`
}

// VaultConfig holds HashiCorp Vault configuration
type VaultConfig struct {
	Enabled    bool   `json:"enabled"`
	Address    string `json:"address"`
	Token      string `json:"token"`
	MountPath  string `json:"mount_path"`
	TLSEnabled bool   `json:"tls_enabled"`
	CACert     string `json:"ca_cert"`
}

// Load reads config.json if present and applies environment overrides
func Load() (*Config, error) {
	cfg, err := loadFromFile("config.json")
	if err != nil {
		cfg = &Config{}
	}

	applyEnvOverrides(cfg)
	applyDefaults(cfg)

	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	// Logging
	cfg.LoggingConfig.Level = getEnvOrDefault("LOG_LEVEL", cfg.LoggingConfig.Level)
	cfg.LoggingConfig.Format = getEnvOrDefault("LOG_FORMAT", cfg.LoggingConfig.Format)
	cfg.LoggingConfig.Output = getEnvOrDefault("LOG_OUTPUT", cfg.LoggingConfig.Output)

	// Oracle
	cfg.OracleConfig.Provider = getEnvOrDefault("ORACLE_PROVIDER", cfg.OracleConfig.Provider)
	cfg.OracleConfig.ClaudeAPIKey = getEnvOrDefault("ORACLE_CLAUDE_API_KEY", cfg.OracleConfig.ClaudeAPIKey)
	cfg.OracleConfig.OpenAIAPIKey = getEnvOrDefault("ORACLE_OPENAI_API_KEY", cfg.OracleConfig.OpenAIAPIKey)
	cfg.OracleConfig.DeepSeekAPIKey = getEnvOrDefault("ORACLE_DEEPSEEK_API_KEY", cfg.OracleConfig.DeepSeekAPIKey)
	cfg.OracleConfig.Model = getEnvOrDefault("ORACLE_MODEL", cfg.OracleConfig.Model)
	if os.Getenv("ORACLE_ENABLED") != "" {
		cfg.OracleConfig.Enabled = os.Getenv("ORACLE_ENABLED") == "true"
	}

	// Server
	cfg.ServerConfig.Host = getEnvOrDefault("WEB_HOST", cfg.ServerConfig.Host)
	cfg.ServerConfig.Port = getEnvIntOrDefault("WEB_PORT", cfg.ServerConfig.Port)
	cfg.ServerConfig.JWTSecret = getEnvOrDefault("AUTH_JWT_SECRET", cfg.ServerConfig.JWTSecret)
	cfg.ServerConfig.OperatorName = getEnvOrDefault("AUTH_OPERATOR_NAME", cfg.ServerConfig.OperatorName)
	cfg.ServerConfig.OperatorPasswordHash = getEnvOrDefault("AUTH_OPERATOR_PASSWORD_HASH", cfg.ServerConfig.OperatorPasswordHash)

	// Database
	cfg.DatabaseConfig.Host = getEnvOrDefault("DB_HOST", cfg.DatabaseConfig.Host)
	cfg.DatabaseConfig.Port = getEnvIntOrDefault("DB_PORT", cfg.DatabaseConfig.Port)
	cfg.DatabaseConfig.User = getEnvOrDefault("DB_USER", cfg.DatabaseConfig.User)
	cfg.DatabaseConfig.Password = getEnvOrDefault("DB_PASSWORD", cfg.DatabaseConfig.Password)
	cfg.DatabaseConfig.Database = getEnvOrDefault("DB_NAME", cfg.DatabaseConfig.Database)
	cfg.DatabaseConfig.SSLMode = getEnvOrDefault("DB_SSLMODE", cfg.DatabaseConfig.SSLMode)
	if os.Getenv("DB_ENABLED") != "" {
		cfg.DatabaseConfig.Enabled = os.Getenv("DB_ENABLED") == "true"
	}

	// Redis
	cfg.RedisConfig.Address = getEnvOrDefault("REDIS_ADDR", cfg.RedisConfig.Address)
	cfg.RedisConfig.Password = getEnvOrDefault("REDIS_PASSWORD", cfg.RedisConfig.Password)
	if os.Getenv("REDIS_ENABLED") != "" {
		cfg.RedisConfig.Enabled = os.Getenv("REDIS_ENABLED") == "true"
	}

	// Vault
	cfg.VaultConfig.Address = getEnvOrDefault("VAULT_ADDR", cfg.VaultConfig.Address)
	cfg.VaultConfig.Token = getEnvOrDefault("VAULT_TOKEN", cfg.VaultConfig.Token)
	cfg.VaultConfig.MountPath = getEnvOrDefault("VAULT_MOUNT_PATH", cfg.VaultConfig.MountPath)
	if os.Getenv("VAULT_ENABLED") != "" {
		cfg.VaultConfig.Enabled = os.Getenv("VAULT_ENABLED") == "true"
	}
}

// applyDefaults fills in zero values with working defaults
func applyDefaults(cfg *Config) {
	if len(cfg.AnalysisConfig.Symbols) == 0 {
		cfg.AnalysisConfig.Symbols = []string{"BTCUSDT"}
	}
	if cfg.AnalysisConfig.HigherTimeframe == "" {
		cfg.AnalysisConfig.HigherTimeframe = "15m"
	}
	if cfg.AnalysisConfig.LowerTimeframe == "" {
		cfg.AnalysisConfig.LowerTimeframe = "1m"
	}
	if cfg.AnalysisConfig.CandleLimit <= 0 {
		cfg.AnalysisConfig.CandleLimit = 100
	}
	if cfg.AnalysisConfig.CycleInterval <= 0 {
		cfg.AnalysisConfig.CycleInterval = 60
	}
	if cfg.AnalysisConfig.SwingLookback <= 0 {
		cfg.AnalysisConfig.SwingLookback = 2
	}
	if cfg.AnalysisConfig.ATRMultiplier <= 0 {
		cfg.AnalysisConfig.ATRMultiplier = 2.0
	}
	if cfg.AnalysisConfig.PoolTolerance <= 0 {
		cfg.AnalysisConfig.PoolTolerance = 0.001
	}
	if cfg.AnalysisConfig.SweepMaxSwingAge <= 0 {
		cfg.AnalysisConfig.SweepMaxSwingAge = 50
	}
	if cfg.AnalysisConfig.PhaseLookback <= 0 {
		cfg.AnalysisConfig.PhaseLookback = 60
	}

	if cfg.OracleConfig.Provider == "" {
		cfg.OracleConfig.Provider = "claude"
	}
	if cfg.OracleConfig.MaxTokens <= 0 {
		cfg.OracleConfig.MaxTokens = 1024
	}
	if cfg.OracleConfig.Temperature <= 0 {
		cfg.OracleConfig.Temperature = 0.2
	}
	if cfg.OracleConfig.TimeoutSeconds <= 0 {
		cfg.OracleConfig.TimeoutSeconds = 30
	}

	if cfg.ValidatorConfig.MaxTradesPerSession <= 0 {
		cfg.ValidatorConfig.MaxTradesPerSession = 3
	}
	if cfg.ValidatorConfig.SweepWindowMinutes <= 0 {
		cfg.ValidatorConfig.SweepWindowMinutes = 60
	}

	if cfg.GuardConfig.CooldownBeforeMinutes <= 0 {
		cfg.GuardConfig.CooldownBeforeMinutes = 15
	}
	if cfg.GuardConfig.CooldownAfterMinutes <= 0 {
		cfg.GuardConfig.CooldownAfterMinutes = 30
	}

	if cfg.LoggingConfig.Level == "" {
		cfg.LoggingConfig.Level = "info"
	}
	if cfg.LoggingConfig.Format == "" {
		cfg.LoggingConfig.Format = "console"
	}
	if cfg.LoggingConfig.Output == "" {
		cfg.LoggingConfig.Output = "stdout"
	}

	if cfg.ServerConfig.Host == "" {
		cfg.ServerConfig.Host = "0.0.0.0"
	}
	if cfg.ServerConfig.Port <= 0 {
		cfg.ServerConfig.Port = 8080
	}

	if cfg.DatabaseConfig.Host == "" {
		cfg.DatabaseConfig.Host = "localhost"
	}
	if cfg.DatabaseConfig.Port <= 0 {
		cfg.DatabaseConfig.Port = 5432
	}
	if cfg.DatabaseConfig.SSLMode == "" {
		cfg.DatabaseConfig.SSLMode = "disable"
	}

	if cfg.RedisConfig.Address == "" {
		cfg.RedisConfig.Address = "localhost:6379"
	}

	if cfg.VaultConfig.Address == "" {
		cfg.VaultConfig.Address = "http://localhost:8200"
	}
	if cfg.VaultConfig.MountPath == "" {
		cfg.VaultConfig.MountPath = "secret"
	}
}

// CycleIntervalDuration returns the cycle interval as a duration
func (a AnalysisConfig) CycleIntervalDuration() time.Duration {
	return time.Duration(a.CycleInterval) * time.Second
}

// PhaseLookbackDuration returns the phase lookback as a duration
func (a AnalysisConfig) PhaseLookbackDuration() time.Duration {
	return time.Duration(a.PhaseLookback) * time.Minute
}

// APIKey returns the configured API key for the active provider
func (o OracleConfig) APIKey() string {
	switch o.Provider {
	case "openai":
		return o.OpenAIAPIKey
	case "deepseek":
		return o.DeepSeekAPIKey
	default:
		return o.ClaudeAPIKey
	}
}

func loadFromFile(filename string) (*Config, error) {
	file, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	var config Config
	if err := json.Unmarshal(file, &config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	return &config, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}
