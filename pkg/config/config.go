package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// FanToken is a stakeable fan token configured by symbol.
type FanToken struct {
	Symbol  string
	Address string
}

// Config holds all application configuration.
type Config struct {
	// Application
	LogLevel string
	HTTPPort string

	// Chain
	ChainRPCURL   string
	ChainID       int64
	RPCTimeout    time.Duration
	PrivateKey    string
	TokenDecimals int

	// Contracts
	HypeTokenAddress       string
	BettingContractAddress string
	OracleAddress          string
	FanTokens              []FanToken

	// Polling
	AllowancePollInterval time.Duration
	EventPollInterval     time.Duration
	BalancePollInterval   time.Duration

	// Approval re-verification
	ApprovalVerifyInitialDelay time.Duration
	ApprovalVerifyRetryDelay   time.Duration
	ApprovalVerifyMaxRetries   int

	// Staking rates
	ChzStakeRate      float64
	FanTokenBaseRate  float64
	FanTokenBonusRate float64

	// Gas guard
	GasGuardEnabled        bool
	GasGuardMinBalance     float64
	GasGuardCostMultiplier float64
	GasGuardHysteresis     float64
	GasGuardCheckInterval  time.Duration

	// History
	HistoryMode  string // "memory" or "postgres"
	PostgresHost string
	PostgresPort string
	PostgresUser string
	PostgresPass string
	PostgresDB   string
	PostgresSSL  string
	KafkaBrokers []string
	KafkaTopic   string
}

// LoadFromEnv loads configuration from environment variables with defaults.
func LoadFromEnv() (*Config, error) {
	fanTokens, err := parseFanTokens(os.Getenv("FAN_TOKENS"))
	if err != nil {
		return nil, fmt.Errorf("parse FAN_TOKENS: %w", err)
	}

	cfg := &Config{
		// Application defaults
		LogLevel: getEnvOrDefault("LOG_LEVEL", "info"),
		HTTPPort: getEnvOrDefault("HTTP_PORT", "8080"),

		// Chain defaults (Chiliz Spicy testnet)
		ChainRPCURL:   getEnvOrDefault("CHAIN_RPC_URL", "https://spicy-rpc.chiliz.com"),
		ChainID:       int64(getIntOrDefault("CHAIN_ID", 88882)),
		RPCTimeout:    getDurationOrDefault("RPC_TIMEOUT", 15*time.Second),
		PrivateKey:    os.Getenv("WALLET_PRIVATE_KEY"),
		TokenDecimals: getIntOrDefault("TOKEN_DECIMALS", 18),

		HypeTokenAddress:       os.Getenv("HYPE_TOKEN_ADDRESS"),
		BettingContractAddress: os.Getenv("BETTING_CONTRACT_ADDRESS"),
		OracleAddress:          os.Getenv("ORACLE_ADDRESS"),
		FanTokens:              fanTokens,

		AllowancePollInterval: getDurationOrDefault("ALLOWANCE_POLL_INTERVAL", 10*time.Second),
		EventPollInterval:     getDurationOrDefault("EVENT_POLL_INTERVAL", 5*time.Second),
		BalancePollInterval:   getDurationOrDefault("BALANCE_POLL_INTERVAL", time.Minute),

		ApprovalVerifyInitialDelay: getDurationOrDefault("APPROVAL_VERIFY_INITIAL_DELAY", time.Second),
		ApprovalVerifyRetryDelay:   getDurationOrDefault("APPROVAL_VERIFY_RETRY_DELAY", 2*time.Second),
		ApprovalVerifyMaxRetries:   getIntOrDefault("APPROVAL_VERIFY_MAX_RETRIES", 3),

		// 1 CHZ = 1000 HYPE, fan tokens earn a 50% bonus on 1800
		ChzStakeRate:      getFloat64OrDefault("CHZ_STAKE_RATE", 1000),
		FanTokenBaseRate:  getFloat64OrDefault("FAN_TOKEN_BASE_RATE", 1800),
		FanTokenBonusRate: getFloat64OrDefault("FAN_TOKEN_BONUS_RATE", 0.5),

		GasGuardEnabled:        getBoolOrDefault("GAS_GUARD_ENABLED", false),
		GasGuardMinBalance:     getFloat64OrDefault("GAS_GUARD_MIN_BALANCE", 1.0),
		GasGuardCostMultiplier: getFloat64OrDefault("GAS_GUARD_COST_MULTIPLIER", 20),
		GasGuardHysteresis:     getFloat64OrDefault("GAS_GUARD_HYSTERESIS", 1.5),
		GasGuardCheckInterval:  getDurationOrDefault("GAS_GUARD_CHECK_INTERVAL", time.Minute),

		HistoryMode:  getEnvOrDefault("HISTORY_MODE", "memory"),
		PostgresHost: getEnvOrDefault("POSTGRES_HOST", "localhost"),
		PostgresPort: getEnvOrDefault("POSTGRES_PORT", "5432"),
		PostgresUser: getEnvOrDefault("POSTGRES_USER", "fanify"),
		PostgresPass: getEnvOrDefault("POSTGRES_PASSWORD", "fanify"),
		PostgresDB:   getEnvOrDefault("POSTGRES_DB", "fanify"),
		PostgresSSL:  getEnvOrDefault("POSTGRES_SSLMODE", "disable"),
		KafkaBrokers: splitList(os.Getenv("KAFKA_BROKERS")),
		KafkaTopic:   getEnvOrDefault("KAFKA_TOPIC", "fanify.transactions"),
	}

	err = cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// Validate checks that configuration values are valid.
func (c *Config) Validate() error {
	if c.HTTPPort == "" {
		return fmt.Errorf("HTTP_PORT cannot be empty")
	}

	if c.ChainRPCURL == "" {
		return fmt.Errorf("CHAIN_RPC_URL cannot be empty")
	}

	if c.ChainID <= 0 {
		return fmt.Errorf("CHAIN_ID must be positive, got %d", c.ChainID)
	}

	if c.TokenDecimals < 0 || c.TokenDecimals > 36 {
		return fmt.Errorf("TOKEN_DECIMALS must be between 0 and 36, got %d", c.TokenDecimals)
	}

	addresses := []struct{ key, value string }{
		{"HYPE_TOKEN_ADDRESS", c.HypeTokenAddress},
		{"BETTING_CONTRACT_ADDRESS", c.BettingContractAddress},
		{"ORACLE_ADDRESS", c.OracleAddress},
	}
	for _, addr := range addresses {
		if addr.value == "" {
			return fmt.Errorf("%s cannot be empty", addr.key)
		}
		if !common.IsHexAddress(addr.value) {
			return fmt.Errorf("%s is not a valid address: %q", addr.key, addr.value)
		}
	}

	if c.AllowancePollInterval <= 0 || c.EventPollInterval <= 0 || c.BalancePollInterval <= 0 {
		return fmt.Errorf("poll intervals must be positive")
	}

	if c.ApprovalVerifyMaxRetries < 0 {
		return fmt.Errorf("APPROVAL_VERIFY_MAX_RETRIES cannot be negative, got %d", c.ApprovalVerifyMaxRetries)
	}

	if c.ChzStakeRate <= 0 || c.FanTokenBaseRate <= 0 {
		return fmt.Errorf("stake rates must be positive")
	}

	if c.FanTokenBonusRate < 0 {
		return fmt.Errorf("FAN_TOKEN_BONUS_RATE cannot be negative, got %f", c.FanTokenBonusRate)
	}

	if c.GasGuardEnabled && c.GasGuardHysteresis < 1.0 {
		return fmt.Errorf("GAS_GUARD_HYSTERESIS must be >= 1.0, got %f", c.GasGuardHysteresis)
	}

	if c.GasGuardEnabled && (c.GasGuardCostMultiplier <= 0 || c.GasGuardMinBalance <= 0) {
		return fmt.Errorf("GAS_GUARD_COST_MULTIPLIER and GAS_GUARD_MIN_BALANCE must be positive")
	}

	if c.HistoryMode != "memory" && c.HistoryMode != "postgres" {
		return fmt.Errorf("HISTORY_MODE must be 'memory' or 'postgres', got %q", c.HistoryMode)
	}

	return nil
}

// PostgresDSN builds the lib/pq connection string.
func (c *Config) PostgresDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.PostgresHost, c.PostgresPort, c.PostgresUser, c.PostgresPass, c.PostgresDB, c.PostgresSSL,
	)
}

// parseFanTokens parses "PSG=0xabc,BAR=0xdef".
func parseFanTokens(value string) ([]FanToken, error) {
	var tokens []FanToken
	for _, entry := range splitList(value) {
		symbol, address, ok := strings.Cut(entry, "=")
		symbol = strings.ToUpper(strings.TrimSpace(symbol))
		address = strings.TrimSpace(address)
		if !ok || symbol == "" {
			return nil, fmt.Errorf("invalid entry %q, expected SYMBOL=ADDRESS", entry)
		}
		if !common.IsHexAddress(address) {
			return nil, fmt.Errorf("invalid address for %s: %q", symbol, address)
		}
		tokens = append(tokens, FanToken{Symbol: symbol, Address: address})
	}
	return tokens, nil
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getEnvOrDefault(key string, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	intVal, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}

	return intVal
}

func getBoolOrDefault(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	boolVal, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}

	return boolVal
}

func getFloat64OrDefault(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	floatVal, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return defaultValue
	}

	return floatVal
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	duration, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}

	return duration
}
