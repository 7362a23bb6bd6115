// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// NetworkConfig holds the static configuration for one network.
// Instances are created once at startup and never mutated.
type NetworkConfig struct {
	Name    string
	ChainID int64
	RPCURL  string
	// SafetyMargin is the minimum reserve kept out of any plan, in wei.
	SafetyMargin *big.Int
	// PriorityFeeHint is the priority fee used when sizing plans, in wei.
	PriorityFeeHint *big.Int
}

// R2Config holds optional off-site backup settings for the trust database.
// Backups are disabled unless all fields are set.
type R2Config struct {
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
}

// Enabled reports whether backup credentials are fully configured.
func (r *R2Config) Enabled() bool {
	return r.Endpoint != "" && r.AccessKeyID != "" && r.SecretAccessKey != "" && r.Bucket != ""
}

// Config holds application configuration
type Config struct {
	DataDir         string // Base directory for databases (always absolute)
	Networks        []NetworkConfig
	PrivateKey      string // Hex-encoded signing key, no 0x prefix required
	ExecutorAddress string // Strike executor contract address
	LogLevel        string
	Port            int
	DevMode         bool
	TickInterval    time.Duration
	R2              *R2Config
}

// weiFromGwei converts a gwei amount to wei.
func weiFromGwei(g int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(g), big.NewInt(1_000_000_000))
}

// defaultNetworks returns the static network set. RPC endpoints can be
// overridden per network via <NAME>_RPC_URL.
func defaultNetworks() []NetworkConfig {
	return []NetworkConfig{
		{
			Name:            "ethereum",
			ChainID:         1,
			RPCURL:          "https://eth.llamarpc.com",
			SafetyMargin:    weiFromGwei(50_000_000), // 0.05 ETH
			PriorityFeeHint: weiFromGwei(2),
		},
		{
			Name:            "base",
			ChainID:         8453,
			RPCURL:          "https://mainnet.base.org",
			SafetyMargin:    weiFromGwei(10_000_000), // 0.01 ETH
			PriorityFeeHint: weiFromGwei(1),
		},
		{
			Name:            "arbitrum",
			ChainID:         42161,
			RPCURL:          "https://arb1.arbitrum.io/rpc",
			SafetyMargin:    weiFromGwei(10_000_000), // 0.01 ETH
			PriorityFeeHint: weiFromGwei(1),
		},
	}
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	// Determine data directory, always resolved to an absolute path.
	dataDir := getEnv("HARRIER_DATA_DIR", "")
	if dataDir == "" {
		dataDir = "./data"
	}
	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}
	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	networks := defaultNetworks()
	for i := range networks {
		envKey := strings.ToUpper(networks[i].Name) + "_RPC_URL"
		if url := getEnv(envKey, ""); url != "" {
			networks[i].RPCURL = url
		}
	}

	cfg := &Config{
		DataDir:         absDataDir,
		Networks:        networks,
		PrivateKey:      strings.TrimPrefix(getEnv("PRIVATE_KEY", ""), "0x"),
		ExecutorAddress: getEnv("EXECUTOR_ADDRESS", ""),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		Port:            getEnvAsInt("PORT", 8080),
		DevMode:         getEnvAsBool("DEV_MODE", false),
		TickInterval:    time.Duration(getEnvAsInt("TICK_INTERVAL_MS", 1000)) * time.Millisecond,
		R2: &R2Config{
			Endpoint:        getEnv("R2_ENDPOINT", ""),
			AccessKeyID:     getEnv("R2_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("R2_SECRET_ACCESS_KEY", ""),
			Bucket:          getEnv("R2_BUCKET", ""),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks configuration shape. A missing signing key or executor
// address is deliberately NOT an error here: those are strike-loop
// preconditions checked once by the engine, and the process still serves
// its health endpoint without them.
func (c *Config) Validate() error {
	if c.TickInterval <= 0 {
		return fmt.Errorf("tick interval must be positive, got %s", c.TickInterval)
	}
	if len(c.Networks) == 0 {
		return fmt.Errorf("no networks configured")
	}
	for _, n := range c.Networks {
		if n.RPCURL == "" {
			return fmt.Errorf("network %s has no RPC endpoint", n.Name)
		}
		if n.SafetyMargin == nil || n.SafetyMargin.Sign() < 0 {
			return fmt.Errorf("network %s has an invalid safety margin", n.Name)
		}
	}
	return nil
}

// HasStrikeCredentials reports whether the fatal strike-loop preconditions
// (signing key and executor contract address) are both configured.
func (c *Config) HasStrikeCredentials() bool {
	return c.PrivateKey != "" && c.ExecutorAddress != ""
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
