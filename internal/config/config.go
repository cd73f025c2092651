// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	Environment string
	Server      ServerConfig
	Database    DatabaseConfig
	Chain       ChainConfig
	Storage     StorageConfig
	RecordStore RecordStoreConfig
	License     LicenseConfig
	AWS         AWSConfig
}

type ServerConfig struct {
	Port         string
	Host         string
	ReadTimeout  int
	WriteTimeout int
	IdleTimeout  int
}

type DatabaseConfig struct {
	Host         string
	Port         string
	User         string
	Password     string
	Database     string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  int
	LogLevel     string
}

// ChainConfig holds everything needed to sign and submit ledger
// transactions: RPC endpoint, chain identifier, the server-side signing key,
// and the periphery contract addresses.
type ChainConfig struct {
	RPCURL            string
	ChainID           int64
	PrivateKey        string
	WorkflowsContract string
	RoyaltyPolicy     string
	CurrencyToken     string
	CollectionName    string
	CollectionSymbol  string
	ExplorerBaseURL   string
	TxExplorerBaseURL string
}

// StorageConfig points at the content-addressable storage network: a read
// gateway for fetch-by-CID and a pinning endpoint for publishing JSON.
type StorageConfig struct {
	GatewayURL  string
	PinEndpoint string
	APIKey      string
	APISecret   string
}

// RecordStoreConfig targets the external REST record store. All operations
// are scoped to a single table filtered by image_cid.
type RecordStoreConfig struct {
	URL    string
	APIKey string
	Table  string
}

// LicenseConfig carries the process-wide defaults merged with per-request
// overrides by services.ResolveLicenseParams.
type LicenseConfig struct {
	DefaultMintingFee      string
	DefaultRevSharePercent int
}

type AWSConfig struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	S3Bucket        string
}

func Load() (*Config, error) {
	// Load .env file if it exists
	godotenv.Load()

	config := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		Server: ServerConfig{
			Port:         getEnv("PORT", "3001"),
			Host:         getEnv("SERVER_HOST", "localhost"),
			ReadTimeout:  getEnvAsInt("SERVER_READ_TIMEOUT", 15),
			WriteTimeout: getEnvAsInt("SERVER_WRITE_TIMEOUT", 120),
			IdleTimeout:  getEnvAsInt("SERVER_IDLE_TIMEOUT", 60),
		},
		Database: DatabaseConfig{
			Host:         getEnv("DB_HOST", "localhost"),
			Port:         getEnv("DB_PORT", "5432"),
			User:         getEnv("DB_USER", "postgres"),
			Password:     getEnv("DB_PASSWORD", ""),
			Database:     getEnv("DB_NAME", "framelock"),
			SSLMode:      getEnv("DB_SSL_MODE", "disable"),
			MaxOpenConns: getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns: getEnvAsInt("DB_MAX_IDLE_CONNS", 25),
			MaxLifetime:  getEnvAsInt("DB_MAX_LIFETIME", 300),
			LogLevel:     getEnv("DB_LOG_LEVEL", "silent"),
		},
		Chain: ChainConfig{
			RPCURL:            getEnv("CHAIN_RPC_URL", "https://aeneid.storyrpc.io"),
			ChainID:           getEnvAsInt64("CHAIN_ID", 1315),
			PrivateKey:        getEnv("CHAIN_PRIVATE_KEY", ""),
			WorkflowsContract: getEnv("CHAIN_WORKFLOWS_CONTRACT", "0xbe39E1C756e921BD25DF86e7AAa31106d1eb0424"),
			RoyaltyPolicy:     getEnv("CHAIN_ROYALTY_POLICY", "0xBe54FB168b3c982b7AaE60dB6CF75Bd8447b390E"),
			CurrencyToken:     getEnv("CHAIN_CURRENCY_TOKEN", "0x1514000000000000000000000000000000000000"),
			CollectionName:    getEnv("COLLECTION_NAME", "FrameLock Captures"),
			CollectionSymbol:  getEnv("COLLECTION_SYMBOL", "FLC"),
			ExplorerBaseURL:   getEnv("EXPLORER_BASE_URL", "https://aeneid.explorer.story.foundation"),
			TxExplorerBaseURL: getEnv("TX_EXPLORER_BASE_URL", "https://aeneid.storyscan.io"),
		},
		Storage: StorageConfig{
			GatewayURL:  getEnv("STORAGE_GATEWAY_URL", "https://gateway.pinata.cloud"),
			PinEndpoint: getEnv("STORAGE_PIN_ENDPOINT", "https://api.pinata.cloud/pinning/pinJSONToIPFS"),
			APIKey:      getEnv("STORAGE_API_KEY", ""),
			APISecret:   getEnv("STORAGE_API_SECRET", ""),
		},
		RecordStore: RecordStoreConfig{
			URL:    getEnv("RECORD_STORE_URL", ""),
			APIKey: getEnv("RECORD_STORE_API_KEY", ""),
			Table:  getEnv("RECORD_STORE_TABLE", "captures"),
		},
		License: LicenseConfig{
			DefaultMintingFee:      getEnv("DEFAULT_MINTING_FEE", "0.1"),
			DefaultRevSharePercent: getEnvAsInt("DEFAULT_REV_SHARE_PERCENT", 10),
		},
		AWS: AWSConfig{
			Region:          getEnv("AWS_REGION", "us-east-1"),
			AccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
			S3Bucket:        getEnv("AWS_S3_BUCKET", "framelock-metadata-archive"),
		},
	}

	return config, config.Validate()
}

func (c *Config) Validate() error {
	// The process cannot register anything without a signing key.
	if c.Chain.PrivateKey == "" {
		return fmt.Errorf("CHAIN_PRIVATE_KEY is required")
	}

	if c.Chain.RPCURL == "" {
		return fmt.Errorf("CHAIN_RPC_URL is required")
	}

	if c.License.DefaultRevSharePercent < 0 || c.License.DefaultRevSharePercent > 100 {
		return fmt.Errorf("DEFAULT_REV_SHARE_PERCENT must be between 0 and 100")
	}

	if c.Database.Password == "" && c.Environment == "production" {
		return fmt.Errorf("database password is required in production")
	}

	return nil
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
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}
