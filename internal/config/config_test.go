// internal/config/config_test.go
package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadRequiresSigningKey(t *testing.T) {
	t.Setenv("CHAIN_PRIVATE_KEY", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CHAIN_PRIVATE_KEY")
}

func TestLoadAppliesDefaults(t *testing.T) {
	t.Setenv("CHAIN_PRIVATE_KEY", "abcd")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "3001", cfg.Server.Port)
	assert.Equal(t, int64(1315), cfg.Chain.ChainID)
	assert.Equal(t, "https://aeneid.storyrpc.io", cfg.Chain.RPCURL)
	assert.Equal(t, "https://gateway.pinata.cloud", cfg.Storage.GatewayURL)
	assert.Equal(t, "0.1", cfg.License.DefaultMintingFee)
	assert.Equal(t, 10, cfg.License.DefaultRevSharePercent)
	assert.Equal(t, "captures", cfg.RecordStore.Table)
}

func TestLoadOverridesFromEnvironment(t *testing.T) {
	t.Setenv("CHAIN_PRIVATE_KEY", "abcd")
	t.Setenv("PORT", "8080")
	t.Setenv("CHAIN_ID", "1")
	t.Setenv("DEFAULT_REV_SHARE_PERCENT", "25")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, int64(1), cfg.Chain.ChainID)
	assert.Equal(t, 25, cfg.License.DefaultRevSharePercent)
}

func TestValidateRejectsOutOfRangeDefaultRevShare(t *testing.T) {
	t.Setenv("CHAIN_PRIVATE_KEY", "abcd")
	t.Setenv("DEFAULT_REV_SHARE_PERCENT", "101")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DEFAULT_REV_SHARE_PERCENT")
}

func TestDatabaseDSN(t *testing.T) {
	cfg := DatabaseConfig{
		Host:     "localhost",
		Port:     "5432",
		User:     "postgres",
		Password: "secret",
		Database: "framelock",
		SSLMode:  "disable",
	}

	dsn := cfg.DSN()
	assert.Contains(t, dsn, "host=localhost")
	assert.Contains(t, dsn, "dbname=framelock")
	assert.Contains(t, dsn, "sslmode=disable")
}
