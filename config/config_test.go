package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cbbtc-swap/coordinator/apperr"
	"github.com/cbbtc-swap/coordinator/chains"
)

func setAllRequired() {
	viper.Set("DATABASE_URL", "postgres://localhost/test")
	viper.Set("ETH_RPC_URL", "https://eth.example")
	viper.Set("BASE_RPC_URL", "https://base.example")
	viper.Set("SERVER_KEY_PATH", "/tmp/key")
	viper.Set("ORDERBOOK_BASE_URL", "https://orderbook.example")
}

func TestLoadAppliesDefaultsWhenDurationsUnset(t *testing.T) {
	setAllRequired()
	viper.Set("HTTP_REQUEST_TIMEOUT", "")
	viper.Set("ETH_POLL_INTERVAL", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, defaultHTTPRequestTimeout, cfg.HTTPRequestTimeout)
	assert.Equal(t, defaultEthPollInterval, cfg.DepositPollInterval[chains.Ethereum])
	assert.Equal(t, defaultBasePollInterval, cfg.DepositPollInterval[chains.Base])
	assert.Equal(t, "8080", cfg.Port)
}

func TestLoadHonorsExplicitDurations(t *testing.T) {
	setAllRequired()
	viper.Set("SETTLEMENT_POLL_INTERVAL", "5s")
	viper.Set("SWAP_EXPIRY", "1h")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 5*time.Second, cfg.SettlementPollInterval)
	assert.Equal(t, time.Hour, cfg.SwapExpiry)
}

func TestLoadFailsWithoutDatabaseURL(t *testing.T) {
	setAllRequired()
	viper.Set("DATABASE_URL", "")

	_, err := Load()
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindConfig))
}

func TestLoadFailsWithoutOrderbookBaseURL(t *testing.T) {
	setAllRequired()
	viper.Set("ORDERBOOK_BASE_URL", "")

	_, err := Load()
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindConfig))
}

func TestChainRegistryServesBothConfiguredChains(t *testing.T) {
	setAllRequired()

	cfg, err := Load()
	require.NoError(t, err)

	registry := cfg.ChainRegistry()
	assert.True(t, registry.Supported(chains.Ethereum))
	assert.True(t, registry.Supported(chains.Base))
}
