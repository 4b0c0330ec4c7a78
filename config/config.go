// Package config is C12 (SPEC_FULL.md §4 C12): loads the coordinator's
// environment-variable configuration into a typed, validated struct the
// way the teacher's cmd package builds a BridgeServerConfig from viper,
// but for this coordinator's own variable set (spec.md §6.4).
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/cbbtc-swap/coordinator/apperr"
	"github.com/cbbtc-swap/coordinator/chains"
	"github.com/cbbtc-swap/coordinator/orchestrator"
)

// Config is every environment-derived input the coordinator needs. Field
// names deliberately mirror spec.md §6.4's variable table so the mapping
// from env var to field is a matter of reading Load.
type Config struct {
	DatabaseURL string

	EthRPCURL  string
	BaseRPCURL string

	ServerKeyPath string

	Port string

	OrderbookBaseURLs map[chains.ID]string
	SlippageURL       string

	GrafanaCloudURL      string
	GrafanaCloudUsername string
	GrafanaCloudAPIKey   string

	// HTTPRequestTimeout is the blanket per-request budget of spec.md
	// §5. UpstreamTimeout bounds orderbook/RPC/slippage HTTP calls.
	HTTPRequestTimeout time.Duration
	UpstreamTimeout    time.Duration

	DepositPollInterval     map[chains.ID]time.Duration
	SettlementPollInterval  time.Duration
	SwapExpiry              time.Duration
	StuckExecutingGrace     time.Duration
	MetricsPushInterval     time.Duration
}

const (
	defaultHTTPRequestTimeout = 10 * time.Second
	defaultUpstreamTimeout    = 15 * time.Second
	defaultSettlementInterval = 30 * time.Second
	defaultSwapExpiry         = 30 * time.Minute
	defaultMetricsPush        = 15 * time.Second
	defaultEthPollInterval    = 12 * time.Second
	defaultBasePollInterval   = 10 * time.Second
)

// Load reads every variable spec.md §6.4 names from viper's environment
// source (the caller is expected to have already pointed viper at a
// config file or called AutomaticEnv), applies defaults for anything
// not in that table, and validates the result eagerly. A missing
// DATABASE_URL, a missing RPC URL for a chain this process claims to
// support, a missing SERVER_KEY_PATH, or a missing ORDERBOOK_BASE_URL is
// a ConfigError (spec.md §7). Load does not open the key file; its
// content is checked by keyvault.Load at startup.
func Load() (*Config, error) {
	v := viper.GetViper()
	v.SetDefault("PORT", "8080")

	cfg := &Config{
		DatabaseURL:   v.GetString("DATABASE_URL"),
		EthRPCURL:     v.GetString("ETH_RPC_URL"),
		BaseRPCURL:    v.GetString("BASE_RPC_URL"),
		ServerKeyPath: v.GetString("SERVER_KEY_PATH"),
		Port:          v.GetString("PORT"),

		SlippageURL: v.GetString("SLIPPAGE_URL"),

		GrafanaCloudURL:      v.GetString("GRAFANA_CLOUD_URL"),
		GrafanaCloudUsername: v.GetString("GRAFANA_CLOUD_USERNAME"),
		GrafanaCloudAPIKey:   v.GetString("GRAFANA_CLOUD_API_KEY"),

		HTTPRequestTimeout:  durationOrDefault(v, "HTTP_REQUEST_TIMEOUT", defaultHTTPRequestTimeout),
		UpstreamTimeout:     durationOrDefault(v, "UPSTREAM_TIMEOUT", defaultUpstreamTimeout),
		SettlementPollInterval: durationOrDefault(v, "SETTLEMENT_POLL_INTERVAL", defaultSettlementInterval),
		SwapExpiry:          durationOrDefault(v, "SWAP_EXPIRY", defaultSwapExpiry),
		StuckExecutingGrace: durationOrDefault(v, "STUCK_EXECUTING_GRACE", orchestrator.StuckExecutingGrace),
		MetricsPushInterval: durationOrDefault(v, "METRICS_PUSH_INTERVAL", defaultMetricsPush),
	}

	orderbookBase := v.GetString("ORDERBOOK_BASE_URL")
	cfg.OrderbookBaseURLs = map[chains.ID]string{
		chains.Ethereum: orderbookBase,
		chains.Base:     orderbookBase,
	}

	cfg.DepositPollInterval = map[chains.ID]time.Duration{
		chains.Ethereum: durationOrDefault(v, "ETH_POLL_INTERVAL", defaultEthPollInterval),
		chains.Base:     durationOrDefault(v, "BASE_POLL_INTERVAL", defaultBasePollInterval),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func durationOrDefault(v *viper.Viper, key string, def time.Duration) time.Duration {
	if s := v.GetString(key); s != "" {
		if d, err := time.ParseDuration(s); err == nil {
			return d
		}
	}
	return def
}

func (c *Config) validate() error {
	if c.DatabaseURL == "" {
		return apperr.Config("DATABASE_URL is required", nil)
	}
	if c.EthRPCURL == "" {
		return apperr.Config("ETH_RPC_URL is required", nil)
	}
	if c.BaseRPCURL == "" {
		return apperr.Config("BASE_RPC_URL is required", nil)
	}
	if c.ServerKeyPath == "" {
		return apperr.Config("SERVER_KEY_PATH is required", nil)
	}
	if c.OrderbookBaseURLs[chains.Ethereum] == "" {
		return apperr.Config("ORDERBOOK_BASE_URL is required", nil)
	}
	return nil
}

// ChainRegistry builds the chains.Registry this process serves from the
// loaded RPC URLs and poll intervals.
func (c *Config) ChainRegistry() *chains.Registry {
	return chains.NewRegistry(
		chains.Config{ID: chains.Ethereum, RPCURL: c.EthRPCURL, PollingInterval: c.DepositPollInterval[chains.Ethereum]},
		chains.Config{ID: chains.Base, RPCURL: c.BaseRPCURL, PollingInterval: c.DepositPollInterval[chains.Base]},
	)
}

func (c *Config) String() string {
	return fmt.Sprintf("config{db=%t eth_rpc=%t base_rpc=%t port=%s}",
		c.DatabaseURL != "", c.EthRPCURL != "", c.BaseRPCURL != "", c.Port)
}
