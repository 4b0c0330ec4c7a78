// Package cmd wires every component of SPEC_FULL.md into one running
// process, the way the teacher's cmd.NewBridgeServer/StartBridgeServer
// AndWait wires the bridge: a config struct, a constructor that dials
// every collaborator and starts its goroutine, and a Start*AndWait
// entry point that blocks on a signal-cancelled context.
package cmd

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	logger "github.com/sirupsen/logrus"

	"github.com/cbbtc-swap/coordinator/balancereader"
	"github.com/cbbtc-swap/coordinator/chainclient"
	"github.com/cbbtc-swap/coordinator/config"
	"github.com/cbbtc-swap/coordinator/depositpoller"
	"github.com/cbbtc-swap/coordinator/keyvault"
	"github.com/cbbtc-swap/coordinator/metrics"
	"github.com/cbbtc-swap/coordinator/orchestrator"
	"github.com/cbbtc-swap/coordinator/orderbook"
	"github.com/cbbtc-swap/coordinator/ordersigner"
	"github.com/cbbtc-swap/coordinator/reporter"
	"github.com/cbbtc-swap/coordinator/settlementpoller"
	"github.com/cbbtc-swap/coordinator/slippage"
	"github.com/cbbtc-swap/coordinator/store"
	"github.com/cbbtc-swap/coordinator/swapcreate"
)

// SwapCoordinatorServer holds every long-lived collaborator the process
// wires up at startup, mirroring the teacher's BridgeServer struct.
type SwapCoordinatorServer struct {
	Store      *store.Store
	KeyVault   *keyvault.KeyVault
	Backends   *chainclient.Client
	Orderbook  *orderbook.Client
	Slippage   *slippage.Oracle
	Signer     *ordersigner.Signer
	Orchestrator *orchestrator.Orchestrator
	Metrics    *metrics.Registry
	Reporter   *reporter.HttpReporter

	DepositPollers  []*depositpoller.Poller
	SettlementPoller *settlementpoller.Poller
}

// FileExists mirrors the teacher's cmd.FileExists helper, used by the
// swap-server main package to check a config file before handing it to
// viper.
func FileExists(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()
	return true
}

// NewSwapCoordinatorServer builds every component and starts its
// background goroutine the way NewBridgeServer does. The migrator runs
// synchronously before anything else. Pollers and the optional metrics
// pusher start as background goroutines tracked by wg; the HTTP reporter
// runs in its own goroutine that wg does not track, given a short grace
// period to bind before this returns.
func NewSwapCoordinatorServer(cfg *config.Config, ctx context.Context, wg *sync.WaitGroup) (*SwapCoordinatorServer, error) {
	if err := store.Migrate(cfg.DatabaseURL); err != nil {
		return nil, err
	}

	st, err := store.Open(cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}

	kv := keyvault.New()
	if err := kv.Load(cfg.ServerKeyPath); err != nil {
		return nil, err
	}

	registry := cfg.ChainRegistry()
	backends := chainclient.New(registry)
	ob := orderbook.New(cfg.OrderbookBaseURLs, cfg.UpstreamTimeout)
	slip := slippage.New(cfg.SlippageURL, cfg.UpstreamTimeout)
	signer := ordersigner.New(ob)
	reg := metrics.New()
	orch := orchestrator.New(st, kv, backends, slip, ob, signer, reg)

	creator := swapcreate.New(kv, st, registry, cfg.SwapExpiry)
	httpReporter := reporter.NewHttpReporter(
		"0.0.0.0", cfg.Port,
		st, ob, creator, reg,
		cfg.HTTPRequestTimeout,
	)

	br := balancereader.New(backends)

	var depositPollers []*depositpoller.Poller
	for _, chainCfg := range registry.All() {
		dp := depositpoller.New(chainCfg.ID, chainCfg.PollingInterval, st, br, orch, reg)
		depositPollers = append(depositPollers, dp)

		wg.Add(1)
		go func(p *depositpoller.Poller) {
			defer wg.Done()
			p.Run(ctx)
		}(dp)
	}

	sp := settlementpoller.New(cfg.SettlementPollInterval, st, ob, reg, cfg.StuckExecutingGrace)
	wg.Add(1)
	go func() {
		defer wg.Done()
		sp.Run(ctx)
	}()

	if cfg.GrafanaCloudURL != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			reg.StartPusher(ctx, metrics.PushConfig{
				URL:      cfg.GrafanaCloudURL,
				Username: cfg.GrafanaCloudUsername,
				APIKey:   cfg.GrafanaCloudAPIKey,
				Interval: cfg.MetricsPushInterval,
			})
		}()
	}

	go httpReporter.Run()
	// Give the HTTP listener a moment to bind before returning, the same
	// grace the teacher's server setup gives its http_server.Run goroutine.
	time.Sleep(200 * time.Millisecond)

	return &SwapCoordinatorServer{
		Store:            st,
		KeyVault:         kv,
		Backends:         backends,
		Orderbook:        ob,
		Slippage:         slip,
		Signer:           signer,
		Orchestrator:     orch,
		Metrics:          reg,
		Reporter:         httpReporter,
		DepositPollers:   depositPollers,
		SettlementPoller: sp,
	}, nil
}

// StartSwapCoordinatorAndWait creates the server and blocks until a
// SIGINT/SIGTERM cancels its context, mirroring
// cmd.StartBridgeServerAndWait's signal-handling shape exactly.
func StartSwapCoordinatorAndWait(cfg *config.Config) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.WithField("signal", sig).Info("cmd: received signal, cancelling context")
		cancel()
	}()

	var wg sync.WaitGroup
	srv, err := NewSwapCoordinatorServer(cfg, ctx, &wg)
	if err != nil {
		logger.WithError(err).Fatal("cmd: failed to start swap coordinator")
		return
	}
	defer srv.Store.Close()

	wg.Wait()
}
