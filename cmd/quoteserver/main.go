package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/defistate/flashmint-quote-go/config"
	"github.com/defistate/flashmint-quote-go/contracts"
	deliveryhttp "github.com/defistate/flashmint-quote-go/delivery/http"
	"github.com/defistate/flashmint-quote-go/logging"
	"github.com/defistate/flashmint-quote-go/onchain"
	"github.com/defistate/flashmint-quote-go/quote"
	"github.com/defistate/flashmint-quote-go/swapquote"
	"github.com/defistate/flashmint-quote-go/swapquote/curve"
	"github.com/defistate/flashmint-quote-go/swapquote/static"
	"github.com/defistate/flashmint-quote-go/swapquote/uniswapapi"
	"github.com/defistate/flashmint-quote-go/swapquote/uniswapv2"
	"github.com/defistate/flashmint-quote-go/swapquote/uniswapv3"
	"github.com/defistate/flashmint-quote-go/swapquote/zeroex"
	"github.com/defistate/flashmint-quote-go/swaproute"
	"github.com/defistate/flashmint-quote-go/tokens"
	"github.com/ethereum/go-ethereum/common"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	DefaultDialAttempts      = 5
	DefaultDecimalsCacheSize = 1024
	DefaultShutdownTimeout   = 10 * time.Second
)

func main() {
	cfg, err := loadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	rootLogger, err := logging.New(cfg.Logger.Level, !cfg.Logger.IsProduction)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer rootLogger.Sync()

	close := func() {
		rootLogger.Sync()
		os.Exit(1)
	}

	prometheusRegistry := prometheus.DefaultRegisterer

	// Create a context that cancels when the OS sends an interrupt (Ctrl+C) or termination signal.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	callers := make(onchain.Callers, len(cfg.Chains))
	for _, ch := range cfg.Chains {
		client, err := onchain.Dial(ctx, onchain.DialConfig{
			ChainID:     ch.ID,
			URL:         ch.RPCURL,
			Logger:      rootLogger.With("component", "dial", "chain_id", ch.ID),
			MaxAttempts: DefaultDialAttempts,
		})
		if err != nil {
			rootLogger.Error("Failed to connect to chain", "chain_id", ch.ID, "error", err)
			close()
		}
		defer client.Close()
		callers[ch.ID] = client
	}

	tokenRegistry := tokens.Default()
	contractRegistry, err := contracts.NewRegistry(contracts.DefaultEntries(), tokenRegistry)
	if err != nil {
		rootLogger.Error("Failed to build contract registry", "error", err)
		close()
	}
	tokenReader, err := onchain.NewTokenReader(callers, DefaultDecimalsCacheSize)
	if err != nil {
		rootLogger.Error("Failed to create token reader", "error", err)
		close()
	}

	providers, err := newProviders(cfg, callers, rootLogger, prometheusRegistry)
	if err != nil {
		rootLogger.Error("Failed to initialize swap quote providers", "error", err)
		close()
	}

	assembler, err := quote.NewAssembler(quote.Config{
		Resolver:  contractRegistry,
		Positions: onchain.NewLeveragedReader(callers),
		Tokens:    tokenRegistry,
		Providers: providers,
		Logger:    rootLogger.With("component", "assembler"),
		Registry:  prometheusRegistry,
	})
	if err != nil {
		rootLogger.Error("Failed to initialize quote assembler", "error", err)
		close()
	}

	e := echo.New()
	e.HideBanner = true
	deliveryhttp.NewQuoteHandler(e, deliveryhttp.HandlerConfig{
		Quoter:         assembler,
		Tokens:         tokenRegistry,
		DecimalsReader: tokenReader,
		Balances:       tokenReader,
		Timeout:        cfg.Server.RequestTimeout,
		Logger:         rootLogger.With("component", "http"),
	})
	deliveryhttp.NewSystemHandler(e, prometheus.DefaultGatherer, cfg.ChainIDs())

	serverErr := make(chan error, 1)
	go func() {
		rootLogger.Info("Starting quote server", "address", cfg.Server.Address, "chains", cfg.ChainIDs())
		if err := e.Start(cfg.Server.Address); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		rootLogger.Error("Quote server failed", "error", err)
		close()
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), DefaultShutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		rootLogger.Error("Failed to shut down quote server", "error", err)
	}
}

// newProviders builds the swap quote sources of every configured chain, in
// preference order: static routes, aggregators, then on-chain venues.
func newProviders(cfg *config.Config, callers onchain.Callers, rootLogger *logging.Logger, registry prometheus.Registerer) (map[uint64][]swapquote.Provider, error) {
	var (
		factories = make(map[uint64]common.Address)
		quoters   = make(map[uint64]common.Address)
		pools     []curve.Pool
	)
	for _, ch := range cfg.Chains {
		if addr, ok := ch.V2FactoryAddress(); ok {
			factories[ch.ID] = addr
		}
		if addr, ok := ch.QuoterAddress(); ok {
			quoters[ch.ID] = addr
		}
		pools = append(pools, ch.Pools()...)
	}

	var (
		onchainProviders []swapquote.Provider
		pricers          = make(map[swaproute.Exchange]swapquote.RoutePricer)
	)
	if len(quoters) > 0 {
		v3, err := uniswapv3.New(uniswapv3.Config{
			Quoters: quoters,
			Callers: callers,
			Logger:  rootLogger.With("component", uniswapv3.Name),
		})
		if err != nil {
			return nil, err
		}
		onchainProviders = append(onchainProviders, v3)
		pricers[swaproute.ConcentratedLiquidity] = v3
	}
	if len(factories) > 0 {
		v2, err := uniswapv2.New(uniswapv2.Config{
			Factories: factories,
			Callers:   callers,
			Logger:    rootLogger.With("component", uniswapv2.DefaultName),
		})
		if err != nil {
			return nil, err
		}
		onchainProviders = append(onchainProviders, v2)
		pricers[swaproute.ConstantProduct] = v2
	}
	if len(pools) > 0 {
		c, err := curve.New(curve.Config{
			Pools:       pools,
			Callers:     callers,
			MaxRequests: cfg.Convergence.MaxRequests,
			Logger:      rootLogger.With("component", curve.Name),
		})
		if err != nil {
			return nil, err
		}
		onchainProviders = append(onchainProviders, c)
		pricers[swaproute.Stable] = c
	}

	var all []swapquote.Provider
	if len(pricers) > 0 {
		s, err := static.New(static.Config{
			Table:   static.Default(),
			Pricers: pricers,
			Logger:  rootLogger.With("component", static.Name),
		})
		if err != nil {
			return nil, err
		}
		all = append(all, s)
	}
	if cfg.ZeroEx.Enabled {
		z, err := zeroex.New(zeroex.Config{
			BaseURL:           cfg.ZeroEx.BaseURL,
			APIKey:            cfg.ZeroEx.APIKey,
			Chains:            cfg.ChainIDs(),
			RequestsPerSecond: cfg.ZeroEx.RequestsPerSecond,
			Burst:             cfg.ZeroEx.Burst,
			ToleranceBps:      cfg.ZeroEx.ToleranceBps,
			HeadroomBps:       cfg.ZeroEx.HeadroomBps,
			MaxRequests:       cfg.Convergence.MaxRequests,
			Logger:            rootLogger.With("component", zeroex.Name),
		})
		if err != nil {
			return nil, err
		}
		all = append(all, z)
	}
	if cfg.UniswapAPI.Enabled {
		u, err := uniswapapi.New(uniswapapi.Config{
			BaseURL:           cfg.UniswapAPI.BaseURL,
			APIKey:            cfg.UniswapAPI.APIKey,
			Chains:            cfg.ChainIDs(),
			RequestsPerSecond: cfg.UniswapAPI.RequestsPerSecond,
			Burst:             cfg.UniswapAPI.Burst,
			Logger:            rootLogger.With("component", uniswapapi.Name),
		})
		if err != nil {
			return nil, err
		}
		all = append(all, u)
	}
	all = append(all, onchainProviders...)

	instrumented := make([]swapquote.Provider, 0, len(all))
	for _, p := range all {
		ip, err := swapquote.Instrument(p, registry)
		if err != nil {
			return nil, err
		}
		instrumented = append(instrumented, ip)
	}

	providers := make(map[uint64][]swapquote.Provider, len(cfg.Chains))
	for _, id := range cfg.ChainIDs() {
		providers[id] = instrumented
	}
	return providers, nil
}

func loadConfig() (*config.Config, error) {
	configPath := flag.String("config", "config.yaml", "Path to the configuration file.")
	flag.Parse()
	log.Printf("Loading configuration from: %s", *configPath)
	return config.Load(*configPath)
}
