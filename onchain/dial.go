// Package onchain performs the read-only eth_call work of quoting: dialing
// chain RPC endpoints, reading leveraged token positions and token metadata.
package onchain

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/defistate/flashmint-quote-go/chains"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
)

// Constants for the dial backoff.
const (
	initialRetryDelay = 1 * time.Second
	maxRetryDelay     = 30 * time.Second
)

var ErrChainIDMismatch = errors.New("rpc endpoint serves a different chain")

// DialConfig holds the configuration for connecting to one chain.
type DialConfig struct {
	ChainID     uint64
	URL         string
	Logger      chains.Logger
	MaxAttempts int
	// RetryDelay overrides the initial backoff delay.
	RetryDelay time.Duration
}

// validate checks if the configuration is valid.
func (c *DialConfig) validate() error {
	if c.ChainID == 0 {
		return errors.New("config: ChainID is required")
	}
	if c.URL == "" {
		return errors.New("config: URL is required")
	}
	if c.Logger == nil {
		return errors.New("config: Logger is required")
	}
	if c.MaxAttempts < 1 {
		return errors.New("config: MaxAttempts must be greater than 0")
	}
	return nil
}

// Dial connects to the chain's RPC endpoint, retrying with exponential
// backoff, and checks that the endpoint reports the configured chain id.
func Dial(ctx context.Context, cfg DialConfig) (*ethclient.Client, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	delay := cfg.RetryDelay
	if delay <= 0 {
		delay = initialRetryDelay
	}

	var lastErr error
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		cfg.Logger.Info("Attempting to connect to RPC server", "chain", chains.Name(cfg.ChainID), "attempt", attempt)
		client, err := dialOnce(ctx, cfg)
		if err == nil {
			cfg.Logger.Info("Successfully connected to RPC server.", "chain", chains.Name(cfg.ChainID))
			return client, nil
		}
		if errors.Is(err, ErrChainIDMismatch) {
			return nil, err
		}
		lastErr = err

		if attempt == cfg.MaxAttempts {
			break
		}
		cfg.Logger.Error("Failed to connect to RPC server, will retry...", "chain", chains.Name(cfg.ChainID), "error", err, "delay", delay)
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		delay = min(delay*2, maxRetryDelay)
	}

	return nil, fmt.Errorf("failed to connect to chain %d after %d attempts: %w", cfg.ChainID, cfg.MaxAttempts, lastErr)
}

func dialOnce(ctx context.Context, cfg DialConfig) (*ethclient.Client, error) {
	rpcClient, err := rpc.DialContext(ctx, cfg.URL)
	if err != nil {
		return nil, err
	}
	client := ethclient.NewClient(rpcClient)

	chainID, err := client.ChainID(ctx)
	if err != nil {
		client.Close()
		return nil, err
	}
	if !chainID.IsUint64() || chainID.Uint64() != cfg.ChainID {
		client.Close()
		return nil, fmt.Errorf("%w: expected %d, got %s", ErrChainIDMismatch, cfg.ChainID, chainID)
	}
	return client, nil
}
