// Package config loads the quote server configuration from a file and
// FLASHMINT_* environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/defistate/flashmint-quote-go/chains"
	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. FLASHMINT_ZEROEX_API_KEY.
const EnvPrefix = "FLASHMINT"

// Config is the root configuration.
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Logger      LoggerConfig      `mapstructure:"logger"`
	Chains      []ChainConfig     `mapstructure:"chains"`
	ZeroEx      ZeroExConfig      `mapstructure:"zeroex"`
	UniswapAPI  UniswapAPIConfig  `mapstructure:"uniswapapi"`
	Convergence ConvergenceConfig `mapstructure:"convergence"`
}

type ServerConfig struct {
	Address        string        `mapstructure:"address"`
	RequestTimeout time.Duration `mapstructure:"request-timeout"`
}

type LoggerConfig struct {
	Level        string `mapstructure:"level"`
	IsProduction bool   `mapstructure:"is-production"`
}

// ChainConfig describes one chain the server quotes on. Empty deployment
// addresses fall back to the well-known ones for the chain.
type ChainConfig struct {
	ID        uint64 `mapstructure:"id"`
	RPCURL    string `mapstructure:"rpc-url"`
	V2Factory string `mapstructure:"v2-factory"`
	// Quoter is the Uniswap QuoterV2 deployment.
	Quoter     string            `mapstructure:"quoter"`
	CurvePools []CurvePoolConfig `mapstructure:"curve-pools"`
}

type CurvePoolConfig struct {
	Address string `mapstructure:"address"`
	// Coins in pool index order. Use the native placeholder for ETH.
	Coins []string `mapstructure:"coins"`
}

type ZeroExConfig struct {
	Enabled           bool    `mapstructure:"enabled"`
	BaseURL           string  `mapstructure:"base-url"`
	APIKey            string  `mapstructure:"api-key"`
	RequestsPerSecond float64 `mapstructure:"requests-per-second"`
	Burst             int     `mapstructure:"burst"`
	ToleranceBps      uint64  `mapstructure:"tolerance-bps"`
	HeadroomBps       uint64  `mapstructure:"headroom-bps"`
}

type UniswapAPIConfig struct {
	Enabled           bool    `mapstructure:"enabled"`
	BaseURL           string  `mapstructure:"base-url"`
	APIKey            string  `mapstructure:"api-key"`
	RequestsPerSecond float64 `mapstructure:"requests-per-second"`
	Burst             int     `mapstructure:"burst"`
}

type ConvergenceConfig struct {
	MaxRequests int `mapstructure:"max-requests"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.address", ":8080")
	v.SetDefault("server.request-timeout", 15*time.Second)

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.is-production", true)

	v.SetDefault("zeroex.enabled", false)
	v.SetDefault("zeroex.base-url", "https://api.0x.org")
	v.SetDefault("zeroex.api-key", "")
	v.SetDefault("zeroex.requests-per-second", 5.0)
	v.SetDefault("zeroex.burst", 5)
	v.SetDefault("zeroex.tolerance-bps", 50)
	v.SetDefault("zeroex.headroom-bps", 300)

	v.SetDefault("uniswapapi.enabled", false)
	v.SetDefault("uniswapapi.base-url", "https://trade-api.gateway.uniswap.org/v1")
	v.SetDefault("uniswapapi.api-key", "")
	v.SetDefault("uniswapapi.requests-per-second", 5.0)
	v.SetDefault("uniswapapi.burst", 5)

	v.SetDefault("convergence.max-requests", 10)
}

// Load reads the configuration at path (YAML, TOML or JSON by extension),
// applies FLASHMINT_* overrides and defaults, and validates the result. An
// empty path loads defaults and environment only.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	for i := range cfg.Chains {
		cfg.Chains[i].applyDefaults()
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Server.Address == "" {
		return errors.New("config: server.address is required")
	}
	if c.Server.RequestTimeout <= 0 {
		return errors.New("config: server.request-timeout must be positive")
	}
	if len(c.Chains) == 0 {
		return errors.New("config: at least one chain is required")
	}

	seen := make(map[uint64]struct{}, len(c.Chains))
	for _, ch := range c.Chains {
		if err := ch.validate(); err != nil {
			return err
		}
		if _, dup := seen[ch.ID]; dup {
			return fmt.Errorf("config: chain %d is listed twice", ch.ID)
		}
		seen[ch.ID] = struct{}{}
	}

	if c.ZeroEx.Enabled && c.ZeroEx.APIKey == "" {
		return errors.New("config: zeroex.api-key is required when 0x is enabled")
	}
	if c.UniswapAPI.Enabled && c.UniswapAPI.APIKey == "" {
		return errors.New("config: uniswapapi.api-key is required when the Uniswap API is enabled")
	}
	if c.Convergence.MaxRequests < 2 {
		return errors.New("config: convergence.max-requests must be at least 2")
	}
	return nil
}

// ChainIDs returns the configured chain ids in file order.
func (c *Config) ChainIDs() []uint64 {
	ids := make([]uint64, len(c.Chains))
	for i, ch := range c.Chains {
		ids[i] = ch.ID
	}
	return ids
}

func (c *ChainConfig) validate() error {
	if c.ID == 0 {
		return errors.New("config: chain id is required")
	}
	if !chains.Supported(c.ID) {
		return fmt.Errorf("config: chain %d is not supported", c.ID)
	}
	if c.RPCURL == "" {
		return fmt.Errorf("config: rpc-url is required for chain %d", c.ID)
	}
	for name, addr := range map[string]string{"v2-factory": c.V2Factory, "quoter": c.Quoter} {
		if addr != "" && !common.IsHexAddress(addr) {
			return fmt.Errorf("config: chain %d %s %q is not an address", c.ID, name, addr)
		}
	}
	for _, p := range c.CurvePools {
		if !common.IsHexAddress(p.Address) {
			return fmt.Errorf("config: chain %d curve pool %q is not an address", c.ID, p.Address)
		}
		if len(p.Coins) < 2 {
			return fmt.Errorf("config: chain %d curve pool %s needs at least two coins", c.ID, p.Address)
		}
		for _, coin := range p.Coins {
			if !common.IsHexAddress(coin) {
				return fmt.Errorf("config: chain %d curve pool %s coin %q is not an address", c.ID, p.Address, coin)
			}
		}
	}
	return nil
}

// V2FactoryAddress returns the pair factory, or false when none is known.
func (c ChainConfig) V2FactoryAddress() (common.Address, bool) {
	return optionalAddress(c.V2Factory)
}

// QuoterAddress returns the QuoterV2 deployment, or false when none is known.
func (c ChainConfig) QuoterAddress() (common.Address, bool) {
	return optionalAddress(c.Quoter)
}

func optionalAddress(s string) (common.Address, bool) {
	if s == "" {
		return common.Address{}, false
	}
	return common.HexToAddress(s), true
}
