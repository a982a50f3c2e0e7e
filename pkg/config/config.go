// Package config holds the settings needed to build chain adapters and the guardian retriever, with per-network
// defaults that a config file, CONNECT_* environment variables or flags can override.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"sort"
	"time"

	"github.com/certusone/wormhole/connect/pkg/common"
	"github.com/certusone/wormhole/connect/pkg/vaa"
)

type Guardian struct {
	// Hosts are guardian REST endpoints serving /v1/signed_vaa.
	Hosts []string `mapstructure:"hosts"`
	// MaxAttempts caps the requests made for one VAA. Zero means one pass over Hosts.
	MaxAttempts     int           `mapstructure:"maxAttempts"`
	InitialInterval time.Duration `mapstructure:"initialInterval"`
	MaxInterval     time.Duration `mapstructure:"maxInterval"`
	// Timeout applies to a single HTTP request.
	Timeout time.Duration `mapstructure:"timeout"`
	// RateLimit is requests per second across all hosts. Zero disables pacing.
	RateLimit float64 `mapstructure:"rateLimit"`
}

type Cache struct {
	// Size bounds the foreign asset cache. Zero keeps every entry.
	Size int `mapstructure:"size"`
}

type ChainConfig struct {
	RPC           string `mapstructure:"rpc"`
	TokenBridge   string `mapstructure:"tokenBridge"`
	CoreBridge    string `mapstructure:"coreBridge"`
	WrappedNative string `mapstructure:"wrappedNative"`
	// Commitment is only read by Solana.
	Commitment string `mapstructure:"commitment"`
}

type Config struct {
	Environment common.Environment     `mapstructure:"-"`
	Guardian    Guardian               `mapstructure:"guardian"`
	Cache       Cache                  `mapstructure:"cache"`
	Chains      map[string]ChainConfig `mapstructure:"chains"`
}

// Chain looks up the settings of a chain by ID.
func (c *Config) Chain(id vaa.ChainID) (ChainConfig, bool) {
	chain, ok := c.Chains[id.String()]
	return chain, ok
}

// ChainIDs returns the configured chains in ascending ID order. Unknown names are skipped; Validate reports them.
func (c *Config) ChainIDs() []vaa.ChainID {
	ids := make([]vaa.ChainID, 0, len(c.Chains))
	for name := range c.Chains {
		if id, err := vaa.ChainIDFromString(name); err == nil {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Merge overlays the non-zero fields of o onto c.
func (c *Config) Merge(o *Config) {
	if len(o.Guardian.Hosts) > 0 {
		c.Guardian.Hosts = o.Guardian.Hosts
	}
	if o.Guardian.MaxAttempts != 0 {
		c.Guardian.MaxAttempts = o.Guardian.MaxAttempts
	}
	if o.Guardian.InitialInterval != 0 {
		c.Guardian.InitialInterval = o.Guardian.InitialInterval
	}
	if o.Guardian.MaxInterval != 0 {
		c.Guardian.MaxInterval = o.Guardian.MaxInterval
	}
	if o.Guardian.Timeout != 0 {
		c.Guardian.Timeout = o.Guardian.Timeout
	}
	if o.Guardian.RateLimit != 0 {
		c.Guardian.RateLimit = o.Guardian.RateLimit
	}
	if o.Cache.Size != 0 {
		c.Cache.Size = o.Cache.Size
	}

	if c.Chains == nil {
		c.Chains = map[string]ChainConfig{}
	}
	for name, override := range o.Chains {
		chain := c.Chains[name]
		if override.RPC != "" {
			chain.RPC = override.RPC
		}
		if override.TokenBridge != "" {
			chain.TokenBridge = override.TokenBridge
		}
		if override.CoreBridge != "" {
			chain.CoreBridge = override.CoreBridge
		}
		if override.WrappedNative != "" {
			chain.WrappedNative = override.WrappedNative
		}
		if override.Commitment != "" {
			chain.Commitment = override.Commitment
		}
		c.Chains[name] = chain
	}
}

func (c *Config) Validate() error {
	var errs []error
	for _, host := range c.Guardian.Hosts {
		u, err := url.Parse(host)
		if err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, fmt.Errorf("invalid guardian host %q", host))
		}
	}
	if c.Guardian.MaxAttempts < 0 {
		errs = append(errs, errors.New("guardian.maxAttempts must not be negative"))
	}
	if c.Guardian.RateLimit < 0 {
		errs = append(errs, errors.New("guardian.rateLimit must not be negative"))
	}
	if c.Cache.Size < 0 {
		errs = append(errs, errors.New("cache.size must not be negative"))
	}
	for name := range c.Chains {
		if _, err := vaa.ChainIDFromString(name); err != nil {
			errs = append(errs, fmt.Errorf("chains.%s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}
