package connect

import (
	"context"
	"fmt"
	"time"

	solanarpc "github.com/gagliardetto/solana-go/rpc"
	ipfslog "github.com/ipfs/go-log/v2"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/certusone/wormhole/connect/pkg/aptos"
	"github.com/certusone/wormhole/connect/pkg/assetcache"
	"github.com/certusone/wormhole/connect/pkg/config"
	"github.com/certusone/wormhole/connect/pkg/connect"
	"github.com/certusone/wormhole/connect/pkg/evm"
	"github.com/certusone/wormhole/connect/pkg/guardian"
	"github.com/certusone/wormhole/connect/pkg/solana"
	"github.com/certusone/wormhole/connect/pkg/vaa"
)

const rpcTimeout = 10 * time.Second

// runtime is everything a command needs: the loaded config and the adapters built from it.
type runtime struct {
	logger    *zap.Logger
	cfg       *config.Config
	registry  *connect.Registry
	retriever *guardian.Retriever
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := ipfslog.LevelFromString(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	ipfslog.SetAllLoggers(lvl)
	return ipfslog.Logger("connect").Desugar(), nil
}

func setup(ctx context.Context, cmd *cobra.Command) (*runtime, error) {
	configFile, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}
	v, err := config.InitFileConfig(cmd, config.ConfigOptions{FilePath: configFile, EnvPrefix: config.DefaultEnvPrefix})
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	logger, err := newLogger(v.GetString("logLevel"))
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(v)
	if err != nil {
		return nil, err
	}
	logger.Debug("loaded config", zap.String("env", string(cfg.Environment)), zap.Strings("guardian_hosts", cfg.Guardian.Hosts))

	return newRuntime(ctx, logger, cfg)
}

// newRuntime builds one adapter per configured chain. Chains without an RPC endpoint are skipped.
func newRuntime(ctx context.Context, logger *zap.Logger, cfg *config.Config) (*runtime, error) {
	cache, err := assetcache.New(assetcache.WithSize(cfg.Cache.Size))
	if err != nil {
		return nil, err
	}

	var limiter *rate.Limiter
	if cfg.Guardian.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.Guardian.RateLimit), 1)
	}

	rt := &runtime{logger: logger, cfg: cfg, registry: connect.NewRegistry()}
	var retriever connect.VaaRetriever
	if len(cfg.Guardian.Hosts) > 0 {
		rt.retriever, err = guardian.NewRetriever(logger, guardian.NewHTTPTransport(cfg.Guardian.Timeout, limiter), guardian.Config{
			Hosts:           cfg.Guardian.Hosts,
			MaxAttempts:     cfg.Guardian.MaxAttempts,
			InitialInterval: cfg.Guardian.InitialInterval,
			MaxInterval:     cfg.Guardian.MaxInterval,
		})
		if err != nil {
			return nil, err
		}
		retriever = rt.retriever
	}

	for _, id := range cfg.ChainIDs() {
		chain, _ := cfg.Chain(id)
		if chain.RPC == "" {
			logger.Info("skipping chain without rpc", zap.Stringer("chain", id))
			continue
		}

		c, err := newContext(ctx, logger, id, chain, retriever, rt.registry, cache)
		if err != nil {
			return nil, fmt.Errorf("failed to set up %s: %w", id, err)
		}
		if err := rt.registry.Register(c); err != nil {
			return nil, err
		}
	}
	return rt, nil
}

func newContext(
	ctx context.Context,
	logger *zap.Logger,
	id vaa.ChainID,
	chain config.ChainConfig,
	retriever connect.VaaRetriever,
	resolver connect.Resolver,
	cache *assetcache.Cache,
) (connect.Context, error) {
	var (
		c   connect.Context
		err error
	)
	switch {
	case id == vaa.ChainIDAptos:
		api := aptos.NewAptosApiConnection(chain.RPC, rpcTimeout, nil)
		c, err = aptos.NewContext(logger, api, aptos.Config{TokenBridge: chain.TokenBridge, CoreBridge: chain.CoreBridge}, retriever, resolver, cache)
	case id == vaa.ChainIDSolana:
		c, err = solana.NewContext(logger, solanarpc.New(chain.RPC), solana.Config{
			TokenBridge: chain.TokenBridge,
			Commitment:  solanarpc.CommitmentType(chain.Commitment),
		}, resolver, cache)
	case id.IsEVM():
		client, dialErr := evm.Dial(ctx, chain.RPC)
		if dialErr != nil {
			return nil, dialErr
		}
		c, err = evm.NewContext(logger, client, evm.Config{
			Chain:         id,
			TokenBridge:   chain.TokenBridge,
			CoreBridge:    chain.CoreBridge,
			WrappedNative: chain.WrappedNative,
		}, retriever, resolver, cache)
	default:
		return nil, fmt.Errorf("no adapter for %s", id)
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

// AddPersistentFlags registers the flags every connect command reads through setup.
func AddPersistentFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().String("config", "", "Config file (yaml, toml or json)")
	cmd.PersistentFlags().String("network", "", "Network (mainnet, testnet, devnet); defaults to mainnet")
	cmd.PersistentFlags().String("logLevel", "info", "Logging level (debug, info, warn, error, dpanic, panic, fatal)")
}
